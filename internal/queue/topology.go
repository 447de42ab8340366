package queue

import (
	amqp "github.com/rabbitmq/amqp091-go"
)

// DeclareTopology declares every queue and exchange used by the service.
// Declarations are idempotent, so publisher and consumer both call it.
func DeclareTopology(ch *amqp.Channel) error {
	for _, q := range []string{BookingConfirmedQueue, BookingExpiredQueue} {
		if _, err := ch.QueueDeclare(q, true, false, false, false, nil); err != nil {
			return err
		}
	}
	return setupDelayQueue(ch, HoldDelayQueue, HoldTimeoutExchange, HoldTimeoutQueue, HoldTimeoutRoutingKey)
}

// setupDelayQueue declares a delay queue whose expired messages are
// dead-lettered to timeoutQueue.  Messages are produced to the delay queue
// with a per-message expiration and consumed from the timeout queue.
func setupDelayQueue(ch *amqp.Channel, delayQueue, timeoutExchange, timeoutQueue, routingKey string) error {
	delayArgs := amqp.Table{
		"x-dead-letter-exchange":    timeoutExchange,
		"x-dead-letter-routing-key": routingKey,
	}
	if _, err := ch.QueueDeclare(delayQueue, true, false, false, false, delayArgs); err != nil {
		return err
	}
	if err := ch.ExchangeDeclare(timeoutExchange, "direct", true, false, false, false, nil); err != nil {
		return err
	}
	if _, err := ch.QueueDeclare(timeoutQueue, true, false, false, false, nil); err != nil {
		return err
	}
	return ch.QueueBind(timeoutQueue, routingKey, timeoutExchange, false, nil)
}
