package queue

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeExpirer struct {
	calls   []uint64
	expired bool
	err     error
}

func (f *fakeExpirer) ExpireBooking(_ context.Context, id uint64) (bool, error) {
	f.calls = append(f.calls, id)
	return f.expired, f.err
}

func TestHandleConfirmed_AppendsLine(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	c := &Consumer{LogDir: dir, Log: zap.NewNop()}

	for _, id := range []uint64{11, 12} {
		body, err := json.Marshal(BookingConfirmedEvent{
			BookingID:   id,
			UserID:      3,
			ShowID:      1,
			SeatLabels:  []string{"A-1", "A-2"},
			TotalAmount: 400,
			ConfirmedAt: "2026-10-19T10:00:00Z",
		})
		require.NoError(t, err)
		require.NoError(t, c.HandleConfirmed(body))
	}

	raw, err := os.ReadFile(filepath.Join(dir, "booking.log"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t,
		"[2026-10-19T10:00:00Z] Booking confirmed | booking_id=11 | user_id=3 | show_id=1 | total=400 | seats=[A-1,A-2]",
		lines[0])
	assert.Contains(t, lines[1], "booking_id=12")

	assert.Error(t, c.HandleConfirmed([]byte("{")))
}

func TestHandleHoldTimeout(t *testing.T) {
	exp := &fakeExpirer{expired: true}
	c := &Consumer{Expirer: exp, Log: zap.NewNop()}

	require.NoError(t, c.HandleHoldTimeout(context.Background(), []byte(`{"message_id":"m1","booking_id":9}`)))
	assert.Equal(t, []uint64{9}, exp.calls)

	assert.Error(t, c.HandleHoldTimeout(context.Background(), []byte(`not json`)))
	assert.Error(t, c.HandleHoldTimeout(context.Background(), []byte(`{"booking_id":0}`)))
	assert.Len(t, exp.calls, 1)

	exp.err = errors.New("db down")
	assert.ErrorIs(t, c.HandleHoldTimeout(context.Background(), []byte(`{"booking_id":10}`)), exp.err)
}

func TestSleepStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.False(t, sleep(ctx, 0x7fffffff))
	assert.True(t, sleep(context.Background(), 1))
}
