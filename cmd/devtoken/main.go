// Command devtoken prints a signed access token for local testing of the
// booking API.  It signs with JWT_SECRET unless --secret is given.
package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/iliyamo/cinema-booking-core/internal/utils"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	var (
		userID uint64
		role   string
		secret string
		ttl    time.Duration
	)
	_ = godotenv.Load()

	flagSet := pflag.NewFlagSet("devtoken", pflag.ContinueOnError)
	flagSet.Uint64Var(&userID, "user", 1, "user id placed in the sub claim")
	flagSet.StringVar(&role, "role", "CUSTOMER", "role claim (ADMIN or CUSTOMER)")
	flagSet.StringVar(&secret, "secret", os.Getenv("JWT_SECRET"), "HMAC signing secret (default $JWT_SECRET)")
	flagSet.DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			printHelp(flagSet)
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help {
		printHelp(flagSet)
		return nil
	}
	if rest := flagSet.Args(); len(rest) > 0 {
		return fmt.Errorf("unexpected argument: %s", rest[0])
	}
	if ttl <= 0 {
		return fmt.Errorf("--ttl must be positive")
	}

	tok, err := utils.NewAccessToken(secret, userID, strings.ToUpper(role), ttl)
	if err != nil {
		return err
	}
	fmt.Println(tok.Token)
	return nil
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `devtoken signs an access token for the booking API.

Usage:
  devtoken [--user ID] [--role ROLE] [--ttl DURATION] [--secret SECRET]

Flags:
%s`, flagSet.FlagUsages())
}
