// Command cartctl is the customer-side foodkart client: it keeps the cart in
// sync with the backend (or on this device when the backend is down) and
// runs checkout.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "cartctl",
		Usage: "manage your foodkart cart and place orders",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "api-url", Usage: "backend base URL", EnvVars: []string{"API_URL"}},
			&cli.StringFlag{Name: "api-key", Usage: "backend API key", EnvVars: []string{"API_KEY"}},
			&cli.StringFlag{Name: "user", Aliases: []string{"u"}, Usage: "user id", EnvVars: []string{"USER_ID"}},
			&cli.StringFlag{Name: "fallback-db", Usage: "path of the local cart database", EnvVars: []string{"FALLBACK_DB_PATH"}},
			&cli.StringFlag{Name: "log-level", Usage: "debug, info, warn or error", EnvVars: []string{"LOG_LEVEL"}},
			&cli.DurationFlag{Name: "debounce", Usage: "quiet period before the cart is synced", EnvVars: []string{"SYNC_DEBOUNCE"}},
		},
		Commands: []*cli.Command{
			cartCommand(),
			checkoutCommand(),
			orderCommand(),
			paymentCommand(),
		},
	}
}
