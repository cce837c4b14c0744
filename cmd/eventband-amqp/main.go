// Command eventband-amqp is a small client for exercising a broker through the
// eventband driver.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := &app{}
	defer a.close()

	if err := newRootCommand(a).ExecuteContext(ctx); err != nil {
		log.Error().Err(err).Msg("command failed")
		a.close()
		os.Exit(1)
	}
}
