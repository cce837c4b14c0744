package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/eventband/amqp"
	"github.com/eventband/amqp/internal/config"
	"github.com/eventband/amqp/rabbitmq"
)

// app carries the state shared by every sub command.
type app struct {
	envFile string
	driver  amqp.Driver
}

// setup loads configuration and connects, unless a driver was already supplied.
func (a *app) setup(ctx context.Context) error {
	if a.driver != nil {
		return nil
	}

	var files []string
	if a.envFile != "" {
		files = append(files, a.envFile)
	}
	cfg, err := config.Load(files...)
	if err != nil {
		return err
	}

	zerolog.SetGlobalLevel(cfg.LogLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	d := rabbitmq.NewDefinedDriver(cfg.Definition, rabbitmq.WithLogger(log.Logger))
	log.Debug().Stringer("definition", cfg.Definition).Msg("connecting")
	if err := amqp.ConnectWithRetry(ctx, d, amqp.DefaultBackOff()); err != nil {
		return err
	}
	a.driver = d
	return nil
}

func (a *app) close() {
	if a.driver == nil {
		return
	}
	if err := a.driver.Close(); err != nil {
		log.Debug().Err(err).Msg("close driver")
	}
	a.driver = nil
}

func newRootCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "eventband-amqp",
		Short:         "Publish, consume and declare topology on an AMQP 0-9-1 broker",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd.Context())
		},
	}
	cmd.PersistentFlags().StringVar(&a.envFile, "env-file", "", "read settings from this file instead of .env")

	cmd.AddCommand(
		newPublishCommand(a),
		newConsumeCommand(a),
		newDeclareExchangeCommand(a),
		newDeclareQueueCommand(a),
		newBindQueueCommand(a),
		newBindExchangeCommand(a),
	)
	return cmd
}

type publishOptions struct {
	contentType string
	messageID   string
	headers     map[string]string
	persistent  bool
	mandatory   bool
	detect      bool
}

func newPublishCommand(a *app) *cobra.Command {
	var opts publishOptions
	cmd := &cobra.Command{
		Use:   "publish EXCHANGE ROUTING_KEY BODY",
		Short: "Publish a message",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPublish(cmd.Context(), a.driver, cmd.OutOrStdout(), opts, args[0], args[1], args[2])
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.contentType, "content-type", "", "content type of the body")
	flags.BoolVar(&opts.detect, "detect-content-type", false, "detect the content type from the body")
	flags.StringVar(&opts.messageID, "message-id", "", "message id, generated when empty")
	flags.StringToStringVar(&opts.headers, "header", nil, "application header as key=value")
	flags.BoolVar(&opts.persistent, "persistent", false, "ask the broker to persist the message")
	flags.BoolVar(&opts.mandatory, "mandatory", false, "return the message when it is unroutable")
	return cmd
}

func runPublish(ctx context.Context, d amqp.Driver, out io.Writer, opts publishOptions, exchange, key, body string) error {
	id := opts.messageID
	if id == "" {
		id = uuid.NewString()
	}

	msgOpts := []amqp.MessageOption{
		amqp.WithMessageID(id),
		amqp.WithTimestamp(time.Now()),
	}
	switch {
	case opts.contentType != "":
		msgOpts = append(msgOpts, amqp.WithContentType(opts.contentType))
	case opts.detect:
		msgOpts = append(msgOpts, amqp.WithDetectedContentType())
	}
	if len(opts.headers) > 0 {
		h := make(amqp.Table, len(opts.headers))
		for k, v := range opts.headers {
			h[k] = v
		}
		msgOpts = append(msgOpts, amqp.WithHeaders(h))
	}

	p := amqp.Publication{
		Message:    amqp.NewMessage([]byte(body), msgOpts...),
		Persistent: opts.persistent,
		Mandatory:  opts.mandatory,
	}
	if err := d.Publish(ctx, p, exchange, key); err != nil {
		return err
	}

	fmt.Fprintln(out, id)
	return nil
}

func newConsumeCommand(a *app) *cobra.Command {
	var (
		count   int
		timeout time.Duration
		reject  bool
	)
	cmd := &cobra.Command{
		Use:   "consume QUEUE",
		Short: "Print and acknowledge messages from a queue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConsume(cmd.Context(), a.driver, cmd.OutOrStdout(), args[0], count, timeout, reject)
		},
	}

	flags := cmd.Flags()
	flags.IntVarP(&count, "count", "n", 0, "stop after this many messages, 0 for no limit")
	flags.DurationVarP(&timeout, "timeout", "t", 0, "stop when no message arrives within this duration")
	flags.BoolVar(&reject, "reject", false, "reject messages back onto the queue instead of acknowledging them")
	return cmd
}

func runConsume(
	ctx context.Context,
	d amqp.Driver,
	out io.Writer,
	queue string,
	count int,
	timeout time.Duration,
	reject bool,
) error {
	var (
		seen    int
		handled error
	)
	h := amqp.HandlerFunc(func(ctx context.Context, del amqp.Delivery) bool {
		seen++
		printDelivery(out, del)

		settle := d.Ack
		if reject {
			settle = d.Reject
		}
		if err := settle(ctx, del); err != nil {
			handled = err
			return false
		}
		return count <= 0 || seen < count
	})

	if err := d.Consume(ctx, queue, h, timeout); err != nil {
		return err
	}
	if handled != nil {
		return handled
	}

	log.Info().Str("queue", queue).Int("messages", seen).Msg("consume finished")
	return nil
}

func printDelivery(out io.Writer, del amqp.Delivery) {
	var props []string
	for _, p := range amqp.Properties {
		if v, ok := del.Message.Property(p); ok {
			props = append(props, fmt.Sprintf("%s=%v", p, v))
		}
	}

	fmt.Fprintf(out, "[%s] exchange=%q routing_key=%q redelivered=%t %s\n",
		del.Queue, del.Exchange, del.RoutingKey, del.Redelivered, strings.Join(props, " "))
	fmt.Fprintf(out, "%s\n", del.Message.Body())
}

func newDeclareExchangeCommand(a *app) *cobra.Command {
	var (
		def  amqp.ExchangeDefinition
		kind string
	)
	cmd := &cobra.Command{
		Use:   "declare-exchange NAME",
		Short: "Declare an exchange",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			def.Name = args[0]
			def.Type = amqp.ExchangeType(kind)
			return a.driver.DeclareExchange(cmd.Context(), def)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&kind, "type", string(amqp.ExchangeTypeDirect), "exchange type: direct, fanout, topic or headers")
	flags.BoolVar(&def.Durable, "durable", false, "survive a broker restart")
	flags.BoolVar(&def.AutoDelete, "auto-delete", false, "delete once the last binding is removed")
	flags.BoolVar(&def.Internal, "internal", false, "only accept messages from other exchanges")
	return cmd
}

func newDeclareQueueCommand(a *app) *cobra.Command {
	var def amqp.QueueDefinition
	cmd := &cobra.Command{
		Use:   "declare-queue NAME",
		Short: "Declare a queue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			def.Name = args[0]
			return a.driver.DeclareQueue(cmd.Context(), def)
		},
	}

	flags := cmd.Flags()
	flags.BoolVar(&def.Durable, "durable", false, "survive a broker restart")
	flags.BoolVar(&def.AutoDelete, "auto-delete", false, "delete once the last consumer is gone")
	flags.BoolVar(&def.Exclusive, "exclusive", false, "only usable by this connection")
	return cmd
}

func newBindQueueCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "bind-queue QUEUE EXCHANGE [ROUTING_KEY]",
		Short: "Bind a queue to an exchange",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.driver.BindQueue(cmd.Context(), args[0], args[1], optionalArg(args, 2))
		},
	}
}

func newBindExchangeCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "bind-exchange TARGET SOURCE [ROUTING_KEY]",
		Short: "Bind an exchange to another exchange",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.driver.BindExchange(cmd.Context(), args[0], args[1], optionalArg(args, 2))
		},
	}
}

func optionalArg(args []string, i int) string {
	if i < len(args) {
		return args[i]
	}
	return ""
}
