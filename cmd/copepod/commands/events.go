package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/oreanmos/copepod-go/pkg/copepod"
)

// defaultEventSubject prefixes the NATS subjects events are forwarded to.
const defaultEventSubject = "copepod.events"

// EventSink receives the record events of a subscription.
type EventSink interface {
	Publish(event *copepod.RecordEvent) error
}

// WriterSink writes one line per event, as JSON when the output format asks for it.
type WriterSink struct {
	Out  io.Writer
	JSON bool
}

// Publish implements EventSink.
func (s *WriterSink) Publish(event *copepod.RecordEvent) error {
	if s.JSON {
		line, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("encoding event: %w", err)
		}

		_, err = fmt.Fprintln(s.Out, string(line))
		if err != nil {
			return fmt.Errorf("writing event: %w", err)
		}

		return nil
	}

	record := copepod.Record{}
	_ = event.Decode(&record)

	_, err := fmt.Fprintf(s.Out, "%-8s %-20s %s\n", event.Action, event.Collection, record.ID())
	if err != nil {
		return fmt.Errorf("writing event: %w", err)
	}

	return nil
}

// NATSSink publishes each event as JSON to "<prefix>.<collection>.<action>".
type NATSSink struct {
	Conn   *nats.Conn
	Prefix string
}

// Publish implements EventSink.
func (s *NATSSink) Publish(event *copepod.RecordEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encoding event: %w", err)
	}

	err = s.Conn.Publish(EventSubject(s.Prefix, event), payload)
	if err != nil {
		return fmt.Errorf("publishing event: %w", err)
	}

	return nil
}

// EventSubject returns the NATS subject an event is forwarded to.
func EventSubject(prefix string, event *copepod.RecordEvent) string {
	return fmt.Sprintf("%s.%s.%s", prefix, event.Collection, event.Action)
}

// ForwardEvents drains sub into sink until the subscription ends. Frames that fail
// to decode are logged and skipped; a sink error ends forwarding.
func ForwardEvents(sub *copepod.Subscription, sink EventSink) (int, error) {
	forwarded := 0

	for event, err := range sub.All() {
		if err != nil {
			logger.Warn().Err(err).Msg("Skipping event frame")

			continue
		}

		err = sink.Publish(event)
		if err != nil {
			return forwarded, err
		}

		forwarded++
	}

	return forwarded, nil
}

// NewEventsCommand creates the events command group.
func NewEventsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Follow realtime record events",
		Long:  "Stream record changes of an application, printing them or forwarding them to NATS",
	}
	addOrgAppFlags(cmd)

	cmd.AddCommand(newEventsSubscribeCommand())

	return cmd
}

func newEventsSubscribeCommand() *cobra.Command {
	var natsURL, subject string

	cmd := &cobra.Command{
		Use:   "subscribe",
		Short: "Stream record events until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			org, app, err := resolveOrgApp(cmd)
			if err != nil {
				return err
			}

			return runWithClient(cmd, func(ctx context.Context, client copepod.Client) error {
				var sink EventSink = &WriterSink{Out: os.Stdout, JSON: viper.GetString("output") == OutputFormatJSON}

				if natsURL != "" {
					conn, err := nats.Connect(natsURL, nats.Name("copepod-events"))
					if err != nil {
						return fmt.Errorf("failed to connect to NATS: %w", err)
					}

					defer func() { _ = conn.Drain() }()

					sink = &NATSSink{Conn: conn, Prefix: subject}
				}

				sub, err := client.Realtime().Subscribe(ctx, org, app)
				if err != nil {
					return fmt.Errorf("failed to subscribe: %w", err)
				}

				defer func() { _ = sub.Close() }()

				logger.Info().Str("org", org).Str("app", app).Msg("Subscribed to record events")

				forwarded, err := ForwardEvents(sub, sink)
				logger.Info().Int("events", forwarded).Msg("Subscription ended")

				if err != nil && !errors.Is(err, context.Canceled) {
					return err
				}

				return nil
			})
		},
	}

	cmd.Flags().StringVar(&natsURL, "nats-url", "", "forward events to this NATS server instead of printing them")
	cmd.Flags().StringVar(&subject, "subject", defaultEventSubject, "subject prefix for forwarded events")

	return cmd
}
