package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/frahmantamala/time2pay/internal/core/events"
	"github.com/frahmantamala/time2pay/pkg/logger"
)

var eventCmd = &cobra.Command{
	Use:   "event",
	Short: "Event management commands",
	Long:  `Publish claim events on an in-process bus to inspect handlers and payloads`,
}

var publishEventCmd = &cobra.Command{
	Use:   "publish [event-type]",
	Short: "Publish a test claim event",
	Long:  `Publish a claim lifecycle event to a local event bus for testing and debugging`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		publishTestEvent(args[0])
	},
}

var (
	eventClaimID int64
	eventOwnerID int64
	eventRemarks string
	eventSync    bool
)

func publishTestEvent(eventType string) {
	known := false
	for _, t := range events.ClaimEventTypes {
		if t == eventType {
			known = true
			break
		}
	}
	if !known {
		fmt.Fprintf(os.Stderr, "unknown event type %q, expected one of %v\n", eventType, events.ClaimEventTypes)
		os.Exit(1)
	}

	lg := logger.LoggerWrapper()
	eventBus := events.NewEventBus(lg)

	eventBus.Subscribe(eventType, func(ctx context.Context, event events.Event) error {
		lg.Info("test handler received event",
			"event_id", event.EventID(),
			"event_type", event.EventType(),
			"payload", event.Payload())
		return nil
	})

	testEvent := events.NewClaimStatusChangedEvent(eventType, eventClaimID, eventOwnerID, 0, "", time.Now().Format("2006-01"), "0.00", eventRemarks)

	lg.Info("publishing test event", "event_type", eventType, "event_id", testEvent.EventID())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// --sync surfaces the first handler error instead of only logging it
	if eventSync {
		if err := eventBus.PublishSync(ctx, testEvent); err != nil {
			lg.Error("handler failed", "error", err)
			os.Exit(1)
		}
	} else {
		if err := eventBus.Publish(ctx, testEvent); err != nil {
			lg.Error("failed to publish event", "error", err)
			return
		}
		if err := eventBus.Wait(ctx); err != nil {
			lg.Error("handlers did not finish", "error", err)
			return
		}
	}
	lg.Info("test event published successfully")
}

func init() {
	publishEventCmd.Flags().Int64Var(&eventClaimID, "claim-id", 1, "Claim id carried by the event")
	publishEventCmd.Flags().Int64Var(&eventOwnerID, "owner-id", 1, "Claim owner id carried by the event")
	publishEventCmd.Flags().StringVar(&eventRemarks, "remarks", "", "Remarks carried by the event")
	publishEventCmd.Flags().BoolVar(&eventSync, "sync", false, "Run handlers inline and fail on the first error")

	eventCmd.AddCommand(publishEventCmd)

	rootCmd.AddCommand(eventCmd)
}
