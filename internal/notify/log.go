package notify

import (
	"context"

	"github.com/rs/zerolog"
)

// LogNotifier records events in the service log. Used when no webhook is
// configured and as the stand-in during tests.
type LogNotifier struct {
	Logger zerolog.Logger
}

func (l LogNotifier) Notify(ctx context.Context, event Event) error {
	l.Logger.Info().
		Str("org_id", event.OrganizationID).
		Str("work_order_id", event.WorkOrderID).
		Str("task_id", event.TaskID).
		Str("priority", event.Priority).
		Msg(event.Message)
	return nil
}
