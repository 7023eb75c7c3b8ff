package notify

import "context"

// Event describes a maintenance occurrence worth alerting on. Delivery
// channels (email, SMS, push) live behind this interface and are not
// part of this service.
type Event struct {
	OrganizationID string `json:"organization_id"`
	WorkOrderID    string `json:"work_order_id"`
	TaskID         string `json:"task_id,omitempty"`
	Priority       string `json:"priority"`
	Message        string `json:"message"`
}

type Notifier interface {
	Notify(ctx context.Context, event Event) error
}
