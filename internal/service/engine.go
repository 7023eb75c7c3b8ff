package service

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/estatedesk/backend/internal/notify"
)

// Engine drives the maintenance pipeline: asset schedules materialize
// into tasks, due tasks into work orders, completed work orders into
// history entries that roll the asset schedule forward.
type Engine struct {
	Store    Store
	Notifier notify.Notifier
	Logger   zerolog.Logger

	// Clock overrides time.Now in tests.
	Clock func() time.Time
}

func (e *Engine) now() time.Time {
	if e.Clock != nil {
		return e.Clock()
	}
	return time.Now().UTC()
}
