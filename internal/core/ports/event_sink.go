package ports

import (
	"context"

	"github.com/arkade-os/kittyd/internal/core/domain"
)

// EventSink receives the events of committed operations. Failures are
// reported to the caller for logging only, the ledger state is already final.
type EventSink interface {
	Publish(ctx context.Context, events ...domain.Event) error
	Close()
}
