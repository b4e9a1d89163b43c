// engine/broadcast/multi.go
package broadcast

import (
	"context"
	"errors"

	"github.com/foodwars/territory-engine/shared/events"
)

// Multi fans one Publish call out to several broadcasters (e.g. Redis for
// cross-instance delivery plus the local websocket hub). A failure in one
// sink does not stop delivery to the others.
type Multi struct {
	sinks []events.Broadcaster
}

// NewMulti creates a fan-out broadcaster over the given sinks.
func NewMulti(sinks ...events.Broadcaster) *Multi {
	return &Multi{sinks: sinks}
}

// Publish delivers the event to every sink and joins any errors.
func (m *Multi) Publish(ctx context.Context, channel, event string, payload interface{}) error {
	var errs []error
	for _, sink := range m.sinks {
		if err := sink.Publish(ctx, channel, event, payload); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
