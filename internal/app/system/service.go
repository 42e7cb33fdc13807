package system

import "context"

// Service is a background component started after the HTTP listener is
// bound and stopped once the server has drained. The runtime registers the
// housekeeping scheduler here; Start must return once the component is
// running; Stop waits for in-flight work until ctx expires.
type Service interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}
