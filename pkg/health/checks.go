package health

import (
	"context"
	"fmt"
)

// Pinger is satisfied by the redis and postgres clients.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingCheck reports down when p.Ping fails.
func PingCheck(p Pinger) Check {
	return func(ctx context.Context) ComponentHealth {
		if err := p.Ping(ctx); err != nil {
			return ComponentHealth{Status: StatusDown, Message: err.Error()}
		}
		return ComponentHealth{Status: StatusUp}
	}
}

// IndexCounter reports the size of the in-memory index.
type IndexCounter interface {
	Len() int
	Generation() uint64
}

// IndexCheck is always up; it reports how many documents are indexed and
// the current index generation.
func IndexCheck(s IndexCounter) Check {
	return func(ctx context.Context) ComponentHealth {
		return ComponentHealth{
			Status:  StatusUp,
			Message: fmt.Sprintf("%d documents, generation %d", s.Len(), s.Generation()),
		}
	}
}
