package probe

import (
	"fmt"
	"time"
)

// TopicStatus carries Result values for every status change of the probe.
const TopicStatus = "probe.status"

const (
	statusSuccessPrefix = "Connection successful"
	statusFailurePrefix = "Connection failed"
)

// State is the lifecycle position of the newest probe.
type State string

const (
	StateIdle      State = "idle"
	StateProbing   State = "probing"
	StateSucceeded State = "succeeded"
	StateFailed    State = "failed"
)

// Result is one status change of the connectivity check. A Pending result
// has an empty Status and means the previous status was cleared.
type Result struct {
	Token      uint64
	ID         string
	Pending    bool
	OK         bool
	Version    string
	Status     string
	Err        error
	Endpoint   string
	StartedAt  time.Time
	FinishedAt time.Time
	// Superseded is set on results returned by Test after a newer Test started.
	// Such results are never published.
	Superseded bool
}

func (r Result) State() State {
	switch {
	case r.Token == 0:
		return StateIdle
	case r.Pending:
		return StateProbing
	case r.OK:
		return StateSucceeded
	default:
		return StateFailed
	}
}

func (r Result) Duration() time.Duration {
	if r.StartedAt.IsZero() || r.FinishedAt.IsZero() {
		return 0
	}

	return r.FinishedAt.Sub(r.StartedAt)
}

// StatusError reports a non-2xx response.
type StatusError struct {
	Code int
	Text string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%d - %s", e.Code, e.Text)
}

func successStatus(version string) string {
	return fmt.Sprintf("%s: Version %s", statusSuccessPrefix, version)
}

func failureStatus(err error) string {
	return fmt.Sprintf("%s: %s", statusFailurePrefix, err.Error())
}
