package cache

// Status tells a caller what a cache read found.
type Status int

const (
	// Miss means the key was absent.
	Miss Status = iota
	// Hit means Value holds the decoded entry.
	Hit
	// Degraded means the backend or the codec failed. Callers treat it as
	// a miss; Err carries the cause.
	Degraded
)

func (s Status) String() string {
	switch s {
	case Hit:
		return "hit"
	case Degraded:
		return "degraded"
	default:
		return "miss"
	}
}

// Result is the outcome of a typed cache read.
type Result[T any] struct {
	Value  T
	Status Status
	Err    error
}

// Ok reports whether Value is usable.
func (r Result[T]) Ok() bool {
	return r.Status == Hit
}
