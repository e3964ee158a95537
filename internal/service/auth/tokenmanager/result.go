package tokenmanager

import "time"

type Status int

const (
	StatusValid Status = iota
	StatusExpired
	StatusInvalid
)

func (s Status) String() string {
	switch s {
	case StatusValid:
		return "valid"
	case StatusExpired:
		return "expired"
	default:
		return "invalid"
	}
}

// Result of token verification.
// Payload and IssuedAt are set only when Status is StatusValid, Err otherwise
type Result struct {
	Status   Status
	Payload  Payload
	IssuedAt time.Time
	Err      error
}

func (r Result) Valid() bool { return r.Status == StatusValid }
