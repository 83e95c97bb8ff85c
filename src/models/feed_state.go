package models

import "fmt"

// FeedState is the connection state of the price feed as a whole.
type FeedState int

const (
	FeedConnecting FeedState = iota
	FeedLive
	FeedDisconnected
	FeedSimulated
)

func (s FeedState) String() string {
	switch s {
	case FeedConnecting:
		return "connecting"
	case FeedLive:
		return "live"
	case FeedDisconnected:
		return "disconnected"
	case FeedSimulated:
		return "simulated"
	default:
		return "unknown"
	}
}

// MarshalText lets the state render as its name in JSON payloads.
func (s FeedState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a state name.
func (s *FeedState) UnmarshalText(text []byte) error {
	for _, candidate := range []FeedState{FeedConnecting, FeedLive, FeedDisconnected, FeedSimulated} {
		if candidate.String() == string(text) {
			*s = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown feed state '%s'", text)
}
