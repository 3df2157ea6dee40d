package gateway

import (
	"errors"
	"fmt"
)

// Kind classifies a gateway failure.
type Kind int

const (
	KindNetwork Kind = iota + 1
	KindMalformedResponse
	KindEmptyData
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindMalformedResponse:
		return "malformed response"
	case KindEmptyData:
		return "empty data"
	default:
		return "unknown"
	}
}

var (
	// ErrNetwork matches any transport failure: unreachable host, timeout, non-2xx status.
	ErrNetwork = errors.New("gateway: network error")
	// ErrMalformedResponse matches a body that is not the expected JSON shape.
	ErrMalformedResponse = errors.New("gateway: malformed response")
	// ErrEmptyData matches an empty usage list. It is informational: callers get a zero record.
	ErrEmptyData = errors.New("gateway: empty data")
)

// FetchError is the single typed error surfaced in strict mode.
type FetchError struct {
	Kind     Kind
	Endpoint string
	Err      error
}

func (e *FetchError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("gateway: %s %s", e.Endpoint, e.Kind)
	}
	return fmt.Sprintf("gateway: %s %s: %v", e.Endpoint, e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match a FetchError against the sentinel for its kind.
func (e *FetchError) Is(target error) bool {
	switch target {
	case ErrNetwork:
		return e.Kind == KindNetwork
	case ErrMalformedResponse:
		return e.Kind == KindMalformedResponse
	case ErrEmptyData:
		return e.Kind == KindEmptyData
	}
	return false
}

// KindOf returns the kind of err, or 0 when err is not a FetchError.
func KindOf(err error) Kind {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return 0
}
