package blocklist

import (
	"errors"
	"fmt"
)

// ErrEmptyList is returned by Parse when the body yields no domains. An empty
// upstream response is treated as suspicious so it never wipes the store.
var ErrEmptyList = errors.New("blocklist is empty")

// ErrUnsupportedScheme is returned by MultiFetcher for URLs it cannot route.
var ErrUnsupportedScheme = errors.New("unsupported blocklist url scheme")

// FetchErrorKind classifies a fetch failure.
type FetchErrorKind string

const (
	// KindNetwork covers DNS failures, refused connections, timeouts and
	// body read errors.
	KindNetwork FetchErrorKind = "network"
	// KindHTTPStatus means the source answered with a non-2xx status.
	KindHTTPStatus FetchErrorKind = "http_status"
)

// FetchError is returned by every Fetcher implementation.
type FetchError struct {
	Kind FetchErrorKind
	URL  string
	Code int // HTTP status code, set for KindHTTPStatus
	Err  error
}

func (e *FetchError) Error() string {
	if e.Kind == KindHTTPStatus {
		return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.Code)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// IsNetwork reports whether err is a transport-level FetchError.
func IsNetwork(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe) && fe.Kind == KindNetwork
}

// StatusCode returns the HTTP status carried by a KindHTTPStatus FetchError,
// or 0 when err is anything else.
func StatusCode(err error) int {
	var fe *FetchError
	if errors.As(err, &fe) && fe.Kind == KindHTTPStatus {
		return fe.Code
	}
	return 0
}
