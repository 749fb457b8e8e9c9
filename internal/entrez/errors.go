// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package entrez

import (
	"errors"
	"fmt"
)

// Kind classifies a failed E-utilities call.
type Kind int

const (
	// KindOther covers failures that fit no other class.
	KindOther Kind = iota
	// KindNetwork is a transport failure: DNS, connect, reset, timeout.
	KindNetwork
	// KindHTTP is a response with a non-200 status.
	KindHTTP
	// KindTruncated is a response body that ended before its declared length.
	KindTruncated
	// KindService is an error payload returned by the service itself.
	KindService
	// KindDecode is a reply that could not be parsed.
	KindDecode
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindHTTP:
		return "http"
	case KindTruncated:
		return "truncated"
	case KindService:
		return "service"
	case KindDecode:
		return "decode"
	default:
		return "other"
	}
}

// Transient reports whether k belongs to the network class of failures
// (transport, HTTP status, truncated read).
func (k Kind) Transient() bool {
	return k == KindNetwork || k == KindHTTP || k == KindTruncated
}

// Error is returned by Client operations.
type Error struct {
	Op         string // "epost" or "efetch"
	Kind       Kind
	StatusCode int
	Message    string
	Err        error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s %s error", e.Op, e.Kind)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (HTTP %d)", e.StatusCode)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the Kind of the first *Error in err's chain, or KindOther.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindOther
}
