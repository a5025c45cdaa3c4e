// Package errors names failure classes for metric tags.
package errors

import (
	"context"
	goerrors "errors"
	"net"
	"reflect"
	"strings"
)

// Error classes returned by Classify.
const (
	ClassCanceled = "canceled"
	ClassTimeout  = "timeout"
	ClassDNS      = "dns"
	ClassNetwork  = "network"
	ClassUnknown  = "unknown"
)

// Classify returns a short error class suitable for tagging. Context and network
// failures get fixed names; anything else is named after its innermost concrete type.
func Classify(err error) string {
	if err == nil {
		return ""
	}

	var (
		dnsErr *net.DNSError
		netErr net.Error
		opErr  *net.OpError
	)
	switch {
	case goerrors.Is(err, context.Canceled):
		return ClassCanceled
	case goerrors.Is(err, context.DeadlineExceeded):
		return ClassTimeout
	case goerrors.As(err, &dnsErr):
		return ClassDNS
	case goerrors.As(err, &netErr) && netErr.Timeout():
		return ClassTimeout
	case goerrors.As(err, &opErr):
		return ClassNetwork
	}
	return typeName(innermost(err))
}

func innermost(err error) error {
	for {
		next := goerrors.Unwrap(err)
		if next == nil {
			return err
		}
		err = next
	}
}

func typeName(err error) string {
	t := reflect.TypeOf(err)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.String() == "" {
		return ClassUnknown
	}
	return strings.ReplaceAll(strings.ToLower(t.String()), ".", "_")
}
