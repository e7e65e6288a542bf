// Package asset checks that the wells named in a command exist in the field
// model, and suggests close names when they do not.
//
// Asset names are case-insensitive; every source stores and compares them
// upper-cased.
package asset

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrUnavailable is wrapped by sources that cannot answer (network failure,
// timeout, open circuit breaker).
var ErrUnavailable = errors.New("asset: source unavailable")

// ErrNotFound is returned by [MemStore.Get] for unknown names.
var ErrNotFound = errors.New("asset: not found")

// Kind classifies a well.
type Kind string

const (
	KindProducer Kind = "producer"
	KindInjector Kind = "injector"
)

// IsValid reports whether k is a known kind. The empty kind is allowed.
func (k Kind) IsValid() bool {
	switch k {
	case "", KindProducer, KindInjector:
		return true
	}
	return false
}

// Asset is one well of the field model.
type Asset struct {
	Name  string `yaml:"name"`
	Kind  Kind   `yaml:"kind"`
	Group string `yaml:"group"`
}

// Validate checks the asset fields.
func (a Asset) Validate() error {
	var errs []error
	if strings.TrimSpace(a.Name) == "" {
		errs = append(errs, errors.New("asset: name is required"))
	}
	if !a.Kind.IsValid() {
		errs = append(errs, fmt.Errorf("asset: kind %q is invalid; valid values: producer, injector", a.Kind))
	}
	return errors.Join(errs...)
}

// Source answers whether an asset exists. Implementations must be safe for
// concurrent use and wrap transport failures with [ErrUnavailable]. They
// should return once ctx is done; the [Validator] stops waiting at its lookup
// timeout either way and leaves a call that ignores ctx running in the
// background.
type Source interface {
	Exists(ctx context.Context, name string) (bool, error)
}

// Lister is implemented by sources that can enumerate their names. The
// validator uses it for suggestions.
type Lister interface {
	Names(ctx context.Context) ([]string, error)
}

// Pinger is implemented by sources that can report their health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Normalize returns the canonical form of an asset name.
func Normalize(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}
