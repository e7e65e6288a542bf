// Package stage defines the result contract every pipeline stage returns,
// the error codes stages report, and the checkpoint decision applied between
// stages.
//
// A [Result] is immutable. Its invariants are checked when it is built:
//
//   - a successful result carries no errors;
//   - a failed result carries at least one error;
//   - confidence lies in [0, 1].
//
// Breaking an invariant is a programming error. [Must], [Success] and
// [Failure] panic on violation; [New] returns [ErrInvariant] instead.
package stage

import (
	"errors"
	"fmt"
	"maps"
	"math"
	"slices"
)

// ErrInvariant is returned by [New] when a result would break its invariants.
var ErrInvariant = errors.New("stage: result invariant violated")

// Metadata carries stage-specific details such as timings, the recognizer
// that won, or raw LLM payloads.
type Metadata map[string]any

// Result is the outcome of one stage. The zero value is not valid; build
// results with [New], [Must], [Success] or [Failure].
type Result[T any] struct {
	success    bool
	confidence float64
	data       T
	errors     []string
	metadata   Metadata
}

// New builds a result after checking its invariants.
func New[T any](success bool, confidence float64, data T, errs []string, meta Metadata) (Result[T], error) {
	if math.IsNaN(confidence) || confidence < 0 || confidence > 1 {
		return Result[T]{}, fmt.Errorf("%w: confidence %v outside [0, 1]", ErrInvariant, confidence)
	}
	if success && len(errs) > 0 {
		return Result[T]{}, fmt.Errorf("%w: successful result with errors %v", ErrInvariant, errs)
	}
	if !success && len(errs) == 0 {
		return Result[T]{}, fmt.Errorf("%w: failed result without errors", ErrInvariant)
	}
	return Result[T]{
		success:    success,
		confidence: confidence,
		data:       data,
		errors:     slices.Clone(errs),
		metadata:   maps.Clone(meta),
	}, nil
}

// Must is like [New] but panics when an invariant is broken.
func Must[T any](success bool, confidence float64, data T, errs []string, meta Metadata) Result[T] {
	r, err := New(success, confidence, data, errs, meta)
	if err != nil {
		panic(err)
	}
	return r
}

// Success builds a successful result.
func Success[T any](data T, confidence float64, meta Metadata) Result[T] {
	return Must(true, confidence, data, nil, meta)
}

// Failure builds a failed result with confidence 0.
func Failure[T any](data T, meta Metadata, errs ...string) Result[T] {
	return Must(false, 0, data, errs, meta)
}

// Success reports whether the stage succeeded.
func (r Result[T]) Success() bool { return r.success }

// Confidence returns the stage confidence in [0, 1].
func (r Result[T]) Confidence() float64 { return r.confidence }

// Data returns the stage payload.
func (r Result[T]) Data() T { return r.data }

// Errors returns a copy of the ordered error list.
func (r Result[T]) Errors() []string { return slices.Clone(r.errors) }

// Metadata returns a copy of the metadata map. It is never nil.
func (r Result[T]) Metadata() Metadata {
	if r.metadata == nil {
		return Metadata{}
	}
	return maps.Clone(r.metadata)
}

// Meta returns a single metadata value.
func (r Result[T]) Meta(key string) (any, bool) {
	v, ok := r.metadata[key]
	return v, ok
}

// WithMetadata returns a copy of r with extra merged over the existing
// metadata. r itself is unchanged.
func (r Result[T]) WithMetadata(extra Metadata) Result[T] {
	out := r
	out.errors = slices.Clone(r.errors)
	out.metadata = maps.Clone(r.metadata)
	if out.metadata == nil {
		out.metadata = make(Metadata, len(extra))
	}
	maps.Copy(out.metadata, extra)
	return out
}
