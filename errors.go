// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package foodclassifier

import (
	"os"

	"github.com/pkg/errors"
)

// Error kinds returned by the pipeline. Callers test for them with errors.Is, since
// they are always wrapped with the path or the shape that caused them.
var (
	// ErrNotFound is returned when a dataset directory, an image or a model directory doesn't exist.
	ErrNotFound = errors.New("not found")

	// ErrIO is returned for any other filesystem failure.
	ErrIO = errors.New("i/o error")

	// ErrDecode is returned when a file exists but can't be decoded as an image.
	ErrDecode = errors.New("image decode error")

	// ErrShapeMismatch is returned when the class list of the data and the model don't agree,
	// or the model output width is not the number of classes.
	ErrShapeMismatch = errors.New("shape mismatch")

	// ErrModelLoad is returned when a persisted model can't be loaded.
	ErrModelLoad = errors.New("model load error")

	// ErrClassIndex is returned when a predicted index has no entry in the class list.
	ErrClassIndex = errors.New("class index out of range")
)

// fsError converts an error from the os package to one of our error kinds, wrapped with the given message.
func fsError(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	kind := ErrIO
	if os.IsNotExist(err) {
		kind = ErrNotFound
	}
	return errors.Wrapf(kindError{kind: kind, cause: err}, format, args...)
}

// kindError attaches an error kind to an underlying cause, so both can be matched with errors.Is.
type kindError struct {
	kind, cause error
}

func (e kindError) Error() string { return e.kind.Error() + ": " + e.cause.Error() }

func (e kindError) Unwrap() []error { return []error{e.kind, e.cause} }

// withKind returns err tagged with kind, preserving err in the chain.
func withKind(kind, err error) error {
	return kindError{kind: kind, cause: err}
}

// errorKinds in matching order: ErrModelLoad wraps the filesystem kinds, so it goes first.
var errorKinds = []error{ErrModelLoad, ErrClassIndex, ErrShapeMismatch, ErrDecode, ErrNotFound, ErrIO}

// Kind returns the error kind matched by err, or nil if it matches none.
func Kind(err error) error {
	if err == nil {
		return nil
	}
	for _, kind := range errorKinds {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}
