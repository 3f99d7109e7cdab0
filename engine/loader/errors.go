package loader

import (
	"errors"
	"fmt"
)

// Errors returned by the import pipeline. Every failure returned from Loader.Import wraps one of these.
var (
	ErrMalformedContainer        = errors.New("malformed container")
	ErrMissingAttribute          = errors.New("missing attribute")
	ErrAttributeLengthMismatch   = errors.New("attribute length mismatch")
	ErrUnsupportedPrimitiveMode  = errors.New("unsupported primitive mode")
	ErrUnsupportedTextureFormat  = errors.New("unsupported texture format")
	ErrGpuResourceCreationFailed = errors.New("gpu resource creation failed")
	ErrUnknownAsset              = errors.New("unknown asset")
)

// MissingAttributeError reports a required vertex attribute that a primitive does not provide.
type MissingAttributeError struct {
	Mesh      string
	Attribute string
}

func (e *MissingAttributeError) Error() string {
	return fmt.Sprintf("mesh %q: %s %s", e.Mesh, ErrMissingAttribute, e.Attribute)
}

func (e *MissingAttributeError) Unwrap() error {
	return ErrMissingAttribute
}

// AttributeLengthMismatchError reports a vertex attribute whose element count differs from the position count.
type AttributeLengthMismatchError struct {
	Mesh     string
	Label    string
	Expected int
	Actual   int
}

func (e *AttributeLengthMismatchError) Error() string {
	return fmt.Sprintf("mesh %q: %s: %s expected %d, got %d", e.Mesh, ErrAttributeLengthMismatch, e.Label, e.Expected, e.Actual)
}

func (e *AttributeLengthMismatchError) Unwrap() error {
	return ErrAttributeLengthMismatch
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformedContainer, fmt.Sprintf(format, args...))
}
