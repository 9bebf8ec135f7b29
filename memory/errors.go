package memory

import (
	"errors"
	"fmt"
)

// ErrDimensionMismatch reports that the configured embedding model produces
// vectors of a different size than the ones already stored in a namespace.
var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

// RemediationHint is surfaced to operators alongside ErrDimensionMismatch.
const RemediationHint = "If you changed your embedding model, you will need to remove contents of the memory directory."

// DimensionMismatchError carries the details of an ErrDimensionMismatch.
type DimensionMismatchError struct {
	Namespace string
	Stored    int
	Current   int
}

func (e *DimensionMismatchError) Error() string {
	if e.Stored == 0 && e.Current == 0 {
		return fmt.Sprintf("%s in namespace %q", ErrDimensionMismatch, e.Namespace)
	}
	return fmt.Sprintf("%s in namespace %q: stored %d, configured %d", ErrDimensionMismatch, e.Namespace, e.Stored, e.Current)
}

// Unwrap lets errors.Is match ErrDimensionMismatch.
func (e *DimensionMismatchError) Unwrap() error { return ErrDimensionMismatch }
