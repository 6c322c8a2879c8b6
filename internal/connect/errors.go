package connect

import (
	"fmt"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/ameshkov/goconnect/internal/proto"
)

// ErrHostNotFound is returned when there are no candidate endpoints to try.
const ErrHostNotFound errors.Error = "host not found"

// ConstructionError is returned when a socket for a candidate cannot be
// created.  It aborts the whole establishment.
type ConstructionError struct {
	Err      error
	Protocol proto.Descriptor
}

// type check
var _ errors.Wrapper = (*ConstructionError)(nil)

// Error implements the error interface for *ConstructionError.
func (e *ConstructionError) Error() (msg string) {
	return fmt.Sprintf("creating %s socket: %s", e.Protocol, e.Err)
}

// Unwrap implements the errors.Wrapper interface for *ConstructionError.
func (e *ConstructionError) Unwrap() (unwrapped error) { return e.Err }
