package metadata

import (
	"errors"
	"net/http"

	lhttp "github.infra.cloudera.com/CAI/AmpExperimentTracking/pkg/http"
	pkgerrors "github.com/pkg/errors"
)

// Error kinds surfaced by the metadata layer. Callers match them with
// errors.Is; the transport details stay attached via the wrap chain.
var (
	ErrNotFound              = errors.New("resource not found")
	ErrAlreadyExists         = errors.New("resource already exists")
	ErrConflict              = errors.New("resource version conflict")
	ErrWrongSchema           = errors.New("resource exists under a different schema title")
	ErrMalformedName         = errors.New("malformed resource name")
	ErrMalformedResourceName = errors.New("malformed source resource name")
	ErrIllegalTransition     = errors.New("illegal execution state transition")
	ErrConflictExceeded      = errors.New("conflict retry budget exhausted")
)

// FromTransport projects a transport failure onto the error taxonomy. The
// same 409 answer means AlreadyExists on a create and Conflict on an update,
// so the operation decides the mapping.
func FromTransport(herr *lhttp.HttpError, onConflict error) error {
	if herr == nil {
		return nil
	}
	switch herr.Code {
	case http.StatusNotFound:
		return pkgerrors.Wrap(ErrNotFound, herr.Message)
	case http.StatusConflict:
		return pkgerrors.Wrap(onConflict, herr.Message)
	}
	return pkgerrors.WithStack(herr)
}

// IsNotFound reports whether err denotes an absent resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}
