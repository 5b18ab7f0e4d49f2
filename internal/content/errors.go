package content

import (
	"fmt"

	"github.com/yangjihun/FM-COMMIT/internal/apperr"
)

var (
	ErrNotFound        = apperr.New(apperr.NotFound, "item not found")
	ErrDuplicateID     = apperr.New(apperr.Conflict, "an item with this id already exists")
	ErrTitleRequired   = apperr.New(apperr.Validation, "title is required")
	ErrInvalidProgress = apperr.New(apperr.Validation, "progress must be between 0 and 100")
	ErrInvalidTeamSize = apperr.New(apperr.Validation, "team must not be negative")
)

// InvalidPatch reports a patch body that names unknown fields or carries
// values of the wrong type.
func InvalidPatch(cause error) error {
	return apperr.New(apperr.Validation, fmt.Sprintf("invalid patch: %v", cause))
}
