package access

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthenticated means no valid caller identity was presented.
	ErrUnauthenticated = errors.New("authentication required")

	// ErrNotFound covers both "resource does not exist" and "resource exists
	// but the caller has no grant". The two are deliberately indistinguishable
	// so that unauthorized callers cannot probe for resource existence.
	ErrNotFound = errors.New("not found")

	// ErrOwnerRoleImmutable is returned when a gate check attempts to reassign
	// or remove a team's owner role. No privilege level permits this; ownership
	// changes only through the dedicated transfer flow.
	ErrOwnerRoleImmutable = errors.New("owner role cannot be changed or removed")
)

// InsufficientRoleError means the caller holds a grant, but below the
// capability's threshold. The message names the operation, not the required
// level, so internal thresholds are not leaked to clients.
type InsufficientRoleError struct {
	Capability Capability
}

func (e *InsufficientRoleError) Error() string {
	return fmt.Sprintf("insufficient role for %s", e.Capability)
}

// IsDenial reports whether err is an authorization denial, as opposed to a
// data-source failure. Source failures must surface as retryable server
// errors and must never be converted into a denial or an allow.
func IsDenial(err error) bool {
	var insufficient *InsufficientRoleError
	return errors.Is(err, ErrUnauthenticated) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrOwnerRoleImmutable) ||
		errors.As(err, &insufficient)
}
