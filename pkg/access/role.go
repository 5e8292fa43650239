package access

// Role represents the grant level a user holds on a project or team.
type Role string

const (
	// RoleViewer grants read-only access.
	RoleViewer Role = "viewer"
	// RoleEditor grants content mutation on top of read access.
	RoleEditor Role = "editor"
	// RoleAdmin grants destructive and membership-changing actions.
	RoleAdmin Role = "admin"
	// RoleOwner grants full control, including membership restructuring.
	RoleOwner Role = "owner"
)

// Role privilege levels. All role comparisons in this package go through
// Level; role names are never compared directly.
const (
	LevelNone   = 0
	LevelViewer = 1
	LevelEditor = 2
	LevelAdmin  = 3
	LevelOwner  = 4
)

// Level returns the numeric privilege level of the role, strictly increasing
// with privilege. Unknown role strings map to LevelNone so that malformed
// stored data fails closed rather than panicking.
func (r Role) Level() int {
	switch r {
	case RoleViewer:
		return LevelViewer
	case RoleEditor:
		return LevelEditor
	case RoleAdmin:
		return LevelAdmin
	case RoleOwner:
		return LevelOwner
	default:
		return LevelNone
	}
}

// RoleFromLevel returns the role for a privilege level. The second return
// value is false for levels outside the closed set.
func RoleFromLevel(level int) (Role, bool) {
	switch level {
	case LevelViewer:
		return RoleViewer, true
	case LevelEditor:
		return RoleEditor, true
	case LevelAdmin:
		return RoleAdmin, true
	case LevelOwner:
		return RoleOwner, true
	default:
		return "", false
	}
}

// Valid reports whether the role is one of the closed set.
func (r Role) Valid() bool {
	return r.Level() != LevelNone
}

// AtLeast reports whether the role meets or exceeds the target role.
func (r Role) AtLeast(target Role) bool {
	return r.Level() >= target.Level()
}

// Outranks reports whether the role strictly exceeds the target role.
func (r Role) Outranks(target Role) bool {
	return r.Level() > target.Level()
}
