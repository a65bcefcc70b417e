// Package authz holds the role-based authorization policy as a pure
// decision table. It performs no I/O; resolving a caller to a role is the
// caller's job (see service.EnrollmentService).
package authz

// Role is the closed set of account roles.
type Role string

const (
	RoleAdmin   Role = "Admin"
	RoleTeacher Role = "Teacher"
	RoleStudent Role = "Student"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleTeacher, RoleStudent:
		return true
	}
	return false
}

// Action is the closed set of role-gated actions. Actions open to any
// authenticated caller (view course, enroll, list own courses) have no
// entry here; the engine only checks that the caller resolves.
type Action string

const (
	ActionCreateCourse      Action = "course:create"
	ActionEditCourse        Action = "course:edit"
	ActionDeleteCourse      Action = "course:delete"
	ActionConfirmEnrollment Action = "enrollment:confirm"
	ActionViewRoster        Action = "roster:view"
)

// IsAllowed reports whether role may perform action. Unknown roles and
// unknown actions are denied.
func IsAllowed(role Role, action Action) bool {
	switch action {
	case ActionCreateCourse, ActionEditCourse, ActionConfirmEnrollment, ActionViewRoster:
		return role == RoleAdmin || role == RoleTeacher
	case ActionDeleteCourse:
		return role == RoleAdmin
	}
	return false
}
