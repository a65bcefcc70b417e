package service

import "errors"

// Error taxonomy for enrollment engine operations. Handlers map these to
// stable response codes with errors.Is; none of them is fatal.
var (
	// ErrActorNotFound means the caller identity does not resolve to a user.
	ErrActorNotFound = errors.New("caller identity not found")

	// ErrForbidden means the caller's role lacks permission for the action.
	ErrForbidden = errors.New("role not permitted for this action")

	// ErrCourseNotFound means the referenced course does not exist.
	ErrCourseNotFound = errors.New("course does not exist")

	// ErrEnrollmentFailed covers both a missing course and an already
	// existing enrollment; the cause is deliberately not distinguished.
	ErrEnrollmentFailed = errors.New("unable to enroll in course")

	// ErrNoPendingEnrollment means confirm found no Pending row for the
	// pair (missing, or already Confirmed).
	ErrNoPendingEnrollment = errors.New("no enrollment with Pending status")

	// ErrEmptyResult marks a listing that legitimately matched zero rows,
	// so callers can render "no data" rather than a failure.
	ErrEmptyResult = errors.New("no matching rows")
)
