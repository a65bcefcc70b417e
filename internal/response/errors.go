package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrInvalidCredentials ErrCode = "INVALID_CREDENTIALS"
	ErrTokenRequired      ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid       ErrCode = "TOKEN_INVALID"
	ErrSessionInvalidated ErrCode = "SESSION_INVALIDATED"
	ErrActorNotFound      ErrCode = "ACTOR_NOT_FOUND"

	// ─── Authorization ─────────────────────────────────────────────────
	ErrForbidden ErrCode = "FORBIDDEN"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Courses & Enrollment ──────────────────────────────────────────
	ErrCourseNotFound      ErrCode = "COURSE_NOT_FOUND"
	ErrEnrollmentFailed    ErrCode = "ENROLLMENT_FAILED"
	ErrNoPendingEnrollment ErrCode = "NO_PENDING_ENROLLMENT"
	ErrEmptyResult         ErrCode = "EMPTY_RESULT"
	ErrEmailTaken          ErrCode = "EMAIL_TAKEN"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrInvalidCredentials:
		return "Email or password is incorrect."
	case ErrTokenRequired:
		return "Authentication token is required."
	case ErrTokenInvalid:
		return "Authentication token is invalid."
	case ErrSessionInvalidated:
		return "Your session has ended. Please log in again."
	case ErrActorNotFound:
		return "User information not found."

	// ─── Authorization ─────────────────────────────────────────────────
	case ErrForbidden:
		return "You do not have permission to perform this action."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidID:
		return "Invalid ID format."
	case ErrInvalidPayload:
		return "Invalid request payload."

	// ─── Courses & Enrollment ──────────────────────────────────────────
	case ErrCourseNotFound:
		return "Course does not exist."
	case ErrEnrollmentFailed:
		return "Unable to enroll in course (course does not exist or you have already enrolled)."
	case ErrNoPendingEnrollment:
		return "No enrollment found with Pending status."
	case ErrEmptyResult:
		return "No matching records found."
	case ErrEmailTaken:
		return "An account with this email already exists."

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "Too many requests. Please try again later."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrInternal:
		return "An internal server error occurred."
	default:
		return "An unexpected error occurred."
	}
}
