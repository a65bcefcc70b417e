package model

import "time"

// EnrollmentStatus is the state of an enrollment.
type EnrollmentStatus string

const (
	EnrollmentPending   EnrollmentStatus = "Pending"
	EnrollmentConfirmed EnrollmentStatus = "Confirmed"
)

// Enrollment ties a student to a course. Identity is the
// (course_id, user_id) pair; the database enforces at most one row per
// pair. Confirmed is terminal.
type Enrollment struct {
	CourseID    int              `json:"course_id"`
	UserID      int              `json:"user_id"`
	Status      EnrollmentStatus `json:"status"`
	EnrolledAt  time.Time        `json:"enrolled_at"`
	ConfirmedAt *time.Time       `json:"confirmed_at,omitempty"`
}

// EnrollmentRecord is a roster row: one (student, course, status) triple.
type EnrollmentRecord struct {
	StudentID    int              `json:"student_id"`
	StudentName  string           `json:"student_name"`
	StudentEmail string           `json:"student_email"`
	CourseID     int              `json:"course_id"`
	CourseName   string           `json:"course_name"`
	Status       EnrollmentStatus `json:"status"`
}

// CourseStudent is one confirmed student in a course roster.
type CourseStudent struct {
	StudentID   int       `json:"student_id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	ConfirmedAt time.Time `json:"confirmed_at"`
}
