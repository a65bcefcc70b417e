package model

import (
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

// Course represents a course offering. Dates are calendar dates without a
// time component; start/end ordering is not validated (callers may submit
// start > end and it is stored as given).
type Course struct {
	ID          int         `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	StartDate   pgtype.Date `json:"start_date"`
	EndDate     pgtype.Date `json:"end_date"`
	CreatedBy   int         `json:"created_by"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// CourseRequest is the payload for creating or editing a course.
// Dates use the 2006-01-02 layout.
type CourseRequest struct {
	Name        string `json:"name" binding:"required,min=2,max=200"`
	Description string `json:"description" binding:"max=2000"`
	StartDate   string `json:"start_date" binding:"required,datetime=2006-01-02"`
	EndDate     string `json:"end_date" binding:"required,datetime=2006-01-02"`
}
