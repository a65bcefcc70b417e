package repository

import (
	"context"
	"errors"

	"github.com/coursems/coursems-backend/internal/model"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrDuplicateEnrollment is returned by InsertEnrollment when a row for the
// (course, student) pair already exists. The enrollments primary key is the
// pair itself, so the database is the arbiter under concurrent enrolls.
var ErrDuplicateEnrollment = errors.New("enrollment already exists for this course and student")

// CourseRepository handles course and enrollment data access.
type CourseRepository struct {
	pool *pgxpool.Pool
}

// NewCourseRepository creates a new CourseRepository.
func NewCourseRepository(pool *pgxpool.Pool) *CourseRepository {
	return &CourseRepository{pool: pool}
}

// GetByID retrieves a course by its ID. Returns pgx.ErrNoRows if absent.
func (r *CourseRepository) GetByID(ctx context.Context, id int) (*model.Course, error) {
	c := &model.Course{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, description, start_date, end_date, created_by, created_at, updated_at
		 FROM courses WHERE id = $1`, id,
	).Scan(&c.ID, &c.Name, &c.Description, &c.StartDate, &c.EndDate, &c.CreatedBy, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Create inserts a new course.
func (r *CourseRepository) Create(ctx context.Context, c *model.Course) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO courses (name, description, start_date, end_date, created_by)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at, updated_at`,
		c.Name, c.Description, c.StartDate, c.EndDate, c.CreatedBy,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
}

// Update overwrites a course's name, description and dates. created_by is
// never touched.
func (r *CourseRepository) Update(ctx context.Context, c *model.Course) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE courses
		 SET name = $1, description = $2, start_date = $3, end_date = $4, updated_at = CURRENT_TIMESTAMP
		 WHERE id = $5`,
		c.Name, c.Description, c.StartDate, c.EndDate, c.ID,
	)
	return err
}

// Delete removes a course by its ID. Enrollment rows go with it via the
// ON DELETE CASCADE on enrollments.course_id.
func (r *CourseRepository) Delete(ctx context.Context, id int) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM courses WHERE id = $1`, id)
	return err
}

// ListForUser retrieves all courses the user has an enrollment in,
// regardless of status.
func (r *CourseRepository) ListForUser(ctx context.Context, userID int) ([]model.Course, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT c.id, c.name, c.description, c.start_date, c.end_date, c.created_by, c.created_at, c.updated_at
		 FROM courses c
		 JOIN enrollments e ON e.course_id = c.id
		 WHERE e.user_id = $1
		 ORDER BY c.start_date, c.id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var courses []model.Course
	for rows.Next() {
		var c model.Course
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.StartDate, &c.EndDate, &c.CreatedBy, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		courses = append(courses, c)
	}
	return courses, rows.Err()
}

// InsertEnrollment creates a Pending enrollment for the pair. A unique
// violation on the (course_id, user_id) primary key is reported as
// ErrDuplicateEnrollment.
func (r *CourseRepository) InsertEnrollment(ctx context.Context, courseID, userID int) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO enrollments (course_id, user_id, status)
		 VALUES ($1, $2, $3)`,
		courseID, userID, model.EnrollmentPending,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateEnrollment
		}
		return err
	}
	return nil
}

// ConfirmEnrollment transitions the pair's enrollment from Pending to
// Confirmed. Returns false when no Pending row exists (missing or already
// Confirmed) — the conditional WHERE keeps the transition race-free.
func (r *CourseRepository) ConfirmEnrollment(ctx context.Context, courseID, userID int) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE enrollments
		 SET status = $1, confirmed_at = CURRENT_TIMESTAMP
		 WHERE course_id = $2 AND user_id = $3 AND status = $4`,
		model.EnrollmentConfirmed, courseID, userID, model.EnrollmentPending,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// FindEnrollment retrieves the enrollment for the pair, if any.
// Returns pgx.ErrNoRows if absent.
func (r *CourseRepository) FindEnrollment(ctx context.Context, courseID, userID int) (*model.Enrollment, error) {
	e := &model.Enrollment{}
	err := r.pool.QueryRow(ctx,
		`SELECT course_id, user_id, status, enrolled_at, confirmed_at
		 FROM enrollments WHERE course_id = $1 AND user_id = $2`,
		courseID, userID,
	).Scan(&e.CourseID, &e.UserID, &e.Status, &e.EnrolledAt, &e.ConfirmedAt)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// ListEnrollments retrieves all (student, course, status) triples with the
// given status. An unknown status simply matches no rows.
func (r *CourseRepository) ListEnrollments(ctx context.Context, status model.EnrollmentStatus) ([]model.EnrollmentRecord, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT u.id, u.name, u.email, c.id, c.name, e.status
		 FROM enrollments e
		 JOIN users u ON u.id = e.user_id
		 JOIN courses c ON c.id = e.course_id
		 WHERE e.status = $1
		 ORDER BY c.id, u.name`, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []model.EnrollmentRecord
	for rows.Next() {
		var rec model.EnrollmentRecord
		if err := rows.Scan(&rec.StudentID, &rec.StudentName, &rec.StudentEmail, &rec.CourseID, &rec.CourseName, &rec.Status); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// ListConfirmedStudents retrieves the confirmed roster of a course.
func (r *CourseRepository) ListConfirmedStudents(ctx context.Context, courseID int) ([]model.CourseStudent, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT u.id, u.name, u.email, e.confirmed_at
		 FROM enrollments e
		 JOIN users u ON u.id = e.user_id
		 WHERE e.course_id = $1 AND e.status = $2
		 ORDER BY u.name`, courseID, model.EnrollmentConfirmed)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var students []model.CourseStudent
	for rows.Next() {
		var s model.CourseStudent
		if err := rows.Scan(&s.StudentID, &s.Name, &s.Email, &s.ConfirmedAt); err != nil {
			return nil, err
		}
		students = append(students, s)
	}
	return students, rows.Err()
}
