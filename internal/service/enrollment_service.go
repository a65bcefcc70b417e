package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/coursems/coursems-backend/internal/authz"
	"github.com/coursems/coursems-backend/internal/model"
	"github.com/coursems/coursems-backend/internal/repository"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rs/zerolog"
)

// UserDirectory resolves caller identities to users. Satisfied by
// repository.UserRepository.
type UserDirectory interface {
	GetByID(ctx context.Context, id int) (*model.User, error)
}

// CoursePersistence is the durable store for courses and enrollments.
// Satisfied by repository.CourseRepository. InsertEnrollment must enforce
// uniqueness on the (course, student) pair and report conflicts as
// repository.ErrDuplicateEnrollment; ConfirmEnrollment must only
// transition rows whose current status is Pending.
type CoursePersistence interface {
	GetByID(ctx context.Context, id int) (*model.Course, error)
	Create(ctx context.Context, c *model.Course) error
	Update(ctx context.Context, c *model.Course) error
	Delete(ctx context.Context, id int) error
	ListForUser(ctx context.Context, userID int) ([]model.Course, error)
	InsertEnrollment(ctx context.Context, courseID, userID int) error
	ConfirmEnrollment(ctx context.Context, courseID, userID int) (bool, error)
	FindEnrollment(ctx context.Context, courseID, userID int) (*model.Enrollment, error)
	ListEnrollments(ctx context.Context, status model.EnrollmentStatus) ([]model.EnrollmentRecord, error)
	ListConfirmedStudents(ctx context.Context, courseID int) ([]model.CourseStudent, error)
}

// EnrollmentService owns course CRUD and the enrollment state machine.
// Every operation takes the caller's identity explicitly; role gating goes
// through authz.IsAllowed after resolving the caller in the directory.
type EnrollmentService struct {
	users   UserDirectory
	courses CoursePersistence
	log     zerolog.Logger
}

// NewEnrollmentService creates a new EnrollmentService.
func NewEnrollmentService(users UserDirectory, courses CoursePersistence, log zerolog.Logger) *EnrollmentService {
	return &EnrollmentService{
		users:   users,
		courses: courses,
		log:     log.With().Str("component", "enrollment_service").Logger(),
	}
}

// resolveCaller looks the caller up in the directory. A missing identity is
// ErrActorNotFound; anything else is a collaborator failure.
func (s *EnrollmentService) resolveCaller(ctx context.Context, callerID int) (*model.User, error) {
	caller, err := s.users.GetByID(ctx, callerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrActorNotFound
		}
		return nil, fmt.Errorf("resolve caller %d: %w", callerID, err)
	}
	return caller, nil
}

// authorize resolves the caller and checks the action against the policy.
func (s *EnrollmentService) authorize(ctx context.Context, callerID int, action authz.Action) (*model.User, error) {
	caller, err := s.resolveCaller(ctx, callerID)
	if err != nil {
		return nil, err
	}
	if !authz.IsAllowed(caller.Role, action) {
		return nil, ErrForbidden
	}
	return caller, nil
}

// CreateCourse persists a new course created by the caller. Admin or
// Teacher only. Dates are stored as given; start > end is not rejected.
func (s *EnrollmentService) CreateCourse(ctx context.Context, name, description string, startDate, endDate pgtype.Date, callerID int) (*model.Course, error) {
	caller, err := s.authorize(ctx, callerID, authz.ActionCreateCourse)
	if err != nil {
		return nil, err
	}

	course := &model.Course{
		Name:        name,
		Description: description,
		StartDate:   startDate,
		EndDate:     endDate,
		CreatedBy:   caller.ID,
	}
	if err := s.courses.Create(ctx, course); err != nil {
		return nil, fmt.Errorf("insert course: %w", err)
	}

	s.log.Info().Int("course_id", course.ID).Int("created_by", caller.ID).Msg("Course created")
	return course, nil
}

// EditCourse overwrites name, description and dates of an existing course.
// Admin or Teacher only. created_by never changes.
func (s *EnrollmentService) EditCourse(ctx context.Context, courseID int, name, description string, startDate, endDate pgtype.Date, callerID int) (*model.Course, error) {
	if _, err := s.authorize(ctx, callerID, authz.ActionEditCourse); err != nil {
		return nil, err
	}

	course, err := s.courses.GetByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCourseNotFound
		}
		return nil, fmt.Errorf("load course %d: %w", courseID, err)
	}

	course.Name = name
	course.Description = description
	course.StartDate = startDate
	course.EndDate = endDate

	if err := s.courses.Update(ctx, course); err != nil {
		return nil, fmt.Errorf("update course %d: %w", courseID, err)
	}
	return course, nil
}

// GetCourse returns a course by ID. No authorization check.
func (s *EnrollmentService) GetCourse(ctx context.Context, courseID int) (*model.Course, error) {
	course, err := s.courses.GetByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCourseNotFound
		}
		return nil, fmt.Errorf("load course %d: %w", courseID, err)
	}
	return course, nil
}

// DeleteCourse removes a course. Admin only. Enrollment rows are handled by
// the persistence layer's cascade; the engine does not touch them.
func (s *EnrollmentService) DeleteCourse(ctx context.Context, courseID, callerID int) error {
	if _, err := s.authorize(ctx, callerID, authz.ActionDeleteCourse); err != nil {
		return err
	}

	if _, err := s.courses.GetByID(ctx, courseID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrCourseNotFound
		}
		return fmt.Errorf("load course %d: %w", courseID, err)
	}

	if err := s.courses.Delete(ctx, courseID); err != nil {
		return fmt.Errorf("delete course %d: %w", courseID, err)
	}

	s.log.Info().Int("course_id", courseID).Int("deleted_by", callerID).Msg("Course deleted")
	return nil
}

// ListUserCourses returns every course the caller has an enrollment in,
// any status. Zero matches is ErrEmptyResult, not a failure.
func (s *EnrollmentService) ListUserCourses(ctx context.Context, callerID int) ([]model.Course, error) {
	if _, err := s.resolveCaller(ctx, callerID); err != nil {
		return nil, err
	}

	courses, err := s.courses.ListForUser(ctx, callerID)
	if err != nil {
		return nil, fmt.Errorf("list courses for user %d: %w", callerID, err)
	}
	if len(courses) == 0 {
		return nil, ErrEmptyResult
	}
	return courses, nil
}

// EnrollInCourse creates a Pending enrollment of the caller into the
// course. A missing course and an already existing enrollment both come
// back as ErrEnrollmentFailed; the duplicate case is decided by the
// store's uniqueness constraint, not by a check-then-insert here.
func (s *EnrollmentService) EnrollInCourse(ctx context.Context, courseID, callerID int) error {
	if _, err := s.resolveCaller(ctx, callerID); err != nil {
		return err
	}

	if _, err := s.courses.GetByID(ctx, courseID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrEnrollmentFailed
		}
		return fmt.Errorf("load course %d: %w", courseID, err)
	}

	if err := s.courses.InsertEnrollment(ctx, courseID, callerID); err != nil {
		if errors.Is(err, repository.ErrDuplicateEnrollment) {
			return ErrEnrollmentFailed
		}
		return fmt.Errorf("insert enrollment (%d,%d): %w", courseID, callerID, err)
	}

	s.log.Info().Int("course_id", courseID).Int("user_id", callerID).Msg("Enrollment created")
	return nil
}

// ConfirmEnrollment transitions the student's enrollment in the course
// from Pending to Confirmed. Admin or Teacher only. Confirmed is terminal:
// a repeat confirm fails with ErrNoPendingEnrollment.
func (s *EnrollmentService) ConfirmEnrollment(ctx context.Context, courseID, studentID, callerID int) error {
	if _, err := s.authorize(ctx, callerID, authz.ActionConfirmEnrollment); err != nil {
		return err
	}

	confirmed, err := s.courses.ConfirmEnrollment(ctx, courseID, studentID)
	if err != nil {
		return fmt.Errorf("confirm enrollment (%d,%d): %w", courseID, studentID, err)
	}
	if !confirmed {
		return ErrNoPendingEnrollment
	}

	s.log.Info().
		Int("course_id", courseID).
		Int("student_id", studentID).
		Int("confirmed_by", callerID).
		Msg("Enrollment confirmed")
	return nil
}

// ListStudentsAndCourses returns all (student, course, status) triples with
// the given status. Admin or Teacher only. An empty filter defaults to
// Confirmed; an unknown status matches nothing and yields ErrEmptyResult.
func (s *EnrollmentService) ListStudentsAndCourses(ctx context.Context, status string, callerID int) ([]model.EnrollmentRecord, error) {
	if _, err := s.authorize(ctx, callerID, authz.ActionViewRoster); err != nil {
		return nil, err
	}

	if status == "" {
		status = string(model.EnrollmentConfirmed)
	}

	records, err := s.courses.ListEnrollments(ctx, model.EnrollmentStatus(status))
	if err != nil {
		return nil, fmt.Errorf("list enrollments with status %q: %w", status, err)
	}
	if len(records) == 0 {
		return nil, ErrEmptyResult
	}
	return records, nil
}

// ListConfirmedStudentsInCourse returns the confirmed roster of a course.
// Admin or Teacher only.
func (s *EnrollmentService) ListConfirmedStudentsInCourse(ctx context.Context, courseID, callerID int) ([]model.CourseStudent, error) {
	if _, err := s.authorize(ctx, callerID, authz.ActionViewRoster); err != nil {
		return nil, err
	}

	students, err := s.courses.ListConfirmedStudents(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("list confirmed students for course %d: %w", courseID, err)
	}
	if len(students) == 0 {
		return nil, ErrEmptyResult
	}
	return students, nil
}
