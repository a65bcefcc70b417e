package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/coursems/coursems-backend/internal/authz"
	"github.com/coursems/coursems-backend/internal/model"
	"github.com/coursems/coursems-backend/internal/repository"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rs/zerolog"
)

type fakeDirectory struct {
	users map[int]*model.User
}

func (f *fakeDirectory) GetByID(ctx context.Context, id int) (*model.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return u, nil
}

type pairKey struct {
	courseID int
	userID   int
}

// fakeStore is an in-memory CoursePersistence. The mutex plays the role of
// the database's uniqueness guarantee: InsertEnrollment is atomic, so
// concurrent duplicate enrolls lose the race the same way they would on
// the composite primary key.
type fakeStore struct {
	mu          sync.Mutex
	nextID      int
	courses     map[int]model.Course
	enrollments map[pairKey]*model.Enrollment
	writes      int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		nextID:      1,
		courses:     make(map[int]model.Course),
		enrollments: make(map[pairKey]*model.Enrollment),
	}
}

func (f *fakeStore) GetByID(ctx context.Context, id int) (*model.Course, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.courses[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &c, nil
}

func (f *fakeStore) Create(ctx context.Context, c *model.Course) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c.ID = f.nextID
	f.nextID++
	c.CreatedAt = time.Now()
	c.UpdatedAt = c.CreatedAt
	f.courses[c.ID] = *c
	f.writes++
	return nil
}

func (f *fakeStore) Update(ctx context.Context, c *model.Course) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.courses[c.ID] = *c
	f.writes++
	return nil
}

func (f *fakeStore) Delete(ctx context.Context, id int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.courses, id)
	for k := range f.enrollments {
		if k.courseID == id {
			delete(f.enrollments, k)
		}
	}
	f.writes++
	return nil
}

func (f *fakeStore) ListForUser(ctx context.Context, userID int) ([]model.Course, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Course
	for k := range f.enrollments {
		if k.userID == userID {
			if c, ok := f.courses[k.courseID]; ok {
				out = append(out, c)
			}
		}
	}
	return out, nil
}

func (f *fakeStore) InsertEnrollment(ctx context.Context, courseID, userID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := pairKey{courseID, userID}
	if _, exists := f.enrollments[key]; exists {
		return repository.ErrDuplicateEnrollment
	}
	f.enrollments[key] = &model.Enrollment{
		CourseID:   courseID,
		UserID:     userID,
		Status:     model.EnrollmentPending,
		EnrolledAt: time.Now(),
	}
	f.writes++
	return nil
}

func (f *fakeStore) ConfirmEnrollment(ctx context.Context, courseID, userID int) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.enrollments[pairKey{courseID, userID}]
	if !ok || e.Status != model.EnrollmentPending {
		return false, nil
	}
	now := time.Now()
	e.Status = model.EnrollmentConfirmed
	e.ConfirmedAt = &now
	f.writes++
	return true, nil
}

func (f *fakeStore) FindEnrollment(ctx context.Context, courseID, userID int) (*model.Enrollment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.enrollments[pairKey{courseID, userID}]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *e
	return &cp, nil
}

func (f *fakeStore) ListEnrollments(ctx context.Context, status model.EnrollmentStatus) ([]model.EnrollmentRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.EnrollmentRecord
	for k, e := range f.enrollments {
		if e.Status == status {
			out = append(out, model.EnrollmentRecord{
				StudentID: k.userID,
				CourseID:  k.courseID,
				Status:    e.Status,
			})
		}
	}
	return out, nil
}

func (f *fakeStore) ListConfirmedStudents(ctx context.Context, courseID int) ([]model.CourseStudent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.CourseStudent
	for k, e := range f.enrollments {
		if k.courseID == courseID && e.Status == model.EnrollmentConfirmed {
			out = append(out, model.CourseStudent{StudentID: k.userID})
		}
	}
	return out, nil
}

const (
	adminID    = 1
	teacherID  = 2
	studentID  = 3
	student2ID = 4
	unknownID  = 99
)

func newTestService() (*EnrollmentService, *fakeStore) {
	dir := &fakeDirectory{users: map[int]*model.User{
		adminID:    {ID: adminID, Name: "Admin", Role: authz.RoleAdmin},
		teacherID:  {ID: teacherID, Name: "Teacher", Role: authz.RoleTeacher},
		studentID:  {ID: studentID, Name: "Student", Role: authz.RoleStudent},
		student2ID: {ID: student2ID, Name: "Student Two", Role: authz.RoleStudent},
	}}
	store := newFakeStore()
	return NewEnrollmentService(dir, store, zerolog.Nop()), store
}

func day(year int, month time.Month, d int) pgtype.Date {
	return pgtype.Date{Time: time.Date(year, month, d, 0, 0, 0, 0, time.UTC), Valid: true}
}

func TestCreateCourse(t *testing.T) {
	t.Run("teacher can create", func(t *testing.T) {
		svc, _ := newTestService()
		course, err := svc.CreateCourse(context.Background(), "Algorithms", "sorting and graphs", day(2024, 1, 1), day(2024, 6, 1), teacherID)
		if err != nil {
			t.Fatalf("CreateCourse() error = %v", err)
		}
		if course.ID == 0 {
			t.Fatal("expected a generated course ID")
		}
		if course.CreatedBy != teacherID {
			t.Fatalf("created_by = %d, want %d", course.CreatedBy, teacherID)
		}
	})

	t.Run("student is forbidden", func(t *testing.T) {
		svc, store := newTestService()
		_, err := svc.CreateCourse(context.Background(), "Algorithms", "", day(2024, 1, 1), day(2024, 6, 1), studentID)
		if !errors.Is(err, ErrForbidden) {
			t.Fatalf("error = %v, want ErrForbidden", err)
		}
		if store.writes != 0 {
			t.Fatalf("expected no writes, got %d", store.writes)
		}
	})

	t.Run("unknown caller", func(t *testing.T) {
		svc, _ := newTestService()
		_, err := svc.CreateCourse(context.Background(), "Algorithms", "", day(2024, 1, 1), day(2024, 6, 1), unknownID)
		if !errors.Is(err, ErrActorNotFound) {
			t.Fatalf("error = %v, want ErrActorNotFound", err)
		}
	})

	t.Run("inverted dates pass through unvalidated", func(t *testing.T) {
		svc, _ := newTestService()
		course, err := svc.CreateCourse(context.Background(), "Backwards", "", day(2024, 6, 1), day(2024, 1, 1), adminID)
		if err != nil {
			t.Fatalf("CreateCourse() error = %v", err)
		}
		got, err := svc.GetCourse(context.Background(), course.ID)
		if err != nil {
			t.Fatalf("GetCourse() error = %v", err)
		}
		if !got.StartDate.Time.Equal(day(2024, 6, 1).Time) || !got.EndDate.Time.Equal(day(2024, 1, 1).Time) {
			t.Fatalf("dates changed on round-trip: start=%v end=%v", got.StartDate.Time, got.EndDate.Time)
		}
		if got.Name != "Backwards" || got.CreatedBy != adminID {
			t.Fatalf("round-trip mismatch: %+v", got)
		}
	})
}

func TestEditCourse(t *testing.T) {
	t.Run("overwrites fields, keeps creator", func(t *testing.T) {
		svc, _ := newTestService()
		course, err := svc.CreateCourse(context.Background(), "Old", "old desc", day(2024, 1, 1), day(2024, 6, 1), teacherID)
		if err != nil {
			t.Fatalf("CreateCourse() error = %v", err)
		}

		updated, err := svc.EditCourse(context.Background(), course.ID, "New", "new desc", day(2025, 1, 1), day(2025, 6, 1), adminID)
		if err != nil {
			t.Fatalf("EditCourse() error = %v", err)
		}
		if updated.Name != "New" || updated.Description != "new desc" {
			t.Fatalf("fields not overwritten: %+v", updated)
		}
		if updated.CreatedBy != teacherID {
			t.Fatalf("created_by changed to %d on edit", updated.CreatedBy)
		}
	})

	t.Run("nonexistent course writes nothing", func(t *testing.T) {
		svc, store := newTestService()
		_, err := svc.EditCourse(context.Background(), 42, "New", "", day(2025, 1, 1), day(2025, 6, 1), adminID)
		if !errors.Is(err, ErrCourseNotFound) {
			t.Fatalf("error = %v, want ErrCourseNotFound", err)
		}
		if store.writes != 0 {
			t.Fatalf("expected no writes, got %d", store.writes)
		}
	})

	t.Run("student is forbidden", func(t *testing.T) {
		svc, _ := newTestService()
		_, err := svc.EditCourse(context.Background(), 1, "New", "", day(2025, 1, 1), day(2025, 6, 1), studentID)
		if !errors.Is(err, ErrForbidden) {
			t.Fatalf("error = %v, want ErrForbidden", err)
		}
	})
}

func TestDeleteCourse(t *testing.T) {
	t.Run("admin deletes existing course", func(t *testing.T) {
		svc, _ := newTestService()
		course, _ := svc.CreateCourse(context.Background(), "Doomed", "", day(2024, 1, 1), day(2024, 6, 1), adminID)
		if err := svc.DeleteCourse(context.Background(), course.ID, adminID); err != nil {
			t.Fatalf("DeleteCourse() error = %v", err)
		}
		if _, err := svc.GetCourse(context.Background(), course.ID); !errors.Is(err, ErrCourseNotFound) {
			t.Fatalf("course still present after delete: %v", err)
		}
	})

	t.Run("teacher is forbidden even for existing course", func(t *testing.T) {
		svc, _ := newTestService()
		course, _ := svc.CreateCourse(context.Background(), "Kept", "", day(2024, 1, 1), day(2024, 6, 1), teacherID)
		if err := svc.DeleteCourse(context.Background(), course.ID, teacherID); !errors.Is(err, ErrForbidden) {
			t.Fatalf("error = %v, want ErrForbidden", err)
		}
	})

	t.Run("teacher is forbidden for missing course", func(t *testing.T) {
		svc, _ := newTestService()
		// Role check comes before existence: Forbidden regardless.
		if err := svc.DeleteCourse(context.Background(), 42, teacherID); !errors.Is(err, ErrForbidden) {
			t.Fatalf("error = %v, want ErrForbidden", err)
		}
	})

	t.Run("admin gets CourseNotFound for missing course", func(t *testing.T) {
		svc, _ := newTestService()
		if err := svc.DeleteCourse(context.Background(), 42, adminID); !errors.Is(err, ErrCourseNotFound) {
			t.Fatalf("error = %v, want ErrCourseNotFound", err)
		}
	})
}

func TestEnrollInCourse(t *testing.T) {
	t.Run("first enroll creates Pending row", func(t *testing.T) {
		svc, store := newTestService()
		course, _ := svc.CreateCourse(context.Background(), "C", "", day(2024, 1, 1), day(2024, 6, 1), teacherID)

		if err := svc.EnrollInCourse(context.Background(), course.ID, studentID); err != nil {
			t.Fatalf("EnrollInCourse() error = %v", err)
		}
		e, err := store.FindEnrollment(context.Background(), course.ID, studentID)
		if err != nil {
			t.Fatalf("enrollment row missing: %v", err)
		}
		if e.Status != model.EnrollmentPending {
			t.Fatalf("status = %q, want Pending", e.Status)
		}
	})

	t.Run("duplicate enroll fails without state change", func(t *testing.T) {
		svc, _ := newTestService()
		course, _ := svc.CreateCourse(context.Background(), "C", "", day(2024, 1, 1), day(2024, 6, 1), teacherID)
		if err := svc.EnrollInCourse(context.Background(), course.ID, studentID); err != nil {
			t.Fatalf("first enroll error = %v", err)
		}
		if err := svc.EnrollInCourse(context.Background(), course.ID, studentID); !errors.Is(err, ErrEnrollmentFailed) {
			t.Fatalf("error = %v, want ErrEnrollmentFailed", err)
		}
	})

	t.Run("missing course fails the same way", func(t *testing.T) {
		svc, _ := newTestService()
		if err := svc.EnrollInCourse(context.Background(), 42, studentID); !errors.Is(err, ErrEnrollmentFailed) {
			t.Fatalf("error = %v, want ErrEnrollmentFailed", err)
		}
	})

	t.Run("concurrent duplicate enrolls leave one row", func(t *testing.T) {
		svc, store := newTestService()
		course, _ := svc.CreateCourse(context.Background(), "C", "", day(2024, 1, 1), day(2024, 6, 1), teacherID)

		const attempts = 32
		var wg sync.WaitGroup
		errs := make([]error, attempts)
		for i := 0; i < attempts; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				errs[i] = svc.EnrollInCourse(context.Background(), course.ID, studentID)
			}(i)
		}
		wg.Wait()

		var succeeded int
		for _, err := range errs {
			if err == nil {
				succeeded++
			} else if !errors.Is(err, ErrEnrollmentFailed) {
				t.Fatalf("unexpected error: %v", err)
			}
		}
		if succeeded != 1 {
			t.Fatalf("exactly one enroll must win, got %d", succeeded)
		}
		if n := len(store.enrollments); n != 1 {
			t.Fatalf("expected 1 enrollment row, got %d", n)
		}
	})
}

func TestConfirmEnrollment(t *testing.T) {
	t.Run("pending becomes confirmed, repeat fails", func(t *testing.T) {
		svc, store := newTestService()
		course, _ := svc.CreateCourse(context.Background(), "C", "", day(2024, 1, 1), day(2024, 6, 1), teacherID)
		if err := svc.EnrollInCourse(context.Background(), course.ID, studentID); err != nil {
			t.Fatalf("enroll error = %v", err)
		}

		if err := svc.ConfirmEnrollment(context.Background(), course.ID, studentID, adminID); err != nil {
			t.Fatalf("ConfirmEnrollment() error = %v", err)
		}
		e, _ := store.FindEnrollment(context.Background(), course.ID, studentID)
		if e.Status != model.EnrollmentConfirmed {
			t.Fatalf("status = %q, want Confirmed", e.Status)
		}

		if err := svc.ConfirmEnrollment(context.Background(), course.ID, studentID, adminID); !errors.Is(err, ErrNoPendingEnrollment) {
			t.Fatalf("repeat confirm error = %v, want ErrNoPendingEnrollment", err)
		}
		if e, _ := store.FindEnrollment(context.Background(), course.ID, studentID); e.Status != model.EnrollmentConfirmed {
			t.Fatal("repeat confirm must not change state")
		}
	})

	t.Run("missing enrollment", func(t *testing.T) {
		svc, _ := newTestService()
		course, _ := svc.CreateCourse(context.Background(), "C", "", day(2024, 1, 1), day(2024, 6, 1), teacherID)
		if err := svc.ConfirmEnrollment(context.Background(), course.ID, studentID, teacherID); !errors.Is(err, ErrNoPendingEnrollment) {
			t.Fatalf("error = %v, want ErrNoPendingEnrollment", err)
		}
	})

	t.Run("student cannot confirm", func(t *testing.T) {
		svc, _ := newTestService()
		course, _ := svc.CreateCourse(context.Background(), "C", "", day(2024, 1, 1), day(2024, 6, 1), teacherID)
		_ = svc.EnrollInCourse(context.Background(), course.ID, studentID)
		if err := svc.ConfirmEnrollment(context.Background(), course.ID, studentID, student2ID); !errors.Is(err, ErrForbidden) {
			t.Fatalf("error = %v, want ErrForbidden", err)
		}
	})
}

func TestListUserCourses(t *testing.T) {
	svc, _ := newTestService()
	courseA, _ := svc.CreateCourse(context.Background(), "A", "", day(2024, 1, 1), day(2024, 6, 1), teacherID)
	courseB, _ := svc.CreateCourse(context.Background(), "B", "", day(2024, 1, 1), day(2024, 6, 1), teacherID)

	_ = svc.EnrollInCourse(context.Background(), courseA.ID, studentID)
	_ = svc.EnrollInCourse(context.Background(), courseB.ID, studentID)
	_ = svc.ConfirmEnrollment(context.Background(), courseA.ID, studentID, adminID)

	t.Run("returns both pending and confirmed", func(t *testing.T) {
		courses, err := svc.ListUserCourses(context.Background(), studentID)
		if err != nil {
			t.Fatalf("ListUserCourses() error = %v", err)
		}
		if len(courses) != 2 {
			t.Fatalf("expected 2 courses, got %d", len(courses))
		}
	})

	t.Run("no enrollments is EmptyResult", func(t *testing.T) {
		if _, err := svc.ListUserCourses(context.Background(), student2ID); !errors.Is(err, ErrEmptyResult) {
			t.Fatalf("error = %v, want ErrEmptyResult", err)
		}
	})

	t.Run("unknown caller", func(t *testing.T) {
		if _, err := svc.ListUserCourses(context.Background(), unknownID); !errors.Is(err, ErrActorNotFound) {
			t.Fatalf("error = %v, want ErrActorNotFound", err)
		}
	})
}

func TestListStudentsAndCourses(t *testing.T) {
	svc, _ := newTestService()
	course, _ := svc.CreateCourse(context.Background(), "C", "", day(2024, 1, 1), day(2024, 6, 1), teacherID)
	_ = svc.EnrollInCourse(context.Background(), course.ID, studentID)
	_ = svc.EnrollInCourse(context.Background(), course.ID, student2ID)
	_ = svc.ConfirmEnrollment(context.Background(), course.ID, studentID, adminID)

	t.Run("empty filter defaults to Confirmed", func(t *testing.T) {
		records, err := svc.ListStudentsAndCourses(context.Background(), "", teacherID)
		if err != nil {
			t.Fatalf("ListStudentsAndCourses() error = %v", err)
		}
		if len(records) != 1 || records[0].StudentID != studentID {
			t.Fatalf("unexpected records: %+v", records)
		}
	})

	t.Run("explicit Pending filter", func(t *testing.T) {
		records, err := svc.ListStudentsAndCourses(context.Background(), "Pending", adminID)
		if err != nil {
			t.Fatalf("ListStudentsAndCourses() error = %v", err)
		}
		if len(records) != 1 || records[0].StudentID != student2ID {
			t.Fatalf("unexpected records: %+v", records)
		}
	})

	t.Run("unknown status is empty, not an error kind of its own", func(t *testing.T) {
		if _, err := svc.ListStudentsAndCourses(context.Background(), "Cancelled", adminID); !errors.Is(err, ErrEmptyResult) {
			t.Fatalf("error = %v, want ErrEmptyResult", err)
		}
	})

	t.Run("student is forbidden", func(t *testing.T) {
		if _, err := svc.ListStudentsAndCourses(context.Background(), "", studentID); !errors.Is(err, ErrForbidden) {
			t.Fatalf("error = %v, want ErrForbidden", err)
		}
	})
}

func TestListConfirmedStudentsInCourse(t *testing.T) {
	svc, _ := newTestService()
	course, _ := svc.CreateCourse(context.Background(), "C", "", day(2024, 1, 1), day(2024, 6, 1), teacherID)
	_ = svc.EnrollInCourse(context.Background(), course.ID, studentID)
	_ = svc.EnrollInCourse(context.Background(), course.ID, student2ID)
	_ = svc.ConfirmEnrollment(context.Background(), course.ID, studentID, adminID)

	t.Run("only confirmed students listed", func(t *testing.T) {
		students, err := svc.ListConfirmedStudentsInCourse(context.Background(), course.ID, teacherID)
		if err != nil {
			t.Fatalf("ListConfirmedStudentsInCourse() error = %v", err)
		}
		if len(students) != 1 || students[0].StudentID != studentID {
			t.Fatalf("unexpected students: %+v", students)
		}
	})

	t.Run("student is forbidden", func(t *testing.T) {
		if _, err := svc.ListConfirmedStudentsInCourse(context.Background(), course.ID, studentID); !errors.Is(err, ErrForbidden) {
			t.Fatalf("error = %v, want ErrForbidden", err)
		}
	})

	t.Run("no confirmed students is EmptyResult", func(t *testing.T) {
		other, _ := svc.CreateCourse(context.Background(), "Empty", "", day(2024, 1, 1), day(2024, 6, 1), teacherID)
		if _, err := svc.ListConfirmedStudentsInCourse(context.Background(), other.ID, adminID); !errors.Is(err, ErrEmptyResult) {
			t.Fatalf("error = %v, want ErrEmptyResult", err)
		}
	})
}

// TestEnrollmentLifecycle walks the whole state machine end to end:
// teacher creates, student enrolls once (second attempt rejected), admin
// confirms once (second attempt rejected), roster shows the student.
func TestEnrollmentLifecycle(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	course, err := svc.CreateCourse(ctx, "Compilers", "", day(2024, 1, 1), day(2024, 6, 1), teacherID)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := svc.EnrollInCourse(ctx, course.ID, studentID); err != nil {
		t.Fatalf("enroll: %v", err)
	}
	if err := svc.EnrollInCourse(ctx, course.ID, studentID); !errors.Is(err, ErrEnrollmentFailed) {
		t.Fatalf("duplicate enroll: got %v, want ErrEnrollmentFailed", err)
	}

	if err := svc.ConfirmEnrollment(ctx, course.ID, studentID, adminID); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if err := svc.ConfirmEnrollment(ctx, course.ID, studentID, adminID); !errors.Is(err, ErrNoPendingEnrollment) {
		t.Fatalf("repeat confirm: got %v, want ErrNoPendingEnrollment", err)
	}

	students, err := svc.ListConfirmedStudentsInCourse(ctx, course.ID, adminID)
	if err != nil {
		t.Fatalf("roster: %v", err)
	}
	if len(students) != 1 || students[0].StudentID != studentID {
		t.Fatalf("roster = %+v, want exactly the confirmed student", students)
	}
}
