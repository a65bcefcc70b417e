package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/coursems/coursems-backend/internal/middleware"
	"github.com/coursems/coursems-backend/internal/model"
	"github.com/coursems/coursems-backend/internal/response"
	"github.com/coursems/coursems-backend/internal/service"
	"github.com/coursems/coursems-backend/internal/validator"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgtype"
)

// CourseHandler exposes course CRUD and the enrollment lifecycle.
type CourseHandler struct {
	enrollmentService *service.EnrollmentService
}

// NewCourseHandler creates a new CourseHandler.
func NewCourseHandler(enrollmentService *service.EnrollmentService) *CourseHandler {
	return &CourseHandler{enrollmentService: enrollmentService}
}

// CreateCourse godoc
// POST /api/v1/courses
// Creates a course. Admin and Teacher only (enforced by the engine).
func (h *CourseHandler) CreateCourse(c *gin.Context) {
	var req model.CourseRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	course, err := h.enrollmentService.CreateCourse(
		c.Request.Context(),
		req.Name, req.Description,
		parseDate(req.StartDate), parseDate(req.EndDate),
		middleware.CallerID(c),
	)
	if err != nil {
		failFromService(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"course": course})
}

// EditCourse godoc
// PUT /api/v1/courses/:course_id
// Overwrites a course's name, description and dates. Admin and Teacher only.
func (h *CourseHandler) EditCourse(c *gin.Context) {
	courseID, err := strconv.Atoi(c.Param("course_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.CourseRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	course, err := h.enrollmentService.EditCourse(
		c.Request.Context(),
		courseID,
		req.Name, req.Description,
		parseDate(req.StartDate), parseDate(req.EndDate),
		middleware.CallerID(c),
	)
	if err != nil {
		failFromService(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"course": course})
}

// GetCourse godoc
// GET /api/v1/courses/:course_id
// Returns course information. Open to any authenticated caller.
func (h *CourseHandler) GetCourse(c *gin.Context) {
	courseID, err := strconv.Atoi(c.Param("course_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	course, err := h.enrollmentService.GetCourse(c.Request.Context(), courseID)
	if err != nil {
		failFromService(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"course": course})
}

// DeleteCourse godoc
// DELETE /api/v1/courses/:course_id
// Deletes a course. Admin only.
func (h *CourseHandler) DeleteCourse(c *gin.Context) {
	courseID, err := strconv.Atoi(c.Param("course_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if err := h.enrollmentService.DeleteCourse(c.Request.Context(), courseID, middleware.CallerID(c)); err != nil {
		failFromService(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "course deleted successfully"})
}

// MyCourses godoc
// GET /api/v1/courses/mine
// Lists every course the caller is enrolled in, any status.
func (h *CourseHandler) MyCourses(c *gin.Context) {
	courses, err := h.enrollmentService.ListUserCourses(c.Request.Context(), middleware.CallerID(c))
	if err != nil {
		failFromService(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"courses": courses})
}

// Enroll godoc
// POST /api/v1/courses/:course_id/enroll
// Enrolls the caller into the course with Pending status.
func (h *CourseHandler) Enroll(c *gin.Context) {
	courseID, err := strconv.Atoi(c.Param("course_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if err := h.enrollmentService.EnrollInCourse(c.Request.Context(), courseID, middleware.CallerID(c)); err != nil {
		failFromService(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "course enrollment successful"})
}

// ConfirmEnrollment godoc
// POST /api/v1/courses/:course_id/enrollments/:student_id/confirm
// Confirms a student's Pending enrollment. Admin and Teacher only.
func (h *CourseHandler) ConfirmEnrollment(c *gin.Context) {
	courseID, err := strconv.Atoi(c.Param("course_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}
	studentID, err := strconv.Atoi(c.Param("student_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if err := h.enrollmentService.ConfirmEnrollment(c.Request.Context(), courseID, studentID, middleware.CallerID(c)); err != nil {
		failFromService(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "student enrollment confirmed successfully"})
}

// ListEnrollments godoc
// GET /api/v1/enrollments?status=
// Lists (student, course, status) triples filtered by status; defaults to
// Confirmed. Admin and Teacher only.
func (h *CourseHandler) ListEnrollments(c *gin.Context) {
	records, err := h.enrollmentService.ListStudentsAndCourses(
		c.Request.Context(),
		c.Query("status"),
		middleware.CallerID(c),
	)
	if err != nil {
		failFromService(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"enrollments": records})
}

// ConfirmedStudents godoc
// GET /api/v1/courses/:course_id/confirmed-students
// Lists the confirmed roster of a course. Admin and Teacher only.
func (h *CourseHandler) ConfirmedStudents(c *gin.Context) {
	courseID, err := strconv.Atoi(c.Param("course_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	students, err := h.enrollmentService.ListConfirmedStudentsInCourse(c.Request.Context(), courseID, middleware.CallerID(c))
	if err != nil {
		failFromService(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"students": students})
}

// parseDate converts a 2006-01-02 string, already validated by binding,
// into a date-only pgtype.Date.
func parseDate(s string) pgtype.Date {
	t, _ := time.Parse("2006-01-02", s)
	return pgtype.Date{Time: t, Valid: true}
}

// failFromService maps engine error kinds to stable response codes.
func failFromService(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrActorNotFound):
		response.Fail(c, http.StatusUnauthorized, response.ErrActorNotFound)
	case errors.Is(err, service.ErrForbidden):
		response.Fail(c, http.StatusForbidden, response.ErrForbidden)
	case errors.Is(err, service.ErrCourseNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrCourseNotFound)
	case errors.Is(err, service.ErrEnrollmentFailed):
		response.Fail(c, http.StatusBadRequest, response.ErrEnrollmentFailed)
	case errors.Is(err, service.ErrNoPendingEnrollment):
		response.Fail(c, http.StatusNotFound, response.ErrNoPendingEnrollment)
	case errors.Is(err, service.ErrEmptyResult):
		response.Fail(c, http.StatusNotFound, response.ErrEmptyResult)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}
