package handler_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-lms-api/internal/dto"
)

func compileContract(t *testing.T, name string) *jsonschema.Schema {
	t.Helper()
	path, err := filepath.Abs(filepath.Join("..", "..", "contracts", name))
	require.NoError(t, err)

	schema, err := jsonschema.NewCompiler().Compile("file://" + path)
	require.NoError(t, err)
	return schema
}

func validateContract(t *testing.T, schema *jsonschema.Schema, body envelope) {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)

	var payload interface{}
	require.NoError(t, json.Unmarshal(raw, &payload))
	require.NoError(t, schema.Validate(payload))
}

func TestGradingContracts(t *testing.T) {
	gradeSchema := compileContract(t, "grade_outcome.schema.json")
	courseSchema := compileContract(t, "course_grade.schema.json")

	app := newTestApp(t)
	instructor := app.seedStaff(t, "instructor@gema.test")
	studentUser, student := app.seedStudent(t, "student@gema.test")

	_, body := app.do(t, instructor, http.MethodPost, "/api/v2/admin/courses", dto.CourseCreateRequest{Code: "SE-1", Title: "Software Engineering"})
	course := decode[dto.CourseResponse](t, body.Data)
	_, body = app.do(t, instructor, http.MethodPost, fmt.Sprintf("/api/v2/admin/courses/%d/assignments", course.ID), dto.AssignmentCreateRequest{
		Title:     "Design review",
		MaxPoints: 40,
		DueAt:     time.Now().Add(48 * time.Hour),
	})
	assignment := decode[dto.AssignmentResponse](t, body.Data)

	_, body = app.do(t, studentUser, http.MethodPost, "/api/v2/submissions", dto.SubmissionCreateRequest{AssignmentID: assignment.ID, Body: "Layered design"})
	submission := decode[dto.SubmissionResponse](t, body.Data)
	status, _ := app.do(t, studentUser, http.MethodPost, fmt.Sprintf("/api/v2/submissions/%d/submit", submission.ID), nil)
	require.Equal(t, http.StatusOK, status)

	points := 36.0
	status, body = app.do(t, instructor, http.MethodPost, fmt.Sprintf("/api/v2/admin/submissions/%d/grades", submission.ID), dto.GradeRequest{PointsAwarded: &points, Action: "publish"})
	require.Equal(t, http.StatusCreated, status, body.Message)
	validateContract(t, gradeSchema, body)

	status, body = app.do(t, instructor, http.MethodGet, fmt.Sprintf("/api/v2/admin/courses/%d/grades/%d", course.ID, student.ID), nil)
	require.Equal(t, http.StatusOK, status, body.Message)
	validateContract(t, courseSchema, body)

	grade := decode[dto.CourseGradeResponse](t, body.Data)
	require.Equal(t, 1, grade.ItemsCounted)
	require.InDelta(t, 90, grade.Percentage, 0.001)
	require.Equal(t, "A", grade.Letter)
}
