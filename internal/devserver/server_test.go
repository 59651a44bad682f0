package devserver

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/coursetrack/internal/course"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func smallCourse() course.Course {
	return course.Course{
		ID:    "c1",
		Title: "Small",
		Modules: []course.Module{
			{ID: "A", Name: "A", Lessons: []course.Lesson{
				{ID: "A1", Title: "A1", Type: course.LessonVideo},
				{ID: "A2", Title: "A2", Type: course.LessonReading},
			}},
			{ID: "B", Name: "B", Lessons: []course.Lesson{{ID: "B1", Title: "B1", Type: course.LessonQuiz}}},
		},
	}
}

func do(t *testing.T, h http.Handler, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestTrackingServesSeededCourse(t *testing.T) {
	h := New().Handler()

	w := do(t, h, http.MethodGet, "/api/courses/"+DemoCourseID+"/tracking", nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	c := body["course"].(map[string]any)
	assert.Equal(t, DemoCourseID, c["id"])
	assert.Equal(t, true, c["has_final_exam"])
	assert.Len(t, c["modules"], 4)
	assert.Contains(t, body, "enrollment")
}

func TestTrackingUnknownCourse(t *testing.T) {
	w := do(t, New().Handler(), http.MethodGet, "/api/courses/nope/tracking", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Course not found", decode(t, w)["error"])
}

func TestCompleteLessonAndCompletion(t *testing.T) {
	h := New(WithCourse(smallCourse())).Handler()

	w := do(t, h, http.MethodGet, "/api/courses/c1/completion", nil)
	require.Equal(t, http.StatusOK, w.Code)
	st := decode(t, w)
	assert.Equal(t, false, st["is_completed"])
	assert.EqualValues(t, 2, st["total_modules"])
	assert.EqualValues(t, 0, st["completed_modules"])

	for _, id := range []string{"A1", "A2"} {
		w = do(t, h, http.MethodPost, "/api/progress/lessons/complete", map[string]string{"courseId": "c1", "lessonId": id})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}

	st = decode(t, do(t, h, http.MethodGet, "/api/courses/c1/completion", nil))
	assert.EqualValues(t, 1, st["completed_modules"])
	assert.Equal(t, false, st["is_completed"])

	do(t, h, http.MethodPost, "/api/progress/lessons/complete", map[string]string{"courseId": "c1", "lessonId": "B1"})
	st = decode(t, do(t, h, http.MethodGet, "/api/courses/c1/completion", nil))
	assert.Equal(t, true, st["is_completed"])
	assert.Equal(t, false, st["has_certificate"])
}

func TestCompleteLessonErrors(t *testing.T) {
	h := New(WithCourse(smallCourse())).Handler()

	w := do(t, h, http.MethodPost, "/api/progress/lessons/complete", map[string]string{"courseId": "c1", "lessonId": "Z9"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Lesson not found", decode(t, w)["error"])

	w = do(t, h, http.MethodPost, "/api/progress/lessons/complete", map[string]string{"courseId": "c1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReportVideoProgress(t *testing.T) {
	srv := New(WithCourse(smallCourse()))
	h := srv.Handler()

	w := do(t, h, http.MethodPost, "/api/progress/video", map[string]any{
		"courseId": "c1", "lessonId": "A1", "content_type": "video",
		"progress_percentage": 40, "current_time": 40, "duration": 100,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	p, ok := srv.VideoProgress("c1", "A1")
	require.True(t, ok)
	assert.InDelta(t, 40, p.ProgressPercentage, 0.001)

	w = do(t, h, http.MethodPost, "/api/progress/video", map[string]any{
		"courseId": "c1", "lessonId": "A1", "content_type": "video",
		"progress_percentage": 140, "current_time": 40, "duration": 100,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCertificateFlow(t *testing.T) {
	srv := New(WithCourse(smallCourse()))
	h := srv.Handler()
	req := map[string]string{"courseId": "c1"}

	w := do(t, h, http.MethodPost, "/api/certificates", req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode(t, w)["error"], "Complete all lessons")

	for _, id := range []string{"A1", "A2", "B1"} {
		require.True(t, srv.SetLessonCompleted("c1", id))
	}

	w = do(t, h, http.MethodPost, "/api/certificates", req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	cert := decode(t, w)
	assert.Equal(t, "c1", cert["course_id"])
	assert.NotEmpty(t, cert["id"])

	st := decode(t, do(t, h, http.MethodGet, "/api/courses/c1/completion", nil))
	assert.Equal(t, true, st["has_certificate"])

	w = do(t, h, http.MethodPost, "/api/certificates", req)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestTokenRequired(t *testing.T) {
	h := New(WithToken("s3cret")).Handler()

	w := do(t, h, http.MethodGet, "/api/courses/"+DemoCourseID+"/completion", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(t, h, http.MethodGet, "/api/courses/"+DemoCourseID+"/completion", nil, "Authorization", "Bearer s3cret")
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(t, h, http.MethodGet, "/healthcheck", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestWithCourseCopiesInput(t *testing.T) {
	c := smallCourse()
	srv := New(WithCourse(c))
	srv.SetLessonCompleted("c1", "A1")
	assert.False(t, c.Modules[0].Lessons[0].Completed, "server must not mutate the caller's course")
}
