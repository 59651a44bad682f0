package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// ID is an identifier the backend may send as a JSON string or number.
// It always marshals as a string.
type ID string

func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("id must be a string or number: %w", err)
	}
	*id = ID(n.String())
	return nil
}

// CourseTrackingResponse is the body of GET /api/courses/{id}/tracking.
// Only Course is consumed by the tracker; the remaining sections are kept
// raw for display and debugging.
type CourseTrackingResponse struct {
	Course      CoursePayload     `json:"course" validate:"required"`
	Enrollment  json.RawMessage   `json:"enrollment,omitempty"`
	Assignments []json.RawMessage `json:"assignments,omitempty"`
	Exams       []json.RawMessage `json:"exams,omitempty"`
	Quizzes     []json.RawMessage `json:"quizzes,omitempty"`
	FinalExam   json.RawMessage   `json:"final_exam,omitempty"`
}

// CoursePayload is the course tree as sent by the backend.
type CoursePayload struct {
	ID           ID              `json:"id" validate:"required"`
	Title        string          `json:"title"`
	HasFinalExam bool            `json:"has_final_exam"`
	Modules      []ModulePayload `json:"modules" validate:"dive"`
}

// ModulePayload is one module of a CoursePayload.
type ModulePayload struct {
	ID      ID              `json:"id" validate:"required"`
	Name    string          `json:"name"`
	Lessons []LessonPayload `json:"lessons" validate:"dive"`
}

// LessonPayload is one lesson of a ModulePayload.
type LessonPayload struct {
	ID              ID                `json:"id" validate:"required"`
	Title           string            `json:"title"`
	DurationMinutes int               `json:"duration_minutes" validate:"min=0"`
	LessonType      string            `json:"lesson_type"`
	Completed       bool              `json:"completed"`
	VideoURL        string            `json:"video_url,omitempty"`
	Resources       []ResourcePayload `json:"resources" validate:"dive"`
}

// ResourcePayload is a lesson resource. Exactly one URL is set.
type ResourcePayload struct {
	ID           ID     `json:"id" validate:"required"`
	Title        string `json:"title"`
	ResourceType string `json:"resource_type"`
	FileURL      string `json:"file_url,omitempty" validate:"required_without=ExternalURL,excluded_with=ExternalURL"`
	ExternalURL  string `json:"external_url,omitempty"`
}

// CompleteLessonRequest is the body of POST /api/progress/lessons/complete.
type CompleteLessonRequest struct {
	CourseID string `json:"courseId" validate:"required"`
	LessonID string `json:"lessonId" validate:"required"`
}

// ContentTypeVideo is the only content type reported by the client.
const ContentTypeVideo = "video"

// VideoProgress is the body of POST /api/progress/video.
type VideoProgress struct {
	CourseID           string  `json:"courseId" validate:"required"`
	LessonID           string  `json:"lessonId" validate:"required"`
	ContentType        string  `json:"content_type" validate:"eq=video"`
	ProgressPercentage float64 `json:"progress_percentage" validate:"min=0,max=100"`
	CurrentTime        float64 `json:"current_time" validate:"min=0"`
	Duration           float64 `json:"duration" validate:"gt=0"`
}

// CompletionStatus is the body of GET /api/courses/{id}/completion.
type CompletionStatus struct {
	IsCompleted      bool `json:"is_completed"`
	HasCertificate   bool `json:"has_certificate"`
	TotalModules     int  `json:"total_modules"`
	CompletedModules int  `json:"completed_modules"`
}

// CertificateRequest is the body of POST /api/certificates.
type CertificateRequest struct {
	CourseID string `json:"courseId" validate:"required"`
}

// Certificate is the record returned when a certificate is issued.
type Certificate struct {
	ID                ID        `json:"id"`
	CourseID          ID        `json:"course_id"`
	CertificateNumber string    `json:"certificate_number,omitempty"`
	IssuedAt          time.Time `json:"issued_at"`
}

// ErrorResponse is the body of a failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}
