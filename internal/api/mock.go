package api

import (
	"context"
	"sync"
	"time"

	"github.com/abhisek/coursetrack/internal/course"
)

// MockBackend is a deterministic in-process Backend for testing.
// Queued errors are returned in FIFO order before the canned result;
// successful completions flip the lesson in Course like a real server.
type MockBackend struct {
	mu sync.Mutex

	Course      course.Course
	Status      CompletionStatus
	Certificate Certificate

	LoadErrs     []error
	CompleteErrs []error
	ProgressErrs []error
	StatusErrs   []error
	CertErrs     []error

	Completed []string
	Reports   []VideoProgress

	calls map[string]int
}

// NewMockBackend creates a MockBackend serving c.
func NewMockBackend(c course.Course) *MockBackend {
	return &MockBackend{Course: c, calls: make(map[string]int)}
}

func (m *MockBackend) LoadCourse(_ context.Context, courseID string) (course.Course, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.count("LoadCourse")
	if err := pop(&m.LoadErrs); err != nil {
		return course.Course{}, err
	}
	if courseID != m.Course.ID {
		return course.Course{}, &StatusError{Op: "load course", StatusCode: 404, Message: "Course not found"}
	}
	return cloneCourse(m.Course), nil
}

func (m *MockBackend) MarkLessonCompleted(_ context.Context, _ string, lessonID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.count("MarkLessonCompleted")
	if err := pop(&m.CompleteErrs); err != nil {
		return err
	}
	m.Completed = append(m.Completed, lessonID)
	for mi := range m.Course.Modules {
		for li := range m.Course.Modules[mi].Lessons {
			if m.Course.Modules[mi].Lessons[li].ID == lessonID {
				m.Course.Modules[mi].Lessons[li].Completed = true
			}
		}
	}
	return nil
}

func (m *MockBackend) ReportVideoProgress(_ context.Context, p VideoProgress) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.count("ReportVideoProgress")
	if err := pop(&m.ProgressErrs); err != nil {
		return err
	}
	m.Reports = append(m.Reports, p)
	return nil
}

func (m *MockBackend) CheckCompletion(_ context.Context, _ string) (CompletionStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.count("CheckCompletion")
	if err := pop(&m.StatusErrs); err != nil {
		return CompletionStatus{}, err
	}
	return m.Status, nil
}

func (m *MockBackend) GenerateCertificate(_ context.Context, courseID string) (Certificate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.count("GenerateCertificate")
	if err := pop(&m.CertErrs); err != nil {
		return Certificate{}, err
	}
	cert := m.Certificate
	if cert.CourseID == "" {
		cert.CourseID = ID(courseID)
	}
	if cert.IssuedAt.IsZero() {
		cert.IssuedAt = time.Now().UTC()
	}
	m.Status.HasCertificate = true
	return cert, nil
}

// CallCount returns how many times method was called.
func (m *MockBackend) CallCount(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[method]
}

// ReportCount returns the number of video progress reports received.
func (m *MockBackend) ReportCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Reports)
}

func (m *MockBackend) count(method string) {
	if m.calls == nil {
		m.calls = make(map[string]int)
	}
	m.calls[method]++
}

func pop(errs *[]error) error {
	if len(*errs) == 0 {
		return nil
	}
	err := (*errs)[0]
	*errs = (*errs)[1:]
	return err
}

func cloneCourse(c course.Course) course.Course {
	out := c
	out.Modules = make([]course.Module, len(c.Modules))
	for i, m := range c.Modules {
		out.Modules[i] = m
		out.Modules[i].Lessons = append([]course.Lesson(nil), m.Lessons...)
	}
	return out
}
