// Package api talks to the course backend: the tracking payload, lesson
// completion, video progress, completion status and certificates.
package api

import (
	"context"

	"github.com/abhisek/coursetrack/internal/course"
)

// Backend is the remote course service.
type Backend interface {
	// LoadCourse fetches and validates the course tree with per-lesson
	// completion flags.
	LoadCourse(ctx context.Context, courseID string) (course.Course, error)

	// MarkLessonCompleted persists a lesson completion.
	MarkLessonCompleted(ctx context.Context, courseID, lessonID string) error

	// ReportVideoProgress sends one throttled playback sample.
	ReportVideoProgress(ctx context.Context, p VideoProgress) error

	// CheckCompletion returns the server's view of course completion.
	CheckCompletion(ctx context.Context, courseID string) (CompletionStatus, error)

	// GenerateCertificate asks the server to issue a certificate.
	GenerateCertificate(ctx context.Context, courseID string) (Certificate, error)
}
