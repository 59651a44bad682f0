package api

import (
	"context"
	"encoding/json"
	"time"

	"github.com/abhisek/coursetrack/internal/course"
	"github.com/abhisek/coursetrack/internal/logger"
	"github.com/abhisek/coursetrack/internal/store"
)

// EventLogBackend is a decorator that records every backend call as a
// progress event.
type EventLogBackend struct {
	inner     Backend
	eventRepo store.EventRepo
	sessionID string
	log       *logger.Logger
}

// WithEventLog wraps a Backend with event logging. Recording failures are
// logged and never fail the call.
func WithEventLog(b Backend, repo store.EventRepo, sessionID string, log *logger.Logger) Backend {
	if log == nil {
		log = logger.NewNop()
	}
	return &EventLogBackend{inner: b, eventRepo: repo, sessionID: sessionID, log: log}
}

func (e *EventLogBackend) LoadCourse(ctx context.Context, courseID string) (course.Course, error) {
	start := time.Now()
	c, err := e.inner.LoadCourse(ctx, courseID)

	var detail string
	if err == nil {
		total, completed := countLessons(c)
		detail = marshalDetail(map[string]any{
			"modules":           len(c.Modules),
			"total_lessons":     total,
			"completed_lessons": completed,
		})
	}
	e.record(ctx, start, store.ProgressEventData{
		CourseID: courseID,
		Kind:     store.KindCourseLoad,
		Detail:   detail,
	}, err)
	return c, err
}

func (e *EventLogBackend) MarkLessonCompleted(ctx context.Context, courseID, lessonID string) error {
	start := time.Now()
	err := e.inner.MarkLessonCompleted(ctx, courseID, lessonID)
	e.record(ctx, start, store.ProgressEventData{
		CourseID: courseID,
		LessonID: lessonID,
		Kind:     store.KindLessonCompleted,
	}, err)
	return err
}

func (e *EventLogBackend) ReportVideoProgress(ctx context.Context, p VideoProgress) error {
	start := time.Now()
	err := e.inner.ReportVideoProgress(ctx, p)
	e.record(ctx, start, store.ProgressEventData{
		CourseID: p.CourseID,
		LessonID: p.LessonID,
		Kind:     store.KindVideoProgress,
		Detail: marshalDetail(map[string]any{
			"progress_percentage": p.ProgressPercentage,
			"current_time":        p.CurrentTime,
			"duration":            p.Duration,
		}),
	}, err)
	return err
}

func (e *EventLogBackend) CheckCompletion(ctx context.Context, courseID string) (CompletionStatus, error) {
	start := time.Now()
	st, err := e.inner.CheckCompletion(ctx, courseID)

	var detail string
	if err == nil {
		detail = marshalDetail(st)
	}
	e.record(ctx, start, store.ProgressEventData{
		CourseID: courseID,
		Kind:     store.KindCompletionCheck,
		Detail:   detail,
	}, err)
	return st, err
}

func (e *EventLogBackend) GenerateCertificate(ctx context.Context, courseID string) (Certificate, error) {
	start := time.Now()
	cert, err := e.inner.GenerateCertificate(ctx, courseID)

	var detail string
	if err == nil {
		detail = marshalDetail(cert)
	}
	e.record(ctx, start, store.ProgressEventData{
		CourseID: courseID,
		Kind:     store.KindCertificate,
		Detail:   detail,
	}, err)
	return cert, err
}

func (e *EventLogBackend) record(ctx context.Context, start time.Time, data store.ProgressEventData, err error) {
	data.SessionID = e.sessionID
	data.LatencyMs = time.Since(start).Milliseconds()
	data.Success = err == nil
	if err != nil {
		data.ErrorMessage = err.Error()
		data.StatusCode = StatusCode(err)
	}

	// A cancelled lesson context must not lose the record of its cancellation.
	if logErr := e.eventRepo.AppendProgressEvent(context.WithoutCancel(ctx), data); logErr != nil {
		e.log.Warn("failed to record progress event", "kind", string(data.Kind), "error", logErr)
	}
}

func marshalDetail(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

func countLessons(c course.Course) (total, completed int) {
	for _, m := range c.Modules {
		total += m.TotalLessons()
		completed += m.CompletedLessons()
	}
	return total, completed
}
