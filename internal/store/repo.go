package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// ProgressEventKind names the backend call a progress event records.
type ProgressEventKind string

const (
	KindCourseLoad      ProgressEventKind = "course_load"
	KindLessonCompleted ProgressEventKind = "lesson_completed"
	KindVideoProgress   ProgressEventKind = "video_progress"
	KindCompletionCheck ProgressEventKind = "completion_check"
	KindCertificate     ProgressEventKind = "certificate"
)

// AllKinds lists every event kind in display order.
var AllKinds = []ProgressEventKind{
	KindCourseLoad,
	KindLessonCompleted,
	KindVideoProgress,
	KindCompletionCheck,
	KindCertificate,
}

// ValidKind reports whether k is a known event kind.
func ValidKind(k string) bool {
	for _, kind := range AllKinds {
		if string(kind) == k {
			return true
		}
	}
	return false
}

// QueryOpts configures event queries with filtering and pagination.
type QueryOpts struct {
	Limit    int               // max results (0 = unlimited)
	After    int64             // sequence > After
	Before   int64             // sequence < Before
	From     time.Time         // timestamp >= From
	To       time.Time         // timestamp <= To
	CourseID string            // exact match when set
	Kind     ProgressEventKind // exact match when set
}

// ProgressEventData captures one backend call made on behalf of a session.
type ProgressEventData struct {
	SessionID    string
	CourseID     string
	LessonID     string
	Kind         ProgressEventKind
	Success      bool
	StatusCode   int
	ErrorMessage string
	LatencyMs    int64
	Detail       string
}

// ProgressEvent is a stored progress event.
type ProgressEvent struct {
	ID        int
	Sequence  int64
	Timestamp time.Time
	ProgressEventData
}

// EventRepo provides append and query access to progress events.
type EventRepo interface {
	// AppendProgressEvent records a backend call.
	AppendProgressEvent(ctx context.Context, data ProgressEventData) error

	// QueryProgressEvents returns events newest first.
	QueryProgressEvents(ctx context.Context, opts QueryOpts) ([]ProgressEvent, error)

	// ProgressEvent returns a single event by ID, or ErrNotFound.
	ProgressEvent(ctx context.Context, id int) (*ProgressEvent, error)

	// DeleteEvents removes the events of courseID, or all events when
	// courseID is empty. It returns the number of rows removed.
	DeleteEvents(ctx context.Context, courseID string) (int64, error)
}

// WatchPosition is the last known playback position of a video lesson.
type WatchPosition struct {
	CourseID     string
	ModuleID     string
	LessonID     string
	PositionSecs float64
	DurationSecs float64
	UpdatedAt    time.Time
}

// WatchRepo persists playback positions across sessions.
type WatchRepo interface {
	// SavePosition inserts or replaces the position of a lesson.
	SavePosition(ctx context.Context, p WatchPosition) error

	// Positions returns the stored positions of a course ordered by module
	// and lesson.
	Positions(ctx context.Context, courseID string) ([]WatchPosition, error)

	// DeletePositions removes the positions of courseID, or all positions
	// when courseID is empty.
	DeletePositions(ctx context.Context, courseID string) (int64, error)
}

// SnapshotData captures the last known progress of a course.
type SnapshotData struct {
	Version              int    `json:"version"`
	Title                string `json:"title"`
	TotalLessons         int    `json:"total_lessons"`
	CompletedLessons     int    `json:"completed_lessons"`
	CompletionPercentage int    `json:"completion_percentage"`
	ResumeModuleID       string `json:"resume_module_id,omitempty"`
	ResumeLessonID       string `json:"resume_lesson_id,omitempty"`
	HasCertificate       bool   `json:"has_certificate"`
}

// Snapshot represents a point-in-time capture of course progress.
type Snapshot struct {
	ID        int
	CourseID  string
	Sequence  int64
	Timestamp time.Time
	Data      SnapshotData
}

// SnapshotRepo manages course progress snapshots.
type SnapshotRepo interface {
	// Save stores a new snapshot. A zero Sequence is filled from the
	// current global sequence.
	Save(ctx context.Context, snap *Snapshot) error

	// Latest returns the most recent snapshot of a course, or nil if none
	// exist.
	Latest(ctx context.Context, courseID string) (*Snapshot, error)

	// Prune deletes all but the N most recent snapshots of a course.
	Prune(ctx context.Context, courseID string, keep int) error
}
