package course

import "math"

// LessonType tags the kind of content a lesson delivers.
type LessonType string

const (
	LessonVideo      LessonType = "video"
	LessonQuiz       LessonType = "quiz"
	LessonAssignment LessonType = "assignment"
	LessonReading    LessonType = "reading"
)

// AllLessonTypes returns all lesson types in display order.
func AllLessonTypes() []LessonType {
	return []LessonType{LessonVideo, LessonQuiz, LessonAssignment, LessonReading}
}

// ParseLessonType maps a wire tag to a LessonType. Unknown tags are
// reported as not ok so callers can pick a fallback.
func ParseLessonType(s string) (LessonType, bool) {
	for _, t := range AllLessonTypes() {
		if string(t) == s {
			return t, true
		}
	}
	return LessonReading, false
}

// ResourceType tags a supplementary lesson resource.
type ResourceType string

const (
	ResourceDocument ResourceType = "document"
	ResourceVideo    ResourceType = "video"
	ResourceLink     ResourceType = "link"
	ResourceNote     ResourceType = "note"
)

// Resource is a file or link attached to a lesson. Exactly one of FileURL
// and ExternalURL is set.
type Resource struct {
	ID          string
	Title       string
	Type        ResourceType
	FileURL     string
	ExternalURL string
}

// URL returns whichever location the resource carries.
func (r Resource) URL() string {
	if r.FileURL != "" {
		return r.FileURL
	}
	return r.ExternalURL
}

// Lesson is the smallest trackable unit of content.
type Lesson struct {
	ID              string
	Title           string
	Type            LessonType
	DurationMinutes int
	Completed       bool
	VideoURL        string
	Resources       []Resource
}

// Module is an ordered group of lessons. Lesson order is pedagogical order.
type Module struct {
	ID      string
	Name    string
	Lessons []Lesson
}

// TotalLessons returns the number of lessons in the module.
func (m Module) TotalLessons() int {
	return len(m.Lessons)
}

// CompletedLessons returns the number of completed lessons in the module.
func (m Module) CompletedLessons() int {
	n := 0
	for _, l := range m.Lessons {
		if l.Completed {
			n++
		}
	}
	return n
}

// Progress returns the module completion as an integer percentage (0-100).
func (m Module) Progress() int {
	return percent(m.CompletedLessons(), m.TotalLessons())
}

// Course is the top-level learning unit.
type Course struct {
	ID           string
	Title        string
	HasFinalExam bool
	Modules      []Module
}

// Position identifies a lesson inside a course graph.
type Position struct {
	ModuleID string
	LessonID string
}

// IsZero reports whether the position points nowhere.
func (p Position) IsZero() bool {
	return p.ModuleID == "" && p.LessonID == ""
}

func (p Position) String() string {
	return p.ModuleID + "/" + p.LessonID
}

// Stats is a read-only aggregate of course progress at a point in time.
type Stats struct {
	TotalLessons         int
	CompletedLessons     int
	CompletionPercentage int
	RemainingLessons     int
}

// newStats derives the aggregate from raw counts. The course percentage
// only reaches 100 once every lesson is complete.
func newStats(total, completed int) Stats {
	pct := percent(completed, total)
	if completed < total && pct == 100 {
		pct = 99
	}
	return Stats{
		TotalLessons:         total,
		CompletedLessons:     completed,
		CompletionPercentage: pct,
		RemainingLessons:     total - completed,
	}
}

func percent(completed, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(100 * float64(completed) / float64(total)))
}

func cloneModule(m Module) Module {
	out := Module{ID: m.ID, Name: m.Name, Lessons: make([]Lesson, len(m.Lessons))}
	for i, l := range m.Lessons {
		out.Lessons[i] = cloneLesson(l)
	}
	return out
}

func cloneLesson(l Lesson) Lesson {
	if l.Resources != nil {
		res := make([]Resource, len(l.Resources))
		copy(res, l.Resources)
		l.Resources = res
	}
	return l
}
