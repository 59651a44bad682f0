package course

import (
	"fmt"
	"math"
	"time"
)

// WatchState is the latest known playback position of a video lesson.
type WatchState struct {
	PlayedFraction float64
	PositionSecs   float64
	DurationSecs   float64
	UpdatedAt      time.Time
}

// Tracker is the single writer of lesson completion for one course
// viewing session. It is not safe for concurrent use; all calls are
// expected from the UI update loop.
type Tracker struct {
	graph   *Graph
	current Position
	watch   map[Position]WatchState
	now     func() time.Time
}

// NewTracker creates a tracker over g with no lesson selected.
func NewTracker(g *Graph) *Tracker {
	return &Tracker{
		graph: g,
		watch: make(map[Position]WatchState),
		now:   time.Now,
	}
}

// Graph returns the graph being tracked.
func (t *Tracker) Graph() *Graph {
	return t.graph
}

// Snapshot returns the current aggregate. It always equals
// Graph().ComputeStats().
func (t *Tracker) Snapshot() Stats {
	return t.graph.ComputeStats()
}

// MarkLessonCompleted flips a lesson to completed and returns the new
// aggregate. Marking an already completed lesson is a no-op. There is no
// inverse: progress only regresses through a full reload via Replace.
func (t *Tracker) MarkLessonCompleted(moduleID, lessonID string) (Stats, error) {
	if _, err := t.graph.setCompleted(Position{ModuleID: moduleID, LessonID: lessonID}); err != nil {
		return Stats{}, err
	}
	return t.graph.ComputeStats(), nil
}

// RecordVideoProgress stores the latest watch position of a lesson. It
// never marks the lesson completed.
func (t *Tracker) RecordVideoProgress(moduleID, lessonID string, playedFraction, positionSecs, durationSecs float64) error {
	if !isFinite(playedFraction) || playedFraction < 0 || playedFraction > 1 {
		return fmt.Errorf("%w: played fraction %v", ErrInvalidRange, playedFraction)
	}
	if !isFinite(positionSecs) || positionSecs < 0 {
		return fmt.Errorf("%w: position %v", ErrInvalidRange, positionSecs)
	}
	if !isFinite(durationSecs) || durationSecs <= 0 {
		return fmt.Errorf("%w: duration %v", ErrInvalidRange, durationSecs)
	}

	pos := Position{ModuleID: moduleID, LessonID: lessonID}
	if _, err := t.graph.locate(pos); err != nil {
		return err
	}
	t.watch[pos] = WatchState{
		PlayedFraction: playedFraction,
		PositionSecs:   positionSecs,
		DurationSecs:   durationSecs,
		UpdatedAt:      t.now(),
	}
	return nil
}

// VideoProgress returns the last recorded watch position of a lesson.
func (t *Tracker) VideoProgress(moduleID, lessonID string) (WatchState, bool) {
	ws, ok := t.watch[Position{ModuleID: moduleID, LessonID: lessonID}]
	return ws, ok
}

// Current returns the lesson being viewed, if any.
func (t *Tracker) Current() (Position, bool) {
	return t.current, !t.current.IsZero()
}

// SetCurrent moves the current pointer. The target must exist.
func (t *Tracker) SetCurrent(pos Position) error {
	if _, err := t.graph.locate(pos); err != nil {
		return err
	}
	t.current = pos
	return nil
}

// Replace swaps in a freshly loaded graph, treating it as authoritative.
// The current pointer survives if it still resolves; otherwise it moves
// to the resume point. Watch state of vanished lessons is dropped.
func (t *Tracker) Replace(g *Graph) {
	t.graph = g

	for pos := range t.watch {
		if !g.Contains(pos) {
			delete(t.watch, pos)
		}
	}

	if t.current.IsZero() || g.Contains(t.current) {
		return
	}
	if pos, ok := g.FindFirstIncompleteLesson(); ok {
		t.current = pos
		return
	}
	if pos, ok := g.FirstLesson(); ok {
		t.current = pos
		return
	}
	t.current = Position{}
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
