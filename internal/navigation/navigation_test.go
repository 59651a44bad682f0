package navigation

import (
	"errors"
	"testing"

	"github.com/abhisek/coursetrack/internal/course"
)

func testGraph(t *testing.T) *course.Graph {
	t.Helper()
	g, err := course.NewGraph(course.Course{
		ID: "c1",
		Modules: []course.Module{
			{ID: "A", Lessons: []course.Lesson{{ID: "A1"}, {ID: "A2"}}},
			{ID: "empty"},
			{ID: "B", Lessons: []course.Lesson{{ID: "B1"}}},
			{ID: "C", Lessons: []course.Lesson{{ID: "C1"}, {ID: "C2"}}},
		},
	})
	if err != nil {
		t.Fatalf("NewGraph: %v", err)
	}
	return g
}

func pos(m, l string) course.Position {
	return course.Position{ModuleID: m, LessonID: l}
}

func TestNext(t *testing.T) {
	g := testGraph(t)
	tests := []struct {
		from   course.Position
		want   course.Position
		wantOK bool
	}{
		{pos("A", "A1"), pos("A", "A2"), true},
		{pos("A", "A2"), pos("B", "B1"), true}, // skips the empty module
		{pos("B", "B1"), pos("C", "C1"), true},
		{pos("C", "C1"), pos("C", "C2"), true},
		{pos("C", "C2"), course.Position{}, false}, // end of course, no wraparound
		{pos("A", "ghost"), course.Position{}, false},
	}
	for _, tt := range tests {
		got, ok := Next(g, tt.from)
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("Next(%v) = %v, %v; want %v, %v", tt.from, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestPrevious(t *testing.T) {
	g := testGraph(t)
	tests := []struct {
		from   course.Position
		want   course.Position
		wantOK bool
	}{
		{pos("C", "C2"), pos("C", "C1"), true},
		{pos("C", "C1"), pos("B", "B1"), true},
		{pos("B", "B1"), pos("A", "A2"), true}, // skips the empty module
		{pos("A", "A2"), pos("A", "A1"), true},
		{pos("A", "A1"), course.Position{}, false}, // start of course, no wraparound
		{pos("nope", "A1"), course.Position{}, false},
	}
	for _, tt := range tests {
		got, ok := Previous(g, tt.from)
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("Previous(%v) = %v, %v; want %v, %v", tt.from, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestNextPreviousRoundTrip(t *testing.T) {
	g := testGraph(t)
	cur := pos("A", "A1")
	var walked []course.Position
	for {
		walked = append(walked, cur)
		next, ok := Next(g, cur)
		if !ok {
			break
		}
		cur = next
	}
	if len(walked) != 5 {
		t.Fatalf("walked %d lessons, want 5", len(walked))
	}
	for i := len(walked) - 1; i > 0; i-- {
		prev, ok := Previous(g, walked[i])
		if !ok || prev != walked[i-1] {
			t.Errorf("Previous(%v) = %v, %v; want %v", walked[i], prev, ok, walked[i-1])
		}
	}
}

func TestNavigationDoesNotChangeCompletion(t *testing.T) {
	g := testGraph(t)
	before := g.ComputeStats()
	cur := pos("A", "A1")
	for {
		next, ok := Next(g, cur)
		if !ok {
			break
		}
		cur = next
	}
	if after := g.ComputeStats(); after != before {
		t.Errorf("stats changed during navigation: %+v -> %+v", before, after)
	}
}

func TestSelect(t *testing.T) {
	g := testGraph(t)

	got, err := Select(g, "B", "B1")
	if err != nil {
		t.Fatalf("Select(B, B1): %v", err)
	}
	if got != pos("B", "B1") {
		t.Errorf("Select = %v, want B/B1", got)
	}

	if _, err := Select(g, "B", "removed"); !errors.Is(err, course.ErrLessonNotFound) {
		t.Errorf("err = %v, want ErrLessonNotFound", err)
	}
	if _, err := Select(g, "empty", "A1"); !errors.Is(err, course.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestStart(t *testing.T) {
	g := testGraph(t)
	tr := course.NewTracker(g)

	if got, ok := Start(g); !ok || got != pos("A", "A1") {
		t.Errorf("Start = %v, %v; want A/A1", got, ok)
	}

	_, _ = tr.MarkLessonCompleted("A", "A1")
	_, _ = tr.MarkLessonCompleted("A", "A2")
	if got, _ := Start(g); got != pos("B", "B1") {
		t.Errorf("Start = %v, want B/B1", got)
	}

	for _, p := range []course.Position{pos("B", "B1"), pos("C", "C1"), pos("C", "C2")} {
		_, _ = tr.MarkLessonCompleted(p.ModuleID, p.LessonID)
	}
	if got, ok := Start(g); !ok || got != pos("A", "A1") {
		t.Errorf("Start on completed course = %v, %v; want first lesson", got, ok)
	}

	empty, _ := course.NewGraph(course.Course{ID: "none"})
	if _, ok := Start(empty); ok {
		t.Error("Start on empty course should report no lesson")
	}
}
