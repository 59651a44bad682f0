// Package navigation computes lesson-to-lesson movement across module
// boundaries. It never changes completion state.
package navigation

import (
	"github.com/abhisek/coursetrack/internal/course"
)

// Next returns the lesson after cur: the following lesson in the same
// module, else the first lesson of the next module that has lessons.
// Returns false at the end of the course or when cur does not resolve.
func Next(g *course.Graph, cur course.Position) (course.Position, bool) {
	mi, li, err := g.IndexOf(cur)
	if err != nil {
		return course.Position{}, false
	}

	moduleID, lessons, _ := g.ModuleAt(mi)
	if li+1 < len(lessons) {
		return course.Position{ModuleID: moduleID, LessonID: lessons[li+1]}, true
	}
	for i := mi + 1; i < g.ModuleCount(); i++ {
		id, lessons, _ := g.ModuleAt(i)
		if len(lessons) > 0 {
			return course.Position{ModuleID: id, LessonID: lessons[0]}, true
		}
	}
	return course.Position{}, false
}

// Previous returns the lesson before cur: the preceding lesson in the same
// module, else the last lesson of the previous module that has lessons.
// Returns false at the start of the course or when cur does not resolve.
func Previous(g *course.Graph, cur course.Position) (course.Position, bool) {
	mi, li, err := g.IndexOf(cur)
	if err != nil {
		return course.Position{}, false
	}

	moduleID, lessons, _ := g.ModuleAt(mi)
	if li > 0 {
		return course.Position{ModuleID: moduleID, LessonID: lessons[li-1]}, true
	}
	for i := mi - 1; i >= 0; i-- {
		id, lessons, _ := g.ModuleAt(i)
		if len(lessons) > 0 {
			return course.Position{ModuleID: id, LessonID: lessons[len(lessons)-1]}, true
		}
	}
	return course.Position{}, false
}

// Select validates a lesson chosen by the user. A target that no longer
// exists in the graph fails with course.ErrLessonNotFound.
func Select(g *course.Graph, moduleID, lessonID string) (course.Position, error) {
	pos := course.Position{ModuleID: moduleID, LessonID: lessonID}
	if _, _, err := g.IndexOf(pos); err != nil {
		return course.Position{}, err
	}
	return pos, nil
}

// Start returns where a new viewing session should open: the resume point,
// or the first lesson when everything is already complete.
func Start(g *course.Graph) (course.Position, bool) {
	if pos, ok := g.FindFirstIncompleteLesson(); ok {
		return pos, true
	}
	return g.FirstLesson()
}
