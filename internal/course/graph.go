package course

import (
	"fmt"
	"strings"
)

// lessonRef locates a lesson by module and lesson index.
type lessonRef struct {
	module int
	lesson int
}

// Graph is the structural model of one course. Structure is fixed at
// construction; only the Completed flag of existing lessons changes, and
// only through a Tracker.
type Graph struct {
	id           string
	title        string
	hasFinalExam bool
	modules      []Module
	moduleIndex  map[string]int
	lessonIndex  map[Position]lessonRef
}

// NewGraph builds a graph from a course. The course is deep-copied so the
// caller keeps no mutable reference into the tree.
func NewGraph(c Course) (*Graph, error) {
	if err := validateCourse(c); err != nil {
		return nil, err
	}

	g := &Graph{
		id:           c.ID,
		title:        c.Title,
		hasFinalExam: c.HasFinalExam,
		modules:      make([]Module, len(c.Modules)),
		moduleIndex:  make(map[string]int, len(c.Modules)),
		lessonIndex:  make(map[Position]lessonRef),
	}
	for mi, m := range c.Modules {
		g.modules[mi] = cloneModule(m)
		g.moduleIndex[m.ID] = mi
		for li, l := range m.Lessons {
			g.lessonIndex[Position{ModuleID: m.ID, LessonID: l.ID}] = lessonRef{module: mi, lesson: li}
		}
	}
	return g, nil
}

// validateCourse rejects duplicate module IDs and duplicate lesson IDs
// within a module, reporting every problem found.
func validateCourse(c Course) error {
	var errs []string
	modules := make(map[string]bool, len(c.Modules))
	for _, m := range c.Modules {
		if modules[m.ID] {
			errs = append(errs, fmt.Sprintf("module %q", m.ID))
		}
		modules[m.ID] = true

		lessons := make(map[string]bool, len(m.Lessons))
		for _, l := range m.Lessons {
			if lessons[l.ID] {
				errs = append(errs, fmt.Sprintf("lesson %q in module %q", l.ID, m.ID))
			}
			lessons[l.ID] = true
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", ErrDuplicateID, strings.Join(errs, "; "))
	}
	return nil
}

// ID returns the course identifier.
func (g *Graph) ID() string { return g.id }

// Title returns the course title.
func (g *Graph) Title() string { return g.title }

// HasFinalExam reports whether the course ends with a final exam.
func (g *Graph) HasFinalExam() bool { return g.hasFinalExam }

// Course returns a deep copy of the whole tree.
func (g *Graph) Course() Course {
	c := Course{ID: g.id, Title: g.title, HasFinalExam: g.hasFinalExam, Modules: make([]Module, len(g.modules))}
	for i, m := range g.modules {
		c.Modules[i] = cloneModule(m)
	}
	return c
}

// Modules returns copies of all modules in order.
func (g *Graph) Modules() []Module {
	return g.Course().Modules
}

// Module returns a copy of the module with the given ID.
func (g *Graph) Module(id string) (Module, error) {
	mi, ok := g.moduleIndex[id]
	if !ok {
		return Module{}, fmt.Errorf("%w: %q", ErrModuleNotFound, id)
	}
	return cloneModule(g.modules[mi]), nil
}

// Lesson returns a copy of the lesson at (moduleID, lessonID).
func (g *Graph) Lesson(moduleID, lessonID string) (Lesson, error) {
	ref, err := g.locate(Position{ModuleID: moduleID, LessonID: lessonID})
	if err != nil {
		return Lesson{}, err
	}
	return cloneLesson(g.modules[ref.module].Lessons[ref.lesson]), nil
}

// Contains reports whether pos resolves to a lesson in the graph.
func (g *Graph) Contains(pos Position) bool {
	_, ok := g.lessonIndex[pos]
	return ok
}

// FindFirstIncompleteLesson scans modules in order, and lessons in order
// within each module, returning the first lesson not yet completed. This
// is the canonical resume point.
func (g *Graph) FindFirstIncompleteLesson() (Position, bool) {
	for _, m := range g.modules {
		for _, l := range m.Lessons {
			if !l.Completed {
				return Position{ModuleID: m.ID, LessonID: l.ID}, true
			}
		}
	}
	return Position{}, false
}

// FirstLesson returns the first lesson of the first non-empty module.
func (g *Graph) FirstLesson() (Position, bool) {
	for _, m := range g.modules {
		if len(m.Lessons) > 0 {
			return Position{ModuleID: m.ID, LessonID: m.Lessons[0].ID}, true
		}
	}
	return Position{}, false
}

// ComputeStats sums lessons and completed lessons across all modules.
func (g *Graph) ComputeStats() Stats {
	total, completed := 0, 0
	for _, m := range g.modules {
		total += m.TotalLessons()
		completed += m.CompletedLessons()
	}
	return newStats(total, completed)
}

// ModuleCount returns the number of modules.
func (g *Graph) ModuleCount() int { return len(g.modules) }

// ModuleAt returns the ID and lesson IDs of the module at index i.
func (g *Graph) ModuleAt(i int) (string, []string, bool) {
	if i < 0 || i >= len(g.modules) {
		return "", nil, false
	}
	m := g.modules[i]
	ids := make([]string, len(m.Lessons))
	for j, l := range m.Lessons {
		ids[j] = l.ID
	}
	return m.ID, ids, true
}

// IndexOf returns the module and lesson indices of pos.
func (g *Graph) IndexOf(pos Position) (moduleIdx, lessonIdx int, err error) {
	ref, err := g.locate(pos)
	if err != nil {
		return 0, 0, err
	}
	return ref.module, ref.lesson, nil
}

func (g *Graph) locate(pos Position) (lessonRef, error) {
	if ref, ok := g.lessonIndex[pos]; ok {
		return ref, nil
	}
	if _, ok := g.moduleIndex[pos.ModuleID]; !ok {
		return lessonRef{}, fmt.Errorf("%w: module %q", ErrLessonNotFound, pos.ModuleID)
	}
	return lessonRef{}, fmt.Errorf("%w: %q in module %q", ErrLessonNotFound, pos.LessonID, pos.ModuleID)
}

// setCompleted flips a lesson to completed and reports whether it changed.
func (g *Graph) setCompleted(pos Position) (bool, error) {
	ref, err := g.locate(pos)
	if err != nil {
		return false, err
	}
	l := &g.modules[ref.module].Lessons[ref.lesson]
	if l.Completed {
		return false, nil
	}
	l.Completed = true
	return true, nil
}
