// Package tracking is the course overview: modules with their lessons and
// progress, the certificate panel and course-level actions.
package tracking

import (
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/coursetrack/internal/course"
	"github.com/abhisek/coursetrack/internal/remote"
	"github.com/abhisek/coursetrack/internal/router"
	"github.com/abhisek/coursetrack/internal/screen"
	"github.com/abhisek/coursetrack/internal/screens/history"
	"github.com/abhisek/coursetrack/internal/screens/lesson"
	"github.com/abhisek/coursetrack/internal/session"
	"github.com/abhisek/coursetrack/internal/store"
	"github.com/abhisek/coursetrack/internal/ui/components"
	"github.com/abhisek/coursetrack/internal/ui/layout"
)

// TrackingScreen implements screen.Screen for the course overview.
type TrackingScreen struct {
	sess    *session.Session
	events  store.EventRepo
	lessons []course.Position
	cursor  int

	prompt   *components.TextInput
	showCert bool
}

var _ screen.Screen = (*TrackingScreen)(nil)
var _ screen.KeyHintProvider = (*TrackingScreen)(nil)
var _ screen.Resumer = (*TrackingScreen)(nil)
var _ screen.InputCapturer = (*TrackingScreen)(nil)

// New creates the overview for a loaded session. The cursor starts on the
// session's current lesson.
func New(sess *session.Session) *TrackingScreen {
	s := &TrackingScreen{sess: sess}
	s.refresh()
	return s
}

// WithActivity enables the activity log, read from events.
func (s *TrackingScreen) WithActivity(events store.EventRepo) *TrackingScreen {
	s.events = events
	return s
}

func (s *TrackingScreen) Init() tea.Cmd {
	return nil
}

func (s *TrackingScreen) Title() string {
	return "Course"
}

// Resume re-syncs with the session after the lesson screen is closed.
func (s *TrackingScreen) Resume() tea.Cmd {
	s.refresh()
	return nil
}

func (s *TrackingScreen) CapturingInput() bool {
	return s.prompt != nil
}

func (s *TrackingScreen) KeyHints() []layout.KeyHint {
	if s.prompt != nil {
		return []layout.KeyHint{
			{Key: "Enter", Description: "Go"},
			{Key: "Esc", Description: "Cancel"},
		}
	}
	hints := []layout.KeyHint{
		{Key: "↑↓", Description: "Move"},
		{Key: "Enter", Description: "Open"},
		{Key: "r", Description: "Resume"},
		{Key: "g", Description: "Go to"},
		{Key: "c", Description: "Certificate"},
		{Key: "R", Description: "Reload"},
	}
	if s.events != nil {
		hints = append(hints, layout.KeyHint{Key: "h", Description: "Activity"})
	}
	return hints
}

// refresh rebuilds the flattened lesson list from the current graph and
// moves the cursor to the current lesson.
func (s *TrackingScreen) refresh() {
	s.lessons = s.lessons[:0]
	for _, m := range s.sess.Graph().Modules() {
		for _, l := range m.Lessons {
			s.lessons = append(s.lessons, course.Position{ModuleID: m.ID, LessonID: l.ID})
		}
	}
	if cur, ok := s.sess.Current(); ok {
		s.cursorTo(cur)
	}
	s.cursor = min(s.cursor, max(len(s.lessons)-1, 0))
}

func (s *TrackingScreen) cursorTo(pos course.Position) {
	for i, p := range s.lessons {
		if p == pos {
			s.cursor = i
			return
		}
	}
}

func (s *TrackingScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case remote.SyncedMsg:
		switch msg.Kind {
		case remote.KindReload:
			s.refresh()
		case remote.KindCertificate:
			s.showCert = s.sess.HasCertificate()
		}
		return s, nil
	case tea.KeyPressMsg:
		if s.prompt != nil {
			return s.handlePromptKey(msg)
		}
		return s.handleKey(msg)
	}

	if s.prompt != nil {
		p, cmd := s.prompt.Update(msg)
		s.prompt = &p
		return s, cmd
	}
	return s, nil
}

func (s *TrackingScreen) handleKey(msg tea.KeyPressMsg) (screen.Screen, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if s.cursor > 0 {
			s.cursor--
		}
	case "down", "j":
		if s.cursor < len(s.lessons)-1 {
			s.cursor++
		}
	case "enter":
		return s, s.open()
	case "r":
		pos, ok := s.sess.Resume()
		if !ok {
			return s, screen.Notify("This course has no lessons yet.")
		}
		s.cursorTo(pos)
		return s, screen.Notify("Resuming at " + s.lessonTitle(pos))
	case "g":
		p := components.NewTextInput("Go to: ", "lesson id or module/lesson", 64)
		s.prompt = &p
		return s, p.Init()
	case "c":
		return s, s.certificate()
	case "R":
		return s, s.reload()
	case "h":
		if s.events != nil {
			return s, router.Push(history.New(s.events, s.sess.CourseID()))
		}
	}
	return s, nil
}

func (s *TrackingScreen) handlePromptKey(msg tea.KeyPressMsg) (screen.Screen, tea.Cmd) {
	switch msg.String() {
	case "esc":
		s.prompt = nil
		return s, nil
	case "enter":
		pos, ok := s.resolve(s.prompt.Value())
		if !ok {
			s.prompt.Submit(false)
			return s, screen.NotifyError("No lesson matches " + fmt.Sprintf("%q", s.prompt.Value()))
		}
		if err := s.sess.Select(pos.ModuleID, pos.LessonID); err != nil {
			s.prompt.Submit(false)
			return s, screen.NotifyError(err.Error())
		}
		s.prompt = nil
		s.cursorTo(pos)
		return s, router.Push(lesson.New(s.sess))
	}
	p, cmd := s.prompt.Update(msg)
	s.prompt = &p
	return s, cmd
}

// resolve accepts "module/lesson" or a bare lesson ID. A bare ID that
// appears in more than one module does not resolve.
func (s *TrackingScreen) resolve(input string) (course.Position, bool) {
	if input == "" {
		return course.Position{}, false
	}
	if m, l, ok := strings.Cut(input, "/"); ok {
		pos := course.Position{ModuleID: m, LessonID: l}
		return pos, s.sess.Graph().Contains(pos)
	}
	var found []course.Position
	for _, p := range s.lessons {
		if p.LessonID == input {
			found = append(found, p)
		}
	}
	if len(found) != 1 {
		return course.Position{}, false
	}
	return found[0], true
}

func (s *TrackingScreen) open() tea.Cmd {
	if len(s.lessons) == 0 {
		return screen.Notify("This course has no lessons yet.")
	}
	pos := s.lessons[s.cursor]
	if err := s.sess.Select(pos.ModuleID, pos.LessonID); err != nil {
		s.refresh()
		return screen.NotifyError(err.Error())
	}
	return router.Push(lesson.New(s.sess))
}

func (s *TrackingScreen) certificate() tea.Cmd {
	if s.sess.Eligibility().CanView {
		s.showCert = !s.showCert
		return nil
	}
	return remote.RequestCertificate(s.sess)
}

func (s *TrackingScreen) reload() tea.Cmd {
	return remote.Reload(s.sess)
}

func (s *TrackingScreen) lessonTitle(pos course.Position) string {
	l, err := s.sess.Graph().Lesson(pos.ModuleID, pos.LessonID)
	if err != nil || l.Title == "" {
		return pos.String()
	}
	return l.Title
}
