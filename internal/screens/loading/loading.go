// Package loading shows progress while the course session is fetched and
// offers a retry when it fails.
package loading

import (
	"context"
	"errors"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/coursetrack/internal/api"
	"github.com/abhisek/coursetrack/internal/course"
	"github.com/abhisek/coursetrack/internal/screen"
	"github.com/abhisek/coursetrack/internal/session"
	"github.com/abhisek/coursetrack/internal/ui/layout"
	"github.com/abhisek/coursetrack/internal/ui/theme"
)

// LoadFunc loads a course session.
type LoadFunc func(ctx context.Context) (*session.Session, error)

// LoadedMsg is sent once the session is ready.
type LoadedMsg struct {
	Session *session.Session
}

type failedMsg struct{ err error }

// LoadingScreen runs a LoadFunc and reports the outcome.
type LoadingScreen struct {
	load    LoadFunc
	err     error
	running bool
}

var _ screen.Screen = (*LoadingScreen)(nil)
var _ screen.KeyHintProvider = (*LoadingScreen)(nil)

// New creates a loading screen for load.
func New(load LoadFunc) *LoadingScreen {
	return &LoadingScreen{load: load}
}

func (s *LoadingScreen) Init() tea.Cmd {
	return s.start()
}

func (s *LoadingScreen) Title() string {
	return "Loading"
}

func (s *LoadingScreen) KeyHints() []layout.KeyHint {
	if s.err != nil {
		return []layout.KeyHint{{Key: "r", Description: "Retry"}}
	}
	return nil
}

func (s *LoadingScreen) start() tea.Cmd {
	s.running = true
	s.err = nil
	load := s.load
	return func() tea.Msg {
		sess, err := load(context.Background())
		if err != nil {
			return failedMsg{err: err}
		}
		return LoadedMsg{Session: sess}
	}
}

func (s *LoadingScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case failedMsg:
		s.running = false
		s.err = msg.err
		return s, nil
	case tea.KeyPressMsg:
		if msg.String() == "r" && s.err != nil && !s.running {
			return s, s.start()
		}
	}
	return s, nil
}

func (s *LoadingScreen) View(width, height int) string {
	style := lipgloss.NewStyle().Width(width).Height(height).Align(lipgloss.Center, lipgloss.Center)
	if s.err == nil {
		return style.Foreground(theme.TextDim).Render("Loading course…")
	}
	return style.Render(
		theme.Failure.Render("Could not load the course") + "\n\n" +
			theme.Body.Render(describe(s.err)) + "\n\n" +
			theme.Hint.Render("Press r to retry or q to quit"),
	)
}

// describe turns a load failure into a message for the learner.
func describe(err error) string {
	switch {
	case errors.Is(err, course.ErrDuplicateID):
		return "The course data is inconsistent: " + err.Error()
	default:
		return api.UserMessage(err)
	}
}
