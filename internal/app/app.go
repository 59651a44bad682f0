// Package app hosts the root Bubble Tea model: a screen stack framed by a
// header with course progress and a footer with key hints or notices.
package app

import (
	"context"
	"fmt"
	"time"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/coursetrack/internal/logger"
	"github.com/abhisek/coursetrack/internal/remote"
	"github.com/abhisek/coursetrack/internal/router"
	"github.com/abhisek/coursetrack/internal/screen"
	"github.com/abhisek/coursetrack/internal/screens/loading"
	"github.com/abhisek/coursetrack/internal/screens/tracking"
	"github.com/abhisek/coursetrack/internal/session"
	"github.com/abhisek/coursetrack/internal/store"
	"github.com/abhisek/coursetrack/internal/ui/layout"
)

// noticeTTL is how long a footer notice stays visible.
const noticeTTL = 4 * time.Second

type clearNoticeMsg struct{ id int }

// AppModel is the root Bubble Tea model.
type AppModel struct {
	router   *router.Router
	sess     *session.Session
	events   store.EventRepo
	log      *logger.Logger
	notice   layout.Notice
	noticeID int
	width    int
	height   int
}

// newAppModel creates an AppModel that starts on the loading screen.
// events may be nil, which hides the activity log.
func newAppModel(load loading.LoadFunc, events store.EventRepo, log *logger.Logger) AppModel {
	return AppModel{
		router: router.New(loading.New(load)),
		events: events,
		log:    log,
	}
}

func (m AppModel) Init() tea.Cmd {
	if active := m.router.Active(); active != nil {
		return active.Init()
	}
	return nil
}

func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case loading.LoadedMsg:
		m.sess = msg.Session
		m.log.Info("course loaded", "course", msg.Session.CourseID(), "session", msg.Session.ID())
		return m, m.router.Replace(tracking.New(msg.Session).WithActivity(m.events))

	case screen.NoticeMsg:
		m.notice = layout.Notice(msg)
		m.noticeID++
		id := m.noticeID
		return m, tea.Tick(noticeTTL, func(time.Time) tea.Msg { return clearNoticeMsg{id: id} })

	case clearNoticeMsg:
		if msg.id == m.noticeID {
			m.notice = layout.Notice{}
		}
		return m, nil

	case tea.KeyPressMsg:
		capturing := false
		if c, ok := m.router.Active().(screen.InputCapturer); ok {
			capturing = c.CapturingInput()
		}
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "q":
			if !capturing {
				return m, tea.Quit
			}
		case "esc":
			if !capturing && m.router.Depth() > 1 {
				return m, router.Pop
			}
		}
	}

	if m.sess != nil {
		if cmd, ok := remote.Apply(m.sess, msg); ok {
			return m, cmd
		}
	}

	cmd := m.router.Update(msg)
	return m, cmd
}

func (m AppModel) View() tea.View {
	v := tea.NewView("")
	v.AltScreen = true

	if m.width == 0 || m.height == 0 {
		return v
	}

	if layout.IsTooSmall(m.width, m.height) {
		v.SetContent(layout.RenderMinSizeMessage(m.width, m.height))
		return v
	}

	h := layout.Header{}
	if active := m.router.Active(); active != nil {
		h.Screen = active.Title()
	}
	if m.sess != nil {
		h.Loaded = true
		h.CourseTitle = m.sess.Graph().Title()
		h.Percentage = m.sess.Stats().CompletionPercentage
	}
	header := layout.RenderHeader(h, m.width)

	footerHints := []layout.KeyHint{{Key: "q", Description: "Quit"}}
	if p, ok := m.router.Active().(screen.KeyHintProvider); ok {
		footerHints = append(p.KeyHints(), footerHints...)
	}
	if m.router.Depth() > 1 {
		footerHints = append(footerHints, layout.KeyHint{Key: "Esc", Description: "Back"})
	}
	footer := layout.RenderFooter(footerHints, m.notice, m.width)

	contentHeight := max(m.height-lipgloss.Height(header)-lipgloss.Height(footer), 0)
	content := m.router.View(m.width, contentHeight)

	v.SetContent(layout.RenderFrame(header, content, footer, m.width, m.height))
	return v
}

// Run starts the Bubble Tea program and closes the session on exit.
func Run(ctx context.Context, load loading.LoadFunc, events store.EventRepo, log *logger.Logger) error {
	if log == nil {
		log = logger.NewNop()
	}
	p := tea.NewProgram(newAppModel(load, events, log), tea.WithContext(ctx))
	final, err := p.Run()
	if m, ok := final.(AppModel); ok && m.sess != nil {
		m.sess.Close()
		log.Info("session closed", "session", m.sess.ID(), "percentage", m.sess.Stats().CompletionPercentage)
	}
	if err != nil {
		return fmt.Errorf("run program: %w", err)
	}
	return nil
}
