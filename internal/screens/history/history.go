// Package history lists the locally logged backend calls of a course.
package history

import (
	"context"
	"fmt"
	"image/color"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/coursetrack/internal/screen"
	"github.com/abhisek/coursetrack/internal/store"
	"github.com/abhisek/coursetrack/internal/ui/layout"
	"github.com/abhisek/coursetrack/internal/ui/theme"
)

// pageSize bounds the events loaded at once.
const pageSize = 100

type historyLoadedMsg struct {
	Events []store.ProgressEvent
	Err    error
}

var kindLabels = map[store.ProgressEventKind]string{
	store.KindCourseLoad:      "Course loaded",
	store.KindLessonCompleted: "Lesson completed",
	store.KindVideoProgress:   "Video progress",
	store.KindCompletionCheck: "Completion check",
	store.KindCertificate:     "Certificate",
}

// HistoryScreen displays recent backend calls of one course.
type HistoryScreen struct {
	eventRepo store.EventRepo
	courseID  string
	events    []store.ProgressEvent
	selected  int
	expanded  map[int]bool
	loaded    bool
	errMsg    string
}

var _ screen.Screen = (*HistoryScreen)(nil)
var _ screen.KeyHintProvider = (*HistoryScreen)(nil)

// New creates a new HistoryScreen for courseID.
func New(eventRepo store.EventRepo, courseID string) *HistoryScreen {
	return &HistoryScreen{
		eventRepo: eventRepo,
		courseID:  courseID,
		expanded:  make(map[int]bool),
	}
}

func (s *HistoryScreen) Init() tea.Cmd {
	repo, courseID := s.eventRepo, s.courseID
	return func() tea.Msg {
		events, err := repo.QueryProgressEvents(context.Background(), store.QueryOpts{
			Limit:    pageSize,
			CourseID: courseID,
		})
		return historyLoadedMsg{Events: events, Err: err}
	}
}

func (s *HistoryScreen) Title() string {
	return "Activity"
}

func (s *HistoryScreen) KeyHints() []layout.KeyHint {
	return []layout.KeyHint{
		{Key: "Enter", Description: "Details"},
		{Key: "↑↓", Description: "Navigate"},
	}
}

func (s *HistoryScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case historyLoadedMsg:
		if msg.Err != nil {
			s.errMsg = msg.Err.Error()
		} else {
			s.events = msg.Events
		}
		s.loaded = true
		return s, nil

	case tea.KeyPressMsg:
		switch msg.String() {
		case "up", "k":
			if s.selected > 0 {
				s.selected--
			}
		case "down", "j":
			if s.selected < len(s.events)-1 {
				s.selected++
			}
		case "enter":
			s.expanded[s.selected] = !s.expanded[s.selected]
		}
	}
	return s, nil
}

func (s *HistoryScreen) View(width, height int) string {
	if s.errMsg != "" {
		return lipgloss.NewStyle().
			Width(width).Align(lipgloss.Center).Foreground(theme.Error).
			Render(fmt.Sprintf("\n\nError: %s", s.errMsg))
	}
	if !s.loaded {
		return lipgloss.NewStyle().
			Width(width).Align(lipgloss.Center).Foreground(theme.TextDim).
			Render("\n\n  Loading activity...")
	}
	if len(s.events) == 0 {
		return lipgloss.NewStyle().
			Width(width).Align(lipgloss.Center).Foreground(theme.TextDim).Italic(true).
			Render("\n\n  No activity recorded for this course yet.")
	}

	var lines []string
	selectedLine := 0
	for i, e := range s.events {
		prefix := "  "
		if i == s.selected {
			prefix = "> "
			selectedLine = len(lines)
		}
		mark := "✓"
		if !e.Success {
			mark = "✗"
		}
		label := kindLabels[e.Kind]
		if label == "" {
			label = string(e.Kind)
		}
		line := fmt.Sprintf("%s%s  %s  %-17s %-14s %5dms",
			prefix, mark, e.Timestamp.Local().Format("Jan 02 15:04:05"), label, layout.Truncate(e.LessonID, 14), e.LatencyMs)

		style := lipgloss.NewStyle().Foreground(statusColor(e))
		if i == s.selected {
			style = style.Bold(true)
		}
		lines = append(lines, "  "+style.Render(line))

		if s.expanded[i] {
			lines = append(lines, s.details(e, width)...)
		}
	}

	visible := max(height-1, 1)
	start := 0
	if selectedLine >= visible {
		start = selectedLine - visible + 1
	}
	end := min(start+visible, len(lines))
	return "\n" + strings.Join(lines[start:end], "\n")
}

func (s *HistoryScreen) details(e store.ProgressEvent, width int) []string {
	dim := lipgloss.NewStyle().Foreground(theme.TextDim).Italic(true)
	var out []string
	if e.StatusCode != 0 {
		out = append(out, dim.Render(fmt.Sprintf("      HTTP %d", e.StatusCode)))
	}
	if e.ErrorMessage != "" {
		out = append(out, dim.Render("      "+layout.Truncate(e.ErrorMessage, width-10)))
	}
	if e.Detail != "" {
		out = append(out, dim.Render("      "+layout.Truncate(e.Detail, width-10)))
	}
	if len(out) == 0 {
		out = append(out, dim.Render("      No details"))
	}
	return out
}

func statusColor(e store.ProgressEvent) color.Color {
	switch {
	case !e.Success:
		return theme.Error
	case e.Kind == store.KindCertificate:
		return theme.Accent
	case e.Kind == store.KindLessonCompleted:
		return theme.Success
	default:
		return theme.Text
	}
}
