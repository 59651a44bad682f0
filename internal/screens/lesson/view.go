package lesson

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/coursetrack/internal/ui/components"
	"github.com/abhisek/coursetrack/internal/ui/layout"
	"github.com/abhisek/coursetrack/internal/ui/theme"
)

func (s *LessonScreen) View(width, height int) string {
	if s.pos.IsZero() {
		return lipgloss.NewStyle().
			Width(width).
			Align(lipgloss.Center).
			Foreground(theme.TextDim).
			Render("\n\n  No lesson selected")
	}

	var b strings.Builder
	t := components.LessonType(s.lesson.Type)

	b.WriteString("\n  ")
	b.WriteString(theme.Subtitle.Render(layout.Truncate(s.module, width-6)))
	b.WriteString("\n  ")
	title := s.lesson.Title
	if title == "" {
		title = s.lesson.ID
	}
	b.WriteString(theme.Title.Render(layout.Truncate(title, width-6)))
	b.WriteString("\n  ")

	meta := []string{t.Icon + " " + t.Label}
	if s.lesson.DurationMinutes > 0 {
		meta = append(meta, fmt.Sprintf("%d min", s.lesson.DurationMinutes))
	}
	if s.lesson.Completed {
		meta = append(meta, theme.Completed.Render("✓ Completed"))
	} else {
		meta = append(meta, "Not completed")
	}
	if s.sess.PendingCompletions() > 0 {
		meta = append(meta, theme.Hint.Render("saving…"))
	}
	b.WriteString(theme.Body.Render(strings.Join(meta, "  ·  ")))
	b.WriteString("\n")
	b.WriteString(lipgloss.NewStyle().Foreground(theme.Border).Render("  " + strings.Repeat("─", max(width-4, 0))))
	b.WriteString("\n\n")

	if s.isVideo() {
		b.WriteString(s.renderPlayer(width))
		b.WriteString("\n\n")
	}

	b.WriteString(s.renderResources(width))
	return b.String()
}

func (s *LessonScreen) renderPlayer(width int) string {
	var b strings.Builder
	state := "❚❚ Paused"
	if s.playing {
		state = "▶ Playing"
	}
	pct := 0
	if s.duration > 0 {
		pct = int(100 * s.position / s.duration)
	}
	b.WriteString("  " + theme.Warning.Render(state) + "  " +
		theme.Body.Render(clock(s.position)+" / "+clock(s.duration)))
	b.WriteString("\n  ")
	b.WriteString(components.NewProgressBar("", pct, true, width-6).View())
	if s.lesson.VideoURL != "" {
		b.WriteString("\n  ")
		b.WriteString(theme.Hint.Render(layout.Truncate(s.lesson.VideoURL, width-6)))
	}
	return b.String()
}

func (s *LessonScreen) renderResources(width int) string {
	if len(s.lesson.Resources) == 0 {
		return theme.Hint.Render("  No resources for this lesson")
	}
	var b strings.Builder
	b.WriteString("  " + theme.Body.Bold(true).Render("Resources"))
	for _, r := range s.lesson.Resources {
		rt := components.ResourceType(r.Type)
		title := r.Title
		if title == "" {
			title = r.ID
		}
		b.WriteString(fmt.Sprintf("\n  %s %s  ", rt.Icon, layout.Truncate(title, width/2)))
		b.WriteString(theme.Hint.Render(layout.Truncate(r.URL(), width/2-4)))
	}
	return b.String()
}

// clock formats seconds as m:ss.
func clock(secs float64) string {
	total := int(secs)
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}
