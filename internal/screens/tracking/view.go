package tracking

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/coursetrack/internal/course"
	"github.com/abhisek/coursetrack/internal/ui/components"
	"github.com/abhisek/coursetrack/internal/ui/layout"
	"github.com/abhisek/coursetrack/internal/ui/theme"
)

func (s *TrackingScreen) View(width, height int) string {
	stats := s.sess.Stats()

	var top strings.Builder
	top.WriteString("\n  ")
	top.WriteString(components.NewProgressBar("Course", stats.CompletionPercentage, true, width-6).View())
	top.WriteString("\n  ")
	top.WriteString(theme.Subtitle.Render(fmt.Sprintf("%d of %d lessons complete · %d remaining",
		stats.CompletedLessons, stats.TotalLessons, stats.RemainingLessons)))
	top.WriteString("\n")

	panel := s.renderPanel(width - 4)
	bottom := "\n" + lipgloss.NewStyle().PaddingLeft(2).Render(panel)
	if s.prompt != nil {
		bottom += "\n\n  " + s.prompt.View()
	}

	listHeight := max(height-lipgloss.Height(top.String())-lipgloss.Height(bottom)-1, 3)
	list := s.renderLessons(width, listHeight)

	return top.String() + "\n" + list + bottom
}

// renderLessons renders module headers and lesson rows, scrolled so the
// cursor stays visible.
func (s *TrackingScreen) renderLessons(width, height int) string {
	var lines []string
	cursorLine := 0
	cur, hasCur := s.sess.Current()
	idx := 0

	for _, m := range s.sess.Graph().Modules() {
		header := fmt.Sprintf("  %s", layout.Truncate(moduleName(m), width/2))
		bar := components.NewProgressBar("", m.Progress(), true, min(30, width/3)).View()
		gap := max(width-lipgloss.Width(header)-lipgloss.Width(bar)-4, 1)
		lines = append(lines, theme.Title.Render(header)+strings.Repeat(" ", gap)+bar)

		if len(m.Lessons) == 0 {
			lines = append(lines, theme.Hint.Render("      No lessons yet"))
		}
		for _, l := range m.Lessons {
			pos := course.Position{ModuleID: m.ID, LessonID: l.ID}
			if idx == s.cursor {
				cursorLine = len(lines)
			}
			lines = append(lines, s.renderLesson(pos, l, idx == s.cursor, hasCur && cur == pos, width))
			idx++
		}
		lines = append(lines, "")
	}

	if len(lines) == 0 {
		return theme.Hint.Render("  This course has no modules yet.")
	}

	start := 0
	if cursorLine >= height {
		start = cursorLine - height + 2
	}
	end := min(start+height, len(lines))
	return strings.Join(lines[start:end], "\n")
}

func (s *TrackingScreen) renderLesson(pos course.Position, l course.Lesson, selected, current bool, width int) string {
	marker := "  "
	if selected {
		marker = "▸ "
	}
	t := components.LessonType(l.Type)
	check := components.Checkmark(l.Completed)

	title := layout.Truncate(l.Title, width/2)
	if title == "" {
		title = l.ID
	}
	line := fmt.Sprintf("    %s%s %s %s", marker, check, t.Icon, title)

	var meta []string
	if l.DurationMinutes > 0 {
		meta = append(meta, fmt.Sprintf("%d min", l.DurationMinutes))
	}
	if ws, ok := s.sess.WatchState(pos); ok && !l.Completed {
		meta = append(meta, fmt.Sprintf("%d%% watched", int(ws.PlayedFraction*100)))
	}
	if current {
		meta = append(meta, "current")
	}
	suffix := ""
	if len(meta) > 0 {
		suffix = "  " + theme.Hint.Render(strings.Join(meta, " · "))
	}

	switch {
	case selected:
		return theme.Selected.Render(line) + suffix
	case l.Completed:
		return theme.Completed.Render(line) + suffix
	default:
		return theme.Unselected.Render(line) + suffix
	}
}

// renderPanel renders certificate and final exam eligibility.
func (s *TrackingScreen) renderPanel(width int) string {
	e := s.sess.Eligibility()
	stats := s.sess.Stats()

	var b strings.Builder
	switch {
	case e.CanView:
		b.WriteString(theme.Completed.Render("✓ Certificate issued"))
		if cert, ok := s.sess.Certificate(); ok && s.showCert {
			number := cert.CertificateNumber
			if number == "" {
				number = string(cert.ID)
			}
			b.WriteString("\n  Number: " + number)
			if !cert.IssuedAt.IsZero() {
				b.WriteString("\n  Issued: " + cert.IssuedAt.Format("2006-01-02"))
			}
		} else if !s.showCert {
			b.WriteString(theme.Hint.Render("  (c to view)"))
		}
	case e.CanRequest:
		if s.sess.CertificateRequestInFlight() {
			b.WriteString(theme.Warning.Render("… Requesting certificate"))
		} else {
			b.WriteString(theme.Warning.Render("★ Certificate available"))
			b.WriteString(theme.Hint.Render("  (c to request)"))
		}
	default:
		b.WriteString(theme.Locked.Render(fmt.Sprintf("○ Certificate locked · %d lessons remaining", stats.RemainingLessons)))
	}

	b.WriteString("\n")
	switch {
	case !s.sess.Graph().HasFinalExam():
		b.WriteString(theme.Locked.Render("  No final exam"))
	case e.FinalExamUnlocked:
		b.WriteString(theme.Completed.Render("✓ Final exam unlocked"))
	default:
		b.WriteString(theme.Locked.Render("○ Final exam unlocks when the course is complete"))
	}

	if st, ok := s.sess.CompletionStatus(); ok && st.IsCompleted != e.IsComplete {
		b.WriteString("\n")
		b.WriteString(theme.Failure.Render("! Server progress differs from this view (R to reload)"))
	}

	return theme.Card.Width(width).Render(b.String())
}

func moduleName(m course.Module) string {
	if m.Name != "" {
		return m.Name
	}
	return m.ID
}
