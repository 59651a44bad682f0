// Package lesson shows one lesson with its resources, simulates video
// playback and lets the learner mark it completed.
package lesson

import (
	"sync/atomic"
	"time"

	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/coursetrack/internal/course"
	"github.com/abhisek/coursetrack/internal/remote"
	"github.com/abhisek/coursetrack/internal/screen"
	"github.com/abhisek/coursetrack/internal/session"
	"github.com/abhisek/coursetrack/internal/ui/layout"
)

const (
	// defaultVideoSecs is used when a video lesson has no duration.
	defaultVideoSecs = 5 * 60

	seekStepSecs = 10
)

// tickGen tells tick chains of different screen instances apart.
var tickGen atomic.Int64

// tickMsg advances simulated playback by one second.
type tickMsg struct{ gen int64 }

// LessonScreen implements screen.Screen for the current lesson.
type LessonScreen struct {
	sess *session.Session
	gen  int64

	pos      course.Position
	lesson   course.Lesson
	module   string
	playing  bool
	position float64
	duration float64
}

var _ screen.Screen = (*LessonScreen)(nil)
var _ screen.KeyHintProvider = (*LessonScreen)(nil)

// New creates a screen for the session's current lesson.
func New(sess *session.Session) *LessonScreen {
	s := &LessonScreen{sess: sess, gen: tickGen.Add(1)}
	s.bind()
	return s
}

func (s *LessonScreen) Init() tea.Cmd {
	return s.tick()
}

func (s *LessonScreen) Title() string {
	return "Lesson"
}

func (s *LessonScreen) KeyHints() []layout.KeyHint {
	var hints []layout.KeyHint
	if s.isVideo() {
		label := "Play"
		if s.playing {
			label = "Pause"
		}
		hints = append(hints,
			layout.KeyHint{Key: "Space", Description: label},
			layout.KeyHint{Key: "←→", Description: "Seek"},
		)
	}
	return append(hints,
		layout.KeyHint{Key: "m", Description: "Complete"},
		layout.KeyHint{Key: "n/p", Description: "Next/Prev"},
	)
}

// bind loads the session's current lesson and restores its stored
// playback position.
func (s *LessonScreen) bind() {
	s.playing = false
	s.position = 0
	pos, ok := s.sess.Current()
	if !ok {
		s.pos = course.Position{}
		s.lesson = course.Lesson{}
		return
	}
	s.pos = pos
	s.lesson, _ = s.sess.Graph().Lesson(pos.ModuleID, pos.LessonID)
	if m, err := s.sess.Graph().Module(pos.ModuleID); err == nil {
		s.module = m.Name
	}

	s.duration = float64(s.lesson.DurationMinutes * 60)
	if s.duration <= 0 {
		s.duration = defaultVideoSecs
	}
	if ws, ok := s.sess.WatchState(pos); ok {
		s.duration = ws.DurationSecs
		if ws.PositionSecs < ws.DurationSecs {
			s.position = ws.PositionSecs
		}
	}
}

func (s *LessonScreen) isVideo() bool {
	return !s.pos.IsZero() && s.lesson.Type == course.LessonVideo
}

func (s *LessonScreen) tick() tea.Cmd {
	gen := s.gen
	return tea.Tick(time.Second, func(time.Time) tea.Msg { return tickMsg{gen: gen} })
}

func (s *LessonScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		if msg.gen != s.gen {
			return s, nil
		}
		if !s.playing {
			return s, s.tick()
		}
		return s, tea.Batch(s.seek(1), s.tick())

	case remote.SyncedMsg:
		s.resync()
		return s, nil

	case tea.KeyPressMsg:
		return s.handleKey(msg)
	}
	return s, nil
}

func (s *LessonScreen) handleKey(msg tea.KeyPressMsg) (screen.Screen, tea.Cmd) {
	switch msg.String() {
	case "space", " ":
		if !s.isVideo() {
			return s, screen.Notify("This lesson has no video.")
		}
		if s.position >= s.duration {
			s.position = 0
		}
		s.playing = !s.playing
	case "right", "l":
		if s.isVideo() {
			return s, s.seek(seekStepSecs)
		}
	case "left", "h":
		if s.isVideo() {
			return s, s.seek(-seekStepSecs)
		}
	case "m":
		return s, s.complete()
	case "n":
		if !s.sess.Next() {
			return s, screen.Notify("This is the last lesson.")
		}
		s.bind()
	case "p":
		if !s.sess.Previous() {
			return s, screen.Notify("This is the first lesson.")
		}
		s.bind()
	}
	return s, nil
}

// seek moves playback by delta seconds and records the new position.
// Playback stops at the end of the video.
func (s *LessonScreen) seek(delta float64) tea.Cmd {
	s.position = min(max(s.position+delta, 0), s.duration)
	if s.position >= s.duration {
		s.playing = false
	}
	if _, err := s.sess.ObservePlayback(s.pos, s.position, s.duration); err != nil {
		s.playing = false
		return screen.NotifyError(err.Error())
	}
	return nil
}

// complete marks the lesson completed locally, then persists it in the
// background.
func (s *LessonScreen) complete() tea.Cmd {
	if s.pos.IsZero() {
		return nil
	}
	if s.lesson.Completed {
		return screen.Notify("Lesson already completed.")
	}
	cmd := remote.Complete(s.sess)
	s.lesson, _ = s.sess.Graph().Lesson(s.pos.ModuleID, s.pos.LessonID)
	return cmd
}

// resync follows the session after a backend result was applied. A reload
// may have moved the current lesson.
func (s *LessonScreen) resync() {
	cur, ok := s.sess.Current()
	if !ok || cur != s.pos {
		s.bind()
		return
	}
	if l, err := s.sess.Graph().Lesson(cur.ModuleID, cur.LessonID); err == nil {
		s.lesson = l
	}
}
