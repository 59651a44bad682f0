package lesson

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/coursetrack/internal/api"
	"github.com/abhisek/coursetrack/internal/course"
	"github.com/abhisek/coursetrack/internal/remote"
	"github.com/abhisek/coursetrack/internal/screen"
	"github.com/abhisek/coursetrack/internal/session"
)

func keyPress(r rune) tea.KeyPressMsg {
	return tea.KeyPressMsg{Code: r, Text: string(r)}
}

func specialKey(code rune) tea.KeyPressMsg {
	return tea.KeyPressMsg{Code: code}
}

func testCourse() course.Course {
	return course.Course{
		ID:    "c1",
		Title: "Test Course",
		Modules: []course.Module{
			{ID: "A", Name: "Alpha", Lessons: []course.Lesson{
				{ID: "A1", Title: "Intro video", Type: course.LessonVideo, DurationMinutes: 2,
					Resources: []course.Resource{{ID: "r1", Title: "Slides", Type: course.ResourceDocument, FileURL: "/slides.pdf"}}},
				{ID: "A2", Title: "Reading notes", Type: course.LessonReading},
			}},
			{ID: "B", Name: "Beta", Lessons: []course.Lesson{
				{ID: "B1", Title: "Deep dive", Type: course.LessonVideo},
			}},
		},
	}
}

func testLessonScreen(t *testing.T) (*LessonScreen, *session.Session, *api.MockBackend) {
	t.Helper()
	mock := api.NewMockBackend(testCourse())
	sess, err := session.Load(context.Background(), session.Deps{Backend: mock, ReportTimeout: time.Second}, "c1")
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	t.Cleanup(sess.Close)
	return New(sess), sess, mock
}

func TestLessonScreen_BindsCurrentLesson(t *testing.T) {
	s, _, _ := testLessonScreen(t)

	if s.pos != (course.Position{ModuleID: "A", LessonID: "A1"}) {
		t.Fatalf("pos = %v, want A/A1", s.pos)
	}
	if s.duration != 120 {
		t.Errorf("duration = %v, want 120", s.duration)
	}
	view := s.View(80, 24)
	for _, want := range []string{"Intro video", "Slides", "0:00 / 2:00"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestLessonScreen_PlaybackTicks(t *testing.T) {
	s, sess, _ := testLessonScreen(t)

	var scr screen.Screen = s
	scr, _ = scr.Update(keyPress(' '))
	if !s.playing {
		t.Fatal("expected playback to start")
	}

	for range 3 {
		_, cmd := scr.Update(tickMsg{gen: s.gen})
		if cmd == nil {
			t.Fatal("tick chain should continue")
		}
	}
	if s.position != 3 {
		t.Errorf("position = %v, want 3", s.position)
	}
	ws, ok := sess.WatchState(s.pos)
	if !ok || ws.PositionSecs != 3 {
		t.Errorf("watch state = %+v", ws)
	}
	if sess.Stats().CompletedLessons != 0 {
		t.Error("playback must not complete the lesson")
	}
}

func TestLessonScreen_StaleTickIgnored(t *testing.T) {
	s, _, _ := testLessonScreen(t)
	s.playing = true

	_, cmd := s.Update(tickMsg{gen: s.gen - 1})
	if cmd != nil {
		t.Error("stale tick should end its chain")
	}
	if s.position != 0 {
		t.Errorf("stale tick advanced playback to %v", s.position)
	}
}

func TestLessonScreen_SeekReportsProgress(t *testing.T) {
	s, sess, mock := testLessonScreen(t)

	s.Update(specialKey(tea.KeyRight))
	if s.position != 10 {
		t.Fatalf("position = %v, want 10", s.position)
	}
	for range 20 {
		s.Update(specialKey(tea.KeyRight))
	}
	if s.position != s.duration || s.playing {
		t.Errorf("seek past end: position %v playing %v", s.position, s.playing)
	}
	sess.Close()

	// 10..120 every 10 seconds, with the near-end report landing on 120.
	if got := mock.ReportCount(); got != 12 {
		t.Errorf("reports = %d, want 12", got)
	}
}

func TestLessonScreen_ReadingHasNoPlayer(t *testing.T) {
	s, sess, _ := testLessonScreen(t)
	if err := sess.Select("A", "A2"); err != nil {
		t.Fatalf("select: %v", err)
	}
	s.bind()

	_, cmd := s.Update(keyPress(' '))
	if s.playing {
		t.Error("reading lesson must not play")
	}
	if cmd == nil {
		t.Error("expected a notice for a non-video lesson")
	}
	if strings.Contains(s.View(80, 24), "Paused") {
		t.Error("reading lesson should not render a player")
	}
}

func TestLessonScreen_CompleteIsOptimistic(t *testing.T) {
	s, sess, _ := testLessonScreen(t)

	_, cmd := s.Update(keyPress('m'))
	if cmd == nil {
		t.Fatal("expected persistence command")
	}
	if !s.lesson.Completed || sess.PendingCompletions() != 1 {
		t.Errorf("completed = %v pending = %d", s.lesson.Completed, sess.PendingCompletions())
	}
	if sess.Stats().CompletedLessons != 1 {
		t.Fatalf("stats = %+v", sess.Stats())
	}
	if !strings.Contains(s.View(80, 24), "saving") {
		t.Error("view should show the unconfirmed completion")
	}

	failed := remote.CompletionMsg{
		Pos: s.pos,
		Err: &api.TransportError{Op: "mark lesson completed", Err: errors.New("offline")},
	}
	if _, handled := remote.Apply(sess, failed); !handled {
		t.Fatal("completion result should be handled")
	}
	s.Update(remote.SyncedMsg{Kind: remote.KindCompletion})
	if sess.PendingCompletions() != 0 {
		t.Errorf("pending = %d, want 0", sess.PendingCompletions())
	}
	if strings.Contains(s.View(80, 24), "saving") {
		t.Error("settled completion should not render as saving")
	}
	if sess.Stats().CompletedLessons != 1 || !s.lesson.Completed {
		t.Error("failed persistence must not roll back the completion")
	}

	_, cmd = s.Update(keyPress('m'))
	if cmd == nil || sess.PendingCompletions() != 0 {
		t.Error("completing twice should only notify")
	}
	if _, ok := cmd().(screen.NoticeMsg); !ok {
		t.Error("expected a notice")
	}
}

func TestLessonScreen_FollowsSessionAfterSync(t *testing.T) {
	s, sess, _ := testLessonScreen(t)

	// Another screen moved the session and a reload finished meanwhile.
	sess.Next()
	s.Update(remote.SyncedMsg{Kind: remote.KindReload})
	if s.pos.LessonID != "A2" {
		t.Errorf("pos = %v, want A/A2", s.pos)
	}

	sess.CompleteCurrent()
	s.Update(remote.SyncedMsg{Kind: remote.KindCompletion})
	if !s.lesson.Completed {
		t.Error("lesson should pick up the completion from the session")
	}
}

func TestLessonScreen_NextPrevious(t *testing.T) {
	s, _, _ := testLessonScreen(t)

	s.Update(keyPress('n'))
	if s.pos.LessonID != "A2" {
		t.Errorf("after n: %v", s.pos)
	}
	s.Update(keyPress('n'))
	if s.pos.LessonID != "B1" {
		t.Errorf("after n: %v", s.pos)
	}
	if s.duration != defaultVideoSecs {
		t.Errorf("duration = %v, want default", s.duration)
	}
	if _, cmd := s.Update(keyPress('n')); cmd == nil {
		t.Error("expected notice at the last lesson")
	}
	s.Update(keyPress('p'))
	if s.pos.LessonID != "A2" {
		t.Errorf("after p: %v", s.pos)
	}
}

func TestLessonScreen_KeyHints(t *testing.T) {
	s, _, _ := testLessonScreen(t)
	if len(s.KeyHints()) != 4 {
		t.Errorf("video hints = %d, want 4", len(s.KeyHints()))
	}
}
