package remote

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/coursetrack/internal/api"
	"github.com/abhisek/coursetrack/internal/course"
	"github.com/abhisek/coursetrack/internal/screen"
	"github.com/abhisek/coursetrack/internal/session"
)

func testCourse() course.Course {
	return course.Course{
		ID:    "c1",
		Title: "Test Course",
		Modules: []course.Module{
			{ID: "A", Name: "Alpha", Lessons: []course.Lesson{
				{ID: "A1", Title: "Intro", Type: course.LessonVideo},
				{ID: "A2", Title: "Notes", Type: course.LessonReading},
			}},
			{ID: "B", Name: "Beta", Lessons: []course.Lesson{
				{ID: "B1", Title: "Deep dive", Type: course.LessonReading},
			}},
		},
	}
}

func testSession(t *testing.T) (*session.Session, *api.MockBackend) {
	t.Helper()
	mock := api.NewMockBackend(testCourse())
	sess, err := session.Load(context.Background(), session.Deps{Backend: mock, ReportTimeout: time.Second}, "c1")
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	t.Cleanup(sess.Close)
	return sess, mock
}

// run executes cmd and returns the messages it produces, flattening
// batches.
func run(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	batch, ok := msg.(tea.BatchMsg)
	if !ok {
		return []tea.Msg{msg}
	}
	var out []tea.Msg
	for _, c := range batch {
		out = append(out, run(c)...)
	}
	return out
}

func notices(msgs []tea.Msg) []screen.NoticeMsg {
	var out []screen.NoticeMsg
	for _, m := range msgs {
		if n, ok := m.(screen.NoticeMsg); ok {
			out = append(out, n)
		}
	}
	return out
}

func hasErrorNotice(msgs []tea.Msg) bool {
	for _, n := range notices(msgs) {
		if n.IsError {
			return true
		}
	}
	return false
}

func find[T tea.Msg](t *testing.T, msgs []tea.Msg) T {
	t.Helper()
	for _, m := range msgs {
		if v, ok := m.(T); ok {
			return v
		}
	}
	var zero T
	t.Fatalf("no %T among %d messages", zero, len(msgs))
	return zero
}

func apply(t *testing.T, sess *session.Session, msg tea.Msg) []tea.Msg {
	t.Helper()
	cmd, handled := Apply(sess, msg)
	if !handled {
		t.Fatalf("%T not handled", msg)
	}
	return run(cmd)
}

func TestComplete_PersistsInBackground(t *testing.T) {
	sess, mock := testSession(t)

	msgs := run(Complete(sess))
	if sess.Stats().CompletedLessons != 1 {
		t.Fatalf("stats = %+v", sess.Stats())
	}
	done := find[CompletionMsg](t, msgs)
	if done.Err != nil || done.Pos.LessonID != "A1" {
		t.Errorf("completion = %+v", done)
	}
	if len(mock.Completed) != 1 || mock.CallCount("CheckCompletion") != 2 {
		t.Errorf("completed = %v, checks = %d", mock.Completed, mock.CallCount("CheckCompletion"))
	}

	out := apply(t, sess, done)
	if hasErrorNotice(out) {
		t.Error("consistent status should not raise an error")
	}
	if sess.PendingCompletions() != 0 {
		t.Errorf("pending = %d, want 0", sess.PendingCompletions())
	}
	find[SyncedMsg](t, out)
}

func TestApply_FailedCompletionKeepsLocalState(t *testing.T) {
	sess, _ := testSession(t)
	Complete(sess)

	out := apply(t, sess, CompletionMsg{
		Pos: course.Position{ModuleID: "A", LessonID: "A1"},
		Err: &api.StatusError{Op: "mark lesson completed", StatusCode: 503},
	})
	ns := notices(out)
	if len(ns) != 1 || !ns[0].IsError || !strings.Contains(ns[0].Text, "did not confirm") {
		t.Errorf("notices = %+v", ns)
	}
	if sess.Stats().CompletedLessons != 1 || sess.PendingCompletions() != 0 {
		t.Errorf("completed = %d pending = %d", sess.Stats().CompletedLessons, sess.PendingCompletions())
	}
}

func TestApply_InconsistentStatusNotifies(t *testing.T) {
	sess, _ := testSession(t)

	out := apply(t, sess, StatusMsg{Status: api.CompletionStatus{IsCompleted: true}})
	if !hasErrorNotice(out) {
		t.Error("expected an inconsistency notice")
	}
	if st, _ := sess.CompletionStatus(); !st.IsCompleted {
		t.Error("status should be recorded")
	}
}

func TestApply_OverlappingCompletionsSettleOnFreshStatus(t *testing.T) {
	sess, mock := testSession(t)

	for range 3 {
		Complete(sess)
		sess.Next()
	}
	if sess.PendingCompletions() != 3 {
		t.Fatalf("pending = %d, want 3", sess.PendingCompletions())
	}

	// Each check ran before the later completions reached the server.
	stale := api.CompletionStatus{IsCompleted: false}
	for i := range 2 {
		out := apply(t, sess, CompletionMsg{Status: stale})
		if hasErrorNotice(out) {
			t.Fatalf("result %d: stale status reported as inconsistent", i)
		}
		if got, want := sess.PendingCompletions(), 2-i; got != want {
			t.Errorf("pending = %d, want %d", got, want)
		}
	}

	mock.Status = api.CompletionStatus{IsCompleted: true}
	out := apply(t, sess, CompletionMsg{Status: stale})
	if hasErrorNotice(out) {
		t.Fatal("last stale status must not be checked")
	}
	fresh := find[StatusMsg](t, out)
	if !fresh.Status.IsCompleted {
		t.Fatalf("refetched status = %+v", fresh.Status)
	}

	out = apply(t, sess, fresh)
	if hasErrorNotice(out) {
		t.Error("fresh status agrees with local state")
	}
	ns := notices(out)
	if len(ns) != 1 || !strings.Contains(ns[0].Text, "Course complete") {
		t.Errorf("notices = %+v", ns)
	}
}

func TestRequestCertificate(t *testing.T) {
	sess, mock := testSession(t)

	ns := notices(run(RequestCertificate(sess)))
	if len(ns) != 1 || !strings.Contains(ns[0].Text, "3 remaining") {
		t.Errorf("notices = %+v", ns)
	}
	if mock.CallCount("GenerateCertificate") != 0 {
		t.Fatal("certificate endpoint called while locked")
	}

	for range 3 {
		sess.CompleteCurrent()
		sess.FinishCompletion()
		sess.Next()
	}
	cmd := RequestCertificate(sess)
	if cmd == nil || !sess.CertificateRequestInFlight() {
		t.Fatal("expected a request")
	}
	if RequestCertificate(sess) != nil {
		t.Error("second request must wait for the first")
	}

	out := apply(t, sess, find[CertificateMsg](t, run(cmd)))
	if !sess.HasCertificate() || sess.CertificateRequestInFlight() {
		t.Error("certificate should be recorded and the request settled")
	}
	if hasErrorNotice(out) {
		t.Error("unexpected error notice")
	}
}

func TestReload(t *testing.T) {
	sess, mock := testSession(t)

	Complete(sess)
	ns := notices(run(Reload(sess)))
	if len(ns) != 1 || !strings.Contains(ns[0].Text, "Still saving") {
		t.Errorf("notices = %+v", ns)
	}
	sess.FinishCompletion()

	cmd := Reload(sess)
	if cmd == nil || Reload(sess) != nil {
		t.Fatal("expected exactly one reload in flight")
	}
	mock.LoadErrs = []error{&api.TransportError{Op: "load course", Err: errors.New("offline")}}
	out := apply(t, sess, find[ReloadMsg](t, run(cmd)))
	if !hasErrorNotice(out) || sess.Reloading() {
		t.Error("failed reload should notify and clear the flag")
	}
	if sess.Stats().CompletedLessons != 1 {
		t.Error("failed reload must keep local progress")
	}
	find[SyncedMsg](t, out)
}

func TestApply_IgnoresOtherMessages(t *testing.T) {
	sess, _ := testSession(t)
	if _, handled := Apply(sess, SyncedMsg{}); handled {
		t.Error("SyncedMsg is for screens")
	}
}
