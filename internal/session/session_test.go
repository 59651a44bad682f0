package session

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/abhisek/coursetrack/internal/api"
	"github.com/abhisek/coursetrack/internal/course"
	"github.com/abhisek/coursetrack/internal/store"
)

// testCourse has modules A[A1 video, A2 reading] and B[B1 video].
func testCourse() course.Course {
	return course.Course{
		ID:           "c1",
		Title:        "Test Course",
		HasFinalExam: true,
		Modules: []course.Module{
			{ID: "A", Name: "Alpha", Lessons: []course.Lesson{
				{ID: "A1", Title: "Intro", Type: course.LessonVideo},
				{ID: "A2", Title: "Notes", Type: course.LessonReading},
			}},
			{ID: "B", Name: "Beta", Lessons: []course.Lesson{
				{ID: "B1", Title: "Deep dive", Type: course.LessonVideo},
			}},
		},
	}
}

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "session.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func loadSession(t *testing.T, mock *api.MockBackend, st *store.Store) *Session {
	t.Helper()
	deps := Deps{Backend: mock, ReportTimeout: time.Second}
	if st != nil {
		deps.Watch = st.WatchRepo()
		deps.Snapshots = st.SnapshotRepo()
	}
	s, err := Load(context.Background(), deps, "c1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	t.Cleanup(s.Close)
	return s
}

func pos(m, l string) course.Position {
	return course.Position{ModuleID: m, LessonID: l}
}

func TestLoad_StartsAtResumePoint(t *testing.T) {
	c := testCourse()
	c.Modules[0].Lessons[0].Completed = true
	mock := api.NewMockBackend(c)

	s := loadSession(t, mock, nil)

	cur, ok := s.Current()
	if !ok || cur != pos("A", "A2") {
		t.Errorf("current = %v, want A/A2", cur)
	}
	if s.Stats().CompletedLessons != 1 {
		t.Errorf("completed = %d, want 1", s.Stats().CompletedLessons)
	}
	if mock.CallCount("CheckCompletion") != 1 {
		t.Errorf("completion checks = %d, want 1", mock.CallCount("CheckCompletion"))
	}
	if s.ID() == "" {
		t.Error("session ID should be generated")
	}
}

func TestLoad_CourseFailure(t *testing.T) {
	mock := api.NewMockBackend(testCourse())
	mock.LoadErrs = []error{&api.StatusError{Op: "load course", StatusCode: 500}}

	_, err := Load(context.Background(), Deps{Backend: mock}, "c1")
	if !errors.Is(err, api.ErrNetworkFailure) {
		t.Fatalf("err = %v, want ErrNetworkFailure", err)
	}
}

func TestLoad_CompletionFailureIsNotFatal(t *testing.T) {
	mock := api.NewMockBackend(testCourse())
	mock.StatusErrs = []error{&api.TransportError{Op: "check completion", Err: errors.New("timeout")}}

	s := loadSession(t, mock, nil)
	if _, known := s.CompletionStatus(); known {
		t.Error("completion status should be unknown after a failed check")
	}
	if s.HasCertificate() {
		t.Error("failed check must not imply a certificate")
	}
}

func TestLoad_DuplicateLessonsRejected(t *testing.T) {
	c := testCourse()
	c.Modules[0].Lessons[1].ID = "A1"
	_, err := Load(context.Background(), Deps{Backend: api.NewMockBackend(c)}, "c1")
	if !errors.Is(err, course.ErrDuplicateID) {
		t.Fatalf("err = %v, want ErrDuplicateID", err)
	}
}

func TestEndToEnd(t *testing.T) {
	mock := api.NewMockBackend(testCourse())
	s := loadSession(t, mock, nil)
	ctx := context.Background()

	complete := func(wantPct int) {
		t.Helper()
		stats, p, err := s.CompleteCurrent()
		if err != nil {
			t.Fatalf("complete: %v", err)
		}
		if stats.CompletionPercentage != wantPct {
			t.Errorf("after %v percentage = %d, want %d", p, stats.CompletionPercentage, wantPct)
		}
		if err := s.PersistCompletion(ctx, p); err != nil {
			t.Fatalf("persist: %v", err)
		}
		if got := s.FinishCompletion(); got != SettleApply {
			t.Errorf("settlement = %v, want SettleApply", got)
		}
	}

	if err := s.Select("A", "A1"); err != nil {
		t.Fatalf("select: %v", err)
	}
	complete(33)
	if !s.Next() {
		t.Fatal("next from A1")
	}
	complete(67)
	if !s.Next() {
		t.Fatal("next from A2")
	}
	if cur, _ := s.Current(); cur != pos("B", "B1") {
		t.Fatalf("current = %v, want B/B1", cur)
	}
	if err := s.CertificateEligibility(); !errors.Is(err, ErrNotEligible) {
		t.Errorf("eligibility before completion = %v, want ErrNotEligible", err)
	}
	complete(100)
	if s.Next() {
		t.Error("next past the last lesson should fail")
	}

	mock.Status = api.CompletionStatus{IsCompleted: true, TotalModules: 2, CompletedModules: 2}
	st, err := s.FetchCompletion(ctx)
	if err != nil {
		t.Fatalf("fetch completion: %v", err)
	}
	if s.ApplyCompletionStatus(st) {
		t.Error("consistent status reported as inconsistent")
	}

	e := s.Eligibility()
	if !e.CanRequest || !e.FinalExamUnlocked || e.CanView {
		t.Errorf("eligibility = %+v", e)
	}
	if err := s.CertificateEligibility(); err != nil {
		t.Fatalf("eligibility: %v", err)
	}
	if err := s.BeginCertificateRequest(); err != nil {
		t.Fatalf("begin certificate request: %v", err)
	}
	cert, err := s.RequestCertificate(ctx)
	if err := s.FinishCertificateRequest(cert, err); err != nil {
		t.Fatalf("request certificate: %v", err)
	}

	e = s.Eligibility()
	if e.CanRequest || !e.CanView {
		t.Errorf("eligibility after issue = %+v", e)
	}
	if err := s.CertificateEligibility(); !errors.Is(err, ErrNotEligible) {
		t.Errorf("second request eligibility = %v, want ErrNotEligible", err)
	}
	if got := len(mock.Completed); got != 3 {
		t.Errorf("persisted completions = %d, want 3", got)
	}
}

func TestCompleteCurrent_OptimisticWithoutRollback(t *testing.T) {
	mock := api.NewMockBackend(testCourse())
	mock.CompleteErrs = []error{&api.TransportError{Op: "mark lesson completed", Err: errors.New("offline")}}
	s := loadSession(t, mock, nil)

	stats, p, err := s.CompleteCurrent()
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if err := s.PersistCompletion(context.Background(), p); !errors.Is(err, api.ErrNetworkFailure) {
		t.Fatalf("persist err = %v, want ErrNetworkFailure", err)
	}
	if s.Stats() != stats || stats.CompletedLessons != 1 {
		t.Errorf("local completion rolled back: %+v", s.Stats())
	}
}

func TestCompleteCurrent_Idempotent(t *testing.T) {
	s := loadSession(t, api.NewMockBackend(testCourse()), nil)

	first, _, _ := s.CompleteCurrent()
	second, _, err := s.CompleteCurrent()
	if err != nil {
		t.Fatalf("second complete: %v", err)
	}
	if first != second {
		t.Errorf("stats changed on repeat: %+v vs %+v", first, second)
	}
}

func TestSelect_StaleTarget(t *testing.T) {
	s := loadSession(t, api.NewMockBackend(testCourse()), nil)
	before, _ := s.Current()

	err := s.Select("A", "ZZ")
	if !errors.Is(err, course.ErrLessonNotFound) || !errors.Is(err, course.ErrNotFound) {
		t.Fatalf("err = %v, want ErrLessonNotFound", err)
	}
	if after, _ := s.Current(); after != before {
		t.Errorf("current moved to %v on failed select", after)
	}
}

func TestPreviousAndResume(t *testing.T) {
	s := loadSession(t, api.NewMockBackend(testCourse()), nil)

	if s.Previous() {
		t.Error("previous at the first lesson should fail")
	}
	if err := s.Select("B", "B1"); err != nil {
		t.Fatalf("select: %v", err)
	}
	if !s.Previous() {
		t.Fatal("previous from B1")
	}
	if cur, _ := s.Current(); cur != pos("A", "A2") {
		t.Errorf("current = %v, want A/A2", cur)
	}
	got, ok := s.Resume()
	if !ok || got != pos("A", "A1") {
		t.Errorf("resume = %v, want A/A1", got)
	}
}

func TestApplyCompletionStatus_Inconsistent(t *testing.T) {
	mock := api.NewMockBackend(testCourse())
	s := loadSession(t, mock, nil)

	if !s.ApplyCompletionStatus(api.CompletionStatus{IsCompleted: true}) {
		t.Fatal("server-complete vs local-incomplete must be inconsistent")
	}

	// Reload resolves the inconsistency in favour of the server.
	for _, l := range []string{"A1", "A2", "B1"} {
		if err := mock.MarkLessonCompleted(context.Background(), "c1", l); err != nil {
			t.Fatalf("mark: %v", err)
		}
	}
	g, err := s.FetchCourse(context.Background())
	if err != nil {
		t.Fatalf("fetch course: %v", err)
	}
	s.Replace(g)

	if s.Stats().CompletionPercentage != 100 {
		t.Errorf("percentage after reload = %d, want 100", s.Stats().CompletionPercentage)
	}
	if s.ApplyCompletionStatus(api.CompletionStatus{IsCompleted: true}) {
		t.Error("status should be consistent after reload")
	}
}

func TestObservePlayback_ReportsThrottled(t *testing.T) {
	mock := api.NewMockBackend(testCourse())
	s := loadSession(t, mock, nil)
	a1 := pos("A", "A1")

	dispatched := 0
	for sec := 0; sec <= 125; sec++ {
		ok, err := s.ObservePlayback(a1, float64(sec), 125)
		if err != nil {
			t.Fatalf("observe %d: %v", sec, err)
		}
		if ok {
			dispatched++
		}
	}
	s.Close()

	if dispatched != 13 {
		t.Errorf("dispatched = %d, want 13", dispatched)
	}
	if mock.ReportCount() != 13 {
		t.Errorf("reports received = %d, want 13", mock.ReportCount())
	}
	if s.Stats().CompletedLessons != 0 {
		t.Error("video progress must never complete a lesson")
	}
	ws, ok := s.WatchState(a1)
	if !ok || ws.PositionSecs != 125 {
		t.Errorf("watch state = %+v, want position 125", ws)
	}
	for _, r := range mock.Reports {
		if r.CourseID != "c1" || r.LessonID != "A1" || r.ContentType != api.ContentTypeVideo {
			t.Fatalf("bad report %+v", r)
		}
	}
}

func TestObservePlayback_IgnoresOtherLessons(t *testing.T) {
	mock := api.NewMockBackend(testCourse())
	s := loadSession(t, mock, nil)

	if err := s.Select("B", "B1"); err != nil {
		t.Fatalf("select: %v", err)
	}
	ok, err := s.ObservePlayback(pos("A", "A1"), 10, 100)
	if err != nil {
		t.Fatalf("observe: %v", err)
	}
	if ok {
		t.Error("sample for a lesson that is not current must not be reported")
	}

	if _, err := s.ObservePlayback(pos("B", "B1"), 10, 0); !errors.Is(err, course.ErrInvalidRange) {
		t.Errorf("zero duration err = %v, want ErrInvalidRange", err)
	}
}

func TestWatchPositionsPersistAcrossSessions(t *testing.T) {
	st := openTestStore(t)
	mock := api.NewMockBackend(testCourse())

	s := loadSession(t, mock, st)
	for sec := 0; sec <= 42; sec++ {
		if _, err := s.ObservePlayback(pos("A", "A1"), float64(sec), 200); err != nil {
			t.Fatalf("observe: %v", err)
		}
	}
	s.Close()

	s2 := loadSession(t, mock, st)
	ws, ok := s2.WatchState(pos("A", "A1"))
	if !ok {
		t.Fatal("expected seeded watch state")
	}
	if ws.PositionSecs != 42 || ws.DurationSecs != 200 {
		t.Errorf("seeded = %+v, want 42/200", ws)
	}
}

func TestSnapshotsSavedOnCompletion(t *testing.T) {
	st := openTestStore(t)
	s := loadSession(t, api.NewMockBackend(testCourse()), st)

	if _, _, err := s.CompleteCurrent(); err != nil {
		t.Fatalf("complete: %v", err)
	}
	snap, err := st.SnapshotRepo().Latest(context.Background(), "c1")
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if snap == nil {
		t.Fatal("expected snapshot")
	}
	if snap.Data.CompletedLessons != 1 || snap.Data.CompletionPercentage != 33 {
		t.Errorf("snapshot = %+v", snap.Data)
	}
	if snap.Data.ResumeLessonID != "A2" {
		t.Errorf("resume lesson = %q, want A2", snap.Data.ResumeLessonID)
	}
}

func TestEmptyCourse(t *testing.T) {
	c := course.Course{ID: "c1", Modules: []course.Module{{ID: "A"}}}
	s := loadSession(t, api.NewMockBackend(c), nil)

	if _, ok := s.Current(); ok {
		t.Error("empty course has no current lesson")
	}
	if s.Next() || s.Previous() {
		t.Error("navigation in an empty course must fail")
	}
	if _, _, err := s.CompleteCurrent(); !errors.Is(err, course.ErrNotFound) {
		t.Errorf("complete err = %v, want ErrNotFound", err)
	}
	if err := s.CertificateEligibility(); !errors.Is(err, ErrNotEligible) {
		t.Errorf("eligibility = %v, want ErrNotEligible", err)
	}
}

func TestFinishCompletion_OverlappingCompletions(t *testing.T) {
	s := loadSession(t, api.NewMockBackend(testCourse()), nil)

	for i := range 3 {
		if _, _, err := s.CompleteCurrent(); err != nil {
			t.Fatalf("complete %d: %v", i, err)
		}
		s.Next()
	}
	if got := s.PendingCompletions(); got != 3 {
		t.Fatalf("pending = %d, want 3", got)
	}

	// The first check reaches the server before the later completions.
	stale := api.CompletionStatus{IsCompleted: false}
	if got := s.FinishCompletion(); got != SettleDefer {
		t.Errorf("first settlement = %v, want SettleDefer", got)
	}
	if s.ApplyCompletionStatus(stale) {
		t.Error("status must not be checked while completions are in flight")
	}

	if got := s.FinishCompletion(); got != SettleDefer {
		t.Errorf("second settlement = %v, want SettleDefer", got)
	}
	if got := s.FinishCompletion(); got != SettleRefetch {
		t.Errorf("last settlement = %v, want SettleRefetch", got)
	}
	if s.ApplyCompletionStatus(api.CompletionStatus{IsCompleted: true}) {
		t.Error("fresh status agrees with local state")
	}

	// A lone completion settles on its own status.
	if _, _, err := s.CompleteCurrent(); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if got := s.FinishCompletion(); got != SettleApply {
		t.Errorf("settlement = %v, want SettleApply", got)
	}
}

func TestCertificateRequest_InFlight(t *testing.T) {
	mock := api.NewMockBackend(testCourse())
	s := loadSession(t, mock, nil)

	if err := s.BeginCertificateRequest(); !errors.Is(err, ErrNotEligible) {
		t.Fatalf("err = %v, want ErrNotEligible", err)
	}
	if s.CertificateRequestInFlight() {
		t.Fatal("ineligible request must not be marked in flight")
	}

	for range 3 {
		s.CompleteCurrent()
		s.FinishCompletion()
		s.Next()
	}
	if err := s.BeginCertificateRequest(); err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := s.BeginCertificateRequest(); !errors.Is(err, ErrInFlight) {
		t.Errorf("second begin = %v, want ErrInFlight", err)
	}

	failure := &api.StatusError{Op: "generate certificate", StatusCode: 500, Message: "boom"}
	if err := s.FinishCertificateRequest(api.Certificate{}, failure); !errors.Is(err, api.ErrNetworkFailure) {
		t.Errorf("finish err = %v, want the request error", err)
	}
	if s.CertificateRequestInFlight() || s.HasCertificate() {
		t.Error("failed request must clear the flag without a certificate")
	}

	if err := s.BeginCertificateRequest(); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if err := s.FinishCertificateRequest(api.Certificate{ID: "cert-1"}, nil); err != nil {
		t.Fatalf("finish: %v", err)
	}
	if !s.HasCertificate() {
		t.Error("certificate should be recorded")
	}
}

func TestReload_InFlight(t *testing.T) {
	mock := api.NewMockBackend(testCourse())
	s := loadSession(t, mock, nil)

	s.CompleteCurrent()
	if err := s.BeginReload(); !errors.Is(err, ErrInFlight) {
		t.Errorf("reload with pending completions = %v, want ErrInFlight", err)
	}
	s.FinishCompletion()

	if err := s.BeginReload(); err != nil {
		t.Fatalf("begin reload: %v", err)
	}
	if err := s.BeginReload(); !errors.Is(err, ErrInFlight) {
		t.Errorf("second reload = %v, want ErrInFlight", err)
	}

	offline := &api.TransportError{Op: "load course", Err: errors.New("offline")}
	if _, err := s.FinishReload(nil, offline, api.CompletionStatus{}, nil); err == nil {
		t.Error("expected the reload error")
	}
	if s.Reloading() {
		t.Error("failed reload should clear the flag")
	}

	s.BeginReload()
	g, err := s.FetchCourse(context.Background())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	inconsistent, err := s.FinishReload(g, nil, api.CompletionStatus{IsCompleted: true}, nil)
	if err != nil {
		t.Fatalf("finish reload: %v", err)
	}
	if !inconsistent {
		t.Error("server still claims completion; expected inconsistency")
	}
}
