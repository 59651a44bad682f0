// Package session wires one viewing session of a course: the tracker, the
// navigation pointer, the video progress feed, and the backend calls that
// persist completions and issue certificates.
//
// Methods that mutate tracker state run on the caller's update loop. The
// network methods (PersistCompletion, FetchCompletion, RequestCertificate,
// FetchCourse) only read immutable session fields and are safe to call from
// a command goroutine; their results are applied with the matching Apply
// method back on the update loop.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/abhisek/coursetrack/internal/api"
	"github.com/abhisek/coursetrack/internal/course"
	"github.com/abhisek/coursetrack/internal/logger"
	"github.com/abhisek/coursetrack/internal/navigation"
	"github.com/abhisek/coursetrack/internal/sampler"
	"github.com/abhisek/coursetrack/internal/store"
)

var (
	// ErrNotEligible is returned when a certificate is requested before the
	// course is complete or after one was issued.
	ErrNotEligible = errors.New("not eligible for a certificate")

	// ErrInFlight is returned when the same kind of request is already
	// waiting for the backend.
	ErrInFlight = errors.New("request already in flight")
)

// Settlement says what to do with the completion status fetched right
// after a completion was persisted.
type Settlement int

const (
	// SettleDefer: other completions are still in flight, so the status
	// may predate them.
	SettleDefer Settlement = iota
	// SettleApply: the status reflects every local completion.
	SettleApply
	// SettleRefetch: completions overlapped, so the status may predate one
	// of them. Fetch a fresh one.
	SettleRefetch
)

// snapshotsKept bounds the stored snapshots per course.
const snapshotsKept = 10

// Deps holds the collaborators of a session. Backend is required; the
// repositories are optional and disable persistence when nil.
type Deps struct {
	Backend       api.Backend
	Watch         store.WatchRepo
	Snapshots     store.SnapshotRepo
	Log           *logger.Logger
	ReportTimeout time.Duration

	// SessionID is generated when empty.
	SessionID string
}

// NewSessionID returns a fresh session identifier.
func NewSessionID() string {
	return uuid.NewString()
}

// Session is one viewing session of a course.
type Session struct {
	id        string
	courseID  string
	backend   api.Backend
	watch     store.WatchRepo
	snapshots store.SnapshotRepo
	log       *logger.Logger

	tracker     *course.Tracker
	feed        *sampler.Feed
	status      api.CompletionStatus
	statusKnown bool
	certificate *api.Certificate

	// Requests waiting for the backend. Only touched on the update loop.
	pendingCompletions int
	overlapped         bool
	requestingCert     bool
	reloading          bool
}

// Load fetches the course and its completion status concurrently, builds
// the tracker, seeds stored watch positions and moves to the resume point.
// A failed completion check is logged and treated as "no certificate".
func Load(ctx context.Context, deps Deps, courseID string) (*Session, error) {
	if deps.Backend == nil {
		return nil, errors.New("session: backend is required")
	}
	if deps.Log == nil {
		deps.Log = logger.NewNop()
	}
	if deps.SessionID == "" {
		deps.SessionID = NewSessionID()
	}

	var (
		loaded    course.Course
		status    api.CompletionStatus
		statusErr error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		c, err := deps.Backend.LoadCourse(gctx, courseID)
		if err != nil {
			return fmt.Errorf("load course %s: %w", courseID, err)
		}
		loaded = c
		return nil
	})
	g.Go(func() error {
		status, statusErr = deps.Backend.CheckCompletion(gctx, courseID)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	graph, err := course.NewGraph(loaded)
	if err != nil {
		return nil, fmt.Errorf("build course graph: %w", err)
	}

	s := &Session{
		id:        deps.SessionID,
		courseID:  courseID,
		backend:   deps.Backend,
		watch:     deps.Watch,
		snapshots: deps.Snapshots,
		log:       deps.Log.With("session", deps.SessionID, "course", courseID),
		tracker:   course.NewTracker(graph),
	}
	s.feed = sampler.NewFeed(s.sendReport, s.log, deps.ReportTimeout)

	if statusErr != nil {
		s.log.Warn("completion check failed during load", "error", statusErr)
	} else {
		s.status = status
		s.statusKnown = true
		if s.checkConsistency(status) {
			s.log.Warn("server completion disagrees with course payload",
				"server_completed", status.IsCompleted,
				"local_completed", course.IsCourseComplete(s.Stats()),
			)
		}
	}

	s.seedWatchPositions(ctx)

	if pos, ok := navigation.Start(graph); ok {
		s.moveTo(pos)
	}
	return s, nil
}

func (s *Session) seedWatchPositions(ctx context.Context) {
	if s.watch == nil {
		return
	}
	positions, err := s.watch.Positions(ctx, s.courseID)
	if err != nil {
		s.log.Warn("failed to load watch positions", "error", err)
		return
	}
	for _, p := range positions {
		if p.DurationSecs <= 0 {
			continue
		}
		fraction := min(p.PositionSecs/p.DurationSecs, 1)
		if err := s.tracker.RecordVideoProgress(p.ModuleID, p.LessonID, fraction, p.PositionSecs, p.DurationSecs); err != nil {
			s.log.Debug("skipping stale watch position", "lesson", p.ModuleID+"/"+p.LessonID, "error", err)
		}
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// CourseID returns the ID of the course being viewed.
func (s *Session) CourseID() string { return s.courseID }

// Graph returns the current course graph.
func (s *Session) Graph() *course.Graph { return s.tracker.Graph() }

// Tracker returns the session's tracker.
func (s *Session) Tracker() *course.Tracker { return s.tracker }

// Stats returns the aggregate progress snapshot.
func (s *Session) Stats() course.Stats { return s.tracker.Snapshot() }

// Current returns the lesson being viewed.
func (s *Session) Current() (course.Position, bool) { return s.tracker.Current() }

// CurrentLesson returns the lesson being viewed.
func (s *Session) CurrentLesson() (course.Lesson, bool) {
	pos, ok := s.tracker.Current()
	if !ok {
		return course.Lesson{}, false
	}
	l, err := s.Graph().Lesson(pos.ModuleID, pos.LessonID)
	return l, err == nil
}

// HasCertificate reports whether a certificate is known to exist.
func (s *Session) HasCertificate() bool {
	return s.certificate != nil || s.status.HasCertificate
}

// Certificate returns the certificate issued during this session.
func (s *Session) Certificate() (api.Certificate, bool) {
	if s.certificate == nil {
		return api.Certificate{}, false
	}
	return *s.certificate, true
}

// CompletionStatus returns the last completion status seen from the server.
func (s *Session) CompletionStatus() (api.CompletionStatus, bool) {
	return s.status, s.statusKnown
}

// Eligibility evaluates the completion gate for the current state.
func (s *Session) Eligibility() course.Eligibility {
	return course.Evaluate(s.Stats(), s.HasCertificate(), s.Graph().HasFinalExam())
}

// WatchState returns the stored playback position of a lesson.
func (s *Session) WatchState(pos course.Position) (course.WatchState, bool) {
	return s.tracker.VideoProgress(pos.ModuleID, pos.LessonID)
}

// Select moves to a lesson chosen explicitly. Stale targets return
// course.ErrLessonNotFound and leave the session unchanged.
func (s *Session) Select(moduleID, lessonID string) error {
	pos, err := navigation.Select(s.Graph(), moduleID, lessonID)
	if err != nil {
		return err
	}
	s.moveTo(pos)
	return nil
}

// Next moves to the following lesson. Returns false at the end.
func (s *Session) Next() bool {
	cur, ok := s.tracker.Current()
	if !ok {
		return false
	}
	pos, ok := navigation.Next(s.Graph(), cur)
	if !ok {
		return false
	}
	s.moveTo(pos)
	return true
}

// Previous moves to the preceding lesson. Returns false at the start.
func (s *Session) Previous() bool {
	cur, ok := s.tracker.Current()
	if !ok {
		return false
	}
	pos, ok := navigation.Previous(s.Graph(), cur)
	if !ok {
		return false
	}
	s.moveTo(pos)
	return true
}

// Resume moves to the first incomplete lesson, or the first lesson of a
// completed course.
func (s *Session) Resume() (course.Position, bool) {
	pos, ok := navigation.Start(s.Graph())
	if !ok {
		return course.Position{}, false
	}
	s.moveTo(pos)
	return pos, true
}

// moveTo sets the current lesson and rebinds the video feed. Reports in
// flight for the previous lesson are cancelled.
func (s *Session) moveTo(pos course.Position) {
	if prev, ok := s.tracker.Current(); ok && prev != pos {
		s.saveWatchPosition(prev)
	}
	if err := s.tracker.SetCurrent(pos); err != nil {
		s.log.Warn("cannot move to lesson", "lesson", pos.String(), "error", err)
		return
	}
	l, err := s.Graph().Lesson(pos.ModuleID, pos.LessonID)
	if err == nil && l.Type == course.LessonVideo {
		s.feed.Switch(pos)
		return
	}
	s.feed.Stop()
}

// CompleteCurrent optimistically marks the current lesson completed and
// returns the new snapshot along with the lesson to persist. Local state is
// never rolled back if persisting fails.
func (s *Session) CompleteCurrent() (course.Stats, course.Position, error) {
	pos, ok := s.tracker.Current()
	if !ok {
		return s.Stats(), course.Position{}, fmt.Errorf("no current lesson: %w", course.ErrLessonNotFound)
	}
	stats, err := s.tracker.MarkLessonCompleted(pos.ModuleID, pos.LessonID)
	if err != nil {
		return stats, pos, err
	}
	if s.pendingCompletions > 0 {
		s.overlapped = true
	}
	s.pendingCompletions++
	s.log.Info("lesson completed", "lesson", pos.String(), "percentage", stats.CompletionPercentage)
	s.saveSnapshot()
	return stats, pos, nil
}

// PendingCompletions returns the completions returned by CompleteCurrent
// whose outcome has not been recorded with FinishCompletion.
func (s *Session) PendingCompletions() int { return s.pendingCompletions }

// FinishCompletion records that one persisted completion came back, with
// or without an error, and says whether the status fetched with it can be
// trusted.
func (s *Session) FinishCompletion() Settlement {
	if s.pendingCompletions > 0 {
		s.pendingCompletions--
	}
	if s.pendingCompletions > 0 {
		return SettleDefer
	}
	if s.overlapped {
		s.overlapped = false
		return SettleRefetch
	}
	return SettleApply
}

// PersistCompletion sends a completion to the backend.
func (s *Session) PersistCompletion(ctx context.Context, pos course.Position) error {
	if err := s.backend.MarkLessonCompleted(ctx, s.courseID, pos.LessonID); err != nil {
		return fmt.Errorf("persist completion of %s: %w", pos, err)
	}
	return nil
}

// FetchCompletion asks the backend for the course completion status.
func (s *Session) FetchCompletion(ctx context.Context) (api.CompletionStatus, error) {
	return s.backend.CheckCompletion(ctx, s.courseID)
}

// ApplyCompletionStatus records a completion status from the server and
// reports whether it disagrees with local state. While completions are in
// flight the status may predate them and is ignored.
func (s *Session) ApplyCompletionStatus(st api.CompletionStatus) (inconsistent bool) {
	if s.pendingCompletions > 0 {
		s.log.Debug("ignoring completion status while completions are in flight", "pending", s.pendingCompletions)
		return false
	}
	s.status = st
	s.statusKnown = true
	inconsistent = s.checkConsistency(st)
	if inconsistent {
		s.log.Warn("server completion disagrees with local state",
			"server_completed", st.IsCompleted,
			"local_completed", course.IsCourseComplete(s.Stats()),
		)
	}
	s.saveSnapshot()
	return inconsistent
}

func (s *Session) checkConsistency(st api.CompletionStatus) bool {
	return st.IsCompleted != course.IsCourseComplete(s.Stats())
}

// ObservePlayback records a playback position of the current lesson and
// feeds the throttled reporter. Returns whether a report was dispatched.
func (s *Session) ObservePlayback(pos course.Position, positionSecs, durationSecs float64) (bool, error) {
	if durationSecs <= 0 {
		return false, fmt.Errorf("duration %v: %w", durationSecs, course.ErrInvalidRange)
	}
	fraction := min(max(positionSecs/durationSecs, 0), 1)
	if err := s.tracker.RecordVideoProgress(pos.ModuleID, pos.LessonID, fraction, positionSecs, durationSecs); err != nil {
		return false, err
	}
	dispatched := s.feed.Observe(pos, positionSecs, durationSecs)
	if dispatched {
		s.saveWatchPosition(pos)
	}
	return dispatched, nil
}

func (s *Session) sendReport(ctx context.Context, r sampler.Report) error {
	return s.backend.ReportVideoProgress(ctx, api.VideoProgress{
		CourseID:           s.courseID,
		LessonID:           r.Position.LessonID,
		ContentType:        api.ContentTypeVideo,
		ProgressPercentage: r.ProgressPercentage,
		CurrentTime:        r.PositionSecs,
		Duration:           r.DurationSecs,
	})
}

// CertificateEligibility returns ErrNotEligible unless a certificate can be
// requested now.
func (s *Session) CertificateEligibility() error {
	stats := s.Stats()
	if !course.CanRequestCertificate(stats, s.HasCertificate()) {
		if s.HasCertificate() {
			return fmt.Errorf("certificate already issued: %w", ErrNotEligible)
		}
		return fmt.Errorf("%d lessons remaining: %w", stats.RemainingLessons, ErrNotEligible)
	}
	return nil
}

// BeginCertificateRequest checks eligibility and marks a certificate
// request in flight. It returns ErrInFlight while one is already waiting.
func (s *Session) BeginCertificateRequest() error {
	if s.requestingCert {
		return ErrInFlight
	}
	if err := s.CertificateEligibility(); err != nil {
		return err
	}
	s.requestingCert = true
	return nil
}

// CertificateRequestInFlight reports whether a certificate request is
// waiting for the backend.
func (s *Session) CertificateRequestInFlight() bool { return s.requestingCert }

// FinishCertificateRequest records the outcome of a request started with
// BeginCertificateRequest.
func (s *Session) FinishCertificateRequest(cert api.Certificate, err error) error {
	s.requestingCert = false
	if err != nil {
		s.log.Warn("certificate request failed", "error", err)
		return err
	}
	s.ApplyCertificate(cert)
	return nil
}

// RequestCertificate asks the backend to issue a certificate. Call
// BeginCertificateRequest on the update loop first.
func (s *Session) RequestCertificate(ctx context.Context) (api.Certificate, error) {
	cert, err := s.backend.GenerateCertificate(ctx, s.courseID)
	if err != nil {
		return api.Certificate{}, fmt.Errorf("generate certificate: %w", err)
	}
	return cert, nil
}

// ApplyCertificate records an issued certificate.
func (s *Session) ApplyCertificate(cert api.Certificate) {
	s.certificate = &cert
	s.status.HasCertificate = true
	s.log.Info("certificate issued", "certificate", string(cert.ID))
	s.saveSnapshot()
}

// BeginReload marks a course reload in flight. Reloading while
// completions are unconfirmed would drop them from the view, so it returns
// ErrInFlight then too.
func (s *Session) BeginReload() error {
	if s.reloading || s.pendingCompletions > 0 {
		return ErrInFlight
	}
	s.reloading = true
	return nil
}

// Reloading reports whether a reload is waiting for the backend.
func (s *Session) Reloading() bool { return s.reloading }

// FinishReload applies the outcome of a reload started with BeginReload.
// A failed completion check leaves the previous status in place. It
// reports whether the server status still disagrees with the new graph.
func (s *Session) FinishReload(g *course.Graph, err error, st api.CompletionStatus, stErr error) (bool, error) {
	s.reloading = false
	if err != nil {
		s.log.Warn("course reload failed", "error", err)
		return false, err
	}
	s.Replace(g)
	if stErr != nil {
		return false, nil
	}
	return s.ApplyCompletionStatus(st), nil
}

// FetchCourse reloads the course from the backend and builds a new graph.
func (s *Session) FetchCourse(ctx context.Context) (*course.Graph, error) {
	c, err := s.backend.LoadCourse(ctx, s.courseID)
	if err != nil {
		return nil, fmt.Errorf("reload course: %w", err)
	}
	return course.NewGraph(c)
}

// Replace swaps in a reloaded graph, resolving an inconsistency in favour
// of the server.
func (s *Session) Replace(g *course.Graph) {
	prev, hadPrev := s.tracker.Current()
	s.tracker.Replace(g)
	if cur, ok := s.tracker.Current(); ok && (!hadPrev || cur != prev) {
		s.moveTo(cur)
	}
	s.log.Info("course reloaded", "percentage", s.Stats().CompletionPercentage)
	s.saveSnapshot()
}

// Close stops the video feed, waits for in-flight reports and stores the
// current watch position.
func (s *Session) Close() {
	if cur, ok := s.tracker.Current(); ok {
		s.saveWatchPosition(cur)
	}
	s.feed.Close()
}

func (s *Session) saveWatchPosition(pos course.Position) {
	if s.watch == nil {
		return
	}
	ws, ok := s.tracker.VideoProgress(pos.ModuleID, pos.LessonID)
	if !ok {
		return
	}
	err := s.watch.SavePosition(context.Background(), store.WatchPosition{
		CourseID:     s.courseID,
		ModuleID:     pos.ModuleID,
		LessonID:     pos.LessonID,
		PositionSecs: ws.PositionSecs,
		DurationSecs: ws.DurationSecs,
		UpdatedAt:    ws.UpdatedAt,
	})
	if err != nil {
		s.log.Warn("failed to save watch position", "lesson", pos.String(), "error", err)
	}
}

func (s *Session) saveSnapshot() {
	if s.snapshots == nil {
		return
	}
	stats := s.Stats()
	data := store.SnapshotData{
		Version:              1,
		Title:                s.Graph().Title(),
		TotalLessons:         stats.TotalLessons,
		CompletedLessons:     stats.CompletedLessons,
		CompletionPercentage: stats.CompletionPercentage,
		HasCertificate:       s.HasCertificate(),
	}
	if pos, ok := s.Graph().FindFirstIncompleteLesson(); ok {
		data.ResumeModuleID = pos.ModuleID
		data.ResumeLessonID = pos.LessonID
	}

	ctx := context.Background()
	if err := s.snapshots.Save(ctx, &store.Snapshot{CourseID: s.courseID, Data: data}); err != nil {
		s.log.Warn("failed to save snapshot", "error", err)
		return
	}
	if err := s.snapshots.Prune(ctx, s.courseID, snapshotsKept); err != nil {
		s.log.Warn("failed to prune snapshots", "error", err)
	}
}
