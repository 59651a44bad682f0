// Package remote runs the backend requests started from the screens and
// applies their results to the session. Results are applied by the root
// model whichever screen is active when they arrive; screens learn about
// applied results through SyncedMsg.
package remote

import (
	"context"
	"errors"
	"fmt"

	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/coursetrack/internal/api"
	"github.com/abhisek/coursetrack/internal/course"
	"github.com/abhisek/coursetrack/internal/screen"
	"github.com/abhisek/coursetrack/internal/session"
)

// CompletionMsg carries the outcome of persisting a completion and the
// completion check sent right after it.
type CompletionMsg struct {
	Pos       course.Position
	Err       error
	Status    api.CompletionStatus
	StatusErr error
}

// StatusMsg carries a completion check fetched on its own.
type StatusMsg struct {
	Status api.CompletionStatus
	Err    error
}

// CertificateMsg carries the result of a certificate request.
type CertificateMsg struct {
	Cert api.Certificate
	Err  error
}

// ReloadMsg carries a reloaded course and, when available, a fresh
// completion status.
type ReloadMsg struct {
	Graph     *course.Graph
	Err       error
	Status    api.CompletionStatus
	StatusErr error
}

// Kind names the request a SyncedMsg reports on.
type Kind int

const (
	KindCompletion Kind = iota
	KindCertificate
	KindReload
)

// SyncedMsg tells the active screen that a result was applied to the
// session.
type SyncedMsg struct {
	Kind Kind
}

// Complete marks the session's current lesson completed and returns the
// notice plus the command that persists it. The local change stands even
// if persisting fails.
func Complete(sess *session.Session) tea.Cmd {
	stats, pos, err := sess.CompleteCurrent()
	if err != nil {
		return screen.NotifyError(err.Error())
	}
	return tea.Batch(
		screen.Notify(fmt.Sprintf("Lesson completed · course %d%%", stats.CompletionPercentage)),
		func() tea.Msg {
			ctx := context.Background()
			if err := sess.PersistCompletion(ctx, pos); err != nil {
				return CompletionMsg{Pos: pos, Err: err}
			}
			st, stErr := sess.FetchCompletion(ctx)
			return CompletionMsg{Pos: pos, Status: st, StatusErr: stErr}
		},
	)
}

// RequestCertificate starts a certificate request. It returns nil while
// one is already waiting.
func RequestCertificate(sess *session.Session) tea.Cmd {
	err := sess.BeginCertificateRequest()
	switch {
	case errors.Is(err, session.ErrInFlight):
		return nil
	case err != nil:
		return screen.Notify(fmt.Sprintf("Complete all lessons first (%d remaining).", sess.Stats().RemainingLessons))
	}
	return tea.Batch(
		screen.Notify("Requesting certificate…"),
		func() tea.Msg {
			cert, err := sess.RequestCertificate(context.Background())
			return CertificateMsg{Cert: cert, Err: err}
		},
	)
}

// Reload starts a course reload. It waits for unconfirmed completions and
// returns nil while a reload is already running.
func Reload(sess *session.Session) tea.Cmd {
	if err := sess.BeginReload(); err != nil {
		if sess.PendingCompletions() > 0 {
			return screen.Notify("Still saving progress. Try again in a moment.")
		}
		return nil
	}
	return tea.Batch(
		screen.Notify("Reloading course…"),
		func() tea.Msg {
			ctx := context.Background()
			g, err := sess.FetchCourse(ctx)
			if err != nil {
				return ReloadMsg{Err: err}
			}
			st, stErr := sess.FetchCompletion(ctx)
			return ReloadMsg{Graph: g, Status: st, StatusErr: stErr}
		},
	)
}

func fetchStatus(sess *session.Session) tea.Cmd {
	return func() tea.Msg {
		st, err := sess.FetchCompletion(context.Background())
		return StatusMsg{Status: st, Err: err}
	}
}

func synced(kind Kind) tea.Cmd {
	return func() tea.Msg { return SyncedMsg{Kind: kind} }
}

// Apply records msg in the session when it is one of the results above.
// It reports whether msg was handled.
func Apply(sess *session.Session, msg tea.Msg) (tea.Cmd, bool) {
	switch msg := msg.(type) {
	case CompletionMsg:
		settle := sess.FinishCompletion()
		if msg.Err != nil {
			// A failed completion still settles.
			var follow tea.Cmd
			if settle == session.SettleRefetch {
				follow = fetchStatus(sess)
			}
			return tea.Batch(
				screen.NotifyError("Saved locally, but the server did not confirm: "+api.UserMessage(msg.Err)),
				follow,
				synced(KindCompletion),
			), true
		}
		switch settle {
		case session.SettleDefer:
			return synced(KindCompletion), true
		case session.SettleRefetch:
			return tea.Batch(fetchStatus(sess), synced(KindCompletion)), true
		}
		if msg.StatusErr != nil {
			return synced(KindCompletion), true
		}
		return tea.Batch(applyStatus(sess, msg.Status), synced(KindCompletion)), true

	case StatusMsg:
		if msg.Err != nil {
			return nil, true
		}
		return tea.Batch(applyStatus(sess, msg.Status), synced(KindCompletion)), true

	case CertificateMsg:
		if err := sess.FinishCertificateRequest(msg.Cert, msg.Err); err != nil {
			return tea.Batch(screen.NotifyError(api.UserMessage(err)), synced(KindCertificate)), true
		}
		return tea.Batch(screen.Notify("Certificate issued!"), synced(KindCertificate)), true

	case ReloadMsg:
		inconsistent, err := sess.FinishReload(msg.Graph, msg.Err, msg.Status, msg.StatusErr)
		switch {
		case err != nil:
			return tea.Batch(screen.NotifyError(api.UserMessage(err)), synced(KindReload)), true
		case inconsistent:
			return tea.Batch(screen.NotifyError("Server progress still disagrees with the course data."), synced(KindReload)), true
		}
		return tea.Batch(screen.Notify("Course reloaded."), synced(KindReload)), true
	}
	return nil, false
}

// applyStatus records a settled completion status and returns the notice
// it calls for, if any.
func applyStatus(sess *session.Session, st api.CompletionStatus) tea.Cmd {
	if sess.ApplyCompletionStatus(st) {
		return screen.NotifyError("Server progress differs from this view. Reload from the course screen.")
	}
	if st.IsCompleted && !sess.HasCertificate() {
		return screen.Notify("Course complete! Request your certificate from the course screen.")
	}
	return nil
}
