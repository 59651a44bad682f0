package sampler

import (
	"context"
	"sync"
	"time"

	"github.com/abhisek/coursetrack/internal/course"
	"github.com/abhisek/coursetrack/internal/logger"
)

// DefaultReportTimeout bounds a single report request.
const DefaultReportTimeout = 5 * time.Second

// ReportFunc delivers a report to the remote progress endpoint.
type ReportFunc func(ctx context.Context, r Report) error

// Feed binds a Sampler to the current lesson and dispatches its reports
// without blocking the caller. Switching lessons cancels reports still in
// flight for the previous lesson, and samples for any lesson other than
// the current one are discarded.
//
// Switch, Observe and Stop are called from the UI update loop only; the
// dispatched goroutines never touch Feed state.
type Feed struct {
	send    ReportFunc
	log     *logger.Logger
	timeout time.Duration

	sampler *Sampler
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewFeed creates a feed with no lesson bound.
func NewFeed(send ReportFunc, log *logger.Logger, timeout time.Duration) *Feed {
	if timeout <= 0 {
		timeout = DefaultReportTimeout
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Feed{send: send, log: log, timeout: timeout}
}

// Switch binds the feed to a new lesson. Switching to the lesson already
// bound keeps its sampler state.
func (f *Feed) Switch(pos course.Position) {
	if f.sampler != nil && f.sampler.Position() == pos {
		return
	}
	f.Stop()
	f.sampler = New(pos)
	f.ctx, f.cancel = context.WithCancel(context.Background())
}

// Current returns the lesson the feed is bound to.
func (f *Feed) Current() (course.Position, bool) {
	if f.sampler == nil {
		return course.Position{}, false
	}
	return f.sampler.Position(), true
}

// Observe feeds a playback position for pos and reports whether a report
// was dispatched.
func (f *Feed) Observe(pos course.Position, positionSecs, durationSecs float64) bool {
	if f.sampler == nil || f.sampler.Position() != pos {
		f.log.Debug("discarding sample for inactive lesson", "lesson", pos.String())
		return false
	}
	r, ok := f.sampler.Observe(positionSecs, durationSecs)
	if !ok {
		return false
	}
	f.dispatch(f.ctx, r)
	return true
}

func (f *Feed) dispatch(lessonCtx context.Context, r Report) {
	f.wg.Add(1)
	go func() {
		defer f.wg.Done()
		ctx, cancel := context.WithTimeout(lessonCtx, f.timeout)
		defer cancel()

		if err := f.send(ctx, r); err != nil {
			if lessonCtx.Err() != nil {
				f.log.Debug("video progress report cancelled by lesson switch", "lesson", r.Position.String())
				return
			}
			// The next sample supersedes this one.
			f.log.Warn("video progress report failed",
				"lesson", r.Position.String(),
				"position_secs", r.PositionSecs,
				"error", err,
			)
		}
	}()
}

// Stop unbinds the current lesson and cancels its in-flight reports.
func (f *Feed) Stop() {
	if f.cancel != nil {
		f.cancel()
	}
	f.sampler = nil
	f.ctx, f.cancel = nil, nil
}

// Close stops the feed and waits for dispatched reports to return.
func (f *Feed) Close() {
	f.Stop()
	f.wg.Wait()
}
