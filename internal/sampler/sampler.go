// Package sampler throttles a high-frequency playback position stream into
// periodic progress reports.
package sampler

import (
	"math"

	"github.com/abhisek/coursetrack/internal/course"
)

const (
	// ReportEverySecs is the playback interval between periodic reports.
	ReportEverySecs = 10

	// NearEndFraction triggers one final report close to the end, even when
	// seeking skipped the last periodic second.
	NearEndFraction = 0.95
)

// Report is one sampled progress event for a video lesson.
type Report struct {
	Position           course.Position
	PositionSecs       float64
	DurationSecs       float64
	ProgressPercentage float64 // 0-100
}

// Sampler decides which playback observations of one lesson are reported.
type Sampler struct {
	pos         course.Position
	lastSecond  int
	nearEndSent bool
}

// New creates a sampler bound to the lesson at pos.
func New(pos course.Position) *Sampler {
	return &Sampler{pos: pos, lastSecond: -1}
}

// Position returns the lesson this sampler is bound to.
func (s *Sampler) Position() course.Position {
	return s.pos
}

// Observe feeds one playback position. It returns a report when
// floor(position) is a positive multiple of ReportEverySecs, or the first
// time the played fraction reaches NearEndFraction. The same second is
// never reported twice in a row.
func (s *Sampler) Observe(positionSecs, durationSecs float64) (Report, bool) {
	if !finite(positionSecs) || !finite(durationSecs) || durationSecs <= 0 || positionSecs < 0 {
		return Report{}, false
	}

	sec := int(math.Floor(positionSecs))
	fraction := math.Min(positionSecs/durationSecs, 1)

	periodic := sec > 0 && sec%ReportEverySecs == 0 && sec != s.lastSecond
	nearEnd := fraction >= NearEndFraction && !s.nearEndSent
	if !periodic && !nearEnd {
		return Report{}, false
	}

	if nearEnd {
		s.nearEndSent = true
	}
	s.lastSecond = sec
	return Report{
		Position:           s.pos,
		PositionSecs:       positionSecs,
		DurationSecs:       durationSecs,
		ProgressPercentage: fraction * 100,
	}, true
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
