package store

import (
	"context"
	stdsql "database/sql"
	"fmt"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
)

var progressEventColumns = []string{
	"id", "sequence", "timestamp", "session_id", "course_id", "lesson_id",
	"kind", "success", "status_code", "error_message", "latency_ms", "detail",
}

// eventRepo implements EventRepo backed by the ent SQL driver and the
// global sequence counter.
type eventRepo struct {
	drv *entsql.Driver
	seq *sequenceCounter
	now func() time.Time
}

func (r *eventRepo) clock() time.Time {
	if r.now != nil {
		return r.now()
	}
	return time.Now().UTC()
}

func (r *eventRepo) AppendProgressEvent(ctx context.Context, data ProgressEventData) error {
	seqNum, err := r.seq.Next(ctx)
	if err != nil {
		return fmt.Errorf("next sequence: %w", err)
	}

	query, args := entsql.Dialect(dialect.SQLite).
		Insert(tableProgressEvents).
		Columns(progressEventColumns[1:]...).
		Values(
			seqNum,
			r.clock(),
			data.SessionID,
			data.CourseID,
			data.LessonID,
			string(data.Kind),
			data.Success,
			data.StatusCode,
			data.ErrorMessage,
			data.LatencyMs,
			data.Detail,
		).
		Query()
	if err := r.drv.Exec(ctx, query, args, nil); err != nil {
		return fmt.Errorf("save progress event: %w", err)
	}
	return nil
}

func (r *eventRepo) QueryProgressEvents(ctx context.Context, opts QueryOpts) ([]ProgressEvent, error) {
	b := entsql.Dialect(dialect.SQLite)
	sel := b.Select(progressEventColumns...).
		From(b.Table(tableProgressEvents)).
		OrderBy(entsql.Desc("sequence"))

	if opts.After > 0 {
		sel.Where(entsql.GT("sequence", opts.After))
	}
	if opts.Before > 0 {
		sel.Where(entsql.LT("sequence", opts.Before))
	}
	if !opts.From.IsZero() {
		sel.Where(entsql.GTE("timestamp", opts.From))
	}
	if !opts.To.IsZero() {
		sel.Where(entsql.LTE("timestamp", opts.To))
	}
	if opts.CourseID != "" {
		sel.Where(entsql.EQ("course_id", opts.CourseID))
	}
	if opts.Kind != "" {
		sel.Where(entsql.EQ("kind", string(opts.Kind)))
	}
	if opts.Limit > 0 {
		sel.Limit(opts.Limit)
	}

	query, args := sel.Query()
	rows := &entsql.Rows{}
	if err := r.drv.Query(ctx, query, args, rows); err != nil {
		return nil, fmt.Errorf("query progress events: %w", err)
	}
	defer rows.Close()

	var events []ProgressEvent
	for rows.Next() {
		e, err := scanProgressEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate progress events: %w", err)
	}
	return events, nil
}

func (r *eventRepo) ProgressEvent(ctx context.Context, id int) (*ProgressEvent, error) {
	b := entsql.Dialect(dialect.SQLite)
	query, args := b.Select(progressEventColumns...).
		From(b.Table(tableProgressEvents)).
		Where(entsql.EQ("id", id)).
		Limit(1).
		Query()

	rows := &entsql.Rows{}
	if err := r.drv.Query(ctx, query, args, rows); err != nil {
		return nil, fmt.Errorf("query progress event %d: %w", id, err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("query progress event %d: %w", id, err)
		}
		return nil, fmt.Errorf("progress event %d: %w", id, ErrNotFound)
	}
	e, err := scanProgressEvent(rows)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *eventRepo) DeleteEvents(ctx context.Context, courseID string) (int64, error) {
	del := entsql.Dialect(dialect.SQLite).Delete(tableProgressEvents)
	if courseID != "" {
		del.Where(entsql.EQ("course_id", courseID))
	}
	query, args := del.Query()

	var res stdsql.Result
	if err := r.drv.Exec(ctx, query, args, &res); err != nil {
		return 0, fmt.Errorf("delete progress events: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete progress events: %w", err)
	}
	return n, nil
}

func scanProgressEvent(rows *entsql.Rows) (ProgressEvent, error) {
	var (
		e    ProgressEvent
		kind string
	)
	err := rows.Scan(
		&e.ID,
		&e.Sequence,
		&e.Timestamp,
		&e.SessionID,
		&e.CourseID,
		&e.LessonID,
		&kind,
		&e.Success,
		&e.StatusCode,
		&e.ErrorMessage,
		&e.LatencyMs,
		&e.Detail,
	)
	if err != nil {
		return ProgressEvent{}, fmt.Errorf("scan progress event: %w", err)
	}
	e.Kind = ProgressEventKind(kind)
	return e, nil
}
