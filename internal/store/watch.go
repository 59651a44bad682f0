package store

import (
	"context"
	stdsql "database/sql"
	"fmt"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
)

// watchRepo implements WatchRepo with an upsert keyed by
// (course_id, module_id, lesson_id).
type watchRepo struct {
	drv *entsql.Driver
}

func (r *watchRepo) SavePosition(ctx context.Context, p WatchPosition) error {
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = time.Now().UTC()
	}

	query, args := entsql.Dialect(dialect.SQLite).
		Insert(tableWatchPositions).
		Columns("course_id", "module_id", "lesson_id", "position_secs", "duration_secs", "updated_at").
		Values(p.CourseID, p.ModuleID, p.LessonID, p.PositionSecs, p.DurationSecs, p.UpdatedAt).
		OnConflict(
			entsql.ConflictColumns("course_id", "module_id", "lesson_id"),
			entsql.ResolveWithNewValues(),
		).
		Query()
	if err := r.drv.Exec(ctx, query, args, nil); err != nil {
		return fmt.Errorf("save watch position %s/%s: %w", p.ModuleID, p.LessonID, err)
	}
	return nil
}

func (r *watchRepo) Positions(ctx context.Context, courseID string) ([]WatchPosition, error) {
	b := entsql.Dialect(dialect.SQLite)
	query, args := b.Select("course_id", "module_id", "lesson_id", "position_secs", "duration_secs", "updated_at").
		From(b.Table(tableWatchPositions)).
		Where(entsql.EQ("course_id", courseID)).
		OrderBy("module_id", "lesson_id").
		Query()

	rows := &entsql.Rows{}
	if err := r.drv.Query(ctx, query, args, rows); err != nil {
		return nil, fmt.Errorf("query watch positions: %w", err)
	}
	defer rows.Close()

	var out []WatchPosition
	for rows.Next() {
		var p WatchPosition
		if err := rows.Scan(&p.CourseID, &p.ModuleID, &p.LessonID, &p.PositionSecs, &p.DurationSecs, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan watch position: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate watch positions: %w", err)
	}
	return out, nil
}

func (r *watchRepo) DeletePositions(ctx context.Context, courseID string) (int64, error) {
	del := entsql.Dialect(dialect.SQLite).Delete(tableWatchPositions)
	if courseID != "" {
		del.Where(entsql.EQ("course_id", courseID))
	}
	query, args := del.Query()

	var res stdsql.Result
	if err := r.drv.Exec(ctx, query, args, &res); err != nil {
		return 0, fmt.Errorf("delete watch positions: %w", err)
	}
	return res.RowsAffected()
}
