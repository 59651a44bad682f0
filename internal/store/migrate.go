package store

import (
	"context"

	"entgo.io/ent/dialect"
	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"
)

const (
	tableProgressEvents = "progress_events"
	tableSnapshots      = "progress_snapshots"
	tableWatchPositions = "watch_positions"
)

var (
	progressEventsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt, Increment: true},
		{Name: "sequence", Type: field.TypeInt64, Unique: true},
		{Name: "timestamp", Type: field.TypeTime},
		{Name: "session_id", Type: field.TypeString},
		{Name: "course_id", Type: field.TypeString},
		{Name: "lesson_id", Type: field.TypeString, Default: ""},
		{Name: "kind", Type: field.TypeString},
		{Name: "success", Type: field.TypeBool},
		{Name: "status_code", Type: field.TypeInt, Default: 0},
		{Name: "error_message", Type: field.TypeString, Size: 2147483647, Default: ""},
		{Name: "latency_ms", Type: field.TypeInt64, Default: 0},
		{Name: "detail", Type: field.TypeString, Size: 2147483647, Default: ""},
	}
	progressEventsTable = &schema.Table{
		Name:       tableProgressEvents,
		Columns:    progressEventsColumns,
		PrimaryKey: []*schema.Column{progressEventsColumns[0]},
		Indexes: []*schema.Index{
			{Name: "progressevent_timestamp", Columns: []*schema.Column{progressEventsColumns[2]}},
			{Name: "progressevent_course_id", Columns: []*schema.Column{progressEventsColumns[4]}},
			{Name: "progressevent_kind", Columns: []*schema.Column{progressEventsColumns[6]}},
		},
	}

	snapshotsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt, Increment: true},
		{Name: "course_id", Type: field.TypeString},
		{Name: "sequence", Type: field.TypeInt64},
		{Name: "timestamp", Type: field.TypeTime},
		{Name: "data", Type: field.TypeString, Size: 2147483647},
	}
	snapshotsTable = &schema.Table{
		Name:       tableSnapshots,
		Columns:    snapshotsColumns,
		PrimaryKey: []*schema.Column{snapshotsColumns[0]},
		Indexes: []*schema.Index{
			{Name: "snapshot_course_id_timestamp", Columns: []*schema.Column{snapshotsColumns[1], snapshotsColumns[3]}},
		},
	}

	watchPositionsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt, Increment: true},
		{Name: "course_id", Type: field.TypeString},
		{Name: "module_id", Type: field.TypeString},
		{Name: "lesson_id", Type: field.TypeString},
		{Name: "position_secs", Type: field.TypeFloat64},
		{Name: "duration_secs", Type: field.TypeFloat64},
		{Name: "updated_at", Type: field.TypeTime},
	}
	watchPositionsTable = &schema.Table{
		Name:       tableWatchPositions,
		Columns:    watchPositionsColumns,
		PrimaryKey: []*schema.Column{watchPositionsColumns[0]},
		Indexes: []*schema.Index{
			{
				Name:    "watchposition_course_id_module_id_lesson_id",
				Unique:  true,
				Columns: []*schema.Column{watchPositionsColumns[1], watchPositionsColumns[2], watchPositionsColumns[3]},
			},
		},
	}

	tables = []*schema.Table{progressEventsTable, snapshotsTable, watchPositionsTable}
)

// migrate creates or updates the tables above.
func migrate(ctx context.Context, drv dialect.Driver) error {
	m, err := schema.NewMigrate(drv)
	if err != nil {
		return err
	}
	return m.Create(ctx, tables...)
}
