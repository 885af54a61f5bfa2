package migration

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

type migrationStep struct {
	Name string
	SQL  string
}

var steps = []migrationStep{
	{
		Name: "create_extension_uuid_ossp",
		SQL:  `CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`,
	},
	{
		Name: "create_table_reference_pdfs",
		SQL: `CREATE TABLE IF NOT EXISTS reference_pdfs (
  id           UUID        PRIMARY KEY DEFAULT uuid_generate_v4(),
  department   TEXT        NOT NULL DEFAULT 'default',
  storage_key  TEXT        NOT NULL UNIQUE,
  url          TEXT        NOT NULL,
  filename     TEXT        NOT NULL,
  file_size    BIGINT      NOT NULL DEFAULT 0 CHECK (file_size >= 0),
  content_type TEXT        NOT NULL,
  note         TEXT        NOT NULL DEFAULT '',
  uploaded_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_index_reference_pdfs_department",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_reference_pdfs_department ON reference_pdfs (department);`,
	},
	{
		Name: "create_index_reference_pdfs_uploaded_at",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_reference_pdfs_uploaded_at ON reference_pdfs (uploaded_at DESC);`,
	},
	{
		Name: "create_table_faculty",
		SQL: `CREATE TABLE IF NOT EXISTS faculty (
  id          UUID         PRIMARY KEY DEFAULT uuid_generate_v4(),
  department  TEXT         NOT NULL,
  name        VARCHAR(100) NOT NULL,
  email       VARCHAR(254) NOT NULL,
  designation VARCHAR(50),
  UNIQUE (department, email),
  UNIQUE (department, id)
);`,
	},
	{
		Name: "create_table_rooms",
		SQL: `CREATE TABLE IF NOT EXISTS rooms (
  id         UUID        PRIMARY KEY DEFAULT uuid_generate_v4(),
  department TEXT        NOT NULL,
  name       VARCHAR(50) NOT NULL,
  capacity   INTEGER     NOT NULL CHECK (capacity >= 0),
  type       VARCHAR(20) NOT NULL CHECK (type IN ('Lecture', 'Lab', 'Seminar')),
  UNIQUE (department, name),
  UNIQUE (department, id)
);`,
	},
	{
		Name: "create_table_subjects",
		SQL: `CREATE TABLE IF NOT EXISTS subjects (
  id         UUID         PRIMARY KEY DEFAULT uuid_generate_v4(),
  department TEXT         NOT NULL,
  name       VARCHAR(100) NOT NULL,
  code       VARCHAR(20)  NOT NULL,
  credits    INTEGER      NOT NULL CHECK (credits >= 0),
  UNIQUE (department, code),
  UNIQUE (department, id)
);`,
	},
	{
		Name: "create_table_timetable_entries",
		SQL: `CREATE TABLE IF NOT EXISTS timetable_entries (
  id            UUID        PRIMARY KEY DEFAULT uuid_generate_v4(),
  department    TEXT        NOT NULL,
  day_of_week   SMALLINT    NOT NULL CHECK (day_of_week BETWEEN 0 AND 6),
  start_time    TIME        NOT NULL,
  end_time      TIME        NOT NULL,
  faculty_id    UUID        NOT NULL,
  subject_id    UUID        NOT NULL,
  room_id       UUID        NOT NULL,
  semester      INTEGER     NOT NULL,
  section       VARCHAR(10) NOT NULL,
  academic_year INTEGER     NOT NULL,
  CHECK (start_time < end_time),
  FOREIGN KEY (department, faculty_id) REFERENCES faculty (department, id) ON DELETE CASCADE,
  FOREIGN KEY (department, subject_id) REFERENCES subjects (department, id) ON DELETE CASCADE,
  FOREIGN KEY (department, room_id) REFERENCES rooms (department, id) ON DELETE CASCADE
);`,
	},
	{
		Name: "create_index_timetable_entries_day",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_timetable_entries_day ON timetable_entries (department, day_of_week);`,
	},
	{
		Name: "create_index_timetable_entries_room_day",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_timetable_entries_room_day ON timetable_entries (department, room_id, day_of_week);`,
	},
	{
		Name: "create_index_timetable_entries_faculty_day",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_timetable_entries_faculty_day ON timetable_entries (department, faculty_id, day_of_week);`,
	},
}

// sentinelTable is created by the last table step; its presence means every step has run.
const sentinelTable = "timetable_entries"

// EnsureMigrated checks whether the newest table exists and creates the schema if it doesn't.
// Every step is idempotent, so a database created before the timetable tables catches up.
func EnsureMigrated(ctx context.Context, db *sql.DB, log *slog.Logger, dbHost string) error {
	start := time.Now()
	log = log.With("component", "database", "db_host", dbHost)

	log.Info("db_migration_check", "status", "starting")

	var exists bool
	query := "SELECT to_regclass('public." + sentinelTable + "') IS NOT NULL"
	if err := db.QueryRowContext(ctx, query).Scan(&exists); err != nil {
		log.Error("db_migration_failed",
			"status", "error",
			"error_message", fmt.Sprintf("failed to check sentinel table: %v", err),
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return fmt.Errorf("failed to check sentinel table: %w", err)
	}

	if exists {
		log.Info("db_migration_skip",
			"status", "success",
			"detail", "schema already exists, skipping migration",
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return nil
	}

	log.Info("db_migration_start", "status", "in_progress")

	for _, step := range steps {
		stepStart := time.Now()
		if _, err := db.ExecContext(ctx, step.SQL); err != nil {
			log.Error("db_migration_failed",
				"status", "error",
				"migration_step", step.Name,
				"error_message", err.Error(),
				"duration_ms", time.Since(start).Milliseconds(),
				"step_duration_ms", time.Since(stepStart).Milliseconds(),
			)
			return fmt.Errorf("migration step %s failed: %w", step.Name, err)
		}

		log.Info("db_migration_step",
			"status", "success",
			"migration_step", step.Name,
			"step_duration_ms", time.Since(stepStart).Milliseconds(),
		)
	}

	log.Info("db_migration_success",
		"status", "success",
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return nil
}
