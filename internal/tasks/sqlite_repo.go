package tasks

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/pressly/goose/v3"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const taskColumns = `id, title, description, completed`

type SQLiteRepo struct {
	db     *sql.DB
	tracer trace.Tracer
}

func NewSQLiteRepo(dsn string) (*SQLiteRepo, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// Reasonable pragmas for an app server
	if _, err := db.Exec(`
		PRAGMA journal_mode=WAL;
		PRAGMA synchronous=NORMAL;
		PRAGMA foreign_keys=ON;
	`); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteRepo{db: db, tracer: otel.Tracer("tasks/sqlite")}, nil
}

func (r *SQLiteRepo) Close() error { return r.db.Close() }

// Ping checks that the database is reachable.
func (r *SQLiteRepo) Ping(ctx context.Context) error { return r.db.PingContext(ctx) }

// Create inserts a task and returns the stored row, including its new id.
func (r *SQLiteRepo) Create(ctx context.Context, in CreateTask) (Task, error) {
	ctx, span := r.startSpan(ctx, "tasks.create")
	defer span.End()

	if in.Title == "" {
		return Task{}, ErrTitleRequired
	}

	var t Task
	err := runInTx(ctx, r.db, func(ctx context.Context, tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, `
			INSERT INTO tasks (title, description, completed)
			VALUES (?, ?, ?)
			RETURNING `+taskColumns,
			in.Title, nullString(in.Description), in.Completed.Value)
		var err error
		t, err = scanTask(row)
		return err
	})
	if err != nil {
		return Task{}, recordErr(span, fmt.Errorf("create task: %w", err))
	}
	span.SetAttributes(attribute.Int64("task.id", t.ID))
	return t, nil
}

// FindAll lists tasks in id order, optionally filtered by completion.
func (r *SQLiteRepo) FindAll(ctx context.Context, completed *bool) ([]Task, error) {
	ctx, span := r.startSpan(ctx, "tasks.find_all")
	defer span.End()

	query := `SELECT ` + taskColumns + ` FROM tasks`
	var args []any
	if completed != nil {
		query += ` WHERE completed = ?`
		args = append(args, *completed)
		span.SetAttributes(attribute.Bool("task.completed_filter", *completed))
	}
	query += ` ORDER BY id ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, recordErr(span, fmt.Errorf("list tasks: %w", err))
	}
	defer rows.Close()

	out := []Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, recordErr(span, fmt.Errorf("list tasks: %w", err))
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, recordErr(span, fmt.Errorf("list tasks: %w", err))
	}
	return out, nil
}

func (r *SQLiteRepo) FindByID(ctx context.Context, id int64) (Task, bool, error) {
	ctx, span := r.startSpan(ctx, "tasks.find_by_id", attribute.Int64("task.id", id))
	defer span.End()

	t, ok, err := findByID(ctx, r.db, id)
	if err != nil {
		return Task{}, false, recordErr(span, fmt.Errorf("get task %d: %w", id, err))
	}
	return t, ok, nil
}

// Update applies the set fields of patch. Concurrent updates are
// last-write-wins.
func (r *SQLiteRepo) Update(ctx context.Context, id int64, patch UpdateTask) (Task, bool, error) {
	ctx, span := r.startSpan(ctx, "tasks.update", attribute.Int64("task.id", id))
	defer span.End()

	if err := patch.check(); err != nil {
		return Task{}, false, err
	}

	var (
		t     Task
		found bool
	)
	err := runInTx(ctx, r.db, func(ctx context.Context, tx *sql.Tx) error {
		cur, ok, err := findByID(ctx, tx, id)
		if err != nil || !ok {
			return err
		}
		found = true
		if patch.Empty() {
			t = cur
			return nil
		}
		t = patch.apply(cur)
		_, err = tx.ExecContext(ctx, `
			UPDATE tasks
			SET title = ?, description = ?, completed = ?
			WHERE id = ?
		`, t.Title, nullString(t.Description), t.Completed, id)
		return err
	})
	if err != nil {
		return Task{}, false, recordErr(span, fmt.Errorf("update task %d: %w", id, err))
	}
	return t, found, nil
}

func (r *SQLiteRepo) Delete(ctx context.Context, id int64) (bool, error) {
	ctx, span := r.startSpan(ctx, "tasks.delete", attribute.Int64("task.id", id))
	defer span.End()

	var deleted bool
	err := runInTx(ctx, r.db, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		deleted = n > 0
		return nil
	})
	if err != nil {
		return false, recordErr(span, fmt.Errorf("delete task %d: %w", id, err))
	}
	return deleted, nil
}

// ApplyMigrations brings the schema up to date. Safe to run on every start.
func (r *SQLiteRepo) ApplyMigrations(ctx context.Context) error {
	fsys, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return err
	}
	provider, err := goose.NewProvider(goose.DialectSQLite3, r.db, fsys)
	if err != nil {
		return fmt.Errorf("init migrations: %w", err)
	}
	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	for _, res := range results {
		slog.InfoContext(ctx, "migration_applied",
			slog.Int64("version", res.Source.Version),
			slog.String("file", filepath.Base(res.Source.Path)),
			slog.Duration("duration", res.Duration),
		)
	}
	return nil
}

// Helper to build DSN like: file:/absolute/path?_pragma=busy_timeout(5000)&_txlock=immediate
func SQLiteFileDSN(path string) (string, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	// immediate locking keeps read-then-write transactions from failing
	// with SQLITE_BUSY under concurrent writers
	return "file:" + filepath.ToSlash(abs) + "?_pragma=busy_timeout(5000)&_txlock=immediate", nil
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type scanner interface {
	Scan(dest ...any) error
}

func findByID(ctx context.Context, q queryRower, id int64) (Task, bool, error) {
	row := q.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Task{}, false, nil
	}
	if err != nil {
		return Task{}, false, err
	}
	return t, true, nil
}

func scanTask(s scanner) (Task, error) {
	var (
		t    Task
		desc sql.NullString
	)
	if err := s.Scan(&t.ID, &t.Title, &desc, &t.Completed); err != nil {
		return Task{}, err
	}
	if desc.Valid {
		t.Description = &desc.String
	}
	return t, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func (r *SQLiteRepo) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return r.tracer.Start(ctx, name,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(append(attrs, attribute.String("db.system", "sqlite"))...),
	)
}

func recordErr(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
