package tasks

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrNotFound reports that no task exists with the requested id.
var ErrNotFound = errors.New("task not found")

// timeLayout matches the millisecond-precision ISO-8601 UTC strings stored in
// created_at/updated_at, so datetime() ordering and round-trips stay exact.
const timeLayout = "2006-01-02T15:04:05.000Z"

const taskColumns = "id, title, description, due_date, done, created_at, updated_at"

// Store executes task queries against the shared database handle.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

type taskRow struct {
	id          int64
	title       string
	description string
	dueDate     string
	done        int64
	createdAt   string
	updatedAt   string
}

// toTask maps the stored snake_case row onto the wire shape, field by field.
func (r taskRow) toTask() Task {
	return Task{
		ID:          r.id,
		Title:       r.title,
		Description: r.description,
		DueDate:     r.dueDate,
		Done:        r.done == 1,
		CreatedAt:   r.createdAt,
		UpdatedAt:   r.updatedAt,
	}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

// List returns all tasks newest first, optionally filtered by done state.
func (s *Store) List(ctx context.Context, done *bool) ([]Task, error) {
	query := "SELECT " + taskColumns + " FROM tasks"
	var args []any
	if done != nil {
		query += " WHERE done = ?"
		args = append(args, boolToInt(*done))
	}
	query += " ORDER BY datetime(created_at) DESC, id DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	tasks := []Task{}
	for rows.Next() {
		var r taskRow
		if err := rows.Scan(&r.id, &r.title, &r.description, &r.dueDate, &r.done, &r.createdAt, &r.updatedAt); err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, r.toTask())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

// Get returns the task with the given id, or ErrNotFound.
func (s *Store) Get(ctx context.Context, id int64) (Task, error) {
	var r taskRow
	err := s.db.QueryRowContext(ctx, "SELECT "+taskColumns+" FROM tasks WHERE id = ?", id).
		Scan(&r.id, &r.title, &r.description, &r.dueDate, &r.done, &r.createdAt, &r.updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Task{}, ErrNotFound
	}
	if err != nil {
		return Task{}, fmt.Errorf("get task %d: %w", id, err)
	}
	return r.toTask(), nil
}

// Insert creates a task with done=false and returns the generated id.
func (s *Store) Insert(ctx context.Context, title, description, dueDate string, now time.Time) (int64, error) {
	ts := formatTime(now)
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO tasks (title, description, due_date, done, created_at, updated_at)
		 VALUES (?, ?, ?, 0, ?, ?)`,
		title, description, dueDate, ts, ts)
	if err != nil {
		return 0, fmt.Errorf("insert task: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert task id: %w", err)
	}
	return id, nil
}

// Update holds the fields of a partial update; nil fields stay untouched.
type Update struct {
	Title       *string
	Description *string
	DueDate     *string
	Done        *bool
}

// Update applies the supplied fields plus a fresh updated_at. It returns the
// affected row count so callers can tell a vanished task from an update.
func (s *Store) Update(ctx context.Context, id int64, upd Update, now time.Time) (int64, error) {
	assignments := make([]string, 0, 5)
	args := make([]any, 0, 6)
	if upd.Title != nil {
		assignments = append(assignments, "title = ?")
		args = append(args, *upd.Title)
	}
	if upd.Description != nil {
		assignments = append(assignments, "description = ?")
		args = append(args, *upd.Description)
	}
	if upd.DueDate != nil {
		assignments = append(assignments, "due_date = ?")
		args = append(args, *upd.DueDate)
	}
	if upd.Done != nil {
		assignments = append(assignments, "done = ?")
		args = append(args, boolToInt(*upd.Done))
	}
	assignments = append(assignments, "updated_at = ?")
	args = append(args, formatTime(now), id)

	res, err := s.db.ExecContext(ctx,
		"UPDATE tasks SET "+strings.Join(assignments, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return 0, fmt.Errorf("update task %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("update task %d: %w", id, err)
	}
	return n, nil
}

// Delete removes the task row and returns the affected count.
func (s *Store) Delete(ctx context.Context, id int64) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM tasks WHERE id = ?", id)
	if err != nil {
		return 0, fmt.Errorf("delete task %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete task %d: %w", id, err)
	}
	return n, nil
}
