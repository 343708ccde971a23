package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/starford/taskwise/internal/apperr"
	"github.com/starford/taskwise/internal/models"
)

// NewTask is the input for CreateTask. A zero ID lets SQLite assign one.
type NewTask struct {
	ID          int64
	NotebookID  int64
	Title       string
	Description string
	Status      models.Status
	Priority    models.Priority
	Tags        []string
	DueDate     *time.Time
}

// TaskUpdate lists the fields to change; nil fields are left untouched.
type TaskUpdate struct {
	Title       *string
	Description *string
	Status      *models.Status
	Priority    *models.Priority
	DueDate     *time.Time
	Tags        []string
}

const taskSelect = `
	SELECT t.id, t.notebook_id, n.name, t.title, t.description, t.status,
	       t.priority, t.tags, t.due_date, t.created_at, t.updated_at
	FROM tasks t
	JOIN notebooks n ON n.id = t.notebook_id`

func scanTask(row interface{ Scan(...any) error }) (*models.Task, error) {
	var (
		t        models.Task
		status   string
		priority string
		tagsJSON string
		due      sql.NullTime
	)
	err := row.Scan(&t.ID, &t.NotebookID, &t.NotebookName, &t.Title, &t.Description,
		&status, &priority, &tagsJSON, &due, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	t.Status = models.Status(status)
	t.Priority = models.Priority(priority)
	_ = json.Unmarshal([]byte(tagsJSON), &t.Tags)
	if t.Tags == nil {
		t.Tags = []string{}
	}
	if due.Valid {
		d := due.Time
		t.DueDate = &d
	}
	return &t, nil
}

func (db *DB) queryTasks(query string, args ...any) ([]models.Task, error) {
	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

// ListTasks returns the tasks of one notebook in ascending id order.
func (db *DB) ListTasks(notebookID int64) ([]models.Task, error) {
	out, err := db.queryTasks(taskSelect+` WHERE t.notebook_id = ? ORDER BY t.id`, notebookID)
	if err != nil {
		return nil, fmt.Errorf("store: list tasks: %w", err)
	}
	return out, nil
}

// AllTasks returns every task, grouped by notebook creation order then task id.
func (db *DB) AllTasks() ([]models.Task, error) {
	out, err := db.queryTasks(taskSelect + ` ORDER BY n.id, t.id`)
	if err != nil {
		return nil, fmt.Errorf("store: all tasks: %w", err)
	}
	return out, nil
}

// GetTask returns a task by id, or apperr.ErrNotFound.
func (db *DB) GetTask(id int64) (*models.Task, error) {
	t, err := scanTask(db.conn.QueryRow(taskSelect+` WHERE t.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get task: %w", err)
	}
	return t, nil
}

// CreateTask inserts a task and its FTS entry within a transaction.
func (db *DB) CreateTask(in NewTask) (*models.Task, error) {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return nil, fmt.Errorf("store: task title is empty: %w", apperr.ErrInvalid)
	}
	if in.Status == "" {
		in.Status = models.StatusTodo
	}
	if !in.Status.Valid() || !in.Priority.Valid() {
		return nil, fmt.Errorf("store: status %q priority %q: %w", in.Status, in.Priority, apperr.ErrInvalid)
	}
	tags := normalizeTags(in.Tags)
	tagsJSON, _ := json.Marshal(tags)
	now := time.Now().UTC()

	tx, err := db.conn.Begin()
	if err != nil {
		return nil, fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	var id sql.NullInt64
	if in.ID > 0 {
		id = sql.NullInt64{Int64: in.ID, Valid: true}
	}
	res, err := tx.Exec(`
		INSERT INTO tasks (id, notebook_id, title, description, status, priority, tags, due_date, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, id, in.NotebookID, in.Title, in.Description, string(in.Status), string(in.Priority),
		string(tagsJSON), nullTime(in.DueDate), now, now)
	if err != nil {
		return nil, fmt.Errorf("store: insert task: %w", err)
	}
	newID, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("store: task id: %w", err)
	}
	if err := ftsUpsert(tx, newID, in.Title, in.Description, tags); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("store: commit: %w", err)
	}
	return db.GetTask(newID)
}

// UpdateTask applies upd to the task and refreshes its FTS entry.
func (db *DB) UpdateTask(id int64, upd TaskUpdate) (*models.Task, error) {
	cur, err := db.GetTask(id)
	if err != nil {
		return nil, err
	}
	if upd.Title != nil {
		cur.Title = strings.TrimSpace(*upd.Title)
	}
	if upd.Description != nil {
		cur.Description = *upd.Description
	}
	if upd.Status != nil {
		cur.Status = *upd.Status
	}
	if upd.Priority != nil {
		cur.Priority = *upd.Priority
	}
	if upd.DueDate != nil {
		cur.DueDate = upd.DueDate
	}
	if upd.Tags != nil {
		cur.Tags = normalizeTags(upd.Tags)
	}
	if cur.Title == "" || !cur.Status.Valid() || !cur.Priority.Valid() {
		return nil, fmt.Errorf("store: update task %d: %w", id, apperr.ErrInvalid)
	}
	tagsJSON, _ := json.Marshal(cur.Tags)

	tx, err := db.conn.Begin()
	if err != nil {
		return nil, fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.Exec(`
		UPDATE tasks SET
			title       = ?,
			description = ?,
			status      = ?,
			priority    = ?,
			tags        = ?,
			due_date    = ?,
			updated_at  = ?
		WHERE id = ?
	`, cur.Title, cur.Description, string(cur.Status), string(cur.Priority),
		string(tagsJSON), nullTime(cur.DueDate), time.Now().UTC(), id)
	if err != nil {
		return nil, fmt.Errorf("store: update task: %w", err)
	}
	if err := ftsUpsert(tx, id, cur.Title, cur.Description, cur.Tags); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("store: commit: %w", err)
	}
	return db.GetTask(id)
}

// DeleteTask removes a task and its FTS entry.
func (db *DB) DeleteTask(id int64) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.Exec(`DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("store: delete task: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.ErrNotFound
	}
	ftsDelete(tx, id)
	return tx.Commit()
}

func (db *DB) tasksByID(ids []int64) ([]models.Task, error) {
	out := make([]models.Task, 0, len(ids))
	for _, id := range ids {
		t, err := db.GetTask(id)
		if errors.Is(err, apperr.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, nil
}

func normalizeTags(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, tag := range in {
		tag = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(tag, "#")))
		if tag == "" {
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	sort.Strings(out)
	return out
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}
