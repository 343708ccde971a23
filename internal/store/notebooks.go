package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/starford/taskwise/internal/apperr"
	"github.com/starford/taskwise/internal/models"
)

const notebookColumns = `id, name, is_default, created_at`

func scanNotebook(row interface{ Scan(...any) error }) (*models.Notebook, error) {
	var nb models.Notebook
	if err := row.Scan(&nb.ID, &nb.Name, &nb.IsDefault, &nb.CreatedAt); err != nil {
		return nil, err
	}
	return &nb, nil
}

// ListNotebooks returns every notebook in creation order.
func (db *DB) ListNotebooks() ([]models.Notebook, error) {
	rows, err := db.conn.Query(`SELECT ` + notebookColumns + ` FROM notebooks ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("store: list notebooks: %w", err)
	}
	defer rows.Close()

	var out []models.Notebook
	for rows.Next() {
		nb, err := scanNotebook(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *nb)
	}
	return out, rows.Err()
}

// NotebookByName looks a notebook up by case-insensitive name.
func (db *DB) NotebookByName(name string) (*models.Notebook, error) {
	nb, err := scanNotebook(db.conn.QueryRow(
		`SELECT `+notebookColumns+` FROM notebooks WHERE name = ?`, strings.TrimSpace(name)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: notebook by name: %w", err)
	}
	return nb, nil
}

// DefaultNotebook returns the notebook flagged as default, or apperr.ErrNotFound.
func (db *DB) DefaultNotebook() (*models.Notebook, error) {
	nb, err := scanNotebook(db.conn.QueryRow(
		`SELECT ` + notebookColumns + ` FROM notebooks WHERE is_default = 1`))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: default notebook: %w", err)
	}
	return nb, nil
}

// CreateNotebook inserts a notebook. When isDefault is set, any previous
// default loses the flag within the same transaction.
func (db *DB) CreateNotebook(name string, isDefault bool) (*models.Notebook, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("store: notebook name is empty: %w", apperr.ErrInvalid)
	}
	if _, err := db.NotebookByName(name); err == nil {
		return nil, apperr.ErrAlreadyExists
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return nil, fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	if isDefault {
		if _, err := tx.Exec(`UPDATE notebooks SET is_default = 0 WHERE is_default = 1`); err != nil {
			return nil, fmt.Errorf("store: clear default: %w", err)
		}
	}
	res, err := tx.Exec(`INSERT INTO notebooks (name, is_default, created_at) VALUES (?, ?, ?)`,
		name, isDefault, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("store: insert notebook: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("store: notebook id: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("store: commit: %w", err)
	}

	return scanNotebook(db.conn.QueryRow(`SELECT `+notebookColumns+` FROM notebooks WHERE id = ?`, id))
}

// SetDefaultNotebook moves the default flag to the named notebook.
func (db *DB) SetDefaultNotebook(name string) error {
	nb, err := db.NotebookByName(name)
	if err != nil {
		return err
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.Exec(`UPDATE notebooks SET is_default = 0 WHERE is_default = 1`); err != nil {
		return fmt.Errorf("store: clear default: %w", err)
	}
	if _, err := tx.Exec(`UPDATE notebooks SET is_default = 1 WHERE id = ?`, nb.ID); err != nil {
		return fmt.Errorf("store: set default: %w", err)
	}
	return tx.Commit()
}

// StatusCounts returns per-status task counts for one notebook.
func (db *DB) StatusCounts(notebookID int64) (models.StatusCounts, error) {
	var counts models.StatusCounts
	rows, err := db.conn.Query(
		`SELECT status, count(*) FROM tasks WHERE notebook_id = ? GROUP BY status`, notebookID)
	if err != nil {
		return counts, fmt.Errorf("store: status counts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return counts, err
		}
		counts.Add(models.Status(status), n)
	}
	return counts, rows.Err()
}
