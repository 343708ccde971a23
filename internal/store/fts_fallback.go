//go:build !sqlite_fts5

package store

import (
	"database/sql"
	"fmt"

	"github.com/starford/taskwise/internal/models"
)

func initFTS(_ *sql.DB) error {
	// FTS5 not available; search uses LIKE on the tasks table.
	return nil
}

func ftsUpsert(_ *sql.Tx, _ int64, _, _ string, _ []string) error {
	return nil
}

func ftsDelete(_ *sql.Tx, _ int64) {}

// SearchTasks performs a LIKE-based search (fallback when FTS5 is not compiled in).
func (db *DB) SearchTasks(query string, limit int) ([]models.Task, error) {
	if limit <= 0 {
		limit = 20
	}
	like := "%" + query + "%"
	out, err := db.queryTasks(taskSelect+`
		WHERE t.title LIKE ? OR t.description LIKE ? OR t.tags LIKE ?
		ORDER BY n.id, t.id
		LIMIT ?
	`, like, like, like, limit)
	if err != nil {
		return nil, fmt.Errorf("store: search: %w", err)
	}
	return out, nil
}
