//go:build sqlite_fts5

package store

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/starford/taskwise/internal/models"
)

func initFTS(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS tasks_fts USING fts5(
			task_id UNINDEXED,
			title,
			description,
			tags,
			tokenize = 'unicode61 remove_diacritics 2'
		);
	`)
	return err
}

func ftsUpsert(tx *sql.Tx, id int64, title, description string, tags []string) error {
	_, _ = tx.Exec(`DELETE FROM tasks_fts WHERE task_id = ?`, id)
	_, err := tx.Exec(`INSERT INTO tasks_fts (task_id, title, description, tags) VALUES (?, ?, ?, ?)`,
		id, title, description, strings.Join(tags, " "))
	if err != nil {
		return fmt.Errorf("store: upsert fts: %w", err)
	}
	return nil
}

func ftsDelete(tx *sql.Tx, id int64) {
	_, _ = tx.Exec(`DELETE FROM tasks_fts WHERE task_id = ?`, id)
}

// SearchTasks performs an FTS5 full-text search ordered by rank.
func (db *DB) SearchTasks(query string, limit int) ([]models.Task, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.conn.Query(`
		SELECT task_id
		FROM tasks_fts
		WHERE tasks_fts MATCH ?
		ORDER BY rank
		LIMIT ?
	`, ftsQuery(query), limit)
	if err != nil {
		return nil, fmt.Errorf("store: search: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return db.tasksByID(ids)
}

// ftsQuery quotes every word so user input never hits FTS5 query syntax.
func ftsQuery(q string) string {
	words := strings.Fields(q)
	for i, w := range words {
		words[i] = `"` + strings.ReplaceAll(w, `"`, `""`) + `"`
	}
	return strings.Join(words, " ")
}
