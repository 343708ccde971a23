package store

import (
	"fmt"
	"time"
)

// ImportChecksums returns the checksum recorded for every imported file.
func (db *DB) ImportChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT path, checksum FROM imports`)
	if err != nil {
		return nil, fmt.Errorf("store: import checksums: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var p, cs string
		if err := rows.Scan(&p, &cs); err != nil {
			return nil, err
		}
		out[p] = cs
	}
	return out, rows.Err()
}

// RecordImport marks path as imported at the given checksum.
func (db *DB) RecordImport(path, checksum string) error {
	_, err := db.conn.Exec(`
		INSERT INTO imports (path, checksum, imported_at)
		VALUES (?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			checksum    = excluded.checksum,
			imported_at = excluded.imported_at
	`, path, checksum, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("store: record import: %w", err)
	}
	return nil
}
