// Package storage defines the import inbox: a directory of task documents
// (.json import documents and .md frontmatter task files).
package storage

import (
	"path/filepath"
	"strings"

	"github.com/starford/taskwise/internal/models"
)

// ArchiveDir is the inbox subdirectory that holds applied files. List skips it.
const ArchiveDir = "processed"

// Provider is the interface for inbox file operations. Paths are relative
// to the inbox root.
type Provider interface {
	// List returns metadata for every importable file under dir.
	List(dir string) ([]models.ImportFile, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically writes content to path.
	Write(path string, content []byte) error
	// Move renames oldPath to newPath.
	Move(oldPath, newPath string) error
}

// Importable reports whether name has an extension the importer understands.
func Importable(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json", ".md":
		return true
	}
	return false
}
