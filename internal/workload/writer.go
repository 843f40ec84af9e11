package workload

import (
	"fmt"
	"os"
	"path/filepath"
)

// Sink is the boundary the receiver core writes completed files through.
// FileWriter is the production implementation; tests substitute an
// in-memory sink.
type Sink interface {
	WriteFile(key FileKey, data []byte) error
}

// FileWriter writes reconstructed files to a configured directory, one file
// per completed (size_class, file_id), named to disambiguate class and id.
type FileWriter struct {
	Dir string
}

// NewFileWriter returns a writer rooted at dir. WriteFile creates the
// directory if it does not already exist.
func NewFileWriter(dir string) *FileWriter {
	return &FileWriter{Dir: dir}
}

func (w *FileWriter) WriteFile(key FileKey, data []byte) error {
	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return fmt.Errorf("workload: creating output dir: %w", err)
	}
	name := "reconstructed-" + objectName(key.SizeClass, key.FileID)
	if err := os.WriteFile(filepath.Join(w.Dir, name), data, 0o644); err != nil {
		return fmt.Errorf("workload: writing %s: %w", name, err)
	}
	return nil
}
