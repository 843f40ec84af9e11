package workload

import (
	"fmt"
	"os"
	"path/filepath"

	"madp/internal/wire"
)

// ReferenceFileCount is the number of files per size class in the reference
// workload (10 "small" + 10 "large").
const ReferenceFileCount = 10

// FileLoader reads the reference workload from disk. It is the external
// collaborator named in spec.md §6 ("Workload loader"): the core consumes
// only the Chunk sequence FileLoader produces.
type FileLoader struct {
	Dir string
}

// NewFileLoader returns a loader rooted at dir, where files are named
// "{size}-{j}.obj" for size in {small, large} and j in [0, ReferenceFileCount).
func NewFileLoader(dir string) *FileLoader {
	return &FileLoader{Dir: dir}
}

// Load reads all 20 reference objects fully into memory and splits each into
// MSS-sized chunks, interleaving small and large files of the same index so
// the global send order is small-0, large-0, small-1, large-1, ....
func (l *FileLoader) Load() (Sequence, error) {
	var seq Sequence

	for j := uint16(0); j < ReferenceFileCount; j++ {
		for _, sizeClass := range []bool{false, true} {
			name := objectName(sizeClass, j)
			data, err := os.ReadFile(filepath.Join(l.Dir, name))
			if err != nil {
				return nil, fmt.Errorf("workload: reading %s: %w", name, err)
			}
			seq = append(seq, chunkFile(j, sizeClass, data)...)
		}
	}

	return seq, nil
}

func chunkFile(fileID uint16, sizeClass bool, data []byte) []Chunk {
	if len(data) == 0 {
		return []Chunk{{FileID: fileID, ChunkNum: 0, Payload: nil, LastOfFile: true, SizeClass: sizeClass}}
	}

	var chunks []Chunk
	for offset := 0; offset < len(data); offset += wire.MSS {
		end := offset + wire.MSS
		if end > len(data) {
			end = len(data)
		}
		chunks = append(chunks, Chunk{
			FileID:    fileID,
			ChunkNum:  uint16(offset / wire.MSS),
			Payload:   data[offset:end],
			SizeClass: sizeClass,
		})
	}
	chunks[len(chunks)-1].LastOfFile = true
	return chunks
}

func objectName(sizeClass bool, fileID uint16) string {
	if sizeClass {
		return fmt.Sprintf("large-%d.obj", fileID)
	}
	return fmt.Sprintf("small-%d.obj", fileID)
}
