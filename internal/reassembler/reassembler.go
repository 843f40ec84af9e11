// Package reassembler implements the receiver-side per-file reassembler:
// it accumulates chunks keyed by (size_class, file_id) and, once every
// chunk of a file has arrived, concatenates and emits the completed file.
package reassembler

import (
	"madp/internal/workload"
)

// Reassembler holds in-flight per-file chunk maps. It is not safe for
// concurrent use; the receive loop that owns it is single-threaded per
// spec.md §5.
type Reassembler struct {
	sink  workload.Sink
	files map[workload.FileKey]*fileState
}

type fileState struct {
	chunks   map[uint16][]byte
	maxChunk uint16
	complete bool // a last_of_file chunk has arrived
}

// New returns a Reassembler that writes completed files to sink.
func New(sink workload.Sink) *Reassembler {
	return &Reassembler{
		sink:  sink,
		files: make(map[workload.FileKey]*fileState),
	}
}

// AddChunk stores one chunk and, if it completes its file, assembles and
// emits the file to the sink then discards the file's state.
//
// Completeness check: every index in [0, M] must be present, where M is the
// highest chunk_num observed for the file (see spec §9 — the Python
// reference checks [1, M], which is vacuously true for single-chunk files
// and never actually requires the zero-indexed first chunk of a multi-chunk
// file; this implementation deliberately checks [0, M] instead).
func (r *Reassembler) AddChunk(key workload.FileKey, chunkNum uint16, payload []byte, lastOfFile bool) error {
	fs, ok := r.files[key]
	if !ok {
		fs = &fileState{chunks: make(map[uint16][]byte)}
		r.files[key] = fs
	}

	fs.chunks[chunkNum] = payload
	if chunkNum > fs.maxChunk {
		fs.maxChunk = chunkNum
	}
	if lastOfFile {
		fs.complete = true
	}

	if !fs.complete || !isComplete(fs) {
		return nil
	}

	data := assemble(fs)
	delete(r.files, key)
	return r.sink.WriteFile(key, data)
}

func isComplete(fs *fileState) bool {
	for i := uint16(0); i <= fs.maxChunk; i++ {
		if _, ok := fs.chunks[i]; !ok {
			return false
		}
	}
	return true
}

func assemble(fs *fileState) []byte {
	var out []byte
	for i := uint16(0); i <= fs.maxChunk; i++ {
		out = append(out, fs.chunks[i]...)
	}
	return out
}

// Pending reports the number of files with in-flight, incomplete state.
// Exposed for metrics and tests.
func (r *Reassembler) Pending() int {
	return len(r.files)
}
