package stream

import (
	"io"

	"madp/internal/reassembler"
	"madp/internal/workload"
)

// Send writes every chunk of seq as a framed packet onto w, in sequence
// order. There is no windowing, no checksum, and no acknowledgment — the
// byte stream already guarantees reliable, ordered delivery.
func Send(w io.Writer, seq workload.Source) error {
	for _, c := range seq.Chunks() {
		if _, err := w.Write(EncodeFrame(c.FileID, c.ChunkNum, c.Payload, c.LastOfFile, c.SizeClass)); err != nil {
			return err
		}
	}
	return nil
}

// Receive reads framed packets from r until end-of-stream, feeding each to
// a Reassembler that writes completed files to sink.
func Receive(r io.Reader, sink workload.Sink) error {
	reasm := reassembler.New(sink)
	for {
		frame, err := ReadFrame(r)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		key := workload.FileKey{SizeClass: frame.SizeClass, FileID: frame.FileID}
		if err := reasm.AddChunk(key, frame.ChunkNum, frame.Payload, frame.LastOfFile); err != nil {
			return err
		}
	}
}
