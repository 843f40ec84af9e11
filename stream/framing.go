// Package stream implements the MADP comparison endpoint: a chunk-framed
// unidirectional transfer over a reliable byte stream, using the same
// chunk tagging as the UDP protocol but no reliability logic of its own —
// the transport already guarantees delivery and order, per spec.md §4.8.
package stream

import (
	"encoding/binary"
	"fmt"
	"io"
)

// FrameHeaderSize is the fixed header preceding each framed chunk's
// payload: 2-byte file_id + 2-byte chunk_num + 2-byte chunk_size +
// 1-byte last_of_file + 1-byte size_class.
const FrameHeaderSize = 2 + 2 + 2 + 1 + 1

// MaxFrameSize is the largest legal framed packet (header + MSS payload).
const MaxFrameSize = FrameHeaderSize + 1400

// EncodeFrame serializes one chunk-framed packet.
func EncodeFrame(fileID, chunkNum uint16, payload []byte, lastOfFile, sizeClass bool) []byte {
	buf := make([]byte, FrameHeaderSize+len(payload))
	binary.BigEndian.PutUint16(buf[0:2], fileID)
	binary.BigEndian.PutUint16(buf[2:4], chunkNum)
	binary.BigEndian.PutUint16(buf[4:6], uint16(len(payload)))
	buf[6] = boolByte(lastOfFile)
	buf[7] = boolByte(sizeClass)
	copy(buf[FrameHeaderSize:], payload)
	return buf
}

// Frame is one parsed chunk-framed packet.
type Frame struct {
	FileID     uint16
	ChunkNum   uint16
	Payload    []byte
	LastOfFile bool
	SizeClass  bool
}

// ReadFrame reads exactly one framed packet from r. It returns io.EOF only
// when zero bytes could be read for a fresh header (clean end of stream).
func ReadFrame(r io.Reader) (Frame, error) {
	var header [FrameHeaderSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return Frame{}, err
	}

	fileID := binary.BigEndian.Uint16(header[0:2])
	chunkNum := binary.BigEndian.Uint16(header[2:4])
	size := binary.BigEndian.Uint16(header[4:6])
	lastOfFile := header[6] != 0
	sizeClass := header[7] != 0

	payload := make([]byte, size)
	if _, err := io.ReadFull(r, payload); err != nil {
		return Frame{}, fmt.Errorf("stream: short payload for chunk %d of file %d: %w", chunkNum, fileID, err)
	}

	return Frame{
		FileID:     fileID,
		ChunkNum:   chunkNum,
		Payload:    payload,
		LastOfFile: lastOfFile,
		SizeClass:  sizeClass,
	}, nil
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}
