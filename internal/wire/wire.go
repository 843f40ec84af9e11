// Package wire implements the MADP on-wire framing codec: the fixed header
// prepended to every data packet and every acknowledgment, and the MD5-style
// integrity digest that guards each.
package wire

import (
	"crypto/md5"
	"encoding/binary"
	"errors"
	"time"
)

const (
	// DigestSize is the width of the MD5 integrity digest carried by both
	// data and ACK packets.
	DigestSize = 16

	// MSS is the maximum payload carried by a single data packet.
	MSS = 1400

	// DataHeaderSize is the fixed header preceding a data packet's payload:
	// 16 digest + 8 timestamp + 2 seq_num + 2 file_id + 2 chunk_num +
	// 2 total_chunks + 1 last_of_file + 1 size_class.
	DataHeaderSize = DigestSize + 8 + 2 + 2 + 2 + 2 + 1 + 1

	// MaxDataPacketSize is the largest legal data packet on the wire.
	MaxDataPacketSize = DataHeaderSize + MSS

	// AckPacketSize is the fixed size of every ACK packet: 16 digest +
	// 8 echoed timestamp + 2 ack_seq.
	AckPacketSize = DigestSize + 8 + 2
)

// ErrCorruptPacket is returned by DecodeData when the recomputed payload
// digest does not match the transmitted one.
var ErrCorruptPacket = errors.New("wire: data packet failed integrity check")

// ErrCorruptAck is returned by DecodeAck when the recomputed ack_seq digest
// does not match the transmitted one.
var ErrCorruptAck = errors.New("wire: ack packet failed integrity check")

// ErrShortPacket is returned when a buffer is too small to hold a valid
// header of the requested kind.
var ErrShortPacket = errors.New("wire: packet shorter than header")

// DataFields are the parsed, verified header fields of a data packet. The
// payload itself is returned separately to avoid a copy when the caller
// already owns the decode buffer.
type DataFields struct {
	SentAt      time.Time
	SeqNum      uint16
	FileID      uint16
	ChunkNum    uint16
	TotalChunks uint16
	LastOfFile  bool
	SizeClass   bool
}

// EncodeData serializes a data packet. The digest covers payload only (not
// the header), which lets a retransmission rewrite the timestamp and
// seq_num fields without recomputing the digest over the whole packet.
func EncodeData(payload []byte, seqNum, fileID, chunkNum, totalChunks uint16, lastOfFile, sizeClass bool, now time.Time) []byte {
	buf := make([]byte, DataHeaderSize+len(payload))

	digest := md5.Sum(payload)
	copy(buf[0:16], digest[:])

	binary.BigEndian.PutUint64(buf[16:24], uint64(now.UnixNano()))
	binary.BigEndian.PutUint16(buf[24:26], seqNum)
	binary.BigEndian.PutUint16(buf[26:28], fileID)
	binary.BigEndian.PutUint16(buf[28:30], chunkNum)
	binary.BigEndian.PutUint16(buf[30:32], totalChunks)
	buf[32] = boolByte(lastOfFile)
	buf[33] = boolByte(sizeClass)

	copy(buf[DataHeaderSize:], payload)
	return buf
}

// DecodeData parses and verifies a data packet. On digest mismatch it
// returns ErrCorruptPacket; callers must silently drop the packet per
// spec — this function never signals the peer.
func DecodeData(pkt []byte) (DataFields, []byte, error) {
	if len(pkt) < DataHeaderSize {
		return DataFields{}, nil, ErrShortPacket
	}

	payload := pkt[DataHeaderSize:]
	digest := md5.Sum(payload)
	if !equalDigest(digest[:], pkt[0:16]) {
		return DataFields{}, nil, ErrCorruptPacket
	}

	fields := DataFields{
		SentAt:      time.Unix(0, int64(binary.BigEndian.Uint64(pkt[16:24]))),
		SeqNum:      binary.BigEndian.Uint16(pkt[24:26]),
		FileID:      binary.BigEndian.Uint16(pkt[26:28]),
		ChunkNum:    binary.BigEndian.Uint16(pkt[28:30]),
		TotalChunks: binary.BigEndian.Uint16(pkt[30:32]),
		LastOfFile:  pkt[32] != 0,
		SizeClass:   pkt[33] != 0,
	}
	return fields, payload, nil
}

// EncodeAck serializes a cumulative acknowledgment. The digest covers only
// the 2-byte ack_seq.
func EncodeAck(ackSeq uint16, echoTS time.Time) []byte {
	buf := make([]byte, AckPacketSize)

	var seqBytes [2]byte
	binary.BigEndian.PutUint16(seqBytes[:], ackSeq)
	digest := md5.Sum(seqBytes[:])
	copy(buf[0:16], digest[:])

	binary.BigEndian.PutUint64(buf[16:24], uint64(echoTS.UnixNano()))
	copy(buf[24:26], seqBytes[:])
	return buf
}

// DecodeAck parses and verifies an ACK packet.
func DecodeAck(pkt []byte) (ackSeq uint16, echoTS time.Time, err error) {
	if len(pkt) < AckPacketSize {
		return 0, time.Time{}, ErrShortPacket
	}

	seqBytes := pkt[24:26]
	digest := md5.Sum(seqBytes)
	if !equalDigest(digest[:], pkt[0:16]) {
		return 0, time.Time{}, ErrCorruptAck
	}

	ackSeq = binary.BigEndian.Uint16(seqBytes)
	echoTS = time.Unix(0, int64(binary.BigEndian.Uint64(pkt[16:24])))
	return ackSeq, echoTS, nil
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

func equalDigest(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
