package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	version  byte = 1
	kindItem byte = 1
)

var (
	ErrCorrupt = errors.New("cacheaside: corrupt entry")
	magic4     = [...]byte{'C', 'A', 'S', 'D'}
)

func hasMagic(b []byte) bool {
	return len(b) >= 4 && bytes.Equal(b[:4], magic4[:])
}

// Envelope is the stored form of a cache item. Times are unix nanoseconds,
// 0 meaning unset.
type Envelope struct {
	CreatedAt   int64
	ExpiresAt   int64
	Absolute    int64
	Sliding     int64
	Size        int64
	Priority    uint8
	ContentType string
	Payload     []byte
}

// fixed part: magic(4) | ver(1) | kind(1) | created(8) | expires(8) |
// absolute(8) | sliding(8) | size(8) | priority(1) | ctLen(u16 be)
const hdr = 4 + 1 + 1 + 8*5 + 1 + 2

// Encode: header | contentType(ctLen) | vlen(u32 be) | payload(vlen)
func Encode(e Envelope) ([]byte, error) {
	if len(e.ContentType) > 0xFFFF {
		return nil, fmt.Errorf("cacheaside: content type too long: %d", len(e.ContentType))
	}
	if uint64(len(e.Payload)) > 0xFFFFFFFF {
		return nil, fmt.Errorf("cacheaside: payload too large: %d", len(e.Payload))
	}

	var buf bytes.Buffer
	buf.Grow(hdr + len(e.ContentType) + 4 + len(e.Payload))

	buf.Write(magic4[:])
	buf.WriteByte(version)
	buf.WriteByte(kindItem)

	var u8 [8]byte
	for _, v := range [...]int64{e.CreatedAt, e.ExpiresAt, e.Absolute, e.Sliding, e.Size} {
		binary.BigEndian.PutUint64(u8[:], uint64(v))
		buf.Write(u8[:])
	}
	buf.WriteByte(e.Priority)

	var u2 [2]byte
	binary.BigEndian.PutUint16(u2[:], uint16(len(e.ContentType)))
	buf.Write(u2[:])
	buf.WriteString(e.ContentType)

	var u4 [4]byte
	binary.BigEndian.PutUint32(u4[:], uint32(len(e.Payload)))
	buf.Write(u4[:])
	buf.Write(e.Payload)

	return buf.Bytes(), nil
}

// Decode parses b strictly: trailing bytes are corruption.
// Payload aliases b.
func Decode(b []byte) (Envelope, error) {
	var e Envelope
	if len(b) < hdr || !hasMagic(b) || b[4] != version || b[5] != kindItem {
		return e, ErrCorrupt
	}

	off := 6
	fields := [...]*int64{&e.CreatedAt, &e.ExpiresAt, &e.Absolute, &e.Sliding, &e.Size}
	for _, f := range fields {
		*f = int64(binary.BigEndian.Uint64(b[off : off+8]))
		off += 8
	}
	e.Priority = b[off]
	off++

	ctLen := int(binary.BigEndian.Uint16(b[off : off+2]))
	off += 2
	if ctLen > len(b)-off {
		return Envelope{}, ErrCorrupt
	}
	e.ContentType = string(b[off : off+ctLen])
	off += ctLen

	if off+4 > len(b) {
		return Envelope{}, ErrCorrupt
	}
	vlen := int(binary.BigEndian.Uint32(b[off : off+4]))
	off += 4
	if vlen < 0 || vlen != len(b)-off {
		return Envelope{}, ErrCorrupt
	}
	e.Payload = b[off : off+vlen]
	return e, nil
}
