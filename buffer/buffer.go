// Package buffer implements the reactor's growable byte container: a
// contiguous slice split into three regions — prependable | readable |
// writable — so that header stamping after the fact (prepend) and bulk
// appends (the common case for a read off the wire) both avoid copying
// the readable region on the fast path.
//
// Grounded on original_source/net/Buffer.h: the constants, the
// compact-before-grow rule in makeSpace, and the two-iovec scatter read in
// ReadFrom are all ported from there.
package buffer

import (
	"bytes"
	"encoding/binary"
	"errors"
)

const (
	// CheapPrepend is the headroom reserved at the front of a freshly
	// created Buffer, big enough for a 4-byte length prefix plus slack.
	CheapPrepend = 8

	// InitialSize is the writable capacity of a freshly created Buffer.
	InitialSize = 1024

	// extraBufSize is the size of the stack-local scatter buffer used by
	// ReadFrom to absorb a read larger than the buffer's writable region
	// without growing the buffer on every large read.
	extraBufSize = 65536
)

// ErrPrependTooLarge is returned by Prepend when the buffer's prependable
// region is smaller than the data being prepended.
var ErrPrependTooLarge = errors.New("buffer: not enough prependable bytes")

// Buffer is not safe for concurrent use; callers (always the owning
// connection, always on its loop goroutine) guarantee single-goroutine
// access.
type Buffer struct {
	buf    []byte
	reader int
	writer int
}

// New returns a Buffer with the standard prepend reserve and initial
// writable capacity.
func New() *Buffer {
	return &Buffer{
		buf:    make([]byte, CheapPrepend+InitialSize),
		reader: CheapPrepend,
		writer: CheapPrepend,
	}
}

// Size returns the total capacity of the underlying storage: the sum of
// the prependable, readable and writable regions.
func (b *Buffer) Size() int { return len(b.buf) }

// ReadableBytes returns the number of bytes available to Peek/Retrieve.
func (b *Buffer) ReadableBytes() int { return b.writer - b.reader }

// WritableBytes returns the number of bytes available to Append without growing.
func (b *Buffer) WritableBytes() int { return len(b.buf) - b.writer }

// PrependableBytes returns the number of bytes available to Prepend.
func (b *Buffer) PrependableBytes() int { return b.reader }

// Peek returns a view of the readable region; it is not a copy and is
// invalidated by the next mutating call.
func (b *Buffer) Peek() []byte {
	return b.buf[b.reader:b.writer]
}

// Retrieve advances the reader offset by n, discarding the first n
// readable bytes. n must not exceed ReadableBytes.
func (b *Buffer) Retrieve(n int) {
	if n < b.ReadableBytes() {
		b.reader += n
	} else {
		b.RetrieveAll()
	}
}

// RetrieveAll discards every readable byte and recovers the headroom by
// resetting both offsets back to the prepend boundary.
func (b *Buffer) RetrieveAll() {
	b.reader = CheapPrepend
	b.writer = CheapPrepend
}

// RetrieveAsString retrieves n bytes and returns them as a string.
func (b *Buffer) RetrieveAsString(n int) string {
	s := string(b.buf[b.reader : b.reader+n])
	b.Retrieve(n)
	return s
}

// RetrieveAllAsString retrieves every readable byte and returns it as a string.
func (b *Buffer) RetrieveAllAsString() string {
	return b.RetrieveAsString(b.ReadableBytes())
}

// Append appends data to the writable region, growing or compacting the
// underlying storage first if necessary.
func (b *Buffer) Append(data []byte) {
	b.EnsureWritableBytes(len(data))
	copy(b.buf[b.writer:], data)
	b.writer += len(data)
}

// EnsureWritableBytes guarantees WritableBytes() >= n, compacting the
// readable region to the prepend boundary when that alone makes enough
// room, otherwise growing the backing array. The initial prepend reserve
// is never given up by compaction.
func (b *Buffer) EnsureWritableBytes(n int) {
	if b.WritableBytes() >= n {
		return
	}
	b.makeSpace(n)
}

func (b *Buffer) makeSpace(n int) {
	if b.PrependableBytes()+b.WritableBytes() < n+CheapPrepend {
		grown := make([]byte, b.writer+n)
		copy(grown, b.buf[:b.writer])
		b.buf = grown
		return
	}

	readable := b.ReadableBytes()
	copy(b.buf[CheapPrepend:], b.buf[b.reader:b.writer])
	b.reader = CheapPrepend
	b.writer = b.reader + readable
}

// Prepend moves the reader offset back by len(data) and copies data into
// the freed space, used for stamping a header onto an already-built
// payload. It fails if the prependable region is smaller than len(data).
func (b *Buffer) Prepend(data []byte) error {
	if len(data) > b.PrependableBytes() {
		return ErrPrependTooLarge
	}
	b.reader -= len(data)
	copy(b.buf[b.reader:], data)
	return nil
}

// FindCRLF returns the offset (relative to the start of the readable
// region) of the first "\r\n", or -1 if none is present.
func (b *Buffer) FindCRLF() int {
	return bytes.Index(b.Peek(), []byte{'\r', '\n'})
}

// FindEOL returns the offset (relative to the start of the readable
// region) of the first '\n', or -1 if none is present.
func (b *Buffer) FindEOL() int {
	return bytes.IndexByte(b.Peek(), '\n')
}

// AppendUint8 appends a single byte.
func (b *Buffer) AppendUint8(v uint8) { b.Append([]byte{v}) }

// AppendUint16 appends v in network byte order.
func (b *Buffer) AppendUint16(v uint16) {
	var tmp [2]byte
	binary.BigEndian.PutUint16(tmp[:], v)
	b.Append(tmp[:])
}

// AppendUint32 appends v in network byte order.
func (b *Buffer) AppendUint32(v uint32) {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], v)
	b.Append(tmp[:])
}

// AppendUint64 appends v in network byte order.
func (b *Buffer) AppendUint64(v uint64) {
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], v)
	b.Append(tmp[:])
}

// PeekUint8 returns the first byte of the readable region without consuming it.
func (b *Buffer) PeekUint8() uint8 { return b.Peek()[0] }

// PeekUint16 returns the first two bytes of the readable region, network byte order.
func (b *Buffer) PeekUint16() uint16 { return binary.BigEndian.Uint16(b.Peek()) }

// PeekUint32 returns the first four bytes of the readable region, network byte order.
func (b *Buffer) PeekUint32() uint32 { return binary.BigEndian.Uint32(b.Peek()) }

// PeekUint64 returns the first eight bytes of the readable region, network byte order.
func (b *Buffer) PeekUint64() uint64 { return binary.BigEndian.Uint64(b.Peek()) }

// ReadUint8 peeks and consumes one byte.
func (b *Buffer) ReadUint8() uint8 {
	v := b.PeekUint8()
	b.Retrieve(1)
	return v
}

// ReadUint16 peeks and consumes two bytes.
func (b *Buffer) ReadUint16() uint16 {
	v := b.PeekUint16()
	b.Retrieve(2)
	return v
}

// ReadUint32 peeks and consumes four bytes.
func (b *Buffer) ReadUint32() uint32 {
	v := b.PeekUint32()
	b.Retrieve(4)
	return v
}

// ReadUint64 peeks and consumes eight bytes.
func (b *Buffer) ReadUint64() uint64 {
	v := b.PeekUint64()
	b.Retrieve(8)
	return v
}

// PrependUint32 stamps a 4-byte network-byte-order length header in front
// of the readable region; the common use is prefixing an already-built
// message with its length.
func (b *Buffer) PrependUint32(v uint32) error {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], v)
	return b.Prepend(tmp[:])
}
