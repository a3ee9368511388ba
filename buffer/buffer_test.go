package buffer_test

import (
	"testing"

	"github.com/nabbar/reactor/buffer"
)

func TestNew_InitialLayout(t *testing.T) {
	b := buffer.New()
	if got := b.ReadableBytes(); got != 0 {
		t.Fatalf("expected 0 readable bytes, got %d", got)
	}
	if got := b.WritableBytes(); got != buffer.InitialSize {
		t.Fatalf("expected %d writable bytes, got %d", buffer.InitialSize, got)
	}
	if got := b.PrependableBytes(); got != buffer.CheapPrepend {
		t.Fatalf("expected %d prependable bytes, got %d", buffer.CheapPrepend, got)
	}
}

func TestAppendAndRetrieve_RoundTrip(t *testing.T) {
	b := buffer.New()
	b.Append([]byte("hello"))

	if got := b.ReadableBytes(); got != 5 {
		t.Fatalf("expected 5 readable bytes, got %d", got)
	}
	if got := string(b.Peek()); got != "hello" {
		t.Fatalf("expected %q, got %q", "hello", got)
	}

	got := b.RetrieveAsString(5)
	if got != "hello" {
		t.Fatalf("expected %q, got %q", "hello", got)
	}
	if b.ReadableBytes() != 0 {
		t.Fatalf("expected buffer drained")
	}
}

func TestAppend_GrowsPastInitialSize(t *testing.T) {
	b := buffer.New()
	big := make([]byte, buffer.InitialSize*4)
	for i := range big {
		big[i] = byte(i)
	}
	b.Append(big)

	if got := b.ReadableBytes(); got != len(big) {
		t.Fatalf("expected %d readable bytes, got %d", len(big), got)
	}
	if string(b.Peek()) != string(big) {
		t.Fatalf("content mismatch after grow")
	}
}

func TestRetrieve_CompactsAndPreservesPrependReserve(t *testing.T) {
	b := buffer.New()
	b.Append([]byte("0123456789"))
	b.Retrieve(5)

	// force a compaction by requesting just enough writable space that
	// the prependable+writable total covers it but writable alone does not.
	b.EnsureWritableBytes(buffer.InitialSize - 5)

	if got := b.PrependableBytes(); got != buffer.CheapPrepend {
		t.Fatalf("expected prepend reserve preserved at %d, got %d", buffer.CheapPrepend, got)
	}
	if got := string(b.Peek()); got != "56789" {
		t.Fatalf("expected %q after compaction, got %q", "56789", got)
	}
}

func TestPrepend_StampsHeaderBeforeReadable(t *testing.T) {
	b := buffer.New()
	b.Append([]byte("body"))

	if err := b.PrependUint32(4); err != nil {
		t.Fatalf("prepend: %v", err)
	}

	if got := b.ReadUint32(); got != 4 {
		t.Fatalf("expected length header 4, got %d", got)
	}
	if got := b.RetrieveAllAsString(); got != "body" {
		t.Fatalf("expected %q, got %q", "body", got)
	}
}

func TestPrepend_FailsWhenReserveExhausted(t *testing.T) {
	b := buffer.New()
	b.Append([]byte("x"))
	b.Retrieve(1)
	b.RetrieveAll() // reader/writer back at CheapPrepend, full reserve available

	if err := b.Prepend(make([]byte, buffer.CheapPrepend+1)); err == nil {
		t.Fatalf("expected error prepending more than the reserve")
	}
}

func TestRoundTripIntegers(t *testing.T) {
	b := buffer.New()

	b.AppendUint8(0xAB)
	b.AppendUint16(0x1234)
	b.AppendUint32(0xDEADBEEF)
	b.AppendUint64(0x0102030405060708)

	if got := b.ReadUint8(); got != 0xAB {
		t.Fatalf("uint8 round-trip failed: got %#x", got)
	}
	if got := b.ReadUint16(); got != 0x1234 {
		t.Fatalf("uint16 round-trip failed: got %#x", got)
	}
	if got := b.ReadUint32(); got != 0xDEADBEEF {
		t.Fatalf("uint32 round-trip failed: got %#x", got)
	}
	if got := b.ReadUint64(); got != 0x0102030405060708 {
		t.Fatalf("uint64 round-trip failed: got %#x", got)
	}
}

func TestFindCRLFAndEOL(t *testing.T) {
	b := buffer.New()
	b.Append([]byte("GET / HTTP/1.1\r\nHost: x\r\n\r\n"))

	if got := b.FindCRLF(); got != 14 {
		t.Fatalf("expected CRLF at offset 14, got %d", got)
	}
	if got := b.FindEOL(); got != 15 {
		t.Fatalf("expected EOL at offset 15, got %d", got)
	}
}

func TestLayoutInvariant(t *testing.T) {
	b := buffer.New()
	for _, op := range []func(){
		func() { b.Append([]byte("abcdefgh")) },
		func() { b.Retrieve(3) },
		func() { b.Append(make([]byte, 2000)) },
		func() { b.Retrieve(b.ReadableBytes()) },
	} {
		op()
		if got, want := b.ReadableBytes()+b.WritableBytes()+b.PrependableBytes(), b.Size(); got != want {
			t.Fatalf("layout invariant violated: readable+writable+prependable = %d, want %d", got, want)
		}
	}
}
