package rtsp

import (
	"bytes"
	"io"
)

const readChunkSize = 4096

// Buffer is the receive buffer a connection reads into and the parsers
// consume from. Offsets returned by the Find methods are relative to Peek.
type Buffer struct {
	buf bytes.Buffer
}

// NewBuffer creates a buffer holding the given bytes
func NewBuffer(data []byte) *Buffer {
	b := &Buffer{}
	b.buf.Write(data)
	return b
}

// Write appends received bytes
func (b *Buffer) Write(p []byte) (int, error) {
	return b.buf.Write(p)
}

// ReadOnce performs a single read from r into the buffer
func (b *Buffer) ReadOnce(r io.Reader) (int, error) {
	b.buf.Grow(readChunkSize)
	chunk := make([]byte, readChunkSize)
	n, err := r.Read(chunk)
	if n > 0 {
		b.buf.Write(chunk[:n])
	}
	return n, err
}

// Peek returns the unconsumed bytes without consuming them
func (b *Buffer) Peek() []byte {
	return b.buf.Bytes()
}

// Len returns the number of unconsumed bytes
func (b *Buffer) Len() int {
	return b.buf.Len()
}

// FindCRLF returns the offset of the first CRLF, or -1
func (b *Buffer) FindCRLF() int {
	return bytes.Index(b.buf.Bytes(), crlf)
}

// FindLastCRLF returns the offset of the last CRLF, or -1
func (b *Buffer) FindLastCRLF() int {
	return bytes.LastIndex(b.buf.Bytes(), crlf)
}

// FindHeaderEnd returns the offset of the first CRLFCRLF, or -1
func (b *Buffer) FindHeaderEnd() int {
	return bytes.Index(b.buf.Bytes(), headerTerm)
}

// RetrieveUntil consumes n bytes
func (b *Buffer) RetrieveUntil(n int) {
	if n >= b.buf.Len() {
		b.buf.Reset()
		return
	}
	b.buf.Next(n)
}

// RetrieveAll consumes everything
func (b *Buffer) RetrieveAll() {
	b.buf.Reset()
}
