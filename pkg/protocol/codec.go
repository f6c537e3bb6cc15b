/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package protocol

import (
	"encoding/binary"
	"fmt"
	"math"
	"unicode"
	"unicode/utf8"
)

// Writer accumulates an encoded payload. The zero value is ready to use.
type Writer struct {
	buf []byte
}

// NewWriter returns a Writer with room for size bytes.
func NewWriter(size int) *Writer {
	return &Writer{buf: make([]byte, 0, size)}
}

// WriteU8 appends a single byte.
func (w *Writer) WriteU8(v uint8) {
	w.buf = append(w.buf, v)
}

// WriteU16 appends v in big-endian order.
func (w *Writer) WriteU16(v uint16) {
	w.buf = binary.BigEndian.AppendUint16(w.buf, v)
}

// WriteU32 appends v in big-endian order.
func (w *Writer) WriteU32(v uint32) {
	w.buf = binary.BigEndian.AppendUint32(w.buf, v)
}

// WriteBool appends 0x01 for true and 0x00 for false.
func (w *Writer) WriteBool(v bool) {
	if v {
		w.WriteU8(1)

		return
	}

	w.WriteU8(0)
}

// WriteString appends a u32 byte length followed by the UTF-8 bytes of s.
func (w *Writer) WriteString(s string) error {
	if !utf8.ValidString(s) {
		return ErrInvalidUTF8
	}

	if uint64(len(s)) > math.MaxUint32 {
		return fmt.Errorf("%w: %d bytes", ErrStringTooLong, len(s))
	}

	w.WriteU32(uint32(len(s)))
	w.buf = append(w.buf, s...)

	return nil
}

// WriteASCIIString appends a u16 byte length followed by the ASCII bytes of s.
func (w *Writer) WriteASCIIString(s string) error {
	if len(s) > math.MaxUint16 {
		return fmt.Errorf("%w: %d bytes", ErrStringTooLong, len(s))
	}

	if !isASCII(s) {
		return ErrNotASCII
	}

	w.WriteU16(uint16(len(s)))
	w.buf = append(w.buf, s...)

	return nil
}

// Bytes returns the encoded bytes. The slice aliases the Writer's buffer.
func (w *Writer) Bytes() []byte {
	return w.buf
}

// Len returns the number of bytes written so far.
func (w *Writer) Len() int {
	return len(w.buf)
}

// Reader decodes primitives from a byte slice starting at an explicit offset.
// A failed read leaves the cursor where it was.
type Reader struct {
	data []byte
	off  int
}

// NewReader returns a Reader positioned at offset within data.
func NewReader(data []byte, offset int) *Reader {
	return &Reader{data: data, off: offset}
}

// Offset returns the position of the next unread byte.
func (r *Reader) Offset() int {
	return r.off
}

// Remaining returns how many bytes are left after the cursor.
func (r *Reader) Remaining() int {
	if r.off < 0 || r.off >= len(r.data) {
		return 0
	}

	return len(r.data) - r.off
}

func (r *Reader) take(n uint64) ([]byte, error) {
	if n > uint64(r.Remaining()) {
		return nil, fmt.Errorf("%w: need %d bytes at offset %d, have %d", ErrTruncated, n, r.off, r.Remaining())
	}

	b := r.data[r.off : r.off+int(n)]
	r.off += int(n)

	return b, nil
}

// ReadU8 reads a single byte.
func (r *Reader) ReadU8() (uint8, error) {
	b, err := r.take(1)
	if err != nil {
		return 0, err
	}

	return b[0], nil
}

// ReadU16 reads a big-endian uint16.
func (r *Reader) ReadU16() (uint16, error) {
	b, err := r.take(2)
	if err != nil {
		return 0, err
	}

	return binary.BigEndian.Uint16(b), nil
}

// ReadU32 reads a big-endian uint32.
func (r *Reader) ReadU32() (uint32, error) {
	b, err := r.take(4)
	if err != nil {
		return 0, err
	}

	return binary.BigEndian.Uint32(b), nil
}

// ReadBool reads one byte; any nonzero value is true.
func (r *Reader) ReadBool() (bool, error) {
	v, err := r.ReadU8()
	if err != nil {
		return false, err
	}

	return v != 0, nil
}

// ReadString reads a u32 length-prefixed UTF-8 string.
func (r *Reader) ReadString() (string, error) {
	start := r.off

	n, err := r.ReadU32()
	if err != nil {
		return "", err
	}

	b, err := r.take(uint64(n))
	if err != nil {
		r.off = start

		return "", err
	}

	if !utf8.Valid(b) {
		r.off = start

		return "", ErrInvalidUTF8
	}

	return string(b), nil
}

// ReadASCIIString reads a u16 length-prefixed ASCII string.
func (r *Reader) ReadASCIIString() (string, error) {
	start := r.off

	n, err := r.ReadU16()
	if err != nil {
		return "", err
	}

	b, err := r.take(uint64(n))
	if err != nil {
		r.off = start

		return "", err
	}

	s := string(b)
	if !isASCII(s) {
		r.off = start

		return "", ErrNotASCII
	}

	return s, nil
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] > unicode.MaxASCII {
			return false
		}
	}

	return true
}
