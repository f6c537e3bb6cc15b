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
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriterIntegersAreBigEndian(t *testing.T) {
	w := NewWriter(0)
	w.WriteU8(0xab)
	w.WriteU16(0x0102)
	w.WriteU32(0x03040506)
	w.WriteBool(true)
	w.WriteBool(false)

	assert.Equal(t, []byte{0xab, 0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x01, 0x00}, w.Bytes())
}

func TestReaderBoundaryValues(t *testing.T) {
	w := NewWriter(0)
	w.WriteU8(0)
	w.WriteU8(math.MaxUint8)
	w.WriteU16(0)
	w.WriteU16(math.MaxUint16)
	w.WriteU32(0)
	w.WriteU32(math.MaxUint32)

	r := NewReader(w.Bytes(), 0)

	u8, err := r.ReadU8()
	require.NoError(t, err)
	assert.Equal(t, uint8(0), u8)

	u8, err = r.ReadU8()
	require.NoError(t, err)
	assert.Equal(t, uint8(math.MaxUint8), u8)

	u16, err := r.ReadU16()
	require.NoError(t, err)
	assert.Equal(t, uint16(0), u16)

	u16, err = r.ReadU16()
	require.NoError(t, err)
	assert.Equal(t, uint16(math.MaxUint16), u16)

	u32, err := r.ReadU32()
	require.NoError(t, err)
	assert.Equal(t, uint32(0), u32)

	u32, err = r.ReadU32()
	require.NoError(t, err)
	assert.Equal(t, uint32(math.MaxUint32), u32)

	assert.Equal(t, 0, r.Remaining())
}

func TestStringRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "empty", input: ""},
		{name: "ascii", input: "Quest 3"},
		{name: "multibyte", input: "ヘッドセット ✓"},
		{name: "large", input: strings.Repeat("a", 70000)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := NewWriter(0)
			require.NoError(t, w.WriteString(tt.input))
			assert.Equal(t, 4+len(tt.input), w.Len())

			r := NewReader(w.Bytes(), 0)
			got, err := r.ReadString()
			require.NoError(t, err)
			assert.Equal(t, tt.input, got)
			assert.Equal(t, w.Len(), r.Offset())
		})
	}
}

func TestWriteStringRejectsInvalidUTF8(t *testing.T) {
	w := NewWriter(0)

	err := w.WriteString(string([]byte{0xff, 0xfe}))
	require.ErrorIs(t, err, ErrInvalidUTF8)
	assert.Zero(t, w.Len())
}

func TestReadStringRejectsInvalidUTF8(t *testing.T) {
	data := []byte{0, 0, 0, 2, 0xc3, 0x28}

	r := NewReader(data, 0)
	_, err := r.ReadString()
	require.ErrorIs(t, err, ErrInvalidUTF8)
	assert.Equal(t, 0, r.Offset())
}

func TestASCIIString(t *testing.T) {
	w := NewWriter(0)
	require.NoError(t, w.WriteASCIIString("com.example.app"))
	assert.Equal(t, []byte{0x00, 0x0f}, w.Bytes()[:2])

	r := NewReader(w.Bytes(), 0)
	got, err := r.ReadASCIIString()
	require.NoError(t, err)
	assert.Equal(t, "com.example.app", got)

	require.ErrorIs(t, NewWriter(0).WriteASCIIString("café"), ErrNotASCII)
	require.ErrorIs(t, NewWriter(0).WriteASCIIString(strings.Repeat("x", math.MaxUint16+1)), ErrStringTooLong)

	_, err = NewReader([]byte{0x00, 0x01, 0x80}, 0).ReadASCIIString()
	require.ErrorIs(t, err, ErrNotASCII)
}

func TestReaderTruncation(t *testing.T) {
	r := NewReader([]byte{0x01}, 0)

	_, err := r.ReadU16()
	require.ErrorIs(t, err, ErrTruncated)
	assert.Equal(t, 0, r.Offset(), "failed read must not move the cursor")

	_, err = r.ReadU32()
	require.ErrorIs(t, err, ErrTruncated)

	// length prefix claims more bytes than exist
	r = NewReader([]byte{0, 0, 0, 10, 'a', 'b'}, 0)
	_, err = r.ReadString()
	require.ErrorIs(t, err, ErrTruncated)
	assert.Equal(t, 0, r.Offset())

	// offset past the end
	r = NewReader([]byte{0x01, 0x02}, 5)
	_, err = r.ReadU8()
	require.ErrorIs(t, err, ErrTruncated)
	assert.Equal(t, 0, r.Remaining())
}

func TestReaderStartsAtOffset(t *testing.T) {
	r := NewReader([]byte{0xde, 0xad, 0x00, 0x2a}, 2)

	v, err := r.ReadU16()
	require.NoError(t, err)
	assert.Equal(t, uint16(42), v)
}
