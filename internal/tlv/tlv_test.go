package tlv

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/laith43d/nfc-tools/internal/tagerr"
)

func TestLocate_SkipsCCAndNull(t *testing.T) {
	t.Parallel()

	buf := []byte{0xE1, 0x40, 0x10, 0x00, 0x00, 0x03, 0x02, 0xAA, 0xBB, 0xFE}

	off, err := Locate(buf)
	require.NoError(t, err)
	assert.Equal(t, 5, off, "NDEF TLV follows the CC and one NULL TLV")
}

func TestExtract_NullSkip(t *testing.T) {
	t.Parallel()

	payload, err := Extract([]byte{0x00, 0x03, 0x02, 0xAA, 0xBB, 0xFE})
	require.NoError(t, err)
	assert.Equal(t, []byte{0xAA, 0xBB}, payload)
}

func TestExtract_ExtendedLength(t *testing.T) {
	t.Parallel()

	value := bytes.Repeat([]byte{0x5A}, 256)
	buf := append([]byte{0x03, 0xFF, 0x01, 0x00}, value...)
	buf = append(buf, 0xFE)

	payload, err := Extract(buf)
	require.NoError(t, err)
	assert.Len(t, payload, 256)
	assert.Equal(t, value, payload)
}

func TestExtract_ReturnsCopy(t *testing.T) {
	t.Parallel()

	buf := []byte{0x03, 0x02, 0xAA, 0xBB, 0xFE}
	payload, err := Extract(buf)
	require.NoError(t, err)

	payload[0] = 0x00
	assert.Equal(t, byte(0xAA), buf[2])
}

func TestLocate_SkipsOtherTLVs(t *testing.T) {
	t.Parallel()

	buf := []byte{
		0x01, 0x03, 0xA0, 0x0C, 0x34, // lock control
		0xFD, 0xFF, 0x00, 0x02, 0x11, 0x22, // proprietary, 3-byte length
		0x03, 0x01, 0x99,
		0xFE,
	}

	off, err := Locate(buf)
	require.NoError(t, err)
	assert.Equal(t, 11, off)

	payload, err := Extract(buf)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x99}, payload)
}

func TestLocate_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		buf     []byte
		wantMsg string
	}{
		{name: "too small", buf: []byte{0x03, 0x00}, wantMsg: "buffer too small"},
		{name: "terminator first", buf: []byte{0x00, 0xFE, 0x03, 0x01, 0xAA}, wantMsg: "not found"},
		{name: "end reached", buf: []byte{0x00, 0x00, 0x00, 0x00}, wantMsg: "not found"},
		{name: "missing length", buf: []byte{0x00, 0x00, 0x03}, wantMsg: "incomplete length"},
		{name: "truncated extended length", buf: []byte{0x00, 0x03, 0xFF, 0x01}, wantMsg: "incomplete extended length"},
		{name: "other record runs past end", buf: []byte{0x01, 0x10, 0x00, 0x00}, wantMsg: "not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Locate(tt.buf)
			require.Error(t, err)
			assert.ErrorIs(t, err, tagerr.ErrFraming)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestExtract_LengthExceedsBuffer(t *testing.T) {
	t.Parallel()

	_, err := Extract([]byte{0x03, 0x08, 0xAA, 0xBB, 0xFE})
	require.Error(t, err)
	assert.ErrorIs(t, err, tagerr.ErrFraming)
	assert.Contains(t, err.Error(), "exceeds")
}

func TestBuild_LengthFormBoundary(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		size       int
		wantHeader []byte
	}{
		{name: "254 bytes uses short form", size: 254, wantHeader: []byte{0x03, 0xFE}},
		{name: "255 bytes uses extended form", size: 255, wantHeader: []byte{0x03, 0xFF, 0x00, 0xFF}},
		{name: "256 bytes uses extended form", size: 256, wantHeader: []byte{0x03, 0xFF, 0x01, 0x00}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			msg := bytes.Repeat([]byte{0x41}, tt.size)
			out, err := Build(msg, 4)
			require.NoError(t, err)
			assert.Equal(t, tt.wantHeader, out[:len(tt.wantHeader)])
			assert.Equal(t, TypeTerminator, out[len(tt.wantHeader)+tt.size])
		})
	}
}

func TestBuild_RoundTripAndPadding(t *testing.T) {
	t.Parallel()

	for _, blockSize := range []int{1, 2, 3, 4, 8, 16, 32} {
		for _, size := range []int{1, 2, 5, 13, 64, 253, 254, 255, 256, 300, 1024} {
			msg := make([]byte, size)
			for i := range msg {
				msg[i] = byte(i%200) + 1
			}

			out, err := Build(msg, blockSize)
			require.NoError(t, err)
			assert.Zero(t, len(out)%blockSize, "size=%d block=%d", size, blockSize)

			got, err := Extract(out)
			require.NoError(t, err, "size=%d block=%d", size, blockSize)
			assert.Equal(t, msg, got, "size=%d block=%d", size, blockSize)
		}
	}
}

func TestBuild_ExactLayout(t *testing.T) {
	t.Parallel()

	out, err := Build([]byte{0xD0, 0x00, 0x00}, 4)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x03, 0x03, 0xD0, 0x00, 0x00, 0xFE, 0x00, 0x00}, out)
}

func TestBuild_Arguments(t *testing.T) {
	t.Parallel()

	_, err := Build(nil, 4)
	assert.ErrorIs(t, err, tagerr.ErrArgument)

	_, err = Build([]byte{0x01}, 0)
	assert.ErrorIs(t, err, tagerr.ErrArgument)

	_, err = Build([]byte{0x01}, -4)
	assert.ErrorIs(t, err, tagerr.ErrArgument)

	_, err = Build(make([]byte, 0x10000), 4)
	assert.ErrorIs(t, err, tagerr.ErrArgument)
}

func TestScanner_StrictCC(t *testing.T) {
	t.Parallel()

	strict := Scanner{StrictCC: true}

	off, err := strict.Locate([]byte{0xE1, 0x40, 0x28, 0x01, 0x03, 0x01, 0xAA, 0xFE})
	require.NoError(t, err)
	assert.Equal(t, 4, off)

	// permissive mode scans from byte 0 when there is no CC
	noCC := []byte{0x03, 0x01, 0xAA, 0xFE}
	off, err = Locate(noCC)
	require.NoError(t, err)
	assert.Zero(t, off)

	_, err = strict.Locate(noCC)
	require.ErrorIs(t, err, tagerr.ErrFraming)
	assert.Contains(t, err.Error(), "magic")

	// permissive mode skips any CC, strict mode checks the version
	badVersion := []byte{0xE1, 0x80, 0x28, 0x00, 0x03, 0x01, 0xAA, 0xFE}
	_, err = Locate(badVersion)
	require.NoError(t, err)
	_, err = strict.Locate(badVersion)
	assert.ErrorIs(t, err, tagerr.ErrFraming)
}
