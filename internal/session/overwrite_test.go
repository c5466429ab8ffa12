package session

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/laith43d/nfc-tools/internal/blockio"
	"github.com/laith43d/nfc-tools/internal/tagerr"
)

// formatted returns a 16-block image with a CC, a 6-byte NDEF TLV at
// bytes [4,10) and a marker in the last block.
func formatted() []byte {
	mem := make([]byte, 64)
	copy(mem, []byte{0xE1, 0x40, 0x07, 0x00, 0x03, 0x04, 0xD0, 0x00, 0x00, 0x00, 0xFE})
	copy(mem[60:], []byte{0xAB, 0xAB, 0xAB, 0xAB})
	return mem
}

func TestOverwriteInPlace(t *testing.T) {
	t.Parallel()

	tag := newTag(16).Load(formatted())
	s := New(tag)

	res, err := s.OverwriteInPlace("https://example.com")
	require.NoError(t, err)
	assert.Equal(t, StrategyInPlace, res.Strategy)
	assert.Equal(t, []byte{0xE1, 0x40, 0x07, 0x00}, res.CC.Bytes())

	first, last := 1, (4+len(res.TLV)-1)/4
	var want []int
	for b := first; b <= last; b++ {
		want = append(want, b)
	}
	assert.Equal(t, want, tag.Writes(), "only the blocks covering the new TLV")
	assert.Equal(t, first, res.FirstBlock)
	assert.Equal(t, last, res.LastBlock)
	assert.Equal(t, len(want), res.Writes)

	mem := tag.Memory()
	assert.Equal(t, []byte{0xE1, 0x40, 0x07, 0x00}, mem[:4], "CC untouched")
	assert.Equal(t, res.TLV, mem[4:4+len(res.TLV)])
	assert.Equal(t, []byte{0xAB, 0xAB, 0xAB, 0xAB}, mem[60:])

	got, err := s.Read()
	require.NoError(t, err)
	assert.Equal(t, []string{"https://example.com"}, got.Records)
}

func TestOverwriteInPlace_KeepsBytesOutsideTLV(t *testing.T) {
	t.Parallel()

	// TLV starts mid-block after a NULL TLV; the byte before it must survive.
	mem := make([]byte, 64)
	copy(mem, []byte{0xE1, 0x40, 0x07, 0x00, 0x00, 0x03, 0x03, 0xD0, 0x00, 0x00, 0xFE})
	tag := newTag(16).Load(mem)

	res, err := New(tag).OverwriteInPlace("https://example.com")
	require.NoError(t, err)

	after := tag.Memory()
	assert.Equal(t, byte(0x00), after[4])
	assert.Equal(t, res.TLV, after[5:5+len(res.TLV)])
	assert.Equal(t, 1, tag.Writes()[0])
	assert.Equal(t, (5+len(res.TLV)-1)/4, res.LastBlock)
}

func TestOverwriteInPlace_Capacity(t *testing.T) {
	t.Parallel()

	mem := formatted()[:32]
	tag := newTag(8).Load(mem)

	url := "https://example.com/" + strings.Repeat("a", 100)
	res, err := New(tag).OverwriteInPlace(url)
	require.Error(t, err)

	assert.Equal(t, tagerr.KindCapacity, tagerr.KindOf(err))
	assert.Contains(t, err.Error(), "28 available from offset 4")
	assert.Empty(t, tag.Writes(), "no block written when the TLV does not fit")
	assert.Zero(t, res.Writes)
	assert.Equal(t, mem, tag.Memory())
}

func TestOverwriteInPlace_Unformatted(t *testing.T) {
	t.Parallel()

	tag := newTag(16)
	_, err := New(tag).OverwriteInPlace("https://example.com")
	require.Error(t, err)
	assert.Equal(t, tagerr.KindFraming, tagerr.KindOf(err))
	assert.Empty(t, tag.Writes())
}

func TestOverwriteInPlace_WriteFailure(t *testing.T) {
	t.Parallel()

	tag := newTag(16).Load(formatted())
	tag.FailWrite[2] = true

	res, err := New(tag).OverwriteInPlace("https://example.com")
	require.Error(t, err)

	block, ok := blockio.FailedBlock(err)
	require.True(t, ok)
	assert.Equal(t, 2, block)
	assert.Equal(t, []int{1}, tag.Writes())
	assert.Equal(t, 1, res.Writes)
}

func TestOverwriteInPlace_Progress(t *testing.T) {
	t.Parallel()

	tag := newTag(16).Load(formatted())
	var steps []Progress
	res, err := New(tag, WithProgress(func(p Progress) { steps = append(steps, p) })).OverwriteInPlace("https://example.com")
	require.NoError(t, err)

	require.Len(t, steps, res.Writes)
	for i, p := range steps {
		assert.Equal(t, "overwrite", p.Op)
		assert.Equal(t, i+1, p.Done)
		assert.Equal(t, res.Writes, p.Total)
		assert.Equal(t, res.FirstBlock+i, p.Block)
	}
}

func TestOverwriteInPlace_StrictCC(t *testing.T) {
	t.Parallel()

	mem := formatted()
	mem[0] = 0xE2
	tag := newTag(16).Load(mem)

	_, err := New(tag, WithStrictCC(true)).OverwriteInPlace("https://example.com")
	require.Error(t, err)
	assert.Equal(t, tagerr.KindFraming, tagerr.KindOf(err))
	assert.Empty(t, tag.Writes())
	assert.True(t, bytes.Equal(mem, tag.Memory()))
}
