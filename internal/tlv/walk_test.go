package tlv

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWalk(t *testing.T) {
	t.Parallel()

	buf := []byte{
		0xE1, 0x40, 0x02, 0x00,
		0x00,
		0x03, 0x03, 0xD0, 0x00, 0x00,
		0xFE, 0x00,
	}

	var entries []Entry
	err := Scanner{}.Walk(buf, func(e Entry) bool {
		entries = append(entries, e)
		return true
	})
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, Entry{Offset: 4, Header: 1, Type: TypeNull}, entries[0])
	assert.Equal(t, Entry{Offset: 5, Length: 3, Header: 2, Type: TypeNDEF}, entries[1])
	assert.Equal(t, []byte{0xD0, 0x00, 0x00}, entries[1].Value(buf))
	assert.Equal(t, TypeTerminator, entries[2].Type)
}

func TestWalk_StopsEarly(t *testing.T) {
	t.Parallel()

	count := 0
	err := Scanner{}.Walk([]byte{0x00, 0x00, 0x00, 0xFE}, func(Entry) bool {
		count++
		return count < 2
	})
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestDescribe(t *testing.T) {
	t.Parallel()

	buf := []byte{
		0xE1, 0x40, 0x28, 0x01,
		0x03, 0x03, 0xD0, 0x00,
		0x00, 0xFE, 0x00, 0x00,
	}

	out := Scanner{}.Describe(buf, 4)
	assert.Contains(t, out, "Block 00: CC[E1 40 28 01] v1.0 data=320 bytes")
	assert.Contains(t, out, "Block 01, Byte 0: NDEF len=3")
	assert.Contains(t, out, "Block 02, Byte 1: TERMINATOR")
}

func TestDescribe_ReportsTruncation(t *testing.T) {
	t.Parallel()

	out := Scanner{}.Describe([]byte{0x03, 0x10, 0xD1, 0x01}, 4)
	assert.Contains(t, out, "NDEF len=16 exceeds 2 available bytes")

	out = Scanner{}.Describe([]byte{0x00, 0x03}, 4)
	assert.Contains(t, out, "error: framing error: incomplete length field")
}

func TestCapabilityContainer(t *testing.T) {
	t.Parallel()

	cc, err := ParseCC([]byte{0xE1, 0x40, 0x28, 0x01, 0xFF})
	require.NoError(t, err)

	assert.True(t, cc.Present())
	assert.Equal(t, 1, cc.MajorVersion())
	assert.Equal(t, 0, cc.MinorVersion())
	assert.True(t, cc.ReadAccess())
	assert.True(t, cc.WriteAccess())
	assert.Equal(t, 320, cc.DataAreaSize())
	assert.Equal(t, []byte{0xE1, 0x40, 0x28, 0x01}, cc.Bytes())
	require.NoError(t, cc.Validate())

	readOnly := CapabilityContainer{Magic: CCMagic, Mapping: 0x43}
	assert.False(t, readOnly.WriteAccess())
	require.NoError(t, readOnly.Validate())

	noRead := CapabilityContainer{Magic: CCMagic, Mapping: 0x48}
	require.Error(t, noRead.Validate())

	_, err = ParseCC([]byte{0xE1})
	require.Error(t, err)
}
