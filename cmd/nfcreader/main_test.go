package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/laith43d/nfc-tools/internal/session"
	"github.com/laith43d/nfc-tools/internal/tagsim"
)

func TestShowIdealFormat(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, showIdealFormat(&buf))

	out := buf.String()
	assert.Contains(t, out, "IDEAL ISO15693 (TYPE 5) TAG FORMAT")
	assert.Contains(t, out, "Block 00: E1 40 04 00")
	assert.Contains(t, out, "Block 01: 03 ")
}

func TestPrintTag(t *testing.T) {
	tag := tagsim.New([]byte{0xE0, 0x04, 0x01, 0x02}, 16, 4)
	s := session.New(tag)
	_, err := s.FormatAndWrite("https://example.com")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, printTag(&buf, s, true))

	out := buf.String()
	assert.Contains(t, out, "UID: E0040102 (reversed 020104E0)")
	assert.Contains(t, out, "Record 1: https://example.com")
	assert.Contains(t, out, "Block 00: E1 40 04 00")
	assert.Contains(t, out, "NDEF")
}

func TestPrintTag_DumpsOnDecodeFailure(t *testing.T) {
	tag := tagsim.New([]byte{0x01}, 8, 4)

	var buf bytes.Buffer
	err := printTag(&buf, session.New(tag), true)
	require.Error(t, err)
	assert.Contains(t, buf.String(), "No capability container")
	assert.Contains(t, buf.String(), "Block 07: 00 00 00 00")
}

func TestASCII(t *testing.T) {
	assert.Equal(t, "ab..", ascii([]byte{'a', 'b', 0x00, 0xFF}))
}
