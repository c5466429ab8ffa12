package tlv

import (
	"fmt"

	"github.com/laith43d/nfc-tools/internal/tagerr"
)

// Capability Container layout.
const (
	CCMagic byte = 0xE1
	CCSize       = 4

	// CCMappingRW is mapping version 1.0 with read and write access granted.
	CCMappingRW byte = 0x40
)

// CapabilityContainer is block 0 of an NDEF formatted Type 5 tag.
type CapabilityContainer struct {
	Magic   byte
	Mapping byte // version (bits 7-4) and access conditions (bits 3-0)
	MLen    byte // data area size in 8-byte units
	Feature byte
}

// ParseCC reads the first four bytes of buf.
func ParseCC(buf []byte) (CapabilityContainer, error) {
	if len(buf) < CCSize {
		return CapabilityContainer{}, fmt.Errorf("%w: capability container needs %d bytes, got %d",
			tagerr.ErrFraming, CCSize, len(buf))
	}
	return CapabilityContainer{Magic: buf[0], Mapping: buf[1], MLen: buf[2], Feature: buf[3]}, nil
}

// Bytes returns the on-tag encoding.
func (cc CapabilityContainer) Bytes() []byte {
	return []byte{cc.Magic, cc.Mapping, cc.MLen, cc.Feature}
}

// Present reports whether the magic byte marks an NDEF formatted tag.
func (cc CapabilityContainer) Present() bool {
	return cc.Magic == CCMagic
}

// MajorVersion of the mapping document.
func (cc CapabilityContainer) MajorVersion() int {
	return int(cc.Mapping >> 6)
}

// MinorVersion of the mapping document.
func (cc CapabilityContainer) MinorVersion() int {
	return int(cc.Mapping>>4) & 0x03
}

// ReadAccess reports whether the read access bits grant access.
func (cc CapabilityContainer) ReadAccess() bool {
	return cc.Mapping&0x0C == 0
}

// WriteAccess reports whether the write access bits grant access.
func (cc CapabilityContainer) WriteAccess() bool {
	return cc.Mapping&0x03 == 0
}

// DataAreaSize is the size in bytes announced by MLen.
func (cc CapabilityContainer) DataAreaSize() int {
	return 8 * int(cc.MLen)
}

// Validate is the strict check: NDEF magic, mapping major version 1 and
// read access granted.
func (cc CapabilityContainer) Validate() error {
	if !cc.Present() {
		return fmt.Errorf("%w: capability container magic 0x%02X, want 0x%02X", tagerr.ErrFraming, cc.Magic, CCMagic)
	}
	if cc.MajorVersion() != 1 {
		return fmt.Errorf("%w: unsupported mapping version %d.%d", tagerr.ErrFraming, cc.MajorVersion(), cc.MinorVersion())
	}
	if !cc.ReadAccess() {
		return fmt.Errorf("%w: capability container denies read access (0x%02X)", tagerr.ErrFraming, cc.Mapping)
	}
	return nil
}

func (cc CapabilityContainer) String() string {
	return fmt.Sprintf("CC[% X] v%d.%d data=%d bytes", cc.Bytes(), cc.MajorVersion(), cc.MinorVersion(), cc.DataAreaSize())
}
