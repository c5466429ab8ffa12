package session

import (
	"fmt"

	"github.com/laith43d/nfc-tools/internal/blockio"
	"github.com/laith43d/nfc-tools/internal/ndefcodec"
	"github.com/laith43d/nfc-tools/internal/tagerr"
	"github.com/laith43d/nfc-tools/internal/tlv"
)

// FormatStrategy selects how a format writes the Capability Container.
// The two strategies produce different CC bytes and are kept apart on purpose.
type FormatStrategy int

const (
	// StrategyDerivedCC sizes MLen from the TLV being written:
	// CC = E1 40 <units-1> 00. Used by FormatAndWrite.
	StrategyDerivedCC FormatStrategy = iota + 1
	// StrategyFixedCC writes E1 40 28 01 (320 bytes, feature byte 1) and an
	// empty record. Used by FormatEmpty.
	StrategyFixedCC
	// StrategyInPlace leaves the CC alone and rewrites only the TLV blocks.
	StrategyInPlace
)

func (f FormatStrategy) String() string {
	switch f {
	case StrategyDerivedCC:
		return "derived-cc"
	case StrategyFixedCC:
		return "fixed-cc"
	case StrategyInPlace:
		return "in-place"
	default:
		return "unknown"
	}
}

const (
	ccBlock         = 0
	ndefFirstBlock  = 1
	ccUnitSize      = 8
	legacyTLVOffset = 4 // block the MLen estimate assumes the TLV starts at
)

// FixedCC is the Capability Container written by FormatEmpty.
var FixedCC = tlv.CapabilityContainer{Magic: tlv.CCMagic, Mapping: tlv.CCMappingRW, MLen: 0x28, Feature: 0x01}

// DerivedCC computes the Capability Container FormatAndWrite writes ahead of
// a TLV of tlvLen bytes on a tag with blockSize-byte blocks.
func DerivedCC(tlvLen, blockSize int) (tlv.CapabilityContainer, error) {
	endOffset := legacyTLVOffset*blockSize + tlvLen
	units := max(1, (endOffset+ccUnitSize-1)/ccUnitSize)
	if units-1 > 0xFF {
		return tlv.CapabilityContainer{}, fmt.Errorf("%w: %d bytes do not fit a 4-byte capability container",
			tagerr.ErrCapacity, endOffset)
	}
	return tlv.CapabilityContainer{
		Magic:   tlv.CCMagic,
		Mapping: tlv.CCMappingRW,
		MLen:    byte(units - 1),
		Feature: 0x00,
	}, nil
}

// WriteResult is the success variant of the write pipelines.
type WriteResult struct {
	Strategy   FormatStrategy
	CC         tlv.CapabilityContainer
	TLV        []byte
	FirstBlock int // first TLV block written
	LastBlock  int // last TLV block written, inclusive
	Writes     int // blocks written, CC included
}

func (r WriteResult) String() string {
	if r.Writes == 0 {
		return fmt.Sprintf("%s: nothing written", r.Strategy)
	}
	return fmt.Sprintf("%s: wrote %d blocks (TLV blocks %d-%d, %d bytes)",
		r.Strategy, r.Writes, r.FirstBlock, r.LastBlock, len(r.TLV))
}

// FormatAndWrite writes a fresh Capability Container to block 0 and a URI
// record TLV from block 1. The CC is written first; if a later block fails
// the tag is left partially written and the error names the block.
func (s *Session) FormatAndWrite(url string) (WriteResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	encoded, err := ndefcodec.EncodeURI(url)
	if err != nil {
		return WriteResult{}, s.fail("format", err)
	}
	frame, err := tlv.Build(encoded, s.cfg.BlockSize)
	if err != nil {
		return WriteResult{}, s.fail("format", err)
	}
	cc, err := DerivedCC(len(frame), s.cfg.BlockSize)
	if err != nil {
		return WriteResult{}, s.fail("format", err)
	}
	s.log.Debug().Str("url", url).Stringer("cc", cc).Int("tlv_bytes", len(frame)).Msg("formatting tag")
	return s.format("format", StrategyDerivedCC, cc, frame)
}

// FormatEmpty writes FixedCC and a TLV holding one empty record. It does not
// produce the same CC bytes as FormatAndWrite.
func (s *Session) FormatEmpty() (WriteResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	frame, err := tlv.Build(ndefcodec.EmptyRecord, s.cfg.BlockSize)
	if err != nil {
		return WriteResult{}, s.fail("format-empty", err)
	}
	s.log.Debug().Stringer("cc", FixedCC).Msg("formatting empty tag")
	return s.format("format-empty", StrategyFixedCC, FixedCC, frame)
}

func (s *Session) format(op string, strategy FormatStrategy, cc tlv.CapabilityContainer, frame []byte) (WriteResult, error) {
	bs := s.cfg.BlockSize
	res := WriteResult{Strategy: strategy, CC: cc, TLV: frame}
	total := 1 + len(frame)/bs

	block0 := make([]byte, bs)
	copy(block0, cc.Bytes())
	if err := s.driver.WriteBlock(ccBlock, block0); err != nil {
		return res, s.fail(op, &blockio.BlockWriteError{Err: err, Block: ccBlock})
	}
	res.Writes = 1
	s.report(op, ccBlock, res.Writes, total)

	err := s.driver.WriteBlocks(ndefFirstBlock, frame, func(block, done, _ int) {
		res.Writes = 1 + done
		res.LastBlock = block
		s.report(op, block, res.Writes, total)
	})
	if res.Writes > 1 {
		res.FirstBlock = ndefFirstBlock
	}
	if err != nil {
		return res, s.fail(op, err)
	}
	s.log.Info().Str("op", op).Stringer("result", res).Msg("tag written")
	return res, nil
}

func (s *Session) report(op string, block, done, total int) {
	if s.cfg.Progress != nil {
		s.cfg.Progress(Progress{Op: op, Block: block, Done: done, Total: total})
	}
}
