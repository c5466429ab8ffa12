package session

import (
	"fmt"

	"github.com/laith43d/nfc-tools/internal/blockio"
	"github.com/laith43d/nfc-tools/internal/ndefcodec"
	"github.com/laith43d/nfc-tools/internal/tagerr"
	"github.com/laith43d/nfc-tools/internal/tlv"
)

// OverwriteInPlace replaces the existing NDEF TLV with a URI record TLV at
// the same offset and rewrites only the blocks it covers. The CC and data
// outside those blocks are untouched. The tag must already carry a CC and an
// NDEF TLV; anything else fails with a framing error before any write.
func (s *Session) OverwriteInPlace(url string) (WriteResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	const op = "overwrite"
	bs := s.cfg.BlockSize
	res := WriteResult{Strategy: StrategyInPlace}

	mem, err := s.driver.ReadAll()
	if err != nil {
		return res, s.fail(op, err)
	}
	if cc, err := tlv.ParseCC(mem); err == nil {
		res.CC = cc
	}
	offset, err := s.scanner.Locate(mem)
	if err != nil {
		return res, s.fail(op, err)
	}
	encoded, err := ndefcodec.EncodeURI(url)
	if err != nil {
		return res, s.fail(op, err)
	}
	frame, err := tlv.Build(encoded, bs)
	if err != nil {
		return res, s.fail(op, err)
	}
	res.TLV = frame
	if len(frame) > len(mem)-offset {
		return res, s.fail(op, fmt.Errorf("%w: new TLV needs %d bytes, %d available from offset %d",
			tagerr.ErrCapacity, len(frame), len(mem)-offset, offset))
	}

	copy(mem[offset:], frame)
	first, last := offset/bs, (offset+len(frame)-1)/bs
	total := last - first + 1
	s.log.Debug().Int("offset", offset).Int("first_block", first).Int("last_block", last).Msg("overwriting TLV")

	for block := first; block <= last; block++ {
		end := (block + 1) * bs
		if end > len(mem) {
			s.log.Debug().Int("block", block).Msg("block extends past memory image, skipped")
			continue
		}
		if block > 0xFF {
			return res, s.fail(op, fmt.Errorf("%w: block %d is not addressable", tagerr.ErrCapacity, block))
		}
		if err := s.driver.WriteBlock(byte(block), mem[block*bs:end]); err != nil {
			return res, s.fail(op, &blockio.BlockWriteError{Err: err, Block: block, Written: res.Writes})
		}
		if res.Writes == 0 {
			res.FirstBlock = block
		}
		res.LastBlock = block
		res.Writes++
		s.report(op, block, res.Writes, total)
	}
	s.log.Info().Str("op", op).Stringer("result", res).Msg("tag written")
	return res, nil
}
