package pff

import "encoding/binary"

// Footer layouts (§3 "Block"): both variants carry payload size, a 2-byte
// signature, a weak-CRC over the payload, and a back-pointer equal to the
// owning block-id, but the 64-bit variant widens the back-pointer to 8
// bytes and swaps its position with the CRC.
const (
	footer32Size = 12
	footer64Size = 16

	footerSizeOff = 0
	footerSigOff  = 2

	footer32BackPtrOff = 4
	footer32CRCOff     = 8

	footer64CRCOff     = 4
	footer64BackPtrOff = 8
)

func footerSize(v Variant) int {
	if v == Variant64 {
		return footer64Size
	}
	return footer32Size
}

func roundUp64(n int) int {
	return (n + 63) &^ 63
}

// Block is the result of reading and validating one on-disk block (§4.4):
// its decrypted payload plus any non-fatal anomalies found along the way.
type Block struct {
	Payload []byte
	Flags   FlagSet
}

// forceDecryptState is the process-wide (per-Context) flip named in §4.2:
// once a force-decrypted block is recognized, every later block in the
// same file is decrypted under EncryptionCompressible from the start.
type forceDecryptState struct {
	forced bool
}

// blockReadParams collects the inputs C5 and the descriptor layer supply to
// read one block; threading them as a struct keeps readBlock's signature
// stable as new on-disk wrinkles (e.g. the external flag) are added.
type blockReadParams struct {
	FileOffset  int64
	PayloadSize int
	Variant     Variant
	BlockID     uint64
	Mode        EncryptionMode
	External    bool
}

// readBlock implements C4. It reads payloadSize bytes at fileOffset, then
// the footer past the next 64-byte boundary, validates size/CRC/back-
// pointer (flags, not errors, unless strict is true), and decrypts the
// payload of an external block (internal blocks are stored unencrypted and
// returned as read) — applying the force-decryption heuristic (§4.2)
// unless ignoreForceDecryption is set.
func readBlock(src reader, p blockReadParams, strict, ignoreForceDecryption bool, fd *forceDecryptState) (*Block, error) {
	payload := make([]byte, p.PayloadSize)
	if p.PayloadSize > 0 {
		if _, err := src.ReadAt(payload, p.FileOffset); err != nil {
			return nil, newErr("readBlock", KindIO, err)
		}
	}

	fsz := footerSize(p.Variant)
	footerOffset := p.FileOffset + int64(roundUp64(p.PayloadSize))
	footer := make([]byte, fsz)
	if _, err := src.ReadAt(footer, footerOffset); err != nil {
		return nil, newErr("readBlock", KindIO, err)
	}

	var flags FlagSet

	declaredSize := binary.LittleEndian.Uint16(footer[footerSizeOff:])
	if int(declaredSize) != p.PayloadSize {
		if strict {
			return nil, newErr("readBlock", KindSizeMismatch, nil)
		}
		flags.add(FlagSizeMismatch)
	}

	var backPointer uint64
	var storedCRC uint32
	if p.Variant == Variant64 {
		backPointer = binary.LittleEndian.Uint64(footer[footer64BackPtrOff:])
		storedCRC = binary.LittleEndian.Uint32(footer[footer64CRCOff:])
	} else {
		backPointer = uint64(binary.LittleEndian.Uint32(footer[footer32BackPtrOff:]))
		storedCRC = binary.LittleEndian.Uint32(footer[footer32CRCOff:])
	}

	if backPointer != p.BlockID {
		if strict {
			return nil, newErr("readBlock", KindIdentifierMismatch, nil)
		}
		flags.add(FlagIdentifierMismatch)
	}

	if storedCRC != 0 {
		if weakCRC32(payload) != storedCRC {
			if strict {
				return nil, newErr("readBlock", KindCrcMismatch, nil)
			}
			flags.add(FlagCrcMismatch)
		}
	}

	if p.External {
		effectiveMode := p.Mode
		if fd != nil && fd.forced {
			effectiveMode = EncryptionCompressible
		}
		if err := decrypt(effectiveMode, p.BlockID, payload); err != nil {
			return nil, err
		}
	}

	if !ignoreForceDecryption && fd != nil && !fd.forced &&
		p.External && p.Mode == EncryptionNone && !expectedTableSignature(payload) {
		retry := make([]byte, len(payload))
		copy(retry, payload)
		if err := decrypt(EncryptionCompressible, p.BlockID, retry); err == nil && expectedTableSignature(retry) {
			payload = retry
			fd.forced = true
			flags.add(FlagForceDecrypted)
		}
	}

	return &Block{Payload: payload, Flags: flags}, nil
}
