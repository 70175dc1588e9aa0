package pff

import (
	"encoding/binary"
)

// Header field layout (component C8, spec §4.8): a fixed 564-byte region
// with a signature/CRC prefix followed by a 32-bit- or 64-bit-shaped body;
// this package gives that body named, constant offsets.
const (
	headerSize = 564

	offSignature    = 0  // 4 bytes, "!BDN"
	offCRC          = 4  // 4 bytes, weak CRC over offCRCRegionStart..region end
	offContentType  = 8  // 2 ASCII bytes
	offDataVersion  = 10 // 2 bytes LE, selects Variant
	offContentVer   = 12 // 2 bytes, unused by this layer
	offCreationPlat = 14 // 1 byte, unused by this layer
	offAccessPlat   = 15 // 1 byte, unused by this layer

	offCRCRegionStart = 8

	bodyOffset = 24 // fixed prefix ends here; variant body starts here

	// 32-bit body, relative to bodyOffset.
	body32FileSize               = 0
	body32DescriptorIndexBackPtr = 4
	body32DescriptorIndexRoot    = 8
	body32OffsetIndexBackPtr     = 12
	body32OffsetIndexRoot        = 16
	body32Sentinel               = 20
	body32Encryption             = 21
	body32CRCRegionEnd           = 479

	// 64-bit body, relative to bodyOffset.
	body64FileSize               = 0
	body64DescriptorIndexBackPtr = 8
	body64DescriptorIndexRoot    = 16
	body64OffsetIndexBackPtr     = 24
	body64OffsetIndexRoot        = 32
	body64Sentinel               = 40
	body64Encryption             = 41
	body64CRCRegionEnd           = 524

	variantSentinel = 0x80
)

// Header holds the result of parsing the first 564 bytes of a PFF file
// (§4.8): the variant, encryption mode, total file size, and the two root
// offsets/back-pointers seeding the descriptor and offset indexes.
type Header struct {
	Variant    Variant
	Content    ContentType
	Encryption EncryptionMode
	FileSize   int64

	DescriptorIndexRootOffset int64
	DescriptorIndexBackPtr    uint64
	OffsetIndexRootOffset     int64
	OffsetIndexBackPtr        uint64
}

// readHeader reads and validates the file header per §4.8: ASCII signature,
// variant detection, and the region CRC. Validation is always strict here —
// a file whose header fails these checks cannot seed either global index,
// so StrictValidation does not apply.
func readHeader(src reader) (*Header, error) {
	buf := make([]byte, headerSize)
	if _, err := src.ReadAt(buf, 0); err != nil {
		return nil, newErr("readHeader", KindIO, err)
	}

	if string(buf[offSignature:offSignature+4]) != Signature {
		return nil, newErr("readHeader", KindInvalidSignature, nil)
	}

	storedCRC := binary.LittleEndian.Uint32(buf[offCRC : offCRC+4])
	contentType := ContentType(buf[offContentType : offContentType+2])
	dataVersion := binary.LittleEndian.Uint16(buf[offDataVersion : offDataVersion+2])

	variant, err := detectVariant(dataVersion, buf)
	if err != nil {
		return nil, err
	}

	var regionEnd int
	if variant == Variant32 {
		regionEnd = bodyOffset + body32CRCRegionEnd
	} else {
		regionEnd = bodyOffset + body64CRCRegionEnd
	}
	if regionEnd > len(buf) {
		regionEnd = len(buf)
	}
	calculated := weakCRC32(buf[offCRCRegionStart:regionEnd])
	if calculated != storedCRC {
		return nil, newErr("readHeader", KindCrcMismatch, nil)
	}

	h := &Header{Variant: variant, Content: contentType}
	if variant == Variant32 {
		body := buf[bodyOffset:]
		h.FileSize = int64(binary.LittleEndian.Uint32(body[body32FileSize:]))
		h.DescriptorIndexBackPtr = uint64(binary.LittleEndian.Uint32(body[body32DescriptorIndexBackPtr:]))
		h.DescriptorIndexRootOffset = int64(binary.LittleEndian.Uint32(body[body32DescriptorIndexRoot:]))
		h.OffsetIndexBackPtr = uint64(binary.LittleEndian.Uint32(body[body32OffsetIndexBackPtr:]))
		h.OffsetIndexRootOffset = int64(binary.LittleEndian.Uint32(body[body32OffsetIndexRoot:]))
		h.Encryption = EncryptionMode(body[body32Encryption])
	} else {
		body := buf[bodyOffset:]
		h.FileSize = int64(binary.LittleEndian.Uint64(body[body64FileSize:]))
		h.DescriptorIndexBackPtr = binary.LittleEndian.Uint64(body[body64DescriptorIndexBackPtr:])
		h.DescriptorIndexRootOffset = int64(binary.LittleEndian.Uint64(body[body64DescriptorIndexRoot:]))
		h.OffsetIndexBackPtr = binary.LittleEndian.Uint64(body[body64OffsetIndexBackPtr:])
		h.OffsetIndexRootOffset = int64(binary.LittleEndian.Uint64(body[body64OffsetIndexRoot:]))
		h.Encryption = EncryptionMode(body[body64Encryption])
	}

	switch h.Encryption {
	case EncryptionNone, EncryptionCompressible, EncryptionHigh:
	default:
		return nil, newErr("readHeader", KindUnsupportedVariant, nil)
	}
	switch h.Content {
	case ContentTypePAB, ContentTypePST, ContentTypeOST:
	default:
		return nil, newErr("readHeader", KindUnsupportedVariant, nil)
	}

	return h, nil
}

// detectVariant implements §4.8's rule: data-version <= 0x0f is 32-bit,
// >= 0x15 is 64-bit; values in between are disambiguated by which
// variant-specific sentinel byte equals 0x80.
func detectVariant(dataVersion uint16, buf []byte) (Variant, error) {
	switch {
	case dataVersion <= 0x0f:
		return Variant32, nil
	case dataVersion >= 0x15:
		return Variant64, nil
	}

	sentinel32 := buf[bodyOffset+body32Sentinel]
	sentinel64 := buf[bodyOffset+body64Sentinel]
	switch {
	case sentinel32 == variantSentinel && sentinel64 != variantSentinel:
		return Variant32, nil
	case sentinel32 != variantSentinel && sentinel64 == variantSentinel:
		return Variant64, nil
	default:
		return 0, newErr("detectVariant", KindUnsupportedVariant, nil)
	}
}

// reader is the minimal capability this package needs from a
// source.Source without importing it directly into every file.
type reader interface {
	ReadAt(p []byte, off int64) (int, error)
}
