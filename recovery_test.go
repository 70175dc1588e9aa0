package pff

import (
	"encoding/binary"
	"testing"

	"github.com/pffparse/pff/source"
)

// TestRecoverEndToEnd builds a file with a tombstoned descriptor entry, an
// orphan descriptor-index leaf page sitting outside the live tree, and a
// stray data-block fragment, then drives Context.Recover over real bytes
// for all three recovery paths.
func TestRecoverEndToEnd(t *testing.T) {
	const (
		descIndexOffset   = int64(1024)
		offsetIndexOffset = int64(1536)
		block60Offset     = int64(2048)
		block60ID         = uint64(60)
		orphanPageOffset  = int64(2560)
		fragPayloadOffset = int64(3072)
		fragFooterOffset  = fragPayloadOffset + 64
		fragBlockID       = uint64(99)
	)

	block60Payload := []byte("recoverable descriptor payload")
	fragPayload := []byte("orphan fragment payload near eof")

	buf := make([]byte, fragFooterOffset+int64(footer32Size)+64)

	descLeaf := buildDescriptorLeafNode(nil, []descriptorRecord{
		{ID: 50, DataID: block60ID, LocalDescriptorsID: 0, ParentID: 0},
	}, Variant32)
	copy(buf[descIndexOffset:], descLeaf)

	offsetLeaf := buildOffsetLeafNode([]offsetRecord{
		{BlockID: block60ID, FileOffset: block60Offset, DataSize: uint32(len(block60Payload)), RefCount: 1},
	}, Variant32)
	copy(buf[offsetIndexOffset:], offsetLeaf)

	writeBlock := func(off int64, blockID uint64, payload []byte) {
		copy(buf[off:], payload)
		footerOff := off + int64(roundUp64(len(payload)))
		binary.LittleEndian.PutUint16(buf[footerOff+footerSizeOff:], uint16(len(payload)))
		binary.LittleEndian.PutUint32(buf[footerOff+footer32BackPtrOff:], uint32(blockID))
		binary.LittleEndian.PutUint32(buf[footerOff+footer32CRCOff:], weakCRC32(payload))
	}
	writeBlock(block60Offset, block60ID, block60Payload)

	orphanPage := buildDescriptorLeafNode([]descriptorRecord{
		{ID: 77, DataID: 0, LocalDescriptorsID: 0, ParentID: 0},
	}, nil, Variant32)
	copy(buf[orphanPageOffset:], orphanPage)

	writeBlock(fragPayloadOffset, fragBlockID, fragPayload)

	header := buildHeader(Variant32, ContentTypePST, EncryptionNone, descIndexOffset, offsetIndexOffset)
	copy(buf[0:], header)

	ctx, err := NewContext(source.FromBytes(buf), &Options{})
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}

	report, err := ctx.Recover(
		RecoveryOptions{ScanForFragments: true},
		[]FreeExtent{{FileOffset: orphanPageOffset, Length: indexNodeSize}},
		[]FreeExtent{{FileOffset: fragPayloadOffset, Length: 128}},
	)
	if err != nil {
		t.Fatalf("Recover: %v", err)
	}
	if report.RecoveredDescriptors != 2 {
		t.Errorf("RecoveredDescriptors = %d, want 2 (id 50 tombstone + id 77 orphan page)", report.RecoveredDescriptors)
	}
	if report.Fragments != 1 {
		t.Errorf("Fragments = %d, want 1", report.Fragments)
	}

	d50, err := ctx.GetRecoveredDescriptor(50, 0)
	if err != nil {
		t.Fatalf("GetRecoveredDescriptor(50,0): %v", err)
	}
	if !d50.Recovered() {
		t.Error("d50.Recovered() = false, want true")
	}
	stream, _, err := d50.OpenData()
	if err != nil {
		t.Fatalf("OpenData: %v", err)
	}
	got, err := stream.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(got) != string(block60Payload) {
		t.Errorf("recovered data = %q, want %q", got, block60Payload)
	}

	if _, err := ctx.GetRecoveredDescriptor(77, 0); err != nil {
		t.Errorf("GetRecoveredDescriptor(77,0): %v", err)
	}

	if _, err := ctx.GetRecoveredDescriptor(12345, 0); KindOf(err) != KindMissingDescriptor {
		t.Errorf("GetRecoveredDescriptor(missing): KindOf = %v, want KindMissingDescriptor", KindOf(err))
	}
}
