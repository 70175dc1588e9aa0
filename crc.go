package pff

import "hash/crc32"

// weakCRCTable is the Ethernet/ZIP CRC-32 polynomial table (IEEE 802.3),
// the "weak CRC" referenced throughout the on-disk format: block footers,
// index-node trailers, local-descriptor nodes, allocation pages, and the
// file header itself all use it, always seeded at 0.
var weakCRCTable = crc32.MakeTable(crc32.IEEE)

// weakCRC32 computes the weak Ethernet CRC-32 over data, seeded at 0, as
// used by every integrity field in the format (§3, §4.3, GLOSSARY).
func weakCRC32(data []byte) uint32 {
	return crc32.Checksum(data, weakCRCTable)
}
