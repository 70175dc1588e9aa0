package pff

import (
	"golang.org/x/text/encoding/unicode"
)

// DecodeUTF16LE decodes a TypeStringUTF16 cell's raw bytes (§4.9.2), UTF-16LE
// with no byte-order mark, truncating at the first NUL code unit. Cells
// missing a terminator (a truncated or malformed file) decode in full.
func DecodeUTF16LE(b []byte) (string, error) {
	end := len(b)
	for i := 0; i+1 < len(b); i += 2 {
		if b[i] == 0 && b[i+1] == 0 {
			end = i
			break
		}
	}
	decoder := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder()
	s, err := decoder.Bytes(b[:end])
	if err != nil {
		return "", newErr("DecodeUTF16LE", KindInvalidInput, err)
	}
	return string(s), nil
}
