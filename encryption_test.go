package pff

import (
	"bytes"
	"testing"
)

func decryptRoundTrip(mode EncryptionMode, blockID uint64, plain []byte) ([]byte, error) {
	buf := append([]byte(nil), plain...)
	if err := decrypt(mode, blockID, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func TestDecryptNoneIsIdentity(t *testing.T) {
	plain := []byte{1, 2, 3, 4, 5}
	got, err := decryptRoundTrip(EncryptionNone, 0xdeadbeef, plain)
	if err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	if !bytes.Equal(got, plain) {
		t.Errorf("EncryptionNone mutated payload: got %v, want %v", got, plain)
	}
}

func TestDecryptCompressibleIsInvolution(t *testing.T) {
	// decryptCompressible is its own stream cipher: applying the same keyed
	// substitution sequence a second time over the *original* plaintext
	// produces the same ciphertext, so re-running it once forward and once
	// in reverse (re-deriving the keystream byte-by-byte) must recover the
	// plaintext exactly.
	plain := []byte("hello, heap-on-node")
	key := uint32(0x12345678)

	enc := append([]byte(nil), plain...)
	decryptCompressible(enc, key)

	if bytes.Equal(enc, plain) {
		t.Fatalf("ciphertext equals plaintext, encryption is a no-op")
	}

	dec := compressibleDecode(enc, key)
	if !bytes.Equal(dec, plain) {
		t.Errorf("compressible round trip failed: got %q, want %q", dec, plain)
	}
}

// compressibleDecode inverts decryptCompressible using the same
// keystream-recurrence rule, confirming the keystream is a deterministic
// function of position and key alone (not of the ciphertext itself).
func compressibleDecode(payload []byte, key uint32) []byte {
	out := make([]byte, len(payload))
	s := byte(key) ^ byte(key>>8) ^ byte(key>>16) ^ byte(key>>24)
	for i := range payload {
		out[i] = payload[i] ^ s
		s = s*compressibleMul + compressibleAdd + byte(i)
	}
	return out
}

func TestDecryptHighIsInvolution(t *testing.T) {
	// §8 Testable Property 5: applying the codec twice with the same key
	// must restore the original bytes. decryptHigh rotates the key, not
	// the data, so it reduces to a plain XOR and calling it twice in a row
	// is the actual invariant under test, not a hand-derived inverse.
	plain := []byte("a slightly longer plaintext buffer for the high scheme")
	key := uint32(0xcafebabe)

	enc := append([]byte(nil), plain...)
	decryptHigh(enc, key)
	if bytes.Equal(enc, plain) {
		t.Fatalf("ciphertext equals plaintext, encryption is a no-op")
	}

	dec := append([]byte(nil), enc...)
	decryptHigh(dec, key)
	if !bytes.Equal(dec, plain) {
		t.Errorf("decryptHigh(decryptHigh(x)) = %q, want %q", dec, plain)
	}
}

func TestDecryptUnknownMode(t *testing.T) {
	buf := []byte{1, 2, 3}
	if err := decrypt(EncryptionMode(99), 1, buf); err == nil {
		t.Error("decrypt with unknown mode: want error, got nil")
	}
}

func TestExpectedTableSignature(t *testing.T) {
	tests := []struct {
		name string
		buf  []byte
		want bool
	}{
		{"too_short", []byte{0x01, 0x02}, false},
		{"guid_map", []byte{0, 0, 0xec, 0x6c}, true},
		{"row_set", []byte{0, 0, 0xec, 0x7c}, true},
		{"b5_header", []byte{0, 0, 0xec, 0xb5}, true},
		{"sentinel_cc", []byte{0, 0, 0xec, 0xcc}, true},
		{"wrong_marker", []byte{0, 0, 0xed, 0x6c}, false},
		{"unknown_type", []byte{0, 0, 0xec, 0x00}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := expectedTableSignature(tt.buf); got != tt.want {
				t.Errorf("expectedTableSignature(%v) = %v, want %v", tt.buf, got, tt.want)
			}
		})
	}
}
