package s3m

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"testing"

	"golang.org/x/crypto/chacha20poly1305"
)

func testKey() []byte {
	return bytes.Repeat([]byte{0x42}, chacha20poly1305.KeySize)
}

func encryptAll(t *testing.T, plaintext []byte, key []byte) []byte {
	t.Helper()
	return encryptAllWithSegmentSize(t, plaintext, key, 0)
}

func encryptAllWithSegmentSize(t *testing.T, plaintext []byte, key []byte, segmentSize int64) []byte {
	t.Helper()
	enc, err := EncryptReader(bytes.NewReader(plaintext), key, segmentSize)
	if err != nil {
		t.Fatalf("EncryptReader() error = %v", err)
	}
	defer enc.Close()
	got, err := io.ReadAll(enc)
	if err != nil {
		t.Fatalf("reading ciphertext: %v", err)
	}
	return got
}

func TestEncryptDecrypt_RoundTrip(t *testing.T) {
	key := testKey()
	tests := map[string][]byte{
		"empty":                  {},
		"short":                  []byte("hello, world"),
		"exactly one segment":    bytes.Repeat([]byte{'a'}, defaultStreamSegmentSize),
		"spans two segments":     bytes.Repeat([]byte{'b'}, defaultStreamSegmentSize+1000),
		"spans several segments": bytes.Repeat([]byte{'c'}, defaultStreamSegmentSize*3+512),
	}

	for name, plaintext := range tests {
		t.Run(name, func(t *testing.T) {
			ciphertext := encryptAll(t, plaintext, key)

			dec, err := DecryptReader(bytes.NewReader(ciphertext), key)
			if err != nil {
				t.Fatalf("DecryptReader() error = %v", err)
			}
			defer dec.Close()
			got, err := io.ReadAll(dec)
			if err != nil {
				t.Fatalf("reading plaintext: %v", err)
			}
			if !bytes.Equal(got, plaintext) {
				t.Errorf("round trip mismatch: got %d bytes, want %d bytes", len(got), len(plaintext))
			}
		})
	}
}

func TestEncryptReader_WireFormat(t *testing.T) {
	ciphertext := encryptAll(t, []byte("hi"), testKey())
	if len(ciphertext) < 7+segSizeLen+noncePrefixLen {
		t.Fatalf("ciphertext too short to hold magic+segment size+nonce prefix: %d bytes", len(ciphertext))
	}
	var magic [7]byte
	copy(magic[:], ciphertext[:7])
	if magic != encryptMagic {
		t.Errorf("magic = %v, want %v", magic, encryptMagic)
	}
	gotSize := binary.BigEndian.Uint32(ciphertext[7 : 7+segSizeLen])
	if gotSize != defaultStreamSegmentSize {
		t.Errorf("wire segment size = %d, want default %d", gotSize, defaultStreamSegmentSize)
	}
}

func TestEncryptReader_UsesGivenSegmentSize(t *testing.T) {
	ciphertext := encryptAllWithSegmentSize(t, bytes.Repeat([]byte{'x'}, 5000), testKey(), 2048)
	gotSize := binary.BigEndian.Uint32(ciphertext[7 : 7+segSizeLen])
	if gotSize != 2048 {
		t.Errorf("wire segment size = %d, want 2048", gotSize)
	}

	dec, err := DecryptReader(bytes.NewReader(ciphertext), testKey())
	if err != nil {
		t.Fatalf("DecryptReader() error = %v", err)
	}
	defer dec.Close()
	got, err := io.ReadAll(dec)
	if err != nil {
		t.Fatalf("reading plaintext: %v", err)
	}
	if !bytes.Equal(got, bytes.Repeat([]byte{'x'}, 5000)) {
		t.Error("round trip with a custom segment size produced the wrong plaintext")
	}
}

func TestDecryptReader_WrongKeyFails(t *testing.T) {
	ciphertext := encryptAll(t, []byte("sensitive data"), testKey())

	wrongKey := bytes.Repeat([]byte{0x99}, chacha20poly1305.KeySize)
	dec, err := DecryptReader(bytes.NewReader(ciphertext), wrongKey)
	if err != nil {
		t.Fatalf("DecryptReader() error = %v", err)
	}
	defer dec.Close()

	_, err = io.ReadAll(dec)
	if err == nil {
		t.Fatal("decrypting with the wrong key should have failed")
	}
	var kerr *KindError
	if !errors.As(err, &kerr) || kerr.Kind != KindCryptoError {
		t.Errorf("error = %v, want a KindCryptoError", err)
	}
}

func TestDecryptReader_RejectsBadMagic(t *testing.T) {
	_, err := DecryptReader(bytes.NewReader([]byte("not-an-s3m-object-at-all-padding")), testKey())
	if err == nil {
		t.Fatal("DecryptReader() should reject a body with the wrong magic")
	}
}

func TestDecryptReader_RejectsTruncatedSegment(t *testing.T) {
	ciphertext := encryptAll(t, bytes.Repeat([]byte{'d'}, defaultStreamSegmentSize+100), testKey())
	truncated := ciphertext[:len(ciphertext)-5]

	dec, err := DecryptReader(bytes.NewReader(truncated), testKey())
	if err != nil {
		t.Fatalf("DecryptReader() error = %v", err)
	}
	defer dec.Close()
	if _, err := io.ReadAll(dec); err == nil {
		t.Fatal("reading a truncated ciphertext should have failed")
	}
}
