package s3m

import "testing"

func TestComputeFingerprint_Deterministic(t *testing.T) {
	a := ComputeFingerprint(1000, "AKIA", "s3.amazonaws.com", "bucket", "key", 5*1024*1024)
	b := ComputeFingerprint(1000, "AKIA", "s3.amazonaws.com", "bucket", "key", 5*1024*1024)
	if a != b {
		t.Error("ComputeFingerprint() is not deterministic for identical inputs")
	}
}

func TestComputeFingerprint_DiffersPerInput(t *testing.T) {
	base := ComputeFingerprint(1000, "AKIA", "s3.amazonaws.com", "bucket", "key", 5*1024*1024)

	variants := []UploadFingerprint{
		ComputeFingerprint(2000, "AKIA", "s3.amazonaws.com", "bucket", "key", 5*1024*1024),
		ComputeFingerprint(1000, "AKIB", "s3.amazonaws.com", "bucket", "key", 5*1024*1024),
		ComputeFingerprint(1000, "AKIA", "other.host", "bucket", "key", 5*1024*1024),
		ComputeFingerprint(1000, "AKIA", "s3.amazonaws.com", "other-bucket", "key", 5*1024*1024),
		ComputeFingerprint(1000, "AKIA", "s3.amazonaws.com", "bucket", "other-key", 5*1024*1024),
		ComputeFingerprint(1000, "AKIA", "s3.amazonaws.com", "bucket", "key", 8*1024*1024),
	}
	for i, v := range variants {
		if v == base {
			t.Errorf("variant %d is identical to the base fingerprint, want it to differ", i)
		}
	}
}

func TestUploadFingerprint_IsZero(t *testing.T) {
	var zero UploadFingerprint
	if !zero.IsZero() {
		t.Error("zero-value UploadFingerprint.IsZero() = false, want true")
	}

	fp := ComputeFingerprint(1, "a", "b", "c", "d", 1)
	if fp.IsZero() {
		t.Error("computed fingerprint.IsZero() = true, want false")
	}
}

func TestUploadFingerprint_String(t *testing.T) {
	fp := ComputeFingerprint(1, "a", "b", "c", "d", 1)
	s := fp.String()
	if len(s) != 64 {
		t.Errorf("String() length = %d, want 64 (hex of 32 bytes)", len(s))
	}
}
