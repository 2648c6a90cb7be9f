package s3m

import (
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := OpenStore(filepath.Join(t.TempDir(), "resume.db"))
	if err != nil {
		t.Fatalf("OpenStore() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStore_PutAndLookup(t *testing.T) {
	store := openTestStore(t)
	fp := ComputeFingerprint(1, "AKIA", "host", "bucket", "key", 1024)

	rec := ResumeRecord{
		Fingerprint: fp,
		HostProfile: "prod",
		Bucket:      "bucket",
		Key:         "key",
		UploadID:    "upload-1",
		PartSize:    1024,
		CreatedAt:   time.Now(),
	}
	if err := store.Put(rec); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	got, found, err := store.Lookup("prod", fp)
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if !found {
		t.Fatal("Lookup() did not find the record just written")
	}
	if got.UploadID != "upload-1" {
		t.Errorf("UploadID = %q, want %q", got.UploadID, "upload-1")
	}
}

func TestStore_LookupMissingReturnsNotFound(t *testing.T) {
	store := openTestStore(t)
	fp := ComputeFingerprint(1, "a", "b", "c", "d", 1)
	_, found, err := store.Lookup("prod", fp)
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if found {
		t.Error("Lookup() found a record that was never written")
	}
}

func TestStore_UpdatePart(t *testing.T) {
	store := openTestStore(t)
	fp := ComputeFingerprint(1, "a", "b", "c", "d", 1)
	if err := store.Put(ResumeRecord{Fingerprint: fp, HostProfile: "prod", UploadID: "u"}); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	if err := store.UpdatePart("prod", fp, PartReceipt{PartNumber: 1, ETag: "e1", Size: 10}, time.Now()); err != nil {
		t.Fatalf("UpdatePart() error = %v", err)
	}
	if err := store.UpdatePart("prod", fp, PartReceipt{PartNumber: 2, ETag: "e2", Size: 20}, time.Now()); err != nil {
		t.Fatalf("UpdatePart() error = %v", err)
	}
	// Replacing an existing part number must not duplicate it.
	if err := store.UpdatePart("prod", fp, PartReceipt{PartNumber: 1, ETag: "e1-retry", Size: 10}, time.Now()); err != nil {
		t.Fatalf("UpdatePart() re-update error = %v", err)
	}

	rec, found, err := store.Lookup("prod", fp)
	if err != nil || !found {
		t.Fatalf("Lookup() found=%v err=%v", found, err)
	}
	if len(rec.Parts) != 2 {
		t.Fatalf("got %d parts, want 2", len(rec.Parts))
	}
	for _, p := range rec.Parts {
		if p.PartNumber == 1 && p.ETag != "e1-retry" {
			t.Errorf("part 1 ETag = %q, want %q", p.ETag, "e1-retry")
		}
	}
}

func TestStore_UpdatePartUnknownRecordFails(t *testing.T) {
	store := openTestStore(t)
	fp := ComputeFingerprint(1, "a", "b", "c", "d", 1)
	err := store.UpdatePart("prod", fp, PartReceipt{PartNumber: 1}, time.Now())
	if err == nil {
		t.Fatal("UpdatePart() on an unknown record should have failed")
	}
}

func TestStore_Remove(t *testing.T) {
	store := openTestStore(t)
	fp := ComputeFingerprint(1, "a", "b", "c", "d", 1)
	store.Put(ResumeRecord{Fingerprint: fp, HostProfile: "prod", UploadID: "u"})

	if err := store.Remove("prod", fp); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	_, found, err := store.Lookup("prod", fp)
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if found {
		t.Error("record still present after Remove()")
	}
}

func TestStore_ListInProgressScopesPerHost(t *testing.T) {
	store := openTestStore(t)
	fp1 := ComputeFingerprint(1, "a", "b", "c", "key1", 1)
	fp2 := ComputeFingerprint(1, "a", "b", "c", "key2", 1)
	fp3 := ComputeFingerprint(1, "a", "b", "c", "key3", 1)

	store.Put(ResumeRecord{Fingerprint: fp1, HostProfile: "prod", UploadID: "u1"})
	store.Put(ResumeRecord{Fingerprint: fp2, HostProfile: "prod", UploadID: "u2"})
	store.Put(ResumeRecord{Fingerprint: fp3, HostProfile: "staging", UploadID: "u3"})

	recs, err := store.ListInProgress("prod")
	if err != nil {
		t.Fatalf("ListInProgress() error = %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("ListInProgress(prod) returned %d records, want 2", len(recs))
	}
}

func TestStore_CleanRemovesOnlyStaleRecords(t *testing.T) {
	store := openTestStore(t)
	fpOld := ComputeFingerprint(1, "a", "b", "c", "old", 1)
	fpNew := ComputeFingerprint(1, "a", "b", "c", "new", 1)

	now := time.Now()
	store.Put(ResumeRecord{Fingerprint: fpOld, HostProfile: "prod", UploadID: "u-old", UpdatedAt: now.Add(-48 * time.Hour)})
	store.Put(ResumeRecord{Fingerprint: fpNew, HostProfile: "prod", UploadID: "u-new", UpdatedAt: now})

	removed, err := store.Clean("prod", now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("Clean() error = %v", err)
	}
	if removed != 1 {
		t.Errorf("Clean() removed %d records, want 1", removed)
	}

	_, foundOld, _ := store.Lookup("prod", fpOld)
	_, foundNew, _ := store.Lookup("prod", fpNew)
	if foundOld {
		t.Error("Clean() left the stale record behind")
	}
	if !foundNew {
		t.Error("Clean() removed the fresh record")
	}
}
