package s3m

import (
	"bytes"
	"encoding/gob"
	"time"

	bolt "go.etcd.io/bbolt"
)

// resumeBucket is the single top-level bbolt bucket; records are keyed
// by "<hostProfile>/<fingerprint hex>" so one database file can serve
// every configured host profile (spec §4.6, C6).
var resumeBucket = []byte("s3m_resumable_uploads")

// PartReceipt records one completed UploadPart response, the minimum
// needed to resume or complete a multipart upload without re-sending
// already-acknowledged bytes. At most one of the optional checksum
// fields is populated, matching whichever algorithm --checksum selected
// for the upload (spec §3, §4.4).
type PartReceipt struct {
	PartNumber int
	ETag       string
	Size       int64
	SHA256     string
	CRC32      string
	CRC32C     string
	SHA1       string
}

// ResumeRecord is the durable state of one in-progress (or recently
// finished) multipart upload, keyed by its UploadFingerprint.
type ResumeRecord struct {
	Fingerprint UploadFingerprint
	HostProfile string
	Bucket      string
	Key         string
	UploadID    string
	PartSize    int64
	Parts       []PartReceipt
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Store persists ResumeRecords in an embedded bbolt database, gob-encoded
// (spec §4.6: no cross-language wire requirement, so gob is the natural
// fit rather than a portable schema).
type Store struct {
	db *bolt.DB
}

// OpenStore opens (creating if needed) the bbolt database at path.
func OpenStore(path string) (*Store, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, NewKindError(KindIoError, "opening resumption store", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(resumeBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, NewKindError(KindIoError, "initializing resumption store", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database file.
func (s *Store) Close() error {
	return s.db.Close()
}

func recordKey(hostProfile string, fp UploadFingerprint) []byte {
	return []byte(hostProfile + "/" + fp.String())
}

// Lookup returns the record for fp under hostProfile, or (zero, false, nil)
// if none exists.
func (s *Store) Lookup(hostProfile string, fp UploadFingerprint) (ResumeRecord, bool, error) {
	var rec ResumeRecord
	var found bool
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(resumeBucket)
		v := b.Get(recordKey(hostProfile, fp))
		if v == nil {
			return nil
		}
		found = true
		return gob.NewDecoder(bytes.NewReader(v)).Decode(&rec)
	})
	if err != nil {
		return ResumeRecord{}, false, NewKindError(KindIoError, "reading resumption record", err)
	}
	return rec, found, nil
}

// Put inserts or overwrites the record for rec.Fingerprint.
func (s *Store) Put(rec ResumeRecord) error {
	now := rec.UpdatedAt
	if now.IsZero() {
		rec.UpdatedAt = rec.CreatedAt
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(rec); err != nil {
		return NewKindError(KindIoError, "encoding resumption record", err)
	}
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(resumeBucket)
		return b.Put(recordKey(rec.HostProfile, rec.Fingerprint), buf.Bytes())
	})
	if err != nil {
		return NewKindError(KindIoError, "writing resumption record", err)
	}
	return nil
}

// UpdatePart atomically appends or replaces one part's receipt within an
// existing record, so concurrent workers each update their own part
// without clobbering siblings (spec §4.6 "per-part atomic updates").
func (s *Store) UpdatePart(hostProfile string, fp UploadFingerprint, receipt PartReceipt, at time.Time) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(resumeBucket)
		key := recordKey(hostProfile, fp)
		v := b.Get(key)
		if v == nil {
			return NewKindError(KindInconsistentState, "updating part on unknown resumption record", nil)
		}
		var rec ResumeRecord
		if err := gob.NewDecoder(bytes.NewReader(v)).Decode(&rec); err != nil {
			return NewKindError(KindIoError, "decoding resumption record", err)
		}

		replaced := false
		for i, p := range rec.Parts {
			if p.PartNumber == receipt.PartNumber {
				rec.Parts[i] = receipt
				replaced = true
				break
			}
		}
		if !replaced {
			rec.Parts = append(rec.Parts, receipt)
		}
		rec.UpdatedAt = at

		var buf bytes.Buffer
		if err := gob.NewEncoder(&buf).Encode(rec); err != nil {
			return NewKindError(KindIoError, "encoding resumption record", err)
		}
		return b.Put(key, buf.Bytes())
	})
}

// Remove deletes the record for fp, called once an upload completes or
// is aborted.
func (s *Store) Remove(hostProfile string, fp UploadFingerprint) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(resumeBucket).Delete(recordKey(hostProfile, fp))
	})
}

// ListInProgress returns every record for hostProfile, for `s3m ls --multipart`
// and stale-upload cleanup.
func (s *Store) ListInProgress(hostProfile string) ([]ResumeRecord, error) {
	prefix := []byte(hostProfile + "/")
	var out []ResumeRecord
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(resumeBucket).Cursor()
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			var rec ResumeRecord
			if err := gob.NewDecoder(bytes.NewReader(v)).Decode(&rec); err != nil {
				return err
			}
			out = append(out, rec)
		}
		return nil
	})
	if err != nil {
		return nil, NewKindError(KindIoError, "listing resumption records", err)
	}
	return out, nil
}

// Clean removes every record for hostProfile older than olderThan.
func (s *Store) Clean(hostProfile string, olderThan time.Time) (int, error) {
	recs, err := s.ListInProgress(hostProfile)
	if err != nil {
		return 0, err
	}
	var removed int
	for _, r := range recs {
		if r.UpdatedAt.Before(olderThan) {
			if err := s.Remove(hostProfile, r.Fingerprint); err != nil {
				return removed, err
			}
			removed++
		}
	}
	return removed, nil
}
