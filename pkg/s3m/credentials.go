package s3m

// SecretString holds a secret value (the S3 secret access key, or a
// symmetric encryption key) and keeps it out of default formatting.
// Zero() overwrites the backing array with zeros. Nothing in this package
// calls it, and the value is not zeroed automatically when it goes out of
// use: the secret stays in memory until some caller invokes Zero().
type SecretString struct {
	b []byte
}

// NewSecretString wraps a secret value. The caller's slice is copied so
// Zero() does not affect data the caller still owns.
func NewSecretString(v string) SecretString {
	b := make([]byte, len(v))
	copy(b, v)
	return SecretString{b: b}
}

// Expose returns the raw secret. Call sites should hold onto the result
// only for the duration of a single signing operation.
func (s SecretString) Expose() []byte {
	return s.b
}

// Zero overwrites the secret's backing bytes with zeros.
func (s *SecretString) Zero() {
	for i := range s.b {
		s.b[i] = 0
	}
}

func (s SecretString) String() string {
	return "[REDACTED]"
}

func (s SecretString) GoString() string {
	return "s3m.SecretString{[REDACTED]}"
}

// HostProfile is a named S3-compatible endpoint, per spec §3.
type HostProfile struct {
	Name            string
	Region          string
	Scheme          string // "http" or "https"
	Host            string // endpoint host, e.g. "s3.amazonaws.com" or "<account>.r2.cloudflarestorage.com"
	AccessKeyID     string
	SecretKey       SecretString
	Bucket          string // optional default bucket
	EncryptionKey   []byte // optional 32-byte symmetric key
	Compress        bool
	NoSignRequest   bool
	PathStyle       bool // force path-style addressing (bucket in path, not host)
}

// Endpoint returns the scheme+host base URL for this profile.
func (h *HostProfile) Endpoint() string {
	scheme := h.Scheme
	if scheme == "" {
		scheme = "https"
	}
	return scheme + "://" + h.Host
}
