package s3m

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"
)

// UnsignedPayload is the literal sentinel used as the payload hash for
// large streaming PUTs and every presigned URL (spec §4.1).
const UnsignedPayload = "UNSIGNED-PAYLOAD"

const (
	sigV4Algorithm  = "AWS4-HMAC-SHA256"
	iso8601Basic    = "20060102T150405Z"
	dateOnlyFormat  = "20060102"
	awsRequestScope = "aws4_request"
)

// signerHeaders that AWS excludes from the canonical header set because
// they're mutated by proxies/browsers/load balancers between signing and
// delivery, or because they're the signature's own destination.
var signerIgnoredHeaders = map[string]bool{
	"Authorization":   true,
	"User-Agent":      true,
	"X-Amzn-Trace-Id": true,
}

// Signer implements AWS Signature Version 4 canonicalization and signing
// (C1), plus its presign variant. It holds no mutable state; a zero-value
// Signer is usable once given credentials.
type Signer struct {
	AccessKeyID string
	SecretKey   SecretString
	Region      string
	Service     string // always "s3"
}

// NewSigner builds a Signer for the given host profile.
func NewSigner(h *HostProfile) *Signer {
	return &Signer{
		AccessKeyID: h.AccessKeyID,
		SecretKey:   h.SecretKey,
		Region:      h.Region,
		Service:     "s3",
	}
}

// SignRequest adds an Authorization header (AWS4-HMAC-SHA256) to req,
// signing for the given payload hash (a hex sha256 digest, or
// UnsignedPayload). Host and X-Amz-Date are set on req.Header when absent.
// Returns a BadRequest-kind error when req has no URL.
func (s *Signer) SignRequest(req *http.Request, payloadHash string, now time.Time) error {
	if req.URL == nil {
		return NewKindError(KindBadRequest, "request has no URL", nil)
	}

	amzDate := now.UTC().Format(iso8601Basic)
	dateStamp := now.UTC().Format(dateOnlyFormat)

	if req.Header.Get("X-Amz-Date") == "" {
		req.Header.Set("X-Amz-Date", amzDate)
	}
	if req.Header.Get("Host") == "" {
		req.Header.Set("Host", req.URL.Host)
	}
	if payloadHash != "" {
		req.Header.Set("X-Amz-Content-Sha256", payloadHash)
	}

	canonicalHeaders, signedHeaders := canonicalizeHeaders(req.Header, req.URL.Host)

	canonicalRequest := strings.Join([]string{
		req.Method,
		canonicalURI(req.URL.Path),
		canonicalQuery(req.URL.Query()),
		canonicalHeaders,
		signedHeaders,
		payloadHash,
	}, "\n")

	scope := fmt.Sprintf("%s/%s/%s/%s", dateStamp, s.Region, s.Service, awsRequestScope)
	stringToSign := strings.Join([]string{
		sigV4Algorithm,
		amzDate,
		scope,
		hexSHA256([]byte(canonicalRequest)),
	}, "\n")

	signingKey := s.signingKey(dateStamp)
	signature := hex.EncodeToString(hmacSHA256(signingKey, []byte(stringToSign)))

	authHeader := fmt.Sprintf(
		"%s Credential=%s/%s, SignedHeaders=%s, Signature=%s",
		sigV4Algorithm, s.AccessKeyID, scope, signedHeaders, signature,
	)
	req.Header.Set("Authorization", authHeader)

	return nil
}

// PresignURL returns a fully qualified URL carrying the X-Amz-* query
// parameters that authorize method+path for expires seconds, per spec
// §4.1. expires must be in [1, 604800].
func (s *Signer) PresignURL(method, rawURL string, expires int, now time.Time) (string, error) {
	if expires < 1 || expires > 604800 {
		return "", NewKindError(KindBadRequest, "presign expiry must be between 1 and 604800 seconds", nil)
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return "", NewKindError(KindBadRequest, "malformed presign URL", err)
	}

	amzDate := now.UTC().Format(iso8601Basic)
	dateStamp := now.UTC().Format(dateOnlyFormat)
	scope := fmt.Sprintf("%s/%s/%s/%s", dateStamp, s.Region, s.Service, awsRequestScope)

	q := u.Query()
	q.Set("X-Amz-Algorithm", sigV4Algorithm)
	q.Set("X-Amz-Credential", s.AccessKeyID+"/"+scope)
	q.Set("X-Amz-Date", amzDate)
	q.Set("X-Amz-Expires", fmt.Sprintf("%d", expires))
	q.Set("X-Amz-SignedHeaders", "host")
	u.RawQuery = q.Encode()

	headers := http.Header{"Host": []string{u.Host}}
	canonicalHeaders, signedHeaders := canonicalizeHeaders(headers, u.Host)

	canonicalRequest := strings.Join([]string{
		method,
		canonicalURI(u.Path),
		canonicalQuery(u.Query()),
		canonicalHeaders,
		signedHeaders,
		UnsignedPayload,
	}, "\n")

	stringToSign := strings.Join([]string{
		sigV4Algorithm,
		amzDate,
		scope,
		hexSHA256([]byte(canonicalRequest)),
	}, "\n")

	signingKey := s.signingKey(dateStamp)
	signature := hex.EncodeToString(hmacSHA256(signingKey, []byte(stringToSign)))

	q = u.Query()
	q.Set("X-Amz-Signature", signature)
	u.RawQuery = q.Encode()

	return u.String(), nil
}

// signingKey derives the HMAC chain: AWS4+secret -> date -> region ->
// service -> aws4_request (spec §4.1 step 5).
func (s *Signer) signingKey(dateStamp string) []byte {
	secret := s.SecretKey.Expose()
	kDate := hmacSHA256(append([]byte("AWS4"), secret...), []byte(dateStamp))
	kRegion := hmacSHA256(kDate, []byte(s.Region))
	kService := hmacSHA256(kRegion, []byte(s.Service))
	return hmacSHA256(kService, []byte(awsRequestScope))
}

func hmacSHA256(key, data []byte) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write(data)
	return mac.Sum(nil)
}

func hexSHA256(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// canonicalizeHeaders builds the CanonicalHeaders and SignedHeaders
// blocks per spec §4.1 step 2: lowercased names, inner whitespace
// collapsed, sorted lexicographically, repeated values comma-joined.
func canonicalizeHeaders(h http.Header, host string) (canonical, signed string) {
	values := map[string][]string{"host": {host}}
	var names []string
	names = append(names, "host")

	for k, vv := range h {
		if signerIgnoredHeaders[http.CanonicalHeaderKey(k)] {
			continue
		}
		lower := strings.ToLower(k)
		if lower == "host" {
			continue // already seeded from the URL above
		}
		names = append(names, lower)
		cleaned := make([]string, len(vv))
		for i, v := range vv {
			cleaned[i] = collapseInnerSpaces(strings.TrimSpace(v))
		}
		values[lower] = cleaned
	}

	sort.Strings(names)

	var b strings.Builder
	var signedNames []string
	seen := make(map[string]bool)
	for _, name := range names {
		if seen[name] {
			continue
		}
		seen[name] = true
		signedNames = append(signedNames, name)
		b.WriteString(name)
		b.WriteByte(':')
		b.WriteString(strings.Join(values[name], ","))
		b.WriteByte('\n')
	}

	return b.String(), strings.Join(signedNames, ";")
}

func collapseInnerSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// canonicalURI percent-encodes a path per spec §4.1: unreserved
// characters (A-Za-z0-9-._~) pass through unescaped, and slashes that
// separate path segments are preserved.
func canonicalURI(p string) string {
	if p == "" {
		return "/"
	}
	segments := strings.Split(p, "/")
	for i, seg := range segments {
		segments[i] = encodePathSegment(seg)
	}
	return strings.Join(segments, "/")
}

func encodePathSegment(seg string) string {
	var b strings.Builder
	for i := 0; i < len(seg); i++ {
		c := seg[i]
		if isUnreserved(c) {
			b.WriteByte(c)
		} else {
			fmt.Fprintf(&b, "%%%02X", c)
		}
	}
	return b.String()
}

func isUnreserved(c byte) bool {
	switch {
	case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9':
		return true
	case c == '-' || c == '.' || c == '_' || c == '~':
		return true
	}
	return false
}

// canonicalQuery sorts query parameters lexicographically by key then
// value and percent-encodes both sides, per spec §4.1 step 3.
func canonicalQuery(q url.Values) string {
	if len(q) == 0 {
		return ""
	}

	var keys []string
	for k := range q {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var pairs []string
	for _, k := range keys {
		vals := append([]string(nil), q[k]...)
		sort.Strings(vals)
		for _, v := range vals {
			pairs = append(pairs, encodeQueryComponent(k)+"="+encodeQueryComponent(v))
		}
	}
	return strings.Join(pairs, "&")
}

func encodeQueryComponent(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isUnreserved(c) {
			b.WriteByte(c)
		} else {
			fmt.Fprintf(&b, "%%%02X", c)
		}
	}
	return b.String()
}
