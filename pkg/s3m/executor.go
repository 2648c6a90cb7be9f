package s3m

import (
	"context"
	"errors"
	"io"
	"math/rand/v2"
	"net"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// BodySource supplies a retryable request body. Seek must return to the
// start of the logical body so a retried attempt resends identical
// bytes; this is what lets C2 re-sign and resend a part after a
// transient failure (spec §4.2).
type BodySource interface {
	io.ReadSeeker
	Len() int64
}

// NewBytesBody wraps a byte slice as a retryable, seekable body.
func NewBytesBody(b []byte) BodySource {
	return newByteSeeker(b)
}

// Executor issues signed HTTP requests with retry and exponential
// backoff (C2). It re-signs on every retry so the SigV4 date window
// never goes stale mid-backoff.
type Executor struct {
	Client     *http.Client
	Signer     *Signer
	MaxRetries int
	UserAgent  string
	Log        *logrus.Entry

	// NoSign skips SignRequest entirely — no Authorization header, no
	// X-Amz-Content-Sha256 — for public buckets that reject signed
	// requests (spec §4.1 "No-sign mode").
	NoSign bool
}

// NewExecutor builds an Executor with sane defaults.
func NewExecutor(signer *Signer, maxRetries int, log *logrus.Entry) *Executor {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &Executor{
		Client:     &http.Client{Timeout: 0},
		Signer:     signer,
		MaxRetries: maxRetries,
		UserAgent:  UserAgent(),
		Log:        log,
	}
}

// retryableStatus reports whether an HTTP status code should be retried,
// per spec §4.2.
func retryableStatus(code int) bool {
	switch code {
	case http.StatusRequestTimeout, http.StatusTooManyRequests,
		http.StatusInternalServerError, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

func retryableNetErr(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF)
}

// backoff computes the exponential-with-jitter delay for attempt
// (0-indexed), per spec §4.2: 1s base, doubled per attempt, ±20% jitter.
func backoff(attempt int) time.Duration {
	base := time.Second << attempt
	if base > 30*time.Second {
		base = 30 * time.Second
	}
	jitter := 0.8 + rand.Float64()*0.4 // [0.8, 1.2)
	return time.Duration(float64(base) * jitter)
}

// Execute signs req (payloadHash already chosen by the caller) and
// performs it with retry/backoff. body, if non-nil, is rewound and the
// request re-signed before each retry. On terminal failure the returned
// error always carries the HTTP status, even if the body failed to
// decode.
func (e *Executor) Execute(ctx context.Context, req *http.Request, body BodySource, payloadHash string) (*http.Response, error) {
	req.Header.Set("User-Agent", e.UserAgent)

	var lastErr error
	for attempt := 0; attempt <= e.MaxRetries; attempt++ {
		if body != nil {
			if _, err := body.Seek(0, io.SeekStart); err != nil {
				return nil, NewKindError(KindIoError, "rewinding retry body", err)
			}
			req.Body = io.NopCloser(body)
			req.ContentLength = body.Len()
			req.GetBody = func() (io.ReadCloser, error) {
				if _, err := body.Seek(0, io.SeekStart); err != nil {
					return nil, err
				}
				return io.NopCloser(body), nil
			}
		}

		if e.Signer != nil && !e.NoSign {
			if err := e.Signer.SignRequest(req, payloadHash, time.Now()); err != nil {
				return nil, err
			}
		}

		resp, err := e.Client.Do(req.WithContext(ctx))
		if err != nil {
			lastErr = err
			if !retryableNetErr(err) || attempt == e.MaxRetries {
				return nil, NewKindError(KindIoError, "http request failed", err)
			}
			e.logRetry(attempt, err, 0)
			if !e.sleep(ctx, attempt) {
				return nil, NewKindError(KindCanceled, "canceled during retry backoff", ctx.Err())
			}
			continue
		}

		if !retryableStatus(resp.StatusCode) {
			return resp, classifyStatus(resp)
		}

		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		if attempt == e.MaxRetries {
			return nil, classifyStatus(&http.Response{StatusCode: resp.StatusCode})
		}
		e.logRetry(attempt, nil, resp.StatusCode)
		if !e.sleep(ctx, attempt) {
			return nil, NewKindError(KindCanceled, "canceled during retry backoff", ctx.Err())
		}
	}

	return nil, NewKindError(KindServerError, "retries exhausted", lastErr)
}

func (e *Executor) sleep(ctx context.Context, attempt int) bool {
	select {
	case <-time.After(backoff(attempt)):
		return true
	case <-ctx.Done():
		return false
	}
}

func (e *Executor) logRetry(attempt int, err error, status int) {
	if e.Log == nil {
		return
	}
	entry := e.Log.WithField("attempt", attempt+1)
	if err != nil {
		entry.WithError(err).Warn("retrying request after transport error")
	} else {
		entry.WithField("status", status).Warn("retrying request after server error")
	}
}

// classifyStatus always surfaces the HTTP status in a KindError, even
// when the response body can't be decoded further (spec §4.2).
func classifyStatus(resp *http.Response) error {
	code := resp.StatusCode
	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return NewKindError(KindAuthError, httpStatusMsg(code), nil)
	case code == http.StatusNotFound:
		return NewKindError(KindNotFound, httpStatusMsg(code), nil)
	case code == http.StatusTooManyRequests:
		return NewKindError(KindThrottled, httpStatusMsg(code), nil)
	case code >= 500:
		return NewKindError(KindServerError, httpStatusMsg(code), nil)
	case code >= 400:
		return NewKindError(KindBadRequest, httpStatusMsg(code), nil)
	default:
		return nil
	}
}

func httpStatusMsg(code int) string {
	return http.StatusText(code)
}
