package s3m

import (
	"context"
	"io"

	"golang.org/x/time/rate"
)

// ThrottledReader wraps src with a token-bucket rate limiter gated on
// bytes read, per spec §4.3. limitKiBps <= 0 disables throttling and
// returns src unchanged. Applied after encryption, so the configured
// rate always reflects the wire bytes actually sent.
func ThrottledReader(ctx context.Context, src io.Reader, limitKiBps int) io.Reader {
	if limitKiBps <= 0 {
		return src
	}
	limiter := rate.NewLimiter(rate.Limit(limitKiBps*1024), limitKiBps*1024)
	return &throttledReader{ctx: ctx, src: src, limiter: limiter}
}

type throttledReader struct {
	ctx     context.Context
	src     io.Reader
	limiter *rate.Limiter
}

func (t *throttledReader) Read(p []byte) (int, error) {
	n, err := t.src.Read(p)
	if n > 0 {
		if werr := t.waitN(n); werr != nil {
			return n, werr
		}
	}
	return n, err
}

// waitN reserves n bytes of budget, splitting the request when n exceeds
// the limiter's burst size (the burst is capped to one second's worth of
// bytes above, but callers may pass larger buffers).
func (t *throttledReader) waitN(n int) error {
	burst := t.limiter.Burst()
	for n > 0 {
		chunk := n
		if chunk > burst {
			chunk = burst
		}
		if err := t.limiter.WaitN(t.ctx, chunk); err != nil {
			return NewKindError(KindThrottled, "rate limit wait canceled", err)
		}
		n -= chunk
	}
	return nil
}
