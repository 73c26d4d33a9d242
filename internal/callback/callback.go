// Package callback posts a finished SubmissionResult back to the URL the
// submission request named, retrying transient failures. Grounded on the
// retry shape of internal/judge/service/pool_retry.go (requeue-with-backoff
// around an externally-delivered outcome), but using a real backoff
// library instead of the teacher's hand-rolled doubling since the formula
// here is specified exactly: base delay 2·2^attempt seconds plus up to one
// second of jitter, capped at 20s, up to 8 attempts.
package callback

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	"judgeengine/internal/model"
)

const (
	maxAttempts    = 8
	maxDelay       = 20 * time.Second
	maxJitter      = time.Second
	requestTimeout = 10 * time.Second
)

// Poster delivers submission results over HTTP.
type Poster struct {
	client *http.Client
}

func New() *Poster {
	return &Poster{client: &http.Client{Timeout: requestTimeout}}
}

// Post delivers result to url, retrying 5xx/network errors with
// exponential backoff. A 2xx response, or exhausting all attempts, ends
// the retry loop; the latter's error is returned to the caller.
func (p *Poster) Post(ctx context.Context, url string, result model.SubmissionResult) error {
	body, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("callback: marshal result: %w", err)
	}

	policy := backoff.WithContext(newBackoff(), ctx)

	attempt := 0
	return backoff.Retry(func() error {
		attempt++
		err := p.deliver(ctx, url, body)
		if err != nil && attempt >= maxAttempts {
			return backoff.Permanent(err)
		}
		return err
	}, policy)
}

func (p *Poster) deliver(ctx context.Context, url string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return backoff.Permanent(fmt.Errorf("callback: build request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("callback: post to %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		return backoff.Permanent(fmt.Errorf("callback: %s returned %d", url, resp.StatusCode))
	}
	return fmt.Errorf("callback: %s returned %d", url, resp.StatusCode)
}

// delayFunc computes the base·2^attempt + jitter formula directly, rather
// than delegating to backoff.ExponentialBackOff's own growth curve.
func delayFunc(attempt int) time.Duration {
	base := 2 * time.Second
	delay := base << uint(attempt)
	if delay > maxDelay || delay <= 0 {
		delay = maxDelay
	}
	jitter := time.Duration(rand.Int63n(int64(maxJitter)))
	total := delay + jitter
	if total > maxDelay {
		total = maxDelay
	}
	return total
}

// exactBackoff drives cenkalti/backoff's interface with the spec's exact
// non-exponential-library formula instead of backoff.ExponentialBackOff's
// own growth curve.
type exactBackoff struct {
	attempt int
}

func newBackoff() *exactBackoff {
	return &exactBackoff{}
}

func (b *exactBackoff) NextBackOff() time.Duration {
	d := delayFunc(b.attempt)
	b.attempt++
	return d
}

func (b *exactBackoff) Reset() {
	b.attempt = 0
}
