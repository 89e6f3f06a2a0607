package prober

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"syscall"
	"time"

	"github.com/monocle-dev/monocle/internal/types"
)

const (
	DefaultTimeout      = 10 * time.Second
	DefaultMaxRedirects = 5
	UserAgent           = "Monocle-Monitor/1.0"
)

// Prober executes HTTP health probes. It has no side effects beyond the
// request itself.
type Prober struct {
	client  *http.Client
	timeout time.Duration
}

func New(timeout time.Duration) *Prober {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Prober{
		timeout: timeout,
		client: &http.Client{
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= DefaultMaxRedirects {
					return fmt.Errorf("stopped after %d redirects", DefaultMaxRedirects)
				}
				return nil
			},
		},
	}
}

// Probe never returns an error: every failure mode is captured in the result.
func (p *Prober) Probe(ctx context.Context, target types.ProbeTarget) types.ProbeResult {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	method := strings.ToUpper(target.Method)
	if method == "" {
		method = http.MethodGet
	}

	expected := target.ExpectedStatus
	if expected == 0 {
		expected = http.StatusOK
	}

	start := time.Now()
	result := types.ProbeResult{CheckedAt: start}

	req, err := http.NewRequestWithContext(ctx, method, target.URL, nil)

	if err != nil {
		result.ResponseMs = time.Since(start).Milliseconds()
		result.ErrorType = types.ErrorUnknown
		result.ErrorMessage = err.Error()
		return result
	}

	req.Header.Set("User-Agent", UserAgent)

	for key, value := range target.Headers {
		req.Header.Set(key, value)
	}

	resp, err := p.client.Do(req)
	result.ResponseMs = time.Since(start).Milliseconds()

	if err != nil {
		result.ErrorType = Classify(err)
		if result.ErrorType == types.ErrorTimeout {
			result.ErrorMessage = fmt.Sprintf("Request timed out after %dms", p.timeout.Milliseconds())
		} else {
			result.ErrorMessage = err.Error()
		}
		return result
	}

	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	result.StatusCode = resp.StatusCode

	if resp.StatusCode != expected {
		result.ErrorType = types.ErrorStatus
		result.ErrorMessage = fmt.Sprintf("Expected %d, got %d", expected, resp.StatusCode)
		return result
	}

	result.IsUp = true
	return result
}

// Classify maps a transport error to an error type. Timeouts win over
// connection-level failures.
func Classify(err error) types.ErrorType {
	var netErr net.Error

	if errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled) ||
		(errors.As(err, &netErr) && netErr.Timeout()) {
		return types.ErrorTimeout
	}

	var dnsErr *net.DNSError
	var opErr *net.OpError

	if errors.As(err, &dnsErr) ||
		errors.As(err, &opErr) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) {
		return types.ErrorNetwork
	}

	return types.ErrorUnknown
}
