package pool

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gagliardetto/solana-go/rpc"

	"github.com/yotlabs/hubclient/service/metrics"
	solanaclient "github.com/yotlabs/hubclient/service/solana"
)

const (
	// DefaultMaxRetries is the number of full passes over the pool before
	// Execute gives up on a transient failure.
	DefaultMaxRetries = 5

	// DefaultInitialDelay is the backoff before the second pass; it doubles
	// on every subsequent pass.
	DefaultInitialDelay = 250 * time.Millisecond
)

// Endpoint is one RPC endpoint paired with the commitment level its reads
// and sends should use.
type Endpoint struct {
	URL        string
	Commitment rpc.CommitmentType
}

// Conn is a live connection handed to Execute callbacks. Callbacks read the
// commitment from the connection so every endpoint is queried at the level
// it was configured with.
type Conn struct {
	Client     solanaclient.LedgerClient
	URL        string
	Commitment rpc.CommitmentType
}

// Dialer builds a LedgerClient for an endpoint URL. Tests swap this out to
// avoid real network clients.
type Dialer func(url string) solanaclient.LedgerClient

// Pool rotates operations across a fixed set of RPC endpoints, retrying
// transient failures with exponential backoff between full passes. The
// cursor sticks to the last endpoint that succeeded so healthy endpoints
// keep serving until they fail.
type Pool struct {
	conns        []Conn
	cursor       atomic.Int64
	maxRetries   int
	initialDelay time.Duration
	logger       *slog.Logger
	metrics      *metrics.Metrics

	// sleep is swapped out in tests to avoid real backoff waits.
	sleep func(ctx context.Context, d time.Duration) error
}

// Option configures a Pool.
type Option func(*Pool, *options)

type options struct {
	dialer Dialer
}

// WithDialer overrides how endpoint URLs become LedgerClients.
func WithDialer(d Dialer) Option {
	return func(_ *Pool, o *options) { o.dialer = d }
}

// WithMaxRetries overrides the number of full passes before giving up.
func WithMaxRetries(n int) Option {
	return func(p *Pool, _ *options) { p.maxRetries = n }
}

// WithInitialDelay overrides the backoff before the second pass.
func WithInitialDelay(d time.Duration) Option {
	return func(p *Pool, _ *options) { p.initialDelay = d }
}

// WithLogger sets the pool's logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pool, _ *options) { p.logger = l }
}

// WithMetrics sets the pool's metrics recorder.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Pool, _ *options) { p.metrics = m }
}

// New builds a pool over the given endpoints. The endpoint list must be
// non-empty; each endpoint gets its own client at construction time so
// Execute never dials mid-operation.
func New(endpoints []Endpoint, opts ...Option) (*Pool, error) {
	if len(endpoints) == 0 {
		return nil, fmt.Errorf("endpoint list is empty")
	}

	p := &Pool{
		maxRetries:   DefaultMaxRetries,
		initialDelay: DefaultInitialDelay,
		logger:       slog.Default(),
		sleep:        sleepCtx,
	}
	o := &options{dialer: solanaclient.NewLedgerClient}
	for _, opt := range opts {
		opt(p, o)
	}

	for i, ep := range endpoints {
		if ep.URL == "" {
			return nil, fmt.Errorf("endpoint %d has an empty URL", i)
		}
		commitment := ep.Commitment
		if commitment == "" {
			commitment = rpc.CommitmentConfirmed
		}
		p.conns = append(p.conns, Conn{
			Client:     o.dialer(ep.URL),
			URL:        ep.URL,
			Commitment: commitment,
		})
	}
	return p, nil
}

// Len returns the number of endpoints in the pool.
func (p *Pool) Len() int { return len(p.conns) }

// Execute runs op against pool endpoints until one succeeds. Rotation starts
// at the endpoint that last succeeded. Transient errors move on to the next
// endpoint; any other error is returned immediately. After a full pass with
// no success the pool backs off exponentially and tries again, up to the
// configured number of passes; the last transient error is returned on
// exhaustion.
func (p *Pool) Execute(ctx context.Context, op func(ctx context.Context, conn Conn) error) error {
	var lastErr error

	for pass := 0; pass < p.maxRetries; pass++ {
		if pass > 0 {
			delay := p.initialDelay << uint(pass-1)
			p.logger.DebugContext(ctx, "all endpoints failed, backing off",
				"pass", pass,
				"delay", delay,
			)
			if p.metrics != nil {
				p.metrics.RecordBackoffSleep()
			}
			if err := p.sleep(ctx, delay); err != nil {
				return err
			}
		}

		start := p.cursor.Load()
		for i := 0; i < len(p.conns); i++ {
			idx := (start + int64(i)) % int64(len(p.conns))
			conn := p.conns[idx]

			err := op(ctx, conn)
			if err == nil {
				p.cursor.Store(idx)
				if p.metrics != nil {
					p.metrics.RecordPoolPass("success")
				}
				return nil
			}
			if !Transient(err) {
				if p.metrics != nil {
					p.metrics.RecordEndpointFailure(conn.URL, "fatal")
				}
				return err
			}

			lastErr = err
			p.logger.DebugContext(ctx, "endpoint failed, trying next",
				"endpoint", conn.URL,
				"error", err,
			)
			if p.metrics != nil {
				p.metrics.RecordEndpointFailure(conn.URL, "transient")
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
		}
		if p.metrics != nil {
			p.metrics.RecordPoolPass("exhausted")
		}
	}

	return fmt.Errorf("all %d endpoints failed after %d passes: %w", len(p.conns), p.maxRetries, lastErr)
}

// ExecuteT is Execute returning a value from the successful callback.
func ExecuteT[T any](ctx context.Context, p *Pool, op func(ctx context.Context, conn Conn) (T, error)) (T, error) {
	var out T
	err := p.Execute(ctx, func(ctx context.Context, conn Conn) error {
		v, err := op(ctx, conn)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}

// transientFragments are substrings of error text that indicate the
// endpoint, not the request, is at fault. RPC providers surface these as
// plain HTTP or JSON-RPC errors without stable types.
var transientFragments = []string{
	"429",
	"too many requests",
	"rate limit",
	"502",
	"503",
	"504",
	"bad gateway",
	"service unavailable",
	"gateway timeout",
	"connection refused",
	"connection reset",
	"broken pipe",
	"i/o timeout",
	"no such host",
	"eof",
	"node is behind",
	"node is unhealthy",
}

// Transient reports whether an error should rotate to the next endpoint
// rather than abort the operation. Context cancellation is never transient.
func Transient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, frag := range transientFragments {
		if strings.Contains(msg, frag) {
			return true
		}
	}
	return false
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
