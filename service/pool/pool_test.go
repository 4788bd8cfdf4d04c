package pool

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	solanaclient "github.com/yotlabs/hubclient/service/solana"
)

// stubLedger satisfies the ledger interface; pool tests drive Execute with
// closures so the methods are never reached.
type stubLedger struct{ url string }

func (s *stubLedger) GetLatestBlockhash(context.Context, rpc.CommitmentType) (*rpc.GetLatestBlockhashResult, error) {
	return nil, nil
}
func (s *stubLedger) SimulateTransactionWithOpts(context.Context, *solana.Transaction, *rpc.SimulateTransactionOpts) (*rpc.SimulateTransactionResponse, error) {
	return nil, nil
}
func (s *stubLedger) SendTransactionWithOpts(context.Context, *solana.Transaction, rpc.TransactionOpts) (solana.Signature, error) {
	return solana.Signature{}, nil
}
func (s *stubLedger) GetSignatureStatuses(context.Context, bool, ...solana.Signature) (*rpc.GetSignatureStatusesResult, error) {
	return nil, nil
}
func (s *stubLedger) GetBalance(context.Context, solana.PublicKey, rpc.CommitmentType) (*rpc.GetBalanceResult, error) {
	return nil, nil
}
func (s *stubLedger) GetAccountInfoWithOpts(context.Context, solana.PublicKey, *rpc.GetAccountInfoOpts) (*rpc.GetAccountInfoResult, error) {
	return nil, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestPool(t *testing.T, urls []string, opts ...Option) *Pool {
	t.Helper()
	endpoints := make([]Endpoint, len(urls))
	for i, u := range urls {
		endpoints[i] = Endpoint{URL: u, Commitment: rpc.CommitmentConfirmed}
	}
	opts = append(opts,
		WithDialer(func(url string) solanaclient.LedgerClient { return &stubLedger{url: url} }),
		WithLogger(testLogger()),
	)
	p, err := New(endpoints, opts...)
	require.NoError(t, err)
	p.sleep = func(context.Context, time.Duration) error { return nil }
	return p
}

func TestNew_EmptyEndpoints(t *testing.T) {
	_, err := New(nil)
	require.Error(t, err)
}

func TestNew_EmptyURL(t *testing.T) {
	_, err := New([]Endpoint{{URL: ""}})
	require.Error(t, err)
}

func TestNew_DefaultCommitment(t *testing.T) {
	p := newTestPool(t, []string{"http://a"})
	assert.Equal(t, rpc.CommitmentConfirmed, p.conns[0].Commitment)
}

func TestExecute_FirstEndpointSucceeds(t *testing.T) {
	p := newTestPool(t, []string{"http://a", "http://b"})

	var visited []string
	err := p.Execute(context.Background(), func(_ context.Context, conn Conn) error {
		visited = append(visited, conn.URL)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"http://a"}, visited)
}

func TestExecute_FallsBackOnTransientError(t *testing.T) {
	p := newTestPool(t, []string{"http://a", "http://b", "http://c"})

	var visited []string
	err := p.Execute(context.Background(), func(_ context.Context, conn Conn) error {
		visited = append(visited, conn.URL)
		if conn.URL == "http://a" {
			return errors.New("503 service unavailable")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"http://a", "http://b"}, visited)
}

func TestExecute_CursorSticksToLastSuccess(t *testing.T) {
	p := newTestPool(t, []string{"http://a", "http://b", "http://c"})

	err := p.Execute(context.Background(), func(_ context.Context, conn Conn) error {
		if conn.URL == "http://a" {
			return errors.New("connection refused")
		}
		return nil
	})
	require.NoError(t, err)

	// The next operation starts at the endpoint that just succeeded.
	var visited []string
	err = p.Execute(context.Background(), func(_ context.Context, conn Conn) error {
		visited = append(visited, conn.URL)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"http://b"}, visited)
}

func TestExecute_FatalErrorReturnsImmediately(t *testing.T) {
	p := newTestPool(t, []string{"http://a", "http://b"})

	fatal := errors.New("invalid param: could not find account")
	calls := 0
	err := p.Execute(context.Background(), func(_ context.Context, conn Conn) error {
		calls++
		return fatal
	})
	require.ErrorIs(t, err, fatal)
	assert.Equal(t, 1, calls, "fatal errors must not rotate endpoints")
}

func TestExecute_ExhaustsAllPasses(t *testing.T) {
	p := newTestPool(t, []string{"http://a", "http://b"}, WithMaxRetries(3))

	sleeps := 0
	p.sleep = func(context.Context, time.Duration) error {
		sleeps++
		return nil
	}

	calls := 0
	err := p.Execute(context.Background(), func(_ context.Context, conn Conn) error {
		calls++
		return errors.New("i/o timeout")
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "all 2 endpoints failed after 3 passes")
	assert.Equal(t, 6, calls, "every endpoint is tried on every pass")
	assert.Equal(t, 2, sleeps, "one backoff between consecutive passes")
}

func TestExecute_BackoffDoubles(t *testing.T) {
	p := newTestPool(t, []string{"http://a"},
		WithMaxRetries(4),
		WithInitialDelay(100*time.Millisecond),
	)

	var delays []time.Duration
	p.sleep = func(_ context.Context, d time.Duration) error {
		delays = append(delays, d)
		return nil
	}

	err := p.Execute(context.Background(), func(_ context.Context, conn Conn) error {
		return errors.New("429 too many requests")
	})
	require.Error(t, err)
	assert.Equal(t, []time.Duration{
		100 * time.Millisecond,
		200 * time.Millisecond,
		400 * time.Millisecond,
	}, delays)
}

func TestExecute_ContextCancelAborts(t *testing.T) {
	p := newTestPool(t, []string{"http://a", "http://b"})

	ctx, cancel := context.WithCancel(context.Background())
	err := p.Execute(ctx, func(_ context.Context, conn Conn) error {
		cancel()
		return errors.New("connection reset by peer")
	})
	require.ErrorIs(t, err, context.Canceled)
}

func TestExecuteT_ReturnsValue(t *testing.T) {
	p := newTestPool(t, []string{"http://a", "http://b"})

	got, err := ExecuteT(context.Background(), p, func(_ context.Context, conn Conn) (uint64, error) {
		if conn.URL == "http://a" {
			return 0, errors.New("rate limit exceeded")
		}
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(42), got)
}

func TestTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"rate limited", errors.New("429 Too Many Requests"), true},
		{"service unavailable", errors.New("503 Service Unavailable"), true},
		{"bad gateway", fmt.Errorf("send failed: %w", errors.New("502 Bad Gateway")), true},
		{"connection refused", errors.New("dial tcp: connection refused"), true},
		{"dns failure", &net.DNSError{Err: "no such host", Name: "rpc.example.com"}, true},
		{"node behind", errors.New("RPC response error: Node is behind by 150 slots"), true},
		{"context canceled", context.Canceled, false},
		{"deadline exceeded", context.DeadlineExceeded, false},
		{"program rejection", errors.New("custom program error: 0x1"), false},
		{"bad request", errors.New("invalid param: wrong size"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Transient(tt.err))
		})
	}
}
