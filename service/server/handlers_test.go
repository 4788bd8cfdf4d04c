package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yotlabs/hubclient/service/db"
)

const (
	testWallet    = "4Nd1mYvK6K8VVp5sMXzvXh4jrzaN1Vq2BYYzUNvWzNLo"
	testSignature = "5j7s6NiJS3JAkvgkoc18WVAsiSaci2pxB2A6ueCJP4tprA2TFg9wSyTLeYouxPBJEMzJinENTkpA52YStRW5Dia7"
)

// mockStore implements Store with canned data.
type mockStore struct {
	submissions map[string]*db.Submission
	byWallet    map[string][]*db.Submission
	refunds     map[string][]*db.RefundRecord
	totals      map[string]int64
}

func (m *mockStore) GetSubmission(ctx context.Context, signature string) (*db.Submission, error) {
	sub, ok := m.submissions[signature]
	if !ok {
		return nil, db.ErrNotFound
	}
	return sub, nil
}

func (m *mockStore) ListSubmissionsByWallet(ctx context.Context, wallet string, limit int32) ([]*db.Submission, error) {
	subs := m.byWallet[wallet]
	if int32(len(subs)) > limit {
		subs = subs[:limit]
	}
	return subs, nil
}

func (m *mockStore) ListRefundsByRecipient(ctx context.Context, recipient string, limit int32) ([]*db.RefundRecord, error) {
	return m.refunds[recipient], nil
}

func (m *mockStore) SumRefundsByRecipient(ctx context.Context, recipient string) (int64, error) {
	return m.totals[recipient], nil
}

func newTestServer(store Store) *httptest.Server {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := New(":0", store, nil, nil, logger)
	return httptest.NewServer(s.Handler())
}

func seededStore() *mockStore {
	sub := &db.Submission{
		Signature: testSignature,
		Wallet:    testWallet,
		Operation: "harvest",
		Status:    "CONFIRMED",
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	return &mockStore{
		submissions: map[string]*db.Submission{testSignature: sub},
		byWallet:    map[string][]*db.Submission{testWallet: {sub}},
		refunds: map[string][]*db.RefundRecord{testWallet: {
			{ID: 1, Signature: testSignature, Recipient: testWallet, Lamports: 6000, Reason: "stake"},
		}},
		totals: map[string]int64{testWallet: 6000},
	}
}

func TestGetSubmission(t *testing.T) {
	srv := newTestServer(seededStore())
	defer srv.Close()

	t.Run("found", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/api/v1/submissions/" + testSignature)
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var sub db.Submission
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&sub))
		assert.Equal(t, testSignature, sub.Signature)
		assert.Equal(t, "harvest", sub.Operation)
		assert.Equal(t, "CONFIRMED", sub.Status)
	})

	t.Run("not found", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/api/v1/submissions/" + testWallet)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("invalid signature", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/api/v1/submissions/not-base58!!")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestListSubmissions(t *testing.T) {
	srv := newTestServer(seededStore())
	defer srv.Close()

	t.Run("lists wallet submissions", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/api/v1/wallets/" + testWallet + "/submissions")
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var body struct {
			Wallet      string           `json:"wallet"`
			Submissions []*db.Submission `json:"submissions"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, testWallet, body.Wallet)
		require.Len(t, body.Submissions, 1)
		assert.Equal(t, testSignature, body.Submissions[0].Signature)
	})

	t.Run("invalid limit", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/api/v1/wallets/" + testWallet + "/submissions?limit=zero")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("limit is applied", func(t *testing.T) {
		store := seededStore()
		store.byWallet[testWallet] = append(store.byWallet[testWallet], &db.Submission{
			Signature: testWallet, Wallet: testWallet, Operation: "stake", Status: "SENT",
		})
		srv := newTestServer(store)
		defer srv.Close()

		resp, err := http.Get(srv.URL + "/api/v1/wallets/" + testWallet + "/submissions?limit=1")
		require.NoError(t, err)
		defer resp.Body.Close()

		var body struct {
			Submissions []*db.Submission `json:"submissions"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Len(t, body.Submissions, 1)
	})
}

func TestListRefunds(t *testing.T) {
	srv := newTestServer(seededStore())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/v1/wallets/" + testWallet + "/refunds")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Wallet        string             `json:"wallet"`
		Refunds       []*db.RefundRecord `json:"refunds"`
		TotalLamports int64              `json:"total_lamports"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, testWallet, body.Wallet)
	require.Len(t, body.Refunds, 1)
	assert.Equal(t, int64(6000), body.Refunds[0].Lamports)
	assert.Equal(t, int64(6000), body.TotalLamports)
}

func TestHealthAndCORS(t *testing.T) {
	srv := newTestServer(seededStore())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))

	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/api/v1/wallets/"+testWallet+"/refunds", nil)
	require.NoError(t, err)
	preflight, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer preflight.Body.Close()
	assert.Equal(t, http.StatusNoContent, preflight.StatusCode)
}

func TestValidateAddress(t *testing.T) {
	tests := []struct {
		name    string
		address string
		wantErr bool
	}{
		{"valid wallet", testWallet, false},
		{"valid signature", testSignature, false},
		{"empty", "", true},
		{"invalid characters", "hello world", true},
		{"base58 excluded characters", "0OIl", true},
		{"too long", string(make([]byte, 200)), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateAddress(tt.address)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
