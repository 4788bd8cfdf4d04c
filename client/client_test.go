package client

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yotlabs/hubclient/service/instructions"
	"github.com/yotlabs/hubclient/service/pipeline"
	"github.com/yotlabs/hubclient/service/pool"
	solanaclient "github.com/yotlabs/hubclient/service/solana"
)

var testStakingProgram = solana.MustPublicKeyFromBase58("SMddVoXz2hF9jjecS5A1gZLG8TJHo34MEZRTrY7h4Nw")

// fakeLedger serves canned account data and happily confirms everything
// that is sent to it.
type fakeLedger struct {
	mu        sync.Mutex
	accounts  map[solana.PublicKey][]byte
	sendCalls int
	lastTx    *solana.Transaction
}

func (f *fakeLedger) GetLatestBlockhash(context.Context, rpc.CommitmentType) (*rpc.GetLatestBlockhashResult, error) {
	var hash solana.Hash
	hash[0] = 1
	return &rpc.GetLatestBlockhashResult{
		Value: &rpc.LatestBlockhashResult{Blockhash: hash, LastValidBlockHeight: 1000},
	}, nil
}

func (f *fakeLedger) SimulateTransactionWithOpts(context.Context, *solana.Transaction, *rpc.SimulateTransactionOpts) (*rpc.SimulateTransactionResponse, error) {
	return &rpc.SimulateTransactionResponse{Value: &rpc.SimulateTransactionResult{}}, nil
}

func (f *fakeLedger) SendTransactionWithOpts(_ context.Context, tx *solana.Transaction, _ rpc.TransactionOpts) (solana.Signature, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sendCalls++
	f.lastTx = tx
	if len(tx.Signatures) > 0 {
		return tx.Signatures[0], nil
	}
	var sig solana.Signature
	sig[0] = byte(f.sendCalls)
	return sig, nil
}

func (f *fakeLedger) GetSignatureStatuses(_ context.Context, _ bool, sigs ...solana.Signature) (*rpc.GetSignatureStatusesResult, error) {
	values := make([]*rpc.SignatureStatusesResult, len(sigs))
	for i := range sigs {
		values[i] = &rpc.SignatureStatusesResult{Slot: 7, ConfirmationStatus: rpc.ConfirmationStatusConfirmed}
	}
	return &rpc.GetSignatureStatusesResult{Value: values}, nil
}

func (f *fakeLedger) GetBalance(context.Context, solana.PublicKey, rpc.CommitmentType) (*rpc.GetBalanceResult, error) {
	return &rpc.GetBalanceResult{Value: 1_000_000_000}, nil
}

func (f *fakeLedger) GetAccountInfoWithOpts(_ context.Context, account solana.PublicKey, _ *rpc.GetAccountInfoOpts) (*rpc.GetAccountInfoResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.accounts[account]
	if !ok {
		return &rpc.GetAccountInfoResult{}, nil
	}
	var d rpc.DataBytesOrJSON
	payload := fmt.Sprintf(`["%s","base64"]`, base64.StdEncoding.EncodeToString(data))
	if err := json.Unmarshal([]byte(payload), &d); err != nil {
		return nil, err
	}
	return &rpc.GetAccountInfoResult{Value: &rpc.Account{Data: &d}}, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fixture struct {
	client *Client
	ledger *fakeLedger
	signer *pipeline.LocalSigner
	state  *solanaclient.ProgramRateState
	now    time.Time
}

// newFixture wires a client over a fake ledger seeded with a rate state and
// one staking account for the signer.
func newFixture(t *testing.T, stakedAmount uint64, elapsed time.Duration, threshold uint64, opts ...Option) *fixture {
	t.Helper()

	wallet := solana.NewWallet()
	signer, err := pipeline.NewLocalSigner(wallet.PrivateKey)
	require.NoError(t, err)

	now := time.Unix(1_700_000_000, 0)
	state := &solanaclient.ProgramRateState{
		Admin:                solana.NewWallet().PublicKey(),
		StakeMint:            solana.NewWallet().PublicKey(),
		RewardMint:           solana.NewWallet().PublicKey(),
		StakeRateBasisPoints: 12000,
		HarvestThreshold:     threshold,
	}
	snapshot := &solanaclient.StakeAccountSnapshot{
		Owner:           signer.PublicKey(),
		StakedAmount:    stakedAmount,
		StartTimestamp:  now.Add(-2 * elapsed).Unix(),
		LastHarvestTime: now.Add(-elapsed).Unix(),
	}

	stateAddr, _, err := instructions.FindStateAddress(testStakingProgram)
	require.NoError(t, err)
	stakingAddr, _, err := instructions.FindStakingAccountAddress(testStakingProgram, signer.PublicKey())
	require.NoError(t, err)

	ledger := &fakeLedger{accounts: map[solana.PublicKey][]byte{
		stateAddr:   solanaclient.EncodeRateState(state),
		stakingAddr: solanaclient.EncodeStakeAccount(snapshot),
	}}

	p, err := pool.New(
		[]pool.Endpoint{{URL: "http://fake", Commitment: rpc.CommitmentConfirmed}},
		pool.WithDialer(func(string) solanaclient.LedgerClient { return ledger }),
		pool.WithLogger(testLogger()),
		pool.WithMaxRetries(1),
	)
	require.NoError(t, err)

	submitter := pipeline.NewSubmitter(p,
		pipeline.WithLogger(testLogger()),
		pipeline.WithConfirmTimeout(500*time.Millisecond),
		pipeline.WithConfirmInterval(time.Millisecond),
	)

	opts = append(opts, WithLogger(testLogger()))
	c, err := New(p, submitter, testStakingProgram, opts...)
	require.NoError(t, err)
	c.now = func() time.Time { return now }

	return &fixture{client: c, ledger: ledger, signer: signer, state: state, now: now}
}

func TestRateState(t *testing.T) {
	fx := newFixture(t, 0, 0, 1_000_000)

	state, err := fx.client.RateState(context.Background())
	require.NoError(t, err)
	assert.Equal(t, fx.state.Admin, state.Admin)
	assert.Equal(t, uint64(12000), state.StakeRateBasisPoints)
	assert.Equal(t, uint64(1_000_000), state.HarvestThreshold)
}

func TestStakeAccount_NotFound(t *testing.T) {
	fx := newFixture(t, 0, 0, 0)

	_, err := fx.client.StakeAccount(context.Background(), solana.NewWallet().PublicKey())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestPendingReward(t *testing.T) {
	// 1000 tokens at 9 decimals, 12000 basis points, 1000 seconds:
	// 1e12 * (0.00000125/100) * 1000 = 12_500_000 raw units.
	fx := newFixture(t, 1_000_000_000_000, 1000*time.Second, 1_000_000)

	pending, err := fx.client.PendingReward(context.Background(), fx.signer.PublicKey())
	require.NoError(t, err)
	assert.Equal(t, uint64(12_500_000), pending)
}

func TestCanHarvest_ThresholdGate(t *testing.T) {
	t.Run("above threshold", func(t *testing.T) {
		fx := newFixture(t, 1_000_000_000_000, 1000*time.Second, 12_500_000)
		ok, pending, err := fx.client.CanHarvest(context.Background(), fx.signer.PublicKey())
		require.NoError(t, err)
		assert.True(t, ok, "pending equal to threshold is harvestable")
		assert.Equal(t, uint64(12_500_000), pending)
	})

	t.Run("below threshold", func(t *testing.T) {
		fx := newFixture(t, 1_000_000_000_000, 1000*time.Second, 12_500_001)
		ok, _, err := fx.client.CanHarvest(context.Background(), fx.signer.PublicKey())
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestStake_Submits(t *testing.T) {
	fx := newFixture(t, 0, 0, 1_000_000)

	res, err := fx.client.Stake(context.Background(), fx.signer, 5_000_000_000)
	require.NoError(t, err)
	assert.Equal(t, pipeline.StatusConfirmed, res.Status)
	assert.Equal(t, 1, fx.ledger.sendCalls)
}

func TestStake_ZeroAmountFailsLocally(t *testing.T) {
	fx := newFixture(t, 0, 0, 1_000_000)

	_, err := fx.client.Stake(context.Background(), fx.signer, 0)
	require.Error(t, err)
	assert.Equal(t, pipeline.KindValidation, pipeline.KindOf(err))
	assert.Zero(t, fx.ledger.sendCalls)
}

func TestUnstake_ExceedsStakedBalance(t *testing.T) {
	fx := newFixture(t, 1_000, 0, 1_000_000)

	_, err := fx.client.Unstake(context.Background(), fx.signer, 2_000)
	require.Error(t, err)
	assert.Equal(t, pipeline.KindValidation, pipeline.KindOf(err))
	assert.Zero(t, fx.ledger.sendCalls)
}

func TestUnstake_Submits(t *testing.T) {
	fx := newFixture(t, 10_000, 0, 1_000_000)

	res, err := fx.client.Unstake(context.Background(), fx.signer, 5_000)
	require.NoError(t, err)
	assert.Equal(t, pipeline.StatusConfirmed, res.Status)
}

func TestHarvest_BelowThresholdFailsWithoutSubmitting(t *testing.T) {
	fx := newFixture(t, 1_000_000_000_000, 1000*time.Second, 12_500_001)

	_, err := fx.client.Harvest(context.Background(), fx.signer)
	require.Error(t, err)
	assert.Equal(t, pipeline.KindValidation, pipeline.KindOf(err))
	assert.Contains(t, err.Error(), "below harvest threshold")
	assert.Zero(t, fx.ledger.sendCalls, "a doomed harvest must not pay a fee")
}

func TestHarvest_AtThresholdSubmits(t *testing.T) {
	fx := newFixture(t, 1_000_000_000_000, 1000*time.Second, 12_500_000)

	res, err := fx.client.Harvest(context.Background(), fx.signer)
	require.NoError(t, err)
	assert.Equal(t, pipeline.StatusConfirmed, res.Status)
	assert.Equal(t, 1, fx.ledger.sendCalls)
}

func TestUpdateParameters_NonAdminRejected(t *testing.T) {
	fx := newFixture(t, 0, 0, 1_000_000)

	_, err := fx.client.UpdateParameters(context.Background(), fx.signer, 24000, 2_000_000)
	require.Error(t, err)
	assert.Equal(t, pipeline.KindUnauthorized, pipeline.KindOf(err))
	assert.Zero(t, fx.ledger.sendCalls)
}

func TestUpdateParameters_AdminSubmits(t *testing.T) {
	fx := newFixture(t, 0, 0, 1_000_000)

	// Reseed the state so the signer is the admin.
	fx.state.Admin = fx.signer.PublicKey()
	stateAddr, _, err := instructions.FindStateAddress(testStakingProgram)
	require.NoError(t, err)
	fx.ledger.accounts[stateAddr] = solanaclient.EncodeRateState(fx.state)

	res, err := fx.client.UpdateParameters(context.Background(), fx.signer, 24000, 2_000_000)
	require.NoError(t, err)
	assert.Equal(t, pipeline.StatusConfirmed, res.Status)
}

func TestSwap_RequiresConfiguredProgram(t *testing.T) {
	fx := newFixture(t, 0, 0, 1_000_000)

	_, err := fx.client.Swap(context.Background(), fx.signer, SwapParams{
		TokenInMint:     solana.NewWallet().PublicKey(),
		TokenOutMint:    solana.NewWallet().PublicKey(),
		LiquidityPool:   solana.NewWallet().PublicKey(),
		AdminFeeAccount: solana.NewWallet().PublicKey(),
		AmountIn:        1_000_000,
		MinAmountOut:    990_000,
	})
	require.Error(t, err)
	assert.Equal(t, pipeline.KindValidation, pipeline.KindOf(err))
	assert.Contains(t, err.Error(), "no swap program configured")
}

func TestSwap_Submits(t *testing.T) {
	swapProgram := solana.NewWallet().PublicKey()
	fx := newFixture(t, 0, 0, 1_000_000, WithSwapProgram(swapProgram))

	res, err := fx.client.Swap(context.Background(), fx.signer, SwapParams{
		TokenInMint:     solana.NewWallet().PublicKey(),
		TokenOutMint:    solana.NewWallet().PublicKey(),
		LiquidityPool:   solana.NewWallet().PublicKey(),
		AdminFeeAccount: solana.NewWallet().PublicKey(),
		AmountIn:        1_000_000,
		MinAmountOut:    990_000,
	})
	require.NoError(t, err)
	assert.Equal(t, pipeline.StatusConfirmed, res.Status)
}

func TestNew_Validation(t *testing.T) {
	fx := newFixture(t, 0, 0, 0)

	_, err := New(nil, nil, testStakingProgram)
	require.Error(t, err)

	_, err = New(fx.client.pool, fx.client.submitter, solana.PublicKey{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "staking program ID is zero")
}
