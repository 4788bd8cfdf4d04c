package temporal

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	solanago "github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	natspkg "github.com/yotlabs/hubclient/service/nats"
	"github.com/yotlabs/hubclient/service/pipeline"
)

// mockHubClient implements HubClientInterface with scriptable results.
type mockHubClient struct {
	canHarvest bool
	pending    uint64
	checkErr   error

	harvestResult *pipeline.Result
	harvestErr    error
	harvestCalls  int
}

func (m *mockHubClient) CanHarvest(ctx context.Context, owner solanago.PublicKey) (bool, uint64, error) {
	return m.canHarvest, m.pending, m.checkErr
}

func (m *mockHubClient) Harvest(ctx context.Context, signer pipeline.Signer) (*pipeline.Result, error) {
	m.harvestCalls++
	return m.harvestResult, m.harvestErr
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestCheckHarvestable(t *testing.T) {
	owner := solanago.NewWallet().PublicKey()

	t.Run("above threshold", func(t *testing.T) {
		hub := &mockHubClient{canHarvest: true, pending: 12_500_000}
		a := NewActivities(hub, nil, nil, nil, discardLogger())

		result, err := a.CheckHarvestable(context.Background(), CheckHarvestableInput{Owner: owner.String()})
		require.NoError(t, err)
		assert.True(t, result.CanHarvest)
		assert.Equal(t, uint64(12_500_000), result.PendingReward)
	})

	t.Run("below threshold", func(t *testing.T) {
		hub := &mockHubClient{canHarvest: false, pending: 500}
		a := NewActivities(hub, nil, nil, nil, discardLogger())

		result, err := a.CheckHarvestable(context.Background(), CheckHarvestableInput{Owner: owner.String()})
		require.NoError(t, err)
		assert.False(t, result.CanHarvest)
		assert.Equal(t, uint64(500), result.PendingReward)
	})

	t.Run("invalid owner address", func(t *testing.T) {
		a := NewActivities(&mockHubClient{}, nil, nil, nil, discardLogger())

		_, err := a.CheckHarvestable(context.Background(), CheckHarvestableInput{Owner: "not-a-key"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid owner address")
	})

	t.Run("read failure propagates", func(t *testing.T) {
		hub := &mockHubClient{checkErr: errors.New("rpc unavailable")}
		a := NewActivities(hub, nil, nil, nil, discardLogger())

		_, err := a.CheckHarvestable(context.Background(), CheckHarvestableInput{Owner: owner.String()})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "rpc unavailable")
	})
}

func TestSubmitHarvest(t *testing.T) {
	wallet := solanago.NewWallet()
	signer, err := pipeline.NewLocalSigner(wallet.PrivateKey)
	require.NoError(t, err)

	t.Run("success", func(t *testing.T) {
		var sig solanago.Signature
		sig[0] = 7
		hub := &mockHubClient{
			harvestResult: &pipeline.Result{Signature: sig, Slot: 42, Status: pipeline.StatusConfirmed},
		}
		a := NewActivities(hub, signer, nil, nil, discardLogger())

		result, err := a.SubmitHarvest(context.Background(), SubmitHarvestInput{Owner: signer.PublicKey().String()})
		require.NoError(t, err)
		assert.Equal(t, sig.String(), result.Signature)
		assert.Equal(t, uint64(42), result.Slot)
		assert.Equal(t, 1, hub.harvestCalls)
	})

	t.Run("owner mismatch", func(t *testing.T) {
		hub := &mockHubClient{}
		a := NewActivities(hub, signer, nil, nil, discardLogger())

		other := solanago.NewWallet().PublicKey()
		_, err := a.SubmitHarvest(context.Background(), SubmitHarvestInput{Owner: other.String()})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "does not match worker signer")
		assert.Zero(t, hub.harvestCalls)
	})

	t.Run("no signer configured", func(t *testing.T) {
		a := NewActivities(&mockHubClient{}, nil, nil, nil, discardLogger())

		_, err := a.SubmitHarvest(context.Background(), SubmitHarvestInput{Owner: wallet.PublicKey().String()})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no harvest signer configured")
	})

	t.Run("submission failure propagates", func(t *testing.T) {
		hub := &mockHubClient{harvestErr: errors.New("simulation rejected")}
		a := NewActivities(hub, signer, nil, nil, discardLogger())

		_, err := a.SubmitHarvest(context.Background(), SubmitHarvestInput{Owner: signer.PublicKey().String()})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "simulation rejected")
	})
}

func TestRecordHarvestOutcome(t *testing.T) {
	owner := solanago.NewWallet().PublicKey().String()

	t.Run("publishes harvested event", func(t *testing.T) {
		pub := natspkg.NewMockPublisher()
		a := NewActivities(&mockHubClient{}, nil, pub, nil, discardLogger())

		sig := "sig1"
		slot := uint64(1000)
		result, err := a.RecordHarvestOutcome(context.Background(), RecordHarvestOutcomeInput{
			Owner:         owner,
			PendingReward: 12_500_000,
			Signature:     &sig,
			Slot:          &slot,
		})
		require.NoError(t, err)
		assert.True(t, result.Published)

		events := pub.GetPublishedEvents()
		require.Len(t, events, 1)
		assert.Equal(t, "auto_harvest", events[0].Operation)
		assert.Equal(t, "HARVESTED", events[0].Status)
		assert.Equal(t, "sig1", events[0].Signature)
		require.NotNil(t, events[0].Slot)
		assert.Equal(t, int64(1000), *events[0].Slot)
	})

	t.Run("publishes skipped event", func(t *testing.T) {
		pub := natspkg.NewMockPublisher()
		a := NewActivities(&mockHubClient{}, nil, pub, nil, discardLogger())

		result, err := a.RecordHarvestOutcome(context.Background(), RecordHarvestOutcomeInput{
			Owner:   owner,
			Skipped: true,
		})
		require.NoError(t, err)
		assert.True(t, result.Published)

		events := pub.GetPublishedEvents()
		require.Len(t, events, 1)
		assert.Equal(t, "SKIPPED", events[0].Status)
		assert.Empty(t, events[0].Signature)
	})

	t.Run("nil publisher is a no-op", func(t *testing.T) {
		a := NewActivities(&mockHubClient{}, nil, nil, nil, discardLogger())

		result, err := a.RecordHarvestOutcome(context.Background(), RecordHarvestOutcomeInput{Owner: owner})
		require.NoError(t, err)
		assert.False(t, result.Published)
	})

	t.Run("publish failure propagates", func(t *testing.T) {
		pub := natspkg.NewMockPublisher()
		pub.SetPublishError(errors.New("nats down"))
		a := NewActivities(&mockHubClient{}, nil, pub, nil, discardLogger())

		_, err := a.RecordHarvestOutcome(context.Background(), RecordHarvestOutcomeInput{Owner: owner})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "nats down")
	})
}

func TestMockScheduler(t *testing.T) {
	s := NewMockScheduler()
	ctx := context.Background()
	owner := "owner1"

	require.NoError(t, s.CreateHarvestSchedule(ctx, owner, 0))
	assert.True(t, s.ScheduleExists(owner))
	assert.Error(t, s.CreateHarvestSchedule(ctx, owner, 0), "duplicate create must fail")

	require.NoError(t, s.PauseHarvestSchedule(ctx, owner))
	assert.True(t, s.IsPaused(owner))
	require.NoError(t, s.UnpauseHarvestSchedule(ctx, owner))
	assert.False(t, s.IsPaused(owner))

	require.NoError(t, s.DeleteHarvestSchedule(ctx, owner))
	assert.False(t, s.ScheduleExists(owner))
	assert.Error(t, s.DeleteHarvestSchedule(ctx, owner))
}
