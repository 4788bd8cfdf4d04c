// Package client is the high-level surface integrators import. It composes
// the endpoint pool, the submission pipeline, and the instruction encoder
// into staking and swap operations against the hub programs.
package client

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/yotlabs/hubclient/service/instructions"
	"github.com/yotlabs/hubclient/service/pipeline"
	"github.com/yotlabs/hubclient/service/pool"
	"github.com/yotlabs/hubclient/service/rewards"
	solanaclient "github.com/yotlabs/hubclient/service/solana"
)

// Client drives staking and swap operations end to end: it reads program
// state fresh from the ledger for every decision, encodes instructions, and
// submits them through the pipeline.
type Client struct {
	pool           *pool.Pool
	submitter      *pipeline.Submitter
	stakingProgram solana.PublicKey
	swapProgram    solana.PublicKey
	logger         *slog.Logger

	// now is swapped out in tests for deterministic reward math.
	now func() time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithSwapProgram enables swap operations against the given program.
func WithSwapProgram(programID solana.PublicKey) Option {
	return func(c *Client) { c.swapProgram = programID }
}

// WithLogger sets the client's logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New creates a Client for the given staking program.
func New(p *pool.Pool, submitter *pipeline.Submitter, stakingProgram solana.PublicKey, opts ...Option) (*Client, error) {
	if p == nil {
		return nil, fmt.Errorf("pool is nil")
	}
	if submitter == nil {
		return nil, fmt.Errorf("submitter is nil")
	}
	if stakingProgram.IsZero() {
		return nil, fmt.Errorf("staking program ID is zero")
	}

	c := &Client{
		pool:           p,
		submitter:      submitter,
		stakingProgram: stakingProgram,
		logger:         slog.Default(),
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// RateState reads the program's global parameters. State is never cached;
// every call hits the ledger.
func (c *Client) RateState(ctx context.Context) (*solanaclient.ProgramRateState, error) {
	stateAddr, _, err := instructions.FindStateAddress(c.stakingProgram)
	if err != nil {
		return nil, fmt.Errorf("failed to derive state address: %w", err)
	}
	data, err := c.accountData(ctx, stateAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch program state: %w", err)
	}
	return solanaclient.ParseRateState(data)
}

// StakeAccount reads an owner's staking account.
func (c *Client) StakeAccount(ctx context.Context, owner solana.PublicKey) (*solanaclient.StakeAccountSnapshot, error) {
	addr, _, err := instructions.FindStakingAccountAddress(c.stakingProgram, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to derive staking account address: %w", err)
	}
	data, err := c.accountData(ctx, addr)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch staking account: %w", err)
	}
	return solanaclient.ParseStakeAccount(data)
}

// PendingReward computes the owner's accrued, unharvested reward as of now.
func (c *Client) PendingReward(ctx context.Context, owner solana.PublicKey) (uint64, error) {
	snapshot, err := c.StakeAccount(ctx, owner)
	if err != nil {
		return 0, err
	}
	state, err := c.RateState(ctx)
	if err != nil {
		return 0, err
	}
	return rewards.PendingReward(snapshot, state.StakeRateBasisPoints, c.now()), nil
}

// CanHarvest reports whether the owner's pending reward has reached the
// program's harvest threshold, and returns the pending amount.
func (c *Client) CanHarvest(ctx context.Context, owner solana.PublicKey) (bool, uint64, error) {
	snapshot, err := c.StakeAccount(ctx, owner)
	if err != nil {
		return false, 0, err
	}
	state, err := c.RateState(ctx)
	if err != nil {
		return false, 0, err
	}
	now := c.now()
	pending := rewards.PendingReward(snapshot, state.StakeRateBasisPoints, now)
	return rewards.CanHarvest(snapshot, state.StakeRateBasisPoints, state.HarvestThreshold, now), pending, nil
}

// Stake moves amount raw units of the stake token from the signer's token
// account into the program vault.
func (c *Client) Stake(ctx context.Context, signer pipeline.Signer, amount uint64) (*pipeline.Result, error) {
	state, err := c.RateState(ctx)
	if err != nil {
		return nil, err
	}
	owner := signer.PublicKey()

	accounts, err := c.stakeAccounts(owner, state.StakeMint)
	if err != nil {
		return nil, err
	}
	inst, err := instructions.NewStake(c.stakingProgram, accounts, amount)
	if err != nil {
		return nil, &pipeline.SubmissionError{Kind: pipeline.KindValidation, Message: "invalid stake request", Err: err}
	}

	return c.submitter.Submit(ctx, signer, pipeline.Request{
		Operation:    "stake",
		Instructions: []solana.Instruction{inst},
	})
}

// Unstake returns amount raw units of the stake token from the program
// vault to the signer's token account.
func (c *Client) Unstake(ctx context.Context, signer pipeline.Signer, amount uint64) (*pipeline.Result, error) {
	state, err := c.RateState(ctx)
	if err != nil {
		return nil, err
	}
	owner := signer.PublicKey()

	snapshot, err := c.StakeAccount(ctx, owner)
	if err != nil {
		return nil, err
	}
	if amount > snapshot.StakedAmount {
		return nil, &pipeline.SubmissionError{
			Kind:    pipeline.KindValidation,
			Message: fmt.Sprintf("unstake amount %d exceeds staked balance %d", amount, snapshot.StakedAmount),
		}
	}

	base, err := c.stakeAccounts(owner, state.StakeMint)
	if err != nil {
		return nil, err
	}
	authority, _, err := instructions.FindAuthorityAddress(c.stakingProgram)
	if err != nil {
		return nil, fmt.Errorf("failed to derive program authority: %w", err)
	}
	inst, err := instructions.NewUnstake(c.stakingProgram, instructions.UnstakeAccounts{
		Owner:             base.Owner,
		OwnerStakeToken:   base.OwnerStakeToken,
		ProgramStakeToken: base.ProgramStakeToken,
		StakingAccount:    base.StakingAccount,
		ProgramState:      base.ProgramState,
		ProgramAuthority:  authority,
	}, amount)
	if err != nil {
		return nil, &pipeline.SubmissionError{Kind: pipeline.KindValidation, Message: "invalid unstake request", Err: err}
	}

	return c.submitter.Submit(ctx, signer, pipeline.Request{
		Operation:    "unstake",
		Instructions: []solana.Instruction{inst},
	})
}

// Harvest claims the signer's accrued reward. The threshold is checked
// locally first: a below-threshold harvest would be rejected by the program
// anyway, and failing before submission saves the fee.
func (c *Client) Harvest(ctx context.Context, signer pipeline.Signer) (*pipeline.Result, error) {
	owner := signer.PublicKey()

	state, err := c.RateState(ctx)
	if err != nil {
		return nil, err
	}
	snapshot, err := c.StakeAccount(ctx, owner)
	if err != nil {
		return nil, err
	}
	now := c.now()
	pending := rewards.PendingReward(snapshot, state.StakeRateBasisPoints, now)
	if !rewards.CanHarvest(snapshot, state.StakeRateBasisPoints, state.HarvestThreshold, now) {
		return nil, &pipeline.SubmissionError{
			Kind:    pipeline.KindValidation,
			Message: fmt.Sprintf("pending reward %d below harvest threshold %d", pending, state.HarvestThreshold),
		}
	}

	authority, _, err := instructions.FindAuthorityAddress(c.stakingProgram)
	if err != nil {
		return nil, fmt.Errorf("failed to derive program authority: %w", err)
	}
	stakingAccount, _, err := instructions.FindStakingAccountAddress(c.stakingProgram, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to derive staking account address: %w", err)
	}
	stateAddr, _, err := instructions.FindStateAddress(c.stakingProgram)
	if err != nil {
		return nil, fmt.Errorf("failed to derive state address: %w", err)
	}
	ownerReward, _, err := solana.FindAssociatedTokenAddress(owner, state.RewardMint)
	if err != nil {
		return nil, fmt.Errorf("failed to derive owner reward token account: %w", err)
	}
	programReward, _, err := solana.FindAssociatedTokenAddress(authority, state.RewardMint)
	if err != nil {
		return nil, fmt.Errorf("failed to derive program reward token account: %w", err)
	}

	inst, err := instructions.NewHarvest(c.stakingProgram, instructions.HarvestAccounts{
		Owner:              owner,
		OwnerRewardToken:   ownerReward,
		ProgramRewardToken: programReward,
		StakingAccount:     stakingAccount,
		ProgramState:       stateAddr,
		ProgramAuthority:   authority,
	})
	if err != nil {
		return nil, &pipeline.SubmissionError{Kind: pipeline.KindValidation, Message: "invalid harvest request", Err: err}
	}

	c.logger.InfoContext(ctx, "submitting harvest",
		"owner", owner,
		"pending_reward", pending,
	)
	return c.submitter.Submit(ctx, signer, pipeline.Request{
		Operation:    "harvest",
		Instructions: []solana.Instruction{inst},
	})
}

// UpdateParameters replaces the program's stake rate and harvest threshold.
// Only the admin recorded in the program state may call this; the check is
// mirrored locally so a non-admin fails without paying a fee.
func (c *Client) UpdateParameters(ctx context.Context, signer pipeline.Signer, rateBasisPoints, harvestThreshold uint64) (*pipeline.Result, error) {
	state, err := c.RateState(ctx)
	if err != nil {
		return nil, err
	}
	if !signer.PublicKey().Equals(state.Admin) {
		return nil, &pipeline.SubmissionError{
			Kind:    pipeline.KindUnauthorized,
			Message: fmt.Sprintf("signer %s is not the program admin", signer.PublicKey()),
		}
	}

	stateAddr, _, err := instructions.FindStateAddress(c.stakingProgram)
	if err != nil {
		return nil, fmt.Errorf("failed to derive state address: %w", err)
	}
	inst, err := instructions.NewUpdateParameters(c.stakingProgram, signer.PublicKey(), stateAddr, rateBasisPoints, harvestThreshold)
	if err != nil {
		return nil, &pipeline.SubmissionError{Kind: pipeline.KindValidation, Message: "invalid parameter update", Err: err}
	}

	return c.submitter.Submit(ctx, signer, pipeline.Request{
		Operation:    "update_parameters",
		Instructions: []solana.Instruction{inst},
	})
}

// SwapParams describes a token swap.
type SwapParams struct {
	TokenInMint     solana.PublicKey
	TokenOutMint    solana.PublicKey
	LiquidityPool   solana.PublicKey
	AdminFeeAccount solana.PublicKey
	AmountIn        uint64
	MinAmountOut    uint64
}

// Swap exchanges AmountIn raw units of the input token for at least
// MinAmountOut of the output token through the swap program.
func (c *Client) Swap(ctx context.Context, signer pipeline.Signer, params SwapParams) (*pipeline.Result, error) {
	if c.swapProgram.IsZero() {
		return nil, &pipeline.SubmissionError{
			Kind:    pipeline.KindValidation,
			Message: "no swap program configured",
		}
	}
	state, err := c.RateState(ctx)
	if err != nil {
		return nil, err
	}
	user := signer.PublicKey()

	userIn, _, err := solana.FindAssociatedTokenAddress(user, params.TokenInMint)
	if err != nil {
		return nil, fmt.Errorf("failed to derive input token account: %w", err)
	}
	userOut, _, err := solana.FindAssociatedTokenAddress(user, params.TokenOutMint)
	if err != nil {
		return nil, fmt.Errorf("failed to derive output token account: %w", err)
	}
	userReward, _, err := solana.FindAssociatedTokenAddress(user, state.RewardMint)
	if err != nil {
		return nil, fmt.Errorf("failed to derive reward token account: %w", err)
	}
	swapState, _, err := instructions.FindStateAddress(c.swapProgram)
	if err != nil {
		return nil, fmt.Errorf("failed to derive swap state address: %w", err)
	}

	inst, err := instructions.NewSwap(c.swapProgram, instructions.SwapAccounts{
		User:            user,
		UserTokenIn:     userIn,
		UserTokenOut:    userOut,
		UserRewardToken: userReward,
		ProgramState:    swapState,
		LiquidityPool:   params.LiquidityPool,
		AdminFeeAccount: params.AdminFeeAccount,
	}, params.AmountIn, params.MinAmountOut)
	if err != nil {
		return nil, &pipeline.SubmissionError{Kind: pipeline.KindValidation, Message: "invalid swap request", Err: err}
	}

	return c.submitter.Submit(ctx, signer, pipeline.Request{
		Operation:    "swap",
		Instructions: []solana.Instruction{inst},
	})
}

// stakeAccounts derives the address set shared by stake and unstake.
func (c *Client) stakeAccounts(owner, stakeMint solana.PublicKey) (instructions.StakeAccounts, error) {
	authority, _, err := instructions.FindAuthorityAddress(c.stakingProgram)
	if err != nil {
		return instructions.StakeAccounts{}, fmt.Errorf("failed to derive program authority: %w", err)
	}
	stakingAccount, _, err := instructions.FindStakingAccountAddress(c.stakingProgram, owner)
	if err != nil {
		return instructions.StakeAccounts{}, fmt.Errorf("failed to derive staking account address: %w", err)
	}
	stateAddr, _, err := instructions.FindStateAddress(c.stakingProgram)
	if err != nil {
		return instructions.StakeAccounts{}, fmt.Errorf("failed to derive state address: %w", err)
	}
	ownerToken, _, err := solana.FindAssociatedTokenAddress(owner, stakeMint)
	if err != nil {
		return instructions.StakeAccounts{}, fmt.Errorf("failed to derive owner stake token account: %w", err)
	}
	programToken, _, err := solana.FindAssociatedTokenAddress(authority, stakeMint)
	if err != nil {
		return instructions.StakeAccounts{}, fmt.Errorf("failed to derive program stake token account: %w", err)
	}

	return instructions.StakeAccounts{
		Owner:             owner,
		OwnerStakeToken:   ownerToken,
		ProgramStakeToken: programToken,
		StakingAccount:    stakingAccount,
		ProgramState:      stateAddr,
	}, nil
}

// accountData fetches raw account bytes at the endpoint's commitment.
func (c *Client) accountData(ctx context.Context, addr solana.PublicKey) ([]byte, error) {
	return pool.ExecuteT(ctx, c.pool, func(ctx context.Context, conn pool.Conn) ([]byte, error) {
		out, err := conn.Client.GetAccountInfoWithOpts(ctx, addr, &rpc.GetAccountInfoOpts{
			Commitment: conn.Commitment,
		})
		if err != nil {
			return nil, err
		}
		if out == nil || out.Value == nil {
			return nil, fmt.Errorf("account %s not found", addr)
		}
		return out.Value.Data.GetBinary(), nil
	})
}
