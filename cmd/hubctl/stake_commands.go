package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/gagliardetto/solana-go"
	"github.com/urfave/cli/v2"

	"github.com/yotlabs/hubclient/client"
)

func stakeCommand() *cli.Command {
	return &cli.Command{
		Name:      "stake",
		Usage:     "Stake tokens into the hub program",
		ArgsUsage: "AMOUNT",
		Action: func(c *cli.Context) error {
			amount, err := amountArg(c)
			if err != nil {
				return err
			}
			cl, err := buildClient(c)
			if err != nil {
				return err
			}
			signer, err := loadSigner(c)
			if err != nil {
				return err
			}

			res, err := cl.Stake(context.Background(), signer, amount)
			if err != nil {
				return fmt.Errorf("stake failed: %w", err)
			}
			return printResult(c, res)
		},
	}
}

func unstakeCommand() *cli.Command {
	return &cli.Command{
		Name:      "unstake",
		Usage:     "Withdraw staked tokens from the hub program",
		ArgsUsage: "AMOUNT",
		Action: func(c *cli.Context) error {
			amount, err := amountArg(c)
			if err != nil {
				return err
			}
			cl, err := buildClient(c)
			if err != nil {
				return err
			}
			signer, err := loadSigner(c)
			if err != nil {
				return err
			}

			res, err := cl.Unstake(context.Background(), signer, amount)
			if err != nil {
				return fmt.Errorf("unstake failed: %w", err)
			}
			return printResult(c, res)
		},
	}
}

func harvestCommand() *cli.Command {
	return &cli.Command{
		Name:  "harvest",
		Usage: "Claim accrued staking rewards",
		Action: func(c *cli.Context) error {
			cl, err := buildClient(c)
			if err != nil {
				return err
			}
			signer, err := loadSigner(c)
			if err != nil {
				return err
			}

			res, err := cl.Harvest(context.Background(), signer)
			if err != nil {
				return fmt.Errorf("harvest failed: %w", err)
			}
			return printResult(c, res)
		},
	}
}

func swapCommand() *cli.Command {
	return &cli.Command{
		Name:  "swap",
		Usage: "Swap tokens through the configured swap program",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "token-in",
				Usage:    "Input token mint address",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "token-out",
				Usage:    "Output token mint address",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "liquidity-pool",
				Usage:    "Liquidity pool account address",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "admin-fee-account",
				Usage:    "Admin fee token account address",
				Required: true,
			},
			&cli.Uint64Flag{
				Name:     "amount-in",
				Usage:    "Input amount in raw units",
				Required: true,
			},
			&cli.Uint64Flag{
				Name:     "min-amount-out",
				Usage:    "Minimum acceptable output amount in raw units",
				Required: true,
			},
		},
		Action: func(c *cli.Context) error {
			cl, err := buildClient(c)
			if err != nil {
				return err
			}
			signer, err := loadSigner(c)
			if err != nil {
				return err
			}

			params := client.SwapParams{
				AmountIn:     c.Uint64("amount-in"),
				MinAmountOut: c.Uint64("min-amount-out"),
			}
			for _, f := range []struct {
				flag string
				dst  *solana.PublicKey
			}{
				{"token-in", &params.TokenInMint},
				{"token-out", &params.TokenOutMint},
				{"liquidity-pool", &params.LiquidityPool},
				{"admin-fee-account", &params.AdminFeeAccount},
			} {
				key, err := solana.PublicKeyFromBase58(c.String(f.flag))
				if err != nil {
					return fmt.Errorf("invalid --%s: %w", f.flag, err)
				}
				*f.dst = key
			}

			res, err := cl.Swap(context.Background(), signer, params)
			if err != nil {
				return fmt.Errorf("swap failed: %w", err)
			}
			return printResult(c, res)
		},
	}
}

// amountArg parses the single positional AMOUNT argument in raw units.
func amountArg(c *cli.Context) (uint64, error) {
	if c.NArg() < 1 {
		return 0, fmt.Errorf("amount is required")
	}
	amount, err := strconv.ParseUint(c.Args().Get(0), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", c.Args().Get(0), err)
	}
	return amount, nil
}
