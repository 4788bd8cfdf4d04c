package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/itchyny/gojq"
	"github.com/urfave/cli/v2"

	"github.com/yotlabs/hubclient/service/rewards"
)

func rewardsCommand() *cli.Command {
	return &cli.Command{
		Name:      "rewards",
		Usage:     "Show pending rewards and harvestability for an owner",
		ArgsUsage: "OWNER_ADDRESS",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "filter",
				Aliases: []string{"f"},
				Usage:   "jq expression applied to the JSON output",
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return fmt.Errorf("owner address is required")
			}
			owner, err := solana.PublicKeyFromBase58(c.Args().Get(0))
			if err != nil {
				return fmt.Errorf("invalid owner address: %w", err)
			}

			cl, err := buildClient(c)
			if err != nil {
				return err
			}

			ctx := context.Background()
			snapshot, err := cl.StakeAccount(ctx, owner)
			if err != nil {
				return fmt.Errorf("failed to read staking account: %w", err)
			}
			state, err := cl.RateState(ctx)
			if err != nil {
				return fmt.Errorf("failed to read program state: %w", err)
			}
			canHarvest, pending, err := cl.CanHarvest(ctx, owner)
			if err != nil {
				return fmt.Errorf("failed to compute pending reward: %w", err)
			}

			out := map[string]interface{}{
				"owner":                   owner.String(),
				"staked_amount":           snapshot.StakedAmount,
				"staked_display":          rewards.ToUI(snapshot.StakedAmount, rewards.DefaultDecimals),
				"pending_reward":          pending,
				"pending_reward_display":  rewards.ToUI(pending, rewards.DefaultDecimals),
				"harvest_threshold":       state.HarvestThreshold,
				"stake_rate_basis_points": state.StakeRateBasisPoints,
				"last_harvest_time":       time.Unix(snapshot.LastHarvestTime, 0).UTC().Format(time.RFC3339),
				"can_harvest":             canHarvest,
			}

			if filter := c.String("filter"); filter != "" {
				results, err := applyJQFilter(filter, out)
				if err != nil {
					return err
				}
				for _, r := range results {
					if err := printJSON(r); err != nil {
						return err
					}
				}
				return nil
			}

			return printJSON(out)
		},
	}
}

// applyJQFilter runs a jq expression over the value and collects the results.
// The value is round-tripped through JSON so gojq sees plain maps and numbers.
func applyJQFilter(filter string, value interface{}) ([]interface{}, error) {
	query, err := gojq.Parse(filter)
	if err != nil {
		return nil, fmt.Errorf("failed to parse jq filter %q: %w", filter, err)
	}
	code, err := gojq.Compile(query)
	if err != nil {
		return nil, fmt.Errorf("failed to compile jq filter %q: %w", filter, err)
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal value for filtering: %w", err)
	}
	var input interface{}
	if err := json.Unmarshal(raw, &input); err != nil {
		return nil, fmt.Errorf("failed to unmarshal value for filtering: %w", err)
	}

	var results []interface{}
	iter := code.Run(input)
	for {
		v, ok := iter.Next()
		if !ok {
			break
		}
		if err, isErr := v.(error); isErr {
			return nil, fmt.Errorf("jq filter error: %w", err)
		}
		results = append(results, v)
	}
	return results, nil
}

func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	fmt.Println(string(data))
	return nil
}
