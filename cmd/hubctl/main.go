package main

import (
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/urfave/cli/v2"

	"github.com/yotlabs/hubclient/client"
	"github.com/yotlabs/hubclient/service/pipeline"
	"github.com/yotlabs/hubclient/service/pool"
)

var (
	// Version information (set via ldflags during build)
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	app := &cli.App{
		Name:  "hubctl",
		Usage: "Staking hub client CLI",
		Description: `A command-line tool for staking, harvesting rewards, and swapping
through the hub programs.

Transactions are simulated before broadcast and retried across the
configured RPC endpoints.`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		Commands: []*cli.Command{
			stakeCommand(),
			unstakeCommand(),
			harvestCommand(),
			rewardsCommand(),
			swapCommand(),
			scheduleCommands(),
		},
		// Global flags available to all commands
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "rpc-endpoints",
				Usage:   "Comma-separated RPC endpoints, each 'url' or 'url|commitment'",
				EnvVars: []string{"SOLANA_RPC_ENDPOINTS"},
			},
			&cli.StringFlag{
				Name:    "staking-program",
				Usage:   "Staking program ID",
				EnvVars: []string{"STAKING_PROGRAM_ID"},
			},
			&cli.StringFlag{
				Name:    "swap-program",
				Usage:   "Swap program ID (optional)",
				EnvVars: []string{"SWAP_PROGRAM_ID"},
			},
			&cli.StringFlag{
				Name:    "keypair",
				Aliases: []string{"k"},
				Usage:   "Path to the signing keypair file",
				EnvVars: []string{"HUBCLIENT_KEYPAIR_PATH"},
			},
			&cli.StringFlag{
				Name:    "temporal-host",
				Usage:   "Temporal server address",
				EnvVars: []string{"TEMPORAL_HOST"},
				Value:   "localhost:7233",
			},
			&cli.StringFlag{
				Name:    "temporal-namespace",
				Usage:   "Temporal namespace",
				EnvVars: []string{"TEMPORAL_NAMESPACE"},
				Value:   "default",
			},
			&cli.StringFlag{
				Name:    "temporal-task-queue",
				Usage:   "Temporal task queue for harvest workflows",
				EnvVars: []string{"TEMPORAL_TASK_QUEUE"},
				Value:   "hubclient-harvest",
			},
			&cli.BoolFlag{
				Name:    "json",
				Aliases: []string{"j"},
				Usage:   "Output in JSON format",
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// newLogger returns a logger that only writes errors to stderr so command
// output stays clean.
func newLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
}

// parseEndpointFlag parses the --rpc-endpoints value. Each entry is a URL
// optionally followed by "|commitment".
func parseEndpointFlag(raw string) ([]pool.Endpoint, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, fmt.Errorf("--rpc-endpoints is required")
	}

	var endpoints []pool.Endpoint
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		url, commitment := entry, string(rpc.CommitmentConfirmed)
		if i := strings.IndexByte(entry, '|'); i >= 0 {
			url, commitment = entry[:i], strings.TrimSpace(entry[i+1:])
		}
		switch commitment {
		case "processed", "confirmed", "finalized":
		default:
			return nil, fmt.Errorf("endpoint %q has invalid commitment %q", entry, commitment)
		}
		endpoints = append(endpoints, pool.Endpoint{URL: url, Commitment: rpc.CommitmentType(commitment)})
	}
	if len(endpoints) == 0 {
		return nil, fmt.Errorf("--rpc-endpoints is required")
	}
	return endpoints, nil
}

// buildClient wires a pool, submitter, and hub client from the global flags.
func buildClient(c *cli.Context) (*client.Client, error) {
	logger := newLogger()

	endpoints, err := parseEndpointFlag(c.String("rpc-endpoints"))
	if err != nil {
		return nil, err
	}

	stakingProgram, err := solana.PublicKeyFromBase58(c.String("staking-program"))
	if err != nil {
		return nil, fmt.Errorf("invalid --staking-program: %w", err)
	}

	p, err := pool.New(endpoints, pool.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("failed to build endpoint pool: %w", err)
	}

	submitter := pipeline.NewSubmitter(p, pipeline.WithLogger(logger))

	opts := []client.Option{client.WithLogger(logger)}
	if raw := c.String("swap-program"); raw != "" {
		swapProgram, err := solana.PublicKeyFromBase58(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid --swap-program: %w", err)
		}
		opts = append(opts, client.WithSwapProgram(swapProgram))
	}

	return client.New(p, submitter, stakingProgram, opts...)
}

// loadSigner loads the keypair named by --keypair.
func loadSigner(c *cli.Context) (*pipeline.LocalSigner, error) {
	path := c.String("keypair")
	if path == "" {
		return nil, fmt.Errorf("--keypair is required for this command")
	}
	signer, err := pipeline.LocalSignerFromFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load keypair from %s: %w", path, err)
	}
	return signer, nil
}

func printResult(c *cli.Context, res *pipeline.Result) error {
	if c.Bool("json") {
		return printJSON(map[string]interface{}{
			"signature": res.Signature.String(),
			"slot":      res.Slot,
			"status":    string(res.Status),
		})
	}
	fmt.Printf("Signature: %s\n", res.Signature)
	fmt.Printf("Slot:      %d\n", res.Slot)
	fmt.Printf("Status:    %s\n", res.Status)
	return nil
}
