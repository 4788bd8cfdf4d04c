package main

import (
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/urfave/cli/v2"

	"github.com/yotlabs/hubclient/service/temporal"
)

func scheduleCommands() *cli.Command {
	return &cli.Command{
		Name:  "schedule",
		Usage: "Manage auto-harvest schedules",
		Subcommands: []*cli.Command{
			scheduleCreateCommand(),
			scheduleUpdateCommand(),
			schedulePauseCommand(),
			scheduleUnpauseCommand(),
			scheduleDeleteCommand(),
		},
	}
}

// newScheduler connects to Temporal using the global flags.
func newScheduler(c *cli.Context) (*temporal.Client, error) {
	return temporal.NewClient(
		c.String("temporal-host"),
		c.String("temporal-namespace"),
		c.String("temporal-task-queue"),
		c.Duration("min-interval"),
		newLogger(),
	)
}

// ownerArg validates the positional OWNER_ADDRESS argument.
func ownerArg(c *cli.Context) (string, error) {
	if c.NArg() < 1 {
		return "", fmt.Errorf("owner address is required")
	}
	raw := c.Args().Get(0)
	if _, err := solana.PublicKeyFromBase58(raw); err != nil {
		return "", fmt.Errorf("invalid owner address %q: %w", raw, err)
	}
	return raw, nil
}

func intervalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.DurationFlag{
			Name:    "interval",
			Aliases: []string{"i"},
			Value:   time.Hour,
			Usage:   "How often to attempt a harvest",
			EnvVars: []string{"DEFAULT_HARVEST_INTERVAL"},
		},
		&cli.DurationFlag{
			Name:    "min-interval",
			Value:   5 * time.Minute,
			Usage:   "Smallest interval the scheduler will accept",
			EnvVars: []string{"MIN_HARVEST_INTERVAL"},
		},
	}
}

func scheduleCreateCommand() *cli.Command {
	return &cli.Command{
		Name:      "create",
		Usage:     "Create an auto-harvest schedule for an owner",
		ArgsUsage: "OWNER_ADDRESS",
		Flags:     intervalFlags(),
		Action: func(c *cli.Context) error {
			owner, err := ownerArg(c)
			if err != nil {
				return err
			}
			sched, err := newScheduler(c)
			if err != nil {
				return err
			}
			defer sched.Close()

			if err := sched.CreateHarvestSchedule(c.Context, owner, c.Duration("interval")); err != nil {
				return err
			}
			fmt.Printf("Created auto-harvest schedule for %s (every %v)\n", owner, c.Duration("interval"))
			return nil
		},
	}
}

func scheduleUpdateCommand() *cli.Command {
	return &cli.Command{
		Name:      "update",
		Usage:     "Create or update an owner's schedule interval",
		ArgsUsage: "OWNER_ADDRESS",
		Flags:     intervalFlags(),
		Action: func(c *cli.Context) error {
			owner, err := ownerArg(c)
			if err != nil {
				return err
			}
			sched, err := newScheduler(c)
			if err != nil {
				return err
			}
			defer sched.Close()

			if err := sched.UpsertHarvestSchedule(c.Context, owner, c.Duration("interval")); err != nil {
				return err
			}
			fmt.Printf("Updated auto-harvest schedule for %s (every %v)\n", owner, c.Duration("interval"))
			return nil
		},
	}
}

func schedulePauseCommand() *cli.Command {
	return &cli.Command{
		Name:      "pause",
		Usage:     "Pause an owner's auto-harvest schedule",
		ArgsUsage: "OWNER_ADDRESS",
		Action: func(c *cli.Context) error {
			owner, err := ownerArg(c)
			if err != nil {
				return err
			}
			sched, err := newScheduler(c)
			if err != nil {
				return err
			}
			defer sched.Close()

			if err := sched.PauseHarvestSchedule(c.Context, owner); err != nil {
				return err
			}
			fmt.Printf("Paused auto-harvest schedule for %s\n", owner)
			return nil
		},
	}
}

func scheduleUnpauseCommand() *cli.Command {
	return &cli.Command{
		Name:      "unpause",
		Usage:     "Resume a paused auto-harvest schedule",
		ArgsUsage: "OWNER_ADDRESS",
		Action: func(c *cli.Context) error {
			owner, err := ownerArg(c)
			if err != nil {
				return err
			}
			sched, err := newScheduler(c)
			if err != nil {
				return err
			}
			defer sched.Close()

			if err := sched.UnpauseHarvestSchedule(c.Context, owner); err != nil {
				return err
			}
			fmt.Printf("Unpaused auto-harvest schedule for %s\n", owner)
			return nil
		},
	}
}

func scheduleDeleteCommand() *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Usage:     "Delete an owner's auto-harvest schedule",
		ArgsUsage: "OWNER_ADDRESS",
		Action: func(c *cli.Context) error {
			owner, err := ownerArg(c)
			if err != nil {
				return err
			}
			sched, err := newScheduler(c)
			if err != nil {
				return err
			}
			defer sched.Close()

			if err := sched.DeleteHarvestSchedule(c.Context, owner); err != nil {
				return err
			}
			fmt.Printf("Deleted auto-harvest schedule for %s\n", owner)
			return nil
		},
	}
}
