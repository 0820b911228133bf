package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/loykin/hostbot/internal/auth"
	"github.com/loykin/hostbot/internal/config"
)

// AllowFlags holds flags for allowlist management commands.
type AllowFlags struct {
	UserID int64
}

func createAllowCommand(globalFlags *GlobalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "allow",
		Short: "Manage the chat user allowlist",
		Long: `Manage which chat users may issue commands. The allowlist lives in the
same SQLite database the daemon reads; admins configured in the TOML file are
always allowed and need no entry here.

Examples:
  hostbot allow add --user=123456789 --config=config.toml
  hostbot allow remove --user=123456789 --config=config.toml
  hostbot allow list --config=config.toml`,
	}
	cmd.AddCommand(
		createAllowAddCommand(globalFlags),
		createAllowRemoveCommand(globalFlags),
		createAllowListCommand(globalFlags),
	)
	return cmd
}

func openAllowlist(configPath string) (*auth.Allowlist, error) {
	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return nil, fmt.Errorf("error loading config: %w", err)
		}
		cfg = loaded
	}
	return auth.Open(cfg.Auth.Path, cfg.Auth.Admins)
}

func createAllowAddCommand(globalFlags *GlobalFlags) *cobra.Command {
	flags := &AllowFlags{}
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Allow a chat user",
		RunE: func(cmd *cobra.Command, args []string) error {
			allow, err := openAllowlist(globalFlags.ConfigPath)
			if err != nil {
				return err
			}
			defer func() { _ = allow.Close() }()
			if err := allow.Add(context.Background(), flags.UserID); err != nil {
				return err
			}
			fmt.Printf("Allowed user %d\n", flags.UserID)
			return nil
		},
	}
	cmd.Flags().Int64Var(&flags.UserID, "user", 0, "chat user ID (required)")
	if err := cmd.MarkFlagRequired("user"); err != nil {
		panic(err)
	}
	return cmd
}

func createAllowRemoveCommand(globalFlags *GlobalFlags) *cobra.Command {
	flags := &AllowFlags{}
	cmd := &cobra.Command{
		Use:   "remove",
		Short: "Remove a chat user from the allowlist",
		RunE: func(cmd *cobra.Command, args []string) error {
			allow, err := openAllowlist(globalFlags.ConfigPath)
			if err != nil {
				return err
			}
			defer func() { _ = allow.Close() }()
			if err := allow.Remove(context.Background(), flags.UserID); err != nil {
				return err
			}
			fmt.Printf("Removed user %d\n", flags.UserID)
			return nil
		},
	}
	cmd.Flags().Int64Var(&flags.UserID, "user", 0, "chat user ID (required)")
	if err := cmd.MarkFlagRequired("user"); err != nil {
		panic(err)
	}
	return cmd
}

func createAllowListCommand(globalFlags *GlobalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List allowed chat users",
		RunE: func(cmd *cobra.Command, args []string) error {
			allow, err := openAllowlist(globalFlags.ConfigPath)
			if err != nil {
				return err
			}
			defer func() { _ = allow.Close() }()
			users, err := allow.List(context.Background())
			if err != nil {
				return err
			}
			if len(users) == 0 {
				fmt.Println("No allowed users")
				return nil
			}
			for _, id := range users {
				fmt.Println(id)
			}
			return nil
		},
	}
	return cmd
}
