package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aretw0/openagi/pkg/persistence/middleware"
	"github.com/aretw0/openagi/pkg/ports"
	"github.com/spf13/cobra"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage shared workspaces",
	Long: `List, inspect, and remove the workspaces kept in the shared redis store (redis.addr).
Workspaces of a server without redis live in its memory only.`,
}

var sessionLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List all workspaces",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, cleanup, err := sessionStore(cmd)
		if err != nil {
			return err
		}
		defer cleanup()

		ids, err := store.List(cmd.Context())
		if err != nil {
			return fmt.Errorf("error listing workspaces: %w", err)
		}

		out := cmd.OutOrStdout()
		if len(ids) == 0 {
			fmt.Fprintln(out, "No workspaces found.")
			return nil
		}

		fmt.Fprintln(out, "Workspaces:")
		for _, id := range ids {
			fmt.Fprintln(out, "- "+id)
		}
		return nil
	},
}

var sessionInspectCmd = &cobra.Command{
	Use:   "inspect <workspace-id>",
	Short: "Print a workspace as JSON, api key redacted",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, cleanup, err := sessionStore(cmd)
		if err != nil {
			return err
		}
		defer cleanup()

		wf, err := store.Load(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("error loading workspace '%s': %w", args[0], err)
		}

		data, err := json.MarshalIndent(wf, "", "  ")
		if err != nil {
			return fmt.Errorf("error marshaling workspace: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	},
}

var sessionRmCmd = &cobra.Command{
	Use:   "rm <workspace-id>...",
	Short: "Remove one or more workspaces",
	Args: func(cmd *cobra.Command, args []string) error {
		if all, _ := cmd.Flags().GetBool("all"); all {
			return cobra.NoArgs(cmd, args)
		}
		return cobra.MinimumNArgs(1)(cmd, args)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		store, cleanup, err := sessionStore(cmd)
		if err != nil {
			return err
		}
		defer cleanup()

		ids := args
		if all, _ := cmd.Flags().GetBool("all"); all {
			if ids, err = store.List(cmd.Context()); err != nil {
				return fmt.Errorf("error listing workspaces: %w", err)
			}
		}

		out := cmd.OutOrStdout()
		var errs []error
		for _, id := range ids {
			if err := store.Delete(cmd.Context(), id); err != nil {
				errs = append(errs, fmt.Errorf("error removing '%s': %w", id, err))
				continue
			}
			fmt.Fprintf(out, "Removed workspace '%s'\n", id)
		}
		return errors.Join(errs...)
	},
}

func init() {
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(sessionLsCmd)
	sessionCmd.AddCommand(sessionInspectCmd)
	sessionCmd.AddCommand(sessionRmCmd)
	sessionRmCmd.Flags().Bool("all", false, "Remove every workspace")
}

// sessionStore opens the shared store behind a redacting view.
func sessionStore(cmd *cobra.Command) (ports.WorkspaceStore, func(), error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	logger := newLogger(cfg)

	store, shared, cleanup, err := openStore(cmd.Context(), cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	if shared == nil {
		cleanup()
		return nil, nil, errNoSharedStore
	}
	return middleware.Chain(store, middleware.NewRedactionMiddleware()), cleanup, nil
}
