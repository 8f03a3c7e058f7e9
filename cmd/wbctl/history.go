package main

import (
	"fmt"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/bekirdag/workbench/internal/history"
	"github.com/bekirdag/workbench/internal/settings"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recently opened workspaces",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := settings.Load(configDir)
		if err != nil {
			return err
		}
		store, err := history.Open(configDir)
		if err != nil {
			return err
		}
		defer store.Close()
		recent, err := store.Recent(historyLimit)
		if err != nil {
			return err
		}
		pinned := map[string]bool{}
		for _, p := range cfg.Pinned {
			pinned[filepath.Clean(p)] = true
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		for _, ws := range recent {
			mark := " "
			if pinned[ws.Path] {
				mark = "*"
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", mark, ws.Label, ws.Path, ws.OpenedAt.Local().Format(time.DateTime))
		}
		return tw.Flush()
	},
}

var historyRunsCmd = &cobra.Command{
	Use:   "runs [workspace]",
	Short: "List the latest command runs of a workspace",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := workspaceArg(args)
		if err != nil {
			return err
		}
		store, err := history.Open(configDir)
		if err != nil {
			return err
		}
		defer store.Close()
		runs, err := store.Runs(root, historyLimit)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		for _, run := range runs {
			code := "-"
			if run.ExitCode != nil {
				code = fmt.Sprint(*run.ExitCode)
			}
			took := "-"
			if !run.StartedAt.IsZero() && !run.EndedAt.IsZero() {
				took = run.EndedAt.Sub(run.StartedAt).Round(time.Millisecond).String()
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
				run.QueuedAt.Local().Format(time.DateTime), run.Kind, run.Status, code, took, run.Error)
		}
		return tw.Flush()
	},
}

var historyForgetCmd = &cobra.Command{
	Use:   "forget <workspace>...",
	Short: "Drop workspaces and their runs from the history",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		paths := make([]string, 0, len(args))
		for _, arg := range args {
			abs, err := filepath.Abs(arg)
			if err != nil {
				return err
			}
			paths = append(paths, abs)
		}
		store, err := history.Open(configDir)
		if err != nil {
			return err
		}
		defer store.Close()
		return store.RemoveAll(paths)
	},
}

var pinCmd = &cobra.Command{
	Use:   "pin [workspace]",
	Short: "Pin a workspace in the history list",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return updatePins(args, (*settings.Settings).Pin)
	},
}

var unpinCmd = &cobra.Command{
	Use:   "unpin [workspace]",
	Short: "Unpin a workspace",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return updatePins(args, (*settings.Settings).Unpin)
	},
}

func init() {
	historyCmd.PersistentFlags().IntVarP(&historyLimit, "limit", "n", 20, "Maximum number of rows")
	historyCmd.AddCommand(historyRunsCmd, historyForgetCmd)
}

func updatePins(args []string, apply func(*settings.Settings, string)) error {
	root, err := workspaceArg(args)
	if err != nil {
		return err
	}
	cfg, path, err := settings.Load(configDir)
	if err != nil {
		return err
	}
	apply(cfg, root)
	return settings.Save(cfg, path)
}
