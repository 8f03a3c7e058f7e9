// Command wbctl drives a workspace without the terminal UI.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bekirdag/workbench/internal/logging"
	"github.com/bekirdag/workbench/internal/settings"
)

var (
	configDir string
	logLevel  string
	verbose   bool
)

var rootCmd = &cobra.Command{
	Use:           "wbctl",
	Short:         "Build, clean, run and inspect workbench workspaces from the shell",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		output := filepath.Join(configDir, "wbctl.log")
		if verbose {
			output = "stderr"
		}
		return logging.Init(logging.Config{Level: logLevel, Format: "console", OutputPath: output})
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logging.Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", settings.Dir(), "Directory holding settings, history and logs")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log to stderr instead of the log file")

	rootCmd.AddCommand(buildCmd, cleanCmd, runCmd, treeCmd, historyCmd, pinCmd, unpinCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		logging.L().Debug("command failed", zap.Error(err))
		fmt.Fprintln(os.Stderr, "wbctl:", err)
		if code, ok := exitCodeOf(err); ok {
			os.Exit(code)
		}
		os.Exit(1)
	}
}

// workspaceArg resolves the optional workspace argument.
func workspaceArg(args []string) (string, error) {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}
	return filepath.Abs(dir)
}
