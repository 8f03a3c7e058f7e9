package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bekirdag/workbench/internal/logging"
	"github.com/bekirdag/workbench/internal/workspace"
)

var (
	treeDepth int
	treeAll   bool
)

var treeCmd = &cobra.Command{
	Use:   "tree [workspace]",
	Short: "Print the workspace tree",
	Long: `Print the workspace tree. By default only folders that are expanded in
the workspace metadata are descended into; --all lists everything down to
--depth levels.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := workspaceArg(args)
		if err != nil {
			return err
		}
		ws := workspace.NewModel(workspace.Options{
			Config: workspace.YAMLStore{},
			Logger: logging.L(),
		})
		if _, err := ws.Load(root); err != nil {
			return err
		}
		printTree(cmd.OutOrStdout(), ws, treeAll, treeDepth)
		return nil
	},
}

func init() {
	treeCmd.Flags().IntVar(&treeDepth, "depth", 0, "Maximum depth to print, 0 for no limit")
	treeCmd.Flags().BoolVarP(&treeAll, "all", "a", false, "Descend into collapsed folders too")
}

func printTree(w io.Writer, ws *workspace.Model, all bool, maxDepth int) {
	fmt.Fprintln(w, ws.RootPath())
	var walk func(id workspace.NodeID, depth int)
	walk = func(id workspace.NodeID, depth int) {
		for _, child := range ws.Children(id) {
			name := child.Name
			if child.IsFolder() {
				name += "/"
			}
			fmt.Fprintf(w, "%s%s\n", strings.Repeat("  ", depth), name)
			if !child.IsFolder() || (maxDepth > 0 && depth+1 >= maxDepth) {
				continue
			}
			if all || child.Expanded {
				walk(child.ID, depth+1)
			}
		}
	}
	walk(ws.Root().ID, 0)
}
