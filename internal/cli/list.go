package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/teemtee/fmf"
)

// listOptions carries the selection flags shared by ls and show.
type listOptions struct {
	names      []string
	filters    []string
	conditions []string
	keys       []string
	whole      bool
	format     string
	values     []string
}

var (
	lsOptions   listOptions
	showOptions listOptions
)

func addListFlags(cmd *cobra.Command, opts *listOptions) {
	cmd.Flags().StringArrayVarP(&opts.names, "name", "n", nil,
		"Node name regular expression (can be used multiple times)")
	cmd.Flags().StringArrayVarP(&opts.filters, "filter", "f", nil,
		"Filter expression, e.g. 'tier: 1 & tag: core' (can be used multiple times)")
	cmd.Flags().StringArrayVarP(&opts.conditions, "condition", "c", nil,
		"Attribute condition, e.g. 'data.tier == 1' (can be used multiple times)")
	cmd.Flags().StringArrayVarP(&opts.keys, "key", "k", nil,
		"Required attribute key (can be used multiple times)")
	cmd.Flags().BoolVarP(&opts.whole, "whole", "w", false,
		"Include branch nodes without the select flag")
	cmd.Flags().StringVar(&opts.format, "format", "",
		"Custom output format with {i} placeholders bound to --value expressions")
	cmd.Flags().StringArrayVar(&opts.values, "value", nil,
		"Accessor expression for --format, e.g. 'name' or 'data.test'")
}

var lsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List names of available nodes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runList(cmd, &lsOptions, false)
	},
}

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show metadata of available nodes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runList(cmd, &showOptions, true)
	},
}

func init() {
	addListFlags(lsCmd, &lsOptions)
	addListFlags(showCmd, &showOptions)
}

func runList(cmd *cobra.Command, opts *listOptions, showData bool) error {
	tree, err := fmf.NewTree(cmd.Context(), fmf.TreeOptions{
		Path:   path,
		Logger: log,
	})
	if err != nil {
		return err
	}

	conditions := make([]func(*fmf.Node) (bool, error), 0, len(opts.conditions))
	for _, condition := range opts.conditions {
		predicate, err := parseCondition(condition)
		if err != nil {
			return err
		}
		conditions = append(conditions, predicate)
	}

	nodes, err := tree.Prune(fmf.PruneOptions{
		Whole:      opts.whole,
		Names:      opts.names,
		Keys:       opts.keys,
		Filters:    opts.filters,
		Conditions: conditions,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, node := range nodes {
		if opts.format != "" {
			line, err := expandFormat(node, opts.format, opts.values)
			if err != nil {
				return err
			}
			fmt.Fprint(out, line)
			continue
		}
		fmt.Fprintln(out, node.Name())
		if showData {
			printData(cmd, node)
		}
	}
	return nil
}

var keyColor = color.New(color.FgGreen)

// printData renders node attributes indented below the name, keys in
// lexicographic order.
func printData(cmd *cobra.Command, node *fmf.Node) {
	out := cmd.OutOrStdout()
	data := node.Data()
	keys := data.Keys()
	sort.Strings(keys)
	for _, key := range keys {
		value, _ := data.Get(key)
		rendered := fmf.FormatValue(value)
		if strings.Contains(rendered, "\n") {
			rendered = "\n        " + strings.ReplaceAll(
				strings.TrimRight(rendered, "\n"), "\n", "\n        ")
		}
		fmt.Fprintf(out, "    %s: %s\n", keyColor.Sprint(key), rendered)
	}
}
