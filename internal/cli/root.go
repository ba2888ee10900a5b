// Package cli implements the fmf command line interface.
package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/teemtee/fmf/internal/logger"
	"github.com/teemtee/fmf/internal/version"
)

// ErrUsage marks command line usage errors, reported with exit code 2.
var ErrUsage = errors.New("usage error")

var (
	// Global flags
	verbose bool
	debug   bool
	path    string

	// Global logger, initialized in PersistentPreRun
	log logger.Logger
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "fmf",
	Short: "Flexible Metadata Format",
	Long: `fmf explores metadata trees: YAML files scattered across a directory
hierarchy, combined through inheritance and merge operators into a
tree of named nodes.

Examples:
  fmf init                          # Turn the current directory into a tree root
  fmf ls                            # List node names
  fmf show --name /tests            # Show attributes of matching nodes
  fmf ls --filter "tier: 1"         # Filter by attribute value
  fmf clean                         # Remove the cache directory`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Always writes to stderr to avoid interfering with stdout
		level := logger.LevelWarn
		if verbose {
			level = logger.LevelInfo
		}
		if debug {
			level = logger.LevelDebug
		}
		log = logger.New(os.Stderr, level)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if showVersion, _ := cmd.Flags().GetBool("version"); showVersion {
			fmt.Fprintln(cmd.OutOrStdout(), version.Full())
			return nil
		}
		return cmd.Help()
	},
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main().
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"Show progress output (applies to all commands)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false,
		"Show debugging output (applies to all commands)")
	rootCmd.PersistentFlags().StringVar(&path, "path", ".",
		"Path to explore (defaults to the current directory)")

	rootCmd.Flags().BoolP("version", "V", false, "Print version information")

	// Usage errors (unknown flags and the like) exit with code 2.
	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return fmt.Errorf("%w: %v", ErrUsage, err)
	})

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(lsCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(cleanCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), version.Full())
	},
}
