package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/teemtee/fmf/internal/scan"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a new metadata tree",
	Long: `Initialize a new metadata tree in the given directory.

Creates the '.fmf/version' file which marks the tree root. Fails when
the directory already is a tree root.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		marker := filepath.Join(path, scan.MarkerDir)
		versionFile := filepath.Join(marker, "version")
		if _, err := os.Stat(versionFile); err == nil {
			return fmt.Errorf("tree root already exists: '%s'", versionFile)
		}
		if err := os.MkdirAll(marker, 0o755); err != nil {
			return fmt.Errorf("cannot create '%s': %w", marker, err)
		}
		if err := os.WriteFile(versionFile, []byte("1\n"), 0o644); err != nil {
			return fmt.Errorf("cannot write '%s': %w", versionFile, err)
		}
		absolute, err := filepath.Abs(path)
		if err != nil {
			absolute = path
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Metadata tree '%s' successfully initialized.\n", absolute)
		return nil
	},
}
