package cli

import (
	"github.com/spf13/cobra"

	"github.com/teemtee/fmf/internal/cache"
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove the cache directory",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := cache.Directory()
		if err != nil {
			return err
		}
		if err := cache.Clean(); err != nil {
			return err
		}
		log.Infof("Cache directory removed: %s", dir)
		return nil
	},
}
