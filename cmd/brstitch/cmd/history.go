package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/FrostyAceHook/stitch/pkg/catalog"
)

// historyCmd represents the history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded splits, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.CatalogDir == "" {
			return fmt.Errorf("no catalog_dir configured; set it in the config file to record splits")
		}
		cat, err := catalog.Open(cfg.CatalogDir)
		if err != nil {
			return err
		}
		defer cat.Close()

		manifests, err := cat.List()
		if err != nil {
			return err
		}
		if flagQuiet {
			return nil
		}
		for _, m := range manifests {
			fmt.Fprintf(cmd.OutOrStdout(), "%s  %-40s  sections=%d  size=%d  compressed=%t\n",
				m.CreatedAt.Format(time.RFC3339), m.Name, m.Sections, m.SectionSize, m.Compressed)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
}
