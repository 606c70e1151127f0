package cmd

import (
	"errors"
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/FrostyAceHook/stitch/pkg/fsio"
	"github.com/FrostyAceHook/stitch/pkg/registry"
	"github.com/FrostyAceHook/stitch/pkg/stitch"
)

var stitchKeep bool

// stitchCmd represents the stitch command
var stitchCmd = &cobra.Command{
	Use:   "stitch [path]...",
	Short: "Stitch section files back into their original files",
	Long: `Stitch section files back into the original files they were split from.
Arguments may be section files or directories holding them; with no
arguments the current directory is stitched. Unrelated files are skipped
and each complete group of sections becomes one output file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			args = []string{"."}
		}

		confirmer := newConfirmer()
		guard := fsio.NewGuard(confirmer)

		candidates, err := registry.ExpandCandidates(args)
		if err != nil {
			return err
		}

		scanner := registry.NewScanner(registry.ScannerConfig{Logger: logger})
		result := scanner.Scan(candidates)
		for _, invalid := range result.Invalid {
			if !confirmer.Confirm(fmt.Sprintf("invalid section file %q, ignore?", invalid.Path)) {
				return fmt.Errorf("invalid section file %q: %w", invalid.Path, invalid.Err)
			}
		}

		keep := cfg.KeepSections
		if cmd.Flags().Changed("keep-sections") {
			keep = stitchKeep
		}
		writer := stitch.NewWriter(stitch.WriterConfig{
			KeepSections: keep,
			Logger:       logger,
		}, guard)

		names := make([]string, 0, len(result.Groups))
		for name := range result.Groups {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			resolved, err := result.Groups[name].Resolve()
			if err != nil {
				if !confirmer.Confirm(fmt.Sprintf("cannot stitch %q (%v), ignore?", name, err)) {
					return err
				}
				continue
			}
			for _, excess := range resolved.Excess {
				logger.WithFields(logrus.Fields{
					"name": name,
					"path": excess,
				}).Warn("ignoring unneeded section")
			}
			if _, err := writer.StitchGroup(resolved); err != nil {
				// A section vanishing mid-stitch fails that file only.
				if errors.Is(err, stitch.ErrSectionUnavailable) {
					logger.WithError(err).WithField("name", name).Error("stitch failed")
					continue
				}
				return err
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(stitchCmd)
	stitchCmd.Flags().BoolVarP(&stitchKeep, "keep-sections", "k", false, "keep the section files after stitching")
}
