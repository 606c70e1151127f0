package cmd

import (
	"github.com/spf13/cobra"

	"github.com/FrostyAceHook/stitch/pkg/catalog"
	"github.com/FrostyAceHook/stitch/pkg/config"
	"github.com/FrostyAceHook/stitch/pkg/fsio"
	"github.com/FrostyAceHook/stitch/pkg/split"
)

var (
	splitSize     string
	splitNest     bool
	splitReplace  bool
	splitCompress bool
)

// splitCmd represents the split command
var splitCmd = &cobra.Command{
	Use:   "split <path>...",
	Short: "Split each given file into section files",
	Long: `Split each given file into section files bounded by the maximum section
size. Sections are written to the current directory, or each into its own
directory with --nest.

Example:
  brstitch split -x 8MB video.mkv`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		size := cfg.SectionSize
		if splitSize != "" {
			size = splitSize
		}
		sectionSize, err := config.ParseSize(size)
		if err != nil {
			return err
		}

		compress := cfg.Compress
		if cmd.Flags().Changed("compress") {
			compress = splitCompress
		}
		nest := cfg.Nest
		if cmd.Flags().Changed("nest") {
			nest = splitNest
		}

		guard := fsio.NewGuard(newConfirmer())
		writer, err := split.NewWriter(split.WriterConfig{
			SectionSize:    sectionSize,
			Compress:       compress,
			Nest:           nest,
			DeleteOriginal: splitReplace,
			Logger:         logger,
		}, guard)
		if err != nil {
			return err
		}

		var cat *catalog.Catalog
		if cfg.CatalogDir != "" {
			cat, err = catalog.Open(cfg.CatalogDir)
			if err != nil {
				logger.WithError(err).Warn("split history catalog unavailable")
			} else {
				defer cat.Close()
			}
		}

		for _, path := range args {
			result, err := writer.SplitFile(path)
			if err != nil {
				return err
			}
			if result == nil {
				// Missing input, ignored.
				continue
			}
			if cat == nil {
				continue
			}
			_, err = cat.Record(catalog.Manifest{
				Name:        result.Name,
				Sections:    result.Count,
				SectionSize: sectionSize,
				Compressed:  result.Compressed,
			})
			if err != nil {
				logger.WithError(err).Warn("failed to record split in catalog")
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(splitCmd)
	splitCmd.Flags().StringVarP(&splitSize, "size", "x", "", "maximum size of the sections (defaults to 8MB)")
	splitCmd.Flags().BoolVarP(&splitNest, "nest", "n", false, "place the sections of each file into a separate directory")
	splitCmd.Flags().BoolVarP(&splitReplace, "replace", "r", false, "delete the original file after splitting")
	splitCmd.Flags().BoolVarP(&splitCompress, "compress", "c", true, "compress section payloads")
}
