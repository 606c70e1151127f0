package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/FrostyAceHook/stitch/pkg/config"
	"github.com/FrostyAceHook/stitch/pkg/fsio"
)

var (
	flagYes    bool
	flagQuiet  bool
	flagConfig string

	cfg    *config.Config
	logger *logrus.Logger
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "brstitch",
	Short: "Split files into bounded sections and stitch them back",
	Long: `brstitch splits files into self-describing section files bounded by a
maximum size, and stitches section files back into the original file byte
for byte, regardless of the order they are found in. Section files carry
the .brs extension.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg = config.DefaultConfig()
		path := flagConfig
		if path == "" && config.ConfigExists(config.DefaultConfigPath()) {
			path = config.DefaultConfigPath()
		}
		if path != "" {
			loaded, err := config.LoadConfig(path)
			if err != nil {
				return err
			}
			cfg = loaded
		}
		logger = newLogger()
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&flagYes, "yes", "y", false, "answer yes to every prompt")
	rootCmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "don't print to console")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "path to a config file")
}

func newLogger() *logrus.Logger {
	l := logrus.New()
	if flagQuiet {
		l.SetOutput(io.Discard)
		return l
	}
	level, err := logrus.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)
	return l
}

func newConfirmer() *fsio.Confirmer {
	policy := fsio.PolicyAsk
	if flagYes {
		policy = fsio.PolicyAssumeYes
	}
	return fsio.NewConfirmer(policy, askStdin)
}

// askStdin poses a y/n/a prompt on the terminal.
func askStdin(prompt string) fsio.Answer {
	reader := bufio.NewReader(os.Stdin)
	for {
		fmt.Printf("%s (y/n/a): ", prompt)
		line, err := reader.ReadString('\n')
		if err != nil {
			return fsio.No
		}
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "":
			continue
		case "y":
			return fsio.Yes
		case "a":
			return fsio.Always
		default:
			fmt.Println("Canceled.")
			return fsio.No
		}
	}
}
