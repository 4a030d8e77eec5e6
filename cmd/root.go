package cmd

import (
	"os"
	"path/filepath"

	"github.com/Shimi9999/bmschart"
	"github.com/Shimi9999/bmschart/library"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	cacheDir  string
	encodings []string
	timing    string
	debug     bool
)

var rootCmd = &cobra.Command{
	Use:   "bmschart",
	Short: "BMS chart decoder and library scanner",
	Long: `bmschart decodes BMS family charts (.bms, .bme, .bml, .pms) and keeps a
cached catalogue of every chart under a library folder.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		l, err := newLogger(debug || os.Getenv("DEBUG") != "")
		if err != nil {
			return err
		}
		logger = l
		return nil
	},
}

func Execute() {
	defer func() { _ = logger.Sync() }()
	cobra.CheckErr(rootCmd.Execute())
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cacheDir, "cache-dir", defaultCacheDir(), "directory holding the library cache documents")
	rootCmd.PersistentFlags().StringSliceVar(&encodings, "encodings", bmschart.DefaultEncodings, "text encodings to try, in order")
	rootCmd.PersistentFlags().StringVar(&timing, "timing", bmschart.TimingCumulative.String(), "timing mode: cumulative or reference")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "log debug output in development format")
}

func defaultCacheDir() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return ".bmschart"
	}
	return filepath.Join(dir, "bmschart")
}

var logger = zap.NewNop()

// newLogger writes info and above to stderr, or everything in the
// development format when debug is set.
func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	config := zap.NewProductionConfig()
	config.Encoding = "console"
	config.DisableStacktrace = true
	return config.Build()
}

func decodeOptions() (bmschart.DecodeOptions, error) {
	opts := bmschart.DefaultDecodeOptions()
	opts.Encodings = encodings
	mode, ok := bmschart.ParseTimingMode(timing)
	if !ok {
		return opts, errors.Errorf("unknown timing mode %q", timing)
	}
	opts.Timing = mode
	return opts, nil
}

func scanConfig() library.Config {
	config := library.DefaultConfig()
	config.Encodings = encodings
	config.Logger = logger
	return config
}

// openStore loads the cached library of root. A missing or unreadable cache
// only means starting from an empty library.
func openStore(root string) (*library.Store, string, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, "", err
	}
	store := library.NewStore(cacheDir)
	if err := store.Open(abs); err != nil && !os.IsNotExist(errors.Cause(err)) {
		logger.Warn("ignoring library cache", zap.String("root", abs), zap.Error(err))
	}
	return store, abs, nil
}
