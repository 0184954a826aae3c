// Command optimize runs the website optimization pipeline from the
// command line: zip in, optimized zip out, report on stdout.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/Marwanelaks/optimize"
)

var rootCmd = &cobra.Command{
	Use:   "optimize <input> <output.zip>",
	Short: "Optimize a website source tree",
	Long: `Optimize a website source tree for size and performance.

The input is a zip archive, or a directory when --dir is set. Every file
is dispatched to a per-category transform (HTML/CSS/SCSS/JS minification,
image re-encoding); files that fail to transform pass through unchanged
and are flagged in the report.`,
	Args: cobra.ExactArgs(2),
	RunE: run,
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.Flags()
	flags.Bool("dir", false, "treat input as a directory instead of a zip archive")
	flags.Int("concurrency", 0, "worker pool size (default: number of CPUs)")
	flags.Int("jpeg-quality", optimize.DefaultJPEGQuality, "JPEG re-encode quality (1-100)")
	flags.Bool("aggressive", false, "enable rewrites beyond minification (lazy loading hints)")
	flags.Int64("max-archive-size", optimize.DefaultReadOptions.MaxTotalSize, "uncompressed size ceiling in bytes")
	flags.Duration("file-timeout", 30*time.Second, "per-file transform time budget")
	flags.Duration("batch-timeout", 10*time.Minute, "whole-batch wall-clock budget")
	flags.String("report", "", "write the report JSON to this file instead of stdout")
	flags.Bool("verbose", false, "enable debug logging")

	if err := viper.BindPFlags(flags); err != nil {
		panic(err)
	}
}

func initConfig() {
	viper.SetEnvPrefix("OPTIMIZE")
	viper.AutomaticEnv()
}

func run(cmd *cobra.Command, args []string) error {
	input, output := args[0], args[1]

	logger, err := buildLogger(viper.GetBool("verbose"))
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	readOpts := optimize.DefaultReadOptions
	readOpts.MaxTotalSize = viper.GetInt64("max-archive-size")

	p := optimize.New(
		optimize.WithConcurrency(viper.GetInt("concurrency")),
		optimize.WithJPEGQuality(viper.GetInt("jpeg-quality")),
		optimize.WithAggressive(viper.GetBool("aggressive")),
		optimize.WithReadOptions(readOpts),
		optimize.WithFileTimeout(viper.GetDuration("file-timeout")),
		optimize.WithBatchTimeout(viper.GetDuration("batch-timeout")),
		optimize.WithLogger(logger),
	)

	var (
		out    []byte
		report optimize.Report
	)
	if viper.GetBool("dir") {
		out, report, err = p.OptimizeTree(cmd.Context(), os.DirFS(input))
	} else {
		var payload []byte
		payload, err = os.ReadFile(input)
		if err != nil {
			return err
		}
		out, report, err = p.OptimizeArchive(cmd.Context(), payload)
	}
	if err != nil {
		return describeFailure(err)
	}

	if err := os.WriteFile(output, out, 0o644); err != nil {
		return err
	}

	return writeReport(report, viper.GetString("report"))
}

func writeReport(report optimize.Report, path string) error {
	b, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	if path == "" {
		fmt.Println(string(b))
		return nil
	}
	return os.WriteFile(path, append(b, '\n'), 0o644)
}

// describeFailure prefixes batch-level errors with a user-facing hint.
func describeFailure(err error) error {
	switch {
	case errors.Is(err, optimize.ErrArchiveTooLarge):
		return fmt.Errorf("input rejected, raise --max-archive-size if intended: %w", err)
	case errors.Is(err, optimize.ErrBatchTimeout):
		return fmt.Errorf("batch aborted, raise --batch-timeout if intended: %w", err)
	default:
		return err
	}
}

func buildLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	return cfg.Build()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
