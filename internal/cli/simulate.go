package cli

import (
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/shardsim/internal/depgraph"
	"github.com/roach88/shardsim/internal/formula"
	"github.com/roach88/shardsim/internal/metadata"
	"github.com/roach88/shardsim/internal/sim"
)

// SimulateOptions holds flags for the simulate command.
type SimulateOptions struct {
	*RootOptions

	// Data source
	Input    string        // local JSON file; takes precedence over the feed
	Database string        // SQLite cache path ("" disables the cache)
	FeedURL  string        // upstream feed URL
	TTL      time.Duration // cache freshness bound
	Validate bool          // schema-check records before normalization

	// Simulation configuration
	Profile      string // YAML profile; flags override its values
	MaxRunners   int
	MinPerRunner int
	Recursive    bool
	IncludeBuild bool
	IncludeTest  bool
	RunnerTag    string
	CoreCompat   bool
}

// NewSimulateCommand creates the simulate command.
func NewSimulateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SimulateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "simulate <formula>",
		Short: "Simulate sharding a formula's dependents across test runners",
		Long: `Simulate how a formula's reverse-dependency set would be partitioned
across a bounded number of test runners.

The formula metadata is read from --input when given, otherwise fetched
from the upstream feed through the local cache.

Examples:
  shardsim simulate zlib --recursive --max-runners 8
  shardsim simulate openssl@3 --runner-tag arm64_sonoma --format json
  shardsim simulate zlib --profile nightly.yaml --input formula.json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulate(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Input, "input", "", "read metadata from a local JSON file instead of the feed")
	cmd.Flags().StringVar(&opts.Database, "db", defaultCachePath(), "path to the SQLite metadata cache (empty disables caching)")
	cmd.Flags().StringVar(&opts.FeedURL, "feed-url", metadata.DefaultFeedURL, "upstream metadata feed URL")
	cmd.Flags().DurationVar(&opts.TTL, "cache-ttl", metadata.DefaultTTL, "metadata cache freshness bound")
	cmd.Flags().BoolVar(&opts.Validate, "validate", false, "schema-check raw records before normalization")

	cmd.Flags().StringVar(&opts.Profile, "profile", "", "YAML simulation profile (flags override)")
	cmd.Flags().IntVar(&opts.MaxRunners, "max-runners", 10, "maximum number of shards")
	cmd.Flags().IntVar(&opts.MinPerRunner, "min-per-runner", 5, "minimum dependents per runner before opening another shard")
	cmd.Flags().BoolVar(&opts.Recursive, "recursive", false, "discover transitive dependents, not just direct ones")
	cmd.Flags().BoolVar(&opts.IncludeBuild, "include-build", false, "follow build-dependency edges")
	cmd.Flags().BoolVar(&opts.IncludeTest, "include-test", false, "follow test-dependency edges")
	cmd.Flags().StringVar(&opts.RunnerTag, "runner-tag", formula.WildcardTag, "runner platform tag (\"all\" matches everything)")
	cmd.Flags().BoolVar(&opts.CoreCompat, "core-compat", false, "model legacy behavior where every shard re-runs the full set")

	return cmd
}

func runSimulate(opts *SimulateOptions, target string, cmd *cobra.Command) error {
	cfg, err := buildConfig(opts, target, cmd)
	if err != nil {
		return err
	}

	records, err := loadRecords(opts, cmd)
	if err != nil {
		return err
	}
	slog.Debug("metadata loaded", "records", len(records))

	if opts.Validate {
		invalid := 0
		for i, rec := range records {
			if errs := formula.ValidateRecord(rec); len(errs) > 0 {
				invalid++
				for _, verr := range errs {
					slog.Warn("invalid record", "index", i, "error", verr)
				}
			}
		}
		if invalid > 0 {
			slog.Warn("schema validation found invalid records", "count", invalid)
		}
	}

	formulas, errs := formula.NormalizeAll(records)
	for _, nerr := range errs {
		slog.Warn("skipping record", "error", nerr)
	}

	graph := depgraph.Build(formulas)
	slog.Debug("graph built", "formulas", graph.Len())

	runner := sim.NewRunner()
	result := runner.Run(graph, cfg)

	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	if result.Error != "" {
		if ferr := formatter.Error("E404", result.Error, nil); ferr != nil {
			return WrapExitError(ExitCommandError, "failed to write output", ferr)
		}
		return NewExitError(ExitFailure, result.Error)
	}

	if opts.Format == "json" {
		if err := formatter.Success(result); err != nil {
			return WrapExitError(ExitCommandError, "failed to write output", err)
		}
		return nil
	}
	renderResultText(formatter.Writer, result)
	return nil
}

// buildConfig merges the profile (if any) with command-line flags.
// A flag explicitly set on the command line wins over the profile value;
// the target argument always wins.
func buildConfig(opts *SimulateOptions, target string, cmd *cobra.Command) (sim.Config, error) {
	cfg := sim.Config{
		MaxRunners:   opts.MaxRunners,
		MinPerRunner: opts.MinPerRunner,
		Recursive:    opts.Recursive,
		IncludeBuild: opts.IncludeBuild,
		IncludeTest:  opts.IncludeTest,
		RunnerTag:    opts.RunnerTag,
		CoreCompat:   opts.CoreCompat,
	}

	if opts.Profile != "" {
		profile, err := LoadProfile(opts.Profile)
		if err != nil {
			return cfg, WrapExitError(ExitCommandError, "failed to load profile", err)
		}
		merged := profile
		if cmd.Flags().Changed("max-runners") {
			merged.MaxRunners = cfg.MaxRunners
		}
		if cmd.Flags().Changed("min-per-runner") {
			merged.MinPerRunner = cfg.MinPerRunner
		}
		if cmd.Flags().Changed("recursive") {
			merged.Recursive = cfg.Recursive
		}
		if cmd.Flags().Changed("include-build") {
			merged.IncludeBuild = cfg.IncludeBuild
		}
		if cmd.Flags().Changed("include-test") {
			merged.IncludeTest = cfg.IncludeTest
		}
		if cmd.Flags().Changed("runner-tag") {
			merged.RunnerTag = cfg.RunnerTag
		}
		if cmd.Flags().Changed("core-compat") {
			merged.CoreCompat = cfg.CoreCompat
		}
		cfg = merged
	}

	cfg.Target = target
	return cfg, nil
}

// loadRecords reads the raw metadata from the configured source.
func loadRecords(opts *SimulateOptions, cmd *cobra.Command) ([]formula.RawRecord, error) {
	if opts.Input != "" {
		data, err := os.ReadFile(opts.Input)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to read input file", err)
		}
		records, err := metadata.DecodeRecords(data)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to decode input file", err)
		}
		return records, nil
	}

	client := &metadata.Client{
		URL: opts.FeedURL,
		TTL: opts.TTL,
	}
	if opts.Database != "" {
		cache, err := openCache(opts.Database)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to open metadata cache", err)
		}
		defer cache.Close()
		client.Cache = cache
	}

	records, err := client.Fetch(cmd.Context())
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to fetch metadata", err)
	}
	return records, nil
}

// openCache opens the SQLite cache, creating parent directories first.
func openCache(path string) (*metadata.Cache, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	return metadata.OpenCache(path)
}

// defaultCachePath places the cache under the user cache directory,
// falling back to the working directory when none is available.
func defaultCachePath() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "shardsim-cache.db"
	}
	return filepath.Join(dir, "shardsim", "metadata.db")
}
