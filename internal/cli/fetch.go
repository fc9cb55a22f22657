package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/shardsim/internal/metadata"
)

// FetchOptions holds flags for the fetch command.
type FetchOptions struct {
	*RootOptions
	Database string
	FeedURL  string
}

// NewFetchCommand creates the fetch command, which warms the local
// metadata cache so later simulate runs work offline within the TTL.
func NewFetchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &FetchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "fetch",
		Short:         "Fetch the upstream metadata feed into the local cache",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFetch(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", defaultCachePath(), "path to the SQLite metadata cache")
	cmd.Flags().StringVar(&opts.FeedURL, "feed-url", metadata.DefaultFeedURL, "upstream metadata feed URL")

	return cmd
}

func runFetch(opts *FetchOptions, cmd *cobra.Command) error {
	cache, err := openCache(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open metadata cache", err)
	}
	defer cache.Close()

	client := &metadata.Client{
		URL:   opts.FeedURL,
		Cache: cache,
	}
	records, err := client.Refresh(cmd.Context())
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to fetch metadata", err)
	}

	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
	return formatter.Success(fmt.Sprintf("cached %d records from %s", len(records), opts.FeedURL))
}
