// Package cli wires the harvester's cobra commands. Each connector gets
// one subcommand; the shared flags cover the cache lifecycle, the
// incremental lower bound and the output destination.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/jgbarah-chaoss/grimoirelab-perceval/internal/logger"
)

var (
	configFile  string
	verboseFlag bool

	fromDate   string
	cachePath  string
	noCache    bool
	cleanCache bool
	fetchCache bool
	outputPath string
)

var rootCmd = &cobra.Command{
	Use:   "perceval",
	Short: "Harvest records from software development sources",
	Long: `Perceval harvests uniquely-identified, timestamped records from
software development sources: questions from StackExchange sites, line
attribution from git repositories. Fetched records are buffered in a
write-ahead cache so an interrupted run can be rolled back or replayed
without re-fetching.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verboseFlag)
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configFile, "config", "", "configuration file (default ~/.perceval/config.toml)")
	pf.BoolVarP(&verboseFlag, "verbose", "v", false, "enable verbose logging")
	pf.StringVar(&fromDate, "from-date", "", "fetch records updated since this date (RFC 3339 or YYYY-MM-DD)")
	pf.StringVar(&cachePath, "cache-path", "", "base directory for record caches")
	pf.BoolVar(&noCache, "no-cache", false, "disable the record cache")
	pf.BoolVar(&cleanCache, "clean-cache", false, "discard cached records before fetching")
	pf.BoolVar(&fetchCache, "fetch-cache", false, "replay cached records instead of fetching")
	pf.StringVarP(&outputPath, "output", "o", "", "write records to this file (default stdout)")
}
