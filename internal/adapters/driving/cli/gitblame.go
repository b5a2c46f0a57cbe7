package cli

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jgbarah-chaoss/grimoirelab-perceval/internal/connectors/gitblame"
)

var (
	gbGitPath string
	gbOrigin  string
	gbRev     string
)

var gitblameCmd = &cobra.Command{
	Use:   "gitblame [uri]",
	Short: "Harvest line attribution from a git repository",
	Long: `Clones or updates a local working copy of a git repository, runs the
per-line attribution command over every tracked path at a revision, and
yields one record per attributed line range.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runGitBlame,
}

func init() {
	rootCmd.AddCommand(gitblameCmd)

	f := gitblameCmd.Flags()
	f.StringVar(&gbGitPath, "git-path", "", "local working copy location (default ~/.perceval/repos/<name>)")
	f.StringVar(&gbOrigin, "origin", "", "origin recorded in harvested records (default the repository URI)")
	f.StringVar(&gbRev, "rev", gitblame.DefaultRev, "revision to blame")
}

func runGitBlame(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	uri := cfg.GitBlame.URI
	if len(args) > 0 {
		uri = args[0]
	}
	if uri == "" {
		return errors.New("gitblame: a repository URI is required")
	}

	gitPath := firstNonEmpty(gbGitPath, cfg.GitBlame.GitPath)
	if gitPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return err
		}
		gitPath = filepath.Join(home, ".perceval", "repos", repoName(uri))
	}

	origin := firstNonEmpty(gbOrigin, cfg.GitBlame.Origin, uri)
	rev := gbRev
	if !cmd.Flags().Changed("rev") && cfg.GitBlame.Rev != "" {
		rev = cfg.GitBlame.Rev
	}

	rc, err := openCache(cfg, origin)
	if err != nil {
		return err
	}

	conn := gitblame.New(gitblame.Config{
		URI:     uri,
		GitPath: gitPath,
		Origin:  origin,
		Rev:     rev,
	}, rc)

	return runHarvest(cmd, conn, rc)
}

// repoName derives a directory name from a repository URI.
func repoName(uri string) string {
	name := strings.TrimSuffix(filepath.Base(strings.TrimSuffix(uri, "/")), ".git")
	if name == "" || name == "." {
		return "repo"
	}
	return name
}
