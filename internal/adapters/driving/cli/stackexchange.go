package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/jgbarah-chaoss/grimoirelab-perceval/internal/connectors/stackexchange"
)

var (
	seSite         string
	seTagged       string
	seToken        string
	seMaxQuestions int
)

var stackexchangeCmd = &cobra.Command{
	Use:   "stackexchange",
	Short: "Harvest questions from a StackExchange site",
	Long: `Fetches the questions of a StackExchange site carrying a given tag,
most recently active first, through the paginated StackExchange API.`,
	RunE: runStackExchange,
}

func init() {
	rootCmd.AddCommand(stackexchangeCmd)

	f := stackexchangeCmd.Flags()
	f.StringVar(&seSite, "site", "", "StackExchange site")
	f.StringVar(&seTagged, "tagged", "", "filter questions by tag")
	f.StringVar(&seToken, "token", "", "StackExchange API access token")
	f.IntVar(&seMaxQuestions, "max-questions", stackexchange.MaxQuestions,
		"maximum number of questions requested in the same query")
}

func runStackExchange(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// Flags win over the configuration file.
	site := firstNonEmpty(seSite, cfg.StackExchange.Site)
	tagged := firstNonEmpty(seTagged, cfg.StackExchange.Tagged)
	token := firstNonEmpty(seToken, cfg.StackExchange.Token)
	if site == "" || tagged == "" || token == "" {
		return errors.New("stackexchange: --site, --tagged and --token are required")
	}
	maxQuestions := seMaxQuestions
	if !cmd.Flags().Changed("max-questions") && cfg.StackExchange.MaxQuestions > 0 {
		maxQuestions = cfg.StackExchange.MaxQuestions
	}

	rc, err := openCache(cfg, site)
	if err != nil {
		return err
	}

	conn := stackexchange.New(stackexchange.Config{
		Site:         site,
		Tagged:       tagged,
		Token:        token,
		MaxQuestions: maxQuestions,
	}, rc)

	return runHarvest(cmd, conn, rc)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
