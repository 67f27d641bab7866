package testreport

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/kamilpajak/testreport/internal/database"
	gh "github.com/kamilpajak/testreport/internal/github"
	"github.com/kamilpajak/testreport/internal/ingest"
	"github.com/kamilpajak/testreport/pkg/models"
)

// errTestsFailed makes the process exit non-zero under --fail-on-error
var errTestsFailed = errors.New("one or more tests failed")

var (
	parseRepo          string
	parseRunID         int64
	parseArtifact      string
	parseArtifactFiles []string
	parseStore         bool
	parseOutput        string
)

var parseCmd = &cobra.Command{
	Use:   "parse [report files or globs...]",
	Short: "Parse test reports and render a summary",
	Long: `Parse one or more test reports and render them as markdown, JSON or YAML.

Reports are read from local files and doublestar globs, or downloaded from
the artifacts of a GitHub Actions workflow run with --repo.

Examples:
  testreport parse mochawesome-report/mochawesome.json
  testreport parse 'reports/**/*.json' --list-tests failed
  testreport parse --repo owner/repo --artifact 'mochawesome*' --format json
  testreport parse results.json --reporter playwright-json --fail-on-error`,
	RunE: runParse,
}

func init() {
	f := parseCmd.Flags()
	f.StringVar(&parseRepo, "repo", "", "Download reports from this GitHub repository (owner/repo)")
	f.Int64Var(&parseRunID, "run-id", 0, "Workflow run ID (default: latest completed run)")
	f.StringVar(&parseArtifact, "artifact", "", "Artifact name pattern (default: all artifacts)")
	f.StringSliceVar(&parseArtifactFiles, "artifact-files", []string{"**/*.json"}, "Report file patterns inside artifacts")
	f.BoolVar(&parseStore, "store", false, "Save parsed runs to the database")
	f.StringVarP(&parseOutput, "output", "o", "", "Write the report to a file instead of stdout")
	f.Bool("fail-on-error", false, "Exit with an error when any test failed")
}

// reportInput is a report file with its raw content
type reportInput struct {
	path    string
	content []byte
}

func runParse(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if parseRepo == "" && len(args) == 0 {
		return errors.New("no reports given: pass report files or globs, or --repo")
	}

	opts := cfg.ParseOptions()
	if len(opts.TrackedFiles) == 0 {
		opts.TrackedFiles = discoverTrackedFiles(ctx)
	}
	in := &ingest.Ingester{Reporter: cfg.Reporter, Options: opts}

	runs, inputs, err := loadRuns(ctx, in, args)
	if err != nil {
		return err
	}

	if err := writeOutput(cmd, runs); err != nil {
		return err
	}
	printSummary(cmd.ErrOrStderr(), runs)

	if parseStore {
		if err := storeRuns(ctx, inputs, runs); err != nil {
			return err
		}
	}

	if cfg.Report.FailOnError {
		for _, r := range runs {
			if r.HasFailures() {
				return errTestsFailed
			}
		}
	}
	return nil
}

func discoverTrackedFiles(ctx context.Context) []string {
	logger := zerolog.Ctx(ctx)
	wd, err := os.Getwd()
	if err != nil {
		logger.Warn().Err(err).Msg("cannot determine working directory")
		return nil
	}
	files, err := ingest.TrackedFiles(ctx, wd)
	if err != nil {
		logger.Warn().Err(err).Msg("tracked files unavailable, failures will not be located")
		return nil
	}
	logger.Debug().Int("tracked_files", len(files)).Msg("tracked files loaded from git")
	return files
}

// loadRuns parses local reports concurrently, or downloaded artifacts in order.
// Local inputs carry no content; it is read again only when storing.
func loadRuns(ctx context.Context, in *ingest.Ingester, args []string) ([]*models.TestRunResult, []reportInput, error) {
	if parseRepo != "" {
		inputs, err := downloadInputs(ctx)
		if err != nil {
			return nil, nil, err
		}
		runs := make([]*models.TestRunResult, 0, len(inputs))
		for _, input := range inputs {
			run, err := in.Parse(ctx, input.path, input.content)
			if err != nil {
				return nil, nil, err
			}
			runs = append(runs, run)
		}
		return runs, inputs, nil
	}

	paths, err := ingest.ExpandPatterns(args)
	if err != nil {
		return nil, nil, err
	}
	runs, err := in.ParseFiles(ctx, paths)
	if err != nil {
		return nil, nil, err
	}
	inputs := make([]reportInput, len(paths))
	for i, p := range paths {
		inputs[i] = reportInput{path: p}
	}
	return runs, inputs, nil
}

func downloadInputs(ctx context.Context) ([]reportInput, error) {
	owner, repo, err := gh.ParseRepo(parseRepo)
	if err != nil {
		return nil, err
	}

	client := gh.NewClient(gh.Options{
		Token:             cfg.GitHub.Token,
		BaseURL:           cfg.GitHub.APIURL,
		RequestsPerSecond: cfg.GitHub.RequestsPerSecond,
		Timeout:           cfg.GitHub.Timeout,
	})

	stop := startSpinner(fmt.Sprintf(" Fetching reports from %s...", parseRepo))
	defer stop()

	runID := parseRunID
	if runID == 0 {
		runID, err = client.LatestRunID(ctx, owner, repo)
		if err != nil {
			return nil, err
		}
	}
	zerolog.Ctx(ctx).Info().Str("repo", parseRepo).Int64("run_id", runID).Msg("downloading artifacts")

	files, err := client.FetchReports(ctx, owner, repo, runID, parseArtifact, parseArtifactFiles)
	if err != nil {
		return nil, err
	}

	inputs := make([]reportInput, 0, len(files))
	for _, f := range files {
		inputs = append(inputs, reportInput{path: f.Path(), content: f.Content})
	}
	return inputs, nil
}

// startSpinner shows progress on an interactive stderr and returns its stop func
func startSpinner(suffix string) func() {
	if !isatty.IsTerminal(os.Stderr.Fd()) {
		return func() {}
	}
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
	s.Suffix = suffix
	s.Start()
	return s.Stop
}

func storeRuns(ctx context.Context, inputs []reportInput, runs []*models.TestRunResult) error {
	db, err := openDatabase(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	source := ""
	if parseRepo != "" {
		source = parseRepo
		if parseRunID != 0 {
			source = fmt.Sprintf("%s#%d", parseRepo, parseRunID)
		}
	}

	logger := zerolog.Ctx(ctx)
	for i, run := range runs {
		raw := inputs[i].content
		if raw == nil {
			if raw, err = os.ReadFile(inputs[i].path); err != nil {
				return fmt.Errorf("failed to read report: %w", err)
			}
		}
		saved, created, err := db.SaveRun(ctx, database.SaveRunParams{
			Run:      run,
			Raw:      raw,
			Reporter: cfg.Reporter,
			Source:   source,
		})
		if err != nil {
			return err
		}
		logger.Info().
			Str("id", saved.ID.String()).
			Str("path", run.Path).
			Bool("created", created).
			Msg("run stored")
	}
	return nil
}

func openDatabase(ctx context.Context) (*database.DB, error) {
	if cfg.Database.URL == "" {
		return nil, errors.New("database URL not configured: set --database-url or DATABASE_URL")
	}
	return database.New(ctx, cfg.Database.URL)
}
