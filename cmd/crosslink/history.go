package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/nao1215/crosslink/internal/config"
	"github.com/nao1215/crosslink/internal/database"
	"github.com/nao1215/crosslink/internal/model"
	"github.com/nao1215/crosslink/internal/report"
	"github.com/nao1215/markdown"
	"github.com/spf13/cobra"
)

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show past runs and their candidates",
		Long: `History lists the runs recorded by start.

Examples:
  # List recent runs
  crosslink history

  # Show the candidates of run 3
  crosslink history --run 3

  # Show what changed since the previous run of the same sitemaps
  crosslink history --run 3 --diff

  # Machine-readable output
  crosslink history --run 3 --json`,
		Args: cobra.NoArgs,
		RunE: runHistoryCmd,
	}

	cmd.Flags().Int64P("run", "r", 0, "Show the candidates of this run")
	cmd.Flags().Bool("diff", false, "Compare --run with the previous run of the same sitemaps")
	cmd.Flags().IntP("limit", "n", 20, "Number of runs to list (0 lists all)")
	cmd.Flags().BoolP("json", "j", false, "Output in JSON format")
	cmd.Flags().String("db-dir", config.XDGDataDir(), "History database directory")
	return cmd
}

// historyOptions holds the parsed history flags.
type historyOptions struct {
	runID int64
	diff  bool
	limit int
	json  bool
	dbDir string
}

func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	var opts historyOptions
	var err error
	flags := cmd.Flags()
	if opts.runID, err = flags.GetInt64("run"); err != nil {
		return err
	}
	if opts.diff, err = flags.GetBool("diff"); err != nil {
		return err
	}
	if opts.limit, err = flags.GetInt("limit"); err != nil {
		return err
	}
	if opts.json, err = flags.GetBool("json"); err != nil {
		return err
	}
	if opts.dbDir, err = flags.GetString("db-dir"); err != nil {
		return err
	}
	if opts.diff && opts.runID == 0 {
		return errors.New("--diff requires --run")
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return showHistory(ctx, opts, cmd.OutOrStdout())
}

func showHistory(ctx context.Context, opts historyOptions, out io.Writer) error {
	db, err := database.Open(opts.dbDir, database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	switch {
	case opts.diff:
		return showDiff(ctx, db, opts, out)
	case opts.runID != 0:
		return showRun(ctx, db, opts, out)
	default:
		return listRuns(ctx, db, opts, out)
	}
}

func listRuns(ctx context.Context, db *database.HistoryDB, opts historyOptions, out io.Writer) error {
	runs, err := db.ListRuns(ctx, opts.limit)
	if err != nil {
		return err
	}
	if opts.json {
		_, err := report.NewJSONWriter(out, report.WithPrettyPrint()).WriteValue(runs)
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs recorded yet. Run crosslink start first.")
		return nil
	}

	rows := make([][]string, len(runs))
	for i, r := range runs {
		rows[i] = []string{
			strconv.FormatInt(r.ID, 10),
			r.StartedAt.Local().Format("2006-01-02 15:04"),
			r.MySitemap,
			r.TargetSitemap,
			strconv.Itoa(r.MyPages) + "x" + strconv.Itoa(r.TargetPages),
			strconv.Itoa(r.CandidateCount),
			r.Duration.Round(time.Second).String(),
		}
	}
	md := markdown.NewMarkdown(out)
	md.Table(markdown.TableSet{
		Header: []string{"ID", "Started", "My sitemap", "Target sitemap", "Pages", "Candidates", "Duration"},
		Rows:   rows,
	})
	return md.Build()
}

func showRun(ctx context.Context, db *database.HistoryDB, opts historyOptions, out io.Writer) error {
	rec, err := db.GetRun(ctx, opts.runID)
	if err != nil {
		return err
	}
	candidates, err := db.GetRunCandidates(ctx, opts.runID)
	if err != nil {
		return err
	}

	if opts.json {
		_, err := report.NewJSONWriter(out, report.WithPrettyPrint()).WriteValue(struct {
			Run        *database.RunRecord           `json:"run"`
			Candidates []model.IntersectionCandidate `json:"candidates"`
		}{Run: rec, Candidates: candidates})
		return err
	}

	fmt.Fprintf(out, "Run %d: %s -> %s (%s)\n\n", rec.ID, rec.MySitemap, rec.TargetSitemap,
		rec.StartedAt.Local().Format("2006-01-02 15:04"))
	run := model.NewRun(rec.MySitemap, rec.TargetSitemap)
	run.Ranked = candidates
	_, err = report.NewTableWriter(out).Write(run)
	return err
}

// historyDiff is the JSON shape of --diff.
type historyDiff struct {
	Run      int64                         `json:"run"`
	Previous int64                         `json:"previous"`
	Added    []model.IntersectionCandidate `json:"added"`
	Removed  []model.IntersectionCandidate `json:"removed"`
}

func showDiff(ctx context.Context, db *database.HistoryDB, opts historyOptions, out io.Writer) error {
	prev, err := db.PreviousRun(ctx, opts.runID)
	if err != nil {
		return err
	}
	cur, err := db.GetRunCandidates(ctx, opts.runID)
	if err != nil {
		return err
	}
	old, err := db.GetRunCandidates(ctx, prev.ID)
	if err != nil {
		return err
	}

	added, removed := model.Diff(old, cur)
	if opts.json {
		_, err := report.NewJSONWriter(out, report.WithPrettyPrint()).WriteValue(historyDiff{
			Run:      opts.runID,
			Previous: prev.ID,
			Added:    added,
			Removed:  removed,
		})
		return err
	}

	fmt.Fprintf(out, "Run %d compared with run %d: %d added, %d removed\n", opts.runID, prev.ID, len(added), len(removed))
	for _, c := range added {
		fmt.Fprintf(out, "+ %s -> %s %q (%s)\n", c.LinkFrom, c.LinkTo, c.LinkFromText, strconv.FormatFloat(c.LinkScore, 'f', -1, 64))
	}
	for _, c := range removed {
		fmt.Fprintf(out, "- %s -> %s %q (%s)\n", c.LinkFrom, c.LinkTo, c.LinkFromText, strconv.FormatFloat(c.LinkScore, 'f', -1, 64))
	}
	return nil
}
