package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/dvloznov/ledger-reconciler/internal/gcsledger"
	infraBQ "github.com/dvloznov/ledger-reconciler/internal/infra/bigquery"
	"github.com/dvloznov/ledger-reconciler/internal/infra/memory"
	"github.com/dvloznov/ledger-reconciler/internal/logger"
	"github.com/dvloznov/ledger-reconciler/internal/notionaudit"
	"github.com/dvloznov/ledger-reconciler/internal/oracle"
	"github.com/dvloznov/ledger-reconciler/internal/recon"
	"github.com/rs/zerolog"
)

func main() {
	log := logger.New()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "reconcile":
		runReconcile(log)
	case "candidates":
		runCandidates(log)
	case "audit":
		runAudit(log)
	case "runs":
		runRuns(log)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Ledger Reconciler CLI")
	fmt.Println("\nUsage:")
	fmt.Println("  cli <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  reconcile   Run a reconciliation for one period")
	fmt.Println("  candidates  Print the current candidate index")
	fmt.Println("  audit       Print the audit trail of a run")
	fmt.Println("  runs        List recent reconciliation runs")
	fmt.Println("  help        Show this help message")
	fmt.Println("\nEnvironment:")
	fmt.Println("  BQ_PROJECT_ID, BQ_DATASET_ID   BigQuery coordinates")
	fmt.Println("  PNL_AUTHORITATIVE_COLLECTION   Collection used for authoritative scope")
	fmt.Println("  GEMINI_MODEL                   Oracle model (default " + oracle.DefaultModelName + ")")
	fmt.Println("  NOTION_TOKEN                   Token for the optional Notion audit mirror")
	fmt.Println("\nRun 'cli <command> -h' for more information on a command.")
}

func runReconcile(log zerolog.Logger) {
	fs := flag.NewFlagSet("reconcile", flag.ExitOnError)
	period := fs.String("period", "", "Reconciliation period, e.g. 2026-07")
	mode := fs.String("mode", string(recon.RunModeFull), "Run mode: test (first 10 eligible entries) or full")
	scope := fs.String("scope", string(recon.ScopeAuthoritative), "Match scope: authoritative or merged")
	threshold := fs.Float64("threshold", 0, "Acceptance threshold in [0,1]; 0 uses the scope default")
	dryRun := fs.Bool("dry-run", false, "Run against in-memory stores loaded from CSV exports; nothing is written back")
	entriesURI := fs.String("entries-uri", "", "GCS URI of the invoice CSV export (dry-run only)")
	worksheetURI := fs.String("worksheet-uri", "", "GCS URI of the P&L worksheet CSV export (dry-run only)")
	notionDB := fs.String("notion-db", "", "Notion database ID for the audit mirror (optional)")
	batchSize := fs.Int("batch-size", recon.DefaultBatchSize, "Entries per batch")
	fs.Parse(os.Args[2:])

	if *period == "" {
		log.Fatal().Msg("Error: -period is required")
	}
	runMode, err := recon.ParseRunMode(*mode)
	if err != nil {
		log.Fatal().Err(err).Msg("Error: invalid -mode")
	}
	matchScope, err := recon.ParseMatchScope(*scope)
	if err != nil {
		log.Fatal().Err(err).Msg("Error: invalid -scope")
	}

	policy := recon.DefaultPolicy(matchScope)
	if *threshold > 0 {
		policy.Threshold = *threshold
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Hour)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	oracleClient := oracle.NewClient(os.Getenv("GEMINI_MODEL"), oracle.DefaultRetryPolicy())

	progress := recon.ProgressFunc(func(stats recon.ProgressStats) {
		fmt.Printf("\rprocessed=%d matched=%d skipped=%d elapsed=%ds",
			stats.Processed, stats.Matched, stats.Skipped, stats.ElapsedMS/1000)
	})
	scheduler := recon.NewScheduler(recon.SchedulerConfig{BatchSize: *batchSize}, progress)

	var summary recon.RunSummary
	if *dryRun {
		summary, err = reconcileDryRun(ctx, log, *period, policy, runMode, *entriesURI, *worksheetURI, oracleClient, scheduler)
	} else {
		summary, err = reconcileBigQuery(ctx, log, *period, policy, runMode, *notionDB, oracleClient, scheduler)
	}
	fmt.Println()

	if err != nil {
		log.Fatal().Err(err).
			Int("processed", summary.Processed).
			Int("matched", summary.Matched).
			Int("skipped", summary.Skipped).
			Msg("Reconciliation aborted; committed progress stands, rerun to resume")
	}

	fmt.Printf("Reconciliation completed: run=%s processed=%d matched=%d skipped=%d elapsed=%s\n",
		summary.RunID, summary.Processed, summary.Matched, summary.Skipped, summary.Elapsed)
}

func reconcileBigQuery(ctx context.Context, log zerolog.Logger, period string, policy recon.MatchPolicy, mode recon.RunMode, notionDB string, oracleClient *oracle.Client, scheduler *recon.Scheduler) (recon.RunSummary, error) {
	repo, err := newRepository(ctx, log)
	if err != nil {
		return recon.RunSummary{}, err
	}
	defer repo.Close()

	var audit recon.AuditSink = repo
	var mirror *notionaudit.Sink
	if notionDB != "" {
		token := os.Getenv("NOTION_TOKEN")
		if token == "" {
			log.Fatal().Msg("Error: -notion-db requires NOTION_TOKEN")
		}
		mirror = notionaudit.NewSink(notionaudit.NewNotionClient(token), notionDB)
		audit = recon.NewFanoutSink(repo, mirror)
	}

	engine := recon.NewEngine(oracleClient, repo, audit)
	reconciler := recon.NewReconciler(repo, repo, repo, engine, scheduler, repo)
	summary, err := reconciler.StartReconciliation(ctx, period, policy, mode)
	if mirror != nil {
		mirror.PublishSummary(ctx, summary)
	}
	return summary, err
}

func reconcileDryRun(ctx context.Context, log zerolog.Logger, period string, policy recon.MatchPolicy, mode recon.RunMode, entriesURI, worksheetURI string, oracleClient *oracle.Client, scheduler *recon.Scheduler) (recon.RunSummary, error) {
	if entriesURI == "" || worksheetURI == "" {
		log.Fatal().Msg("Error: -dry-run requires -entries-uri and -worksheet-uri")
	}

	entriesCSV, err := gcsledger.Fetch(ctx, entriesURI)
	if err != nil {
		return recon.RunSummary{}, err
	}
	worksheetCSV, err := gcsledger.Fetch(ctx, worksheetURI)
	if err != nil {
		return recon.RunSummary{}, err
	}

	entries, err := gcsledger.ParseEntries(entriesCSV)
	if err != nil {
		return recon.RunSummary{}, err
	}
	collections, cells, err := gcsledger.ParseWorksheet(worksheetCSV)
	if err != nil {
		return recon.RunSummary{}, err
	}

	ledger := memory.NewLedger()
	ledger.LoadEntries(period, entries)
	ledger.LoadCollections(collections)

	store := memory.NewAggregateStore()
	store.Seed(cells)
	audit := memory.NewAuditSink()

	engine := recon.NewEngine(oracleClient, store, audit)
	reconciler := recon.NewReconciler(ledger, ledger, ledger, engine, scheduler, nil)

	summary, err := reconciler.StartReconciliation(ctx, period, policy, mode)

	fmt.Println("\n\nDry-run aggregate state:")
	for _, cell := range store.Snapshot() {
		fmt.Printf("  %-40s %s\n", cell.Reference, cell.Raw)
	}
	fmt.Printf("Audit records: %d\n", len(audit.Records()))

	return summary, err
}

func runCandidates(log zerolog.Logger) {
	fs := flag.NewFlagSet("candidates", flag.ExitOnError)
	scope := fs.String("scope", string(recon.ScopeAuthoritative), "Match scope: authoritative or merged")
	fs.Parse(os.Args[2:])

	matchScope, err := recon.ParseMatchScope(*scope)
	if err != nil {
		log.Fatal().Err(err).Msg("Error: invalid -scope")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	repo, err := newRepository(ctx, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create repository")
	}
	defer repo.Close()

	collections, err := repo.FetchCollections(ctx, matchScope)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to fetch collections")
	}

	candidates, err := recon.NewIndexer().Build(collections)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build candidate index")
	}

	fmt.Printf("%-14s %-20s %s\n", "COLLECTION", "REFERENCE", "TEXT")
	for _, c := range candidates {
		fmt.Printf("%-14s %-20s %s\n", c.Collection, c.Reference, c.Text)
	}
	fmt.Printf("\n%d candidates\n", len(candidates))
}

func runAudit(log zerolog.Logger) {
	fs := flag.NewFlagSet("audit", flag.ExitOnError)
	runID := fs.String("run", "", "Run ID to inspect")
	fs.Parse(os.Args[2:])

	if *runID == "" {
		log.Fatal().Msg("Error: -run is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	repo, err := newRepository(ctx, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create repository")
	}
	defer repo.Close()

	records, err := repo.QueryAuditByRun(ctx, *runID)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to query audit trail")
	}

	for _, rec := range records {
		outcome := "NO_MATCH"
		detail := ""
		if rec.Accepted {
			outcome = "MATCHED"
			detail = fmt.Sprintf(" -> %s (%s) %.2f+%.2f=%.2f",
				rec.MatchedText.StringVal, rec.MatchedReference.StringVal,
				rec.PreviousValue, rec.Contribution, rec.NewValue)
		}
		fmt.Printf("%s  %-9s conf=%.2f %s %q%s\n",
			rec.Timestamp.Format(time.RFC3339), outcome, rec.Confidence, rec.EntryID, rec.EntryName, detail)
		if rec.Warning.Valid {
			fmt.Printf("    warning: %s\n", rec.Warning.StringVal)
		}
	}
	fmt.Printf("\n%d records\n", len(records))
}

func runRuns(log zerolog.Logger) {
	fs := flag.NewFlagSet("runs", flag.ExitOnError)
	limit := fs.Int("limit", 20, "Maximum number of runs to list")
	fs.Parse(os.Args[2:])

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	repo, err := newRepository(ctx, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create repository")
	}
	defer repo.Close()

	runs, err := repo.ListRuns(ctx, *limit)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to list runs")
	}

	fmt.Printf("%-36s %-8s %-5s %-8s %9s %7s %7s  %s\n",
		"RUN", "PERIOD", "MODE", "STATUS", "PROCESSED", "MATCHED", "SKIPPED", "STARTED")
	for _, run := range runs {
		fmt.Printf("%-36s %-8s %-5s %-8s %9d %7d %7d  %s\n",
			run.RunID, run.Period, run.Mode, run.Status,
			run.Processed, run.Matched, run.Skipped,
			run.StartedTS.Format(time.RFC3339))
	}
}

func newRepository(ctx context.Context, log zerolog.Logger) (*infraBQ.Repository, error) {
	projectID := os.Getenv("BQ_PROJECT_ID")
	datasetID := os.Getenv("BQ_DATASET_ID")
	if projectID == "" || datasetID == "" {
		log.Fatal().Msg("Error: BQ_PROJECT_ID and BQ_DATASET_ID must be set")
	}
	authoritative := os.Getenv("PNL_AUTHORITATIVE_COLLECTION")
	if authoritative == "" {
		authoritative = "Expenses"
	}
	return infraBQ.NewRepository(ctx, projectID, datasetID, authoritative)
}
