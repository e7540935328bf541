package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	infraBQ "github.com/dvloznov/ledger-reconciler/internal/infra/bigquery"
	"github.com/dvloznov/ledger-reconciler/internal/jobs"
	"github.com/dvloznov/ledger-reconciler/internal/jobs/inmemory"
	"github.com/dvloznov/ledger-reconciler/internal/logger"
	"github.com/dvloznov/ledger-reconciler/internal/oracle"
	"github.com/dvloznov/ledger-reconciler/internal/recon"
)

func main() {
	log := logger.New()

	projectID := os.Getenv("BQ_PROJECT_ID")
	datasetID := os.Getenv("BQ_DATASET_ID")
	if projectID == "" || datasetID == "" {
		log.Fatal().Msg("BQ_PROJECT_ID and BQ_DATASET_ID must be set")
	}
	authoritative := os.Getenv("PNL_AUTHORITATIVE_COLLECTION")
	if authoritative == "" {
		authoritative = "Expenses"
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	repo, err := infraBQ.NewRepository(ctx, projectID, datasetID, authoritative)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create repository")
	}
	defer repo.Close()

	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(100, jobStore)

	log.Info().Msg("Starting reconciliation worker")

	oracleClient := oracle.NewClient(os.Getenv("GEMINI_MODEL"), oracle.DefaultRetryPolicy())
	engine := recon.NewEngine(oracleClient, repo, repo)
	scheduler := recon.NewScheduler(recon.SchedulerConfig{}, nil)
	reconciler := recon.NewReconciler(repo, repo, repo, engine, scheduler, repo)

	handler := func(ctx context.Context, job jobs.Job) error {
		runJob, ok := job.(*jobs.ReconcileRunJob)
		if !ok {
			return fmt.Errorf("unexpected job type: %T", job)
		}

		log.Info().
			Str("job_id", runJob.JobID).
			Str("period", runJob.Period).
			Str("mode", string(runJob.Mode)).
			Msg("Processing reconcile job")

		summary, err := reconciler.StartReconciliation(ctx, runJob.Period, runJob.Policy(), runJob.Mode)
		runJob.RunID = summary.RunID
		if err != nil {
			log.Error().
				Err(err).
				Str("job_id", runJob.JobID).
				Str("run_id", summary.RunID).
				Int("processed", summary.Processed).
				Msg("Reconciliation run failed")
			return err
		}

		log.Info().
			Str("job_id", runJob.JobID).
			Str("run_id", summary.RunID).
			Int("processed", summary.Processed).
			Int("matched", summary.Matched).
			Int("skipped", summary.Skipped).
			Msg("Reconciliation run completed")
		return nil
	}

	if err := jobQueue.Start(ctx, handler); err != nil {
		log.Fatal().Err(err).Msg("Failed to start job consumer")
	}

	log.Info().Msg("Worker started, waiting for jobs...")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down worker...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Queue shutdown timed out")
	}
}
