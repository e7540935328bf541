package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dvloznov/ledger-reconciler/internal/api/handlers"
	"github.com/dvloznov/ledger-reconciler/internal/api/middleware"
	infraBQ "github.com/dvloznov/ledger-reconciler/internal/infra/bigquery"
	"github.com/dvloznov/ledger-reconciler/internal/jobs"
	"github.com/dvloznov/ledger-reconciler/internal/jobs/inmemory"
	"github.com/dvloznov/ledger-reconciler/internal/logger"
	"github.com/dvloznov/ledger-reconciler/internal/oracle"
	"github.com/dvloznov/ledger-reconciler/internal/recon"
)

func main() {
	var (
		port = flag.String("port", "8080", "HTTP server port")
	)
	flag.Parse()

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

	ctx := context.Background()
	ctx = logger.WithContext(ctx, log)

	repo, err := infraBQ.NewRepository(ctx, projectID, datasetID, authoritative)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create repository")
	}
	defer repo.Close()

	// Job infrastructure: the API enqueues, the in-process consumer executes.
	// In-memory queue means single-instance deployment only.
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(100, jobStore)

	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	oracleClient := oracle.NewClient(os.Getenv("GEMINI_MODEL"), oracle.DefaultRetryPolicy())
	engine := recon.NewEngine(oracleClient, repo, repo)
	scheduler := recon.NewScheduler(recon.SchedulerConfig{}, nil)
	reconciler := recon.NewReconciler(repo, repo, repo, engine, scheduler, repo)

	jobHandler := func(ctx context.Context, job jobs.Job) error {
		runJob, ok := job.(*jobs.ReconcileRunJob)
		if !ok {
			return fmt.Errorf("unexpected job type: %T", job)
		}

		log.Info().
			Str("job_id", runJob.JobID).
			Str("period", runJob.Period).
			Msg("Processing reconcile job")

		summary, err := reconciler.StartReconciliation(ctx, runJob.Period, runJob.Policy(), runJob.Mode)
		runJob.RunID = summary.RunID
		if err != nil {
			log.Error().Err(err).Str("job_id", runJob.JobID).Msg("Reconciliation run failed")
			return err
		}

		log.Info().
			Str("job_id", runJob.JobID).
			Str("run_id", summary.RunID).
			Int("processed", summary.Processed).
			Int("matched", summary.Matched).
			Msg("Reconciliation run completed")
		return nil
	}

	go func() {
		log.Info().Msg("Starting job worker")
		if err := jobQueue.Start(workerCtx, jobHandler); err != nil {
			log.Error().Err(err).Msg("Job worker stopped with error")
		}
	}()

	runsHandler := handlers.NewRunsHandler(jobStore, jobQueue, log)

	mux := http.NewServeMux()

	mux.HandleFunc("/api/runs", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			runsHandler.CreateRun(w, r)
		case http.MethodGet:
			runsHandler.ListRuns(w, r)
		default:
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/runs/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			jobID := strings.TrimPrefix(r.URL.Path, "/api/runs/")
			if jobID == "" {
				middleware.WriteError(w, http.StatusBadRequest, "Job ID is required")
				return
			}
			runsHandler.GetRun(w, r, jobID)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/health", runsHandler.Health)

	handler := middleware.Recovery(log)(
		middleware.Logger(log)(mux),
	)

	server := &http.Server{
		Addr:         ":" + *port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("port", *port).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")
	cancelWorker()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Queue shutdown timed out")
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server shutdown failed")
	}
}
