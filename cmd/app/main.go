package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	cfgpkg "github.com/local/pdfbatch/internal/config"
	"github.com/local/pdfbatch/internal/filetype"
	logpkg "github.com/local/pdfbatch/internal/logger"
	"github.com/local/pdfbatch/internal/metrics"
	"github.com/local/pdfbatch/internal/pagesource"
	"github.com/local/pdfbatch/internal/queue"
	"github.com/local/pdfbatch/internal/server"
	"github.com/local/pdfbatch/internal/statuscheck"
	"github.com/local/pdfbatch/internal/storage"
	"github.com/local/pdfbatch/internal/store"
	"github.com/local/pdfbatch/internal/task"
	"github.com/local/pdfbatch/internal/worker"
)

func main() {
	_ = godotenv.Load()
	cfg := cfgpkg.FromEnv()

	// Init logging
	_ = logpkg.Init(logpkg.Options{
		Level:        cfg.Logging.Level,
		Pretty:       cfg.Logging.Pretty,
		File:         cfg.Logging.File,
		MaxSizeMB:    cfg.Logging.MaxSizeMB,
		MaxBackups:   cfg.Logging.MaxBackups,
		MaxAgeDays:   cfg.Logging.MaxAgeDays,
		Compress:     cfg.Logging.Compress,
		SendToAxiom:  cfg.Axiom.Send && cfg.Axiom.APIKey != "",
		AxiomAPIKey:  cfg.Axiom.APIKey,
		AxiomOrgID:   cfg.Axiom.OrgID,
		AxiomDataset: cfg.Axiom.Dataset,
		AxiomFlush:   cfg.Axiom.FlushInterval,
	})
	defer logpkg.Close()

	metrics.Init()

	// Queue
	rq, err := queue.NewRedisQueue(cfg.Queue.RedisURL, cfg.Queue.Stream, cfg.Queue.Group)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer rq.Close()

	// Stores
	ts, err := store.NewTaskStore(cfg.Queue.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init task store")
	}
	defer ts.Close()

	outs, err := store.NewOutputStore(cfg.Queue.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init output store")
	}
	defer outs.Close()

	// Page source: pdfcpu backend wrapped with remote source resolution
	var s3cli *storage.S3Client
	if cfg.Storage.S3Bucket != "" {
		s3cli, err = storage.NewS3Client(context.Background(), storage.S3Options{
			Bucket:    cfg.Storage.S3Bucket,
			Region:    cfg.Storage.S3Region,
			Endpoint:  cfg.Storage.S3Endpoint,
			AccessKey: cfg.Storage.S3AccessKey,
			SecretKey: cfg.Storage.S3SecretKey,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to init S3 client")
		}
	}
	resolver := storage.NewResolver(s3cli, cfg.Storage.TempDir, cfg.Storage.HTTPLimit)
	src := storage.NewResolvingSource(pagesource.NewPdfcpuSource(pagesource.NewFitzOutlineReader()), resolver)

	// Task registry and dispatcher. A kind without a handler is a
	// startup failure, not a runtime one.
	reg, err := task.DefaultRegistry(src)
	if err != nil {
		log.Fatal().Err(err).Msg("task registry incomplete")
	}

	listener := store.StatusListener(ts, 5*time.Second)
	var sink task.EventSink
	var asink *task.AsyncSink
	if cfg.Worker.AsyncEvents {
		asink = task.NewAsyncSink(listener, cfg.Worker.EventBuffer)
		sink = asink
	} else {
		sink = task.NewSyncSink(listener)
	}
	if asink != nil {
		defer asink.Close()
	}

	disp := task.NewDispatcher(reg,
		task.WithSink(sink),
		task.WithSourceCheck(sourceCheck),
	)

	// Worker pool
	pool := worker.New(worker.Config{
		Concurrency:  cfg.Worker.Concurrency,
		DequeueBlock: cfg.Worker.DequeueBlock,
		UploadPrefix: cfg.Storage.UploadTo,
	}, rq, disp, outs)
	if s3cli != nil && cfg.Storage.UploadTo != "" {
		pool.SetUploader(s3cli)
	}
	pool.Start()
	defer pool.Stop()

	// HTTP API
	checker := statuscheck.New(statuscheck.Options{Redis: rq, S3: s3Pinger(s3cli)})
	srv := server.New(server.Dependencies{
		Queue:   rq,
		Status:  ts,
		Outputs: outs,
		Checker: checker,
		Defaults: task.Defaults{
			ExistingOutput: cfg.Output.ExistingOutputPolicy,
			Compress:       cfg.Output.Compress,
			Version:        cfg.Output.Version,
		},
	})
	mux := http.NewServeMux()
	srv.RegisterRoutes(mux)

	httpSrv := &http.Server{Addr: ":" + cfg.HTTP.Port, Handler: mux}
	go func() {
		log.Info().Msgf("HTTP server listening on :%s", cfg.HTTP.Port)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("http server error")
		}
	}()

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = httpSrv.Shutdown(ctx)
	fmt.Println("shutdown complete")
}

// sourceCheck rejects local sources that are not PDFs before a task
// runs. Remote references are fetched and validated at open time.
func sourceCheck(ref string) error {
	if _, err := os.Stat(ref); err != nil {
		// Not a plain local path, leave it to the resolver.
		return nil
	}
	return filetype.EnsurePDF(ref)
}

// s3Pinger returns nil for a nil client so the checker reports the
// bucket as unconfigured instead of panicking.
func s3Pinger(c *storage.S3Client) statuscheck.S3Pinger {
	if c == nil {
		return nil
	}
	return c
}
