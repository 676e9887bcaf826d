// Package worker runs the task consumer pool: it pulls task requests
// off the queue, dispatches them and records results.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/local/pdfbatch/internal/metrics"
	"github.com/local/pdfbatch/internal/store"
	"github.com/local/pdfbatch/internal/task"
)

// Queue models what the pool needs from the task queue.
type Queue interface {
	Dequeue(ctx context.Context, consumer string, block time.Duration) (string, []byte, error)
	Ack(ctx context.Context, msgID string) error
	AddDLQ(ctx context.Context, payload []byte, reason string) error
	Depths(ctx context.Context) (int64, int64, error)
}

// Uploader pushes a finished result file to remote storage.
type Uploader interface {
	Upload(ctx context.Context, key, path, password string) error
}

// Config tunes the pool.
type Config struct {
	Concurrency  int
	DequeueBlock time.Duration
	UploadPrefix string
}

// Pool consumes task requests with a fixed number of workers.
type Pool struct {
	cfg        Config
	q          Queue
	dispatcher *task.Dispatcher
	outputs    *store.OutputStore
	uploader   Uploader
	stop       chan struct{}
	wg         sync.WaitGroup
}

// New builds a pool. outputs may be nil, in which case written paths
// are only reported through logs and events.
func New(cfg Config, q Queue, d *task.Dispatcher, outputs *store.OutputStore) *Pool {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 2
	}
	if cfg.DequeueBlock <= 0 {
		cfg.DequeueBlock = 2 * time.Second
	}
	return &Pool{
		cfg:        cfg,
		q:          q,
		dispatcher: d,
		outputs:    outputs,
		stop:       make(chan struct{}),
	}
}

// SetUploader enables uploading written result files under
// cfg.UploadPrefix after each successful task. Call before Start.
func (p *Pool) SetUploader(u Uploader) {
	p.uploader = u
}

// Start launches the worker goroutines and the queue depth reporter.
func (p *Pool) Start() {
	for i := 0; i < p.cfg.Concurrency; i++ {
		p.wg.Add(1)
		go p.loop(i)
	}
	p.wg.Add(1)
	go p.reportDepths()
}

// Stop signals all workers to exit and blocks until in-flight tasks
// have finished. Event sinks and stores must stay open until Stop
// returns.
func (p *Pool) Stop() {
	close(p.stop)
	p.wg.Wait()
}

func (p *Pool) loop(id int) {
	defer p.wg.Done()
	host, _ := os.Hostname()
	consumer := fmt.Sprintf("%s-worker-%d", host, id)
	log.Info().Int("worker", id).Str("consumer", consumer).Msg("task worker started")
	for {
		select {
		case <-p.stop:
			log.Info().Int("worker", id).Msg("task worker stopped")
			return
		default:
		}

		msgID, data, err := p.q.Dequeue(context.Background(), consumer, p.cfg.DequeueBlock)
		if err != nil {
			log.Error().Err(err).Msg("queue dequeue error")
			time.Sleep(500 * time.Millisecond)
			continue
		}
		if data == nil {
			continue
		}

		p.process(msgID, data)
	}
}

// process runs one task request to completion. The message is acked in
// every case: validation and task failures are terminal, recorded in
// the status store by the event sink and, for undecodable payloads, in
// the DLQ.
func (p *Pool) process(msgID string, data []byte) {
	ctx := context.Background()
	defer func() {
		if err := p.q.Ack(ctx, msgID); err != nil {
			log.Error().Err(err).Str("msg_id", msgID).Msg("queue ack failed")
		}
	}()

	var req task.Request
	if err := json.Unmarshal(data, &req); err != nil {
		log.Error().Err(err).Str("msg_id", msgID).Msg("undecodable task request")
		p.deadLetter(ctx, data, fmt.Sprintf("bad request envelope: %v", err))
		return
	}

	params, err := task.DecodeParameters(req.Kind, req.Params)
	if err != nil {
		log.Error().Err(err).Str("task_id", req.TaskID).Str("kind", string(req.Kind)).Msg("undecodable task parameters")
		p.deadLetter(ctx, data, err.Error())
		return
	}

	res, err := p.dispatcher.Dispatch(ctx, req.TaskID, params)
	if err != nil {
		// Already reported via events, metrics and logs.
		return
	}

	if p.outputs != nil {
		for _, path := range res.Written {
			if err := p.outputs.AddOutput(ctx, req.TaskID, path); err != nil {
				log.Error().Err(err).Str("task_id", req.TaskID).Msg("failed to record output path")
			}
		}
		for _, path := range res.Skipped {
			if err := p.outputs.AddSkipped(ctx, req.TaskID, path); err != nil {
				log.Error().Err(err).Str("task_id", req.TaskID).Msg("failed to record skipped path")
			}
		}
	}

	if p.uploader != nil {
		for _, out := range res.Written {
			key := path.Join(p.cfg.UploadPrefix, req.TaskID, filepath.Base(out))
			if err := p.uploader.Upload(ctx, key, out, ""); err != nil {
				log.Error().Err(err).Str("task_id", req.TaskID).Str("key", key).Msg("result upload failed")
			}
		}
	}
}

func (p *Pool) deadLetter(ctx context.Context, payload []byte, reason string) {
	if err := p.q.AddDLQ(ctx, payload, reason); err != nil {
		log.Error().Err(err).Msg("failed to push to DLQ")
	}
}

func (p *Pool) reportDepths() {
	defer p.wg.Done()
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-p.stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			depth, dlq, err := p.q.Depths(ctx)
			cancel()
			if err != nil {
				continue
			}
			metrics.SetQueueDepth("stream", depth)
			metrics.SetQueueDepth("dlq", dlq)
		}
	}
}
