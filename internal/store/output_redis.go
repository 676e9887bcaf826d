package store

import (
	"context"
	"fmt"

	redis "github.com/redis/go-redis/v9"
)

// OutputStore records the output files a task produced, one Redis list
// per task, so clients can fetch result paths after completion.
type OutputStore struct {
	client *redis.Client
}

func NewOutputStore(redisURL string) (*OutputStore, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	c := redis.NewClient(opt)
	if err := c.Ping(context.Background()).Err(); err != nil {
		return nil, err
	}
	return &OutputStore{client: c}, nil
}

func (s *OutputStore) Close() error { return s.client.Close() }

func (s *OutputStore) outputKey(taskID string) string {
	return fmt.Sprintf("task:%s:outputs", taskID)
}

func (s *OutputStore) skippedKey(taskID string) string {
	return fmt.Sprintf("task:%s:skipped", taskID)
}

// AddOutput appends a written output path to the task's result list.
func (s *OutputStore) AddOutput(ctx context.Context, taskID, path string) error {
	return s.client.RPush(ctx, s.outputKey(taskID), path).Err()
}

// AddSkipped records a destination left untouched by the skip policy.
func (s *OutputStore) AddSkipped(ctx context.Context, taskID, path string) error {
	return s.client.RPush(ctx, s.skippedKey(taskID), path).Err()
}

// Outputs returns all written output paths for a task, in write order.
func (s *OutputStore) Outputs(ctx context.Context, taskID string) ([]string, error) {
	res, err := s.client.LRange(ctx, s.outputKey(taskID), 0, -1).Result()
	if err == redis.Nil {
		return nil, nil
	}
	return res, err
}

// Skipped returns the destinations the skip policy left untouched.
func (s *OutputStore) Skipped(ctx context.Context, taskID string) ([]string, error) {
	res, err := s.client.LRange(ctx, s.skippedKey(taskID), 0, -1).Result()
	if err == redis.Nil {
		return nil, nil
	}
	return res, err
}
