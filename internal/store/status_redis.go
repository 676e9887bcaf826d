// Package store persists task status and output records in Redis so
// API clients can poll queued and running tasks.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// Status is the externally visible state of a task.
type Status struct {
	State    string         `json:"state"`
	Kind     string         `json:"kind"`
	Done     int            `json:"done"`
	Total    int            `json:"total"`
	Units    int            `json:"units"`
	Message  string         `json:"message,omitempty"`
	Start    *time.Time     `json:"start_time,omitempty"`
	End      *time.Time     `json:"end_time,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// TaskStore keeps one Redis hash per task.
type TaskStore struct {
	client *redis.Client
	keyNS  string
	ttl    time.Duration
}

func NewTaskStore(redisURL string) (*TaskStore, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	c := redis.NewClient(opt)
	if err := c.Ping(context.Background()).Err(); err != nil {
		return nil, err
	}
	return &TaskStore{client: c, keyNS: "task", ttl: 7 * 24 * time.Hour}, nil
}

func (s *TaskStore) key(taskID string) string { return fmt.Sprintf("%s:%s:status", s.keyNS, taskID) }

func (s *TaskStore) Set(ctx context.Context, taskID string, st Status) error {
	m := map[string]any{
		"state":   st.State,
		"kind":    st.Kind,
		"done":    st.Done,
		"total":   st.Total,
		"units":   st.Units,
		"message": st.Message,
	}
	if st.Start != nil {
		m["start"] = st.Start.Format(time.RFC3339Nano)
	}
	if st.End != nil {
		m["end"] = st.End.Format(time.RFC3339Nano)
	}
	if st.Metadata != nil {
		b, _ := json.Marshal(st.Metadata)
		m["metadata"] = string(b)
	}
	key := s.key(taskID)
	if err := s.client.HSet(ctx, key, m).Err(); err != nil {
		return err
	}
	return s.client.Expire(ctx, key, s.ttl).Err()
}

func (s *TaskStore) Get(ctx context.Context, taskID string) (Status, bool, error) {
	res, err := s.client.HGetAll(ctx, s.key(taskID)).Result()
	if err != nil {
		return Status{}, false, err
	}
	if len(res) == 0 {
		return Status{}, false, nil
	}
	st := Status{
		State:   res["state"],
		Kind:    res["kind"],
		Message: res["message"],
	}
	fmt.Sscan(res["done"], &st.Done)
	fmt.Sscan(res["total"], &st.Total)
	fmt.Sscan(res["units"], &st.Units)
	if v := res["start"]; v != "" {
		if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
			st.Start = &t
		}
	}
	if v := res["end"]; v != "" {
		if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
			st.End = &t
		}
	}
	if v := res["metadata"]; v != "" {
		_ = json.Unmarshal([]byte(v), &st.Metadata)
	}
	return st, true, nil
}

func (s *TaskStore) Close() error { return s.client.Close() }

// Client returns the underlying Redis client
func (s *TaskStore) Client() *redis.Client { return s.client }
