package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/BerylCAtieno/synthsense-agent/internal/chat"
	"github.com/BerylCAtieno/synthsense-agent/internal/persona"
	"github.com/BerylCAtieno/synthsense-agent/internal/simulation"
)

const keyPrefix = "synthsense:"

type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	// TTL applies to results and cohorts. Zero keeps them forever.
	TTL time.Duration
}

type Redis struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedis(ctx context.Context, opts RedisOptions) (*Redis, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("could not connect to redis at %s: %w", opts.Addr, err)
	}
	return &Redis{rdb: rdb, ttl: opts.TTL}, nil
}

func resultKey(id string) string       { return keyPrefix + "result:" + id }
func cohortKey(id string) string       { return keyPrefix + "cohort:" + id }
func conversationKey(id string) string { return keyPrefix + "chat:" + id }

func (r *Redis) Ping(ctx context.Context) error {
	return r.rdb.Ping(ctx).Err()
}

func (r *Redis) Close() error {
	return r.rdb.Close()
}

func (r *Redis) SaveResult(ctx context.Context, result *simulation.Result) error {
	return r.setJSON(ctx, resultKey(result.ExperimentID), result)
}

func (r *Redis) Result(ctx context.Context, experimentID string) (*simulation.Result, error) {
	var result simulation.Result
	if err := r.getJSON(ctx, resultKey(experimentID), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *Redis) SaveCohort(ctx context.Context, cohort *persona.Cohort) error {
	return r.setJSON(ctx, cohortKey(cohort.JobID), cohort)
}

func (r *Redis) Cohort(ctx context.Context, jobID string) (*persona.Cohort, error) {
	var cohort persona.Cohort
	if err := r.getJSON(ctx, cohortKey(jobID), &cohort); err != nil {
		return nil, err
	}
	return &cohort, nil
}

func (r *Redis) AppendMessage(ctx context.Context, conversationID string, msg chat.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("could not marshal message: %w", err)
	}
	key := conversationKey(conversationID)
	pipe := r.rdb.Pipeline()
	pipe.RPush(ctx, key, data)
	pipe.LTrim(ctx, key, -maxHistory, -1)
	_, err = pipe.Exec(ctx)
	return err
}

func (r *Redis) History(ctx context.Context, conversationID string, limit int) ([]chat.Message, error) {
	if limit <= 0 {
		return []chat.Message{}, nil
	}
	raw, err := r.rdb.LRange(ctx, conversationKey(conversationID), int64(-limit), -1).Result()
	if err != nil {
		return nil, fmt.Errorf("could not load history: %w", err)
	}
	msgs := make([]chat.Message, 0, len(raw))
	for _, item := range raw {
		var m chat.Message
		if err := json.Unmarshal([]byte(item), &m); err != nil {
			return nil, fmt.Errorf("could not unmarshal message: %w", err)
		}
		msgs = append(msgs, m)
	}
	return msgs, nil
}

func (r *Redis) setJSON(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("could not marshal %s: %w", key, err)
	}
	return r.rdb.Set(ctx, key, data, r.ttl).Err()
}

func (r *Redis) getJSON(ctx context.Context, key string, v any) error {
	data, err := r.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("could not load %s: %w", key, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("could not unmarshal %s: %w", key, err)
	}
	return nil
}
