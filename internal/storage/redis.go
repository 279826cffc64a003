package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/terra-clan/daywise/internal/models"
)

const maxWatchRetries = 10

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Address   string
	Password  string
	DB        int
	KeyPrefix string
}

// RedisRepository implements Repository on Redis.
// Each roadmap is a JSON string; a sorted set scored by an INCR counter
// keeps insertion order.
type RedisRepository struct {
	client *redis.Client
	prefix string
}

// NewRedisRepository connects to Redis and verifies the connection
func NewRedisRepository(ctx context.Context, cfg RedisConfig) (*RedisRepository, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = "daywise:"
	}

	return &RedisRepository{client: client, prefix: prefix}, nil
}

func (r *RedisRepository) roadmapKey(id string) string {
	return r.prefix + "roadmap:" + id
}

func (r *RedisRepository) orderKey() string {
	return r.prefix + "roadmaps:order"
}

func (r *RedisRepository) seqKey() string {
	return r.prefix + "roadmaps:seq"
}

// Ping checks Redis connectivity
func (r *RedisRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close closes the client
func (r *RedisRepository) Close() error {
	return r.client.Close()
}

// Save stores the roadmap. ZADD NX keeps the first insertion position.
func (r *RedisRepository) Save(ctx context.Context, roadmap *models.Roadmap) error {
	if err := validateForSave(roadmap); err != nil {
		return err
	}

	data, err := marshalRecord(roadmap)
	if err != nil {
		return err
	}

	seq, err := r.client.Incr(ctx, r.seqKey()).Result()
	if err != nil {
		return fmt.Errorf("failed to allocate sequence: %w", err)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, r.roadmapKey(roadmap.ID), data, 0)
		pipe.ZAddNX(ctx, r.orderKey(), redis.Z{Score: float64(seq), Member: roadmap.ID})
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save roadmap: %w", err)
	}
	return nil
}

// Load retrieves a roadmap by ID
func (r *RedisRepository) Load(ctx context.Context, id string) (*models.Roadmap, error) {
	data, err := r.client.Get(ctx, r.roadmapKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get roadmap: %w", err)
	}
	return unmarshalRecord(data)
}

// LoadAll returns all roadmaps in insertion order
func (r *RedisRepository) LoadAll(ctx context.Context) ([]*models.Roadmap, error) {
	ids, err := r.client.ZRange(ctx, r.orderKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list roadmaps: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.roadmapKey(id)
	}

	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load roadmaps: %w", err)
	}

	roadmaps := make([]*models.Roadmap, 0, len(values))
	for _, v := range values {
		s, ok := v.(string)
		if !ok {
			// Deleted between ZRANGE and MGET.
			continue
		}
		roadmap, err := unmarshalRecord([]byte(s))
		if err != nil {
			return nil, err
		}
		roadmaps = append(roadmaps, roadmap)
	}
	return roadmaps, nil
}

// Delete removes a roadmap and its order entry
func (r *RedisRepository) Delete(ctx context.Context, id string) (bool, error) {
	var del *redis.IntCmd
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		del = pipe.Del(ctx, r.roadmapKey(id))
		pipe.ZRem(ctx, r.orderKey(), id)
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to delete roadmap: %w", err)
	}
	return del.Val() > 0, nil
}

// Update applies fn with optimistic locking, retrying when the key changes
// underneath
func (r *RedisRepository) Update(ctx context.Context, id string, fn UpdateFunc) (*models.Roadmap, error) {
	key := r.roadmapKey(id)

	var result *models.Roadmap
	txf := func(tx *redis.Tx) error {
		result = nil

		data, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return nil
			}
			return err
		}

		current, err := unmarshalRecord(data)
		if err != nil {
			return err
		}

		next, err := fn(current.Clone())
		if err != nil {
			return err
		}
		if next == nil {
			result = current
			return nil
		}

		next = next.Clone()
		next.ID = id
		encoded, err := marshalRecord(next)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, encoded, 0)
			return nil
		})
		if err != nil {
			return err
		}
		result = next
		return nil
	}

	for i := 0; i < maxWatchRetries; i++ {
		err := r.client.Watch(ctx, txf, key)
		if err == nil {
			return result, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return nil, fmt.Errorf("failed to update roadmap: %w", err)
	}
	return nil, fmt.Errorf("failed to update roadmap %s: too much contention", id)
}

func marshalRecord(roadmap *models.Roadmap) ([]byte, error) {
	days := roadmap.Days
	if days == nil {
		days = []models.DayTopics{}
	}
	data, err := json.Marshal(roadmapRecord{
		ID:                 roadmap.ID,
		Name:               roadmap.Name,
		TotalDays:          roadmap.TotalDays,
		Days:               days,
		CreatedAtNano:      unixNano(roadmap.CreatedAt),
		SourceSyllabusName: roadmap.SourceSyllabusName,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal roadmap: %w", err)
	}
	return data, nil
}

func unmarshalRecord(data []byte) (*models.Roadmap, error) {
	var rec roadmapRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal roadmap: %w", err)
	}
	if rec.Days == nil {
		rec.Days = []models.DayTopics{}
	}
	normalizeDays(rec.Days)

	return &models.Roadmap{
		ID:                 rec.ID,
		Name:               rec.Name,
		TotalDays:          rec.TotalDays,
		Days:               rec.Days,
		CreatedAt:          fromUnixNano(rec.CreatedAtNano),
		SourceSyllabusName: rec.SourceSyllabusName,
	}, nil
}
