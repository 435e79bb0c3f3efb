package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"momo-gateway/internal/models"
	"momo-gateway/internal/repositories/interfaces"
)

const (
	paymentKeyPrefix = "momo:payment:"
	pendingSetKey    = "momo:payments:pending"

	maxUpdateAttempts = 5
)

type Options struct {
	Host         string
	Port         int
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	RecordTTL    time.Duration
}

var _ interfaces.PaymentRepository = (*RedisStore)(nil)

type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	now    func() time.Time

	// beforeCommit runs between the read and the write of UpdateStatus.
	beforeCommit func(referenceID string)
}

func NewRedisStore(ctx context.Context, opts *Options) (*RedisStore, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", opts.Host, opts.Port),
		Password:     opts.Password,
		DB:           opts.DB,
		PoolSize:     opts.PoolSize,
		MinIdleConns: opts.MinIdleConns,
		DialTimeout:  opts.DialTimeout,
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.WriteTimeout,
	})

	s := NewRedisStoreWithClient(rdb, opts.RecordTTL)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := s.Ping(pingCtx); err != nil {
		_ = rdb.Close()
		return nil, err
	}

	return s, nil
}

// NewRedisStoreWithClient wraps an existing client. A zero ttl keeps records
// forever.
func NewRedisStoreWithClient(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl, now: time.Now}
}

func paymentKey(referenceID string) string {
	return paymentKeyPrefix + referenceID
}

// Save writes the record and keeps the pending index in step with its status.
func (s *RedisStore) Save(ctx context.Context, record *models.Payment) error {
	if record.ReferenceID == "" {
		return errors.New("store: payment record has no reference id")
	}

	data, err := s.encode(record)
	if err != nil {
		return err
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		s.queueWrite(ctx, pipe, record, data)
		return nil
	})
	if err != nil {
		return fmt.Errorf("store: failed to save payment %s: %w", record.ReferenceID, err)
	}

	return nil
}

func (s *RedisStore) encode(record *models.Payment) ([]byte, error) {
	now := s.now().UTC()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now

	data, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("store: failed to marshal payment %s: %w", record.ReferenceID, err)
	}
	return data, nil
}

func (s *RedisStore) queueWrite(ctx context.Context, pipe redis.Pipeliner, record *models.Payment, data []byte) {
	pipe.Set(ctx, paymentKey(record.ReferenceID), data, s.ttl)
	if record.Status.IsFinal() {
		pipe.SRem(ctx, pendingSetKey, record.ReferenceID)
	} else {
		pipe.SAdd(ctx, pendingSetKey, record.ReferenceID)
	}
}

func decode(referenceID string, data []byte) (*models.Payment, error) {
	var record models.Payment
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("store: failed to decode payment %s: %w", referenceID, err)
	}
	return &record, nil
}

func (s *RedisStore) Get(ctx context.Context, referenceID string) (*models.Payment, error) {
	data, err := s.client.Get(ctx, paymentKey(referenceID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, interfaces.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: failed to load payment %s: %w", referenceID, err)
	}

	return decode(referenceID, data)
}

// UpdateStatus applies update to the stored record. changed is false when the
// record already carried the same status. The read and the write run under
// WATCH, so a concurrent writer forces a fresh read; final statuses are never
// overwritten.
func (s *RedisStore) UpdateStatus(ctx context.Context, referenceID string, update models.PaymentStatusUpdate) (*models.Payment, bool, error) {
	key := paymentKey(referenceID)

	var (
		record  *models.Payment
		changed bool
	)
	apply := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return interfaces.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("store: failed to load payment %s: %w", referenceID, err)
		}

		record, err = decode(referenceID, data)
		if err != nil {
			return err
		}
		changed = false
		if record.Status.IsFinal() {
			return nil
		}

		changed = record.Status != update.Status
		record.Status = update.Status
		if update.Reason != "" {
			record.Reason = update.Reason
		}
		if update.FinancialTransactionID != "" {
			record.FinancialTransactionID = update.FinancialTransactionID
		}

		if s.beforeCommit != nil {
			s.beforeCommit(referenceID)
		}

		data, err = s.encode(record)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			s.queueWrite(ctx, pipe, record, data)
			return nil
		})
		return err
	}

	var err error
	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		err = s.client.Watch(ctx, apply, key)
		if !errors.Is(err, redis.TxFailedErr) {
			break
		}
	}
	switch {
	case errors.Is(err, interfaces.ErrNotFound):
		return nil, false, err
	case err != nil:
		return nil, false, fmt.Errorf("store: failed to update payment %s: %w", referenceID, err)
	}

	return record, changed, nil
}

// ListPending returns pending records oldest first. Index entries whose record
// has expired are dropped.
func (s *RedisStore) ListPending(ctx context.Context) ([]*models.Payment, error) {
	ids, err := s.client.SMembers(ctx, pendingSetKey).Result()
	if err != nil {
		return nil, fmt.Errorf("store: failed to list pending payments: %w", err)
	}

	records := make([]*models.Payment, 0, len(ids))
	for _, id := range ids {
		record, err := s.Get(ctx, id)
		if errors.Is(err, interfaces.ErrNotFound) {
			if err := s.client.SRem(ctx, pendingSetKey, id).Err(); err != nil {
				return nil, fmt.Errorf("store: failed to drop expired payment %s: %w", id, err)
			}
			continue
		}
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].CreatedAt.Before(records[j].CreatedAt)
	})

	return records, nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
