package store

import (
	"bytes"
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"veil.share/internal/models"
)

var _ Store = (*RedisStore)(nil)

// RedisStore keeps records in Redis with the key TTL mirroring the
// record's expiry, so expired records vanish without a sweep. The
// consume sequence runs inside a WATCH transaction: a concurrent write
// to the same key aborts the transaction and the sequence retries.
type RedisStore struct {
	client *redis.Client
	now    func() time.Time
}

func NewRedisStore(options *redis.Options) (*RedisStore, error) {
	client := redis.NewClient(options)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &RedisStore{client: client, now: time.Now}, nil
}

func (r *RedisStore) Save(ctx context.Context, record *models.SecretRecord) error {
	data, err := encodeRecord(record)
	if err != nil {
		return err
	}

	ttl := record.ExpiresAt.Sub(r.now())
	if ttl <= 0 {
		return ErrUnavailable
	}

	return r.client.Set(ctx, secretKey(record.ID), data, ttl).Err()
}

func (r *RedisStore) PeekMetadata(ctx context.Context, id string) (*models.SecretMetadata, error) {
	record, err := r.get(ctx, id)
	if err != nil {
		return nil, err
	}

	return &models.SecretMetadata{
		HasPassword:    record.HasPassword(),
		ExpiresAt:      record.ExpiresAt,
		RemainingViews: record.MaxViews - record.ViewCount,
		MaxViews:       record.MaxViews,
		ContentType:    record.ContentType,
	}, nil
}

func (r *RedisStore) ConsumeView(ctx context.Context, id, verifier string) (*models.ViewResult, error) {
	key := secretKey(id)
	var result *models.ViewResult

	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return ErrUnavailable
			}
			return err
		}

		record, err := decodeRecord(data)
		if err != nil {
			return err
		}

		if record.ExpiredAt(r.now()) || record.Exhausted() {
			return ErrUnavailable
		}

		if err := checkVerifier(record.VerifierHash, verifier); err != nil {
			return err
		}

		record.ViewCount++
		destroyed := record.Exhausted()

		newData, err := encodeRecord(record)
		if err != nil {
			return err
		}

		ttl := tx.TTL(ctx, key).Val()
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if destroyed {
				pipe.Del(ctx, key)
			} else if ttl > 0 {
				pipe.Set(ctx, key, newData, ttl)
			}
			return nil
		})
		if err != nil {
			return err
		}

		result = &models.ViewResult{
			Ciphertext:     record.Ciphertext,
			IV:             record.IV,
			Salt:           record.Salt,
			ContentType:    record.ContentType,
			RemainingViews: record.MaxViews - record.ViewCount,
			Destroyed:      destroyed,
		}
		return nil
	}

	for i := 0; i < 3; i++ {
		err := r.client.Watch(ctx, txf, key)
		switch {
		case err == nil:
			return result, nil
		case errors.Is(err, redis.TxFailedErr):
			// Lost the race on this key, retry.
			continue
		case errors.Is(err, ErrUnavailable):
			_ = r.Delete(ctx, id)
			return nil, ErrUnavailable
		default:
			return nil, err
		}
	}

	return nil, fmt.Errorf("consume view: %w", redis.TxFailedErr)
}

func (r *RedisStore) Delete(ctx context.Context, id string) error {
	return r.client.Del(ctx, secretKey(id)).Err()
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}

func (r *RedisStore) get(ctx context.Context, id string) (*models.SecretRecord, error) {
	data, err := r.client.Get(ctx, secretKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrUnavailable
		}
		return nil, err
	}

	record, err := decodeRecord(data)
	if err != nil {
		return nil, err
	}

	if record.ExpiredAt(r.now()) || record.Exhausted() {
		_ = r.Delete(ctx, id)
		return nil, ErrUnavailable
	}

	return record, nil
}

// Helpers

func secretKey(id string) string {
	return "secret:" + id
}

func encodeRecord(record *models.SecretRecord) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(record); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeRecord(data []byte) (*models.SecretRecord, error) {
	var record models.SecretRecord
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&record); err != nil {
		return nil, err
	}
	return &record, nil
}
