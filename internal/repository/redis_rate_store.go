// internal/repository/redis_rate_store.go
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"currency-conversion/internal/currency"
	"currency-conversion/internal/models"
	"currency-conversion/pkg/redis"
)

const redisKeyPrefix = "fx:"

// RedisRateStore keeps rates in redis without TTL; staleness is judged on UpdatedAt.
type RedisRateStore struct {
	client *redis.Client
}

func NewRedisRateStore(client *redis.Client) *RedisRateStore {
	return &RedisRateStore{client: client}
}

func (s *RedisRateStore) Get(ctx context.Context, base, quote currency.Code) (*models.ExchangeRate, error) {
	data, err := s.client.Get(ctx, redisKeyPrefix+rateKey(base, quote))
	if err != nil {
		if errors.Is(err, redis.ErrKeyNotFound) {
			return nil, ErrRateNotFound
		}
		return nil, err
	}

	var rate models.ExchangeRate
	if err := json.Unmarshal([]byte(data), &rate); err != nil {
		return nil, fmt.Errorf("failed to decode cached rate: %w", err)
	}
	return &rate, nil
}

// Put writes the pair and its inverse in one MULTI/EXEC.
func (s *RedisRateStore) Put(ctx context.Context, rate *models.ExchangeRate) error {
	if err := rate.Validate(); err != nil {
		return err
	}
	inverse := rate.Inverse()

	forwardData, err := json.Marshal(rate)
	if err != nil {
		return fmt.Errorf("failed to marshal rate: %w", err)
	}
	inverseData, err := json.Marshal(inverse)
	if err != nil {
		return fmt.Errorf("failed to marshal inverse rate: %w", err)
	}

	return s.client.SetMany(ctx, map[string]interface{}{
		redisKeyPrefix + rateKey(rate.Base, rate.Quote):       forwardData,
		redisKeyPrefix + rateKey(inverse.Base, inverse.Quote): inverseData,
	})
}
