package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"bakery/internal/config"
	"bakery/internal/domain/model"
	repo "bakery/internal/repository"

	"github.com/redis/go-redis/v9"
)

// REDIS_ADDR が設定されているときの接続
func NewRedisClient(cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return client, nil
}

// 商品詳細のキャッシュ（JSONで保存）
type ProductRedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewProductRedisCache(client *redis.Client, ttl time.Duration) *ProductRedisCache {
	return &ProductRedisCache{client: client, ttl: ttl}
}

func productKey(id int64) string {
	return fmt.Sprintf("product:%d", id)
}

func (c *ProductRedisCache) Get(ctx context.Context, id int64) (model.Product, bool, error) {
	data, err := c.client.Get(ctx, productKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return model.Product{}, false, nil
	}
	if err != nil {
		return model.Product{}, false, err
	}

	var p model.Product
	if err := json.Unmarshal(data, &p); err != nil {
		return model.Product{}, false, err
	}
	return p, true, nil
}

func (c *ProductRedisCache) Set(ctx context.Context, p model.Product) error {
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, productKey(p.ID), data, c.ttl).Err()
}

func (c *ProductRedisCache) Invalidate(ctx context.Context, ids ...int64) error {
	if len(ids) == 0 {
		return nil
	}
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, productKey(id))
	}
	return c.client.Del(ctx, keys...).Err()
}

// REDIS_ADDR が空のときに使う。常にミス
type NopProductCache struct{}

func (NopProductCache) Get(ctx context.Context, id int64) (model.Product, bool, error) {
	return model.Product{}, false, nil
}

func (NopProductCache) Set(ctx context.Context, p model.Product) error { return nil }

func (NopProductCache) Invalidate(ctx context.Context, ids ...int64) error { return nil }

var (
	_ repo.ProductCache = (*ProductRedisCache)(nil)
	_ repo.ProductCache = NopProductCache{}
)
