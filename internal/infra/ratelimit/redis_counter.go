package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCounter implementa a janela deslizante do spam guard sobre
// buckets de tempo fixos no Redis. Como o estado vive fora do processo,
// qualquer número de handlers stateless enxerga a mesma contagem.
type RedisCounter struct {
	client  *redis.Client
	bucket  time.Duration
	buckets int
}

func NewRedisCounter(client *redis.Client, bucket time.Duration, buckets int) *RedisCounter {
	return &RedisCounter{client: client, bucket: bucket, buckets: buckets}
}

// IncrAndCount incrementa o bucket corrente e soma os buckets vivos da
// janela. INCR+EXPIRE vão num pipeline só — uma ida ao Redis a mais que
// o MGET, nada de lock.
func (c *RedisCounter) IncrAndCount(ctx context.Context, fingerprint string, now time.Time) (int64, error) {
	current := now.Unix() / int64(c.bucket.Seconds())
	ttl := c.bucket * time.Duration(c.buckets+1)

	pipe := c.client.Pipeline()
	pipe.Incr(ctx, bucketKey(fingerprint, current))
	pipe.Expire(ctx, bucketKey(fingerprint, current), ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("redis pipeline: %w", err)
	}

	keys := make([]string, c.buckets)
	for i := 0; i < c.buckets; i++ {
		keys[i] = bucketKey(fingerprint, current-int64(i))
	}

	values, err := c.client.MGet(ctx, keys...).Result()
	if err != nil {
		return 0, fmt.Errorf("redis mget: %w", err)
	}

	return sumBucketValues(values)
}

// sumBucketValues soma os valores dos buckets do MGET. Bucket inexistente
// vem como nil; qualquer valor que não seja um inteiro indica chave
// corrompida e vira erro em vez de contagem silenciosamente errada.
func sumBucketValues(values []interface{}) (int64, error) {
	var total int64
	for _, v := range values {
		if v == nil {
			continue
		}
		s, ok := v.(string)
		if !ok {
			return 0, fmt.Errorf("redis bucket value has unexpected type %T", v)
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("redis bucket value %q: %w", s, err)
		}
		total += n
	}
	return total, nil
}

func bucketKey(fingerprint string, bucket int64) string {
	return fmt.Sprintf("rl:%s:%d", fingerprint, bucket)
}
