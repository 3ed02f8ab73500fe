package lock

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func getRedisClient(t *testing.T) *redis.Client {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Skipf("Redis no disponible: %v", err)
	}
	return client
}

func TestRedisLocker_Exclusion(t *testing.T) {
	client := getRedisClient(t)
	defer client.Close()
	ctx := context.Background()
	client.Del(ctx, lockKeyPrefix+"test-item")

	locker := NewRedisLocker(client, 5*time.Second)

	var counter int64
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := locker.Lock(ctx, "test-item")
			if !assert.NoError(t, err) {
				return
			}
			// lectura-escritura no atómica protegida por el candado
			v := atomic.LoadInt64(&counter)
			time.Sleep(time.Millisecond)
			atomic.StoreInt64(&counter, v+1)
			unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(20), counter)
	exists, err := client.Exists(ctx, lockKeyPrefix+"test-item").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(0), exists, "la clave se libera al final")
}

func TestRedisLocker_NoLiberaCandadoAjeno(t *testing.T) {
	client := getRedisClient(t)
	defer client.Close()
	ctx := context.Background()
	key := lockKeyPrefix + "test-item-foreign"
	client.Del(ctx, key)

	locker := NewRedisLocker(client, 5*time.Second)
	unlock, err := locker.Lock(ctx, "test-item-foreign")
	require.NoError(t, err)

	// simula expiración y adquisición por otro proceso
	client.Set(ctx, key, "otro-token", 5*time.Second)
	unlock()

	val, err := client.Get(ctx, key).Result()
	require.NoError(t, err)
	assert.Equal(t, "otro-token", val)
	client.Del(ctx, key)
}

func TestRedisLocker_CancelacionDelContexto(t *testing.T) {
	client := getRedisClient(t)
	defer client.Close()
	ctx := context.Background()
	client.Del(ctx, lockKeyPrefix+"test-item-ctx")

	locker := NewRedisLocker(client, 5*time.Second)
	unlock, err := locker.Lock(ctx, "test-item-ctx")
	require.NoError(t, err)
	defer unlock()

	waitCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	_, err = locker.Lock(waitCtx, "test-item-ctx")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
