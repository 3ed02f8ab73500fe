package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/jhoicas/labstock/internal/domain"
)

const (
	lockKeyPrefix     = "labstock:lock:item:"
	defaultLockTTL    = 10 * time.Second
	defaultRetryDelay = 15 * time.Millisecond
	maxRetryDelay     = 250 * time.Millisecond
)

// releaseScript borra la clave solo si el token sigue siendo el nuestro
// (el candado pudo expirar y pasar a otro proceso).
var releaseScript = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
	return redis.call('DEL', KEYS[1])
end
return 0
`)

// RedisLocker candado por artículo compartido entre procesos (SET NX PX + token).
// El TTL acota cuánto puede quedar retenido si el proceso dueño muere.
type RedisLocker struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisLocker construye el candado. ttl <= 0 usa 10s.
func NewRedisLocker(client *redis.Client, ttl time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &RedisLocker{client: client, ttl: ttl}
}

// Lock reintenta con espera creciente hasta obtener el candado o hasta que ctx se cancele.
// Los errores de Redis se clasifican como domain.ErrStorageUnavailable.
func (r *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	redisKey := lockKeyPrefix + key
	token := uuid.New().String()
	delay := defaultRetryDelay

	for {
		ok, err := r.client.SetNX(ctx, redisKey, token, r.ttl).Result()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, fmt.Errorf("%w: redis lock: %v", domain.ErrStorageUnavailable, err)
		}
		if ok {
			break
		}
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
		if delay *= 2; delay > maxRetryDelay {
			delay = maxRetryDelay
		}
	}

	return func() {
		// Liberar aunque el ctx de la petición ya se haya cancelado.
		releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		// Si falla, el TTL libera la clave.
		_ = releaseScript.Run(releaseCtx, r.client, []string{redisKey}, token).Err()
	}, nil
}
