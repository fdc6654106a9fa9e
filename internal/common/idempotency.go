package common

import (
	"context"
	"net/http"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// IdempotencyHeader carries the client-chosen submission key.
const IdempotencyHeader = "Idempotency-Key"

type idempotencyKeyCtx struct{}

// WithIdempotencyKey stores the submission key on ctx for outbound calls.
func WithIdempotencyKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, idempotencyKeyCtx{}, key)
}

// IdempotencyKey returns the submission key stored on ctx.
func IdempotencyKey(ctx context.Context) (string, bool) {
	key, ok := ctx.Value(idempotencyKeyCtx{}).(string)
	return key, ok && key != ""
}

// Idem provides an Idempotency-Key middleware backed by Redis. A key stays
// claimed while its request is in flight and after it succeeds; a rejected or
// failed request releases the key so the same submission can be retried.
type Idem struct {
	R   *redis.Client
	TTL time.Duration
}

func hashKey(scope, key string) string {
	return "idem:" + Sha256Hex(scope+"|"+key)
}

// Middleware enforces idempotency semantics for write endpoints.
func (i Idem) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get(IdempotencyHeader)
		if header == "" || i.R == nil {
			next.ServeHTTP(w, r)
			return
		}
		ctx := r.Context()
		key := hashKey(r.Method+" "+r.URL.Path, header)
		ok, err := i.R.SetNX(ctx, key, "in_flight", i.ttl()).Result()
		if err != nil {
			JSONError(w, http.StatusServiceUnavailable, "IDEMPOTENCY_UNAVAILABLE", "idempotency store error", nil)
			return
		}
		if !ok {
			state, _ := i.R.Get(ctx, key).Result()
			JSONError(w, http.StatusConflict, "IDEMPOTENT_REPLAY", "duplicate request", map[string]string{"state": state})
			return
		}
		rec := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		defer func() {
			bg := context.Background()
			if rec.status >= http.StatusBadRequest {
				_ = i.R.Del(bg, key).Err()
				return
			}
			_ = i.R.Set(bg, key, "done", i.ttl()).Err()
		}()
		next.ServeHTTP(rec, r.WithContext(WithIdempotencyKey(ctx, header)))
	})
}

func (i Idem) ttl() time.Duration {
	if i.TTL <= 0 {
		return 24 * time.Hour
	}
	return i.TTL
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (s *statusWriter) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}
