package subscribers

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// fakeRedis serves Get/Set from a map.
type fakeRedis struct {
	values  map[string]string
	getErr  error
	setErr  error
	setKeys []string
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{values: make(map[string]string)}
}

func (f *fakeRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	if f.getErr != nil {
		return redis.NewStringResult("", f.getErr)
	}
	v, ok := f.values[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	if f.setErr != nil {
		return redis.NewStatusResult("", f.setErr)
	}
	switch v := value.(type) {
	case []byte:
		f.values[key] = string(v)
	case string:
		f.values[key] = v
	}
	f.setKeys = append(f.setKeys, key)
	return redis.NewStatusResult("OK", nil)
}
