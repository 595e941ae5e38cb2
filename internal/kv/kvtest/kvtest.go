// Package kvtest provides a miniredis-backed kv.Store for tests.
package kvtest

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	"github.com/Champ-Deep/ChampMail-sub000/internal/kv"
)

// NewStore starts an in-process Redis and returns a store backed by it
func NewStore(t *testing.T) (*kv.RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return kv.NewRedisStore(client), mr
}
