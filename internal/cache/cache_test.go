package cache

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loved-api/internal/models"
	"loved-api/internal/testutil"
)

func TestSubmissionsReviewsKey(t *testing.T) {
	assert.Equal(t, "submissions:0:reviews", SubmissionsReviewsKey(models.GameModeOsu))
	assert.Equal(t, "submissions:3:reviews", SubmissionsReviewsKey(models.GameModeMania))
}

func TestNewRedisInvalidatorRequiresAddr(t *testing.T) {
	_, err := NewRedisInvalidator(context.Background(), Config{Addrs: []string{" "}})
	assert.Error(t, err)
}

func TestNoopInvalidate(t *testing.T) {
	var inv Invalidator = Noop{}
	inv.Invalidate(context.Background(), KeyMapperConsents)
}

func TestRedisInvalidatorDeletesPrefixedKeys(t *testing.T) {
	addr := testutil.SetupRedis(t)
	ctx := context.Background()

	inv, err := NewRedisInvalidator(ctx, Config{Addrs: []string{addr}, KeyPrefix: "loved:", Timeout: time.Second})
	require.NoError(t, err)
	t.Cleanup(func() { _ = inv.Close() })

	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })

	require.NoError(t, client.Set(ctx, "loved:"+KeyMapperConsents, "cached", 0).Err())
	require.NoError(t, client.Set(ctx, "loved:"+SubmissionsReviewsKey(models.GameModeTaiko), "cached", 0).Err())
	require.NoError(t, client.Set(ctx, "loved:other", "cached", 0).Err())

	recorder := &commandRecorder{}
	inv.client.AddHook(recorder)

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	inv.Invalidate(canceled, KeyMapperConsents, SubmissionsReviewsKey(models.GameModeTaiko))

	assert.Equal(t, [][]any{
		{"del", "loved:" + KeyMapperConsents},
		{"del", "loved:" + SubmissionsReviewsKey(models.GameModeTaiko)},
	}, recorder.commands())

	n, err := client.Exists(ctx, "loved:"+KeyMapperConsents, "loved:"+SubmissionsReviewsKey(models.GameModeTaiko)).Result()
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = client.Exists(ctx, "loved:other").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	assert.NoError(t, inv.Health(ctx))
}

// commandRecorder captures the arguments of DEL commands sent to Redis
type commandRecorder struct {
	mu   sync.Mutex
	cmds [][]any
}

func (r *commandRecorder) record(cmds ...redis.Cmder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, cmd := range cmds {
		if cmd.Name() == "del" {
			r.cmds = append(r.cmds, cmd.Args())
		}
	}
}

func (r *commandRecorder) commands() [][]any {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cmds
}

func (r *commandRecorder) DialHook(next redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		return next(ctx, network, addr)
	}
}

func (r *commandRecorder) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		r.record(cmd)
		return next(ctx, cmd)
	}
}

func (r *commandRecorder) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		r.record(cmds...)
		return next(ctx, cmds)
	}
}
