package integration

import (
	"context"
	"fmt"
	"log"
	"os"
	"testing"
	"time"

	"loan-insights-be/internal/pkg/apperr"
	"loan-insights-be/internal/repository/cache"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisClient(t *testing.T) *redis.Client {
	if err := godotenv.Load("../../.env"); err != nil {
		log.Println("No .env file found, using system env")
	}

	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("Skipping integration test: REDIS_URL not set")
	}

	opt, err := redis.ParseURL(url)
	require.NoError(t, err)

	rdb := redis.NewClient(opt)
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		t.Skipf("Skipping integration test: Redis unreachable: %v", err)
	}
	return rdb
}

func TestThreadCacheRoundTrip(t *testing.T) {
	rdb := newRedisClient(t)
	ctx := context.Background()

	threadCache := cache.NewThreadCache(rdb, 1*time.Minute)
	threadId := fmt.Sprintf("it_%d", time.Now().UnixNano())

	thread := &cache.CachedThread{
		ThreadId: threadId,
		AdminId:  "it-admin",
		ChatName: "integration check",
		Conversations: []cache.CachedConversation{
			{
				ConversationId: threadId + "_c0",
				Query:          "how many loans were disbursed in march",
				Response:       "12 loans",
				Timestamp:      time.Now().UTC().Format(time.RFC3339Nano),
				Cols:           []string{"loan_id"},
				Rows:           12,
			},
		},
	}

	require.NoError(t, threadCache.PutThread(ctx, thread))
	defer threadCache.DeleteThread(ctx, threadId)

	t.Run("Get returns stored thread", func(t *testing.T) {
		got, err := threadCache.GetThread(ctx, threadId)
		require.NoError(t, err)
		assert.Equal(t, "it-admin", got.AdminId)
		require.Len(t, got.Conversations, 1)
		assert.Equal(t, 12, got.Conversations[0].Rows)
	})

	t.Run("Append bumps the list", func(t *testing.T) {
		count, err := threadCache.AppendConversation(ctx, threadId, &cache.CachedConversation{
			ConversationId: threadId + "_c1",
			Query:          "and in april",
			Timestamp:      time.Now().UTC().Format(time.RFC3339Nano),
		})
		require.NoError(t, err)
		assert.Equal(t, int64(2), count)
	})

	t.Run("Recent queries come back oldest first", func(t *testing.T) {
		queries, err := threadCache.GetRecentQueries(ctx, threadId, 5)
		require.NoError(t, err)
		require.Len(t, queries, 2)
		assert.Equal(t, "how many loans were disbursed in march", queries[0])
		assert.Equal(t, "and in april", queries[1])
	})

	t.Run("Delete evicts", func(t *testing.T) {
		require.NoError(t, threadCache.DeleteThread(ctx, threadId))
		_, err := threadCache.GetThread(ctx, threadId)
		assert.True(t, apperr.IsNotFound(err))
	})
}

func TestThreadCacheAppendMissingThread(t *testing.T) {
	rdb := newRedisClient(t)
	ctx := context.Background()

	threadCache := cache.NewThreadCache(rdb, 1*time.Minute)

	_, err := threadCache.AppendConversation(ctx, "never_stored", &cache.CachedConversation{
		ConversationId: "never_stored_c0",
		Timestamp:      time.Now().UTC().Format(time.RFC3339Nano),
	})
	assert.True(t, apperr.IsNotFound(err))
}

func TestThreadCacheSlidingTTL(t *testing.T) {
	rdb := newRedisClient(t)
	ctx := context.Background()

	ttl := 10 * time.Second
	threadCache := cache.NewThreadCache(rdb, ttl)
	threadId := fmt.Sprintf("it_ttl_%d", time.Now().UnixNano())
	threadKey := "admin_thread:" + threadId
	listKey := threadKey + ":conversations"

	require.NoError(t, threadCache.PutThread(ctx, &cache.CachedThread{
		ThreadId: threadId,
		AdminId:  "it-admin",
		ChatName: "ttl check",
		Conversations: []cache.CachedConversation{
			{ConversationId: threadId + "_c0", Query: "q0", Timestamp: time.Now().UTC().Format(time.RFC3339Nano)},
		},
	}))
	defer threadCache.DeleteThread(ctx, threadId)

	// Let the clock eat into the window, then append: both keys must be back
	// at the full TTL, residency follows activity rather than creation.
	time.Sleep(1500 * time.Millisecond)
	before, err := rdb.TTL(ctx, threadKey).Result()
	require.NoError(t, err)
	require.Greater(t, before, time.Duration(0))

	_, err = threadCache.AppendConversation(ctx, threadId, &cache.CachedConversation{
		ConversationId: threadId + "_c1",
		Query:          "q1",
		Timestamp:      time.Now().UTC().Format(time.RFC3339Nano),
	})
	require.NoError(t, err)

	afterThread := rdb.TTL(ctx, threadKey).Val()
	afterList := rdb.TTL(ctx, listKey).Val()
	assert.Greater(t, afterThread, before)
	assert.Greater(t, afterThread, ttl-time.Second)
	assert.Greater(t, afterList, ttl-time.Second)
}

func TestThreadCacheLapsedThread(t *testing.T) {
	rdb := newRedisClient(t)
	ctx := context.Background()

	threadCache := cache.NewThreadCache(rdb, 1*time.Second)
	threadId := fmt.Sprintf("it_lapse_%d", time.Now().UnixNano())

	require.NoError(t, threadCache.PutThread(ctx, &cache.CachedThread{
		ThreadId: threadId,
		AdminId:  "it-admin",
		ChatName: "lapse check",
	}))

	time.Sleep(1500 * time.Millisecond)

	_, err := threadCache.AppendConversation(ctx, threadId, &cache.CachedConversation{
		ConversationId: threadId + "_c0",
		Timestamp:      time.Now().UTC().Format(time.RFC3339Nano),
	})
	assert.True(t, apperr.IsNotFound(err))

	_, err = threadCache.GetThread(ctx, threadId)
	assert.True(t, apperr.IsNotFound(err))
}

func TestThreadCacheExportReference(t *testing.T) {
	rdb := newRedisClient(t)
	ctx := context.Background()

	threadCache := cache.NewThreadCache(rdb, 1*time.Minute)
	conversationId := fmt.Sprintf("it_export_%d", time.Now().UnixNano())

	require.NoError(t, threadCache.PutExportReference(ctx, conversationId, "/tmp/"+conversationId+".xlsx"))

	path, err := threadCache.GetExportReference(ctx, conversationId)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/"+conversationId+".xlsx", path)

	missing, err := threadCache.GetExportReference(ctx, "no_such_export")
	require.NoError(t, err)
	assert.Empty(t, missing)
}
