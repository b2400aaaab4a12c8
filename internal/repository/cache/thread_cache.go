package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"loan-insights-be/internal/pkg/apperr"

	"github.com/redis/go-redis/v9"
)

// CachedConversation is the JSON shape pushed onto the per-thread Redis list.
type CachedConversation struct {
	ConversationId string   `json:"conversation_id"`
	Query          string   `json:"query"`
	Response       string   `json:"response"`
	Visualization  *string  `json:"visualization,omitempty"`
	Timestamp      string   `json:"timestamp"` // RFC3339
	DataType       []string `json:"data_type"`
	Cols           []string `json:"cols"`
	Rows           int      `json:"rows"`
	ExcelPath      string   `json:"excel_path,omitempty"`
}

type CachedThread struct {
	ThreadId      string
	AdminId       string
	ChatName      string
	Conversations []CachedConversation
}

type IThreadCache interface {
	PutThread(ctx context.Context, thread *CachedThread) error
	AppendConversation(ctx context.Context, threadId string, conv *CachedConversation) (int64, error)
	GetThread(ctx context.Context, threadId string) (*CachedThread, error)
	DeleteThread(ctx context.Context, threadId string) error
	PutExportReference(ctx context.Context, conversationId, path string) error
	GetExportReference(ctx context.Context, conversationId string) (string, error)
	GetRecentQueries(ctx context.Context, threadId string, n int) ([]string, error)
}

// ThreadCache is the hot tier for in-progress threads. Every mutating
// operation refreshes a shared sliding TTL on both keys of a thread, so cache
// residency follows the most recent activity rather than creation time.
type ThreadCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewThreadCache(rdb *redis.Client, ttl time.Duration) IThreadCache {
	return &ThreadCache{
		rdb: rdb,
		ttl: ttl,
	}
}

func threadKey(threadId string) string {
	return "admin_thread:" + threadId
}

func conversationsKey(threadId string) string {
	return threadKey(threadId) + ":conversations"
}

func exportKey(conversationId string) string {
	return "excel:" + conversationId
}

func (c *ThreadCache) PutThread(ctx context.Context, thread *CachedThread) error {
	key := threadKey(thread.ThreadId)
	listKey := conversationsKey(thread.ThreadId)

	fields := map[string]interface{}{
		"thread_id": thread.ThreadId,
		"admin_id":  thread.AdminId,
		"chat_name": thread.ChatName,
	}
	if err := c.rdb.HSet(ctx, key, fields).Err(); err != nil {
		return apperr.Upstream("cache put thread", err)
	}
	if err := c.rdb.Expire(ctx, key, c.ttl).Err(); err != nil {
		return apperr.Upstream("cache put thread expire", err)
	}

	for i := range thread.Conversations {
		raw, err := json.Marshal(&thread.Conversations[i])
		if err != nil {
			return fmt.Errorf("marshal conversation: %w", err)
		}
		if err := c.rdb.RPush(ctx, listKey, raw).Err(); err != nil {
			return apperr.Upstream("cache push conversation", err)
		}
	}
	if err := c.rdb.Expire(ctx, listKey, c.ttl).Err(); err != nil {
		return apperr.Upstream("cache conversations expire", err)
	}

	return nil
}

func (c *ThreadCache) AppendConversation(ctx context.Context, threadId string, conv *CachedConversation) (int64, error) {
	key := threadKey(threadId)
	listKey := conversationsKey(threadId)

	// Appending to a thread with no metadata record would orphan the list, so
	// presence is required here.
	exists, err := c.rdb.Exists(ctx, key).Result()
	if err != nil {
		return 0, apperr.Upstream("cache existence check", err)
	}
	if exists == 0 {
		return 0, apperr.NotFound("thread %s not in cache", threadId)
	}

	raw, err := json.Marshal(conv)
	if err != nil {
		return 0, fmt.Errorf("marshal conversation: %w", err)
	}

	if err := c.rdb.RPush(ctx, listKey, raw).Err(); err != nil {
		return 0, apperr.Upstream("cache append conversation", err)
	}

	// Refresh the sliding TTL on both keys
	if err := c.rdb.Expire(ctx, listKey, c.ttl).Err(); err != nil {
		return 0, apperr.Upstream("cache conversations expire", err)
	}
	if err := c.rdb.Expire(ctx, key, c.ttl).Err(); err != nil {
		return 0, apperr.Upstream("cache thread expire", err)
	}

	count, err := c.rdb.LLen(ctx, listKey).Result()
	if err != nil {
		return 0, apperr.Upstream("cache conversation count", err)
	}
	return count, nil
}

func (c *ThreadCache) GetThread(ctx context.Context, threadId string) (*CachedThread, error) {
	key := threadKey(threadId)

	exists, err := c.rdb.Exists(ctx, key).Result()
	if err != nil {
		return nil, apperr.Upstream("cache existence check", err)
	}
	if exists == 0 {
		return nil, apperr.NotFound("thread %s not in cache", threadId)
	}

	fields, err := c.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, apperr.Upstream("cache get thread", err)
	}

	rawConvs, err := c.rdb.LRange(ctx, conversationsKey(threadId), 0, -1).Result()
	if err != nil {
		return nil, apperr.Upstream("cache get conversations", err)
	}

	thread := &CachedThread{
		ThreadId:      fields["thread_id"],
		AdminId:       fields["admin_id"],
		ChatName:      fields["chat_name"],
		Conversations: make([]CachedConversation, 0, len(rawConvs)),
	}

	for _, raw := range rawConvs {
		var conv CachedConversation
		if err := json.Unmarshal([]byte(raw), &conv); err != nil {
			return nil, fmt.Errorf("unmarshal cached conversation: %w", err)
		}
		// Augment with the export artifact if one was registered after the
		// conversation was cached.
		if conv.ExcelPath == "" {
			if path, err := c.GetExportReference(ctx, conv.ConversationId); err == nil && path != "" {
				conv.ExcelPath = path
			}
		}
		thread.Conversations = append(thread.Conversations, conv)
	}

	return thread, nil
}

func (c *ThreadCache) DeleteThread(ctx context.Context, threadId string) error {
	key := threadKey(threadId)

	exists, err := c.rdb.Exists(ctx, key).Result()
	if err != nil {
		return apperr.Upstream("cache existence check", err)
	}
	if exists == 0 {
		return apperr.NotFound("thread %s not in cache", threadId)
	}

	if err := c.rdb.Del(ctx, key, conversationsKey(threadId)).Err(); err != nil {
		return apperr.Upstream("cache delete thread", err)
	}
	return nil
}

func (c *ThreadCache) PutExportReference(ctx context.Context, conversationId, path string) error {
	if err := c.rdb.Set(ctx, exportKey(conversationId), path, c.ttl).Err(); err != nil {
		return apperr.Upstream("cache put export reference", err)
	}
	return nil
}

func (c *ThreadCache) GetExportReference(ctx context.Context, conversationId string) (string, error) {
	path, err := c.rdb.Get(ctx, exportKey(conversationId)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", apperr.Upstream("cache get export reference", err)
	}
	return path, nil
}

func (c *ThreadCache) GetRecentQueries(ctx context.Context, threadId string, n int) ([]string, error) {
	if n <= 0 {
		return []string{}, nil
	}

	rawConvs, err := c.rdb.LRange(ctx, conversationsKey(threadId), int64(-n), -1).Result()
	if err != nil {
		return nil, apperr.Upstream("cache recent queries", err)
	}

	// Oldest-to-newest within the selected window
	queries := make([]string, 0, len(rawConvs))
	for _, raw := range rawConvs {
		var conv CachedConversation
		if err := json.Unmarshal([]byte(raw), &conv); err != nil {
			continue
		}
		if conv.Query != "" {
			queries = append(queries, conv.Query)
		}
	}
	return queries, nil
}
