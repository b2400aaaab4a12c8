package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"testing"

	"loan-insights-be/internal/entity"
	"loan-insights-be/internal/pkg/apperr"
	"loan-insights-be/internal/pkg/logger"
	"loan-insights-be/internal/repository/cache"
	"loan-insights-be/internal/repository/contract"
	"loan-insights-be/internal/repository/specification"
	"loan-insights-be/internal/repository/unitofwork"
	"loan-insights-be/pkg/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// In-memory durable tier

type memStore struct {
	threads       []*entity.Thread
	conversations []*entity.Conversation
}

type memThreadRepo struct{ store *memStore }

func (r *memThreadRepo) Create(_ context.Context, t *entity.Thread) error {
	cp := *t
	r.store.threads = append(r.store.threads, &cp)
	return nil
}

func (r *memThreadRepo) UpdateEndTimestamp(_ context.Context, threadId string, end time.Time) error {
	for _, t := range r.store.threads {
		if t.ThreadId == threadId {
			e := end
			t.EndTimestamp = &e
			return nil
		}
	}
	return fmt.Errorf("thread %s not found", threadId)
}

func (r *memThreadRepo) FindOne(_ context.Context, specs ...specification.Specification) (*entity.Thread, error) {
	for _, t := range r.store.threads {
		if matchThread(t, specs) {
			cp := *t
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memThreadRepo) FindAll(_ context.Context, specs ...specification.Specification) ([]*entity.Thread, error) {
	var out []*entity.Thread
	for _, t := range r.store.threads {
		if matchThread(t, specs) {
			cp := *t
			out = append(out, &cp)
		}
	}
	for _, s := range specs {
		if o, ok := s.(specification.OrderBy); ok && o.Field == "start_timestamp" {
			sort.SliceStable(out, func(i, j int) bool {
				if o.Desc {
					return out[i].StartTimestamp.After(out[j].StartTimestamp)
				}
				return out[i].StartTimestamp.Before(out[j].StartTimestamp)
			})
		}
	}
	return paginate(out, specs), nil
}

func (r *memThreadRepo) Count(_ context.Context, specs ...specification.Specification) (int64, error) {
	var n int64
	for _, t := range r.store.threads {
		if matchThread(t, specs) {
			n++
		}
	}
	return n, nil
}

type memConversationRepo struct{ store *memStore }

func (r *memConversationRepo) Create(_ context.Context, c *entity.Conversation) error {
	cp := *c
	r.store.conversations = append(r.store.conversations, &cp)
	return nil
}

func (r *memConversationRepo) Exists(_ context.Context, conversationId string) (bool, error) {
	for _, c := range r.store.conversations {
		if c.ConversationId == conversationId {
			return true, nil
		}
	}
	return false, nil
}

func (r *memConversationRepo) FindAll(_ context.Context, specs ...specification.Specification) ([]*entity.Conversation, error) {
	var out []*entity.Conversation
	for _, c := range r.store.conversations {
		if matchConversation(c, specs) {
			cp := *c
			out = append(out, &cp)
		}
	}
	for _, s := range specs {
		if o, ok := s.(specification.OrderBy); ok && o.Field == "timestamp" {
			sort.SliceStable(out, func(i, j int) bool {
				if o.Desc {
					return out[i].Timestamp.After(out[j].Timestamp)
				}
				return out[i].Timestamp.Before(out[j].Timestamp)
			})
		}
	}
	return paginate(out, specs), nil
}

func (r *memConversationRepo) Count(_ context.Context, specs ...specification.Specification) (int64, error) {
	var n int64
	for _, c := range r.store.conversations {
		if matchConversation(c, specs) {
			n++
		}
	}
	return n, nil
}

func matchThread(t *entity.Thread, specs []specification.Specification) bool {
	for _, s := range specs {
		switch v := s.(type) {
		case specification.ByAdminId:
			if t.AdminId != v.AdminId {
				return false
			}
		case specification.ByThreadId:
			if t.ThreadId != v.ThreadId {
				return false
			}
		}
	}
	return true
}

func matchConversation(c *entity.Conversation, specs []specification.Specification) bool {
	for _, s := range specs {
		switch v := s.(type) {
		case specification.ByAdminId:
			if c.AdminId != v.AdminId {
				return false
			}
		case specification.ByThreadId:
			if c.ThreadId != v.ThreadId {
				return false
			}
		}
	}
	return true
}

func paginate[T any](in []T, specs []specification.Specification) []T {
	for _, s := range specs {
		if p, ok := s.(specification.Pagination); ok {
			offset := (p.Page - 1) * p.Limit
			if offset >= len(in) {
				return nil
			}
			end := offset + p.Limit
			if end > len(in) {
				end = len(in)
			}
			return in[offset:end]
		}
	}
	return in
}

type memUnitOfWork struct{ store *memStore }

func (u *memUnitOfWork) Begin(context.Context) error { return nil }
func (u *memUnitOfWork) Commit() error               { return nil }
func (u *memUnitOfWork) Rollback() error             { return nil }
func (u *memUnitOfWork) AdminRepository() contract.AdminRepository {
	return nil
}
func (u *memUnitOfWork) ThreadRepository() contract.ThreadRepository {
	return &memThreadRepo{store: u.store}
}
func (u *memUnitOfWork) ConversationRepository() contract.ConversationRepository {
	return &memConversationRepo{store: u.store}
}

type memFactory struct{ store *memStore }

func (f *memFactory) NewUnitOfWork(context.Context) unitofwork.UnitOfWork {
	return &memUnitOfWork{store: f.store}
}

// In-memory hot tier

type memCache struct {
	threads map[string]*cache.CachedThread
	exports map[string]string

	failAppends bool // simulate an unreachable cache on append
}

func newMemCache() *memCache {
	return &memCache{
		threads: map[string]*cache.CachedThread{},
		exports: map[string]string{},
	}
}

func (m *memCache) PutThread(_ context.Context, t *cache.CachedThread) error {
	cp := *t
	cp.Conversations = append([]cache.CachedConversation(nil), t.Conversations...)
	m.threads[t.ThreadId] = &cp
	return nil
}

func (m *memCache) AppendConversation(_ context.Context, threadId string, conv *cache.CachedConversation) (int64, error) {
	if m.failAppends {
		return 0, apperr.Upstream("cache append", fmt.Errorf("connection refused"))
	}
	t, ok := m.threads[threadId]
	if !ok {
		return 0, apperr.NotFound("thread %s not cached", threadId)
	}
	t.Conversations = append(t.Conversations, *conv)
	return int64(len(t.Conversations)), nil
}

func (m *memCache) GetThread(_ context.Context, threadId string) (*cache.CachedThread, error) {
	t, ok := m.threads[threadId]
	if !ok {
		return nil, apperr.NotFound("thread %s not cached", threadId)
	}
	cp := *t
	cp.Conversations = append([]cache.CachedConversation(nil), t.Conversations...)
	return &cp, nil
}

func (m *memCache) DeleteThread(_ context.Context, threadId string) error {
	delete(m.threads, threadId)
	return nil
}

func (m *memCache) PutExportReference(_ context.Context, conversationId, path string) error {
	m.exports[conversationId] = path
	return nil
}

func (m *memCache) GetExportReference(_ context.Context, conversationId string) (string, error) {
	return m.exports[conversationId], nil
}

func (m *memCache) GetRecentQueries(_ context.Context, threadId string, n int) ([]string, error) {
	t, ok := m.threads[threadId]
	if !ok {
		return nil, nil
	}
	var out []string
	for _, c := range t.Conversations {
		out = append(out, c.Query)
	}
	if len(out) > n {
		out = out[len(out)-n:]
	}
	return out, nil
}

type memAuditPublisher struct {
	published []events.Event
}

func (m *memAuditPublisher) Publish(_ context.Context, e events.Event) error {
	m.published = append(m.published, e)
	return nil
}

func newTestService() (IThreadService, *memStore, *memCache) {
	svc, store, hot, _ := newTestServiceWithAudit()
	return svc, store, hot
}

func newTestServiceWithAudit() (IThreadService, *memStore, *memCache, *memAuditPublisher) {
	store := &memStore{}
	hot := newMemCache()
	audit := &memAuditPublisher{}
	svc := NewThreadService(&memFactory{store: store}, hot, audit, "exports", logger.NewNopLogger())
	return svc, store, hot, audit
}

func input(query string) *ConversationInput {
	return &ConversationInput{
		Query:    query,
		Response: "answer to " + query,
		DataType: []string{"int64"},
		Cols:     []string{"total"},
		Rows:     1,
	}
}

func TestCreateOrAppend_NewThread(t *testing.T) {
	svc, store, hot := newTestService()
	ctx := context.Background()

	res, err := svc.CreateOrAppend(ctx, "admin-1", "", input("total disbursed this month"))
	require.NoError(t, err)
	require.NotEmpty(t, res.ThreadId)
	require.NotEmpty(t, res.ConversationId)
	require.NotNil(t, res.ConversationCount)
	assert.Equal(t, int64(1), *res.ConversationCount)

	require.Len(t, store.threads, 1)
	require.Len(t, store.conversations, 1)
	assert.Equal(t, "total disbursed this month", store.threads[0].ChatName)
	require.NotNil(t, store.threads[0].EndTimestamp)

	cached, err := hot.GetThread(ctx, res.ThreadId)
	require.NoError(t, err)
	assert.Len(t, cached.Conversations, 1)
}

func TestCreateOrAppend_AppendIncrementsCount(t *testing.T) {
	svc, store, _ := newTestService()
	ctx := context.Background()

	first, err := svc.CreateOrAppend(ctx, "admin-1", "", input("q1"))
	require.NoError(t, err)

	second, err := svc.CreateOrAppend(ctx, "admin-1", first.ThreadId, input("q2"))
	require.NoError(t, err)
	require.NotNil(t, second.ConversationCount)
	assert.Equal(t, int64(2), *second.ConversationCount)

	require.Len(t, store.conversations, 2)
	assert.Equal(t, first.ThreadId, store.conversations[1].ThreadId)
	assert.True(t, store.threads[0].EndTimestamp.Equal(store.conversations[1].Timestamp))
}

func TestCreateOrAppend_RecordsExportPath(t *testing.T) {
	svc, store, _ := newTestService()
	ctx := context.Background()

	first, err := svc.CreateOrAppend(ctx, "admin-1", "", input("q1"))
	require.NoError(t, err)

	second, err := svc.CreateOrAppend(ctx, "admin-1", first.ThreadId, input("q2"))
	require.NoError(t, err)

	// The workbook lands asynchronously, but its location is fixed at insert
	// time so history listings keep pointing at it after the cache expires.
	require.Len(t, store.conversations, 2)
	assert.Equal(t, "exports/"+first.ConversationId+".xlsx", store.conversations[0].ExcelPath)
	assert.Equal(t, "exports/"+second.ConversationId+".xlsx", store.conversations[1].ExcelPath)
}

func TestCreateOrAppend_NoExportPathWithoutRows(t *testing.T) {
	svc, store, _ := newTestService()

	in := input("q1")
	in.Rows = 0
	_, err := svc.CreateOrAppend(context.Background(), "admin-1", "", in)
	require.NoError(t, err)

	// Nothing is exported for an empty result set, so no path is promised.
	require.Len(t, store.conversations, 1)
	assert.Empty(t, store.conversations[0].ExcelPath)
}

func TestCreateOrAppend_UnknownThread(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.CreateOrAppend(context.Background(), "admin-1", "missing", input("q"))
	require.Error(t, err)
	assert.True(t, apperr.IsNotFound(err))
}

func TestCreateOrAppend_WrongAdminIsNotFound(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	res, err := svc.CreateOrAppend(ctx, "admin-1", "", input("q1"))
	require.NoError(t, err)

	_, err = svc.CreateOrAppend(ctx, "admin-2", res.ThreadId, input("q2"))
	require.Error(t, err)
	assert.True(t, apperr.IsNotFound(err))
}

func TestCreateOrAppend_RehydratesEvictedThread(t *testing.T) {
	svc, store, hot := newTestService()
	ctx := context.Background()

	res, err := svc.CreateOrAppend(ctx, "admin-1", "", input("q1"))
	require.NoError(t, err)

	// Simulate TTL expiry of the hot record.
	require.NoError(t, hot.DeleteThread(ctx, res.ThreadId))

	second, err := svc.CreateOrAppend(ctx, "admin-1", res.ThreadId, input("q2"))
	require.NoError(t, err)

	// Durable tier has both rows and reports the honest count.
	require.Len(t, store.conversations, 2)
	require.NotNil(t, second.ConversationCount)
	assert.Equal(t, int64(2), *second.ConversationCount)

	// The rehydrated record holds only the tail conversation.
	cached, err := hot.GetThread(ctx, res.ThreadId)
	require.NoError(t, err)
	require.Len(t, cached.Conversations, 1)
	assert.Equal(t, "q2", cached.Conversations[0].Query)
}

func TestCreateOrAppend_CacheFailureIsPartial(t *testing.T) {
	svc, store, hot := newTestService()
	ctx := context.Background()

	res, err := svc.CreateOrAppend(ctx, "admin-1", "", input("q1"))
	require.NoError(t, err)

	hot.failAppends = true
	second, err := svc.CreateOrAppend(ctx, "admin-1", res.ThreadId, input("q2"))
	require.NoError(t, err)

	assert.Nil(t, second.ConversationCount)
	assert.Len(t, store.conversations, 2)
}

func TestListThreads_PaginationAndOrder(t *testing.T) {
	svc, store, _ := newTestService()
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 23; i++ {
		store.threads = append(store.threads, &entity.Thread{
			ThreadId:       fmt.Sprintf("t-%02d", i),
			AdminId:        "admin-1",
			ChatName:       fmt.Sprintf("chat %d", i),
			StartTimestamp: base.Add(time.Duration(i) * time.Minute),
		})
	}

	page1, err := svc.ListThreads(ctx, "admin-1", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(23), page1.TotalThreads)
	assert.Equal(t, int64(3), page1.TotalPages)
	require.Len(t, page1.Threads, 10)
	assert.Equal(t, "t-00", page1.Threads[0].ThreadId)

	page3, err := svc.ListThreads(ctx, "admin-1", 3, 10)
	require.NoError(t, err)
	assert.Len(t, page3.Threads, 3)

	page4, err := svc.ListThreads(ctx, "admin-1", 4, 10)
	require.NoError(t, err)
	assert.Empty(t, page4.Threads)
	assert.Equal(t, int64(3), page4.TotalPages)
}

func TestListThreads_InvalidPagination(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.ListThreads(context.Background(), "admin-1", 0, 10)
	require.Error(t, err)
	assert.True(t, apperr.IsValidation(err))

	_, err = svc.ListThreads(context.Background(), "admin-1", 1, 0)
	require.Error(t, err)
	assert.True(t, apperr.IsValidation(err))
}

func TestListConversations_NewestFirst(t *testing.T) {
	svc, store, _ := newTestService()
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		store.conversations = append(store.conversations, &entity.Conversation{
			ConversationId: fmt.Sprintf("c-%d", i),
			ThreadId:       "t-1",
			AdminId:        "admin-1",
			Query:          fmt.Sprintf("q%d", i),
			Timestamp:      base.Add(time.Duration(i) * time.Minute),
		})
	}

	res, err := svc.ListConversations(ctx, "admin-1", "t-1", 1, 10)
	require.NoError(t, err)
	require.Len(t, res.Conversations, 3)
	assert.Equal(t, "c-2", res.Conversations[0].ConversationId)
	assert.Equal(t, "c-0", res.Conversations[2].ConversationId)
	assert.Equal(t, int64(3), res.TotalConversations)
	assert.Equal(t, int64(1), res.TotalPages)
}

func TestListConversations_ScopedToAdmin(t *testing.T) {
	svc, store, _ := newTestService()

	store.conversations = append(store.conversations, &entity.Conversation{
		ConversationId: "c-1",
		ThreadId:       "t-1",
		AdminId:        "admin-2",
		Timestamp:      time.Now().UTC(),
	})

	res, err := svc.ListConversations(context.Background(), "admin-1", "t-1", 1, 10)
	require.NoError(t, err)
	assert.Empty(t, res.Conversations)
	assert.Equal(t, int64(0), res.TotalPages)
}

func seedCachedThread(hot *memCache, threadId string, convs int) {
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	cached := &cache.CachedThread{
		ThreadId: threadId,
		AdminId:  "admin-1",
		ChatName: "seeded",
	}
	for i := 0; i < convs; i++ {
		cached.Conversations = append(cached.Conversations, cache.CachedConversation{
			ConversationId: fmt.Sprintf("%s-c%d", threadId, i),
			Query:          fmt.Sprintf("q%d", i),
			Response:       "r",
			Timestamp:      base.Add(time.Duration(i) * time.Minute).Format(time.RFC3339Nano),
		})
	}
	hot.threads[threadId] = cached
}

func TestMigrate_IsIdempotent(t *testing.T) {
	svc, store, hot := newTestService()
	ctx := context.Background()

	seedCachedThread(hot, "t-1", 2)

	require.NoError(t, svc.Migrate(ctx, "t-1"))
	require.NoError(t, svc.Migrate(ctx, "t-1"))

	assert.Len(t, store.threads, 1)
	assert.Len(t, store.conversations, 2)
}

func TestMigrate_DerivesThreadSpan(t *testing.T) {
	svc, store, hot := newTestService()
	ctx := context.Background()

	seedCachedThread(hot, "t-1", 3)
	require.NoError(t, svc.Migrate(ctx, "t-1"))

	require.Len(t, store.threads, 1)
	migrated := store.threads[0]

	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	assert.True(t, migrated.StartTimestamp.Equal(base))
	require.NotNil(t, migrated.EndTimestamp)
	assert.True(t, migrated.EndTimestamp.Equal(base.Add(2*time.Minute)))
}

func TestMigrate_SkipsExistingRows(t *testing.T) {
	svc, store, hot := newTestService()
	ctx := context.Background()

	seedCachedThread(hot, "t-1", 2)
	require.NoError(t, svc.Migrate(ctx, "t-1"))

	// A third exchange lands in the cache after the first migration.
	hot.threads["t-1"].Conversations = append(hot.threads["t-1"].Conversations, cache.CachedConversation{
		ConversationId: "t-1-c2",
		Query:          "q2",
		Timestamp:      time.Now().UTC().Format(time.RFC3339Nano),
	})

	require.NoError(t, svc.Migrate(ctx, "t-1"))
	assert.Len(t, store.threads, 1)
	assert.Len(t, store.conversations, 3)
}

func TestMigrate_MissingThread(t *testing.T) {
	svc, _, _ := newTestService()

	err := svc.Migrate(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, apperr.IsNotFound(err))
}

func TestMigrateAndEvict(t *testing.T) {
	svc, store, hot := newTestService()
	ctx := context.Background()

	seedCachedThread(hot, "t-1", 2)
	require.NoError(t, svc.MigrateAndEvict(ctx, "t-1"))

	assert.Len(t, store.threads, 1)
	assert.Len(t, store.conversations, 2)

	_, err := hot.GetThread(ctx, "t-1")
	assert.True(t, apperr.IsNotFound(err))
}

func TestMigrateAndEvict_PublishesAuditEvent(t *testing.T) {
	svc, _, hot, audit := newTestServiceWithAudit()
	ctx := context.Background()

	seedCachedThread(hot, "t-1", 2)
	require.NoError(t, svc.MigrateAndEvict(ctx, "t-1"))

	require.Len(t, audit.published, 1)
	assert.Equal(t, events.TypeThreadMigrated, audit.published[0].EventType())
	assert.Equal(t, "t-1", audit.published[0].Payload()["thread_id"])
}

func TestMigrateAndEvict_MissingThreadPublishesNothing(t *testing.T) {
	svc, _, _, audit := newTestServiceWithAudit()

	err := svc.MigrateAndEvict(context.Background(), "missing")
	require.Error(t, err)
	assert.Empty(t, audit.published)
}

func TestMigrateAndEvict_MissingThreadSkipsEviction(t *testing.T) {
	svc, store, _ := newTestService()

	err := svc.MigrateAndEvict(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, apperr.IsNotFound(err))
	assert.Empty(t, store.threads)
}

func TestRecentQueries(t *testing.T) {
	svc, _, hot := newTestService()
	ctx := context.Background()

	seedCachedThread(hot, "t-1", 7)

	queries, err := svc.RecentQueries(ctx, "t-1", 5)
	require.NoError(t, err)
	require.Len(t, queries, 5)
	assert.Equal(t, "q2", queries[0])
	assert.Equal(t, "q6", queries[4])
}

func TestExportReferenceRoundTrip(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	require.NoError(t, svc.RegisterExport(ctx, "c-1", "/exports/c-1.xlsx"))

	path, err := svc.ExportPath(ctx, "c-1")
	require.NoError(t, err)
	assert.Equal(t, "/exports/c-1.xlsx", path)
}
