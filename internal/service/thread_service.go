package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"time"

	"loan-insights-be/internal/dto"
	"loan-insights-be/internal/entity"
	"loan-insights-be/internal/pkg/apperr"
	"loan-insights-be/internal/pkg/logger"
	"loan-insights-be/internal/repository/cache"
	"loan-insights-be/internal/repository/specification"
	"loan-insights-be/internal/repository/unitofwork"
	"loan-insights-be/pkg/events"
)

// ConversationInput carries everything the orchestrator learned about one
// exchange before it is persisted.
type ConversationInput struct {
	Query         string
	Response      string
	Visualization *string
	DataType      []string
	Cols          []string
	Rows          int
	ExcelPath     string
}

type IThreadService interface {
	CreateOrAppend(ctx context.Context, adminId, threadId string, in *ConversationInput) (*dto.CreateOrAppendResult, error)
	ListThreads(ctx context.Context, adminId string, page, limit int) (*dto.ListThreadsResponse, error)
	ListConversations(ctx context.Context, adminId, threadId string, page, limit int) (*dto.ListConversationsResponse, error)
	Migrate(ctx context.Context, threadId string) error
	MigrateAndEvict(ctx context.Context, threadId string) error
	RecentQueries(ctx context.Context, threadId string, n int) ([]string, error)
	RegisterExport(ctx context.Context, conversationId, path string) error
	ExportPath(ctx context.Context, conversationId string) (string, error)
}

// threadService owns the thread lifecycle across the two tiers. The durable
// write is authoritative; the cache write is best-effort-with-logging, so a
// cache failure costs freshness, never data.
type threadService struct {
	uowFactory  unitofwork.RepositoryFactory
	threadCache cache.IThreadCache
	auditPub    IAuditPublisher
	exportDir   string
	log         logger.ILogger
}

func NewThreadService(
	uowFactory unitofwork.RepositoryFactory,
	threadCache cache.IThreadCache,
	auditPub IAuditPublisher,
	exportDir string,
	log logger.ILogger,
) IThreadService {
	return &threadService{
		uowFactory:  uowFactory,
		threadCache: threadCache,
		auditPub:    auditPub,
		exportDir:   exportDir,
		log:         log,
	}
}

// generateId builds a composite identifier from the millisecond creation
// time and a random disambiguator. Safe to call concurrently without
// coordination.
func generateId() string {
	buf := make([]byte, 4)
	_, _ = rand.Read(buf)
	return fmt.Sprintf("%d_%s", time.Now().UnixMilli(), hex.EncodeToString(buf))
}

func totalPages(total int64, limit int) int64 {
	if total == 0 {
		return 0
	}
	return (total + int64(limit) - 1) / int64(limit)
}

func validatePagination(page, limit int) error {
	if page < 1 {
		return apperr.Validation("page must be >= 1, got %d", page)
	}
	if limit < 1 {
		return apperr.Validation("limit must be >= 1, got %d", limit)
	}
	return nil
}

func (s *threadService) CreateOrAppend(ctx context.Context, adminId, threadId string, in *ConversationInput) (*dto.CreateOrAppendResult, error) {
	if in == nil || in.Query == "" {
		return nil, apperr.Validation("conversation query is required")
	}
	if adminId == "" {
		return nil, apperr.Validation("admin id is required")
	}

	if threadId == "" {
		return s.create(ctx, adminId, in)
	}
	return s.append(ctx, adminId, threadId, in)
}

func (s *threadService) create(ctx context.Context, adminId string, in *ConversationInput) (*dto.CreateOrAppendResult, error) {
	threadId := generateId()
	conversationId := generateId()
	now := time.Now().UTC()

	thread := &entity.Thread{
		ThreadId:       threadId,
		AdminId:        adminId,
		ChatName:       in.Query,
		StartTimestamp: now,
	}
	conv := s.toConversationEntity(conversationId, threadId, adminId, now, in)

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return nil, apperr.Upstream("begin create-thread transaction", err)
	}
	defer uow.Rollback()

	if err := uow.ThreadRepository().Create(ctx, thread); err != nil {
		return nil, apperr.Upstream("insert thread", err)
	}
	if err := s.insertConversation(ctx, uow, conv); err != nil {
		return nil, err
	}
	if err := uow.Commit(); err != nil {
		return nil, apperr.Upstream("commit create-thread transaction", err)
	}

	// Mirror into the hot tier. Failure here is a PartialFailure: the durable
	// record already exists, so log and report the count as unknown.
	var count *int64
	cached := &cache.CachedThread{
		ThreadId:      threadId,
		AdminId:       adminId,
		ChatName:      in.Query,
		Conversations: []cache.CachedConversation{toCachedConversation(conv)},
	}
	if err := s.threadCache.PutThread(ctx, cached); err != nil {
		s.log.Warn("thread_service", "cache mirror write failed on create", map[string]interface{}{
			"thread_id": threadId,
			"error":     err.Error(),
		})
	} else {
		one := int64(1)
		count = &one
	}

	return &dto.CreateOrAppendResult{
		ThreadId:          threadId,
		ConversationId:    conversationId,
		ConversationCount: count,
	}, nil
}

func (s *threadService) append(ctx context.Context, adminId, threadId string, in *ConversationInput) (*dto.CreateOrAppendResult, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	owned, err := uow.ThreadRepository().FindOne(ctx,
		specification.ByThreadId{ThreadId: threadId},
		specification.ByAdminId{AdminId: adminId},
	)
	if err != nil {
		return nil, apperr.Upstream("find thread", err)
	}
	if owned == nil {
		return nil, apperr.NotFound("thread %s not found for admin %s", threadId, adminId)
	}

	conversationId := generateId()
	now := time.Now().UTC()
	conv := s.toConversationEntity(conversationId, threadId, adminId, now, in)

	if err := uow.Begin(ctx); err != nil {
		return nil, apperr.Upstream("begin append transaction", err)
	}
	defer uow.Rollback()

	if err := s.insertConversation(ctx, uow, conv); err != nil {
		return nil, err
	}
	if err := uow.Commit(); err != nil {
		return nil, apperr.Upstream("commit append transaction", err)
	}

	count := s.mirrorAppend(ctx, owned, conv)

	return &dto.CreateOrAppendResult{
		ThreadId:          threadId,
		ConversationId:    conversationId,
		ConversationCount: count,
	}, nil
}

// insertConversation is the combined operation of §durable-tier semantics:
// the conversation row and the parent's end_timestamp move together inside
// the caller's transaction.
func (s *threadService) insertConversation(ctx context.Context, uow unitofwork.UnitOfWork, conv *entity.Conversation) error {
	if err := uow.ConversationRepository().Create(ctx, conv); err != nil {
		return apperr.Upstream("insert conversation", err)
	}
	if err := uow.ThreadRepository().UpdateEndTimestamp(ctx, conv.ThreadId, conv.Timestamp); err != nil {
		return apperr.Upstream("update thread end timestamp", err)
	}
	return nil
}

// mirrorAppend keeps the hot tier in step with the durable write. Appends are
// tier-agnostic: when the thread has already been archived or expired out of
// the cache, a minimal record is rehydrated instead of failing the request.
func (s *threadService) mirrorAppend(ctx context.Context, thread *entity.Thread, conv *entity.Conversation) *int64 {
	cachedConv := toCachedConversation(conv)

	count, err := s.threadCache.AppendConversation(ctx, thread.ThreadId, &cachedConv)
	if err == nil {
		return &count
	}

	if apperr.IsNotFound(err) {
		rehydrated := &cache.CachedThread{
			ThreadId:      thread.ThreadId,
			AdminId:       thread.AdminId,
			ChatName:      thread.ChatName,
			Conversations: []cache.CachedConversation{cachedConv},
		}
		if putErr := s.threadCache.PutThread(ctx, rehydrated); putErr != nil {
			s.log.Warn("thread_service", "cache rehydration failed", map[string]interface{}{
				"thread_id": thread.ThreadId,
				"error":     putErr.Error(),
			})
			return nil
		}
		// The cache now only holds the tail of the thread, so the durable
		// tier is the honest source for the count.
		uow := s.uowFactory.NewUnitOfWork(ctx)
		total, countErr := uow.ConversationRepository().Count(ctx,
			specification.ByThreadId{ThreadId: thread.ThreadId},
		)
		if countErr != nil {
			return nil
		}
		return &total
	}

	s.log.Warn("thread_service", "cache mirror write failed on append", map[string]interface{}{
		"thread_id": thread.ThreadId,
		"error":     err.Error(),
	})
	return nil
}

func (s *threadService) ListThreads(ctx context.Context, adminId string, page, limit int) (*dto.ListThreadsResponse, error) {
	if err := validatePagination(page, limit); err != nil {
		return nil, err
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)

	total, err := uow.ThreadRepository().Count(ctx, specification.ByAdminId{AdminId: adminId})
	if err != nil {
		return nil, apperr.Upstream("count threads", err)
	}

	threads, err := uow.ThreadRepository().FindAll(ctx,
		specification.ByAdminId{AdminId: adminId},
		specification.OrderBy{Field: "start_timestamp"},
		specification.Pagination{Page: page, Limit: limit},
	)
	if err != nil {
		return nil, apperr.Upstream("list threads", err)
	}

	summaries := make([]dto.ThreadSummary, 0, len(threads))
	for _, t := range threads {
		summaries = append(summaries, dto.ThreadSummary{
			ThreadId: t.ThreadId,
			ChatName: t.ChatName,
		})
	}

	return &dto.ListThreadsResponse{
		Threads:      summaries,
		Page:         page,
		Limit:        limit,
		TotalThreads: total,
		TotalPages:   totalPages(total, limit),
	}, nil
}

func (s *threadService) ListConversations(ctx context.Context, adminId, threadId string, page, limit int) (*dto.ListConversationsResponse, error) {
	if err := validatePagination(page, limit); err != nil {
		return nil, err
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)

	scope := []specification.Specification{
		specification.ByAdminId{AdminId: adminId},
		specification.ByThreadId{ThreadId: threadId},
	}

	total, err := uow.ConversationRepository().Count(ctx, scope...)
	if err != nil {
		return nil, apperr.Upstream("count conversations", err)
	}

	conversations, err := uow.ConversationRepository().FindAll(ctx,
		append(scope,
			specification.OrderBy{Field: "timestamp", Desc: true},
			specification.Pagination{Page: page, Limit: limit},
		)...,
	)
	if err != nil {
		return nil, apperr.Upstream("list conversations", err)
	}

	records := make([]dto.ConversationRecord, 0, len(conversations))
	for _, c := range conversations {
		records = append(records, dto.ConversationRecord{
			ConversationId: c.ConversationId,
			Query:          c.Query,
			Response:       c.Response,
			Visualization:  c.Visualization,
			Timestamp:      c.Timestamp,
			Cols:           c.Cols,
			Rows:           c.Rows,
			ExcelPath:      c.ExcelPath,
		})
	}

	return &dto.ListConversationsResponse{
		Conversations:      records,
		Page:               page,
		Limit:              limit,
		TotalPages:         totalPages(total, limit),
		TotalConversations: total,
	}, nil
}

// Migrate copies a cached thread into durable storage. The copy is
// idempotent: rows that already exist are left alone and repeating the call
// is always safe. NotFound means the cache tier no longer holds the thread.
func (s *threadService) Migrate(ctx context.Context, threadId string) error {
	cached, err := s.threadCache.GetThread(ctx, threadId)
	if err != nil {
		return err
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)

	existing, err := uow.ThreadRepository().FindOne(ctx, specification.ByThreadId{ThreadId: threadId})
	if err != nil {
		return apperr.Upstream("find thread", err)
	}

	if existing == nil {
		thread := &entity.Thread{
			ThreadId:       threadId,
			AdminId:        cached.AdminId,
			ChatName:       cached.ChatName,
			StartTimestamp: time.Now().UTC(),
		}
		if first, last, ok := conversationTimeSpan(cached.Conversations); ok {
			thread.StartTimestamp = first
			thread.EndTimestamp = &last
		}
		if err := uow.ThreadRepository().Create(ctx, thread); err != nil {
			return apperr.Upstream("insert migrated thread", err)
		}
	}

	for i := range cached.Conversations {
		cc := &cached.Conversations[i]

		exists, err := uow.ConversationRepository().Exists(ctx, cc.ConversationId)
		if err != nil {
			return apperr.Upstream("check conversation existence", err)
		}
		if exists {
			continue
		}

		conv := fromCachedConversation(cc, threadId, cached.AdminId)
		if err := uow.ConversationRepository().Create(ctx, conv); err != nil {
			return apperr.Upstream("insert migrated conversation", err)
		}
	}

	return nil
}

// MigrateAndEvict archives a thread: idempotent migration followed by cache
// eviction. A NotFound from the migration propagates and the eviction is
// skipped, never retried.
func (s *threadService) MigrateAndEvict(ctx context.Context, threadId string) error {
	if err := s.Migrate(ctx, threadId); err != nil {
		return err
	}
	if err := s.threadCache.DeleteThread(ctx, threadId); err != nil {
		return err
	}

	if s.auditPub != nil {
		evt := events.NewBaseEvent(events.TypeThreadMigrated, map[string]interface{}{
			"thread_id": threadId,
		})
		if err := s.auditPub.Publish(ctx, evt); err != nil {
			s.log.Warn("thread_service", "failed to publish migration event", map[string]interface{}{
				"thread_id": threadId,
				"error":     err.Error(),
			})
		}
	}
	return nil
}

func (s *threadService) RecentQueries(ctx context.Context, threadId string, n int) ([]string, error) {
	return s.threadCache.GetRecentQueries(ctx, threadId, n)
}

func (s *threadService) RegisterExport(ctx context.Context, conversationId, path string) error {
	return s.threadCache.PutExportReference(ctx, conversationId, path)
}

func (s *threadService) ExportPath(ctx context.Context, conversationId string) (string, error) {
	return s.threadCache.GetExportReference(ctx, conversationId)
}

// Mapping helpers between the two tiers' representations

func (s *threadService) toConversationEntity(conversationId, threadId, adminId string, ts time.Time, in *ConversationInput) *entity.Conversation {
	// The workbook is written asynchronously but lands at a predictable
	// location, so the durable row records it up front. Listings keep
	// surfacing the artifact long after the cache entry has expired.
	if in.ExcelPath == "" && in.Rows > 0 {
		in.ExcelPath = filepath.Join(s.exportDir, conversationId+".xlsx")
	}
	return &entity.Conversation{
		ConversationId: conversationId,
		ThreadId:       threadId,
		AdminId:        adminId,
		Query:          in.Query,
		Response:       in.Response,
		Visualization:  in.Visualization,
		Timestamp:      ts,
		DataType:       in.DataType,
		Cols:           in.Cols,
		Rows:           in.Rows,
		ExcelPath:      in.ExcelPath,
	}
}

func toCachedConversation(c *entity.Conversation) cache.CachedConversation {
	return cache.CachedConversation{
		ConversationId: c.ConversationId,
		Query:          c.Query,
		Response:       c.Response,
		Visualization:  c.Visualization,
		Timestamp:      c.Timestamp.Format(time.RFC3339Nano),
		DataType:       c.DataType,
		Cols:           c.Cols,
		Rows:           c.Rows,
		ExcelPath:      c.ExcelPath,
	}
}

func fromCachedConversation(cc *cache.CachedConversation, threadId, adminId string) *entity.Conversation {
	ts, err := time.Parse(time.RFC3339Nano, cc.Timestamp)
	if err != nil {
		ts = time.Now().UTC()
	}
	return &entity.Conversation{
		ConversationId: cc.ConversationId,
		ThreadId:       threadId,
		AdminId:        adminId,
		Query:          cc.Query,
		Response:       cc.Response,
		Visualization:  cc.Visualization,
		Timestamp:      ts,
		DataType:       cc.DataType,
		Cols:           cc.Cols,
		Rows:           cc.Rows,
		ExcelPath:      cc.ExcelPath,
	}
}

func conversationTimeSpan(convs []cache.CachedConversation) (first, last time.Time, ok bool) {
	for _, cc := range convs {
		ts, err := time.Parse(time.RFC3339Nano, cc.Timestamp)
		if err != nil {
			continue
		}
		if !ok {
			first, last, ok = ts, ts, true
			continue
		}
		if ts.Before(first) {
			first = ts
		}
		if ts.After(last) {
			last = ts
		}
	}
	return first, last, ok
}
