package sync

import (
	"context"
	"errors"
	"fmt"
	"strings"
	gosync "sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"cashpop-social/apps/relationship-service/model"
	"cashpop-social/pkg/logger"
	"cashpop-social/pkg/telemetry"
	"cashpop-social/pkg/userdir"
)

// FriendshipEngine 处理器回写关系所需的能力
type FriendshipEngine interface {
	IsFriend(ctx context.Context, userEmail, targetEmail string) (bool, error)
	AutoAcceptFriendship(ctx context.Context, userEmail, contactEmail string) (created bool, reason string, err error)
}

// SuggestionSink 同步产出的推荐落库入口
type SuggestionSink interface {
	GenerateFromContacts(ctx context.Context, userEmail, platform string, contacts []model.ContactInfo, maxSuggestions int) (int, error)
}

// Processor 联系人同步处理器
// 分批查目录、批内并发建立关系、批间限速，任何单项失败都不会中断整体
type Processor struct {
	engine      FriendshipEngine
	directory   userdir.Directory
	suggestions SuggestionSink
	logger      logger.Logger

	batchSize   int
	workerCount int
	batchDelay  time.Duration
	maxContacts int
}

// NewProcessor 创建同步处理器
func NewProcessor(engine FriendshipEngine, directory userdir.Directory, suggestions SuggestionSink, log logger.Logger, batchSize, workerCount int, batchDelay time.Duration, maxContacts int) *Processor {
	if batchSize <= 0 {
		batchSize = model.DefaultSyncBatchSize
	}
	if workerCount <= 0 {
		workerCount = 5
	}
	if maxContacts <= 0 {
		maxContacts = model.MaxContactsPerSync
	}
	return &Processor{
		engine:      engine,
		directory:   directory,
		suggestions: suggestions,
		logger:      log,
		batchSize:   batchSize,
		workerCount: workerCount,
		batchDelay:  batchDelay,
		maxContacts: maxContacts,
	}
}

// Process 执行一次同步，永远返回结果对象，失败细节收敛到Errors和Warnings
func (p *Processor) Process(ctx context.Context, userEmail string, adapter PlatformAdapter, opts FetchOptions, syncOpts model.SyncOptions) *model.SyncResult {
	ctx, span := telemetry.StartSpan(ctx, "sync.processor.Process")
	defer span.End()

	start := time.Now()
	userEmail = strings.ToLower(strings.TrimSpace(userEmail))
	result := &model.SyncResult{
		SyncID:   uuid.NewString(),
		Platform: adapter.Platform(),
		Errors:   []string{},
		Warnings: []string{},
		Details: model.SyncDetails{
			ProcessedContacts: []model.ContactInfo{},
			NewFriends:        []model.NewFriendDetail{},
		},
	}

	span.SetAttributes(
		attribute.String("sync.id", result.SyncID),
		attribute.String("sync.platform", result.Platform),
		attribute.String("sync.user", userEmail),
	)

	defer func() {
		result.ExecutionTimeMs = time.Since(start).Milliseconds()
		span.SetAttributes(
			attribute.Int("sync.total_contacts", result.TotalContacts),
			attribute.Int("sync.users_found", result.CashpopUsersFound),
			attribute.Int("sync.friendships_created", result.NewFriendshipsCreated),
			attribute.Int("sync.error_count", len(result.Errors)),
		)
		p.logger.Info(ctx, "Contact sync finished",
			logger.F("syncID", result.SyncID),
			logger.F("platform", result.Platform),
			logger.F("user", userEmail),
			logger.F("totalContacts", result.TotalContacts),
			logger.F("usersFound", result.CashpopUsersFound),
			logger.F("friendshipsCreated", result.NewFriendshipsCreated),
			logger.F("executionTimeMs", result.ExecutionTimeMs))
	}()

	if opts.MaxContacts <= 0 || opts.MaxContacts > p.maxContacts {
		opts.MaxContacts = p.maxContacts
	}

	contacts, err := adapter.FetchContacts(ctx, opts)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch contacts")
		result.Errors = append(result.Errors, p.describeFetchError(err))
		return result
	}

	contacts = p.normalize(userEmail, contacts, result)
	result.TotalContacts = len(contacts)
	if len(contacts) == 0 {
		span.SetStatus(codes.Ok, "no contacts to process")
		return result
	}

	var matched []model.ContactInfo
	for batchStart := 0; batchStart < len(contacts); batchStart += p.batchSize {
		if ctx.Err() != nil {
			result.Warnings = append(result.Warnings, "sync cancelled before completion")
			break
		}

		end := batchStart + p.batchSize
		if end > len(contacts) {
			end = len(contacts)
		}
		batchMatched := p.processBatch(ctx, userEmail, contacts[batchStart:end], syncOpts, result)
		matched = append(matched, batchMatched...)

		if end < len(contacts) && p.batchDelay > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(p.batchDelay):
			}
		}
	}

	if syncOpts.CreateSuggestions && p.suggestions != nil && len(matched) > 0 {
		if _, err := p.suggestions.GenerateFromContacts(ctx, userEmail, result.Platform, matched, 0); err != nil {
			result.Warnings = append(result.Warnings, fmt.Sprintf("failed to create suggestions: %v", err))
		}
	}

	span.SetStatus(codes.Ok, "sync completed")
	return result
}

// normalize 去掉空邮箱、自身和重复联系人
func (p *Processor) normalize(userEmail string, contacts []model.ContactInfo, result *model.SyncResult) []model.ContactInfo {
	seen := make(map[string]bool, len(contacts))
	normalized := make([]model.ContactInfo, 0, len(contacts))
	skippedNoEmail := 0
	for _, contact := range contacts {
		email := strings.ToLower(strings.TrimSpace(contact.Email))
		if email == "" {
			skippedNoEmail++
			continue
		}
		if email == userEmail || seen[email] {
			continue
		}
		seen[email] = true
		contact.Email = email
		normalized = append(normalized, contact)
	}
	if skippedNoEmail > 0 {
		result.Warnings = append(result.Warnings, fmt.Sprintf("%d contacts skipped: no email address", skippedNoEmail))
	}
	return normalized
}

// processBatch 单批处理：一次目录查询加批内并发建立关系，返回匹配到账户的联系人
func (p *Processor) processBatch(ctx context.Context, userEmail string, batch []model.ContactInfo, syncOpts model.SyncOptions, result *model.SyncResult) []model.ContactInfo {
	emails := make([]string, len(batch))
	contactByEmail := make(map[string]model.ContactInfo, len(batch))
	for i, contact := range batch {
		emails[i] = contact.Email
		contactByEmail[contact.Email] = contact
	}

	accounts, err := p.directory.FindByEmails(ctx, emails)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("directory lookup failed for batch: %v", err))
		return nil
	}

	var mu gosync.Mutex
	var wg gosync.WaitGroup
	sem := make(chan struct{}, p.workerCount)
	matched := make([]model.ContactInfo, 0, len(accounts))

	for _, account := range accounts {
		email := strings.ToLower(account.Email)
		contact, ok := contactByEmail[email]
		if !ok {
			continue
		}

		mu.Lock()
		result.CashpopUsersFound++
		result.Details.ProcessedContacts = append(result.Details.ProcessedContacts, contact)
		matched = append(matched, contact)
		mu.Unlock()

		wg.Add(1)
		sem <- struct{}{}
		go func(account *userdir.Account, contact model.ContactInfo) {
			defer wg.Done()
			defer func() { <-sem }()

			if !syncOpts.SkipDuplicateCheck {
				isFriend, err := p.engine.IsFriend(ctx, userEmail, contact.Email)
				if err != nil {
					mu.Lock()
					result.Errors = append(result.Errors, fmt.Sprintf("failed to check friendship with %s: %v", contact.Email, err))
					mu.Unlock()
					return
				}
				if isFriend {
					mu.Lock()
					result.AlreadyFriends++
					mu.Unlock()
					return
				}
			}

			if syncOpts.CreateSuggestions {
				// 推荐模式不直接建立关系，匹配联系人交给推荐管道
				return
			}

			created, reason, err := p.engine.AutoAcceptFriendship(ctx, userEmail, contact.Email)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				result.Errors = append(result.Errors, fmt.Sprintf("failed to create friendship with %s: %v", contact.Email, err))
			case created:
				result.NewFriendshipsCreated++
				name := contact.Name
				if name == "" {
					name = account.Name
				}
				result.Details.NewFriends = append(result.Details.NewFriends, model.NewFriendDetail{
					Email: contact.Email,
					Name:  name,
				})
			case reason == model.AutoAcceptReasonAlreadyFriend:
				result.AlreadyFriends++
			default:
				result.Warnings = append(result.Warnings, fmt.Sprintf("skipped %s: %s", contact.Email, strings.ToLower(reason)))
			}
		}(account, contact)
	}
	wg.Wait()
	return matched
}

// describeFetchError 把适配器错误翻译成面向用户的文案
func (p *Processor) describeFetchError(err error) string {
	switch {
	case errors.Is(err, ErrInvalidCredential):
		return "platform credential is invalid or expired, please re-authorize"
	case errors.Is(err, ErrRateLimited):
		return "platform rate limit exceeded, please retry later"
	case errors.Is(err, ErrTimeout):
		return "platform request timed out, please retry"
	default:
		return fmt.Sprintf("failed to fetch contacts: %v", err)
	}
}
