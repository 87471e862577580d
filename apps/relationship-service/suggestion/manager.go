package suggestion

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"cashpop-social/apps/relationship-service/dao"
	"cashpop-social/apps/relationship-service/model"
	"cashpop-social/pkg/logger"
	"cashpop-social/pkg/telemetry"
	"cashpop-social/pkg/userdir"
)

// Manager 推荐策略注册与统一落库
// 多策略产出同一候选时保留优先级最高的一条
type Manager struct {
	mu              sync.RWMutex
	strategies      map[string]Strategy
	relationshipDAO dao.RelationshipDAO
	suggestionDAO   dao.SuggestionDAO
	directory       userdir.Directory
	logger          logger.Logger
}

// NewManager 创建推荐管理器
func NewManager(relationshipDAO dao.RelationshipDAO, suggestionDAO dao.SuggestionDAO, directory userdir.Directory, log logger.Logger) *Manager {
	return &Manager{
		strategies:      make(map[string]Strategy),
		relationshipDAO: relationshipDAO,
		suggestionDAO:   suggestionDAO,
		directory:       directory,
		logger:          log,
	}
}

// Register 注册策略，同名策略覆盖
func (m *Manager) Register(strategy Strategy) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.strategies[strategy.Name()] = strategy
}

func (m *Manager) registered() []Strategy {
	m.mu.RLock()
	defer m.mu.RUnlock()
	strategies := make([]Strategy, 0, len(m.strategies))
	for _, s := range m.strategies {
		strategies = append(strategies, s)
	}
	sort.Slice(strategies, func(i, j int) bool { return strategies[i].Name() < strategies[j].Name() })
	return strategies
}

// GenerateForUser 运行全部注册策略并落库，返回实际新增条数
func (m *Manager) GenerateForUser(ctx context.Context, userEmail string, maxSuggestions, minMutualFriends int) (int, error) {
	return m.generate(ctx, userEmail, maxSuggestions, minMutualFriends, m.registered())
}

// GenerateWith 运行指定策略并落库，同步管道注入通讯录策略时使用
func (m *Manager) GenerateWith(ctx context.Context, userEmail string, maxSuggestions int, strategies ...Strategy) (int, error) {
	return m.generate(ctx, userEmail, maxSuggestions, 0, strategies)
}

// GenerateFromContacts 将一批联系人转为推荐，按平台选择策略
func (m *Manager) GenerateFromContacts(ctx context.Context, userEmail, platform string, contacts []model.ContactInfo, maxSuggestions int) (int, error) {
	var strategy Strategy
	switch platform {
	case model.PlatformGoogle, model.PlatformFacebook:
		strategy = NewPlatformStrategy(platform, m.directory, contacts)
	default:
		strategy = NewContactStrategy(m.directory, contacts)
	}
	return m.GenerateWith(ctx, userEmail, maxSuggestions, strategy)
}

func (m *Manager) generate(ctx context.Context, userEmail string, maxSuggestions, minMutualFriends int, strategies []Strategy) (int, error) {
	ctx, span := telemetry.StartSpan(ctx, "suggestion.manager.Generate")
	defer span.End()

	userEmail = strings.ToLower(strings.TrimSpace(userEmail))
	span.SetAttributes(
		attribute.String("suggestion.user", userEmail),
		attribute.Int("suggestion.strategy_count", len(strategies)),
	)

	if maxSuggestions <= 0 {
		maxSuggestions = model.DefaultMaxSuggestions
	}

	sctx := &model.SuggestionContext{
		UserEmail:        userEmail,
		MaxSuggestions:   maxSuggestions,
		MinMutualFriends: minMutualFriends,
		ExcludeExisting:  true,
	}

	// 候选邮箱 -> 最高优先级候选
	merged := make(map[string]*model.FriendSuggestion)
	for _, strategy := range strategies {
		result, err := strategy.Generate(ctx, sctx)
		if err != nil {
			m.logger.Error(ctx, "Suggestion strategy failed",
				logger.F("strategy", strategy.Name()),
				logger.F("user", userEmail),
				logger.F("error", err.Error()))
			continue
		}
		for _, errMsg := range result.Errors {
			m.logger.Warn(ctx, "Suggestion candidate skipped",
				logger.F("strategy", strategy.Name()),
				logger.F("reason", errMsg))
		}
		for _, candidate := range result.Candidates {
			existing, ok := merged[candidate.SuggestedUserEmail]
			if !ok || candidate.Priority > existing.Priority {
				merged[candidate.SuggestedUserEmail] = candidate
			}
		}
	}
	if len(merged) == 0 {
		span.SetStatus(codes.Ok, "no candidates")
		return 0, nil
	}

	filtered, err := m.filterCandidates(ctx, userEmail, merged)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to filter candidates")
		return 0, err
	}

	sort.Slice(filtered, func(i, j int) bool {
		if filtered[i].Priority == filtered[j].Priority {
			return filtered[i].SuggestedUserEmail < filtered[j].SuggestedUserEmail
		}
		return filtered[i].Priority > filtered[j].Priority
	})
	if len(filtered) > maxSuggestions {
		filtered = filtered[:maxSuggestions]
	}

	created, err := m.suggestionDAO.BulkCreateSuggestions(ctx, filtered)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to persist suggestions")
		return 0, fmt.Errorf("failed to persist suggestions: %v", err)
	}

	m.logger.Info(ctx, "Suggestions generated",
		logger.F("user", userEmail),
		logger.F("candidates", len(merged)),
		logger.F("created", created))

	span.SetAttributes(attribute.Int("suggestion.created", created))
	span.SetStatus(codes.Ok, "suggestions generated")
	return created, nil
}

// filterCandidates 过滤已有关系和已有活跃推荐的候选
func (m *Manager) filterCandidates(ctx context.Context, userEmail string, merged map[string]*model.FriendSuggestion) ([]*model.FriendSuggestion, error) {
	emails := make([]string, 0, len(merged))
	for email := range merged {
		emails = append(emails, email)
	}

	statuses, err := m.relationshipDAO.BatchGetStatuses(ctx, userEmail, emails)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing relationships: %v", err)
	}
	activePairs, err := m.suggestionDAO.GetActivePairs(ctx, userEmail)
	if err != nil {
		return nil, fmt.Errorf("failed to load active suggestions: %v", err)
	}

	filtered := make([]*model.FriendSuggestion, 0, len(merged))
	for email, candidate := range merged {
		if _, related := statuses[email]; related {
			continue
		}
		if activePairs[email] {
			continue
		}
		filtered = append(filtered, candidate)
	}
	return filtered, nil
}

// ListSuggestions 列出有效推荐，带目录信息和共同好友姓名
func (m *Manager) ListSuggestions(ctx context.Context, userEmail string, limit int) (*model.ListSuggestionsResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "suggestion.manager.ListSuggestions")
	defer span.End()

	userEmail = strings.ToLower(strings.TrimSpace(userEmail))
	span.SetAttributes(attribute.String("suggestion.user", userEmail))

	suggestions, err := m.suggestionDAO.ListActiveSuggestions(ctx, userEmail, limit)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to list suggestions")
		return nil, fmt.Errorf("failed to list suggestions: %v", err)
	}

	emails := make([]string, len(suggestions))
	for i, s := range suggestions {
		emails[i] = s.SuggestedUserEmail
	}
	accounts := make(map[string]*userdir.Account)
	if found, err := m.directory.FindByEmails(ctx, emails); err != nil {
		m.logger.Warn(ctx, "Failed to annotate suggestions from directory",
			logger.F("user", userEmail),
			logger.F("error", err.Error()))
	} else {
		for _, account := range found {
			accounts[strings.ToLower(account.Email)] = account
		}
	}

	mutuals, err := m.relationshipDAO.BatchMutualFriends(ctx, userEmail, emails)
	if err != nil {
		m.logger.Warn(ctx, "Failed to annotate mutual friends for suggestions",
			logger.F("user", userEmail),
			logger.F("error", err.Error()))
		mutuals = map[string][]string{}
	}

	// 共同好友邮箱换成展示名
	nameOf := m.resolveNames(ctx, mutuals)

	infos := make([]model.SuggestionInfo, 0, len(suggestions))
	for _, s := range suggestions {
		info := model.SuggestionInfo{
			ID:                 s.ID,
			SuggestedUserEmail: s.SuggestedUserEmail,
			Source:             s.Source,
			Reason:             s.Reason,
			MutualFriendsCount: s.MutualFriendsCount,
			Priority:           s.Priority,
			CreatedAt:          s.CreatedAt,
		}
		if account, ok := accounts[s.SuggestedUserEmail]; ok {
			info.Name = account.Name
			info.Avatar = account.Avatar
		}
		if mutualEmails, ok := mutuals[s.SuggestedUserEmail]; ok {
			names := make([]string, 0, len(mutualEmails))
			for _, email := range mutualEmails {
				names = append(names, nameOf(email))
			}
			info.MutualFriendNames = names
			info.MutualFriendsCount = len(names)
		}
		infos = append(infos, info)
	}

	span.SetAttributes(attribute.Int("suggestion.count", len(infos)))
	span.SetStatus(codes.Ok, "suggestions listed")
	return &model.ListSuggestionsResponse{Suggestions: infos, Total: len(infos)}, nil
}

// resolveNames 批量解析邮箱到展示名，解析不到的退回邮箱本身
func (m *Manager) resolveNames(ctx context.Context, mutuals map[string][]string) func(string) string {
	var emails []string
	seen := make(map[string]bool)
	for _, group := range mutuals {
		for _, email := range group {
			if !seen[email] {
				seen[email] = true
				emails = append(emails, email)
			}
		}
	}

	names := make(map[string]string, len(emails))
	if len(emails) > 0 {
		if accounts, err := m.directory.FindByEmails(ctx, emails); err == nil {
			for _, account := range accounts {
				name := account.Name
				if name == "" {
					name = account.Username
				}
				names[strings.ToLower(account.Email)] = name
			}
		}
	}

	return func(email string) string {
		if name, ok := names[email]; ok && name != "" {
			return name
		}
		return email
	}
}

// Dismiss 忽略推荐，不再出现在列表中
func (m *Manager) Dismiss(ctx context.Context, userEmail string, suggestionID int64) error {
	userEmail = strings.ToLower(strings.TrimSpace(userEmail))
	if err := m.suggestionDAO.UpdateSuggestionStatus(ctx, suggestionID, userEmail, model.SuggestionStatusDismissed); err != nil {
		return err
	}
	m.logger.Info(ctx, "Suggestion dismissed",
		logger.F("user", userEmail),
		logger.F("suggestionID", suggestionID))
	return nil
}

// CleanupExpired 清理过期的非活跃推荐，返回删除条数
func (m *Manager) CleanupExpired(ctx context.Context, olderThanDays int) (int64, error) {
	deleted, err := m.suggestionDAO.DeleteExpired(ctx, olderThanDays)
	if err != nil {
		return 0, fmt.Errorf("failed to clean up expired suggestions: %v", err)
	}
	if deleted > 0 {
		m.logger.Info(ctx, "Expired suggestions cleaned up", logger.F("deleted", deleted))
	}
	return deleted, nil
}
