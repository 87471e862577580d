package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"cashpop-social/apps/relationship-service/dao"
	"cashpop-social/apps/relationship-service/model"
	"cashpop-social/pkg/kafka"
	"cashpop-social/pkg/logger"
	"cashpop-social/pkg/redis"
	"cashpop-social/pkg/userdir"
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// Service 关系服务
type Service struct {
	dao           dao.RelationshipDAO
	suggestionDAO dao.SuggestionDAO
	directory     userdir.Directory
	redis         *redis.RedisClient
	kafka         *kafka.Producer
	logger        logger.Logger
	sanitizer     *bluemonday.Policy
}

// NewService 创建关系服务实例
func NewService(relationshipDAO dao.RelationshipDAO, suggestionDAO dao.SuggestionDAO, directory userdir.Directory, redis *redis.RedisClient, kafka *kafka.Producer, log logger.Logger) *Service {
	return &Service{
		dao:           relationshipDAO,
		suggestionDAO: suggestionDAO,
		directory:     directory,
		redis:         redis,
		kafka:         kafka,
		logger:        log,
		sanitizer:     bluemonday.StrictPolicy(),
	}
}

// NormalizeEmail 邮箱统一小写去空白
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateEmail 校验邮箱格式
func ValidateEmail(email string) error {
	if email == "" || !emailPattern.MatchString(email) {
		return fmt.Errorf("%w: %s", model.ErrInvalidEmail, email)
	}
	return nil
}

// sanitizeText 清洗用户输入的自由文本
func (s *Service) sanitizeText(text string) string {
	return strings.TrimSpace(s.sanitizer.Sanitize(text))
}

// clearPairSuggestions 成为好友后清理双向的推荐记录，失败只记日志
func (s *Service) clearPairSuggestions(ctx context.Context, emailA, emailB string) {
	if s.suggestionDAO == nil {
		return
	}
	if err := s.suggestionDAO.DeleteByPair(ctx, emailA, emailB); err != nil {
		s.logger.Warn(ctx, "Failed to clear suggestion", logger.F("user", emailA), logger.F("suggested", emailB), logger.F("error", err.Error()))
	}
	if err := s.suggestionDAO.DeleteByPair(ctx, emailB, emailA); err != nil {
		s.logger.Warn(ctx, "Failed to clear suggestion", logger.F("user", emailB), logger.F("suggested", emailA), logger.F("error", err.Error()))
	}
}

// resolveTarget 确认目标用户在用户目录中存在
func (s *Service) resolveTarget(ctx context.Context, email string) (*userdir.Account, error) {
	account, err := s.directory.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to look up user %s: %v", email, err)
	}
	if account == nil {
		return nil, &model.TargetNotFoundError{Email: email}
	}
	return account, nil
}
