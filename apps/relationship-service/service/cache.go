package service

import (
	"context"
	"fmt"
	"time"

	"cashpop-social/pkg/logger"
)

const friendSetCacheTTL = 10 * time.Minute

func friendSetCacheKey(email string) string {
	return fmt.Sprintf("relationship:friends:%s", email)
}

// getFriendEmails 读好友邮箱集合，优先走Redis缓存
func (s *Service) getFriendEmails(ctx context.Context, email string) ([]string, error) {
	if s.redis != nil {
		members, err := s.redis.SMembers(ctx, friendSetCacheKey(email))
		if err == nil && len(members) > 0 {
			return members, nil
		}
	}

	emails, err := s.dao.ListFriendEmails(ctx, email)
	if err != nil {
		return nil, err
	}

	if s.redis != nil && len(emails) > 0 {
		key := friendSetCacheKey(email)
		members := make([]interface{}, len(emails))
		for i, e := range emails {
			members[i] = e
		}
		if err := s.redis.SAdd(ctx, key, members...); err != nil {
			s.logger.Warn(ctx, "Failed to cache friend set", logger.F("email", email), logger.F("error", err.Error()))
		} else if err := s.redis.Expire(ctx, key, friendSetCacheTTL); err != nil {
			s.logger.Warn(ctx, "Failed to expire friend set cache", logger.F("email", email), logger.F("error", err.Error()))
		}
	}
	return emails, nil
}

// GetFriendEmails 读用户全部好友邮箱，带缓存
func (s *Service) GetFriendEmails(ctx context.Context, email string) ([]string, error) {
	return s.getFriendEmails(ctx, NormalizeEmail(email))
}

// invalidateFriendCache 关系变更后清除双方的好友集合缓存
func (s *Service) invalidateFriendCache(ctx context.Context, emails ...string) {
	if s.redis == nil {
		return
	}
	keys := make([]string, len(emails))
	for i, e := range emails {
		keys[i] = friendSetCacheKey(e)
	}
	if err := s.redis.Del(ctx, keys...); err != nil {
		s.logger.Warn(ctx, "Failed to invalidate friend cache", logger.F("error", err.Error()))
	}
}
