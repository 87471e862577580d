package service

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"cashpop-social/apps/relationship-service/model"
	tracecontext "cashpop-social/pkg/context"
	"cashpop-social/pkg/logger"
	"cashpop-social/pkg/telemetry"
	"cashpop-social/pkg/userdir"
)

// CalculateMutualFriends 计算两用户的共同好友，带目录姓名标注
func (s *Service) CalculateMutualFriends(ctx context.Context, userEmail, targetEmail string) (*model.MutualFriendsResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "relationship.service.CalculateMutualFriends")
	defer span.End()

	userEmail = NormalizeEmail(userEmail)
	targetEmail = NormalizeEmail(targetEmail)
	span.SetAttributes(
		attribute.String("relationship.user", userEmail),
		attribute.String("relationship.target", targetEmail),
	)
	ctx = tracecontext.WithUserEmail(ctx, userEmail)

	if userEmail == targetEmail {
		span.SetStatus(codes.Error, "self request")
		return nil, model.ErrSelfRequest
	}

	emails, err := s.dao.MutualFriends(ctx, userEmail, targetEmail)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to calculate mutual friends")
		return nil, &model.MutualFriendsCalculationError{
			UserEmail:   userEmail,
			TargetEmail: targetEmail,
			Cause:       err,
		}
	}

	result := s.annotateMutualResult(ctx, emails)

	span.SetAttributes(attribute.Int("relationship.mutual_count", result.Count))
	span.SetStatus(codes.Ok, "mutual friends calculated")
	return result, nil
}

// BatchCalculateMutualFriends 批量计算共同好友，结果覆盖全部输入目标
// 单个目标计算失败降级为空结果，不中断整批
func (s *Service) BatchCalculateMutualFriends(ctx context.Context, userEmail string, targetEmails []string) (map[string]*model.MutualFriendsResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "relationship.service.BatchCalculateMutualFriends")
	defer span.End()

	userEmail = NormalizeEmail(userEmail)
	span.SetAttributes(
		attribute.String("relationship.user", userEmail),
		attribute.Int("relationship.target_count", len(targetEmails)),
	)
	ctx = tracecontext.WithUserEmail(ctx, userEmail)

	targets := make([]string, 0, len(targetEmails))
	seen := make(map[string]bool, len(targetEmails))
	for _, target := range targetEmails {
		target = NormalizeEmail(target)
		if target == "" || target == userEmail || seen[target] {
			continue
		}
		seen[target] = true
		targets = append(targets, target)
	}

	results := make(map[string]*model.MutualFriendsResult, len(targets))
	for _, target := range targets {
		results[target] = &model.MutualFriendsResult{FriendNames: []string{}, FriendIDs: []string{}}
	}
	if len(targets) == 0 {
		span.SetStatus(codes.Ok, "no targets")
		return results, nil
	}

	grouped, err := s.dao.BatchMutualFriends(ctx, userEmail, targets)
	if err != nil {
		// 降级为逐个计算，保证每个目标都有结果
		s.logger.Warn(ctx, "Batch mutual friends query failed, falling back to per-target",
			logger.F("user", userEmail),
			logger.F("error", err.Error()))
		for _, target := range targets {
			emails, perErr := s.dao.MutualFriends(ctx, userEmail, target)
			if perErr != nil {
				s.logger.Error(ctx, "Failed to calculate mutual friends for target",
					logger.F("user", userEmail),
					logger.F("target", target),
					logger.F("error", perErr.Error()))
				continue
			}
			results[target] = s.annotateMutualResult(ctx, emails)
		}
		span.SetStatus(codes.Ok, "mutual friends calculated with fallback")
		return results, nil
	}

	for target, emails := range grouped {
		if _, ok := results[target]; !ok {
			continue
		}
		results[target] = s.annotateMutualResult(ctx, emails)
	}

	span.SetStatus(codes.Ok, "mutual friends calculated")
	return results, nil
}

// annotateMutualResult 用目录信息填充共同好友姓名
func (s *Service) annotateMutualResult(ctx context.Context, emails []string) *model.MutualFriendsResult {
	result := &model.MutualFriendsResult{
		Count:       len(emails),
		FriendNames: []string{},
		FriendIDs:   []string{},
	}
	if len(emails) == 0 {
		return result
	}

	byEmail := make(map[string]*userdir.Account)
	accounts, err := s.directory.FindByEmails(ctx, emails)
	if err != nil {
		s.logger.Warn(ctx, "Failed to annotate mutual friends from directory",
			logger.F("error", err.Error()))
	}
	for _, account := range accounts {
		byEmail[NormalizeEmail(account.Email)] = account
	}

	for _, email := range emails {
		if account, ok := byEmail[email]; ok {
			name := account.Name
			if name == "" {
				name = account.Username
			}
			result.FriendNames = append(result.FriendNames, name)
			result.FriendIDs = append(result.FriendIDs, account.ID)
		} else {
			result.FriendNames = append(result.FriendNames, email)
			result.FriendIDs = append(result.FriendIDs, email)
		}
	}
	return result
}
