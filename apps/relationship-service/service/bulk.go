package service

import (
	"context"
	"strconv"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"cashpop-social/apps/relationship-service/model"
	tracecontext "cashpop-social/pkg/context"
	"cashpop-social/pkg/telemetry"
)

// BatchAcceptRequests 批量接受好友申请，逐项收集结果不中断整批
func (s *Service) BatchAcceptRequests(ctx context.Context, userEmail string, requestIDs []int64) *model.BatchResult {
	return s.batchSettle(ctx, "relationship.service.BatchAcceptRequests", userEmail, requestIDs, s.AcceptFriendRequest)
}

// BatchRejectRequests 批量拒绝好友申请
func (s *Service) BatchRejectRequests(ctx context.Context, userEmail string, requestIDs []int64) *model.BatchResult {
	return s.batchSettle(ctx, "relationship.service.BatchRejectRequests", userEmail, requestIDs, s.RejectFriendRequest)
}

func (s *Service) batchSettle(ctx context.Context, spanName, userEmail string, requestIDs []int64, settle func(context.Context, string, int64) (*model.Relationship, error)) *model.BatchResult {
	ctx, span := telemetry.StartSpan(ctx, spanName)
	defer span.End()

	userEmail = NormalizeEmail(userEmail)
	span.SetAttributes(
		attribute.String("relationship.user", userEmail),
		attribute.Int("relationship.batch_size", len(requestIDs)),
	)
	ctx = tracecontext.WithUserEmail(ctx, userEmail)

	result := &model.BatchResult{Items: make([]model.BatchItemResult, 0, len(requestIDs))}
	for _, id := range requestIDs {
		item := model.BatchItemResult{Key: strconv.FormatInt(id, 10)}
		if _, err := settle(ctx, userEmail, id); err != nil {
			item.Error = err.Error()
			result.Failed++
		} else {
			item.Success = true
			result.Succeeded++
		}
		result.Items = append(result.Items, item)
	}

	span.SetAttributes(
		attribute.Int("relationship.succeeded", result.Succeeded),
		attribute.Int("relationship.failed", result.Failed),
	)
	span.SetStatus(codes.Ok, "batch processed")
	return result
}

// BatchSendRequests 批量发送好友申请，逐项收集结果
func (s *Service) BatchSendRequests(ctx context.Context, senderEmail string, targetEmails []string, message string) *model.BatchResult {
	ctx, span := telemetry.StartSpan(ctx, "relationship.service.BatchSendRequests")
	defer span.End()

	senderEmail = NormalizeEmail(senderEmail)
	span.SetAttributes(
		attribute.String("relationship.sender", senderEmail),
		attribute.Int("relationship.batch_size", len(targetEmails)),
	)
	ctx = tracecontext.WithUserEmail(ctx, senderEmail)

	result := &model.BatchResult{Items: make([]model.BatchItemResult, 0, len(targetEmails))}
	seen := make(map[string]bool, len(targetEmails))
	for _, target := range targetEmails {
		target = NormalizeEmail(target)
		if seen[target] {
			continue
		}
		seen[target] = true

		item := model.BatchItemResult{Key: target}
		if _, err := s.SendFriendRequest(ctx, senderEmail, target, message); err != nil {
			item.Error = err.Error()
			result.Failed++
		} else {
			item.Success = true
			result.Succeeded++
		}
		result.Items = append(result.Items, item)
	}

	span.SetAttributes(
		attribute.Int("relationship.succeeded", result.Succeeded),
		attribute.Int("relationship.failed", result.Failed),
	)
	span.SetStatus(codes.Ok, "batch processed")
	return result
}
