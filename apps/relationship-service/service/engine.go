package service

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"cashpop-social/apps/relationship-service/model"
	tracecontext "cashpop-social/pkg/context"
	"cashpop-social/pkg/logger"
	"cashpop-social/pkg/snowflake"
	"cashpop-social/pkg/telemetry"
	"cashpop-social/pkg/userdir"
)

// SendFriendRequest 发送好友申请
// 被拒绝的关系重新发起申请时复用原有两行，进行中的申请重复发送直接返回原记录
func (s *Service) SendFriendRequest(ctx context.Context, senderEmail, targetEmail, message string) (*model.Relationship, error) {
	ctx, span := telemetry.StartSpan(ctx, "relationship.service.SendFriendRequest")
	defer span.End()

	senderEmail = NormalizeEmail(senderEmail)
	targetEmail = NormalizeEmail(targetEmail)

	span.SetAttributes(
		attribute.String("relationship.sender", senderEmail),
		attribute.String("relationship.target", targetEmail),
	)
	ctx = tracecontext.WithUserEmail(ctx, senderEmail)

	if err := ValidateEmail(senderEmail); err != nil {
		span.SetStatus(codes.Error, "invalid sender email")
		return nil, err
	}
	if err := ValidateEmail(targetEmail); err != nil {
		span.SetStatus(codes.Error, "invalid target email")
		return nil, err
	}
	if senderEmail == targetEmail {
		span.SetStatus(codes.Error, "self request")
		return nil, model.ErrSelfRequest
	}

	if _, err := s.resolveTarget(ctx, targetEmail); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "target not found")
		return nil, err
	}

	message = s.sanitizeText(message)

	existing, err := s.dao.GetEitherDirection(ctx, senderEmail, targetEmail)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to check existing relationship")
		return nil, fmt.Errorf("failed to check existing relationship: %v", err)
	}

	var relationship *model.Relationship
	if existing != nil {
		switch existing.Status {
		case model.RelationshipStatusRejected:
			relationship, err = s.dao.ResurrectPair(ctx, senderEmail, targetEmail, message)
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, "failed to resurrect relationship")
				return nil, fmt.Errorf("failed to resend friend request: %v", err)
			}
		case model.RelationshipStatusPending, model.RelationshipStatusReceived:
			if existing.InitiatedBy == senderEmail {
				// 重复发送，幂等返回申请方视角的记录
				relationship, err = s.dao.GetByOwnerPeer(ctx, senderEmail, targetEmail)
				if err != nil {
					return nil, fmt.Errorf("failed to load pending request: %v", err)
				}
				span.SetStatus(codes.Ok, "request already pending")
				return relationship, nil
			}
			return nil, &model.AlreadyRelatedError{OwnerEmail: senderEmail, PeerEmail: targetEmail, Status: existing.Status}
		default:
			return nil, &model.AlreadyRelatedError{OwnerEmail: senderEmail, PeerEmail: targetEmail, Status: existing.Status}
		}
	} else {
		senderRow := &model.Relationship{
			ID:          snowflake.GenerateID(),
			OwnerEmail:  senderEmail,
			PeerEmail:   targetEmail,
			Status:      model.RelationshipStatusPending,
			InitiatedBy: senderEmail,
			Message:     message,
		}
		recipientRow := &model.Relationship{
			ID:          snowflake.GenerateID(),
			OwnerEmail:  targetEmail,
			PeerEmail:   senderEmail,
			Status:      model.RelationshipStatusReceived,
			InitiatedBy: senderEmail,
			Message:     message,
		}
		if err := s.dao.CreatePair(ctx, senderRow, recipientRow); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to create relationship pair")
			return nil, err
		}
		relationship = senderRow
	}

	// 发起申请后将对应推荐标记为已发送
	if err := s.suggestionDAO.UpdatePairStatus(ctx, senderEmail, targetEmail, model.SuggestionStatusFriendRequestSent); err != nil {
		s.logger.Warn(ctx, "Failed to mark suggestion as request sent",
			logger.F("sender", senderEmail),
			logger.F("target", targetEmail),
			logger.F("error", err.Error()))
	}

	s.publishRelationshipEvent(ctx, EventRequestSent, relationship, "")

	s.logger.Info(ctx, "Friend request sent",
		logger.F("sender", senderEmail),
		logger.F("target", targetEmail),
		logger.F("requestID", relationship.ID))

	span.SetStatus(codes.Ok, "friend request sent")
	return relationship, nil
}

// AcceptFriendRequest 接受好友申请，操作者必须是接收方
func (s *Service) AcceptFriendRequest(ctx context.Context, accepterEmail string, requestID int64) (*model.Relationship, error) {
	ctx, span := telemetry.StartSpan(ctx, "relationship.service.AcceptFriendRequest")
	defer span.End()

	accepterEmail = NormalizeEmail(accepterEmail)
	span.SetAttributes(
		attribute.String("relationship.accepter", accepterEmail),
		attribute.Int64("relationship.request_id", requestID),
	)
	ctx = tracecontext.WithUserEmail(ctx, accepterEmail)

	relationship, err := s.dao.AcceptRequest(ctx, requestID, accepterEmail)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to accept friend request")
		return nil, err
	}

	s.invalidateFriendCache(ctx, relationship.OwnerEmail, relationship.PeerEmail)
	s.clearPairSuggestions(ctx, relationship.OwnerEmail, relationship.PeerEmail)
	s.publishRelationshipEvent(ctx, EventRequestAccepted, relationship, "")

	s.logger.Info(ctx, "Friend request accepted",
		logger.F("accepter", accepterEmail),
		logger.F("peer", relationship.PeerEmail),
		logger.F("requestID", requestID))

	span.SetStatus(codes.Ok, "friend request accepted")
	return relationship, nil
}

// RejectFriendRequest 拒绝好友申请，操作者必须是接收方
func (s *Service) RejectFriendRequest(ctx context.Context, rejecterEmail string, requestID int64) (*model.Relationship, error) {
	ctx, span := telemetry.StartSpan(ctx, "relationship.service.RejectFriendRequest")
	defer span.End()

	rejecterEmail = NormalizeEmail(rejecterEmail)
	span.SetAttributes(
		attribute.String("relationship.rejecter", rejecterEmail),
		attribute.Int64("relationship.request_id", requestID),
	)
	ctx = tracecontext.WithUserEmail(ctx, rejecterEmail)

	relationship, err := s.dao.RejectRequest(ctx, requestID, rejecterEmail)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to reject friend request")
		return nil, err
	}

	s.publishRelationshipEvent(ctx, EventRequestRejected, relationship, "")

	s.logger.Info(ctx, "Friend request rejected",
		logger.F("rejecter", rejecterEmail),
		logger.F("peer", relationship.PeerEmail),
		logger.F("requestID", requestID))

	span.SetStatus(codes.Ok, "friend request rejected")
	return relationship, nil
}

// BlockFriend 拉黑用户，双方记录同时转为BLOCKED
func (s *Service) BlockFriend(ctx context.Context, blockerEmail, targetEmail string) error {
	ctx, span := telemetry.StartSpan(ctx, "relationship.service.BlockFriend")
	defer span.End()

	blockerEmail = NormalizeEmail(blockerEmail)
	targetEmail = NormalizeEmail(targetEmail)
	span.SetAttributes(
		attribute.String("relationship.blocker", blockerEmail),
		attribute.String("relationship.target", targetEmail),
	)
	ctx = tracecontext.WithUserEmail(ctx, blockerEmail)

	if blockerEmail == targetEmail {
		span.SetStatus(codes.Error, "self request")
		return model.ErrSelfRequest
	}

	if err := s.dao.BlockPair(ctx, blockerEmail, targetEmail); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to block friend")
		return err
	}

	s.invalidateFriendCache(ctx, blockerEmail, targetEmail)
	s.publishRelationshipEvent(ctx, EventFriendBlocked, &model.Relationship{
		OwnerEmail:  blockerEmail,
		PeerEmail:   targetEmail,
		Status:      model.RelationshipStatusBlocked,
		InitiatedBy: blockerEmail,
	}, "")

	s.logger.Info(ctx, "Friend blocked",
		logger.F("blocker", blockerEmail),
		logger.F("target", targetEmail))

	span.SetStatus(codes.Ok, "friend blocked")
	return nil
}

// AutoAcceptFriendship 同步场景直接建立好友关系，不经过申请流程
// 已有进行中申请或拉黑关系时保持原状
func (s *Service) AutoAcceptFriendship(ctx context.Context, userEmail, contactEmail string) (bool, string, error) {
	ctx, span := telemetry.StartSpan(ctx, "relationship.service.AutoAcceptFriendship")
	defer span.End()

	userEmail = NormalizeEmail(userEmail)
	contactEmail = NormalizeEmail(contactEmail)
	span.SetAttributes(
		attribute.String("relationship.user", userEmail),
		attribute.String("relationship.contact", contactEmail),
	)

	if userEmail == contactEmail {
		span.SetStatus(codes.Error, "self request")
		return false, "", model.ErrSelfRequest
	}

	created, reason, err := s.dao.AutoAcceptPair(ctx, userEmail, contactEmail)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to auto-accept friendship")
		return false, "", fmt.Errorf("failed to auto-accept friendship: %v", err)
	}

	if created {
		s.invalidateFriendCache(ctx, userEmail, contactEmail)
		s.clearPairSuggestions(ctx, userEmail, contactEmail)
		s.publishRelationshipEvent(ctx, EventAutoAccepted, &model.Relationship{
			OwnerEmail:  userEmail,
			PeerEmail:   contactEmail,
			Status:      model.RelationshipStatusAccepted,
			InitiatedBy: userEmail,
		}, "contact_sync")
	}

	span.SetAttributes(attribute.Bool("relationship.created", created))
	span.SetStatus(codes.Ok, "auto-accept processed")
	return created, reason, nil
}

// CheckExistingRelationship 查询任一方向的关系记录，不存在时返回nil
func (s *Service) CheckExistingRelationship(ctx context.Context, emailA, emailB string) (*model.Relationship, error) {
	return s.dao.GetEitherDirection(ctx, NormalizeEmail(emailA), NormalizeEmail(emailB))
}

// CheckBidirectionalRelationship 查询两用户间的关系状态
func (s *Service) CheckBidirectionalRelationship(ctx context.Context, userEmail, targetEmail string) (*model.RelationshipStatusResponse, error) {
	relationship, err := s.CheckExistingRelationship(ctx, userEmail, targetEmail)
	if err != nil {
		return nil, fmt.Errorf("failed to check relationship: %v", err)
	}
	if relationship == nil {
		return &model.RelationshipStatusResponse{Exists: false}, nil
	}
	return &model.RelationshipStatusResponse{
		Exists:      true,
		Status:      relationship.Status,
		InitiatedBy: relationship.InitiatedBy,
	}, nil
}

// IsFriend 判断两用户是否为好友
func (s *Service) IsFriend(ctx context.Context, userEmail, targetEmail string) (bool, error) {
	relationship, err := s.dao.GetByOwnerPeer(ctx, NormalizeEmail(userEmail), NormalizeEmail(targetEmail))
	if err != nil {
		return false, err
	}
	return relationship != nil && relationship.Status == model.RelationshipStatusAccepted, nil
}

// ListFriends 分页列出好友，带用户目录信息
func (s *Service) ListFriends(ctx context.Context, userEmail string, limit int, cursor string) (*model.ListFriendsResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "relationship.service.ListFriends")
	defer span.End()

	userEmail = NormalizeEmail(userEmail)
	span.SetAttributes(attribute.String("relationship.user", userEmail))
	ctx = tracecontext.WithUserEmail(ctx, userEmail)

	rows, nextCursor, err := s.dao.ListByOwnerAndStatus(ctx, userEmail, model.RelationshipStatusAccepted, limit, cursor)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to list friends")
		return nil, fmt.Errorf("failed to list friends: %v", err)
	}

	emails := make([]string, len(rows))
	for i, row := range rows {
		emails[i] = row.PeerEmail
	}
	accounts := make(map[string]*userdir.Account)
	found, err := s.directory.FindByEmails(ctx, emails)
	if err != nil {
		// 目录不可用时降级为纯邮箱列表
		s.logger.Warn(ctx, "Failed to annotate friends from directory",
			logger.F("user", userEmail),
			logger.F("error", err.Error()))
	}
	for _, account := range found {
		accounts[NormalizeEmail(account.Email)] = account
	}

	friends := make([]model.FriendInfo, 0, len(rows))
	for _, row := range rows {
		info := model.FriendInfo{
			RelationshipID: row.ID,
			Email:          row.PeerEmail,
		}
		if row.AcceptedAt != nil {
			info.AcceptedAt = *row.AcceptedAt
		}
		if account, ok := accounts[row.PeerEmail]; ok {
			info.Username = account.Username
			info.Name = account.Name
			info.Avatar = account.Avatar
		}
		friends = append(friends, info)
	}

	span.SetAttributes(attribute.Int("relationship.friend_count", len(friends)))
	span.SetStatus(codes.Ok, "friends listed")
	return &model.ListFriendsResponse{
		Friends:    friends,
		Total:      len(friends),
		NextCursor: nextCursor,
	}, nil
}

// ListIncomingRequests 列出待处理的收到申请
func (s *Service) ListIncomingRequests(ctx context.Context, userEmail string, limit int, cursor string) (*model.ListRequestsResponse, error) {
	return s.listRequests(ctx, userEmail, model.RelationshipStatusReceived, limit, cursor)
}

// ListOutgoingRequests 列出已发出未处理的申请
func (s *Service) ListOutgoingRequests(ctx context.Context, userEmail string, limit int, cursor string) (*model.ListRequestsResponse, error) {
	return s.listRequests(ctx, userEmail, model.RelationshipStatusPending, limit, cursor)
}

func (s *Service) listRequests(ctx context.Context, userEmail, status string, limit int, cursor string) (*model.ListRequestsResponse, error) {
	userEmail = NormalizeEmail(userEmail)

	rows, nextCursor, err := s.dao.ListByOwnerAndStatus(ctx, userEmail, status, limit, cursor)
	if err != nil {
		return nil, fmt.Errorf("failed to list friend requests: %v", err)
	}

	requests := make([]model.RequestInfo, 0, len(rows))
	for _, row := range rows {
		req := model.RequestInfo{
			RequestID:   row.ID,
			Message:     row.Message,
			InitiatedBy: row.InitiatedBy,
			CreatedAt:   row.CreatedAt,
		}
		if status == model.RelationshipStatusReceived {
			req.FromEmail = row.PeerEmail
			req.ToEmail = row.OwnerEmail
		} else {
			req.FromEmail = row.OwnerEmail
			req.ToEmail = row.PeerEmail
		}
		requests = append(requests, req)
	}

	return &model.ListRequestsResponse{
		Requests:   requests,
		Total:      len(requests),
		NextCursor: nextCursor,
	}, nil
}
