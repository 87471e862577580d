package dao

import (
	"context"
	"fmt"
	"time"

	"cashpop-social/apps/relationship-service/model"
	"cashpop-social/pkg/database"
	"cashpop-social/pkg/snowflake"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// relationshipDAO 关系数据访问实现
type relationshipDAO struct {
	db *database.PostgreSQL
}

// NewRelationshipDAO 创建关系DAO实例
func NewRelationshipDAO(db *database.PostgreSQL) RelationshipDAO {
	return &relationshipDAO{db: db}
}

// lockPair 锁定一对用户的两行记录，固定按(owner,peer)排序避免死锁
func lockPair(tx *gorm.DB, emailA, emailB string) ([]*model.Relationship, error) {
	var rows []*model.Relationship
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("(owner_email = ? AND peer_email = ?) OR (owner_email = ? AND peer_email = ?)",
			emailA, emailB, emailB, emailA).
		Order("owner_email, peer_email").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// CreatePair 在同一事务内写入申请方与接收方两行记录
func (d *relationshipDAO) CreatePair(ctx context.Context, sender, recipient *model.Relationship) error {
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rows, err := lockPair(tx, sender.OwnerEmail, sender.PeerEmail)
		if err != nil {
			return err
		}
		if len(rows) > 0 {
			return &model.AlreadyRelatedError{
				OwnerEmail: sender.OwnerEmail,
				PeerEmail:  sender.PeerEmail,
				Status:     rows[0].Status,
			}
		}
		if err := tx.Create(sender).Error; err != nil {
			return err
		}
		return tx.Create(recipient).Error
	})
}

// ResurrectPair 将一对REJECTED记录重置为新的申请
func (d *relationshipDAO) ResurrectPair(ctx context.Context, senderEmail, recipientEmail, message string) (*model.Relationship, error) {
	var senderRow *model.Relationship
	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rows, err := lockPair(tx, senderEmail, recipientEmail)
		if err != nil {
			return err
		}
		if len(rows) != 2 {
			return &model.NotRelatedError{OwnerEmail: senderEmail, PeerEmail: recipientEmail}
		}
		for _, row := range rows {
			if row.Status != model.RelationshipStatusRejected {
				return &model.AlreadyRelatedError{
					OwnerEmail: senderEmail,
					PeerEmail:  recipientEmail,
					Status:     row.Status,
				}
			}
		}
		now := time.Now()
		for _, row := range rows {
			status := model.RelationshipStatusReceived
			if row.OwnerEmail == senderEmail {
				status = model.RelationshipStatusPending
			}
			updates := map[string]interface{}{
				"status":       status,
				"initiated_by": senderEmail,
				"message":      message,
				"accepted_at":  nil,
				"updated_at":   now,
			}
			if err := tx.Model(&model.Relationship{}).Where("id = ?", row.ID).Updates(updates).Error; err != nil {
				return err
			}
			if row.OwnerEmail == senderEmail {
				row.Status = status
				row.InitiatedBy = senderEmail
				row.Message = message
				senderRow = row
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return senderRow, nil
}

// resolveRequestPeer 根据记录行和操作者确定申请发起方，操作者必须是接收方
func resolveRequestPeer(row *model.Relationship, actorEmail string) (senderEmail string, ok bool) {
	switch {
	case row.OwnerEmail == actorEmail && row.Status == model.RelationshipStatusReceived:
		return row.PeerEmail, true
	case row.PeerEmail == actorEmail && row.Status == model.RelationshipStatusPending:
		return row.OwnerEmail, true
	default:
		return "", false
	}
}

// AcceptRequest 接受好友申请，两行同时转为ACCEPTED
func (d *relationshipDAO) AcceptRequest(ctx context.Context, requestID int64, accepterEmail string) (*model.Relationship, error) {
	return d.settleRequest(ctx, requestID, accepterEmail, model.RelationshipStatusAccepted)
}

// RejectRequest 拒绝好友申请，两行同时转为REJECTED
func (d *relationshipDAO) RejectRequest(ctx context.Context, requestID int64, rejecterEmail string) (*model.Relationship, error) {
	return d.settleRequest(ctx, requestID, rejecterEmail, model.RelationshipStatusRejected)
}

func (d *relationshipDAO) settleRequest(ctx context.Context, requestID int64, actorEmail, newStatus string) (*model.Relationship, error) {
	var actorRow *model.Relationship
	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row model.Relationship
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", requestID).
			First(&row).Error
		if err == gorm.ErrRecordNotFound {
			return &model.RequestNotFoundError{RequestID: requestID, UserEmail: actorEmail}
		}
		if err != nil {
			return err
		}

		senderEmail, ok := resolveRequestPeer(&row, actorEmail)
		if !ok {
			return &model.RequestNotFoundError{RequestID: requestID, UserEmail: actorEmail}
		}

		rows, err := lockPair(tx, senderEmail, actorEmail)
		if err != nil {
			return err
		}
		if len(rows) != 2 {
			return fmt.Errorf("relationship pair is incomplete for request %d", requestID)
		}

		now := time.Now()
		updates := map[string]interface{}{
			"status":     newStatus,
			"updated_at": now,
		}
		if newStatus == model.RelationshipStatusAccepted {
			updates["accepted_at"] = now
		}
		for _, r := range rows {
			if err := tx.Model(&model.Relationship{}).Where("id = ?", r.ID).Updates(updates).Error; err != nil {
				return err
			}
			if r.OwnerEmail == actorEmail {
				r.Status = newStatus
				if newStatus == model.RelationshipStatusAccepted {
					r.AcceptedAt = &now
				}
				actorRow = r
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return actorRow, nil
}

// AutoAcceptPair 同步场景下直接建立好友关系，不经过申请流程
// 已存在ACCEPTED、PENDING或BLOCKED关系时保持原状并返回原因
func (d *relationshipDAO) AutoAcceptPair(ctx context.Context, userEmail, contactEmail string) (bool, string, error) {
	var created bool
	var reason string
	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rows, err := lockPair(tx, userEmail, contactEmail)
		if err != nil {
			return err
		}
		if len(rows) > 0 {
			switch rows[0].Status {
			case model.RelationshipStatusAccepted:
				reason = model.AutoAcceptReasonAlreadyFriend
				return nil
			case model.RelationshipStatusPending, model.RelationshipStatusReceived:
				reason = model.AutoAcceptReasonPendingExists
				return nil
			case model.RelationshipStatusBlocked:
				reason = model.AutoAcceptReasonBlocked
				return nil
			}
			// REJECTED状态复用原有两行
			now := time.Now()
			updates := map[string]interface{}{
				"status":       model.RelationshipStatusAccepted,
				"initiated_by": userEmail,
				"accepted_at":  now,
				"updated_at":   now,
			}
			for _, r := range rows {
				if err := tx.Model(&model.Relationship{}).Where("id = ?", r.ID).Updates(updates).Error; err != nil {
					return err
				}
			}
			created = true
			reason = model.AutoAcceptReasonCreated
			return nil
		}

		now := time.Now()
		pair := []*model.Relationship{
			{
				ID:          snowflake.GenerateID(),
				OwnerEmail:  userEmail,
				PeerEmail:   contactEmail,
				Status:      model.RelationshipStatusAccepted,
				InitiatedBy: userEmail,
				AcceptedAt:  &now,
			},
			{
				ID:          snowflake.GenerateID(),
				OwnerEmail:  contactEmail,
				PeerEmail:   userEmail,
				Status:      model.RelationshipStatusAccepted,
				InitiatedBy: userEmail,
				AcceptedAt:  &now,
			},
		}
		for _, r := range pair {
			if err := tx.Create(r).Error; err != nil {
				return err
			}
		}
		created = true
		reason = model.AutoAcceptReasonCreated
		return nil
	})
	if err != nil {
		return false, "", err
	}
	return created, reason, nil
}

// BlockPair 拉黑好友，两行同时转为BLOCKED
func (d *relationshipDAO) BlockPair(ctx context.Context, blockerEmail, targetEmail string) error {
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rows, err := lockPair(tx, blockerEmail, targetEmail)
		if err != nil {
			return err
		}
		if len(rows) != 2 {
			return &model.NotRelatedError{OwnerEmail: blockerEmail, PeerEmail: targetEmail}
		}
		now := time.Now()
		updates := map[string]interface{}{
			"status":     model.RelationshipStatusBlocked,
			"blocked_at": now,
			"updated_at": now,
		}
		for _, r := range rows {
			if err := tx.Model(&model.Relationship{}).Where("id = ?", r.ID).Updates(updates).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// GetByID 按ID获取关系记录
func (d *relationshipDAO) GetByID(ctx context.Context, id int64) (*model.Relationship, error) {
	var row model.Relationship
	err := d.db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// GetByOwnerPeer 获取指定方向的关系记录，不存在时返回nil
func (d *relationshipDAO) GetByOwnerPeer(ctx context.Context, ownerEmail, peerEmail string) (*model.Relationship, error) {
	var row model.Relationship
	err := d.db.WithContext(ctx).
		Where("owner_email = ? AND peer_email = ?", ownerEmail, peerEmail).
		First(&row).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// GetEitherDirection 获取任一方向的关系记录，不存在时返回nil
func (d *relationshipDAO) GetEitherDirection(ctx context.Context, emailA, emailB string) (*model.Relationship, error) {
	var row model.Relationship
	err := d.db.WithContext(ctx).
		Where("(owner_email = ? AND peer_email = ?) OR (owner_email = ? AND peer_email = ?)",
			emailA, emailB, emailB, emailA).
		First(&row).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// ListByOwnerAndStatus 按状态分页列出关系，游标为上一页末条的创建时间
func (d *relationshipDAO) ListByOwnerAndStatus(ctx context.Context, ownerEmail, status string, limit int, cursor string) ([]*model.Relationship, string, error) {
	if limit <= 0 {
		limit = model.DefaultPageSize
	}

	query := d.db.WithContext(ctx).
		Where("owner_email = ? AND status = ?", ownerEmail, status).
		Order("created_at DESC, id DESC").
		Limit(limit + 1)

	if cursor != "" {
		ts, err := time.Parse(time.RFC3339Nano, cursor)
		if err != nil {
			return nil, "", fmt.Errorf("invalid cursor: %v", err)
		}
		query = query.Where("created_at < ?", ts)
	}

	var rows []*model.Relationship
	if err := query.Find(&rows).Error; err != nil {
		return nil, "", err
	}

	nextCursor := ""
	if len(rows) > limit {
		rows = rows[:limit]
		nextCursor = rows[len(rows)-1].CreatedAt.Format(time.RFC3339Nano)
	}
	return rows, nextCursor, nil
}

// ListFriendEmails 列出全部已接受好友的邮箱
func (d *relationshipDAO) ListFriendEmails(ctx context.Context, ownerEmail string) ([]string, error) {
	var emails []string
	err := d.db.WithContext(ctx).
		Model(&model.Relationship{}).
		Where("owner_email = ? AND status = ?", ownerEmail, model.RelationshipStatusAccepted).
		Pluck("peer_email", &emails).Error
	return emails, err
}

// BatchGetStatuses 批量获取与多个用户的关系状态
func (d *relationshipDAO) BatchGetStatuses(ctx context.Context, ownerEmail string, peerEmails []string) (map[string]string, error) {
	result := make(map[string]string)
	if len(peerEmails) == 0 {
		return result, nil
	}

	var rows []*model.Relationship
	err := d.db.WithContext(ctx).
		Select("peer_email", "status").
		Where("owner_email = ? AND peer_email IN ?", ownerEmail, peerEmails).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	for _, row := range rows {
		result[row.PeerEmail] = row.Status
	}
	return result, nil
}

// MutualFriends 单次自连接查询两用户的共同好友
func (d *relationshipDAO) MutualFriends(ctx context.Context, emailA, emailB string) ([]string, error) {
	var emails []string
	err := d.db.WithContext(ctx).Raw(`
		SELECT a.peer_email
		FROM relationships a
		JOIN relationships b ON a.peer_email = b.peer_email
		WHERE a.owner_email = ? AND a.status = ?
		  AND b.owner_email = ? AND b.status = ?
		ORDER BY a.peer_email`,
		emailA, model.RelationshipStatusAccepted,
		emailB, model.RelationshipStatusAccepted,
	).Scan(&emails).Error
	if err != nil {
		return nil, err
	}
	return emails, nil
}

// BatchMutualFriends 批量计算用户与多个目标的共同好友，按目标分组
func (d *relationshipDAO) BatchMutualFriends(ctx context.Context, userEmail string, targetEmails []string) (map[string][]string, error) {
	result := make(map[string][]string)
	if len(targetEmails) == 0 {
		return result, nil
	}

	type mutualRow struct {
		TargetEmail string
		MutualEmail string
	}
	var rows []mutualRow
	err := d.db.WithContext(ctx).Raw(`
		SELECT b.owner_email AS target_email, a.peer_email AS mutual_email
		FROM relationships a
		JOIN relationships b ON a.peer_email = b.peer_email
		WHERE a.owner_email = ? AND a.status = ?
		  AND b.owner_email IN ? AND b.status = ?
		ORDER BY b.owner_email, a.peer_email`,
		userEmail, model.RelationshipStatusAccepted,
		targetEmails, model.RelationshipStatusAccepted,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	for _, row := range rows {
		result[row.TargetEmail] = append(result[row.TargetEmail], row.MutualEmail)
	}
	return result, nil
}
