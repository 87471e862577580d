package dao

import (
	"context"
	"time"

	"cashpop-social/apps/relationship-service/model"
	"cashpop-social/pkg/database"

	"gorm.io/gorm/clause"
)

// suggestionDAO 好友推荐数据访问实现
type suggestionDAO struct {
	db *database.PostgreSQL
}

// NewSuggestionDAO 创建推荐DAO实例
func NewSuggestionDAO(db *database.PostgreSQL) SuggestionDAO {
	return &suggestionDAO{db: db}
}

// BulkCreateSuggestions 批量写入推荐，(用户,被推荐人)已存在时跳过
func (d *suggestionDAO) BulkCreateSuggestions(ctx context.Context, suggestions []*model.FriendSuggestion) (int, error) {
	if len(suggestions) == 0 {
		return 0, nil
	}

	result := d.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_email"}, {Name: "suggested_user_email"}},
			DoNothing: true,
		}).
		Create(&suggestions)
	if result.Error != nil {
		return 0, result.Error
	}
	return int(result.RowsAffected), nil
}

// ListActiveSuggestions 按优先级列出用户的有效推荐
func (d *suggestionDAO) ListActiveSuggestions(ctx context.Context, userEmail string, limit int) ([]*model.FriendSuggestion, error) {
	if limit <= 0 {
		limit = model.DefaultMaxSuggestions
	}

	var suggestions []*model.FriendSuggestion
	err := d.db.WithContext(ctx).
		Where("user_email = ? AND status = ?", userEmail, model.SuggestionStatusActive).
		Order("priority DESC, created_at DESC").
		Limit(limit).
		Find(&suggestions).Error
	return suggestions, err
}

// GetActivePairs 获取用户当前有效推荐的目标邮箱集合，用于生成去重
func (d *suggestionDAO) GetActivePairs(ctx context.Context, userEmail string) (map[string]bool, error) {
	var emails []string
	err := d.db.WithContext(ctx).
		Model(&model.FriendSuggestion{}).
		Where("user_email = ? AND status = ?", userEmail, model.SuggestionStatusActive).
		Pluck("suggested_user_email", &emails).Error
	if err != nil {
		return nil, err
	}

	pairs := make(map[string]bool, len(emails))
	for _, email := range emails {
		pairs[email] = true
	}
	return pairs, nil
}

// UpdateSuggestionStatus 更新推荐状态
func (d *suggestionDAO) UpdateSuggestionStatus(ctx context.Context, id int64, userEmail, status string) error {
	result := d.db.WithContext(ctx).
		Model(&model.FriendSuggestion{}).
		Where("id = ? AND user_email = ?", id, userEmail).
		Update("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return model.ErrSuggestionMissing
	}
	return nil
}

// UpdatePairStatus 更新指定配对的推荐状态，发起申请后标记
func (d *suggestionDAO) UpdatePairStatus(ctx context.Context, userEmail, suggestedEmail, status string) error {
	return d.db.WithContext(ctx).
		Model(&model.FriendSuggestion{}).
		Where("user_email = ? AND suggested_user_email = ?", userEmail, suggestedEmail).
		Update("status", status).Error
}

// DeleteByPair 删除指定用户对某人的推荐，发起申请后清理
func (d *suggestionDAO) DeleteByPair(ctx context.Context, userEmail, suggestedEmail string) error {
	return d.db.WithContext(ctx).
		Where("user_email = ? AND suggested_user_email = ?", userEmail, suggestedEmail).
		Delete(&model.FriendSuggestion{}).Error
}

// DeleteExpired 清理过期的非活跃推荐
func (d *suggestionDAO) DeleteExpired(ctx context.Context, olderThanDays int) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -olderThanDays)
	result := d.db.WithContext(ctx).
		Where("status != ? AND updated_at < ?", model.SuggestionStatusActive, cutoff).
		Delete(&model.FriendSuggestion{})
	return result.RowsAffected, result.Error
}
