package dao

import (
	"context"

	"cashpop-social/apps/relationship-service/model"
)

// RelationshipDAO 关系数据访问接口
type RelationshipDAO interface {
	// 成对写入，两行在同一事务内落库
	CreatePair(ctx context.Context, sender, recipient *model.Relationship) error
	ResurrectPair(ctx context.Context, senderEmail, recipientEmail, message string) (*model.Relationship, error)
	AcceptRequest(ctx context.Context, requestID int64, accepterEmail string) (*model.Relationship, error)
	RejectRequest(ctx context.Context, requestID int64, rejecterEmail string) (*model.Relationship, error)
	AutoAcceptPair(ctx context.Context, userEmail, contactEmail string) (created bool, reason string, err error)
	BlockPair(ctx context.Context, blockerEmail, targetEmail string) error

	// 查询操作
	GetByID(ctx context.Context, id int64) (*model.Relationship, error)
	GetByOwnerPeer(ctx context.Context, ownerEmail, peerEmail string) (*model.Relationship, error)
	GetEitherDirection(ctx context.Context, emailA, emailB string) (*model.Relationship, error)
	ListByOwnerAndStatus(ctx context.Context, ownerEmail, status string, limit int, cursor string) ([]*model.Relationship, string, error)
	ListFriendEmails(ctx context.Context, ownerEmail string) ([]string, error)
	BatchGetStatuses(ctx context.Context, ownerEmail string, peerEmails []string) (map[string]string, error)

	// 共同好友
	MutualFriends(ctx context.Context, emailA, emailB string) ([]string, error)
	BatchMutualFriends(ctx context.Context, userEmail string, targetEmails []string) (map[string][]string, error)
}

// SuggestionDAO 好友推荐数据访问接口
type SuggestionDAO interface {
	BulkCreateSuggestions(ctx context.Context, suggestions []*model.FriendSuggestion) (int, error)
	ListActiveSuggestions(ctx context.Context, userEmail string, limit int) ([]*model.FriendSuggestion, error)
	GetActivePairs(ctx context.Context, userEmail string) (map[string]bool, error)
	UpdateSuggestionStatus(ctx context.Context, id int64, userEmail, status string) error
	UpdatePairStatus(ctx context.Context, userEmail, suggestedEmail, status string) error
	DeleteByPair(ctx context.Context, userEmail, suggestedEmail string) error
	DeleteExpired(ctx context.Context, olderThanDays int) (int64, error)
}
