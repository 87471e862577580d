package model

import (
	"time"
)

// Relationship 有向关系边
// 每对好友恒为两行：(A,B) 和 (B,A)，终态必须保持一致
type Relationship struct {
	ID          int64      `json:"id" gorm:"primaryKey"`
	OwnerEmail  string     `json:"owner_email" gorm:"type:varchar(255);not null;uniqueIndex:idx_owner_peer;index:idx_owner_status"`
	PeerEmail   string     `json:"peer_email" gorm:"type:varchar(255);not null;uniqueIndex:idx_owner_peer"`
	Status      string     `json:"status" gorm:"type:varchar(20);not null;index:idx_owner_status;index:idx_status_created"`
	InitiatedBy string     `json:"initiated_by" gorm:"type:varchar(255);not null"`
	Message     string     `json:"message" gorm:"type:text"`
	AcceptedAt  *time.Time `json:"accepted_at,omitempty"`
	BlockedAt   *time.Time `json:"blocked_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at" gorm:"autoCreateTime;index:idx_status_created"`
	UpdatedAt   time.Time  `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (Relationship) TableName() string {
	return "relationships"
}

// FriendSuggestion 好友推荐
type FriendSuggestion struct {
	ID                 int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	UserEmail          string    `json:"user_email" gorm:"type:varchar(255);not null;uniqueIndex:idx_user_suggested;index:idx_user_sug_status"`
	SuggestedUserEmail string    `json:"suggested_user_email" gorm:"type:varchar(255);not null;uniqueIndex:idx_user_suggested"`
	Source             string    `json:"source" gorm:"type:varchar(30);not null"`
	Reason             string    `json:"reason" gorm:"type:text"`
	MutualFriendsCount int       `json:"mutual_friends_count" gorm:"default:0"`
	Metadata           string    `json:"metadata" gorm:"type:text"` // JSON格式的来源附加信息
	Priority           int       `json:"priority" gorm:"default:1"`
	Status             string    `json:"status" gorm:"type:varchar(30);not null;index:idx_user_sug_status;index:idx_sug_status_created"`
	CreatedAt          time.Time `json:"created_at" gorm:"autoCreateTime;index:idx_sug_status_created"`
	UpdatedAt          time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (FriendSuggestion) TableName() string {
	return "friend_suggestions"
}

// ContactInfo 外部平台联系人，仅在单次同步内存在，不落库
type ContactInfo struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Platform string `json:"platform"`
}

// SuggestionContext 单次推荐生成的上下文
type SuggestionContext struct {
	UserEmail        string
	MaxSuggestions   int
	MinMutualFriends int
	ExcludeExisting  bool
}

// GenerationResult 单个策略的生成结果
type GenerationResult struct {
	Candidates []*FriendSuggestion
	Processed  int
	Skipped    int
	Errors     []string
}

// MutualFriendsResult 共同好友计算结果
type MutualFriendsResult struct {
	Count       int      `json:"count"`
	FriendNames []string `json:"friend_names"`
	FriendIDs   []string `json:"friend_ids"`
}

// SyncOptions 同步处理选项
type SyncOptions struct {
	BatchSize          int
	SkipDuplicateCheck bool
	CreateSuggestions  bool
}

// NewFriendDetail 同步中新建立的好友
type NewFriendDetail struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// SyncDetails 同步处理明细，用于前端展示和审计
type SyncDetails struct {
	ProcessedContacts []ContactInfo     `json:"processed_contacts"`
	NewFriends        []NewFriendDetail `json:"new_friends"`
}

// SyncResult 一次联系人同步的汇总结果
type SyncResult struct {
	SyncID                string      `json:"sync_id"`
	Platform              string      `json:"platform"`
	TotalContacts         int         `json:"total_contacts"`
	CashpopUsersFound     int         `json:"cashpop_users_found"`
	NewFriendshipsCreated int         `json:"new_friendships_created"`
	AlreadyFriends        int         `json:"already_friends"`
	Errors                []string    `json:"errors"`
	Warnings              []string    `json:"warnings,omitempty"`
	Details               SyncDetails `json:"details"`
	ExecutionTimeMs       int64       `json:"execution_time_ms"`
}

// RelationshipEvent 关系变更事件，投递到消息队列
type RelationshipEvent struct {
	EventType   string    `json:"event_type"`
	OwnerEmail  string    `json:"owner_email"`
	PeerEmail   string    `json:"peer_email"`
	Status      string    `json:"status"`
	InitiatedBy string    `json:"initiated_by"`
	Source      string    `json:"source,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// BatchItemResult 批量操作中单项的结果
type BatchItemResult struct {
	Key     string `json:"key"` // 请求ID或目标邮箱
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// BatchResult 批量操作汇总
type BatchResult struct {
	Succeeded int               `json:"succeeded"`
	Failed    int               `json:"failed"`
	Items     []BatchItemResult `json:"items"`
}

// FriendInfo 好友列表条目（带目录信息）
type FriendInfo struct {
	RelationshipID int64     `json:"relationship_id"`
	Email          string    `json:"email"`
	Username       string    `json:"username,omitempty"`
	Name           string    `json:"name,omitempty"`
	Avatar         string    `json:"avatar,omitempty"`
	AcceptedAt     time.Time `json:"accepted_at"`
}

// RequestInfo 好友申请条目
type RequestInfo struct {
	RequestID   int64     `json:"request_id"`
	FromEmail   string    `json:"from_email"`
	ToEmail     string    `json:"to_email"`
	Message     string    `json:"message,omitempty"`
	InitiatedBy string    `json:"initiated_by"`
	CreatedAt   time.Time `json:"created_at"`
}

// SuggestionInfo 推荐列表条目（带共同好友标注）
type SuggestionInfo struct {
	ID                 int64     `json:"id"`
	SuggestedUserEmail string    `json:"suggested_user_email"`
	Name               string    `json:"name,omitempty"`
	Avatar             string    `json:"avatar,omitempty"`
	Source             string    `json:"source"`
	Reason             string    `json:"reason"`
	MutualFriendsCount int       `json:"mutual_friends_count"`
	MutualFriendNames  []string  `json:"mutual_friend_names,omitempty"`
	Priority           int       `json:"priority"`
	CreatedAt          time.Time `json:"created_at"`
}
