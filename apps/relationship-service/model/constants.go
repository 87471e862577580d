package model

// 关系状态（按方向存储，一段成功的好友关系恒为两行）
const (
	RelationshipStatusPending  = "PENDING"  // 发起方视角：等待对方处理
	RelationshipStatusReceived = "RECEIVED" // 接收方视角：收到的申请
	RelationshipStatusAccepted = "ACCEPTED"
	RelationshipStatusRejected = "REJECTED"
	RelationshipStatusBlocked  = "BLOCKED"
)

// 推荐状态
const (
	SuggestionStatusActive            = "ACTIVE"
	SuggestionStatusDismissed         = "DISMISSED"
	SuggestionStatusFriendRequestSent = "FRIEND_REQUEST_SENT"
)

// 推荐来源
const (
	SuggestionSourceContact       = "contact"
	SuggestionSourceMutualFriends = "mutual_friends"
	SuggestionSourceGoogle        = "google"
	SuggestionSourceFacebook      = "facebook"
	SuggestionSourceSystem        = "system"
)

// 同步平台
const (
	PlatformContacts = "contacts"
	PlatformGoogle   = "google"
	PlatformFacebook = "facebook"
)

// 自动接受结果说明
const (
	AutoAcceptReasonCreated       = "Friendship created"
	AutoAcceptReasonAlreadyFriend = "Already friends"
	AutoAcceptReasonPendingExists = "Pending request exists"
	AutoAcceptReasonBlocked       = "Blocked relationship exists"
)

// 默认配置
const (
	DefaultPageSize       = 20
	DefaultSyncBatchSize  = 50
	DefaultMaxSuggestions = 20
	MaxContactsPerSync    = 5000

	// 优先级范围 1-10
	MinPriority = 1
	MaxPriority = 10
)
