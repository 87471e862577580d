package model

// SendFriendRequestRequest 发送好友申请
type SendFriendRequestRequest struct {
	TargetEmail string `json:"target_email" binding:"required"`
	Message     string `json:"message"`
}

// RespondFriendRequestRequest 处理好友申请
type RespondFriendRequestRequest struct {
	RequestID int64 `json:"request_id" binding:"required"`
}

// BatchRespondRequest 批量处理好友申请
type BatchRespondRequest struct {
	RequestIDs []int64 `json:"request_ids" binding:"required"`
}

// BatchSendRequest 批量发送好友申请
type BatchSendRequest struct {
	TargetEmails []string `json:"target_emails" binding:"required"`
	Message      string   `json:"message"`
}

// BlockFriendRequest 拉黑好友
type BlockFriendRequest struct {
	TargetEmail string `json:"target_email" binding:"required"`
}

// MutualFriendsRequest 查询共同好友
type MutualFriendsRequest struct {
	TargetEmail string `json:"target_email" binding:"required"`
}

// BatchMutualFriendsRequest 批量查询共同好友
type BatchMutualFriendsRequest struct {
	TargetEmails []string `json:"target_emails" binding:"required"`
}

// SyncGoogleContactsRequest Google通讯录同步
type SyncGoogleContactsRequest struct {
	AccessToken string `json:"access_token" binding:"required"`
	MaxContacts int    `json:"max_contacts"`
}

// SyncFacebookFriendsRequest Facebook好友同步
type SyncFacebookFriendsRequest struct {
	AccessToken string `json:"access_token" binding:"required"`
	MaxContacts int    `json:"max_contacts"`
}

// SyncDeviceContactsRequest 设备通讯录同步
type SyncDeviceContactsRequest struct {
	Contacts []ContactInfo `json:"contacts" binding:"required"`
}

// InitializeSyncRequest 注册后初始化同步，按平台携带凭证
type InitializeSyncRequest struct {
	GoogleAccessToken   string        `json:"google_access_token"`
	FacebookAccessToken string        `json:"facebook_access_token"`
	DeviceContacts      []ContactInfo `json:"device_contacts"`
}

// DismissSuggestionRequest 忽略推荐
type DismissSuggestionRequest struct {
	SuggestionID int64 `json:"suggestion_id" binding:"required"`
}

// GenerateSuggestionsRequest 主动触发推荐生成
type GenerateSuggestionsRequest struct {
	MaxSuggestions int `json:"max_suggestions"`
}

// ListFriendsResponse 好友列表
type ListFriendsResponse struct {
	Friends    []FriendInfo `json:"friends"`
	Total      int          `json:"total"`
	NextCursor string       `json:"next_cursor,omitempty"`
}

// ListRequestsResponse 申请列表
type ListRequestsResponse struct {
	Requests   []RequestInfo `json:"requests"`
	Total      int           `json:"total"`
	NextCursor string        `json:"next_cursor,omitempty"`
}

// ListSuggestionsResponse 推荐列表
type ListSuggestionsResponse struct {
	Suggestions []SuggestionInfo `json:"suggestions"`
	Total       int              `json:"total"`
}

// RelationshipStatusResponse 两用户间关系状态
type RelationshipStatusResponse struct {
	Exists      bool   `json:"exists"`
	Status      string `json:"status,omitempty"`
	InitiatedBy string `json:"initiated_by,omitempty"`
}
