package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"cashpop-social/apps/relationship-service/converter"
	"cashpop-social/apps/relationship-service/model"
	"cashpop-social/apps/relationship-service/service"
	"cashpop-social/apps/relationship-service/suggestion"
	"cashpop-social/apps/relationship-service/sync"
	"cashpop-social/pkg/logger"
)

// HTTPHandler HTTP处理器
type HTTPHandler struct {
	svc         *service.Service
	suggestions *suggestion.Manager
	syncer      *sync.Syncer
	converter   *converter.Converter
	logger      logger.Logger
}

// NewHTTPHandler 创建HTTP处理器
func NewHTTPHandler(svc *service.Service, suggestions *suggestion.Manager, syncer *sync.Syncer, log logger.Logger) *HTTPHandler {
	return &HTTPHandler{
		svc:         svc,
		suggestions: suggestions,
		syncer:      syncer,
		converter:   converter.NewConverter(),
		logger:      log,
	}
}

// RegisterRoutes 注册HTTP路由
func (h *HTTPHandler) RegisterRoutes(r *gin.Engine) {
	relationship := r.Group("/api/v1/relationship")
	{
		relationship.POST("/request", h.SendFriendRequest)        // 发送好友申请
		relationship.POST("/accept", h.AcceptFriendRequest)       // 接受申请
		relationship.POST("/reject", h.RejectFriendRequest)       // 拒绝申请
		relationship.POST("/batch_request", h.BatchSendRequests)  // 批量发送申请
		relationship.POST("/batch_accept", h.BatchAcceptRequests) // 批量接受
		relationship.POST("/batch_reject", h.BatchRejectRequests) // 批量拒绝
		relationship.POST("/block", h.BlockFriend)                // 拉黑
		relationship.GET("/friends", h.ListFriends)               // 好友列表
		relationship.GET("/requests/incoming", h.ListIncoming)    // 收到的申请
		relationship.GET("/requests/outgoing", h.ListOutgoing)    // 发出的申请
		relationship.POST("/status", h.CheckStatus)               // 关系状态
		relationship.POST("/mutual", h.MutualFriends)             // 共同好友
		relationship.POST("/mutual/batch", h.BatchMutualFriends)  // 批量共同好友
	}

	syncGroup := r.Group("/api/v1/sync")
	{
		syncGroup.POST("/google", h.SyncGoogle)       // Google通讯录同步
		syncGroup.POST("/facebook", h.SyncFacebook)   // Facebook好友同步
		syncGroup.POST("/contacts", h.SyncContacts)   // 设备通讯录同步
		syncGroup.POST("/initialize", h.SyncInitial)  // 注册后初始化同步
	}

	suggestionGroup := r.Group("/api/v1/suggestion")
	{
		suggestionGroup.GET("/list", h.ListSuggestions)         // 推荐列表
		suggestionGroup.POST("/generate", h.GenerateSuggestions) // 触发推荐生成
		suggestionGroup.POST("/dismiss", h.DismissSuggestion)   // 忽略推荐
	}
}

// currentUserEmail 从认证中间件取当前用户
func (h *HTTPHandler) currentUserEmail(c *gin.Context) (string, bool) {
	email := c.GetString("userEmail")
	if email == "" {
		c.JSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"message": "未认证",
		})
		return "", false
	}
	return email, true
}

func (h *HTTPHandler) badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"success": false,
		"message": "参数错误: " + err.Error(),
	})
}

func (h *HTTPHandler) writeError(c *gin.Context, action string, err error, fields ...logger.Field) {
	allFields := append([]logger.Field{logger.F("error", err.Error())}, fields...)
	h.logger.Error(c.Request.Context(), action, allFields...)
	c.JSON(h.converter.StatusForError(err), gin.H{
		"success": false,
		"message": err.Error(),
	})
}

func (h *HTTPHandler) writeOK(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": message,
		"data":    data,
	})
}

// SendFriendRequest 发送好友申请
func (h *HTTPHandler) SendFriendRequest(c *gin.Context) {
	userEmail, ok := h.currentUserEmail(c)
	if !ok {
		return
	}
	var req model.SendFriendRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	relationship, err := h.svc.SendFriendRequest(c.Request.Context(), userEmail, req.TargetEmail, req.Message)
	if err != nil {
		h.writeError(c, "Failed to send friend request", err,
			logger.F("sender", userEmail),
			logger.F("target", req.TargetEmail))
		return
	}
	h.writeOK(c, "好友申请已发送", h.converter.RelationshipToRequestInfo(relationship))
}

// AcceptFriendRequest 接受好友申请
func (h *HTTPHandler) AcceptFriendRequest(c *gin.Context) {
	userEmail, ok := h.currentUserEmail(c)
	if !ok {
		return
	}
	var req model.RespondFriendRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	relationship, err := h.svc.AcceptFriendRequest(c.Request.Context(), userEmail, req.RequestID)
	if err != nil {
		h.writeError(c, "Failed to accept friend request", err,
			logger.F("user", userEmail),
			logger.F("requestID", req.RequestID))
		return
	}
	h.writeOK(c, "已接受好友申请", relationship)
}

// RejectFriendRequest 拒绝好友申请
func (h *HTTPHandler) RejectFriendRequest(c *gin.Context) {
	userEmail, ok := h.currentUserEmail(c)
	if !ok {
		return
	}
	var req model.RespondFriendRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	if _, err := h.svc.RejectFriendRequest(c.Request.Context(), userEmail, req.RequestID); err != nil {
		h.writeError(c, "Failed to reject friend request", err,
			logger.F("user", userEmail),
			logger.F("requestID", req.RequestID))
		return
	}
	h.writeOK(c, "已拒绝好友申请", nil)
}

// BatchSendRequests 批量发送好友申请
func (h *HTTPHandler) BatchSendRequests(c *gin.Context) {
	userEmail, ok := h.currentUserEmail(c)
	if !ok {
		return
	}
	var req model.BatchSendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	result := h.svc.BatchSendRequests(c.Request.Context(), userEmail, req.TargetEmails, req.Message)
	h.writeOK(c, "批量申请已处理", result)
}

// BatchAcceptRequests 批量接受好友申请
func (h *HTTPHandler) BatchAcceptRequests(c *gin.Context) {
	userEmail, ok := h.currentUserEmail(c)
	if !ok {
		return
	}
	var req model.BatchRespondRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	result := h.svc.BatchAcceptRequests(c.Request.Context(), userEmail, req.RequestIDs)
	h.writeOK(c, "批量接受已处理", result)
}

// BatchRejectRequests 批量拒绝好友申请
func (h *HTTPHandler) BatchRejectRequests(c *gin.Context) {
	userEmail, ok := h.currentUserEmail(c)
	if !ok {
		return
	}
	var req model.BatchRespondRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	result := h.svc.BatchRejectRequests(c.Request.Context(), userEmail, req.RequestIDs)
	h.writeOK(c, "批量拒绝已处理", result)
}

// BlockFriend 拉黑好友
func (h *HTTPHandler) BlockFriend(c *gin.Context) {
	userEmail, ok := h.currentUserEmail(c)
	if !ok {
		return
	}
	var req model.BlockFriendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	if err := h.svc.BlockFriend(c.Request.Context(), userEmail, req.TargetEmail); err != nil {
		h.writeError(c, "Failed to block friend", err,
			logger.F("user", userEmail),
			logger.F("target", req.TargetEmail))
		return
	}
	h.writeOK(c, "已拉黑", nil)
}

func (h *HTTPHandler) pageParams(c *gin.Context) (int, string) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
	return limit, c.Query("cursor")
}

// ListFriends 好友列表
func (h *HTTPHandler) ListFriends(c *gin.Context) {
	userEmail, ok := h.currentUserEmail(c)
	if !ok {
		return
	}
	limit, cursor := h.pageParams(c)

	resp, err := h.svc.ListFriends(c.Request.Context(), userEmail, limit, cursor)
	if err != nil {
		h.writeError(c, "Failed to list friends", err, logger.F("user", userEmail))
		return
	}
	h.writeOK(c, "查询成功", resp)
}

// ListIncoming 收到的好友申请
func (h *HTTPHandler) ListIncoming(c *gin.Context) {
	userEmail, ok := h.currentUserEmail(c)
	if !ok {
		return
	}
	limit, cursor := h.pageParams(c)

	resp, err := h.svc.ListIncomingRequests(c.Request.Context(), userEmail, limit, cursor)
	if err != nil {
		h.writeError(c, "Failed to list incoming requests", err, logger.F("user", userEmail))
		return
	}
	h.writeOK(c, "查询成功", resp)
}

// ListOutgoing 发出的好友申请
func (h *HTTPHandler) ListOutgoing(c *gin.Context) {
	userEmail, ok := h.currentUserEmail(c)
	if !ok {
		return
	}
	limit, cursor := h.pageParams(c)

	resp, err := h.svc.ListOutgoingRequests(c.Request.Context(), userEmail, limit, cursor)
	if err != nil {
		h.writeError(c, "Failed to list outgoing requests", err, logger.F("user", userEmail))
		return
	}
	h.writeOK(c, "查询成功", resp)
}

// CheckStatus 查询与目标用户的关系状态
func (h *HTTPHandler) CheckStatus(c *gin.Context) {
	userEmail, ok := h.currentUserEmail(c)
	if !ok {
		return
	}
	var req model.MutualFriendsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	resp, err := h.svc.CheckBidirectionalRelationship(c.Request.Context(), userEmail, req.TargetEmail)
	if err != nil {
		h.writeError(c, "Failed to check relationship status", err,
			logger.F("user", userEmail),
			logger.F("target", req.TargetEmail))
		return
	}
	h.writeOK(c, "查询成功", resp)
}

// MutualFriends 查询共同好友
func (h *HTTPHandler) MutualFriends(c *gin.Context) {
	userEmail, ok := h.currentUserEmail(c)
	if !ok {
		return
	}
	var req model.MutualFriendsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	result, err := h.svc.CalculateMutualFriends(c.Request.Context(), userEmail, req.TargetEmail)
	if err != nil {
		h.writeError(c, "Failed to calculate mutual friends", err,
			logger.F("user", userEmail),
			logger.F("target", req.TargetEmail))
		return
	}
	h.writeOK(c, "查询成功", result)
}

// BatchMutualFriends 批量查询共同好友
func (h *HTTPHandler) BatchMutualFriends(c *gin.Context) {
	userEmail, ok := h.currentUserEmail(c)
	if !ok {
		return
	}
	var req model.BatchMutualFriendsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	results, err := h.svc.BatchCalculateMutualFriends(c.Request.Context(), userEmail, req.TargetEmails)
	if err != nil {
		h.writeError(c, "Failed to batch calculate mutual friends", err,
			logger.F("user", userEmail))
		return
	}
	h.writeOK(c, "查询成功", results)
}
