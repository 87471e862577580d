package handler

import (
	"github.com/gin-gonic/gin"

	"cashpop-social/apps/relationship-service/model"
)

// syncOptions 从查询参数读同步选项
func syncOptions(c *gin.Context) model.SyncOptions {
	return model.SyncOptions{
		SkipDuplicateCheck: c.Query("skip_duplicate_check") == "true",
		CreateSuggestions:  c.Query("create_suggestions") == "true",
	}
}

// SyncGoogle Google通讯录同步
func (h *HTTPHandler) SyncGoogle(c *gin.Context) {
	userEmail, ok := h.currentUserEmail(c)
	if !ok {
		return
	}
	var req model.SyncGoogleContactsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	result := h.syncer.SyncGoogle(c.Request.Context(), userEmail, req.AccessToken, req.MaxContacts, syncOptions(c))
	h.writeOK(c, "同步完成", result)
}

// SyncFacebook Facebook好友同步
func (h *HTTPHandler) SyncFacebook(c *gin.Context) {
	userEmail, ok := h.currentUserEmail(c)
	if !ok {
		return
	}
	var req model.SyncFacebookFriendsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	result := h.syncer.SyncFacebook(c.Request.Context(), userEmail, req.AccessToken, req.MaxContacts, syncOptions(c))
	h.writeOK(c, "同步完成", result)
}

// SyncContacts 设备通讯录同步
func (h *HTTPHandler) SyncContacts(c *gin.Context) {
	userEmail, ok := h.currentUserEmail(c)
	if !ok {
		return
	}
	var req model.SyncDeviceContactsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	result := h.syncer.SyncDeviceContacts(c.Request.Context(), userEmail, req.Contacts, syncOptions(c))
	h.writeOK(c, "同步完成", result)
}

// SyncInitial 注册后初始化同步，依次处理全部携带凭证的平台
func (h *HTTPHandler) SyncInitial(c *gin.Context) {
	userEmail, ok := h.currentUserEmail(c)
	if !ok {
		return
	}
	var req model.InitializeSyncRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	results := h.syncer.InitializeSync(c.Request.Context(), userEmail, &req)
	h.writeOK(c, "初始化同步完成", results)
}
