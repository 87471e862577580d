package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"cashpop-social/apps/relationship-service/model"
	"cashpop-social/pkg/logger"
)

// ListSuggestions 好友推荐列表
func (h *HTTPHandler) ListSuggestions(c *gin.Context) {
	userEmail, ok := h.currentUserEmail(c)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))

	resp, err := h.suggestions.ListSuggestions(c.Request.Context(), userEmail, limit)
	if err != nil {
		h.writeError(c, "Failed to list suggestions", err, logger.F("user", userEmail))
		return
	}
	h.writeOK(c, "查询成功", resp)
}

// GenerateSuggestions 主动触发推荐生成
func (h *HTTPHandler) GenerateSuggestions(c *gin.Context) {
	userEmail, ok := h.currentUserEmail(c)
	if !ok {
		return
	}
	var req model.GenerateSuggestionsRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		h.badRequest(c, err)
		return
	}

	created, err := h.suggestions.GenerateForUser(c.Request.Context(), userEmail, req.MaxSuggestions, 0)
	if err != nil {
		h.writeError(c, "Failed to generate suggestions", err, logger.F("user", userEmail))
		return
	}
	h.writeOK(c, "推荐已生成", gin.H{"created": created})
}

// DismissSuggestion 忽略推荐
func (h *HTTPHandler) DismissSuggestion(c *gin.Context) {
	userEmail, ok := h.currentUserEmail(c)
	if !ok {
		return
	}
	var req model.DismissSuggestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	if err := h.suggestions.Dismiss(c.Request.Context(), userEmail, req.SuggestionID); err != nil {
		h.writeError(c, "Failed to dismiss suggestion", err,
			logger.F("user", userEmail),
			logger.F("suggestionID", req.SuggestionID))
		return
	}
	h.writeOK(c, "已忽略推荐", nil)
}
