package converter

import (
	"errors"
	"net/http"

	"cashpop-social/apps/relationship-service/model"
)

// Converter 转换器，提供Model到响应视图的转换和错误映射
type Converter struct{}

// NewConverter 创建转换器实例
func NewConverter() *Converter {
	return &Converter{}
}

// RelationshipToRequestInfo 将关系记录转换为申请视图
func (c *Converter) RelationshipToRequestInfo(rel *model.Relationship) *model.RequestInfo {
	if rel == nil {
		return nil
	}

	info := &model.RequestInfo{
		RequestID:   rel.ID,
		Message:     rel.Message,
		InitiatedBy: rel.InitiatedBy,
		CreatedAt:   rel.CreatedAt,
	}
	if rel.InitiatedBy == rel.OwnerEmail {
		info.FromEmail = rel.OwnerEmail
		info.ToEmail = rel.PeerEmail
	} else {
		info.FromEmail = rel.PeerEmail
		info.ToEmail = rel.OwnerEmail
	}
	return info
}

// StatusForError 将领域错误映射为HTTP状态码
func (c *Converter) StatusForError(err error) int {
	var targetNotFound *model.TargetNotFoundError
	var requestNotFound *model.RequestNotFoundError
	var notRelated *model.NotRelatedError
	var alreadyRelated *model.AlreadyRelatedError

	switch {
	case errors.Is(err, model.ErrSelfRequest),
		errors.Is(err, model.ErrInvalidEmail),
		errors.Is(err, model.ErrInvalidStatus):
		return http.StatusBadRequest
	case errors.As(err, &targetNotFound),
		errors.As(err, &requestNotFound),
		errors.As(err, &notRelated),
		errors.Is(err, model.ErrSuggestionMissing):
		return http.StatusNotFound
	case errors.As(err, &alreadyRelated):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
