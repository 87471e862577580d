package sync

import (
	"context"
	"errors"
	"fmt"

	"cashpop-social/apps/relationship-service/model"
)

// 平台侧错误，处理器据此决定告警文案
var (
	ErrInvalidCredential = errors.New("invalid or expired platform credential")
	ErrRateLimited       = errors.New("platform rate limit exceeded")
	ErrTimeout           = errors.New("platform request timed out")
)

// UpstreamError 平台返回的非预期错误
type UpstreamError struct {
	Platform   string
	StatusCode int
	Message    string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s API error (status %d): %s", e.Platform, e.StatusCode, e.Message)
}

// FetchOptions 拉取联系人的选项
type FetchOptions struct {
	Credential  string
	MaxContacts int
}

// PlatformAdapter 外部平台联系人适配器
type PlatformAdapter interface {
	// Platform 平台标识
	Platform() string
	// ValidateCredential 校验凭证有效性
	ValidateCredential(ctx context.Context, credential string) error
	// FetchContacts 拉取联系人，数量受MaxContacts限制
	FetchContacts(ctx context.Context, opts FetchOptions) ([]model.ContactInfo, error)
	// MockContacts 生成测试联系人，开发环境用
	MockContacts(count int) []model.ContactInfo
}

// capContacts 截断超出上限的联系人
func capContacts(contacts []model.ContactInfo, max int) []model.ContactInfo {
	if max <= 0 {
		max = model.MaxContactsPerSync
	}
	if len(contacts) > max {
		return contacts[:max]
	}
	return contacts
}
