package sync

import (
	"context"
	"strings"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"

	"cashpop-social/apps/relationship-service/model"
)

// DeviceContactsAdapter 设备通讯录适配器
// 联系人由客户端上传，这里只做归一化和截断
type DeviceContactsAdapter struct {
	contacts []model.ContactInfo
}

// NewDeviceContactsAdapter 创建设备通讯录适配器
func NewDeviceContactsAdapter(contacts []model.ContactInfo) *DeviceContactsAdapter {
	return &DeviceContactsAdapter{contacts: contacts}
}

// Platform 平台标识
func (a *DeviceContactsAdapter) Platform() string {
	return model.PlatformContacts
}

// ValidateCredential 设备通讯录无凭证，恒通过
func (a *DeviceContactsAdapter) ValidateCredential(ctx context.Context, credential string) error {
	return nil
}

// FetchContacts 归一化上传的联系人，丢弃无邮箱条目
func (a *DeviceContactsAdapter) FetchContacts(ctx context.Context, opts FetchOptions) ([]model.ContactInfo, error) {
	normalized := make([]model.ContactInfo, 0, len(a.contacts))
	seen := make(map[string]bool, len(a.contacts))
	for _, contact := range a.contacts {
		email := strings.ToLower(strings.TrimSpace(contact.Email))
		if email == "" || seen[email] {
			continue
		}
		seen[email] = true

		if contact.ID == "" {
			contact.ID = uuid.NewString()
		}
		contact.Email = email
		contact.Name = strings.TrimSpace(contact.Name)
		contact.Platform = model.PlatformContacts
		normalized = append(normalized, contact)
	}
	return capContacts(normalized, opts.MaxContacts), nil
}

// MockContacts 生成假联系人，开发环境联调用
func (a *DeviceContactsAdapter) MockContacts(count int) []model.ContactInfo {
	contacts := make([]model.ContactInfo, count)
	for i := range contacts {
		contacts[i] = model.ContactInfo{
			ID:       uuid.NewString(),
			Name:     gofakeit.Name(),
			Email:    gofakeit.Email(),
			Phone:    gofakeit.Phone(),
			Platform: model.PlatformContacts,
		}
	}
	return contacts
}
