package userdir

import (
	"context"
	"strings"
	"sync"
)

// MockDirectory 内存用户目录实现，供测试和本地环境使用
type MockDirectory struct {
	mu       sync.RWMutex
	byEmail  map[string]*Account
	byID     map[string]*Account
	failWith error
}

// NewMockDirectory 创建内存用户目录
func NewMockDirectory(accounts ...*Account) *MockDirectory {
	m := &MockDirectory{
		byEmail: make(map[string]*Account),
		byID:    make(map[string]*Account),
	}
	for _, account := range accounts {
		m.AddAccount(account)
	}
	return m
}

// AddAccount 注册账户
func (m *MockDirectory) AddAccount(account *Account) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byEmail[strings.ToLower(account.Email)] = account
	m.byID[account.ID] = account
}

// FailWith 让后续查询返回指定错误
func (m *MockDirectory) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failWith = err
}

func (m *MockDirectory) FindByEmail(ctx context.Context, email string) (*Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	return m.byEmail[strings.ToLower(strings.TrimSpace(email))], nil
}

func (m *MockDirectory) FindByEmails(ctx context.Context, emails []string) ([]*Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.failWith != nil {
		return nil, m.failWith
	}

	seen := make(map[string]struct{}, len(emails))
	result := make([]*Account, 0, len(emails))
	for _, email := range emails {
		email = strings.ToLower(strings.TrimSpace(email))
		if email == "" {
			continue
		}
		if _, ok := seen[email]; ok {
			continue
		}
		seen[email] = struct{}{}
		if account, ok := m.byEmail[email]; ok {
			result = append(result, account)
		}
	}
	return result, nil
}

func (m *MockDirectory) FindByID(ctx context.Context, id string) (*Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	return m.byID[id], nil
}
