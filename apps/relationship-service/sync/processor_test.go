package sync

import (
	"context"
	"fmt"
	gosync "sync"
	"testing"
	"time"

	"cashpop-social/apps/relationship-service/model"
	"cashpop-social/pkg/logger"
	"cashpop-social/pkg/userdir"
)

// fakeEngine 记录建立关系调用的测试引擎
type fakeEngine struct {
	mu      gosync.Mutex
	friends map[string]bool
	failFor map[string]error
	calls   int
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{
		friends: make(map[string]bool),
		failFor: make(map[string]error),
	}
}

func (e *fakeEngine) IsFriend(ctx context.Context, userEmail, targetEmail string) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.friends[targetEmail], nil
}

func (e *fakeEngine) AutoAcceptFriendship(ctx context.Context, userEmail, contactEmail string) (bool, string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	if err := e.failFor[contactEmail]; err != nil {
		return false, "", err
	}
	if e.friends[contactEmail] {
		return false, model.AutoAcceptReasonAlreadyFriend, nil
	}
	e.friends[contactEmail] = true
	return true, model.AutoAcceptReasonCreated, nil
}

// fakeSink 记录推荐生成调用
type fakeSink struct {
	mu       gosync.Mutex
	contacts []model.ContactInfo
	calls    int
}

func (s *fakeSink) GenerateFromContacts(ctx context.Context, userEmail, platform string, contacts []model.ContactInfo, maxSuggestions int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.contacts = append(s.contacts, contacts...)
	return len(contacts), nil
}

// stubAdapter 返回固定联系人或固定错误
type stubAdapter struct {
	platform string
	contacts []model.ContactInfo
	err      error
}

func (a *stubAdapter) Platform() string { return a.platform }

func (a *stubAdapter) ValidateCredential(ctx context.Context, credential string) error {
	return a.err
}

func (a *stubAdapter) FetchContacts(ctx context.Context, opts FetchOptions) ([]model.ContactInfo, error) {
	if a.err != nil {
		return nil, a.err
	}
	return capContacts(a.contacts, opts.MaxContacts), nil
}

func (a *stubAdapter) MockContacts(count int) []model.ContactInfo { return nil }

func registeredContacts(n int) ([]model.ContactInfo, []*userdir.Account) {
	contacts := make([]model.ContactInfo, n)
	accounts := make([]*userdir.Account, n)
	for i := 0; i < n; i++ {
		email := fmt.Sprintf("user%d@example.com", i)
		contacts[i] = model.ContactInfo{
			ID:       fmt.Sprintf("c%d", i),
			Name:     fmt.Sprintf("User %d", i),
			Email:    email,
			Platform: model.PlatformContacts,
		}
		accounts[i] = &userdir.Account{ID: email, Email: email, Name: contacts[i].Name}
	}
	return contacts, accounts
}

func newTestProcessor(engine FriendshipEngine, directory userdir.Directory, sink SuggestionSink, batchSize int) *Processor {
	return NewProcessor(engine, directory, sink, logger.GetLogger(), batchSize, 3, time.Millisecond, 0)
}

// TestProcessCreatesFriendships 匹配到注册用户的联系人自动建立关系
func TestProcessCreatesFriendships(t *testing.T) {
	contacts, accounts := registeredContacts(5)
	// 再混入两个未注册联系人
	contacts = append(contacts,
		model.ContactInfo{ID: "x1", Name: "Stranger", Email: "stranger@example.com"},
		model.ContactInfo{ID: "x2", Name: "NoEmail"})

	engine := newFakeEngine()
	processor := newTestProcessor(engine, userdir.NewMockDirectory(accounts...), nil, 2)

	result := processor.Process(context.Background(), "me@example.com",
		&stubAdapter{platform: model.PlatformContacts, contacts: contacts},
		FetchOptions{}, model.SyncOptions{})

	if result.TotalContacts != 6 {
		t.Errorf("total = %d, want 6 (no-email contact dropped)", result.TotalContacts)
	}
	if result.CashpopUsersFound != 5 {
		t.Errorf("users found = %d, want 5", result.CashpopUsersFound)
	}
	if result.NewFriendshipsCreated != 5 {
		t.Errorf("friendships created = %d, want 5", result.NewFriendshipsCreated)
	}
	if len(result.Details.NewFriends) != 5 {
		t.Errorf("new friend details = %d, want 5", len(result.Details.NewFriends))
	}
	if len(result.Warnings) == 0 {
		t.Error("expected warning about contact without email")
	}
	if result.SyncID == "" || result.Platform != model.PlatformContacts {
		t.Errorf("result metadata incomplete: %+v", result)
	}
}

// TestProcessIdempotent 二次同步同样的联系人不重复建立关系
func TestProcessIdempotent(t *testing.T) {
	contacts, accounts := registeredContacts(3)
	engine := newFakeEngine()
	processor := newTestProcessor(engine, userdir.NewMockDirectory(accounts...), nil, 10)
	adapter := &stubAdapter{platform: model.PlatformContacts, contacts: contacts}
	ctx := context.Background()

	first := processor.Process(ctx, "me@example.com", adapter, FetchOptions{}, model.SyncOptions{})
	if first.NewFriendshipsCreated != 3 {
		t.Fatalf("first run created = %d, want 3", first.NewFriendshipsCreated)
	}

	second := processor.Process(ctx, "me@example.com", adapter, FetchOptions{}, model.SyncOptions{})
	if second.NewFriendshipsCreated != 0 {
		t.Errorf("second run created = %d, want 0", second.NewFriendshipsCreated)
	}
	if second.AlreadyFriends != 3 {
		t.Errorf("second run already friends = %d, want 3", second.AlreadyFriends)
	}
}

// TestProcessFetchErrorNeverPanics 凭证失效时返回结果对象并带可读错误
func TestProcessFetchErrorNeverPanics(t *testing.T) {
	engine := newFakeEngine()
	processor := newTestProcessor(engine, userdir.NewMockDirectory(), nil, 10)

	for _, tc := range []struct {
		name string
		err  error
	}{
		{"invalid credential", ErrInvalidCredential},
		{"rate limited", ErrRateLimited},
		{"timeout", ErrTimeout},
		{"upstream", &UpstreamError{Platform: "google", StatusCode: 500, Message: "boom"}},
	} {
		result := processor.Process(context.Background(), "me@example.com",
			&stubAdapter{platform: model.PlatformGoogle, err: tc.err},
			FetchOptions{}, model.SyncOptions{})
		if len(result.Errors) != 1 {
			t.Errorf("%s: errors = %v, want exactly one", tc.name, result.Errors)
		}
		if result.TotalContacts != 0 || result.NewFriendshipsCreated != 0 {
			t.Errorf("%s: result should be empty, got %+v", tc.name, result)
		}
	}
	if engine.calls != 0 {
		t.Errorf("engine should not be called on fetch failure, got %d calls", engine.calls)
	}
}

// TestProcessPartialFailure 单个联系人失败不影响其它联系人
func TestProcessPartialFailure(t *testing.T) {
	contacts, accounts := registeredContacts(4)
	engine := newFakeEngine()
	engine.failFor["user2@example.com"] = fmt.Errorf("db write failed")
	processor := newTestProcessor(engine, userdir.NewMockDirectory(accounts...), nil, 2)

	result := processor.Process(context.Background(), "me@example.com",
		&stubAdapter{platform: model.PlatformContacts, contacts: contacts},
		FetchOptions{}, model.SyncOptions{})

	if result.NewFriendshipsCreated != 3 {
		t.Errorf("created = %d, want 3", result.NewFriendshipsCreated)
	}
	if len(result.Errors) != 1 {
		t.Errorf("errors = %v, want exactly one", result.Errors)
	}
}

// TestProcessContactCap 联系人数量被硬上限截断
func TestProcessContactCap(t *testing.T) {
	contacts, accounts := registeredContacts(10)
	engine := newFakeEngine()
	processor := NewProcessor(engine, userdir.NewMockDirectory(accounts...), nil, logger.GetLogger(), 50, 3, 0, 4)

	result := processor.Process(context.Background(), "me@example.com",
		&stubAdapter{platform: model.PlatformContacts, contacts: contacts},
		FetchOptions{}, model.SyncOptions{})

	if result.TotalContacts != 4 {
		t.Errorf("total = %d, want capped at 4", result.TotalContacts)
	}
}

// TestProcessSkipsSelfAndDuplicates 自己和重复联系人被过滤
func TestProcessSkipsSelfAndDuplicates(t *testing.T) {
	contacts, accounts := registeredContacts(2)
	contacts = append(contacts, contacts[0]) // 重复
	contacts = append(contacts, model.ContactInfo{ID: "self", Name: "Me", Email: "me@example.com"})

	engine := newFakeEngine()
	processor := newTestProcessor(engine, userdir.NewMockDirectory(accounts...), nil, 10)

	result := processor.Process(context.Background(), "me@example.com",
		&stubAdapter{platform: model.PlatformContacts, contacts: contacts},
		FetchOptions{}, model.SyncOptions{})

	if result.TotalContacts != 2 {
		t.Errorf("total = %d, want 2 after dropping self and duplicate", result.TotalContacts)
	}
	if result.NewFriendshipsCreated != 2 {
		t.Errorf("created = %d, want 2", result.NewFriendshipsCreated)
	}
}

// TestProcessCreateSuggestionsMode 推荐模式不直接建立关系，匹配联系人交给推荐管道
func TestProcessCreateSuggestionsMode(t *testing.T) {
	contacts, accounts := registeredContacts(3)
	engine := newFakeEngine()
	sink := &fakeSink{}
	processor := newTestProcessor(engine, userdir.NewMockDirectory(accounts...), sink, 10)

	result := processor.Process(context.Background(), "me@example.com",
		&stubAdapter{platform: model.PlatformContacts, contacts: contacts},
		FetchOptions{}, model.SyncOptions{CreateSuggestions: true})

	if result.NewFriendshipsCreated != 0 {
		t.Errorf("created = %d, want 0 in suggestion mode", result.NewFriendshipsCreated)
	}
	if result.CashpopUsersFound != 3 {
		t.Errorf("users found = %d, want 3", result.CashpopUsersFound)
	}
	if sink.calls != 1 || len(sink.contacts) != 3 {
		t.Errorf("sink calls=%d contacts=%d, want 1/3", sink.calls, len(sink.contacts))
	}
}
