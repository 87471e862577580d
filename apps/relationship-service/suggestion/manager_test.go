package suggestion

import (
	"context"
	"testing"

	"cashpop-social/apps/relationship-service/dao"
	"cashpop-social/apps/relationship-service/model"
	"cashpop-social/pkg/logger"
	"cashpop-social/pkg/userdir"
)

// stubStrategy 固定返回预置候选的测试策略
type stubStrategy struct {
	baseStrategy
	candidates []*model.FriendSuggestion
}

func (s *stubStrategy) Generate(ctx context.Context, sctx *model.SuggestionContext) (*model.GenerationResult, error) {
	return &model.GenerationResult{Candidates: s.candidates}, nil
}

func newStub(name, source string, candidates ...*model.FriendSuggestion) *stubStrategy {
	return &stubStrategy{
		baseStrategy: newBaseStrategy(name, source, 3),
		candidates:   candidates,
	}
}

func candidate(user, suggested string, priority int, source string) *model.FriendSuggestion {
	return &model.FriendSuggestion{
		UserEmail:          user,
		SuggestedUserEmail: suggested,
		Source:             source,
		Priority:           priority,
		Status:             model.SuggestionStatusActive,
	}
}

func newTestManager(accounts ...*userdir.Account) (*Manager, *dao.MemoryRelationshipDAO, *dao.MemorySuggestionDAO) {
	relationshipDAO := dao.NewMemoryRelationshipDAO()
	suggestionDAO := dao.NewMemorySuggestionDAO()
	directory := userdir.NewMockDirectory(accounts...)
	return NewManager(relationshipDAO, suggestionDAO, directory, logger.GetLogger()), relationshipDAO, suggestionDAO
}

// TestGenerateDedupHighestPriority 多策略产出同一候选时保留优先级最高的
func TestGenerateDedupHighestPriority(t *testing.T) {
	manager, _, suggestionDAO := newTestManager()
	ctx := context.Background()

	manager.Register(newStub("a", model.SuggestionSourceContact,
		candidate("alice@example.com", "bob@example.com", 4, model.SuggestionSourceContact)))
	manager.Register(newStub("b", model.SuggestionSourceGoogle,
		candidate("alice@example.com", "bob@example.com", 7, model.SuggestionSourceGoogle)))

	created, err := manager.GenerateForUser(ctx, "alice@example.com", 10, 0)
	if err != nil {
		t.Fatalf("GenerateForUser failed: %v", err)
	}
	if created != 1 {
		t.Fatalf("created = %d, want 1 after dedup", created)
	}

	active, _ := suggestionDAO.ListActiveSuggestions(ctx, "alice@example.com", 10)
	if len(active) != 1 {
		t.Fatalf("active = %d, want 1", len(active))
	}
	if active[0].Priority != 7 || active[0].Source != model.SuggestionSourceGoogle {
		t.Errorf("kept candidate priority=%d source=%s, want the higher priority google one", active[0].Priority, active[0].Source)
	}
}

// TestGenerateFiltersExistingRelationships 已有关系的候选被过滤
func TestGenerateFiltersExistingRelationships(t *testing.T) {
	manager, relationshipDAO, suggestionDAO := newTestManager()
	ctx := context.Background()

	// alice和bob已是好友
	if _, _, err := relationshipDAO.AutoAcceptPair(ctx, "alice@example.com", "bob@example.com"); err != nil {
		t.Fatalf("seed friendship failed: %v", err)
	}

	manager.Register(newStub("s", model.SuggestionSourceContact,
		candidate("alice@example.com", "bob@example.com", 5, model.SuggestionSourceContact),
		candidate("alice@example.com", "carol@example.com", 5, model.SuggestionSourceContact)))

	created, err := manager.GenerateForUser(ctx, "alice@example.com", 10, 0)
	if err != nil {
		t.Fatalf("GenerateForUser failed: %v", err)
	}
	if created != 1 {
		t.Fatalf("created = %d, want 1 (bob filtered)", created)
	}

	active, _ := suggestionDAO.ListActiveSuggestions(ctx, "alice@example.com", 10)
	if len(active) != 1 || active[0].SuggestedUserEmail != "carol@example.com" {
		t.Errorf("expected only carol suggested, got %+v", active)
	}
}

// TestGenerateSkipsActiveDuplicates 已有活跃推荐不重复写入
func TestGenerateSkipsActiveDuplicates(t *testing.T) {
	manager, _, _ := newTestManager()
	ctx := context.Background()

	manager.Register(newStub("s", model.SuggestionSourceContact,
		candidate("alice@example.com", "bob@example.com", 5, model.SuggestionSourceContact)))

	if created, err := manager.GenerateForUser(ctx, "alice@example.com", 10, 0); err != nil || created != 1 {
		t.Fatalf("first generate: created=%d err=%v, want 1/nil", created, err)
	}
	// 再跑一轮，同一候选不再入库
	if created, err := manager.GenerateForUser(ctx, "alice@example.com", 10, 0); err != nil || created != 0 {
		t.Fatalf("second generate: created=%d err=%v, want 0/nil", created, err)
	}
}

// TestMutualFriendsStrategy 好友的好友进入候选，直接好友被排除
func TestMutualFriendsStrategy(t *testing.T) {
	relationshipDAO := dao.NewMemoryRelationshipDAO()
	ctx := context.Background()

	// alice-bob、bob-carol、bob-dave：carol和dave是alice的二度关系
	for _, pair := range [][2]string{
		{"alice@example.com", "bob@example.com"},
		{"bob@example.com", "carol@example.com"},
		{"bob@example.com", "dave@example.com"},
	} {
		if _, _, err := relationshipDAO.AutoAcceptPair(ctx, pair[0], pair[1]); err != nil {
			t.Fatalf("seed failed: %v", err)
		}
	}

	strategy := NewMutualFriendsStrategy(relationshipDAO)
	result, err := strategy.Generate(ctx, &model.SuggestionContext{
		UserEmail:        "alice@example.com",
		MaxSuggestions:   10,
		MinMutualFriends: 1,
	})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	got := make(map[string]int)
	for _, c := range result.Candidates {
		got[c.SuggestedUserEmail] = c.MutualFriendsCount
	}
	if len(got) != 2 {
		t.Fatalf("candidates = %v, want carol and dave", got)
	}
	if got["carol@example.com"] != 1 || got["dave@example.com"] != 1 {
		t.Errorf("mutual counts = %v, want 1 each", got)
	}
	if _, ok := got["bob@example.com"]; ok {
		t.Error("direct friend bob must not be suggested")
	}
}

// TestDismissSuggestion 忽略后不再出现在活跃列表
func TestDismissSuggestion(t *testing.T) {
	manager, _, suggestionDAO := newTestManager(
		&userdir.Account{ID: "bob", Email: "bob@example.com", Name: "Bob"})
	ctx := context.Background()

	if _, err := suggestionDAO.BulkCreateSuggestions(ctx, []*model.FriendSuggestion{
		candidate("alice@example.com", "bob@example.com", 5, model.SuggestionSourceContact),
	}); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	active, _ := suggestionDAO.ListActiveSuggestions(ctx, "alice@example.com", 10)
	if len(active) != 1 {
		t.Fatalf("seed active = %d, want 1", len(active))
	}

	if err := manager.Dismiss(ctx, "alice@example.com", active[0].ID); err != nil {
		t.Fatalf("Dismiss failed: %v", err)
	}

	resp, err := manager.ListSuggestions(ctx, "alice@example.com", 10)
	if err != nil {
		t.Fatalf("ListSuggestions failed: %v", err)
	}
	if resp.Total != 0 {
		t.Errorf("dismissed suggestion still listed: %+v", resp.Suggestions)
	}

	// 他人的推荐不能被忽略
	if err := manager.Dismiss(ctx, "eve@example.com", active[0].ID); err == nil {
		t.Error("dismissing another user's suggestion should fail")
	}
}

// TestListSuggestionsAnnotated 推荐列表带目录信息和共同好友
func TestListSuggestionsAnnotated(t *testing.T) {
	manager, relationshipDAO, suggestionDAO := newTestManager(
		&userdir.Account{ID: "bob", Email: "bob@example.com", Name: "Bob", Avatar: "http://a/b.png"},
		&userdir.Account{ID: "carol", Email: "carol@example.com", Name: "Carol"})
	ctx := context.Background()

	// carol是alice和bob的共同好友
	if _, _, err := relationshipDAO.AutoAcceptPair(ctx, "alice@example.com", "carol@example.com"); err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	if _, _, err := relationshipDAO.AutoAcceptPair(ctx, "bob@example.com", "carol@example.com"); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	if _, err := suggestionDAO.BulkCreateSuggestions(ctx, []*model.FriendSuggestion{
		candidate("alice@example.com", "bob@example.com", 5, model.SuggestionSourceMutualFriends),
	}); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	resp, err := manager.ListSuggestions(ctx, "alice@example.com", 10)
	if err != nil {
		t.Fatalf("ListSuggestions failed: %v", err)
	}
	if resp.Total != 1 {
		t.Fatalf("total = %d, want 1", resp.Total)
	}
	info := resp.Suggestions[0]
	if info.Name != "Bob" || info.Avatar == "" {
		t.Errorf("directory annotation missing: %+v", info)
	}
	if info.MutualFriendsCount != 1 || len(info.MutualFriendNames) != 1 {
		t.Errorf("mutual annotation missing: %+v", info)
	}
}
