package suggestion

import (
	"errors"
	"strings"
	"testing"

	"cashpop-social/apps/relationship-service/model"
)

// TestPriorityClamped 优先级始终在1到10之间
func TestPriorityClamped(t *testing.T) {
	low := newBaseStrategy("low", model.SuggestionSourceSystem, -5)
	if p := low.priority(0); p != model.MinPriority {
		t.Errorf("low priority = %d, want clamped to %d", p, model.MinPriority)
	}

	high := newBaseStrategy("high", model.SuggestionSourceGoogle, 9)
	if p := high.priority(20); p != model.MaxPriority {
		t.Errorf("high priority = %d, want clamped to %d", p, model.MaxPriority)
	}
}

// TestPriorityMutualBonus 共同好友越多优先级越高
func TestPriorityMutualBonus(t *testing.T) {
	base := newBaseStrategy("base", model.SuggestionSourceMutualFriends, 3)

	none := base.priority(0)
	one := base.priority(1)
	five := base.priority(5)
	ten := base.priority(10)

	if !(none < one && one < five && five < ten) {
		t.Errorf("priority should grow with mutual count: %d %d %d %d", none, one, five, ten)
	}
}

// TestPrioritySourceBoost 平台来源比通讯录来源加成高
func TestPrioritySourceBoost(t *testing.T) {
	google := newBaseStrategy("g", model.SuggestionSourceGoogle, 3)
	contact := newBaseStrategy("c", model.SuggestionSourceContact, 3)

	if google.priority(0) <= contact.priority(0) {
		t.Errorf("google boost %d should exceed contact boost %d", google.priority(0), contact.priority(0))
	}
}

// TestBuildSuggestionValidation 候选校验拒绝自荐和空邮箱
func TestBuildSuggestionValidation(t *testing.T) {
	base := newBaseStrategy("test", model.SuggestionSourceContact, 3)

	if _, err := base.buildSuggestion("alice@example.com", "alice@example.com", "", 0, nil); !errors.Is(err, model.ErrSelfRequest) {
		t.Errorf("self suggestion should fail with ErrSelfRequest, got %v", err)
	}
	if _, err := base.buildSuggestion("alice@example.com", "", "", 0, nil); !errors.Is(err, model.ErrInvalidEmail) {
		t.Errorf("empty candidate should fail with ErrInvalidEmail, got %v", err)
	}
}

// TestBuildSuggestionSanitizesReason 推荐理由中的HTML被剥除
func TestBuildSuggestionSanitizesReason(t *testing.T) {
	base := newBaseStrategy("test", model.SuggestionSourceContact, 3)

	s, err := base.buildSuggestion("alice@example.com", "Bob@Example.com", `<img src=x onerror=alert(1)>Found in contacts`, 2, map[string]string{"contact_name": "Bob"})
	if err != nil {
		t.Fatalf("buildSuggestion failed: %v", err)
	}
	if strings.Contains(s.Reason, "<") {
		t.Errorf("reason still contains markup: %q", s.Reason)
	}
	if s.SuggestedUserEmail != "bob@example.com" {
		t.Errorf("candidate email not normalized: %q", s.SuggestedUserEmail)
	}
	if s.Status != model.SuggestionStatusActive {
		t.Errorf("status = %s, want ACTIVE", s.Status)
	}
	if s.MutualFriendsCount != 2 {
		t.Errorf("mutual count = %d, want 2", s.MutualFriendsCount)
	}
	if !strings.Contains(s.Metadata, "contact_name") {
		t.Errorf("metadata should carry contact_name: %q", s.Metadata)
	}
}
