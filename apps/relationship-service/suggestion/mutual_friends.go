package suggestion

import (
	"context"
	"fmt"
	"sort"

	"cashpop-social/apps/relationship-service/dao"
	"cashpop-social/apps/relationship-service/model"
)

// MutualFriendsStrategy 基于好友的好友生成推荐
type MutualFriendsStrategy struct {
	baseStrategy
	relationshipDAO dao.RelationshipDAO
}

// NewMutualFriendsStrategy 创建共同好友推荐策略
func NewMutualFriendsStrategy(relationshipDAO dao.RelationshipDAO) *MutualFriendsStrategy {
	return &MutualFriendsStrategy{
		baseStrategy:    newBaseStrategy("mutual_friends", model.SuggestionSourceMutualFriends, 3),
		relationshipDAO: relationshipDAO,
	}
}

// Generate 遍历好友的好友，共同好友数达到阈值的进入候选
func (s *MutualFriendsStrategy) Generate(ctx context.Context, sctx *model.SuggestionContext) (*model.GenerationResult, error) {
	result := &model.GenerationResult{}

	friends, err := s.relationshipDAO.ListFriendEmails(ctx, sctx.UserEmail)
	if err != nil {
		return nil, fmt.Errorf("failed to load friends: %v", err)
	}
	if len(friends) == 0 {
		return result, nil
	}

	friendSet := make(map[string]bool, len(friends))
	for _, f := range friends {
		friendSet[f] = true
	}

	// 候选人 -> 共同好友数
	mutualCounts := make(map[string]int)
	for _, friend := range friends {
		fof, err := s.relationshipDAO.ListFriendEmails(ctx, friend)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("failed to load friends of %s: %v", friend, err))
			continue
		}
		for _, candidate := range fof {
			if candidate == sctx.UserEmail || friendSet[candidate] {
				continue
			}
			mutualCounts[candidate]++
		}
	}

	minMutual := sctx.MinMutualFriends
	if minMutual <= 0 {
		minMutual = 1
	}

	candidates := make([]string, 0, len(mutualCounts))
	for candidate := range mutualCounts {
		candidates = append(candidates, candidate)
	}
	sort.Slice(candidates, func(i, j int) bool {
		if mutualCounts[candidates[i]] == mutualCounts[candidates[j]] {
			return candidates[i] < candidates[j]
		}
		return mutualCounts[candidates[i]] > mutualCounts[candidates[j]]
	})

	for _, candidate := range candidates {
		count := mutualCounts[candidate]
		result.Processed++
		if count < minMutual {
			result.Skipped++
			continue
		}

		reason := fmt.Sprintf("You have %d mutual friends", count)
		if count == 1 {
			reason = "You have 1 mutual friend"
		}
		suggestion, err := s.buildSuggestion(sctx.UserEmail, candidate, reason, count, nil)
		if err != nil {
			result.Errors = append(result.Errors, err.Error())
			continue
		}
		result.Candidates = append(result.Candidates, suggestion)

		if sctx.MaxSuggestions > 0 && len(result.Candidates) >= sctx.MaxSuggestions {
			break
		}
	}

	return result, nil
}
