package suggestion

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"cashpop-social/apps/relationship-service/model"
)

// 来源加成，外部平台匹配的推荐优先级略高
var sourceBoosts = map[string]int{
	model.SuggestionSourceContact:       1,
	model.SuggestionSourceGoogle:        2,
	model.SuggestionSourceFacebook:      2,
	model.SuggestionSourceMutualFriends: 0,
	model.SuggestionSourceSystem:        0,
}

// baseStrategy 策略公共部分，负责候选校验和优先级计算
type baseStrategy struct {
	name         string
	source       string
	basePriority int
	sanitizer    *bluemonday.Policy
}

func newBaseStrategy(name, source string, basePriority int) baseStrategy {
	return baseStrategy{
		name:         name,
		source:       source,
		basePriority: basePriority,
		sanitizer:    bluemonday.StrictPolicy(),
	}
}

func (b *baseStrategy) Name() string {
	return b.name
}

func (b *baseStrategy) Source() string {
	return b.source
}

// priority 基础分加共同好友加成和来源加成，限定在1到10之间
func (b *baseStrategy) priority(mutualCount int) int {
	p := b.basePriority + sourceBoosts[b.source]
	switch {
	case mutualCount >= 10:
		p += 3
	case mutualCount >= 5:
		p += 2
	case mutualCount >= 1:
		p++
	}
	if p < model.MinPriority {
		p = model.MinPriority
	}
	if p > model.MaxPriority {
		p = model.MaxPriority
	}
	return p
}

// withPlatformMetadata 在元数据JSON中补充平台标识
func withPlatformMetadata(metadataJSON, platform string) string {
	metadata := make(map[string]string)
	if metadataJSON != "" {
		if err := json.Unmarshal([]byte(metadataJSON), &metadata); err != nil {
			metadata = make(map[string]string)
		}
	}
	metadata["platform"] = platform
	data, err := json.Marshal(metadata)
	if err != nil {
		return metadataJSON
	}
	return string(data)
}

// buildSuggestion 构造单条候选推荐，自由文本清洗后入库
func (b *baseStrategy) buildSuggestion(userEmail, candidateEmail, reason string, mutualCount int, metadata map[string]string) (*model.FriendSuggestion, error) {
	userEmail = strings.ToLower(strings.TrimSpace(userEmail))
	candidateEmail = strings.ToLower(strings.TrimSpace(candidateEmail))
	if userEmail == "" || candidateEmail == "" {
		return nil, model.ErrInvalidEmail
	}
	if userEmail == candidateEmail {
		return nil, model.ErrSelfRequest
	}

	metadataJSON := ""
	if len(metadata) > 0 {
		data, err := json.Marshal(metadata)
		if err != nil {
			return nil, fmt.Errorf("failed to encode suggestion metadata: %v", err)
		}
		metadataJSON = string(data)
	}

	return &model.FriendSuggestion{
		UserEmail:          userEmail,
		SuggestedUserEmail: candidateEmail,
		Source:             b.source,
		Reason:             strings.TrimSpace(b.sanitizer.Sanitize(reason)),
		MutualFriendsCount: mutualCount,
		Metadata:           metadataJSON,
		Priority:           b.priority(mutualCount),
		Status:             model.SuggestionStatusActive,
	}, nil
}
