package suggestion

import (
	"context"

	"cashpop-social/apps/relationship-service/model"
)

// Strategy 推荐生成策略
// 每个策略独立产出候选，由Manager统一去重过滤落库
type Strategy interface {
	// Name 策略名，注册去重用
	Name() string
	// Source 产出推荐的来源标识
	Source() string
	// Generate 为指定用户生成候选推荐
	Generate(ctx context.Context, sctx *model.SuggestionContext) (*model.GenerationResult, error)
}
