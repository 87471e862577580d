package suggestion

import (
	"context"
	"fmt"

	"cashpop-social/apps/relationship-service/model"
	"cashpop-social/pkg/userdir"
)

// PlatformStrategy 基于外部平台联系人匹配生成推荐
type PlatformStrategy struct {
	baseStrategy
	platform  string
	directory userdir.Directory
	contacts  []model.ContactInfo
}

// NewPlatformStrategy 创建平台推荐策略，platform取google或facebook
func NewPlatformStrategy(platform string, directory userdir.Directory, contacts []model.ContactInfo) *PlatformStrategy {
	source := model.SuggestionSourceGoogle
	if platform == model.PlatformFacebook {
		source = model.SuggestionSourceFacebook
	}
	return &PlatformStrategy{
		baseStrategy: newBaseStrategy("platform_"+platform, source, 4),
		platform:     platform,
		directory:    directory,
		contacts:     contacts,
	}
}

// Generate 将平台联系人中已注册的用户转为候选推荐
func (s *PlatformStrategy) Generate(ctx context.Context, sctx *model.SuggestionContext) (*model.GenerationResult, error) {
	reason := fmt.Sprintf("Connected with you on %s", s.platform)
	result, err := generateFromContacts(ctx, &s.baseStrategy, s.directory, s.contacts, sctx, reason)
	if err != nil {
		return nil, err
	}
	for _, candidate := range result.Candidates {
		candidate.Metadata = withPlatformMetadata(candidate.Metadata, s.platform)
	}
	return result, nil
}
