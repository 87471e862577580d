package suggestion

import (
	"context"
	"fmt"
	"strings"

	"cashpop-social/apps/relationship-service/model"
	"cashpop-social/pkg/userdir"
)

// ContactStrategy 基于设备通讯录匹配生成推荐
type ContactStrategy struct {
	baseStrategy
	directory userdir.Directory
	contacts  []model.ContactInfo
}

// NewContactStrategy 创建通讯录推荐策略，contacts为本次同步的联系人
func NewContactStrategy(directory userdir.Directory, contacts []model.ContactInfo) *ContactStrategy {
	return &ContactStrategy{
		baseStrategy: newBaseStrategy("contact", model.SuggestionSourceContact, 4),
		directory:    directory,
		contacts:     contacts,
	}
}

// Generate 将匹配到注册账户的联系人转为候选推荐
func (s *ContactStrategy) Generate(ctx context.Context, sctx *model.SuggestionContext) (*model.GenerationResult, error) {
	return generateFromContacts(ctx, &s.baseStrategy, s.directory, s.contacts, sctx, "Found in your contacts")
}

// generateFromContacts 通讯录类策略的公共生成逻辑
func generateFromContacts(ctx context.Context, base *baseStrategy, directory userdir.Directory, contacts []model.ContactInfo, sctx *model.SuggestionContext, reasonPrefix string) (*model.GenerationResult, error) {
	result := &model.GenerationResult{}
	if len(contacts) == 0 {
		return result, nil
	}

	emails := make([]string, 0, len(contacts))
	nameByEmail := make(map[string]string, len(contacts))
	for _, contact := range contacts {
		email := strings.ToLower(strings.TrimSpace(contact.Email))
		if email == "" || email == sctx.UserEmail {
			result.Skipped++
			continue
		}
		emails = append(emails, email)
		nameByEmail[email] = contact.Name
	}
	if len(emails) == 0 {
		return result, nil
	}

	accounts, err := directory.FindByEmails(ctx, emails)
	if err != nil {
		return nil, fmt.Errorf("failed to match contacts against directory: %v", err)
	}

	for _, account := range accounts {
		email := strings.ToLower(account.Email)
		result.Processed++

		reason := reasonPrefix
		if name := nameByEmail[email]; name != "" {
			reason = fmt.Sprintf("%s as %s", reasonPrefix, name)
		}
		metadata := map[string]string{"contact_name": nameByEmail[email]}

		suggestion, err := base.buildSuggestion(sctx.UserEmail, email, reason, 0, metadata)
		if err != nil {
			result.Errors = append(result.Errors, err.Error())
			continue
		}
		result.Candidates = append(result.Candidates, suggestion)

		if sctx.MaxSuggestions > 0 && len(result.Candidates) >= sctx.MaxSuggestions {
			break
		}
	}

	result.Skipped += len(emails) - result.Processed
	return result, nil
}
