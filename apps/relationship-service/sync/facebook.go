package sync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v6"

	"cashpop-social/apps/relationship-service/model"
)

const defaultFacebookAPIURL = "https://graph.facebook.com/v18.0"

// FacebookAdapter Facebook Graph API好友适配器
// 只能拿到同样授权了应用的好友
type FacebookAdapter struct {
	baseURL    string
	httpClient *http.Client
}

// NewFacebookAdapter 创建Facebook适配器
func NewFacebookAdapter(baseURL string, timeout time.Duration) *FacebookAdapter {
	if baseURL == "" {
		baseURL = defaultFacebookAPIURL
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &FacebookAdapter{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Platform 平台标识
func (a *FacebookAdapter) Platform() string {
	return model.PlatformFacebook
}

type facebookFriendsResponse struct {
	Data []struct {
		ID    string `json:"id"`
		Name  string `json:"name"`
		Email string `json:"email"`
	} `json:"data"`
	Paging struct {
		Next string `json:"next"`
	} `json:"paging"`
	Error *struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error"`
}

// ValidateCredential 用me端点校验访问令牌
func (a *FacebookAdapter) ValidateCredential(ctx context.Context, credential string) error {
	if credential == "" {
		return ErrInvalidCredential
	}
	endpoint := fmt.Sprintf("%s/me?fields=id&access_token=%s", a.baseURL, url.QueryEscape(credential))
	_, err := a.fetchPage(ctx, endpoint)
	return err
}

// FetchContacts 分页拉取授权好友列表
func (a *FacebookAdapter) FetchContacts(ctx context.Context, opts FetchOptions) ([]model.ContactInfo, error) {
	if opts.Credential == "" {
		return nil, ErrInvalidCredential
	}

	var contacts []model.ContactInfo
	endpoint := fmt.Sprintf("%s/me/friends?fields=id,name,email&limit=200&access_token=%s",
		a.baseURL, url.QueryEscape(opts.Credential))
	for endpoint != "" {
		page, err := a.fetchPage(ctx, endpoint)
		if err != nil {
			return nil, err
		}

		for _, friend := range page.Data {
			contacts = append(contacts, model.ContactInfo{
				ID:       friend.ID,
				Name:     friend.Name,
				Email:    friend.Email,
				Platform: model.PlatformFacebook,
			})
		}

		if opts.MaxContacts > 0 && len(contacts) >= opts.MaxContacts {
			break
		}
		endpoint = page.Paging.Next
	}

	return capContacts(contacts, opts.MaxContacts), nil
}

func (a *FacebookAdapter) fetchPage(ctx context.Context, endpoint string) (*facebookFriendsResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %v", err)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || os.IsTimeout(err) {
			return nil, ErrTimeout
		}
		return nil, fmt.Errorf("failed to reach Facebook Graph API: %v", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, ErrInvalidCredential
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, ErrRateLimited
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, &UpstreamError{Platform: model.PlatformFacebook, StatusCode: resp.StatusCode, Message: string(body)}
	}

	var page facebookFriendsResponse
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("failed to decode Facebook Graph API response: %v", err)
	}
	if page.Error != nil {
		// Graph API把部分鉴权错误放在200响应体里
		if page.Error.Code == 190 {
			return nil, ErrInvalidCredential
		}
		return nil, &UpstreamError{Platform: model.PlatformFacebook, StatusCode: resp.StatusCode, Message: page.Error.Message}
	}
	return &page, nil
}

// MockContacts 生成假好友，开发环境联调用
func (a *FacebookAdapter) MockContacts(count int) []model.ContactInfo {
	contacts := make([]model.ContactInfo, count)
	for i := range contacts {
		contacts[i] = model.ContactInfo{
			ID:       gofakeit.UUID(),
			Name:     gofakeit.Name(),
			Email:    gofakeit.Email(),
			Platform: model.PlatformFacebook,
		}
	}
	return contacts
}
