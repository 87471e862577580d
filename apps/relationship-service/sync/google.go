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
	"strconv"
	"time"

	"github.com/brianvoe/gofakeit/v6"

	"cashpop-social/apps/relationship-service/model"
)

const defaultGoogleAPIURL = "https://people.googleapis.com/v1"

// googlePageSize 单页拉取上限，People API允许的最大值
const googlePageSize = 1000

// GoogleAdapter Google People API联系人适配器
type GoogleAdapter struct {
	baseURL    string
	httpClient *http.Client
}

// NewGoogleAdapter 创建Google适配器
func NewGoogleAdapter(baseURL string, timeout time.Duration) *GoogleAdapter {
	if baseURL == "" {
		baseURL = defaultGoogleAPIURL
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &GoogleAdapter{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Platform 平台标识
func (a *GoogleAdapter) Platform() string {
	return model.PlatformGoogle
}

type googleConnectionsResponse struct {
	Connections []struct {
		Names []struct {
			DisplayName string `json:"displayName"`
		} `json:"names"`
		EmailAddresses []struct {
			Value string `json:"value"`
		} `json:"emailAddresses"`
		PhoneNumbers []struct {
			Value string `json:"value"`
		} `json:"phoneNumbers"`
		ResourceName string `json:"resourceName"`
	} `json:"connections"`
	NextPageToken string `json:"nextPageToken"`
}

// ValidateCredential 用单条拉取校验访问令牌
func (a *GoogleAdapter) ValidateCredential(ctx context.Context, credential string) error {
	if credential == "" {
		return ErrInvalidCredential
	}
	endpoint := fmt.Sprintf("%s/people/me/connections?personFields=names&pageSize=1", a.baseURL)
	_, err := a.fetchPage(ctx, endpoint, credential)
	return err
}

// FetchContacts 分页拉取全部联系人，受MaxContacts上限约束
func (a *GoogleAdapter) FetchContacts(ctx context.Context, opts FetchOptions) ([]model.ContactInfo, error) {
	if opts.Credential == "" {
		return nil, ErrInvalidCredential
	}

	var contacts []model.ContactInfo
	pageToken := ""
	for {
		params := url.Values{}
		params.Set("personFields", "names,emailAddresses,phoneNumbers")
		params.Set("pageSize", strconv.Itoa(googlePageSize))
		if pageToken != "" {
			params.Set("pageToken", pageToken)
		}
		endpoint := fmt.Sprintf("%s/people/me/connections?%s", a.baseURL, params.Encode())

		page, err := a.fetchPage(ctx, endpoint, opts.Credential)
		if err != nil {
			return nil, err
		}

		for _, conn := range page.Connections {
			contact := model.ContactInfo{
				ID:       conn.ResourceName,
				Platform: model.PlatformGoogle,
			}
			if len(conn.Names) > 0 {
				contact.Name = conn.Names[0].DisplayName
			}
			if len(conn.EmailAddresses) > 0 {
				contact.Email = conn.EmailAddresses[0].Value
			}
			if len(conn.PhoneNumbers) > 0 {
				contact.Phone = conn.PhoneNumbers[0].Value
			}
			contacts = append(contacts, contact)
		}

		if page.NextPageToken == "" || (opts.MaxContacts > 0 && len(contacts) >= opts.MaxContacts) {
			break
		}
		pageToken = page.NextPageToken
	}

	return capContacts(contacts, opts.MaxContacts), nil
}

func (a *GoogleAdapter) fetchPage(ctx context.Context, endpoint, credential string) (*googleConnectionsResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+credential)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || os.IsTimeout(err) {
			return nil, ErrTimeout
		}
		return nil, fmt.Errorf("failed to reach Google People API: %v", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, ErrInvalidCredential
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, ErrRateLimited
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, &UpstreamError{Platform: model.PlatformGoogle, StatusCode: resp.StatusCode, Message: string(body)}
	}

	var page googleConnectionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("failed to decode Google People API response: %v", err)
	}
	return &page, nil
}

// MockContacts 生成假联系人，开发环境联调用
func (a *GoogleAdapter) MockContacts(count int) []model.ContactInfo {
	contacts := make([]model.ContactInfo, count)
	for i := range contacts {
		contacts[i] = model.ContactInfo{
			ID:       gofakeit.UUID(),
			Name:     gofakeit.Name(),
			Email:    gofakeit.Email(),
			Phone:    gofakeit.Phone(),
			Platform: model.PlatformGoogle,
		}
	}
	return contacts
}
