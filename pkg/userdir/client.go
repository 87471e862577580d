package userdir

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Account 用户目录返回的账户信息
type Account struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username"`
	Name     string `json:"name"`
	Avatar   string `json:"avatar"`
}

// Directory 用户目录服务接口
type Directory interface {
	FindByEmail(ctx context.Context, email string) (*Account, error)
	FindByEmails(ctx context.Context, emails []string) ([]*Account, error)
	FindByID(ctx context.Context, id string) (*Account, error)
}

// Config 用户目录客户端配置
type Config struct {
	BaseURL      string
	Timeout      time.Duration
	CacheTTL     time.Duration
	CacheMaxSize int
}

// httpDirectory 用户目录HTTP客户端
type httpDirectory struct {
	baseURL string
	client  *http.Client
	cache   *accountCache
}

// NewHTTPDirectory 创建用户目录HTTP客户端
func NewHTTPDirectory(cfg Config) Directory {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &httpDirectory{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		cache:   newAccountCache(cfg.CacheTTL, cfg.CacheMaxSize),
	}
}

// FindByEmail 按邮箱查询账户，不存在时返回nil
func (d *httpDirectory) FindByEmail(ctx context.Context, email string) (*Account, error) {
	email = normalizeEmail(email)
	if email == "" {
		return nil, nil
	}

	if account, ok := d.cache.get(cacheKeyEmail(email)); ok {
		return account, nil
	}

	reqURL := fmt.Sprintf("%s/api/v1/users?email=%s", d.baseURL, url.QueryEscape(email))
	var account Account
	found, err := d.getJSON(ctx, reqURL, &account)
	if err != nil {
		return nil, fmt.Errorf("failed to find account by email: %v", err)
	}
	if !found {
		return nil, nil
	}

	d.cache.put(cacheKeyEmail(email), &account)
	return &account, nil
}

// FindByEmails 批量按邮箱查询账户，容忍重复和空输入
func (d *httpDirectory) FindByEmails(ctx context.Context, emails []string) ([]*Account, error) {
	// 去重并过滤空值
	seen := make(map[string]struct{}, len(emails))
	unique := make([]string, 0, len(emails))
	for _, email := range emails {
		email = normalizeEmail(email)
		if email == "" {
			continue
		}
		if _, ok := seen[email]; ok {
			continue
		}
		seen[email] = struct{}{}
		unique = append(unique, email)
	}
	if len(unique) == 0 {
		return []*Account{}, nil
	}

	// 先查缓存，只对未命中的发起批量请求
	accounts := make([]*Account, 0, len(unique))
	missing := make([]string, 0, len(unique))
	for _, email := range unique {
		if account, ok := d.cache.get(cacheKeyEmail(email)); ok {
			accounts = append(accounts, account)
		} else {
			missing = append(missing, email)
		}
	}
	if len(missing) == 0 {
		return accounts, nil
	}

	reqURL := fmt.Sprintf("%s/api/v1/users/batch?emails=%s", d.baseURL, url.QueryEscape(strings.Join(missing, ",")))
	var fetched []*Account
	if _, err := d.getJSON(ctx, reqURL, &fetched); err != nil {
		return nil, fmt.Errorf("failed to find accounts by emails: %v", err)
	}

	for _, account := range fetched {
		d.cache.put(cacheKeyEmail(normalizeEmail(account.Email)), account)
		accounts = append(accounts, account)
	}

	return accounts, nil
}

// FindByID 按ID查询账户，不存在时返回nil
func (d *httpDirectory) FindByID(ctx context.Context, id string) (*Account, error) {
	if id == "" {
		return nil, nil
	}

	if account, ok := d.cache.get(cacheKeyID(id)); ok {
		return account, nil
	}

	reqURL := fmt.Sprintf("%s/api/v1/users/%s", d.baseURL, url.PathEscape(id))
	var account Account
	found, err := d.getJSON(ctx, reqURL, &account)
	if err != nil {
		return nil, fmt.Errorf("failed to find account by id: %v", err)
	}
	if !found {
		return nil, nil
	}

	d.cache.put(cacheKeyID(id), &account)
	return &account, nil
}

// getJSON 执行GET请求并解析JSON响应，404返回found=false
func (d *httpDirectory) getJSON(ctx context.Context, reqURL string, out interface{}) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return false, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return false, nil
	}
	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("directory returned status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return false, err
	}
	return true, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func cacheKeyEmail(email string) string {
	return "email:" + email
}

func cacheKeyID(id string) string {
	return "id:" + id
}
