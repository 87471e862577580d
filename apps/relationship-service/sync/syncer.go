package sync

import (
	"context"
	"time"

	"cashpop-social/apps/relationship-service/model"
	"cashpop-social/pkg/config"
	"cashpop-social/pkg/logger"
	"cashpop-social/pkg/userdir"
)

// Syncer 同步入口，按平台组装适配器并交给处理器
type Syncer struct {
	processor    *Processor
	cfg          config.SyncConfig
	fetchTimeout time.Duration
}

// NewSyncer 创建同步入口
func NewSyncer(engine FriendshipEngine, directory userdir.Directory, suggestions SuggestionSink, log logger.Logger, cfg config.SyncConfig) *Syncer {
	timeout := cfg.FetchTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Syncer{
		processor:    NewProcessor(engine, directory, suggestions, log, cfg.BatchSize, cfg.WorkerCount, cfg.BatchDelay, cfg.MaxContacts),
		cfg:          cfg,
		fetchTimeout: timeout,
	}
}

// SyncGoogle 同步Google通讯录
func (s *Syncer) SyncGoogle(ctx context.Context, userEmail, accessToken string, maxContacts int, opts model.SyncOptions) *model.SyncResult {
	adapter := NewGoogleAdapter(s.cfg.GoogleAPIURL, s.fetchTimeout)
	return s.processor.Process(ctx, userEmail, adapter, FetchOptions{
		Credential:  accessToken,
		MaxContacts: maxContacts,
	}, opts)
}

// SyncFacebook 同步Facebook好友
func (s *Syncer) SyncFacebook(ctx context.Context, userEmail, accessToken string, maxContacts int, opts model.SyncOptions) *model.SyncResult {
	adapter := NewFacebookAdapter(s.cfg.FacebookAPIURL, s.fetchTimeout)
	return s.processor.Process(ctx, userEmail, adapter, FetchOptions{
		Credential:  accessToken,
		MaxContacts: maxContacts,
	}, opts)
}

// SyncDeviceContacts 同步客户端上传的设备通讯录
func (s *Syncer) SyncDeviceContacts(ctx context.Context, userEmail string, contacts []model.ContactInfo, opts model.SyncOptions) *model.SyncResult {
	adapter := NewDeviceContactsAdapter(contacts)
	return s.processor.Process(ctx, userEmail, adapter, FetchOptions{}, opts)
}

// InitializeSync 注册后的首次同步，按携带的凭证依次处理各平台
// 单个平台失败不影响其它平台，每个平台独立返回结果
func (s *Syncer) InitializeSync(ctx context.Context, userEmail string, req *model.InitializeSyncRequest) []*model.SyncResult {
	var results []*model.SyncResult
	opts := model.SyncOptions{}

	if len(req.DeviceContacts) > 0 {
		results = append(results, s.SyncDeviceContacts(ctx, userEmail, req.DeviceContacts, opts))
	}
	if req.GoogleAccessToken != "" {
		results = append(results, s.SyncGoogle(ctx, userEmail, req.GoogleAccessToken, 0, opts))
	}
	if req.FacebookAccessToken != "" {
		results = append(results, s.SyncFacebook(ctx, userEmail, req.FacebookAccessToken, 0, opts))
	}
	return results
}
