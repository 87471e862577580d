package sync

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"cashpop-social/apps/relationship-service/model"
)

// TestDeviceContactsNormalization 设备通讯录去重、归一化并丢弃无邮箱条目
func TestDeviceContactsNormalization(t *testing.T) {
	adapter := NewDeviceContactsAdapter([]model.ContactInfo{
		{Name: " Bob ", Email: "BOB@Example.com "},
		{Name: "Bob again", Email: "bob@example.com"},
		{Name: "NoEmail", Phone: "123"},
		{Name: "Carol", Email: "carol@example.com"},
	})

	contacts, err := adapter.FetchContacts(context.Background(), FetchOptions{})
	if err != nil {
		t.Fatalf("FetchContacts failed: %v", err)
	}
	if len(contacts) != 2 {
		t.Fatalf("contacts = %d, want 2", len(contacts))
	}
	if contacts[0].Email != "bob@example.com" || contacts[0].Name != "Bob" {
		t.Errorf("first contact not normalized: %+v", contacts[0])
	}
	if contacts[0].ID == "" {
		t.Error("missing contact ID should be generated")
	}
	if contacts[0].Platform != model.PlatformContacts {
		t.Errorf("platform = %s, want %s", contacts[0].Platform, model.PlatformContacts)
	}
}

// TestGoogleAdapterPagination 分页拉取并合并全部联系人
func TestGoogleAdapterPagination(t *testing.T) {
	var pageCalls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer token-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		pageCalls++
		if r.URL.Query().Get("pageToken") == "" {
			fmt.Fprint(w, `{"connections":[{"resourceName":"people/1","names":[{"displayName":"Ann"}],"emailAddresses":[{"value":"ann@example.com"}]}],"nextPageToken":"p2"}`)
			return
		}
		fmt.Fprint(w, `{"connections":[{"resourceName":"people/2","names":[{"displayName":"Ben"}],"emailAddresses":[{"value":"ben@example.com"}],"phoneNumbers":[{"value":"555"}]}]}`)
	}))
	defer server.Close()

	adapter := NewGoogleAdapter(server.URL, time.Second)
	contacts, err := adapter.FetchContacts(context.Background(), FetchOptions{Credential: "token-1"})
	if err != nil {
		t.Fatalf("FetchContacts failed: %v", err)
	}
	if pageCalls != 2 {
		t.Errorf("page calls = %d, want 2", pageCalls)
	}
	if len(contacts) != 2 {
		t.Fatalf("contacts = %d, want 2", len(contacts))
	}
	if contacts[0].Name != "Ann" || contacts[0].Email != "ann@example.com" {
		t.Errorf("first contact = %+v", contacts[0])
	}
	if contacts[1].Phone != "555" {
		t.Errorf("second contact phone = %q, want 555", contacts[1].Phone)
	}
}

// TestGoogleAdapterErrorMapping 平台状态码映射为类型化错误
func TestGoogleAdapterErrorMapping(t *testing.T) {
	for _, tc := range []struct {
		status int
		want   error
	}{
		{http.StatusUnauthorized, ErrInvalidCredential},
		{http.StatusForbidden, ErrInvalidCredential},
		{http.StatusTooManyRequests, ErrRateLimited},
	} {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
		}))
		adapter := NewGoogleAdapter(server.URL, time.Second)
		_, err := adapter.FetchContacts(context.Background(), FetchOptions{Credential: "t"})
		if !errors.Is(err, tc.want) {
			t.Errorf("status %d: got %v, want %v", tc.status, err, tc.want)
		}
		server.Close()
	}

	// 其它状态码归为UpstreamError
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "backend exploded", http.StatusInternalServerError)
	}))
	defer server.Close()
	adapter := NewGoogleAdapter(server.URL, time.Second)
	_, err := adapter.FetchContacts(context.Background(), FetchOptions{Credential: "t"})
	var upstream *UpstreamError
	if !errors.As(err, &upstream) {
		t.Fatalf("expected UpstreamError, got %v", err)
	}
	if upstream.StatusCode != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", upstream.StatusCode)
	}
}

// TestFacebookAdapterTokenError Graph API把鉴权错误放在200响应体里
func TestFacebookAdapterTokenError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":[],"error":{"message":"Error validating access token","code":190}}`)
	}))
	defer server.Close()

	adapter := NewFacebookAdapter(server.URL, time.Second)
	_, err := adapter.FetchContacts(context.Background(), FetchOptions{Credential: "expired"})
	if !errors.Is(err, ErrInvalidCredential) {
		t.Errorf("expected ErrInvalidCredential, got %v", err)
	}
}

// TestFacebookAdapterFetch 正常拉取授权好友
func TestFacebookAdapterFetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":[{"id":"fb1","name":"Ann","email":"ann@example.com"},{"id":"fb2","name":"Ben"}],"paging":{}}`)
	}))
	defer server.Close()

	adapter := NewFacebookAdapter(server.URL, time.Second)
	contacts, err := adapter.FetchContacts(context.Background(), FetchOptions{Credential: "ok"})
	if err != nil {
		t.Fatalf("FetchContacts failed: %v", err)
	}
	if len(contacts) != 2 {
		t.Fatalf("contacts = %d, want 2", len(contacts))
	}
	if contacts[0].Platform != model.PlatformFacebook {
		t.Errorf("platform = %s, want %s", contacts[0].Platform, model.PlatformFacebook)
	}
}

// TestMockContacts 假联系人带平台标识和邮箱
func TestMockContacts(t *testing.T) {
	adapter := NewGoogleAdapter("", time.Second)
	contacts := adapter.MockContacts(5)
	if len(contacts) != 5 {
		t.Fatalf("contacts = %d, want 5", len(contacts))
	}
	for _, c := range contacts {
		if c.Email == "" || c.Name == "" || c.Platform != model.PlatformGoogle {
			t.Errorf("mock contact incomplete: %+v", c)
		}
	}
}
