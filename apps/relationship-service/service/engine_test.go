package service

import (
	"context"
	"errors"
	"os"
	"testing"

	"cashpop-social/apps/relationship-service/dao"
	"cashpop-social/apps/relationship-service/model"
	"cashpop-social/pkg/logger"
	"cashpop-social/pkg/snowflake"
	"cashpop-social/pkg/userdir"
)

func TestMain(m *testing.M) {
	if err := snowflake.InitGlobalSnowflake(1); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func newTestService(accounts ...*userdir.Account) (*Service, *dao.MemoryRelationshipDAO, *dao.MemorySuggestionDAO) {
	relationshipDAO := dao.NewMemoryRelationshipDAO()
	suggestionDAO := dao.NewMemorySuggestionDAO()
	directory := userdir.NewMockDirectory(accounts...)
	svc := NewService(relationshipDAO, suggestionDAO, directory, nil, nil, logger.GetLogger())
	return svc, relationshipDAO, suggestionDAO
}

func account(email, name string) *userdir.Account {
	return &userdir.Account{ID: email, Email: email, Username: name, Name: name}
}

// TestSendFriendRequestCreatesPair 发送申请后两个方向各有一行记录
func TestSendFriendRequestCreatesPair(t *testing.T) {
	svc, relationshipDAO, _ := newTestService(account("alice@example.com", "Alice"), account("bob@example.com", "Bob"))
	ctx := context.Background()

	rel, err := svc.SendFriendRequest(ctx, "alice@example.com", "bob@example.com", "hi bob")
	if err != nil {
		t.Fatalf("SendFriendRequest failed: %v", err)
	}
	if rel.Status != model.RelationshipStatusPending {
		t.Errorf("sender row status = %s, want %s", rel.Status, model.RelationshipStatusPending)
	}

	senderRow, _ := relationshipDAO.GetByOwnerPeer(ctx, "alice@example.com", "bob@example.com")
	recipientRow, _ := relationshipDAO.GetByOwnerPeer(ctx, "bob@example.com", "alice@example.com")
	if senderRow == nil || recipientRow == nil {
		t.Fatal("expected both direction rows to exist")
	}
	if senderRow.Status != model.RelationshipStatusPending {
		t.Errorf("sender row status = %s, want PENDING", senderRow.Status)
	}
	if recipientRow.Status != model.RelationshipStatusReceived {
		t.Errorf("recipient row status = %s, want RECEIVED", recipientRow.Status)
	}
	if senderRow.InitiatedBy != "alice@example.com" || recipientRow.InitiatedBy != "alice@example.com" {
		t.Error("both rows should record the initiator")
	}
}

// TestSendFriendRequestSelf 不允许向自己发申请
func TestSendFriendRequestSelf(t *testing.T) {
	svc, _, _ := newTestService(account("alice@example.com", "Alice"))

	_, err := svc.SendFriendRequest(context.Background(), "alice@example.com", "alice@example.com", "")
	if !errors.Is(err, model.ErrSelfRequest) {
		t.Errorf("expected ErrSelfRequest, got %v", err)
	}
}

// TestSendFriendRequestUnknownTarget 目标用户必须在目录中存在
func TestSendFriendRequestUnknownTarget(t *testing.T) {
	svc, _, _ := newTestService(account("alice@example.com", "Alice"))

	_, err := svc.SendFriendRequest(context.Background(), "alice@example.com", "ghost@example.com", "")
	var notFound *model.TargetNotFoundError
	if !errors.As(err, &notFound) {
		t.Errorf("expected TargetNotFoundError, got %v", err)
	}
}

// TestSendFriendRequestIdempotent 重复发送同一申请幂等返回，不产生新记录
func TestSendFriendRequestIdempotent(t *testing.T) {
	svc, _, _ := newTestService(account("alice@example.com", "Alice"), account("bob@example.com", "Bob"))
	ctx := context.Background()

	first, err := svc.SendFriendRequest(ctx, "alice@example.com", "bob@example.com", "hi")
	if err != nil {
		t.Fatalf("first send failed: %v", err)
	}
	second, err := svc.SendFriendRequest(ctx, "alice@example.com", "bob@example.com", "hi again")
	if err != nil {
		t.Fatalf("resend should be idempotent, got error: %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("resend returned new record %d, want existing %d", second.ID, first.ID)
	}
}

// TestSendFriendRequestWhilePeerPending 对方已发申请时不能反向再发
func TestSendFriendRequestWhilePeerPending(t *testing.T) {
	svc, _, _ := newTestService(account("alice@example.com", "Alice"), account("bob@example.com", "Bob"))
	ctx := context.Background()

	if _, err := svc.SendFriendRequest(ctx, "alice@example.com", "bob@example.com", ""); err != nil {
		t.Fatalf("send failed: %v", err)
	}
	_, err := svc.SendFriendRequest(ctx, "bob@example.com", "alice@example.com", "")
	var already *model.AlreadyRelatedError
	if !errors.As(err, &already) {
		t.Errorf("expected AlreadyRelatedError, got %v", err)
	}
}

// TestAcceptFriendRequest 接受后两行同时转为ACCEPTED
func TestAcceptFriendRequest(t *testing.T) {
	svc, relationshipDAO, _ := newTestService(account("alice@example.com", "Alice"), account("bob@example.com", "Bob"))
	ctx := context.Background()

	sent, err := svc.SendFriendRequest(ctx, "alice@example.com", "bob@example.com", "")
	if err != nil {
		t.Fatalf("send failed: %v", err)
	}

	recipientRow, _ := relationshipDAO.GetByOwnerPeer(ctx, "bob@example.com", "alice@example.com")
	accepted, err := svc.AcceptFriendRequest(ctx, "bob@example.com", recipientRow.ID)
	if err != nil {
		t.Fatalf("accept failed: %v", err)
	}
	if accepted.Status != model.RelationshipStatusAccepted {
		t.Errorf("accepted row status = %s, want ACCEPTED", accepted.Status)
	}
	if accepted.AcceptedAt == nil {
		t.Error("accepted row should carry AcceptedAt")
	}

	senderRow, _ := relationshipDAO.GetByID(ctx, sent.ID)
	if senderRow.Status != model.RelationshipStatusAccepted {
		t.Errorf("sender row status = %s, want ACCEPTED", senderRow.Status)
	}
}

// TestAcceptFriendRequestBySenderRowID 用发送方行ID接受时操作者仍必须是接收方
func TestAcceptFriendRequestBySenderRowID(t *testing.T) {
	svc, _, _ := newTestService(account("alice@example.com", "Alice"), account("bob@example.com", "Bob"))
	ctx := context.Background()

	sent, err := svc.SendFriendRequest(ctx, "alice@example.com", "bob@example.com", "")
	if err != nil {
		t.Fatalf("send failed: %v", err)
	}

	// 发送方自己不能接受
	if _, err := svc.AcceptFriendRequest(ctx, "alice@example.com", sent.ID); err == nil {
		t.Error("sender must not be able to accept its own request")
	}

	// 接收方可以用发送方的行ID接受
	accepted, err := svc.AcceptFriendRequest(ctx, "bob@example.com", sent.ID)
	if err != nil {
		t.Fatalf("recipient accept via sender row ID failed: %v", err)
	}
	if accepted.Status != model.RelationshipStatusAccepted {
		t.Errorf("status = %s, want ACCEPTED", accepted.Status)
	}
}

// TestRejectThenResend 拒绝后的关系可以重新发起申请
func TestRejectThenResend(t *testing.T) {
	svc, relationshipDAO, _ := newTestService(account("alice@example.com", "Alice"), account("bob@example.com", "Bob"))
	ctx := context.Background()

	sent, err := svc.SendFriendRequest(ctx, "alice@example.com", "bob@example.com", "first try")
	if err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if _, err := svc.RejectFriendRequest(ctx, "bob@example.com", sent.ID); err != nil {
		t.Fatalf("reject failed: %v", err)
	}

	senderRow, _ := relationshipDAO.GetByID(ctx, sent.ID)
	if senderRow.Status != model.RelationshipStatusRejected {
		t.Fatalf("sender row status = %s, want REJECTED", senderRow.Status)
	}

	resent, err := svc.SendFriendRequest(ctx, "alice@example.com", "bob@example.com", "second try")
	if err != nil {
		t.Fatalf("resend after reject failed: %v", err)
	}
	if resent.ID != sent.ID {
		t.Errorf("resend should reuse original rows, got %d want %d", resent.ID, sent.ID)
	}
	if resent.Status != model.RelationshipStatusPending {
		t.Errorf("resent status = %s, want PENDING", resent.Status)
	}
	if resent.Message != "second try" {
		t.Errorf("resent message = %q, want %q", resent.Message, "second try")
	}

	recipientRow, _ := relationshipDAO.GetByOwnerPeer(ctx, "bob@example.com", "alice@example.com")
	if recipientRow.Status != model.RelationshipStatusReceived {
		t.Errorf("recipient row status = %s, want RECEIVED", recipientRow.Status)
	}
}

// TestSendFriendRequestSanitizesMessage 申请留言中的HTML被剥除
func TestSendFriendRequestSanitizesMessage(t *testing.T) {
	svc, _, _ := newTestService(account("alice@example.com", "Alice"), account("bob@example.com", "Bob"))

	rel, err := svc.SendFriendRequest(context.Background(), "alice@example.com", "bob@example.com",
		`<script>alert("x")</script>hello`)
	if err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if rel.Message != "hello" {
		t.Errorf("message = %q, want sanitized %q", rel.Message, "hello")
	}
}

// TestBlockFriend 拉黑后两行同时转为BLOCKED且不能再发申请
func TestBlockFriend(t *testing.T) {
	svc, relationshipDAO, _ := newTestService(account("alice@example.com", "Alice"), account("bob@example.com", "Bob"))
	ctx := context.Background()

	sent, _ := svc.SendFriendRequest(ctx, "alice@example.com", "bob@example.com", "")
	if _, err := svc.AcceptFriendRequest(ctx, "bob@example.com", sent.ID); err != nil {
		t.Fatalf("accept failed: %v", err)
	}

	if err := svc.BlockFriend(ctx, "alice@example.com", "bob@example.com"); err != nil {
		t.Fatalf("block failed: %v", err)
	}

	for _, pair := range [][2]string{{"alice@example.com", "bob@example.com"}, {"bob@example.com", "alice@example.com"}} {
		row, _ := relationshipDAO.GetByOwnerPeer(ctx, pair[0], pair[1])
		if row.Status != model.RelationshipStatusBlocked {
			t.Errorf("row %s->%s status = %s, want BLOCKED", pair[0], pair[1], row.Status)
		}
		if row.BlockedAt == nil {
			t.Errorf("row %s->%s should carry BlockedAt", pair[0], pair[1])
		}
	}

	_, err := svc.SendFriendRequest(ctx, "bob@example.com", "alice@example.com", "")
	var already *model.AlreadyRelatedError
	if !errors.As(err, &already) {
		t.Errorf("expected AlreadyRelatedError after block, got %v", err)
	}
}

// TestAutoAcceptFriendship 同步建立关系时保护已有申请
func TestAutoAcceptFriendship(t *testing.T) {
	svc, _, _ := newTestService(account("alice@example.com", "Alice"), account("bob@example.com", "Bob"), account("carol@example.com", "Carol"))
	ctx := context.Background()

	created, reason, err := svc.AutoAcceptFriendship(ctx, "alice@example.com", "bob@example.com")
	if err != nil {
		t.Fatalf("auto-accept failed: %v", err)
	}
	if !created || reason != model.AutoAcceptReasonCreated {
		t.Errorf("created=%v reason=%q, want created with %q", created, reason, model.AutoAcceptReasonCreated)
	}

	// 再次同步同一联系人
	created, reason, err = svc.AutoAcceptFriendship(ctx, "alice@example.com", "bob@example.com")
	if err != nil {
		t.Fatalf("second auto-accept failed: %v", err)
	}
	if created || reason != model.AutoAcceptReasonAlreadyFriend {
		t.Errorf("created=%v reason=%q, want not created with %q", created, reason, model.AutoAcceptReasonAlreadyFriend)
	}

	// 已有进行中申请时不覆盖手动意图
	if _, err := svc.SendFriendRequest(ctx, "alice@example.com", "carol@example.com", ""); err != nil {
		t.Fatalf("send failed: %v", err)
	}
	created, reason, err = svc.AutoAcceptFriendship(ctx, "alice@example.com", "carol@example.com")
	if err != nil {
		t.Fatalf("auto-accept over pending failed: %v", err)
	}
	if created || reason != model.AutoAcceptReasonPendingExists {
		t.Errorf("created=%v reason=%q, want not created with %q", created, reason, model.AutoAcceptReasonPendingExists)
	}
}

// TestListFriendsAnnotated 好友列表带目录信息
func TestListFriendsAnnotated(t *testing.T) {
	svc, _, _ := newTestService(account("alice@example.com", "Alice"), account("bob@example.com", "Bob"))
	ctx := context.Background()

	sent, _ := svc.SendFriendRequest(ctx, "alice@example.com", "bob@example.com", "")
	if _, err := svc.AcceptFriendRequest(ctx, "bob@example.com", sent.ID); err != nil {
		t.Fatalf("accept failed: %v", err)
	}

	resp, err := svc.ListFriends(ctx, "alice@example.com", 10, "")
	if err != nil {
		t.Fatalf("ListFriends failed: %v", err)
	}
	if resp.Total != 1 {
		t.Fatalf("total = %d, want 1", resp.Total)
	}
	friend := resp.Friends[0]
	if friend.Email != "bob@example.com" {
		t.Errorf("friend email = %s, want bob@example.com", friend.Email)
	}
	if friend.Name != "Bob" {
		t.Errorf("friend name = %s, want Bob", friend.Name)
	}
}

// TestListRequests 申请列表方向正确
func TestListRequests(t *testing.T) {
	svc, _, _ := newTestService(account("alice@example.com", "Alice"), account("bob@example.com", "Bob"))
	ctx := context.Background()

	if _, err := svc.SendFriendRequest(ctx, "alice@example.com", "bob@example.com", "hello"); err != nil {
		t.Fatalf("send failed: %v", err)
	}

	incoming, err := svc.ListIncomingRequests(ctx, "bob@example.com", 10, "")
	if err != nil {
		t.Fatalf("incoming failed: %v", err)
	}
	if incoming.Total != 1 || incoming.Requests[0].FromEmail != "alice@example.com" {
		t.Errorf("incoming request should come from alice, got %+v", incoming.Requests)
	}

	outgoing, err := svc.ListOutgoingRequests(ctx, "alice@example.com", 10, "")
	if err != nil {
		t.Fatalf("outgoing failed: %v", err)
	}
	if outgoing.Total != 1 || outgoing.Requests[0].ToEmail != "bob@example.com" {
		t.Errorf("outgoing request should target bob, got %+v", outgoing.Requests)
	}
}

// TestSendFriendRequestMarksSuggestion 发申请后对应推荐标记为已发送
func TestSendFriendRequestMarksSuggestion(t *testing.T) {
	svc, _, suggestionDAO := newTestService(account("alice@example.com", "Alice"), account("bob@example.com", "Bob"))
	ctx := context.Background()

	if _, err := suggestionDAO.BulkCreateSuggestions(ctx, []*model.FriendSuggestion{{
		UserEmail:          "alice@example.com",
		SuggestedUserEmail: "bob@example.com",
		Source:             model.SuggestionSourceMutualFriends,
		Priority:           5,
		Status:             model.SuggestionStatusActive,
	}}); err != nil {
		t.Fatalf("seed suggestion failed: %v", err)
	}

	if _, err := svc.SendFriendRequest(ctx, "alice@example.com", "bob@example.com", ""); err != nil {
		t.Fatalf("send failed: %v", err)
	}

	active, _ := suggestionDAO.ListActiveSuggestions(ctx, "alice@example.com", 10)
	if len(active) != 0 {
		t.Errorf("suggestion should no longer be active, got %d active", len(active))
	}
}

// TestAcceptFriendRequestClearsSuggestions 接受申请后双向推荐都被清理
func TestAcceptFriendRequestClearsSuggestions(t *testing.T) {
	svc, _, suggestionDAO := newTestService(account("alice@example.com", "Alice"), account("bob@example.com", "Bob"))
	ctx := context.Background()

	if _, err := suggestionDAO.BulkCreateSuggestions(ctx, []*model.FriendSuggestion{{
		UserEmail:          "bob@example.com",
		SuggestedUserEmail: "alice@example.com",
		Source:             model.SuggestionSourceContact,
		Priority:           4,
		Status:             model.SuggestionStatusActive,
	}}); err != nil {
		t.Fatalf("seed suggestion failed: %v", err)
	}

	sent, err := svc.SendFriendRequest(ctx, "alice@example.com", "bob@example.com", "")
	if err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if _, err := svc.AcceptFriendRequest(ctx, "bob@example.com", sent.ID); err != nil {
		t.Fatalf("accept failed: %v", err)
	}

	active, _ := suggestionDAO.ListActiveSuggestions(ctx, "bob@example.com", 10)
	if len(active) != 0 {
		t.Errorf("suggestion for accepter should be cleared, got %d active", len(active))
	}
}

// TestRelationshipStatusQueries 状态查询在申请前后返回正确结果
func TestRelationshipStatusQueries(t *testing.T) {
	svc, _, _ := newTestService(account("alice@example.com", "Alice"), account("bob@example.com", "Bob"))
	ctx := context.Background()

	status, err := svc.CheckBidirectionalRelationship(ctx, "alice@example.com", "bob@example.com")
	if err != nil {
		t.Fatalf("status query failed: %v", err)
	}
	if status.Exists {
		t.Error("no relationship should exist yet")
	}

	sent, err := svc.SendFriendRequest(ctx, "alice@example.com", "bob@example.com", "")
	if err != nil {
		t.Fatalf("send failed: %v", err)
	}

	status, err = svc.CheckBidirectionalRelationship(ctx, "bob@example.com", "alice@example.com")
	if err != nil {
		t.Fatalf("status query failed: %v", err)
	}
	if !status.Exists || status.InitiatedBy != "alice@example.com" {
		t.Errorf("unexpected status: %+v", status)
	}

	if _, err := svc.AcceptFriendRequest(ctx, "bob@example.com", sent.ID); err != nil {
		t.Fatalf("accept failed: %v", err)
	}

	emails, err := svc.GetFriendEmails(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("friend emails failed: %v", err)
	}
	if len(emails) != 1 || emails[0] != "bob@example.com" {
		t.Errorf("expected bob in friend set, got %v", emails)
	}
}
