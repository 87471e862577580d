package service

import (
	"context"
	"testing"

	"cashpop-social/apps/relationship-service/model"
)

// TestBatchAcceptRequests 批量接受逐项收集结果，坏ID不影响好ID
func TestBatchAcceptRequests(t *testing.T) {
	svc, relationshipDAO, _ := newTestService(
		account("alice@example.com", "Alice"),
		account("bob@example.com", "Bob"),
		account("carol@example.com", "Carol"))
	ctx := context.Background()

	if _, err := svc.SendFriendRequest(ctx, "alice@example.com", "carol@example.com", ""); err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if _, err := svc.SendFriendRequest(ctx, "bob@example.com", "carol@example.com", ""); err != nil {
		t.Fatalf("send failed: %v", err)
	}

	incoming, err := svc.ListIncomingRequests(ctx, "carol@example.com", 10, "")
	if err != nil {
		t.Fatalf("incoming failed: %v", err)
	}
	if incoming.Total != 2 {
		t.Fatalf("incoming total = %d, want 2", incoming.Total)
	}

	ids := []int64{incoming.Requests[0].RequestID, incoming.Requests[1].RequestID, 99999}
	result := svc.BatchAcceptRequests(ctx, "carol@example.com", ids)
	if result.Succeeded != 2 || result.Failed != 1 {
		t.Errorf("succeeded=%d failed=%d, want 2/1", result.Succeeded, result.Failed)
	}
	if len(result.Items) != 3 {
		t.Fatalf("items = %d, want 3", len(result.Items))
	}
	if result.Items[2].Success || result.Items[2].Error == "" {
		t.Error("unknown request ID should fail with an error message")
	}

	for _, sender := range []string{"alice@example.com", "bob@example.com"} {
		row, _ := relationshipDAO.GetByOwnerPeer(ctx, "carol@example.com", sender)
		if row == nil || row.Status != model.RelationshipStatusAccepted {
			t.Errorf("relationship with %s should be ACCEPTED, got %+v", sender, row)
		}
	}
}

// TestBatchSendRequests 批量发送去重并逐项收集结果
func TestBatchSendRequests(t *testing.T) {
	svc, _, _ := newTestService(
		account("alice@example.com", "Alice"),
		account("bob@example.com", "Bob"))
	ctx := context.Background()

	result := svc.BatchSendRequests(ctx, "alice@example.com",
		[]string{"bob@example.com", "bob@example.com", "ghost@example.com", "alice@example.com"}, "hi")

	// bob成功，ghost不存在，自己失败，重复bob被去重
	if len(result.Items) != 3 {
		t.Fatalf("items = %d, want 3 after dedup", len(result.Items))
	}
	if result.Succeeded != 1 || result.Failed != 2 {
		t.Errorf("succeeded=%d failed=%d, want 1/2", result.Succeeded, result.Failed)
	}

	outgoing, err := svc.ListOutgoingRequests(ctx, "alice@example.com", 10, "")
	if err != nil {
		t.Fatalf("outgoing failed: %v", err)
	}
	if outgoing.Total != 1 {
		t.Errorf("outgoing total = %d, want 1", outgoing.Total)
	}
}
