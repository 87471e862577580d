package dao

import (
	"context"
	"sort"
	"sync"
	"time"

	"cashpop-social/apps/relationship-service/model"
)

// MemoryRelationshipDAO 内存实现，测试用，保持与数据库实现相同的成对语义
type MemoryRelationshipDAO struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]*model.Relationship
	index  map[[2]string]int64 // (owner,peer) -> id
}

// NewMemoryRelationshipDAO 创建内存关系DAO
func NewMemoryRelationshipDAO() *MemoryRelationshipDAO {
	return &MemoryRelationshipDAO{
		nextID: 1,
		rows:   make(map[int64]*model.Relationship),
		index:  make(map[[2]string]int64),
	}
}

func (d *MemoryRelationshipDAO) allocID() int64 {
	id := d.nextID
	d.nextID++
	return id
}

func (d *MemoryRelationshipDAO) lookup(owner, peer string) *model.Relationship {
	if id, ok := d.index[[2]string{owner, peer}]; ok {
		return d.rows[id]
	}
	return nil
}

func (d *MemoryRelationshipDAO) insert(row *model.Relationship) {
	if row.ID == 0 {
		row.ID = d.allocID()
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now()
	}
	row.UpdatedAt = time.Now()
	d.rows[row.ID] = row
	d.index[[2]string{row.OwnerEmail, row.PeerEmail}] = row.ID
}

func (d *MemoryRelationshipDAO) CreatePair(ctx context.Context, sender, recipient *model.Relationship) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if existing := d.lookup(sender.OwnerEmail, sender.PeerEmail); existing != nil {
		return &model.AlreadyRelatedError{
			OwnerEmail: sender.OwnerEmail,
			PeerEmail:  sender.PeerEmail,
			Status:     existing.Status,
		}
	}
	d.insert(sender)
	d.insert(recipient)
	return nil
}

func (d *MemoryRelationshipDAO) ResurrectPair(ctx context.Context, senderEmail, recipientEmail, message string) (*model.Relationship, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	senderRow := d.lookup(senderEmail, recipientEmail)
	recipientRow := d.lookup(recipientEmail, senderEmail)
	if senderRow == nil || recipientRow == nil {
		return nil, &model.NotRelatedError{OwnerEmail: senderEmail, PeerEmail: recipientEmail}
	}
	if senderRow.Status != model.RelationshipStatusRejected || recipientRow.Status != model.RelationshipStatusRejected {
		return nil, &model.AlreadyRelatedError{
			OwnerEmail: senderEmail,
			PeerEmail:  recipientEmail,
			Status:     senderRow.Status,
		}
	}

	now := time.Now()
	senderRow.Status = model.RelationshipStatusPending
	recipientRow.Status = model.RelationshipStatusReceived
	for _, row := range []*model.Relationship{senderRow, recipientRow} {
		row.InitiatedBy = senderEmail
		row.Message = message
		row.AcceptedAt = nil
		row.UpdatedAt = now
	}
	return senderRow, nil
}

func (d *MemoryRelationshipDAO) settle(requestID int64, actorEmail, newStatus string) (*model.Relationship, error) {
	row, ok := d.rows[requestID]
	if !ok {
		return nil, &model.RequestNotFoundError{RequestID: requestID, UserEmail: actorEmail}
	}
	senderEmail, ok := resolveRequestPeer(row, actorEmail)
	if !ok {
		return nil, &model.RequestNotFoundError{RequestID: requestID, UserEmail: actorEmail}
	}

	senderRow := d.lookup(senderEmail, actorEmail)
	actorRow := d.lookup(actorEmail, senderEmail)
	if senderRow == nil || actorRow == nil {
		return nil, &model.NotRelatedError{OwnerEmail: actorEmail, PeerEmail: senderEmail}
	}

	now := time.Now()
	for _, r := range []*model.Relationship{senderRow, actorRow} {
		r.Status = newStatus
		r.UpdatedAt = now
		if newStatus == model.RelationshipStatusAccepted {
			t := now
			r.AcceptedAt = &t
		}
	}
	return actorRow, nil
}

func (d *MemoryRelationshipDAO) AcceptRequest(ctx context.Context, requestID int64, accepterEmail string) (*model.Relationship, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.settle(requestID, accepterEmail, model.RelationshipStatusAccepted)
}

func (d *MemoryRelationshipDAO) RejectRequest(ctx context.Context, requestID int64, rejecterEmail string) (*model.Relationship, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.settle(requestID, rejecterEmail, model.RelationshipStatusRejected)
}

func (d *MemoryRelationshipDAO) AutoAcceptPair(ctx context.Context, userEmail, contactEmail string) (bool, string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if existing := d.lookup(userEmail, contactEmail); existing != nil {
		switch existing.Status {
		case model.RelationshipStatusAccepted:
			return false, model.AutoAcceptReasonAlreadyFriend, nil
		case model.RelationshipStatusPending, model.RelationshipStatusReceived:
			return false, model.AutoAcceptReasonPendingExists, nil
		case model.RelationshipStatusBlocked:
			return false, model.AutoAcceptReasonBlocked, nil
		}
		now := time.Now()
		for _, row := range []*model.Relationship{existing, d.lookup(contactEmail, userEmail)} {
			row.Status = model.RelationshipStatusAccepted
			row.InitiatedBy = userEmail
			t := now
			row.AcceptedAt = &t
			row.UpdatedAt = now
		}
		return true, model.AutoAcceptReasonCreated, nil
	}

	now := time.Now()
	d.insert(&model.Relationship{
		OwnerEmail:  userEmail,
		PeerEmail:   contactEmail,
		Status:      model.RelationshipStatusAccepted,
		InitiatedBy: userEmail,
		AcceptedAt:  &now,
	})
	d.insert(&model.Relationship{
		OwnerEmail:  contactEmail,
		PeerEmail:   userEmail,
		Status:      model.RelationshipStatusAccepted,
		InitiatedBy: userEmail,
		AcceptedAt:  &now,
	})
	return true, model.AutoAcceptReasonCreated, nil
}

func (d *MemoryRelationshipDAO) BlockPair(ctx context.Context, blockerEmail, targetEmail string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	blockerRow := d.lookup(blockerEmail, targetEmail)
	targetRow := d.lookup(targetEmail, blockerEmail)
	if blockerRow == nil || targetRow == nil {
		return &model.NotRelatedError{OwnerEmail: blockerEmail, PeerEmail: targetEmail}
	}

	now := time.Now()
	for _, r := range []*model.Relationship{blockerRow, targetRow} {
		r.Status = model.RelationshipStatusBlocked
		t := now
		r.BlockedAt = &t
		r.UpdatedAt = now
	}
	return nil
}

func (d *MemoryRelationshipDAO) GetByID(ctx context.Context, id int64) (*model.Relationship, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if row, ok := d.rows[id]; ok {
		copy := *row
		return &copy, nil
	}
	return nil, nil
}

func (d *MemoryRelationshipDAO) GetByOwnerPeer(ctx context.Context, ownerEmail, peerEmail string) (*model.Relationship, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if row := d.lookup(ownerEmail, peerEmail); row != nil {
		copy := *row
		return &copy, nil
	}
	return nil, nil
}

func (d *MemoryRelationshipDAO) GetEitherDirection(ctx context.Context, emailA, emailB string) (*model.Relationship, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if row := d.lookup(emailA, emailB); row != nil {
		copy := *row
		return &copy, nil
	}
	if row := d.lookup(emailB, emailA); row != nil {
		copy := *row
		return &copy, nil
	}
	return nil, nil
}

func (d *MemoryRelationshipDAO) ListByOwnerAndStatus(ctx context.Context, ownerEmail, status string, limit int, cursor string) ([]*model.Relationship, string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if limit <= 0 {
		limit = model.DefaultPageSize
	}

	var rows []*model.Relationship
	for _, row := range d.rows {
		if row.OwnerEmail == ownerEmail && row.Status == status {
			copy := *row
			rows = append(rows, &copy)
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].CreatedAt.Equal(rows[j].CreatedAt) {
			return rows[i].ID > rows[j].ID
		}
		return rows[i].CreatedAt.After(rows[j].CreatedAt)
	})

	if cursor != "" {
		ts, err := time.Parse(time.RFC3339Nano, cursor)
		if err != nil {
			return nil, "", err
		}
		filtered := rows[:0]
		for _, row := range rows {
			if row.CreatedAt.Before(ts) {
				filtered = append(filtered, row)
			}
		}
		rows = filtered
	}

	nextCursor := ""
	if len(rows) > limit {
		rows = rows[:limit]
		nextCursor = rows[len(rows)-1].CreatedAt.Format(time.RFC3339Nano)
	}
	return rows, nextCursor, nil
}

func (d *MemoryRelationshipDAO) ListFriendEmails(ctx context.Context, ownerEmail string) ([]string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	var emails []string
	for _, row := range d.rows {
		if row.OwnerEmail == ownerEmail && row.Status == model.RelationshipStatusAccepted {
			emails = append(emails, row.PeerEmail)
		}
	}
	sort.Strings(emails)
	return emails, nil
}

func (d *MemoryRelationshipDAO) BatchGetStatuses(ctx context.Context, ownerEmail string, peerEmails []string) (map[string]string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	result := make(map[string]string)
	for _, peer := range peerEmails {
		if row := d.lookup(ownerEmail, peer); row != nil {
			result[peer] = row.Status
		}
	}
	return result, nil
}

func (d *MemoryRelationshipDAO) friendSet(email string) map[string]bool {
	set := make(map[string]bool)
	for _, row := range d.rows {
		if row.OwnerEmail == email && row.Status == model.RelationshipStatusAccepted {
			set[row.PeerEmail] = true
		}
	}
	return set
}

func (d *MemoryRelationshipDAO) MutualFriends(ctx context.Context, emailA, emailB string) ([]string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	setB := d.friendSet(emailB)
	var mutual []string
	for email := range d.friendSet(emailA) {
		if setB[email] {
			mutual = append(mutual, email)
		}
	}
	sort.Strings(mutual)
	return mutual, nil
}

func (d *MemoryRelationshipDAO) BatchMutualFriends(ctx context.Context, userEmail string, targetEmails []string) (map[string][]string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	setUser := d.friendSet(userEmail)
	result := make(map[string][]string)
	for _, target := range targetEmails {
		var mutual []string
		for email := range d.friendSet(target) {
			if setUser[email] {
				mutual = append(mutual, email)
			}
		}
		sort.Strings(mutual)
		if len(mutual) > 0 {
			result[target] = mutual
		}
	}
	return result, nil
}

// MemorySuggestionDAO 内存推荐DAO，测试用
type MemorySuggestionDAO struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]*model.FriendSuggestion
}

// NewMemorySuggestionDAO 创建内存推荐DAO
func NewMemorySuggestionDAO() *MemorySuggestionDAO {
	return &MemorySuggestionDAO{
		nextID: 1,
		rows:   make(map[int64]*model.FriendSuggestion),
	}
}

func (d *MemorySuggestionDAO) findPair(userEmail, suggestedEmail string) *model.FriendSuggestion {
	for _, row := range d.rows {
		if row.UserEmail == userEmail && row.SuggestedUserEmail == suggestedEmail {
			return row
		}
	}
	return nil
}

func (d *MemorySuggestionDAO) BulkCreateSuggestions(ctx context.Context, suggestions []*model.FriendSuggestion) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	created := 0
	for _, s := range suggestions {
		if d.findPair(s.UserEmail, s.SuggestedUserEmail) != nil {
			continue
		}
		row := *s
		row.ID = d.nextID
		d.nextID++
		if row.CreatedAt.IsZero() {
			row.CreatedAt = time.Now()
		}
		row.UpdatedAt = time.Now()
		d.rows[row.ID] = &row
		created++
	}
	return created, nil
}

func (d *MemorySuggestionDAO) ListActiveSuggestions(ctx context.Context, userEmail string, limit int) ([]*model.FriendSuggestion, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if limit <= 0 {
		limit = model.DefaultMaxSuggestions
	}

	var rows []*model.FriendSuggestion
	for _, row := range d.rows {
		if row.UserEmail == userEmail && row.Status == model.SuggestionStatusActive {
			copy := *row
			rows = append(rows, &copy)
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Priority == rows[j].Priority {
			return rows[i].CreatedAt.After(rows[j].CreatedAt)
		}
		return rows[i].Priority > rows[j].Priority
	})
	if len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

func (d *MemorySuggestionDAO) GetActivePairs(ctx context.Context, userEmail string) (map[string]bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	pairs := make(map[string]bool)
	for _, row := range d.rows {
		if row.UserEmail == userEmail && row.Status == model.SuggestionStatusActive {
			pairs[row.SuggestedUserEmail] = true
		}
	}
	return pairs, nil
}

func (d *MemorySuggestionDAO) UpdateSuggestionStatus(ctx context.Context, id int64, userEmail, status string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	row, ok := d.rows[id]
	if !ok || row.UserEmail != userEmail {
		return model.ErrSuggestionMissing
	}
	row.Status = status
	row.UpdatedAt = time.Now()
	return nil
}

func (d *MemorySuggestionDAO) UpdatePairStatus(ctx context.Context, userEmail, suggestedEmail, status string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if row := d.findPair(userEmail, suggestedEmail); row != nil {
		row.Status = status
		row.UpdatedAt = time.Now()
	}
	return nil
}

func (d *MemorySuggestionDAO) DeleteByPair(ctx context.Context, userEmail, suggestedEmail string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	for id, row := range d.rows {
		if row.UserEmail == userEmail && row.SuggestedUserEmail == suggestedEmail {
			delete(d.rows, id)
		}
	}
	return nil
}

func (d *MemorySuggestionDAO) DeleteExpired(ctx context.Context, olderThanDays int) (int64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	cutoff := time.Now().AddDate(0, 0, -olderThanDays)
	var deleted int64
	for id, row := range d.rows {
		if row.Status != model.SuggestionStatusActive && row.UpdatedAt.Before(cutoff) {
			delete(d.rows, id)
			deleted++
		}
	}
	return deleted, nil
}
