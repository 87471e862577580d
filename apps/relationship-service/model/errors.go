package model

import (
	"errors"
	"fmt"
)

// 关系域错误，DAO和服务层共用
var (
	ErrSelfRequest       = errors.New("cannot create a relationship with yourself")
	ErrInvalidEmail      = errors.New("invalid email address")
	ErrInvalidStatus     = errors.New("invalid relationship status")
	ErrSuggestionMissing = errors.New("suggestion not found")
)

// TargetNotFoundError 目标用户不存在
type TargetNotFoundError struct {
	Email string
}

func (e *TargetNotFoundError) Error() string {
	return fmt.Sprintf("user not found: %s", e.Email)
}

// AlreadyRelatedError 已存在不允许重发申请的关系
type AlreadyRelatedError struct {
	OwnerEmail string
	PeerEmail  string
	Status     string
}

func (e *AlreadyRelatedError) Error() string {
	return fmt.Sprintf("relationship between %s and %s already exists with status %s", e.OwnerEmail, e.PeerEmail, e.Status)
}

// NotRelatedError 两用户之间不存在关系记录
type NotRelatedError struct {
	OwnerEmail string
	PeerEmail  string
}

func (e *NotRelatedError) Error() string {
	return fmt.Sprintf("no relationship found between %s and %s", e.OwnerEmail, e.PeerEmail)
}

// RequestNotFoundError 好友申请不存在或无权操作
type RequestNotFoundError struct {
	RequestID int64
	UserEmail string
}

func (e *RequestNotFoundError) Error() string {
	return fmt.Sprintf("friend request %d not found for user %s", e.RequestID, e.UserEmail)
}

// MutualFriendsCalculationError 共同好友计算失败，批量场景下逐项降级
type MutualFriendsCalculationError struct {
	UserEmail   string
	TargetEmail string
	Cause       error
}

func (e *MutualFriendsCalculationError) Error() string {
	return fmt.Sprintf("failed to calculate mutual friends between %s and %s: %v", e.UserEmail, e.TargetEmail, e.Cause)
}

func (e *MutualFriendsCalculationError) Unwrap() error {
	return e.Cause
}
