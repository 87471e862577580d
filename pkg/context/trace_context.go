package context

import (
	"context"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// 上下文键类型
type contextKey string

const (
	// 业务相关的上下文键
	TraceIDKey   contextKey = "trace_id"
	UserEmailKey contextKey = "user_email"
	PlatformKey  contextKey = "platform"
	RequestIDKey contextKey = "request_id"
)

// WithTraceID 在context中设置TraceID
func WithTraceID(ctx context.Context, traceID string) context.Context {
	if traceID == "" {
		traceID = GenerateTraceID()
	}

	// 同时设置到OpenTelemetry span中
	if span := trace.SpanFromContext(ctx); span.IsRecording() {
		span.SetAttributes(attribute.String("trace.id", traceID))
	}

	return context.WithValue(ctx, TraceIDKey, traceID)
}

// GetTraceID 从context中获取TraceID
func GetTraceID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	// 优先从OpenTelemetry span中获取
	if span := trace.SpanFromContext(ctx); span.SpanContext().IsValid() {
		return span.SpanContext().TraceID().String()
	}

	if traceID, ok := ctx.Value(TraceIDKey).(string); ok {
		return traceID
	}

	return ""
}

// WithUserEmail 在context中设置用户邮箱
func WithUserEmail(ctx context.Context, userEmail string) context.Context {
	if userEmail == "" {
		return ctx
	}

	// 同时设置到OpenTelemetry span中
	if span := trace.SpanFromContext(ctx); span.IsRecording() {
		span.SetAttributes(attribute.String("user.email", userEmail))
	}

	return context.WithValue(ctx, UserEmailKey, userEmail)
}

// GetUserEmail 从context中获取用户邮箱
func GetUserEmail(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if userEmail, ok := ctx.Value(UserEmailKey).(string); ok {
		return userEmail
	}
	return ""
}

// WithPlatform 在context中设置同步平台
func WithPlatform(ctx context.Context, platform string) context.Context {
	if platform == "" {
		return ctx
	}

	if span := trace.SpanFromContext(ctx); span.IsRecording() {
		span.SetAttributes(attribute.String("sync.platform", platform))
	}

	return context.WithValue(ctx, PlatformKey, platform)
}

// GetPlatform 从context中获取同步平台
func GetPlatform(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if platform, ok := ctx.Value(PlatformKey).(string); ok {
		return platform
	}
	return ""
}

// WithRequestID 在context中设置RequestID
func WithRequestID(ctx context.Context, requestID string) context.Context {
	if requestID == "" {
		requestID = uuid.New().String()
	}
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// GetRequestID 从context中获取RequestID
func GetRequestID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}

// GenerateTraceID 生成TraceID
func GenerateTraceID() string {
	return uuid.New().String()
}
