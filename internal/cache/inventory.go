package cache

import (
	"context"
	"fmt"
	"time"
)

const (
	RequestKeyPrefix       = "request:%s"
	OwnerRequestsPrefix    = "owner:%s:requests"
	ConversationKeyPrefix  = "conversation:%s"
	CategoriesKey          = "categories:all"
	ApprovedBusinessPrefix = "approved:%s"
)

const (
	RequestTTL      = 5 * time.Minute
	ConversationTTL = 2 * time.Minute
	CategoriesTTL   = 30 * time.Minute
	ApprovedTTL     = 10 * time.Minute
)

func RequestKey(requestID string) string {
	return fmt.Sprintf(RequestKeyPrefix, requestID)
}

func OwnerRequestsKey(ownerID string) string {
	return fmt.Sprintf(OwnerRequestsPrefix, ownerID)
}

func ConversationKey(ownerID string) string {
	return fmt.Sprintf(ConversationKeyPrefix, ownerID)
}

func ApprovedBusinessesKey(municipality string) string {
	return fmt.Sprintf(ApprovedBusinessPrefix, municipality)
}

func Invalidate(ctx context.Context, key string) {
	if client != nil {
		client.Del(ctx, key)
	}
}

func InvalidateRequest(ctx context.Context, requestID, ownerID string) {
	Invalidate(ctx, RequestKey(requestID))
	Invalidate(ctx, OwnerRequestsKey(ownerID))
}

func InvalidateConversation(ctx context.Context, ownerID string) {
	Invalidate(ctx, ConversationKey(ownerID))
}

func InvalidateCategories(ctx context.Context) {
	Invalidate(ctx, CategoriesKey)
}

func InvalidateApproved(ctx context.Context, municipality string) {
	Invalidate(ctx, ApprovedBusinessesKey(municipality))
}
