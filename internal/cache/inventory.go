package cache

import (
	"context"
	"fmt"
	"time"
)

const (
	RequestKeyPrefix  = "request:%d"
	PickupKeyPrefix   = "pickup:%d"
	ProviderKeyPrefix = "provider:%d"
	ReportSummaryKey  = "report:summary"
)

const (
	RequestTTL  = 5 * time.Minute
	PickupTTL   = 5 * time.Minute
	ProviderTTL = 30 * time.Minute
	ReportTTL   = 10 * time.Minute
)

func RequestKey(requestID uint) string {
	return fmt.Sprintf(RequestKeyPrefix, requestID)
}

func PickupKey(pickupID uint) string {
	return fmt.Sprintf(PickupKeyPrefix, pickupID)
}

func ProviderKey(providerID uint) string {
	return fmt.Sprintf(ProviderKeyPrefix, providerID)
}

func Invalidate(ctx context.Context, key string) {
	if client != nil {
		client.Del(ctx, key)
	}
}

func InvalidateRequest(ctx context.Context, requestID uint) {
	Invalidate(ctx, RequestKey(requestID))
}

func InvalidatePickup(ctx context.Context, pickupID uint) {
	Invalidate(ctx, PickupKey(pickupID))
}

// InvalidateReports drops cached aggregation results. Called after any
// pickup completion since completions change the collected totals.
func InvalidateReports(ctx context.Context) {
	Invalidate(ctx, ReportSummaryKey)
}
