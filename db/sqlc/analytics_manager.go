package sqlc

import (
	"context"
	"net"

	"github.com/sqlc-dev/pqtype"
)

// AnalyticsManager keeps per-server counters. Every server instance counts
// under its own IP.
type AnalyticsManager struct {
	queries  Querier
	serverIp pqtype.Inet
}

func NewAnalyticsManager(queries Querier, serverIpNet net.IPNet) *AnalyticsManager {
	return &AnalyticsManager{
		queries:  queries,
		serverIp: pqtype.Inet{IPNet: serverIpNet, Valid: true},
	}
}

func (a *AnalyticsManager) IncrementGamesCreatedCount(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, QuerierCtxTimeout)
	defer cancel()
	return a.queries.IncrementGamesCreatedCount(ctx, a.serverIp)
}

func (a *AnalyticsManager) IncrementRematchCalledCount(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, QuerierCtxTimeout)
	defer cancel()
	return a.queries.IncrementRematchCalledCount(ctx, a.serverIp)
}

func (a *AnalyticsManager) GetGamesCreatedCount(ctx context.Context) (int64, error) {
	return a.queries.GetGamesCreatedCount(ctx, a.serverIp)
}

func (a *AnalyticsManager) GetRematchCalledCount(ctx context.Context) (int64, error) {
	return a.queries.GetRematchCalledCount(ctx, a.serverIp)
}
