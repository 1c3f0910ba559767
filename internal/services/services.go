package services

import (
	"context"
	"fmt"
	"time"

	"creddit/internal/models"
	"creddit/internal/utils"
)

// RenderCache holds rendered post bodies keyed by renderKey. Points and
// title are always read from the row, never from here.
type RenderCache = utils.Cache[string]

const renderCacheTTL = 10 * time.Minute

// renderKey changes whenever the row is updated, so a stale render is
// never looked up again.
func renderKey(p *models.Post) string {
	return fmt.Sprintf("post:%d:%d", p.ID, p.UpdatedAt.UnixMicro())
}

// withTimeout bounds a storage call. A non-positive d leaves ctx as is.
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
