package usecase

import (
	"context"
	"log/slog"

	"github.com/DevRickLin/msg-forwarder/internal/biz/domain"
	"github.com/DevRickLin/msg-forwarder/internal/biz/repo"
)

// SourceConfig contains message source configuration
type SourceConfig struct {
	PageSize         int
	NoiseSenders     []string
	NoiseIdentifiers []string
}

// SourceUsecase turns raw store rows into messages worth processing
type SourceUsecase struct {
	store       repo.MessageStore
	pageSize    int
	senders     map[string]struct{}
	identifiers map[string]struct{}
	logger      *slog.Logger
}

// NewSourceUsecase creates a new message source usecase
func NewSourceUsecase(store repo.MessageStore, config SourceConfig, logger *slog.Logger) *SourceUsecase {
	if logger == nil {
		logger = slog.Default()
	}
	pageSize := config.PageSize
	if pageSize <= 0 {
		pageSize = 200
	}
	return &SourceUsecase{
		store:       store,
		pageSize:    pageSize,
		senders:     toSet(config.NoiseSenders),
		identifiers: toSet(config.NoiseIdentifiers),
		logger:      logger.With("component", "source"),
	}
}

// FetchSince returns at most one page of messages newer than cursor, in
// ascending order, with noise rows removed. An unavailable store yields an
// empty batch. HighWater covers dropped noise rows too.
func (uc *SourceUsecase) FetchSince(ctx context.Context, cursor int64) domain.Batch {
	rows, err := uc.store.FetchSince(ctx, cursor, uc.pageSize)
	if err != nil {
		uc.logger.Warn("message store unavailable", "cursor", cursor, "error", err)
		return domain.Batch{}
	}

	if len(rows) > uc.pageSize {
		rows = rows[:uc.pageSize]
	}

	var batch domain.Batch
	noise := 0
	for _, row := range rows {
		if row.Cursor <= cursor {
			continue
		}
		if row.Cursor > batch.HighWater {
			batch.HighWater = row.Cursor
		}
		if row.MatchesAny(uc.senders, uc.identifiers) {
			noise++
			continue
		}
		batch.Messages = append(batch.Messages, row)
	}

	if noise > 0 {
		uc.logger.Debug("dropped noise rows", "count", noise, "high_water", batch.HighWater)
	}
	return batch
}

// MaxCursor returns the store's current largest cursor
func (uc *SourceUsecase) MaxCursor(ctx context.Context) (int64, error) {
	return uc.store.MaxCursor(ctx)
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}
