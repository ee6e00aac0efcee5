package service

import (
	"context"

	"EnsembleView/internal/domain/models"
)

// SettingsStore is the external configuration collaborator of the backend.
type SettingsStore interface {
	Get(ctx context.Context) (models.Settings, error)
	Replace(ctx context.Context, u models.SettingsUpdate) (models.Settings, error)
	// Tickers lists the tickers the backend would simulate for the
	// configured domain when a start command names none.
	Tickers(ctx context.Context) ([]string, error)
}
