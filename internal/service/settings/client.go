package settings

import (
	"context"
	"fmt"
	"strings"

	"EnsembleView/internal/domain/models"
	domsvc "EnsembleView/internal/domain/service"
	xhttp "EnsembleView/pkg/http"
)

// HTTPStore talks to the backend's configuration endpoints.
type HTTPStore struct {
	baseURL string
	client  *xhttp.Client
}

func NewHTTPStore(baseURL string, client *xhttp.Client) *HTTPStore {
	if client == nil {
		client = xhttp.NewClient()
	}
	return &HTTPStore{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

func (s *HTTPStore) Get(ctx context.Context) (models.Settings, error) {
	var out models.Settings
	err := s.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    s.baseURL + "/config",
	}, &out)
	if err != nil {
		return models.Settings{}, fmt.Errorf("get settings: %w", err)
	}
	return out, nil
}

type replaceResp struct {
	Status string          `json:"status"`
	Config models.Settings `json:"config"`
}

// Replace submits the full flat form and returns the stored document.
func (s *HTTPStore) Replace(ctx context.Context, u models.SettingsUpdate) (models.Settings, error) {
	var out replaceResp
	err := s.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodPost,
		URL:    s.baseURL + "/config",
		Body:   u,
	}, &out)
	if err != nil {
		return models.Settings{}, fmt.Errorf("replace settings: %w", err)
	}
	return out.Config, nil
}

func (s *HTTPStore) Tickers(ctx context.Context) ([]string, error) {
	var out struct {
		Tickers []string `json:"tickers"`
	}
	err := s.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    s.baseURL + "/tickers",
	}, &out)
	if err != nil {
		return nil, fmt.Errorf("get tickers: %w", err)
	}
	return out.Tickers, nil
}

var _ domsvc.SettingsStore = (*HTTPStore)(nil)
