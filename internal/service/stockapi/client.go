package stockapi

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"StockLens/internal/domain/models"
	domsvc "StockLens/internal/domain/service"
	xhttp "StockLens/pkg/http"
)

// BackendError is an error the backend reported inside a 2xx response body.
type BackendError struct {
	Path    string
	Message string
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("backend %s: %s", e.Path, e.Message)
}

// Client talks to the stock-analysis backend.
type Client struct {
	baseURL string
	client  *xhttp.Client
}

// New builds a client for baseURL. A non-positive timeout keeps the
// xhttp default.
func New(baseURL string, timeout time.Duration, opts ...xhttp.ClientOption) *Client {
	opts = append([]xhttp.ClientOption{xhttp.WithTimeout(timeout)}, opts...)
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  xhttp.NewClient(opts...),
	}
}

// ListInstruments returns the catalog in backend order.
func (c *Client) ListInstruments(ctx context.Context) ([]models.Instrument, error) {
	var recs []stockRecord
	if err := c.getList(ctx, "/stocks", nil, &recs); err != nil {
		return nil, err
	}
	out := make([]models.Instrument, 0, len(recs))
	for i, r := range recs {
		m, err := r.toModel()
		if err != nil {
			return nil, fmt.Errorf("stocks[%d]: %w", i, err)
		}
		out = append(out, m)
	}
	return out, nil
}

// History returns the dated price records for code.
func (c *Client) History(ctx context.Context, code string) ([]models.HistoricalPoint, error) {
	path := "/stocks/" + url.PathEscape(code) + "/history"
	var recs []historyRecord
	if err := c.getList(ctx, path, nil, &recs); err != nil {
		return nil, err
	}
	out := make([]models.HistoricalPoint, 0, len(recs))
	for i, r := range recs {
		m, err := r.toModel()
		if err != nil {
			return nil, fmt.Errorf("history[%d]: %w", i, err)
		}
		out = append(out, m)
	}
	return out, nil
}

// Indicators returns the latest indicator snapshot for code. A body that only
// carries a message decodes to a snapshot with every field absent.
func (c *Client) Indicators(ctx context.Context, code string) (models.IndicatorSnapshot, error) {
	path := "/stocks/" + url.PathEscape(code) + "/indicators"
	var rec indicatorRecord
	if err := c.client.GetJSON(ctx, c.baseURL+path, nil, &rec); err != nil {
		return models.IndicatorSnapshot{}, fmt.Errorf("get %s: %w", path, err)
	}
	return rec.toModel(), nil
}

// Forecast returns the forecasted closes for code over horizon.
func (c *Client) Forecast(ctx context.Context, code string, horizon models.Horizon) ([]models.ForecastPoint, error) {
	path := "/stocks/" + url.PathEscape(code) + "/forecast"
	query := map[string][]string{"period": {horizon.Token()}}
	var recs []forecastRecord
	if err := c.getList(ctx, path, query, &recs); err != nil {
		return nil, err
	}
	out := make([]models.ForecastPoint, 0, len(recs))
	for i, r := range recs {
		m, err := r.toModel()
		if err != nil {
			return nil, fmt.Errorf("forecast[%d]: %w", i, err)
		}
		out = append(out, m)
	}
	return out, nil
}

// getList decodes a JSON array into dest, turning an object body into a
// BackendError.
func (c *Client) getList(ctx context.Context, path string, query map[string][]string, dest interface{}) error {
	var raw json.RawMessage
	if err := c.client.GetJSON(ctx, c.baseURL+path, query, &raw); err != nil {
		return fmt.Errorf("get %s: %w", path, err)
	}

	body := bytes.TrimSpace(raw)
	switch {
	case len(body) == 0 || bytes.Equal(body, []byte("null")):
		return nil
	case body[0] == '{':
		var env envelope
		if err := json.Unmarshal(body, &env); err != nil {
			return fmt.Errorf("decode %s: %w", path, err)
		}
		msg := env.Message
		if env.Error != "" {
			msg = strings.TrimSpace(env.Error + ": " + env.Message)
		}
		if msg == "" {
			msg = "unexpected object response"
		}
		return &BackendError{Path: path, Message: msg}
	}

	if err := json.Unmarshal(body, dest); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

var _ domsvc.StockAPI = (*Client)(nil)
