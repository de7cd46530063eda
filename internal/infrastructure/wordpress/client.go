package wordpress

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/outsource-importer/internal/config"
	"github.com/outsource-importer/internal/domain/repository"
	"github.com/outsource-importer/internal/pkg/errors"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

const (
	apiPrefix = "/wp-json/wp/v2"
	perPage   = 100
	// maxPages защищает от сервера, который игнорирует page
	maxPages = 1000
)

type client struct {
	httpClient *http.Client
	limiter    *hostLimiter
	logger     *zap.Logger
}

// NewWordPressClient создает клиент WP REST API
func NewWordPressClient(cfg *config.WordPressConfig, logger *zap.Logger) repository.WordPressRepository {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &client{
		httpClient: &http.Client{Timeout: timeout},
		limiter:    newHostLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst),
		logger:     logger,
	}
}

// GetRecord возвращает {endpoint}/wp-json/wp/v2/{resource}/{id}
func (c *client) GetRecord(ctx context.Context, endpoint, resource, id string) (json.RawMessage, error) {
	u, err := resourceURL(endpoint, resource+"/"+url.PathEscape(id))
	if err != nil {
		return nil, errors.ErrInvalidRequest.Wrap(err)
	}

	body, _, err := c.get(ctx, u)
	if err != nil {
		return nil, err
	}
	return body, nil
}

func (c *client) GetURL(ctx context.Context, rawURL string) (json.RawMessage, error) {
	if _, err := url.ParseRequestURI(rawURL); err != nil {
		return nil, errors.ErrInvalidRequest.Wrap(err)
	}

	body, _, err := c.get(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	return body, nil
}

// ListCollection читает страницы по perPage, пока не закончится X-WP-TotalPages
func (c *client) ListCollection(ctx context.Context, endpoint, resource string) ([]json.RawMessage, error) {
	base, err := resourceURL(endpoint, resource)
	if err != nil {
		return nil, errors.ErrInvalidRequest.Wrap(err)
	}

	var items []json.RawMessage
	for page := 1; page <= maxPages; page++ {
		u := fmt.Sprintf("%s?per_page=%d&page=%d", base, perPage, page)

		body, header, err := c.get(ctx, u)
		if err != nil {
			return nil, err
		}

		result := gjson.ParseBytes(body)
		if !result.IsArray() {
			return nil, errors.ErrSourceFetch.Wrap(fmt.Errorf("%s: expected JSON array", u))
		}
		result.ForEach(func(_, value gjson.Result) bool {
			items = append(items, json.RawMessage(value.Raw))
			return true
		})

		totalPages, _ := strconv.Atoi(header.Get("X-WP-TotalPages"))
		if page >= totalPages || len(result.Array()) == 0 {
			break
		}
	}

	c.logger.Debug("WordPress collection fetched",
		zap.String("url", base),
		zap.Int("count", len(items)))

	return items, nil
}

func (c *client) get(ctx context.Context, rawURL string) ([]byte, http.Header, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, nil, errors.ErrInvalidRequest.Wrap(err)
	}
	if err := c.limiter.Wait(ctx, parsed.Host); err != nil {
		return nil, nil, errors.ErrSourceFetch.Wrap(err)
	}

	c.logger.Debug("Calling WordPress API", zap.String("url", rawURL))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		c.logger.Error("Failed to create request", zap.Error(err))
		return nil, nil, errors.ErrSourceFetch.Wrap(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("Failed to execute request",
			zap.String("url", rawURL),
			zap.Error(err))
		return nil, nil, errors.ErrSourceFetch.Wrap(fmt.Errorf("failed to execute request: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, errors.ErrSourceFetch.Wrap(fmt.Errorf("failed to read response: %w", err))
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, nil, errors.ErrSourceNotFound.WithDetails(map[string]interface{}{"url": rawURL})
	case resp.StatusCode != http.StatusOK:
		c.logger.Error("WordPress API returned error",
			zap.String("url", rawURL),
			zap.Int("status_code", resp.StatusCode),
			zap.String("body", truncate(string(body), 512)))
		return nil, nil, errors.ErrSourceFetch.Wrap(fmt.Errorf("wordpress API error: status %d", resp.StatusCode))
	}

	if !gjson.ValidBytes(body) {
		return nil, nil, errors.ErrSourceFetch.Wrap(fmt.Errorf("%s: invalid JSON response", rawURL))
	}

	return body, resp.Header, nil
}

// resourceURL строит {endpoint}/wp-json/wp/v2/{resource}
func resourceURL(endpoint, resource string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(endpoint))
	if err != nil {
		return "", fmt.Errorf("parse endpoint %q: %w", endpoint, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("endpoint %q must be an absolute URL", endpoint)
	}
	return strings.TrimRight(u.String(), "/") + apiPrefix + "/" + strings.Trim(resource, "/"), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
