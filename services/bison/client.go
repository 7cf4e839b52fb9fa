package bison

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/opentracing/opentracing-go"
	tracingLog "github.com/opentracing/opentracing-go/log"
	"github.com/pkg/errors"
	"golang.org/x/net/context"

	"github.com/outboundhq/senderstack/interfaces"
	coreerrors "github.com/outboundhq/senderstack/internal/errors"
	"github.com/outboundhq/senderstack/internal/tracing"
)

const defaultRequestTimeout = 60 * time.Second

type Config struct {
	BaseURL      string `env:"BISON_BASE_URL,required"`
	SharedAPIKey string `env:"BISON_API_KEY,required"`
	Instance     string `env:"BISON_INSTANCE"`
	MaxRetries   int    `env:"BISON_MAX_RETRIES" envDefault:"3"`
}

type clientFactory struct {
	cfg        *Config
	httpClient *http.Client
	instance   string
}

// NewClientFactory builds Bison clients for per-workspace credentials. The
// instance identifier defaults to the API host so the natural sender-email
// key stays stable if the base URL path changes.
func NewClientFactory(cfg *Config) (interfaces.BisonClientFactory, error) {
	if cfg.BaseURL == "" || cfg.SharedAPIKey == "" {
		return nil, errors.Wrap(coreerrors.ErrNotConfigured, "bison base URL and shared API key are required")
	}

	instance := cfg.Instance
	if instance == "" {
		parsed, err := url.Parse(cfg.BaseURL)
		if err != nil {
			return nil, errors.Wrap(err, "invalid bison base URL")
		}
		instance = parsed.Host
	}

	return &clientFactory{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: defaultRequestTimeout},
		instance:   instance,
	}, nil
}

func (f *clientFactory) Instance() string {
	return f.instance
}

func (f *clientFactory) ClientForAPIKey(apiKey string) interfaces.BisonClient {
	if apiKey == "" {
		apiKey = f.cfg.SharedAPIKey
	}
	return &client{
		baseURL:    f.cfg.BaseURL,
		apiKey:     apiKey,
		httpClient: f.httpClient,
		maxRetries: f.cfg.MaxRetries,
	}
}

type client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	maxRetries int
}

// SwitchWorkspace changes the active workspace for a shared credential. The
// switch is session state on the Bison side, which is why shared-credential
// workspaces cannot be synced concurrently.
func (c *client) SwitchWorkspace(ctx context.Context, workspaceID int) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "BisonClient.SwitchWorkspace")
	defer span.Finish()
	tracing.TagComponentService(span)
	span.SetTag("bison.workspace_id", workspaceID)

	body, _ := json.Marshal(map[string]int{"team_id": workspaceID})
	endpoint := fmt.Sprintf("%s/api/workspaces/current", c.baseURL)

	resp, err := fetchWithRetry(ctx, c.httpClient, func() (*http.Request, error) {
		req, err := http.NewRequest(http.MethodPost, endpoint, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		c.setHeaders(req)
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	}, c.maxRetries)
	if err != nil {
		tracing.TraceErr(span, err)
		return errors.Wrap(err, "failed to switch bison workspace")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		err := errors.Errorf("switch workspace returned %d: %s", resp.StatusCode, string(respBody))
		tracing.TraceErr(span, err)
		return err
	}

	return nil
}

// ListSenderEmails fetches one page of the sender-email listing.
func (c *client) ListSenderEmails(ctx context.Context, page, perPage int) (*interfaces.BisonSenderEmailPage, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "BisonClient.ListSenderEmails")
	defer span.Finish()
	tracing.TagComponentService(span)
	span.SetTag("page", page)

	endpoint := fmt.Sprintf("%s/api/sender-emails?per_page=%d&page=%d", c.baseURL, perPage, page)

	resp, err := fetchWithRetry(ctx, c.httpClient, func() (*http.Request, error) {
		req, err := http.NewRequest(http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		c.setHeaders(req)
		return req, nil
	}, c.maxRetries)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, errors.Wrap(err, "failed to list sender emails")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		err := errors.Errorf("list sender emails returned %d: %s", resp.StatusCode, string(respBody))
		tracing.TraceErr(span, err)
		return nil, err
	}

	var result interfaces.BisonSenderEmailPage
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		tracing.TraceErr(span, errors.Wrap(err, "failed to decode sender email page"))
		return nil, errors.Wrap(err, "failed to decode sender email page")
	}

	span.LogFields(tracingLog.Int("result.count", len(result.Data)))
	return &result, nil
}

func (c *client) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
}
