package publish

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"vidpress/internal/config"
	"vidpress/internal/services"
)

// ErrNotConfigured reports that no remote backend is selected. It is not a
// failure: assets simply stay local.
var ErrNotConfigured = errors.New("remote storage not configured")

// Object is one upload.
type Object struct {
	Key         string
	Path        string
	ContentType string
}

// Store is a remote image host.
type Store interface {
	Name() string
	// Upload stores obj and returns its public URL.
	Upload(ctx context.Context, obj Object) (string, error)
}

// Verifier is implemented by stores that can check their credentials
// without uploading anything.
type Verifier interface {
	Verify(ctx context.Context) error
}

// StoreOption customizes NewStore.
type StoreOption func(*storeOptions)

type storeOptions struct {
	httpClient *http.Client
	logger     *slog.Logger
}

// WithHTTPClient replaces the backend's HTTP client. GCS then skips
// credential discovery.
func WithHTTPClient(client *http.Client) StoreOption {
	return func(o *storeOptions) { o.httpClient = client }
}

// WithStoreLogger attaches a logger to the backend.
func WithStoreLogger(logger *slog.Logger) StoreOption {
	return func(o *storeOptions) { o.logger = logger }
}

// NewStore builds the configured backend, or returns ErrNotConfigured.
func NewStore(ctx context.Context, cfg config.Publish, opts ...StoreOption) (Store, error) {
	o := storeOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", config.PublishNone:
		return nil, ErrNotConfigured
	case config.PublishGCS:
		return NewGCS(ctx, GCSConfig{
			Bucket:          cfg.GCSBucket,
			CredentialsFile: cfg.GCSCredentialsFile,
			PublicBaseURL:   cfg.GCSPublicBaseURL,
			Timeout:         timeout,
			HTTPClient:      o.httpClient,
		})
	case config.PublishWeChat:
		return NewWeChat(WeChatConfig{
			AppID:      cfg.WeChatAppID,
			AppSecret:  cfg.WeChatAppSecret,
			BaseURL:    cfg.WeChatBaseURL,
			Timeout:    timeout,
			HTTPClient: o.httpClient,
			Logger:     o.logger,
		})
	default:
		return nil, services.Wrap(services.ErrConfiguration, "publish", "select backend", cfg.Backend, nil)
	}
}
