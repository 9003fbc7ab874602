package publish

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	storage "google.golang.org/api/storage/v1"

	"vidpress/internal/services"
)

const gcsPublicBase = "https://storage.googleapis.com"

// GCSConfig configures the Cloud Storage backend.
type GCSConfig struct {
	Bucket          string
	CredentialsFile string
	// PublicBaseURL replaces https://storage.googleapis.com/<bucket> in
	// returned URLs, typically a CDN domain.
	PublicBaseURL string
	Timeout       time.Duration
	// Endpoint overrides the JSON API root.
	Endpoint   string
	HTTPClient *http.Client
}

// GCS uploads objects through the Cloud Storage JSON API.
type GCS struct {
	svc        *storage.Service
	bucket     string
	publicBase string
}

// NewGCS authenticates with the credentials file, or application default
// credentials when none is given.
func NewGCS(ctx context.Context, cfg GCSConfig) (*GCS, error) {
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, services.Wrap(services.ErrConfiguration, "publish", "gcs", "bucket required", nil)
	}

	var opts []option.ClientOption
	switch {
	case cfg.HTTPClient != nil:
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	case strings.TrimSpace(cfg.CredentialsFile) != "":
		data, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, services.Wrap(services.ErrConfiguration, "publish", "gcs credentials", cfg.CredentialsFile, err)
		}
		creds, err := google.CredentialsFromJSON(ctx, data, storage.DevstorageReadWriteScope)
		if err != nil {
			return nil, services.Wrap(services.ErrConfiguration, "publish", "gcs credentials", cfg.CredentialsFile, err)
		}
		opts = append(opts, option.WithCredentials(creds))
	default:
		creds, err := google.FindDefaultCredentials(ctx, storage.DevstorageReadWriteScope)
		if err != nil {
			return nil, services.Wrap(services.ErrConfiguration, "publish", "gcs credentials", "no default credentials", err)
		}
		opts = append(opts, option.WithCredentials(creds))
	}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}

	svc, err := storage.NewService(ctx, opts...)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "publish", "gcs client", "", err)
	}

	publicBase := strings.TrimRight(strings.TrimSpace(cfg.PublicBaseURL), "/")
	if publicBase == "" {
		publicBase = gcsPublicBase + "/" + bucket
	}
	return &GCS{svc: svc, bucket: bucket, publicBase: publicBase}, nil
}

// Name identifies the backend.
func (g *GCS) Name() string { return "gcs" }

// Upload inserts the object and returns its public URL.
func (g *GCS) Upload(ctx context.Context, obj Object) (string, error) {
	file, err := os.Open(obj.Path)
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "publish", "gcs open", obj.Path, err)
	}
	defer file.Close()

	object := &storage.Object{
		Name:         obj.Key,
		ContentType:  obj.ContentType,
		CacheControl: "public, max-age=31536000",
	}
	stored, err := g.svc.Objects.Insert(g.bucket, object).
		Media(file, googleapi.ContentType(obj.ContentType)).
		Context(ctx).
		Do()
	if err != nil {
		return "", classifyGCSError(ctx, err)
	}
	name := obj.Key
	if stored != nil && stored.Name != "" {
		name = stored.Name
	}
	return fmt.Sprintf("%s/%s", g.publicBase, name), nil
}

// Verify reads the bucket metadata, which fails on bad credentials or a
// missing bucket.
func (g *GCS) Verify(ctx context.Context) error {
	if _, err := g.svc.Buckets.Get(g.bucket).Context(ctx).Do(); err != nil {
		return classifyGCSError(ctx, err)
	}
	return nil
}

func classifyGCSError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == http.StatusTooManyRequests:
			return services.Wrap(services.ErrRateLimited, "publish", "gcs insert", apiErr.Message, err)
		case apiErr.Code == http.StatusRequestTimeout || apiErr.Code >= http.StatusInternalServerError:
			return services.Wrap(services.ErrTransient, "publish", "gcs insert", apiErr.Message, err)
		default:
			return services.Wrap(services.ErrExternalTool, "publish", "gcs insert", apiErr.Message, err)
		}
	}
	return services.Wrap(services.ErrExternalTool, "publish", "gcs insert", "", err)
}
