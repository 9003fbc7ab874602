package publish

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/url"
	"path"
	"path/filepath"
	"strings"
	"time"

	"vidpress/internal/imaging"
	"vidpress/internal/logging"
	"vidpress/internal/retry"
)

// Reference is where an article reaches one image.
type Reference struct {
	URL    string `json:"url"`
	Remote bool   `json:"remote"`
	Key    string `json:"key,omitempty"`
	// Reason explains a local fallback.
	Reason string `json:"reason,omitempty"`

	Asset imaging.ImageAsset `json:"-"`
}

// Options configures a Publisher.
type Options struct {
	Prefix   string
	Style    string
	SourceID string
	Policy   *retry.Policy
	Logger   *slog.Logger
	// Now stamps object keys; defaults to time.Now.
	Now func() time.Time
}

// Publisher uploads assets for one run. It is safe for concurrent use when
// its Store is.
type Publisher struct {
	store    Store
	prefix   string
	style    string
	sourceID string
	policy   *retry.Policy
	logger   *slog.Logger
	now      func() time.Time
}

// New builds a Publisher. A nil store means every asset stays local.
func New(store Store, opts Options) *Publisher {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	policy := opts.Policy
	if policy == nil {
		policy = retry.Default()
	}
	sourceID := strings.TrimSpace(opts.SourceID)
	if sourceID == "" {
		sourceID = "article"
	}
	return &Publisher{
		store:    store,
		prefix:   opts.Prefix,
		style:    opts.Style,
		sourceID: sourceID,
		policy:   policy,
		logger:   logging.NewComponentLogger(opts.Logger, "publish"),
		now:      now,
	}
}

// Remote reports whether a remote store is configured.
func (p *Publisher) Remote() bool { return p.store != nil }

// Publish uploads asset under its file name. Failures degrade to a local
// reference.
func (p *Publisher) Publish(ctx context.Context, asset imaging.ImageAsset) Reference {
	logger := logging.WithContext(ctx, p.logger)
	local := Reference{URL: LocalURL(asset.LocalPath), Asset: asset}
	if p.store == nil {
		local.Reason = ErrNotConfigured.Error()
		return local
	}

	key := ObjectKey(p.prefix, p.now(), p.sourceID, filepath.Base(asset.LocalPath))
	obj := Object{Key: key, Path: asset.LocalPath, ContentType: contentType(asset)}
	remoteURL, tries, err := retry.Value(ctx, p.policy, "upload "+p.store.Name(), func(ctx context.Context) (string, error) {
		return p.store.Upload(ctx, obj)
	})
	if err != nil {
		if errors.Is(err, ErrNotConfigured) {
			local.Reason = ErrNotConfigured.Error()
			return local
		}
		logging.WarnWithContext(logger, "image upload failed; keeping local path",
			"upload_failed",
			logging.String("backend", p.store.Name()),
			logging.String("key", key),
			logging.Int("tries", tries),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check publish credentials and network access"),
			logging.String(logging.FieldImpact, "article references a local file"),
		)
		local.Reason = err.Error()
		return local
	}
	logger.Debug("image uploaded",
		logging.String("backend", p.store.Name()),
		logging.String("key", key),
		logging.Int("tries", tries),
	)
	return Reference{
		URL:    ApplyStyle(remoteURL, p.style),
		Remote: true,
		Key:    key,
		Asset:  asset,
	}
}

// ObjectKey builds <prefix>/<YYYYMM>/<DD>/<source-id>/<name>. Empty
// segments are skipped.
func ObjectKey(prefix string, at time.Time, sourceID, name string) string {
	segments := []string{
		strings.Trim(prefix, "/"),
		at.Format("200601"),
		at.Format("02"),
		strings.Trim(sourceID, "/"),
		strings.TrimLeft(name, "/"),
	}
	kept := segments[:0]
	for _, s := range segments {
		if s != "" {
			kept = append(kept, s)
		}
	}
	return path.Join(kept...)
}

// ApplyStyle appends an image-processing style to a remote URL. The style
// may be given as "name", "!name", "style/name" or
// "x-oss-process=style/name".
func ApplyStyle(rawURL, style string) string {
	style = strings.TrimSpace(style)
	style = strings.TrimPrefix(style, "!")
	style = strings.TrimPrefix(style, "x-oss-process=style/")
	style = strings.TrimPrefix(style, "style/")
	if style == "" {
		return rawURL
	}
	separator := "?"
	if strings.Contains(rawURL, "?") {
		separator = "&"
	}
	return fmt.Sprintf("%s%sx-oss-process=style/%s", rawURL, separator, style)
}

// LocalURL returns the file:// URL of a local path.
func LocalURL(localPath string) string {
	abs, err := filepath.Abs(localPath)
	if err != nil {
		abs = localPath
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String()
}

func contentType(asset imaging.ImageAsset) string {
	switch asset.Encoding {
	case imaging.EncodingJPEG:
		return "image/jpeg"
	case imaging.EncodingPNG:
		return "image/png"
	}
	if ct := mime.TypeByExtension(filepath.Ext(asset.LocalPath)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
