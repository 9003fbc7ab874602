package assemble

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"vidpress/internal/acquire"
	"vidpress/internal/anchor"
	"vidpress/internal/imagegen"
	"vidpress/internal/imaging"
	"vidpress/internal/logging"
	"vidpress/internal/manifest"
	"vidpress/internal/plan"
	"vidpress/internal/publish"
	"vidpress/internal/services"
)

// ImageSource acquires the raw image for a section.
type ImageSource interface {
	Acquire(ctx context.Context, req acquire.Request) (acquire.Result, error)
}

// AssetNormalizer enforces the platform image constraints and writes the asset.
type AssetNormalizer interface {
	Normalize(payload []byte, destBase string) (imaging.ImageAsset, error)
}

// AssetPublisher makes an asset reachable. It never fails.
type AssetPublisher interface {
	Publish(ctx context.Context, asset imaging.ImageAsset) publish.Reference
}

// Options wires an Assembler.
type Options struct {
	Images      ImageSource
	Normalizer  AssetNormalizer
	Publisher   AssetPublisher
	Parallelism int
	// AssetDir receives one normalized file per section.
	AssetDir string
	Video    string
	Render   plan.RenderOptions
	Logger   *slog.Logger
}

// Assembler builds articles for one run.
type Assembler struct {
	images      ImageSource
	normalizer  AssetNormalizer
	publisher   AssetPublisher
	parallelism int
	assetDir    string
	video       string
	render      plan.RenderOptions
	logger      *slog.Logger
}

// SectionOutcome is the final state of one section and the path it took.
type SectionOutcome struct {
	Index   int     `json:"index"`
	Heading string  `json:"heading,omitempty"`
	State   State   `json:"state"`
	History []State `json:"history"`
}

// AssembledArticle is the product of a run.
type AssembledArticle struct {
	Markdown string
	Entries  []manifest.Entry
	Sections []SectionOutcome
	// Cancelled is set when the context ended before every section finished.
	// Interrupted sections keep their text and have no manifest entry.
	Cancelled bool
}

// New validates opts.
func New(opts Options) (*Assembler, error) {
	if opts.Images == nil || opts.Normalizer == nil || opts.Publisher == nil {
		return nil, errors.New("assemble: image source, normalizer and publisher are required")
	}
	if strings.TrimSpace(opts.AssetDir) == "" {
		return nil, errors.New("assemble: asset directory required")
	}
	parallelism := opts.Parallelism
	if parallelism <= 0 {
		parallelism = 1
	}
	return &Assembler{
		images:      opts.Images,
		normalizer:  opts.Normalizer,
		publisher:   opts.Publisher,
		parallelism: parallelism,
		assetDir:    opts.AssetDir,
		video:       opts.Video,
		render:      opts.Render,
		logger:      logging.NewComponentLogger(opts.Logger, "assemble"),
	}, nil
}

// sectionWork is the mutable record of one section during a run. Pass 2
// workers each own distinct records.
type sectionWork struct {
	section     plan.Section
	track       *tracker
	match       anchor.Match
	result      acquire.Result
	attempts    []acquire.Attempt
	asset       imaging.ImageAsset
	ref         publish.Reference
	detail      string
	interrupted bool
	fault       error
}

// Assemble renders p, illustrates its needed sections and returns the
// article. Entries are appended to w in document order when w is non-nil.
// Only programming errors and manifest ordering errors are returned; a
// cancelled context yields a partial article with Cancelled set.
func (a *Assembler) Assemble(ctx context.Context, p plan.ArticlePlan, w *manifest.Writer) (AssembledArticle, error) {
	rendered := plan.Render(p, a.render)
	work := make([]*sectionWork, len(p.Sections))
	for i, s := range p.Sections {
		work[i] = &sectionWork{section: s, track: newTracker(s.Index)}
	}

	if err := a.resolveAnchors(ctx, rendered, work); err != nil {
		return AssembledArticle{}, err
	}
	a.produceImages(ctx, p.Title, work)
	for _, item := range work {
		if item.fault != nil {
			return AssembledArticle{}, item.fault
		}
	}

	markdown, err := insertImages(rendered.Text, work)
	if err != nil {
		return AssembledArticle{}, err
	}

	out := AssembledArticle{
		Markdown: markdown,
		Sections: make([]SectionOutcome, 0, len(work)),
	}
	for _, item := range work {
		// A cancel that lands after every section finished loses nothing.
		out.Cancelled = out.Cancelled || item.interrupted
		out.Sections = append(out.Sections, SectionOutcome{
			Index:   item.section.Index,
			Heading: item.section.Heading,
			State:   item.track.state,
			History: append([]State(nil), item.track.history...),
		})
		entry, ok := a.entry(item)
		if !ok {
			continue
		}
		out.Entries = append(out.Entries, entry)
		if w != nil {
			if err := w.Append(entry); err != nil {
				return AssembledArticle{}, err
			}
		}
	}
	if out.Cancelled && w != nil {
		w.MarkCancelled()
	}

	a.logger.Info("article assembled",
		logging.Int("sections", len(work)),
		logging.Int("images_needed", p.NeededCount()),
		logging.Int("manifest_entries", len(out.Entries)),
		logging.Bool("cancelled", out.Cancelled),
	)
	return out, nil
}

// resolveAnchors is pass 1. Each anchor is searched from its section's
// body to the end of the article, so identical anchors in later sections
// always land after earlier ones. Headings never hold a match.
func (a *Assembler) resolveAnchors(ctx context.Context, rendered plan.Rendered, work []*sectionWork) error {
	resolver := anchor.NewResolver(rendered.Text)
	for _, h := range rendered.Headings {
		resolver.Reserve(h[0], h[1])
	}
	for i, item := range work {
		if !item.section.NeedsImage() {
			if err := item.track.advance(StateNoImage); err != nil {
				return err
			}
			continue
		}
		start := 0
		if i < len(rendered.Sections) {
			start = rendered.Sections[i].BodyStart
		}
		match, err := resolver.ResolveWithin(item.section.Image.Anchor, start, len(rendered.Text))
		if err != nil {
			if err := item.track.advance(StateAnchorUnresolved); err != nil {
				return err
			}
			if err := item.track.advance(StateSkippedNoMatch); err != nil {
				return err
			}
			item.detail = err.Error()
			logger := logging.WithContext(services.WithSection(ctx, item.section.Index), a.logger)
			logging.WarnWithContext(logger, "anchor not found; section left without image",
				"anchor_unresolved",
				logging.String("anchor", item.section.Image.Anchor),
				logging.String(logging.FieldErrorHint, "anchor must quote the section text verbatim"),
				logging.String(logging.FieldImpact, "section text kept without image"),
			)
			continue
		}
		item.match = match
		if err := item.track.advance(StateAnchorResolved); err != nil {
			return err
		}
	}
	return nil
}

// produceImages is pass 2.
func (a *Assembler) produceImages(ctx context.Context, title string, work []*sectionWork) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.parallelism)
	for _, item := range work {
		if item.track.state != StateAnchorResolved {
			continue
		}
		if ctx.Err() != nil {
			item.interrupted = true
			continue
		}
		g.Go(func() error {
			a.processSection(gctx, title, item)
			return nil
		})
	}
	_ = g.Wait()
}

func (a *Assembler) processSection(ctx context.Context, title string, item *sectionWork) {
	if ctx.Err() != nil {
		item.interrupted = true
		return
	}
	s := item.section
	ctx = services.WithSection(ctx, s.Index)
	logger := logging.WithContext(services.WithStage(ctx, "acquire"), a.logger)

	result, err := a.images.Acquire(ctx, acquire.Request{
		Section:   s.Index,
		Video:     a.video,
		Timestamp: s.Image.Timestamp,
		Prompt: imagegen.Prompt{
			Text:    s.Image.Prompt(s.Heading),
			Title:   title,
			Heading: s.Heading,
			Body:    s.Body,
			Seed:    s.Index*42 + 7,
		},
	})
	item.attempts = result.Attempts
	if err != nil {
		var acqErr *acquire.AcquisitionError
		if errors.As(err, &acqErr) {
			item.attempts = acqErr.Attempts
		} else if ctx.Err() != nil {
			item.interrupted = true
			return
		}
		a.fail(logger, item, err)
		return
	}
	item.result = result
	if item.fault = item.track.advance(StateAcquired); item.fault != nil {
		return
	}

	base := filepath.Join(a.assetDir, fmt.Sprintf("section-%02d", s.Index))
	asset, err := a.normalizer.Normalize(result.Payload, base)
	if err != nil {
		a.fail(logger, item, err)
		return
	}
	item.asset = asset
	if item.fault = item.track.advance(StateNormalized); item.fault != nil {
		return
	}
	if asset.BestEffort {
		logging.WarnWithContext(logger, "image exceeds byte ceiling at quality floor",
			"normalize_best_effort",
			logging.Int64("byte_size", asset.ByteSize),
			logging.Int("quality", asset.Quality),
			logging.String(logging.FieldErrorHint, "raise image.max_bytes or lower image.max_width"),
			logging.String(logging.FieldImpact, "platform may reject or recompress the image"),
		)
	}

	if ctx.Err() != nil {
		item.interrupted = true
		return
	}
	item.ref = a.publisher.Publish(services.WithStage(ctx, "publish"), asset)
	next := StateLocalOnly
	if item.ref.Remote {
		next = StatePublished
	}
	item.fault = item.track.advance(next)
	logger.Info("section image ready",
		logging.String("strategy_used", string(result.StrategyUsed)),
		logging.String("state", string(next)),
		logging.Int64("byte_size", asset.ByteSize),
	)
}

func (a *Assembler) fail(logger *slog.Logger, item *sectionWork, err error) {
	item.detail = err.Error()
	if item.fault = item.track.advance(StateFailed); item.fault != nil {
		return
	}
	logging.WarnWithContext(logger, "section image failed",
		"image_failed",
		logging.Error(err),
		logging.Int("attempts", len(item.attempts)),
		logging.String(logging.FieldImpact, "section text kept without image"),
	)
}

func (a *Assembler) entry(item *sectionWork) (manifest.Entry, bool) {
	s := item.section
	if !s.NeedsImage() || item.interrupted {
		return manifest.Entry{}, false
	}
	img := s.Image
	entry := manifest.Entry{
		SectionIndex: s.Index,
		Heading:      s.Heading,
		Anchor:       img.Anchor,
		Timestamp:    img.Timestamp.Raw,
		Caption:      img.Caption,
		AltText:      img.Alt(s.Heading),
		Error:        item.detail,
		Attempts:     item.attempts,
		StrategyUsed: string(item.result.StrategyUsed),
	}
	if img.Timestamp.Valid {
		seconds := img.Timestamp.Seconds
		entry.Seconds = &seconds
	}

	switch item.track.state {
	case StateSkippedNoMatch:
		entry.Status = manifest.StatusSkippedNoMatch
	case StateFailed:
		entry.Status = manifest.StatusFailed
	case StateInserted:
		entry.Status = manifest.StatusLocalOnly
		if item.ref.Remote {
			entry.Status = manifest.StatusPublished
		}
		entry.Reference = &manifest.Reference{
			URL:       item.ref.URL,
			Remote:    item.ref.Remote,
			Key:       item.ref.Key,
			LocalPath: item.asset.LocalPath,
			Reason:    item.ref.Reason,
		}
		entry.BestEffort = item.asset.BestEffort
		entry.ByteSize = item.asset.ByteSize
		entry.Width = item.asset.Width
		entry.Height = item.asset.Height
	default:
		return manifest.Entry{}, false
	}
	return entry, true
}
