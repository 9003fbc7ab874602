package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif" // register decoder
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // register decoder

	"vidpress/internal/config"
	"vidpress/internal/fileutil"
	"vidpress/internal/services"
)

const (
	EncodingJPEG = "jpeg"
	EncodingPNG  = "png"
)

// ErrUndecodable marks payloads that are not a supported image.
var ErrUndecodable = errors.New("image payload cannot be decoded")

// Options are the publishing constraints.
type Options struct {
	MaxWidth     int
	MaxBytes     int64
	Encoding     string
	QualityStart int
	QualityStep  int
	QualityFloor int
}

// OptionsFromConfig maps the [image] config section.
func OptionsFromConfig(cfg config.Image) Options {
	return Options{
		MaxWidth:     cfg.MaxWidth,
		MaxBytes:     cfg.MaxBytes,
		Encoding:     cfg.Encoding,
		QualityStart: cfg.QualityStart,
		QualityStep:  cfg.QualityStep,
		QualityFloor: cfg.QualityFloor,
	}
}

// ImageAsset is a normalized image on local disk.
type ImageAsset struct {
	LocalPath string `json:"local_path"`
	Encoding  string `json:"encoding"`
	ByteSize  int64  `json:"byte_size"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	// Quality is the JPEG quality used, or 0 when the input passed through.
	Quality    int  `json:"quality,omitempty"`
	BestEffort bool `json:"best_effort,omitempty"`
}

// Encoded is the in-memory result of Encode.
type Encoded struct {
	Data       []byte
	Encoding   string
	Width      int
	Height     int
	Quality    int
	BestEffort bool
}

// Normalizer applies Options to image payloads. It holds no mutable state
// and may be shared between goroutines.
type Normalizer struct {
	opts Options
}

// NewNormalizer validates opts.
func NewNormalizer(opts Options) (*Normalizer, error) {
	switch opts.Encoding {
	case EncodingJPEG, EncodingPNG:
	case "":
		opts.Encoding = EncodingJPEG
	default:
		return nil, fmt.Errorf("imaging: unsupported encoding %q", opts.Encoding)
	}
	if opts.MaxWidth <= 0 || opts.MaxBytes <= 0 {
		return nil, errors.New("imaging: max width and max bytes must be positive")
	}
	if opts.QualityFloor < 1 || opts.QualityStart < opts.QualityFloor || opts.QualityStart > 100 || opts.QualityStep <= 0 {
		return nil, fmt.Errorf("imaging: invalid quality ladder %d/%d/%d", opts.QualityStart, opts.QualityStep, opts.QualityFloor)
	}
	return &Normalizer{opts: opts}, nil
}

// Extension returns the file extension for the target encoding.
func (n *Normalizer) Extension() string {
	if n.opts.Encoding == EncodingPNG {
		return ".png"
	}
	return ".jpg"
}

// Normalize encodes payload and writes it to destBase plus the encoding's
// extension. The file is created exclusively.
func (n *Normalizer) Normalize(payload []byte, destBase string) (ImageAsset, error) {
	encoded, err := n.Encode(payload)
	if err != nil {
		return ImageAsset{}, err
	}
	path := destBase + n.Extension()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return ImageAsset{}, fmt.Errorf("imaging: ensure asset dir: %w", err)
	}
	if err := fileutil.WriteOnce(path, encoded.Data, 0o644); err != nil {
		return ImageAsset{}, fmt.Errorf("imaging: write asset: %w", err)
	}
	return ImageAsset{
		LocalPath:  path,
		Encoding:   encoded.Encoding,
		ByteSize:   int64(len(encoded.Data)),
		Width:      encoded.Width,
		Height:     encoded.Height,
		Quality:    encoded.Quality,
		BestEffort: encoded.BestEffort,
	}, nil
}

// Encode produces the normalized bytes without touching disk.
func (n *Normalizer) Encode(payload []byte) (Encoded, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(payload))
	if err != nil {
		return Encoded{}, services.Wrap(services.ErrValidation, "normalize", "decode config", "", errors.Join(ErrUndecodable, err))
	}

	if format == n.opts.Encoding && cfg.Width <= n.opts.MaxWidth && int64(len(payload)) <= n.opts.MaxBytes {
		return Encoded{Data: payload, Encoding: format, Width: cfg.Width, Height: cfg.Height}, nil
	}

	src, _, err := image.Decode(bytes.NewReader(payload))
	if err != nil {
		return Encoded{}, services.Wrap(services.ErrValidation, "normalize", "decode", "", errors.Join(ErrUndecodable, err))
	}
	img := n.prepare(src)
	bounds := img.Bounds()

	if n.opts.Encoding == EncodingPNG {
		var buf bytes.Buffer
		enc := png.Encoder{CompressionLevel: png.BestCompression}
		if err := enc.Encode(&buf, img); err != nil {
			return Encoded{}, fmt.Errorf("imaging: encode png: %w", err)
		}
		return Encoded{
			Data:       buf.Bytes(),
			Encoding:   EncodingPNG,
			Width:      bounds.Dx(),
			Height:     bounds.Dy(),
			BestEffort: int64(buf.Len()) > n.opts.MaxBytes,
		}, nil
	}

	var data []byte
	quality := 0
	for _, q := range n.ladder() {
		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: q}); err != nil {
			return Encoded{}, fmt.Errorf("imaging: encode jpeg q%d: %w", q, err)
		}
		data, quality = buf.Bytes(), q
		if int64(len(data)) <= n.opts.MaxBytes {
			break
		}
	}
	return Encoded{
		Data:       data,
		Encoding:   EncodingJPEG,
		Width:      bounds.Dx(),
		Height:     bounds.Dy(),
		Quality:    quality,
		BestEffort: int64(len(data)) > n.opts.MaxBytes,
	}, nil
}

// ladder lists qualities from start down to the floor, always ending on it.
func (n *Normalizer) ladder() []int {
	var out []int
	for q := n.opts.QualityStart; q > n.opts.QualityFloor; q -= n.opts.QualityStep {
		out = append(out, q)
	}
	return append(out, n.opts.QualityFloor)
}

// prepare downscales to the width bound and, for JPEG, flattens
// transparency onto white.
func (n *Normalizer) prepare(src image.Image) image.Image {
	b := src.Bounds()
	width, height := b.Dx(), b.Dy()
	if width > n.opts.MaxWidth {
		height = max(1, int(int64(height)*int64(n.opts.MaxWidth)/int64(width)))
		width = n.opts.MaxWidth
	}
	resize := width != b.Dx()
	if !resize && n.opts.Encoding == EncodingPNG {
		return src
	}

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	if n.opts.Encoding == EncodingJPEG {
		draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	}
	if resize {
		draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)
	} else {
		draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Over)
	}
	return dst
}

// Probe reports the format and dimensions of payload.
func Probe(payload []byte) (string, int, int, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(payload))
	if err != nil {
		return "", 0, 0, errors.Join(ErrUndecodable, err)
	}
	return format, cfg.Width, cfg.Height, nil
}
