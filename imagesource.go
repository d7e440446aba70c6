package annotator

import (
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ImageInfo describes a decodable image.
type ImageInfo struct {
	Path   string
	Format string
	Width  int
	Height int
}

// ProbeImage reads only the image header from r. Supported formats are
// png, jpeg, gif, webp, bmp and tiff.
func ProbeImage(r io.Reader) (ImageInfo, error) {
	cfg, format, err := image.DecodeConfig(r)
	if err != nil {
		return ImageInfo{}, fmt.Errorf("probe image: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return ImageInfo{}, fmt.Errorf("probe image: invalid size %dx%d", cfg.Width, cfg.Height)
	}
	return ImageInfo{Format: format, Width: cfg.Width, Height: cfg.Height}, nil
}

// ImageLoader loads images from disk and reports the outcome through
// callbacks. Failures never panic; they reach OnError and the returned error.
type ImageLoader struct {
	OnLoad  func(ImageInfo)
	OnError func(path string, err error)
}

// Probe reads the header of the file at path.
func (l ImageLoader) Probe(ctx context.Context, path string) (ImageInfo, error) {
	info, err := l.open(ctx, path, func(f *os.File) (ImageInfo, error) {
		return ProbeImage(f)
	})
	return l.report(path, info, err)
}

// Load decodes the whole file at path.
func (l ImageLoader) Load(ctx context.Context, path string) (image.Image, ImageInfo, error) {
	var img image.Image
	info, err := l.open(ctx, path, func(f *os.File) (ImageInfo, error) {
		var format string
		var err error
		img, format, err = image.Decode(f)
		if err != nil {
			return ImageInfo{}, fmt.Errorf("decode image: %w", err)
		}
		b := img.Bounds()
		return ImageInfo{Format: format, Width: b.Dx(), Height: b.Dy()}, nil
	})
	info, err = l.report(path, info, err)
	if err != nil {
		return nil, ImageInfo{}, err
	}
	return img, info, nil
}

func (l ImageLoader) open(ctx context.Context, path string, read func(*os.File) (ImageInfo, error)) (ImageInfo, error) {
	if err := ctx.Err(); err != nil {
		return ImageInfo{}, err
	}
	f, err := os.Open(path)
	if err != nil {
		return ImageInfo{}, fmt.Errorf("open image: %w", err)
	}
	defer f.Close()

	info, err := read(f)
	if err != nil {
		return ImageInfo{}, fmt.Errorf("%s: %w", path, err)
	}
	if err := ctx.Err(); err != nil {
		return ImageInfo{}, err
	}
	info.Path = path
	return info, nil
}

func (l ImageLoader) report(path string, info ImageInfo, err error) (ImageInfo, error) {
	if err != nil {
		if l.OnError != nil {
			l.OnError(path, err)
		}
		return ImageInfo{}, err
	}
	if l.OnLoad != nil {
		l.OnLoad(info)
	}
	return info, nil
}
