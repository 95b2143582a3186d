package ioutils

import (
	"bytes"
	"context"
	"image"
	_ "image/gif" // GIF decoder registration
	"image/jpeg"
	_ "image/png" // PNG decoder registration
	"net/http"

	"golang.org/x/image/draw"
)

// CoverArtOptions controls how a cover image is prepared for embedding.
type CoverArtOptions struct {
	// Resize scales the image down to fit within MaxSize x MaxSize.
	Resize  bool
	MaxSize int

	// ConvertToJPEG re-encodes the image as JPEG.
	ConvertToJPEG bool
}

// ImageService provides image processing operations for cover art.
//
// ImageService is used to:
//   - Resize images to fit maximum dimensions before embedding
//   - Convert images to JPEG format (for better compatibility)
//
// Example usage:
//
//	svc := NewImageService()
//	data, _ := os.ReadFile("cover.png")
//	art, mime, err := svc.Prepare(ctx, data, CoverArtOptions{Resize: true, MaxSize: 1000, ConvertToJPEG: true})
type ImageService struct{}

// NewImageService creates a new ImageService.
func NewImageService() *ImageService {
	return &ImageService{}
}

// Prepare applies opts to data and returns the resulting bytes with their
// MIME type.
func (s *ImageService) Prepare(ctx context.Context, data []byte, opts CoverArtOptions) ([]byte, string, error) {
	var err error
	switch {
	case opts.Resize && opts.MaxSize > 0:
		// ResizeImage always produces JPEG.
		data, err = s.ResizeImage(ctx, data, opts.MaxSize, opts.MaxSize)
	case opts.ConvertToJPEG:
		data, err = s.ConvertToJPEG(ctx, data)
	}
	if err != nil {
		return nil, "", err
	}
	return data, DetectImageType(data), nil
}

// DetectImageType returns the MIME type of an encoded image.
func DetectImageType(data []byte) string {
	return http.DetectContentType(data)
}

// ResizeImage resizes an image to fit within the specified maximum dimensions.
//
// The aspect ratio is preserved and smaller images are not enlarged. The
// result is always JPEG encoded. The Catmull-Rom kernel is used for scaling.
//
// Example:
//
//	// A 1500x1000 image becomes 1000x667
//	resized, err := svc.ResizeImage(ctx, imageData, 1000, 1000)
func (s *ImageService) ResizeImage(ctx context.Context, data []byte, maxWidth, maxHeight int) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	if width > maxWidth || height > maxHeight {
		ratio := float64(width) / float64(height)
		if float64(maxWidth)/float64(maxHeight) > ratio {
			// Height is the limiting factor
			width = int(float64(maxHeight) * ratio)
			height = maxHeight
		} else {
			height = int(float64(maxWidth) / ratio)
			width = maxWidth
		}
	}

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: 90}); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// ConvertToJPEG converts an image to JPEG format with 90% quality.
//
// If the input is already JPEG it is re-encoded anyway.
func (s *ImageService) ConvertToJPEG(ctx context.Context, data []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}
