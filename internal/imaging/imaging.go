package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"golang.org/x/image/draw"
	"golang.org/x/image/webp"
)

// MaxUploadSize is the upload cap in bytes.
const MaxUploadSize = 5 << 20 // 5MB

// MaxDimension is the maximum width or height for stored images.
const MaxDimension = 1600

// JPEGQuality is the compression quality for JPEG output.
const JPEGQuality = 85

// ErrTooLarge is returned when the upload exceeds MaxUploadSize.
var ErrTooLarge = errors.New("image exceeds maximum size")

// ErrUnsupportedFormat is returned for anything that is not PNG, JPEG or WebP.
var ErrUnsupportedFormat = errors.New("unsupported image format")

var allowedExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".webp": true,
}

// AllowedExtension reports whether the filename carries an accepted
// image extension.
func AllowedExtension(filename string) bool {
	return allowedExtensions[strings.ToLower(filepath.Ext(filename))]
}

// Result contains the processed image data ready for storage.
type Result struct {
	Data []byte
	MIME string
	Ext  string
}

// Process reads image data, validates size and format by sniffing bytes,
// downscales oversized dimensions, and re-encodes formats the storage
// frontend cannot serve directly (WebP becomes JPEG). JPEG and PNG inputs
// within bounds pass through untouched.
func Process(r io.Reader) (*Result, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxUploadSize+1))
	if err != nil {
		return nil, fmt.Errorf("reading image data: %w", err)
	}
	if len(data) > MaxUploadSize {
		return nil, ErrTooLarge
	}

	// Sniff actual MIME type from bytes, not the client-supplied filename.
	detected := http.DetectContentType(data)

	var img image.Image
	switch detected {
	case "image/jpeg", "image/png":
		img, _, err = image.Decode(bytes.NewReader(data))
	case "image/webp":
		img, err = webp.Decode(bytes.NewReader(data))
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, detected)
	}
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}

	scaled, resized := downscale(img, MaxDimension)

	// Pass through originals that need no work.
	if !resized {
		switch detected {
		case "image/jpeg":
			return &Result{Data: data, MIME: "image/jpeg", Ext: ".jpg"}, nil
		case "image/png":
			return &Result{Data: data, MIME: "image/png", Ext: ".png"}, nil
		}
	}

	var buf bytes.Buffer
	if detected == "image/png" {
		if err := png.Encode(&buf, scaled); err != nil {
			return nil, fmt.Errorf("encoding PNG: %w", err)
		}
		return &Result{Data: buf.Bytes(), MIME: "image/png", Ext: ".png"}, nil
	}

	if err := jpeg.Encode(&buf, scaled, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return nil, fmt.Errorf("encoding JPEG: %w", err)
	}
	return &Result{Data: buf.Bytes(), MIME: "image/jpeg", Ext: ".jpg"}, nil
}

// downscale resizes the image so neither dimension exceeds maxDim, keeping
// the aspect ratio. The second return is false when no resize was needed.
func downscale(img image.Image, maxDim int) (image.Image, bool) {
	bounds := img.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()

	if w <= maxDim && h <= maxDim {
		return img, false
	}

	newW, newH := w, h
	if w > h {
		newW = maxDim
		newH = int(float64(h) * float64(maxDim) / float64(w))
	} else {
		newH = maxDim
		newW = int(float64(w) * float64(maxDim) / float64(h))
	}
	if newW < 1 {
		newW = 1
	}
	if newH < 1 {
		newH = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst, true
}
