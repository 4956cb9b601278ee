package ocr

import (
	"context"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	"github.com/otiai10/gosseract/v2"

	"captchaSolver/preprocess"
)

const alnumWhitelist = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// profile is one Tesseract recognition configuration tried by the enhanced
// engine.
type profile struct {
	name      string
	psm       gosseract.PageSegMode
	whitelist string
}

var enhancedProfiles = []profile{
	{"single-line-alnum", gosseract.PSM_SINGLE_LINE, alnumWhitelist},
	{"single-word-alnum", gosseract.PSM_SINGLE_WORD, alnumWhitelist},
	{"paragraph", gosseract.PSM_SINGLE_BLOCK, ""},
	{"sparse", gosseract.PSM_SPARSE_TEXT, ""},
}

// EnhancedEngine walks every preprocessing variant against every recognition
// profile and returns the first sanitized hit. First-success rather than
// best-of keeps worst-case latency bounded.
type EnhancedEngine struct {
	clientFactory func() *gosseract.Client
}

func NewEnhancedEngine() *EnhancedEngine {
	return &EnhancedEngine{clientFactory: gosseract.NewClient}
}

func (e *EnhancedEngine) Name() string { return "enhanced" }

func (e *EnhancedEngine) Recognize(ctx context.Context, img image.Image) (string, error) {
	variants := preprocess.Variants(img)
	if len(variants) == 0 {
		// Every transform failed; fall back to the raw grayscale.
		variants = []preprocess.Variant{{Name: "grayscale", Image: preprocess.Grayscale(img)}}
	}

	for _, variant := range variants {
		data, err := encodePNG(variant.Image)
		if err != nil {
			continue
		}
		for _, p := range enhancedProfiles {
			if err := ctx.Err(); err != nil {
				return "", err
			}
			text, err := e.attempt(data, p)
			if err != nil {
				continue
			}
			if candidate := Sanitize(text); candidate != "" {
				return candidate, nil
			}
		}
	}
	return "", nil
}

func (e *EnhancedEngine) attempt(data []byte, p profile) (string, error) {
	client := e.clientFactory()
	defer client.Close()

	if err := client.SetImageFromBytes(data); err != nil {
		return "", fmt.Errorf("set image: %w", err)
	}
	if err := client.SetPageSegMode(p.psm); err != nil {
		return "", fmt.Errorf("set psm %s: %w", p.name, err)
	}
	if p.whitelist != "" {
		if err := client.SetWhitelist(p.whitelist); err != nil {
			return "", fmt.Errorf("set whitelist: %w", err)
		}
	}
	return client.Text()
}

// BasicEngine makes one fixed attempt over a sharpened, contrast-boosted
// grayscale rendition with a single-line configuration. Cheapest last resort.
type BasicEngine struct {
	clientFactory func() *gosseract.Client
}

func NewBasicEngine() *BasicEngine {
	return &BasicEngine{clientFactory: gosseract.NewClient}
}

func (e *BasicEngine) Name() string { return "basic" }

func (e *BasicEngine) Recognize(ctx context.Context, img image.Image) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	prepared := imaging.AdjustContrast(imaging.Sharpen(preprocess.Grayscale(img), 1.0), 20)
	data, err := encodePNG(prepared)
	if err != nil {
		return "", err
	}

	client := e.clientFactory()
	defer client.Close()

	if err := client.SetImageFromBytes(data); err != nil {
		return "", fmt.Errorf("set image: %w", err)
	}
	if err := client.SetPageSegMode(gosseract.PSM_SINGLE_LINE); err != nil {
		return "", fmt.Errorf("set psm: %w", err)
	}
	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("recognize: %w", err)
	}
	return Sanitize(text), nil
}
