// Package ocr provides the solver's recognition engines. Every engine is a
// stateless capability: one image in, a sanitized candidate string out, with
// "" meaning no usable result.
package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	"github.com/otiai10/gosseract/v2"
	"go.uber.org/zap"

	"captchaSolver/config"
)

type Engine interface {
	Name() string
	// Recognize returns a sanitized candidate or "". An error means the
	// engine itself faulted, not that the image was unreadable.
	Recognize(ctx context.Context, img image.Image) (string, error)
}

// BuildEngines constructs the configured engines in cascade priority order.
// The returned slice is immutable for the life of the process; availability
// is decided here, once, not through a mutable global registry.
func BuildEngines(cfg config.EngineConfig, logger *zap.Logger) []Engine {
	if err := Probe(); err != nil {
		logger.Error("Tesseract runtime unavailable, no OCR engines enabled", zap.Error(err))
		return nil
	}

	var engines []Engine
	if cfg.Neural {
		engines = append(engines, NewNeuralEngine())
	}
	if cfg.Enhanced {
		engines = append(engines, NewEnhancedEngine())
	}
	if cfg.Basic {
		engines = append(engines, NewBasicEngine())
	}

	names := make([]string, 0, len(engines))
	for _, e := range engines {
		names = append(names, e.Name())
	}
	logger.Info("OCR engines initialized", zap.Strings("engines", names))
	return engines
}

// Probe verifies the recognizer backend can run at all by pushing a tiny
// blank image through it.
func Probe() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("tesseract probe panic: %v", r)
		}
	}()

	client := gosseract.NewClient()
	defer client.Close()

	data, err := encodePNG(image.NewGray(image.Rect(0, 0, 8, 8)))
	if err != nil {
		return err
	}
	if err := client.SetImageFromBytes(data); err != nil {
		return fmt.Errorf("tesseract probe: %w", err)
	}
	if _, err := client.Text(); err != nil {
		return fmt.Errorf("tesseract probe: %w", err)
	}
	return nil
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}
	return buf.Bytes(), nil
}
