// Package solver runs the ordered OCR cascade: most accurate engine first,
// cheaper fallbacks after, first acceptable result wins.
package solver

import (
	"context"
	"fmt"
	"image"

	"go.uber.org/zap"

	"captchaSolver/metrics"
	"captchaSolver/ocr"
)

type Cascade struct {
	engines []ocr.Engine
	logger  *zap.Logger
}

// NewCascade takes the engines in strict priority order. The slice is fixed
// at startup; the cascade itself holds no other state.
func NewCascade(engines []ocr.Engine, logger *zap.Logger) *Cascade {
	return &Cascade{engines: engines, logger: logger}
}

// Engines returns the enabled engine names in priority order.
func (c *Cascade) Engines() []string {
	names := make([]string, 0, len(c.engines))
	for _, e := range c.engines {
		names = append(names, e.Name())
	}
	return names
}

// Solve tries each engine in order and stops at the first non-empty sanitized
// result. An engine fault, error or panic alike, is recovered and treated as
// no result from that engine; it never aborts the rest of the cascade. The
// second return is false only when every engine is exhausted.
func (c *Cascade) Solve(ctx context.Context, img image.Image) (string, bool) {
	for _, engine := range c.engines {
		text, err := c.tryEngine(ctx, engine, img)
		if err != nil {
			metrics.EngineResults.WithLabelValues(engine.Name(), "fault").Inc()
			c.logger.Warn("Engine fault",
				zap.String("engine", engine.Name()),
				zap.Error(err),
			)
			continue
		}
		if text == "" {
			metrics.EngineResults.WithLabelValues(engine.Name(), "miss").Inc()
			continue
		}

		metrics.EngineResults.WithLabelValues(engine.Name(), "hit").Inc()
		c.logger.Info("Engine solved captcha",
			zap.String("engine", engine.Name()),
			zap.Int("length", len(text)),
		)
		return text, true
	}
	return "", false
}

func (c *Cascade) tryEngine(ctx context.Context, engine ocr.Engine, img image.Image) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = panicError{value: r}
		}
	}()
	return engine.Recognize(ctx, img)
}

type panicError struct {
	value any
}

func (e panicError) Error() string {
	return fmt.Sprintf("engine panic: %v", e.value)
}
