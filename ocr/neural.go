package ocr

import (
	"context"
	"fmt"
	"image"
	"strings"

	"github.com/otiai10/gosseract/v2"
)

// wordConfidenceFloor filters recognizer noise: only tokens the LSTM model
// scores above this are kept.
const wordConfidenceFloor = 0.6

// NeuralEngine runs the LSTM recognizer over the raw image and concatenates
// word tokens whose confidence clears the floor. Most accurate and most
// expensive, so it sits first in the cascade.
type NeuralEngine struct {
	clientFactory func() *gosseract.Client
}

func NewNeuralEngine() *NeuralEngine {
	return &NeuralEngine{clientFactory: gosseract.NewClient}
}

func (e *NeuralEngine) Name() string { return "neural" }

func (e *NeuralEngine) Recognize(ctx context.Context, img image.Image) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	data, err := encodePNG(img)
	if err != nil {
		return "", err
	}

	client := e.clientFactory()
	defer client.Close()

	if err := client.SetImageFromBytes(data); err != nil {
		return "", fmt.Errorf("set image: %w", err)
	}
	if _, err := client.Text(); err != nil {
		return "", fmt.Errorf("recognize: %w", err)
	}

	boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return "", fmt.Errorf("word boxes: %w", err)
	}

	var b strings.Builder
	for _, box := range boxes {
		if box.Confidence/100.0 > wordConfidenceFloor {
			b.WriteString(box.Word)
		}
	}
	return Sanitize(b.String()), nil
}
