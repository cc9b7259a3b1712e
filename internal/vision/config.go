package vision

import (
	"fmt"
	"image"
)

// Config holds detector and capture settings
type Config struct {
	// Screen capture settings
	CaptureRegion CaptureRegion `json:"capture_region"`

	// Detection settings
	ModelPath  string  `json:"model_path"`
	InputSize  int     `json:"input_size"` // Model input edge in pixels
	Confidence float32 `json:"confidence"` // Minimum objectness * class score
	IoU        float32 `json:"iou"`        // Overlap above which boxes are suppressed
}

// CaptureRegion defines the screen area to capture. A zero region means the
// whole primary display.
type CaptureRegion struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// ToRectangle converts CaptureRegion to image.Rectangle
func (cr CaptureRegion) ToRectangle() image.Rectangle {
	return image.Rect(cr.X, cr.Y, cr.X+cr.Width, cr.Y+cr.Height)
}

// DefaultConfig returns default vision configuration
func DefaultConfig() *Config {
	return &Config{
		ModelPath:  "models/large.onnx",
		InputSize:  ModelInputSize,
		Confidence: 0.7,
		IoU:        0.5,
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.CaptureRegion.Width < 0 || c.CaptureRegion.Height < 0 {
		return fmt.Errorf("invalid capture region dimensions")
	}

	if c.ModelPath == "" {
		return fmt.Errorf("model path is required")
	}

	if c.InputSize < 32 || c.InputSize%32 != 0 {
		return fmt.Errorf("invalid input size: %d (must be a positive multiple of 32)", c.InputSize)
	}

	if c.Confidence <= 0 || c.Confidence > 1 {
		return fmt.Errorf("invalid confidence: %f (must be in (0, 1])", c.Confidence)
	}

	if c.IoU <= 0 || c.IoU > 1 {
		return fmt.Errorf("invalid IoU threshold: %f (must be in (0, 1])", c.IoU)
	}

	return nil
}
