package vision

import (
	"fmt"
	"image"
	"sync"

	"github.com/kbinani/screenshot"
)

// Capturer grabs a screen region, optionally cropped to a sub-bound found
// when the board was located.
type Capturer struct {
	region image.Rectangle
	sub    image.Rectangle
	mu     sync.Mutex
}

// NewCapturer creates a capturer for region. An empty region captures the
// primary display.
func NewCapturer(region image.Rectangle) *Capturer {
	return &Capturer{region: region}
}

// Capture takes a screenshot of the region and applies the sub-bound
func (c *Capturer) Capture() (image.Image, error) {
	c.mu.Lock()
	region, sub := c.region, c.sub
	c.mu.Unlock()

	if region.Empty() {
		if screenshot.NumActiveDisplays() == 0 {
			return nil, fmt.Errorf("no active display")
		}
		region = screenshot.GetDisplayBounds(0)
	}

	// Capture screen region
	img, err := screenshot.CaptureRect(region)
	if err != nil {
		return nil, fmt.Errorf("failed to capture screen: %w", err)
	}

	if sub.Empty() {
		return img, nil
	}
	return crop(img, sub), nil
}

// SetSubBound restricts later captures to r, relative to the region origin.
// An empty rectangle clears the restriction.
func (c *Capturer) SetSubBound(r image.Rectangle) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sub = r
}

// crop returns the part of img inside r, with r relative to img's origin
func crop(img *image.RGBA, r image.Rectangle) image.Image {
	r = r.Add(img.Bounds().Min).Intersect(img.Bounds())
	if r.Empty() {
		return img
	}
	return img.SubImage(r)
}
