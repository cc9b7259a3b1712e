package vision

import (
	"errors"
	"fmt"
	"image"
	"image/draw"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// ErrEndOfVideo is returned once a replayed recording runs out of frames
var ErrEndOfVideo = errors.New("vision: end of video")

// VideoSource replays a screen recording in place of live capture. It
// implements Source.
type VideoSource struct {
	video    *gocv.VideoCapture
	fps      float64
	realtime bool

	mu      sync.Mutex
	sub     image.Rectangle
	frame   int
	started time.Time
}

// NewVideoSource opens a video file for playback. With realtime set, each
// capture returns the frame matching the wall clock time since the first
// capture; otherwise every capture advances one frame.
func NewVideoSource(videoPath string, realtime bool) (*VideoSource, error) {
	video, err := gocv.VideoCaptureFile(videoPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open video file: %w", err)
	}

	if !video.IsOpened() {
		video.Close()
		return nil, fmt.Errorf("video file not opened")
	}

	return &VideoSource{
		video:    video,
		fps:      video.Get(gocv.VideoCaptureFPS),
		realtime: realtime,
	}, nil
}

// Capture implements Source
func (vs *VideoSource) Capture() (image.Image, error) {
	vs.mu.Lock()
	defer vs.mu.Unlock()

	if vs.video == nil {
		return nil, fmt.Errorf("video source closed")
	}

	if vs.realtime {
		now := time.Now()
		if vs.started.IsZero() {
			vs.started = now
		}
		if skip := framesToSkip(now.Sub(vs.started), vs.fps, vs.frame); skip > 0 {
			vs.video.Grab(skip)
			vs.frame += skip
		}
	}

	mat := gocv.NewMat()
	defer mat.Close()
	if !vs.video.Read(&mat) || mat.Empty() {
		return nil, ErrEndOfVideo
	}
	vs.frame++

	img, err := mat.ToImage()
	if err != nil {
		return nil, fmt.Errorf("failed to convert frame: %w", err)
	}
	rgba := toRGBA(img)
	if vs.sub.Empty() {
		return rgba, nil
	}
	return crop(rgba, vs.sub), nil
}

// SetSubBound implements Source
func (vs *VideoSource) SetSubBound(r image.Rectangle) {
	vs.mu.Lock()
	defer vs.mu.Unlock()
	vs.sub = r
}

// Frame returns how many frames have been consumed
func (vs *VideoSource) Frame() int {
	vs.mu.Lock()
	defer vs.mu.Unlock()
	return vs.frame
}

// Close releases video resources
func (vs *VideoSource) Close() error {
	vs.mu.Lock()
	defer vs.mu.Unlock()

	if vs.video != nil {
		err := vs.video.Close()
		vs.video = nil
		return err
	}
	return nil
}

// framesToSkip is how many frames to drop so that the next read lands on
// the frame shown elapsed after playback started
func framesToSkip(elapsed time.Duration, fps float64, consumed int) int {
	if fps <= 0 {
		return 0
	}
	target := int(elapsed.Seconds() * fps)
	if target <= consumed {
		return 0
	}
	return target - consumed
}

func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}
	rgba := image.NewRGBA(img.Bounds())
	draw.Draw(rgba, rgba.Bounds(), img, img.Bounds().Min, draw.Src)
	return rgba
}
