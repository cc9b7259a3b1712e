package vision

import (
	"context"
	"fmt"
	"image"

	"go.uber.org/zap"

	"github.com/atopx/chessboard/internal/tracker"
	"github.com/atopx/chessboard/internal/xiangqi"
)

// Source yields screen images and accepts a crop found while locating
type Source interface {
	Capture() (image.Image, error)
	SetSubBound(r image.Rectangle)
}

// Observer turns screenshots into tracker observations
type Observer struct {
	source   Source
	detector Detector
	logger   *zap.Logger
}

// NewObserver creates an observer
func NewObserver(source Source, detector Detector, logger *zap.Logger) *Observer {
	return &Observer{
		source:   source,
		detector: detector,
		logger:   logger,
	}
}

// Locate finds the board on the full capture region and restricts later
// captures to it. It fails when the first image holds no board frame.
func (o *Observer) Locate(ctx context.Context) error {
	o.source.SetSubBound(image.Rectangle{})

	img, err := o.source.Capture()
	if err != nil {
		return err
	}
	dets, err := o.detector.Detect(img)
	if err != nil {
		return fmt.Errorf("detect: %w", err)
	}

	b := img.Bounds()
	r, err := FrameBound(b.Dx(), b.Dy(), dets)
	if err != nil {
		return err
	}
	o.source.SetSubBound(r)

	o.logger.Info("Board located",
		zap.Int("x", r.Min.X),
		zap.Int("y", r.Min.Y),
		zap.Int("width", r.Dx()),
		zap.Int("height", r.Dy()))
	return nil
}

// Observe implements tracker.Observer. The board is mirrored when the
// bottom camp is Black so that it is always Red-bottom.
func (o *Observer) Observe(ctx context.Context) (tracker.Observation, bool, error) {
	if err := ctx.Err(); err != nil {
		return tracker.Observation{}, false, err
	}

	img, err := o.source.Capture()
	if err != nil {
		return tracker.Observation{}, false, err
	}
	dets, err := o.detector.Detect(img)
	if err != nil {
		return tracker.Observation{}, false, fmt.Errorf("detect: %w", err)
	}

	camp, board, err := ToBoard(dets)
	if err != nil {
		return tracker.Observation{}, false, err
	}
	if camp == xiangqi.CampNone {
		o.logger.Debug("No king in the lower palace, skipping frame")
		return tracker.Observation{}, false, nil
	}
	if camp == xiangqi.CampBlack {
		board = board.Mirror()
	}

	return tracker.Observation{Camp: camp, Board: board}, true, nil
}
