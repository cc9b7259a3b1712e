// Package vision turns screenshots of a Xiangqi board into boards: it
// captures the screen, runs the piece detector and buckets detections into
// the 9x10 grid.
package vision

import (
	"errors"
	"image"
	"math"
	"sort"

	"github.com/atopx/chessboard/internal/xiangqi"
)

// ModelInputSize is the square input edge of the detection model
const ModelInputSize = 640

// FrameLabel marks the board frame detection
const FrameLabel = '0'

// ErrNoBoard is returned when no board frame was detected
var ErrNoBoard = errors.New("vision: no board detected")

// Labels are the model classes in output order
var Labels = [...]byte{'n', 'b', 'a', 'k', 'r', 'c', 'p', 'R', 'N', 'A', 'K', 'B', 'C', 'P', FrameLabel}

// classLimits caps how many boxes of each class survive suppression
var classLimits = [...]int{2, 2, 2, 1, 2, 2, 5, 2, 2, 2, 1, 2, 2, 5, 1}

// Detection is one labelled box in model input coordinates (center/size)
type Detection struct {
	X          float32
	Y          float32
	W          float32
	H          float32
	Confidence float32
	Class      int
}

// Label returns the piece letter or FrameLabel
func (d Detection) Label() byte {
	if d.Class < 0 || d.Class >= len(Labels) {
		return 0
	}
	return Labels[d.Class]
}

// Box returns the detection corners
func (d Detection) Box() (x0, y0, x1, y1 float32) {
	return d.X - d.W/2, d.Y - d.H/2, d.X + d.W/2, d.Y + d.H/2
}

// IoU computes intersection over union of two boxes
func (d Detection) IoU(o Detection) float32 {
	ax0, ay0, ax1, ay1 := d.Box()
	bx0, by0, bx1, by1 := o.Box()

	iw := float32(math.Max(0, float64(min32(ax1, bx1)-max32(ax0, bx0))))
	ih := float32(math.Max(0, float64(min32(ay1, by1)-max32(ay0, by0))))
	inter := iw * ih
	union := d.W*d.H + o.W*o.H - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

func min32(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}

func max32(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}

// Detections is a set of boxes, highest confidence first after Suppress
type Detections []Detection

// Suppress runs non-maximum suppression across all classes. Boxes are taken
// in descending confidence; a class that reached its cap is skipped and every
// remaining box overlapping a kept one by iou or more is dropped.
func Suppress(dets Detections, iou float32) Detections {
	pending := append(Detections(nil), dets...)
	sort.SliceStable(pending, func(i, j int) bool {
		return pending[i].Confidence > pending[j].Confidence
	})

	var counts [len(Labels)]int
	kept := make(Detections, 0, 33)
	for len(pending) > 0 {
		cur := pending[0]
		pending = pending[1:]
		if cur.Class < 0 || cur.Class >= len(Labels) || counts[cur.Class] >= classLimits[cur.Class] {
			continue
		}
		kept = append(kept, cur)
		counts[cur.Class]++

		rest := pending[:0]
		for _, d := range pending {
			if cur.IoU(d) < iou {
				rest = append(rest, d)
			}
		}
		pending = rest
	}
	return kept
}

// Frame returns the first board frame detection
func (ds Detections) Frame() (Detection, bool) {
	for _, d := range ds {
		if d.Label() == FrameLabel {
			return d, true
		}
	}
	return Detection{}, false
}

// ToBoard buckets piece detections into the grid spanned by the frame. The
// camp playing from the bottom is the colour of the first king found inside
// the lower palace; it is CampNone when no such king was seen.
func ToBoard(ds Detections) (xiangqi.Camp, xiangqi.Board, error) {
	var board xiangqi.Board
	frame, ok := ds.Frame()
	if !ok {
		return xiangqi.CampNone, board, ErrNoBoard
	}

	x0, y0, _, _ := frame.Box()
	spaceX := frame.W / float32(xiangqi.Cols-1)
	spaceY := frame.H / float32(xiangqi.Rows-1)
	if spaceX <= 0 || spaceY <= 0 {
		return xiangqi.CampNone, board, ErrNoBoard
	}

	camp := xiangqi.CampNone
	for _, d := range ds {
		label := d.Label()
		if !xiangqi.IsPiece(label) {
			continue
		}
		col := int(math.Floor(float64((d.X-x0)/spaceX) + 0.5))
		row := int(math.Floor(float64((d.Y-y0)/spaceY) + 0.5))
		if row < 0 || row >= xiangqi.Rows || col < 0 || col >= xiangqi.Cols {
			continue
		}
		p := xiangqi.Piece(label)
		board[row][col] = p
		if camp == xiangqi.CampNone && p.Kind() == xiangqi.King && col >= 3 && col <= 5 && row >= 7 {
			camp = p.Camp()
		}
	}
	return camp, board, nil
}

// FrameBound returns the rectangle of an imgW x imgH image holding the board
// frame plus a margin of one cell on every side. Detections are in model
// input coordinates.
func FrameBound(imgW, imgH int, ds Detections) (image.Rectangle, error) {
	frame, ok := ds.Frame()
	if !ok {
		return image.Rectangle{}, ErrNoBoard
	}

	scaleX := float32(imgW) / ModelInputSize
	scaleY := float32(imgH) / ModelInputSize
	spaceX := frame.W / float32(xiangqi.Cols-1)
	spaceY := frame.H / float32(xiangqi.Rows-1)

	x0, y0, x1, y1 := frame.Box()
	r := image.Rect(
		int((x0-spaceX)*scaleX),
		int((y0-spaceY)*scaleY),
		int((x1+spaceX)*scaleX),
		int((y1+spaceY)*scaleY),
	)
	r = r.Intersect(image.Rect(0, 0, imgW, imgH))
	if r.Empty() {
		return image.Rectangle{}, ErrNoBoard
	}
	return r, nil
}
