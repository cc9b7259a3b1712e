package vision

import (
	"fmt"
	"image"
	"sync"

	"gocv.io/x/gocv"
)

// Detector finds pieces and the board frame in an image. Coordinates are
// returned in model input space.
type Detector interface {
	Detect(img image.Image) (Detections, error)
}

// rowStride is x, y, w, h, objectness and one score per class
const rowStride = 5 + len(Labels)

// ONNXDetector runs a YOLO model through the OpenCV DNN module
type ONNXDetector struct {
	net        gocv.Net
	inputSize  int
	confidence float32
	iou        float32
	mu         sync.Mutex
}

// NewONNXDetector loads the model named in cfg
func NewONNXDetector(cfg *Config) (*ONNXDetector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid detector config: %w", err)
	}

	net := gocv.ReadNetFromONNX(cfg.ModelPath)
	if net.Empty() {
		return nil, fmt.Errorf("failed to load model %s", cfg.ModelPath)
	}

	return &ONNXDetector{
		net:        net,
		inputSize:  cfg.InputSize,
		confidence: cfg.Confidence,
		iou:        cfg.IoU,
	}, nil
}

// Detect implements Detector
func (d *ONNXDetector) Detect(img image.Image) (Detections, error) {
	mat, err := imageToMat(img)
	if err != nil {
		return nil, fmt.Errorf("failed to convert image to mat: %w", err)
	}
	defer mat.Close()

	// Scale to [0, 1], resize exactly to the input edge, BGR -> RGB
	blob := gocv.BlobFromImage(mat, 1.0/255.0, image.Pt(d.inputSize, d.inputSize), gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	d.mu.Lock()
	d.net.SetInput(blob, "")
	out := d.net.Forward("")
	d.mu.Unlock()
	defer out.Close()

	data, err := out.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("failed to read model output: %w", err)
	}

	return Suppress(decodeRows(data, d.confidence), d.iou), nil
}

// Close releases the network
func (d *ONNXDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.net.Close()
}

// decodeRows turns flat YOLO output rows into detections above the threshold
func decodeRows(data []float32, threshold float32) Detections {
	var dets Detections
	for off := 0; off+rowStride <= len(data); off += rowStride {
		row := data[off : off+rowStride]

		class, best := 0, row[5]
		for i := 1; i < len(Labels); i++ {
			if row[5+i] > best {
				class, best = i, row[5+i]
			}
		}

		conf := row[4] * best
		if conf < threshold {
			continue
		}
		dets = append(dets, Detection{
			X:          row[0],
			Y:          row[1],
			W:          row[2],
			H:          row[3],
			Confidence: conf,
			Class:      class,
		})
	}
	return dets
}

// imageToMat converts image.Image to a 3 channel BGR gocv.Mat
func imageToMat(img image.Image) (gocv.Mat, error) {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	buf := make([]byte, 0, width*height*3)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			// Convert from uint32 (0-65535) to uint8 (0-255)
			buf = append(buf, uint8(b>>8), uint8(g>>8), uint8(r>>8))
		}
	}

	return gocv.NewMatFromBytes(height, width, gocv.MatTypeCV8UC3, buf)
}
