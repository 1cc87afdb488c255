package calibrate

import (
	"image"
	"log/slog"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/MeKo-Tech/ledmap/internal/utils"
)

// Correspondence pairs an output-space point with the camera pixel where it
// was observed.
type Correspondence struct {
	Output utils.Point `json:"output" yaml:"output"`
	Camera utils.Point `json:"camera" yaml:"camera"`
}

// Verification holds the re-projection error of every correspondence after a
// transform was computed.
type Verification struct {
	PointErrors []float64 `json:"point_errors" yaml:"point_errors"`
	MeanError   float64   `json:"mean_error"   yaml:"mean_error"`
	MaxError    float64   `json:"max_error"    yaml:"max_error"`
}

// Calibration accumulates correspondences and owns the solved transform.
// It is not safe for concurrent mutation; sessions only read it.
type Calibration struct {
	pairs        []Correspondence
	transform    *AffineTransform
	verification *Verification
	rect         image.Rectangle
	logger       *slog.Logger
}

// New creates an empty calibration. A nil logger uses slog.Default().
func New(logger *slog.Logger) *Calibration {
	if logger == nil {
		logger = slog.Default()
	}
	return &Calibration{logger: logger}
}

// AddCorrespondence appends a pair without validation.
func (c *Calibration) AddCorrespondence(output, camera utils.Point) {
	c.pairs = append(c.pairs, Correspondence{Output: output, Camera: camera})
}

// Correspondences returns a copy of the recorded pairs.
func (c *Calibration) Correspondences() []Correspondence {
	out := make([]Correspondence, len(c.pairs))
	copy(out, c.pairs)
	return out
}

// IsComplete reports whether enough pairs exist to solve.
func (c *Calibration) IsComplete() bool { return len(c.pairs) >= 4 }

// FromRectangle replaces all correspondences with the four corners of rect
// mapped onto a canvas of canvasW×canvasH and solves the transform.
func (c *Calibration) FromRectangle(rect image.Rectangle, canvasW, canvasH float64) (AffineTransform, error) {
	c.Reset()
	c.rect = rect.Canon()
	cam := utils.RectCorners(c.rect)
	out := [4]utils.Point{
		{X: 0, Y: 0},
		{X: canvasW, Y: 0},
		{X: canvasW, Y: canvasH},
		{X: 0, Y: canvasH},
	}
	for i := range cam {
		c.AddCorrespondence(out[i], cam[i])
	}
	return c.ComputeTransform()
}

// Rectangle returns the camera rectangle recorded by FromRectangle, or the
// empty rectangle.
func (c *Calibration) Rectangle() image.Rectangle { return c.rect }

// ComputeTransform solves the transform from the recorded pairs, stores it and
// runs a verification pass over every correspondence.
func (c *Calibration) ComputeTransform() (AffineTransform, error) {
	src := make([]utils.Point, len(c.pairs))
	dst := make([]utils.Point, len(c.pairs))
	for i, p := range c.pairs {
		src[i] = p.Camera
		dst[i] = p.Output
	}
	t, err := SolveAffine(src, dst)
	if err != nil {
		c.transform = nil
		c.verification = nil
		return AffineTransform{}, err
	}
	c.transform = &t
	c.verification = c.verify(t)
	c.logger.Info("calibration transform computed",
		"points", len(c.pairs),
		"mean_error", c.verification.MeanError,
		"max_error", c.verification.MaxError)
	return t, nil
}

func (c *Calibration) verify(t AffineTransform) *Verification {
	errs := make([]float64, len(c.pairs))
	for i, p := range c.pairs {
		errs[i] = t.Apply(p.Camera).Distance(p.Output)
		c.logger.Debug("calibration point error",
			"index", i,
			"camera_x", p.Camera.X, "camera_y", p.Camera.Y,
			"error", errs[i])
	}
	v := &Verification{PointErrors: errs}
	if len(errs) > 0 {
		v.MeanError = stat.Mean(errs, nil)
		v.MaxError = floats.Max(errs)
	}
	return v
}

// Transform returns the stored transform and whether one is set.
func (c *Calibration) Transform() (AffineTransform, bool) {
	if c.transform == nil {
		return AffineTransform{}, false
	}
	return *c.transform, true
}

// Verification returns the last verification pass, or nil.
func (c *Calibration) Verification() *Verification { return c.verification }

// Apply maps a camera point to output space.
func (c *Calibration) Apply(camera utils.Point) (utils.Point, error) {
	if c.transform == nil {
		return utils.Point{}, &TransformNotReadyError{Correspondences: len(c.pairs)}
	}
	out := c.transform.Apply(camera)
	if !out.IsFinite() {
		return utils.Point{}, &InvalidTransformError{X: out.X, Y: out.Y}
	}
	return out, nil
}

// Reset clears pairs, transform, verification and rectangle.
func (c *Calibration) Reset() {
	c.pairs = nil
	c.transform = nil
	c.verification = nil
	c.rect = image.Rectangle{}
}
