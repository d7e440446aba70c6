package annotator

import "fmt"

// AnnotationType distinguishes the three kinds of annotation a user can make.
type AnnotationType uint8

const (
	AnnotationLabel        AnnotationType = iota // whole-image text label, no spatial extent
	AnnotationBBox                               // axis-aligned bounding box
	AnnotationSegmentation                       // polygon outline
)

var annotationTypeNames = [...]string{"label", "bbox", "segmentation"}

func (t AnnotationType) String() string {
	if int(t) < len(annotationTypeNames) {
		return annotationTypeNames[t]
	}
	return fmt.Sprintf("AnnotationType(%d)", t)
}

// Annotation is implemented by LabelAnnotation, BoundingBox and Polygon only.
// Consumers switch on the concrete type:
//
//	switch a := ann.(type) {
//	case LabelAnnotation:
//	case BoundingBox:
//	case Polygon:
//	}
type Annotation interface {
	AnnotationID() string
	Kind() AnnotationType
	annotation()
}

// LabelAnnotation is a text label attached to the whole image.
type LabelAnnotation struct {
	ID         string   `json:"id"`
	Label      string   `json:"label"`
	Confidence *float64 `json:"confidence,omitempty"`
}

func (l LabelAnnotation) AnnotationID() string { return l.ID }
func (l LabelAnnotation) Kind() AnnotationType { return AnnotationLabel }
func (LabelAnnotation) annotation()            {}

// BoundingBox is an axis-aligned box in image space. Width and Height are
// never negative and X, Y are never below zero once normalized.
type BoundingBox struct {
	ID         string   `json:"id"`
	X          float64  `json:"x"`
	Y          float64  `json:"y"`
	Width      float64  `json:"width"`
	Height     float64  `json:"height"`
	Label      string   `json:"label"`
	Confidence *float64 `json:"confidence,omitempty"`
}

func (b BoundingBox) AnnotationID() string { return b.ID }
func (b BoundingBox) Kind() AnnotationType { return AnnotationBBox }
func (BoundingBox) annotation()            {}

// Rect returns the box geometry.
func (b BoundingBox) Rect() Rect {
	return Rect{X: b.X, Y: b.Y, Width: b.Width, Height: b.Height}
}

// WithRect returns a copy of b with its geometry replaced by r.
func (b BoundingBox) WithRect(r Rect) BoundingBox {
	b.X, b.Y, b.Width, b.Height = r.X, r.Y, r.Width, r.Height
	return b
}

// Normalize clamps the position to >= 0 and the size to >= 0.
func (b BoundingBox) Normalize() BoundingBox {
	b.X = max(b.X, 0)
	b.Y = max(b.Y, 0)
	b.Width = max(b.Width, 0)
	b.Height = max(b.Height, 0)
	return b
}

// Polygon is a closed outline in image space.
type Polygon struct {
	ID         string   `json:"id"`
	Points     []Vec2   `json:"points"`
	Label      string   `json:"label"`
	Confidence *float64 `json:"confidence,omitempty"`
}

func (p Polygon) AnnotationID() string { return p.ID }
func (p Polygon) Kind() AnnotationType { return AnnotationSegmentation }
func (Polygon) annotation()            {}

// Valid reports whether the polygon has enough vertices to enclose an area.
func (p Polygon) Valid() bool { return len(p.Points) >= 3 }

// Contains reports whether pt lies inside the polygon. See PointInPoints for
// the boundary rule.
func (p Polygon) Contains(pt Vec2) bool {
	return PointInPoints(pt, p.Points)
}

// MaskInfo is the segmentation payload of a ServerAnnotation. Each ring is a
// list of [x, y] pairs.
type MaskInfo struct {
	HasSegmentation bool          `json:"has_segmentation"`
	Polygons        [][][]float64 `json:"polygons"`
}

// ServerAnnotation is an externally produced mask. The canvas only reads it
// for hit testing and drawing.
type ServerAnnotation struct {
	ID             int        `json:"id"`
	BBox           [4]float64 `json:"bbox"` // x, y, width, height
	Polygon        MaskInfo   `json:"polygon"`
	StabilityScore float64    `json:"stability_score"`
}

// Bounds returns the annotation's bounding box as a Rect.
func (a ServerAnnotation) Bounds() Rect {
	return Rect{X: a.BBox[0], Y: a.BBox[1], Width: a.BBox[2], Height: a.BBox[3]}
}

// AnnotationData groups the annotations made on one image.
type AnnotationData struct {
	Labels        []LabelAnnotation `json:"labels,omitempty"`
	BoundingBoxes []BoundingBox     `json:"boundingBoxes,omitempty"`
	Polygons      []Polygon         `json:"polygons,omitempty"`
}

// ImageRef identifies an image for staging and commit. ID is the image key.
type ImageRef struct {
	ID           string `json:"id"`
	DatasetID    string `json:"datasetId,omitempty"`
	OriginalPath string `json:"originalPath,omitempty"`
	Filename     string `json:"filename"`
}

// dataPath returns the path recorded for the image in a commit record.
func (r ImageRef) dataPath() string {
	if r.OriginalPath != "" {
		return r.OriginalPath
	}
	return r.Filename
}

// ImageData is one image of the workspace together with the annotations
// already made on it.
type ImageData struct {
	ImageRef
	URL         string          `json:"url"`
	Width       int             `json:"width"`
	Height      int             `json:"height"`
	Annotations *AnnotationData `json:"annotations,omitempty"`
	Completed   bool            `json:"completed"`
	Skipped     bool            `json:"skipped"`
}

func float64Ptr(v float64) *float64 { return &v }
