package annotator

import "slices"

// WorkspaceState is the annotation workspace as seen by the presentation
// layer. It is only changed through ReduceWorkspace.
type WorkspaceState struct {
	CurrentImage    *ImageData
	CurrentIndex    int
	TotalImages     int
	CurrentTool     Tool
	AvailableLabels []string
	SelectedLabel   string
	Drawing         bool
	Zoom            float64
	Pan             Vec2
	Annotations     AnnotationData
	UnsavedChanges  bool
}

// NewWorkspaceState returns the initial state for a set of totalImages images.
func NewWorkspaceState(totalImages int) WorkspaceState {
	return WorkspaceState{
		TotalImages: totalImages,
		CurrentTool: ToolLabel,
		Zoom:        1,
	}
}

// WorkspaceAction is a state transition for ReduceWorkspace. The set of
// actions is closed; see the types below.
type WorkspaceAction interface {
	workspaceAction()
}

// SetCurrentImage shows img and loads its stored annotations.
type SetCurrentImage struct{ Image ImageData }

// GoToImage is SetCurrentImage that also records the image index.
type GoToImage struct {
	Index int
	Image ImageData
}

type SetCurrentTool struct{ Tool Tool }

type SetSelectedLabel struct{ Label string }

// SetZoom is clamped to [MinZoom, MaxZoom].
type SetZoom struct{ Zoom float64 }

type SetPanOffset struct{ Pan Vec2 }

type AddLabel struct{ Label LabelAnnotation }

type AddBBox struct{ Box BoundingBox }

type AddPolygon struct{ Polygon Polygon }

// UpdateBBox replaces the box with the same ID.
type UpdateBBox struct{ Box BoundingBox }

// UpdatePolygon replaces the polygon with the same ID.
type UpdatePolygon struct{ Polygon Polygon }

type DeleteAnnotation struct {
	Type AnnotationType
	ID   string
}

type SetDrawing struct{ Drawing bool }

type SaveAnnotations struct{}

type ResetAnnotations struct{}

func (SetCurrentImage) workspaceAction()  {}
func (GoToImage) workspaceAction()        {}
func (SetCurrentTool) workspaceAction()   {}
func (SetSelectedLabel) workspaceAction() {}
func (SetZoom) workspaceAction()          {}
func (SetPanOffset) workspaceAction()     {}
func (AddLabel) workspaceAction()         {}
func (AddBBox) workspaceAction()          {}
func (AddPolygon) workspaceAction()       {}
func (UpdateBBox) workspaceAction()       {}
func (UpdatePolygon) workspaceAction()    {}
func (DeleteAnnotation) workspaceAction() {}
func (SetDrawing) workspaceAction()       {}
func (SaveAnnotations) workspaceAction()  {}
func (ResetAnnotations) workspaceAction() {}

// ReduceWorkspace returns the state after applying a. It never modifies s or
// any slice reachable from it.
func ReduceWorkspace(s WorkspaceState, a WorkspaceAction) WorkspaceState {
	switch a := a.(type) {
	case SetCurrentImage:
		return s.withImage(a.Image)
	case GoToImage:
		s = s.withImage(a.Image)
		s.CurrentIndex = a.Index
		return s
	case SetCurrentTool:
		s.CurrentTool = a.Tool
	case SetSelectedLabel:
		s.SelectedLabel = a.Label
	case SetZoom:
		s.Zoom = clamp(a.Zoom, MinZoom, MaxZoom)
	case SetPanOffset:
		s.Pan = a.Pan
	case AddLabel:
		s.Annotations.Labels = append(slices.Clip(s.Annotations.Labels), a.Label)
		s.UnsavedChanges = true
	case AddBBox:
		s.Annotations.BoundingBoxes = append(slices.Clip(s.Annotations.BoundingBoxes), a.Box)
		s.UnsavedChanges = true
	case AddPolygon:
		s.Annotations.Polygons = append(slices.Clip(s.Annotations.Polygons), a.Polygon)
		s.UnsavedChanges = true
	case UpdateBBox:
		s.Annotations.BoundingBoxes = replaceByID(s.Annotations.BoundingBoxes, a.Box)
		s.UnsavedChanges = true
	case UpdatePolygon:
		s.Annotations.Polygons = replaceByID(s.Annotations.Polygons, a.Polygon)
		s.UnsavedChanges = true
	case DeleteAnnotation:
		s.Annotations = s.Annotations.without(a.Type, a.ID)
		s.UnsavedChanges = true
	case SetDrawing:
		s.Drawing = a.Drawing
	case SaveAnnotations:
		s.UnsavedChanges = false
	case ResetAnnotations:
		s.Annotations = AnnotationData{}
		s.UnsavedChanges = false
	}
	return s
}

func (s WorkspaceState) withImage(img ImageData) WorkspaceState {
	s.CurrentImage = &img
	if img.Annotations != nil {
		s.Annotations = img.Annotations.clone()
	} else {
		s.Annotations = AnnotationData{}
	}
	s.UnsavedChanges = false
	return s
}

func replaceByID[T Annotation](list []T, v T) []T {
	out := slices.Clone(list)
	for i := range out {
		if out[i].AnnotationID() == v.AnnotationID() {
			out[i] = v
		}
	}
	return out
}

func removeByID[T Annotation](list []T, id string) []T {
	return slices.DeleteFunc(slices.Clone(list), func(v T) bool { return v.AnnotationID() == id })
}

func (d AnnotationData) clone() AnnotationData {
	return AnnotationData{
		Labels:        slices.Clone(d.Labels),
		BoundingBoxes: slices.Clone(d.BoundingBoxes),
		Polygons:      slices.Clone(d.Polygons),
	}
}

func (d AnnotationData) without(t AnnotationType, id string) AnnotationData {
	switch t {
	case AnnotationLabel:
		d.Labels = removeByID(d.Labels, id)
	case AnnotationBBox:
		d.BoundingBoxes = removeByID(d.BoundingBoxes, id)
	case AnnotationSegmentation:
		d.Polygons = removeByID(d.Polygons, id)
	}
	return d
}
