package annotator

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrNoLayout is returned when a viewport operation needs image and
	// container metrics that are not known yet.
	ErrNoLayout = errors.New("annotator: image or container size unknown")
	// ErrNoImage is returned by operations that need a current image.
	ErrNoImage = errors.New("annotator: no current image")
)

// Session owns everything one annotation workspace needs: the canvas, the
// workspace state, the staging buffer and the label palette. Canvas output
// is routed into the workspace reducer. Like Canvas, a Session must be
// driven from a single goroutine; only its StagingBuffer may be shared.
type Session struct {
	cfg     *Config
	log     *zap.Logger
	canvas  *Canvas
	staging *StagingBuffer
	palette *LabelPalette
	loader  ImageLoader

	images  []ImageData
	state   WorkspaceState
	handles []CallbackHandle
	onError func(path string, err error)
	closed  bool
}

// NewSession creates a session from cfg. A nil cfg uses DefaultConfig.
func NewSession(cfg *Config, opts ...Option) *Session {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	o := buildOptions(opts)
	s := &Session{
		cfg:     cfg,
		log:     o.log.Named("session"),
		canvas:  NewCanvas(cfg, opts...),
		staging: NewStagingBuffer(cfg.Staging.MaxSize, opts...),
		palette: NewLabelPalette(),
		state:   NewWorkspaceState(0),
	}
	s.state.CurrentTool = s.canvas.Tool()
	s.loader = ImageLoader{OnError: s.imageError}

	s.handles = append(s.handles,
		s.canvas.OnBBoxComplete(s.bboxCompleted),
		s.canvas.OnBBoxUpdate(s.bboxUpdated),
	)
	return s
}

// Canvas returns the interaction canvas.
func (s *Session) Canvas() *Canvas { return s.canvas }

// Staging returns the staging buffer.
func (s *Session) Staging() *StagingBuffer { return s.staging }

// Palette returns the session's label palette.
func (s *Session) Palette() *LabelPalette { return s.palette }

// State returns the current workspace state.
func (s *Session) State() WorkspaceState { return s.state }

// Images returns a copy of the image list, including annotations made on
// images that are no longer current.
func (s *Session) Images() []ImageData {
	s.storeCurrent()
	return slices.Clone(s.images)
}

// OnImageError sets the callback for image load failures.
func (s *Session) OnImageError(fn func(path string, err error)) {
	s.onError = fn
}

func (s *Session) dispatch(a WorkspaceAction) {
	s.state = ReduceWorkspace(s.state, a)
	s.canvas.SetBoxes(s.state.Annotations.BoundingBoxes)
}

// SetImages replaces the image list and shows the first image.
func (s *Session) SetImages(images []ImageData) {
	s.images = slices.Clone(images)
	tool, label := s.state.CurrentTool, s.state.SelectedLabel
	s.state = NewWorkspaceState(len(images))
	s.state.CurrentTool, s.state.SelectedLabel = tool, label
	if len(images) > 0 {
		_ = s.GoToImage(0)
	} else {
		s.canvas.SetBoxes(nil)
	}
}

// GoToImage shows the image at index. Annotations on the image being left
// are kept in the image list.
func (s *Session) GoToImage(index int) error {
	if index < 0 || index >= len(s.images) {
		return fmt.Errorf("go to image %d: out of range [0, %d)", index, len(s.images))
	}
	s.storeCurrent()
	img := s.images[index]
	s.dispatch(GoToImage{Index: index, Image: img})
	s.canvas.SetSelectedMasks(nil)
	s.canvas.SelectBox("")
	if img.Width > 0 && img.Height > 0 {
		s.canvas.view.SetImageSize(float64(img.Width), float64(img.Height))
		s.canvas.view.FitToContainer()
	}
	for _, b := range s.state.Annotations.BoundingBoxes {
		s.palette.Color(b.Label)
	}
	return nil
}

// Next shows the following image. It reports false on the last image.
func (s *Session) Next() bool {
	if s.state.CurrentImage == nil || s.state.CurrentIndex+1 >= len(s.images) {
		return false
	}
	return s.GoToImage(s.state.CurrentIndex+1) == nil
}

// Previous shows the preceding image. It reports false on the first image.
func (s *Session) Previous() bool {
	if s.state.CurrentImage == nil || s.state.CurrentIndex == 0 {
		return false
	}
	return s.GoToImage(s.state.CurrentIndex-1) == nil
}

func (s *Session) storeCurrent() {
	if s.state.CurrentImage == nil || s.state.CurrentIndex >= len(s.images) {
		return
	}
	ann := s.state.Annotations.clone()
	s.images[s.state.CurrentIndex].Annotations = &ann
}

// SetMasks replaces the externally produced masks shown for the current image.
func (s *Session) SetMasks(anns []ServerAnnotation) {
	s.canvas.SetAnnotations(anns)
	s.canvas.SetSelectedMasks(nil)
}

// SetPhase forwards the workflow phase to the canvas and records the tool
// it ends up with.
func (s *Session) SetPhase(phase Phase) {
	s.canvas.SetPhase(phase)
	s.dispatch(SetCurrentTool{Tool: s.canvas.Tool()})
}

// SetTool activates tool if the phase allows it.
func (s *Session) SetTool(tool Tool) error {
	if err := s.canvas.SetTool(tool); err != nil {
		return err
	}
	s.dispatch(SetCurrentTool{Tool: tool})
	return nil
}

// SelectLabel sets the label given to new boxes.
func (s *Session) SelectLabel(label string) {
	s.dispatch(SetSelectedLabel{Label: label})
	if label != "" {
		s.palette.Color(label)
	}
}

// AddLabel adds a whole-image label to the current image.
func (s *Session) AddLabel(label string) (LabelAnnotation, error) {
	if s.state.CurrentImage == nil {
		return LabelAnnotation{}, ErrNoImage
	}
	phase := s.canvas.Phase()
	if !IsToolAllowed(phase, ToolLabel) {
		return LabelAnnotation{}, &ToolError{Phase: phase, Tool: ToolLabel, Message: DisallowedMessage(phase, ToolLabel)}
	}
	ann := LabelAnnotation{ID: uuid.NewString(), Label: label, Confidence: float64Ptr(1)}
	s.dispatch(AddLabel{Label: ann})
	s.palette.Color(label)
	return ann, nil
}

// DeleteAnnotation removes an annotation from the current image.
func (s *Session) DeleteAnnotation(t AnnotationType, id string) {
	s.dispatch(DeleteAnnotation{Type: t, ID: id})
}

// StageLabel adds a label to the current image and stages it. The boolean
// is false when the staging buffer is full; the workspace is then left
// untouched.
func (s *Session) StageLabel(label string) (bool, error) {
	if s.state.CurrentImage != nil && !s.staging.Accepts(s.state.CurrentImage.ImageRef.ID) {
		return false, nil
	}
	ann, err := s.AddLabel(label)
	if err != nil {
		return false, err
	}
	return s.staging.Add(s.state.CurrentImage.ImageRef, ann)
}

// StageBBox stages the box with the given id from the current image.
func (s *Session) StageBBox(id string) (bool, error) {
	if s.state.CurrentImage == nil {
		return false, ErrNoImage
	}
	i := slices.IndexFunc(s.state.Annotations.BoundingBoxes, func(b BoundingBox) bool { return b.ID == id })
	if i < 0 {
		return false, fmt.Errorf("stage box %q: not found", id)
	}
	return s.staging.Add(s.state.CurrentImage.ImageRef, s.state.Annotations.BoundingBoxes[i])
}

// Commit hands the staged annotations to c. On success the committed items
// leave the buffer and the workspace is marked saved.
func (s *Session) Commit(ctx context.Context, c Committer) (int, error) {
	n, err := s.staging.Commit(ctx, c)
	if err != nil {
		return 0, err
	}
	s.dispatch(SaveAnnotations{})
	return n, nil
}

// LoadImage probes the image file at path and sizes the viewport for it.
// Failures are also delivered to the OnImageError callback; the viewport
// keeps its previous state.
func (s *Session) LoadImage(ctx context.Context, path string) (ImageInfo, error) {
	info, err := s.loader.Probe(ctx, path)
	if err != nil {
		return ImageInfo{}, err
	}
	s.canvas.view.SetImageSize(float64(info.Width), float64(info.Height))
	s.canvas.view.FitToContainer()
	return info, nil
}

// Fit fits the image into the container.
func (s *Session) Fit() error {
	if !s.canvas.view.FitToContainer() {
		return ErrNoLayout
	}
	s.dispatch(SetZoom{Zoom: s.canvas.view.Zoom()})
	s.dispatch(SetPanOffset{Pan: s.canvas.view.Pan()})
	return nil
}

// Update advances the canvas by dt and mirrors the viewport into the
// workspace state.
func (s *Session) Update(dt time.Duration) {
	if s.closed {
		return
	}
	s.canvas.Update(dt)
	if z := s.canvas.view.Zoom(); z != s.state.Zoom {
		s.state = ReduceWorkspace(s.state, SetZoom{Zoom: z})
	}
	if p := s.canvas.view.Pan(); p != s.state.Pan {
		s.state = ReduceWorkspace(s.state, SetPanOffset{Pan: p})
	}
	if d := s.canvas.State() == StateDrawingBBox; d != s.state.Drawing {
		s.state = ReduceWorkspace(s.state, SetDrawing{Drawing: d})
	}
}

// Close tears down the canvas and the palette. Staged items are left for
// the caller to commit or discard.
func (s *Session) Close() {
	if s.closed {
		return
	}
	for _, h := range s.handles {
		h.Remove()
	}
	s.handles = nil
	s.canvas.Close()
	s.palette.Reset()
	s.closed = true
	s.log.Debug("session closed", zap.Int("staged", s.staging.Len()))
}

func (s *Session) bboxCompleted(box BoundingBox) {
	if s.state.CurrentImage == nil {
		return
	}
	if s.state.SelectedLabel != "" {
		box.Label = s.state.SelectedLabel
	}
	s.palette.Color(box.Label)
	s.dispatch(AddBBox{Box: box})
	s.canvas.SelectBox(box.ID)
}

func (s *Session) bboxUpdated(u BBoxUpdate) {
	if u.Final {
		s.dispatch(UpdateBBox{Box: u.Box})
	}
}

func (s *Session) imageError(path string, err error) {
	s.log.Warn("image load failed", zap.String("path", path), zap.Error(err))
	if s.onError != nil {
		s.onError(path, err)
	}
}
