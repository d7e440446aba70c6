package annotator

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// newTestSession returns a session showing images with client and image
// coordinates aligned.
func newTestSession(t *testing.T, images ...ImageData) *Session {
	t.Helper()
	s := NewSession(nil)
	s.Canvas().Viewport().SetBounds(Rect{Width: 800, Height: 600}, 1)
	s.SetImages(images)
	alignView(s)
	return s
}

func alignView(s *Session) {
	s.Canvas().Viewport().SetZoom(1)
	s.Canvas().Viewport().SetPan(Vec2{})
}

func writePNG(t *testing.T, w, h int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "img.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, image.NewRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestSessionNavigation(t *testing.T) {
	s := newTestSession(t, testImageData("a"), testImageData("b"), testImageData("c"))

	cur := func() string { return s.State().CurrentImage.ID }
	if cur() != "a" || s.State().TotalImages != 3 {
		t.Fatalf("initial image = %q of %d", cur(), s.State().TotalImages)
	}
	if s.Previous() {
		t.Error("Previous on first image")
	}
	if !s.Next() || !s.Next() || cur() != "c" {
		t.Fatalf("after two Next: %q", cur())
	}
	if s.Next() {
		t.Error("Next on last image")
	}
	if !s.Previous() || cur() != "b" || s.State().CurrentIndex != 1 {
		t.Errorf("after Previous: %q index %d", cur(), s.State().CurrentIndex)
	}
	for _, i := range []int{-1, 3} {
		if err := s.GoToImage(i); err == nil {
			t.Errorf("GoToImage(%d) succeeded", i)
		}
	}
	if cur() != "b" {
		t.Errorf("failed GoToImage moved to %q", cur())
	}
}

func TestSessionSetImagesEmpty(t *testing.T) {
	s := newTestSession(t)
	if s.State().CurrentImage != nil || s.Next() || s.Previous() {
		t.Error("empty session has a current image")
	}
}

func TestSessionSetImagesKeepsToolAndLabel(t *testing.T) {
	s := newTestSession(t, testImageData("a"))
	if err := s.SetTool(ToolSegmentation); err != nil {
		t.Fatal(err)
	}
	s.SelectLabel("dog")
	s.SetImages([]ImageData{testImageData("x"), testImageData("y")})
	st := s.State()
	if st.CurrentTool != ToolSegmentation || st.SelectedLabel != "dog" || st.TotalImages != 2 || st.CurrentImage.ID != "x" {
		t.Errorf("state = %+v", st)
	}
}

func TestSessionDrawnBoxJoinsState(t *testing.T) {
	tests := []struct {
		name      string
		label     string
		wantLabel string
	}{
		{"default label", "", defaultBBoxLabel},
		{"selected label", "dog", "dog"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestSession(t, testImageData("a"))
			s.SelectLabel(tt.label)
			drag(s.Canvas(), MouseButtonLeft, Vec2{10, 10}, Vec2{100, 80})

			st := s.State()
			if len(st.Annotations.BoundingBoxes) != 1 {
				t.Fatalf("boxes = %+v", st.Annotations.BoundingBoxes)
			}
			b := st.Annotations.BoundingBoxes[0]
			if b.Label != tt.wantLabel || b.Rect() != (Rect{10, 10, 90, 70}) {
				t.Errorf("box = %+v", b)
			}
			if !st.UnsavedChanges {
				t.Error("UnsavedChanges not set")
			}
			if sel, ok := s.Canvas().SelectedBox(); !ok || sel.ID != b.ID {
				t.Errorf("new box not selected: %v %v", sel.ID, ok)
			}
			if len(s.Canvas().Boxes()) != 1 {
				t.Errorf("canvas boxes = %d", len(s.Canvas().Boxes()))
			}
			if s.Palette().Len() == 0 {
				t.Error("label not colored")
			}
		})
	}
}

func TestSessionKeepsAnnotationsAcrossImages(t *testing.T) {
	s := newTestSession(t, testImageData("a"), testImageData("b"))
	drag(s.Canvas(), MouseButtonLeft, Vec2{10, 10}, Vec2{100, 80})

	s.Next()
	alignView(s)
	if n := len(s.State().Annotations.BoundingBoxes); n != 0 {
		t.Fatalf("image b has %d boxes", n)
	}
	if len(s.Canvas().Boxes()) != 0 {
		t.Error("canvas still shows boxes of image a")
	}
	if _, ok := s.Canvas().SelectedBox(); ok {
		t.Error("box selection survived navigation")
	}

	s.Previous()
	if n := len(s.State().Annotations.BoundingBoxes); n != 1 {
		t.Errorf("image a has %d boxes after returning", n)
	}
	imgs := s.Images()
	if imgs[0].Annotations == nil || len(imgs[0].Annotations.BoundingBoxes) != 1 {
		t.Errorf("stored annotations = %+v", imgs[0].Annotations)
	}
}

func TestSessionBoxEditReachesState(t *testing.T) {
	s := newTestSession(t, testImageData("a", BoundingBox{ID: "b1", X: 100, Y: 100, Width: 50, Height: 50, Label: "cat"}))
	if len(s.Canvas().Boxes()) != 1 {
		t.Fatal("stored box not shown on canvas")
	}

	c := s.Canvas()
	c.PointerDown(120, 120, MouseButtonLeft, 0)
	c.PointerMove(130, 140)
	s.Update(time.Second / 60)
	if got := s.State().Annotations.BoundingBoxes[0]; got.X != 100 {
		t.Errorf("intermediate update reached state: %+v", got)
	}
	c.PointerUp(130, 140, MouseButtonLeft, 0)

	got := s.State().Annotations.BoundingBoxes[0]
	if got.Rect() != (Rect{110, 120, 50, 50}) || got.Label != "cat" {
		t.Errorf("state box = %+v", got)
	}
	if !s.State().UnsavedChanges {
		t.Error("UnsavedChanges not set")
	}
}

func TestSessionStageAndCommit(t *testing.T) {
	s := newTestSession(t, testImageData("a"), testImageData("b"))
	drag(s.Canvas(), MouseButtonLeft, Vec2{10, 10}, Vec2{100, 80})
	box := s.State().Annotations.BoundingBoxes[0]

	if ok, err := s.StageBBox(box.ID); !ok || err != nil {
		t.Fatalf("StageBBox = %v, %v", ok, err)
	}
	if _, err := s.StageBBox("missing"); err == nil {
		t.Error("staged an unknown box")
	}

	s.Next()
	if ok, err := s.StageLabel("cat"); !ok || err != nil {
		t.Fatalf("StageLabel = %v, %v", ok, err)
	}
	if n := len(s.State().Annotations.Labels); n != 1 {
		t.Errorf("labels on image b = %d", n)
	}
	if s.Staging().Len() != 2 {
		t.Fatalf("staged %d items, want 2", s.Staging().Len())
	}

	var got []CommitRecord
	n, err := s.Commit(context.Background(), CommitFunc(func(_ context.Context, recs []CommitRecord) error {
		got = recs
		return nil
	}))
	if err != nil || n != 2 {
		t.Fatalf("Commit = %d, %v", n, err)
	}
	if s.Staging().Len() != 0 || s.State().UnsavedChanges {
		t.Errorf("after commit: staged=%d unsaved=%v", s.Staging().Len(), s.State().UnsavedChanges)
	}
	if len(got) != 2 || got[0].DataID != "ds-a" || len(got[0].BBoxAnnotations) != 1 || got[1].DataID != "ds-b" || len(got[1].LabelAnnotations) != 1 {
		t.Errorf("records = %+v", got)
	}
}

func TestSessionCommitFailureKeepsState(t *testing.T) {
	s := newTestSession(t, testImageData("a"))
	if _, err := s.StageLabel("cat"); err != nil {
		t.Fatal(err)
	}
	boom := errors.New("boom")
	_, err := s.Commit(context.Background(), CommitFunc(func(context.Context, []CommitRecord) error { return boom }))
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
	if s.Staging().Len() != 1 || !s.State().UnsavedChanges {
		t.Errorf("staged=%d unsaved=%v", s.Staging().Len(), s.State().UnsavedChanges)
	}
}

func TestSessionStageLabelFullBuffer(t *testing.T) {
	s := newTestSession(t, testImageData("a"), testImageData("b"))
	for i := range s.Staging().MaxSize() - 1 {
		id := fmt.Sprintf("other-%d", i)
		if ok, _ := s.Staging().Add(testImage(id), LabelAnnotation{ID: id, Label: "dog"}); !ok {
			t.Fatalf("Add(%s) rejected", id)
		}
	}
	if ok, err := s.StageLabel("cat"); !ok || err != nil {
		t.Fatalf("StageLabel on last free slot = %v, %v", ok, err)
	}

	s.Next()
	ok, err := s.StageLabel("cat")
	if ok || err != nil {
		t.Fatalf("StageLabel on full buffer = %v, %v; want false, nil", ok, err)
	}
	if n := len(s.State().Annotations.Labels); n != 0 || s.State().UnsavedChanges {
		t.Errorf("refused label changed the workspace: labels=%d unsaved=%v", n, s.State().UnsavedChanges)
	}

	// The image already staged can still be restaged on a full buffer.
	s.Previous()
	if ok, err := s.StageLabel("bird"); !ok || err != nil {
		t.Errorf("restage on full buffer = %v, %v", ok, err)
	}
	if n := len(s.State().Annotations.Labels); n != 2 {
		t.Errorf("labels on image a = %d, want 2", n)
	}
}

func TestSessionPhaseRules(t *testing.T) {
	s := newTestSession(t, testImageData("a"))

	s.SetPhase(PhaseLabel)
	if s.State().CurrentTool != ToolLabel {
		t.Errorf("tool = %v in label phase", s.State().CurrentTool)
	}
	var te *ToolError
	if err := s.SetTool(ToolBBox); !errors.As(err, &te) {
		t.Errorf("SetTool(bbox) err = %v", err)
	}
	if _, err := s.AddLabel("cat"); err != nil {
		t.Errorf("AddLabel in label phase: %v", err)
	}

	s.SetPhase(PhaseValidation)
	if s.State().CurrentTool != ToolNone {
		t.Errorf("tool = %v in validation phase", s.State().CurrentTool)
	}
	if _, err := s.AddLabel("dog"); !errors.As(err, &te) || te.Tool != ToolLabel {
		t.Errorf("AddLabel in validation err = %v", err)
	}
	if _, err := s.StageLabel("dog"); err == nil {
		t.Error("StageLabel allowed in validation phase")
	}
}

func TestSessionWithoutImage(t *testing.T) {
	s := newTestSession(t)
	if _, err := s.AddLabel("cat"); !errors.Is(err, ErrNoImage) {
		t.Errorf("AddLabel err = %v", err)
	}
	if _, err := s.StageBBox("x"); !errors.Is(err, ErrNoImage) {
		t.Errorf("StageBBox err = %v", err)
	}
	s.Canvas().Viewport().SetImageSize(1000, 1000)
	drag(s.Canvas(), MouseButtonLeft, Vec2{10, 10}, Vec2{100, 80})
	if len(s.State().Annotations.BoundingBoxes) != 0 {
		t.Error("box added without a current image")
	}
}

func TestSessionDeleteAnnotation(t *testing.T) {
	s := newTestSession(t, testImageData("a", BoundingBox{ID: "b1", Width: 20, Height: 20}))
	s.Canvas().SelectBox("b1")
	s.DeleteAnnotation(AnnotationBBox, "b1")
	if len(s.State().Annotations.BoundingBoxes) != 0 || len(s.Canvas().Boxes()) != 0 {
		t.Error("box not deleted")
	}
	if _, ok := s.Canvas().SelectedBox(); ok {
		t.Error("deleted box still selected")
	}
}

func TestSessionFit(t *testing.T) {
	s := NewSession(nil)
	if err := s.Fit(); !errors.Is(err, ErrNoLayout) {
		t.Errorf("Fit without layout err = %v", err)
	}

	s = newTestSession(t, testImageData("a"))
	s.Canvas().Viewport().SetZoom(3)
	if err := s.Fit(); err != nil {
		t.Fatal(err)
	}
	v := s.Canvas().Viewport()
	if s.State().Zoom != v.Zoom() || s.State().Pan != v.Pan() || v.Zoom() != 1 {
		t.Errorf("state zoom=%v pan=%v, view zoom=%v pan=%v", s.State().Zoom, s.State().Pan, v.Zoom(), v.Pan())
	}
}

func TestSessionUpdateMirrorsView(t *testing.T) {
	s := newTestSession(t, testImageData("a"))
	c := s.Canvas()

	c.Wheel(100, 100, 1)
	c.PointerDown(10, 10, MouseButtonLeft, 0)
	s.Update(time.Second / 60)
	st := s.State()
	if st.Zoom != c.Viewport().Zoom() || st.Pan != c.Viewport().Pan() || !st.Drawing {
		t.Errorf("state = zoom %v pan %v drawing %v", st.Zoom, st.Pan, st.Drawing)
	}

	c.PointerLeave()
	s.Update(time.Second / 60)
	if s.State().Drawing {
		t.Error("Drawing still set")
	}
}

func TestSessionLoadImage(t *testing.T) {
	s := NewSession(nil)
	s.Canvas().Viewport().SetBounds(Rect{Width: 800, Height: 600}, 1)

	info, err := s.LoadImage(context.Background(), writePNG(t, 64, 32))
	if err != nil {
		t.Fatal(err)
	}
	if info.Width != 64 || info.Height != 32 || info.Format != "png" {
		t.Errorf("info = %+v", info)
	}
	if w, h := s.Canvas().Viewport().ImageSize(); w != 64 || h != 32 {
		t.Errorf("viewport image size = %vx%v", w, h)
	}

	var failed string
	s.OnImageError(func(path string, err error) { failed = path })
	missing := filepath.Join(t.TempDir(), "missing.png")
	if _, err := s.LoadImage(context.Background(), missing); err == nil {
		t.Error("missing image loaded")
	}
	if failed != missing {
		t.Errorf("OnImageError path = %q", failed)
	}
	if w, _ := s.Canvas().Viewport().ImageSize(); w != 64 {
		t.Error("failed load changed the viewport")
	}
}

func TestSessionClose(t *testing.T) {
	s := newTestSession(t, testImageData("a"))
	s.SelectLabel("dog")
	s.Close()
	s.Close()

	if !s.Canvas().Closed() || s.Palette().Len() != 0 {
		t.Errorf("closed=%v palette=%d", s.Canvas().Closed(), s.Palette().Len())
	}
	drag(s.Canvas(), MouseButtonLeft, Vec2{10, 10}, Vec2{100, 80})
	s.Update(time.Second)
	if len(s.State().Annotations.BoundingBoxes) != 0 {
		t.Error("closed session accepted a box")
	}
}
