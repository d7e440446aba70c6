package annotator

import (
	"slices"
	"testing"
)

func testValidationSession() ValidationSession {
	return ValidationSession{
		ID:    "s1",
		Phase: PhaseValidation,
		Pending: []PendingAnnotation{
			{ID: "p1", Type: AnnotationBBox},
			{ID: "p2", Type: AnnotationLabel},
			{ID: "p3", Type: AnnotationBBox},
		},
	}
}

func TestReduceValidationSetSession(t *testing.T) {
	sess := testValidationSession()
	s := ReduceValidation(NewValidationState(0), ValidationSetSession{Session: sess})
	if s.Session == nil || s.Phase != PhaseValidation || s.TotalImages != 3 {
		t.Fatalf("state = %+v", s)
	}
	sess.Pending[0].ID = "changed"
	if s.Session.Pending[0].ID != "p1" {
		t.Error("state shares the caller's pending slice")
	}
}

func TestReduceValidationDecisions(t *testing.T) {
	s := ReduceValidation(NewValidationState(0), ValidationSetSession{Session: testValidationSession()})
	before := s

	s = ReduceValidation(s, ValidationAddDecision{Decision: ValidationDecision{AnnotationID: "p1", Decision: DecisionApprove}})
	s = ReduceValidation(s, ValidationAddDecision{Decision: ValidationDecision{AnnotationID: "p2", Decision: DecisionReject}})
	s = ReduceValidation(s, ValidationAddDecision{Decision: ValidationDecision{AnnotationID: "p3", Decision: DecisionFlag}})

	p := s.Session.Progress
	if p.Validated != 3 || p.Approved != 1 || p.Rejected != 1 {
		t.Errorf("progress = %+v", p)
	}
	if len(s.Session.Decisions) != 3 || !s.UnsavedChanges {
		t.Errorf("decisions = %d unsaved = %v", len(s.Session.Decisions), s.UnsavedChanges)
	}
	if len(before.Session.Decisions) != 0 || before.Session.Progress.Validated != 0 {
		t.Error("earlier state modified")
	}

	s = ReduceValidation(s, ValidationSave{})
	if s.UnsavedChanges {
		t.Error("UnsavedChanges after save")
	}
}

func TestReduceValidationDecisionWithoutSession(t *testing.T) {
	s := NewValidationState(0)
	got := ReduceValidation(s, ValidationAddDecision{Decision: ValidationDecision{AnnotationID: "p1"}})
	if got.Session != nil || got.UnsavedChanges {
		t.Errorf("state changed without a session: %+v", got)
	}
}

func TestReduceValidationSelection(t *testing.T) {
	s := ReduceValidation(NewValidationState(0), ValidationSetSelected{IDs: []string{"p3", "p1"}})
	if got := s.SelectedIDs(); !slices.Equal(got, []string{"p1", "p3"}) {
		t.Errorf("SelectedIDs = %v", got)
	}

	prev := s
	s = ReduceValidation(s, ValidationToggle{ID: "p1"})
	s = ReduceValidation(s, ValidationToggle{ID: "p2"})
	if got := s.SelectedIDs(); !slices.Equal(got, []string{"p2", "p3"}) {
		t.Errorf("SelectedIDs after toggle = %v", got)
	}
	if !prev.Selected["p1"] || prev.Selected["p2"] {
		t.Error("toggle modified the previous selection map")
	}

	s = ReduceValidation(s, ValidationSetActive{ID: "p2"})
	if s.ActiveID != "p2" {
		t.Errorf("ActiveID = %q", s.ActiveID)
	}
	s = ReduceValidation(s, ValidationSetActive{})
	if s.ActiveID != "" {
		t.Errorf("ActiveID not cleared: %q", s.ActiveID)
	}
}

func TestReduceValidationViewAndReset(t *testing.T) {
	s := NewValidationState(2)
	s = ReduceValidation(s, ValidationSetImage{Image: testImageData("a")})
	s = ReduceValidation(s, ValidationSetZoom{Zoom: 0.01})
	s = ReduceValidation(s, ValidationSetPan{Pan: Vec2{1, 2}})
	s = ReduceValidation(s, ValidationSetLoading{Loading: true})
	if s.CurrentImage == nil || s.Zoom != MinZoom || s.Pan != (Vec2{1, 2}) || !s.Loading {
		t.Errorf("state = %+v", s)
	}

	s = ReduceValidation(s, ValidationReset{})
	if s.CurrentImage != nil || s.Zoom != 1 || s.Loading || s.TotalImages != 0 {
		t.Errorf("after reset = %+v", s)
	}
}

func TestDecisionString(t *testing.T) {
	for d, want := range map[Decision]string{DecisionApprove: "approve", DecisionReject: "reject", DecisionFlag: "flag", Decision(9): "unknown"} {
		if got := d.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", d, got, want)
		}
	}
}
