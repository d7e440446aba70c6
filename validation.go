package annotator

import (
	"slices"
	"time"
)

// Decision is a validator's verdict on a submitted annotation.
type Decision uint8

const (
	DecisionApprove Decision = iota
	DecisionReject
	DecisionFlag
)

func (d Decision) String() string {
	switch d {
	case DecisionApprove:
		return "approve"
	case DecisionReject:
		return "reject"
	case DecisionFlag:
		return "flag"
	}
	return "unknown"
}

// PendingAnnotation is a participant submission awaiting validation.
type PendingAnnotation struct {
	ID                  string
	Type                AnnotationType
	DataID              string
	ImageURL            string
	ParticipantID       string
	SubmittedAt         time.Time
	Data                AnnotationData
	QualityScore        float64
	ValidationCount     int
	RequiredValidations int
}

// ValidationDecision records one verdict.
type ValidationDecision struct {
	AnnotationID string
	Decision     Decision
	Reason       string
	Timestamp    time.Time
	ValidatorID  string
}

// ValidationProgress counts verdicts in a session.
type ValidationProgress struct {
	Total     int
	Validated int
	Approved  int
	Rejected  int
}

// ValidationSession is one validator's pass over pending submissions.
type ValidationSession struct {
	ID          string
	ChallengeID string
	DatasetID   string
	Phase       Phase
	ValidatorID string
	StartedAt   time.Time
	Pending     []PendingAnnotation
	Decisions   []ValidationDecision
	Progress    ValidationProgress
}

// ValidationState is the validation workspace. It is only changed through
// ReduceValidation.
type ValidationState struct {
	CurrentImage   *ImageData
	CurrentIndex   int
	TotalImages    int
	Phase          Phase
	Session        *ValidationSession
	Selected       map[string]bool
	ActiveID       string
	Zoom           float64
	Pan            Vec2
	Loading        bool
	UnsavedChanges bool
}

// NewValidationState returns the initial state.
func NewValidationState(totalImages int) ValidationState {
	return ValidationState{TotalImages: totalImages, Zoom: 1}
}

// ValidationAction is a state transition for ReduceValidation.
type ValidationAction interface {
	validationAction()
}

type ValidationSetImage struct{ Image ImageData }

// ValidationSetSession adopts the session's phase and counts its pending
// submissions as the image total.
type ValidationSetSession struct{ Session ValidationSession }

type ValidationSetSelected struct{ IDs []string }

type ValidationToggle struct{ ID string }

// ValidationSetActive with an empty ID clears the active annotation.
type ValidationSetActive struct{ ID string }

type ValidationSetZoom struct{ Zoom float64 }

type ValidationSetPan struct{ Pan Vec2 }

type ValidationAddDecision struct{ Decision ValidationDecision }

type ValidationSetLoading struct{ Loading bool }

type ValidationSave struct{}

type ValidationReset struct{}

func (ValidationSetImage) validationAction()    {}
func (ValidationSetSession) validationAction()  {}
func (ValidationSetSelected) validationAction() {}
func (ValidationToggle) validationAction()      {}
func (ValidationSetActive) validationAction()   {}
func (ValidationSetZoom) validationAction()     {}
func (ValidationSetPan) validationAction()      {}
func (ValidationAddDecision) validationAction() {}
func (ValidationSetLoading) validationAction()  {}
func (ValidationSave) validationAction()        {}
func (ValidationReset) validationAction()       {}

// ReduceValidation returns the state after applying a. It never modifies s
// or anything reachable from it.
func ReduceValidation(s ValidationState, a ValidationAction) ValidationState {
	switch a := a.(type) {
	case ValidationSetImage:
		img := a.Image
		s.CurrentImage = &img
		s.UnsavedChanges = false
	case ValidationSetSession:
		sess := a.Session
		sess.Pending = slices.Clone(sess.Pending)
		sess.Decisions = slices.Clone(sess.Decisions)
		s.Session = &sess
		s.Phase = sess.Phase
		s.TotalImages = len(sess.Pending)
	case ValidationSetSelected:
		s.Selected = make(map[string]bool, len(a.IDs))
		for _, id := range a.IDs {
			s.Selected[id] = true
		}
	case ValidationToggle:
		sel := make(map[string]bool, len(s.Selected)+1)
		for id := range s.Selected {
			sel[id] = true
		}
		if sel[a.ID] {
			delete(sel, a.ID)
		} else {
			sel[a.ID] = true
		}
		s.Selected = sel
	case ValidationSetActive:
		s.ActiveID = a.ID
	case ValidationSetZoom:
		s.Zoom = clamp(a.Zoom, MinZoom, MaxZoom)
	case ValidationSetPan:
		s.Pan = a.Pan
	case ValidationAddDecision:
		if s.Session == nil {
			return s
		}
		sess := *s.Session
		sess.Decisions = append(slices.Clip(sess.Decisions), a.Decision)
		sess.Progress.Validated++
		switch a.Decision.Decision {
		case DecisionApprove:
			sess.Progress.Approved++
		case DecisionReject:
			sess.Progress.Rejected++
		}
		s.Session = &sess
		s.UnsavedChanges = true
	case ValidationSetLoading:
		s.Loading = a.Loading
	case ValidationSave:
		s.UnsavedChanges = false
	case ValidationReset:
		return NewValidationState(0)
	}
	return s
}

// SelectedIDs returns the selected submission IDs in sorted order.
func (s ValidationState) SelectedIDs() []string {
	ids := make([]string, 0, len(s.Selected))
	for id := range s.Selected {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
