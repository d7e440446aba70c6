package annotator

import "fmt"

// Phase is a stage of the annotation workflow. Phases are assigned from
// outside the canvas; they decide which tools may be used.
type Phase uint8

const (
	PhaseLabel        Phase = iota // whole-image labels
	PhaseBBox                      // bounding boxes
	PhaseSegmentation              // polygon masks
	PhaseValidation                // reviewers validate submissions; no annotation
	PhaseCompleted                 // challenge closed
)

// phaseOrder is the fixed order NextAvailablePhase scans.
var phaseOrder = [...]Phase{PhaseLabel, PhaseBBox, PhaseSegmentation, PhaseValidation, PhaseCompleted}

var phaseNames = [...]string{"label", "bbox", "segmentation", "validation", "completed"}

func (p Phase) String() string {
	if int(p) < len(phaseNames) {
		return phaseNames[p]
	}
	return fmt.Sprintf("Phase(%d)", p)
}

// ParsePhase converts a phase name to a Phase.
func ParsePhase(s string) (Phase, error) {
	for i, name := range phaseNames {
		if name == s {
			return Phase(i), nil
		}
	}
	return 0, fmt.Errorf("unknown phase %q", s)
}

// Tool is an annotation tool a user can activate.
type Tool uint8

const (
	ToolNone         Tool = iota // no tool active
	ToolLabel                    // label annotations
	ToolBBox                     // draw and edit bounding boxes
	ToolSegmentation             // select and edit masks
)

var toolNames = [...]string{"none", "label", "bbox", "segmentation"}

func (t Tool) String() string {
	if int(t) < len(toolNames) {
		return toolNames[t]
	}
	return fmt.Sprintf("Tool(%d)", t)
}

// ParseTool converts a tool name to a Tool.
func ParseTool(s string) (Tool, error) {
	for i, name := range toolNames {
		if name == s && i != int(ToolNone) {
			return Tool(i), nil
		}
	}
	return ToolNone, fmt.Errorf("unknown tool %q", s)
}

// PhaseConstraints describes what a phase permits.
type PhaseConstraints struct {
	AllowedTools []Tool
	Message      string
	Description  string
}

// Tools unlock cumulatively: every phase keeps the tools of the phases
// before it until validation closes annotation entirely.
var phaseConstraints = [...]PhaseConstraints{
	PhaseLabel: {
		AllowedTools: []Tool{ToolLabel},
		Message:      "Label Phase: Only label annotations are allowed",
		Description:  "In the label phase, you can only add text labels to identify entities in the image. Bounding box and segmentation tools will be available in later phases.",
	},
	PhaseBBox: {
		AllowedTools: []Tool{ToolLabel, ToolBBox},
		Message:      "BBox Phase: Label and bounding box annotations are allowed",
		Description:  "In the bounding box phase, you can draw bounding boxes around entities and keep adding labels. Segmentation will be available in the next phase.",
	},
	PhaseSegmentation: {
		AllowedTools: []Tool{ToolLabel, ToolBBox, ToolSegmentation},
		Message:      "Segmentation Phase: All annotation tools are allowed",
		Description:  "In the segmentation phase, you can select precise segmentation masks in addition to labels and bounding boxes.",
	},
	PhaseValidation: {
		Message:     "Validation Phase: Annotation is disabled during validation",
		Description: "The challenge is currently in the validation phase. New annotations cannot be added while validators review submissions.",
	},
	PhaseCompleted: {
		Message:     "Challenge Completed: Annotation is no longer available",
		Description: "This challenge has been completed. No new annotations can be added.",
	},
}

// ConstraintsFor returns the constraints of phase. Unknown phases allow nothing.
func ConstraintsFor(phase Phase) PhaseConstraints {
	if int(phase) < len(phaseConstraints) {
		return phaseConstraints[phase]
	}
	return PhaseConstraints{}
}

// AllowedTools returns a copy of the tools phase permits.
func AllowedTools(phase Phase) []Tool {
	return append([]Tool(nil), ConstraintsFor(phase).AllowedTools...)
}

// IsToolAllowed reports whether tool may be used during phase.
func IsToolAllowed(phase Phase, tool Tool) bool {
	for _, t := range ConstraintsFor(phase).AllowedTools {
		if t == tool {
			return true
		}
	}
	return false
}

var toolTitles = map[Tool]string{
	ToolLabel:        "Label annotation",
	ToolBBox:         "Bounding box annotation",
	ToolSegmentation: "Segmentation annotation",
}

// DisallowedMessage explains why tool cannot be used during phase. It
// returns "" when the tool is allowed.
func DisallowedMessage(phase Phase, tool Tool) string {
	if IsToolAllowed(phase, tool) {
		return ""
	}
	switch phase {
	case PhaseLabel:
		switch tool {
		case ToolBBox:
			return "Bounding box annotation will be available in the BBox phase"
		case ToolSegmentation:
			return "Segmentation annotation will be available in the Segmentation phase"
		}
	case PhaseBBox:
		if tool == ToolSegmentation {
			return "Segmentation annotation will be available in the Segmentation phase"
		}
	case PhaseValidation:
		return "New annotations cannot be added during validation phase"
	case PhaseCompleted:
		return "This challenge has been completed"
	}
	title, ok := toolTitles[tool]
	if !ok {
		title = tool.String()
	}
	return fmt.Sprintf("%s is not available in the %s phase", title, phase)
}

// NextAvailablePhase returns the first phase after current that allows tool.
// The boolean is false when no later phase does.
func NextAvailablePhase(current Phase, tool Tool) (Phase, bool) {
	idx := -1
	for i, p := range phaseOrder {
		if p == current {
			idx = i
			break
		}
	}
	if idx < 0 {
		return 0, false
	}
	for _, p := range phaseOrder[idx+1:] {
		if IsToolAllowed(p, tool) {
			return p, true
		}
	}
	return 0, false
}

// ToolError is returned when a tool is activated outside the phases that
// allow it.
type ToolError struct {
	Phase   Phase
	Tool    Tool
	Message string
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("tool %s not allowed in %s phase: %s", e.Tool, e.Phase, e.Message)
}
