package annotator

import (
	"encoding/json"
	"fmt"
)

// scriptStep is a single action in an interaction script.
type scriptStep struct {
	Action    string   `json:"action"`
	X         float64  `json:"x,omitempty"`
	Y         float64  `json:"y,omitempty"`
	FromX     float64  `json:"fromX,omitempty"`
	FromY     float64  `json:"fromY,omitempty"`
	ToX       float64  `json:"toX,omitempty"`
	ToY       float64  `json:"toY,omitempty"`
	Frames    int      `json:"frames,omitempty"`
	Delta     float64  `json:"delta,omitempty"`
	Button    string   `json:"button,omitempty"`
	Modifiers []string `json:"modifiers,omitempty"`
	Key       string   `json:"key,omitempty"`
	Up        bool     `json:"up,omitempty"`
	Label     string   `json:"label,omitempty"`
}

type script struct {
	Steps []scriptStep `json:"steps"`
}

// ScriptRunner replays a JSON interaction script through the canvas inject
// queue. Attach with Canvas.SetScript.
type ScriptRunner struct {
	steps     []scriptStep
	cursor    int
	waitCount int
	done      bool
}

var scriptActions = map[string]bool{
	"press": true, "move": true, "release": true, "click": true, "drag": true,
	"wheel": true, "key": true, "leave": true, "wait": true, "screenshot": true,
}

// LoadScript parses a JSON script of the form
//
//	{"steps": [{"action": "drag", "fromX": 100, "fromY": 80, "toX": 10, "toY": 10, "frames": 5}]}
//
// Actions: press, move, release, click, drag, wheel, key, leave, wait and
// screenshot.
func LoadScript(jsonData []byte) (*ScriptRunner, error) {
	var s script
	if err := json.Unmarshal(jsonData, &s); err != nil {
		return nil, fmt.Errorf("parse script: %w", err)
	}
	if len(s.Steps) == 0 {
		return nil, fmt.Errorf("parse script: no steps")
	}
	for i, st := range s.Steps {
		if !scriptActions[st.Action] {
			return nil, fmt.Errorf("parse script: step %d: unknown action %q", i, st.Action)
		}
		if _, err := parseButton(st.Button); err != nil {
			return nil, fmt.Errorf("parse script: step %d: %w", i, err)
		}
		if _, err := parseModifiers(st.Modifiers); err != nil {
			return nil, fmt.Errorf("parse script: step %d: %w", i, err)
		}
		if st.Action == "key" {
			if _, ok := parseKey(st.Key); !ok {
				return nil, fmt.Errorf("parse script: step %d: unknown key %q", i, st.Key)
			}
		}
	}
	return &ScriptRunner{steps: s.Steps}, nil
}

// SetScript attaches a runner. Its steps are fed from Update, one step per
// frame once the inject queue has drained.
func (c *Canvas) SetScript(r *ScriptRunner) {
	c.script = r
}

// Done reports whether every step has been executed.
func (r *ScriptRunner) Done() bool {
	return r.done
}

func (r *ScriptRunner) step(c *Canvas) {
	if r.done {
		return
	}
	// Wait for pending injections to drain before advancing.
	if len(c.injectQueue) > 0 {
		return
	}
	if r.waitCount > 0 {
		r.waitCount--
		return
	}
	if r.cursor >= len(r.steps) {
		r.done = true
		return
	}

	st := r.steps[r.cursor]
	r.cursor++

	// Validated by LoadScript.
	button, _ := parseButton(st.Button)
	mods, _ := parseModifiers(st.Modifiers)

	switch st.Action {
	case "press":
		c.InjectPress(st.X, st.Y, button, mods)
	case "move":
		c.InjectMove(st.X, st.Y)
	case "release":
		c.InjectRelease(st.X, st.Y, button)
	case "click":
		c.InjectClick(st.X, st.Y, mods)
	case "drag":
		c.InjectDrag(st.FromX, st.FromY, st.ToX, st.ToY, st.Frames)
	case "wheel":
		c.InjectWheel(st.X, st.Y, st.Delta)
	case "key":
		key, _ := parseKey(st.Key)
		c.InjectKey(key, !st.Up)
	case "leave":
		c.InjectLeave()
	case "screenshot":
		c.Screenshot(st.Label)
	case "wait":
		if st.Frames > 0 {
			r.waitCount = st.Frames - 1 // this frame counts as one
		}
	}

	if r.cursor >= len(r.steps) && r.waitCount == 0 && len(c.injectQueue) == 0 {
		r.done = true
	}
}

func parseButton(s string) (MouseButton, error) {
	switch s {
	case "", "left":
		return MouseButtonLeft, nil
	case "right":
		return MouseButtonRight, nil
	case "middle":
		return MouseButtonMiddle, nil
	}
	return 0, fmt.Errorf("unknown button %q", s)
}

func parseModifiers(names []string) (KeyModifiers, error) {
	var mods KeyModifiers
	for _, n := range names {
		switch n {
		case "shift":
			mods |= ModShift
		case "ctrl":
			mods |= ModCtrl
		case "alt":
			mods |= ModAlt
		case "meta":
			mods |= ModMeta
		default:
			return 0, fmt.Errorf("unknown modifier %q", n)
		}
	}
	return mods, nil
}
