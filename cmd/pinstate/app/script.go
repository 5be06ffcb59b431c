package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/pinmap/pinstate/pkg/core"
)

// Script actions.
const (
	ActionMouseOver      = "mouseover"
	ActionMouseOut       = "mouseout"
	ActionClick          = "click"
	ActionProxyOver      = "proxy_mouseover"
	ActionProxyOut       = "proxy_mouseout"
	ActionDocumentClick  = "document_click"
	ActionMapClick       = "map_click"
	ActionClickedPopover = "click_popover"
	ActionRender         = "render"
	ActionDestroy        = "destroy"
)

var errUnknownAction = errors.New("unknown action")

// Step is one scripted interaction. Marker is the input index the action
// targets; it is ignored by document and map actions.
type Step struct {
	Action string `json:"action"`
	Marker int    `json:"marker"`
}

// Script is an ordered list of interactions.
type Script struct {
	Steps []Step `json:"steps"`
}

// Validate rejects unknown actions. Marker indices are not checked: an index
// with no marker is a silent no-op, the same as in a browser.
func (s Script) Validate() error {
	for i, st := range s.Steps {
		switch st.Action {
		case ActionMouseOver, ActionMouseOut, ActionClick,
			ActionProxyOver, ActionProxyOut,
			ActionDocumentClick, ActionMapClick, ActionClickedPopover,
			ActionRender, ActionDestroy:
		default:
			return fmt.Errorf("step %d: %w %q", i, errUnknownAction, st.Action)
		}
	}
	return nil
}

// LoadScript reads and validates a JSON script.
func LoadScript(path string) (Script, error) {
	var s Script
	if err := readJSON(path, &s); err != nil {
		return Script{}, fmt.Errorf("reading script: %w", err)
	}
	if err := s.Validate(); err != nil {
		return Script{}, err
	}
	return s, nil
}

// LoadPoints reads a JSON array of point records.
func LoadPoints(path string) ([]core.PointRecord, error) {
	var points []core.PointRecord
	if err := readJSON(path, &points); err != nil {
		return nil, fmt.Errorf("reading points: %w", err)
	}
	return points, nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}
