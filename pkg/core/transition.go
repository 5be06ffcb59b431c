// pkg/core/transition.go
package core

import "time"

// Cause names the input that produced a Transition.
type Cause string

const (
	CauseRender        Cause = "render"
	CauseMouseOver     Cause = "mouseover"
	CauseMouseOut      Cause = "mouseout"
	CauseProxyOver     Cause = "proxy_mouseover"
	CauseProxyOut      Cause = "proxy_mouseout"
	CauseClick         Cause = "click"
	CauseSpiderfy      Cause = "spiderfy"
	CauseUnspiderfy    Cause = "unspiderfy"
	CauseDocumentClick Cause = "document_click"
	CauseDestroy       Cause = "destroy"
)

// Transition records one visual change applied to a marker.
type Transition struct {
	ID          uint
	SessionID   string
	Time        time.Time
	MarkerIndex int
	Position    Position // label position, which moves while spiderfied
	Cause       Cause
	State       string
	GroupState  string
	ZIndex      int
	LabelClass  string
	Flags       []string
}

// Session groups the transitions of one coordinator lifetime.
type Session struct {
	ID        string
	StartedAt time.Time
	EndedAt   time.Time
	Source    string // what drove the session, e.g. a replay script path
	Markers   int
}
