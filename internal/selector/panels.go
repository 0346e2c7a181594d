package selector

import "sync"

// Panel identifies one of the two currency-picker surfaces.
type Panel int

const (
	PanelNone Panel = iota
	PanelDesktop
	PanelMobile
)

func (p Panel) String() string {
	switch p {
	case PanelDesktop:
		return "desktop"
	case PanelMobile:
		return "mobile"
	default:
		return "none"
	}
}

// PanelGroup coordinates the mutually exclusive desktop and mobile pickers:
// opening one force-closes the other, and a dismiss input (outside click,
// escape key) closes whichever is open.
type PanelGroup struct {
	mu   sync.Mutex
	open Panel
}

func NewPanelGroup() *PanelGroup {
	return &PanelGroup{open: PanelNone}
}

// Open opens the given panel, closing any other. It returns the panel now
// open.
func (g *PanelGroup) Open(panel Panel) Panel {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.open = panel
	return g.open
}

// Toggle opens the panel if it is closed and closes it if it is open,
// returning the panel now open.
func (g *PanelGroup) Toggle(panel Panel) Panel {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.open == panel {
		g.open = PanelNone
	} else {
		g.open = panel
	}
	return g.open
}

// Dismiss closes whichever panel is open.
func (g *PanelGroup) Dismiss() {
	g.mu.Lock()
	g.open = PanelNone
	g.mu.Unlock()
}

// Current returns the open panel, PanelNone when both are closed.
func (g *PanelGroup) Current() Panel {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.open
}
