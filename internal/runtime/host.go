// Package runtime drives a rendered demo box: tab selection, active file,
// highlighted code recovery and preview mounting.
//
// The controller is written against a Host so the same state machine runs
// behind a browser bridge or headless over a parsed HTML document. Like the
// browser event loop it models, a Controller is not safe for concurrent use:
// every method and every scheduled callback must run on one goroutine.
package runtime

import "github.com/livetemplate/demobox/internal/attrs"

// Event is something a controller reports to its host.
type Event string

const (
	// EventMount fires once a preview has rendered.
	EventMount Event = "mount"
	// EventCopy fires after the current code was copied.
	EventCopy Event = "copy"
	// EventRecompute asks type-hint popups to re-measure after the visible
	// code changed.
	EventRecompute Event = "vitepress:codeGroupTabActivate"
)

// Scheduler defers work the way a browser does.
type Scheduler interface {
	// NextTick runs fn after the host has committed pending rendering.
	NextTick(fn func())
	// RequestAnimationFrame runs fn before the next repaint.
	RequestAnimationFrame(fn func())
}

// Stash hands over pre-rendered markup stored in hidden nodes.
type Stash interface {
	// Take returns the inner markup of the node with id and removes the
	// node. It returns "" when no such node exists.
	Take(id string) string
}

// Page is the document hosting the demo.
type Page interface {
	// RootClass is the class attribute of the root element.
	RootClass() string
	// HeadAssets returns the inline style texts and the outer markup of
	// stylesheet and font links in the document head.
	HeadAssets() (styles, links []string)
}

// Frame is the iframe an HTML preview renders into.
type Frame interface {
	// Write replaces the frame document directly. It reports false when
	// direct writes are unsupported.
	Write(doc string) bool
	// SetSrcdoc assigns the frame source; onload runs once it has loaded.
	SetSrcdoc(doc string, onload func())
	// ContentHeight returns the height of the frame document. ok is false
	// while no document is available.
	ContentHeight() (px int, ok bool)
	// SetHeight sizes the frame and its container.
	SetHeight(px int)
	// SetRootClass sets the class of the frame's root element.
	SetRootClass(class string)
}

// ReactRoot is a mounted React root.
type ReactRoot interface {
	// Render renders component through a bridge that calls onReady after
	// layout.
	Render(component any, onReady func()) error
	Unmount()
}

// ReactBridge creates React roots in the preview container.
type ReactBridge interface {
	CreateRoot() (ReactRoot, error)
}

// Clipboard receives copied code.
type Clipboard interface {
	WriteText(text string) error
}

// Opener opens links.
type Opener interface {
	Open(url, target string)
}

// Host bundles what the controller may touch. Nil members are treated as
// unavailable; a nil Scheduler behaves like Headless.
type Host struct {
	Scheduler Scheduler
	Stash     Stash
	Page      Page
	Frame     Frame
	React     ReactBridge
	Clipboard Clipboard
	Opener    Opener
	Emit      func(Event)
}

// Headless runs next-tick work immediately and never paints a frame.
type Headless struct{}

// NextTick implements Scheduler.
func (Headless) NextTick(fn func()) { fn() }

// RequestAnimationFrame implements Scheduler. Frames never fire.
func (Headless) RequestAnimationFrame(func()) {}

// defaultOrder is the tab order when the order prop is empty.
var defaultOrder = []attrs.ComponentType{attrs.Vue, attrs.React, attrs.HTML}
