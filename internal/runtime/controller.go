package runtime

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/livetemplate/demobox/internal/attrs"
	"github.com/livetemplate/demobox/internal/compiler"
	"github.com/livetemplate/demobox/internal/config"
	"github.com/livetemplate/demobox/internal/security"
)

// ErrNoClipboard is returned by Copy when the host has no clipboard.
var ErrNoClipboard = errors.New("runtime: no clipboard available")

// Controller is the state machine behind one demo box.
type Controller struct {
	props Props
	host  Host

	files      compiler.Files
	domKeys    compiler.LangMap
	highlights compiler.LangMap

	inlineHTML map[attrs.ComponentType]string
	fileHTML   map[attrs.ComponentType]map[string]string

	typ        attrs.ComponentType
	activeFile string
	folded     bool

	mounted bool
	loop    *FrameLoop
	root    ReactRoot
}

// New returns a controller for props. Nothing touches the host until Mount.
func New(props Props, host Host) *Controller {
	if host.Scheduler == nil {
		host.Scheduler = Headless{}
	}
	c := &Controller{
		props:      props,
		host:       host,
		inlineHTML: make(map[attrs.ComponentType]string),
		fileHTML:   make(map[attrs.ComponentType]map[string]string),
		typ:        attrs.Vue,
		folded:     true,
	}
	if props.CodeFold != nil {
		c.folded = *props.CodeFold
	}
	compiler.DecodeComponent(props.Files, &c.files)
	compiler.DecodeComponent(props.CodeHighlightDomKeys, &c.domKeys)
	compiler.DecodeComponent(props.CodeHighlights, &c.highlights)

	if props.Select != "" && props.Code(props.Select) != "" {
		c.typ = props.Select
	}
	if c.props.Code(c.typ) == "" {
		if tabs := c.Tabs(); len(tabs) > 0 {
			c.typ = tabs[0]
		}
	}
	c.syncActiveFile()
	return c
}

// Mount starts the controller: it recovers stashed highlights and renders
// the preview of the initial tab.
func (c *Controller) Mount() {
	if c.mounted {
		return
	}
	c.mounted = true
	c.syncDomHighlights()
	c.enter(c.typ)
}

// Unmount releases the React root and stops the HTML preview loop.
func (c *Controller) Unmount() {
	if c.root != nil {
		c.root.Unmount()
		c.root = nil
	}
	c.loop.Cancel()
	c.loop = nil
	c.mounted = false
}

// Type returns the selected language tab.
func (c *Controller) Type() attrs.ComponentType { return c.typ }

// ActiveFile returns the selected file of the current tab, or "".
func (c *Controller) ActiveFile() string { return c.activeFile }

// Folded reports whether the code panel is folded.
func (c *Controller) Folded() bool { return c.folded }

// Tabs returns the languages that have inline code or extra files, sorted by
// the order prop.
func (c *Controller) Tabs() []attrs.ComponentType {
	var tabs []attrs.ComponentType
	for _, t := range defaultOrder {
		if c.props.Code(t) != "" || len(*c.files.For(t)) > 0 {
			tabs = append(tabs, t)
		}
	}
	order := c.props.order()
	rank := func(t attrs.ComponentType) int {
		for i, o := range order {
			if o == t {
				return i
			}
		}
		return -1
	}
	sort.SliceStable(tabs, func(i, j int) bool { return rank(tabs[i]) < rank(tabs[j]) })
	return tabs
}

// CurrentFiles returns the file map of the current tab.
func (c *Controller) CurrentFiles() compiler.FileMap {
	return *c.files.For(c.typ)
}

// CurrentCode returns the source shown in the code panel.
func (c *Controller) CurrentCode() string {
	if f, ok := c.CurrentFiles().Get(c.activeFile); ok {
		return f.Code
	}
	return c.props.Code(c.typ)
}

// CurrentCodeHTML returns the highlighted markup of the code panel. A file
// uses its inline markup, then its recovered stash. Inline code uses its
// slot, then its recovered stash, then the encoded highlight map.
func (c *Controller) CurrentCodeHTML() string {
	if f, ok := c.CurrentFiles().Get(c.activeFile); ok {
		if f.HTML != "" {
			return f.HTML
		}
		return c.fileHTML[c.typ][c.activeFile]
	}
	if slot := c.CodeSlot(c.typ); slot != "" {
		return slot
	}
	if html := c.inlineHTML[c.typ]; html != "" {
		return html
	}
	return c.highlights.Get(c.typ)
}

// CodeSlot returns the type-hint slot markup for t.
func (c *Controller) CodeSlot(t attrs.ComponentType) string {
	return c.props.Slots[t]
}

// Stackblitz returns the decoded StackBlitz settings.
func (c *Controller) Stackblitz() config.Platform {
	var p config.Platform
	compiler.DecodeComponent(c.props.Stackblitz, &p)
	return p
}

// Codesandbox returns the decoded CodeSandbox settings.
func (c *Controller) Codesandbox() config.Platform {
	var p config.Platform
	compiler.DecodeComponent(c.props.Codesandbox, &p)
	return p
}

// Locale returns the decoded UI string table, or nil.
func (c *Controller) Locale() config.Locale {
	var l config.Locale
	if !compiler.DecodeComponent(c.props.Locale, &l) {
		return nil
	}
	return l
}

// SetType switches the language tab. Switching to a language without
// content is ignored.
func (c *Controller) SetType(t attrs.ComponentType) {
	if t == c.typ || (c.props.Code(t) == "" && len(*c.files.For(t)) == 0) {
		return
	}
	c.typ = t
	c.syncActiveFile()
	if c.mounted {
		c.enter(t)
	}
	c.recompute()
}

// SetActiveFile selects a file of the current tab.
func (c *Controller) SetActiveFile(name string) {
	if name == c.activeFile {
		return
	}
	if _, ok := c.CurrentFiles().Get(name); !ok {
		return
	}
	c.activeFile = name
	c.recompute()
}

// SetCodeFold folds or unfolds the code panel.
func (c *Controller) SetCodeFold(folded bool) {
	if folded == c.folded {
		return
	}
	c.folded = folded
	c.recompute()
}

// SetFiles replaces the encoded file map and recovers any new stash nodes.
func (c *Controller) SetFiles(encoded string) {
	c.props.Files = encoded
	c.files = compiler.Files{}
	compiler.DecodeComponent(encoded, &c.files)
	c.syncActiveFile()
	if c.mounted {
		c.syncDomHighlights()
	}
}

// SetCodeHighlightDomKeys replaces the encoded stash key map and recovers
// any new stash nodes.
func (c *Controller) SetCodeHighlightDomKeys(encoded string) {
	c.props.CodeHighlightDomKeys = encoded
	c.domKeys = compiler.LangMap{}
	compiler.DecodeComponent(encoded, &c.domKeys)
	if c.mounted {
		c.syncDomHighlights()
	}
}

// SetReactCode replaces the React source; a changed, non-empty source
// re-renders the React preview.
func (c *Controller) SetReactCode(code string) {
	prev := c.props.ReactCode
	c.props.ReactCode = code
	if code != "" && code != prev && c.mounted {
		c.renderReact()
	}
}

// SetReactComponent replaces the React component and re-renders.
func (c *Controller) SetReactComponent(component any) {
	c.props.ReactComponent = component
	if c.mounted {
		c.renderReact()
	}
}

// Copy writes the current code to the clipboard.
func (c *Controller) Copy() error {
	if c.host.Clipboard == nil {
		return ErrNoClipboard
	}
	if err := c.host.Clipboard.WriteText(c.CurrentCode()); err != nil {
		return fmt.Errorf("copy code: %w", err)
	}
	c.emit(EventCopy)
	return nil
}

// OpenGithub opens the github prop in a new tab.
func (c *Controller) OpenGithub() { c.open(c.props.Github) }

// OpenGitlab opens the gitlab prop in a new tab.
func (c *Controller) OpenGitlab() { c.open(c.props.Gitlab) }

func (c *Controller) open(url string) {
	if url == "" || c.host.Opener == nil {
		return
	}
	if err := security.ValidateLinkURL(url); err != nil {
		return
	}
	c.host.Opener.Open(url, "_blank")
}

func (c *Controller) emit(e Event) {
	if c.host.Emit != nil {
		c.host.Emit(e)
	}
}

// syncActiveFile keeps activeFile pointing at a file of the current tab.
func (c *Controller) syncActiveFile() {
	files := c.CurrentFiles()
	if len(files) == 0 {
		c.activeFile = ""
		return
	}
	if _, ok := files.Get(c.activeFile); !ok {
		c.activeFile = files[0].Name
	}
}

func (c *Controller) recompute() {
	if c.folded || !c.mounted {
		return
	}
	c.host.Scheduler.NextTick(func() { c.emit(EventRecompute) })
}

func (c *Controller) enter(t attrs.ComponentType) {
	switch t {
	case attrs.HTML:
		c.renderHTML()
	case attrs.React:
		c.renderReact()
	}
}

// syncDomHighlights moves stashed markup into the in-memory caches. Keys
// already cached are never read again.
func (c *Controller) syncDomHighlights() {
	c.host.Scheduler.NextTick(func() {
		if c.host.Stash == nil {
			return
		}
		for _, t := range attrs.ComponentTypes {
			id := c.domKeys.Get(t)
			if id == "" || c.inlineHTML[t] != "" {
				continue
			}
			if html := c.host.Stash.Take(id); html != "" {
				c.inlineHTML[t] = html
			}
		}
		for _, t := range attrs.ComponentTypes {
			for _, f := range *c.files.For(t) {
				if f.File.HTMLDomKey == "" || c.fileHTML[t][f.Name] != "" {
					continue
				}
				html := c.host.Stash.Take(f.File.HTMLDomKey)
				if html == "" {
					continue
				}
				if c.fileHTML[t] == nil {
					c.fileHTML[t] = make(map[string]string)
				}
				c.fileHTML[t][f.Name] = html
			}
		}
	})
}

// renderHTML writes the HTML preview into the frame and keeps the frame
// sized to its content every animation frame.
func (c *Controller) renderHTML() {
	c.host.Scheduler.NextTick(func() {
		frame := c.host.Frame
		if !c.mounted || frame == nil || c.props.HTMLCode == "" {
			return
		}
		var styles, links []string
		if c.host.Page != nil {
			styles, links = c.host.Page.HeadAssets()
		}
		doc := PreviewDocument(c.props.HTMLCode, styles, links)

		ready := false
		markReady := func() {
			if ready {
				return
			}
			ready = true
			c.emit(EventMount)
		}
		if c.props.HTMLWriteWay != "write" || !frame.Write(doc) {
			frame.SetSrcdoc(doc, markReady)
		} else {
			markReady()
		}

		c.loop.Cancel()
		c.loop = StartFrameLoop(c.host.Scheduler, func() bool {
			height, ok := frame.ContentHeight()
			if !ok {
				return false
			}
			markReady()
			frame.SetHeight(height)
			if c.host.Page != nil {
				frame.SetRootClass(c.host.Page.RootClass())
			}
			return true
		})
	})
}

// renderReact renders the React component into a persistent root. Mount is
// reported once per render, after the bridge's layout effect.
func (c *Controller) renderReact() {
	c.host.Scheduler.NextTick(func() {
		if !c.mounted || c.props.ReactComponent == nil || c.typ != attrs.React || c.props.ReactCode == "" || c.host.React == nil {
			return
		}
		if c.root == nil {
			root, err := c.host.React.CreateRoot()
			if err != nil || root == nil {
				return
			}
			c.root = root
		}
		ready := false
		_ = c.root.Render(c.props.ReactComponent, func() {
			if ready {
				return
			}
			ready = true
			c.emit(EventMount)
		})
	})
}

// PreviewDocument builds the document an HTML preview runs in. Host styles
// are copied in so the preview matches the page theme.
func PreviewDocument(code string, styles, links []string) string {
	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"UTF-8\">\n")
	b.WriteString("<meta name=\"viewport\" content=\"width=device-width, initial-scale=1.0\">\n")
	for _, l := range links {
		b.WriteString(l + "\n")
	}
	for _, s := range styles {
		b.WriteString(`<style replace="true">` + s + "</style>\n")
	}
	b.WriteString("<style>html, body { margin: 0; padding: 0; background: transparent; }</style>\n")
	b.WriteString("</head>\n<body>\n")
	b.WriteString(code)
	b.WriteString("\n</body>\n</html>\n")
	return b.String()
}
