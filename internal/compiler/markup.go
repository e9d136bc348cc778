package compiler

import (
	"strings"

	"github.com/livetemplate/demobox/internal/attrs"
	"github.com/livetemplate/demobox/internal/config"
)

// markup emits the fragment for d. The fragment never contains a blank line
// outside highlighted markup, so Markdown keeps it as one HTML block.
func (c *Compiler) markup(d *demo) string {
	var b strings.Builder
	key := d.placeholder

	if !d.ssg {
		b.WriteString("<" + d.placeholderC + ` v-show="` + key + `" />` + "\n")
		b.WriteString("<ClientOnly>\n")
	}

	b.WriteString("<" + d.wrapperName + "\n")
	if !d.ssg {
		attr(&b, "v-show", "!"+key)
	}
	b.WriteString("  v-bind='" + strings.ReplaceAll(d.attrs.RestJSON(), "'", "&#39;") + "'\n")
	attr(&b, "stackblitz", EncodeComponent(c.cfg.Platform(config.Stackblitz, d.attrs)))
	attr(&b, "codesandbox", EncodeComponent(c.cfg.Platform(config.Codesandbox, d.attrs)))
	attr(&b, "files", EncodeComponent(d.files))
	attr(&b, "codeHighlights", EncodeComponent(d.highlights))
	attr(&b, "codeHighlightDomKeys", EncodeComponent(d.domKeys))
	attr(&b, "locale", c.locale(d))
	if !d.ssg {
		attr(&b, "@mount", "() => { "+key+" = false; }")
	}
	for _, t := range []attrs.ComponentType{attrs.HTML, attrs.Vue, attrs.React} {
		if v := d.codeVars[t]; v != "" {
			attr(&b, ":"+string(t)+"Code", v)
		}
	}
	if binding := d.bindings[attrs.React]; binding != "" {
		attr(&b, ":reactComponent", binding)
		attr(&b, ":reactCreateRoot", "reactCreateRoot")
		attr(&b, ":reactCreateElement", "reactCreateElement")
		attr(&b, ":reactUseLayoutEffect", "reactUseLayoutEffect")
	}
	b.WriteString(">\n")

	if binding := d.bindings[attrs.Vue]; binding != "" {
		b.WriteString(`<template v-if="` + binding + `" #vue>`)
		b.WriteString("<" + binding)
		if !d.ssg {
			b.WriteString(` @vue:mounted="() => { ` + key + ` = false; }"`)
		}
		b.WriteString("></" + binding + "></template>\n")
	}
	for _, t := range attrs.ComponentTypes {
		if slot := d.slots[t]; slot != "" {
			b.WriteString("<template #code-" + string(t) + "><div v-pre>" + strings.TrimRight(slot, "\n") + "</div></template>\n")
		}
	}

	b.WriteString("</" + d.wrapperName + ">\n")
	if !d.ssg {
		b.WriteString("</ClientOnly>\n")
	}
	for _, s := range d.stash {
		b.WriteString(`<div id="` + s.id + `" style="display:none" v-pre>` + strings.TrimRight(s.html, "\n") + "</div>\n")
	}
	return b.String()
}

func attr(b *strings.Builder, name, value string) {
	b.WriteString("  " + name + `="` + value + `"` + "\n")
}
