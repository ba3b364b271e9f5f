package htmldoc

import (
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"github.com/hazyhaar/adcover/dom"
)

// layout approximates a bounding box without a rendering engine: explicit
// pixel sizes from the inline style win over width/height attributes, and
// anything hidden by display:none (itself or an ancestor) has no box.
func layout(n *html.Node) dom.Rect {
	for p := n; p != nil; p = p.Parent {
		if p.Type != html.ElementNode {
			continue
		}
		if hasAttr(p, "hidden") || parseStyle(attr(p, "style")).get("display") == "none" {
			return dom.Rect{}
		}
	}
	st := parseStyle(attr(n, "style"))
	return dom.Rect{
		X:      pixels(st.get("left")),
		Y:      pixels(st.get("top")),
		Width:  dimension(st.get("width"), attr(n, "width")),
		Height: dimension(st.get("height"), attr(n, "height")),
	}
}

func dimension(style, attribute string) float64 {
	if v := pixels(style); v > 0 {
		return v
	}
	return pixels(attribute)
}

// pixels parses "300", "300px" or "300.5px". Relative units yield 0.
func pixels(v string) float64 {
	v = strings.TrimSpace(strings.ToLower(v))
	v = strings.TrimSuffix(v, "px")
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f < 0 {
		return 0
	}
	return f
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasAttr(n *html.Node, key string) bool {
	for _, a := range n.Attr {
		if a.Key == key {
			return true
		}
	}
	return false
}

type declaration struct {
	prop, value string
}

// declarations is an ordered inline style.
type declarations []declaration

func parseStyle(s string) declarations {
	var out declarations
	for _, part := range strings.Split(s, ";") {
		prop, value, ok := strings.Cut(part, ":")
		if !ok {
			continue
		}
		prop = strings.ToLower(strings.TrimSpace(prop))
		value = strings.TrimSpace(value)
		if prop == "" {
			continue
		}
		out.set(prop, value)
	}
	return out
}

func (ds declarations) get(prop string) string {
	for _, d := range ds {
		if d.prop == prop {
			return strings.TrimSpace(strings.TrimSuffix(d.value, "!important"))
		}
	}
	return ""
}

func (ds *declarations) set(prop, value string) {
	prop = strings.ToLower(prop)
	for i := range *ds {
		if (*ds)[i].prop == prop {
			(*ds)[i].value = value
			return
		}
	}
	*ds = append(*ds, declaration{prop: prop, value: value})
}

func (ds declarations) String() string {
	parts := make([]string, 0, len(ds))
	for _, d := range ds {
		parts = append(parts, d.prop+": "+d.value)
	}
	return strings.Join(parts, "; ")
}
