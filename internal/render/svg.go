package render

import (
	"errors"
	"io"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

var ErrNoSVG = errors.New("render: output has no svg element")

// ViewBox holds the width and height parts of an svg viewBox.
type ViewBox struct {
	Width  float64
	Height float64
}

// ParseViewBox reads "minX minY width height" (comma or space separated).
// Missing or malformed parts come back as zero.
func ParseViewBox(raw string) ViewBox {
	parts := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ' ' || r == ',' || r == '\t' || r == '\n'
	})
	if len(parts) < 4 {
		return ViewBox{}
	}
	w, _ := strconv.ParseFloat(parts[2], 64)
	h, _ := strconv.ParseFloat(parts[3], 64)
	return ViewBox{Width: w, Height: h}
}

// svg element and attribute names are case sensitive but the tokenizer
// lowercases them.
var svgNameCase = map[string]string{
	"clippath":            "clipPath",
	"foreignobject":       "foreignObject",
	"lineargradient":      "linearGradient",
	"radialgradient":      "radialGradient",
	"textpath":            "textPath",
	"viewbox":             "viewBox",
	"preserveaspectratio": "preserveAspectRatio",
	"markerwidth":         "markerWidth",
	"markerheight":        "markerHeight",
	"markerunits":         "markerUnits",
	"refx":                "refX",
	"refy":                "refY",
	"gradientunits":       "gradientUnits",
	"gradienttransform":   "gradientTransform",
	"clippathunits":       "clipPathUnits",
	"patternunits":        "patternUnits",
	"textlength":          "textLength",
	"lengthadjust":        "lengthAdjust",
	"startoffset":         "startOffset",
}

// fitSVG rewrites the first svg start tag so it carries an explicit height
// taken from its viewBox when none is set, and anchors scaling to the top
// left. Case-sensitive svg names are restored on every tag so the markup
// stands alone as svg.
func fitSVG(markup string) (string, ViewBox, error) {
	z := html.NewTokenizer(strings.NewReader(markup))
	var out strings.Builder
	var box ViewBox
	found := false
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			if err := z.Err(); err != nil && err != io.EOF {
				return "", ViewBox{}, err
			}
			break
		}
		if tt != html.StartTagToken && tt != html.SelfClosingTagToken && tt != html.EndTagToken {
			out.Write(z.Raw())
			continue
		}
		raw := string(z.Raw())
		tok := z.Token()
		if !found && tt != html.EndTagToken && tok.Data == "svg" {
			found = true
			box = rewriteSVGTag(&tok)
			out.WriteString(tok.String())
			continue
		}
		if !restoreCase(&tok) {
			out.WriteString(raw)
			continue
		}
		out.WriteString(tok.String())
	}
	if !found {
		return "", ViewBox{}, ErrNoSVG
	}
	return out.String(), box, nil
}

// restoreCase reports whether any name in tok was rewritten.
func restoreCase(tok *html.Token) bool {
	changed := false
	if name, ok := svgNameCase[tok.Data]; ok {
		tok.Data = name
		changed = true
	}
	for i, a := range tok.Attr {
		if k, ok := svgNameCase[a.Key]; ok {
			tok.Attr[i].Key = k
			changed = true
		}
	}
	return changed
}

func rewriteSVGTag(tok *html.Token) ViewBox {
	var box ViewBox
	hasHeight := false
	attrs := make([]html.Attribute, 0, len(tok.Attr)+2)
	for _, a := range tok.Attr {
		switch a.Key {
		case "viewbox":
			box = ParseViewBox(a.Val)
		case "height":
			hasHeight = true
		case "preserveaspectratio":
			continue
		}
		if k, ok := svgNameCase[a.Key]; ok {
			a.Key = k
		}
		attrs = append(attrs, a)
	}
	if !hasHeight && box.Height > 0 {
		attrs = append(attrs, html.Attribute{Key: "height", Val: strconv.FormatFloat(box.Height, 'f', -1, 64)})
	}
	attrs = append(attrs, html.Attribute{Key: "preserveAspectRatio", Val: "xMinYMin"})
	tok.Attr = attrs
	return box
}
