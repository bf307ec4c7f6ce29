// Package sanitize builds the markup policy applied to engine output before
// it reaches the host page.
package sanitize

import (
	"regexp"

	"github.com/aymerick/douceur/inliner"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog/log"
)

// AllowedTags are the HTML elements kept alongside the svg profile.
// foreignObject carries node labels and links.
var AllowedTags = []string{
	"a", "b", "blockquote", "br", "dd", "div", "dl", "dt", "em",
	"foreignObject",
	"h1", "h2", "h3", "h4", "h5", "h6", "h7", "h8",
	"hr", "i", "li", "ul", "ol", "p", "pre", "span", "strike", "strong",
	"table", "tbody", "td", "tfoot", "th", "thead", "tr",
}

// ExtraAttribute is allowed on every element in addition to the profile.
const ExtraAttribute = "transform-origin"

var svgElements = []string{
	"svg", "g", "defs", "marker", "path", "rect", "circle", "ellipse",
	"line", "polyline", "polygon", "text", "tspan", "title", "desc",
	"clipPath", "linearGradient", "radialGradient", "stop", "symbol",
}

var svgAttributes = []string{
	"id", "class", "role", "xmlns", "viewBox", "width", "height",
	"x", "y", "x1", "x2", "y1", "y2", "cx", "cy", "r", "rx", "ry",
	"d", "points", "transform", "fill", "fill-opacity", "stroke",
	"stroke-width", "stroke-dasharray", "stroke-linecap", "stroke-linejoin",
	"opacity", "marker-start", "marker-end", "markerWidth", "markerHeight",
	"markerUnits", "refX", "refY", "orient", "offset", "stop-color",
	"text-anchor", "dominant-baseline", "alignment-baseline", "font-size",
	"font-family", "font-weight", "dx", "dy", "preserveAspectRatio",
	"aria-roledescription", "aria-labelledby", "aria-describedby",
}

// Style values are lowercased before matching. Parentheses are only allowed
// in colour functions and fragment references, which keeps out expression()
// and url(javascript:...).
var (
	paintValue  = regexp.MustCompile(`^(#[0-9a-f]{3,8}|[a-z]+|(rgb|rgba|hsl|hsla)\([0-9.,%\s]+\)|url\(#[a-z0-9_-]+\))(\s*!important)?$`)
	lengthValue = regexp.MustCompile(`^-?[0-9.]+(px|em|rem|pt|%)?(\s*!important)?$`)
	dashValue   = regexp.MustCompile(`^(none|[0-9.,\s]+(px)?)(\s*!important)?$`)
	fontValue   = regexp.MustCompile(`^[a-z0-9 ,"'_-]+(\s*!important)?$`)
	keywordVal  = regexp.MustCompile(`^[a-z-]+(\s*!important)?$`)
)

// Policy is a reusable, concurrency-safe sanitizer.
type Policy struct {
	policy *bluemonday.Policy
}

func New() *Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements(svgElements...)
	p.AllowElements(AllowedTags...)
	p.AllowNoAttrs().OnElements(svgElements...)
	p.AllowNoAttrs().OnElements(AllowedTags...)
	p.AllowAttrs(svgAttributes...).Globally()
	p.AllowAttrs(ExtraAttribute).Globally()
	p.AllowStandardURLs()
	p.AllowAttrs("href").OnElements("a")
	p.RequireNoFollowOnLinks(true)

	p.AllowStyles("fill", "stroke", "stop-color", "color", "background-color").Matching(paintValue).Globally()
	p.AllowStyles("stroke-width", "font-size", "max-width", "line-height", "padding").Matching(lengthValue).Globally()
	p.AllowStyles("stroke-dasharray").Matching(dashValue).Globally()
	p.AllowStyles("font-family").Matching(fontValue).Globally()
	p.AllowStyles("font-weight", "font-style", "text-anchor", "dominant-baseline",
		"text-align", "white-space", "stroke-linecap", "stroke-linejoin").Matching(keywordVal).Globally()
	p.AllowStyles("opacity", "fill-opacity", "stroke-opacity").Matching(lengthValue).Globally()
	p.AllowStyles("display").Globally()
	return &Policy{policy: p}
}

// Sanitize folds embedded <style> rules into style attributes and then
// applies the policy. <style> elements never survive, so the inline
// declarations are all that is left of the diagram's theme.
func (p *Policy) Sanitize(markup string) string {
	inlined, err := inliner.Inline(markup)
	if err != nil {
		log.Debug().Err(err).Msg("css inlining failed, sanitizing without embedded styles")
		inlined = markup
	}
	return p.policy.Sanitize(inlined)
}
