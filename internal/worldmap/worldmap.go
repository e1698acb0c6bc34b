// Package worldmap handles the SVG world map asset whose path ids must equal
// catalog ids.
package worldmap

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"world-quiz-service/internal/domain"
)

// ErrInvalidAsset is returned when the map cannot be parsed as SVG.
var ErrInvalidAsset = errors.New("invalid map asset")

// Style is the fill/stroke applied to a path.
type Style struct {
	Fill        string
	Stroke      string
	StrokeWidth string
}

// Styles maps each paint to its rendering. Paths whose id is not a catalog id
// keep the neutral style.
var Styles = map[domain.Paint]Style{
	domain.PaintFound:   {Fill: "#22c55e", Stroke: "#16a34a", StrokeWidth: "1.5"},
	domain.PaintMissed:  {Fill: "#ef4444", Stroke: "#dc2626", StrokeWidth: "1"},
	domain.PaintNeutral: {Fill: "#e0e0e0", Stroke: "#999", StrokeWidth: "0.5"},
}

// Asset is a parsed map: raw SVG bytes plus the set of path ids.
type Asset struct {
	raw   []byte
	ids   []string
	idset map[string]struct{}
}

// LoadFile reads and parses an SVG file.
func LoadFile(path string) (*Asset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Load(f)
}

// Load parses an SVG document and collects the ids of its <path> elements.
func Load(r io.Reader) (*Asset, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	a := &Asset{raw: raw, idset: make(map[string]struct{})}

	sawSVG := false
	dec := xml.NewDecoder(bytes.NewReader(raw))
	dec.Strict = false
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidAsset, err)
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		switch start.Name.Local {
		case "svg":
			sawSVG = true
		case "path":
			for _, attr := range start.Attr {
				if attr.Name.Local != "id" || attr.Value == "" {
					continue
				}
				if _, dup := a.idset[attr.Value]; !dup {
					a.idset[attr.Value] = struct{}{}
					a.ids = append(a.ids, attr.Value)
				}
			}
		}
	}
	if !sawSVG {
		return nil, fmt.Errorf("%w: no <svg> root", ErrInvalidAsset)
	}
	return a, nil
}

// IDs returns the path ids in document order.
func (a *Asset) IDs() []string {
	return append([]string(nil), a.ids...)
}

// Report is the result of checking catalog ids against the asset.
type Report struct {
	// Missing are catalog ids with no path in the asset; they can never be tinted.
	Missing []string
	// Unknown are path ids that are not catalog ids; they stay neutral.
	Unknown []string
}

// OK reports whether every catalog id has a path.
func (r Report) OK() bool {
	return len(r.Missing) == 0
}

func (r Report) String() string {
	return fmt.Sprintf("missing=[%s] unknown=[%s]", strings.Join(r.Missing, ","), strings.Join(r.Unknown, ","))
}

// Validate checks that the catalog ids are a subset of the asset's path ids.
func (a *Asset) Validate(catalogIDs []string) Report {
	var report Report
	known := make(map[string]struct{}, len(catalogIDs))
	for _, id := range catalogIDs {
		known[id] = struct{}{}
		if _, ok := a.idset[id]; !ok {
			report.Missing = append(report.Missing, id)
		}
	}
	for _, id := range a.ids {
		if _, ok := known[id]; !ok {
			report.Unknown = append(report.Unknown, id)
		}
	}
	sort.Strings(report.Missing)
	sort.Strings(report.Unknown)
	return report
}

// Render writes the SVG with a stylesheet injected after the root start tag.
// Every path with an id gets the neutral style; ids present in coloring get
// their paint's style, which wins by selector specificity.
func (a *Asset) Render(w io.Writer, coloring map[string]domain.Paint) error {
	start := bytes.Index(a.raw, []byte("<svg"))
	if start < 0 {
		return fmt.Errorf("%w: no <svg> root", ErrInvalidAsset)
	}
	end := bytes.IndexByte(a.raw[start:], '>')
	if end < 0 {
		return fmt.Errorf("%w: unterminated <svg> tag", ErrInvalidAsset)
	}
	end += start + 1

	if _, err := w.Write(a.raw[:end]); err != nil {
		return err
	}
	if _, err := io.WriteString(w, Stylesheet(a.ids, coloring)); err != nil {
		return err
	}
	_, err := w.Write(a.raw[end:])
	return err
}

// Stylesheet builds the <style> element for the given coloring, limited to ids
// present in the asset.
func Stylesheet(assetIDs []string, coloring map[string]domain.Paint) string {
	var b strings.Builder
	b.WriteString("<style>")
	writeRule(&b, "path[id]", Styles[domain.PaintNeutral])
	for _, id := range assetIDs {
		paint, ok := coloring[id]
		if !ok || paint == domain.PaintNeutral {
			continue
		}
		writeRule(&b, "path#"+cssIdent(id), Styles[paint])
	}
	b.WriteString("</style>")
	return b.String()
}

func writeRule(b *strings.Builder, selector string, s Style) {
	fmt.Fprintf(b, "%s{fill:%s !important;stroke:%s !important;stroke-width:%s !important}", selector, s.Fill, s.Stroke, s.StrokeWidth)
}

// cssIdent escapes characters outside [A-Za-z0-9_-] so arbitrary ids are valid selectors.
func cssIdent(id string) string {
	var b strings.Builder
	for i, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_', r == '-':
			b.WriteRune(r)
		case r >= '0' && r <= '9' && i > 0:
			b.WriteRune(r)
		default:
			fmt.Fprintf(&b, "\\%x ", r)
		}
	}
	return b.String()
}
