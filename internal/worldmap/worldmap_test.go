package worldmap

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"world-quiz-service/internal/domain"
)

const sampleSVG = `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 10 10">
  <g>
    <path id="BR" d="M0 0h1v1z"/>
    <path id="FR" d="M1 1h1v1z" fill="#000"/>
    <path id="ocean" d="M2 2h1v1z"/>
    <path d="M3 3h1v1z"/>
  </g>
</svg>`

func TestLoadCollectsPathIDs(t *testing.T) {
	asset, err := Load(strings.NewReader(sampleSVG))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	ids := asset.IDs()
	if len(ids) != 3 || ids[0] != "BR" || ids[1] != "FR" || ids[2] != "ocean" {
		t.Fatalf("unexpected ids %v", ids)
	}
}

func TestLoadRejectsNonSVG(t *testing.T) {
	if _, err := Load(strings.NewReader("<html><body/></html>")); !errors.Is(err, ErrInvalidAsset) {
		t.Fatalf("expected ErrInvalidAsset, got %v", err)
	}
}

func TestValidateReportsMismatches(t *testing.T) {
	asset, err := Load(strings.NewReader(sampleSVG))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	report := asset.Validate([]string{"BR", "FR", "JP"})
	if report.OK() {
		t.Fatalf("expected missing JP to fail validation")
	}
	if len(report.Missing) != 1 || report.Missing[0] != "JP" {
		t.Fatalf("unexpected missing %v", report.Missing)
	}
	if len(report.Unknown) != 1 || report.Unknown[0] != "ocean" {
		t.Fatalf("unexpected unknown %v", report.Unknown)
	}

	if !asset.Validate([]string{"BR"}).OK() {
		t.Fatalf("expected subset to validate")
	}
}

func TestRenderInjectsStyles(t *testing.T) {
	asset, err := Load(strings.NewReader(sampleSVG))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	var buf bytes.Buffer
	err = asset.Render(&buf, map[string]domain.Paint{
		"BR": domain.PaintFound,
		"FR": domain.PaintMissed,
		"JP": domain.PaintMissed,
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, `path#BR{fill:#22c55e`) {
		t.Fatalf("expected found style for BR, got %s", out)
	}
	if !strings.Contains(out, `path#FR{fill:#ef4444`) {
		t.Fatalf("expected missed style for FR")
	}
	if strings.Contains(out, "path#JP") {
		t.Fatalf("expected no rule for ids absent from the asset")
	}
	if strings.Index(out, "<style>") < strings.Index(out, "<svg") {
		t.Fatalf("expected style inside the svg root")
	}
	if _, err := Load(strings.NewReader(out)); err != nil {
		t.Fatalf("rendered svg should still parse: %v", err)
	}
}
