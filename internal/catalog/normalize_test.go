package catalog

import "testing"

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"  Brazil ":            "brazil",
		"BRAZIL":               "brazil",
		"Côte d'Ivoire":        "cote divoire",
		"São Tomé":             "sao tome",
		"Guinea-Bissau":        "guinea bissau",
		"St. Kitts  and Nevis": "st kitts and nevis",
		"Ísland":               "island",
		"Færøerne":             "faeroerne",
		"":                     "",
	}
	for in, want := range cases {
		if got := Normalize(in); got != want {
			t.Fatalf("Normalize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNormalizeEqualStringsResolveEqually(t *testing.T) {
	c, err := Default()
	if err != nil {
		t.Fatalf("default catalog: %v", err)
	}
	pairs := [][2]string{
		{"Perú", "PERU"},
		{"méxico", "Mexico"},
		{"ÁUSTRIA", "austria"},
	}
	for _, pair := range pairs {
		a, okA := c.Resolve(pair[0])
		b, okB := c.Resolve(pair[1])
		if okA != okB || a.ID != b.ID {
			t.Fatalf("expected %q and %q to resolve equally, got %+v/%v and %+v/%v", pair[0], pair[1], a, okA, b, okB)
		}
	}
}
