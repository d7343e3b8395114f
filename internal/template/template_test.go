package template

import "testing"

func TestResolveIsCaseInsensitive(t *testing.T) {
	a, _ := Resolve("Construction")
	b, _ := Resolve("construction")
	c, _ := Resolve("CONSTRUCTION")
	if a.Industry != Construction || b.Industry != Construction || c.Industry != Construction {
		t.Fatalf("case variants must resolve identically: %v %v %v", a.Industry, b.Industry, c.Industry)
	}
}

func TestResolveAliases(t *testing.T) {
	cases := map[string]Industry{
		"tech":        Technology,
		"SaaS":        Technology,
		"software":    Technology,
		"building":    Construction,
		"real estate": Construction,
		"banking":     Fintech,
		"finance":     Fintech,
		"medical":     Healthcare,
		"health":      Healthcare,
	}
	for label, want := range cases {
		got, fellBack := Resolve(label)
		if fellBack {
			t.Fatalf("%q should resolve without fallback", label)
		}
		if got.Industry != want {
			t.Fatalf("%q resolved to %v, want %v", label, got.Industry, want)
		}
	}
}

func TestResolveUnknownFallsBackToGeneric(t *testing.T) {
	got, fellBack := Resolve("Aerospace")
	if !fellBack {
		t.Fatal("unknown industry must signal fallback")
	}
	if got.Industry != Generic {
		t.Fatalf("unknown industry resolved to %v, want generic", got.Industry)
	}
}

func TestResolveIsTotalAndDeterministic(t *testing.T) {
	labels := []string{"", "  ", "Aerospace", "tech", "n/a", "123"}
	for _, label := range labels {
		first, _ := Resolve(label)
		second, _ := Resolve(label)
		if first.Industry != second.Industry {
			t.Fatalf("%q resolved differently across calls", label)
		}
		if len(first.Sections) == 0 {
			t.Fatalf("%q resolved to a template with no sections", label)
		}
	}
}

func TestTemplatesHaveQueriesForEverySection(t *testing.T) {
	for _, ind := range Known() {
		tpl := registry[ind]
		for _, s := range tpl.Sections {
			if s.Name == "" || s.Query == "" {
				t.Fatalf("industry %v has incomplete section %+v", ind, s)
			}
		}
	}
}
