package awards

import (
	"testing"

	"serotonyl.ru/reputation-bot/internal/config"
	"serotonyl.ru/reputation-bot/internal/platform"
)

func TestParseFlairScore(t *testing.T) {
	cases := []struct {
		text, symbol string
		want         int64
		ok           bool
	}{
		{"12", "", 12, true},
		{" 7★ ", "★", 7, true},
		{"-", "", 0, false},
		{"", "", 0, false},
		{"helper", "", 0, false},
		{"-3", "", 0, false},
	}
	for _, c := range cases {
		got, ok := ParseFlairScore(c.text, c.symbol)
		if got != c.want || ok != c.ok {
			t.Fatalf("ParseFlairScore(%q) = %d,%v", c.text, got, ok)
		}
	}
}

func TestEffectiveScorePrecedence(t *testing.T) {
	s := config.Default()
	flair := &platform.Flair{Text: "10"}

	if got := EffectiveScore(4, flair, s); got != 10 {
		t.Fatalf("max rule: expected 10, got %d", got)
	}
	if got := EffectiveScore(15, flair, s); got != 15 {
		t.Fatalf("max rule: expected 15, got %d", got)
	}
	s.PrioritiseFlairScore = true
	if got := EffectiveScore(15, flair, s); got != 10 {
		t.Fatalf("prioritised flair: expected 10, got %d", got)
	}
	if got := EffectiveScore(15, &platform.Flair{Text: "-"}, s); got != 15 {
		t.Fatalf("dash placeholder must fall back to stored, got %d", got)
	}
	if got := EffectiveScore(3, nil, s); got != 3 {
		t.Fatalf("absent flair must fall back to stored, got %d", got)
	}
}

func TestComputeFlair(t *testing.T) {
	s := config.Default()
	s.PointSymbol = "★"

	s.FlairMode = config.FlairOverwriteNumericSymbol
	if f, ok := ComputeFlair(5, false, s); !ok || f.Text != "5★" {
		t.Fatalf("expected 5★, got %+v", f)
	}
	s.FlairMode = config.FlairOverwriteNumeric
	if f, ok := ComputeFlair(5, false, s); !ok || f.Text != "5" {
		t.Fatalf("expected 5, got %+v", f)
	}
	s.FlairMode = config.FlairNeverSet
	if _, ok := ComputeFlair(5, false, s); ok {
		t.Fatalf("NeverSet must not write flair")
	}

	s.FlairMode = config.FlairOverwriteNumeric
	s.FlairCSSClass = "points"
	s.FlairTemplateID = "tmpl"
	if f, _ := ComputeFlair(1, false, s); f.TemplateID != "tmpl" || f.CSSClass != "" {
		t.Fatalf("template id must win over css class, got %+v", f)
	}

	s.RestrictedFlairCSSClass = "restricted"
	s.RestrictedFlairTemplateID = ""
	if f, _ := ComputeFlair(1, true, s); f.CSSClass != "restricted" || f.TemplateID != "" {
		t.Fatalf("restricted users get their own class, got %+v", f)
	}
}

func TestGuardKeys(t *testing.T) {
	if k := GuardKey(KindNormal, "t1_parent", "t3_post", ""); k != "awarded:normal:t1_parent" {
		t.Fatalf("unexpected normal key %s", k)
	}
	if k := GuardKey(KindMod, "t1_parent", "t3_post", ""); k != "awarded:mod:t1_parent" {
		t.Fatalf("unexpected mod key %s", k)
	}
	if k := GuardKey(KindAlternate, "t1_parent", "t3_post", "Bob"); k != "awarded:alt:t3_post:bob" {
		t.Fatalf("unexpected alt key %s", k)
	}
	if _, err := ParseGuardKind("weird"); err == nil {
		t.Fatalf("expected error for unknown kind")
	}
}
