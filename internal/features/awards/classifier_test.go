package awards

import (
	"reflect"
	"testing"
)

var (
	testTriggers = []string{"!award", ".award"}
	testMod      = "!modaward"
)

func TestClassifyPrecedence(t *testing.T) {
	cases := []struct {
		name   string
		body   string
		kind   Kind
		target string
	}{
		{"normal", "Thanks! !award", KindNormal, ""},
		{"second trigger", "that helped .AWARD", KindNormal, ""},
		{"mod wins over normal", "!award and !modaward", KindMod, ""},
		{"alternate", "!award u/Bob_99 for the tip", KindAlternate, "Bob_99"},
		{"alternate with slash", "!award /u/bob", KindAlternate, "bob"},
		{"alternate trailing punctuation", "!award u/bob!", KindAlternate, "bob"},
		{"alternate without space", "!awardu/bob", KindAlternate, "bob"},
		{"mention elsewhere is normal", "u/bob said !award", KindNormal, ""},
		{"mention after blank line is normal", "!award\n\nu/bob", KindNormal, ""},
		{"mention on next line is normal", "!award\nu/bob", KindNormal, ""},
		{"alternate after tab", "!award\tu/bob", KindAlternate, "bob"},
		{"underscores survive markdown", "!award u/_some_user_", KindAlternate, "_some_user_"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := Classify(c.body, testTriggers, testMod)
			if got.Command == nil {
				t.Fatalf("expected command in %q", c.body)
			}
			if got.Command.Kind != c.kind || got.Command.Target != c.target {
				t.Fatalf("expected %s/%q, got %s/%q", c.kind, c.target, got.Command.Kind, got.Command.Target)
			}
		})
	}
}

func TestClassifyNoCommand(t *testing.T) {
	for _, body := range []string{"", "just a comment", "award without bang"} {
		got := Classify(body, testTriggers, testMod)
		if got.Command != nil || len(got.Ignored) != 0 {
			t.Fatalf("expected nothing in %q, got %+v", body, got)
		}
	}
}

func TestClassifyIgnoredContexts(t *testing.T) {
	cases := []struct {
		body string
		want []ContextKind
	}{
		{"> !award", []ContextKind{ContextQuote}},
		{"someone wrote\n\n> nested\n>> !award u/bob", []ContextKind{ContextQuote}},
		{"use `!award` to thank", []ContextKind{ContextCode}},
		{"```\n!modaward\n```", []ContextKind{ContextCode}},
		{"    !award indented code", []ContextKind{ContextCode}},
		{"spoiler >!!award!< here", []ContextKind{ContextSpoiler}},
		{"> !award\n\nand `!award`", []ContextKind{ContextQuote, ContextCode}},
	}
	for _, c := range cases {
		got := Classify(c.body, testTriggers, testMod)
		if got.Command != nil {
			t.Fatalf("%q: command must be ignored, got %+v", c.body, got.Command)
		}
		if !reflect.DeepEqual(got.Ignored, c.want) {
			t.Fatalf("%q: expected %v, got %v", c.body, c.want, got.Ignored)
		}
	}
}

func TestClassifyPlainCommandWinsOverQuote(t *testing.T) {
	got := Classify("> !modaward\n\n!award", testTriggers, testMod)
	if got.Command == nil || got.Command.Kind != KindNormal {
		t.Fatalf("expected normal command from plain text, got %+v", got)
	}
	if len(got.Ignored) != 0 {
		t.Fatalf("ignored contexts must be empty when a command is found")
	}
}

func TestClassifyInvalidTargetIsReported(t *testing.T) {
	got := Classify("!award u/ab", testTriggers, testMod)
	if got.Command == nil || got.Command.Kind != KindAlternate || got.Command.Target != "ab" {
		t.Fatalf("expected alternate with raw target, got %+v", got.Command)
	}
}
