package common

import "testing"

func TestIsValidUsername(t *testing.T) {
	valid := []string{"abc", "Alice_99", "some-user", "a23456789012345678901"}
	invalid := []string{"", "ab", "a234567890123456789012", "bad.name", "with space", "émile"}

	for _, name := range valid {
		if !IsValidUsername(name) {
			t.Fatalf("expected %q to be valid", name)
		}
	}
	for _, name := range invalid {
		if IsValidUsername(name) {
			t.Fatalf("expected %q to be invalid", name)
		}
	}
}

func TestContainsUserIgnoresCaseAndPrefix(t *testing.T) {
	list := []string{"u/Alice", "/u/bob", "carol"}
	for _, name := range []string{"alice", "BOB", "Carol"} {
		if !ContainsUser(list, name) {
			t.Fatalf("expected %s in list", name)
		}
	}
	if ContainsUser(list, "dave") {
		t.Fatalf("dave is not in the list")
	}
}

func TestRenderTemplate(t *testing.T) {
	got := RenderTemplate("{{awarder}} gave {{awardee}} a point, total {{total}} {{unknown}}", map[string]string{
		"awarder": "alice",
		"awardee": "bob",
		"total":   "3",
	})
	want := "alice gave bob a point, total 3 {{unknown}}"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestPermalink(t *testing.T) {
	if got := Permalink("/r/test/comments/abc/"); got != "https://www.reddit.com/r/test/comments/abc/" {
		t.Fatalf("unexpected permalink %s", got)
	}
	if got := Permalink("https://redd.it/abc"); got != "https://redd.it/abc" {
		t.Fatalf("absolute link must be kept, got %s", got)
	}
}

func TestTruncateText(t *testing.T) {
	if got := TruncateText("привет мир", 6); got != "привет..." {
		t.Fatalf("unexpected truncation %q", got)
	}
	if got := TruncateText("short", 10); got != "short" {
		t.Fatalf("unexpected truncation %q", got)
	}
}

func TestPostShortLink(t *testing.T) {
	if got := PostShortLink("t3_abc"); got != "https://redd.it/abc" {
		t.Fatalf("unexpected link %s", got)
	}
	if PostShortLink("") != "" {
		t.Fatalf("empty id must give empty link")
	}
}
