package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestParseSettingsAppliesDefaults(t *testing.T) {
	s, err := ParseSettings([]byte("triggerWords: |\n  !award\n  .award\nmodAwardTrigger: '!modaward'\n"))
	if err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}
	triggers := s.Triggers()
	if len(triggers) != 2 || triggers[0] != "!award" || triggers[1] != ".award" {
		t.Fatalf("unexpected triggers %v", triggers)
	}
	if s.AccessControl != AccessEveryone {
		t.Fatalf("expected default access control everyone, got %s", s.AccessControl)
	}
	if s.Notify.Success != ReplyAsComment || s.Notify.Fail != ReplyByPM {
		t.Fatalf("unexpected notify defaults %+v", s.Notify)
	}
	if s.Messages.Success == "" || s.Messages.SubsequentPost == "" {
		t.Fatalf("expected default message templates")
	}
}

func TestParseSettingsRejectsUnknownModes(t *testing.T) {
	cases := map[string]string{
		"access": "accessControl: admins\n",
		"flair":  "flairMode: Sometimes\n",
		"notify": "notify:\n  success: Shout\n",
	}
	for name, body := range cases {
		if _, err := ParseSettings([]byte(body)); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}

func TestTriggersSkipBlankLines(t *testing.T) {
	s := &Settings{TriggerWords: "\n  !award \n\n"}
	if got := s.Triggers(); len(got) != 1 || got[0] != "!award" {
		t.Fatalf("unexpected triggers %v", got)
	}
}

func TestValidateRequiresTrigger(t *testing.T) {
	s := Default()
	s.TriggerWords = "   \n"
	if err := s.Validate(); err == nil {
		t.Fatalf("expected error for empty trigger list")
	}
}

func TestFileSourceRereadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	if err := os.WriteFile(path, []byte("pointName: karma\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	source := NewFileSource(path)

	first, err := source.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if first.PointName != "karma" {
		t.Fatalf("expected karma, got %s", first.PointName)
	}

	if err := os.WriteFile(path, []byte("pointName: stars\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	second, err := source.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if second.PointName != "stars" {
		t.Fatalf("expected stars after rewrite, got %s", second.PointName)
	}
}

func TestStaticSourceReturnsCopy(t *testing.T) {
	base := Default()
	base.SuperUsers = []string{"alice"}
	source := StaticSource{Settings: base}

	snap, _ := source.Snapshot(context.Background())
	snap.SuperUsers[0] = "mallory"
	snap.PointName = "changed"

	if base.SuperUsers[0] != "alice" || base.PointName == "changed" {
		t.Fatalf("snapshot mutation leaked into source")
	}
}
