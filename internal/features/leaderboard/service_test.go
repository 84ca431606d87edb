package leaderboard

import (
	"context"
	"errors"
	"strings"
	"testing"

	"serotonyl.ru/reputation-bot/internal/config"
	"serotonyl.ru/reputation-bot/internal/features/awards"
	"serotonyl.ru/reputation-bot/internal/features/restriction"
	"serotonyl.ru/reputation-bot/internal/platform/platformtest"
	"serotonyl.ru/reputation-bot/internal/store"
)

func newService(t *testing.T) (*Service, *platformtest.Fake, *awards.Scores, *restriction.Repository) {
	t.Helper()
	fake := platformtest.New("repbot", "alice", "bob", "carol")
	mem := store.NewMemory()
	scores := awards.NewScores(mem)
	repo := restriction.NewRepository(mem)
	return NewService(scores, repo, fake), fake, scores, repo
}

func TestPublishWritesTopAndSkipsUnchanged(t *testing.T) {
	ctx := context.Background()
	svc, fake, scores, _ := newService(t)
	for user, score := range map[string]int64{"alice": 5, "bob": 9, "carol": 1} {
		if err := scores.Set(ctx, user, score); err != nil {
			t.Fatalf("set: %v", err)
		}
	}

	cfg := config.Default()
	cfg.LeaderboardWikiPage = "leaderboard"
	cfg.LeaderboardSize = 2
	cfg.PointSymbol = "★"

	changed, err := svc.Publish(ctx, cfg, "test")
	if err != nil || !changed {
		t.Fatalf("expected first publish to change page, changed=%v err=%v", changed, err)
	}
	page := fake.WikiPages["leaderboard"]
	if !strings.Contains(page, "| 1 | u/bob | 9★ |") || !strings.Contains(page, "| 2 | u/alice | 5★ |") {
		t.Fatalf("unexpected page:\n%s", page)
	}
	if strings.Contains(page, "carol") {
		t.Fatalf("size limit ignored:\n%s", page)
	}

	changed, err = svc.Publish(ctx, cfg, "test")
	if err != nil || changed {
		t.Fatalf("expected unchanged page to be skipped, changed=%v err=%v", changed, err)
	}
	if len(fake.WikiEdits) != 1 {
		t.Fatalf("expected one wiki edit, got %d", len(fake.WikiEdits))
	}
}

func TestPublishWithoutPageIsNoop(t *testing.T) {
	svc, fake, _, _ := newService(t)
	changed, err := svc.Publish(context.Background(), config.Default(), "test")
	if err != nil || changed || len(fake.WikiEdits) != 0 {
		t.Fatalf("expected noop, changed=%v err=%v edits=%d", changed, err, len(fake.WikiEdits))
	}
}

func TestRenderEmpty(t *testing.T) {
	out := Render(config.Default(), "test", nil)
	if !strings.Contains(out, "Nobody has received any points yet") {
		t.Fatalf("unexpected render: %s", out)
	}
}

func TestCleanupRemovesDeletedAccounts(t *testing.T) {
	ctx := context.Background()
	svc, fake, scores, repo := newService(t)
	_ = scores.Set(ctx, "alice", 3)
	_ = scores.Set(ctx, "bob", 4)
	if err := repo.Start(ctx, "bob", 2, "t3_x"); err != nil {
		t.Fatalf("start: %v", err)
	}
	fake.DeleteUser("bob")

	report, err := svc.Cleanup(ctx, "test")
	if err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if report.Checked != 2 || len(report.Removed) != 1 || report.Removed[0] != "bob" {
		t.Fatalf("unexpected report %+v", report)
	}
	if _, found, _ := scores.Get(ctx, "bob"); found {
		t.Fatalf("bob must be removed from scores")
	}
	st, err := repo.Get(ctx, "bob")
	if err != nil || !st.Empty() {
		t.Fatalf("bob restriction must be cleared, got %+v err=%v", st, err)
	}
	if _, found, _ := scores.Get(ctx, "alice"); !found {
		t.Fatalf("alice must stay")
	}
}

func TestCleanupKeepsUsersOnLookupError(t *testing.T) {
	ctx := context.Background()
	svc, fake, scores, _ := newService(t)
	_ = scores.Set(ctx, "alice", 3)
	fake.UserErr = errors.New("reddit down")

	report, err := svc.Cleanup(ctx, "test")
	if err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if report.Failed != 1 || len(report.Removed) != 0 {
		t.Fatalf("unexpected report %+v", report)
	}
	if _, found, _ := scores.Get(ctx, "alice"); !found {
		t.Fatalf("alice must stay on lookup error")
	}
}
