package restriction

import (
	"context"
	"errors"
	"strings"
	"testing"

	"serotonyl.ru/reputation-bot/internal/config"
	"serotonyl.ru/reputation-bot/internal/notify"
	"serotonyl.ru/reputation-bot/internal/platform"
	"serotonyl.ru/reputation-bot/internal/platform/platformtest"
	"serotonyl.ru/reputation-bot/internal/store"
)

type recordingFlair struct {
	users []string
}

func (r *recordingFlair) RefreshFlair(ctx context.Context, s *config.Settings, subreddit, username string) error {
	r.users = append(r.users, username)
	return nil
}

type failingStore struct {
	store.Store
}

func (failingStore) Exists(ctx context.Context, key string) (bool, error) {
	return false, errors.New("store down")
}

func newService(t *testing.T) (*Service, *platformtest.Fake, *Repository, *recordingFlair) {
	t.Helper()
	fake := platformtest.New("repbot", "carol", "mod1")
	repo := NewRepository(store.NewMemory())
	flair := &recordingFlair{}
	return NewService(repo, fake, notify.New(fake), flair), fake, repo, flair
}

func postEvent(fake *platformtest.Fake, id, author string) *platform.PostEvent {
	post := fake.AddPost(id, author, "test")
	return &platform.PostEvent{Author: author, Subreddit: "test", Post: post}
}

func settings(required int) *config.Settings {
	s := config.Default()
	s.AwardsRequiredToPost = required
	return s
}

func TestRestrictionLifecycle(t *testing.T) {
	ctx := context.Background()
	svc, fake, repo, _ := newService(t)
	cfg := settings(2)

	if d := svc.HandlePost(ctx, cfg, postEvent(fake, "t3_first", "carol")); d != DecisionRestricted {
		t.Fatalf("first post must be allowed and restrict, got %s", d)
	}
	st, _ := repo.Get(ctx, "carol")
	if !st.Restricted || st.AwardsRemaining != 2 || st.LastValidPost != "t3_first" {
		t.Fatalf("unexpected state after first post %+v", st)
	}

	if d := svc.HandlePost(ctx, cfg, postEvent(fake, "t3_second", "carol")); d != DecisionRemoved {
		t.Fatalf("second post must be removed, got %s", d)
	}
	if len(fake.Removed) != 1 || fake.Removed[0] != "t3_second" {
		t.Fatalf("expected t3_second removed, got %v", fake.Removed)
	}
	if fake.ReplyCount() != 1 || !strings.Contains(fake.Replies[0].Body, "https://redd.it/first") {
		t.Fatalf("removal reply must link the last valid post, got %+v", fake.Replies)
	}

	adv, err := svc.Advance(ctx, cfg, "test", "carol", "t3_first")
	if err != nil || !adv.Applied || adv.Remaining != 1 || adv.Lifted {
		t.Fatalf("unexpected first advance %+v (%v)", adv, err)
	}

	adv, err = svc.Advance(ctx, cfg, "test", "carol", "t3_first")
	if err != nil || !adv.Lifted || !adv.Notified {
		t.Fatalf("expected lift with notification, got %+v (%v)", adv, err)
	}
	st, _ = repo.Get(ctx, "carol")
	if st.Restricted || st.HasCounter {
		t.Fatalf("state must be cleared, got %+v", st)
	}
	if msgs := fake.MessagesTo("carol"); len(msgs) != 1 {
		t.Fatalf("expected exactly one lift message, got %d", len(msgs))
	}

	// Повторная выдача после снятия ничего не делает
	adv, _ = svc.Advance(ctx, cfg, "test", "carol", "t3_first")
	if adv.Applied {
		t.Fatalf("advance on unrestricted user must be a no-op")
	}
}

func TestLiftNotificationSentOncePerPost(t *testing.T) {
	ctx := context.Background()
	svc, fake, repo, _ := newService(t)
	cfg := settings(1)

	_ = repo.Start(ctx, "carol", 1, "t3_p")
	_, _ = svc.Advance(ctx, cfg, "test", "carol", "t3_p")

	// То же ограничение, поднятое заново для того же поста (например, после ручной правки)
	_ = repo.Start(ctx, "carol", 1, "t3_p")
	adv, _ := svc.Advance(ctx, cfg, "test", "carol", "t3_p")
	if !adv.Lifted || adv.Notified {
		t.Fatalf("second lift for same post must not notify, got %+v", adv)
	}
	if n := len(fake.MessagesTo("carol")); n != 1 {
		t.Fatalf("expected one message, got %d", n)
	}
}

func TestCounterNeverNegative(t *testing.T) {
	ctx := context.Background()
	svc, _, repo, _ := newService(t)
	cfg := settings(3)

	// Флаг без счётчика: декремент уйдёт в -1, но ключи должны исчезнуть
	_ = repo.store.Set(ctx, restrictedKey("carol"), "1")
	adv, err := svc.Advance(ctx, cfg, "test", "carol", "t3_p")
	if err != nil || !adv.Lifted || adv.Remaining != 0 {
		t.Fatalf("unexpected advance %+v (%v)", adv, err)
	}
	st, _ := repo.Get(ctx, "carol")
	if st.HasCounter || st.Restricted {
		t.Fatalf("keys must be absent, got %+v", st)
	}
}

func TestModeratorsExempt(t *testing.T) {
	ctx := context.Background()
	svc, fake, repo, _ := newService(t)
	fake.Moderators = []string{"mod1"}
	cfg := settings(2)
	cfg.ModeratorsExempt = true

	if d := svc.HandlePost(ctx, cfg, postEvent(fake, "t3_m", "mod1")); d != DecisionExempt {
		t.Fatalf("expected exempt, got %s", d)
	}
	if st, _ := repo.Get(ctx, "mod1"); !st.Empty() {
		t.Fatalf("exempt moderator must have no state, got %+v", st)
	}
}

func TestStaleFlagIsClearedAndRestarted(t *testing.T) {
	ctx := context.Background()
	svc, fake, repo, _ := newService(t)
	cfg := settings(2)
	_ = repo.store.Set(ctx, restrictedKey("carol"), "1")

	if d := svc.HandlePost(ctx, cfg, postEvent(fake, "t3_new", "carol")); d != DecisionRestricted {
		t.Fatalf("stale flag must not block, got %s", d)
	}
	st, _ := repo.Get(ctx, "carol")
	if st.AwardsRemaining != 2 || st.LastValidPost != "t3_new" {
		t.Fatalf("expected fresh restriction, got %+v", st)
	}
}

func TestFailOpenOnStoreError(t *testing.T) {
	fake := platformtest.New("repbot", "carol")
	svc := NewService(NewRepository(failingStore{store.NewMemory()}), fake, notify.New(fake), nil)

	d := svc.HandlePost(context.Background(), settings(2), postEvent(fake, "t3_x", "carol"))
	if d != DecisionAllowedOnError {
		t.Fatalf("expected fail-open, got %s", d)
	}
	if len(fake.Removed) != 0 {
		t.Fatalf("nothing must be removed on store errors")
	}
}

func TestManualClear(t *testing.T) {
	ctx := context.Background()
	svc, fake, repo, flair := newService(t)
	cfg := settings(2)
	_ = repo.Start(ctx, "carol", 2, "t3_p")

	before, err := svc.ManualClear(ctx, cfg, "test", "carol")
	if err != nil || !before.Restricted {
		t.Fatalf("expected prior restricted state, got %+v (%v)", before, err)
	}
	if st, _ := repo.Get(ctx, "carol"); !st.Empty() {
		t.Fatalf("all keys must be gone, got %+v", st)
	}
	if len(fake.Messages) != 0 {
		t.Fatalf("manual clear must not notify the user")
	}
	if len(flair.users) != 1 || flair.users[0] != "carol" {
		t.Fatalf("flair must be refreshed, got %v", flair.users)
	}
}

func TestDisabledThresholdIgnoresPosts(t *testing.T) {
	svc, fake, _, _ := newService(t)
	if d := svc.HandlePost(context.Background(), settings(0), postEvent(fake, "t3_x", "carol")); d != DecisionIgnored {
		t.Fatalf("expected ignored, got %s", d)
	}
}
