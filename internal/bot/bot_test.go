package bot

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"serotonyl.ru/reputation-bot/internal/bot/filters"
	"serotonyl.ru/reputation-bot/internal/config"
	"serotonyl.ru/reputation-bot/internal/features/awards"
	"serotonyl.ru/reputation-bot/internal/features/restriction"
	"serotonyl.ru/reputation-bot/internal/platform"
)

type recordingHandler struct {
	mu       sync.Mutex
	comments []string
	messages []string
	posts    []string
	settings []*config.Settings
	panicOn  string
}

func (h *recordingHandler) HandleComment(ctx context.Context, s *config.Settings, eventID string, ev *platform.CommentEvent) awards.Result {
	if eventID == h.panicOn {
		panic("boom")
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.comments = append(h.comments, eventID)
	h.settings = append(h.settings, s)
	return awards.Result{Outcome: awards.OutcomeNoCommand}
}

func (h *recordingHandler) HandleMessage(ctx context.Context, s *config.Settings, eventID string, msg *platform.PrivateMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = append(h.messages, eventID)
}

func (h *recordingHandler) HandlePost(ctx context.Context, s *config.Settings, ev *platform.PostEvent) restriction.Decision {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.posts = append(h.posts, ev.Post.ID)
	return restriction.DecisionRestricted
}

func (h *recordingHandler) count() (int, int, int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.comments), len(h.posts), len(h.messages)
}

type brokenSource struct{}

func (brokenSource) Snapshot(ctx context.Context) (*config.Settings, error) {
	return nil, errors.New("settings file missing")
}

func testConfig() *config.Config {
	return &config.Config{
		Subreddit:                  "test",
		BotMaxInflight:             4,
		RateLimitRequests:          2,
		RateLimitWindow:            time.Minute,
		FeatureRestrictionsEnabled: true,
	}
}

func comment(id, author, subreddit string) platform.Event {
	return platform.Event{ID: id, Comment: &platform.CommentEvent{
		Author: author, Subreddit: subreddit,
		Post:    &platform.Post{ID: "t3_p"},
		Comment: &platform.Comment{ID: "t1_" + id, Body: "!award"},
	}}
}

func post(id, author string) platform.Event {
	return platform.Event{ID: id, Post: &platform.PostEvent{Author: author, Subreddit: "test", Post: &platform.Post{ID: "t3_" + id}}}
}

func newBot(h *recordingHandler, source config.SettingsSource) *Bot {
	cfg := testConfig()
	return New(cfg, source, filters.NewSubredditFilter(cfg.Subreddit, "repbot"), h, h)
}

func TestHandleEventRoutes(t *testing.T) {
	h := &recordingHandler{}
	b := newBot(h, config.StaticSource{Settings: config.Default()})
	ctx := context.Background()

	b.HandleEvent(ctx, comment("c1", "alice", "test"))
	b.HandleEvent(ctx, post("p1", "alice"))
	b.HandleEvent(ctx, platform.Event{ID: "m1", Message: &platform.PrivateMessage{ID: "t4_m", Author: "alice", Body: "CONFIRM"}})
	b.HandleEvent(ctx, comment("c2", "alice", "elsewhere"))
	b.HandleEvent(ctx, comment("c3", "repbot", "test"))

	comments, posts, messages := h.count()
	if comments != 1 || posts != 1 || messages != 1 {
		t.Fatalf("unexpected routing: comments=%d posts=%d messages=%d", comments, posts, messages)
	}
}

func TestRateLimitAppliesOnlyToMessages(t *testing.T) {
	h := &recordingHandler{}
	b := newBot(h, config.StaticSource{Settings: config.Default()})
	ctx := context.Background()

	for _, id := range []string{"c1", "c2", "c3", "c4", "c5"} {
		b.HandleEvent(ctx, comment(id, "alice", "test"))
	}
	for _, id := range []string{"p1", "p2", "p3"} {
		b.HandleEvent(ctx, post(id, "alice"))
	}
	for _, id := range []string{"m1", "m2", "m3"} {
		b.HandleEvent(ctx, platform.Event{ID: id, Message: &platform.PrivateMessage{ID: "t4_" + id, Author: "alice", Body: "CONFIRM"}})
	}

	comments, posts, messages := h.count()
	if comments != 5 {
		t.Fatalf("award comments must never be dropped, got %d of 5", comments)
	}
	if posts != 3 {
		t.Fatalf("posts must never be rate limited, got %d", posts)
	}
	if messages != 2 {
		t.Fatalf("expected 2 messages within the limit, got %d", messages)
	}
}

func TestEachEventGetsFreshSnapshot(t *testing.T) {
	h := &recordingHandler{}
	b := newBot(h, config.StaticSource{Settings: config.Default()})
	ctx := context.Background()

	b.HandleEvent(ctx, comment("c1", "alice", "test"))
	b.HandleEvent(ctx, comment("c2", "bob", "test"))
	if h.settings[0] == h.settings[1] {
		t.Fatalf("handlers must not share a settings snapshot")
	}
}

func TestBrokenSettingsSkipEvent(t *testing.T) {
	h := &recordingHandler{}
	b := newBot(h, brokenSource{})
	b.HandleEvent(context.Background(), comment("c1", "alice", "test"))
	if comments, _, _ := h.count(); comments != 0 {
		t.Fatalf("event must be skipped without settings")
	}
}

func TestStartDrainsChannelAndRecoversPanics(t *testing.T) {
	h := &recordingHandler{panicOn: "boom"}
	b := newBot(h, config.StaticSource{Settings: config.Default()})

	events := make(chan platform.Event, 4)
	events <- comment("boom", "carol", "test")
	events <- comment("c1", "alice", "test")
	events <- comment("c2", "bob", "test")
	close(events)

	done := make(chan struct{})
	go func() {
		b.Start(context.Background(), events)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatalf("Start did not return after the channel was closed")
	}
	if comments, _, _ := h.count(); comments != 2 {
		t.Fatalf("expected 2 handled comments, got %d", comments)
	}
}
