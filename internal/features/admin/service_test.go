package admin

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/argon2"

	"serotonyl.ru/reputation-bot/internal/config"
	"serotonyl.ru/reputation-bot/internal/features/awards"
	"serotonyl.ru/reputation-bot/internal/features/leaderboard"
	"serotonyl.ru/reputation-bot/internal/features/restriction"
	"serotonyl.ru/reputation-bot/internal/notify"
	"serotonyl.ru/reputation-bot/internal/platform/platformtest"
	"serotonyl.ru/reputation-bot/internal/store"
)

const adminID = 42

func testHash(password string) string {
	salt := []byte("0123456789abcdef")
	key := argon2.IDKey([]byte(password), salt, 1, 8*1024, 1, 32)
	return fmt.Sprintf("$argon2id$v=19$m=%d,t=%d,p=%d$%s$%s",
		8*1024, 1, 1,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	)
}

type console struct {
	handler      *Handler
	repo         *Repository
	fake         *platformtest.Fake
	scores       *awards.Scores
	guard        *awards.Guard
	restrictions *restriction.Repository
}

func newConsole(t *testing.T) *console {
	t.Helper()
	fake := platformtest.New("repbot", "alice", "bob")
	mem := store.NewMemory()
	scores := awards.NewScores(mem)
	restrictionRepo := restriction.NewRepository(mem)
	flair := awards.NewFlairService(scores, restrictionRepo, fake)
	guard := awards.NewGuard(mem)

	cfg := &config.Config{
		Subreddit:                 "test",
		AdminIDs:                  []int64{adminID},
		AdminPasswordHash:         testHash("secret"),
		AdminSessionTTL:           time.Hour,
		AdminLoginAttemptsPerHour: 3,
	}
	settings := config.Default()
	settings.LeaderboardWikiPage = "leaderboard"

	repo := NewRepository(mem)
	svc := NewService(repo, Deps{
		Config:       cfg,
		Settings:     config.StaticSource{Settings: settings},
		Scores:       scores,
		Guard:        guard,
		Flair:        flair,
		FlairAPI:     fake,
		Restrictions: restriction.NewService(restrictionRepo, fake, notify.New(fake), flair),
		Leaderboard:  leaderboard.NewService(scores, restrictionRepo, fake),
	})
	return &console{
		handler:      NewHandler(svc, nil),
		repo:         repo,
		fake:         fake,
		scores:       scores,
		guard:        guard,
		restrictions: restrictionRepo,
	}
}

func (c *console) say(t *testing.T, text string) string {
	t.Helper()
	reply, handled := c.handler.Reply(context.Background(), adminID, text)
	if !handled {
		t.Fatalf("%q was not handled", text)
	}
	return reply
}

func (c *console) login(t *testing.T) {
	t.Helper()
	if reply := c.say(t, "/login secret"); !strings.Contains(reply, "успешна") {
		t.Fatalf("login failed: %s", reply)
	}
}

func TestNonAdminIsIgnored(t *testing.T) {
	c := newConsole(t)
	if _, handled := c.handler.Reply(context.Background(), 7, "/login secret"); handled {
		t.Fatalf("non-admin message must not be handled")
	}
}

func TestCommandsRequireSession(t *testing.T) {
	c := newConsole(t)
	if reply := c.say(t, "/score alice"); !strings.Contains(reply, "Сначала войдите") {
		t.Fatalf("unexpected reply %q", reply)
	}
	if reply := c.say(t, "/help"); !strings.Contains(reply, "/setscore") {
		t.Fatalf("help must be available without session: %q", reply)
	}
}

func TestLoginAttemptsAreLimited(t *testing.T) {
	c := newConsole(t)
	for i := 0; i < 3; i++ {
		if reply := c.say(t, "/login wrong"); !strings.Contains(reply, "неверный пароль") {
			t.Fatalf("attempt %d: unexpected reply %q", i+1, reply)
		}
	}
	if reply := c.say(t, "/login secret"); !strings.Contains(reply, "слишком много попыток") {
		t.Fatalf("expected lockout, got %q", reply)
	}
}

func TestTwoStepLogin(t *testing.T) {
	c := newConsole(t)
	if reply := c.say(t, "/login"); !strings.Contains(reply, "Введите пароль") {
		t.Fatalf("unexpected prompt %q", reply)
	}
	if reply := c.say(t, "secret"); !strings.Contains(reply, "успешна") {
		t.Fatalf("unexpected reply %q", reply)
	}
	if _, handled := c.handler.Reply(context.Background(), adminID, "just chatting"); handled {
		t.Fatalf("plain text after login must not be handled")
	}
}

func TestSetScoreAndReport(t *testing.T) {
	c := newConsole(t)
	c.login(t)

	if reply := c.say(t, "/setscore u/alice 7"); !strings.Contains(reply, "0 → 7") {
		t.Fatalf("unexpected reply %q", reply)
	}
	score, found, _ := c.scores.Get(context.Background(), "alice")
	if !found || score != 7 {
		t.Fatalf("expected stored score 7, got %d found=%v", score, found)
	}
	if got := c.fake.Flairs["alice"].Text; got != "7" {
		t.Fatalf("expected flair 7, got %q", got)
	}

	reply := c.say(t, "/score alice")
	if !strings.Contains(reply, "Сохранённый счёт: 7") || !strings.Contains(reply, "Ограничений нет") {
		t.Fatalf("unexpected report %q", reply)
	}

	if reply := c.say(t, "/setscore alice -1"); !strings.HasPrefix(reply, "❌") {
		t.Fatalf("negative score must be rejected: %q", reply)
	}
	if reply := c.say(t, "/score a"); !strings.HasPrefix(reply, "❌") {
		t.Fatalf("invalid username must be rejected: %q", reply)
	}
}

func TestUnrestrictDoesNotNotifyUser(t *testing.T) {
	c := newConsole(t)
	c.login(t)
	ctx := context.Background()
	if err := c.restrictions.Start(ctx, "bob", 2, "t3_x"); err != nil {
		t.Fatalf("start: %v", err)
	}

	if reply := c.say(t, "/score bob"); !strings.Contains(reply, "нужно ещё 2") {
		t.Fatalf("unexpected report %q", reply)
	}
	if reply := c.say(t, "/unrestrict bob"); !strings.Contains(reply, "оставалось 2") {
		t.Fatalf("unexpected reply %q", reply)
	}
	st, _ := c.restrictions.Get(ctx, "bob")
	if !st.Empty() {
		t.Fatalf("restriction must be cleared, got %+v", st)
	}
	if len(c.fake.MessagesTo("bob")) != 0 {
		t.Fatalf("manual override must not message the user")
	}
	if reply := c.say(t, "/unrestrict bob"); !strings.Contains(reply, "не было ограничения") {
		t.Fatalf("unexpected reply %q", reply)
	}
}

func TestClearGuard(t *testing.T) {
	c := newConsole(t)
	c.login(t)
	ctx := context.Background()
	_ = c.guard.MarkAwarded(ctx, awards.GuardKey(awards.KindNormal, "t1_abc", "", ""))
	_ = c.guard.MarkAwarded(ctx, awards.GuardKey(awards.KindAlternate, "", "t3_post", "Bob"))

	if reply := c.say(t, "/clearguard normal t1_abc"); !strings.Contains(reply, "удалён") {
		t.Fatalf("unexpected reply %q", reply)
	}
	if reply := c.say(t, "/clearguard normal t1_abc"); !strings.Contains(reply, "нет") {
		t.Fatalf("second clear must report missing key: %q", reply)
	}
	if reply := c.say(t, "/clearguard alt t3_post u/bob"); !strings.Contains(reply, "удалён") {
		t.Fatalf("unexpected reply %q", reply)
	}
	if reply := c.say(t, "/clearguard bogus t1_abc"); !strings.HasPrefix(reply, "❌") {
		t.Fatalf("unknown kind must be rejected: %q", reply)
	}
}

func TestLeaderboardAndLogout(t *testing.T) {
	c := newConsole(t)
	c.login(t)
	_ = c.scores.Set(context.Background(), "alice", 3)

	if reply := c.say(t, "/leaderboard"); !strings.Contains(reply, "обновлена") {
		t.Fatalf("unexpected reply %q", reply)
	}
	if reply := c.say(t, "/leaderboard"); !strings.Contains(reply, "не изменилась") {
		t.Fatalf("unexpected reply %q", reply)
	}

	c.say(t, "/logout")
	if reply := c.say(t, "/score alice"); !strings.Contains(reply, "Сначала войдите") {
		t.Fatalf("session must be gone after logout: %q", reply)
	}
}

func TestExpiredSession(t *testing.T) {
	c := newConsole(t)
	past := time.Now().Add(-time.Hour)
	err := c.repo.CreateSession(context.Background(), &AdminSession{
		UserID: adminID, SessionToken: "x", AuthenticatedAt: past.Add(-time.Hour), ExpiresAt: past,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if reply := c.say(t, "/score alice"); !strings.Contains(reply, "Сначала войдите") {
		t.Fatalf("expired session must not authorize: %q", reply)
	}
}

func TestParseCommand(t *testing.T) {
	cmd, args, ok := parseCommand("/Score@repbot alice")
	if !ok || cmd != "score" || len(args) != 1 || args[0] != "alice" {
		t.Fatalf("unexpected parse %q %v %v", cmd, args, ok)
	}
	if _, _, ok := parseCommand("hello"); ok {
		t.Fatalf("plain text is not a command")
	}
	if !carriesPassword("/login secret") || carriesPassword("/login") || carriesPassword("/score x") {
		t.Fatalf("carriesPassword misclassified commands")
	}
}
