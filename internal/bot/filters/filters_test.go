package filters

import (
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"serotonyl.ru/reputation-bot/internal/platform"
)

func commentEvent(author, subreddit string) platform.Event {
	return platform.Event{
		ID: "e1",
		Comment: &platform.CommentEvent{
			Author:    author,
			Subreddit: subreddit,
			Post:      &platform.Post{ID: "t3_p"},
			Comment:   &platform.Comment{ID: "t1_c"},
		},
	}
}

func TestSubredditFilter(t *testing.T) {
	f := NewSubredditFilter("r/Test", "RepBot")

	if !f.CheckAccess(commentEvent("alice", "test")) {
		t.Fatalf("comment in our subreddit must pass")
	}
	if f.CheckAccess(commentEvent("alice", "other")) {
		t.Fatalf("other subreddit must be dropped")
	}
	if f.CheckAccess(commentEvent("repbot", "test")) {
		t.Fatalf("bot's own comments must be dropped")
	}
	if f.CheckAccess(commentEvent("", "test")) {
		t.Fatalf("event without author must be dropped")
	}

	broken := commentEvent("alice", "test")
	broken.Comment.Post = nil
	if f.CheckAccess(broken) {
		t.Fatalf("comment without post must be dropped")
	}

	post := platform.Event{ID: "e2", Post: &platform.PostEvent{Author: "alice", Subreddit: "Test", Post: &platform.Post{ID: "t3_x"}}}
	if !f.CheckAccess(post) {
		t.Fatalf("post in our subreddit must pass")
	}

	msg := platform.Event{ID: "e3", Message: &platform.PrivateMessage{ID: "t4_m", Author: "alice", Body: "CONFIRM"}}
	if !f.CheckAccess(msg) {
		t.Fatalf("private messages are not tied to a subreddit")
	}
}

func TestChatFilter(t *testing.T) {
	f := NewChatFilter([]int64{42})
	private := &tgbotapi.Message{From: &tgbotapi.User{ID: 42}, Chat: &tgbotapi.Chat{ID: 42, Type: "private"}}
	if !f.CheckAccess(private) {
		t.Fatalf("admin DM must pass")
	}
	group := &tgbotapi.Message{From: &tgbotapi.User{ID: 42}, Chat: &tgbotapi.Chat{ID: -100, Type: "supergroup"}}
	if f.CheckAccess(group) {
		t.Fatalf("group chats must be dropped")
	}
	stranger := &tgbotapi.Message{From: &tgbotapi.User{ID: 7}, Chat: &tgbotapi.Chat{ID: 7, Type: "private"}}
	if f.CheckAccess(stranger) {
		t.Fatalf("non-admin must be dropped")
	}
}
