// Package platformtest — фейковая площадка в памяти для тестов.
// Запоминает все побочные эффекты (ЛС, комментарии, флеры, удаления),
// чтобы тесты могли их проверить.
package platformtest

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"serotonyl.ru/reputation-bot/internal/common"
	"serotonyl.ru/reputation-bot/internal/platform"
)

var (
	_ platform.Platform  = (*Fake)(nil)
	_ platform.Scheduler = (*Scheduler)(nil)
)

// SentMessage — отправленное личное сообщение.
type SentMessage struct {
	To      string
	Subject string
	Text    string
}

// WikiEdit — правка вики.
type WikiEdit struct {
	Page    string
	Content string
	Reason  string
}

// Fake реализует platform.Platform.
type Fake struct {
	mu sync.Mutex

	Bot        string
	Moderators []string
	Users      map[string]*platform.User
	Comments   map[string]*platform.Comment
	Posts      map[string]*platform.Post
	Flairs     map[string]platform.Flair
	WikiPages  map[string]string

	Messages      []SentMessage
	Replies       []*platform.Comment
	Distinguished []string
	Removed       []string
	WikiEdits     []WikiEdit

	// Ошибки для проверки обработки сбоев
	FlairErr  error
	ReplyErr  error
	RemoveErr error
	UserErr   error

	nextID int
}

// New создаёт площадку с аккаунтом бота и пользователями.
func New(bot string, users ...string) *Fake {
	f := &Fake{
		Bot:       bot,
		Users:     make(map[string]*platform.User),
		Comments:  make(map[string]*platform.Comment),
		Posts:     make(map[string]*platform.Post),
		Flairs:    make(map[string]platform.Flair),
		WikiPages: make(map[string]string),
	}
	f.AddUser(bot)
	for _, u := range users {
		f.AddUser(u)
	}
	return f
}

// AddUser регистрирует аккаунт.
func (f *Fake) AddUser(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Users[strings.ToLower(name)] = &platform.User{ID: "t2_" + strings.ToLower(name), Name: name}
}

// DeleteUser удаляет аккаунт (как shadowban или удаление).
func (f *Fake) DeleteUser(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.Users, strings.ToLower(name))
}

// AddPost добавляет пост и возвращает его.
func (f *Fake) AddPost(id, author, subreddit string) *platform.Post {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := &platform.Post{
		ID:        id,
		Author:    author,
		AuthorID:  "t2_" + strings.ToLower(author),
		Subreddit: subreddit,
		Permalink: fmt.Sprintf("/r/%s/comments/%s/", subreddit, strings.TrimPrefix(id, platform.PostPrefix)),
		CreatedAt: time.Now(),
	}
	f.Posts[id] = p
	return p
}

// AddComment добавляет комментарий и возвращает его.
func (f *Fake) AddComment(id, parentID, postID, author, subreddit, body string) *platform.Comment {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := &platform.Comment{
		ID:        id,
		ParentID:  parentID,
		PostID:    postID,
		Author:    author,
		AuthorID:  "t2_" + strings.ToLower(author),
		Subreddit: subreddit,
		Body:      body,
		Permalink: fmt.Sprintf("/r/%s/comments/%s/_/%s/", subreddit, strings.TrimPrefix(postID, platform.PostPrefix), strings.TrimPrefix(id, platform.CommentPrefix)),
		CreatedAt: time.Now(),
	}
	f.Comments[id] = c
	return c
}

func (f *Fake) ListModerators(ctx context.Context, subreddit, username string) ([]platform.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []platform.User
	for _, m := range f.Moderators {
		if username == "" || strings.EqualFold(m, username) {
			out = append(out, platform.User{ID: "t2_" + strings.ToLower(m), Name: m})
		}
	}
	return out, nil
}

func (f *Fake) GetUserByUsername(ctx context.Context, username string) (*platform.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.UserErr != nil {
		return nil, f.UserErr
	}
	u, ok := f.Users[strings.ToLower(username)]
	if !ok {
		return nil, nil
	}
	copied := *u
	return &copied, nil
}

func (f *Fake) BotUsername() string { return f.Bot }

func (f *Fake) GetComment(ctx context.Context, id string) (*platform.Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.Comments[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	copied := *c
	return &copied, nil
}

func (f *Fake) GetPost(ctx context.Context, id string) (*platform.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.Posts[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	copied := *p
	return &copied, nil
}

func (f *Fake) GetUserFlair(ctx context.Context, subreddit, username string) (*platform.Flair, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fl, ok := f.Flairs[strings.ToLower(username)]
	if !ok {
		return nil, nil
	}
	return &fl, nil
}

func (f *Fake) SetUserFlair(ctx context.Context, subreddit, username string, flair platform.Flair) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FlairErr != nil {
		return f.FlairErr
	}
	f.Flairs[strings.ToLower(username)] = flair
	return nil
}

func (f *Fake) SubmitComment(ctx context.Context, parentID, text string) (*platform.Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ReplyErr != nil {
		return nil, f.ReplyErr
	}
	f.nextID++
	c := &platform.Comment{
		ID:       fmt.Sprintf("t1_reply%d", f.nextID),
		ParentID: parentID,
		Author:   f.Bot,
		Body:     text,
	}
	f.Replies = append(f.Replies, c)
	return c, nil
}

func (f *Fake) Distinguish(ctx context.Context, commentID string, sticky bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Distinguished = append(f.Distinguished, commentID)
	return nil
}

func (f *Fake) SendPrivateMessage(ctx context.Context, to, subject, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ReplyErr != nil {
		return f.ReplyErr
	}
	f.Messages = append(f.Messages, SentMessage{To: to, Subject: subject, Text: text})
	return nil
}

func (f *Fake) Remove(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.RemoveErr != nil {
		return f.RemoveErr
	}
	f.Removed = append(f.Removed, id)
	return nil
}

func (f *Fake) GetWikiPage(ctx context.Context, subreddit, page string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	content, ok := f.WikiPages[page]
	if !ok {
		return "", common.ErrNotFound
	}
	return content, nil
}

func (f *Fake) UpdateWikiPage(ctx context.Context, subreddit, page, content, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.WikiPages[page] = content
	f.WikiEdits = append(f.WikiEdits, WikiEdit{Page: page, Content: content, Reason: reason})
	return nil
}

// MessagesTo возвращает личные сообщения, отправленные пользователю.
func (f *Fake) MessagesTo(user string) []SentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []SentMessage
	for _, m := range f.Messages {
		if strings.EqualFold(m.To, user) {
			out = append(out, m)
		}
	}
	return out
}

// ReplyCount возвращает число комментариев бота.
func (f *Fake) ReplyCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Replies)
}

// Job — поставленная в очередь задача.
type Job struct {
	Name  string
	RunAt time.Time
	Data  map[string]string
}

// Scheduler запоминает поставленные задачи.
type Scheduler struct {
	mu   sync.Mutex
	Jobs []Job
}

func (s *Scheduler) Enqueue(name string, runAt time.Time, data map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Jobs = append(s.Jobs, Job{Name: name, RunAt: runAt, Data: data})
	return nil
}

// Count возвращает число задач с этим именем.
func (s *Scheduler) Count(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, j := range s.Jobs {
		if j.Name == name {
			n++
		}
	}
	return n
}
