// Package platform описывает контракты внешней площадки (Reddit):
// входящие события и коллабораторы, которые нужны ядру бота.
// Ядро ничего не знает о HTTP и OAuth, оно работает только с этими интерфейсами.
package platform

import (
	"context"
	"strings"
	"time"
)

// Префиксы fullname-идентификаторов Reddit
const (
	CommentPrefix = "t1_"
	PostPrefix    = "t3_"
)

// User — аккаунт на площадке.
type User struct {
	ID   string
	Name string
}

// Post — пост в сабреддите. ID хранится в виде fullname (t3_xxx).
type Post struct {
	ID        string
	Author    string
	AuthorID  string
	Subreddit string
	Title     string
	Permalink string
	CreatedAt time.Time
}

// Comment — комментарий. ParentID — fullname родителя (t1_ или t3_).
type Comment struct {
	ID        string
	ParentID  string
	PostID    string
	Author    string
	AuthorID  string
	Subreddit string
	Body      string
	Permalink string
	CreatedAt time.Time
	EditedAt  time.Time
}

// IsTopLevel — комментарий оставлен прямо под постом.
func (c *Comment) IsTopLevel() bool {
	return strings.HasPrefix(c.ParentID, PostPrefix)
}

// DeletedAuthor — так Reddit отдаёт автора удалённого контента.
const DeletedAuthor = "[deleted]"

// CommentEventType — комментарий создан или отредактирован.
type CommentEventType int

const (
	CommentSubmitted CommentEventType = iota
	CommentUpdated
)

func (t CommentEventType) String() string {
	if t == CommentUpdated {
		return "CommentUpdated"
	}
	return "CommentSubmitted"
}

// CommentEvent — новый или изменённый комментарий.
type CommentEvent struct {
	Type      CommentEventType
	Author    string
	Subreddit string
	Post      *Post
	Comment   *Comment
}

// PostEvent — новый пост.
type PostEvent struct {
	Author    string
	Subreddit string
	Post      *Post
}

// PrivateMessage — входящее личное сообщение боту.
type PrivateMessage struct {
	ID        string
	Author    string
	Subject   string
	Body      string
	CreatedAt time.Time
}

// Event — одно входящее событие. Заполнено ровно одно из полей.
type Event struct {
	ID      string
	Comment *CommentEvent
	Post    *PostEvent
	Message *PrivateMessage
}

// Kind возвращает тип события для логов.
func (e Event) Kind() string {
	switch {
	case e.Comment != nil:
		return e.Comment.Type.String()
	case e.Post != nil:
		return "PostSubmitted"
	case e.Message != nil:
		return "PrivateMessage"
	default:
		return "Unknown"
	}
}

// Author возвращает автора события.
func (e Event) Author() string {
	switch {
	case e.Comment != nil:
		return e.Comment.Author
	case e.Post != nil:
		return e.Post.Author
	case e.Message != nil:
		return e.Message.Author
	}
	return ""
}

// Subreddit возвращает сабреддит события. У личных сообщений его нет.
func (e Event) Subreddit() string {
	switch {
	case e.Comment != nil:
		return e.Comment.Subreddit
	case e.Post != nil:
		return e.Post.Subreddit
	}
	return ""
}

// Identity — пользователи и модераторы.
type Identity interface {
	// ListModerators возвращает модераторов; username сужает выборку до одного человека.
	ListModerators(ctx context.Context, subreddit, username string) ([]User, error)
	// GetUserByUsername возвращает (nil, nil), если аккаунт удалён, заблокирован или скрыт.
	GetUserByUsername(ctx context.Context, username string) (*User, error)
	// BotUsername — аккаунт, от имени которого работает бот.
	BotUsername() string
}

// Content — чтение комментариев и постов.
type Content interface {
	GetComment(ctx context.Context, id string) (*Comment, error)
	GetPost(ctx context.Context, id string) (*Post, error)
}

// Flair — флер пользователя. CSSClass и TemplateID взаимоисключающие, TemplateID главнее.
type Flair struct {
	Text       string
	CSSClass   string
	TemplateID string
}

// FlairAPI — чтение и запись флера.
type FlairAPI interface {
	// GetUserFlair возвращает nil, если флера нет.
	GetUserFlair(ctx context.Context, subreddit, username string) (*Flair, error)
	SetUserFlair(ctx context.Context, subreddit, username string, flair Flair) error
}

// Replier — ответы пользователям.
type Replier interface {
	SubmitComment(ctx context.Context, parentID, text string) (*Comment, error)
	Distinguish(ctx context.Context, commentID string, sticky bool) error
	SendPrivateMessage(ctx context.Context, to, subject, text string) error
}

// Moderation — модераторские действия над контентом.
type Moderation interface {
	Remove(ctx context.Context, id string) error
}

// Wiki — вики-страницы сабреддита.
type Wiki interface {
	GetWikiPage(ctx context.Context, subreddit, page string) (string, error)
	UpdateWikiPage(ctx context.Context, subreddit, page, content, reason string) error
}

// Platform — всё вместе, так реализует reddit.Client.
type Platform interface {
	Identity
	Content
	FlairAPI
	Replier
	Moderation
	Wiki
}

// Scheduler — отложенные задачи. Ядро ставит задачу и не ждёт результата.
type Scheduler interface {
	Enqueue(name string, runAt time.Time, data map[string]string) error
}

// IsModerator проверяет, есть ли пользователь в списке модераторов сабреддита.
func IsModerator(ctx context.Context, identity Identity, subreddit, username string) (bool, error) {
	mods, err := identity.ListModerators(ctx, subreddit, username)
	if err != nil {
		return false, err
	}
	for _, m := range mods {
		if strings.EqualFold(m.Name, username) {
			return true, nil
		}
	}
	return false, nil
}
