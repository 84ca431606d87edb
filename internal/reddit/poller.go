// Package reddit — poller.go превращает листинги Reddit в поток событий.
// Reddit не шлёт вебхуки скриптовым приложениям, поэтому опрашиваем:
//   - /r/{sub}/comments — новые и отредактированные комментарии
//   - /r/{sub}/new      — новые посты
//   - /message/unread   — личные сообщения (ответы CONFIRM)
package reddit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/reputation-bot/internal/platform"
)

const (
	listingLimit = 100
	// Сколько помним увиденные элементы
	seenTTL = 48 * time.Hour
)

type seenItem struct {
	edited time.Time
	seenAt time.Time
}

// Poller опрашивает Reddit и отдаёт события в канал.
type Poller struct {
	client    *Client
	subreddit string
	interval  time.Duration
	started   time.Time

	comments map[string]seenItem
	posts    map[string]seenItem
	// Кэш постов для заполнения CommentEvent.Post
	postCache map[string]*platform.Post
}

// NewPoller создаёт поллер. События старше момента создания не отдаются.
func NewPoller(client *Client, subreddit string, interval time.Duration) *Poller {
	return &Poller{
		client:    client,
		subreddit: subreddit,
		interval:  interval,
		started:   time.Now().UTC(),
		comments:  make(map[string]seenItem),
		posts:     make(map[string]seenItem),
		postCache: make(map[string]*platform.Post),
	}
}

// Run опрашивает Reddit, пока не отменён контекст. Канал закрывается при выходе.
func (p *Poller) Run(ctx context.Context, out chan<- platform.Event) {
	defer close(out)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		for _, ev := range p.Poll(ctx) {
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
		}
		select {
		case <-ctx.Done():
			log.Info("Поллер Reddit остановлен")
			return
		case <-ticker.C:
		}
	}
}

// Poll выполняет один проход по всем листингам.
// Ошибки листинга логируются: один сбойный листинг не должен останавливать остальные.
func (p *Poller) Poll(ctx context.Context) []platform.Event {
	var events []platform.Event

	posts, err := p.client.newPosts(ctx, p.subreddit, listingLimit)
	if err != nil {
		logPollError(err, "new")
	}
	// Листинги отдаются от новых к старым, события шлём в хронологическом порядке
	for i := len(posts) - 1; i >= 0; i-- {
		if ev, ok := p.postEvent(posts[i]); ok {
			events = append(events, ev)
		}
	}

	comments, err := p.client.newComments(ctx, p.subreddit, listingLimit)
	if err != nil {
		logPollError(err, "comments")
	}
	for i := len(comments) - 1; i >= 0; i-- {
		if ev, ok := p.commentEvent(ctx, comments[i]); ok {
			events = append(events, ev)
		}
	}

	messages, err := p.client.unreadMessages(ctx)
	if err != nil {
		logPollError(err, "unread")
	}
	var read []string
	for _, m := range messages {
		read = append(read, m.ID)
		if m.CreatedAt.Before(p.started) {
			continue
		}
		events = append(events, platform.Event{ID: uuid.NewString(), Message: m})
	}
	if err := p.client.markRead(ctx, read); err != nil {
		logPollError(err, "read_message")
	}

	p.prune()
	return events
}

func (p *Poller) postEvent(post *platform.Post) (platform.Event, bool) {
	p.postCache[post.ID] = post
	if item, ok := p.posts[post.ID]; ok {
		item.seenAt = time.Now()
		p.posts[post.ID] = item
		return platform.Event{}, false
	}
	p.posts[post.ID] = seenItem{seenAt: time.Now()}
	if post.CreatedAt.Before(p.started) {
		return platform.Event{}, false
	}
	return platform.Event{
		ID:   uuid.NewString(),
		Post: &platform.PostEvent{Author: post.Author, Subreddit: post.Subreddit, Post: post},
	}, true
}

func (p *Poller) commentEvent(ctx context.Context, c *platform.Comment) (platform.Event, bool) {
	prev, seen := p.comments[c.ID]
	p.comments[c.ID] = seenItem{edited: c.EditedAt, seenAt: time.Now()}

	var typ platform.CommentEventType
	switch {
	case !seen && !c.CreatedAt.Before(p.started):
		typ = platform.CommentSubmitted
	case !seen && !c.EditedAt.IsZero() && !c.EditedAt.Before(p.started):
		typ = platform.CommentUpdated
	case seen && !c.EditedAt.Equal(prev.edited):
		typ = platform.CommentUpdated
	default:
		return platform.Event{}, false
	}

	return platform.Event{
		ID: uuid.NewString(),
		Comment: &platform.CommentEvent{
			Type:      typ,
			Author:    c.Author,
			Subreddit: c.Subreddit,
			Post:      p.lookupPost(ctx, c.PostID),
			Comment:   c,
		},
	}, true
}

// lookupPost берёт пост из кэша или запрашивает его. nil — пост получить не удалось,
// такое событие отбросит фильтр как неполное.
func (p *Poller) lookupPost(ctx context.Context, id string) *platform.Post {
	if post, ok := p.postCache[id]; ok {
		return post
	}
	post, err := p.client.GetPost(ctx, id)
	if err != nil {
		log.WithError(err).WithField("post", id).Warn("Не удалось получить пост комментария")
		return nil
	}
	p.postCache[id] = post
	return post
}

// prune забывает элементы, которых не было в листингах дольше seenTTL.
// Пока элемент виден в листинге, он не забывается и повторно не отдаётся.
func (p *Poller) prune() {
	cutoff := time.Now().Add(-seenTTL)
	for id, item := range p.comments {
		if item.seenAt.Before(cutoff) {
			delete(p.comments, id)
		}
	}
	for id, item := range p.posts {
		if item.seenAt.Before(cutoff) {
			delete(p.posts, id)
		}
	}
	for id, post := range p.postCache {
		if post.CreatedAt.Before(cutoff) {
			delete(p.postCache, id)
		}
	}
}

func logPollError(err error, listing string) {
	if errors.Is(err, context.Canceled) {
		return
	}
	log.WithError(err).WithField("listing", listing).Warn("Ошибка опроса Reddit")
}
