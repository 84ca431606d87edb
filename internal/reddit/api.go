// Package reddit — api.go: эндпоинты Reddit, нужные боту,
// и перевод JSON-ответов в типы platform.
package reddit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/url"
	"strings"
	"time"

	"serotonyl.ru/reputation-bot/internal/common"
	"serotonyl.ru/reputation-bot/internal/platform"
)

var _ platform.Platform = (*Client)(nil)

// listing — стандартная обёртка Reddit {"kind":"Listing","data":{"children":[...]}}.
type listing struct {
	Data struct {
		After    string  `json:"after"`
		Children []thing `json:"children"`
	} `json:"data"`
}

type thing struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

// redditTime — поле edited: false или unix-время.
type redditTime float64

func (t *redditTime) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("false")) || bytes.Equal(data, []byte("true")) || bytes.Equal(data, []byte("null")) {
		*t = 0
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*t = redditTime(f)
	return nil
}

func (t redditTime) Time() time.Time {
	if t == 0 {
		return time.Time{}
	}
	sec, frac := math.Modf(float64(t))
	return time.Unix(int64(sec), int64(frac*1e9)).UTC()
}

type commentData struct {
	Name           string     `json:"name"`
	ParentID       string     `json:"parent_id"`
	LinkID         string     `json:"link_id"`
	Author         string     `json:"author"`
	AuthorFullname string     `json:"author_fullname"`
	Subreddit      string     `json:"subreddit"`
	Body           string     `json:"body"`
	Permalink      string     `json:"permalink"`
	Created        redditTime `json:"created_utc"`
	Edited         redditTime `json:"edited"`
}

func (d commentData) toComment() *platform.Comment {
	return &platform.Comment{
		ID:        d.Name,
		ParentID:  d.ParentID,
		PostID:    d.LinkID,
		Author:    d.Author,
		AuthorID:  d.AuthorFullname,
		Subreddit: d.Subreddit,
		Body:      d.Body,
		Permalink: d.Permalink,
		CreatedAt: d.Created.Time(),
		EditedAt:  d.Edited.Time(),
	}
}

type postData struct {
	Name           string     `json:"name"`
	Author         string     `json:"author"`
	AuthorFullname string     `json:"author_fullname"`
	Subreddit      string     `json:"subreddit"`
	Title          string     `json:"title"`
	Permalink      string     `json:"permalink"`
	Created        redditTime `json:"created_utc"`
}

func (d postData) toPost() *platform.Post {
	return &platform.Post{
		ID:        d.Name,
		Author:    d.Author,
		AuthorID:  d.AuthorFullname,
		Subreddit: d.Subreddit,
		Title:     d.Title,
		Permalink: d.Permalink,
		CreatedAt: d.Created.Time(),
	}
}

type messageData struct {
	Name       string     `json:"name"`
	Author     string     `json:"author"`
	Subject    string     `json:"subject"`
	Body       string     `json:"body"`
	WasComment bool       `json:"was_comment"`
	Created    redditTime `json:"created_utc"`
}

// ListModerators — GET /r/{sub}/about/moderators.
func (c *Client) ListModerators(ctx context.Context, subreddit, username string) ([]platform.User, error) {
	query := url.Values{}
	if username != "" {
		query.Set("user", username)
	}
	var resp struct {
		Data struct {
			Children []struct {
				ID   string `json:"id"`
				Name string `json:"name"`
			} `json:"children"`
		} `json:"data"`
	}
	if err := c.get(ctx, "/r/"+url.PathEscape(subreddit)+"/about/moderators", query, &resp); err != nil {
		return nil, err
	}
	out := make([]platform.User, 0, len(resp.Data.Children))
	for _, m := range resp.Data.Children {
		out = append(out, platform.User{ID: m.ID, Name: m.Name})
	}
	return out, nil
}

// GetUserByUsername — GET /user/{name}/about. 404 и заблокированный аккаунт дают (nil, nil).
func (c *Client) GetUserByUsername(ctx context.Context, username string) (*platform.User, error) {
	var resp struct {
		Data struct {
			ID          string `json:"id"`
			Name        string `json:"name"`
			IsSuspended bool   `json:"is_suspended"`
		} `json:"data"`
	}
	err := c.get(ctx, "/user/"+url.PathEscape(username)+"/about", nil, &resp)
	if errors.Is(err, common.ErrNotFound) {
		return nil, nil
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Status == 403 {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if resp.Data.IsSuspended || resp.Data.Name == "" {
		return nil, nil
	}
	return &platform.User{ID: "t2_" + resp.Data.ID, Name: resp.Data.Name}, nil
}

// info — GET /api/info?id=<fullname>.
func (c *Client) info(ctx context.Context, fullname string) (*thing, error) {
	var resp listing
	if err := c.get(ctx, "/api/info", url.Values{"id": {fullname}}, &resp); err != nil {
		return nil, err
	}
	if len(resp.Data.Children) == 0 {
		return nil, fmt.Errorf("%s: %w", fullname, common.ErrNotFound)
	}
	return &resp.Data.Children[0], nil
}

// GetComment возвращает комментарий по fullname (t1_xxx).
func (c *Client) GetComment(ctx context.Context, id string) (*platform.Comment, error) {
	item, err := c.info(ctx, withPrefix(id, platform.CommentPrefix))
	if err != nil {
		return nil, err
	}
	var d commentData
	if err := json.Unmarshal(item.Data, &d); err != nil {
		return nil, fmt.Errorf("комментарий %s: %w", id, err)
	}
	return d.toComment(), nil
}

// GetPost возвращает пост по fullname (t3_xxx).
func (c *Client) GetPost(ctx context.Context, id string) (*platform.Post, error) {
	item, err := c.info(ctx, withPrefix(id, platform.PostPrefix))
	if err != nil {
		return nil, err
	}
	var d postData
	if err := json.Unmarshal(item.Data, &d); err != nil {
		return nil, fmt.Errorf("пост %s: %w", id, err)
	}
	return d.toPost(), nil
}

// GetUserFlair — GET /r/{sub}/api/flairlist?name=.
func (c *Client) GetUserFlair(ctx context.Context, subreddit, username string) (*platform.Flair, error) {
	var resp struct {
		Users []struct {
			User       string `json:"user"`
			FlairText  string `json:"flair_text"`
			FlairClass string `json:"flair_css_class"`
		} `json:"users"`
	}
	query := url.Values{"name": {username}, "limit": {"1"}}
	if err := c.get(ctx, "/r/"+url.PathEscape(subreddit)+"/api/flairlist", query, &resp); err != nil {
		return nil, err
	}
	for _, u := range resp.Users {
		if strings.EqualFold(u.User, username) {
			return &platform.Flair{Text: u.FlairText, CSSClass: u.FlairClass}, nil
		}
	}
	return nil, nil
}

// SetUserFlair — POST /r/{sub}/api/selectflair. Если задан шаблон, CSS-класс не отправляем.
func (c *Client) SetUserFlair(ctx context.Context, subreddit, username string, flair platform.Flair) error {
	form := url.Values{"name": {username}, "text": {flair.Text}}
	if flair.TemplateID != "" {
		form.Set("flair_template_id", flair.TemplateID)
	} else if flair.CSSClass != "" {
		form.Set("css_class", flair.CSSClass)
	}
	var resp jsonResponse
	if err := c.post(ctx, "/r/"+url.PathEscape(subreddit)+"/api/selectflair", form, &resp); err != nil {
		return err
	}
	return resp.err("selectflair")
}

// jsonResponse — ответ POST-эндпоинтов с api_type=json.
type jsonResponse struct {
	JSON struct {
		Errors [][]any `json:"errors"`
		Data   struct {
			Things []thing `json:"things"`
		} `json:"data"`
	} `json:"json"`
}

func (r jsonResponse) err(op string) error {
	if len(r.JSON.Errors) == 0 {
		return nil
	}
	return fmt.Errorf("reddit %s: %v", op, r.JSON.Errors[0])
}

// SubmitComment — POST /api/comment.
func (c *Client) SubmitComment(ctx context.Context, parentID, text string) (*platform.Comment, error) {
	var resp jsonResponse
	if err := c.post(ctx, "/api/comment", url.Values{"thing_id": {parentID}, "text": {text}}, &resp); err != nil {
		return nil, err
	}
	if err := resp.err("comment"); err != nil {
		return nil, err
	}
	if len(resp.JSON.Data.Things) == 0 {
		return nil, fmt.Errorf("reddit comment: пустой ответ")
	}
	var d commentData
	if err := json.Unmarshal(resp.JSON.Data.Things[0].Data, &d); err != nil {
		return nil, err
	}
	return d.toComment(), nil
}

// Distinguish — POST /api/distinguish, комментарий помечается как модераторский.
func (c *Client) Distinguish(ctx context.Context, commentID string, sticky bool) error {
	form := url.Values{"id": {commentID}, "how": {"yes"}}
	if sticky {
		form.Set("sticky", "true")
	}
	return c.post(ctx, "/api/distinguish", form, nil)
}

// SendPrivateMessage — POST /api/compose.
func (c *Client) SendPrivateMessage(ctx context.Context, to, subject, text string) error {
	var resp jsonResponse
	form := url.Values{"to": {to}, "subject": {common.TruncateText(subject, 97)}, "text": {text}}
	if err := c.post(ctx, "/api/compose", form, &resp); err != nil {
		return err
	}
	return resp.err("compose")
}

// Remove — POST /api/remove (не спам).
func (c *Client) Remove(ctx context.Context, id string) error {
	return c.post(ctx, "/api/remove", url.Values{"id": {id}, "spam": {"false"}}, nil)
}

// GetWikiPage — GET /r/{sub}/wiki/{page}.
func (c *Client) GetWikiPage(ctx context.Context, subreddit, page string) (string, error) {
	var resp struct {
		Data struct {
			ContentMD string `json:"content_md"`
		} `json:"data"`
	}
	if err := c.get(ctx, "/r/"+url.PathEscape(subreddit)+"/wiki/"+page, nil, &resp); err != nil {
		return "", err
	}
	return resp.Data.ContentMD, nil
}

// UpdateWikiPage — POST /r/{sub}/api/wiki/edit.
func (c *Client) UpdateWikiPage(ctx context.Context, subreddit, page, content, reason string) error {
	form := url.Values{"page": {page}, "content": {content}, "reason": {reason}}
	return c.post(ctx, "/r/"+url.PathEscape(subreddit)+"/api/wiki/edit", form, nil)
}

// newComments — GET /r/{sub}/comments.
func (c *Client) newComments(ctx context.Context, subreddit string, limit int) ([]*platform.Comment, error) {
	var resp listing
	query := url.Values{"limit": {fmt.Sprint(limit)}}
	if err := c.get(ctx, "/r/"+url.PathEscape(subreddit)+"/comments", query, &resp); err != nil {
		return nil, err
	}
	out := make([]*platform.Comment, 0, len(resp.Data.Children))
	for _, item := range resp.Data.Children {
		if item.Kind != "t1" {
			continue
		}
		var d commentData
		if err := json.Unmarshal(item.Data, &d); err != nil {
			return nil, err
		}
		out = append(out, d.toComment())
	}
	return out, nil
}

// newPosts — GET /r/{sub}/new.
func (c *Client) newPosts(ctx context.Context, subreddit string, limit int) ([]*platform.Post, error) {
	var resp listing
	query := url.Values{"limit": {fmt.Sprint(limit)}}
	if err := c.get(ctx, "/r/"+url.PathEscape(subreddit)+"/new", query, &resp); err != nil {
		return nil, err
	}
	out := make([]*platform.Post, 0, len(resp.Data.Children))
	for _, item := range resp.Data.Children {
		if item.Kind != "t3" {
			continue
		}
		var d postData
		if err := json.Unmarshal(item.Data, &d); err != nil {
			return nil, err
		}
		out = append(out, d.toPost())
	}
	return out, nil
}

// unreadMessages — GET /message/unread, только личные сообщения (не ответы на комментарии).
func (c *Client) unreadMessages(ctx context.Context) ([]*platform.PrivateMessage, error) {
	var resp listing
	if err := c.get(ctx, "/message/unread", url.Values{"limit": {"100"}}, &resp); err != nil {
		return nil, err
	}
	var out []*platform.PrivateMessage
	for _, item := range resp.Data.Children {
		if item.Kind != "t4" {
			continue
		}
		var d messageData
		if err := json.Unmarshal(item.Data, &d); err != nil {
			return nil, err
		}
		if d.WasComment {
			continue
		}
		out = append(out, &platform.PrivateMessage{
			ID:        d.Name,
			Author:    d.Author,
			Subject:   d.Subject,
			Body:      d.Body,
			CreatedAt: d.Created.Time(),
		})
	}
	return out, nil
}

// markRead — POST /api/read_message.
func (c *Client) markRead(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return c.post(ctx, "/api/read_message", url.Values{"id": {strings.Join(ids, ",")}}, nil)
}

func withPrefix(id, prefix string) string {
	if strings.HasPrefix(id, "t") && len(id) > 3 && id[2] == '_' {
		return id
	}
	return prefix + id
}
