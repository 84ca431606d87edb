// Package reddit — адаптер Reddit API: OAuth2 (password grant), ограничение
// частоты запросов и разбор JSON-листингов. Client реализует platform.Platform.
package reddit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"serotonyl.ru/reputation-bot/internal/common"
)

// Options — параметры подключения.
type Options struct {
	ClientID     string
	ClientSecret string
	Username     string
	Password     string
	UserAgent    string
	BaseURL      string
	TokenURL     string
	// Сколько запросов в минуту разрешено
	RequestsPerMinute int
	// Базовый транспорт, для тестов
	Transport http.RoundTripper
}

// Client — клиент Reddit API от имени аккаунта бота.
type Client struct {
	http     *http.Client
	baseURL  string
	username string
	limiter  *rate.Limiter
}

// New создаёт клиента. Токен запрашивается лениво, при первом запросе.
func New(ctx context.Context, opts Options) *Client {
	base := opts.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	transport := &userAgentTransport{base: base, userAgent: opts.UserAgent}
	// Запрос токена тоже должен идти с User-Agent, иначе Reddit отвечает 429
	ctx = context.WithValue(ctx, oauth2.HTTPClient, &http.Client{Transport: transport, Timeout: 30 * time.Second})

	conf := &oauth2.Config{
		ClientID:     opts.ClientID,
		ClientSecret: opts.ClientSecret,
		Endpoint: oauth2.Endpoint{
			TokenURL:  opts.TokenURL,
			AuthStyle: oauth2.AuthStyleInHeader,
		},
	}
	source := oauth2.ReuseTokenSource(nil, &passwordTokenSource{
		ctx:      ctx,
		conf:     conf,
		username: opts.Username,
		password: opts.Password,
	})

	httpClient := oauth2.NewClient(ctx, source)
	httpClient.Timeout = 30 * time.Second

	perMinute := opts.RequestsPerMinute
	if perMinute <= 0 {
		perMinute = 60
	}
	return &Client{
		http:     httpClient,
		baseURL:  strings.TrimRight(opts.BaseURL, "/"),
		username: opts.Username,
		limiter:  rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 5),
	}
}

// BotUsername возвращает аккаунт бота.
func (c *Client) BotUsername() string {
	return c.username
}

// passwordTokenSource заново проходит password grant, когда токен истёк.
// Reddit не выдаёт refresh_token для скриптовых приложений.
type passwordTokenSource struct {
	ctx      context.Context
	conf     *oauth2.Config
	username string
	password string
}

func (s *passwordTokenSource) Token() (*oauth2.Token, error) {
	token, err := s.conf.PasswordCredentialsToken(s.ctx, s.username, s.password)
	if err != nil {
		return nil, fmt.Errorf("не удалось получить токен Reddit: %w", err)
	}
	log.WithField("expires", token.Expiry.Format(time.RFC3339)).Debug("Получен токен Reddit")
	return token, nil
}

// userAgentTransport проставляет User-Agent каждому запросу.
type userAgentTransport struct {
	base      http.RoundTripper
	userAgent string
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("User-Agent", t.userAgent)
	return t.base.RoundTrip(req)
}

// APIError — ответ Reddit с кодом ошибки.
type APIError struct {
	Status int
	Path   string
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("reddit %s: HTTP %d: %s", e.Path, e.Status, e.Body)
}

// get выполняет GET и декодирует JSON в out.
func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	if query == nil {
		query = url.Values{}
	}
	query.Set("raw_json", "1")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+query.Encode(), nil)
	if err != nil {
		return err
	}
	return c.do(req, path, out)
}

// post отправляет форму и декодирует JSON в out (out может быть nil).
func (c *Client) post(ctx context.Context, path string, form url.Values, out any) error {
	form.Set("api_type", "json")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req, path, out)
}

func (c *Client) do(req *http.Request, path string, out any) error {
	if err := c.limiter.Wait(req.Context()); err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("reddit %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("reddit %s: %w", path, common.ErrNotFound)
	}
	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &APIError{Status: resp.StatusCode, Path: path, Body: strings.TrimSpace(string(body))}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("reddit %s: ошибка разбора ответа: %w", path, err)
	}
	return nil
}
