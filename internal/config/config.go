// Package config загружает конфигурацию бота из переменных окружения.
// Используется envconfig для маппинга переменных окружения на поля структуры.
// Настройки сообщества (триггеры, режимы уведомлений, шаблоны) живут отдельно,
// в settings.go, и перечитываются на каждое событие.
package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config содержит ВСЕ настройки процесса.
type Config struct {
	// --- Reddit ---
	RedditClientID     string `envconfig:"REDDIT_CLIENT_ID" required:"true"`
	RedditClientSecret string `envconfig:"REDDIT_CLIENT_SECRET" required:"true"`
	RedditUsername     string `envconfig:"REDDIT_USERNAME" required:"true"`
	RedditPassword     string `envconfig:"REDDIT_PASSWORD" required:"true"`
	RedditUserAgent    string `envconfig:"REDDIT_USER_AGENT" default:"linux:reputation-bot:v1.0"`
	// Сабреддит, в котором бот работает (единственный разрешённый)
	Subreddit string `envconfig:"REDDIT_SUBREDDIT" required:"true"`
	// Как часто опрашиваем листинги комментариев, постов и входящих
	RedditPollInterval time.Duration `envconfig:"REDDIT_POLL_INTERVAL" default:"15s"`
	// Reddit разрешает ~100 запросов в минуту на OAuth-клиента, оставляем запас
	RedditRequestsPerMinute int    `envconfig:"REDDIT_REQUESTS_PER_MINUTE" default:"60"`
	RedditAPIBaseURL        string `envconfig:"REDDIT_API_BASE_URL" default:"https://oauth.reddit.com"`
	RedditTokenURL          string `envconfig:"REDDIT_TOKEN_URL" default:"https://www.reddit.com/api/v1/access_token"`

	// --- Database ---
	// В Docker внутри контейнера "localhost" почти всегда неправильно.
	// Дефолт ставим "postgres" (имя сервиса в docker-compose), а для локалки переопределяй DB_HOST=localhost.
	DBHost     string `envconfig:"DB_HOST" default:"postgres"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" default:"botuser"`
	DBPassword string `envconfig:"DB_PASSWORD"`
	DBName     string `envconfig:"DB_NAME" default:"reputation_bot"`
	DBSSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`
	DBMaxConns int32  `envconfig:"DB_MAX_CONNS" default:"25"`
	DBMinConns int32  `envconfig:"DB_MIN_CONNS" default:"5"`

	// --- Store ---
	// postgres — боевой режим; memory — для локальной отладки, всё теряется при рестарте
	StoreBackend string `envconfig:"STORE_BACKEND" default:"postgres"`

	// --- Application ---
	AppEnv      string `envconfig:"APP_ENV" default:"development"`
	AppLogLevel string `envconfig:"APP_LOG_LEVEL" default:"debug"`
	AppTimezone string `envconfig:"APP_TIMEZONE" default:"UTC"`
	// Путь к YAML с настройками сообщества
	SettingsFile string `envconfig:"SETTINGS_FILE" default:"settings.yaml"`

	// --- Bot runtime ---
	// Сколько событий обрабатываем параллельно. Иначе "go на каждое событие" = утечка памяти при флуде.
	BotMaxInflight int `envconfig:"BOT_MAX_INFLIGHT" default:"16"`

	// --- Telegram (консоль модераторов) ---
	TelegramBotToken string  `envconfig:"TELEGRAM_BOT_TOKEN"`
	AdminIDsRaw      string  `envconfig:"ADMIN_IDS"`
	AdminIDs         []int64 `envconfig:"-"` // заполним вручную
	// Хеш Argon2id, см. scripts/generate_hash.go
	AdminPasswordHash            string        `envconfig:"ADMIN_PASSWORD_HASH"`
	TelegramUpdateTimeoutSeconds int           `envconfig:"TELEGRAM_UPDATE_TIMEOUT_SECONDS" default:"60"`
	AdminSessionTTL              time.Duration `envconfig:"ADMIN_SESSION_TTL" default:"24h"`
	AdminLoginAttemptsPerHour    int           `envconfig:"ADMIN_LOGIN_ATTEMPTS_PER_HOUR" default:"3"`

	// --- Rate Limiting ---
	// Сколько событий от одного автора пропускаем за окно
	RateLimitRequests int           `envconfig:"RATE_LIMIT_REQUESTS" default:"10"`
	RateLimitWindow   time.Duration `envconfig:"RATE_LIMIT_WINDOW" default:"1m"`

	// --- Jobs ---
	CleanupSchedule     string        `envconfig:"CLEANUP_SCHEDULE" default:"0 */6 * * *"`
	LeaderboardSchedule string        `envconfig:"LEADERBOARD_SCHEDULE" default:"*/30 * * * *"`
	LeaderboardDebounce time.Duration `envconfig:"LEADERBOARD_DEBOUNCE" default:"10s"`

	// --- Feature Flags ---
	FeatureRestrictionsEnabled bool `envconfig:"FEATURE_RESTRICTIONS_ENABLED" default:"true"`
	FeatureLeaderboardEnabled  bool `envconfig:"FEATURE_LEADERBOARD_ENABLED" default:"true"`
	FeatureCleanupEnabled      bool `envconfig:"FEATURE_CLEANUP_ENABLED" default:"true"`
	FeatureConsoleEnabled      bool `envconfig:"FEATURE_CONSOLE_ENABLED" default:"true"`
}

// DatabaseDSN возвращает строку подключения к PostgreSQL в формате DSN.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode,
	)
}

// ConsoleEnabled — консоль поднимается только при наличии токена и админов.
func (c *Config) ConsoleEnabled() bool {
	return c.FeatureConsoleEnabled && c.TelegramBotToken != "" && len(c.AdminIDs) > 0
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.Subreddit) == "" {
		return fmt.Errorf("REDDIT_SUBREDDIT не задан")
	}
	if c.BotMaxInflight <= 0 {
		return fmt.Errorf("BOT_MAX_INFLIGHT должен быть > 0")
	}
	if c.RedditPollInterval < time.Second {
		return fmt.Errorf("REDDIT_POLL_INTERVAL должен быть >= 1s")
	}
	if c.RedditRequestsPerMinute <= 0 {
		return fmt.Errorf("REDDIT_REQUESTS_PER_MINUTE должен быть > 0")
	}
	switch c.StoreBackend {
	case "postgres":
		if c.DBPassword == "" {
			return fmt.Errorf("DB_PASSWORD обязателен для STORE_BACKEND=postgres")
		}
		if c.DBMaxConns <= 0 || c.DBMinConns < 0 || c.DBMinConns > c.DBMaxConns {
			return fmt.Errorf("некорректные DB_MIN_CONNS/DB_MAX_CONNS")
		}
	case "memory":
	default:
		return fmt.Errorf("неизвестный STORE_BACKEND %q", c.StoreBackend)
	}
	if c.TelegramBotToken != "" && c.FeatureConsoleEnabled {
		if c.AdminPasswordHash == "" {
			return fmt.Errorf("ADMIN_PASSWORD_HASH обязателен, если задан TELEGRAM_BOT_TOKEN")
		}
		if c.TelegramUpdateTimeoutSeconds <= 0 {
			return fmt.Errorf("TELEGRAM_UPDATE_TIMEOUT_SECONDS должен быть > 0")
		}
	}
	return nil
}

// Location возвращает часовой пояс планировщика.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.AppTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Load читает переменные окружения и заполняет структуру Config.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("не удалось загрузить конфигурацию: %w", err)
	}

	ids, err := parseInt64CSV(cfg.AdminIDsRaw)
	if err != nil {
		return nil, fmt.Errorf("ADMIN_IDS parse: %w", err)
	}
	cfg.AdminIDs = ids
	cfg.Subreddit = strings.TrimPrefix(strings.TrimSpace(cfg.Subreddit), "r/")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func parseInt64CSV(s string) ([]int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]int64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		v, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad int64 %q: %w", p, err)
		}
		out = append(out, v)
	}
	return out, nil
}
