// Package config — settings.go описывает настройки сообщества.
// Это снимок, который читается в начале обработки КАЖДОГО события
// и явно передаётся во все компоненты (никаких глобальных синглтонов).
package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"serotonyl.ru/reputation-bot/internal/common"
)

// AccessControl — кто может выдавать обычные очки.
type AccessControl string

const (
	AccessModeratorsOnly            AccessControl = "moderators-only"
	AccessModeratorsAndSuperusers   AccessControl = "moderators-and-superusers"
	AccessModeratorsSuperusersAndOP AccessControl = "moderators-superusers-and-op"
	AccessEveryone                  AccessControl = "everyone"
)

// NotifyMode — канал ответа пользователю.
type NotifyMode string

const (
	NoReply        NotifyMode = "NoReply"
	ReplyByPM      NotifyMode = "ReplyByPM"
	ReplyAsComment NotifyMode = "ReplyAsComment"
)

// FlairMode — как бот обращается с флером получателя.
type FlairMode string

const (
	FlairOverwriteNumericSymbol FlairMode = "OverwriteNumericSymbol"
	FlairOverwriteNumeric       FlairMode = "OverwriteNumeric"
	FlairNeverSet               FlairMode = "NeverSet"
)

// Notifications задаёт режим ответа для каждого исхода.
type Notifications struct {
	SelfAward         NotifyMode `yaml:"self"`
	Duplicate         NotifyMode `yaml:"duplicate"`
	Success           NotifyMode `yaml:"success"`
	Fail              NotifyMode `yaml:"fail"`
	Superuser         NotifyMode `yaml:"superuser"`
	RestrictionLifted NotifyMode `yaml:"restrictionLifted"`
}

// Messages — шаблоны сообщений с плейсхолдерами {{...}}.
type Messages struct {
	Success           string `yaml:"success"`
	SelfAward         string `yaml:"selfAward"`
	Duplicate         string `yaml:"duplicate"`
	Unauthorized      string `yaml:"unauthorized"`
	ModUnauthorized   string `yaml:"modUnauthorized"`
	AltUnauthorized   string `yaml:"altUnauthorized"`
	Blocked           string `yaml:"blocked"`
	InvalidUsername   string `yaml:"invalidUsername"`
	BotAward          string `yaml:"botAward"`
	UserNotFound      string `yaml:"userNotFound"`
	Superuser         string `yaml:"superuser"`
	ContextIgnored    string `yaml:"contextIgnored"`
	OptOutConfirmed   string `yaml:"optOutConfirmed"`
	FirstPost         string `yaml:"firstPost"`
	SubsequentPost    string `yaml:"subsequentPost"`
	RestrictionLifted string `yaml:"restrictionLifted"`
}

// Settings — снимок настроек сообщества.
type Settings struct {
	// Триггеры, по одному на строку
	TriggerWords    string        `yaml:"triggerWords"`
	ModAwardTrigger string        `yaml:"modAwardTrigger"`
	AccessControl   AccessControl `yaml:"accessControl"`

	SuperUsers             []string `yaml:"superUsers"`
	AutoSuperuserThreshold int      `yaml:"autoSuperuserThreshold"`
	AltCommandUsers        []string `yaml:"altCommandUsers"`
	BlockedUsers           []string `yaml:"blockedUsers"`
	PrioritiseFlairScore   bool     `yaml:"prioritiseFlairScore"`

	PointName   string `yaml:"pointName"`
	PointSymbol string `yaml:"pointSymbol"`

	FlairMode                 FlairMode `yaml:"flairMode"`
	FlairCSSClass             string    `yaml:"flairCssClass"`
	FlairTemplateID           string    `yaml:"flairTemplateId"`
	RestrictedFlairCSSClass   string    `yaml:"restrictedFlairCssClass"`
	RestrictedFlairTemplateID string    `yaml:"restrictedFlairTemplateId"`

	Notify   Notifications `yaml:"notify"`
	Messages Messages      `yaml:"messages"`

	AwardsRequiredToPost int  `yaml:"awardsRequiredToPost"`
	ModeratorsExempt     bool `yaml:"moderatorsExempt"`

	HelpPage    string `yaml:"helpPage"`
	DiscordLink string `yaml:"discordLink"`

	LeaderboardWikiPage string `yaml:"leaderboardWikiPage"`
	LeaderboardSize     int    `yaml:"leaderboardSize"`
}

// Default возвращает настройки по умолчанию.
func Default() *Settings {
	s := &Settings{}
	s.ApplyDefaults()
	return s
}

// Triggers возвращает непустые триггеры из TriggerWords.
func (s *Settings) Triggers() []string {
	var out []string
	for _, line := range strings.Split(s.TriggerWords, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}

// ApplyDefaults заполняет пустые поля значениями по умолчанию.
func (s *Settings) ApplyDefaults() {
	if strings.TrimSpace(s.TriggerWords) == "" {
		s.TriggerWords = "!thanks\n!thank\n.thanks"
	}
	if s.AccessControl == "" {
		s.AccessControl = AccessEveryone
	}
	if s.PointName == "" {
		s.PointName = "points"
	}
	if s.FlairMode == "" {
		s.FlairMode = FlairOverwriteNumeric
	}
	if s.LeaderboardSize <= 0 {
		s.LeaderboardSize = 20
	}

	n := &s.Notify
	for _, mode := range []*NotifyMode{&n.SelfAward, &n.Duplicate, &n.Fail} {
		if *mode == "" {
			*mode = ReplyByPM
		}
	}
	if n.Success == "" {
		n.Success = ReplyAsComment
	}
	if n.Superuser == "" {
		n.Superuser = ReplyByPM
	}
	if n.RestrictionLifted == "" {
		n.RestrictionLifted = ReplyByPM
	}

	m := &s.Messages
	setDefault(&m.Success, "+1 {{name}} awarded to u/{{awardee}} by u/{{awarder}}. u/{{awardee}} now has {{total}}{{symbol}} {{name}}. [Leaderboard]({{leaderboard}})")
	setDefault(&m.SelfAward, "You can't award {{name}} to yourself.")
	setDefault(&m.Duplicate, "u/{{awardee}} has already been awarded {{name}} for this comment.")
	setDefault(&m.Unauthorized, "You are not allowed to award {{name}} in r/{{subreddit}}.")
	setDefault(&m.ModUnauthorized, "Only moderators and trusted users can use this command.")
	setDefault(&m.AltUnauthorized, "You are not allowed to award {{name}} to a named user.")
	setDefault(&m.Blocked, "You are not allowed to award {{name}} in r/{{subreddit}}.")
	setDefault(&m.InvalidUsername, "\"{{awardee}}\" is not a valid username.")
	setDefault(&m.BotAward, "You can't award {{name}} to the bot.")
	setDefault(&m.UserNotFound, "u/{{awardee}} can't receive {{name}} right now.")
	setDefault(&m.Superuser, "You now have {{total}} {{name}} in r/{{subreddit}} and can use {{modCommand}} as a trusted user.")
	setDefault(&m.ContextIgnored, "Your award command in r/{{subreddit}} was inside {{context}} markup and was ignored. Reply CONFIRM to stop receiving these warnings.")
	setDefault(&m.OptOutConfirmed, "You will no longer be warned about award commands inside {{context}} markup.")
	setDefault(&m.SubsequentPost, "Your post was removed. You need to award {{requirement}} {{name}} on [your previous post]({{permalink}}) with {{commands}} before posting again.")
	setDefault(&m.RestrictionLifted, "You have awarded enough {{name}} and can post in r/{{subreddit}} again.")
}

func setDefault(field *string, value string) {
	if strings.TrimSpace(*field) == "" {
		*field = value
	}
}

// Validate проверяет согласованность настроек.
func (s *Settings) Validate() error {
	if len(s.Triggers()) == 0 {
		return common.ErrNoTriggers
	}
	switch s.AccessControl {
	case AccessModeratorsOnly, AccessModeratorsAndSuperusers, AccessModeratorsSuperusersAndOP, AccessEveryone:
	default:
		return fmt.Errorf("неизвестный accessControl %q", s.AccessControl)
	}
	switch s.FlairMode {
	case FlairOverwriteNumericSymbol, FlairOverwriteNumeric, FlairNeverSet:
	default:
		return fmt.Errorf("неизвестный flairMode %q", s.FlairMode)
	}
	n := s.Notify
	for name, mode := range map[string]NotifyMode{
		"self": n.SelfAward, "duplicate": n.Duplicate, "success": n.Success,
		"fail": n.Fail, "superuser": n.Superuser, "restrictionLifted": n.RestrictionLifted,
	} {
		switch mode {
		case NoReply, ReplyByPM, ReplyAsComment:
		default:
			return fmt.Errorf("notify.%s: неизвестный режим %q", name, mode)
		}
	}
	if s.AwardsRequiredToPost < 0 {
		return fmt.Errorf("awardsRequiredToPost не может быть отрицательным")
	}
	if s.AutoSuperuserThreshold < 0 {
		return fmt.Errorf("autoSuperuserThreshold не может быть отрицательным")
	}
	return nil
}

// ParseSettings разбирает YAML, применяет дефолты и валидирует.
func ParseSettings(data []byte) (*Settings, error) {
	var s Settings
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("ошибка разбора настроек: %w", err)
	}
	s.ApplyDefaults()
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// SettingsSource отдаёт свежий снимок настроек на каждое событие.
type SettingsSource interface {
	Snapshot(ctx context.Context) (*Settings, error)
}

// FileSource перечитывает YAML-файл при каждом вызове,
// так что правки модераторов подхватываются без рестарта.
type FileSource struct {
	path string
}

// NewFileSource создаёт источник настроек из файла.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// Snapshot читает и разбирает файл настроек.
func (f *FileSource) Snapshot(ctx context.Context) (*Settings, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("не удалось прочитать %s: %w", f.path, err)
	}
	return ParseSettings(data)
}

// StaticSource всегда отдаёт копию одних и тех же настроек.
type StaticSource struct {
	Settings *Settings
}

// Snapshot возвращает копию, чтобы обработчик не мог испортить общий снимок.
func (s StaticSource) Snapshot(ctx context.Context) (*Settings, error) {
	copied := *s.Settings
	copied.SuperUsers = append([]string(nil), s.Settings.SuperUsers...)
	copied.AltCommandUsers = append([]string(nil), s.Settings.AltCommandUsers...)
	copied.BlockedUsers = append([]string(nil), s.Settings.BlockedUsers...)
	return &copied, nil
}
