// Package config — конфигурация бота: один файл YAML (или старый config.json,
// JSON является подмножеством YAML) плюс переопределение секретов через
// переменные окружения.
//
// Порядок работы: Load -> ApplyEnv -> Validate -> Normalize.
// Validate ничего не меняет, Normalize вызывается только после Validate.
package config

import (
	"fmt"
	"time"
)

type TelegramConf struct {
	Token   string   `yaml:"token"`
	ChatIDs []string `yaml:"chat_ids"` // числовой id чата или @channel
}

type RustPlusConf struct {
	Server      string `yaml:"server"`
	Port        int    `yaml:"port"`
	PlayerID    uint64 `yaml:"player_id"`
	PlayerToken int32  `yaml:"player_token"`
	UseProxy    bool   `yaml:"use_proxy"`
	Notify      bool   `yaml:"notify"` // слать уведомления в тим-чат
}

type SteamConf struct {
	APIKey string `yaml:"api_key"`
	// Games — id игр, которые считаются "in-game". Пусто — любая игра.
	Games []string `yaml:"games"`
	// PersonaStates — подписи personastate 0..6 (как в старом config.json).
	PersonaStates []string `yaml:"persona_states"`
}

type BattleMetricsConf struct {
	Token  string `yaml:"token"`
	Server string `yaml:"server"` // сервер, на котором ищем игроков
}

type PlayerConf struct {
	Name          string `yaml:"name"`
	Steam         string `yaml:"steam"`
	BattleMetrics string `yaml:"battlemetrics"`
}

type ServerConf struct {
	Name          string `yaml:"name"`
	Ubisoft       string `yaml:"ubisoft"`
	BattleMetrics string `yaml:"battlemetrics"`
}

type Config struct {
	Telegram      TelegramConf      `yaml:"telegram"`
	RustPlus      *RustPlusConf     `yaml:"rustplus"`
	Steam         SteamConf         `yaml:"steam"`
	BattleMetrics BattleMetricsConf `yaml:"battlemetrics"`

	Players []PlayerConf `yaml:"players"`
	Servers []ServerConf `yaml:"servers"`
	// Platforms — порядок приоритета платформ при определении статуса игрока.
	Platforms []string `yaml:"platforms"`

	TimeInterval    int     `yaml:"time_interval"`   // секунды
	RequestTimeout  int     `yaml:"request_timeout"` // секунды, на один запрос
	SendRate        float64 `yaml:"send_rate"`       // сообщений в секунду
	AnnounceOnStart bool    `yaml:"announce_on_start"`
	LogLevel        string  `yaml:"log_level"`
}

// Имена платформ игроков.
const (
	PlatformSteam         = "steam"
	PlatformBattleMetrics = "battlemetrics"
)

// Имена платформ мессенджеров в назначениях.
const (
	DestTelegram = "telegram"
	DestRustPlus = "rustplus"
)

// Destination — куда слать уведомление.
type Destination struct {
	Platform string
	ChatID   string
}

func (d Destination) String() string { return d.Platform + ":" + d.ChatID }

// Destinations перечисляет назначения в порядке конфигурации.
func (c *Config) Destinations() []Destination {
	var out []Destination
	for _, id := range c.Telegram.ChatIDs {
		out = append(out, Destination{Platform: DestTelegram, ChatID: id})
	}
	if c.RustPlus != nil && c.RustPlus.Notify {
		out = append(out, Destination{Platform: DestRustPlus, ChatID: "team"})
	}
	return out
}

func (c *Config) Interval() time.Duration {
	return time.Duration(c.TimeInterval) * time.Second
}

func (c *Config) Timeout() time.Duration {
	return time.Duration(c.RequestTimeout) * time.Second
}

// HasPlatform — есть ли хотя бы один игрок с id на платформе.
func (c *Config) HasPlatform(platform string) bool {
	for _, p := range c.Players {
		if p.ID(platform) != "" {
			return true
		}
	}
	return false
}

// ID возвращает id игрока на платформе.
func (p PlayerConf) ID(platform string) string {
	switch platform {
	case PlatformSteam:
		return p.Steam
	case PlatformBattleMetrics:
		return p.BattleMetrics
	}
	return ""
}

func (s ServerConf) String() string {
	switch {
	case s.Ubisoft != "":
		return fmt.Sprintf("%s (ubisoft %s)", s.Name, s.Ubisoft)
	case s.BattleMetrics != "":
		return fmt.Sprintf("%s (battlemetrics %s)", s.Name, s.BattleMetrics)
	}
	return s.Name
}
