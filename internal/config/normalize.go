package config

import (
	"strings"

	"github.com/leighmacdonald/steamid/v4/steamid"
)

// Значения по умолчанию.
const (
	DefaultRequestTimeout = 10 // секунды
	DefaultSendRate       = 1.0
	DefaultLogLevel       = "info"
)

// DefaultPlatforms — приоритет платформ, если platforms не задан.
var DefaultPlatforms = []string{PlatformSteam, PlatformBattleMetrics}

// Normalize проставляет значения по умолчанию и приводит идентификаторы
// к каноническому виду. Вызывать только после успешного Validate.
func (c *Config) Normalize() {
	if c.RequestTimeout == 0 {
		c.RequestTimeout = DefaultRequestTimeout
	}
	if c.SendRate == 0 {
		c.SendRate = DefaultSendRate
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if len(c.Platforms) == 0 {
		c.Platforms = append([]string(nil), DefaultPlatforms...)
	}

	for i := range c.Players {
		p := &c.Players[i]
		p.Name = strings.TrimSpace(p.Name)
		if p.Steam != "" {
			// STEAM_0:1:..., [U:1:...] и steam64 -> steam64
			sid := steamid.New(p.Steam)
			p.Steam = sid.String()
		}
	}
	for i := range c.Servers {
		c.Servers[i].Name = strings.TrimSpace(c.Servers[i].Name)
	}
	for i, id := range c.Telegram.ChatIDs {
		c.Telegram.ChatIDs[i] = strings.TrimSpace(id)
	}
}
