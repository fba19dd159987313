package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/leighmacdonald/steamid/v4/steamid"
	"github.com/sirupsen/logrus"
)

// Validate проверяет конфигурацию целиком и возвращает все найденные
// проблемы разом (errors.Join). Конфигурацию не меняет.
func (c *Config) Validate() error {
	var errs []error
	bad := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
	}

	if c.TimeInterval <= 0 {
		bad("time_interval must be > 0, got %d", c.TimeInterval)
	}
	if c.RequestTimeout < 0 {
		bad("request_timeout must be >= 0, got %d", c.RequestTimeout)
	}
	if c.SendRate < 0 {
		bad("send_rate must be >= 0, got %v", c.SendRate)
	}
	if c.LogLevel != "" {
		if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
			bad("log_level: %v", err)
		}
	}

	if len(c.Players) == 0 && len(c.Servers) == 0 {
		bad("nothing to track: players and servers are both empty")
	}

	// приоритет платформ с учётом значения по умолчанию
	platforms := c.Platforms
	if len(platforms) == 0 {
		platforms = DefaultPlatforms
	}

	seen := make(map[string]bool)
	for i, p := range c.Players {
		name := strings.TrimSpace(p.Name)
		switch {
		case name == "":
			bad("players[%d]: empty name", i)
		case seen[name]:
			bad("players[%d]: duplicate name %q", i, name)
		}
		seen[name] = true
		if p.Steam == "" && p.BattleMetrics == "" {
			bad("player %q: no platform ids", name)
		} else if !p.onAny(platforms) {
			bad("player %q: no id on any of platforms %v", name, platforms)
		}
		if p.Steam != "" {
			if sid := steamid.New(p.Steam); !sid.Valid() {
				bad("player %q: invalid steam id %q", name, p.Steam)
			}
		}
	}

	seen = make(map[string]bool)
	for i, s := range c.Servers {
		name := strings.TrimSpace(s.Name)
		switch {
		case name == "":
			bad("servers[%d]: empty name", i)
		case seen[name]:
			bad("servers[%d]: duplicate name %q", i, name)
		}
		seen[name] = true
		if (s.Ubisoft == "") == (s.BattleMetrics == "") {
			bad("server %q: exactly one of ubisoft or battlemetrics must be set", name)
		}
	}

	if c.HasPlatform(PlatformSteam) && c.Steam.APIKey == "" {
		bad("steam.api_key is required when players have steam ids")
	}
	if c.HasPlatform(PlatformBattleMetrics) && c.BattleMetrics.Server == "" {
		bad("battlemetrics.server is required when players have battlemetrics ids")
	}

	seen = make(map[string]bool)
	for _, p := range c.Platforms {
		switch {
		case p != PlatformSteam && p != PlatformBattleMetrics:
			bad("platforms: unknown platform %q", p)
		case seen[p]:
			bad("platforms: duplicate platform %q", p)
		}
		seen[p] = true
	}

	if len(c.Telegram.ChatIDs) > 0 && c.Telegram.Token == "" {
		bad("telegram.token is required when telegram.chat_ids are set")
	}
	for _, id := range c.Telegram.ChatIDs {
		if strings.TrimSpace(id) == "" {
			bad("telegram.chat_ids: empty chat id")
		}
	}
	if rp := c.RustPlus; rp != nil {
		if rp.Server == "" {
			bad("rustplus.server is required")
		}
		if rp.Port <= 0 || rp.Port > 65535 {
			bad("rustplus.port out of range: %d", rp.Port)
		}
		if rp.PlayerID == 0 {
			bad("rustplus.player_id is required")
		}
	}
	if len(c.Destinations()) == 0 {
		bad("no destinations: set telegram.chat_ids or rustplus.notify")
	}

	return errors.Join(errs...)
}

// onAny — есть ли у игрока id хотя бы на одной из платформ.
func (p PlayerConf) onAny(platforms []string) bool {
	for _, platform := range platforms {
		if p.ID(platform) != "" {
			return true
		}
	}
	return false
}
