package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrInvalid — общая причина всех ошибок валидации и разбора.
var ErrInvalid = errors.New("invalid config")

// Legacy — ключи старого config.json (плоский формат первой версии бота).
// Они переносятся в новые поля, только если новые не заданы.
type Legacy struct {
	TelegramBotToken string    `yaml:"telegram_bot_token"`
	ChatID           string    `yaml:"chat_id"`
	SteamAPIToken    string    `yaml:"steam_api_token"`
	PlayerSteamIDs   yaml.Node `yaml:"player_steam_ids"` // имя -> steam id, порядок важен
	GameSteamID      yaml.Node `yaml:"game_steam_id"`    // строка или список
	PersonaStates    []string  `yaml:"personastates"`
}

type document struct {
	Config `yaml:",inline"`
	Legacy `yaml:",inline"`
}

// Load читает и разбирает файл конфигурации.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(b)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse разбирает YAML/JSON. Неизвестные ключи — ошибка (ловим опечатки).
func Parse(b []byte) (*Config, error) {
	var doc document
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty file", ErrInvalid)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	cfg := doc.Config
	if err := doc.Legacy.apply(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (l *Legacy) apply(c *Config) error {
	if c.Telegram.Token == "" {
		c.Telegram.Token = l.TelegramBotToken
	}
	if id := strings.TrimSpace(l.ChatID); id != "" && !contains(c.Telegram.ChatIDs, id) {
		c.Telegram.ChatIDs = append(c.Telegram.ChatIDs, id)
	}
	if c.Steam.APIKey == "" {
		c.Steam.APIKey = l.SteamAPIToken
	}
	if len(c.Steam.PersonaStates) == 0 {
		c.Steam.PersonaStates = l.PersonaStates
	}

	switch l.GameSteamID.Kind {
	case 0:
	case yaml.ScalarNode:
		if len(c.Steam.Games) == 0 && l.GameSteamID.Value != "" {
			c.Steam.Games = []string{l.GameSteamID.Value}
		}
	case yaml.SequenceNode:
		if len(c.Steam.Games) == 0 {
			for _, n := range l.GameSteamID.Content {
				c.Steam.Games = append(c.Steam.Games, n.Value)
			}
		}
	default:
		return fmt.Errorf("%w: game_steam_id must be a string or a list", ErrInvalid)
	}

	switch l.PlayerSteamIDs.Kind {
	case 0:
	case yaml.MappingNode:
		// Content идёт парами ключ/значение в порядке файла.
		for i := 0; i+1 < len(l.PlayerSteamIDs.Content); i += 2 {
			name := l.PlayerSteamIDs.Content[i].Value
			id := l.PlayerSteamIDs.Content[i+1].Value
			if p := findPlayer(c.Players, name); p != nil {
				if p.Steam == "" {
					p.Steam = id
				}
				continue
			}
			c.Players = append(c.Players, PlayerConf{Name: name, Steam: id})
		}
	default:
		return fmt.Errorf("%w: player_steam_ids must be a mapping of name to steam id", ErrInvalid)
	}
	return nil
}

// ApplyEnv переопределяет секреты из окружения (например, из .env).
func (c *Config) ApplyEnv(getenv func(string) string) error {
	if v := getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		c.Telegram.Token = v
	}
	if v := getenv("STEAM_API_KEY"); v != "" {
		c.Steam.APIKey = v
	}
	if v := getenv("BATTLEMETRICS_TOKEN"); v != "" {
		c.BattleMetrics.Token = v
	}
	if v := getenv("RUSTPLUS_PLAYER_TOKEN"); v != "" && c.RustPlus != nil {
		tok, err := strconv.ParseInt(v, 10, 32)
		if err != nil {
			return fmt.Errorf("%w: RUSTPLUS_PLAYER_TOKEN: %v", ErrInvalid, err)
		}
		c.RustPlus.PlayerToken = int32(tok)
	}
	return nil
}

// Secrets возвращает все заданные секреты — для вычищения из логов.
func (c *Config) Secrets() []string {
	var out []string
	for _, s := range []string{c.Telegram.Token, c.Steam.APIKey, c.BattleMetrics.Token} {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

func findPlayer(ps []PlayerConf, name string) *PlayerConf {
	for i := range ps {
		if ps[i].Name == name {
			return &ps[i]
		}
	}
	return nil
}

func contains(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}
