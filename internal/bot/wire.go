package bot

import (
	"github.com/sirupsen/logrus"

	"github.com/EgorLis/statusbot/internal/bmapi"
	"github.com/EgorLis/statusbot/internal/config"
	"github.com/EgorLis/statusbot/internal/notify"
	"github.com/EgorLis/statusbot/internal/rustplus"
	"github.com/EgorLis/statusbot/internal/steamapi"
	"github.com/EgorLis/statusbot/internal/telegram"
	"github.com/EgorLis/statusbot/internal/tracker"
	"github.com/EgorLis/statusbot/internal/ubisoft"
)

const platformUbisoft = "ubisoft"

// FromConfig собирает бота из проверенной и нормализованной конфигурации.
// Подключается к Telegram (getMe), поэтому может вернуть сетевую ошибку.
func FromConfig(cfg *config.Config, log logrus.FieldLogger) (*StatusBot, error) {
	timeout := cfg.Timeout()
	b := New(log)
	b.SetInterval(cfg.Interval(), cfg.AnnounceOnStart)

	// один клиент BattleMetrics на игроков и серверы: общий кэш ETag
	var bm *bmapi.Client
	needBM := cfg.HasPlatform(config.PlatformBattleMetrics)
	for _, s := range cfg.Servers {
		if s.BattleMetrics != "" {
			needBM = true
		}
	}
	if needBM {
		bm = bmapi.NewClient(cfg.BattleMetrics.Token, cfg.BattleMetrics.Server, timeout, log)
	}

	if len(cfg.Players) > 0 {
		var sources []tracker.PlayerSource
		if cfg.HasPlatform(config.PlatformSteam) {
			sources = append(sources, steamapi.NewClient(cfg.Steam.APIKey, timeout, cfg.Steam.Games, cfg.Steam.PersonaStates))
		}
		if cfg.HasPlatform(config.PlatformBattleMetrics) {
			sources = append(sources, bm)
		}
		roster := make([]tracker.Player, 0, len(cfg.Players))
		for _, p := range cfg.Players {
			ids := make(map[string]string)
			for _, platform := range []string{config.PlatformSteam, config.PlatformBattleMetrics} {
				if id := p.ID(platform); id != "" {
					ids[platform] = id
				}
			}
			roster = append(roster, tracker.Player{Name: p.Name, IDs: ids})
		}
		b.SetPlayers(tracker.NewPlayers(roster, cfg.Platforms, timeout, log, sources...))
	}

	if len(cfg.Servers) > 0 {
		sources := map[string]tracker.ServerSource{platformUbisoft: ubisoft.NewClient(timeout)}
		if bm != nil {
			sources[config.PlatformBattleMetrics] = bm
		}
		servers := make([]tracker.Server, 0, len(cfg.Servers))
		for _, s := range cfg.Servers {
			srv := tracker.Server{Name: s.Name, Platform: platformUbisoft, ID: s.Ubisoft}
			if s.BattleMetrics != "" {
				srv = tracker.Server{Name: s.Name, Platform: config.PlatformBattleMetrics, ID: s.BattleMetrics}
			}
			servers = append(servers, srv)
		}
		b.SetServers(tracker.NewServers(servers, sources, timeout, log))
	}

	senders := make(map[string]notify.Sender)
	if cfg.Telegram.Token != "" {
		tg, err := telegram.New(cfg.Telegram.Token, timeout, log)
		if err != nil {
			return nil, err
		}
		senders[config.DestTelegram] = tg
		b.SetTelegram(tg)
	}
	if rp := cfg.RustPlus; rp != nil {
		c := rustplus.New(rustplus.Config{
			Server:      rp.Server,
			Port:        rp.Port,
			PlayerID:    rp.PlayerID,
			PlayerToken: rp.PlayerToken,
			UseProxy:    rp.UseProxy,
		}, log)
		senders[config.DestRustPlus] = c
		b.SetRustPlus(c)
	}

	var dests []notify.Destination
	for _, d := range cfg.Destinations() {
		dests = append(dests, notify.Destination{Platform: d.Platform, ChatID: d.ChatID})
	}
	n := notify.New(senders, dests, cfg.SendRate, log)
	n.Redact(cfg.Secrets()...)
	b.SetNotifier(n)

	return b, nil
}
