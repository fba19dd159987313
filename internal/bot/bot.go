package bot

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/EgorLis/statusbot/internal/rustplus"
	"github.com/EgorLis/statusbot/internal/telegram"
	"github.com/EgorLis/statusbot/internal/tracker"
)

// CommandLoop — транспорт, из которого приходят команды Telegram.
type CommandLoop interface {
	Run(ctx context.Context, handle telegram.CommandFunc) error
}

// TeamChat — транспорт тим-чата Rust+.
type TeamChat interface {
	HandleCommands(handle rustplus.CommandFunc)
	Connect(ctx context.Context) error
	Disconnect()
}

type StatusBot struct {
	players  tracker.Fetcher
	servers  tracker.Fetcher
	notifier Notifier
	tg       CommandLoop
	rp       TeamChat

	every    time.Duration
	announce bool
	log      logrus.FieldLogger

	commands  *Commands
	scheduler *Scheduler

	stopCh chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

func New(log logrus.FieldLogger) *StatusBot {
	return &StatusBot{log: log, every: time.Minute}
}

func (bot *StatusBot) SetPlayers(f tracker.Fetcher) { bot.players = f }

func (bot *StatusBot) SetServers(f tracker.Fetcher) { bot.servers = f }

func (bot *StatusBot) SetNotifier(n Notifier) { bot.notifier = n }

func (bot *StatusBot) SetTelegram(t CommandLoop) { bot.tg = t }

func (bot *StatusBot) SetRustPlus(rp TeamChat) { bot.rp = rp }

// SetInterval задаёт период опроса; announce — слать полный отчёт на старте.
func (bot *StatusBot) SetInterval(every time.Duration, announce bool) {
	bot.every = every
	bot.announce = announce
}

// Scheduler возвращает планировщик (после Start).
func (bot *StatusBot) Scheduler() *Scheduler { return bot.scheduler }

func (bot *StatusBot) Start() error {
	if bot == nil {
		return errors.New("bot is not initialized")
	}
	if bot.players == nil && bot.servers == nil {
		return errors.New("nothing to track")
	}
	if bot.notifier == nil {
		return errors.New("notifier is not set")
	}
	if bot.every <= 0 {
		return errors.New("interval must be positive")
	}

	bot.mu.Lock()
	if bot.stopCh != nil {
		bot.mu.Unlock()
		return errors.New("already running")
	}
	bot.stopCh = make(chan struct{})
	stopCh := bot.stopCh
	bot.mu.Unlock()

	bot.commands = NewCommands(bot.log)
	bot.commands.Register("status", "current status of players and servers, or only of the named ones",
		statusCommand(bot.players, bot.servers, time.Now))
	bot.commands.Register("tell_off", "ask the bot to leave", HandlerFunc(tellOffCommand))

	bot.scheduler = newScheduler(bot.players, bot.servers, bot.notifier, bot.every, bot.announce, bot.log)

	ctx, cancel := context.WithCancel(context.Background())

	if bot.rp != nil {
		bot.rp.HandleCommands(func(ctx context.Context, user, cmd, args string) (string, bool) {
			return bot.commands.Dispatch(ctx, Request{
				Platform: "rustplus", ChatID: "team", User: user, Command: cmd, Args: splitArgs(args),
			})
		})
		if err := bot.rp.Connect(ctx); err != nil {
			cancel()
			bot.mu.Lock()
			bot.stopCh = nil
			bot.mu.Unlock()
			return err
		}
	}

	if bot.tg != nil {
		bot.wg.Add(1)
		go func() {
			defer bot.wg.Done()
			err := bot.tg.Run(ctx, func(ctx context.Context, chatID, user, cmd, args string) (string, bool) {
				return bot.commands.Dispatch(ctx, Request{
					Platform: "telegram", ChatID: chatID, User: user, Command: cmd, Args: splitArgs(args),
				})
			})
			if err != nil {
				bot.log.WithError(err).Error("telegram loop stopped")
			}
		}()
	}

	bot.wg.Add(1)
	go func() {
		defer bot.wg.Done()
		bot.scheduler.Run(ctx)
	}()

	// сторож для остановки
	bot.wg.Add(1)
	go func() {
		defer bot.wg.Done()
		<-stopCh
		cancel()
		if bot.rp != nil {
			bot.rp.Disconnect()
		}
	}()

	bot.log.WithField("every", bot.every).Info("bot started")
	return nil
}

func (bot *StatusBot) Stop() {
	bot.mu.Lock()
	ch := bot.stopCh
	bot.stopCh = nil
	bot.mu.Unlock()

	if ch != nil {
		close(ch)     // повторный Stop() ничего не делает
		bot.wg.Wait() // дождёмся фоновых горутин
		bot.log.Info("bot stopped")
	}
}
