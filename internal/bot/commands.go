package bot

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/EgorLis/statusbot/internal/status"
	"github.com/EgorLis/statusbot/internal/tracker"
)

// сплит с поддержкой кавычек: msg="дом рейдят"
var reArg = regexp.MustCompile(`"([^"]*)"|(\S+)`)

// Request — команда из чата.
type Request struct {
	Platform string // telegram, rustplus
	ChatID   string
	User     string
	Command  string
	Args     []string
}

// Handler отвечает на команду текстом.
type Handler interface {
	Handle(ctx context.Context, req Request) (string, error)
}

type HandlerFunc func(ctx context.Context, req Request) (string, error)

func (f HandlerFunc) Handle(ctx context.Context, req Request) (string, error) { return f(ctx, req) }

// Commands — таблица команд keyword -> Handler, собирается при старте.
type Commands struct {
	handlers map[string]Handler
	help     map[string]string
	log      logrus.FieldLogger
}

func NewCommands(log logrus.FieldLogger) *Commands {
	c := &Commands{
		handlers: make(map[string]Handler),
		help:     make(map[string]string),
		log:      log,
	}
	c.Register("help", "list commands", HandlerFunc(c.helpCommand))
	return c
}

// Register добавляет команду. Повторная регистрация заменяет обработчик.
func (c *Commands) Register(keyword, help string, h Handler) {
	keyword = strings.ToLower(keyword)
	c.handlers[keyword] = h
	c.help[keyword] = help
}

// Keywords — зарегистрированные команды по алфавиту.
func (c *Commands) Keywords() []string {
	out := make([]string, 0, len(c.handlers))
	for k := range c.handlers {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Dispatch находит обработчик и выполняет его. ok=false — команда
// неизвестна. Ошибка обработчика превращается в короткий ответ.
func (c *Commands) Dispatch(ctx context.Context, req Request) (reply string, ok bool) {
	req.Command = strings.ToLower(req.Command)
	h, ok := c.handlers[req.Command]
	if !ok {
		return "", false
	}
	log := c.log.WithFields(logrus.Fields{"command": req.Command, "platform": req.Platform})
	reply, err := h.Handle(ctx, req)
	if err != nil {
		log.WithError(err).Error("command failed")
		return "error: command failed, see logs", true
	}
	return reply, true
}

func (c *Commands) helpCommand(_ context.Context, req Request) (string, error) {
	prefix := "/"
	if req.Platform == "rustplus" {
		prefix = "!"
	}
	var lines []string
	for _, k := range c.Keywords() {
		lines = append(lines, fmt.Sprintf("%s%s - %s", prefix, k, c.help[k]))
	}
	return strings.Join(lines, "\n"), nil
}

// statusCommand — свежий опрос и полный отчёт. Снимки планировщика не
// читает и не меняет. Аргументы сужают отчёт до названных имён.
func statusCommand(players, servers tracker.Fetcher, now func() time.Time) Handler {
	return HandlerFunc(func(ctx context.Context, req Request) (string, error) {
		var sections []string
		both := players != nil && servers != nil
		for _, k := range []struct {
			kind  status.Kind
			f     tracker.Fetcher
			title string
		}{{status.Players, players, "Players"}, {status.Servers, servers, "Servers"}} {
			if k.f == nil {
				continue
			}
			snap, err := k.f.Fetch(ctx)
			var body string
			switch {
			case errors.Is(err, tracker.ErrNoData):
				body = "status unavailable, try again later"
			case err != nil:
				return "", err
			default:
				if len(req.Args) > 0 {
					if snap = only(snap, req.Args); snap.Empty() {
						continue
					}
				}
				body = status.Report(k.kind, snap, now())
			}
			if both {
				body = k.title + ":\n" + body
			}
			sections = append(sections, body)
		}
		if len(sections) == 0 {
			if len(req.Args) > 0 {
				return "nothing matches: " + strings.Join(req.Args, ", "), nil
			}
			return "nothing is tracked", nil
		}
		return strings.Join(sections, "\n\n"), nil
	})
}

// only оставляет в снимке имена из names (без учёта регистра).
func only(s status.Snapshot, names []string) status.Snapshot {
	out := status.Snapshot{Version: s.Version, At: s.At}
	for _, n := range s.Order {
		for _, want := range names {
			if strings.EqualFold(n, want) {
				out.Set(n, s.Entries[n])
				break
			}
		}
	}
	return out
}

func tellOffCommand(context.Context, Request) (string, error) {
	return "Leave me in peace, spammers.", nil
}

func splitArgs(s string) []string {
	var out []string
	for _, m := range reArg.FindAllStringSubmatch(s, -1) {
		if m[1] != "" {
			out = append(out, m[1])
		} else {
			out = append(out, m[2])
		}
	}
	return out
}
