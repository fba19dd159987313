// Package notify рассылает сообщение по всем настроенным назначениям.
// Рассылка best-effort: ошибка одного назначения пишется в лог и не мешает
// остальным.
package notify

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// Sender — транспорт мессенджера (Telegram, Rust+).
type Sender interface {
	Send(ctx context.Context, chatID string, text string) error
}

// Destination — чат на конкретной платформе.
type Destination struct {
	Platform string
	ChatID   string
}

func (d Destination) String() string { return d.Platform + ":" + d.ChatID }

type Notifier struct {
	senders map[string]Sender // платформа -> транспорт
	dests   []Destination
	limiter *rate.Limiter
	log     logrus.FieldLogger
	secrets []string
}

// New создаёт рассыльщика. perSecond <= 0 — без ограничения скорости.
func New(senders map[string]Sender, dests []Destination, perSecond float64, log logrus.FieldLogger) *Notifier {
	lim := rate.NewLimiter(rate.Inf, 0)
	if perSecond > 0 {
		lim = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
	return &Notifier{
		senders: senders,
		dests:   dests,
		limiter: lim,
		log:     log,
	}
}

// Redact задаёт строки, которые вырезаются из текстов ошибок в логе.
func (n *Notifier) Redact(secrets ...string) { n.secrets = append(n.secrets, secrets...) }

// Destinations возвращает копию списка назначений.
func (n *Notifier) Destinations() []Destination {
	return append([]Destination(nil), n.dests...)
}

// Notify отправляет text во все назначения по очереди и возвращает число
// успешных доставок. Ошибки только логируются.
func (n *Notifier) Notify(ctx context.Context, text string) int {
	if strings.TrimSpace(text) == "" {
		return 0
	}
	delivered := 0
	for _, d := range n.dests {
		log := n.log.WithField("destination", d.String())
		s, ok := n.senders[d.Platform]
		if !ok {
			log.Error("no sender for destination platform")
			continue
		}
		if err := n.limiter.Wait(ctx); err != nil {
			log.WithError(err).Warn("notify aborted")
			return delivered
		}
		if err := n.send(ctx, s, d, text); err != nil {
			log.WithField("error", n.scrub(err.Error())).Error("send failed")
			continue
		}
		delivered++
	}
	if delivered > 0 {
		n.log.WithField("delivered", delivered).Debug("notification sent")
	}
	return delivered
}

// send изолирует панику транспорта: рассылка не должна ронять цикл.
func (n *Notifier) send(ctx context.Context, s Sender, d Destination, text string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = panicError{r}
		}
	}()
	return s.Send(ctx, d.ChatID, text)
}

func (n *Notifier) scrub(msg string) string {
	for _, s := range n.secrets {
		if s != "" {
			msg = strings.ReplaceAll(msg, s, "REDACTED")
		}
	}
	return msg
}

type panicError struct{ v any }

func (p panicError) Error() string { return "sender panic: " + toString(p.v) }

func toString(v any) string {
	switch x := v.(type) {
	case error:
		return x.Error()
	case string:
		return x
	}
	return "unknown panic value"
}
