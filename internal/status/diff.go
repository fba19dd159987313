package status

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// Transition — изменение статуса одной сущности между двумя снимками.
type Transition struct {
	Name   string
	From   Status
	To     Status
	Detail string
}

// Diff возвращает переходы от prev к cur в порядке конфигурации cur.
// Сущности, которых нет в prev, считаются перешедшими из Unknown; исчезнувшие
// из cur добавляются в конец (в порядке prev) как переход в Unknown.
func Diff(prev, cur Snapshot) []Transition {
	var out []Transition
	for _, name := range cur.Order {
		e := cur.Entries[name]
		was := prev.StatusOf(name)
		if was != e.Status {
			out = append(out, Transition{Name: name, From: was, To: e.Status, Detail: e.Detail})
		}
	}
	for _, name := range prev.Order {
		if _, ok := cur.Entries[name]; ok {
			continue
		}
		if was := prev.Entries[name].Status; was != Unknown {
			out = append(out, Transition{Name: name, From: was, To: Unknown})
		}
	}
	return out
}

// Result — итог одного сравнения: либо NoChange (нет переходов), либо
// Changed с готовым текстом уведомления.
type Result struct {
	Transitions []Transition
	Message     string
}

// NoChange — пустой результат, уведомлять не нужно.
var NoChange = Result{}

// Changed сообщает, нужно ли уведомление.
func (r Result) Changed() bool { return len(r.Transitions) > 0 }

// Evaluate сравнивает снимки и, если есть переходы, рендерит сообщение.
func Evaluate(kind Kind, prev, cur Snapshot) Result {
	ts := Diff(prev, cur)
	if len(ts) == 0 {
		return NoChange
	}
	return Result{Transitions: ts, Message: Render(kind, ts)}
}

// Merge склеивает результаты нескольких видов в одно сообщение.
func Merge(rs ...Result) Result {
	var out Result
	var msgs []string
	for _, r := range rs {
		if !r.Changed() {
			continue
		}
		out.Transitions = append(out.Transitions, r.Transitions...)
		msgs = append(msgs, r.Message)
	}
	out.Message = strings.Join(msgs, "\n")
	return out
}

// Render строит текст уведомления: по строке на переход, в том же порядке.
func Render(kind Kind, ts []Transition) string {
	lines := make([]string, 0, len(ts))
	for _, t := range ts {
		if kind == Servers {
			lines = append(lines, serverLine(t))
		} else {
			lines = append(lines, playerLine(t))
		}
	}
	return strings.Join(lines, "\n")
}

func playerLine(t Transition) string {
	switch {
	case t.To == InGame:
		if t.Detail != "" {
			return fmt.Sprintf("%s started playing %s", t.Name, t.Detail)
		}
		return fmt.Sprintf("%s started playing", t.Name)
	case t.From == InGame && t.To == Online:
		return fmt.Sprintf("%s stopped playing", t.Name)
	case t.From == InGame && t.To == Offline:
		return fmt.Sprintf("%s stopped playing and went offline", t.Name)
	case t.To == Online:
		return fmt.Sprintf("%s is online", t.Name)
	case t.To == Offline:
		return fmt.Sprintf("%s went offline", t.Name)
	case t.To == Unknown:
		return fmt.Sprintf("%s: status unknown", t.Name)
	}
	return fmt.Sprintf("%s: %s -> %s", t.Name, t.From, t.To)
}

func serverLine(t Transition) string {
	if t.From == Unknown {
		return fmt.Sprintf("Server %s is %s", t.Name, t.To)
	}
	return fmt.Sprintf("Server %s is %s (was %s)", t.Name, t.To, t.From)
}

// Report — полный отчёт о снимке (для /status и приветствия на старте):
// каждая сущность, независимо от изменений.
func Report(kind Kind, s Snapshot, now time.Time) string {
	lines := make([]string, 0, s.Len())
	for _, name := range s.Order {
		e := s.Entries[name]
		line := fmt.Sprintf("%s: %s", name, e.Status)
		switch {
		case kind == Players && e.Status == Offline && !e.LastSeen.IsZero():
			line += ", last seen " + humanize.RelTime(e.LastSeen, now, "ago", "from now")
		case e.Detail != "":
			line += " (" + e.Detail + ")"
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}
