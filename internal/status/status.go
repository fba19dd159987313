// Package status описывает модель состояний бота: перечисление статусов,
// снимок (Snapshot) всех отслеживаемых сущностей, переходы между двумя
// снимками и тексты уведомлений.
//
// Снимок — обычное значение: его строит fetcher, сравнивает Diff и целиком
// заменяет планировщик. Никакой логики ввода-вывода здесь нет.
package status

import "time"

// Status — нормализованное состояние игрока или сервера.
type Status string

const (
	Online  Status = "online"
	Offline Status = "offline"
	InGame  Status = "in-game"
	Unknown Status = "unknown"
	Up      Status = "up"
	Down    Status = "down"
)

// Valid сообщает, входит ли s в перечисление.
func (s Status) Valid() bool {
	switch s {
	case Online, Offline, InGame, Unknown, Up, Down:
		return true
	}
	return false
}

// Present — игрок в сети (в том числе в игре).
func (s Status) Present() bool { return s == Online || s == InGame }

// Kind различает снимки игроков и серверов (влияет только на тексты).
type Kind int

const (
	Players Kind = iota
	Servers
)

func (k Kind) String() string {
	if k == Servers {
		return "servers"
	}
	return "players"
}

// Entry — состояние одной сущности. В сравнении снимков участвует только
// Status; Detail и LastSeen нужны для текста.
type Entry struct {
	Status   Status
	Detail   string    // "Away", название игры, имя сервера
	LastSeen time.Time // когда игрок последний раз был в сети (если известно)
}

// Snapshot — полный снимок всех настроенных сущностей одного вида.
// Order хранит порядок из конфигурации, а не порядок ответов API.
type Snapshot struct {
	Version uint64
	At      time.Time
	Order   []string
	Entries map[string]Entry
}

// New создаёт пустой снимок с заданным порядком имён; всем именам
// проставляется Unknown.
func New(at time.Time, names ...string) Snapshot {
	s := Snapshot{At: at}
	for _, n := range names {
		s.Set(n, Entry{Status: Unknown})
	}
	return s
}

// Set записывает состояние name. Новое имя добавляется в конец порядка,
// статус вне перечисления записывается как Unknown.
func (s *Snapshot) Set(name string, e Entry) {
	if !e.Status.Valid() {
		e.Status = Unknown
	}
	if s.Entries == nil {
		s.Entries = make(map[string]Entry)
	}
	if _, ok := s.Entries[name]; !ok {
		s.Order = append(s.Order, name)
	}
	s.Entries[name] = e
}

// StatusOf возвращает статус name или Unknown, если имени нет в снимке.
func (s Snapshot) StatusOf(name string) Status {
	if e, ok := s.Entries[name]; ok {
		return e.Status
	}
	return Unknown
}

func (s Snapshot) Len() int { return len(s.Order) }

// Empty — снимок ещё ни разу не заполнялся (состояние на старте процесса).
func (s Snapshot) Empty() bool { return len(s.Order) == 0 }

// Clone возвращает независимую копию.
func (s Snapshot) Clone() Snapshot {
	c := Snapshot{Version: s.Version, At: s.At}
	c.Order = append([]string(nil), s.Order...)
	if s.Entries != nil {
		c.Entries = make(map[string]Entry, len(s.Entries))
		for k, v := range s.Entries {
			c.Entries[k] = v
		}
	}
	return c
}
