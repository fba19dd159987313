package bot

import (
	"sync/atomic"

	"github.com/EgorLis/statusbot/internal/status"
)

// store хранит последние снимки игроков и серверов. Пишет только
// планировщик; снимок заменяется целиком, версия растёт монотонно.
type store struct {
	players atomic.Pointer[status.Snapshot]
	servers atomic.Pointer[status.Snapshot]
	version atomic.Uint64
}

func (s *store) slot(kind status.Kind) *atomic.Pointer[status.Snapshot] {
	if kind == status.Servers {
		return &s.servers
	}
	return &s.players
}

// load возвращает сохранённый снимок или пустой, если его ещё нет.
func (s *store) load(kind status.Kind) status.Snapshot {
	if p := s.slot(kind).Load(); p != nil {
		return *p
	}
	return status.Snapshot{}
}

// replace сохраняет снимок, присваивая ему следующую версию.
func (s *store) replace(kind status.Kind, snap status.Snapshot) uint64 {
	snap.Version = s.version.Add(1)
	s.slot(kind).Store(&snap)
	return snap.Version
}
