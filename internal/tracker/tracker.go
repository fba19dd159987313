// Package tracker собирает снимки состояний: опрашивает платформы и сводит
// ответы в одну запись на каждого настроенного игрока или сервер.
//
// Сбой одной платформы даёт unknown только её игрокам; ErrNoData
// возвращается, лишь когда не ответила ни одна платформа.
package tracker

import (
	"context"
	"errors"
	"time"

	"github.com/EgorLis/statusbot/internal/status"
)

// ErrNoData — ни один запрос цикла не удался.
var ErrNoData = errors.New("tracker: no data from any platform")

// PlayerSource — платформа, умеющая отдать статусы игроков пачкой.
// Игрок, отсутствующий в карте, считается unknown.
type PlayerSource interface {
	Platform() string
	Players(ctx context.Context, ids []string) (map[string]status.Entry, error)
}

// ServerSource — платформа, умеющая отдать статус одного сервера.
type ServerSource interface {
	ServerStatus(ctx context.Context, id string) (status.Entry, error)
}

// Fetcher — то, что нужно планировщику и команде /status.
type Fetcher interface {
	Fetch(ctx context.Context) (status.Snapshot, error)
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
