package tracker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/EgorLis/statusbot/internal/status"
)

// Player — игрок из конфигурации: имя и id по платформам.
type Player struct {
	Name string
	IDs  map[string]string // платформа -> id
}

// Players опрашивает платформы игроков.
type Players struct {
	roster   []Player
	priority []string
	sources  map[string]PlayerSource
	timeout  time.Duration
	log      logrus.FieldLogger
	now      func() time.Time
}

// NewPlayers. priority — порядок платформ при сведении статуса; источники
// платформ вне priority не опрашиваются.
func NewPlayers(roster []Player, priority []string, timeout time.Duration, log logrus.FieldLogger, sources ...PlayerSource) *Players {
	m := make(map[string]PlayerSource, len(sources))
	for _, s := range sources {
		m[s.Platform()] = s
	}
	return &Players{
		roster:   roster,
		priority: priority,
		sources:  m,
		timeout:  timeout,
		log:      log.WithField("kind", status.Players.String()),
		now:      time.Now,
	}
}

// Fetch опрашивает каждую платформу один раз (параллельно) и сводит ответы.
func (p *Players) Fetch(ctx context.Context) (status.Snapshot, error) {
	type result struct {
		entries map[string]status.Entry
		err     error
	}

	var (
		g       errgroup.Group
		mu      sync.Mutex
		results = make(map[string]result)
	)
	for _, platform := range p.priority {
		src, ok := p.sources[platform]
		if !ok {
			continue
		}
		ids := p.idsOn(platform)
		if len(ids) == 0 {
			continue
		}
		g.Go(func() error {
			cctx, cancel := withTimeout(ctx, p.timeout)
			defer cancel()
			entries, err := src.Players(cctx, ids)
			mu.Lock()
			results[platform] = result{entries: entries, err: err}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	if len(results) == 0 {
		return status.Snapshot{}, fmt.Errorf("%w: no platform to query for %d players", ErrNoData, len(p.roster))
	}
	snap := status.New(p.now())

	var errs []error
	for _, platform := range p.priority {
		r, ok := results[platform]
		if !ok || r.err == nil {
			continue
		}
		p.log.WithField("platform", platform).WithError(r.err).Warn("platform lookup failed")
		errs = append(errs, fmt.Errorf("%s: %w", platform, r.err))
	}
	if len(errs) == len(results) {
		return status.Snapshot{}, fmt.Errorf("%w: %w", ErrNoData, errors.Join(errs...))
	}

	for _, pl := range p.roster {
		answers := make(map[string]status.Entry, len(pl.IDs))
		for platform, id := range pl.IDs {
			r, ok := results[platform]
			if !ok {
				continue
			}
			e, found := r.entries[id]
			if r.err != nil || !found {
				e = status.Entry{Status: status.Unknown}
			}
			answers[platform] = e
		}
		snap.Set(pl.Name, Resolve(p.priority, answers))
	}
	return snap, nil
}

func (p *Players) idsOn(platform string) []string {
	var ids []string
	for _, pl := range p.roster {
		if id := pl.IDs[platform]; id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

// Resolve сводит ответы платформ по одному игроку: первый по приоритету
// ответ, который не offline и не unknown, побеждает; иначе offline, если
// хоть одна платформа ответила offline; иначе unknown.
func Resolve(priority []string, answers map[string]status.Entry) status.Entry {
	var offline *status.Entry
	for _, platform := range priority {
		e, ok := answers[platform]
		if !ok {
			continue
		}
		switch {
		case e.Status.Present():
			return e
		case e.Status == status.Offline:
			// запоминаем первый offline, но LastSeen берём, где он есть
			if offline == nil || (offline.LastSeen.IsZero() && !e.LastSeen.IsZero()) {
				offline = &e
			}
		}
	}
	if offline != nil {
		return *offline
	}
	return status.Entry{Status: status.Unknown}
}
