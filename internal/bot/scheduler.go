package bot

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/EgorLis/statusbot/internal/status"
	"github.com/EgorLis/statusbot/internal/tracker"
)

// Notifier — рассылка уведомлений (notify.Notifier).
type Notifier interface {
	Notify(ctx context.Context, text string) int
}

// Scheduler раз в every запускает цикл опроса. Если прошлый цикл ещё идёт,
// тик пропускается.
type Scheduler struct {
	players  tracker.Fetcher
	servers  tracker.Fetcher // nil — серверы не настроены
	notifier Notifier
	every    time.Duration
	announce bool // первый цикл шлёт полный отчёт вместо тихой инициализации
	log      logrus.FieldLogger

	store *store
	busy  atomic.Bool
	cycle atomic.Uint64
	wg    sync.WaitGroup
	now   func() time.Time
}

func newScheduler(players, servers tracker.Fetcher, n Notifier, every time.Duration, announce bool, log logrus.FieldLogger) *Scheduler {
	return &Scheduler{
		players:  players,
		servers:  servers,
		notifier: n,
		every:    every,
		announce: announce,
		log:      log,
		store:    &store{},
		now:      time.Now,
	}
}

// Run — живёт до отмены ctx. Первый цикл запускается сразу, дальше по
// тикеру; перед выходом дожидается текущего цикла.
func (s *Scheduler) Run(ctx context.Context) {
	t := time.NewTicker(s.every)
	defer t.Stop()
	defer s.wg.Wait()

	s.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.tick(ctx)
		}
	}
}

// tick пытается перейти idle -> running; false — цикл ещё идёт, тик пропущен.
func (s *Scheduler) tick(ctx context.Context) bool {
	if !s.busy.CompareAndSwap(false, true) {
		s.log.WithField("cycle", s.cycle.Load()).Warn("previous cycle still running, tick skipped")
		return false
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.busy.Store(false)
		s.RunCycle(ctx)
	}()
	return true
}

type fetched struct {
	kind status.Kind
	snap status.Snapshot
}

// RunCycle — один цикл: опрос, сравнение с сохранённым, уведомление,
// замена снимков. Вид, опрос которого провалился целиком, сохраняет
// прежний снимок.
func (s *Scheduler) RunCycle(ctx context.Context) status.Result {
	n := s.cycle.Add(1)
	log := s.log.WithField("cycle", n)
	start := s.now()

	var (
		got     []fetched
		results []status.Result
		reports []string
	)
	for _, k := range []struct {
		kind status.Kind
		f    tracker.Fetcher
	}{{status.Players, s.players}, {status.Servers, s.servers}} {
		if k.f == nil {
			continue
		}
		cur, err := k.f.Fetch(ctx)
		if err != nil {
			log.WithField("kind", k.kind.String()).WithError(err).Warn("fetch failed, keeping previous snapshot")
			continue
		}
		got = append(got, fetched{kind: k.kind, snap: cur})

		prev := s.store.load(k.kind)
		if prev.Empty() {
			// первый удачный опрос — только база для сравнения
			if s.announce {
				reports = append(reports, status.Report(k.kind, cur, s.now()))
			}
			continue
		}
		results = append(results, status.Evaluate(k.kind, prev, cur))
	}

	res := status.Merge(results...)
	msg := res.Message
	if len(reports) > 0 {
		parts := append([]string{"Good morning! Current status:"}, reports...)
		if msg != "" {
			parts = append(parts, msg)
		}
		msg = strings.Join(parts, "\n")
	}
	if msg != "" {
		delivered := s.notifier.Notify(ctx, msg)
		log.WithFields(logrus.Fields{
			"transitions": len(res.Transitions),
			"delivered":   delivered,
		}).Info("status changed")
	} else {
		log.Debug("no changes")
	}

	for _, f := range got {
		v := s.store.replace(f.kind, f.snap)
		log.WithFields(logrus.Fields{"kind": f.kind.String(), "version": v}).Debug("snapshot stored")
	}
	log.WithField("took", s.now().Sub(start).Round(time.Millisecond)).Debug("cycle done")
	return res
}

// Snapshot возвращает сохранённый снимок (для тестов и диагностики).
func (s *Scheduler) Snapshot(kind status.Kind) status.Snapshot {
	return s.store.load(kind)
}
