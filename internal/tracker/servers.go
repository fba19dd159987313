package tracker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/EgorLis/statusbot/internal/status"
)

// Server — сервер из конфигурации.
type Server struct {
	Name     string
	Platform string
	ID       string
}

// Servers опрашивает статусы серверов, по запросу на сервер.
type Servers struct {
	servers []Server
	sources map[string]ServerSource
	timeout time.Duration
	log     logrus.FieldLogger
	now     func() time.Time
}

// NewServers. sources — платформа -> источник.
func NewServers(servers []Server, sources map[string]ServerSource, timeout time.Duration, log logrus.FieldLogger) *Servers {
	return &Servers{
		servers: servers,
		sources: sources,
		timeout: timeout,
		log:     log.WithField("kind", status.Servers.String()),
		now:     time.Now,
	}
}

// Fetch опрашивает все серверы параллельно. Сбой одного сервера даёт ему
// unknown; ErrNoData — только если не удался ни один запрос.
func (s *Servers) Fetch(ctx context.Context) (status.Snapshot, error) {
	entries := make([]status.Entry, len(s.servers))
	errs := make([]error, len(s.servers))

	var g errgroup.Group
	g.SetLimit(8)
	for i, srv := range s.servers {
		g.Go(func() error {
			src, ok := s.sources[srv.Platform]
			if !ok {
				errs[i] = fmt.Errorf("server %s: no client for platform %q", srv.Name, srv.Platform)
				return nil
			}
			cctx, cancel := withTimeout(ctx, s.timeout)
			defer cancel()
			e, err := src.ServerStatus(cctx, srv.ID)
			if err != nil {
				errs[i] = fmt.Errorf("server %s: %w", srv.Name, err)
				return nil
			}
			entries[i] = e
			return nil
		})
	}
	_ = g.Wait()

	snap := status.New(s.now())
	failed := 0
	for i, srv := range s.servers {
		if errs[i] != nil {
			failed++
			s.log.WithFields(logrus.Fields{"platform": srv.Platform, "server": srv.Name}).
				WithError(errs[i]).Warn("server lookup failed")
			snap.Set(srv.Name, status.Entry{Status: status.Unknown})
			continue
		}
		snap.Set(srv.Name, entries[i])
	}
	if len(s.servers) > 0 && failed == len(s.servers) {
		return status.Snapshot{}, fmt.Errorf("%w: %w", ErrNoData, errors.Join(errs...))
	}
	return snap, nil
}
