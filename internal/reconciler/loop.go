package reconciler

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/autokuma/autokuma/internal/entity"
	"github.com/autokuma/autokuma/internal/kuma"
	"github.com/autokuma/autokuma/internal/remote"
	"github.com/autokuma/autokuma/internal/sources"
	"github.com/autokuma/autokuma/internal/store"
	"github.com/autokuma/autokuma/pkg/health"
)

// sessionProvider is the subset of *remote.Manager the loop needs.
type sessionProvider interface {
	Session(ctx context.Context) (*remote.Session, error)
}

// Config parametrizes one reconciler instance.
type Config struct {
	EntityConfig       entity.Config
	DeleteGracePeriod  time.Duration
	OnDeleteKeep       bool
	DebounceWindow     time.Duration
	MinIdleInterval    time.Duration
	ChangeChannelSize  int
}

// Loop is the §4.6 reconciliation loop: collect, synthesize, diff,
// execute, sleep until the next trigger.
type Loop struct {
	cfg     Config
	sources []sources.Source
	remote  sessionProvider
	store   *store.Store
	log     *logrus.Entry
	health  *health.HealthChecker
	metrics *health.Metrics
}

// New builds a Loop over the given sources, remote session manager and
// identity store. hc and metrics may be nil (no health/metrics wiring).
func New(cfg Config, srcs []sources.Source, remoteMgr sessionProvider, st *store.Store, log *logrus.Entry, hc *health.HealthChecker, metrics *health.Metrics) *Loop {
	if cfg.ChangeChannelSize <= 0 {
		cfg.ChangeChannelSize = 64
	}
	if cfg.DebounceWindow <= 0 {
		cfg.DebounceWindow = 300 * time.Millisecond
	}
	if cfg.MinIdleInterval <= 0 {
		cfg.MinIdleInterval = time.Second
	}
	return &Loop{cfg: cfg, sources: srcs, remote: remoteMgr, store: st, log: log, health: hc, metrics: metrics}
}

// Run blocks, running ticks until ctx is cancelled (§5 "Cancellation": a
// graceful-shutdown signal stops new tick starts, allows the current
// tick to finish").
func (l *Loop) Run(ctx context.Context) error {
	notify := make(chan sources.ChangeEvent, l.cfg.ChangeChannelSize)
	for _, src := range l.sources {
		go src.Watch(ctx, notify)
	}

	if err := l.tick(ctx); err != nil {
		l.log.WithError(err).Error("initial tick failed")
	}

	var lastTick time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-notify:
			l.drainAndDebounce(ctx, notify, ev)
			if wait := l.cfg.MinIdleInterval - time.Since(lastTick); wait > 0 {
				select {
				case <-ctx.Done():
					return nil
				case <-time.After(wait):
				}
			}
			if err := l.tick(ctx); err != nil {
				l.log.WithError(err).Error("tick failed")
			}
			lastTick = time.Now()
		}
	}
}

// drainAndDebounce coalesces a burst of change notifications into a
// single tick trigger, waiting for a quiet window before returning (§5
// "coalescing multiple into a single tick, debounce window of a few
// hundred milliseconds").
func (l *Loop) drainAndDebounce(ctx context.Context, notify <-chan sources.ChangeEvent, first sources.ChangeEvent) {
	timer := time.NewTimer(l.cfg.DebounceWindow)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-notify:
			if !timer.Stop() {
				<-timer.C
			}
			timer.Reset(l.cfg.DebounceWindow)
		case <-timer.C:
			return
		}
	}
}

// tick runs one full collect/synthesize/diff/execute pass.
func (l *Loop) tick(ctx context.Context) error {
	if l.metrics != nil {
		l.metrics.Ticks.Inc()
	}
	if err := l.runTick(ctx); err != nil {
		if l.metrics != nil {
			l.metrics.TickErrors.Inc()
		}
		if l.health != nil {
			l.health.SetReady(false)
		}
		return err
	}
	if l.health != nil {
		l.health.SetReady(true)
	}
	return nil
}

func (l *Loop) runTick(ctx context.Context) error {
	bundles, err := l.collect(ctx)
	if err != nil {
		return fmt.Errorf("collect: %w", err)
	}

	storeIDs, err := l.storeIDsByKind()
	if err != nil {
		return fmt.Errorf("load identity store: %w", err)
	}

	result := entity.Synthesize(bundles, l.cfg.EntityConfig, storeIDs, l.log)
	for _, e := range result.Errors {
		l.log.WithError(e).Warn("entity synthesis error")
	}

	session, err := l.remote.Session(ctx)
	if err != nil {
		return fmt.Errorf("remote session: %w", err)
	}

	actual, err := l.collectActual(ctx, session)
	if err != nil {
		return fmt.Errorf("list remote entities: %w", err)
	}

	plan, _, err := Diff(result.Entities, actual, l.store, l.cfg.DeleteGracePeriod, l.cfg.OnDeleteKeep, time.Now())
	if err != nil {
		return fmt.Errorf("diff: %w", err)
	}

	execRes := Execute(ctx, plan, session, l.store, l.log)
	if l.metrics != nil {
		for _, a := range plan.Actions {
			l.metrics.PlanActions.WithLabelValues(a.Kind.String()).Inc()
		}
		l.metrics.ActionErrors.Add(float64(len(execRes.Failed)))
	}
	l.log.WithFields(logrus.Fields{
		"applied": execRes.Applied,
		"failed":  len(execRes.Failed),
		"planned": len(plan.Actions),
	}).Info("tick complete")
	return nil
}

func (l *Loop) collect(ctx context.Context) ([]sources.LabelBundle, error) {
	var all []sources.LabelBundle
	for _, src := range l.sources {
		bundles, err := src.Collect(ctx)
		if err != nil {
			l.log.WithError(err).WithField("source", src.Name()).Error("source collect failed")
			continue
		}
		all = append(all, bundles...)
	}
	return all, nil
}

func (l *Loop) storeIDsByKind() (map[kuma.Kind][]string, error) {
	out := make(map[kuma.Kind][]string, len(kuma.DependencyOrder))
	for _, kind := range kuma.DependencyOrder {
		mappings, err := l.store.List(kind)
		if err != nil {
			return nil, err
		}
		ids := make([]string, len(mappings))
		for i, m := range mappings {
			ids[i] = m.AutokumaID
		}
		out[kind] = ids
	}
	return out, nil
}

func (l *Loop) collectActual(ctx context.Context, session *remote.Session) (map[kuma.Kind]map[string]Actual, error) {
	out := make(map[kuma.Kind]map[string]Actual, len(kuma.DependencyOrder))
	for _, kind := range kuma.DependencyOrder {
		list, err := session.List(ctx, kind)
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", kind, err)
		}
		byServerID := make(map[string]Actual, len(list))
		for _, fields := range list {
			id := serverIDOf(fields)
			if id == "" {
				continue
			}
			byServerID[id] = Actual{ServerID: id, Fields: fields}
		}
		out[kind] = byServerID
	}
	return out, nil
}
