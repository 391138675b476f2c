// Package dockersource implements the §4.2.1 Docker source adapter: it
// reads container (and, depending on Mode, Swarm service) labels off one
// or more Docker endpoints and emits LabelBundles for the entity
// synthesizer.
package dockersource

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/events"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/swarm"
	"github.com/docker/docker/client"
	"github.com/docker/go-connections/tlsconfig"
	"github.com/sirupsen/logrus"

	"github.com/autokuma/autokuma/internal/sources"
)

// Source watches one or more Docker daemons for containers (and
// optionally Swarm services) carrying `<prefix>.*` labels.
type Source struct {
	cfg    Config
	log    *logrus.Entry
	client func(endpoint Endpoint) (*client.Client, error)
}

func New(cfg Config, log *logrus.Entry) *Source {
	return &Source{cfg: cfg, log: log, client: dial}
}

func (s *Source) Name() string { return "docker" }

func dial(ep Endpoint) (*client.Client, error) {
	opts := []client.Opt{client.WithAPIVersionNegotiation()}
	if ep.Host != "" {
		opts = append(opts, client.WithHost(ep.Host))
	} else {
		opts = append(opts, client.FromEnv)
	}
	if ep.TLS != nil {
		tc, err := tlsconfig.Client(tlsconfig.Options{
			CAFile:             ep.TLS.CAPath,
			CertFile:           ep.TLS.CertPath,
			KeyFile:            ep.TLS.KeyPath,
			InsecureSkipVerify: !ep.TLS.VerifyCert,
		})
		if err != nil {
			return nil, fmt.Errorf("docker endpoint %s: build tls config: %w", ep.Name, err)
		}
		opts = append(opts, client.WithHTTPClient(&http.Client{
			Transport: &http.Transport{TLSClientConfig: tc},
		}))
	}
	return client.NewClientWithOpts(opts...)
}

func (s *Source) Collect(ctx context.Context) ([]sources.LabelBundle, error) {
	var all []sources.LabelBundle
	for _, ep := range s.cfg.Endpoints {
		bundles, err := s.collectEndpoint(ctx, ep)
		if err != nil {
			s.log.WithField("endpoint", ep.Name).WithError(err).Warn("docker endpoint unreachable, skipping this tick")
			continue
		}
		all = append(all, bundles...)
	}
	return all, nil
}

func (s *Source) collectEndpoint(ctx context.Context, ep Endpoint) ([]sources.LabelBundle, error) {
	cli, err := s.client(ep)
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", ep.Name, err)
	}
	defer cli.Close()

	info, err := cli.Info(ctx)
	if err != nil {
		return nil, fmt.Errorf("docker info: %w", err)
	}
	systemInfo := map[string]any{
		"name":          info.Name,
		"server_version": info.ServerVersion,
		"os":            info.OperatingSystem,
		"architecture":  info.Architecture,
		"ncpu":          float64(info.NCPU),
	}

	var bundles []sources.LabelBundle
	mode := s.cfg.effectiveMode()
	prefix := s.cfg.effectivePrefix()

	if mode == ModeContainers || mode == ModeBoth {
		containers, err := cli.ContainerList(ctx, container.ListOptions{All: true})
		if err != nil {
			return nil, fmt.Errorf("list containers: %w", err)
		}
		for _, c := range containers {
			name := containerDisplayName(c.Names)
			if matchesAny(name, s.cfg.ExcludePatterns) {
				continue
			}
			labels := stripPrefix(c.Labels, prefix)
			if len(labels) == 0 {
				continue
			}
			bundles = append(bundles, sources.LabelBundle{
				SourceKind: "docker",
				SourceID:   c.ID,
				Labels:     labels,
				Context: map[string]any{
					"container": map[string]any{
						"id":      c.ID,
						"name":    name,
						"image":   c.Image,
						"state":   c.State,
						"status":  c.Status,
					},
					"system_info":    systemInfo,
					"container_name": name,
				},
			})
		}
	}

	if mode == ModeServices || mode == ModeBoth {
		services, err := cli.ServiceList(ctx, swarm.ServiceListOptions{})
		if err != nil {
			s.log.WithField("endpoint", ep.Name).WithError(err).Debug("swarm service listing unavailable (not a swarm manager?)")
		} else {
			for _, svc := range services {
				if matchesAny(svc.Spec.Name, s.cfg.ExcludePatterns) {
					continue
				}
				labels := stripPrefix(svc.Spec.Labels, prefix)
				if len(labels) == 0 {
					continue
				}
				bundles = append(bundles, sources.LabelBundle{
					SourceKind: "docker-service",
					SourceID:   svc.ID,
					Labels:     labels,
					Context: map[string]any{
						"service": map[string]any{
							"id":   svc.ID,
							"name": svc.Spec.Name,
						},
						"system_info":    systemInfo,
						"container_name": svc.Spec.Name,
					},
				})
			}
		}
	}

	return bundles, nil
}

// Watch subscribes to Docker events and triggers a reconcile whenever a
// container starts, stops, or has its labels changed; a periodic full
// resync guards against missed events (§4.2.1).
func (s *Source) Watch(ctx context.Context, notify chan<- sources.ChangeEvent) {
	ticker := time.NewTicker(s.cfg.effectiveResync())
	defer ticker.Stop()

	for _, ep := range s.cfg.Endpoints {
		go s.watchEndpoint(ctx, ep, notify)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sendChange(notify, sources.ChangeEvent{Kind: sources.ChangeResync, Source: s.Name()})
		}
	}
}

func (s *Source) watchEndpoint(ctx context.Context, ep Endpoint, notify chan<- sources.ChangeEvent) {
	for {
		if ctx.Err() != nil {
			return
		}
		cli, err := s.client(ep)
		if err != nil {
			s.log.WithField("endpoint", ep.Name).WithError(err).Warn("docker event stream: connect failed, retrying")
			if !sleepOrDone(ctx, 5*time.Second) {
				return
			}
			continue
		}
		f := filters.NewArgs()
		f.Add("type", string(events.ContainerEventType))
		msgs, errs := cli.Events(ctx, events.ListOptions{Filters: f})
	inner:
		for {
			select {
			case <-ctx.Done():
				cli.Close()
				return
			case msg, ok := <-msgs:
				if !ok {
					break inner
				}
				switch msg.Action {
				case events.ActionStart, events.ActionDie, events.ActionStop, events.ActionUpdate:
					sendChange(notify, sources.ChangeEvent{Kind: sources.ChangeUpdate, Source: s.Name()})
				}
			case err := <-errs:
				if err != nil {
					s.log.WithField("endpoint", ep.Name).WithError(err).Warn("docker event stream broken, reconnecting")
				}
				break inner
			}
		}
		cli.Close()
		if !sleepOrDone(ctx, 2*time.Second) {
			return
		}
	}
}

func sendChange(notify chan<- sources.ChangeEvent, ev sources.ChangeEvent) {
	select {
	case notify <- ev:
	default:
		// channel full: coalesce into a resync marker rather than block (§5).
		select {
		case notify <- sources.ChangeEvent{Kind: sources.ChangeResync, Source: ev.Source}:
		default:
		}
	}
}

func sleepOrDone(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func containerDisplayName(names []string) string {
	if len(names) == 0 {
		return ""
	}
	return strings.TrimPrefix(names[0], "/")
}

// stripPrefix keeps only labels whose first dotted segment equals prefix,
// and strips that segment (§4.2.1 steps 1-2).
func stripPrefix(labels map[string]string, prefix string) map[string]string {
	out := make(map[string]string)
	want := prefix + "."
	for k, v := range labels {
		if strings.HasPrefix(k, want) {
			out[strings.TrimPrefix(k, want)] = v
		}
	}
	return out
}
