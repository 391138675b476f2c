// Package kubesource implements the §4.2.2 Kubernetes source adapter: a
// namespaced custom resource whose spec carries the same dotted labels a
// Docker container would, one CR per monitored object.
package kubesource

import (
	"context"
	"fmt"
	"sync"
	"time"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/dynamic/dynamicinformer"
	"k8s.io/client-go/tools/cache"
	"k8s.io/client-go/util/workqueue"
	"github.com/sirupsen/logrus"

	"github.com/autokuma/autokuma/internal/sources"
)

// Source watches the configured Monitors CRD across one namespace (or
// all namespaces, if Config.Namespace is empty).
type Source struct {
	cfg Config
	log *logrus.Entry

	mu       sync.RWMutex
	snapshot map[string]sources.LabelBundle // CR uid -> bundle, used by Collect
}

func New(cfg Config, log *logrus.Entry) *Source {
	return &Source{cfg: cfg, log: log, snapshot: make(map[string]sources.LabelBundle)}
}

func (s *Source) Name() string { return "kubernetes" }

func (s *Source) gvr() schema.GroupVersionResource {
	return schema.GroupVersionResource{
		Group:    s.cfg.effectiveGroup(),
		Version:  s.cfg.effectiveVersion(),
		Resource: s.cfg.effectiveResource(),
	}
}

// Collect returns the adapter's current in-memory snapshot. The
// snapshot is kept current by the informer started in Watch; a
// reconciler that calls Collect before Watch has run once simply sees
// an empty set, matching Docker's and the file adapter's first-tick
// behavior.
func (s *Source) Collect(ctx context.Context) ([]sources.LabelBundle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]sources.LabelBundle, 0, len(s.snapshot))
	for _, b := range s.snapshot {
		out = append(out, b)
	}
	return out, nil
}

// Watch starts a dynamic informer on the configured CRD and keeps the
// in-memory snapshot (and the reconciler) current until ctx is
// cancelled.
func (s *Source) Watch(ctx context.Context, notify chan<- sources.ChangeEvent) {
	rc, err := resolveRESTConfig(s.cfg)
	if err != nil {
		s.log.WithError(err).Error("kubernetes source: no usable kubeconfig, adapter disabled")
		return
	}
	if err := ensureCRDEstablished(ctx, rc, s.cfg); err != nil {
		s.log.WithError(err).Warn("kubernetes source: CRD check failed, watching anyway")
	}

	dyn, err := dynamic.NewForConfig(rc)
	if err != nil {
		s.log.WithError(err).Error("kubernetes source: failed to build dynamic client")
		return
	}

	var factory dynamicinformer.DynamicSharedInformerFactory
	if s.cfg.Namespace != "" {
		factory = dynamicinformer.NewFilteredDynamicSharedInformerFactory(dyn, 10*time.Minute, s.cfg.Namespace, nil)
	} else {
		factory = dynamicinformer.NewDynamicSharedInformerFactory(dyn, 10*time.Minute)
	}
	informer := factory.ForResource(s.gvr()).Informer()

	queue := workqueue.NewTypedRateLimitingQueue[sources.ChangeEvent](workqueue.DefaultTypedControllerRateLimiter[sources.ChangeEvent]())

	informer.AddEventHandler(cache.ResourceEventHandlerFuncs{
		AddFunc: func(obj any) {
			s.upsert(obj)
			queue.Add(sources.ChangeEvent{Kind: sources.ChangeUpdate, Source: s.Name()})
		},
		UpdateFunc: func(_, obj any) {
			s.upsert(obj)
			queue.Add(sources.ChangeEvent{Kind: sources.ChangeUpdate, Source: s.Name()})
		},
		DeleteFunc: func(obj any) {
			s.remove(obj)
			queue.Add(sources.ChangeEvent{Kind: sources.ChangeUpdate, Source: s.Name()})
		},
	})

	go informer.Run(ctx.Done())
	if !cache.WaitForCacheSync(ctx.Done(), informer.HasSynced) {
		s.log.Warn("kubernetes source: cache sync aborted by shutdown")
		return
	}

	go func() {
		<-ctx.Done()
		queue.ShutDown()
	}()
	for {
		ev, shutdown := queue.Get()
		if shutdown {
			return
		}
		sendChange(notify, ev)
		queue.Done(ev)
	}
}

func sendChange(notify chan<- sources.ChangeEvent, ev sources.ChangeEvent) {
	select {
	case notify <- ev:
	default:
		select {
		case notify <- sources.ChangeEvent{Kind: sources.ChangeResync, Source: ev.Source}:
		default:
		}
	}
}

func (s *Source) upsert(obj any) {
	u, ok := obj.(*unstructured.Unstructured)
	if !ok {
		return
	}
	bundle, err := bundleFromCR(u)
	if err != nil {
		s.log.WithField("name", u.GetName()).WithError(err).Warn("kubernetes source: malformed monitor CR, skipping")
		return
	}
	s.mu.Lock()
	s.snapshot[string(u.GetUID())] = bundle
	s.mu.Unlock()
}

func (s *Source) remove(obj any) {
	u, ok := obj.(*unstructured.Unstructured)
	if !ok {
		if tomb, ok := obj.(cache.DeletedFinalStateUnknown); ok {
			u, ok = tomb.Obj.(*unstructured.Unstructured)
			if !ok {
				return
			}
		} else {
			return
		}
	}
	s.mu.Lock()
	delete(s.snapshot, string(u.GetUID()))
	s.mu.Unlock()
}

// bundleFromCR extracts spec.labels (a map[string]string mirroring the
// dotted labels a Docker container would carry) plus namespace/name
// context, per §4.2.2 "schema mirrors a monitor bundle".
func bundleFromCR(u *unstructured.Unstructured) (sources.LabelBundle, error) {
	raw, found, err := unstructured.NestedStringMap(u.Object, "spec", "labels")
	if err != nil {
		return sources.LabelBundle{}, fmt.Errorf("spec.labels: %w", err)
	}
	if !found {
		raw = map[string]string{}
	}
	return sources.LabelBundle{
		SourceKind: "kubernetes",
		SourceID:   fmt.Sprintf("%s/%s", u.GetNamespace(), u.GetName()),
		Labels:     raw,
		Context: map[string]any{
			"kubernetes": map[string]any{
				"namespace": u.GetNamespace(),
				"name":      u.GetName(),
				"uid":       string(u.GetUID()),
			},
		},
	}, nil
}
