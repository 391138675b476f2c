package kubesource

import (
	"testing"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
)

func TestBundleFromCR(t *testing.T) {
	u := &unstructured.Unstructured{Object: map[string]any{
		"metadata": map[string]any{
			"name":      "foo",
			"namespace": "default",
			"uid":       "abc-123",
		},
		"spec": map[string]any{
			"labels": map[string]any{
				"mon.type": "http",
				"mon.url":  "https://example.com",
			},
		},
	}}

	bundle, err := bundleFromCR(u)
	if err != nil {
		t.Fatalf("bundleFromCR failed: %v", err)
	}
	if bundle.SourceID != "default/foo" {
		t.Errorf("SourceID = %q, want default/foo", bundle.SourceID)
	}
	if bundle.Labels["mon.type"] != "http" {
		t.Errorf("labels missing mon.type: %#v", bundle.Labels)
	}
}

func TestBundleFromCRNoLabels(t *testing.T) {
	u := &unstructured.Unstructured{Object: map[string]any{
		"metadata": map[string]any{"name": "bar", "namespace": "ns"},
		"spec":     map[string]any{},
	}}
	bundle, err := bundleFromCR(u)
	if err != nil {
		t.Fatalf("bundleFromCR failed: %v", err)
	}
	if len(bundle.Labels) != 0 {
		t.Errorf("expected empty labels, got %#v", bundle.Labels)
	}
}
