package kubesource

import (
	"context"
	"fmt"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	apiextensionsclientset "k8s.io/apiextensions-apiserver/pkg/client/clientset/clientset"
	"k8s.io/client-go/rest"
)

// ensureCRDEstablished checks that the configured CRD exists and has
// reached the Established condition, so a typo'd resource name fails
// fast with a clear error instead of an informer that silently never
// lists anything.
func ensureCRDEstablished(ctx context.Context, rc *rest.Config, cfg Config) error {
	cs, err := apiextensionsclientset.NewForConfig(rc)
	if err != nil {
		return fmt.Errorf("build apiextensions client: %w", err)
	}
	name := fmt.Sprintf("%s.%s", cfg.effectiveResource(), cfg.effectiveGroup())
	crd, err := cs.ApiextensionsV1().CustomResourceDefinitions().Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		return fmt.Errorf("CRD %s not found: %w", name, err)
	}
	for _, cond := range crd.Status.Conditions {
		if cond.Type == "Established" && cond.Status == "True" {
			return nil
		}
	}
	return fmt.Errorf("CRD %s is not yet Established", name)
}
