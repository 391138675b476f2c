package kubesource

// Config configures the Kubernetes CR source adapter (§4.2.2).
type Config struct {
	Kubeconfig string // empty: in-cluster, falling back to $KUBECONFIG / ~/.kube/config
	Context    string // empty: current context
	Namespace  string // empty: all namespaces
	Group      string
	Version    string
	Resource   string // plural resource name, e.g. "monitors"
}

func (c Config) effectiveGroup() string {
	if c.Group == "" {
		return "autokuma.sh"
	}
	return c.Group
}

func (c Config) effectiveVersion() string {
	if c.Version == "" {
		return "v1"
	}
	return c.Version
}

func (c Config) effectiveResource() string {
	if c.Resource == "" {
		return "monitors"
	}
	return c.Resource
}
