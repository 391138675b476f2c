// Package kuma holds the data model for the remote Uptime Kuma server's
// entities: the schema table of recognized monitor fields (§1 "opaque
// typed records whose recognized fields are enumerated by a schema
// table"), and the JSON document shape each entity kind round-trips on
// the wire.
package kuma

// Kind tags an entity's category. Group is not a distinct Kind: it is a
// Monitor whose Fields["type"] == "group", per §3.
type Kind string

const (
	KindTag          Kind = "tag"
	KindNotification Kind = "notification"
	KindDockerHost   Kind = "docker_host"
	KindMonitor      Kind = "monitor"
	KindStatusPage   Kind = "status_page"
	KindMaintenance  Kind = "maintenance"
)

// DependencyOrder is the create order from §4.6.1: "Tag, Notification,
// DockerHost, Group, Monitor, StatusPage, Maintenance". Group is a
// same-Kind split handled by the reconciler's topological sort within
// KindMonitor, so this table lists six buckets for seven concepts.
var DependencyOrder = []Kind{
	KindTag,
	KindNotification,
	KindDockerHost,
	KindMonitor,
	KindStatusPage,
	KindMaintenance,
}

// OrderIndex returns the position of k in DependencyOrder, or -1.
func OrderIndex(k Kind) int {
	for i, o := range DependencyOrder {
		if o == k {
			return i
		}
	}
	return -1
}
