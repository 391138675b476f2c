package kuma

// FieldKind is the coercion target for a schema field (§4.3.4 "Parsing").
type FieldKind int

const (
	FieldString FieldKind = iota
	FieldInt
	FieldBool
	FieldJSON
	FieldStringList
	FieldIntRangeList // e.g. "200-299" -> {200..299}; also accepts a bare list
)

// FieldSpec describes one recognized field of a monitor type.
type FieldSpec struct {
	Name     string
	Kind     FieldKind
	Required bool
	Default  any
}

// CommonMonitorFields apply to every monitor type, §3's "Essential
// fields (beyond name/description)" plus name/description themselves.
var CommonMonitorFields = []FieldSpec{
	{Name: "name", Kind: FieldString, Required: true},
	{Name: "description", Kind: FieldString},
	{Name: "interval", Kind: FieldInt, Default: float64(60)},
	{Name: "retry_interval", Kind: FieldInt, Default: float64(60)},
	{Name: "max_retries", Kind: FieldInt, Default: float64(0)},
	{Name: "active", Kind: FieldBool, Default: true},
	{Name: "upside_down", Kind: FieldBool, Default: false},
	{Name: "parent_name", Kind: FieldString},
	{Name: "notification_name_list", Kind: FieldStringList},
	{Name: "tag_names", Kind: FieldJSON},
	{Name: "docker_host_name", Kind: FieldString},
}

// MonitorTypeFields enumerates the recognized, type-specific fields for
// each monitor `type` tag. This is the schema table promised by §1's
// "opaque typed records whose recognized fields are enumerated by a
// schema table the implementer will derive from §6" — derived here from
// Uptime Kuma's documented monitor JSON shape.
var MonitorTypeFields = map[string][]FieldSpec{
	"group": {},
	"http": {
		{Name: "url", Kind: FieldString, Required: true},
		{Name: "method", Kind: FieldString, Default: "GET"},
		{Name: "body", Kind: FieldString},
		{Name: "headers", Kind: FieldString},
		{Name: "accepted_statuscodes", Kind: FieldIntRangeList, Default: []any{"200-299"}},
		{Name: "max_redirects", Kind: FieldInt, Default: float64(10)},
		{Name: "ignore_tls", Kind: FieldBool, Default: false},
		{Name: "basic_auth_user", Kind: FieldString},
		{Name: "basic_auth_pass", Kind: FieldString},
		{Name: "keyword", Kind: FieldString},
	},
	"keyword": {
		{Name: "url", Kind: FieldString, Required: true},
		{Name: "keyword", Kind: FieldString, Required: true},
		{Name: "invert_keyword", Kind: FieldBool, Default: false},
		{Name: "accepted_statuscodes", Kind: FieldIntRangeList, Default: []any{"200-299"}},
	},
	"json-query": {
		{Name: "url", Kind: FieldString, Required: true},
		{Name: "json_path", Kind: FieldString, Required: true},
		{Name: "expected_value", Kind: FieldString},
		{Name: "accepted_statuscodes", Kind: FieldIntRangeList, Default: []any{"200-299"}},
	},
	"port": {
		{Name: "hostname", Kind: FieldString, Required: true},
		{Name: "port", Kind: FieldInt, Required: true},
	},
	"ping": {
		{Name: "hostname", Kind: FieldString, Required: true},
		{Name: "packet_size", Kind: FieldInt, Default: float64(56)},
	},
	"dns": {
		{Name: "hostname", Kind: FieldString, Required: true},
		{Name: "dns_resolve_server", Kind: FieldString, Default: "1.1.1.1"},
		{Name: "dns_resolve_type", Kind: FieldString, Default: "A"},
		{Name: "port", Kind: FieldInt, Default: float64(53)},
	},
	"docker": {
		{Name: "docker_container", Kind: FieldString, Required: true},
		{Name: "docker_host_name", Kind: FieldString, Required: true},
	},
	"push": {
		{Name: "push_token", Kind: FieldString},
	},
	"steam": {
		{Name: "hostname", Kind: FieldString, Required: true},
		{Name: "port", Kind: FieldInt, Default: float64(27015)},
	},
	"gamedig": {
		{Name: "hostname", Kind: FieldString, Required: true},
		{Name: "port", Kind: FieldInt, Required: true},
		{Name: "game", Kind: FieldString, Required: true},
	},
	"grpc-keyword": {
		{Name: "grpc_url", Kind: FieldString, Required: true},
		{Name: "grpc_service_name", Kind: FieldString},
		{Name: "grpc_method", Kind: FieldString},
		{Name: "grpc_protobuf", Kind: FieldString},
		{Name: "grpc_body", Kind: FieldString},
		{Name: "keyword", Kind: FieldString},
		{Name: "grpc_enable_tls", Kind: FieldBool, Default: false},
	},
	"mqtt": {
		{Name: "hostname", Kind: FieldString, Required: true},
		{Name: "port", Kind: FieldInt, Default: float64(1883)},
		{Name: "mqtt_topic", Kind: FieldString, Required: true},
		{Name: "mqtt_success_message", Kind: FieldString},
		{Name: "mqtt_username", Kind: FieldString},
		{Name: "mqtt_password", Kind: FieldString},
	},
	"sqlserver": {
		{Name: "database_connection_string", Kind: FieldString, Required: true},
		{Name: "database_query", Kind: FieldString},
	},
	"postgres": {
		{Name: "database_connection_string", Kind: FieldString, Required: true},
		{Name: "database_query", Kind: FieldString},
	},
	"mysql": {
		{Name: "database_connection_string", Kind: FieldString, Required: true},
		{Name: "database_query", Kind: FieldString},
	},
	"mongodb": {
		{Name: "database_connection_string", Kind: FieldString, Required: true},
	},
	"redis": {
		{Name: "database_connection_string", Kind: FieldString, Required: true},
	},
	"tailscale-ping": {
		{Name: "hostname", Kind: FieldString, Required: true},
	},
	"real-browser": {
		{Name: "url", Kind: FieldString, Required: true},
		{Name: "remote_browser", Kind: FieldString},
	},
}

// FieldsForType returns the full field table (common + type-specific)
// for a monitor type, or nil if the type is unrecognized.
func FieldsForType(monitorType string) ([]FieldSpec, bool) {
	specific, ok := MonitorTypeFields[monitorType]
	if !ok {
		return nil, false
	}
	all := make([]FieldSpec, 0, len(CommonMonitorFields)+len(specific))
	all = append(all, CommonMonitorFields...)
	all = append(all, specific...)
	return all, true
}

// TagFields, NotificationFields, DockerHostFields, StatusPageFields and
// MaintenanceFields are the schema tables for the non-Monitor kinds.
var TagFields = []FieldSpec{
	{Name: "name", Kind: FieldString, Required: true},
	{Name: "color", Kind: FieldString, Default: "#00A1FF"},
}

var NotificationFields = []FieldSpec{
	{Name: "name", Kind: FieldString, Required: true},
	{Name: "active", Kind: FieldBool, Default: true},
	{Name: "config", Kind: FieldJSON, Required: true},
}

var DockerHostFields = []FieldSpec{
	{Name: "name", Kind: FieldString, Required: true},
	{Name: "connection_type", Kind: FieldString, Default: "socket"},
	{Name: "host", Kind: FieldString},
	{Name: "path", Kind: FieldString, Default: "/var/run/docker.sock"},
}

var StatusPageFields = []FieldSpec{
	{Name: "slug", Kind: FieldString, Required: true},
	{Name: "title", Kind: FieldString, Required: true},
	{Name: "description", Kind: FieldString},
	{Name: "monitor_names", Kind: FieldStringList},
	{Name: "published", Kind: FieldBool, Default: true},
	{Name: "show_tags", Kind: FieldBool, Default: false},
}

var MaintenanceFields = []FieldSpec{
	{Name: "title", Kind: FieldString, Required: true},
	{Name: "description", Kind: FieldString},
	{Name: "strategy", Kind: FieldString, Default: "manual"},
	{Name: "active", Kind: FieldBool, Default: true},
	{Name: "monitor_names", Kind: FieldStringList},
	{Name: "date_range", Kind: FieldJSON},
	{Name: "cron", Kind: FieldString},
	{Name: "duration", Kind: FieldInt},
	{Name: "timezone", Kind: FieldString},
}
