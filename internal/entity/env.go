package entity

import (
	"os"
	"strings"
)

const envGateprefix = "AUTOKUMA__ENV__"

// buildEnvContext implements the §6.2 `insecure_env_access` policy: with
// it false (the default), templates can only read environment variables
// explicitly re-exposed under the AUTOKUMA__ENV__ prefix; with it true,
// the full process environment is visible as `env.*`.
func buildEnvContext(insecureEnvAccess bool) map[string]any {
	out := make(map[string]any)
	for _, kv := range os.Environ() {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		if insecureEnvAccess {
			out[k] = v
			continue
		}
		if strings.HasPrefix(k, envGateprefix) {
			out[strings.TrimPrefix(k, envGateprefix)] = v
		}
	}
	return out
}
