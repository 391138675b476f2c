package dockersource

import "testing"

func TestMatchesAny(t *testing.T) {
	cases := []struct {
		name     string
		patterns []string
		want     bool
	}{
		{"db-1", []string{"db-*"}, true},
		{"web-1", []string{"db-*"}, false},
		{"redis-cache", []string{"regex:^redis-"}, true},
		{"cache-redis", []string{"regex:^redis-"}, false},
		{"anything", nil, false},
	}
	for _, tc := range cases {
		if got := matchesAny(tc.name, tc.patterns); got != tc.want {
			t.Errorf("matchesAny(%q, %v) = %v, want %v", tc.name, tc.patterns, got, tc.want)
		}
	}
}
