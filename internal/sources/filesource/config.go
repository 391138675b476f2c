package filesource

// Config configures the directory-scanning source adapter (§4.2.3).
type Config struct {
	Root           string
	FollowSymlinks bool
}
