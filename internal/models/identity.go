package models

// Identity names who is authenticating against which backend. It is the
// bucketing key for rate limiting and the grouping key for the per-identity
// concurrent session cap. It never carries credentials.
type Identity struct {
	Username string
	Host     string
}

// Key returns the canonical identity key used by the rate limiter and the
// session store's per-identity index.
func (id Identity) Key() string {
	return id.Username + "@" + id.Host
}
