package redis

import "strings"

const (
	// DefaultPrefix namespaces every key written by the site.
	DefaultPrefix = "webbaby:"

	keyNewsItem    = "news:item:"
	keyNewsIndex   = "news:index"
	keyBuildStatus = "build:status"
	keyBuildRuns   = "build:runs"
)

// Keys builds namespaced key names.
type Keys struct {
	prefix string
}

func NewKeys(prefix string) Keys {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if !strings.HasSuffix(prefix, ":") {
		prefix += ":"
	}
	return Keys{prefix: prefix}
}

// NewsItem returns the key holding one item's JSON.
func (k Keys) NewsItem(id string) string { return k.prefix + keyNewsItem + id }

// NewsIndex returns the sorted set of item ids scored by publish time.
func (k Keys) NewsIndex() string { return k.prefix + keyNewsIndex }

// BuildStatus returns the key of the last build report.
func (k Keys) BuildStatus() string { return k.prefix + keyBuildStatus }

// BuildRuns returns the hash counting builds by outcome.
func (k Keys) BuildRuns() string { return k.prefix + keyBuildRuns }

// ItemID extracts the item id from a NewsItem key.
func (k Keys) ItemID(key string) (string, bool) {
	p := k.prefix + keyNewsItem
	if len(key) <= len(p) || !strings.HasPrefix(key, p) {
		return "", false
	}
	return key[len(p):], true
}
