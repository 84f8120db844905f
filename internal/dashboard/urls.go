package dashboard

import "time"

// urlCache keeps signed URLs per stored reference until shortly before
// they expire.
type urlCache struct {
	margin  time.Duration
	entries map[string]cachedURL
	pending map[string]bool
}

type cachedURL struct {
	url     string
	expires time.Time
}

func newURLCache(margin time.Duration) *urlCache {
	return &urlCache{margin: margin, entries: make(map[string]cachedURL), pending: make(map[string]bool)}
}

func (c *urlCache) get(ref string, now time.Time) (string, bool) {
	e, ok := c.entries[ref]
	if !ok || !now.Add(c.margin).Before(e.expires) {
		return "", false
	}
	return e.url, true
}

func (c *urlCache) put(ref, url string, expires time.Time) {
	c.entries[ref] = cachedURL{url: url, expires: expires}
}

// retain drops entries for references no longer shown.
func (c *urlCache) retain(refs map[string]bool) {
	for ref := range c.entries {
		if !refs[ref] {
			delete(c.entries, ref)
		}
	}
}
