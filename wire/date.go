package wire

import "time"

// DateCache memoizes the formatted `Date: …` header line keyed by the
// integer second, refreshed lazily — safe without locking because EL
// callbacks run on a single thread.
type DateCache struct {
	epoch int64
	line  string
}

const dateLayout = "Mon, 02 Jan 2006 15:04:05 GMT"

// Line returns the formatted Date header value for the current wall-clock
// second, reusing the cached formatting if the second hasn't advanced.
func (c *DateCache) Line(now time.Time) string {
	sec := now.Unix()
	if sec != c.epoch || c.line == "" {
		c.epoch = sec
		c.line = now.UTC().Format(dateLayout)
	}
	return c.line
}
