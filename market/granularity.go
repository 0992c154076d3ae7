package market

import "time"

// Granularity is a candle bucket width.
type Granularity time.Duration

const (
	Gran1s  Granularity = Granularity(time.Second)
	Gran5s  Granularity = Granularity(5 * time.Second)
	Gran10s Granularity = Granularity(10 * time.Second)
	Gran30s Granularity = Granularity(30 * time.Second)
	Gran1m  Granularity = Granularity(time.Minute)
	Gran5m  Granularity = Granularity(5 * time.Minute)
	Gran15m Granularity = Granularity(15 * time.Minute)
	Gran30m Granularity = Granularity(30 * time.Minute)
	Gran1h  Granularity = Granularity(time.Hour)
	Gran4h  Granularity = Granularity(4 * time.Hour)
	Gran1d  Granularity = Granularity(24 * time.Hour)
	Gran1w  Granularity = Granularity(7 * 24 * time.Hour)
)

// Granularities lists every tracked bucket width, smallest first.
var Granularities = []Granularity{
	Gran1s, Gran5s, Gran10s, Gran30s,
	Gran1m, Gran5m, Gran15m, Gran30m,
	Gran1h, Gran4h, Gran1d, Gran1w,
}

var granNames = map[string]Granularity{
	"1s": Gran1s, "5s": Gran5s, "10s": Gran10s, "30s": Gran30s,
	"1m": Gran1m, "5m": Gran5m, "15m": Gran15m, "30m": Gran30m,
	"1h": Gran1h, "4h": Gran4h, "1d": Gran1d, "1w": Gran1w,
}

// ParseGranularity maps a short name ("1m", "4h", ...) to its Granularity.
func ParseGranularity(s string) (Granularity, bool) {
	g, ok := granNames[s]
	return g, ok
}

func (g Granularity) Duration() time.Duration {
	return time.Duration(g)
}

func (g Granularity) String() string {
	for name, gr := range granNames {
		if gr == g {
			return name
		}
	}
	return g.Duration().String()
}

// Bucket truncates t to the start of its bucket: floor(unix/g)*g.
func (g Granularity) Bucket(t time.Time) time.Time {
	sec := int64(g.Duration() / time.Second)
	return time.Unix(t.Unix()/sec*sec, 0).UTC()
}
