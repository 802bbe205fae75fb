package providers

import (
	"time"

	lru "github.com/hashicorp/golang-lru"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel/metric"

	"github.com/gantryq/gantry/pkg/dupwatch"
)

// Duplicate watch config keys.
const (
	ConfDupWatchSize = "dupwatch.size"
	ConfDupWatchTTL  = "dupwatch.ttl"
)

func init() {
	viper.SetDefault(ConfDupWatchSize, 4096)
	viper.SetDefault(ConfDupWatchTTL, 10*time.Minute)
}

// NewDupCache builds the LRU window behind the duplicate watches.
// Job IDs are globally unique, so all queues share one cache.
func NewDupCache() (*lru.Cache, error) {
	return lru.New(viper.GetInt(ConfDupWatchSize))
}

// NewDupWatchMetrics registers the duplicate watch instruments.
func NewDupWatchMetrics(m metric.Meter) (*dupwatch.WatchMetrics, error) {
	return dupwatch.NewWatchMetrics(m)
}
