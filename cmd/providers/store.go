package providers

import (
	"context"

	"github.com/go-redis/redis/v8"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/gantryq/gantry/pkg/kv"
	"github.com/gantryq/gantry/pkg/rediskv"
)

// Store config keys.
const (
	ConfStoreCounterKey = "store.counter_key"
)

func init() {
	viper.SetDefault(ConfStoreCounterKey, rediskv.DefaultCounterKey)
}

// NewKV builds the versioned store on the shared Redis client.
// Pre-loads the store scripts, so Redis must be reachable.
func NewKV(ctx context.Context, log *zap.Logger, rd *redis.Client) (kv.Store, error) {
	scripts, err := rediskv.LoadScripts(ctx, rd)
	if err != nil {
		return nil, err
	}
	counterKey := viper.GetString(ConfStoreCounterKey)
	log.Info("Loaded store scripts",
		zap.String(ConfStoreCounterKey, counterKey))
	return &rediskv.Store{
		Redis:      rd,
		Scripts:    scripts,
		CounterKey: counterKey,
	}, nil
}
