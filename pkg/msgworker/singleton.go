package msgworker

import (
	"context"
	"sync"

	coreconfig "github.com/AzielCF/az-wabridge/core/config"
)

var (
	globalPool     *Pool
	globalPoolOnce sync.Once
	globalCancel   context.CancelFunc
)

// GetGlobalPool starts the shared webhook pool on first use, sized from
// WorkerPool config.
func GetGlobalPool() *Pool {
	globalPoolOnce.Do(func() {
		var ctx context.Context
		ctx, globalCancel = context.WithCancel(context.Background())

		size, queue := 0, 0
		if coreconfig.Global != nil {
			size = coreconfig.Global.WorkerPool.Size
			queue = coreconfig.Global.WorkerPool.QueueSize
		}

		globalPool = NewPool(size, queue)
		globalPool.Start(ctx)
	})
	return globalPool
}

// StopGlobalPool drains the shared pool, if it was ever started.
func StopGlobalPool() {
	if globalPool != nil {
		globalPool.Stop()
	}
	if globalCancel != nil {
		globalCancel()
	}
}
