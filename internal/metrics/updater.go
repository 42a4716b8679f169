package metrics

import (
	"context"
	"log"
	"time"

	"alva-backend/internal/repositories"
)

// MetricsUpdater periodically updates business gauge metrics
type MetricsUpdater struct {
	metrics *Metrics
	repos   *repositories.Repositories
	ticker  *time.Ticker
	done    chan bool
}

// NewMetricsUpdater creates a new metrics updater
func NewMetricsUpdater(metrics *Metrics, repos *repositories.Repositories, interval time.Duration) *MetricsUpdater {
	return &MetricsUpdater{
		metrics: metrics,
		repos:   repos,
		ticker:  time.NewTicker(interval),
		done:    make(chan bool),
	}
}

// Start begins the metrics update loop
func (u *MetricsUpdater) Start() {
	go func() {
		// Update metrics immediately on start
		u.updateMetrics()

		for {
			select {
			case <-u.ticker.C:
				u.updateMetrics()
			case <-u.done:
				return
			}
		}
	}()
}

// Stop stops the metrics update loop
func (u *MetricsUpdater) Stop() {
	u.ticker.Stop()
	u.done <- true
}

// updateMetrics updates all gauge metrics with current values
func (u *MetricsUpdater) updateMetrics() {
	ctx := context.Background()

	userCount, err := u.repos.User.Count(ctx)
	if err != nil {
		log.Printf("Failed to get user count for metrics: %v", err)
	} else {
		u.metrics.UsersTotal.Set(float64(userCount))
	}

	accountCount, err := u.repos.TradingAccount.Count(ctx)
	if err != nil {
		log.Printf("Failed to get trading account count for metrics: %v", err)
	} else {
		u.metrics.TradingAccountsTotal.Set(float64(accountCount))
	}
}
