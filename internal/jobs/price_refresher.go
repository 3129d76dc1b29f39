package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"sharebrokering/internal/domain"
	"sharebrokering/internal/pricefeed"
	"sharebrokering/internal/repository"
)

// Config controls the refresh schedule: an initial delay followed by a
// fixed period.
type Config struct {
	InitialDelay time.Duration
	Interval     time.Duration
	Logger       *logrus.Logger
}

// PriceRefresher periodically reloads the stock registry, fetches a fresh
// quote for every symbol and persists the updated prices. It owns its own
// handle to the stock store and contends for the store lock like any
// request-handling operation.
type PriceRefresher struct {
	cfg    Config
	stocks repository.StockStore
	feed   pricefeed.Client

	startOnce sync.Once
	stopOnce  sync.Once
	cancel    context.CancelFunc
	done      chan struct{}
}

func NewPriceRefresher(cfg Config, stocks repository.StockStore, feed pricefeed.Client) *PriceRefresher {
	if cfg.InitialDelay <= 0 {
		cfg.InitialDelay = 10 * time.Second
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	return &PriceRefresher{
		cfg:    cfg,
		stocks: stocks,
		feed:   feed,
		done:   make(chan struct{}),
	}
}

// Start schedules the refresh loop. Subsequent calls are no-ops.
func (r *PriceRefresher) Start(ctx context.Context) {
	r.startOnce.Do(func() {
		ctx, r.cancel = context.WithCancel(ctx)
		go r.run(ctx)
		r.cfg.Logger.Infof("price refresher scheduled: initial delay %s, interval %s", r.cfg.InitialDelay, r.cfg.Interval)
	})
}

// Stop cancels future refresh cycles. It is idempotent and safe to call
// whether or not a cycle is in flight; an in-flight cycle finishes on its
// own. After Stop returns the loop will not fire again.
func (r *PriceRefresher) Stop() {
	r.stopOnce.Do(func() {
		if r.cancel != nil {
			r.cancel()
			<-r.done
		}
	})
}

func (r *PriceRefresher) run(ctx context.Context) {
	defer close(r.done)

	timer := time.NewTimer(r.cfg.InitialDelay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return
	case <-timer.C:
	}

	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	for {
		r.refresh(ctx)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// refresh runs one cycle: fetch a quote per listed symbol, replace prices
// wholesale on success, skip symbols whose fetch fails, and save once at
// the end only if something actually changed.
func (r *PriceRefresher) refresh(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	log := r.cfg.Logger
	log.Debug("updating stock prices")

	updated := 0
	err := r.stocks.Update(ctx, func(stocks *[]domain.Stock) (bool, error) {
		for i := range *stocks {
			stock := &(*stocks)[i]

			quote, err := r.feed.GetSharePrice(ctx, stock.Symbol)
			if err != nil {
				log.WithError(err).Warnf("skip price update for %s", stock.Symbol)
				continue
			}

			stock.Price = domain.SharePrice{
				Currency: quote.Currency,
				Price:    quote.Price,
				Updated:  quote.Updated,
			}
			updated++
		}
		return updated > 0, nil
	})
	if err != nil {
		log.WithError(err).Error("persist refreshed stock prices")
		return
	}

	if updated > 0 {
		log.Infof("refreshed prices for %d stocks", updated)
	}
}
