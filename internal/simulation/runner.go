package simulation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/rl1809/marketplace/internal/core/domain"
	"github.com/rl1809/marketplace/internal/core/service"
	"github.com/rl1809/marketplace/pkg/logger"
)

// Report summarises what the consumers bought.
type Report struct {
	Orders int
	Lines  int
}

type Runner struct {
	market   *service.Marketplace
	scenario *Scenario
	log      *logger.Logger

	mu     sync.Mutex
	out    io.Writer
	report Report
}

func NewRunner(market *service.Marketplace, scenario *Scenario, out io.Writer, log *logger.Logger) *Runner {
	if log == nil {
		log = logger.Nop()
	}
	return &Runner{
		market:   market,
		scenario: scenario,
		log:      log.Named("simulation"),
		out:      out,
	}
}

// Run starts every producer and consumer and returns once all consumers have
// placed their orders. Producers loop over their batches until then.
func (r *Runner) Run(ctx context.Context) (Report, error) {
	produceCtx, stopProducers := context.WithCancel(ctx)
	defer stopProducers()

	producers, produceCtx := errgroup.WithContext(produceCtx)
	for _, cfg := range r.scenario.Producers {
		cfg := cfg
		producers.Go(func() error { return r.runProducer(produceCtx, cfg) })
	}

	consumers, consumeCtx := errgroup.WithContext(ctx)
	for _, cfg := range r.scenario.Consumers {
		cfg := cfg
		consumers.Go(func() error { return r.runConsumer(consumeCtx, cfg) })
	}

	err := consumers.Wait()
	stopProducers()
	if perr := producers.Wait(); perr != nil && err == nil {
		err = perr
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.report, err
}

func (r *Runner) runProducer(ctx context.Context, cfg Producer) error {
	if len(cfg.Products) == 0 {
		return nil
	}

	items := make([]domain.Item, len(cfg.Products))
	for i, batch := range cfg.Products {
		item, err := r.scenario.Item(batch.Product)
		if err != nil {
			return fmt.Errorf("producer %s: %w", cfg.Name, err)
		}
		items[i] = item
	}

	id := r.market.RegisterProducer()
	log := r.log.With().Str("producer", cfg.Name).Str("producer_id", string(id)).Logger()
	log.Debug().Msg("producer started")
	defer func() { log.Debug().Msg("producer stopped") }()

	retry := newRetryPacer(cfg.RepublishWait)
	for {
		for i, batch := range cfg.Products {
			for n := 0; n < batch.Quantity; n++ {
				retry.Reset()
				for {
					ok, err := r.market.Publish(id, items[i])
					if err != nil {
						return fmt.Errorf("producer %s: %w", cfg.Name, err)
					}
					if ok {
						break
					}
					if retry.Wait(ctx) != nil {
						return nil
					}
				}
				if sleep(ctx, batch.Wait) != nil {
					return nil
				}
			}
		}
	}
}

func (r *Runner) runConsumer(ctx context.Context, cfg Consumer) error {
	retry := newRetryPacer(cfg.RetryWait)

	for _, ops := range cfg.Carts {
		cart, err := r.market.NewCart()
		if err != nil {
			return fmt.Errorf("consumer %s: %w", cfg.Name, err)
		}

		for _, op := range ops {
			item, err := r.scenario.Item(op.Product)
			if err != nil {
				return fmt.Errorf("consumer %s: %w", cfg.Name, err)
			}
			for n := 0; n < op.Quantity; n++ {
				switch op.Type {
				case OpAdd:
					if err := r.addWithRetry(ctx, retry, cart, item); err != nil {
						return fmt.Errorf("consumer %s: %w", cfg.Name, err)
					}
				case OpRemove:
					if err := r.market.RemoveFromCart(cart, item); err != nil {
						return fmt.Errorf("consumer %s: %w", cfg.Name, err)
					}
				}
			}
		}

		lines, err := r.market.PlaceOrder(cart)
		if err != nil {
			return fmt.Errorf("consumer %s: %w", cfg.Name, err)
		}
		if err := r.printOrder(cfg.Name, lines); err != nil {
			return err
		}
		r.log.Info().Str("consumer", cfg.Name).Stringer("cart", cart).Int("lines", len(lines)).Msg("order placed")
	}
	return nil
}

func (r *Runner) addWithRetry(ctx context.Context, retry *retryPacer, cart domain.CartID, item domain.Item) error {
	retry.Reset()
	for {
		added, err := r.market.AddToCart(cart, item)
		if err != nil {
			return err
		}
		if added {
			return nil
		}
		if err := retry.Wait(ctx); err != nil {
			return err
		}
	}
}

// printOrder writes the lines of one order together so concurrent consumers
// never interleave within an order.
func (r *Runner) printOrder(consumer string, lines []domain.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, line := range lines {
		if _, err := fmt.Fprintf(r.out, "%s bought %s\n", consumer, line.Item); err != nil {
			return fmt.Errorf("write order: %w", err)
		}
	}
	r.report.Orders++
	r.report.Lines += len(lines)
	return nil
}

// retryPacer spaces the attempts of one retry streak at least interval apart.
type retryPacer struct {
	lim *rate.Limiter
}

func newRetryPacer(interval time.Duration) *retryPacer {
	if interval <= 0 {
		return &retryPacer{lim: rate.NewLimiter(rate.Inf, 1)}
	}
	return &retryPacer{lim: rate.NewLimiter(rate.Every(interval), 1)}
}

// Reset spends the stored token so the first Wait of a streak blocks.
func (p *retryPacer) Reset() {
	p.lim.Allow()
}

func (p *retryPacer) Wait(ctx context.Context) error {
	if err := p.lim.Wait(ctx); err != nil {
		// the limiter refuses early when the deadline falls before the next token
		<-ctx.Done()
		return ctx.Err()
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// IsCanceled reports whether err only reflects the run being stopped.
func IsCanceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
