package main

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rl1809/marketplace/internal/adapter/observer"
	"github.com/rl1809/marketplace/internal/core/domain"
	"github.com/rl1809/marketplace/internal/core/service"
	"github.com/rl1809/marketplace/pkg/logger"
)

const (
	producerCount    = 8
	queueSize        = 10
	consumerCount    = 20
	cartsPerConsumer = 10
	addsPerCart      = 3
	timeout          = 30 * time.Second
)

func main() {
	log := logger.New(logger.Config{Env: "development", Level: "warn", Out: os.Stderr})

	orders := observer.NewMemoryOrderRepository()
	dispatcher := observer.NewOrderDispatcher(orders, consumerCount*cartsPerConsumer, log)
	dispatcher.Start(4)

	marketplace, err := service.NewMarketplace(queueSize, service.WithObserver(dispatcher))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create marketplace")
	}

	item := domain.NewTea("Linden", decimal.NewFromInt(9), "Herbal")

	// Per-producer counters, registered up front
	published := make(map[domain.ProducerID]*atomic.Int64, producerCount)
	sold := make(map[domain.ProducerID]*atomic.Int64, producerCount)
	ids := make([]domain.ProducerID, 0, producerCount)
	for i := 0; i < producerCount; i++ {
		id := marketplace.RegisterProducer()
		ids = append(ids, id)
		published[id] = new(atomic.Int64)
		sold[id] = new(atomic.Int64)
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	produceCtx, stopProducers := context.WithCancel(ctx)

	var rejected atomic.Int64
	var producers sync.WaitGroup
	for _, id := range ids {
		id := id
		producers.Add(1)
		go func() {
			defer producers.Done()
			for produceCtx.Err() == nil {
				ok, err := marketplace.Publish(id, item)
				if err != nil {
					log.Error().Err(err).Str("producer", string(id)).Msg("publish failed")
					return
				}
				if ok {
					published[id].Add(1)
				} else {
					rejected.Add(1)
					runtime.Gosched()
				}
			}
		}()
	}

	var placed, lines, unfinished atomic.Int64
	var consumers sync.WaitGroup
	start := time.Now()

	for c := 0; c < consumerCount; c++ {
		consumers.Add(1)
		go func() {
			defer consumers.Done()
			for n := 0; n < cartsPerConsumer; n++ {
				cart, err := marketplace.NewCart()
				if err != nil {
					log.Error().Err(err).Msg("new cart failed")
					unfinished.Add(1)
					return
				}
				for a := 0; a < addsPerCart; a++ {
					for {
						added, err := marketplace.AddToCart(cart, item)
						if err != nil || ctx.Err() != nil {
							unfinished.Add(1)
							return
						}
						if added {
							break
						}
						runtime.Gosched()
					}
				}
				if err := marketplace.RemoveFromCart(cart, item); err != nil {
					unfinished.Add(1)
					return
				}
				bought, err := marketplace.PlaceOrder(cart)
				if err != nil {
					unfinished.Add(1)
					return
				}
				placed.Add(1)
				lines.Add(int64(len(bought)))
				for _, line := range bought {
					sold[line.Producer].Add(1)
				}
			}
		}()
	}

	consumers.Wait()
	stopProducers()
	producers.Wait()
	elapsed := time.Since(start)

	dispatcher.Close()
	snap := marketplace.Snapshot()

	wantOrders := int64(consumerCount * cartsPerConsumer)
	wantLines := wantOrders * (addsPerCart - 1)

	fmt.Println("========== STRESS TEST RESULTS ==========")
	fmt.Printf("Producers:        %d (capacity %d each)\n", producerCount, queueSize)
	fmt.Printf("Consumers:        %d x %d carts\n", consumerCount, cartsPerConsumer)
	fmt.Printf("Orders Placed:    %d\n", placed.Load())
	fmt.Printf("Lines Sold:       %d\n", lines.Load())
	fmt.Printf("Rejected Publish: %d\n", rejected.Load())
	fmt.Printf("Orders Recorded:  %d\n", len(orders.All()))
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Println("==========================================")

	failed := false
	check := func(ok bool, pass string, format string, args ...any) {
		if ok {
			fmt.Println("PASS: " + pass)
			return
		}
		failed = true
		fmt.Printf("FAIL: "+format+"\n", args...)
	}

	check(unfinished.Load() == 0 && placed.Load() == wantOrders && lines.Load() == wantLines,
		fmt.Sprintf("%d orders with %d lines", wantOrders, wantLines),
		"expected %d orders/%d lines, got %d/%d (%d consumers stopped early)",
		wantOrders, wantLines, placed.Load(), lines.Load(), unfinished.Load())

	check(len(snap.Carts) == 0, "no cart left open", "%d carts still open", len(snap.Carts))

	// every unit a producer got accepted is either still listed or was sold exactly once
	for _, id := range ids {
		occ := snap.Occupancy[id]
		listed := 0
		for _, e := range snap.Available {
			if e.Producer == id {
				listed++
			}
		}
		p, s := published[id].Load(), sold[id].Load()
		check(int64(occ) == p-s && occ == listed,
			fmt.Sprintf("producer %s: published %d, sold %d, listed %d", id, p, s, listed),
			"producer %s: published %d, sold %d, occupancy %d, listed %d", id, p, s, occ, listed)
	}

	ds := dispatcher.Stats()
	check(ds.Saved == uint64(placed.Load()) && ds.Dropped == 0,
		"every order recorded",
		"recorded %d of %d orders (%d dropped)", ds.Saved, placed.Load(), ds.Dropped)

	if failed {
		os.Exit(1)
	}
}
