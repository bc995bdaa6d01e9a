// Package simulation drives a Marketplace with scripted producers and
// consumers loaded from a YAML scenario.
package simulation

import (
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/rl1809/marketplace/internal/core/domain"
)

const (
	OpAdd    = "add"
	OpRemove = "remove"
)

type Scenario struct {
	QueueSizePerProducer int                `yaml:"queue_size_per_producer"` // 0 keeps the configured value
	Products             map[string]Product `yaml:"products"`
	Producers            []Producer         `yaml:"producers"`
	Consumers            []Consumer         `yaml:"consumers"`
}

// Product is a catalogue entry; Price is a decimal string.
type Product struct {
	Category   string            `yaml:"category"`
	Name       string            `yaml:"name"`
	Price      string            `yaml:"price"`
	Attributes map[string]string `yaml:"attributes"`
}

type Producer struct {
	Name          string          `yaml:"name"`
	Products      []ProducerBatch `yaml:"products"`
	RepublishWait time.Duration   `yaml:"republish_wait"`
}

// ProducerBatch publishes Quantity units of Product, sleeping Wait after each one.
type ProducerBatch struct {
	Product  string        `yaml:"product"`
	Quantity int           `yaml:"quantity"`
	Wait     time.Duration `yaml:"wait"`
}

type Consumer struct {
	Name      string        `yaml:"name"`
	Carts     [][]CartOp    `yaml:"carts"`
	RetryWait time.Duration `yaml:"retry_wait"`
}

type CartOp struct {
	Type     string `yaml:"type"`
	Product  string `yaml:"product"`
	Quantity int    `yaml:"quantity"`
}

// LoadScenario reads and validates a scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

func ParseScenario(data []byte) (*Scenario, error) {
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("failed to parse scenario: %w", err)
	}
	if err := sc.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &sc, nil
}

func (sc *Scenario) Validate() error {
	if sc.QueueSizePerProducer < 0 {
		return fmt.Errorf("queue_size_per_producer must be >= 0, got %d", sc.QueueSizePerProducer)
	}
	for key, p := range sc.Products {
		if p.Category == "" || p.Name == "" {
			return fmt.Errorf("product %q: category and name are required", key)
		}
		if _, err := decimal.NewFromString(p.Price); err != nil {
			return fmt.Errorf("product %q: invalid price %q", key, p.Price)
		}
	}
	for _, p := range sc.Producers {
		for _, b := range p.Products {
			if _, ok := sc.Products[b.Product]; !ok {
				return fmt.Errorf("producer %q: unknown product %q", p.Name, b.Product)
			}
			if b.Quantity <= 0 {
				return fmt.Errorf("producer %q: quantity of %q must be > 0", p.Name, b.Product)
			}
		}
	}
	for _, c := range sc.Consumers {
		for _, cart := range c.Carts {
			for _, op := range cart {
				if op.Type != OpAdd && op.Type != OpRemove {
					return fmt.Errorf("consumer %q: unknown operation %q", c.Name, op.Type)
				}
				if _, ok := sc.Products[op.Product]; !ok {
					return fmt.Errorf("consumer %q: unknown product %q", c.Name, op.Product)
				}
				if op.Quantity <= 0 {
					return fmt.Errorf("consumer %q: quantity of %q must be > 0", c.Name, op.Product)
				}
			}
		}
	}
	return nil
}

// Item resolves a catalogue key to a domain item.
func (sc *Scenario) Item(key string) (domain.Item, error) {
	p, ok := sc.Products[key]
	if !ok {
		return domain.Item{}, fmt.Errorf("unknown product %q", key)
	}
	price, err := decimal.NewFromString(p.Price)
	if err != nil {
		return domain.Item{}, fmt.Errorf("product %q: %w", key, err)
	}
	return domain.NewItem(p.Category, p.Name, price, p.Attributes), nil
}
