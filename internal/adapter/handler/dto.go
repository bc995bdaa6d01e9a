package handler

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/rl1809/marketplace/internal/core/domain"
)

// ItemDTO is the wire form of domain.Item; the price travels as a decimal string.
type ItemDTO struct {
	Category   string            `json:"category" msgpack:"category"`
	Name       string            `json:"name" msgpack:"name"`
	Price      string            `json:"price" msgpack:"price"`
	Attributes map[string]string `json:"attributes,omitempty" msgpack:"attributes,omitempty"`
}

type LineDTO struct {
	Item       ItemDTO `json:"item" msgpack:"item"`
	ProducerID string  `json:"producer_id" msgpack:"producer_id"`
}

func (d ItemDTO) toDomain() (domain.Item, error) {
	if strings.TrimSpace(d.Category) == "" || strings.TrimSpace(d.Name) == "" {
		return domain.Item{}, fmt.Errorf("category and name are required")
	}
	price, err := decimal.NewFromString(d.Price)
	if err != nil {
		return domain.Item{}, fmt.Errorf("invalid price %q: %w", d.Price, err)
	}
	return domain.NewItem(d.Category, d.Name, price, d.Attributes), nil
}

func itemToDTO(item domain.Item) ItemDTO {
	return ItemDTO{
		Category:   item.Category,
		Name:       item.Name,
		Price:      item.Price.String(),
		Attributes: item.Attributes,
	}
}

func linesToDTO(lines []domain.Entry) []LineDTO {
	out := make([]LineDTO, 0, len(lines))
	for _, l := range lines {
		out = append(out, LineDTO{Item: itemToDTO(l.Item), ProducerID: string(l.Producer)})
	}
	return out
}

// LinesFromDTO converts wire lines back to entries.
func LinesFromDTO(lines []LineDTO) ([]domain.Entry, error) {
	out := make([]domain.Entry, 0, len(lines))
	for _, l := range lines {
		item, err := l.Item.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, domain.Entry{Item: item, Producer: domain.ProducerID(l.ProducerID)})
	}
	return out, nil
}

type StatsDTO struct {
	Capacity  int            `json:"capacity"`
	Occupancy map[string]int `json:"occupancy"`
	Available int            `json:"available"`
	Carts     int            `json:"carts"`
	Staged    int            `json:"staged"`
}

func statsToDTO(s domain.Snapshot) StatsDTO {
	out := StatsDTO{
		Capacity:  s.Capacity,
		Occupancy: make(map[string]int, len(s.Occupancy)),
		Available: len(s.Available),
		Carts:     len(s.Carts),
	}
	for id, n := range s.Occupancy {
		out.Occupancy[string(id)] = n
	}
	for _, lines := range s.Carts {
		out.Staged += len(lines)
	}
	return out
}
