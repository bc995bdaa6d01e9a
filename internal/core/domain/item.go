package domain

import (
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	CategoryTea    = "Tea"
	CategoryCoffee = "Coffee"
)

// Item is a published product. Items are compared structurally through Key,
// so two values built from the same fields are interchangeable. An Item is a
// value: do not mutate Attributes after building it, use NewItem or Clone.
type Item struct {
	Category   string
	Name       string
	Price      decimal.Decimal
	Attributes map[string]string
}

func NewItem(category, name string, price decimal.Decimal, attrs map[string]string) Item {
	copied := make(map[string]string, len(attrs))
	for k, v := range attrs {
		copied[k] = v
	}
	return Item{
		Category:   category,
		Name:       name,
		Price:      price,
		Attributes: copied,
	}
}

func NewTea(name string, price decimal.Decimal, teaType string) Item {
	return NewItem(CategoryTea, name, price, map[string]string{"type": teaType})
}

func NewCoffee(name string, price decimal.Decimal, acidity, roastLevel string) Item {
	return NewItem(CategoryCoffee, name, price, map[string]string{
		"acidity":     acidity,
		"roast_level": roastLevel,
	})
}

// Key is the canonical identity of the item. Every part is quoted, so no
// field or attribute content can run into its neighbour. Prices are
// normalised, so 1.50 and 1.5 produce the same key.
func (i Item) Key() string {
	var b strings.Builder
	b.WriteString(strconv.Quote(i.Category))
	b.WriteByte(' ')
	b.WriteString(strconv.Quote(i.Name))
	b.WriteByte(' ')
	b.WriteString(strconv.Quote(i.Price.String()))
	for _, k := range i.attributeNames() {
		b.WriteByte(' ')
		b.WriteString(strconv.Quote(k))
		b.WriteByte('=')
		b.WriteString(strconv.Quote(i.Attributes[k]))
	}
	return b.String()
}

// Clone returns a copy that shares no map with i.
func (i Item) Clone() Item {
	return NewItem(i.Category, i.Name, i.Price, i.Attributes)
}

func (i Item) Equal(other Item) bool {
	return i.Key() == other.Key()
}

func (i Item) String() string {
	var b strings.Builder
	b.WriteString(i.Category)
	b.WriteString("(name=")
	b.WriteString(i.Name)
	b.WriteString(", price=")
	b.WriteString(i.Price.String())
	for _, k := range i.attributeNames() {
		b.WriteString(", ")
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(i.Attributes[k])
	}
	b.WriteByte(')')
	return b.String()
}

func (i Item) attributeNames() []string {
	names := make([]string, 0, len(i.Attributes))
	for k := range i.Attributes {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
