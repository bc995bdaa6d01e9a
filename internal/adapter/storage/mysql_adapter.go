package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rl1809/marketplace/internal/core/domain"
)

var ErrDuplicateOrder = errors.New("order already recorded")

var schema = []string{
	`CREATE TABLE IF NOT EXISTS orders (
		id         VARCHAR(36)  NOT NULL PRIMARY KEY,
		cart_id    INT UNSIGNED NOT NULL,
		status     VARCHAR(16)  NOT NULL,
		line_count INT          NOT NULL,
		created_at DATETIME(6)  NOT NULL,
		updated_at DATETIME(6)  NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS order_lines (
		order_id    VARCHAR(36)    NOT NULL,
		line_no     INT            NOT NULL,
		producer_id VARCHAR(36)    NOT NULL,
		category    VARCHAR(64)    NOT NULL,
		name        VARCHAR(255)   NOT NULL,
		price       DECIMAL(20, 6) NOT NULL,
		attributes  TEXT           NOT NULL,
		PRIMARY KEY (order_id, line_no),
		CONSTRAINT fk_order_lines_order FOREIGN KEY (order_id) REFERENCES orders (id) ON DELETE CASCADE
	)`,
}

type MySQLAdapter struct {
	db *sql.DB
}

func NewMySQLAdapter(db *sql.DB) *MySQLAdapter {
	return &MySQLAdapter{db: db}
}

func (m *MySQLAdapter) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := m.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

func (m *MySQLAdapter) SaveOrder(ctx context.Context, order domain.Order) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		INSERT IGNORE INTO orders (id, cart_id, status, line_count, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		order.ID, uint32(order.CartID), domain.OrderStatusRecorded, len(order.Lines),
		order.CreatedAt, order.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrDuplicateOrder
	}

	for i, line := range order.Lines {
		attrs, err := json.Marshal(line.Item.Attributes)
		if err != nil {
			return fmt.Errorf("encode attributes: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO order_lines (order_id, line_no, producer_id, category, name, price, attributes)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			order.ID, i, string(line.Producer), line.Item.Category, line.Item.Name,
			line.Item.Price, string(attrs),
		)
		if err != nil {
			return fmt.Errorf("insert order line %d: %w", i, err)
		}
	}

	return tx.Commit()
}

func (m *MySQLAdapter) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	var (
		order  domain.Order
		cartID uint32
	)
	err := m.db.QueryRowContext(ctx, `
		SELECT id, cart_id, status, created_at, updated_at
		FROM orders WHERE id = ?`, orderID,
	).Scan(&order.ID, &cartID, &order.Status, &order.CreatedAt, &order.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query order: %w", err)
	}
	order.CartID = domain.CartID(cartID)

	rows, err := m.db.QueryContext(ctx, `
		SELECT producer_id, category, name, price, attributes
		FROM order_lines WHERE order_id = ? ORDER BY line_no`, orderID)
	if err != nil {
		return nil, fmt.Errorf("query order lines: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			line     domain.Entry
			producer string
			attrs    string
		)
		if err := rows.Scan(&producer, &line.Item.Category, &line.Item.Name, &line.Item.Price, &attrs); err != nil {
			return nil, fmt.Errorf("scan order line: %w", err)
		}
		if err := json.Unmarshal([]byte(attrs), &line.Item.Attributes); err != nil {
			return nil, fmt.Errorf("decode attributes: %w", err)
		}
		line.Producer = domain.ProducerID(producer)
		order.Lines = append(order.Lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order lines: %w", err)
	}

	return &order, nil
}

// CountLinesByProducer returns how many recorded order lines each producer sold.
func (m *MySQLAdapter) CountLinesByProducer(ctx context.Context) (map[domain.ProducerID]int, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT producer_id, COUNT(*) FROM order_lines GROUP BY producer_id`)
	if err != nil {
		return nil, fmt.Errorf("count order lines: %w", err)
	}
	defer rows.Close()

	out := make(map[domain.ProducerID]int)
	for rows.Next() {
		var (
			producer string
			n        int
		)
		if err := rows.Scan(&producer, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		out[domain.ProducerID(producer)] = n
	}
	return out, rows.Err()
}
