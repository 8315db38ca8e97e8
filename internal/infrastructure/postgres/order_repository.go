package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	domain "github.com/pasar-rakyat/kantin/internal/domain/order"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type orderRow struct {
	ID            string `gorm:"primaryKey;size:36"`
	Cashier       string `gorm:"size:100;not null"`
	PaymentMethod string `gorm:"size:50;not null"`
	TotalAmount   int64  `gorm:"not null"`
	Status        string `gorm:"size:20;not null"`
	Time          time.Time
	Lines         []orderLineRow `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
}

func (orderRow) TableName() string { return "orders" }

type orderLineRow struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	OrderID   string `gorm:"size:36;index;not null"`
	CounterID string `gorm:"size:100;not null"`
	Food      string `gorm:"size:255;not null"`
	Quantity  int    `gorm:"not null"`
	Amount    int64  `gorm:"not null"`
}

func (orderLineRow) TableName() string { return "order_lines" }

// Open connects to postgres and migrates the order log schema.
func Open(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}
	if err := db.AutoMigrate(&orderRow{}, &orderLineRow{}); err != nil {
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}
	return db, nil
}

// OrderRepository is the durable order log. Orders are append-only; the only
// update surface is the externally triggered status confirmation.
type OrderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

func (r *OrderRepository) Insert(ctx context.Context, order *domain.Order) error {
	if order == nil || order.ID == "" {
		return fmt.Errorf("order repository: id is required")
	}
	row := toRow(order)
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.ErrConflict
		}
		return fmt.Errorf("%w: %w", domain.ErrRepositoryFailure, err)
	}
	return nil
}

func (r *OrderRepository) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	var row orderRow
	err := r.db.WithContext(ctx).Preload("Lines").First(&row, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrRepositoryFailure, err)
	}
	return fromRow(row), nil
}

func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, status domain.Status) error {
	res := r.db.WithContext(ctx).Model(&orderRow{}).Where("id = ?", id).Update("status", string(status))
	if res.Error != nil {
		return fmt.Errorf("%w: %w", domain.ErrRepositoryFailure, res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *OrderRepository) List(ctx context.Context) ([]*domain.Order, error) {
	var rows []orderRow
	err := r.db.WithContext(ctx).Preload("Lines").Order("time DESC").Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrRepositoryFailure, err)
	}
	out := make([]*domain.Order, 0, len(rows))
	for _, row := range rows {
		out = append(out, fromRow(row))
	}
	return out, nil
}

func toRow(order *domain.Order) orderRow {
	lines := make([]orderLineRow, 0, len(order.Lines))
	for _, l := range order.Lines {
		lines = append(lines, orderLineRow{
			OrderID:   order.ID,
			CounterID: l.CounterID,
			Food:      l.Food,
			Quantity:  l.Quantity,
			Amount:    l.Amount,
		})
	}
	return orderRow{
		ID:            order.ID,
		Cashier:       order.Cashier,
		PaymentMethod: order.PaymentMethod,
		TotalAmount:   order.TotalAmount,
		Status:        string(order.Status),
		Time:          order.Time,
		Lines:         lines,
	}
}

func fromRow(row orderRow) *domain.Order {
	lines := make([]domain.Line, 0, len(row.Lines))
	for _, l := range row.Lines {
		lines = append(lines, domain.Line{
			CounterID: l.CounterID,
			Food:      l.Food,
			Quantity:  l.Quantity,
			Amount:    l.Amount,
		})
	}
	return &domain.Order{
		ID:            row.ID,
		Cashier:       row.Cashier,
		PaymentMethod: row.PaymentMethod,
		Lines:         lines,
		TotalAmount:   row.TotalAmount,
		Status:        domain.Status(row.Status),
		Time:          row.Time,
	}
}
