package sales

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidQuantity indicates a sell quantity that is not positive.
	ErrInvalidQuantity = errors.New("sales: quantity must be positive")
	// ErrInsufficientStock indicates the requested quantity exceeds stock.
	ErrInsufficientStock = errors.New("sales: insufficient stock")
	// ErrSaleRecording indicates the sale header or line could not be stored.
	ErrSaleRecording = errors.New("sales: recording failed")
	// ErrConflict indicates a concurrent write aborted the transaction.
	ErrConflict = errors.New("sales: concurrent update")
)

// InsufficientStockError carries the product name and available stock.
type InsufficientStockError struct {
	Product   string
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("Not enough stock for %s. Available: %d", e.Product, e.Available)
}

// Is makes errors.Is(err, ErrInsufficientStock) match.
func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

// Sale is a committed sale header with its lines.
type Sale struct {
	ID       int64
	UserID   int64
	Username string
	Total    decimal.Decimal
	DateTime time.Time
	Items    []SaleItem
}

// SaleItem is one line of a sale. Price is the unit price at sale time.
type SaleItem struct {
	ID          int64
	SaleID      int64
	ProductID   int64
	ProductName string
	Quantity    int
	Price       decimal.Decimal
}

// LineTotal returns price times quantity.
func (i SaleItem) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// LockedProduct is the product snapshot read under a row lock.
type LockedProduct struct {
	ID            int64
	Name          string
	Price         decimal.Decimal
	StockQuantity int
}

// SellInput describes one sell request.
type SellInput struct {
	ProductID      int64
	Quantity       int
	ActorID        int64
	IdempotencyKey string
}

// Receipt summarises a committed sale.
type Receipt struct {
	SaleID         int64
	ProductID      int64
	ProductName    string
	Quantity       int
	UnitPrice      decimal.Decimal
	Total          decimal.Decimal
	RemainingStock int
	SoldAt         time.Time
}

// LowStockAlert is emitted when a sale leaves stock at or below the threshold.
type LowStockAlert struct {
	ProductID int64  `json:"product_id"`
	Name      string `json:"name"`
	Stock     int    `json:"stock"`
	Threshold int    `json:"threshold"`
}
