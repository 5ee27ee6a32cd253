package reports

import (
	"time"

	"github.com/shopspring/decimal"
)

// Window aggregates sales over a time range.
type Window struct {
	Label   string          `json:"label"`
	Sales   int64           `json:"sales"`
	Units   int64           `json:"units"`
	Revenue decimal.Decimal `json:"revenue"`
}

// TopProduct ranks a product by units sold.
type TopProduct struct {
	ProductID int64           `json:"product_id"`
	Name      string          `json:"name"`
	Units     int64           `json:"units"`
	Revenue   decimal.Decimal `json:"revenue"`
}

// LowStockItem is a product at or below the alert threshold.
type LowStockItem struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	Category      string `json:"category"`
	StockQuantity int    `json:"stock_quantity"`
}

// SaleLine is one sold line joined with its header.
type SaleLine struct {
	SaleID      int64           `json:"sale_id"`
	DateTime    time.Time       `json:"date_time"`
	Username    string          `json:"username"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Total       decimal.Decimal `json:"total"`
}

// Dashboard is the data behind the reports page.
type Dashboard struct {
	GeneratedAt       time.Time      `json:"generated_at"`
	Windows           []Window       `json:"windows"`
	TopProducts       []TopProduct   `json:"top_products"`
	LowStockThreshold int            `json:"low_stock_threshold"`
	LowStock          []LowStockItem `json:"low_stock"`
	RecentSales       []SaleLine     `json:"recent_sales"`
}
