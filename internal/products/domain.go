package products

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-pos/internal/shared"
)

// Product is a catalog entry with its sellable stock.
type Product struct {
	ID            int64
	Name          string
	Price         decimal.Decimal
	Quantity      int
	Category      string
	StockQuantity int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Form returns the product as raw form values for pre-filling edit pages.
func (p Product) Form() ProductForm {
	return ProductForm{
		Name:          p.Name,
		Price:         p.Price.StringFixed(2),
		Quantity:      strconv.Itoa(p.Quantity),
		Category:      p.Category,
		StockQuantity: strconv.Itoa(p.StockQuantity),
	}
}

// ProductForm holds submitted product fields before validation.
type ProductForm struct {
	Name          string
	Price         string
	Quantity      string
	Category      string
	StockQuantity string
}

// ProductInput is a validated product payload.
type ProductInput struct {
	Name          string
	Price         decimal.Decimal
	Quantity      int
	Category      string
	StockQuantity int
}

// maxPrice is the first value NUMERIC(12,2) cannot hold.
var maxPrice = decimal.New(1, 10)

// Parse validates the form. All errors wrap shared.ErrValidation.
func (f ProductForm) Parse() (ProductInput, error) {
	f = ProductForm{
		Name:          strings.TrimSpace(f.Name),
		Price:         strings.TrimSpace(f.Price),
		Quantity:      strings.TrimSpace(f.Quantity),
		Category:      strings.TrimSpace(f.Category),
		StockQuantity: strings.TrimSpace(f.StockQuantity),
	}
	if f.Name == "" || f.Price == "" || f.Quantity == "" || f.Category == "" || f.StockQuantity == "" {
		return ProductInput{}, shared.Invalid("All fields are required.")
	}
	price, err := decimal.NewFromString(f.Price)
	if err != nil || price.IsNegative() {
		return ProductInput{}, shared.Invalid("Price must be a valid non-negative number.")
	}
	if !price.Equal(price.Round(2)) {
		return ProductInput{}, shared.Invalid("Price cannot have more than two decimal places.")
	}
	if price.GreaterThanOrEqual(maxPrice) {
		return ProductInput{}, shared.Invalid("Price is too large.")
	}
	quantity, err := parseInt32(f.Quantity)
	if err != nil {
		return ProductInput{}, shared.Invalid("Quantity must be a whole number.")
	}
	stock, err := parseInt32(f.StockQuantity)
	if err != nil {
		return ProductInput{}, shared.Invalid("Stock quantity must be a whole number.")
	}
	if stock < 0 {
		return ProductInput{}, shared.Invalid("Stock quantity cannot be negative.")
	}
	return ProductInput{
		Name:          f.Name,
		Price:         price,
		Quantity:      quantity,
		Category:      f.Category,
		StockQuantity: stock,
	}, nil
}

// parseInt32 accepts integers that fit an INTEGER column.
func parseInt32(s string) (int, error) {
	n, err := strconv.ParseInt(s, 10, 32)
	return int(n), err
}
