package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// prices travel as JSON numbers, matching the persisted cart format
	decimal.MarshalJSONWithoutQuotes = true
}

// Category is a component category; every category is also a build slot
type Category string

const (
	CategoryCPU         Category = "cpu"
	CategoryGPU         Category = "gpu"
	CategoryRAM         Category = "ram"
	CategoryMotherboard Category = "motherboard"
	CategoryStorage     Category = "storage"
	CategoryPSU         Category = "psu"
	CategoryCase        Category = "case"
	CategoryCooler      Category = "cooler"
)

// Categories lists every category in build-slot order
var Categories = []Category{
	CategoryCPU,
	CategoryGPU,
	CategoryRAM,
	CategoryMotherboard,
	CategoryStorage,
	CategoryPSU,
	CategoryCase,
	CategoryCooler,
}

var categoryLabels = map[Category]string{
	CategoryCPU:         "Processors",
	CategoryGPU:         "Graphics Cards",
	CategoryRAM:         "Memory",
	CategoryMotherboard: "Motherboards",
	CategoryStorage:     "Storage",
	CategoryPSU:         "Power Supplies",
	CategoryCase:        "Cases",
	CategoryCooler:      "CPU Coolers",
}

// Valid reports whether c is one of the known categories
func (c Category) Valid() bool {
	_, ok := categoryLabels[c]
	return ok
}

// Label returns the human-readable category name
func (c Category) Label() string {
	return categoryLabels[c]
}

// StockStatus is derived from the stock count
type StockStatus string

const (
	StockOut StockStatus = "out_of_stock"
	StockLow StockStatus = "low_stock"
	StockIn  StockStatus = "in_stock"
)

// LowStockThreshold is the highest stock count still reported as low stock
const LowStockThreshold = 5

// StockStatusFor maps a stock count to its display status
func StockStatusFor(stock int) StockStatus {
	switch {
	case stock <= 0:
		return StockOut
	case stock <= LowStockThreshold:
		return StockLow
	default:
		return StockIn
	}
}

// Component represents a purchasable PC part in the catalog
type Component struct {
	ID             string          `json:"id" gorm:"primaryKey;size:64"`
	Name           string          `json:"name" gorm:"size:255;not null"`
	Brand          string          `json:"brand" gorm:"size:100"`
	Category       Category        `json:"category" gorm:"size:32;index;not null"`
	Price          decimal.Decimal `json:"price" gorm:"type:decimal(10,2);not null"`
	Image          string          `json:"image,omitempty" gorm:"size:512"`
	Specifications Specifications  `json:"specifications" gorm:"type:text"`
	Stock          int             `json:"stock" gorm:"default:0"`
	Rating         float64         `json:"rating" gorm:"default:0"`
	KeyFeatures    StringList      `json:"keyFeatures" gorm:"type:text"`
	IsActive       bool            `json:"isActive" gorm:"index;not null"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

// StockStatus returns the display status for the component's stock
func (c *Component) StockStatus() StockStatus {
	return StockStatusFor(c.Stock)
}

// Validate checks the component at the catalog boundary, including its typed specifications
func (c *Component) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("component id is required")
	}
	if c.Name == "" {
		return fmt.Errorf("component %s: name is required", c.ID)
	}
	if !c.Category.Valid() {
		return fmt.Errorf("component %s: unknown category %q", c.ID, c.Category)
	}
	if c.Price.IsNegative() {
		return fmt.Errorf("component %s: price must not be negative", c.ID)
	}
	if c.Stock < 0 {
		return fmt.Errorf("component %s: stock must not be negative", c.ID)
	}
	if c.Rating < 0 || c.Rating > 5 {
		return fmt.Errorf("component %s: rating %.1f outside 0-5", c.ID, c.Rating)
	}
	if _, err := DecodeSpecs(c.Category, c.Specifications); err != nil {
		return fmt.Errorf("component %s: %w", c.ID, err)
	}
	return nil
}

// CategoryInfo describes a category together with the number of components in it
type CategoryInfo struct {
	ID    Category `json:"id"`
	Name  string   `json:"name"`
	Count int      `json:"count"`
}

// ComponentResponse is the API representation of a component
type ComponentResponse struct {
	Component
	StockStatus StockStatus `json:"stockStatus"`
}

// NewComponentResponse wraps a component with its derived fields
func NewComponentResponse(c Component) ComponentResponse {
	return ComponentResponse{Component: c, StockStatus: c.StockStatus()}
}

// StringList is an ordered list of strings stored as a JSON column
type StringList []string

// Value implements driver.Valuer
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner
func (l *StringList) Scan(src any) error {
	return scanJSON(src, l)
}

func scanJSON(src any, dst any) error {
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		if len(v) == 0 {
			return nil
		}
		return json.Unmarshal(v, dst)
	case string:
		if v == "" {
			return nil
		}
		return json.Unmarshal([]byte(v), dst)
	default:
		return fmt.Errorf("unsupported column type %T", src)
	}
}
