package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// UseCase is the intended purpose of a build
type UseCase string

const (
	UseCaseGaming      UseCase = "gaming"
	UseCaseWorkstation UseCase = "workstation"
	UseCaseOffice      UseCase = "office"
	UseCaseStreaming   UseCase = "streaming"
	UseCaseBudget      UseCase = "budget"
	UseCaseCustom      UseCase = "custom"
)

// Valid reports whether u is a known use case
func (u UseCase) Valid() bool {
	switch u {
	case UseCaseGaming, UseCaseWorkstation, UseCaseOffice, UseCaseStreaming, UseCaseBudget, UseCaseCustom:
		return true
	}
	return false
}

// BuildComponents maps a slot to the id of the component selected for it
type BuildComponents map[Category]string

// Value implements driver.Valuer
func (b BuildComponents) Value() (driver.Value, error) {
	if b == nil {
		return "{}", nil
	}
	raw, err := json.Marshal(map[Category]string(b))
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

// Scan implements sql.Scanner
func (b *BuildComponents) Scan(src any) error {
	return scanJSON(src, b)
}

// Validate rejects unknown slots and empty component ids
func (b BuildComponents) Validate() error {
	for slot, id := range b {
		if !slot.Valid() {
			return fmt.Errorf("unknown slot %q", slot)
		}
		if id == "" {
			return fmt.Errorf("slot %s: component id is empty", slot)
		}
	}
	return nil
}

// Build is a named selection of one component per slot
type Build struct {
	ID               string          `json:"id" gorm:"primaryKey;size:64"`
	Name             string          `json:"name" gorm:"size:255;not null"`
	Description      string          `json:"description" gorm:"type:text"`
	UseCase          UseCase         `json:"category" gorm:"size:32"`
	Components       BuildComponents `json:"components" gorm:"type:text"`
	TotalPrice       decimal.Decimal `json:"totalPrice" gorm:"type:decimal(10,2)"`
	PerformanceScore int             `json:"performanceScore"`
	OwnerID          string          `json:"userId" gorm:"size:64;index"`
	IsPublic         bool            `json:"isPublic" gorm:"default:false"`
	CreatedAt        time.Time       `json:"createdAt"`
	UpdatedAt        time.Time       `json:"updatedAt"`
}
