package models

import (
	"time"

	"gorm.io/datatypes"
)

// BrandInventory is the stock snapshot of one item within a brand.
type BrandInventory struct {
	BrandID           int64                              `gorm:"primaryKey;autoIncrement:false" json:"brand_id"`
	ItemID            string                             `gorm:"primaryKey;size:64" json:"item_id"`
	TotalStock        int                                `json:"total_stock"`
	Inventory         datatypes.JSONType[map[string]int] `json:"inventory"`
	ManufacturerStock *int                               `json:"manufacturer_stock,omitempty"`
	ManufacturerESD   *string                            `json:"manufacturer_esd,omitempty"`
	UpdatedAt         time.Time                          `json:"updated_at"`
}
