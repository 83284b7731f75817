package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// PriceListEntry is one named price from the vendor pricelist.
type PriceListEntry struct {
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

// ProductPrice holds pricing for exactly one product.
type ProductPrice struct {
	ProductID    string                              `gorm:"primaryKey;size:64" json:"product_id"`
	BrandID      int64                               `gorm:"index:idx_prices_brand_page,priority:1" json:"brand_id"`
	APIPage      int                                 `gorm:"index:idx_prices_brand_page,priority:2" json:"api_page"`
	PurchaseCost decimal.Decimal                     `gorm:"type:numeric(12,2)" json:"purchase_cost"`
	HasMap       bool                                `json:"has_map"`
	CanPurchase  bool                                `json:"can_purchase"`
	Pricelists   datatypes.JSONSlice[PriceListEntry] `json:"pricelists"`
	MapPrice     decimal.NullDecimal                 `gorm:"type:numeric(12,2)" json:"map_price"`
	RetailPrice  decimal.NullDecimal                 `gorm:"type:numeric(12,2)" json:"retail_price"`
	PricedAt     time.Time                           `gorm:"index" json:"priced_at"`
	UpdatedAt    time.Time                           `json:"updated_at"`
}
