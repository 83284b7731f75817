package models

import "time"

// ProductPageCache marks one upstream items page of a brand as mirrored.
type ProductPageCache struct {
	BrandID    int64     `gorm:"primaryKey;autoIncrement:false" json:"brand_id"`
	APIPage    int       `gorm:"primaryKey;autoIncrement:false" json:"api_page"`
	TotalPages int       `json:"total_pages"`
	CachedAt   time.Time `gorm:"index" json:"cached_at"`
}

// PricePageCache marks one upstream pricing page of a brand as mirrored.
type PricePageCache struct {
	BrandID    int64     `gorm:"primaryKey;autoIncrement:false" json:"brand_id"`
	APIPage    int       `gorm:"primaryKey;autoIncrement:false" json:"api_page"`
	TotalPages int       `json:"total_pages"`
	CachedAt   time.Time `gorm:"index" json:"cached_at"`
}

// InventoryCache marks the inventory of a whole brand as mirrored.
type InventoryCache struct {
	BrandID    int64     `gorm:"primaryKey;autoIncrement:false" json:"brand_id"`
	TotalPages int       `json:"total_pages"`
	ItemCount  int       `json:"item_count"`
	CachedAt   time.Time `gorm:"index" json:"cached_at"`
}

// SyncControl is the last-sync ledger keyed by logical entity name.
type SyncControl struct {
	Entity   string    `gorm:"primaryKey;size:64" json:"entity"`
	LastSync time.Time `json:"last_sync"`
}

// Ledger entity names.
const (
	SyncEntityBrands         = "brands"
	SyncEntityProductsFull   = "global_products_full"
	SyncEntityProductsUpdate = "global_products_updates"
)
