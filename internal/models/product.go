package models

import (
	"time"

	"gorm.io/datatypes"
)

// Dimension describes one shipping box of a product.
type Dimension struct {
	BoxNumber int     `json:"box_number"`
	Length    float64 `json:"length"`
	Width     float64 `json:"width"`
	Height    float64 `json:"height"`
	Weight    float64 `json:"weight"`
}

// WarehouseAvailability tells whether an order can be placed against a location.
type WarehouseAvailability struct {
	LocationID    string `json:"location_id"`
	CanPlaceOrder bool   `json:"can_place_order"`
}

// Product mirrors a vendor item. APIPage records the upstream page the row last came from.
type Product struct {
	ID                    string                                     `gorm:"primaryKey;size:64" json:"id"`
	BrandID               int64                                      `gorm:"index:idx_products_brand_page,priority:1" json:"brand_id"`
	BrandName             string                                     `json:"brand_name"`
	ProductName           string                                     `gorm:"index" json:"product_name"`
	PartNumber            string                                     `json:"part_number"`
	MfrPartNumber         string                                     `gorm:"index" json:"mfr_part_number"`
	PartDescription       string                                     `json:"part_description"`
	Category              string                                     `gorm:"index" json:"category"`
	Subcategory           string                                     `gorm:"index" json:"subcategory"`
	PriceGroupID          int                                        `json:"price_group_id"`
	PriceGroup            string                                     `json:"price_group"`
	Active                bool                                       `json:"active"`
	RegularStock          bool                                       `json:"regular_stock"`
	ClearanceItem         bool                                       `json:"clearance_item"`
	Dimensions            datatypes.JSONSlice[Dimension]             `json:"dimensions"`
	WarehouseAvailability datatypes.JSONSlice[WarehouseAvailability] `json:"warehouse_availability"`
	Thumbnail             string                                     `json:"thumbnail"`
	APIPage               int                                        `gorm:"index:idx_products_brand_page,priority:2" json:"api_page"`
	LastAPIUpdate         *time.Time                                 `json:"last_api_update,omitempty"`
	CreatedAt             time.Time                                  `json:"created_at"`
	UpdatedAt             time.Time                                  `json:"updated_at"`
}
