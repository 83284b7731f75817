package upstream

import "github.com/shopspring/decimal"

// Meta is the pagination metadata returned with every paginated list.
type Meta struct {
	TotalPages int `json:"total_pages"`
}

// BrandResource is a brand as returned by the brands endpoints.
type BrandResource struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	Attributes BrandAttributes `json:"attributes"`
}

// BrandAttributes carries the brand body.
type BrandAttributes struct {
	Name        string           `json:"name"`
	Dropship    bool             `json:"dropship"`
	Logo        string           `json:"logo"`
	PriceGroups []PriceGroupItem `json:"pricegroups"`
	AAIA        []string         `json:"AAIA"`
}

// PriceGroupItem is a price group nested in a brand.
type PriceGroupItem struct {
	ID                   int                   `json:"pricegroup_id"`
	Name                 string                `json:"pricegroup_name"`
	Prefix               string                `json:"pricegroup_prefix"`
	PurchaseRestrictions []PurchaseRestriction `json:"purchase_restrictions"`
	LocationRules        []LocationRule        `json:"location_rules"`
}

// PurchaseRestriction limits which programs may purchase.
type PurchaseRestriction struct {
	Program   string `json:"program"`
	Clearance string `json:"clearance"`
}

// LocationRule is a location-based fee.
type LocationRule struct {
	Location string  `json:"location"`
	Fee      float64 `json:"fee"`
}

// ItemResource is a catalog item.
type ItemResource struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	Attributes ItemAttributes `json:"attributes"`
}

// ItemAttributes carries the item body.
type ItemAttributes struct {
	ProductName           string                  `json:"product_name"`
	PartNumber            string                  `json:"part_number"`
	MfrPartNumber         string                  `json:"mfr_part_number"`
	PartDescription       string                  `json:"part_description"`
	Category              string                  `json:"category"`
	Subcategory           string                  `json:"subcategory"`
	Dimensions            []ItemDimension         `json:"dimensions"`
	BrandID               int64                   `json:"brand_id"`
	Brand                 string                  `json:"brand"`
	PriceGroupID          int                     `json:"price_group_id"`
	PriceGroup            string                  `json:"price_group"`
	Active                bool                    `json:"active"`
	RegularStock          bool                    `json:"regular_stock"`
	ClearanceItem         bool                    `json:"clearance_item"`
	Thumbnail             string                  `json:"thumbnail"`
	WarehouseAvailability []WarehouseAvailability `json:"warehouse_availability"`
}

// ItemDimension is one shipping box.
type ItemDimension struct {
	BoxNumber int     `json:"box_number"`
	Length    float64 `json:"length"`
	Width     float64 `json:"width"`
	Height    float64 `json:"height"`
	Weight    float64 `json:"weight"`
}

// WarehouseAvailability reports orderability per location.
type WarehouseAvailability struct {
	LocationID    string `json:"location_id"`
	CanPlaceOrder bool   `json:"can_place_order"`
}

// ItemsPage is one page of the items endpoints.
type ItemsPage struct {
	Data []ItemResource `json:"data"`
	Meta Meta           `json:"meta"`
}

// PricingResource is the pricing of one item.
type PricingResource struct {
	ID         string            `json:"id"`
	Type       string            `json:"type"`
	Attributes PricingAttributes `json:"attributes"`
}

// PricingAttributes carries purchase cost and pricelists.
type PricingAttributes struct {
	PurchaseCost decimal.Decimal `json:"purchase_cost"`
	HasMap       bool            `json:"has_map"`
	CanPurchase  bool            `json:"can_purchase"`
	Pricelists   []PriceList     `json:"pricelists"`
}

// PriceList is a named price.
type PriceList struct {
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

// PricingPage is one page of brand pricing.
type PricingPage struct {
	Data []PricingResource `json:"data"`
	Meta Meta              `json:"meta"`
}

// InventoryResource is the stock of one item.
type InventoryResource struct {
	ID         string              `json:"id"`
	Type       string              `json:"type"`
	Attributes InventoryAttributes `json:"attributes"`
}

// InventoryAttributes carries per-location stock.
type InventoryAttributes struct {
	Inventory    map[string]int     `json:"inventory"`
	Manufacturer *ManufacturerStock `json:"manufacturer,omitempty"`
}

// ManufacturerStock is backorder stock held by the manufacturer.
type ManufacturerStock struct {
	Stock int    `json:"stock"`
	ESD   string `json:"esd"`
}

// InventoryPage is one page of brand inventory.
type InventoryPage struct {
	Data []InventoryResource `json:"data"`
	Meta Meta                `json:"meta"`
}
