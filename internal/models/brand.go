package models

import (
	"time"

	"gorm.io/datatypes"
)

// PurchaseRestriction limits which programs may buy from a price group.
type PurchaseRestriction struct {
	Program   string `json:"program"`
	Clearance string `json:"clearance,omitempty"`
}

// LocationRule is a location-based fee attached to a price group.
type LocationRule struct {
	Location string  `json:"location"`
	Fee      float64 `json:"fee"`
}

// PriceGroup is a vendor price group nested under a brand.
type PriceGroup struct {
	ID                   int                   `json:"id"`
	Name                 string                `json:"name"`
	Prefix               string                `json:"prefix"`
	PurchaseRestrictions []PurchaseRestriction `json:"purchase_restrictions,omitempty"`
	LocationRules        []LocationRule        `json:"location_rules,omitempty"`
}

// Brand mirrors a vendor brand. Detail attributes are fetched lazily once.
type Brand struct {
	ID               int64                           `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Name             string                          `gorm:"index" json:"name"`
	Slug             string                          `gorm:"index;not null;default:''" json:"slug"`
	Dropship         bool                            `json:"dropship"`
	LogoURL          string                          `json:"logo_url"`
	PriceGroups      datatypes.JSONSlice[PriceGroup] `json:"price_groups"`
	RegulatoryCodes  datatypes.JSONSlice[string]     `json:"regulatory_codes"`
	DetailsFetched   bool                            `gorm:"not null;default:false" json:"details_fetched"`
	DetailsFetchedAt *time.Time                      `json:"details_fetched_at"`
	CreatedAt        time.Time                       `json:"created_at"`
	UpdatedAt        time.Time                       `json:"updated_at"`
}
