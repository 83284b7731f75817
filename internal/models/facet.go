package models

// BrandCategory is a distinct category observed for a brand.
type BrandCategory struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	BrandID  int64  `gorm:"uniqueIndex:idx_brand_category,priority:1" json:"brand_id"`
	Category string `gorm:"uniqueIndex:idx_brand_category,priority:2;size:191" json:"category"`
	LabelEN  string `json:"label_en"`
	LabelES  string `json:"label_es"`
}

// BrandSubcategory is a distinct subcategory observed for a brand.
type BrandSubcategory struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	BrandID     int64  `gorm:"uniqueIndex:idx_brand_subcategory,priority:1" json:"brand_id"`
	Subcategory string `gorm:"uniqueIndex:idx_brand_subcategory,priority:2;size:191" json:"subcategory"`
	LabelEN     string `json:"label_en"`
	LabelES     string `json:"label_es"`
}

// BrandProductName is a distinct product name observed for a brand.
type BrandProductName struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	BrandID     int64  `gorm:"uniqueIndex:idx_brand_product_name,priority:1" json:"brand_id"`
	ProductName string `gorm:"uniqueIndex:idx_brand_product_name,priority:2;size:191" json:"product_name"`
}
