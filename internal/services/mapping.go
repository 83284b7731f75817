package services

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"github.com/example/partsmirror/internal/models"
	"github.com/example/partsmirror/internal/upstream"
)

func brandFromResource(res upstream.BrandResource) (models.Brand, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(res.ID), 10, 64)
	if err != nil {
		return models.Brand{}, fmt.Errorf("brand id %q: %w", res.ID, err)
	}

	attrs := res.Attributes
	groups := make([]models.PriceGroup, 0, len(attrs.PriceGroups))
	for _, g := range attrs.PriceGroups {
		group := models.PriceGroup{ID: g.ID, Name: g.Name, Prefix: g.Prefix}
		for _, r := range g.PurchaseRestrictions {
			group.PurchaseRestrictions = append(group.PurchaseRestrictions, models.PurchaseRestriction{Program: r.Program, Clearance: r.Clearance})
		}
		for _, r := range g.LocationRules {
			group.LocationRules = append(group.LocationRules, models.LocationRule{Location: r.Location, Fee: r.Fee})
		}
		groups = append(groups, group)
	}

	codes := attrs.AAIA
	if codes == nil {
		codes = []string{}
	}

	return models.Brand{
		ID:              id,
		Name:            strings.TrimSpace(attrs.Name),
		Dropship:        attrs.Dropship,
		LogoURL:         attrs.Logo,
		PriceGroups:     datatypes.NewJSONSlice(groups),
		RegulatoryCodes: datatypes.NewJSONSlice(codes),
	}, nil
}

func productFromItem(item upstream.ItemResource, apiPage int) models.Product {
	attrs := item.Attributes

	dims := make([]models.Dimension, 0, len(attrs.Dimensions))
	for _, d := range attrs.Dimensions {
		dims = append(dims, models.Dimension{BoxNumber: d.BoxNumber, Length: d.Length, Width: d.Width, Height: d.Height, Weight: d.Weight})
	}
	warehouses := make([]models.WarehouseAvailability, 0, len(attrs.WarehouseAvailability))
	for _, w := range attrs.WarehouseAvailability {
		warehouses = append(warehouses, models.WarehouseAvailability{LocationID: w.LocationID, CanPlaceOrder: w.CanPlaceOrder})
	}

	return models.Product{
		ID:                    item.ID,
		BrandID:               attrs.BrandID,
		BrandName:             attrs.Brand,
		ProductName:           strings.TrimSpace(attrs.ProductName),
		PartNumber:            attrs.PartNumber,
		MfrPartNumber:         attrs.MfrPartNumber,
		PartDescription:       attrs.PartDescription,
		Category:              strings.TrimSpace(attrs.Category),
		Subcategory:           strings.TrimSpace(attrs.Subcategory),
		PriceGroupID:          attrs.PriceGroupID,
		PriceGroup:            attrs.PriceGroup,
		Active:                attrs.Active,
		RegularStock:          attrs.RegularStock,
		ClearanceItem:         attrs.ClearanceItem,
		Dimensions:            datatypes.NewJSONSlice(dims),
		WarehouseAvailability: datatypes.NewJSONSlice(warehouses),
		Thumbnail:             attrs.Thumbnail,
		APIPage:               apiPage,
	}
}

func productsFromItems(items []upstream.ItemResource, apiPage int) []models.Product {
	products := make([]models.Product, 0, len(items))
	for _, item := range items {
		if item.ID == "" {
			continue
		}
		products = append(products, productFromItem(item, apiPage))
	}
	return products
}

func priceFromResource(res upstream.PricingResource, brandID int64, apiPage int, pricedAt time.Time) models.ProductPrice {
	entries := make([]models.PriceListEntry, 0, len(res.Attributes.Pricelists))
	for _, pl := range res.Attributes.Pricelists {
		entries = append(entries, models.PriceListEntry{Name: pl.Name, Price: pl.Price})
	}
	mapPrice, retailPrice := ExtractListPrices(entries)

	return models.ProductPrice{
		ProductID:    res.ID,
		BrandID:      brandID,
		APIPage:      apiPage,
		PurchaseCost: res.Attributes.PurchaseCost,
		HasMap:       res.Attributes.HasMap,
		CanPurchase:  res.Attributes.CanPurchase,
		Pricelists:   datatypes.NewJSONSlice(entries),
		MapPrice:     mapPrice,
		RetailPrice:  retailPrice,
		PricedAt:     pricedAt,
	}
}

// ExtractListPrices picks the MAP and retail prices out of a pricelist by
// case-insensitive name. Absent entries yield invalid NullDecimals.
func ExtractListPrices(entries []models.PriceListEntry) (mapPrice, retailPrice decimal.NullDecimal) {
	for _, entry := range entries {
		switch strings.ToLower(strings.TrimSpace(entry.Name)) {
		case "map":
			if !mapPrice.Valid {
				mapPrice = decimal.NewNullDecimal(entry.Price)
			}
		case "retail":
			if !retailPrice.Valid {
				retailPrice = decimal.NewNullDecimal(entry.Price)
			}
		}
	}
	return mapPrice, retailPrice
}

func inventoryFromResource(res upstream.InventoryResource, brandID int64, now time.Time) models.BrandInventory {
	stock := res.Attributes.Inventory
	if stock == nil {
		stock = map[string]int{}
	}
	row := models.BrandInventory{
		BrandID:    brandID,
		ItemID:     res.ID,
		TotalStock: TotalStock(stock),
		Inventory:  datatypes.NewJSONType(stock),
		UpdatedAt:  now,
	}
	if m := res.Attributes.Manufacturer; m != nil {
		qty := m.Stock
		row.ManufacturerStock = &qty
		if m.ESD != "" {
			esd := m.ESD
			row.ManufacturerESD = &esd
		}
	}
	return row
}
