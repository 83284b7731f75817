package services

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/example/partsmirror/internal/models"
	"github.com/example/partsmirror/internal/store"
)

// spanishLabels translates the vendor's English category and subcategory names.
var spanishLabels = map[string]string{
	"air intake":         "Admisión de aire",
	"apparel":            "Ropa",
	"body":               "Carrocería",
	"brakes":             "Frenos",
	"cooling":            "Enfriamiento",
	"drivetrain":         "Tren motriz",
	"electrical":         "Eléctrico",
	"engine":             "Motor",
	"engine components":  "Componentes de motor",
	"exhaust":            "Escape",
	"exterior":           "Exterior",
	"exterior styling":   "Estilo exterior",
	"filters":            "Filtros",
	"forced induction":   "Inducción forzada",
	"fuel delivery":      "Suministro de combustible",
	"gauges":             "Medidores",
	"ignition":           "Encendido",
	"interior":           "Interior",
	"interior styling":   "Estilo interior",
	"kits":               "Kits",
	"lighting":           "Iluminación",
	"oils & oil filters": "Aceites y filtros de aceite",
	"programmers":        "Programadores",
	"safety":             "Seguridad",
	"suspension":         "Suspensión",
	"tools":              "Herramientas",
	"wheels":             "Rines",
	"wheel and tire":     "Rines y llantas",
}

// FacetLabels returns the English and Spanish display labels of a facet value.
// Unknown values fall back to the English title for both.
func FacetLabels(value string) (en, es string) {
	key := strings.ToLower(strings.TrimSpace(value))
	en = cases.Title(language.English).String(key)
	if label, ok := spanishLabels[key]; ok {
		return en, label
	}
	return en, en
}

// DeriveFacets collects the distinct category, subcategory and product-name
// values of products, each under the product's own brand.
func DeriveFacets(products []models.Product) store.Facets {
	type brandValue struct {
		brandID int64
		value   string
	}
	seenCat := map[brandValue]struct{}{}
	seenSub := map[brandValue]struct{}{}
	seenName := map[brandValue]struct{}{}

	var facets store.Facets
	for _, p := range products {
		if p.BrandID == 0 {
			continue
		}
		if v := strings.TrimSpace(p.Category); v != "" {
			key := brandValue{p.BrandID, v}
			if _, ok := seenCat[key]; !ok {
				seenCat[key] = struct{}{}
				en, es := FacetLabels(v)
				facets.Categories = append(facets.Categories, models.BrandCategory{BrandID: p.BrandID, Category: v, LabelEN: en, LabelES: es})
			}
		}
		if v := strings.TrimSpace(p.Subcategory); v != "" {
			key := brandValue{p.BrandID, v}
			if _, ok := seenSub[key]; !ok {
				seenSub[key] = struct{}{}
				en, es := FacetLabels(v)
				facets.Subcategories = append(facets.Subcategories, models.BrandSubcategory{BrandID: p.BrandID, Subcategory: v, LabelEN: en, LabelES: es})
			}
		}
		if v := strings.TrimSpace(p.ProductName); v != "" {
			key := brandValue{p.BrandID, v}
			if _, ok := seenName[key]; !ok {
				seenName[key] = struct{}{}
				facets.ProductNames = append(facets.ProductNames, models.BrandProductName{BrandID: p.BrandID, ProductName: v})
			}
		}
	}
	return facets
}
