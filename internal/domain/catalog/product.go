package catalog

import (
	"github.com/storefront/backend/internal/domain/write"
)

// Resource names
const (
	ProductResource      = "product"
	ProductPriceResource = "product_price"
)

// ProductPricesField is the list field of a product row holding its price rows
const ProductPricesField = "prices"

// ProductDefinition describes how product rows are stored
func ProductDefinition() *write.ResourceDefinition {
	return &write.ResourceDefinition{
		Name:       ProductResource,
		Table:      "products",
		PrimaryKey: "uuid",
		Fields: []write.FieldDefinition{
			{Name: "uuid", Kind: write.KindString, Rules: "min=1,max=64"},
			{Name: "shop_uuid", Kind: write.KindString, Required: true, Rules: "min=1,max=64"},
			{Name: "name", Kind: write.KindString, Required: true, Rules: "min=1,max=255"},
			{Name: "description", Kind: write.KindString},
			{Name: "manufacturer", Kind: write.KindString, Rules: "max=255"},
			{Name: "ean", Kind: write.KindString, Rules: "omitempty,numeric,max=14"},
			{Name: "active", Kind: write.KindBool},
			{Name: "stock", Kind: write.KindInt, Rules: "gte=0"},
			{Name: "price", Kind: write.KindDecimal, Rules: "gte=0"},
			{Name: "created_at", Kind: write.KindTime, ReadOnly: true},
			{Name: "updated_at", Kind: write.KindTime, ReadOnly: true},
		},
		Children: []write.ChildCollection{
			{Field: ProductPricesField, Resource: ProductPriceResource, ForeignKey: "product_uuid"},
		},
	}
}

// ProductPriceDefinition describes how quantity and customer group prices
// of a product are stored
func ProductPriceDefinition() *write.ResourceDefinition {
	return &write.ResourceDefinition{
		Name:       ProductPriceResource,
		Table:      "product_prices",
		PrimaryKey: "uuid",
		Fields: []write.FieldDefinition{
			{Name: "uuid", Kind: write.KindString, Rules: "min=1,max=64"},
			{Name: "product_uuid", Kind: write.KindString, Required: true, Rules: "min=1,max=64"},
			{Name: "shop_uuid", Kind: write.KindString, Required: true, Rules: "min=1,max=64"},
			{Name: "customer_group", Kind: write.KindString, Rules: "max=64"},
			{Name: "quantity_start", Kind: write.KindInt, Required: true, Rules: "gte=1"},
			{Name: "price", Kind: write.KindDecimal, Required: true, Rules: "gte=0"},
			{Name: "created_at", Kind: write.KindTime, ReadOnly: true},
			{Name: "updated_at", Kind: write.KindTime, ReadOnly: true},
		},
	}
}

// RegisterResources adds the catalog resources to the registry
func RegisterResources(registry *write.ResourceRegistry) error {
	for _, def := range []*write.ResourceDefinition{ProductDefinition(), ProductPriceDefinition()} {
		if err := registry.Register(def); err != nil {
			return err
		}
	}
	return nil
}
