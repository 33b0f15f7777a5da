package models

import (
	"github.com/shopspring/decimal"
)

// ProductModel is the persistence model of the product resource
type ProductModel struct {
	ShopModel
	Name         string              `gorm:"type:varchar(255);not null"`
	Description  *string             `gorm:"type:text"`
	Manufacturer *string             `gorm:"type:varchar(255)"`
	EAN          *string             `gorm:"column:ean;type:varchar(14)"`
	Active       *bool               `gorm:"default:true"`
	Stock        *int64              `gorm:"default:0"`
	Price        decimal.Decimal     `gorm:"type:decimal(18,4);not null;default:0"`
	Prices       []ProductPriceModel `gorm:"foreignKey:ProductUUID;references:UUID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for GORM
func (ProductModel) TableName() string {
	return "products"
}

// ProductPriceModel is the persistence model of the product_price resource
type ProductPriceModel struct {
	ShopModel
	ProductUUID   string          `gorm:"column:product_uuid;type:varchar(64);not null;index;uniqueIndex:uq_product_prices_tier,priority:1"`
	CustomerGroup string          `gorm:"type:varchar(64);not null;default:'';uniqueIndex:uq_product_prices_tier,priority:2"`
	QuantityStart int64           `gorm:"not null;default:1;uniqueIndex:uq_product_prices_tier,priority:3"`
	Price         decimal.Decimal `gorm:"type:decimal(18,4);not null"`
}

// TableName returns the table name for GORM
func (ProductPriceModel) TableName() string {
	return "product_prices"
}

// All returns every model, in dependency order, for AutoMigrate
func All() []any {
	return []any{
		&ProductModel{},
		&ProductPriceModel{},
	}
}
