// Package tenant scopes GORM statements to a single shop.
//
// Every shop-scoped table carries a shop_uuid column. Reads and updates of
// such tables go through ShopScope so a row of another shop is never seen:
//
//	db.Table("products").Scopes(tenant.ShopScope(shopUUID)).Where("uuid = ?", id).Take(&row)
package tenant

import (
	"errors"

	"gorm.io/gorm"
)

// ShopColumn is the column holding the owning shop of a row
const ShopColumn = "shop_uuid"

// ErrShopRequired is returned when a scoped statement is built without a shop
var ErrShopRequired = errors.New("shop uuid is required")

// ShopScope applies shop filtering to GORM statements. An empty shop adds
// ErrShopRequired to the statement instead of leaving it unscoped.
func ShopScope(shopUUID string) func(db *gorm.DB) *gorm.DB {
	return ColumnScope(ShopColumn, shopUUID)
}

// ColumnScope applies shop filtering on a custom column
func ColumnScope(column, shopUUID string) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if shopUUID == "" {
			_ = db.AddError(ErrShopRequired)
			return db
		}
		return db.Where(column+" = ?", shopUUID)
	}
}
