package models

import (
	"time"
)

// ShopModel provides the persistence fields shared by every shop-scoped table
type ShopModel struct {
	UUID      string    `gorm:"column:uuid;type:varchar(64);primaryKey"`
	ShopUUID  string    `gorm:"column:shop_uuid;type:varchar(64);not null;index"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}
