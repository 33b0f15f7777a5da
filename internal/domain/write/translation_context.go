package write

// DefaultShopUUID identifies the storefront used when a caller names none
const DefaultShopUUID = "00000000-0000-0000-0000-000000000001"

// TranslationContext describes the storefront a call is made for
type TranslationContext struct {
	ShopUUID      string
	FallbackUUID  string
	IsDefaultShop bool
}

// NewTranslationContext creates a context for the given shop. An empty shop
// falls back to the default shop.
func NewTranslationContext(shopUUID string) TranslationContext {
	if shopUUID == "" {
		return DefaultTranslationContext()
	}
	return TranslationContext{
		ShopUUID:      shopUUID,
		FallbackUUID:  DefaultShopUUID,
		IsDefaultShop: shopUUID == DefaultShopUUID,
	}
}

// DefaultTranslationContext returns the context of the default shop
func DefaultTranslationContext() TranslationContext {
	return TranslationContext{
		ShopUUID:      DefaultShopUUID,
		IsDefaultShop: true,
	}
}
