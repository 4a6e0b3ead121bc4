package medusatest

import (
	"time"

	"github.com/utafrali/jewelrycommerce/services/storefront/internal/domain"
)

func seedRegions() []domain.Region {
	return []domain.Region{
		{ID: RegionIndonesia, Name: "Indonesia", CurrencyCode: "idr", Countries: []domain.Country{{ISO2: "id", Name: "Indonesia"}}},
		{ID: RegionUS, Name: "United States", CurrencyCode: "usd", Countries: []domain.Country{{ISO2: "us", Name: "United States"}}},
	}
}

func seedCategories() []domain.Category {
	return []domain.Category{
		{ID: "pcat_rings", Name: "Rings", Handle: "rings"},
		{ID: "pcat_necklaces", Name: "Necklaces", Handle: "necklaces"},
		{ID: "pcat_bracelets", Name: "Bracelets", Handle: "bracelets"},
	}
}

func seedCollections() []domain.Collection {
	return []domain.Collection{
		{ID: "pcol_bridal", Title: "Bridal", Handle: "bridal"},
	}
}

func sizedVariants(productID, prefix string, sizes []string, idr, usd int64) []domain.Variant {
	out := make([]domain.Variant, 0, len(sizes))
	for _, size := range sizes {
		out = append(out, domain.Variant{
			ID:                "variant_" + prefix + "_" + size,
			Title:             size,
			SKU:               prefix + "-" + size,
			ProductID:         productID,
			InventoryQuantity: 10,
			Prices: []domain.Price{
				{ID: "price_" + prefix + "_" + size + "_idr", CurrencyCode: "idr", Amount: idr},
				{ID: "price_" + prefix + "_" + size + "_usd", CurrencyCode: "usd", Amount: usd},
			},
			Options: []domain.OptionValue{{Value: size}},
		})
	}
	return out
}

func sizeOption(sizes []string) []domain.ProductOption {
	values := make([]domain.OptionValue, 0, len(sizes))
	for _, s := range sizes {
		values = append(values, domain.OptionValue{Value: s})
	}
	return []domain.ProductOption{{ID: "opt_size", Title: "Size", Values: values}}
}

func seedProducts() []domain.Product {
	created := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	ringSizes := []string{"5", "6", "7", "8", "9"}
	braceletSizes := []string{"S", "M", "L"}
	cats := seedCategories()

	return []domain.Product{
		{
			ID:          ProductRing,
			Title:       "Rose Gold Diamond Ring",
			Handle:      "rose-gold-diamond-ring",
			Description: "Handcrafted rose gold ring featuring a brilliant-cut diamond.",
			Thumbnail:   "/assets/rose-gold-diamond-ring.png",
			Variants:    sizedVariants(ProductRing, "ring", ringSizes, 250000000, 16000),
			Options:     sizeOption(ringSizes),
			Categories:  []domain.Category{cats[0]},
			Collection:  &seedCollections()[0],
			CreatedAt:   created,
			UpdatedAt:   created,
		},
		{
			ID:          ProductNecklace,
			Title:       "Gold Pendant Necklace",
			Handle:      "gold-pendant-necklace",
			Description: "Delicate gold chain necklace with an elegant pendant.",
			Thumbnail:   "/assets/gold-pendant-necklace.png",
			Variants: []domain.Variant{{
				ID:                "variant_necklace",
				Title:             "Default",
				SKU:               "necklace",
				ProductID:         ProductNecklace,
				InventoryQuantity: 5,
				Prices: []domain.Price{
					{ID: "price_necklace_idr", CurrencyCode: "idr", Amount: 180000000},
					{ID: "price_necklace_usd", CurrencyCode: "usd", Amount: 11500},
				},
			}},
			Categories: []domain.Category{cats[1]},
			CreatedAt:  created,
			UpdatedAt:  created,
		},
		{
			ID:          ProductBracelet,
			Title:       "Silver Charm Bracelet",
			Handle:      "silver-charm-bracelet",
			Description: "Sterling silver bracelet with customizable charms.",
			Thumbnail:   "/assets/silver-charm-bracelet.png",
			Variants:    sizedVariants(ProductBracelet, "bracelet", braceletSizes, 95000000, 6000),
			Options:     sizeOption(braceletSizes),
			Categories:  []domain.Category{cats[2]},
			CreatedAt:   created,
			UpdatedAt:   created,
		},
	}
}
