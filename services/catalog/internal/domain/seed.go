package domain

// SampleProducts returns the eight jewelry pieces the demo catalog starts
// with. IDs, handles and timestamps are assigned when they are stored.
func SampleProducts() []Product {
	ringSizes := []string{"5", "6", "7", "8", "9"}
	braceletSizes := []string{"S", "M", "L"}
	img := func(name string) (string, []string) {
		url := "/assets/generated_images/" + name + ".png"
		return url, []string{url, url}
	}

	p := func(name, description string, price int64, category, image, material string, preOrder, inStock bool, sizes []string) Product {
		url, images := img(image)
		return Product{
			Name:        name,
			Description: description,
			Price:       price,
			Category:    category,
			ImageURL:    url,
			Images:      images,
			Material:    material,
			IsPreOrder:  preOrder,
			InStock:     inStock,
			Sizes:       sizes,
		}
	}

	return []Product{
		p("Rose Gold Diamond Ring",
			"Exquisite handcrafted rose gold ring featuring a brilliant-cut diamond. Perfect for engagements or special occasions. Each piece is carefully crafted by skilled artisans.",
			2500000, CategoryRings, "Rose_gold_diamond_ring_406b3b84", "14K Rose Gold, Diamond", false, true, ringSizes),
		p("Gold Pendant Necklace",
			"Delicate gold chain necklace with an elegant pendant. A timeless piece that complements any outfit. Crafted from premium materials.",
			1800000, CategoryNecklaces, "Gold_pendant_necklace_84aa4494", "18K Yellow Gold", false, true, nil),
		p("Silver Charm Bracelet",
			"Elegant sterling silver bracelet with customizable charm options. A perfect gift for loved ones. Each charm tells a unique story.",
			950000, CategoryBracelets, "Silver_charm_bracelet_db9c5a93", "Sterling Silver", false, true, braceletSizes),
		p("Pearl Stud Earrings",
			"Classic pearl earrings set in premium metal. Timeless elegance for everyday wear. Perfect for both casual and formal occasions.",
			750000, CategoryEarrings, "Pearl_stud_earrings_00219806", "Freshwater Pearl, Sterling Silver", false, true, nil),
		p("Rose Gold Stackable Rings Set",
			"Set of three delicate stackable rings in rose gold. Mix and match for a personalized look. Each ring is designed to complement the others beautifully.",
			1650000, CategoryRings, "Rose_gold_stackable_rings_c4608c25", "14K Rose Gold", true, false, ringSizes),
		p("Gold Hoop Earrings",
			"Modern hoop earrings in polished gold. Versatile and sophisticated for any occasion. A must-have addition to your jewelry collection.",
			1200000, CategoryEarrings, "Gold_hoop_earrings_86358172", "18K Yellow Gold", false, true, nil),
		p("Silver Infinity Necklace",
			"Symbolic infinity pendant on a delicate silver chain. Represents eternal love and friendship. A meaningful gift for someone special.",
			850000, CategoryNecklaces, "Silver_infinity_necklace_eb3fd355", "Sterling Silver", false, true, nil),
		p("Diamond Tennis Bracelet",
			"Luxurious tennis bracelet featuring brilliant diamonds. A statement piece for special events. Expertly crafted for maximum sparkle.",
			3500000, CategoryBracelets, "Silver_charm_bracelet_db9c5a93", "18K White Gold, Diamonds", true, false, braceletSizes),
	}
}
