package store

import (
	"context"
	"fmt"
)

type seedCategory struct {
	name        string
	description string
	children    []seedCategory
}

type seedProduct struct {
	name        string
	description string
	price       float64
	discount    float64 // 0 means none
	sku         string
	stock       int
	category    string
	brand       string
	rating      float64
	reviews     int
	featured    bool
	tags        []string
	specs       map[string]string
}

var sampleCategories = []seedCategory{
	{name: "Electronics", description: "Smartphones, laptops, tablets, and more", children: []seedCategory{
		{name: "Smartphones", description: "Mobile phones and accessories"},
		{name: "Laptops", description: "Laptop computers and accessories"},
		{name: "Tablets", description: "Tablet computers"},
		{name: "Audio", description: "Headphones, speakers, and audio equipment"},
		{name: "Gaming", description: "Gaming consoles and accessories"},
	}},
	{name: "Clothing", description: "Fashion and apparel for all ages", children: []seedCategory{
		{name: "Men's Clothing", description: "Clothing for men"},
		{name: "Women's Clothing", description: "Clothing for women"},
		{name: "Kids' Clothing", description: "Clothing for children"},
		{name: "Shoes", description: "Footwear for all ages"},
		{name: "Accessories", description: "Fashion accessories"},
	}},
	{name: "Books", description: "Fiction, non-fiction, textbooks, and magazines", children: []seedCategory{
		{name: "Fiction", description: "Fiction books"},
		{name: "Non-Fiction", description: "Non-fiction books"},
		{name: "Educational", description: "Educational and academic books"},
		{name: "Children's Books", description: "Books for children"},
	}},
	{name: "Home & Garden", description: "Furniture, decor, and gardening supplies", children: []seedCategory{
		{name: "Furniture", description: "Home furniture"},
		{name: "Kitchen", description: "Kitchen appliances and tools"},
		{name: "Garden", description: "Gardening tools and supplies"},
		{name: "Decor", description: "Home decoration items"},
	}},
	{name: "Sports", description: "Athletic equipment and sportswear"},
}

var sampleProducts = []seedProduct{
	{name: "iPhone 15 Pro", description: "Latest Apple smartphone with advanced camera system", price: 999.99, sku: "APL-IP15P", stock: 50, category: "Electronics", brand: "Apple", rating: 4.8, reviews: 1250, featured: true,
		tags: []string{"smartphone", "ios", "camera"}, specs: map[string]string{"storage": "128GB", "display": "6.1 inch"}},
	{name: "Samsung Galaxy S24", description: "Android flagship with AI features", price: 899.99, discount: 849.99, sku: "SMS-GS24", stock: 30, category: "Electronics", brand: "Samsung", rating: 4.6, reviews: 980, featured: true,
		tags: []string{"smartphone", "android", "ai"}, specs: map[string]string{"storage": "256GB", "display": "6.2 inch"}},
	{name: "MacBook Air M3", description: "Lightweight laptop with Apple Silicon", price: 1299.99, sku: "APL-MBA-M3", stock: 20, category: "Electronics", brand: "Apple", rating: 4.9, reviews: 640,
		tags: []string{"laptop", "macos", "ultrabook"}, specs: map[string]string{"memory": "8GB", "storage": "256GB SSD"}},
	{name: "Sony WH-1000XM5", description: "Noise-canceling wireless headphones", price: 399.99, sku: "SNY-WH1000XM5", stock: 40, category: "Electronics", brand: "Sony", rating: 4.7, reviews: 2100,
		tags: []string{"headphones", "wireless", "noise-cancellation"}, specs: map[string]string{"battery_life": "30 hours"}},
	{name: "Premium Wireless Headphones", description: "High-quality wireless headphones with noise cancellation", price: 299.99, discount: 249.99, sku: "PWH001", stock: 100, category: "Audio", brand: "AudioTech", rating: 4.5, reviews: 245,
		tags: []string{"wireless", "headphones", "noise-cancellation", "premium"},
		specs: map[string]string{"battery_life": "30 hours", "connectivity": "Bluetooth 5.0", "noise_cancellation": "Active"}},

	{name: "Levi's 501 Jeans", description: "Classic straight-leg denim jeans", price: 89.99, sku: "LEV-501", stock: 100, category: "Clothing", brand: "Levi's", rating: 4.4, reviews: 870,
		tags: []string{"jeans", "denim", "classic"}},
	{name: "Nike Air Max 90", description: "Iconic running shoes with air cushioning", price: 129.99, sku: "NKE-AM90", stock: 75, category: "Clothing", brand: "Nike", rating: 4.6, reviews: 1530, featured: true,
		tags: []string{"shoes", "running", "sneakers"}},
	{name: "Adidas Hoodie", description: "Comfortable cotton blend hoodie", price: 59.99, discount: 44.99, sku: "ADI-HOOD", stock: 60, category: "Clothing", brand: "Adidas", rating: 4.3, reviews: 410,
		tags: []string{"hoodie", "cotton", "casual"}},

	{name: "The Great Gatsby", description: "Classic American novel by F. Scott Fitzgerald", price: 12.99, sku: "BK-GATSBY", stock: 200, category: "Books", brand: "Scribner", rating: 4.2, reviews: 5600,
		tags: []string{"novel", "classic", "fiction"}},
	{name: "Python Programming Guide", description: "Comprehensive guide to Python development", price: 49.99, sku: "BK-PYGUIDE", stock: 80, category: "Books", brand: "TechPress", rating: 4.5, reviews: 320,
		tags: []string{"programming", "python", "guide"}},

	{name: "IKEA Coffee Table", description: "Modern minimalist coffee table", price: 199.99, sku: "IKA-COFTBL", stock: 25, category: "Home & Garden", brand: "IKEA", rating: 4.1, reviews: 150,
		tags: []string{"furniture", "table", "living room"}},
	{name: "Philips LED Bulbs", description: "Energy-efficient smart LED bulbs pack of 4", price: 39.99, sku: "PHL-LED4", stock: 150, category: "Home & Garden", brand: "Philips", rating: 4.4, reviews: 760,
		tags: []string{"bulb", "light", "smart home"}},

	{name: "Wilson Tennis Racket", description: "Professional grade tennis racket", price: 159.99, sku: "WIL-TENRKT", stock: 35, category: "Sports", brand: "Wilson", rating: 4.6, reviews: 290,
		tags: []string{"tennis", "racket"}},
	{name: "Nike Basketball", description: "Official size basketball", price: 29.99, sku: "NKE-BBALL", stock: 90, category: "Sports", brand: "Nike", rating: 4.5, reviews: 430,
		tags: []string{"basketball", "ball"}},
}

// Seed loads the sample catalog. It is a no-op when any category already exists.
// It reports whether anything was inserted.
func (s *Store) Seed(ctx context.Context) (bool, error) {
	n, err := s.CountCategories(ctx)
	if err != nil {
		return false, err
	}
	if n > 0 {
		s.log.Info("Catalog already seeded, skipping")
		return false, nil
	}

	ids := map[string]uint{}
	var create func(c seedCategory, parent *uint) error
	create = func(c seedCategory, parent *uint) error {
		row := Category{Name: c.name, Description: c.description, ParentID: parent, IsActive: true}
		if err := s.CreateCategory(ctx, &row); err != nil {
			return fmt.Errorf("seed category %q: %w", c.name, err)
		}
		ids[c.name] = row.ID
		for _, child := range c.children {
			if err := create(child, &row.ID); err != nil {
				return err
			}
		}
		return nil
	}
	for _, c := range sampleCategories {
		if err := create(c, nil); err != nil {
			return false, err
		}
	}

	for _, sp := range sampleProducts {
		p, err := sp.product(ids)
		if err != nil {
			return false, err
		}
		if err := s.CreateProduct(ctx, p); err != nil {
			return false, fmt.Errorf("seed product %q: %w", sp.name, err)
		}
	}

	s.log.Info("Catalog seeded", "categories", len(ids), "products", len(sampleProducts))
	return true, nil
}

func (sp seedProduct) product(categoryIDs map[string]uint) (*Product, error) {
	tags, err := encodeJSON(sp.tags)
	if err != nil {
		return nil, err
	}
	if sp.specs == nil {
		sp.specs = map[string]string{}
	}
	specs, err := encodeJSON(sp.specs)
	if err != nil {
		return nil, err
	}

	p := &Product{
		Name:           sp.name,
		Description:    sp.description,
		Price:          sp.price,
		SKU:            sp.sku,
		StockQuantity:  sp.stock,
		Brand:          sp.brand,
		Rating:         sp.rating,
		ReviewCount:    sp.reviews,
		Tags:           tags,
		Specifications: specs,
		IsActive:       true,
		IsFeatured:     sp.featured,
	}
	if sp.discount > 0 {
		d := sp.discount
		p.DiscountPrice = &d
	}
	if id, ok := categoryIDs[sp.category]; ok {
		p.CategoryID = &id
	}
	return p, nil
}
