package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"gwi.com/shop-assistant/internal/apperr"
)

// FindProducts runs q and returns one page together with the total match count.
// q is expected to be normalized; a zero PerPage returns every match.
func (s *Store) FindProducts(ctx context.Context, q ProductQuery) ([]Product, int64, error) {
	defer s.track("find_products")()

	var total int64
	if err := s.db.WithContext(ctx).Model(&Product{}).Scopes(q.Filter).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	if q.PerPage > 0 && int64(q.Offset()) >= total {
		return []Product{}, total, nil
	}

	find := s.db.WithContext(ctx).Model(&Product{}).
		Scopes(q.Filter).
		Preload("Category").
		Order(q.OrderClause())
	if q.PerPage > 0 {
		find = find.Limit(q.PerPage).Offset(q.Offset())
	}

	var products []Product
	if err := find.Find(&products).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to query products: %w", err)
	}
	return products, total, nil
}

// GetProduct returns the active product with the given id, or nil when there is none.
func (s *Store) GetProduct(ctx context.Context, id uint) (*Product, error) {
	defer s.track("get_product")()

	var product Product
	err := s.db.WithContext(ctx).
		Preload("Category").
		Where("id = ? AND is_active = ?", id, true).
		First(&product).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return &product, nil
}

// ActiveProductsByCategory returns the active products of one category, ordered by name.
func (s *Store) ActiveProductsByCategory(ctx context.Context, categoryID uint) ([]Product, error) {
	defer s.track("products_by_category")()

	var products []Product
	err := s.db.WithContext(ctx).
		Where("category_id = ? AND is_active = ?", categoryID, true).
		Order("name ASC").Order("id ASC").
		Find(&products).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query category products: %w", err)
	}
	return products, nil
}

// ProductNameSuggestions returns up to limit active product names containing text.
func (s *Store) ProductNameSuggestions(ctx context.Context, text string, limit int) ([]string, error) {
	if limit <= 0 {
		return []string{}, nil
	}
	defer s.track("name_suggestions")()

	var names []string
	err := s.db.WithContext(ctx).Model(&Product{}).
		Where("is_active = ?", true).
		Where("LOWER(name) LIKE ? ESCAPE '\\'", likePattern(text)).
		Order("name ASC").
		Limit(limit).
		Pluck("name", &names).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query name suggestions: %w", err)
	}
	return names, nil
}

// BrandSuggestions returns up to limit distinct non-empty brands containing text.
func (s *Store) BrandSuggestions(ctx context.Context, text string, limit int) ([]string, error) {
	if limit <= 0 {
		return []string{}, nil
	}
	defer s.track("brand_suggestions")()

	var brands []string
	err := s.db.WithContext(ctx).Model(&Product{}).
		Distinct("brand").
		Where("is_active = ?", true).
		Where("brand IS NOT NULL AND brand <> ''").
		Where("LOWER(brand) LIKE ? ESCAPE '\\'", likePattern(text)).
		Order("brand ASC").
		Limit(limit).
		Pluck("brand", &brands).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query brand suggestions: %w", err)
	}
	return brands, nil
}

func (s *Store) CountProducts(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&Product{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count products: %w", err)
	}
	return n, nil
}

func validatePrice(price float64, discount *float64) error {
	if price < 0 {
		return apperr.Validation("price must not be negative")
	}
	if discount != nil && (*discount < 0 || *discount > price) {
		return apperr.Validation("discount price must be between 0 and price")
	}
	return nil
}

// CreateProduct inserts p after checking the product invariants. The sku must be
// unique across all products, active or not.
func (s *Store) CreateProduct(ctx context.Context, p *Product) error {
	defer s.track("create_product")()

	p.Name = strings.TrimSpace(p.Name)
	p.SKU = strings.TrimSpace(p.SKU)
	switch {
	case p.Name == "":
		return apperr.Validation("product name is required")
	case p.SKU == "":
		return apperr.Validation("product sku is required")
	case p.StockQuantity < 0:
		return apperr.Validation("stock quantity must not be negative")
	case p.Rating < 0 || p.Rating > 5:
		return apperr.Validation("rating must be between 0 and 5")
	case p.ReviewCount < 0:
		return apperr.Validation("review count must not be negative")
	}
	if err := validatePrice(p.Price, p.DiscountPrice); err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&Product{}).Where("sku = ?", p.SKU).Count(&n).Error; err != nil {
			return fmt.Errorf("failed to check sku: %w", err)
		}
		if n > 0 {
			return apperr.Validation("product with sku %q already exists", p.SKU)
		}
		if p.CategoryID != nil {
			ok, err := categoryExists(tx, *p.CategoryID)
			if err != nil {
				return err
			}
			if !ok {
				return apperr.Validation("category %d does not exist", *p.CategoryID)
			}
		}
		if err := tx.Omit("Category").Create(p).Error; err != nil {
			return fmt.Errorf("failed to insert product: %w", err)
		}
		return nil
	})
}

func (s *Store) UpdateStock(ctx context.Context, id uint, quantity int) error {
	defer s.track("update_stock")()

	if quantity < 0 {
		return apperr.Validation("stock quantity must not be negative")
	}
	res := s.db.WithContext(ctx).Model(&Product{}).Where("id = ?", id).UpdateColumn("stock_quantity", quantity)
	if res.Error != nil {
		return fmt.Errorf("failed to update stock: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("Product not found")
	}
	return nil
}

func (s *Store) UpdatePrice(ctx context.Context, id uint, price float64, discount *float64) error {
	defer s.track("update_price")()

	if err := validatePrice(price, discount); err != nil {
		return err
	}
	res := s.db.WithContext(ctx).Model(&Product{}).Where("id = ?", id).
		UpdateColumns(map[string]interface{}{"price": price, "discount_price": discount})
	if res.Error != nil {
		return fmt.Errorf("failed to update price: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("Product not found")
	}
	return nil
}

// DeactivateProduct soft-deletes a product.
func (s *Store) DeactivateProduct(ctx context.Context, id uint) error {
	defer s.track("deactivate_product")()

	res := s.db.WithContext(ctx).Model(&Product{}).Where("id = ?", id).UpdateColumn("is_active", false)
	if res.Error != nil {
		return fmt.Errorf("failed to deactivate product: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("Product not found")
	}
	return nil
}
