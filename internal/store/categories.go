package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"gwi.com/shop-assistant/internal/apperr"
)

type CategoryFilter struct {
	ParentID   *uint // nil selects root categories
	ActiveOnly bool
}

// ListCategories returns the categories directly under f.ParentID, ordered by name.
func (s *Store) ListCategories(ctx context.Context, f CategoryFilter) ([]Category, error) {
	defer s.track("list_categories")()

	q := s.db.WithContext(ctx).Model(&Category{})
	if f.ActiveOnly {
		q = q.Where("is_active = ?", true)
	}
	if f.ParentID != nil {
		q = q.Where("parent_id = ?", *f.ParentID)
	} else {
		q = q.Where("parent_id IS NULL")
	}

	var categories []Category
	if err := q.Order("name ASC").Order("id ASC").Find(&categories).Error; err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	return categories, nil
}

// ListActiveCategories returns every active category in one flat read.
func (s *Store) ListActiveCategories(ctx context.Context) ([]Category, error) {
	defer s.track("list_active_categories")()

	var categories []Category
	err := s.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("name ASC").Order("id ASC").
		Find(&categories).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query active categories: %w", err)
	}
	return categories, nil
}

// GetCategory returns the active category with the given id, or nil when there is none.
func (s *Store) GetCategory(ctx context.Context, id uint) (*Category, error) {
	defer s.track("get_category")()

	var category Category
	err := s.db.WithContext(ctx).Where("id = ? AND is_active = ?", id, true).First(&category).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	return &category, nil
}

func (s *Store) CountCategories(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&Category{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count categories: %w", err)
	}
	return n, nil
}

// CreateCategory inserts c after checking the name and parent invariants.
func (s *Store) CreateCategory(ctx context.Context, c *Category) error {
	defer s.track("create_category")()

	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return apperr.Validation("category name is required")
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if c.IsActive {
			var n int64
			if err := tx.Model(&Category{}).Where("name = ? AND is_active = ?", c.Name, true).Count(&n).Error; err != nil {
				return fmt.Errorf("failed to check category name: %w", err)
			}
			if n > 0 {
				return apperr.Validation("category %q already exists", c.Name)
			}
		}
		if c.ParentID != nil {
			ok, err := categoryExists(tx, *c.ParentID)
			if err != nil {
				return err
			}
			if !ok {
				return apperr.Validation("parent category %d does not exist", *c.ParentID)
			}
		}
		if err := tx.Create(c).Error; err != nil {
			return fmt.Errorf("failed to insert category: %w", err)
		}
		return nil
	})
}

// SetCategoryParent moves a category under parentID (nil makes it a root).
// Moving a category under itself or one of its descendants is rejected.
func (s *Store) SetCategoryParent(ctx context.Context, id uint, parentID *uint) error {
	defer s.track("set_category_parent")()

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ok, err := categoryExists(tx, id)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.NotFound("Category not found")
		}

		if parentID != nil {
			ok, err := categoryExists(tx, *parentID)
			if err != nil {
				return err
			}
			if !ok {
				return apperr.Validation("parent category %d does not exist", *parentID)
			}
			// Walk up from the new parent; reaching id means the move closes a cycle.
			seen := map[uint]bool{}
			for cur := parentID; cur != nil; {
				if *cur == id {
					return apperr.Validation("category %d cannot be moved under its own subtree", id)
				}
				if seen[*cur] {
					break
				}
				seen[*cur] = true
				var row Category
				if err := tx.Select("id", "parent_id").First(&row, *cur).Error; err != nil {
					return fmt.Errorf("failed to walk category ancestry: %w", err)
				}
				cur = row.ParentID
			}
		}

		if err := tx.Model(&Category{}).Where("id = ?", id).Update("parent_id", parentID).Error; err != nil {
			return fmt.Errorf("failed to update category parent: %w", err)
		}
		return nil
	})
}

// DeactivateCategory soft-deletes a category. Children keep their own state.
func (s *Store) DeactivateCategory(ctx context.Context, id uint) error {
	defer s.track("deactivate_category")()

	res := s.db.WithContext(ctx).Model(&Category{}).Where("id = ?", id).Update("is_active", false)
	if res.Error != nil {
		return fmt.Errorf("failed to deactivate category: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("Category not found")
	}
	return nil
}

func categoryExists(tx *gorm.DB, id uint) (bool, error) {
	var n int64
	if err := tx.Model(&Category{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return false, fmt.Errorf("failed to look up category: %w", err)
	}
	return n > 0, nil
}
