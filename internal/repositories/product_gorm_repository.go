package repositories

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"catalogue/internal/models"
)

// GORMProductRepository is a GORM implementation of ProductRepository.
type GORMProductRepository struct {
	db *gorm.DB
}

// NewGORMProductRepository creates a new instance of GORMProductRepository.
func NewGORMProductRepository(db *gorm.DB) *GORMProductRepository {
	return &GORMProductRepository{
		db: db,
	}
}

// escapeLike neutralizes LIKE wildcards in a user-supplied search term so the
// term is matched literally. Queries using the result must carry ESCAPE '\'.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// List retrieves a page of products ordered by id descending. A non-empty
// search term is matched as a substring against name, code and category.
func (r *GORMProductRepository) List(search string, offset, limit int) ([]models.Product, int64, error) {
	query := r.db.Model(&models.Product{})
	if search != "" {
		pattern := "%" + escapeLike(search) + "%"
		query = query.Where(
			`name LIKE ? ESCAPE '\' OR code LIKE ? ESCAPE '\' OR category LIKE ? ESCAPE '\'`,
			pattern, pattern, pattern,
		)
	}
	// The query runs twice (count, then page); a session keeps the chain
	// reusable across both finishers.
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	var products []models.Product
	if err := query.Order("id DESC").Offset(offset).Limit(limit).Find(&products).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list products: %w", err)
	}
	return products, total, nil
}

// GetByID retrieves a single product by its ID. A miss returns (nil, nil).
func (r *GORMProductRepository) GetByID(id uint) (*models.Product, error) {
	var product models.Product
	if err := r.db.First(&product, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get product by ID %d: %w", id, err)
	}
	return &product, nil
}

// GetByCode retrieves a single product by its code. A miss returns (nil, nil).
func (r *GORMProductRepository) GetByCode(code string) (*models.Product, error) {
	var product models.Product
	if err := r.db.First(&product, "code = ?", code).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get product by code %s: %w", code, err)
	}
	return &product, nil
}

// GetByInternalReference retrieves a single product by its internal reference.
// A miss returns (nil, nil).
func (r *GORMProductRepository) GetByInternalReference(ref string) (*models.Product, error) {
	var product models.Product
	if err := r.db.First(&product, "internal_reference = ?", ref).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get product by internal reference %s: %w", ref, err)
	}
	return &product, nil
}

// Create inserts a new product. Unique violations on code or
// internal_reference surface as gorm.ErrDuplicatedKey so callers can retry
// with a fresh candidate.
func (r *GORMProductRepository) Create(product *models.Product) error {
	if err := r.db.Create(product).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return err
		}
		return fmt.Errorf("failed to create product: %w", err)
	}
	return nil
}

// Update persists all fields of an already-loaded product.
func (r *GORMProductRepository) Update(product *models.Product) error {
	res := r.db.Save(product)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return res.Error
		}
		return fmt.Errorf("failed to update product: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("product with ID %d not found for update", product.ID)
	}
	return nil
}

// Delete removes a product.
func (r *GORMProductRepository) Delete(product *models.Product) error {
	res := r.db.Delete(product)
	if res.Error != nil {
		return fmt.Errorf("failed to delete product: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("product with ID %d not found for deletion", product.ID)
	}
	return nil
}
