package repositories

import (
	"catalogue/internal/models"
)

// ProductRepository defines the interface for product data access.
type ProductRepository interface {
	// List returns the page of products matching the optional search term,
	// ordered by id descending, together with the pre-pagination match count.
	List(search string, offset, limit int) ([]models.Product, int64, error)
	GetByID(id uint) (*models.Product, error)
	GetByCode(code string) (*models.Product, error)
	GetByInternalReference(ref string) (*models.Product, error)
	Create(product *models.Product) error
	Update(product *models.Product) error
	Delete(product *models.Product) error
}
