package repositories

import (
	"sort"
	"strings"
	"sync"

	"gorm.io/gorm"

	"catalogue/internal/models"
)

// MockProductRepository is an in-memory implementation of ProductRepository.
// It mirrors the database semantics the service relies on: assigned ids,
// unique code and internal reference, id-descending list order.
type MockProductRepository struct {
	products map[uint]models.Product
	nextID   uint
	mu       sync.RWMutex
}

// NewMockProductRepository creates a new instance of MockProductRepository.
func NewMockProductRepository() *MockProductRepository {
	return &MockProductRepository{
		products: make(map[uint]models.Product),
		nextID:   1,
	}
}

func matchesSearch(p models.Product, search string) bool {
	if search == "" {
		return true
	}
	if strings.Contains(p.Name, search) || strings.Contains(p.Code, search) {
		return true
	}
	return p.Category != nil && strings.Contains(*p.Category, search)
}

// List returns the matching page ordered by id descending plus the total
// match count.
func (r *MockProductRepository) List(search string, offset, limit int) ([]models.Product, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := make([]models.Product, 0, len(r.products))
	for _, p := range r.products {
		if matchesSearch(p, search) {
			matched = append(matched, p)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID > matched[j].ID })

	total := int64(len(matched))
	if offset >= len(matched) {
		return []models.Product{}, total, nil
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], total, nil
}

// GetByID returns a product by its ID, or (nil, nil) when absent.
func (r *MockProductRepository) GetByID(id uint) (*models.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	product, ok := r.products[id]
	if !ok {
		return nil, nil
	}
	return &product, nil
}

// GetByCode returns a product by its code, or (nil, nil) when absent.
func (r *MockProductRepository) GetByCode(code string) (*models.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.products {
		if p.Code == code {
			p := p
			return &p, nil
		}
	}
	return nil, nil
}

// GetByInternalReference returns a product by its internal reference, or
// (nil, nil) when absent.
func (r *MockProductRepository) GetByInternalReference(ref string) (*models.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.products {
		if p.InternalReference == ref {
			p := p
			return &p, nil
		}
	}
	return nil, nil
}

// Create adds a new product, assigning the next id. Duplicate code or
// internal reference fails with gorm.ErrDuplicatedKey, like the database.
func (r *MockProductRepository) Create(product *models.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, p := range r.products {
		if p.Code == product.Code || p.InternalReference == product.InternalReference {
			return gorm.ErrDuplicatedKey
		}
	}
	product.ID = r.nextID
	r.nextID++
	r.products[product.ID] = *product
	return nil
}

// Update modifies an existing product.
func (r *MockProductRepository) Update(product *models.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.products[product.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	for _, p := range r.products {
		if p.ID == product.ID {
			continue
		}
		if p.Code == product.Code || p.InternalReference == product.InternalReference {
			return gorm.ErrDuplicatedKey
		}
	}
	r.products[product.ID] = *product
	return nil
}

// Delete removes a product.
func (r *MockProductRepository) Delete(product *models.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.products[product.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(r.products, product.ID)
	return nil
}
