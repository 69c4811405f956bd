package services

import (
	"errors"
	"fmt"
	"log"
	"math/rand"
	"time"

	"gorm.io/gorm"

	"catalogue/internal/models"
	"catalogue/internal/repositories"
)

var (
	// ErrProductNotFound is returned when an id lookup misses.
	ErrProductNotFound = errors.New("product not found")
	// ErrGenerationExhausted is returned when no unique code or internal
	// reference could be allocated within the retry budget.
	ErrGenerationExhausted = errors.New("could not allocate a unique product identifier")
)

// maxGenerateAttempts bounds both the candidate-sampling loops and the
// insert retries on duplicate-key violations.
const maxGenerateAttempts = 16

const maxPageSize = 100

// EventPublisher publishes product lifecycle events to the message broker.
type EventPublisher interface {
	PublishProductEvent(event string, product *models.Product) error
}

// ProductInput carries the fields provided in a create or update form.
// A nil pointer means the field was absent from the request.
type ProductInput struct {
	Code              *string
	Name              *string
	Description       *string
	Category          *string
	Image             *string
	Price             *float64
	Quantity          *int
	InternalReference *string
	ShellID           *int64
	InventoryStatus   *models.InventoryStatus
	Rating            *float64
}

// ProductService handles the product lifecycle: identifier generation,
// defaults, timestamps and persistence.
type ProductService struct {
	repo   repositories.ProductRepository
	events EventPublisher // may be nil when no broker is configured
}

// NewProductService creates a new ProductService.
func NewProductService(repo repositories.ProductRepository, events EventPublisher) *ProductService {
	return &ProductService{
		repo:   repo,
		events: events,
	}
}

// List returns one page of products matching the optional search term,
// ordered by id descending, plus the total match count. Page is clamped to
// at least 1 and limit to [1, 100].
func (s *ProductService) List(search string, page, limit int) ([]models.Product, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 1
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return s.repo.List(search, (page-1)*limit, limit)
}

// GetByID retrieves a single product. A miss returns ErrProductNotFound.
func (s *ProductService) GetByID(id uint) (*models.Product, error) {
	product, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, ErrProductNotFound
	}
	return product, nil
}

// Create builds a product from the input, fills defaults (shellId 15,
// rating 0), allocates a code and internal reference when none were provided,
// stamps both timestamps and persists it. When the insert loses a uniqueness
// race on an auto-generated identifier, fresh candidates are drawn and the
// insert retried up to maxGenerateAttempts times.
func (s *ProductService) Create(in ProductInput) (*models.Product, error) {
	now := time.Now().Unix()
	product := &models.Product{
		Description: in.Description,
		Category:    in.Category,
		Image:       in.Image,
		ShellID:     15,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if in.Name != nil {
		product.Name = *in.Name
	}
	if in.Price != nil {
		product.Price = *in.Price
	}
	if in.Quantity != nil {
		product.Quantity = *in.Quantity
	}
	if in.InventoryStatus != nil {
		product.InventoryStatus = *in.InventoryStatus
	}
	if in.ShellID != nil {
		product.ShellID = *in.ShellID
	}
	if in.Rating != nil {
		product.Rating = *in.Rating
	}

	autoCode := in.Code == nil
	autoRef := in.InternalReference == nil
	if !autoCode {
		product.Code = *in.Code
	}
	if !autoRef {
		product.InternalReference = *in.InternalReference
	}

	for attempt := 0; attempt < maxGenerateAttempts; attempt++ {
		if autoCode {
			code, err := s.freeCode()
			if err != nil {
				return nil, err
			}
			product.Code = code
		}
		if autoRef {
			ref, err := s.freeInternalReference()
			if err != nil {
				return nil, err
			}
			product.InternalReference = ref
		}

		err := s.repo.Create(product)
		if err == nil {
			s.publish("product.created", product)
			return product, nil
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) || (!autoCode && !autoRef) {
			return nil, err
		}
		// Lost the race to a concurrent creator; draw fresh candidates.
	}
	return nil, ErrGenerationExhausted
}

// Update applies the provided fields to an existing product and bumps
// updatedAt. Absent fields are left unchanged.
func (s *ProductService) Update(id uint, in ProductInput) (*models.Product, error) {
	product, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}

	if in.Code != nil {
		product.Code = *in.Code
	}
	if in.Name != nil {
		product.Name = *in.Name
	}
	if in.Description != nil {
		product.Description = in.Description
	}
	if in.Image != nil {
		product.Image = in.Image
	}
	if in.Category != nil {
		product.Category = in.Category
	}
	if in.Price != nil {
		product.Price = *in.Price
	}
	if in.Quantity != nil {
		product.Quantity = *in.Quantity
	}
	if in.InternalReference != nil {
		product.InternalReference = *in.InternalReference
	}
	if in.ShellID != nil {
		product.ShellID = *in.ShellID
	}
	if in.InventoryStatus != nil {
		product.InventoryStatus = *in.InventoryStatus
	}
	if in.Rating != nil {
		product.Rating = *in.Rating
	}
	product.UpdatedAt = time.Now().Unix()

	if err := s.repo.Update(product); err != nil {
		return nil, err
	}
	s.publish("product.updated", product)
	return product, nil
}

// Delete removes a product by id. A miss returns ErrProductNotFound.
func (s *ProductService) Delete(id uint) error {
	product, err := s.GetByID(id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(product); err != nil {
		return err
	}
	s.publish("product.deleted", product)
	return nil
}

// freeCode samples "P" + zero-padded three digits until a free code is found.
func (s *ProductService) freeCode() (string, error) {
	for attempt := 0; attempt < maxGenerateAttempts; attempt++ {
		code := fmt.Sprintf("P%03d", rand.Intn(999)+1)
		existing, err := s.repo.GetByCode(code)
		if err != nil {
			return "", err
		}
		if existing == nil {
			return code, nil
		}
	}
	return "", ErrGenerationExhausted
}

// freeInternalReference samples "REF-" + two three-digit groups until a free
// reference is found.
func (s *ProductService) freeInternalReference() (string, error) {
	for attempt := 0; attempt < maxGenerateAttempts; attempt++ {
		ref := fmt.Sprintf("REF-%03d-%03d", rand.Intn(900)+100, rand.Intn(900)+100)
		existing, err := s.repo.GetByInternalReference(ref)
		if err != nil {
			return "", err
		}
		if existing == nil {
			return ref, nil
		}
	}
	return "", ErrGenerationExhausted
}

// publish emits a lifecycle event best-effort; broker failures are logged and
// never fail the request.
func (s *ProductService) publish(event string, product *models.Product) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishProductEvent(event, product); err != nil {
		log.Printf("Failed to publish %s event for product %d: %v", event, product.ID, err)
	}
}
