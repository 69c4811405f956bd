package services_test

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"gorm.io/gorm"

	"catalogue/internal/models"
	"catalogue/internal/services"
)

// MockProductRepository is a mock implementation of repositories.ProductRepository
type MockProductRepository struct {
	mock.Mock
}

func (m *MockProductRepository) List(search string, offset, limit int) ([]models.Product, int64, error) {
	args := m.Called(search, offset, limit)
	return args.Get(0).([]models.Product), args.Get(1).(int64), args.Error(2)
}

func (m *MockProductRepository) GetByID(id uint) (*models.Product, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Product), args.Error(1)
}

func (m *MockProductRepository) GetByCode(code string) (*models.Product, error) {
	args := m.Called(code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Product), args.Error(1)
}

func (m *MockProductRepository) GetByInternalReference(ref string) (*models.Product, error) {
	args := m.Called(ref)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Product), args.Error(1)
}

func (m *MockProductRepository) Create(product *models.Product) error {
	args := m.Called(product)
	return args.Error(0)
}

func (m *MockProductRepository) Update(product *models.Product) error {
	args := m.Called(product)
	return args.Error(0)
}

func (m *MockProductRepository) Delete(product *models.Product) error {
	args := m.Called(product)
	return args.Error(0)
}

// MockEventPublisher is a mock implementation of services.EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) PublishProductEvent(event string, product *models.Product) error {
	args := m.Called(event, product)
	return args.Error(0)
}

func strPtr(s string) *string     { return &s }
func floatPtr(f float64) *float64 { return &f }
func intPtr(i int) *int           { return &i }

func statusPtr(s models.InventoryStatus) *models.InventoryStatus { return &s }

var (
	codePattern = regexp.MustCompile(`^P\d{3}$`)
	refPattern  = regexp.MustCompile(`^REF-\d{3}-\d{3}$`)
)

func validInput() services.ProductInput {
	return services.ProductInput{
		Name:            strPtr("Widget"),
		Price:           floatPtr(9.99),
		Quantity:        intPtr(5),
		InventoryStatus: statusPtr(models.InventoryStatusInStock),
	}
}

func TestProductService_Create_GeneratesIdentifiersAndDefaults(t *testing.T) {
	mockRepo := new(MockProductRepository)
	service := services.NewProductService(mockRepo, nil)

	mockRepo.On("GetByCode", mock.AnythingOfType("string")).Return(nil, nil)
	mockRepo.On("GetByInternalReference", mock.AnythingOfType("string")).Return(nil, nil)
	mockRepo.On("Create", mock.AnythingOfType("*models.Product")).Return(nil).Once()

	product, err := service.Create(validInput())

	assert.NoError(t, err)
	assert.Regexp(t, codePattern, product.Code)
	assert.Regexp(t, refPattern, product.InternalReference)
	assert.Equal(t, int64(15), product.ShellID)
	assert.Equal(t, float64(0), product.Rating)
	assert.Nil(t, product.Description)
	assert.Nil(t, product.Category)
	assert.Greater(t, product.CreatedAt, int64(0))
	assert.Equal(t, product.CreatedAt, product.UpdatedAt)
	mockRepo.AssertExpectations(t)
}

func TestProductService_Create_KeepsProvidedIdentifiers(t *testing.T) {
	mockRepo := new(MockProductRepository)
	service := services.NewProductService(mockRepo, nil)

	input := validInput()
	input.Code = strPtr("P042")
	input.InternalReference = strPtr("REF-123-456")
	input.ShellID = func() *int64 { v := int64(7); return &v }()
	input.Rating = floatPtr(4.5)

	mockRepo.On("Create", mock.AnythingOfType("*models.Product")).Return(nil).Once()

	product, err := service.Create(input)

	assert.NoError(t, err)
	assert.Equal(t, "P042", product.Code)
	assert.Equal(t, "REF-123-456", product.InternalReference)
	assert.Equal(t, int64(7), product.ShellID)
	assert.Equal(t, 4.5, product.Rating)
	// No generation lookups when both identifiers were provided.
	mockRepo.AssertNotCalled(t, "GetByCode", mock.Anything)
	mockRepo.AssertNotCalled(t, "GetByInternalReference", mock.Anything)
	mockRepo.AssertExpectations(t)
}

func TestProductService_Create_RetriesOnDuplicateKey(t *testing.T) {
	mockRepo := new(MockProductRepository)
	service := services.NewProductService(mockRepo, nil)

	mockRepo.On("GetByCode", mock.AnythingOfType("string")).Return(nil, nil)
	mockRepo.On("GetByInternalReference", mock.AnythingOfType("string")).Return(nil, nil)
	// First insert loses the uniqueness race, second succeeds with fresh candidates.
	mockRepo.On("Create", mock.AnythingOfType("*models.Product")).Return(gorm.ErrDuplicatedKey).Once()
	mockRepo.On("Create", mock.AnythingOfType("*models.Product")).Return(nil).Once()

	product, err := service.Create(validInput())

	assert.NoError(t, err)
	assert.Regexp(t, codePattern, product.Code)
	mockRepo.AssertExpectations(t)
}

func TestProductService_Create_DuplicateProvidedIdentifiersNotRetried(t *testing.T) {
	mockRepo := new(MockProductRepository)
	service := services.NewProductService(mockRepo, nil)

	input := validInput()
	input.Code = strPtr("P042")
	input.InternalReference = strPtr("REF-123-456")

	mockRepo.On("Create", mock.AnythingOfType("*models.Product")).Return(gorm.ErrDuplicatedKey).Once()

	_, err := service.Create(input)

	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)
	mockRepo.AssertExpectations(t)
}

func TestProductService_Create_GenerationExhausted(t *testing.T) {
	mockRepo := new(MockProductRepository)
	service := services.NewProductService(mockRepo, nil)

	// Every candidate code is already taken.
	mockRepo.On("GetByCode", mock.AnythingOfType("string")).Return(&models.Product{}, nil)

	_, err := service.Create(validInput())

	assert.ErrorIs(t, err, services.ErrGenerationExhausted)
	mockRepo.AssertNotCalled(t, "Create", mock.Anything)
}

func TestProductService_Create_PublishesEvent(t *testing.T) {
	mockRepo := new(MockProductRepository)
	mockEvents := new(MockEventPublisher)
	service := services.NewProductService(mockRepo, mockEvents)

	mockRepo.On("GetByCode", mock.AnythingOfType("string")).Return(nil, nil)
	mockRepo.On("GetByInternalReference", mock.AnythingOfType("string")).Return(nil, nil)
	mockRepo.On("Create", mock.AnythingOfType("*models.Product")).Return(nil).Once()
	mockEvents.On("PublishProductEvent", "product.created", mock.AnythingOfType("*models.Product")).Return(nil).Once()

	_, err := service.Create(validInput())

	assert.NoError(t, err)
	mockEvents.AssertExpectations(t)
}

func TestProductService_Update_PatchSemantics(t *testing.T) {
	mockRepo := new(MockProductRepository)
	service := services.NewProductService(mockRepo, nil)

	existing := &models.Product{
		ID:                1,
		Code:              "P001",
		Name:              "Widget",
		Description:       strPtr("a widget"),
		Price:             9.99,
		Quantity:          5,
		InternalReference: "REF-111-222",
		ShellID:           15,
		InventoryStatus:   models.InventoryStatusInStock,
		CreatedAt:         100,
		UpdatedAt:         100,
	}
	mockRepo.On("GetByID", uint(1)).Return(existing, nil).Once()
	mockRepo.On("Update", mock.AnythingOfType("*models.Product")).Return(nil).Once()

	updated, err := service.Update(1, services.ProductInput{
		Name:            strPtr("NewName"),
		Price:           floatPtr(12.5),
		Quantity:        intPtr(5),
		InventoryStatus: statusPtr(models.InventoryStatusLowStock),
	})

	assert.NoError(t, err)
	assert.Equal(t, "NewName", updated.Name)
	assert.Equal(t, 12.5, updated.Price)
	assert.Equal(t, models.InventoryStatusLowStock, updated.InventoryStatus)
	// Absent fields keep their stored values.
	assert.Equal(t, "P001", updated.Code)
	assert.Equal(t, "REF-111-222", updated.InternalReference)
	assert.Equal(t, "a widget", *updated.Description)
	assert.Equal(t, int64(100), updated.CreatedAt)
	assert.GreaterOrEqual(t, updated.UpdatedAt, updated.CreatedAt)
	mockRepo.AssertExpectations(t)
}

func TestProductService_Update_NotFound(t *testing.T) {
	mockRepo := new(MockProductRepository)
	service := services.NewProductService(mockRepo, nil)

	mockRepo.On("GetByID", uint(99)).Return(nil, nil).Once()

	_, err := service.Update(99, validInput())

	assert.ErrorIs(t, err, services.ErrProductNotFound)
	mockRepo.AssertExpectations(t)
}

func TestProductService_Delete(t *testing.T) {
	mockRepo := new(MockProductRepository)
	service := services.NewProductService(mockRepo, nil)

	existing := &models.Product{ID: 1, Code: "P001"}
	mockRepo.On("GetByID", uint(1)).Return(existing, nil).Once()
	mockRepo.On("Delete", existing).Return(nil).Once()

	assert.NoError(t, service.Delete(1))

	mockRepo.On("GetByID", uint(99)).Return(nil, nil).Once()
	assert.ErrorIs(t, service.Delete(99), services.ErrProductNotFound)
	mockRepo.AssertExpectations(t)
}

func TestProductService_List_ClampsPageAndLimit(t *testing.T) {
	mockRepo := new(MockProductRepository)
	service := services.NewProductService(mockRepo, nil)

	mockRepo.On("List", "", 0, 1).Return([]models.Product{}, int64(0), nil).Once()
	_, _, err := service.List("", 0, 0)
	assert.NoError(t, err)

	mockRepo.On("List", "", 100, 100).Return([]models.Product{}, int64(0), nil).Once()
	_, _, err = service.List("", 2, 500)
	assert.NoError(t, err)

	mockRepo.AssertExpectations(t)
}
