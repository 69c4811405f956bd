package handlers

import (
	"errors"
	"log"
	"mime/multipart"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"catalogue/internal/models"
	"catalogue/internal/services"
	"catalogue/internal/storage"
)

const maxListLimit = 100

// Validation messages are kept verbatim in French for compatibility with the
// front end consuming this API.
const (
	msgInvalidStatus = "Valeur absente ou incorrecte spécifiée pour le paramètre inventoryStatus."
	msgInvalidImage  = "Le fichier image est invalide."
)

type formAction int

const (
	actionCreate formAction = iota
	actionUpdate
)

var priceMessages = map[formAction]string{
	actionCreate: "Produit non ajouté, Le prix doit être strictement positive.",
	actionUpdate: "Produit non modifié, Le prix doit être strictement positive.",
}

var quantityMessages = map[formAction]string{
	actionCreate: "Produit non ajouté, La quantité doit être positive.",
	actionUpdate: "Produit non modifié, La quantité doit être positive.",
}

// productForm holds the validated part of a create/update form. Field order
// sets validation precedence: price is checked before quantity before
// inventory status.
type productForm struct {
	Price           *float64 `validate:"required,gt=0"`
	Quantity        *int     `validate:"required,gte=0"`
	InventoryStatus *string  `validate:"required,oneof=INSTOCK LOWSTOCK OUTOFSTOCK"`
}

// ProductHandler handles HTTP requests for products.
type ProductHandler struct {
	service  *services.ProductService
	images   *storage.ImageStore
	validate *validator.Validate
}

// NewProductHandler creates a new ProductHandler.
func NewProductHandler(service *services.ProductService, images *storage.ImageStore) *ProductHandler {
	return &ProductHandler{
		service:  service,
		images:   images,
		validate: validator.New(),
	}
}

// RegisterRoutes registers the product routes with the Fiber app.
func (h *ProductHandler) RegisterRoutes(router fiber.Router) {
	productRoutes := router.Group("/products")
	productRoutes.Get("/", h.HandleListProducts)
	productRoutes.Get("/:id", h.HandleGetProduct)
	productRoutes.Post("/", h.HandleCreateProduct)
	productRoutes.Post("/:id", h.HandleUpdateProduct)
	productRoutes.Delete("/:id", h.HandleDeleteProduct)
}

// HandleListProducts returns one page of products with pagination metadata.
// Query parameters: page (default 1), limit (default 10, capped at 100),
// search (substring over name, code and category).
func (h *ProductHandler) HandleListProducts(c *fiber.Ctx) error {
	page := c.QueryInt("page", 1)
	limit := c.QueryInt("limit", 10)
	search := c.Query("search")

	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 1
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	products, total, err := h.service.List(search, page, limit)
	if err != nil {
		log.Printf("Error listing products: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not retrieve products",
		})
	}
	if products == nil {
		products = []models.Product{}
	}

	totalPages := (total + int64(limit) - 1) / int64(limit)
	return c.JSON(fiber.Map{
		"data": products,
		"meta": fiber.Map{
			"current_page":   page,
			"items_per_page": limit,
			"total_items":    total,
			"total_pages":    totalPages,
		},
	})
}

// HandleGetProduct retrieves a single product by its ID.
func (h *ProductHandler) HandleGetProduct(c *fiber.Ctx) error {
	id, ok := parseProductID(c)
	if !ok {
		return notFound(c)
	}

	product, err := h.service.GetByID(id)
	if err != nil {
		if errors.Is(err, services.ErrProductNotFound) {
			return notFound(c)
		}
		log.Printf("Error getting product %d: %v", id, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not retrieve product",
		})
	}
	return c.JSON(product)
}

// HandleCreateProduct creates a new product from a multipart form, storing
// the optional image part first.
func (h *ProductHandler) HandleCreateProduct(c *fiber.Ctx) error {
	values, imageFile := readMultipart(c)

	form := buildProductForm(values)
	if msg, ok := h.firstValidationError(form, actionCreate); ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
	}

	input := buildProductInput(form, values)
	if imageFile != nil {
		url, err := h.images.Save(imageFile)
		if err != nil {
			if errors.Is(err, storage.ErrInvalidUpload) {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msgInvalidImage})
			}
			log.Printf("Error storing product image: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"message": "Could not store product image",
			})
		}
		input.Image = &url
	}

	product, err := h.service.Create(input)
	if err != nil {
		log.Printf("Error creating product: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not create product",
		})
	}
	return c.Status(fiber.StatusCreated).JSON(product)
}

// HandleUpdateProduct applies a partial update to an existing product.
// Fields absent from the form are left unchanged.
func (h *ProductHandler) HandleUpdateProduct(c *fiber.Ctx) error {
	id, ok := parseProductID(c)
	if !ok {
		return notFound(c)
	}
	if _, err := h.service.GetByID(id); err != nil {
		if errors.Is(err, services.ErrProductNotFound) {
			return notFound(c)
		}
		log.Printf("Error getting product %d: %v", id, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not retrieve product",
		})
	}

	values, imageFile := readMultipart(c)

	form := buildProductForm(values)
	if msg, ok := h.firstValidationError(form, actionUpdate); ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
	}

	input := buildProductInput(form, values)
	if imageFile != nil {
		url, err := h.images.Save(imageFile)
		if err != nil {
			if errors.Is(err, storage.ErrInvalidUpload) {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msgInvalidImage})
			}
			log.Printf("Error storing product image: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"message": "Could not store product image",
			})
		}
		input.Image = &url
	}

	product, err := h.service.Update(id, input)
	if err != nil {
		if errors.Is(err, services.ErrProductNotFound) {
			return notFound(c)
		}
		log.Printf("Error updating product %d: %v", id, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not update product",
		})
	}
	return c.JSON(product)
}

// HandleDeleteProduct removes a product by its ID.
func (h *ProductHandler) HandleDeleteProduct(c *fiber.Ctx) error {
	id, ok := parseProductID(c)
	if !ok {
		return notFound(c)
	}

	if err := h.service.Delete(id); err != nil {
		if errors.Is(err, services.ErrProductNotFound) {
			return notFound(c)
		}
		log.Printf("Error deleting product %d: %v", id, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not delete product",
		})
	}
	return c.JSON(fiber.Map{"message": "Product deleted successfully"})
}

func notFound(c *fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "Product not found"})
}

func parseProductID(c *fiber.Ctx) (uint, bool) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return 0, false
	}
	return uint(id), true
}

// readMultipart extracts the form values and the optional image part. An
// unparsable body degrades to an empty form, which the validators then
// reject field by field.
func readMultipart(c *fiber.Ctx) (map[string][]string, *multipart.FileHeader) {
	form, err := c.MultipartForm()
	if err != nil || form == nil {
		return nil, nil
	}
	var imageFile *multipart.FileHeader
	if files := form.File["image"]; len(files) > 0 {
		imageFile = files[0]
	}
	return form.Value, imageFile
}

func formValue(values map[string][]string, key string) (string, bool) {
	vs, ok := values[key]
	if !ok || len(vs) == 0 {
		return "", false
	}
	return vs[0], true
}

// buildProductForm parses the validated numeric fields. Unparsable values are
// treated the same as absent ones.
func buildProductForm(values map[string][]string) productForm {
	var form productForm
	if raw, ok := formValue(values, "price"); ok {
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			form.Price = &v
		}
	}
	if raw, ok := formValue(values, "quantity"); ok {
		if v, err := strconv.Atoi(raw); err == nil {
			form.Quantity = &v
		}
	}
	if raw, ok := formValue(values, "inventoryStatus"); ok {
		form.InventoryStatus = &raw
	}
	return form
}

// firstValidationError validates the form and maps the highest-precedence
// failure to its response message.
func (h *ProductHandler) firstValidationError(form productForm, action formAction) (string, bool) {
	err := h.validate.Struct(form)
	if err == nil {
		return "", false
	}
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) || len(ve) == 0 {
		return priceMessages[action], true
	}
	switch ve[0].Field() {
	case "Price":
		return priceMessages[action], true
	case "Quantity":
		return quantityMessages[action], true
	default:
		return msgInvalidStatus, true
	}
}

// buildProductInput assembles the service input from the validated form plus
// the optional free-form fields, tracking key presence for patch semantics.
func buildProductInput(form productForm, values map[string][]string) services.ProductInput {
	input := services.ProductInput{
		Price:    form.Price,
		Quantity: form.Quantity,
	}
	status, _ := models.ParseInventoryStatus(*form.InventoryStatus)
	input.InventoryStatus = &status

	if v, ok := formValue(values, "code"); ok {
		input.Code = &v
	}
	if v, ok := formValue(values, "name"); ok {
		input.Name = &v
	}
	if v, ok := formValue(values, "description"); ok {
		input.Description = &v
	}
	if v, ok := formValue(values, "category"); ok {
		input.Category = &v
	}
	if v, ok := formValue(values, "internalReference"); ok {
		input.InternalReference = &v
	}
	if raw, ok := formValue(values, "shellId"); ok {
		if v, err := strconv.ParseInt(raw, 10, 64); err == nil {
			input.ShellID = &v
		}
	}
	if raw, ok := formValue(values, "rating"); ok {
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			input.Rating = &v
		}
	}
	return input
}
