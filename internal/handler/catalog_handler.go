package handler

import (
	"encoding/json"

	"go-polyglot-store/internal/service"

	"github.com/gofiber/fiber/v2"
)

// Query keys with a fixed meaning; every other key filters on a spec attribute.
var reservedCatalogParams = map[string]bool{
	"page":      true,
	"page_size": true,
	"q":         true,
	"cat":       true,
}

type CatalogHandler struct {
	service service.CatalogService
}

func NewCatalogHandler(s service.CatalogService) *CatalogHandler {
	return &CatalogHandler{service: s}
}

// GetProducts returns one storefront page
// GET /api/v1/products?page=&q=&cat=&<attribute>=<value>...
func (h *CatalogHandler) GetProducts(c *fiber.Ctx) error {
	query := service.CatalogQuery{
		Page:     c.QueryInt("page", 1),
		PageSize: c.QueryInt("page_size", 0),
		Search:   c.Query("q"),
		Category: c.Query("cat"),
		Specs:    map[string][]string{},
	}

	c.Context().QueryArgs().VisitAll(func(key, value []byte) {
		k := string(key)
		if reservedCatalogParams[k] || len(value) == 0 {
			return
		}
		query.Specs[k] = append(query.Specs[k], string(value))
	})

	page, err := h.service.GetCatalog(c.UserContext(), query)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(page)
}

// GetProduct returns a single product with its stock
// GET /api/v1/products/:id
func (h *CatalogHandler) GetProduct(c *fiber.Ctx) error {
	view, err := h.service.GetProductDetails(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(view)
}

// GetFacets returns the filter sidebar for a category
// GET /api/v1/facets?cat=
func (h *CatalogHandler) GetFacets(c *fiber.Ctx) error {
	facets, err := h.service.GetFacets(c.UserContext(), c.Query("cat"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(facets)
}

// ListProducts is the admin product table
// GET /api/v1/admin/products?page=&q=
func (h *CatalogHandler) ListProducts(c *fiber.Ctx) error {
	page, err := h.service.ListForAdmin(c.UserContext(), c.QueryInt("page", 1), c.Query("q"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(page)
}

type CreateProductRequest struct {
	service.CreateProductInput
	Stock int `json:"stock"`
}

// CreateProduct adds a product to both stores
// POST /api/v1/admin/products
func (h *CatalogHandler) CreateProduct(c *fiber.Ctx) error {
	var req CreateProductRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
	}

	view, err := h.service.Create(c.UserContext(), req.CreateProductInput, req.Stock)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(201).JSON(fiber.Map{"message": "Product created", "data": view})
}

type UpdateFieldRequest struct {
	Field string          `json:"field"`
	Value json.RawMessage `json:"value"`
}

// UpdateProduct applies a single-field inline edit
// PATCH /api/v1/admin/products/:id
func (h *CatalogHandler) UpdateProduct(c *fiber.Ctx) error {
	var req UpdateFieldRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
	}
	if req.Field == "" || len(req.Value) == 0 {
		return c.Status(400).JSON(fiber.Map{"error": "field and value are required"})
	}

	value, err := rawValue(req.Value)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "value must be a string or a number"})
	}

	updated, err := h.service.Update(c.UserContext(), c.Params("id"), req.Field, value)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Product updated", "field": req.Field, "value": updated})
}

// rawValue accepts a JSON string or number and returns its text form.
func rawValue(raw json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", err
	}
	return n.String(), nil
}

// DeleteProduct removes a product from both stores
// DELETE /api/v1/admin/products/:id
func (h *CatalogHandler) DeleteProduct(c *fiber.Ctx) error {
	if err := h.service.Delete(c.UserContext(), c.Params("id")); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Product deleted", "id": c.Params("id")})
}
