package handlers

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/lromero/commerce-api/internal/domain"
	"github.com/lromero/commerce-api/internal/middleware"
	"github.com/lromero/commerce-api/internal/models"
)

const defaultListLimit = 10

// ProductStore is the slice of the product DAO the handlers need.
type ProductStore interface {
	GetAllProducts(ctx context.Context, q models.ProductQuery) (models.ProductPage, error)
	GetProductByID(ctx context.Context, id string) (models.Product, error)
	CreateProduct(ctx context.Context, session models.Session, in models.ProductInput) (models.Product, error)
	UpdateProduct(ctx context.Context, id string, patch map[string]any) error
	DeleteProduct(ctx context.Context, session models.Session, id string) error
}

type ProductHandler struct {
	products ProductStore
}

func NewProductHandler(products ProductStore) *ProductHandler {
	return &ProductHandler{products: products}
}

func (h *ProductHandler) List(c *fiber.Ctx) error {
	query := models.ProductQuery{
		Limit:    c.QueryInt("limit", defaultListLimit),
		Page:     c.QueryInt("page", 1),
		Sort:     c.Query("sort", "none"),
		Category: c.Query("category"),
	}

	page, err := h.products.GetAllProducts(c.Context(), query)
	if err != nil {
		return serverError(c, err, "list products")
	}
	return c.JSON(page)
}

func (h *ProductHandler) Get(c *fiber.Ctx) error {
	product, err := h.products.GetProductByID(c.Context(), c.Params("pid"))
	if errors.Is(err, domain.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Product not found"})
	}
	if err != nil {
		return serverError(c, err, "get product")
	}
	return c.JSON(product)
}

func (h *ProductHandler) Create(c *fiber.Ctx) error {
	session, ok := middleware.SessionFrom(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Missing session"})
	}

	var input models.ProductInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	product, err := h.products.CreateProduct(c.Context(), session, input)
	switch {
	case errors.Is(err, domain.ErrValidation):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, domain.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "User has no permissions"})
	case err != nil:
		return serverError(c, err, "create product")
	}
	return c.Status(fiber.StatusCreated).JSON(product)
}

func (h *ProductHandler) Update(c *fiber.Ctx) error {
	session, ok := middleware.SessionFrom(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Missing session"})
	}
	if session.Role != models.RolePremium && session.Role != models.RoleAdmin {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "User has no permissions"})
	}

	patch := map[string]any{}
	if err := c.BodyParser(&patch); err != nil || len(patch) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	// Identity and ownership are never patchable.
	delete(patch, "_id")
	delete(patch, "id")
	delete(patch, "owner")

	err := h.products.UpdateProduct(c.Context(), c.Params("pid"), patch)
	if errors.Is(err, domain.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Product not found"})
	}
	if err != nil {
		return serverError(c, err, "update product")
	}
	return c.JSON(fiber.Map{"status": "success", "message": "Product updated"})
}

func (h *ProductHandler) Delete(c *fiber.Ctx) error {
	session, ok := middleware.SessionFrom(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Missing session"})
	}

	err := h.products.DeleteProduct(c.Context(), session, c.Params("pid"))
	switch {
	case errors.Is(err, domain.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Unauthorized to delete this product"})
	case errors.Is(err, domain.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Product not found"})
	case err != nil:
		return serverError(c, err, "delete product")
	}
	return c.JSON(fiber.Map{"status": "success", "message": "Product deleted"})
}
