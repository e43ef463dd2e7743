package handler

import (
	"errors"
	"log"
	"strconv"

	"go-polyglot-store/internal/model"

	"github.com/gofiber/fiber/v2"
)

// respondError maps the service error taxonomy onto HTTP statuses.
func respondError(c *fiber.Ctx, err error) error {
	var oos *model.OutOfStockError
	switch {
	case errors.As(err, &oos):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error":      err.Error(),
			"product_id": oos.ProductID,
			"requested":  oos.Requested,
			"available":  oos.Available,
		})
	case errors.Is(err, model.ErrOutOfStock):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, model.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Not found"})
	case errors.Is(err, model.ErrMalformedInput):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	log.Printf("%s %s failed: %v", c.Method(), c.Path(), err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal server error"})
}

func parseOrderID(c *fiber.Ctx) (uint, bool) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}
