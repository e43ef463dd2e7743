package handler

import (
	"go-polyglot-store/internal/model"
	"go-polyglot-store/internal/service"
	"go-polyglot-store/pkg/validator"

	"github.com/gofiber/fiber/v2"
)

type OrderHandler struct {
	service service.OrderService
}

func NewOrderHandler(s service.OrderService) *OrderHandler {
	return &OrderHandler{service: s}
}

type CheckoutRequest struct {
	Customer service.CustomerInfo `json:"customer"`
	Items    []service.LineItem   `json:"items"`
}

// Checkout places an order for the submitted cart
// POST /api/v1/checkout
func (h *OrderHandler) Checkout(c *fiber.Ctx) error {
	var req CheckoutRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
	}

	if errs := validator.ValidateStruct(&req.Customer); len(errs) > 0 {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid customer details: " + errs[0].String()})
	}

	order, err := h.service.CreateOrder(c.UserContext(), req.Customer, req.Items)
	if err != nil {
		return respondError(c, err)
	}
	if order == nil {
		return c.Status(400).JSON(fiber.Map{"error": "Cart is empty"})
	}

	return c.Status(201).JSON(fiber.Map{"message": "Order placed", "data": order})
}

// GetOrder returns an order with current product display data
// GET /api/v1/orders/:id
func (h *OrderHandler) GetOrder(c *fiber.Ctx) error {
	id, ok := parseOrderID(c)
	if !ok {
		return c.Status(404).JSON(fiber.Map{"error": "Not found"})
	}

	details, err := h.service.GetOrderWithDetails(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(details)
}

// ListOrders is the admin order table
// GET /api/v1/admin/orders?q=
func (h *OrderHandler) ListOrders(c *fiber.Ctx) error {
	orders, err := h.service.GetOrders(c.UserContext(), c.Query("q"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"data": orders, "count": len(orders)})
}

type UpdateStatusRequest struct {
	Status model.OrderStatus `json:"status"`
}

// UpdateOrderStatus overwrites the order status
// PATCH /api/v1/admin/orders/:id/status
func (h *OrderHandler) UpdateOrderStatus(c *fiber.Ctx) error {
	id, ok := parseOrderID(c)
	if !ok {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid order ID"})
	}

	var req UpdateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
	}

	order, err := h.service.UpdateStatus(c.UserContext(), id, req.Status)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Status updated", "data": order})
}
