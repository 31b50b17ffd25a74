package handler

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"github.com/fekuna/omnipos-inventory-service/internal/inventory"
	"github.com/fekuna/omnipos-inventory-service/internal/inventory/dto"
	"github.com/fekuna/omnipos-inventory-service/internal/model"
	"github.com/fekuna/omnipos-inventory-service/internal/pkg/logger"
)

// HTTPHandler exposes the use case as a JSON API for the dashboard pages.
type HTTPHandler struct {
	uc     inventory.UseCase
	logger logger.ZapLogger
}

func NewHTTPHandler(uc inventory.UseCase, log logger.ZapLogger) *HTTPHandler {
	return &HTTPHandler{uc: uc, logger: log}
}

// NewHTTPApp builds a Fiber app with the inventory routes mounted under /api.
func NewHTTPApp(h *HTTPHandler) *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := httpStatus(err)
			var fe *fiber.Error
			if errors.As(err, &fe) {
				code = fe.Code
			}
			if code == fiber.StatusInternalServerError {
				h.logger.Error("http request failed",
					zap.String("method", c.Method()),
					zap.String("path", c.Path()),
					zap.Error(err),
				)
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
				"code":    code,
			})
		},
	})

	app.Use(recover.New())
	app.Use(h.requestLogger)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":    "ok",
			"timestamp": time.Now().Unix(),
		})
	})

	h.Register(app.Group("/api"))
	return app
}

func (h *HTTPHandler) Register(r fiber.Router) {
	items := r.Group("/items")
	items.Get("/", h.ListItems)
	items.Post("/", h.CreateItem)
	items.Get("/low-stock", h.LowStock)
	items.Patch("/:id", h.UpdateItem)
	items.Delete("/:id", h.DeleteItem)
	items.Get("/:id/transactions", h.ItemTransactions)
	items.Post("/:id/transactions", h.ApplyTransaction)
	items.Post("/:id/adjust", h.AdjustStock)

	txs := r.Group("/transactions")
	txs.Get("/", h.ListTransactions)
	txs.Get("/usage", h.UsageStats)

	r.Get("/dashboard", h.Dashboard)
	r.Get("/analytics", h.Analytics)
	r.Post("/reset", h.Reset)
}

func (h *HTTPHandler) requestLogger(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()
	h.logger.Debug("http request",
		zap.String("method", c.Method()),
		zap.String("path", c.Path()),
		zap.Int("status", c.Response().StatusCode()),
		zap.Duration("latency", time.Since(start)),
	)
	return err
}

// ListItems handles GET /api/items?q=term.
func (h *HTTPHandler) ListItems(c *fiber.Ctx) error {
	items, err := h.uc.SearchItems(c.UserContext(), c.Query("q"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"items": items})
}

func (h *HTTPHandler) LowStock(c *fiber.Ctx) error {
	items, err := h.uc.ListLowStock(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"items": items})
}

func (h *HTTPHandler) CreateItem(c *fiber.Ctx) error {
	var in dto.CreateItemInput
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	items, err := h.uc.CreateItem(c.UserContext(), &in)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"items": items})
}

func (h *HTTPHandler) UpdateItem(c *fiber.Ctx) error {
	var patch dto.ItemPatch
	if err := c.BodyParser(&patch); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	items, err := h.uc.UpdateItem(c.UserContext(), c.Params("id"), patch)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"items": items})
}

func (h *HTTPHandler) DeleteItem(c *fiber.Ctx) error {
	items, err := h.uc.DeleteItem(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"items": items})
}

// ApplyTransaction handles POST /api/items/:id/transactions with
// {"type": "usage", "amount": 5, "note": "..."}.
func (h *HTTPHandler) ApplyTransaction(c *fiber.Ctx) error {
	var change dto.StockChange
	if err := c.BodyParser(&change); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	change.ItemID = c.Params("id")
	item, tx, err := h.uc.ApplyTransaction(c.UserContext(), change)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"item":        item,
		"transaction": tx,
	})
}

func (h *HTTPHandler) AdjustStock(c *fiber.Ctx) error {
	var in struct {
		Delta int `json:"delta"`
	}
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	item, err := h.uc.AdjustStock(c.UserContext(), c.Params("id"), in.Delta)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"item": item})
}

func (h *HTTPHandler) ItemTransactions(c *fiber.Ctx) error {
	txs, err := h.uc.ListItemTransactions(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"transactions": txs})
}

func (h *HTTPHandler) ListTransactions(c *fiber.Ctx) error {
	txs, err := h.uc.ListTransactions(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"transactions": txs})
}

func (h *HTTPHandler) UsageStats(c *fiber.Ctx) error {
	txs, err := h.uc.UsageStats(c.UserContext(), c.QueryInt("days", 0))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"transactions": txs})
}

func (h *HTTPHandler) Dashboard(c *fiber.Ctx) error {
	stats, err := h.uc.Dashboard(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(stats)
}

func (h *HTTPHandler) Analytics(c *fiber.Ctx) error {
	report, err := h.uc.Analytics(c.UserContext(), c.QueryInt("days", 0))
	if err != nil {
		return err
	}
	return c.JSON(report)
}

func (h *HTTPHandler) Reset(c *fiber.Ctx) error {
	if err := h.uc.Reset(c.UserContext()); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Inventory data reset"})
}

func httpStatus(err error) int {
	switch {
	case model.IsValidation(err):
		return fiber.StatusBadRequest
	case errors.Is(err, model.ErrItemNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, model.ErrDuplicateItem), errors.Is(err, model.ErrDuplicateChange):
		return fiber.StatusConflict
	case errors.Is(err, model.ErrInsufficientStock):
		return fiber.StatusUnprocessableEntity
	default:
		return fiber.StatusInternalServerError
	}
}
