package routes

import (
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/vaultpay/vaultpay/internal/fault"
	"github.com/vaultpay/vaultpay/internal/identity"
)

// RegisterIdentityRoutes wires user registration and lookup endpoints.
func RegisterIdentityRoutes(r fiber.Router, ids *identity.Service, logger *slog.Logger) {
	r.Post("/users", func(c *fiber.Ctx) error {
		var req struct {
			Email string `json:"email"`
		}
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
		user, err := ids.Register(c.UserContext(), req.Email)
		if err != nil {
			switch fault.KindOf(err) {
			case fault.InvalidArgument:
				return fiber.NewError(http.StatusBadRequest, err.Error())
			case fault.Conflict:
				return fiber.NewError(http.StatusConflict, err.Error())
			default:
				return fiber.NewError(http.StatusInternalServerError, "internal error")
			}
		}
		if logger != nil {
			logger.Info("user registered",
				slog.String("user_id", user.ID),
				slog.String("email", user.Email),
			)
		}
		return c.Status(http.StatusCreated).JSON(fiber.Map{
			"id":         user.ID,
			"email":      user.Email,
			"created_at": user.CreatedAt,
		})
	})

	r.Get("/users/:userId", func(c *fiber.Ctx) error {
		user, err := ids.Lookup(c.UserContext(), c.Params("userId"))
		if err != nil {
			switch fault.KindOf(err) {
			case fault.InvalidArgument:
				return fiber.NewError(http.StatusBadRequest, err.Error())
			case fault.NotFound:
				return fiber.NewError(http.StatusNotFound, err.Error())
			default:
				return fiber.NewError(http.StatusInternalServerError, "internal error")
			}
		}
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"id":         user.ID,
			"email":      user.Email,
			"created_at": user.CreatedAt,
		})
	})
}
