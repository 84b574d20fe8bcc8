package controller

import (
	"errors"

	"ar-session-core/internal/dto"
	"ar-session-core/internal/host"
	"ar-session-core/internal/pkg/serverutils"
	"ar-session-core/internal/service"
	"ar-session-core/pkg/geo"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

type ISessionController interface {
	RegisterRoutes(r fiber.Router, middleware ...fiber.Handler)
	Create(ctx *fiber.Ctx) error
	Get(ctx *fiber.Ctx) error
	SurfaceCreate(ctx *fiber.Ctx) error
	Resume(ctx *fiber.Ctx) error
	Pause(ctx *fiber.Ctx) error
	Destroy(ctx *fiber.Ctx) error
	Dispose(ctx *fiber.Ctx) error
	SubmitJob(ctx *fiber.Ctx) error
	AnswerPermissions(ctx *fiber.Ctx) error
	PushFix(ctx *fiber.Ctx) error
}

type sessionController struct {
	service  service.ISessionService
	validate *validator.Validate
}

func NewSessionController(service service.ISessionService) ISessionController {
	return &sessionController{
		service:  service,
		validate: validator.New(),
	}
}

func (c *sessionController) RegisterRoutes(r fiber.Router, middleware ...fiber.Handler) {
	h := r.Group("/sessions", middleware...)
	h.Post("/", c.Create)
	h.Get("/:id", c.Get)
	h.Delete("/:id", c.Dispose)
	h.Post("/:id/surface", c.SurfaceCreate)
	h.Post("/:id/resume", c.Resume)
	h.Post("/:id/pause", c.Pause)
	h.Post("/:id/destroy", c.Destroy)
	h.Post("/:id/jobs", c.SubmitJob)
	h.Post("/:id/permissions", c.AnswerPermissions)
	h.Post("/:id/fixes", c.PushFix)
}

func (c *sessionController) Create(ctx *fiber.Ctx) error {
	var req dto.CreateSessionRequest
	if len(ctx.Body()) > 0 {
		if err := ctx.BodyParser(&req); err != nil {
			return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "invalid request body"))
		}
	}

	res, err := c.service.Create(ctx.UserContext(), req)
	if err != nil {
		return c.fail(ctx, err)
	}
	return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse(res))
}

func (c *sessionController) Get(ctx *fiber.Ctx) error {
	res, err := c.service.Get(ctx.UserContext(), ctx.Params("id"))
	if err != nil {
		return c.fail(ctx, err)
	}
	return ctx.JSON(serverutils.SuccessResponse(res))
}

func (c *sessionController) SurfaceCreate(ctx *fiber.Ctx) error {
	res, err := c.service.SurfaceCreate(ctx.UserContext(), ctx.Params("id"))
	if err != nil {
		return c.fail(ctx, err)
	}
	return ctx.JSON(serverutils.SuccessResponse(res))
}

func (c *sessionController) Resume(ctx *fiber.Ctx) error {
	res, err := c.service.Resume(ctx.UserContext(), ctx.Params("id"))
	if err != nil {
		return c.fail(ctx, err)
	}
	return ctx.JSON(serverutils.SuccessResponse(res))
}

func (c *sessionController) Pause(ctx *fiber.Ctx) error {
	res, err := c.service.Pause(ctx.UserContext(), ctx.Params("id"))
	if err != nil {
		return c.fail(ctx, err)
	}
	return ctx.JSON(serverutils.SuccessResponse(res))
}

func (c *sessionController) Destroy(ctx *fiber.Ctx) error {
	res, err := c.service.Destroy(ctx.UserContext(), ctx.Params("id"))
	if err != nil {
		return c.fail(ctx, err)
	}
	return ctx.JSON(serverutils.SuccessResponse(res))
}

func (c *sessionController) Dispose(ctx *fiber.Ctx) error {
	if err := c.service.Dispose(ctx.UserContext(), ctx.Params("id")); err != nil {
		return c.fail(ctx, err)
	}
	return ctx.SendStatus(fiber.StatusNoContent)
}

func (c *sessionController) SubmitJob(ctx *fiber.Ctx) error {
	var req dto.SubmitJobRequest
	if err := c.parse(ctx, &req); err != nil {
		return err
	}

	res, err := c.service.SubmitJob(ctx.UserContext(), ctx.Params("id"), req)
	if err != nil {
		return c.fail(ctx, err)
	}
	return ctx.Status(fiber.StatusAccepted).JSON(serverutils.SuccessResponse(res))
}

func (c *sessionController) AnswerPermissions(ctx *fiber.Ctx) error {
	var req dto.PermissionAnswerRequest
	if err := c.parse(ctx, &req); err != nil {
		return err
	}

	res, err := c.service.AnswerPermissions(ctx.UserContext(), ctx.Params("id"), req)
	if err != nil {
		return c.fail(ctx, err)
	}
	return ctx.JSON(serverutils.SuccessResponse(res))
}

func (c *sessionController) PushFix(ctx *fiber.Ctx) error {
	var req dto.FixRequest
	if err := c.parse(ctx, &req); err != nil {
		return err
	}

	fix := geo.Fix{Latitude: *req.Latitude, Longitude: *req.Longitude, Altitude: req.Altitude}
	res, err := c.service.PushFix(ctx.UserContext(), ctx.Params("id"), fix)
	if err != nil {
		return c.fail(ctx, err)
	}
	return ctx.JSON(serverutils.SuccessResponse(res))
}

// parse binds and validates the body. Errors are *fiber.Error values rendered by
// serverutils.ErrorHandlerMiddleware.
func (c *sessionController) parse(ctx *fiber.Ctx, req interface{}) error {
	if err := ctx.BodyParser(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := c.validate.Struct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return nil
}

func (c *sessionController) fail(ctx *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		return ctx.Status(fiber.StatusNotFound).JSON(serverutils.ErrorResponse(404, err.Error()))
	case errors.Is(err, host.ErrNoPendingRequest):
		return ctx.Status(fiber.StatusConflict).JSON(serverutils.ErrorResponse(409, err.Error()))
	case errors.Is(err, host.ErrLooperStopped):
		return ctx.Status(fiber.StatusGone).JSON(serverutils.ErrorResponse(410, err.Error()))
	default:
		return ctx.Status(fiber.StatusInternalServerError).JSON(serverutils.ErrorResponse(500, err.Error()))
	}
}
