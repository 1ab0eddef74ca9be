package translate

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/wah4pc/interop/internal/platform/decision"
	"github.com/wah4pc/interop/internal/platform/middleware"
	"github.com/wah4pc/interop/internal/platform/router"
	"github.com/wah4pc/interop/internal/platform/toolbox"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/translate", h.Translate)
}

// Translate handles POST /api/translate.
func (h *Handler) Translate(c echo.Context) error {
	var env Envelope
	if err := c.Bind(&env); err != nil {
		return fail(c, http.StatusBadRequest, "request body is not a valid translation envelope")
	}
	if err := env.Validate(); err != nil {
		return fail(c, http.StatusBadRequest, err.Error())
	}

	patient, err := h.svc.Translate(c.Request().Context(), middleware.GetRequestID(c), &env)
	if err != nil {
		return fail(c, statusFor(err), err.Error())
	}

	return c.JSON(http.StatusOK, Response{
		Status:         "success",
		TranslatedData: patient,
	})
}

// statusFor maps pipeline failures onto HTTP statuses. Bad input from the
// caller's side of the trust boundary is 400; the gateway's own
// dependencies failing are 500 or, for delivery transport, 502.
func statusFor(err error) int {
	switch {
	case errors.Is(err, toolbox.ErrUnknownTool),
		errors.Is(err, toolbox.ErrArgumentMismatch),
		errors.Is(err, toolbox.ErrMalformedSource):
		return http.StatusBadRequest
	case errors.Is(err, router.ErrTransport):
		return http.StatusBadGateway
	case errors.Is(err, decision.ErrDecisionService),
		errors.Is(err, ErrValidation):
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

func fail(c echo.Context, status int, message string) error {
	return c.JSON(status, Response{
		Status:       "error",
		ErrorMessage: message,
	})
}
