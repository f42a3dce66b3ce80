package controller

import (
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-svea/app/factory"
	"github.com/vibast-solutions/ms-go-svea/app/mapper"
	"github.com/vibast-solutions/ms-go-svea/app/service"
	"github.com/vibast-solutions/ms-go-svea/app/svea"
	"github.com/vibast-solutions/ms-go-svea/app/types"
	"github.com/vibast-solutions/ms-go-svea/config"
)

type PaymentController struct {
	paymentService *service.PaymentService
	storefront     config.StorefrontConfig
	logger         logrus.FieldLogger
}

func NewPaymentController(paymentService *service.PaymentService, storefront config.StorefrontConfig) *PaymentController {
	return &PaymentController{
		paymentService: paymentService,
		storefront:     storefront,
		logger:         factory.NewModuleLogger("payments-controller"),
	}
}

func (c *PaymentController) Health(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, &types.HealthResponse{Status: "ok"})
}

func (c *PaymentController) CreatePayment(ctx echo.Context) error {
	req, err := types.NewCreatePaymentRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	record, form, err := c.paymentService.CreatePayment(ctx.Request().Context(), req.ToOrder())
	if err != nil {
		var validationErr *svea.ValidationError
		switch {
		case errors.As(err, &validationErr):
			return c.writeError(ctx, http.StatusBadRequest, validationErr.Error())
		case errors.Is(err, service.ErrInvalidRequest):
			return c.writeError(ctx, http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrPaymentAlreadyExists):
			return c.writeError(ctx, http.StatusConflict, err.Error())
		default:
			c.logger.WithError(err).Error("Create payment failed")
			return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
		}
	}

	return ctx.JSON(http.StatusCreated, mapper.RedirectFormToAPI(record, form))
}

func (c *PaymentController) GetPayments(ctx echo.Context) error {
	req, err := types.NewGetPaymentsRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	items, err := c.paymentService.GetPayments(ctx.Request().Context(), req.OrderID)
	if err != nil {
		c.logger.WithError(err).Error("Get payments failed")
		return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
	}
	if len(items) == 0 {
		return c.writeError(ctx, http.StatusNotFound, "no payments for order")
	}

	return ctx.JSON(http.StatusOK, &types.ListPaymentsResponse{Payments: mapper.PaymentsToAPI(items)})
}

// HandleReturn serves the four gateway return endpoints. The action is fixed
// by the registered route; the query string travels to the service verbatim
// because hash verification depends on parameter arrival order.
func (c *PaymentController) HandleReturn(action svea.ReturnAction) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		rawQuery := ctx.Request().URL.RawQuery
		if rawQuery == "" && ctx.Request().Method == http.MethodPost {
			body, err := io.ReadAll(ctx.Request().Body)
			if err != nil {
				return c.writeError(ctx, http.StatusBadRequest, "invalid request body")
			}
			rawQuery = string(body)
		}

		record, result, err := c.paymentService.HandleReturn(ctx.Request().Context(), action, rawQuery)
		if err != nil {
			switch {
			case errors.Is(err, service.ErrInvalidRequest):
				return c.writeError(ctx, http.StatusBadRequest, err.Error())
			case errors.Is(err, service.ErrPaymentNotFound):
				return c.writeError(ctx, http.StatusNotFound, "payment not found")
			default:
				c.logger.WithError(err).Error("Handle return callback failed")
				return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
			}
		}

		outcome := &types.ReturnOutcomeResponse{
			Status:      mapper.PaymentToAPI(record).Status,
			Message:     result.Message,
			RedirectURL: c.redirectFor(result),
		}
		return ctx.JSON(http.StatusOK, outcome)
	}
}

func (c *PaymentController) CheckPayment(ctx echo.Context) error {
	req, err := types.NewGetPaymentsRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	record, err := c.paymentService.CheckOrder(ctx.Request().Context(), req.OrderID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPaymentNotFound):
			return c.writeError(ctx, http.StatusNotFound, "payment not found")
		default:
			c.logger.WithError(err).Error("Status query failed")
			return c.writeError(ctx, http.StatusBadGateway, "status query failed")
		}
	}

	return ctx.JSON(http.StatusOK, &types.PaymentEnvelopeResponse{Payment: mapper.PaymentToAPI(record)})
}

func (c *PaymentController) ConfirmDelivery(ctx echo.Context) error {
	req, err := types.NewConfirmDeliveryRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	err = c.paymentService.ConfirmDelivery(ctx.Request().Context(), req.OrderID, req.DeliveryMethod, req.TrackingCode)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPaymentNotFound):
			return c.writeError(ctx, http.StatusNotFound, "payment not found")
		case errors.Is(err, service.ErrInvalidTransition):
			return c.writeError(ctx, http.StatusConflict, err.Error())
		default:
			c.logger.WithError(err).Error("Confirm delivery failed")
			return c.writeError(ctx, http.StatusBadGateway, "delivery confirmation failed")
		}
	}

	return ctx.JSON(http.StatusOK, &types.MessageResponse{Message: "Delivery confirmed"})
}

func (c *PaymentController) redirectFor(result *svea.ReturnResult) string {
	switch result.Action {
	case svea.ReturnOK:
		return c.storefront.PaidRedirectURL
	case svea.ReturnDelay:
		return c.storefront.PendingRedirectURL
	default:
		return c.storefront.FailedRedirectURL
	}
}

func (c *PaymentController) writeError(ctx echo.Context, statusCode int, message string) error {
	return ctx.JSON(statusCode, &types.ErrorResponse{Error: message})
}
