package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"momo-gateway/internal/models"
	"momo-gateway/internal/services"
	"momo-gateway/internal/utils"
	"momo-gateway/internal/validators"
	"momo-gateway/pkg/collections"
	"momo-gateway/pkg/logger"
	"momo-gateway/pkg/msisdn"
)

type PaymentHandler struct {
	paymentService services.PaymentService
	logger         *logger.Logger
}

func NewPaymentHandler(paymentService services.PaymentService, log *logger.Logger) *PaymentHandler {
	if log == nil {
		log = logger.Discard()
	}
	return &PaymentHandler{
		paymentService: paymentService,
		logger:         log.WithComponent("payment_handler"),
	}
}

// RequestPayment asks the payer's wallet to approve a debit
func (h *PaymentHandler) RequestPayment(c *gin.Context) {
	var request models.PaymentRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, utils.ErrInvalidBody+": "+err.Error())
		return
	}

	payment, err := h.paymentService.RequestPayment(c.Request.Context(), &request)
	if err != nil {
		h.respondError(c, err)
		return
	}

	utils.AcceptedResponse(c, "Payment requested", models.NewPaymentResponse(payment))
}

// GetPayment returns the stored payment; ?refresh=true polls the gateway first
func (h *PaymentHandler) GetPayment(c *gin.Context) {
	referenceID := c.Param("id")
	if !validators.IsValidReferenceID(referenceID) {
		utils.BadRequestResponse(c, "Invalid reference id")
		return
	}

	var (
		payment *models.Payment
		err     error
	)
	if c.Query("refresh") == "true" {
		payment, err = h.paymentService.RefreshStatus(c.Request.Context(), referenceID)
	} else {
		payment, err = h.paymentService.GetPayment(c.Request.Context(), referenceID)
	}
	if err != nil {
		h.respondError(c, err)
		return
	}

	utils.SuccessResponse(c, "Payment retrieved", models.NewPaymentResponse(payment))
}

func (h *PaymentHandler) GetBalance(c *gin.Context) {
	balance, err := h.paymentService.Balance(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}

	utils.SuccessResponse(c, "Balance retrieved", balance)
}

// HandleCallback receives the settlement notice the gateway sends to
// X-Callback-Url. Unknown payments are acknowledged so the gateway stops
// retrying.
func (h *PaymentHandler) HandleCallback(c *gin.Context) {
	var callback models.Callback
	if err := c.ShouldBindJSON(&callback); err != nil {
		utils.BadRequestResponse(c, utils.ErrInvalidBody+": "+err.Error())
		return
	}

	payment, err := h.paymentService.ApplyCallback(c.Request.Context(), &callback)
	if services.IsNotFound(err) {
		h.logger.WithContext(c.Request.Context()).WithReferenceID(callback.ExternalID).Warn("callback for unknown payment")
		utils.SuccessResponse(c, "Callback ignored", nil)
		return
	}
	if err != nil {
		h.respondError(c, err)
		return
	}

	utils.SuccessResponse(c, "Callback applied", models.NewPaymentResponse(payment))
}

func (h *PaymentHandler) respondError(c *gin.Context, err error) {
	var (
		validationErrs validators.ValidationErrors
		numberErr      *msisdn.ValidationError
		configErr      *collections.ConfigurationError
		currencyErr    *collections.UnknownCurrencyError
		authErr        *collections.AuthorizationError
		operationErr   *collections.OperationError
		statusErr      *collections.UnknownStatusError
	)

	switch {
	case errors.As(err, &validationErrs):
		utils.ValidationErrorResponse(c, validationErrs.Details())
	case errors.As(err, &numberErr):
		utils.ValidationErrorResponse(c, map[string]string{"mobile_number": numberErr.Error()})
	case errors.As(err, &currencyErr), errors.Is(err, validators.ErrInvalidAmount):
		utils.BadRequestResponse(c, err.Error())
	case errors.As(err, &configErr):
		utils.ErrorResponse(c, http.StatusBadRequest, utils.CodeConfigurationError, configErr.Error())
	case services.IsNotFound(err):
		utils.NotFoundResponse(c, utils.ErrPaymentNotFound)
	case errors.As(err, &authErr):
		h.logger.WithContext(c.Request.Context()).WithError(err).Error("gateway authorization failed")
		utils.BadGatewayResponse(c, utils.CodeGatewayAuthError, utils.ErrGatewayAuth)
	case errors.As(err, &operationErr), errors.As(err, &statusErr):
		h.logger.WithContext(c.Request.Context()).WithError(err).Warn("gateway request failed")
		utils.BadGatewayResponse(c, utils.CodeGatewayError, utils.ErrGatewayFailure)
	default:
		h.logger.WithContext(c.Request.Context()).WithError(err).Error("unexpected error")
		utils.InternalServerErrorResponse(c)
	}
}
