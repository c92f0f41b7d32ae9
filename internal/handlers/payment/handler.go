package payment

import (
	"io"
	"net/http"

	"estate/infras/otel"
	"estate/internal/domains/payment/model/dto"
	"estate/internal/domains/payment/service"
	"estate/shared/constant"
	"estate/shared/failure"
	"estate/shared/validator"
	"estate/transport/http/response"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// Webhook payloads are small JSON documents, a megabyte is generous.
const webhookMaxBody = 1 << 20

type Handler struct {
	service service.Payment
	otel    otel.Otel
}

func New(service service.Payment, otel otel.Otel) Handler {
	return Handler{
		service: service,
		otel:    otel,
	}
}

func (handler *Handler) Router(router chi.Router) {
	router.Route("/payments", func(routerGroup chi.Router) {
		routerGroup.Post("/", handler.InitiatePayment)
		routerGroup.Get("/{id}", handler.GetPaymentByID)
		routerGroup.Get("/{id}/verify", handler.VerifyPayment)
		routerGroup.Get("/booking/{id}", handler.GetPaymentsByBooking)
		routerGroup.Post("/webhook/{provider}", handler.HandleWebhook)
	})
}

// InitiatePayment starts a checkout for a booking.
// @Summary Initiate a payment
// @Description Start a checkout with the chosen payment provider and return the redirect URL.
// @Tags Payment
// @Accept json
// @Produce json
// @Param request body dto.InitiatePaymentRequest true "Initiate Payment Request"
// @Success 201 {object} dto.InitiatePaymentResponse "Payment initiated successfully"
// @Failure 400 {object} response.Error
// @Failure 404 {object} response.Error
// @Failure 409 {object} response.Error
// @Failure 502 {object} response.Error
// @Router /v1/payments [post]
// @Security BearerAuth
func (handler *Handler) InitiatePayment(writer http.ResponseWriter, request *http.Request) {
	ctx, scope := handler.otel.NewScope(request.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".InitiatePayment")
	defer scope.End()

	req := dto.InitiatePaymentRequest{}

	if err := validator.Validate(request.Body, &req); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to validate request body")

		response.WithError(writer, err)

		return
	}

	payment, err := handler.service.Initiate(ctx, req)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to initiate payment")

		response.WithError(writer, err)

		return
	}

	user, _ := ctx.Value(constant.ContextKeyUserID).(string)
	scope.AddEvent("Payment initiated successfully by user " + user)

	response.WithJSON(writer, http.StatusCreated, payment)
}

// GetPaymentByID retrieves a payment by its ID.
// @Summary Get a payment by ID
// @Description Retrieve a payment. Non-administrators can only see their own payments.
// @Tags Payment
// @Accept json
// @Produce json
// @Param id path string true "Payment ID"
// @Success 200 {object} dto.PaymentResponse "Payment details"
// @Failure 403 {object} response.Error
// @Failure 404 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/payments/{id} [get]
// @Security BearerAuth
func (handler *Handler) GetPaymentByID(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".GetPaymentByID")
	defer scope.End()

	id := chi.URLParam(r, constant.RequestParamID)

	payment, err := handler.service.Get(ctx, id)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to get payment by ID")

		response.WithError(w, err)

		return
	}

	scope.AddEvent("Payment retrieved successfully")

	response.WithJSON(w, http.StatusOK, payment)
}

// VerifyPayment asks the provider whether the payment went through.
// @Summary Verify a payment
// @Description Query the provider for the payment's state. The answer is advisory, webhook reconciliation stays authoritative.
// @Tags Payment
// @Accept json
// @Produce json
// @Param id path string true "Payment ID"
// @Success 200 {object} map[string]bool "Verification result"
// @Failure 404 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/payments/{id}/verify [get]
// @Security BearerAuth
func (handler *Handler) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".VerifyPayment")
	defer scope.End()

	id := chi.URLParam(r, constant.RequestParamID)

	verified, err := handler.service.Verify(ctx, id)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to verify payment")

		response.WithError(w, err)

		return
	}

	scope.AddEvent("Payment verified")

	response.WithJSON(w, http.StatusOK, map[string]bool{"verified": verified})
}

// GetPaymentsByBooking retrieves all payment attempts for a booking.
// @Summary Get payments by booking
// @Description Retrieve every payment attempt made against a booking.
// @Tags Payment
// @Accept json
// @Produce json
// @Param id path string true "Booking ID"
// @Success 200 {object} dto.GetPaymentsResponse "List of payments"
// @Failure 403 {object} response.Error
// @Failure 404 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/payments/booking/{id} [get]
// @Security BearerAuth
func (handler *Handler) GetPaymentsByBooking(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".GetPaymentsByBooking")
	defer scope.End()

	id := chi.URLParam(r, constant.RequestParamID)

	payments, err := handler.service.GetByBooking(ctx, id)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to get payments by booking")

		response.WithError(w, err)

		return
	}

	scope.AddEvent("Payments retrieved successfully")

	response.WithJSON(w, http.StatusOK, payments)
}

// HandleWebhook receives asynchronous payment notifications from a provider.
// The route is unauthenticated, each provider authenticates its own payloads
// by signature or shared token instead.
// @Summary Handle a provider webhook
// @Description Reconcile a payment notification from a provider. Verification failures are rejected, duplicates acknowledged.
// @Tags Payment
// @Accept json
// @Produce json
// @Param provider path string true "Provider name"
// @Success 200 {object} response.Message "Webhook processed"
// @Failure 400 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/payments/webhook/{provider} [post]
func (handler *Handler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".HandleWebhook")
	defer scope.End()

	providerName := chi.URLParam(r, constant.RequestParamProvider)

	payload, err := io.ReadAll(io.LimitReader(r.Body, webhookMaxBody))
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to read webhook payload")

		response.WithError(w, failure.BadRequestFromString("unreadable webhook payload"))

		return
	}

	if err := handler.service.HandleWebhook(ctx, providerName, r.Header, payload); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Str("provider", providerName).Msg("failed to handle webhook")

		response.WithError(w, err)

		return
	}

	scope.AddEvent("Webhook processed for provider " + providerName)

	response.WithMessage(w, http.StatusOK, "Webhook processed")
}
