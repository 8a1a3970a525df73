package handler

import (
	"time"

	"github.com/deppfellow/memberships/internal/model"
	"github.com/deppfellow/memberships/internal/server"
	"github.com/deppfellow/memberships/internal/service"
	"github.com/deppfellow/memberships/internal/validation"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

type PaymentHandler struct {
	Handler
	payments *service.PaymentService
}

func NewPaymentHandler(s *server.Server, payments *service.PaymentService) *PaymentHandler {
	return &PaymentHandler{
		Handler:  NewHandler(s),
		payments: payments,
	}
}

// RecordPaymentRequest is the payment webhook body. The member is found by
// email or CPF.
type RecordPaymentRequest struct {
	Email     string          `json:"email" validate:"omitempty,email"`
	CPF       string          `json:"cpf" validate:"omitempty,cpf"`
	Amount    decimal.Decimal `json:"amount"`
	PaidAt    *time.Time      `json:"paid_at"`
	Reference string          `json:"reference" validate:"max=255"`
}

func (r *RecordPaymentRequest) Validate() error {
	if err := validation.Struct(r); err != nil {
		return err
	}
	if r.Amount.IsNegative() {
		return validation.CustomValidationErrors{
			{Field: "amount", Message: "deve ser maior ou igual a zero"},
		}
	}
	return nil
}

func (h *PaymentHandler) Record(c echo.Context, req *RecordPaymentRequest) (*model.Payment, error) {
	return h.payments.Record(c.Request().Context(), service.RecordPaymentInput{
		Email:     req.Email,
		CPF:       req.CPF,
		Amount:    req.Amount,
		PaidAt:    req.PaidAt,
		Reference: req.Reference,
	})
}
