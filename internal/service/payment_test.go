package service

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/deppfellow/memberships/internal/errs"
	"github.com/deppfellow/memberships/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordPayment(t *testing.T) {
	members := &fakeMembers{members: []model.Member{member(1, "ana", "Lima", nil)}}
	payments := &fakePayments{}
	svc := NewPaymentService(members, payments, func() time.Time { return testNow })

	p, err := svc.Record(context.Background(), RecordPaymentInput{
		CPF:       "529.982.247-21",
		Amount:    decimal.RequireFromString("120.005"),
		Reference: " pix-123 ",
	})
	require.NoError(t, err)

	assert.Equal(t, int64(1), p.MemberID)
	assert.True(t, p.PaidAt.Equal(testNow))
	assert.Equal(t, "120.01", p.Amount.StringFixed(2))
	assert.Equal(t, "pix-123", p.Reference)
	assert.Len(t, payments.payments, 1)
}

func TestRecordPaymentUnknownMember(t *testing.T) {
	svc := NewPaymentService(&fakeMembers{}, &fakePayments{}, time.Now)

	_, err := svc.Record(context.Background(), RecordPaymentInput{Email: "nobody@example.com", Amount: decimal.NewFromInt(10)})

	var httpErr *errs.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusNotFound, httpErr.Status)
}

func TestRecordPaymentNeedsIdentification(t *testing.T) {
	svc := NewPaymentService(&fakeMembers{}, &fakePayments{}, time.Now)

	_, err := svc.Record(context.Background(), RecordPaymentInput{Amount: decimal.NewFromInt(10)})

	var httpErr *errs.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusBadRequest, httpErr.Status)
}
