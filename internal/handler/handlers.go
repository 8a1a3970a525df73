package handler

import (
	"github.com/deppfellow/memberships/internal/server"
	"github.com/deppfellow/memberships/internal/service"
)

// Handlers groups every HTTP handler so the router gets a single object.
type Handlers struct {
	Health  *HealthHandler
	OpenAPI *OpenAPIHandler
	Auth    *AuthHandler
	Member  *MemberHandler
	Payment *PaymentHandler
	Emails  *EmailPreviewHandler
}

func NewHandlers(s *server.Server, services *service.Services) *Handlers {
	return &Handlers{
		Health:  NewHealthHandler(s),
		OpenAPI: NewOpenAPIHandler(s),
		Auth:    NewAuthHandler(s, services.Auth),
		Member:  NewMemberHandler(s, services.Members),
		Payment: NewPaymentHandler(s, services.Payments),
		Emails:  NewEmailPreviewHandler(s),
	}
}
