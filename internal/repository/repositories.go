package repository

import (
	"github.com/deppfellow/memberships/internal/server"
)

// Repositories groups every repository so services receive one value.
type Repositories struct {
	Users      *UserRepository
	Categories *CategoryRepository
	Members    *MemberRepository
	Payments   *PaymentRepository
}

// NewRepositories builds the repositories on the server's pool.
func NewRepositories(s *server.Server) *Repositories {
	pool := s.DB.Pool
	tz := s.Config.Membership.Timezone

	return &Repositories{
		Users:      NewUserRepository(pool),
		Categories: NewCategoryRepository(pool),
		Members:    NewMemberRepository(pool, tz),
		Payments:   NewPaymentRepository(pool),
	}
}
