package service

import (
	"time"

	"github.com/deppfellow/memberships/internal/dues"
	"github.com/deppfellow/memberships/internal/lib/job"
	"github.com/deppfellow/memberships/internal/lib/session"
	"github.com/deppfellow/memberships/internal/repository"
	"github.com/deppfellow/memberships/internal/server"
)

type Services struct {
	Auth     *AuthService
	Members  *MemberService
	Payments *PaymentService
	Job      *job.JobService
}

func NewService(s *server.Server, repos *repository.Repositories) (*Services, error) {
	membership := s.Config.Membership
	policy := dues.NewPolicy(membership.DuesValidityDays, membership.Location())
	sessions := session.NewStore(s.Redis, s.Config.Auth.SessionTTL)

	members := NewMemberService(repos.Members, repos.Categories, repos.Payments, policy, membership.PageSize, time.Now)

	return &Services{
		Auth:     NewAuthService(repos.Users, sessions, s.Job, s.Logger),
		Members:  members,
		Payments: NewPaymentService(repos.Members, repos.Payments, time.Now),
		Job:      s.Job,
	}, nil
}
