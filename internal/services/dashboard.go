package services

import (
	"fmt"
	"time"

	"github.com/mrlokans/bibliotheque/internal/database/books"
	"github.com/mrlokans/bibliotheque/internal/database/contacts"
	"github.com/mrlokans/bibliotheque/internal/database/loans"
	"github.com/mrlokans/bibliotheque/internal/database/reviews"
	"github.com/mrlokans/bibliotheque/internal/database/users"
	"github.com/mrlokans/bibliotheque/internal/database/wishlists"
	"github.com/mrlokans/bibliotheque/internal/entities"
)

const dashboardTop = 5

// DashboardStats is the back-office overview.
type DashboardStats struct {
	TotalBooks     int64                     `json:"total_books"`
	TotalUsers     int64                     `json:"total_users"`
	ActiveLoans    int64                     `json:"active_loans"`
	OverdueLoans   int64                     `json:"overdue_loans"`
	UnreadMessages int64                     `json:"unread_messages"`
	Popular        []entities.Book           `json:"popular_books"`
	TopBorrowed    []entities.BookTally      `json:"top_borrowed"`
	TopWishlisted  []entities.BookTally      `json:"top_wishlisted"`
	LatestLoans    []entities.Loan           `json:"latest_loans"`
	LatestMessages []entities.ContactMessage `json:"latest_messages"`
	LatestReviews  []entities.Review         `json:"latest_reviews"`
}

type DashboardService struct {
	books     *books.Repository
	users     *users.Repository
	loans     *loans.Repository
	contacts  *contacts.Repository
	reviews   *reviews.Repository
	wishlists *wishlists.Repository
	now       func() time.Time
}

func NewDashboardService(
	bookRepo *books.Repository,
	userRepo *users.Repository,
	loanRepo *loans.Repository,
	contactRepo *contacts.Repository,
	reviewRepo *reviews.Repository,
	wishlistRepo *wishlists.Repository,
) *DashboardService {
	return &DashboardService{
		books:     bookRepo,
		users:     userRepo,
		loans:     loanRepo,
		contacts:  contactRepo,
		reviews:   reviewRepo,
		wishlists: wishlistRepo,
		now:       time.Now,
	}
}

func (s *DashboardService) Stats() (*DashboardStats, error) {
	var (
		stats DashboardStats
		err   error
	)
	now := s.now()

	steps := []struct {
		name string
		run  func() error
	}{
		{"books", func() error { stats.TotalBooks, err = s.books.CountBooks(); return err }},
		{"users", func() error { stats.TotalUsers, err = s.users.CountUsers(); return err }},
		{"active loans", func() error { stats.ActiveLoans, err = s.loans.CountActive(); return err }},
		{"overdue loans", func() error { stats.OverdueLoans, err = s.loans.CountOverdue(now); return err }},
		{"unread messages", func() error { stats.UnreadMessages, err = s.contacts.CountUnreadFromUsers(); return err }},
		{"popular", func() error { stats.Popular, err = s.books.Popular(dashboardTop); return err }},
		{"top borrowed", func() error { stats.TopBorrowed, err = s.loans.TopBorrowed(dashboardTop); return err }},
		{"top wishlisted", func() error { stats.TopWishlisted, err = s.wishlists.TopWishlisted(dashboardTop); return err }},
		{"latest loans", func() error { stats.LatestLoans, err = s.loans.Latest(dashboardTop); return err }},
		{"latest messages", func() error { stats.LatestMessages, err = s.contacts.LatestFromUsers(dashboardTop); return err }},
		{"latest reviews", func() error { stats.LatestReviews, err = s.reviews.Latest(dashboardTop); return err }},
	}
	for _, step := range steps {
		if err := step.run(); err != nil {
			return nil, fmt.Errorf("dashboard %s: %w", step.name, err)
		}
	}
	return &stats, nil
}
