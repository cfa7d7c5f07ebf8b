package services

import (
	"context"
	"fmt"

	"payables/internal/cache"
	"payables/internal/core"
)

const currencySymbol = "$"

// VendorView is a vendor roll-up formatted for display.
type VendorView struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	ContactEmail string `json:"contact_email,omitempty"`
	TotalPaid    string `json:"total_paid"`
	TotalDue     string `json:"total_due"`
	InvoiceCount int64  `json:"invoice_count"`
	LastAddedOn  string `json:"last_added_on"`
}

type VendorService struct {
	repo  VendorRepository
	cache cache.Cache[[]VendorView]
}

func NewVendorService(repo VendorRepository, c cache.Cache[[]VendorView]) *VendorService {
	return &VendorService{repo: repo, cache: c}
}

func (s *VendorService) List(ctx context.Context, userID string) ([]VendorView, error) {
	if userID == "" {
		return nil, core.ErrEmptyUserID
	}
	key := cache.UserKey(userID, "vendors")
	if s.cache != nil {
		if views, ok := s.cache.Get(key); ok {
			return views, nil
		}
	}

	vendors, err := s.repo.ListVendors(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list vendors: %w", err)
	}
	views := make([]VendorView, 0, len(vendors))
	for _, v := range vendors {
		views = append(views, VendorView{
			ID:           v.ID,
			Name:         v.Name,
			ContactEmail: v.ContactEmail,
			TotalPaid:    currencySymbol + v.TotalPaid.StringFixed(2),
			TotalDue:     currencySymbol + v.TotalDue.StringFixed(2),
			InvoiceCount: v.InvoiceCount,
			LastAddedOn:  core.FormatDate(v.LastAddedOn),
		})
	}

	if s.cache != nil {
		s.cache.Set(key, views)
	}
	return views, nil
}
