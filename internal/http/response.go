package http

import (
	"time"

	"ledger/internal/core"
)

type expenseResponse struct {
	ID              string        `json:"id"`
	OwnerID         string        `json:"ownerId"`
	Date            core.Date     `json:"date"`
	Category        core.Category `json:"category"`
	Description     string        `json:"description"`
	AmountPrimary   string        `json:"amountPrimary"`
	AmountSecondary string        `json:"amountSecondary"`
	CreatedAt       time.Time     `json:"createdAt"`
	UpdatedAt       time.Time     `json:"updatedAt"`
}

type expenseListResponse struct {
	Viewing  string            `json:"viewing"`
	ReadOnly bool              `json:"readOnly"`
	Count    int               `json:"count"`
	Expenses []expenseResponse `json:"expenses"`
}

type categoryShareResponse struct {
	Category  core.Category `json:"category"`
	Primary   string        `json:"primary"`
	Secondary string        `json:"secondary"`
	Percent   string        `json:"percent"`
}

type summaryResponse struct {
	Viewing        string                  `json:"viewing"`
	Year           int                     `json:"year"`
	Month          int                     `json:"month"`
	NoData         bool                    `json:"noData,omitempty"`
	Count          int                     `json:"count"`
	TotalPrimary   string                  `json:"totalPrimary"`
	TotalSecondary string                  `json:"totalSecondary"`
	Categories     []categoryShareResponse `json:"categories"`
}

type connectionsResponse struct {
	UserID      string   `json:"userId"`
	Connections []string `json:"connections"`
	Partner     string   `json:"partner,omitempty"`
}

type messageResponse struct {
	Outcome string `json:"outcome,omitempty"`
	Message string `json:"message"`
}

type amountPairResponse struct {
	AmountPrimary   string `json:"amountPrimary"`
	AmountSecondary string `json:"amountSecondary"`
}

func toExpenseResponse(e core.Expense) expenseResponse {
	return expenseResponse{
		ID:              e.ID,
		OwnerID:         e.OwnerID,
		Date:            e.Date,
		Category:        e.Category,
		Description:     e.Description,
		AmountPrimary:   core.FormatAmount(e.AmountPrimary),
		AmountSecondary: core.FormatAmount(e.AmountSecondary),
		CreatedAt:       e.CreatedAt,
		UpdatedAt:       e.UpdatedAt,
	}
}

func toSummaryResponse(viewing string, s core.MonthSummary) summaryResponse {
	resp := summaryResponse{
		Viewing:        viewing,
		Year:           s.Window.Year,
		Month:          int(s.Window.Month),
		Count:          s.Count,
		TotalPrimary:   core.FormatAmount(s.TotalPrimary),
		TotalSecondary: core.FormatAmount(s.TotalSecondary),
		Categories:     []categoryShareResponse{},
	}
	shares, err := s.Shares()
	if err != nil {
		resp.NoData = true
		return resp
	}
	for _, sh := range shares {
		resp.Categories = append(resp.Categories, categoryShareResponse{
			Category:  sh.Category,
			Primary:   core.FormatAmount(sh.Primary),
			Secondary: core.FormatAmount(sh.Secondary),
			Percent:   core.FormatAmount(sh.Percent),
		})
	}
	return resp
}

type readyResponse struct {
	Status             string `json:"status"`
	RateLimited        int64  `json:"rateLimited"`
	RateLimitClients   int64  `json:"rateLimitClients"`
	SuspiciousRequests int64  `json:"suspiciousRequests"`
}
