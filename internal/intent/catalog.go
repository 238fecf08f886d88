package intent

import (
	"context"
	"log/slog"

	"sassito/internal/store"
)

// Repository is the data collaborator the resolvers query.
type Repository interface {
	FindByFullName(ctx context.Context, name string) (store.Record, error)
	CouponUsageCount(ctx context.Context, code string) (int64, error)
	CloseManually(ctx context.Context, name string, closure store.Closure) error
}

// DefaultRules is the supported intent catalog in dispatch order.
func DefaultRules(repo Repository, logger *slog.Logger) []Rule {
	logger = logger.With("component", "resolver")
	return []Rule{
		MustRule("test order", `create a test order ticket for (.+)`,
			TicketRequest{Summary: "[Ordering] - Test Order for %s"}),
		MustRule("close restaurant", `create a close restaurant ticket for (.+)`,
			TicketRequest{Summary: "[Store Settings] - Close %s from Admin"}),
		MustRule("open insights", `create an open insights ticket for (.+)`,
			TicketRequest{Summary: "[Dashboard] - Open Insights for %s"}),
		MustRule("clarity check", `create a clarity check ticket for (.+)`,
			TicketRequest{Summary: "[Dispatch] - Clarity Check for %s"}),
		MustRule("delivery range", `create a delivery range ticket for (.+)`,
			TicketRequest{Summary: "[Store Settings] - Information about delivery range of %s"}),
		MustRule("status of ticket", `Please send the status of the ticket (RSC-\d+)`,
			TicketStatus{}),
		MustRule("opening hours", `Please send opening hours from (.+)`,
			OpeningHours{Repo: repo, Logger: logger}),
		MustRule("delivery settings", `Please send delivery settings from (.+)`,
			DeliverySettings{Repo: repo}),
		MustRule("contact info", `Please send contact info from (.+)`,
			ContactInfo{Repo: repo}),
		MustRule("toast config", `please send(?: the)? toast config from (.+)`,
			ToastConfig{Repo: repo}),
		MustRule("close manually", `close manually (.+)`,
			CloseManually{Repo: repo}),
		MustRule("mail for report", `Please send mail for report from (.+)`,
			ReportMail{Repo: repo}),
		MustRule("stripe info", `Please send stripe info from (.+)`,
			StripeInfo{Repo: repo}),
		MustRule("delivery options", `Please send delivery options from (.+)`,
			DeliveryOptions{Repo: repo}),
		MustRule("coupon usage", `How many times was the (.+?) used`,
			CouponUsage{Repo: repo}),
	}
}
