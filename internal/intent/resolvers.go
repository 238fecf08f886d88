package intent

import (
	"context"
	"fmt"
	"strings"

	"sassito/internal/store"
)

// TicketRequest acknowledges a ticket request. Ticket filing is disabled, so
// the reply only names the summary that would have been filed.
type TicketRequest struct {
	Summary string
}

func (t TicketRequest) Resolve(_ context.Context, restaurant string) (string, error) {
	summary := fmt.Sprintf(t.Summary, restaurant)
	return fmt.Sprintf("Ticket creation is currently disabled, so nothing was filed for *%s*. Please open it in Jira directly.", summary), nil
}

// TicketStatus acknowledges a ticket status lookup, which is disabled.
type TicketStatus struct{}

func (TicketStatus) Resolve(_ context.Context, key string) (string, error) {
	return fmt.Sprintf("Ticket lookups are currently disabled, so I can't check the status of %s. Please look it up in Jira.", strings.ToUpper(key)), nil
}

// DeliverySettings renders the first delivery configuration.
type DeliverySettings struct {
	Repo Repository
}

func (r DeliverySettings) Resolve(ctx context.Context, name string) (string, error) {
	rec, err := r.Repo.FindByFullName(ctx, name)
	if err != nil {
		return "", err
	}
	settings := rec.Docs("Delivery")
	if len(settings) == 0 {
		return "Delivery settings not available.", nil
	}
	d := settings[0]

	var b strings.Builder
	fmt.Fprintf(&b, "Delivery settings for %s:\n", name)
	fmt.Fprintf(&b, "• Minimal Order: %s\n", d.Text("MinimalOrder"))
	fmt.Fprintf(&b, "• Delivery Price: %s\n", d.Text("DeliveryPrice"))
	fmt.Fprintf(&b, "• Delivery Say2eat Fee: %s\n", d.Text("DeliverySay2eatFee"))
	fmt.Fprintf(&b, "• Radial Delivery Area: %s\n", d.Text("RadialDeliveryArea"))
	if points := d.Docs("PolygonDeliveryArea"); len(points) > 0 {
		b.WriteString("• Polygon Delivery Area:\n")
		for _, p := range points {
			fmt.Fprintf(&b, "  - Latitude: %s, Longitude: %s\n", p.Text("Latitude"), p.Text("Longitude"))
		}
	}
	return b.String(), nil
}

// ContactInfo renders phone, address and public URLs.
type ContactInfo struct {
	Repo Repository
}

func (r ContactInfo) Resolve(ctx context.Context, name string) (string, error) {
	rec, err := r.Repo.FindByFullName(ctx, name)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Contact information for %s\n\n"+
		"• Phone: %s\n"+
		"• Address: %s\n"+
		"• Google Maps URL: %s\n"+
		"• Website URL: %s",
		name,
		rec.Text("Phone"),
		rec.Text("StructuredAddress", "FormattedAddress"),
		rec.Text("GoogleMapURL"),
		rec.Text("GmbRestaurantUrl"),
	), nil
}

// ToastConfig renders the Toast point-of-sale integration.
type ToastConfig struct {
	Repo Repository
}

func (r ToastConfig) Resolve(ctx context.Context, name string) (string, error) {
	rec, err := r.Repo.FindByFullName(ctx, name)
	if err != nil {
		return "", err
	}

	var toast store.Record
	for _, cfg := range rec.Docs("ThirdPartyConfigs") {
		if t, _ := cfg.Get("Type"); t == "Toast" {
			toast = cfg
			break
		}
	}
	if toast == nil {
		return fmt.Sprintf("No Toast configuration found for restaurant '%s'.", name), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "*Toast Configuration for '%s':*\n", name)
	fmt.Fprintf(&b, "• *Active*: %s\n", yesNo(toast.Flag("Active")))
	fmt.Fprintf(&b, "• Type: %s\n", toast.Text("Type"))
	fmt.Fprintf(&b, "• *Visibility:* %s\n", toast.Text("VisibilityType"))
	fmt.Fprintf(&b, "• Discount Name: %s\n", toast.Text("DiscountName"))
	fmt.Fprintf(&b, "• Revenue Center Id: %s\n\n", toast.Text("RevenueCenterId"))

	b.WriteString("*Service Name Configuration:*\n")
	fmt.Fprintf(&b, "• Pickup Dining: %s\n", toast.Text("PickupDiningName"))
	fmt.Fprintf(&b, "• Dine In Dining: %s\n", toast.Text("DineInDiningName"))
	fmt.Fprintf(&b, "• Delivery Dining: %s\n", toast.Text("DeliveryDiningName"))
	fmt.Fprintf(&b, "• Credit Payment: %s\n", toast.Text("CreditPaymentName"))
	fmt.Fprintf(&b, "• Delivery Provider (Uber): %s\n\n", toast.Text("UberCreditPaymentName"))

	b.WriteString("*Other Configurations:*\n")
	fmt.Fprintf(&b, "• Update Menu on Provider Change: %s\n", yesNo(toast.Flag("UpdateMenuProviderOnChange")))
	fmt.Fprintf(&b, "• Is Main Provider: %s\n", yesNo(toast.Flag("IsMainProvider")))
	fmt.Fprintf(&b, "• Need to Send SMS: %s\n", yesNo(toast.Flag("NeedSendSms")))
	fmt.Fprintf(&b, "• Notes as Item: %s\n", yesNo(toast.Flag("SendNotesAsItem")))
	return b.String(), nil
}

// CloseManually flags the restaurant as manually closed.
type CloseManually struct {
	Repo Repository
}

func (r CloseManually) Resolve(ctx context.Context, name string) (string, error) {
	rec, err := r.Repo.FindByFullName(ctx, name)
	if err != nil {
		return "", err
	}
	if rec.Flag("ClosedManually") {
		return fmt.Sprintf("Restaurant '%s' is already closed manually.", name), nil
	}
	if err := r.Repo.CloseManually(ctx, name, store.Closure{}); err != nil {
		return "", err
	}
	return fmt.Sprintf("Done! Restaurant '%s' has been closed manually.", name), nil
}

// ReportMail renders the address human-response messages are sent to.
type ReportMail struct {
	Repo Repository
}

func (r ReportMail) Resolve(ctx context.Context, name string) (string, error) {
	rec, err := r.Repo.FindByFullName(ctx, name)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Mail for human response for %s\n\n• Mail: %s", name, rec.Text("MailForHumanResponseMessage")), nil
}

// StripeInfo renders the Stripe account identifiers.
type StripeInfo struct {
	Repo Repository
}

func (r StripeInfo) Resolve(ctx context.Context, name string) (string, error) {
	rec, err := r.Repo.FindByFullName(ctx, name)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Stripe Info for %s\n\n"+
		"• Stripe ID: %s\n"+
		"• Stripe Customer ID (Chartmogul): %s",
		name, rec.Text("StripeManagedAccountLive"), rec.Text("StripeCustomerId")), nil
}

// DeliveryOptions renders which fulfilment channels are enabled.
type DeliveryOptions struct {
	Repo Repository
}

func (r DeliveryOptions) Resolve(ctx context.Context, name string) (string, error) {
	rec, err := r.Repo.FindByFullName(ctx, name)
	if err != nil {
		return "", err
	}
	opts := rec.Doc("DeliveryOptions")
	if len(opts) == 0 {
		return fmt.Sprintf("No delivery options available for %s.", name), nil
	}
	return fmt.Sprintf("Delivery options for %s:\n\n"+
		"• Delivery: %s\n"+
		"• Pickup: %s\n"+
		"• Catering: %s\n"+
		"• Curbside: %s\n"+
		"• Dine-in: %s",
		name,
		opts.Text("Delivery"),
		opts.Text("Pickup"),
		opts.Text("IsCatering"),
		opts.Text("Curbside"),
		opts.Text("DineIn"),
	), nil
}

// CouponUsage reports how many orders used a coupon code. Codes are
// compared case-insensitively.
type CouponUsage struct {
	Repo Repository
}

func (r CouponUsage) Resolve(ctx context.Context, code string) (string, error) {
	code = strings.ToLower(strings.TrimSpace(code))
	count, err := r.Repo.CouponUsageCount(ctx, code)
	if err != nil {
		return "", err
	}
	if count > 0 {
		return fmt.Sprintf("The coupon code '%s' has been used %d times.", code, count), nil
	}
	return fmt.Sprintf("The coupon code '%s' has not been used yet.", code), nil
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
