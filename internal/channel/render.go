package channel

import (
	"fmt"
	"strings"

	"github.com/albapepper/dealwatch/internal/alerts"
)

// Subject returns the notification subject line for an event.
func Subject(ev alerts.Event) string {
	switch ev.Type {
	case alerts.EventRestock:
		return fmt.Sprintf("Back in stock: %s", ev.ProductName)
	case alerts.EventPriceChange:
		if ev.NewPrice < ev.OldPrice {
			return fmt.Sprintf("Price drop: %s now $%.2f", ev.ProductName, ev.NewPrice)
		}
		return fmt.Sprintf("Price change: %s now $%.2f", ev.ProductName, ev.NewPrice)
	case alerts.EventTargetPriceReached:
		return fmt.Sprintf("Target price reached: %s at $%.2f", ev.ProductName, ev.NewPrice)
	default:
		return fmt.Sprintf("Update: %s", ev.ProductName)
	}
}

// PlainBody renders the text/plain version of a notification.
func PlainBody(ev alerts.Event) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n", Subject(ev))
	fmt.Fprintf(&b, "Product:  %s\n", ev.ProductName)
	fmt.Fprintf(&b, "Retailer: %s\n", ev.Retailer)
	if ev.Category != "" {
		fmt.Fprintf(&b, "Category: %s\n", ev.Category)
	}
	switch ev.Type {
	case alerts.EventRestock:
		fmt.Fprintf(&b, "Status:   back in stock at $%.2f\n", ev.NewPrice)
	case alerts.EventPriceChange:
		fmt.Fprintf(&b, "Price:    $%.2f (was $%.2f)\n", ev.NewPrice, ev.OldPrice)
	case alerts.EventTargetPriceReached:
		fmt.Fprintf(&b, "Price:    $%.2f, at or below your target\n", ev.NewPrice)
	}
	fmt.Fprintf(&b, "\n%s\n", ev.ProductURL)
	return b.String()
}

// HTMLBody renders the text/html version of a notification.
func HTMLBody(ev alerts.Event) string {
	var detail string
	switch ev.Type {
	case alerts.EventRestock:
		detail = fmt.Sprintf("Back in stock at <strong>$%.2f</strong>.", ev.NewPrice)
	case alerts.EventPriceChange:
		detail = fmt.Sprintf("Now <strong>$%.2f</strong>, was $%.2f.", ev.NewPrice, ev.OldPrice)
	case alerts.EventTargetPriceReached:
		detail = fmt.Sprintf("Now <strong>$%.2f</strong>, at or below your target price.", ev.NewPrice)
	default:
		detail = fmt.Sprintf("Current price: $%.2f.", ev.NewPrice)
	}
	return fmt.Sprintf(`<html><body>
<h2>%s</h2>
<p>%s</p>
<p><a href="%s">View %s at %s</a></p>
</body></html>`, Subject(ev), detail, ev.ProductURL, ev.ProductName, ev.Retailer)
}
