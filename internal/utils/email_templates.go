package utils

import (
	"bytes"
	"fmt"
	"html/template"

	"stride_back_end/internal/models"
)

var orderTemplate = template.Must(template.New("order").Funcs(template.FuncMap{
	"money": func(v float64) string { return fmt.Sprintf("₹%.2f", v) },
	"line":  func(it models.OrderItem) float64 { return it.LineTotal() },
	"short": func(o *models.Order) string { return shortID(o) },
}).Parse(`<!DOCTYPE html>
<html lang="en">
<head><meta charset="UTF-8"><title>{{.Title}}</title></head>
<body style="font-family: Arial, sans-serif; background-color: #f9f9f9; padding: 20px;">
<div style="max-width: 600px; margin: auto; background-color: #fff; padding: 20px; border-radius: 10px;">
	<h2 style="color: #333;">{{.Title}}</h2>
	<p>Hi {{.Order.Customer.FirstName}},</p>
	<p>{{.Lead}}</p>
	<p><strong>Order #{{short .Order}}</strong> &middot; status: {{.Order.Status}}</p>
	<table style="width: 100%; border-collapse: collapse; margin: 20px 0;">
		<thead>
			<tr style="background-color: #f0f0f0;">
				<th style="padding: 8px; text-align: left;">Item</th>
				<th style="padding: 8px; text-align: left;">Qty</th>
				<th style="padding: 8px; text-align: right;">Price</th>
				<th style="padding: 8px; text-align: right;">Total</th>
			</tr>
		</thead>
		<tbody>
		{{range .Order.Items}}
			<tr>
				<td style="padding: 8px;">{{.Name}}{{if .Size}} (size {{.Size}}){{end}}</td>
				<td style="padding: 8px;">{{.Quantity}}</td>
				<td style="padding: 8px; text-align: right;">{{money .Price}}</td>
				<td style="padding: 8px; text-align: right;">{{money (line .)}}</td>
			</tr>
		{{end}}
		</tbody>
	</table>
	<p>Subtotal: {{money .Order.Subtotal}}</p>
	{{if .Order.CODFee}}<p>Cash on delivery fee: {{money .Order.CODFee}}</p>{{end}}
	<p><strong>Total: {{money .Order.Total}}</strong></p>
	<p>Shipping to {{.Order.ShippingInfo.Name}}, {{.Order.ShippingInfo.Address}}, {{.Order.ShippingInfo.City}} {{.Order.ShippingInfo.Zip}}</p>
</div>
</body>
</html>`))

func shortID(o *models.Order) string {
	h := o.ID.Hex()
	return h[len(h)-8:]
}

// OrderEmail renders the subject and HTML body sent for an order event.
func OrderEmail(o *models.Order) (subject, body string, err error) {
	title, lead := orderCopy(o)
	var buf bytes.Buffer
	err = orderTemplate.Execute(&buf, struct {
		Title string
		Lead  string
		Order *models.Order
	}{title, lead, o})
	if err != nil {
		return "", "", fmt.Errorf("render order email: %w", err)
	}
	return fmt.Sprintf("%s - Order #%s", title, shortID(o)), buf.String(), nil
}

func orderCopy(o *models.Order) (string, string) {
	switch o.Status {
	case models.OrderProcessing:
		return "Payment received", "We received your payment and are preparing your order."
	case models.OrderShipped:
		return "Your order has shipped", "Your shoes are on their way."
	case models.OrderDelivered:
		return "Order delivered", "Your order was delivered. Enjoy your new pair!"
	case models.OrderCancelled:
		return "Order cancelled", "Your order was cancelled. No further action is needed."
	default:
		return "Order confirmed", "Thanks for shopping with Stride. Your order has been placed."
	}
}
