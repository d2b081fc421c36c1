package email

import (
	"fmt"
	"html"
	"strings"
	"time"

	"riverway/internal/config"
	"riverway/internal/models"
)

const timestampLayout = "2006-01-02 15:04:05"

// Templates provides email template generation.
type Templates struct {
	cfg *config.Config
}

// NewTemplates creates a new templates instance.
func NewTemplates(cfg *config.Config) *Templates {
	return &Templates{cfg: cfg}
}

// EscalationDetails is everything staff need to pick up an escalated chat.
type EscalationDetails struct {
	Session    *models.ChatSession
	User       string // "Guest User", "Guest (a@b.com)" or the account holder
	Reason     string
	Transcript []models.ChatMessage // oldest first
	At         time.Time
}

// baseHTML wraps content in a consistent HTML email template.
func (t *Templates) baseHTML(title, content string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
    <meta charset="utf-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>%s</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { background: #b45309; color: white; padding: 20px; text-align: center; border-radius: 8px 8px 0 0; }
        .header h1 { margin: 0; font-size: 24px; }
        .content { background: #fafaf9; padding: 20px; border: 1px solid #e7e5e4; }
        .footer { background: #f5f5f4; padding: 15px; text-align: center; font-size: 12px; color: #78716c; border-radius: 0 0 8px 8px; border: 1px solid #e7e5e4; border-top: none; }
        .button { display: inline-block; background: #b45309; color: white; padding: 12px 24px; text-decoration: none; border-radius: 6px; margin: 10px 0; }
        .info-box { background: white; border: 1px solid #e7e5e4; border-radius: 6px; padding: 15px; margin: 15px 0; }
        .label { font-weight: 600; color: #44403c; }
        .transcript p { margin: 4px 0; font-size: 14px; }
        .warning { color: #d97706; }
        table { width: 100%%; border-collapse: collapse; }
        td, th { padding: 6px; border-bottom: 1px solid #e7e5e4; text-align: left; }
    </style>
</head>
<body>
    <div class="header">
        <h1>%s</h1>
    </div>
    <div class="content">
        %s
    </div>
    <div class="footer">
        <p>This email was sent by the %s chatbot system</p>
        <p><a href="%s">%s</a></p>
    </div>
</body>
</html>`, html.EscapeString(title), html.EscapeString(t.cfg.BrandName), content, html.EscapeString(t.cfg.BrandName), t.cfg.BaseURL, t.cfg.BaseURL)
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

// EscalationAlert generates the staff alert for an escalated chat session.
func (t *Templates) EscalationAlert(d EscalationDetails) (subject, htmlBody, textBody string) {
	subject = "Chatbot Escalation Alert - Customer Needs Help"
	s := d.Session

	var transcriptHTML, transcriptText strings.Builder
	for _, m := range d.Transcript {
		stamp := m.Timestamp.Format("15:04:05")
		fmt.Fprintf(&transcriptHTML, "<p><code>[%s]</code> <span class=\"label\">%s:</span> %s</p>\n",
			stamp, strings.ToUpper(m.MessageType), html.EscapeString(m.Content))
		fmt.Fprintf(&transcriptText, "[%s] %s: %s\n", stamp, strings.ToUpper(m.MessageType), m.Content)
	}
	if len(d.Transcript) == 0 {
		transcriptHTML.WriteString("<p>No messages yet</p>")
		transcriptText.WriteString("No messages yet\n")
	}

	content := fmt.Sprintf(`
        <p>A customer conversation has been escalated and requires human assistance.</p>

        <div class="info-box">
            <p><span class="label">Session ID:</span> <code>%s</code></p>
            <p><span class="label">User:</span> %s</p>
            <p><span class="label">Channel:</span> %s</p>
            <p><span class="label">Started:</span> %s</p>
            <p><span class="label">Escalation Reason:</span> <span class="warning">%s</span></p>
        </div>

        <div class="info-box">
            <p><span class="label">Phone:</span> %s</p>
            <p><span class="label">Email:</span> %s</p>
            <p><span class="label">IP Address:</span> %s</p>
        </div>

        <div class="info-box transcript">
            %s
        </div>

        <p style="text-align: center;">
            <a href="%s/admin/escalations" class="button">Open Escalation Queue</a>
        </p>
    `,
		html.EscapeString(s.SessionID),
		html.EscapeString(d.User),
		html.EscapeString(s.Channel),
		s.CreatedAt.Format(timestampLayout),
		html.EscapeString(d.Reason),
		html.EscapeString(orDefault(s.UserPhone, "Not provided")),
		html.EscapeString(orDefault(s.UserEmail, "Not provided")),
		html.EscapeString(orDefault(s.UserIP, "Unknown")),
		transcriptHTML.String(),
		t.cfg.BaseURL,
	)

	htmlBody = t.baseHTML(subject, content)

	textBody = fmt.Sprintf(`CHATBOT ESCALATION NOTIFICATION

A customer conversation has been escalated and requires human assistance.

SESSION DETAILS:
Session ID: %s
User: %s
Channel: %s
Started: %s
Escalation Reason: %s

CONTACT INFORMATION:
Phone: %s
Email: %s
IP Address: %s

CONVERSATION HISTORY:
%s
NEXT ACTIONS:
1. Review the conversation above
2. Contact the customer if contact info is available
3. Follow up on their specific concerns
4. Mark as resolved at %s/admin/escalations when complete

This escalation was created at: %s

--
%s Chatbot System`,
		s.SessionID,
		d.User,
		s.Channel,
		s.CreatedAt.Format(timestampLayout),
		d.Reason,
		orDefault(s.UserPhone, "Not provided"),
		orDefault(s.UserEmail, "Not provided"),
		orDefault(s.UserIP, "Unknown"),
		transcriptText.String(),
		t.cfg.BaseURL,
		d.At.Format(timestampLayout),
		t.cfg.BrandName,
	)

	return
}

// ContactRequest generates the support-team email for a contact form submission.
func (t *Templates) ContactRequest(req *models.ContactRequest, at time.Time) (subject, htmlBody, textBody string) {
	priority := req.Priority
	if priority != "" {
		priority = strings.ToUpper(priority[:1]) + priority[1:]
	}
	subject = fmt.Sprintf("Support Request - %s Priority", priority)
	submitted := at.Format("January 02, 2006 at 03:04 PM MST")

	content := fmt.Sprintf(`
        <p>A new support request has been submitted through the website chatbot contact form.</p>

        <div class="info-box">
            <p><span class="label">Name:</span> %s</p>
            <p><span class="label">Email:</span> <a href="mailto:%s">%s</a></p>
            <p><span class="label">Priority Level:</span> %s</p>
        </div>

        <div class="info-box">
            <p><span class="label">Issue Description:</span></p>
            <p>%s</p>
        </div>

        <p>Submitted %s. Please respond within 24 hours for standard requests, or immediately for high and critical issues.</p>
    `,
		html.EscapeString(req.Name),
		html.EscapeString(req.Email),
		html.EscapeString(req.Email),
		html.EscapeString(priority),
		strings.ReplaceAll(html.EscapeString(req.Description), "\n", "<br>"),
		submitted,
	)

	htmlBody = t.baseHTML(subject, content)

	textBody = fmt.Sprintf(`Dear Support Team,

A new support request has been submitted through the website chatbot contact form.

CUSTOMER DETAILS:
Name: %s
Email: %s
Priority Level: %s

ISSUE DESCRIPTION:
%s

REQUEST DETAILS:
Submitted: %s
Source: Website Chatbot Contact Form
Status: New Request

Please respond to the customer within 24 hours for standard requests, or immediately for high/critical priority issues.

--
%s Chatbot System`,
		req.Name,
		req.Email,
		priority,
		req.Description,
		submitted,
		t.cfg.BrandName,
	)

	return
}

// OrderConfirmation generates the customer's receipt for a placed order.
func (t *Templates) OrderConfirmation(order *models.Order) (subject, htmlBody, textBody string) {
	subject = fmt.Sprintf("[%s] Order #%d confirmed", t.cfg.BrandName, order.ID)
	currency := t.cfg.CurrencySymbol

	var rowsHTML, rowsText strings.Builder
	for _, item := range order.Items {
		fmt.Fprintf(&rowsHTML, "<tr><td>%s</td><td>%d</td><td>%s%.2f</td></tr>\n",
			html.EscapeString(item.ProductName), item.Quantity, currency, item.TotalPrice())
		fmt.Fprintf(&rowsText, "- %s x %d: %s%.2f\n", item.ProductName, item.Quantity, currency, item.TotalPrice())
	}

	content := fmt.Sprintf(`
        <p>Thank you for your order! We have received it and will start processing it shortly.</p>

        <div class="info-box">
            <table>
                <tr><th>Product</th><th>Qty</th><th>Total</th></tr>
                %s
            </table>
            <p><span class="label">Order total:</span> %s%.2f</p>
        </div>

        <div class="info-box">
            <p><span class="label">Shipping to:</span> %s</p>
            <p><span class="label">Phone:</span> %s</p>
        </div>

        <p style="text-align: center;">
            <a href="%s/api/orders/%d" class="button">View Order</a>
        </p>
    `,
		rowsHTML.String(),
		currency, order.TotalAmount,
		html.EscapeString(order.ShippingAddress),
		html.EscapeString(order.Phone),
		t.cfg.BaseURL, order.ID,
	)

	htmlBody = t.baseHTML(subject, content)

	textBody = fmt.Sprintf(`Order #%d confirmed

Thank you for your order! We have received it and will start processing it shortly.

%s
Order total: %s%.2f
Shipping to: %s
Phone: %s

View your order: %s/api/orders/%d

--
%s
%s`,
		order.ID,
		rowsText.String(),
		currency, order.TotalAmount,
		order.ShippingAddress,
		order.Phone,
		t.cfg.BaseURL, order.ID,
		t.cfg.BrandName,
		t.cfg.BaseURL,
	)

	return
}
