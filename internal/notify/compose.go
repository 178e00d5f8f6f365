package notify

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"

	"bulk-deal-tracker/internal/models"
	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

// ChatHeadSize is the number of matches listed in a chat message.
const ChatHeadSize = 5

// Message is a composed report, rendered once per channel.
type Message struct {
	Subject string
	// HTML is the email document with the full match list.
	HTML string
	// Text is the chat message in Telegram Markdown.
	Text string
	// Attachments are local files sent along with the email.
	Attachments []string
}

// Composer renders run summaries into notification messages.
type Composer struct {
	tmpl *template.Template
}

// NewComposer parses the email template.
func NewComposer() (*Composer, error) {
	tmpl, err := template.New("report").Funcs(template.FuncMap{
		"qty":   FormatQuantity,
		"price": FormatPrice,
		"comma": func(n int) string { return humanize.Comma(int64(n)) },
		"isBuy": func(action string) bool { return action == models.ActionBuy },
		"clip":  clip,
	}).Parse(emailTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse email template: %w", err)
	}
	return &Composer{tmpl: tmpl}, nil
}

type reportData struct {
	GeneratedAt string
	Matches     []models.MatchedDeal
	Summary     models.Summary
	Total       int
	Attached    bool
}

// Compose builds the email and chat renderings for one run. matches are
// listed in the order given.
func (c *Composer) Compose(summary models.Summary, matches []models.MatchedDeal, at time.Time, attachments []string) (Message, error) {
	var html bytes.Buffer
	err := c.tmpl.Execute(&html, reportData{
		GeneratedAt: at.Format("02 January 2006, 03:04 PM MST"),
		Matches:     matches,
		Summary:     summary,
		Total:       summary.Total(),
		Attached:    len(attachments) > 0,
	})
	if err != nil {
		return Message{}, fmt.Errorf("failed to render email: %w", err)
	}

	return Message{
		Subject:     Subject(at, len(matches) > 0),
		HTML:        html.String(),
		Text:        ChatText(summary, matches, at),
		Attachments: attachments,
	}, nil
}

// Subject returns the email subject for a run day.
func Subject(at time.Time, alert bool) string {
	subject := "Daily Bulk & Block Deals Report - " + at.Format("02 January 2006")
	if alert {
		return "ALERT: Monitored Investor Activity + " + subject
	}
	return subject
}

// ChatText renders the chat message. Only the first ChatHeadSize matches are
// listed, followed by a count of the rest.
func ChatText(summary models.Summary, matches []models.MatchedDeal, at time.Time) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "*Bulk & Block Deals - %s*\n\n", at.Format("02 Jan 2006"))

	if len(matches) == 0 {
		sb.WriteString("No watchlist activity today.\n")
	} else {
		fmt.Fprintf(&sb, "*WATCHLIST ALERT: %d match(es)*\n", len(matches))
		for i, m := range matches {
			if i == ChatHeadSize {
				fmt.Fprintf(&sb, "...and %d more\n", len(matches)-ChatHeadSize)
				break
			}
			d := m.Deal
			fmt.Fprintf(&sb, "%d. *%s*", i+1, boldText(m.Investor()))
			if m.Entry.Category != "" {
				fmt.Fprintf(&sb, " (%s)", escapeMarkdown(m.Entry.Category))
			}
			fmt.Fprintf(&sb, "\n   %s %s %s @ %s [%s %s]\n",
				escapeMarkdown(orDash(d.Action)),
				FormatQuantity(d.Quantity),
				escapeMarkdown(instrument(d)),
				FormatPrice(d.Price),
				d.Source, strings.ToLower(string(d.Category)))
		}
	}

	sb.WriteString("\n*Today's deals*\n")
	for _, tc := range summary {
		fmt.Fprintf(&sb, "%s: %s\n", tc.Feed.Label(), humanize.Comma(int64(tc.Count)))
	}
	fmt.Fprintf(&sb, "*Total: %s*", humanize.Comma(int64(summary.Total())))
	return sb.String()
}

// FormatQuantity renders a share count with thousands separators.
func FormatQuantity(q decimal.NullDecimal) string {
	if !q.Valid {
		return "-"
	}
	if q.Decimal.IsInteger() {
		return humanize.Comma(q.Decimal.IntPart())
	}
	return humanize.Commaf(q.Decimal.InexactFloat64())
}

// FormatPrice renders a rupee price with two decimals.
func FormatPrice(p decimal.NullDecimal) string {
	if !p.Valid {
		return "-"
	}
	return "₹" + humanize.FormatFloat("#,###.##", p.Decimal.InexactFloat64())
}

func instrument(d models.Deal) string {
	if d.Symbol != "" {
		return d.Symbol
	}
	return orDash(d.SecurityName)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

var markdownEscaper = strings.NewReplacer("_", `\_`, "*", `\*`, "`", "\\`", "[", `\[`)

// boldText prepares text for use inside a *bold* entity. Legacy Markdown
// does not honour escapes within an entity, so delimiters are replaced.
func boldText(s string) string {
	return strings.Join(strings.Fields(boldStripper.Replace(s)), " ")
}

var boldStripper = strings.NewReplacer("*", " ", "_", " ", "`", " ", "[", " ")

// escapeMarkdown escapes the characters Telegram's legacy Markdown treats as
// entity delimiters.
func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}
