package mailer

import (
	"bytes"
	htmltemplate "html/template"
	texttemplate "text/template"
)

// BudgetAlert holds the values rendered into a budget threshold email.
type BudgetAlert struct {
	CategoryName string
	Month        string
	Percent      string
	Limit        string
	Spent        string
}

// BudgetAlertSubject is the subject line of every budget threshold email.
const BudgetAlertSubject = "Budget alert"

var budgetAlertText = texttemplate.Must(texttemplate.New("budget_alert_text").Parse(
	`Your {{.CategoryName}} budget for {{.Month}} has reached {{.Percent}}%. Spent: ${{.Spent}} / Limit: ${{.Limit}}`))

var budgetAlertHTML = htmltemplate.Must(htmltemplate.New("budget_alert_html").Parse(`<p>Hi,</p>
<p>Your budget for <strong>{{.CategoryName}}</strong> in <strong>{{.Month}}</strong> has reached <strong>{{.Percent}}%</strong> of its limit.</p>
<p>Limit: ${{.Limit}}</p>
<p>Spent: ${{.Spent}}</p>
<p>We recommend reviewing your expenses.</p>
`))

// RenderBudgetAlert builds the alert message for recipient.
func RenderBudgetAlert(recipient string, data BudgetAlert) (Message, error) {
	var text, html bytes.Buffer
	if err := budgetAlertText.Execute(&text, data); err != nil {
		return Message{}, err
	}
	if err := budgetAlertHTML.Execute(&html, data); err != nil {
		return Message{}, err
	}
	return Message{
		To:      recipient,
		Subject: BudgetAlertSubject,
		Text:    text.String(),
		HTML:    html.String(),
	}, nil
}
