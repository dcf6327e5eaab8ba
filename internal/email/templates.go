package email

import (
	"bytes"
	"fmt"
	"html/template"
)

type emailTemplate struct {
	subject string
	body    *template.Template
}

const button = `<a href="{{.AccessURL}}" style="display:inline-block;background:#4CAF50;color:white;padding:12px 24px;text-decoration:none;border-radius:4px;">`

var templates = map[Template]emailTemplate{
	TemplateSupplierInvitation: {
		subject: "Invitation to Join BoltStax",
		body: template.Must(template.New("supplier_invitation").Parse(`
<h2>Hello {{.ContactName}},</h2>
<p>You have been invited to join BoltStax as a supplier for {{.CompanyName}}.</p>
<p>Click the link below to create your account and get started:</p>
` + button + `Accept Invitation</a>
<p>If you have any questions, please contact your account manager.</p>
`)),
	},
	TemplateCustomerInvitation: {
		subject: "Invitation to Join BoltStax",
		body: template.Must(template.New("customer_invitation").Parse(`
<h2>Hello {{.ContactName}},</h2>
<p>You have been invited to join BoltStax as a customer of {{.CompanyName}}.</p>
<p>Click the link below to create your account and get started:</p>
` + button + `Accept Invitation</a>
<p>If you have any questions, please contact your account manager.</p>
`)),
	},
	TemplateSheetCreated: {
		subject: "New Product Sheet Questionnaire",
		body: template.Must(template.New("sheet_created").Parse(`
<h2>Hello {{.SupplierName}},</h2>
<p>A new product sheet questionnaire "{{.SheetName}}" has been created for you to complete.</p>
{{if .DueDate}}<p>Please complete it by: {{.DueDate}}</p>{{end}}
<p>Click the link below to access the questionnaire:</p>
` + button + `Access Questionnaire</a>
<p>If you have any questions, please contact your account manager.</p>
`)),
	},
	TemplateSheetReminder: {
		subject: "Reminder: Product Sheet Questionnaire Due Soon",
		body: template.Must(template.New("sheet_reminder").Parse(`
<h2>Hello {{.SupplierName}},</h2>
<p>This is a reminder that the product sheet questionnaire "{{.SheetName}}" is due soon.</p>
<p>Due date: {{.DueDate}}</p>
<p>Click the link below to complete the questionnaire:</p>
` + button + `Complete Questionnaire</a>
`)),
	},
	TemplateSheetSubmitted: {
		subject: "Product Sheet Questionnaire Submitted",
		body: template.Must(template.New("sheet_submitted").Parse(`
<h2>Product Sheet Submitted</h2>
<p>The product sheet "{{.SheetName}}" has been submitted by {{.SupplierName}}.</p>
<p>Click below to review the responses:</p>
` + button + `View Responses</a>
`)),
	},
}

// Render returns the subject and HTML body for a validated message.
func Render(msg Message) (subject, body string, err error) {
	if err := msg.Validate(); err != nil {
		return "", "", err
	}

	t := templates[msg.Template]
	var buf bytes.Buffer
	if err := t.body.Execute(&buf, msg.Data); err != nil {
		return "", "", fmt.Errorf("failed to render %s: %w", msg.Template, err)
	}
	return t.subject, buf.String(), nil
}
