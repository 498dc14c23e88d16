// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package membership

import (
	"bytes"
	"strings"
	"text/template"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// MailSettings configures outbound membership emails.
type MailSettings struct {
	AppName      string
	SupportEmail string
	SupportName  string
	// VerifyURL and ResetURL are base URLs; "/{userID}/{code}" is appended.
	VerifyURL string
	ResetURL  string
}

var verifyTemplate = template.Must(template.New("verify").Parse(`Dear {{.Name}}

Thank you for {{if .Updated}}updating your{{else}}creating an{{end}} account at {{.AppName}}.

Please confirm your email {{.Email}} using the link below:

{{.Link}}

--
Thanks
{{.SupportName}}
{{.SupportEmail}}
`))

var resetTemplate = template.Must(template.New("reset").Parse(`Dear {{.Name}}

Please use the following link to reset your password for {{.AppName}}:

{{.Link}}

Please note that this link is valid for a limited time.

--
Thanks
{{.SupportName}}
{{.SupportEmail}}
`))

type mailData struct {
	MailSettings
	Name    string
	Email   string
	Link    string
	Updated bool
}

// VerificationMessage renders the email asking a user to confirm their address.
// updated selects the wording used after an account update.
func (s MailSettings) VerificationMessage(account *Account, code string, updated bool) (Message, error) {
	data := mailData{
		MailSettings: s,
		Name:         account.Name,
		Email:        account.Email,
		Link:         codeLink(s.VerifyURL, account.ID, code),
		Updated:      updated,
	}
	return s.render(verifyTemplate, account, s.AppName+" - verify your email", data)
}

// ResetMessage renders the password reset email.
func (s MailSettings) ResetMessage(account *Account, code string) (Message, error) {
	data := mailData{
		MailSettings: s,
		Name:         account.Name,
		Email:        account.Email,
		Link:         codeLink(s.ResetURL, account.ID, code),
	}
	return s.render(resetTemplate, account, s.AppName+" - reset your password", data)
}

func (s MailSettings) render(tmpl *template.Template, account *Account, subject string, data mailData) (Message, error) {
	var body bytes.Buffer
	if err := tmpl.Execute(&body, data); err != nil {
		return Message{}, oops.Code("MAIL_RENDER_FAILED").With("template", tmpl.Name()).Wrap(err)
	}
	return Message{
		ToAddress:   account.Email,
		ToName:      account.Name,
		FromAddress: s.SupportEmail,
		FromName:    s.SupportName,
		Subject:     subject,
		Body:        body.String(),
	}, nil
}

func codeLink(base string, userID ulid.ULID, code string) string {
	return strings.TrimRight(base, "/") + "/" + userID.String() + "/" + code
}
