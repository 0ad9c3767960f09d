package email

import (
	_ "embed"
	"html/template"
	"strings"
)

var (
	//go:embed password_reset.html
	passwordResetHTML     string
	passwordResetTemplate = template.Must(template.New("password_reset.html").Parse(passwordResetHTML))
)

func mustFillTemplate(tmpl *template.Template, values any) string {
	buf := new(strings.Builder)
	err := tmpl.Execute(buf, values)
	if err != nil {
		return ""
	}
	return buf.String()
}

type PasswordResetEmailFormat struct {
	Name       string
	ResetToken string
	ConfirmURL string
}

func (ef *PasswordResetEmailFormat) Subject() string {
	return "Password Reset Instructions"
}

func (ef *PasswordResetEmailFormat) Body() string {
	return mustFillTemplate(passwordResetTemplate, ef)
}
