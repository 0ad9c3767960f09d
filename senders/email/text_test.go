package email

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPlainText(t *testing.T) {
	ef := &PasswordResetEmailFormat{
		Name:       "Alice",
		ResetToken: "token-123",
		ConfirmURL: "http://localhost:8080/reset-password?email=alice%40ensae.fr",
	}
	text := PlainText(ef.Body())

	assert.Contains(t, text, "Hello Alice,")
	assert.Contains(t, text, "Here is your reset token: token-123")
	assert.NotContains(t, text, "<")
	assert.NotContains(t, text, "\n")
}

func TestPlainText_skipsStyle(t *testing.T) {
	text := PlainText(`<html><head><style>p { color: red; }</style></head><body><p>hi   there</p></body></html>`)
	assert.Equal(t, "hi there", text)
}

func TestLinks(t *testing.T) {
	ef := &PasswordResetEmailFormat{Name: "Bob", ResetToken: "abc", ConfirmURL: "http://example.com/r"}
	assert.Equal(t, []string{"http://example.com/r"}, Links(ef.Body()))

	ef.ConfirmURL = ""
	assert.Empty(t, Links(ef.Body()))
}
