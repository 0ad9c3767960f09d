package lib

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/fiffu/betterave/lib/models"
	"github.com/fiffu/betterave/senders"
	"github.com/fiffu/betterave/senders/email"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const resetTokenTTL = 1 * time.Hour

type auth struct {
	base
	senders senders.Registry
}

func (svc *auth) Authenticate(ctx context.Context, emailAddr, password string) (*models.User, error) {
	user := &models.User{}
	err := svc.db.WithContext(ctx).Where("email = ?", normalizeEmail(emailAddr)).First(user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidCredentials
	} else if err != nil {
		return nil, svc.settle("authenticate", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// RequestPasswordReset stores a fresh reset token on the user and emails it.
func (svc *auth) RequestPasswordReset(ctx context.Context, emailAddr string) error {
	user := &models.User{}
	token := uuid.NewString()
	expiry := time.Now().UTC().Add(resetTokenTTL)

	err := svc.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("email = ?", normalizeEmail(emailAddr)).First(user).Error; err != nil {
			return err
		}
		return tx.Model(user).Updates(map[string]any{
			"reset_token":        token,
			"reset_token_expiry": sql.NullTime{Time: expiry, Valid: true},
		}).Error
	})
	if err = svc.settle("request password reset", err); err != nil {
		return err
	}

	return svc.sendPasswordResetEmail(ctx, user, token)
}

func (svc *auth) sendPasswordResetEmail(ctx context.Context, user *models.User, token string) error {
	ef := &email.PasswordResetEmailFormat{
		Name:       user.Name,
		ResetToken: token,
	}
	if svc.cfg.FrontendURL != "" {
		ef.ConfirmURL = fmt.Sprintf("%s/reset-password?email=%s", svc.cfg.FrontendURL, url.QueryEscape(user.Email))
	}

	sender := svc.senders["email"]
	id, err := sender.Send(ctx, ef.Subject(), ef.Body(), user.Email)
	if err != nil {
		svc.log.Sugar().Errorw("Failed to send password reset email", "user_id", user.ID, "err", err)
	} else {
		svc.log.Sugar().Infow("Sent password reset to "+user.Email, "message_id", id)
	}
	return err
}

// ValidateResetToken reports whether token is the live reset token of the
// user owning emailAddr.
func (svc *auth) ValidateResetToken(ctx context.Context, emailAddr, token string) bool {
	_, err := svc.userWithResetToken(svc.db.WithContext(ctx), emailAddr, token)
	return err == nil
}

func (svc *auth) ConfirmPasswordReset(ctx context.Context, emailAddr, token, password string) error {
	err := svc.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, err := svc.userWithResetToken(tx, emailAddr, token)
		if err != nil {
			return err
		}
		return setPassword(tx, user, password)
	})
	return svc.settle("confirm password reset", err)
}

func (svc *auth) userWithResetToken(tx *gorm.DB, emailAddr, token string) (*models.User, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}
	user := &models.User{}
	err := tx.Where("email = ?", normalizeEmail(emailAddr)).First(user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidToken
	} else if err != nil {
		return nil, err
	}
	if user.ResetToken != token || !user.ResetTokenExpiry.Valid || time.Now().After(user.ResetTokenExpiry.Time) {
		return nil, ErrInvalidToken
	}
	return user, nil
}
