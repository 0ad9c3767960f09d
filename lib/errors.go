package lib

import (
	"errors"

	"gorm.io/gorm"
)

var (
	ErrNotFound             = errors.New("not found")
	ErrInvalidRecipientSpec = errors.New("invalid recipient spec")
	ErrInvalidEventWindow   = errors.New("event must not end before it starts")
	ErrPersistence          = errors.New("persistence failure")
	ErrEmailTaken           = errors.New("email is already in use")
	ErrInvalidCredentials   = errors.New("invalid email or password")
	ErrInvalidToken         = errors.New("invalid or expired reset token")
)

// domainErrors pass through settle untouched.
var domainErrors = []error{
	ErrNotFound,
	ErrInvalidRecipientSpec,
	ErrInvalidEventWindow,
	ErrEmailTaken,
	ErrInvalidCredentials,
	ErrInvalidToken,
}

// settle converts the outcome of a storage operation into the error surfaced
// to callers. Driver errors are logged and replaced with ErrPersistence.
func (b *base) settle(op string, err error, keysAndValues ...any) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	for _, known := range domainErrors {
		if errors.Is(err, known) {
			return known
		}
	}
	b.log.Sugar().Errorw(op+" failed", append(keysAndValues, "err", err)...)
	return ErrPersistence
}
