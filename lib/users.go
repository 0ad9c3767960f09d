package lib

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fiffu/betterave/lib/models"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type NewUser struct {
	Name       string
	Surname    string
	ProfilePic string
	Role       models.UserRole
	Level      models.UserLevel
	// Email and Password are derived from the name when left empty.
	Email    string
	Password string
}

type UserFilter struct {
	Role  models.UserRole
	Level models.UserLevel
}

type UserUpdate struct {
	Name       *string
	Surname    *string
	ProfilePic *string
	Role       *models.UserRole
	Level      *models.UserLevel
	Email      *string
}

type users struct {
	base
}

// DefaultEmail is name.surname@domain, or name@domain for users without a
// surname, lowercased with spaces removed.
func DefaultEmail(name, surname, domain string) string {
	local := name
	if surname != "" {
		local = name + "." + surname
	}
	local = strings.ReplaceAll(local, " ", "")
	return strings.ToLower(local + "@" + domain)
}

// DefaultPassword is the first letter of the name followed by the surname,
// lowercased.
func DefaultPassword(name, surname string) string {
	initial := ""
	if r := []rune(name); len(r) > 0 {
		initial = string(r[0])
	}
	return strings.ToLower(strings.ReplaceAll(initial+surname, " ", ""))
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func (svc *users) CreateUser(ctx context.Context, in NewUser) (*models.User, error) {
	var user *models.User
	err := svc.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		created, err := insertUser(tx, svc.cfg.SchoolEmailDomain, in)
		user = created
		return err
	})
	if err = svc.settle("create user", err, "name", in.Name, "surname", in.Surname); err != nil {
		return nil, err
	}

	svc.log.Sugar().Infow("Created user", "user_id", user.ID, "email", user.Email, "role", user.Role)
	return user, nil
}

func insertUser(tx *gorm.DB, emailDomain string, in NewUser) (*models.User, error) {
	if in.Level == "" {
		in.Level = models.LevelNA
	}
	if in.Email == "" {
		in.Email = DefaultEmail(in.Name, in.Surname, emailDomain)
	}
	if in.Password == "" {
		in.Password = DefaultPassword(in.Name, in.Surname)
	}

	hash, err := hashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{
		Name:           in.Name,
		Surname:        in.Surname,
		Email:          normalizeEmail(in.Email),
		ProfilePic:     in.ProfilePic,
		Role:           in.Role,
		Level:          in.Level,
		HashedPassword: hash,
	}
	if taken, err := emailTaken(tx, user.Email, 0); err != nil {
		return nil, err
	} else if taken {
		return nil, ErrEmailTaken
	}
	if err := tx.Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

func (svc *users) User(ctx context.Context, id uint) (*models.User, error) {
	user := &models.User{}
	err := svc.db.WithContext(ctx).First(user, id).Error
	if err = svc.settle("get user", err, "user_id", id); err != nil {
		return nil, err
	}
	return user, nil
}

func (svc *users) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	user := &models.User{}
	err := svc.db.WithContext(ctx).Where("email = ?", normalizeEmail(email)).First(user).Error
	if err = svc.settle("get user by email", err); err != nil {
		return nil, err
	}
	return user, nil
}

func (svc *users) Users(ctx context.Context, filter UserFilter) (models.Users, error) {
	var all models.Users
	q := svc.db.WithContext(ctx).Order("id")
	if filter.Role != "" {
		q = q.Where("role = ?", filter.Role)
	}
	if filter.Level != "" {
		q = q.Where("level = ?", filter.Level)
	}
	err := q.Find(&all).Error
	return all, svc.settle("list users", err)
}

func (svc *users) UpdateUser(ctx context.Context, id uint, upd UserUpdate) error {
	err := svc.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user := &models.User{}
		if err := tx.First(user, id).Error; err != nil {
			return err
		}
		if upd.Name != nil {
			user.Name = *upd.Name
		}
		if upd.Surname != nil {
			user.Surname = *upd.Surname
		}
		if upd.ProfilePic != nil {
			user.ProfilePic = *upd.ProfilePic
		}
		if upd.Role != nil {
			user.Role = *upd.Role
		}
		if upd.Level != nil {
			user.Level = *upd.Level
		}
		if upd.Email != nil {
			user.Email = normalizeEmail(*upd.Email)
			if taken, err := emailTaken(tx, user.Email, id); err != nil {
				return err
			} else if taken {
				return ErrEmailTaken
			}
		}
		return tx.Save(user).Error
	})
	return svc.settle("update user", err, "user_id", id)
}

// DeleteUser removes a user together with every link pointing at them, and
// the events and notifications they authored.
func (svc *users) DeleteUser(ctx context.Context, id uint) error {
	err := svc.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&models.User{}, id).Error; err != nil {
			return err
		}

		owned := tx.Model(&models.Event{}).Select("id").Where("association_id = ?", id)
		sent := tx.Model(&models.Notification{}).Select("id").Where("sent_by_user_id = ?", id)
		steps := []*gorm.DB{
			tx.Where("user_id = ? OR association_id = ?", id, id).Delete(&models.Subscription{}),
			tx.Where("user_id = ? OR event_id IN (?)", id, owned).Delete(&models.EventAttendance{}),
			tx.Where("user_id = ? OR notification_id IN (?)", id, sent).Delete(&models.NotificationReception{}),
			tx.Where("user_id = ?", id).Delete(&models.UserClassGroup{}),
			tx.Unscoped().Where("user_id = ?", id).Delete(&models.Message{}),
			tx.Unscoped().Where("association_id = ?", id).Delete(&models.Event{}),
			tx.Unscoped().Where("sent_by_user_id = ?", id).Delete(&models.Notification{}),
			tx.Unscoped().Delete(&models.User{}, id),
		}
		return errors.Join(errorsOf(steps)...)
	})
	return svc.settle("delete user", err, "user_id", id)
}

func setPassword(tx *gorm.DB, user *models.User, password string) error {
	hash, err := hashPassword(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return tx.Model(user).Updates(map[string]any{
		"hashed_password":    hash,
		"reset_token":        "",
		"reset_token_expiry": nil,
	}).Error
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func emailTaken(tx *gorm.DB, email string, except uint) (bool, error) {
	var n int64
	err := tx.Model(&models.User{}).Where("email = ? AND id <> ?", email, except).Count(&n).Error
	return n > 0, err
}

func errorsOf(results []*gorm.DB) []error {
	errs := make([]error, 0, len(results))
	for _, r := range results {
		errs = append(errs, r.Error)
	}
	return errs
}
