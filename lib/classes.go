package lib

import (
	"context"
	"database/sql"

	"github.com/fiffu/betterave/lib/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type NewClass struct {
	Name             string
	EctsCredits      int
	EnsaeLink        string
	Level            models.UserLevel
	BackgroundColor  string
	DefaultTeacherID uint
}

type ClassUpdate struct {
	Name             *string
	EctsCredits      *int
	EnsaeLink        *string
	Level            *models.UserLevel
	BackgroundColor  *string
	DefaultTeacherID *uint
}

type ClassFilter struct {
	Level     models.UserLevel
	TeacherID uint
}

type NewClassGroup struct {
	ClassID     uint
	Name        string
	IsMainGroup bool
}

type classes struct {
	base
}

// CreateClass creates a class along with its main group.
func (svc *classes) CreateClass(ctx context.Context, in NewClass) (*models.Class, error) {
	class := &models.Class{
		Name:             in.Name,
		EctsCredits:      in.EctsCredits,
		EnsaeLink:        in.EnsaeLink,
		Level:            in.Level,
		BackgroundColor:  in.BackgroundColor,
		DefaultTeacherID: in.DefaultTeacherID,
	}
	err := svc.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if in.DefaultTeacherID != 0 {
			if err := requireUsers(tx, in.DefaultTeacherID); err != nil {
				return err
			}
		}
		if err := tx.Omit(clause.Associations).Create(class).Error; err != nil {
			return err
		}
		main := models.ClassGroup{Name: class.Name, IsMainGroup: true, ClassID: class.ID}
		if err := tx.Create(&main).Error; err != nil {
			return err
		}
		class.Groups = []models.ClassGroup{main}
		return nil
	})
	if err = svc.settle("create class", err, "name", in.Name); err != nil {
		return nil, err
	}

	svc.log.Sugar().Infow("Created class", "class_id", class.ID, "name", class.Name)
	return class, nil
}

func (svc *classes) Class(ctx context.Context, id uint) (*models.Class, error) {
	class := &models.Class{}
	err := svc.db.WithContext(ctx).Preload("Groups").First(class, id).Error
	if err = svc.settle("get class", err, "class_id", id); err != nil {
		return nil, err
	}
	return class, nil
}

func (svc *classes) Classes(ctx context.Context, filter ClassFilter) (models.Classes, error) {
	var all models.Classes
	q := svc.db.WithContext(ctx).Preload("Groups").Order("id")
	if filter.Level != "" {
		q = q.Where("level = ?", filter.Level)
	}
	if filter.TeacherID != 0 {
		q = q.Where("default_teacher_id = ?", filter.TeacherID)
	}
	err := q.Find(&all).Error
	return all, svc.settle("list classes", err)
}

func (svc *classes) UpdateClass(ctx context.Context, id uint, upd ClassUpdate) error {
	err := svc.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		class := &models.Class{}
		if err := tx.First(class, id).Error; err != nil {
			return err
		}
		if upd.Name != nil {
			class.Name = *upd.Name
		}
		if upd.EctsCredits != nil {
			class.EctsCredits = *upd.EctsCredits
		}
		if upd.EnsaeLink != nil {
			class.EnsaeLink = *upd.EnsaeLink
		}
		if upd.Level != nil {
			class.Level = *upd.Level
		}
		if upd.BackgroundColor != nil {
			class.BackgroundColor = *upd.BackgroundColor
		}
		if upd.DefaultTeacherID != nil {
			if err := requireUsers(tx, *upd.DefaultTeacherID); err != nil {
				return err
			}
			class.DefaultTeacherID = *upd.DefaultTeacherID
		}
		return tx.Omit(clause.Associations).Save(class).Error
	})
	return svc.settle("update class", err, "class_id", id)
}

// DeleteClass removes a class with its groups, memberships, lessons,
// messages and homework.
func (svc *classes) DeleteClass(ctx context.Context, id uint) error {
	err := svc.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&models.Class{}, id).Error; err != nil {
			return err
		}
		var groupIDs []uint
		if err := tx.Model(&models.ClassGroup{}).Where("class_id = ?", id).Pluck("id", &groupIDs).Error; err != nil {
			return err
		}
		for _, groupID := range groupIDs {
			if err := deleteClassGroup(tx, groupID); err != nil {
				return err
			}
		}
		if err := tx.Unscoped().Where("class_id = ?", id).Delete(&models.Homework{}).Error; err != nil {
			return err
		}
		return tx.Unscoped().Delete(&models.Class{}, id).Error
	})
	return svc.settle("delete class", err, "class_id", id)
}

func (svc *classes) CreateClassGroup(ctx context.Context, in NewClassGroup) (*models.ClassGroup, error) {
	group := &models.ClassGroup{Name: in.Name, ClassID: in.ClassID, IsMainGroup: in.IsMainGroup}
	err := svc.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&models.Class{}, in.ClassID).Error; err != nil {
			return err
		}
		return tx.Create(group).Error
	})
	if err = svc.settle("create class group", err, "class_id", in.ClassID); err != nil {
		return nil, err
	}
	return group, nil
}

func (svc *classes) ClassGroup(ctx context.Context, id uint) (*models.ClassGroup, error) {
	group := &models.ClassGroup{}
	err := svc.db.WithContext(ctx).First(group, id).Error
	if err = svc.settle("get class group", err, "group_id", id); err != nil {
		return nil, err
	}
	return group, nil
}

func (svc *classes) ClassGroups(ctx context.Context) ([]models.ClassGroup, error) {
	var groups []models.ClassGroup
	err := svc.db.WithContext(ctx).Order("id").Find(&groups).Error
	return groups, svc.settle("list class groups", err)
}

func (svc *classes) RenameClassGroup(ctx context.Context, id uint, name string) error {
	err := svc.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		group := &models.ClassGroup{}
		if err := tx.First(group, id).Error; err != nil {
			return err
		}
		return tx.Model(group).Update("name", name).Error
	})
	return svc.settle("rename class group", err, "group_id", id)
}

func (svc *classes) DeleteClassGroup(ctx context.Context, id uint) error {
	err := svc.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&models.ClassGroup{}, id).Error; err != nil {
			return err
		}
		return deleteClassGroup(tx, id)
	})
	return svc.settle("delete class group", err, "group_id", id)
}

func (svc *classes) ClassGroupMembers(ctx context.Context, groupID uint) (models.Users, error) {
	if _, err := svc.ClassGroup(ctx, groupID); err != nil {
		return nil, err
	}
	var members models.Users
	err := svc.db.WithContext(ctx).
		Joins("JOIN user_class_groups ON user_class_groups.user_id = users.id").
		Where("user_class_groups.class_group_id = ?", groupID).
		Order("users.id").
		Find(&members).Error
	return members, svc.settle("list class group members", err, "group_id", groupID)
}

// ClassStudents lists the students belonging to any group of the class.
func (svc *classes) ClassStudents(ctx context.Context, classID uint) (models.Users, error) {
	if _, err := svc.Class(ctx, classID); err != nil {
		return nil, err
	}
	var students models.Users
	err := svc.db.WithContext(ctx).
		Distinct("users.*").
		Joins("JOIN user_class_groups ON user_class_groups.user_id = users.id").
		Joins("JOIN class_groups ON class_groups.id = user_class_groups.class_group_id").
		Where("class_groups.class_id = ? AND users.role = ?", classID, models.RoleStudent).
		Order("users.id").
		Find(&students).Error
	return students, svc.settle("list class students", err, "class_id", classID)
}

// EnrollNewStudent creates a student and adds them to the main group of the
// class.
func (svc *classes) EnrollNewStudent(ctx context.Context, classID uint, in NewUser) (*models.User, error) {
	in.Role = models.RoleStudent

	var student *models.User
	err := svc.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		main, err := mainGroup(tx, classID)
		if err != nil {
			return err
		}
		student, err = insertUser(tx, svc.cfg.SchoolEmailDomain, in)
		if err != nil {
			return err
		}
		return tx.Create(&models.UserClassGroup{UserID: student.ID, ClassGroupID: main.ID}).Error
	})
	if err = svc.settle("enroll student", err, "class_id", classID); err != nil {
		return nil, err
	}

	svc.log.Sugar().Infow("Enrolled student", "class_id", classID, "user_id", student.ID)
	return student, nil
}

// AddMembership puts a user in a class group. Adding an existing member is a
// no-op.
func (svc *classes) AddMembership(ctx context.Context, userID, groupID uint) error {
	err := svc.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireUsers(tx, userID); err != nil {
			return err
		}
		if err := tx.First(&models.ClassGroup{}, groupID).Error; err != nil {
			return err
		}
		return tx.
			Clauses(clause.OnConflict{DoNothing: true}).
			Create(&models.UserClassGroup{UserID: userID, ClassGroupID: groupID}).Error
	})
	return svc.settle("add membership", err, "user_id", userID, "group_id", groupID)
}

func (svc *classes) Membership(ctx context.Context, userID, groupID uint) (*models.UserClassGroup, error) {
	m := &models.UserClassGroup{}
	err := svc.db.WithContext(ctx).Where("user_id = ? AND class_group_id = ?", userID, groupID).First(m).Error
	if err = svc.settle("get membership", err, "user_id", userID, "group_id", groupID); err != nil {
		return nil, err
	}
	return m, nil
}

func (svc *classes) RemoveMembership(ctx context.Context, userID, groupID uint) error {
	res := svc.db.WithContext(ctx).
		Where("user_id = ? AND class_group_id = ?", userID, groupID).
		Delete(&models.UserClassGroup{})
	if res.Error == nil && res.RowsAffected == 0 {
		return ErrNotFound
	}
	return svc.settle("remove membership", res.Error, "user_id", userID, "group_id", groupID)
}

// UserClassGroups lists the class groups a user belongs to.
func (svc *classes) UserClassGroups(ctx context.Context, userID uint) ([]models.ClassGroup, error) {
	var groups []models.ClassGroup
	err := svc.db.WithContext(ctx).
		Joins("JOIN user_class_groups ON user_class_groups.class_group_id = class_groups.id").
		Where("user_class_groups.user_id = ?", userID).
		Order("class_groups.id").
		Find(&groups).Error
	return groups, svc.settle("list user class groups", err, "user_id", userID)
}

// Grade returns the grade of a user in a class, read from their membership
// in one of the class's groups.
func (svc *classes) Grade(ctx context.Context, classID, userID uint) (sql.NullFloat64, error) {
	m, err := classMembership(svc.db.WithContext(ctx), classID, userID)
	if err = svc.settle("get grade", err, "class_id", classID, "user_id", userID); err != nil {
		return sql.NullFloat64{}, err
	}
	return m.Grade, nil
}

func (svc *classes) SetGrade(ctx context.Context, classID, userID uint, grade float64) error {
	err := svc.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		m, err := classMembership(tx, classID, userID)
		if err != nil {
			return err
		}
		return tx.Model(&models.UserClassGroup{}).
			Where("user_id = ? AND class_group_id = ?", m.UserID, m.ClassGroupID).
			Update("grade", sql.NullFloat64{Float64: grade, Valid: true}).Error
	})
	return svc.settle("set grade", err, "class_id", classID, "user_id", userID)
}

func classMembership(tx *gorm.DB, classID, userID uint) (*models.UserClassGroup, error) {
	m := &models.UserClassGroup{}
	err := tx.
		Joins("JOIN class_groups ON class_groups.id = user_class_groups.class_group_id").
		Where("class_groups.class_id = ? AND user_class_groups.user_id = ?", classID, userID).
		Order("class_groups.is_main_group desc").
		First(m).Error
	return m, err
}

func mainGroup(tx *gorm.DB, classID uint) (*models.ClassGroup, error) {
	if err := tx.First(&models.Class{}, classID).Error; err != nil {
		return nil, err
	}
	group := &models.ClassGroup{}
	err := tx.Where("class_id = ? AND is_main_group = ?", classID, true).Order("id").First(group).Error
	return group, err
}

func deleteClassGroup(tx *gorm.DB, groupID uint) error {
	steps := []*gorm.DB{
		tx.Where("class_group_id = ?", groupID).Delete(&models.UserClassGroup{}),
		tx.Unscoped().Where("class_group_id = ?", groupID).Delete(&models.Lesson{}),
		tx.Unscoped().Where("class_group_id = ?", groupID).Delete(&models.Message{}),
		tx.Unscoped().Delete(&models.ClassGroup{}, groupID),
	}
	for _, step := range steps {
		if step.Error != nil {
			return step.Error
		}
	}
	return nil
}
