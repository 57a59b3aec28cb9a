//go:generate mockery --name UserRepository --output ./mocks --outpkg mocks --case=underscore
package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go_flashcard_study/internal/middleware"
	"go_flashcard_study/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserRepository interface {
	Create(ctx context.Context, db *gorm.DB, user *model.User) error
	FindByID(ctx context.Context, db *gorm.DB, userID uuid.UUID) (*model.User, error)
	FindByEmail(ctx context.Context, db *gorm.DB, email string) (*model.User, error)
	FindByUsername(ctx context.Context, db *gorm.DB, username string) (*model.User, error)
	List(ctx context.Context, db *gorm.DB, query model.UserListQuery) ([]*model.User, int64, error)
	UpdateFields(ctx context.Context, db *gorm.DB, userID uuid.UUID, updates map[string]interface{}) error
	Delete(ctx context.Context, db *gorm.DB, userID uuid.UUID) error
	CountAll(ctx context.Context, db *gorm.DB) (int64, error)
	CountActive(ctx context.Context, db *gorm.DB) (int64, error)
	CountByRole(ctx context.Context, db *gorm.DB, role model.Role) (int64, error)
	CountActiveByRole(ctx context.Context, db *gorm.DB, role model.Role) (int64, error)
}

type gormUserRepository struct{}

func NewGormUserRepository() UserRepository {
	return &gormUserRepository{}
}

func (r *gormUserRepository) Create(ctx context.Context, db *gorm.DB, user *model.User) error {
	logger := middleware.GetLogger(ctx)

	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	result := db.WithContext(ctx).Create(user)
	if result.Error != nil {
		if isDuplicateKeyError(result.Error) {
			logger.Warn("Duplicate key error on create user",
				"error", result.Error,
				"username", user.Username,
			)
			return model.ErrConflict
		}
		logger.Error("Error creating user in DB",
			"error", result.Error,
			"username", user.Username,
		)
		return fmt.Errorf("gormUserRepository.Create: %w", result.Error)
	}
	return nil
}

func (r *gormUserRepository) FindByID(ctx context.Context, db *gorm.DB, userID uuid.UUID) (*model.User, error) {
	return r.findOne(ctx, db, "FindByID", "id = ?", userID)
}

func (r *gormUserRepository) FindByEmail(ctx context.Context, db *gorm.DB, email string) (*model.User, error) {
	return r.findOne(ctx, db, "FindByEmail", "LOWER(email) = ?", strings.ToLower(email))
}

func (r *gormUserRepository) FindByUsername(ctx context.Context, db *gorm.DB, username string) (*model.User, error) {
	return r.findOne(ctx, db, "FindByUsername", "username = ?", username)
}

func (r *gormUserRepository) findOne(ctx context.Context, db *gorm.DB, op string, cond string, arg interface{}) (*model.User, error) {
	logger := middleware.GetLogger(ctx)
	var user model.User

	result := db.WithContext(ctx).Where(cond, arg).First(&user)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			logger.Debug("User not found", "op", op)
			return nil, model.ErrNotFound
		}
		logger.Error("Error finding user in DB", "op", op, "error", result.Error)
		return nil, fmt.Errorf("gormUserRepository.%s: %w", op, result.Error)
	}
	return &user, nil
}

func (r *gormUserRepository) List(ctx context.Context, db *gorm.DB, query model.UserListQuery) ([]*model.User, int64, error) {
	logger := middleware.GetLogger(ctx)

	q := db.WithContext(ctx).Model(&model.User{})
	if query.Search != "" {
		like := "%" + strings.ToLower(query.Search) + "%"
		q = q.Where("LOWER(username) LIKE ? OR LOWER(email) LIKE ?", like, like)
	}
	if query.Role != "" {
		q = q.Where("role = ?", query.Role)
	}
	// Count と Find で条件を共有する
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		logger.Error("Error counting users in DB", "error", err)
		return nil, 0, fmt.Errorf("gormUserRepository.List: %w", err)
	}

	var users []*model.User
	err := q.Order("created_at ASC, id ASC").
		Offset(model.Offset(query.Page, query.Limit)).
		Limit(query.Limit).
		Find(&users).Error
	if err != nil {
		logger.Error("Error listing users in DB", "error", err)
		return nil, 0, fmt.Errorf("gormUserRepository.List: %w", err)
	}
	return users, total, nil
}

func (r *gormUserRepository) UpdateFields(ctx context.Context, db *gorm.DB, userID uuid.UUID, updates map[string]interface{}) error {
	logger := middleware.GetLogger(ctx)
	if len(updates) == 0 {
		return nil
	}
	result := db.WithContext(ctx).Model(&model.User{}).Where("id = ?", userID).Updates(updates)
	if result.Error != nil {
		logger.Error("Error updating user in DB", "error", result.Error, "user_id", userID.String())
		return fmt.Errorf("gormUserRepository.UpdateFields: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return model.ErrNotFound
	}
	return nil
}

// Delete はユーザー行のみを削除します。関連データの削除は呼び出し側のトランザクションで行います。
func (r *gormUserRepository) Delete(ctx context.Context, db *gorm.DB, userID uuid.UUID) error {
	logger := middleware.GetLogger(ctx)
	result := db.WithContext(ctx).Where("id = ?", userID).Delete(&model.User{})
	if result.Error != nil {
		logger.Error("Error deleting user in DB", "error", result.Error, "user_id", userID.String())
		return fmt.Errorf("gormUserRepository.Delete: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (r *gormUserRepository) CountAll(ctx context.Context, db *gorm.DB) (int64, error) {
	return r.count(ctx, db.WithContext(ctx).Model(&model.User{}), "CountAll")
}

func (r *gormUserRepository) CountActive(ctx context.Context, db *gorm.DB) (int64, error) {
	return r.count(ctx, db.WithContext(ctx).Model(&model.User{}).Where("is_active = ?", true), "CountActive")
}

func (r *gormUserRepository) CountByRole(ctx context.Context, db *gorm.DB, role model.Role) (int64, error) {
	return r.count(ctx, db.WithContext(ctx).Model(&model.User{}).Where("role = ?", role), "CountByRole")
}

// CountActiveByRole は有効なアカウントのうち role を持つ件数を返します。
func (r *gormUserRepository) CountActiveByRole(ctx context.Context, db *gorm.DB, role model.Role) (int64, error) {
	return r.count(ctx, db.WithContext(ctx).Model(&model.User{}).Where("role = ? AND is_active = ?", role, true), "CountActiveByRole")
}

func (r *gormUserRepository) count(ctx context.Context, q *gorm.DB, op string) (int64, error) {
	var n int64
	if err := q.Count(&n).Error; err != nil {
		middleware.GetLogger(ctx).Error("Error counting users in DB", "op", op, "error", err)
		return 0, fmt.Errorf("gormUserRepository.%s: %w", op, err)
	}
	return n, nil
}
