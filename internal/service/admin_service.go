//go:generate mockery --name AdminService --output ./mocks --outpkg mocks --case=underscore
package service

import (
	"context"
	"errors"

	"go_flashcard_study/internal/middleware"
	"go_flashcard_study/internal/model"
	"go_flashcard_study/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AdminService は管理者向けのユーザー管理を提供します。
// 権限チェックはリクエストパイプラインで済んでいる前提です。
type AdminService interface {
	ListUsers(ctx context.Context, query model.UserListQuery) (*model.PagedResponse[*model.User], error)
	GetUser(ctx context.Context, userID uuid.UUID) (*model.AdminUserDetail, error)
	UpdateUserRole(ctx context.Context, actorID, userID uuid.UUID, role model.Role) (*model.User, error)
	UpdateUserStatus(ctx context.Context, actorID, userID uuid.UUID, isActive bool) (*model.User, error)
	DeleteUser(ctx context.Context, actorID, userID uuid.UUID) error
	ListUserFlashcards(ctx context.Context, userID uuid.UUID, query model.FlashcardListQuery) (*model.PagedResponse[*model.Flashcard], error)
	GetStats(ctx context.Context) (*model.AdminStats, error)
}

type adminService struct {
	db          *gorm.DB
	userRepo    repository.UserRepository
	cardRepo    repository.FlashcardRepository
	sessionRepo repository.StudySessionRepository
	tokenRepo   repository.TokenRepository
}

func NewAdminService(db *gorm.DB, userRepo repository.UserRepository, cardRepo repository.FlashcardRepository, sessionRepo repository.StudySessionRepository, tokenRepo repository.TokenRepository) AdminService {
	return &adminService{
		db:          db,
		userRepo:    userRepo,
		cardRepo:    cardRepo,
		sessionRepo: sessionRepo,
		tokenRepo:   tokenRepo,
	}
}

func selfTargetError(action string) error {
	return model.NewAppError("SELF_TARGET_FORBIDDEN", "administrators cannot "+action+" their own account", "", model.ErrForbidden)
}

var errLastAdmin = model.NewAppError("LAST_ADMIN", "at least one active administrator must remain", "", model.ErrConflict)

func (s *adminService) ListUsers(ctx context.Context, query model.UserListQuery) (*model.PagedResponse[*model.User], error) {
	if query.Role != "" && !query.Role.IsValid() {
		return nil, model.NewAppError("VALIDATION_ERROR", "role must be one of: user admin", "role", model.ErrInvalidInput)
	}
	users, total, err := s.userRepo.List(ctx, s.db, query)
	if err != nil {
		return nil, err
	}
	resp := model.NewPagedResponse(users, query.Page, query.Limit, total)
	return &resp, nil
}

func (s *adminService) GetUser(ctx context.Context, userID uuid.UUID) (*model.AdminUserDetail, error) {
	user, err := s.findUser(ctx, s.db, userID)
	if err != nil {
		return nil, err
	}
	count, err := s.cardRepo.CountByUser(ctx, s.db, userID)
	if err != nil {
		return nil, err
	}
	return &model.AdminUserDetail{User: *user, CardCount: count}, nil
}

func (s *adminService) UpdateUserRole(ctx context.Context, actorID, userID uuid.UUID, role model.Role) (*model.User, error) {
	if actorID == userID {
		return nil, selfTargetError("change the role of")
	}
	if !role.IsValid() {
		return nil, model.NewAppError("VALIDATION_ERROR", "role must be one of: user admin", "role", model.ErrInvalidInput)
	}

	var updated *model.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, err := s.findUser(ctx, tx, userID)
		if err != nil {
			return err
		}
		if user.Role == role {
			updated = user
			return nil
		}
		if user.IsAdmin() && user.IsActive {
			if err := s.ensureAnotherAdmin(ctx, tx); err != nil {
				return err
			}
		}
		if err := s.userRepo.UpdateFields(ctx, tx, userID, map[string]interface{}{"role": role}); err != nil {
			return err
		}
		updated, err = s.findUser(ctx, tx, userID)
		return err
	})
	if err != nil {
		return nil, err
	}

	middleware.GetLogger(ctx).Info("User role updated",
		"actor_id", actorID.String(),
		"user_id", userID.String(),
		"role", string(role),
	)
	return updated, nil
}

func (s *adminService) UpdateUserStatus(ctx context.Context, actorID, userID uuid.UUID, isActive bool) (*model.User, error) {
	if actorID == userID {
		return nil, selfTargetError("change the status of")
	}

	var updated *model.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, err := s.findUser(ctx, tx, userID)
		if err != nil {
			return err
		}
		if user.IsActive == isActive {
			updated = user
			return nil
		}
		if !isActive && user.IsAdmin() {
			if err := s.ensureAnotherAdmin(ctx, tx); err != nil {
				return err
			}
		}
		if err := s.userRepo.UpdateFields(ctx, tx, userID, map[string]interface{}{"is_active": isActive}); err != nil {
			return err
		}
		updated, err = s.findUser(ctx, tx, userID)
		return err
	})
	if err != nil {
		return nil, err
	}

	middleware.GetLogger(ctx).Info("User status updated",
		"actor_id", actorID.String(),
		"user_id", userID.String(),
		"is_active", isActive,
	)
	return updated, nil
}

// DeleteUser はユーザーと、そのカード・セッション・リセットトークンを同じトランザクションで削除します
func (s *adminService) DeleteUser(ctx context.Context, actorID, userID uuid.UUID) error {
	if actorID == userID {
		return selfTargetError("delete")
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, err := s.findUser(ctx, tx, userID)
		if err != nil {
			return err
		}
		if user.IsAdmin() && user.IsActive {
			if err := s.ensureAnotherAdmin(ctx, tx); err != nil {
				return err
			}
		}
		if err := s.tokenRepo.DeleteByUser(ctx, tx, userID); err != nil {
			return err
		}
		if err := s.sessionRepo.DeleteByUser(ctx, tx, userID); err != nil {
			return err
		}
		if err := s.cardRepo.DeleteByUser(ctx, tx, userID); err != nil {
			return err
		}
		return s.userRepo.Delete(ctx, tx, userID)
	})
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return model.NewNotFoundError("user")
		}
		return err
	}

	middleware.GetLogger(ctx).Info("User deleted", "actor_id", actorID.String(), "user_id", userID.String())
	return nil
}

func (s *adminService) ListUserFlashcards(ctx context.Context, userID uuid.UUID, query model.FlashcardListQuery) (*model.PagedResponse[*model.Flashcard], error) {
	if _, err := s.findUser(ctx, s.db, userID); err != nil {
		return nil, err
	}
	cards, total, err := s.cardRepo.List(ctx, s.db, userID, query, utcNow())
	if err != nil {
		return nil, err
	}
	resp := model.NewPagedResponse(cards, query.Page, query.Limit, total)
	return &resp, nil
}

func (s *adminService) GetStats(ctx context.Context) (*model.AdminStats, error) {
	var stats model.AdminStats
	var err error
	if stats.TotalUsers, err = s.userRepo.CountAll(ctx, s.db); err != nil {
		return nil, err
	}
	if stats.ActiveUsers, err = s.userRepo.CountActive(ctx, s.db); err != nil {
		return nil, err
	}
	if stats.AdminUsers, err = s.userRepo.CountByRole(ctx, s.db, model.RoleAdmin); err != nil {
		return nil, err
	}
	if stats.TotalCards, err = s.cardRepo.CountAll(ctx, s.db); err != nil {
		return nil, err
	}
	if stats.ReviewedCards, err = s.cardRepo.CountReviewed(ctx, s.db); err != nil {
		return nil, err
	}
	return &stats, nil
}

func (s *adminService) findUser(ctx context.Context, db *gorm.DB, userID uuid.UUID) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, db, userID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, model.NewNotFoundError("user")
		}
		return nil, err
	}
	return user, nil
}

// ensureAnotherAdmin は対象以外に有効な管理者が残るかを確認します。
// 呼び出し側は対象が有効な管理者であることを確認済みとする。
func (s *adminService) ensureAnotherAdmin(ctx context.Context, tx *gorm.DB) error {
	n, err := s.userRepo.CountActiveByRole(ctx, tx, model.RoleAdmin)
	if err != nil {
		return err
	}
	if n <= 1 {
		return errLastAdmin
	}
	return nil
}
