package identity

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/wms/backend/internal/domain/identity"
	"github.com/wms/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// UserService handles user management operations
type UserService struct {
	userRepo identity.UserRepository
	logger   *zap.Logger
}

// NewUserService creates a new user service
func NewUserService(userRepo identity.UserRepository, logger *zap.Logger) *UserService {
	return &UserService{
		userRepo: userRepo,
		logger:   logger,
	}
}

// ListUsers lists users with pagination
func (s *UserService) ListUsers(ctx context.Context, filter UserListFilter) (shared.Paginated[UserResponse], error) {
	f := shared.Filter{
		Page:     filter.Page,
		PageSize: filter.PageSize,
		OrderBy:  filter.OrderBy,
		OrderDir: filter.OrderDir,
		Search:   strings.TrimSpace(filter.Search),
	}.Normalize()

	if filter.Role != "" {
		role := identity.Role(strings.ToUpper(filter.Role))
		if !role.IsValid() {
			return shared.Paginated[UserResponse]{}, shared.NewDomainError(shared.CodeValidation, "Unknown role").
				WithDetail("role", filter.Role)
		}
		f.Filters["role"] = role
	}

	users, err := s.userRepo.FindAll(ctx, f)
	if err != nil {
		return shared.Paginated[UserResponse]{}, err
	}
	total, err := s.userRepo.Count(ctx, f)
	if err != nil {
		return shared.Paginated[UserResponse]{}, err
	}

	return shared.NewPaginated(ToUserResponses(users), total, f.Page, f.PageSize), nil
}

// GetByID retrieves a user by ID
func (s *UserService) GetByID(ctx context.Context, id uuid.UUID) (*UserResponse, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToUserResponse(user)
	return &resp, nil
}

// UpdateRole changes a user's role. The last administrator cannot be demoted.
func (s *UserService) UpdateRole(ctx context.Context, id uuid.UUID, req UpdateRoleRequest, actorID uuid.UUID) (*UserResponse, error) {
	role := identity.Role(strings.ToUpper(req.Role))
	if !role.IsValid() {
		return nil, shared.NewDomainError(shared.CodeValidation, "Unknown role").WithDetail("role", req.Role)
	}

	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if user.Role == identity.RoleAdmin && role != identity.RoleAdmin {
		admins, err := s.userRepo.CountByRole(ctx, identity.RoleAdmin)
		if err != nil {
			return nil, err
		}
		if admins <= 1 {
			return nil, shared.NewDomainError(shared.CodeInvalidState, "Cannot demote the last administrator")
		}
	}

	previous := user.Role
	if err := user.SetRole(role); err != nil {
		return nil, err
	}
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("User role updated",
		zap.String("user_id", user.ID.String()),
		zap.String("actor_id", actorID.String()),
		zap.String("from", previous.String()),
		zap.String("to", role.String()))

	resp := ToUserResponse(user)
	return &resp, nil
}
