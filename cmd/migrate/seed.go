package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wms/backend/internal/domain/identity"
	"github.com/wms/backend/internal/infrastructure/config"
	"github.com/wms/backend/internal/infrastructure/persistence"
	"go.uber.org/zap"
)

type seedOptions struct {
	Username string
	Email    string
	Password string
}

// runSeed creates the first admin. It does nothing when an admin already exists,
// so it is safe to run on every deploy.
func runSeed(cfg *config.DatabaseConfig, opts seedOptions, log *zap.Logger) error {
	if opts.Password == "" {
		return errors.New("admin password required (-admin-password or WMS_SEED_ADMIN_PASSWORD)")
	}

	db, err := persistence.NewDatabase(cfg, log)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return seedAdmin(ctx, persistence.NewGormUserRepository(db.DB), opts, log)
}

func seedAdmin(ctx context.Context, users identity.UserRepository, opts seedOptions, log *zap.Logger) error {
	admins, err := users.CountByRole(ctx, identity.RoleAdmin)
	if err != nil {
		return fmt.Errorf("failed to count admins: %w", err)
	}
	if admins > 0 {
		log.Info("Admin already exists, nothing to seed", zap.Int64("admins", admins))
		return nil
	}

	taken, err := users.ExistsByUsernameOrEmail(ctx, opts.Username, opts.Email)
	if err != nil {
		return fmt.Errorf("failed to check existing users: %w", err)
	}
	if taken {
		return fmt.Errorf("username %q or email %q belongs to a non-admin user", opts.Username, opts.Email)
	}

	admin, err := identity.NewUser(opts.Username, opts.Email, opts.Password, identity.RoleAdmin)
	if err != nil {
		return err
	}
	if err := users.Create(ctx, admin); err != nil {
		return fmt.Errorf("failed to create admin: %w", err)
	}

	log.Info("Admin user created",
		zap.String("user_id", admin.ID.String()),
		zap.String("username", admin.Username),
	)
	return nil
}
