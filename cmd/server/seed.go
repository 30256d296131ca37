package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/warp/leave-tracker/auth"
	"github.com/warp/leave-tracker/config"
	"github.com/warp/leave-tracker/leave"
	"github.com/warp/leave-tracker/store/jsondoc"
)

const adminAnnualDays = 30

// seedAdmin creates the configured admin account when no user has its
// username. An existing account is left alone, password included.
func seedAdmin(ctx context.Context, store *jsondoc.Store, admin config.Admin, log *zap.Logger) error {
	existing, err := store.GetUserByUsername(ctx, admin.Username)
	if err != nil {
		return fmt.Errorf("look up admin: %w", err)
	}
	if existing != nil {
		return nil
	}
	if admin.Password == "" {
		return fmt.Errorf("admin %q missing and admin.password is empty", admin.Username)
	}

	hash, err := auth.Hash(admin.Password)
	if err != nil {
		return err
	}
	id, err := store.CreateUser(ctx, leave.User{
		Username:   admin.Username,
		FirstName:  "System",
		LastName:   "Admin",
		Password:   hash,
		Role:       leave.RoleAdmin,
		AnnualDays: adminAnnualDays,
	})
	if err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	log.Info("admin account seeded", zap.Int64("user_id", id), zap.String("username", admin.Username))
	return nil
}
