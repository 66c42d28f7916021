// SPDX-License-Identifier: GPL-3.0-only

package migrations

import (
	"errors"
	"fmt"
	"viroscope-server/commons"
	"viroscope-server/crypto"
	"viroscope-server/models"

	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

func List() []*gormigrate.Migration {
	return []*gormigrate.Migration{
		{
			// Seed the first administrator from FIRST_USER_HANDLE and
			// FIRST_USER_PASSWORD. Skipped when any user already exists
			// or the variables are not set.
			ID: "001_seed_first_administrator",
			Migrate: func(tx *gorm.DB) error {
				handle := commons.GetEnv("FIRST_USER_HANDLE")
				password := commons.GetEnv("FIRST_USER_PASSWORD")
				if handle == "" || password == "" {
					return nil
				}

				var existing models.User
				err := tx.First(&existing).Error
				if err == nil {
					return nil
				}
				if !errors.Is(err, gorm.ErrRecordNotFound) {
					return fmt.Errorf("check existing users: %w", err)
				}

				hash, err := crypto.NewCrypto().HashPassword(password)
				if err != nil {
					return fmt.Errorf("hash first user password: %w", err)
				}

				permissions := models.NewPermissionSet()
				for _, name := range models.Capabilities {
					permissions[name] = true
				}

				return tx.Create(&models.User{
					Handle:        handle,
					Password:      hash,
					Administrator: true,
					Permissions:   permissions,
					Groups:        models.StringList{},
				}).Error
			},
			Rollback: func(tx *gorm.DB) error {
				return nil
			},
		},
	}
}
