package migration

import (
	"context"

	announcementdomain "github.com/opencommune/commune/internal/announcement/domain"
	authdomain "github.com/opencommune/commune/internal/auth/domain"
	"github.com/opencommune/commune/internal/config"
	eventdomain "github.com/opencommune/commune/internal/event/domain"
	groupdomain "github.com/opencommune/commune/internal/group/domain"
	notificationdomain "github.com/opencommune/commune/internal/notification/domain"
	organizationdomain "github.com/opencommune/commune/internal/organization/domain"
	"github.com/opencommune/commune/internal/reminder"
	"github.com/opencommune/commune/internal/seed"
	"github.com/opencommune/commune/internal/signup"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config, authsvc authdomain.Service) error {
		if cfg.DBType == "postgres" {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := RunMigrations(sqlDB); err != nil {
				return err
			}
		} else {
			// sqlite and mysql installs (mostly dev) lean on gorm's
			// schema sync instead of versioned SQL.
			if err := autoMigrate(conn); err != nil {
				return err
			}
		}

		if cfg.Bootstrap.EnsureDefaultAdmin {
			return seed.EnsureDefaultAdmin(context.Background(), authsvc, cfg.Bootstrap)
		}
		return nil
	}),
)

func autoMigrate(conn *gorm.DB) error {
	return conn.AutoMigrate(
		&authdomain.User{},
		&authdomain.Session{},
		&organizationdomain.Organization{},
		&organizationdomain.OrganizationMember{},
		&organizationdomain.OrganizationInvite{},
		&groupdomain.Group{},
		&groupdomain.GroupMember{},
		&eventdomain.Event{},
		&reminder.SentReminder{},
		&announcementdomain.Announcement{},
		&notificationdomain.Notification{},
		&signup.SignupEvent{},
	)
}
