package signup

import (
	"github.com/bwmarrin/snowflake"
	notificationdomain "github.com/opencommune/commune/internal/notification/domain"
	"github.com/opencommune/commune/internal/signup/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("signup.service",
	fx.Provide(newProvisioner),
	fx.Provide(NewService),
)

func newProvisioner(db *gorm.DB, genID *snowflake.Node, notifications notificationdomain.Service) domain.Provisioner {
	return NewEventProvisioner(db, genID, notifications)
}
