package providers

import (
	"github.com/opencommune/commune/internal/providers/aicontent"
	"github.com/opencommune/commune/internal/providers/email"
	"go.uber.org/fx"
)

var Module = fx.Module("providers",
	email.Module,
	aicontent.Module,
)
