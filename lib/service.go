package lib

import (
	"github.com/fiffu/betterave/config"
	"github.com/fiffu/betterave/senders"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	cfg     *config.Config
	log     *zap.Logger
	db      *gorm.DB
	senders senders.Registry

	*subscriptions
	*recipients
	*events
	*users
	*auth
	*classes
	*lessons
	*messages
}

func NewService(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger, db *gorm.DB, senders senders.Registry) *Service {
	b := base{cfg, log, db}
	return &Service{
		cfg, log, db, senders,
		&subscriptions{b},
		&recipients{b},
		&events{b},
		&users{b},
		&auth{b, senders},
		&classes{b},
		&lessons{b},
		&messages{b},
	}
}

type base struct {
	cfg *config.Config
	log *zap.Logger
	db  *gorm.DB
}
