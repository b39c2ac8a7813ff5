package server

import (
	"github.com/google/wire"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"ecorewards/internal/auth"
	"ecorewards/internal/catalog"
	"ecorewards/internal/chain"
	"ecorewards/internal/chat"
	"ecorewards/internal/config"
	"ecorewards/internal/database"
	"ecorewards/internal/handlers"
	"ecorewards/internal/idgen"
	"ecorewards/internal/ledger"
	"ecorewards/internal/middleware"
	"ecorewards/internal/orders"
	"ecorewards/internal/repository"
)

var StoreSet = wire.NewSet(
	database.NewMongo,
	database.NewRedis,
	repository.NewUsers,
	repository.NewSessions,
	repository.NewOrders,
	repository.NewProducts,
)

var ServiceSet = wire.NewSet(
	ProvideChainLedger,
	ProvideMirror,
	ProvideAuth,
	ProvideLedger,
	ProvideCatalog,
	ProvideReferences,
	ProvideOrders,
	ProvideAssistant,
	wire.Bind(new(middleware.SessionResolver), new(*auth.Service)),
)

var HandlerSet = wire.NewSet(
	handlers.NewAuth,
	handlers.NewUser,
	handlers.NewProducts,
	handlers.NewOrders,
	handlers.NewChat,
	handlers.NewAdmin,
	handlers.NewHealth,
	wire.Struct(new(Handlers), "*"),
	NewGuards,
	NewEngine,
)

// ProvideChainLedger dials the rewards contract when one is configured and
// falls back to the disabled ledger otherwise.
func ProvideChainLedger(cfg *config.Config, log *zap.Logger) (chain.Ledger, func(), error) {
	if !cfg.Chain.Enabled() {
		log.Info("external ledger not configured")
		return chain.Disabled{}, func() {}, nil
	}
	contract, err := chain.Dial(cfg.Chain)
	if err != nil {
		return nil, nil, err
	}
	log.Info("external ledger connected",
		zap.String("contract", cfg.Chain.ContractAddress),
		zap.Int64("chainId", cfg.Chain.ChainID))
	return contract, contract.Close, nil
}

func ProvideMirror(cfg *config.Config, rdb *redis.Client, ledger chain.Ledger, log *zap.Logger) *chain.Mirror {
	return chain.NewMirror(chain.NewRedisQueue(rdb), ledger, chain.MirrorOptions{
		Workers:         cfg.Chain.Workers,
		MaxAttempts:     cfg.Chain.MaxAttempts,
		RetryBase:       cfg.Chain.RetryBase,
		PromoteSchedule: cfg.Chain.PromoteSchedule,
	}, log)
}

func ProvideAuth(cfg *config.Config, users *repository.Users, sessions *repository.Sessions, log *zap.Logger) *auth.Service {
	return auth.NewService(users, sessions, auth.Options{
		SessionTTL:    cfg.SessionTTL,
		SignupBonus:   cfg.Shop.SignupBonus,
		JWTSecret:     cfg.JWTSecret,
		AdminTokenTTL: cfg.AdminTokenTTL,
	}, log)
}

func ProvideLedger(users *repository.Users, mirror *chain.Mirror, log *zap.Logger) *ledger.Service {
	return ledger.NewService(users, mirror, log)
}

func ProvideCatalog(products *repository.Products, log *zap.Logger) *catalog.Service {
	return catalog.NewService(products, log)
}

func ProvideReferences(cfg *config.Config) (*idgen.Generator, error) {
	return idgen.NewGenerator(cfg.Shop.NodeID, cfg.Shop.ReferenceSalt)
}

func ProvideOrders(
	cfg *config.Config,
	store *repository.Orders,
	ledger *ledger.Service,
	catalog *catalog.Service,
	mirror *chain.Mirror,
	refs *idgen.Generator,
	log *zap.Logger,
) *orders.Service {
	return orders.NewService(store, ledger, catalog, mirror, refs, orders.Options{
		DeliverySurcharge: cfg.Shop.DeliverySurcharge,
	}, log)
}

func ProvideAssistant(cfg *config.Config, log *zap.Logger) *chat.Assistant {
	return chat.NewAssistant(cfg.Chat, log)
}
