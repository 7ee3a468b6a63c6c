package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	opshttp "orderflow/internal/adapters/in/http"
	"orderflow/internal/adapters/out/memory"
	"orderflow/internal/adapters/out/postgres/courierrepo"
	"orderflow/internal/adapters/out/postgres/migrations"
	"orderflow/internal/adapters/out/postgres/orderrepo"
	"orderflow/internal/adapters/out/postgres/paymentrepo"
	"orderflow/internal/adapters/out/redisbus"
	"orderflow/internal/core/application/events"
	"orderflow/internal/core/application/usecases/commands"
	"orderflow/internal/core/application/usecases/queries"
	"orderflow/internal/core/domain/services"
	"orderflow/internal/core/ports"
	"orderflow/internal/jobs"
	"orderflow/internal/pkg/clock"
	"orderflow/internal/pkg/logger"
	"orderflow/internal/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.uber.org/multierr"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// CompositionRoot owns the adapters and builds every handler on top of them.
type CompositionRoot struct {
	cfg    Config
	logger zerolog.Logger
	clock  ports.Clock

	registry        *prometheus.Registry
	dispatchMetrics *metrics.DispatchMetrics
	jobMetrics      *metrics.JobMetrics

	gormDB      *gorm.DB
	redisClient *redis.Client

	orderRepo *orderrepo.Repository
	orders    ports.OrderStore
	couriers  ports.CourierRepository
	payments  ports.PaymentPort
	events    *events.Dispatcher
	codes     services.RandomCodeGenerator
	rules     services.RuleSet

	updater   *commands.OrderUpdater
	broadcast *commands.BroadcastDeliveryCommandHandler
	settle    *commands.SettleRefundCommandHandler
}

func NewCompositionRoot(ctx context.Context, cfg Config, log zerolog.Logger) (*CompositionRoot, error) {
	c := &CompositionRoot{
		cfg:      cfg,
		logger:   log,
		clock:    clock.System{},
		registry: prometheus.NewRegistry(),
		codes:    services.NewRandomCodeGenerator(),
	}
	c.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	c.dispatchMetrics = metrics.NewDispatchMetrics(c.registry)
	c.jobMetrics = metrics.NewJobMetrics(c.registry)

	rules, err := services.DefaultRules(cfg.Workflow.RuleDelays())
	if err != nil {
		return nil, fmt.Errorf("workflow rules: %w", err)
	}
	c.rules = rules

	if err := c.openStore(ctx); err != nil {
		return nil, err
	}
	if err := c.openRedis(ctx); err != nil {
		_ = c.Close()
		return nil, err
	}

	var (
		publisher ports.EventPublisher
		notifier  ports.NotificationPort
	)
	if c.redisClient != nil {
		publisher = redisbus.NewEventPublisher(c.redisClient)
		notifier = redisbus.NewNotifier(c.redisClient)
	}
	c.events = events.NewDispatcher(publisher, notifier, logger.Component(log, "events"))

	c.updater = commands.NewOrderUpdater(c.orders, c.events, cfg.Retry.Policy(), c.dispatchMetrics)
	c.broadcast = commands.NewBroadcastDeliveryCommandHandler(
		c.updater,
		c.orders,
		c.couriers,
		cfg.Dispatch.Policy(),
		c.clock,
		c.dispatchMetrics,
		logger.Component(log, "dispatch"),
	)
	c.settle = commands.NewSettleRefundCommandHandler(c.orders, c.updater, c.payments, c.clock)

	return c, nil
}

func (c *CompositionRoot) openStore(ctx context.Context) error {
	// The payment gateway is external; the sandbox provider settles every
	// refund and stands in for it.
	provider := memory.NewPaymentLedger()

	if c.cfg.Store.Driver == StoreDriverMemory {
		c.orders = memory.NewOrderStore()
		c.couriers = memory.NewCourierRepository()
		c.payments = provider
		c.logger.Warn().Msg("using in-memory store; state is lost on restart")
		return nil
	}

	db, err := gorm.Open(postgres.Open(c.cfg.Store.DSN), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return fmt.Errorf("open postgres: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("postgres handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(c.cfg.Store.MaxOpenConns)
	sqlDB.SetMaxIdleConns(c.cfg.Store.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(c.cfg.Store.ConnMaxLifetime)
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return fmt.Errorf("ping postgres: %w", err)
	}

	if c.cfg.Store.AutoMigrate {
		if err := migrations.Up(ctx, sqlDB); err != nil {
			_ = sqlDB.Close()
			return err
		}
		c.logger.Info().Msg("migrations applied")
	}

	c.gormDB = db
	c.orderRepo = orderrepo.NewRepository(db, c.clock)
	c.orders = c.orderRepo
	c.couriers = courierrepo.NewRepository(db, c.clock)
	c.payments = paymentrepo.NewLedger(db, provider, c.clock)
	return nil
}

func (c *CompositionRoot) openRedis(ctx context.Context) error {
	if !c.cfg.Redis.Enabled() {
		c.logger.Warn().Msg("redis not configured; notifications and events are dropped")
		return nil
	}
	client, err := redisbus.New(ctx, redisbus.Options{
		URL:      c.cfg.Redis.URL,
		Address:  c.cfg.Redis.Address,
		Password: c.cfg.Redis.Password,
		DB:       c.cfg.Redis.DB,
		PoolSize: c.cfg.Redis.PoolSize,
	})
	if err != nil {
		return err
	}
	c.redisClient = client
	return nil
}

func (c *CompositionRoot) CreateCreateOrderCommandHandler() *commands.CreateOrderCommandHandler {
	return commands.NewCreateOrderCommandHandler(c.orders, c.events, c.broadcast, c.clock)
}

func (c *CompositionRoot) CreateChangeStatusCommandHandler() *commands.ChangeStatusCommandHandler {
	return commands.NewChangeStatusCommandHandler(c.updater, c.broadcast, c.clock, c.cfg.Dispatch.TriggerStatus)
}

func (c *CompositionRoot) CreateCancelOrderCommandHandler() *commands.CancelOrderCommandHandler {
	return commands.NewCancelOrderCommandHandler(c.updater, c.clock)
}

func (c *CompositionRoot) CreateBroadcastDeliveryCommandHandler() *commands.BroadcastDeliveryCommandHandler {
	return c.broadcast
}

func (c *CompositionRoot) CreateRespondDeliveryRequestCommandHandler() *commands.RespondDeliveryRequestCommandHandler {
	return commands.NewRespondDeliveryRequestCommandHandler(c.updater, c.codes, c.clock, c.dispatchMetrics)
}

func (c *CompositionRoot) CreateAssignCourierCommandHandler() *commands.AssignCourierCommandHandler {
	return commands.NewAssignCourierCommandHandler(c.updater, c.couriers, c.codes, c.clock, c.dispatchMetrics)
}

func (c *CompositionRoot) CreateReleaseCourierCommandHandler() *commands.ReleaseCourierCommandHandler {
	return commands.NewReleaseCourierCommandHandler(c.updater, c.broadcast, c.clock)
}

func (c *CompositionRoot) CreateReopenDispatchCommandHandler() *commands.ReopenDispatchCommandHandler {
	return commands.NewReopenDispatchCommandHandler(c.updater, c.broadcast, c.clock)
}

func (c *CompositionRoot) CreateSweepDispatchCommandHandler() *commands.SweepDispatchCommandHandler {
	return commands.NewSweepDispatchCommandHandler(c.orders, c.broadcast, c.cfg.Dispatch.Policy(), c.clock, c.cfg.Store.PageSize)
}

func (c *CompositionRoot) CreateVerifyHandoverCommandHandler() *commands.VerifyHandoverCommandHandler {
	return commands.NewVerifyHandoverCommandHandler(c.updater, c.clock)
}

func (c *CompositionRoot) CreateUpdateDriverLocationCommandHandler() *commands.UpdateDriverLocationCommandHandler {
	return commands.NewUpdateDriverLocationCommandHandler(c.updater)
}

func (c *CompositionRoot) CreateRequestRefundCommandHandler() *commands.RequestRefundCommandHandler {
	return commands.NewRequestRefundCommandHandler(c.updater, c.clock, c.cfg.Workflow.ReviewWindow)
}

func (c *CompositionRoot) CreateExtendReviewPeriodCommandHandler() *commands.ExtendReviewPeriodCommandHandler {
	return commands.NewExtendReviewPeriodCommandHandler(c.updater, c.clock, c.cfg.Workflow.ReviewWindow)
}

func (c *CompositionRoot) CreateRecordRefundApprovalCommandHandler() *commands.RecordRefundApprovalCommandHandler {
	return commands.NewRecordRefundApprovalCommandHandler(c.updater, c.settle, c.clock, logger.Component(c.logger, "refunds"))
}

func (c *CompositionRoot) CreateSettleRefundCommandHandler() *commands.SettleRefundCommandHandler {
	return c.settle
}

func (c *CompositionRoot) CreateSettlePendingRefundsCommandHandler() *commands.SettlePendingRefundsCommandHandler {
	return commands.NewSettlePendingRefundsCommandHandler(c.orders, c.settle, c.cfg.Store.PageSize)
}

func (c *CompositionRoot) CreateRunWorkflowRulesCommandHandler() *commands.RunWorkflowRulesCommandHandler {
	return commands.NewRunWorkflowRulesCommandHandler(c.orders, c.updater, c.rules, c.clock, c.cfg.Store.PageSize)
}

func (c *CompositionRoot) CreateCreateCourierCommandHandler() *commands.CreateCourierCommandHandler {
	return commands.NewCreateCourierCommandHandler(c.couriers)
}

func (c *CompositionRoot) CreateSetCourierAvailabilityCommandHandler() *commands.SetCourierAvailabilityCommandHandler {
	return commands.NewSetCourierAvailabilityCommandHandler(c.couriers, c.clock)
}

var errReadModelNeedsPostgres = errors.New("read models require the postgres store")

func (c *CompositionRoot) CreateGetAllCouriersQueryHandler() (queries.GetAllCouriersQueryHandler, error) {
	if c.gormDB == nil {
		return queries.GetAllCouriersQueryHandler{}, errReadModelNeedsPostgres
	}
	return queries.NewGetAllCouriersQueryHandler(c.gormDB), nil
}

func (c *CompositionRoot) CreateGetUncompletedOrdersQueryHandler() (queries.GetUncompletedOrdersQueryHandler, error) {
	if c.gormDB == nil {
		return queries.GetUncompletedOrdersQueryHandler{}, errReadModelNeedsPostgres
	}
	return queries.NewGetUncompletedOrdersQueryHandler(c.gormDB), nil
}

func (c *CompositionRoot) CreateGetDispatchQueueQueryHandler() (queries.GetDispatchQueueQueryHandler, error) {
	if c.gormDB == nil {
		return queries.GetDispatchQueueQueryHandler{}, errReadModelNeedsPostgres
	}
	return queries.NewGetDispatchQueueQueryHandler(c.gormDB), nil
}

// CreateJobManager builds the scheduler jobs. Ticks are coordinated through
// Redis locks when Redis is configured.
func (c *CompositionRoot) CreateJobManager() (*jobs.JobManager, error) {
	deps := jobs.Deps{
		Metrics: c.jobMetrics,
		Logger:  c.logger,
		Timeout: c.cfg.Jobs.Timeout,
	}
	if c.redisClient != nil {
		deps.Locks = func(job string) (jobs.Lock, error) {
			return redisbus.NewLock(c.redisClient, job, c.cfg.Redis.LockTTL)
		}
	}
	return jobs.NewJobManager(
		c.cfg.Jobs.Schedules(),
		c.CreateSweepDispatchCommandHandler(),
		c.CreateRunWorkflowRulesCommandHandler(),
		c.CreateSettlePendingRefundsCommandHandler(),
		deps,
	)
}

func (c *CompositionRoot) CreateOpsServer() *opshttp.Server {
	checks := map[string]opshttp.Check{}
	if c.gormDB != nil {
		checks["postgres"] = func(ctx context.Context) error {
			sqlDB, err := c.gormDB.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		}
	}
	if c.redisClient != nil {
		checks["redis"] = func(ctx context.Context) error {
			return c.redisClient.Ping(ctx).Err()
		}
	}
	return opshttp.NewServer(opshttp.Options{
		Checks:   checks,
		Gatherer: c.registry,
		Logger:   logger.Component(c.logger, "ops_http"),
	})
}

// RunBackground runs the change listener and the order feed relay until ctx
// is done. Neither is started when its backing service is not configured.
func (c *CompositionRoot) RunBackground(ctx context.Context) <-chan error {
	errCh := make(chan error, 2)
	if c.orderRepo != nil {
		go func() {
			errCh <- c.orderRepo.ListenForChanges(ctx, c.cfg.Store.DSN, logger.Component(c.logger, "order_changes"))
		}()
	}
	if c.redisClient != nil {
		relay := redisbus.NewFeedRelay(c.orders, c.redisClient, logger.Component(c.logger, "feed_relay"))
		go func() {
			errCh <- relay.Run(ctx)
		}()
	}
	return errCh
}

// Close releases database and Redis connections.
func (c *CompositionRoot) Close() error {
	var err error
	if c.redisClient != nil {
		err = multierr.Append(err, c.redisClient.Close())
	}
	if c.gormDB != nil {
		if sqlDB, dbErr := c.gormDB.DB(); dbErr == nil {
			err = multierr.Append(err, sqlDB.Close())
		}
	}
	return err
}

func (c *CompositionRoot) ShutdownTimeout() time.Duration {
	return c.cfg.App.ShutdownTimeout
}
