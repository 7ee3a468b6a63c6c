package cmd

import (
	"errors"
	"fmt"
	"time"

	"orderflow/internal/core/application/usecases/commands"
	"orderflow/internal/core/domain/model/order"
	"orderflow/internal/core/domain/services"
	"orderflow/internal/jobs"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "ORDERFLOW"

	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

type Config struct {
	App      AppConfig      `envconfig:"APP"`
	Store    StoreConfig    `envconfig:"STORE"`
	Redis    RedisConfig    `envconfig:"REDIS"`
	Dispatch DispatchConfig `envconfig:"DISPATCH"`
	Workflow WorkflowConfig `envconfig:"WORKFLOW"`
	Jobs     JobsConfig     `envconfig:"JOBS"`
	Retry    RetryConfig    `envconfig:"RETRY"`
}

type AppConfig struct {
	HTTPPort        string        `envconfig:"HTTP_PORT" default:"8080" validate:"required,numeric"`
	LogLevel        string        `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat       string        `envconfig:"LOG_FORMAT" default:"json" validate:"oneof=json console"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"15s" validate:"gt=0"`
}

type StoreConfig struct {
	Driver          string        `envconfig:"DRIVER" default:"postgres" validate:"oneof=postgres memory"`
	DSN             string        `envconfig:"DSN" validate:"required_if=Driver postgres"`
	MaxOpenConns    int           `envconfig:"MAX_OPEN_CONNS" default:"20" validate:"min=1"`
	MaxIdleConns    int           `envconfig:"MAX_IDLE_CONNS" default:"10" validate:"min=0"`
	ConnMaxLifetime time.Duration `envconfig:"CONN_MAX_LIFETIME" default:"1h"`
	PageSize        int           `envconfig:"PAGE_SIZE" default:"100" validate:"min=1,max=1000"`
	// AutoMigrate applies pending migrations on startup.
	AutoMigrate bool `envconfig:"AUTO_MIGRATE" default:"false"`
}

// RedisConfig is optional. Without a URL or address notifications and
// events are not published and job ticks are not coordinated.
type RedisConfig struct {
	URL      string        `envconfig:"URL"`
	Address  string        `envconfig:"ADDRESS"`
	Password string        `envconfig:"PASSWORD"`
	DB       int           `envconfig:"DB" default:"0" validate:"min=0"`
	PoolSize int           `envconfig:"POOL_SIZE" default:"10" validate:"min=1"`
	LockTTL  time.Duration `envconfig:"LOCK_TTL" default:"1m" validate:"gt=0"`
}

func (r RedisConfig) Enabled() bool {
	return r.URL != "" || r.Address != ""
}

type DispatchConfig struct {
	RequestTTL      time.Duration `envconfig:"REQUEST_TTL" default:"90s" validate:"gt=0"`
	TeamGracePeriod time.Duration `envconfig:"TEAM_GRACE_PERIOD" default:"0s" validate:"min=0"`
	MaxRounds       int           `envconfig:"MAX_ROUNDS" default:"5" validate:"min=1"`
	Deadline        time.Duration `envconfig:"DEADLINE" default:"15m" validate:"min=0"`
	MaxFanOut       int           `envconfig:"MAX_FAN_OUT" default:"10" validate:"min=0"`
	TriggerStatus   order.Status  `envconfig:"TRIGGER_STATUS" default:"Preparing"`
}

func (d DispatchConfig) Policy() order.DispatchPolicy {
	return order.DispatchPolicy{
		RequestTTL:      d.RequestTTL,
		TeamGracePeriod: d.TeamGracePeriod,
		MaxRounds:       d.MaxRounds,
		Deadline:        d.Deadline,
		MaxFanOut:       d.MaxFanOut,
	}
}

type WorkflowConfig struct {
	ReviewWindow          time.Duration `envconfig:"REVIEW_WINDOW" default:"168h" validate:"gt=0"`
	PendingAutoCancel     time.Duration `envconfig:"PENDING_AUTO_CANCEL" default:"15m" validate:"gt=0"`
	RideRequestTimeout    time.Duration `envconfig:"RIDE_REQUEST_TIMEOUT" default:"10m" validate:"gt=0"`
	DeliveredAutoComplete time.Duration `envconfig:"DELIVERED_AUTO_COMPLETE" default:"72h" validate:"gt=0"`
	PreparingNudge        time.Duration `envconfig:"PREPARING_NUDGE" default:"45m" validate:"gt=0"`
}

func (w WorkflowConfig) RuleDelays() services.RuleDelays {
	return services.RuleDelays{
		PendingAutoCancel:     w.PendingAutoCancel,
		RideRequestTimeout:    w.RideRequestTimeout,
		DeliveredAutoComplete: w.DeliveredAutoComplete,
		PreparingNudge:        w.PreparingNudge,
	}
}

type JobsConfig struct {
	Enabled          bool          `envconfig:"ENABLED" default:"true"`
	DispatchSweep    string        `envconfig:"DISPATCH_SWEEP" default:"*/5 * * * * *" validate:"required"`
	WorkflowRules    string        `envconfig:"WORKFLOW_RULES" default:"*/30 * * * * *" validate:"required"`
	RefundSettlement string        `envconfig:"REFUND_SETTLEMENT" default:"0 * * * * *" validate:"required"`
	Timeout          time.Duration `envconfig:"TIMEOUT" default:"30s" validate:"gt=0"`
}

func (j JobsConfig) Schedules() jobs.Schedules {
	return jobs.Schedules{
		DispatchSweep:    j.DispatchSweep,
		WorkflowRules:    j.WorkflowRules,
		RefundSettlement: j.RefundSettlement,
	}
}

type RetryConfig struct {
	MaxRetries      uint64        `envconfig:"MAX_RETRIES" default:"5"`
	InitialInterval time.Duration `envconfig:"INITIAL_INTERVAL" default:"20ms" validate:"gt=0"`
	MaxInterval     time.Duration `envconfig:"MAX_INTERVAL" default:"500ms" validate:"gtefield=InitialInterval"`
}

func (r RetryConfig) Policy() commands.RetryPolicy {
	return commands.RetryPolicy{
		MaxRetries:      r.MaxRetries,
		InitialInterval: r.InitialInterval,
		MaxInterval:     r.MaxInterval,
	}
}

// LoadConfig reads an optional .env file, then the ORDERFLOW_* environment.
func LoadConfig(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	// Missing .env files are fine; the environment may carry everything.
	_ = godotenv.Load(envFiles...)

	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	trigger := c.Dispatch.TriggerStatus
	if trigger != order.Confirmed && trigger != order.Preparing {
		return errors.New("invalid config: dispatch trigger status must be Confirmed or Preparing")
	}
	if err := c.Dispatch.Policy().Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
