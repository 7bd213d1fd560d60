package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/arkade-os/kittyd/internal/core/application"
	"github.com/arkade-os/kittyd/internal/core/ports"
	"github.com/arkade-os/kittyd/internal/infrastructure/db"
	"github.com/arkade-os/kittyd/internal/infrastructure/events/logsink"
	watermillsink "github.com/arkade-os/kittyd/internal/infrastructure/events/watermill"
	"github.com/arkade-os/kittyd/internal/infrastructure/identity"
	"github.com/arkade-os/kittyd/internal/infrastructure/idgen"
	inmemorypayment "github.com/arkade-os/kittyd/internal/infrastructure/payment/inmemory"
	redispayment "github.com/arkade-os/kittyd/internal/infrastructure/payment/redis"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

var (
	supportedDbs = supportedType{
		"inmemory": {},
		"badger":   {},
		"sqlite":   {},
		"postgres": {},
	}
	supportedPayments = supportedType{
		"inmemory": {},
		"redis":    {},
	}
	supportedEventSinks = supportedType{
		"log":       {},
		"watermill": {},
	}
)

type Config struct {
	Datadir  string
	LogLevel int
	Caller   string

	DbType              string
	DbDir               string
	DbUrl               string
	PaymentType         string
	RedisUrl            string
	RedisTxNumOfRetries int
	EventSinkType       string
	MaxEnumerationCount uint64

	repo     ports.RepoManager
	payments ports.PaymentService
	sink     ports.EventSink
	svc      application.Service
}

func (c *Config) String() string {
	clone := *c
	if clone.DbUrl != "" {
		clone.DbUrl = maskUrl(clone.DbUrl)
	}
	if clone.RedisUrl != "" {
		clone.RedisUrl = maskUrl(clone.RedisUrl)
	}
	json, err := json.MarshalIndent(clone, "", "  ")
	if err != nil {
		return fmt.Sprintf("error while marshalling config JSON: %s", err)
	}
	return string(json)
}

var (
	defaultDatadir             = btcutil.AppDataDir("kittyd", false)
	defaultDbType              = "badger"
	defaultPaymentType         = "inmemory"
	defaultEventSinkType       = "log"
	defaultRedisTxNumOfRetries = 10
	defaultLogLevel            = 4
)

// env returns a list of strings prefixed with `KITTYD_`.
// This is used as a syntax sugar for defining env vars.
func env(values ...string) []string {
	envs := make([]string, len(values))

	for i, value := range values {
		envs[i] = fmt.Sprintf("KITTYD_%s", value)
	}

	return envs
}

var (
	Datadir = &cli.StringFlag{
		Usage: "Directory to store data",
		Name:  "datadir", EnvVars: env("DATADIR"),
		Value: defaultDatadir,
	}

	LogLevel = &cli.IntFlag{
		Usage: "Logging level (0-6, where 6 is trace)",
		Name:  "log-level", EnvVars: env("LOG_LEVEL"),
		Value: defaultLogLevel,
	}

	Caller = &cli.StringFlag{
		Usage: "Account on whose behalf commands run",
		Name:  "caller", EnvVars: env("CALLER"),
	}

	DbType = &cli.StringFlag{
		Usage: "Database type (inmemory, badger, sqlite, postgres)",
		Name:  "db-type", EnvVars: env("DB_TYPE"),
		Value: defaultDbType,
	}

	DbUrl = &cli.StringFlag{
		Usage: "Postgres connection url if KITTYD_DB_TYPE is set to postgres",
		Name:  "pg-db-url", EnvVars: env("PG_DB_URL"),
	}

	PaymentType = &cli.StringFlag{
		Usage: "Payment backend type (inmemory, redis)",
		Name:  "payment-type", EnvVars: env("PAYMENT_TYPE"),
		Value: defaultPaymentType,
	}

	RedisUrl = &cli.StringFlag{
		Usage: "Redis connection url if KITTYD_PAYMENT_TYPE is set to redis",
		Name:  "redis-url", EnvVars: env("REDIS_URL"),
	}

	RedisTxNumOfRetries = &cli.IntFlag{
		Usage: "Maximum number of retries for Redis write operations in case of conflicts",
		Name:  "redis-num-of-retries", EnvVars: env("REDIS_NUM_OF_RETRIES"),
		Value: defaultRedisTxNumOfRetries,
	}

	EventSinkType = &cli.StringFlag{
		Usage: "Event sink type (log, watermill)",
		Name:  "event-sink-type", EnvVars: env("EVENT_SINK_TYPE"),
		Value: defaultEventSinkType,
	}

	MaxEnumerationCount = &cli.Uint64Flag{
		Usage: "Maximum number of assets per registry, 0 means unbounded",
		Name:  "max-enumeration-count", EnvVars: env("MAX_ENUMERATION_COUNT"),
	}
)

var Flags = []cli.Flag{
	Datadir,
	LogLevel,
	Caller,
	DbType,
	DbUrl,
	PaymentType,
	RedisUrl,
	RedisTxNumOfRetries,
	EventSinkType,
	MaxEnumerationCount,
}

func LoadConfig(c *cli.Context) (*Config, error) {
	dbType := c.String(DbType.Name)

	var dbDir string
	if dbType == "badger" || dbType == "sqlite" {
		if err := initDatadir(c); err != nil {
			return nil, fmt.Errorf("failed to create datadir: %s", err)
		}
		dbDir = filepath.Join(c.String(Datadir.Name), "db")
		if err := makeDirectoryIfNotExists(dbDir); err != nil {
			return nil, fmt.Errorf("failed to create db dir: %s", err)
		}
	}

	var dbUrl string
	if dbType == "postgres" {
		dbUrl = c.String(DbUrl.Name)
		if dbUrl == "" {
			return nil, fmt.Errorf("db type set to 'postgres' but db url is missing")
		}
	}

	var redisUrl string
	if c.String(PaymentType.Name) == "redis" {
		redisUrl = c.String(RedisUrl.Name)
		if redisUrl == "" {
			return nil, fmt.Errorf("payment type set to 'redis' but redis url is missing")
		}
	}

	return &Config{
		Datadir:             c.String(Datadir.Name),
		LogLevel:            c.Int(LogLevel.Name),
		Caller:              c.String(Caller.Name),
		DbType:              dbType,
		DbDir:               dbDir,
		DbUrl:               dbUrl,
		PaymentType:         c.String(PaymentType.Name),
		RedisUrl:            redisUrl,
		RedisTxNumOfRetries: c.Int(RedisTxNumOfRetries.Name),
		EventSinkType:       c.String(EventSinkType.Name),
		MaxEnumerationCount: c.Uint64(MaxEnumerationCount.Name),
	}, nil
}

func initDatadir(c *cli.Context) error {
	datadir := c.String(Datadir.Name)
	return makeDirectoryIfNotExists(datadir)
}

func makeDirectoryIfNotExists(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return os.MkdirAll(path, os.ModeDir|0o755)
	}
	return nil
}

func (c *Config) Validate() error {
	if !supportedDbs.supports(c.DbType) {
		return fmt.Errorf("db type not supported, please select one of: %s", supportedDbs)
	}
	if !supportedPayments.supports(c.PaymentType) {
		return fmt.Errorf(
			"payment type not supported, please select one of: %s", supportedPayments,
		)
	}
	if !supportedEventSinks.supports(c.EventSinkType) {
		return fmt.Errorf(
			"event sink type not supported, please select one of: %s", supportedEventSinks,
		)
	}
	if c.LogLevel < int(log.PanicLevel) || c.LogLevel > int(log.TraceLevel) {
		return fmt.Errorf("invalid log level, must be in range [0, 6]")
	}
	if c.PaymentType == "redis" && c.RedisTxNumOfRetries < 1 {
		return fmt.Errorf("invalid redis num of retries, must be at least 1")
	}

	if err := c.repoManager(); err != nil {
		return err
	}
	if err := c.paymentService(); err != nil {
		return err
	}
	if err := c.eventSink(); err != nil {
		return err
	}
	return nil
}

func (c *Config) AppService() (application.Service, error) {
	if c.svc == nil {
		if err := c.appService(); err != nil {
			return nil, err
		}
	}
	return c.svc, nil
}

func (c *Config) IndexerService() application.IndexerService {
	return application.NewIndexerService(c.repo)
}

// Close releases every service built by Validate.
func (c *Config) Close() {
	if c.sink != nil {
		c.sink.Close()
	}
	if c.payments != nil {
		c.payments.Close()
	}
	if c.repo != nil {
		c.repo.Close()
	}
}

func (c *Config) repoManager() error {
	var dataStoreConfig []interface{}
	logger := log.New()
	logger.SetLevel(log.WarnLevel)

	switch c.DbType {
	case "inmemory":
	case "badger":
		dataStoreConfig = []interface{}{c.DbDir, logger}
	case "sqlite":
		dataStoreConfig = []interface{}{c.DbDir}
	case "postgres":
		dataStoreConfig = []interface{}{c.DbUrl, false}
	default:
		return fmt.Errorf("unknown db type")
	}

	svc, err := db.NewService(db.ServiceConfig{
		DataStoreType:   c.DbType,
		DataStoreConfig: dataStoreConfig,
	})
	if err != nil {
		return err
	}

	c.repo = svc
	return nil
}

func (c *Config) paymentService() error {
	var svc ports.PaymentService
	switch c.PaymentType {
	case "inmemory":
		svc = inmemorypayment.NewPaymentService()
	case "redis":
		redisOpts, err := redis.ParseURL(c.RedisUrl)
		if err != nil {
			return fmt.Errorf("invalid REDIS_URL: %w", err)
		}
		rdb := redis.NewClient(redisOpts)
		svc = redispayment.NewPaymentService(rdb, c.RedisTxNumOfRetries)
	default:
		return fmt.Errorf("unknown payment type")
	}

	c.payments = svc
	return nil
}

func (c *Config) eventSink() error {
	switch c.EventSinkType {
	case "log":
		c.sink = logsink.NewEventSink(log.StandardLogger())
	case "watermill":
		c.sink = watermillsink.NewEventSink("")
	default:
		return fmt.Errorf("unknown event sink type")
	}
	return nil
}

func (c *Config) appService() error {
	if c.repo == nil || c.payments == nil || c.sink == nil {
		return fmt.Errorf("config not validated")
	}

	svc, err := application.NewService(
		application.Config{MaxEnumerationCount: c.MaxEnumerationCount},
		c.repo,
		c.payments,
		c.sink,
		identity.NewIdentitySource(c.Caller),
		idgen.NewRandomSeedSource(),
		idgen.NewIdGenerator(),
	)
	if err != nil {
		return err
	}

	c.svc = svc
	return nil
}

// maskUrl hides the password of a connection url.
func maskUrl(rawUrl string) string {
	scheme, rest, ok := strings.Cut(rawUrl, "://")
	if !ok {
		return rawUrl
	}
	userInfo, host, ok := strings.Cut(rest, "@")
	if !ok {
		return rawUrl
	}
	user, _, hasPassword := strings.Cut(userInfo, ":")
	if !hasPassword {
		return rawUrl
	}
	return fmt.Sprintf("%s://%s:••••••@%s", scheme, user, host)
}

type supportedType map[string]struct{}

func (t supportedType) String() string {
	types := make([]string, 0, len(t))
	for tt := range t {
		types = append(types, tt)
	}
	return strings.Join(types, " | ")
}

func (t supportedType) supports(typeStr string) bool {
	_, ok := t[typeStr]
	return ok
}
