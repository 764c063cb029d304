package app

import (
	"context"
	"fmt"
	"time"

	"dualtodo/internal/cache"
	"dualtodo/internal/config"
	"dualtodo/internal/repo"
	"dualtodo/internal/service"
	"dualtodo/migrations"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Backend names double as URL prefixes and cache namespaces.
const (
	DocumentBackend   = "todo"
	RelationalBackend = "todoSql"
)

const (
	kindMongo    = "mongodb"
	kindPostgres = "postgres"
	kindMemory   = "memory"
)

// backend is one mounted todo service.
type backend struct {
	name string
	kind string
	svc  *service.TodoService
}

type App struct {
	cfg      config.Config
	log      *log.Logger
	db       *pgxpool.Pool
	mongo    *mongo.Client
	redis    *redis.Client
	backends []backend
	router   *gin.Engine
}

func New(cfg config.Config, logger *log.Logger) (*App, error) {
	a := &App{cfg: cfg, log: logger}
	ctx := context.Background()

	if cfg.Redis.Enabled() {
		rdb, err := newRedis(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		a.redis = rdb
	} else {
		logger.Info("redis not configured, list cache disabled")
	}

	docRepo, docKind, err := a.documentRepo(ctx)
	if err != nil {
		_ = a.Close(ctx)
		return nil, err
	}
	relRepo, relKind, err := a.relationalRepo(ctx)
	if err != nil {
		_ = a.Close(ctx)
		return nil, err
	}

	a.backends = []backend{
		{name: DocumentBackend, kind: docKind, svc: service.NewTodoService(DocumentBackend, docRepo, a.todoCache(DocumentBackend), logger)},
		{name: RelationalBackend, kind: relKind, svc: service.NewTodoService(RelationalBackend, relRepo, a.todoCache(RelationalBackend), logger)},
	}
	a.router = newRouter(cfg, logger, a.backends)
	return a, nil
}

func (a *App) Router() *gin.Engine {
	return a.router
}

func (a *App) Close(ctx context.Context) error {
	if a.mongo != nil {
		if err := a.mongo.Disconnect(ctx); err != nil {
			a.log.WithError(err).Warn("mongo disconnect")
		}
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.db != nil {
		a.db.Close()
	}
	return nil
}

func (a *App) todoCache(name string) *cache.TodoCache {
	if a.redis == nil {
		return nil
	}
	return cache.NewTodoCache(a.redis, name, a.cfg.Redis.DefaultTTL.Duration())
}

func (a *App) documentRepo(ctx context.Context) (repo.TodoRepo, string, error) {
	if a.cfg.Mongo.URL == "" {
		a.log.WithField("backend", DocumentBackend).Warn("MONGODB_URL not set, serving from memory")
		return repo.NewMemTodoRepo(), kindMemory, nil
	}
	client, err := newMongo(ctx, a.cfg.Mongo)
	if err != nil {
		return nil, "", err
	}
	a.mongo = client

	r := repo.NewMongoTodoRepo(client.Database(a.cfg.Mongo.Database).Collection(a.cfg.Mongo.Collection))
	idxCtx, cancel := context.WithTimeout(ctx, a.cfg.Mongo.ConnectTimeout.Duration())
	defer cancel()
	if err := r.EnsureIndexes(idxCtx); err != nil {
		return nil, "", fmt.Errorf("mongo indexes: %w", err)
	}
	a.log.WithField("backend", DocumentBackend).Info("connected to MongoDB")
	return r, kindMongo, nil
}

func (a *App) relationalRepo(ctx context.Context) (repo.TodoRepo, string, error) {
	if a.cfg.PG.DSN == "" {
		a.log.WithField("backend", RelationalBackend).Warn("PG_DSN not set, serving from memory")
		return repo.NewMemTodoRepo(), kindMemory, nil
	}
	db, err := newPostgres(ctx, a.cfg.PG)
	if err != nil {
		return nil, "", err
	}
	a.db = db

	if err := runMigrations(a.cfg.PG.DSN); err != nil {
		return nil, "", err
	}
	a.log.WithField("backend", RelationalBackend).Info("connected to PostgreSQL")
	return repo.NewPGTodoRepo(db), kindPostgres, nil
}

func newPostgres(ctx context.Context, pg config.PGConfig) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(pg.DSN)
	if err != nil {
		return nil, fmt.Errorf("pg parse config: %w", err)
	}
	cfg.MaxConns = pg.MaxConns
	cfg.MinConns = pg.MinConns
	cfg.MaxConnIdleTime = 5 * time.Minute
	cfg.MaxConnLifetime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("pg connect: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pg ping: %w", err)
	}

	return pool, nil
}

func newMongo(ctx context.Context, cfg config.MongoConfig) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout.Duration())
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URL))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	return client, nil
}

func newRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return rdb, nil
}

func runMigrations(dsn string) error {
	db, err := goose.OpenDBWithDriver("pgx", dsn)
	if err != nil {
		return fmt.Errorf("goose open db: %w", err)
	}
	defer db.Close()

	goose.SetBaseFS(migrations.FS)
	if err := goose.Up(db, "."); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}

func newRouter(cfg config.Config, logger *log.Logger, backends []backend) *gin.Engine {
	if cfg.App.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(requestID(), accessLog(logger), gin.Recovery())

	r.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS", "HEAD"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", headerRequestID},
		ExposeHeaders: []string{"Content-Length", "Content-Type", headerRequestID},
		MaxAge:        12 * time.Hour,
	}))

	Setup(r, cfg, logger, backends)
	return r
}
