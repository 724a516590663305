package main

import (
	"context"
	"database/sql"
	"os/signal"
	"syscall"

	_ "github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"yad2_listings/internal/adapters/cbs"
	"yad2_listings/internal/adapters/observability"
	redisad "yad2_listings/internal/adapters/redis"
	"yad2_listings/internal/adapters/yad2"
	"yad2_listings/internal/app"
	"yad2_listings/internal/domain"
	"yad2_listings/internal/geo"
	"yad2_listings/internal/shared"
	"yad2_listings/internal/storage/csvfile"
	mysqlrepo "yad2_listings/internal/storage/mysql"
)

func main() {
	_ = godotenv.Load()
	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel)

	reg := observability.InitRegistry()
	observability.Serve(reg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info().
		Int("workers", cfg.Workers).
		Dur("page_delay", cfg.PageDelay).
		Str("dataset", cfg.DatasetPath).
		Msg("pipeline starting")

	coast, err := geo.LoadFile(cfg.CoastlinePath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.CoastlinePath).Msg("load coastline failed")
	}

	spec, err := cbs.LoadSpec(cfg.CensusSpecPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.CensusSpecPath).Msg("load census spec failed")
	}

	var cache domain.Cache
	if cfg.RedisAddr != "" {
		cache = redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
		log.Info().Str("addr", cfg.RedisAddr).Msg("census cache enabled")
	}
	census := cbs.New(cfg.CensusURL, spec, cache, cfg.CensusCacheTTL)

	retry := yad2.RetryPolicy{Attempts: cfg.RetryAttempts, Delay: cfg.RetryDelay}
	sale, err := yad2.New(cfg.SaleFeedURL, cfg.SalePriceRange, retry)
	if err != nil {
		log.Fatal().Err(err).Msg("init sale feed client failed")
	}
	rent, err := yad2.New(cfg.RentFeedURL, cfg.RentPriceRange, retry)
	if err != nil {
		log.Fatal().Err(err).Msg("init rent feed client failed")
	}

	writers := []domain.DatasetWriter{csvfile.NewWriter(cfg.DatasetPath)}
	if cfg.MySQLDSN != "" {
		db, err := sql.Open("mysql", cfg.MySQLDSN)
		if err != nil {
			log.Fatal().Err(err).Msg("sql.Open failed")
		}
		if err := db.Ping(); err != nil {
			log.Fatal().Err(err).Msg("db.Ping failed")
		}
		repo := mysqlrepo.New(db)
		if err := repo.EnsureSchema(ctx); err != nil {
			log.Fatal().Err(err).Msg("ensure schema failed")
		}
		writers = append(writers, repo)
		log.Info().Msg("mysql sink enabled")
	}

	pipe := app.NewPipeline(sale, rent, app.NewNormalizer(coast), census, writers,
		cfg.PageDelay, cfg.Workers)

	stats, err := pipe.Run(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("pipeline run failed")
	}
	log.Info().Int("rows", stats.Rows).Msg("pipeline completed")
}
