package shared

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	AppEnv      string
	LogLevel    string
	HTTPAddr    string
	MetricsAddr string

	SaleFeedURL    string
	RentFeedURL    string
	SalePriceRange string
	RentPriceRange string

	CensusURL      string
	CensusSpecPath string
	CensusCacheTTL time.Duration

	CoastlinePath string
	DatasetPath   string

	MySQLDSN  string
	RedisAddr string
	RedisPass string
	RedisDB   int

	Workers       int
	PageDelay     time.Duration
	RetryAttempts int
	RetryDelay    time.Duration
}

func Load() Config {
	atoi := func(k string, def int) int {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
		}
		return def
	}
	return Config{
		AppEnv:      env("APP_ENV", "prod"),
		LogLevel:    env("LOG_LEVEL", "info"),
		HTTPAddr:    env("HTTP_ADDR", ":8080"),
		MetricsAddr: env("METRICS_ADDR", ":9100"),

		SaleFeedURL:    env("SALE_FEED_URL", "https://gw.yad2.co.il/feed-search-legacy/realestate/forsale"),
		RentFeedURL:    env("RENT_FEED_URL", "https://gw.yad2.co.il/feed-search-legacy/realestate/rent"),
		SalePriceRange: env("SALE_PRICE_RANGE", "600000-20000000"),
		RentPriceRange: env("RENT_PRICE_RANGE", "1500-30000"),

		CensusURL:      env("CENSUS_URL", "https://www.cbs.gov.il/he/publications/doclib/2019/hamakomiot1999_2017/p_libud.xlsx"),
		CensusSpecPath: env("CENSUS_SPEC_PATH", "./configs/census.yaml"),
		CensusCacheTTL: time.Duration(atoi("CENSUS_CACHE_TTL_SECONDS", 24*3600)) * time.Second,

		CoastlinePath: env("COASTLINE_PATH", "./data/beach_coordinates.json"),
		DatasetPath:   env("DATASET_PATH", "./all_listings.csv"),

		MySQLDSN:  env("MYSQL_DSN", ""),
		RedisAddr: env("REDIS_ADDR", ""),
		RedisPass: env("REDIS_PASSWORD", ""),
		RedisDB:   atoi("REDIS_DB", 0),

		Workers:       atoi("FETCH_WORKERS", 1),
		PageDelay:     time.Duration(atoi("PAGE_DELAY_MS", 100)) * time.Millisecond,
		RetryAttempts: atoi("RETRY_ATTEMPTS", 3),
		RetryDelay:    time.Duration(atoi("RETRY_DELAY_MS", 1000)) * time.Millisecond,
	}
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
