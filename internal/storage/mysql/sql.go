package mysql

const createListingsSQL = `
CREATE TABLE IF NOT EXISTS listings (
  id                   BIGINT AUTO_INCREMENT PRIMARY KEY,
  date_listed          DATETIME NOT NULL,
  hebrew_city          VARCHAR(255) NOT NULL,
  english_city         VARCHAR(255) NOT NULL,
  city_population      INT NOT NULL,
  neighborhood         VARCHAR(255) NULL,
  street               VARCHAR(255) NULL,
  lat                  DOUBLE NULL,
  lon                  DOUBLE NULL,
  floor                INT NOT NULL,
  rooms                DOUBLE NOT NULL,
  area                 INT NOT NULL,
  price                INT NOT NULL,
  for_sale             TINYINT(1) NOT NULL,
  distance_from_beach  INT NULL,
  property_type        VARCHAR(255) NOT NULL,
  link                 VARCHAR(512) NOT NULL,
  refreshed_at         TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
  UNIQUE KEY uq_listings_link (link),
  KEY idx_listings_city (hebrew_city),
  KEY idx_listings_for_sale (for_sale)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci
`
