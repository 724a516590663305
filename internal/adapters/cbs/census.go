package cbs

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"

	"yad2_listings/internal/domain"
)

const cacheKey = "census:table:v1"

// Spec describes one revision of the census spreadsheet: which columns hold
// which fields, how many header and footer rows to skip, and the known
// spelling discrepancies between the census locality names and the feed's.
// Column letters move between dataset revisions, so all of this is data,
// not code.
type Spec struct {
	Spreadsheet struct {
		HeaderRows int `yaml:"headerRows"`
		FooterRows int `yaml:"footerRows"`
		Columns    struct {
			City       string `yaml:"city"`
			Population string `yaml:"population"`
			English    string `yaml:"english"`
		} `yaml:"columns"`
	} `yaml:"spreadsheet"`
	Typos map[string]string `yaml:"typos"`
}

// LoadSpec reads a census spec YAML file.
func LoadSpec(path string) (Spec, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Spec{}, fmt.Errorf("census spec: read %s: %w", path, err)
	}
	var s Spec
	if err := yaml.Unmarshal(raw, &s); err != nil {
		return Spec{}, fmt.Errorf("census spec: parse %s: %w", path, err)
	}
	if s.Spreadsheet.Columns.City == "" || s.Spreadsheet.Columns.Population == "" {
		return Spec{}, fmt.Errorf("census spec: city and population columns are required")
	}
	return s, nil
}

// Loader fetches the census population spreadsheet and produces the
// reference table with spelling corrections applied on the census side. A
// load failure is fatal to assembly; there is no fallback.
type Loader struct {
	url   string
	spec  Spec
	hc    *http.Client
	cache domain.Cache // optional
	ttl   time.Duration
}

func New(url string, spec Spec, cache domain.Cache, ttl time.Duration) *Loader {
	return &Loader{
		url:   url,
		spec:  spec,
		hc:    &http.Client{Timeout: 60 * time.Second},
		cache: cache,
		ttl:   ttl,
	}
}

func (l *Loader) Load(ctx context.Context) ([]domain.CensusCity, error) {
	if l.cache != nil {
		var cached []domain.CensusCity
		if ok, err := l.cache.Get(ctx, cacheKey, &cached); err == nil && ok && len(cached) > 0 {
			log.Debug().Int("cities", len(cached)).Msg("census table served from cache")
			return cached, nil
		}
	}

	table, err := l.fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCensusLoad, err)
	}
	if l.cache != nil {
		if err := l.cache.Set(ctx, cacheKey, table, l.ttl); err != nil {
			log.Warn().Err(err).Msg("census cache set failed")
		}
	}
	return table, nil
}

func (l *Loader) fetch(ctx context.Context) ([]domain.CensusCity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := l.hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("bad status %d from %s", resp.StatusCode, l.url)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	return l.parse(body)
}

func (l *Loader) parse(body []byte) ([]domain.CensusCity, error) {
	f, err := excelize.OpenReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheets[0], err)
	}

	head := l.spec.Spreadsheet.HeaderRows
	foot := l.spec.Spreadsheet.FooterRows
	if len(rows) <= head+foot {
		return nil, fmt.Errorf("sheet has %d rows, need more than %d", len(rows), head+foot)
	}
	rows = rows[head : len(rows)-foot]

	cityCol, err := columnIndex(l.spec.Spreadsheet.Columns.City)
	if err != nil {
		return nil, err
	}
	popCol, err := columnIndex(l.spec.Spreadsheet.Columns.Population)
	if err != nil {
		return nil, err
	}
	engCol, err := columnIndex(l.spec.Spreadsheet.Columns.English)
	if err != nil {
		return nil, err
	}

	out := make([]domain.CensusCity, 0, len(rows))
	for _, row := range rows {
		name := strings.TrimSpace(cell(row, cityCol))
		if name == "" {
			continue
		}
		if fixed, ok := l.spec.Typos[name]; ok {
			name = fixed
		}
		pop, ok := parsePopulation(cell(row, popCol))
		if !ok {
			continue
		}
		out = append(out, domain.CensusCity{
			HebrewName:  name,
			EnglishName: strings.TrimSpace(cell(row, engCol)),
			Population:  pop,
		})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no usable locality rows")
	}
	log.Info().Int("cities", len(out)).Msg("census table loaded")
	return out, nil
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

// columnIndex maps a spreadsheet column letter to a zero-based slice index.
func columnIndex(letter string) (int, error) {
	n, err := excelize.ColumnNameToNumber(strings.TrimSpace(letter))
	if err != nil {
		return 0, fmt.Errorf("bad column letter %q: %w", letter, err)
	}
	return n - 1, nil
}

// parsePopulation accepts plain integers, thousands separators, and the
// float renderings some spreadsheet revisions use.
func parsePopulation(s string) (int, bool) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return 0, false
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n, true
	}
	if fv, err := strconv.ParseFloat(s, 64); err == nil {
		return int(fv + 0.5), true
	}
	return 0, false
}
