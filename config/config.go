package config

import (
	"flag"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/dmarques/ciclo/internal/domain"
)

const (
	defaultInterval        = "5m"
	defaultCandlesLimit    = 100
	defaultPollInterval    = 5 * time.Minute
	defaultFetchBackoff    = time.Minute
	defaultAllocation      = "0.1"
	defaultMinQuote        = "10"
	defaultStrategy        = "bollinger_rsi"
	defaultListenAddr      = ":5000"
	defaultBalanceInterval = time.Hour
)

// Config holds the settings for one traded pair. ListenAddr and
// JournalDir are process-wide; when several pairs are configured the
// values from the first entry win.
type Config struct {
	Platform     string
	Pair         domain.Pair
	Interval     string
	CandlesLimit int
	PollInterval time.Duration
	FetchBackoff time.Duration
	Allocation   decimal.Decimal
	MinQuote     decimal.Decimal
	Strategy     string
	Testnet      bool

	ListenAddr            string
	BalanceReportInterval time.Duration
	JournalDir            string
}

type configYaml struct {
	Platform              string        `yaml:"platform"`
	Pair                  string        `yaml:"pair"`
	Interval              string        `yaml:"interval,omitempty"`
	CandlesLimit          int           `yaml:"candles_limit,omitempty"`
	PollInterval          time.Duration `yaml:"poll_interval,omitempty"`
	FetchBackoff          time.Duration `yaml:"fetch_backoff,omitempty"`
	Allocation            string        `yaml:"allocation,omitempty"`
	MinQuote              string        `yaml:"min_quote,omitempty"`
	Strategy              string        `yaml:"strategy,omitempty"`
	Testnet               bool          `yaml:"testnet,omitempty"`
	ListenAddr            string        `yaml:"listen_addr,omitempty"`
	BalanceReportInterval time.Duration `yaml:"balance_report_interval,omitempty"`
	JournalDir            string        `yaml:"journal_dir,omitempty"`
}

// Get loads configuration either from a yaml file (a list of per-pair
// entries, --config flag) or from CLI flags for a single pair.
func Get() ([]Config, error) {
	configPath := flag.String("config", "", "path to yaml config")
	platform := flag.String("platform", "binance", "exchange platform: binance or bybit")
	pairFlag := flag.String("pair", "BTC_USDT", "trade pair, example: BTC_USDT")
	interval := flag.String("interval", defaultInterval, "candle interval, example: 5m")
	candlesLimit := flag.Int("candleslimit", defaultCandlesLimit, "number of candles fetched per cycle")
	pollInterval := flag.Duration("pollinterval", defaultPollInterval, "pause between trading cycles")
	fetchBackoff := flag.Duration("fetchbackoff", defaultFetchBackoff, "pause after a market data failure")
	allocation := flag.String("allocation", defaultAllocation, "fraction of free quote balance per order, example: 0.1")
	minQuote := flag.String("minquote", defaultMinQuote, "minimum free quote balance required to trade")
	strategyName := flag.String("strategy", defaultStrategy, "trading strategy name")
	testnet := flag.Bool("testnet", false, "use the exchange testnet")
	listenAddr := flag.String("listen", defaultListenAddr, "web server listen address")
	balanceInterval := flag.Duration("balanceinterval", defaultBalanceInterval, "balance report interval")
	journalDir := flag.String("journaldir", "", "event journal directory")
	flag.Parse()

	if *configPath != "" {
		return getYaml(*configPath)
	}

	cfg := Config{
		Platform:              *platform,
		Interval:              *interval,
		CandlesLimit:          *candlesLimit,
		PollInterval:          *pollInterval,
		FetchBackoff:          *fetchBackoff,
		Strategy:              *strategyName,
		Testnet:               *testnet,
		ListenAddr:            *listenAddr,
		BalanceReportInterval: *balanceInterval,
		JournalDir:            *journalDir,
	}

	var err error
	cfg.Pair, err = domain.ParsePair(*pairFlag)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid --pair=%s", *pairFlag)
	}
	cfg.Allocation, err = decimal.NewFromString(*allocation)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid --allocation=%s", *allocation)
	}
	cfg.MinQuote, err = decimal.NewFromString(*minQuote)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid --minquote=%s", *minQuote)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return []Config{cfg}, nil
}

func getYaml(path string) ([]Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read config file")
	}

	var entries []configYaml
	if err := yaml.Unmarshal(raw, &entries); err != nil {
		return nil, errors.Wrap(err, "parse config file")
	}
	if len(entries) == 0 {
		return nil, errors.New("config file contains no entries")
	}

	configs := make([]Config, 0, len(entries))
	for _, e := range entries {
		cfg, err := fromYaml(e)
		if err != nil {
			return nil, err
		}
		configs = append(configs, cfg)
	}
	return configs, nil
}

func fromYaml(e configYaml) (Config, error) {
	cfg := Config{
		Platform:              e.Platform,
		Interval:              e.Interval,
		CandlesLimit:          e.CandlesLimit,
		PollInterval:          e.PollInterval,
		FetchBackoff:          e.FetchBackoff,
		Strategy:              e.Strategy,
		Testnet:               e.Testnet,
		ListenAddr:            e.ListenAddr,
		BalanceReportInterval: e.BalanceReportInterval,
		JournalDir:            e.JournalDir,
	}

	var err error
	cfg.Pair, err = domain.ParsePair(e.Pair)
	if err != nil {
		return Config{}, errors.Wrapf(err, "incorrect 'pair' param in yaml config: %s", e.Pair)
	}

	if e.Allocation == "" {
		e.Allocation = defaultAllocation
	}
	cfg.Allocation, err = decimal.NewFromString(e.Allocation)
	if err != nil {
		return Config{}, errors.Wrapf(err, "incorrect 'allocation' param in yaml config: %s", e.Allocation)
	}

	if e.MinQuote == "" {
		e.MinQuote = defaultMinQuote
	}
	cfg.MinQuote, err = decimal.NewFromString(e.MinQuote)
	if err != nil {
		return Config{}, errors.Wrapf(err, "incorrect 'min_quote' param in yaml config: %s", e.MinQuote)
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Platform == "" {
		c.Platform = "binance"
	}
	if c.Interval == "" {
		c.Interval = defaultInterval
	}
	if c.CandlesLimit == 0 {
		c.CandlesLimit = defaultCandlesLimit
	}
	if c.PollInterval == 0 {
		c.PollInterval = defaultPollInterval
	}
	if c.FetchBackoff == 0 {
		c.FetchBackoff = defaultFetchBackoff
	}
	if c.Strategy == "" {
		c.Strategy = defaultStrategy
	}
	if c.ListenAddr == "" {
		c.ListenAddr = defaultListenAddr
	}
	if c.BalanceReportInterval == 0 {
		c.BalanceReportInterval = defaultBalanceInterval
	}
}

// candle intervals accepted by both supported platforms
var supportedIntervals = map[string]struct{}{
	"1m": {}, "3m": {}, "5m": {}, "15m": {}, "30m": {},
	"1h": {}, "2h": {}, "4h": {}, "1d": {}, "1w": {},
}

func (c Config) validate() error {
	if c.Platform != "binance" && c.Platform != "bybit" {
		return errors.Errorf("unsupported platform %q, expected binance or bybit", c.Platform)
	}
	if _, ok := supportedIntervals[c.Interval]; !ok {
		return errors.Errorf("unsupported interval %q, expected one of 1m 3m 5m 15m 30m 1h 2h 4h 1d 1w", c.Interval)
	}
	if !c.Allocation.IsPositive() || c.Allocation.GreaterThan(decimal.NewFromInt(1)) {
		return errors.Errorf("allocation must be in (0, 1], got %s", c.Allocation.String())
	}
	if c.MinQuote.IsNegative() {
		return errors.Errorf("min_quote must not be negative, got %s", c.MinQuote.String())
	}
	if c.CandlesLimit < 0 {
		return errors.Errorf("candles_limit must not be negative, got %d", c.CandlesLimit)
	}
	return nil
}
