package csvdoc

import (
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/goliatone/go-csvdoc/pkg/activity"
	"github.com/goliatone/go-csvdoc/pkg/rules"
	"github.com/goliatone/go-csvdoc/pkg/state"
)

// Option configures an Engine.
type Option func(*engineConfig)

type engineConfig struct {
	document        string
	documents       state.Store[DocumentRecord]
	schemas         state.Store[SchemaRecord]
	logger          *slog.Logger
	scheduler       Scheduler
	autosaveDelay   time.Duration
	widthFlushDelay time.Duration
	historyDepth    int
	constrained     []string
	enumThreshold   int
	required        []string
	rules           []rules.Rule
	ruleOptions     []rules.CheckerOption
	hooks           activity.Hooks
	activity        activity.Config
	newID           func() string
	clock           func() time.Time
	defaultCSV      string
	exportPrefix    string
}

func defaultConfig() engineConfig {
	return engineConfig{
		document:        DefaultDocumentName,
		logger:          slog.New(slog.DiscardHandler),
		scheduler:       SystemScheduler{},
		autosaveDelay:   DefaultAutosaveDelay,
		widthFlushDelay: DefaultWidthFlushDelay,
		historyDepth:    DefaultHistoryDepth,
		constrained:     slices.Clone(DefaultConstrainedColumns),
		newID:           uuid.NewString,
		clock:           time.Now,
		defaultCSV:      defaultCSV,
		exportPrefix:    DefaultExportPrefix,
	}
}

func applyOptions(opts []Option) engineConfig {
	cfg := defaultConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.documents == nil {
		cfg.documents = state.NewMemoryStore[DocumentRecord]()
	}
	if cfg.schemas == nil {
		cfg.schemas = state.NewMemoryStore[SchemaRecord]()
	}
	return cfg
}

// WithDocumentName sets the name both partitions are stored under.
func WithDocumentName(name string) Option {
	return func(cfg *engineConfig) {
		if name != "" {
			cfg.document = name
		}
	}
}

// WithStores wires the persistence gateway. Nil stores keep the in-memory
// defaults.
func WithStores(documents state.Store[DocumentRecord], schemas state.Store[SchemaRecord]) Option {
	return func(cfg *engineConfig) {
		if documents != nil {
			cfg.documents = documents
		}
		if schemas != nil {
			cfg.schemas = schemas
		}
	}
}

// WithLogger sets the structured logger. Nil discards logs.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *engineConfig) {
		if logger == nil {
			logger = slog.New(slog.DiscardHandler)
		}
		cfg.logger = logger
	}
}

// WithScheduler replaces the timer source used for debounced writes.
func WithScheduler(scheduler Scheduler) Option {
	return func(cfg *engineConfig) {
		if scheduler != nil {
			cfg.scheduler = scheduler
		}
	}
}

// WithAutosaveDelay sets the document partition debounce.
func WithAutosaveDelay(delay time.Duration) Option {
	return func(cfg *engineConfig) {
		if delay > 0 {
			cfg.autosaveDelay = delay
		}
	}
}

// WithWidthFlushDelay sets the grace period before width changes are written.
func WithWidthFlushDelay(delay time.Duration) Option {
	return func(cfg *engineConfig) {
		if delay > 0 {
			cfg.widthFlushDelay = delay
		}
	}
}

// WithHistoryDepth caps the number of undoable commits.
func WithHistoryDepth(depth int) Option {
	return func(cfg *engineConfig) {
		if depth > 0 {
			cfg.historyDepth = depth
		}
	}
}

// WithConstrainedColumns replaces the designated constrained column set.
func WithConstrainedColumns(names ...string) Option {
	return func(cfg *engineConfig) {
		cfg.constrained = slices.Clone(names)
	}
}

// WithEnumThreshold also constrains columns holding between 1 and n distinct
// values when a document is loaded. Zero disables the heuristic.
func WithEnumThreshold(n int) Option {
	return func(cfg *engineConfig) {
		if n >= 0 {
			cfg.enumThreshold = n
		}
	}
}

// WithRequiredColumns lists columns that must be non-blank when rows are added
// or edited through the row form operations.
func WithRequiredColumns(names ...string) Option {
	return func(cfg *engineConfig) {
		cfg.required = slices.Clone(names)
	}
}

// WithRules configures the checks run by Engine.Check.
func WithRules(ruleset ...rules.Rule) Option {
	return func(cfg *engineConfig) {
		cfg.rules = append(cfg.rules, ruleset...)
	}
}

// WithRuleOptions passes options to the rule checker.
func WithRuleOptions(opts ...rules.CheckerOption) Option {
	return func(cfg *engineConfig) {
		cfg.ruleOptions = append(cfg.ruleOptions, opts...)
	}
}

// WithActivityHooks attaches activity hooks. Nil entries are dropped.
func WithActivityHooks(hooks activity.Hooks, config activity.Config) Option {
	hooks = hooks.Compact()
	return func(cfg *engineConfig) {
		cfg.hooks = hooks
		cfg.activity = config
		cfg.activity.Enabled = hooks.Enabled()
	}
}

// WithIDGenerator replaces the row ID source.
func WithIDGenerator(fn func() string) Option {
	return func(cfg *engineConfig) {
		if fn != nil {
			cfg.newID = fn
		}
	}
}

// WithClock replaces the time source used for events and export names.
func WithClock(fn func() time.Time) Option {
	return func(cfg *engineConfig) {
		if fn != nil {
			cfg.clock = fn
		}
	}
}

// WithDefaultCSV replaces the document loaded when storage is empty.
func WithDefaultCSV(text string) Option {
	return func(cfg *engineConfig) {
		cfg.defaultCSV = text
	}
}

// WithExportPrefix sets the file name prefix used by ExportFilename.
func WithExportPrefix(prefix string) Option {
	return func(cfg *engineConfig) {
		if prefix != "" {
			cfg.exportPrefix = prefix
		}
	}
}
