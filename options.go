package railrec

import (
	"runtime"

	"github.com/rs/zerolog"

	"github.com/railstation/railrec/pkg/errors"
	"github.com/railstation/railrec/pkg/expense"
	"github.com/railstation/railrec/pkg/logging"
)

// Option configures an Engine.
type Option func(*config) error

type config struct {
	workers         int
	rounding        expense.RoundingMode
	routeIDHexLen   int
	tripInheritance bool
	dedupe          bool
	requireCarrier  bool
	logger          *zerolog.Logger
}

func defaultConfig() config {
	return config{
		workers:  runtime.GOMAXPROCS(0),
		rounding: expense.RoundHalfEven,
		logger:   logging.Default(),
	}
}

// WithWorkers sets how many shipments are processed concurrently. Worker
// count never affects results, only throughput.
func WithWorkers(n int) Option {
	return func(c *config) error {
		if n <= 0 {
			return errors.NewConfigError("engine", "worker count must be positive", nil)
		}
		c.workers = n
		return nil
	}
}

// WithRounding sets the rounding mode applied at the expense line stage.
func WithRounding(mode expense.RoundingMode) Option {
	return func(c *config) error {
		parsed, err := expense.ParseRoundingMode(mode.String())
		if err != nil {
			return errors.WrapConfig("engine", err)
		}
		c.rounding = parsed
		return nil
	}
}

// WithRouteIDLength sets how many hash hex characters a route ID carries.
// Zero selects the default.
func WithRouteIDLength(hexLen int) Option {
	return func(c *config) error {
		if hexLen < 0 {
			return errors.NewConfigError("engine", "route id length must not be negative", nil)
		}
		c.routeIDHexLen = hexLen
		return nil
	}
}

// WithTripInheritance enables trip assembly: an empty repositioning leg that
// matches nothing directly adopts the route its trip's loaded leg resolved
// to. Off by default.
func WithTripInheritance(enabled bool) Option {
	return func(c *config) error {
		c.tripInheritance = enabled
		return nil
	}
}

// WithDeduplication enables duplicate dropping during normalization: the
// latest row per wagon-and-invoice identity wins, dropped rows are counted.
// Off by default.
func WithDeduplication(enabled bool) Option {
	return func(c *config) error {
		c.dedupe = enabled
		return nil
	}
}

// WithRequireCarrier rejects staging rows without a carrier instead of
// normalizing them with an empty one.
func WithRequireCarrier(enabled bool) Option {
	return func(c *config) error {
		c.requireCarrier = enabled
		return nil
	}
}

// WithLogger sets the engine's logger. Nil restores the package default.
func WithLogger(logger *zerolog.Logger) Option {
	return func(c *config) error {
		if logger == nil {
			logger = logging.Default()
		}
		c.logger = logger
		return nil
	}
}
