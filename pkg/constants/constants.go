// Package constants provides shared constants used throughout the railrec codebase.
// This includes identifier shapes, date formats, file permissions, and limits
// that should be consistent across the application.
package constants

// Identifier constants define the shapes of domain identifiers
const (
	// WagonNumberWidth is the zero-padded width of a wagon number
	WagonNumberWidth = 8

	// RouteIDPrefix is the leading character of derived route IDs
	RouteIDPrefix = "R"

	// RouteIDHexLength is the number of hash hex characters in a route ID
	RouteIDHexLength = 16
)

// Date format constants cover the formats staging files arrive in
const (
	// DateFormatISO is the ISO calendar date layout
	DateFormatISO = "2006-01-02"

	// DateFormatDotted is the dotted day-first layout used by station reports
	DateFormatDotted = "02.01.2006"

	// MonthFormat is the layout used for plan period keys
	MonthFormat = "2006-01"
)

// Currency constants
const (
	// DefaultCurrency is assumed when a rate rule names none
	DefaultCurrency = "RUB"

	// DefaultCurrencyExponent is the minor-unit exponent for the default currency
	DefaultCurrencyExponent = 2
)

// File permission constants define standard Unix file permissions
const (
	// FilePermissions is the default permission for created files (rw-r--r--)
	FilePermissions = 0644
)

// Limit constants define various limits and capacities
const (
	// MaxHeaderScanRows is how deep a sheet is scanned for its header row
	MaxHeaderScanRows = 10

	// MaxMappingHops is the deepest transitive walk through the code matrix
	MaxMappingHops = 2
)
