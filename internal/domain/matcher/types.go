package matcher

// Score weights. They sum to 1 so a perfect candidate scores exactly 1.
const (
	WeightVendor = 0.4
	WeightAmount = 0.4
	WeightDate   = 0.2
)

// Note floors.
const (
	vendorNoteFloor = 0.5
	amountNoteFloor = 0.01
	dateNoteFloor   = 7
)

// Config holds matcher configuration
type Config struct {
	DateWindowDays  int     // W: max days between invoice and transaction (default: 45)
	AmountTolerance float64 // T: relative amount tolerance for scoring (default: 0.15)
	AmountFloor     float64 // Absolute tolerance floor in currency units (default: 2)
	SearchTolerance float64 // Relative width of the candidate shortlist (default: 0.50)
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		DateWindowDays:  45,
		AmountTolerance: 0.15,
		AmountFloor:     2,
		SearchTolerance: 0.50,
	}
}

// withDefaults fills zero fields from DefaultConfig.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.DateWindowDays <= 0 {
		c.DateWindowDays = d.DateWindowDays
	}
	if c.AmountTolerance <= 0 {
		c.AmountTolerance = d.AmountTolerance
	}
	if c.AmountFloor < 0 {
		c.AmountFloor = d.AmountFloor
	}
	if c.SearchTolerance <= 0 {
		c.SearchTolerance = d.SearchTolerance
	}
	if c.SearchTolerance < c.AmountTolerance {
		c.SearchTolerance = c.AmountTolerance
	}
	return c
}
