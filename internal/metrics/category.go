package metrics

// Category identifies one of the four metric families produced by a run.
type Category int

const (
	// CategoryPhysical covers channel and device physics (loss, visibility,
	// dark counts).
	CategoryPhysical Category = iota
	// CategoryNetwork covers routing and topology usage.
	CategoryNetwork
	// CategoryProtocol covers protocol-level performance (QBER, sifted key
	// rate, error-correction leakage).
	CategoryProtocol
	// CategorySecurity covers final secure key metrics (secret key rate,
	// security parameter epsilon).
	CategorySecurity
)

// String returns a human-readable representation of the Category.
func (c Category) String() string {
	switch c {
	case CategoryPhysical:
		return "physical"
	case CategoryNetwork:
		return "network"
	case CategoryProtocol:
		return "protocol"
	case CategorySecurity:
		return "security"
	default:
		return "unknown"
	}
}

// Categories returns all categories in canonical order.
func Categories() []Category {
	return []Category{CategoryPhysical, CategoryNetwork, CategoryProtocol, CategorySecurity}
}

// Kind indicates the type of a column's values.
type Kind int

const (
	// KindFloat is a 64-bit real value. Missing values are represented as NaN.
	KindFloat Kind = iota
	// KindText is a string value (e.g., a path label). Missing values are
	// represented as the empty string.
	KindText
)

// String returns a human-readable representation of the Kind.
func (k Kind) String() string {
	switch k {
	case KindFloat:
		return "float64"
	case KindText:
		return "text"
	default:
		return "unknown"
	}
}

// ColumnSpec describes a single column of a category schema.
type ColumnSpec struct {
	Name string
	Kind Kind
}

// Schema is an ordered list of columns. The first column of every category
// schema is "time" in SI seconds as float64.
type Schema []ColumnSpec

// Index returns the position of the named column, or -1 if absent.
func (s Schema) Index(name string) int {
	for i, c := range s {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// Names returns the column names in schema order.
func (s Schema) Names() []string {
	names := make([]string, len(s))
	for i, c := range s {
		names[i] = c.Name
	}
	return names
}

// Equal reports whether two schemas have identical columns in identical order.
func (s Schema) Equal(other Schema) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}

// TimeColumn is the shared leading column of every category schema.
const TimeColumn = "time"

var categorySchemas = map[Category]Schema{
	CategoryPhysical: {
		{Name: TimeColumn, Kind: KindFloat},
		{Name: "loss_db", Kind: KindFloat},
		{Name: "bsm_vis", Kind: KindFloat},
		{Name: "dark_rate", Kind: KindFloat},
	},
	CategoryNetwork: {
		{Name: TimeColumn, Kind: KindFloat},
		{Name: "path", Kind: KindText},
		{Name: "util", Kind: KindFloat},
		{Name: "latency_ns", Kind: KindFloat},
	},
	CategoryProtocol: {
		{Name: TimeColumn, Kind: KindFloat},
		{Name: "qber", Kind: KindFloat},
		{Name: "sifted_rate", Kind: KindFloat},
		{Name: "ec_leak", Kind: KindFloat},
	},
	CategorySecurity: {
		{Name: TimeColumn, Kind: KindFloat},
		{Name: "secret_rate", Kind: KindFloat},
		{Name: "epsilon", Kind: KindFloat},
	},
}

// Schema returns the canonical schema for a category. The returned slice
// must not be modified.
func (c Category) Schema() Schema {
	return categorySchemas[c]
}
