package typemap

import "fmt"

// Flavor selects the SQLAlchemy generation the output targets.
type Flavor int

const (
	// Modern targets SQLAlchemy 2.x (Mapped annotations, Uuid, Double).
	Modern Flavor = iota
	// Legacy targets SQLAlchemy 1.4.
	Legacy
)

func (f Flavor) String() string {
	if f == Legacy {
		return "legacy"
	}
	return "modern"
}

// ParseFlavor accepts a flavor name or a SQLAlchemy major version.
func ParseFlavor(s string) (Flavor, error) {
	switch s {
	case "", "modern", "2", "2.0":
		return Modern, nil
	case "legacy", "1", "1.4":
		return Legacy, nil
	}
	return Modern, fmt.Errorf("unknown flavor %q (expected modern or legacy)", s)
}
