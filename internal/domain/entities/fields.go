package entities

import (
	"encoding/json"
	"fmt"
	"math"
)

// FieldKind tells the merge routine how a scenario change applies to a field.
type FieldKind int

const (
	// KindIdentity fields cannot be changed by a scenario.
	KindIdentity FieldKind = iota
	// KindFloat fields are numeric-additive.
	KindFloat
	// KindInt fields are numeric-additive and must stay non-negative integers.
	KindInt
	// KindReplace fields are replaced outright.
	KindReplace
)

func (k FieldKind) String() string {
	switch k {
	case KindIdentity:
		return "identity"
	case KindFloat:
		return "float"
	case KindInt:
		return "int"
	case KindReplace:
		return "replace"
	default:
		return fmt.Sprintf("FieldKind(%d)", int(k))
	}
}

// Numeric reports whether changes to the field are deltas.
func (k FieldKind) Numeric() bool { return k == KindFloat || k == KindInt }

// Field is one entry of the context schema.
type Field struct {
	Name string
	Kind FieldKind
}

// ContextFields enumerates the FinancialContext schema in declaration order.
var ContextFields = []Field{
	{"id", KindIdentity},
	{"company_id", KindIdentity},
	{"current_cash", KindFloat},
	{"monthly_revenue", KindFloat},
	{"monthly_expenses", KindFloat},
	{"marketing_spend", KindFloat},
	{"team_size", KindInt},
	{"average_salary", KindFloat},
	{"price_per_unit", KindFloat},
	{"units_sold", KindInt},
	{"runway_months", KindFloat},
	{"last_updated", KindIdentity},
	{"metadata", KindReplace},
}

var fieldIndex = func() map[string]Field {
	m := make(map[string]Field, len(ContextFields))
	for _, f := range ContextFields {
		m[f.Name] = f
	}
	return m
}()

// LookupField returns the schema entry for name.
func LookupField(name string) (Field, bool) {
	f, ok := fieldIndex[name]
	return f, ok
}

func (c *FinancialContext) floatPtr(name string) *float64 {
	switch name {
	case "current_cash":
		return &c.CurrentCash
	case "monthly_revenue":
		return &c.MonthlyRevenue
	case "monthly_expenses":
		return &c.MonthlyExpenses
	case "marketing_spend":
		return &c.MarketingSpend
	case "average_salary":
		return &c.AverageSalary
	case "price_per_unit":
		return &c.PricePerUnit
	case "runway_months":
		return &c.RunwayMonths
	}
	return nil
}

func (c *FinancialContext) intPtr(name string) *int {
	switch name {
	case "team_size":
		return &c.TeamSize
	case "units_sold":
		return &c.UnitsSold
	}
	return nil
}

// Float reads a KindFloat field by name.
func (c FinancialContext) Float(name string) (float64, bool) {
	if p := c.floatPtr(name); p != nil {
		return *p, true
	}
	return 0, false
}

// Int reads a KindInt field by name.
func (c FinancialContext) Int(name string) (int, bool) {
	if p := c.intPtr(name); p != nil {
		return *p, true
	}
	return 0, false
}

// SetFloat writes a KindFloat field by name.
func (c *FinancialContext) SetFloat(name string, v float64) bool {
	if p := c.floatPtr(name); p != nil {
		*p = v
		return true
	}
	return false
}

// SetInt writes a KindInt field by name.
func (c *FinancialContext) SetInt(name string, v int) bool {
	if p := c.intPtr(name); p != nil {
		*p = v
		return true
	}
	return false
}

// NumericValue converts a decoded change value to float64.
func NumericValue(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

// ValidateChanges checks a scenario change map against the field registry.
// Keys that are not context fields are accepted and ignored by the merge.
// An empty map is valid and leaves the context unchanged.
func ValidateChanges(changes map[string]any) error {
	for name, raw := range changes {
		f, ok := LookupField(name)
		if !ok {
			continue
		}
		switch f.Kind {
		case KindIdentity:
			return Invalid(name, "cannot be changed by a scenario")
		case KindFloat, KindInt:
			v, ok := NumericValue(raw)
			if !ok {
				return Invalid(name, fmt.Sprintf("expected a numeric delta, got %T", raw))
			}
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return Invalid(name, "delta must be finite")
			}
			if f.Kind == KindInt && v != math.Trunc(v) {
				return Invalid(name, "delta must be a whole number")
			}
		case KindReplace:
			if _, ok := raw.(map[string]any); !ok && raw != nil {
				return Invalid(name, fmt.Sprintf("expected an object, got %T", raw))
			}
		}
	}
	return nil
}
