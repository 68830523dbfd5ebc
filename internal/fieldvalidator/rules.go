package fieldvalidator

import "regexp"

// FieldKind is the logical type of a form field.
type FieldKind string

const (
	KindName        FieldKind = "name"
	KindEmail       FieldKind = "email"
	KindPhone       FieldKind = "phone"
	KindPlate       FieldKind = "plate"
	KindVIN         FieldKind = "vin"
	KindCurrency    FieldKind = "currency"
	KindMileage     FieldKind = "mileage"
	KindYear        FieldKind = "year"
	KindText        FieldKind = "text"
	KindDescription FieldKind = "description"
	KindDate        FieldKind = "date"
	KindCategory    FieldKind = "category"
	KindIdentifier  FieldKind = "identifier"
	KindURL         FieldKind = "url"
)

const (
	// MaxMoney is the largest accepted monetary magnitude.
	MaxMoney = 1_000_000_000
	// MaxMileage is the largest accepted odometer reading.
	MaxMileage = 10_000_000
	// MinYear is the oldest accepted model year.
	MinYear = 1900
)

// Rule describes how one field is validated. Rules are values; the built-in
// ones are never modified after package init.
type Rule struct {
	Kind      FieldKind
	MinLength int
	MaxLength int
	// Pattern is matched against the cleaned (unescaped) text.
	Pattern  *regexp.Regexp
	Required bool
}

// WithRequired returns a copy of r with Required set.
func (r Rule) WithRequired() Rule {
	r.Required = true
	return r
}

// WithMaxLength returns a copy of r with a different length bound.
func (r Rule) WithMaxLength(n int) Rule {
	r.MaxLength = n
	return r
}

var builtinRules = map[FieldKind]Rule{
	KindName:        {Kind: KindName, MaxLength: 100, Pattern: regexp.MustCompile(`^[\p{L}\p{M}' .\-]+$`)},
	KindEmail:       {Kind: KindEmail, MaxLength: 254, Pattern: regexp.MustCompile(`^[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}$`)},
	KindPhone:       {Kind: KindPhone, MaxLength: 20, Pattern: regexp.MustCompile(`^\+?[0-9 ()\-]{6,20}$`)},
	KindPlate:       {Kind: KindPlate, MaxLength: 15, Pattern: regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9 \-]{0,14}$`)},
	KindVIN:         {Kind: KindVIN, MinLength: 17, MaxLength: 17, Pattern: regexp.MustCompile(`(?i)^[A-HJ-NPR-Z0-9]{17}$`)},
	KindCurrency:    {Kind: KindCurrency, MaxLength: 20, Pattern: regexp.MustCompile(`^-?\d{1,10}(?:[.,]\d{1,2})?$`)},
	KindMileage:     {Kind: KindMileage, MaxLength: 10, Pattern: regexp.MustCompile(`^-?\d{1,9}$`)},
	KindYear:        {Kind: KindYear, MaxLength: 4, Pattern: regexp.MustCompile(`^\d{4}$`)},
	KindText:        {Kind: KindText, MaxLength: 500},
	KindDescription: {Kind: KindDescription, MaxLength: 2000},
	KindDate:        {Kind: KindDate, MaxLength: 10, Pattern: regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)},
	KindCategory:    {Kind: KindCategory, MaxLength: 50, Pattern: regexp.MustCompile(`^[\p{L}\p{N} _\-]+$`)},
	KindIdentifier:  {Kind: KindIdentifier, MaxLength: 64, Pattern: regexp.MustCompile(`^[A-Za-z0-9_\-]+$`)},
	KindURL:         {Kind: KindURL, MaxLength: 2048, Pattern: regexp.MustCompile(`^https?://[^\s]+$`)},
}

// RuleFor returns the built-in rule for kind. Unknown kinds get the free-text
// rule.
func RuleFor(kind FieldKind) Rule {
	if r, ok := builtinRules[kind]; ok {
		return r
	}
	return builtinRules[KindText]
}

// RuleSet maps field names to rules for one resource.
type RuleSet map[string]Rule

// Rule returns the rule for field, falling back to free text.
func (rs RuleSet) Rule(field string) Rule {
	if r, ok := rs[field]; ok {
		return r
	}
	return RuleFor(KindText)
}

// Resource rule sets, keyed by the resource names used by the API.
var (
	VehicleRules = RuleSet{
		"plate":   RuleFor(KindPlate).WithRequired(),
		"brand":   RuleFor(KindName).WithRequired(),
		"model":   RuleFor(KindName).WithRequired(),
		"year":    RuleFor(KindYear),
		"vin":     RuleFor(KindVIN),
		"mileage": RuleFor(KindMileage),
		"status":  RuleFor(KindCategory),
		"notes":   RuleFor(KindDescription),
	}

	TransactionRules = RuleSet{
		"vehicle_id":  RuleFor(KindIdentifier).WithRequired(),
		"kind":        RuleFor(KindCategory).WithRequired(),
		"category":    RuleFor(KindCategory),
		"amount":      RuleFor(KindCurrency).WithRequired(),
		"date":        RuleFor(KindDate).WithRequired(),
		"description": RuleFor(KindText),
	}

	DriverRules = RuleSet{
		"name":           RuleFor(KindName).WithRequired(),
		"email":          RuleFor(KindEmail),
		"phone":          RuleFor(KindPhone),
		"license_number": RuleFor(KindIdentifier),
		"vehicle_id":     RuleFor(KindIdentifier),
		"notes":          RuleFor(KindDescription),
	}

	SubscriptionRules = RuleSet{
		"plan":          RuleFor(KindCategory).WithRequired(),
		"status":        RuleFor(KindCategory),
		"billing_email": RuleFor(KindEmail).WithRequired(),
		"amount":        RuleFor(KindCurrency),
		"renews_on":     RuleFor(KindDate),
		"website":       RuleFor(KindURL),
	}
)

// ResourceRules returns the rule sets for every guarded resource.
func ResourceRules() map[string]RuleSet {
	return map[string]RuleSet{
		"vehicles":      VehicleRules,
		"transactions":  TransactionRules,
		"drivers":       DriverRules,
		"subscriptions": SubscriptionRules,
	}
}
