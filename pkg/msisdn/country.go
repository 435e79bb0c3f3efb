package msisdn

// Country describes the numbering plan of one gateway market.
type Country struct {
	Code            string `json:"code"`
	Prefix          string `json:"prefix"`
	NonPrefixDigits int    `json:"non_prefix_digits"`
}

var (
	Ghana    = Country{Code: "GH", Prefix: "233", NonPrefixDigits: 9}
	Nigeria  = Country{Code: "NG", Prefix: "234", NonPrefixDigits: 10}
	Uganda   = Country{Code: "UG", Prefix: "256", NonPrefixDigits: 9}
	Cameroon = Country{Code: "CM", Prefix: "237", NonPrefixDigits: 9}
)

// Length is the total digit count of a canonical number for the country.
func (c Country) Length() int {
	return len(c.Prefix) + c.NonPrefixDigits
}

// Registry is a small read-only table of supported countries.
type Registry struct {
	countries []Country
}

func NewRegistry(countries ...Country) *Registry {
	cs := make([]Country, len(countries))
	copy(cs, countries)
	return &Registry{countries: cs}
}

// DefaultRegistry returns the markets the gateway is known to serve.
func DefaultRegistry() *Registry {
	return NewRegistry(Ghana, Nigeria, Uganda, Cameroon)
}

func (r *Registry) Lookup(code string) (Country, bool) {
	for _, c := range r.countries {
		if c.Code == code {
			return c, true
		}
	}
	return Country{}, false
}

// Resolve looks up every code and fails on the first unknown one.
func (r *Registry) Resolve(codes ...string) ([]Country, error) {
	resolved := make([]Country, 0, len(codes))
	for _, code := range codes {
		c, ok := r.Lookup(code)
		if !ok {
			return nil, &UnknownCountryError{Code: code}
		}
		resolved = append(resolved, c)
	}
	return resolved, nil
}

func (r *Registry) Countries() []Country {
	cs := make([]Country, len(r.countries))
	copy(cs, r.countries)
	return cs
}
