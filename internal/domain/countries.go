package domain

import "strings"

// countryCurrencies maps receiver countries to their payout currency.
// The wizard derives ReceiverInfo.Currency from the selected country.
var countryCurrencies = map[string]string{
	"Ghana":          "GHS",
	"Nigeria":        "NGN",
	"Kenya":          "KES",
	"South Africa":   "ZAR",
	"United States":  "USD",
	"United Kingdom": "GBP",
	"Germany":        "EUR",
	"France":         "EUR",
	"Canada":         "CAD",
	"India":          "INR",
	"China":          "CNY",
	"UAE":            "AED",
}

// CurrencyForCountry resolves a country name to its currency code.
// Lookup is case-insensitive on the country name.
func CurrencyForCountry(country string) (string, bool) {
	if c, ok := countryCurrencies[country]; ok {
		return c, true
	}
	needle := strings.ToLower(strings.TrimSpace(country))
	for name, c := range countryCurrencies {
		if strings.ToLower(name) == needle {
			return c, true
		}
	}
	return "", false
}

// Countries returns the known receiver countries.
func Countries() []string {
	out := make([]string, 0, len(countryCurrencies))
	for name := range countryCurrencies {
		out = append(out, name)
	}
	return out
}
