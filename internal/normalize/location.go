package normalize

import (
	"encoding/json"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

type baseEntry struct {
	Value *struct {
		Country string `json:"country"`
		City    string `json:"city"`
	} `json:"value"`
}

var regionNamer = display.English.Regions()

// DeriveLocation turns the serialized career.base blob into a country name.
func DeriveLocation(base *string) string {
	if base == nil || strings.TrimSpace(*base) == "" {
		return UnknownText
	}
	country := firstCountry(*base)
	if country == "" {
		return UnknownText
	}
	if len(country) == 2 {
		return regionName(country)
	}
	return country
}

func firstCountry(blob string) string {
	var entries []baseEntry
	if err := json.Unmarshal([]byte(blob), &entries); err != nil {
		var single baseEntry
		if err := json.Unmarshal([]byte(blob), &single); err != nil {
			return ""
		}
		entries = []baseEntry{single}
	}
	for _, e := range entries {
		if e.Value != nil && strings.TrimSpace(e.Value.Country) != "" {
			return strings.TrimSpace(e.Value.Country)
		}
	}
	return ""
}

// regionName falls back to the raw code when it is not a known ISO region.
func regionName(code string) string {
	upper := strings.ToUpper(code)
	region, err := language.ParseRegion(upper)
	if err != nil || !region.IsCountry() {
		return upper
	}
	name := regionNamer.Name(region)
	if name == "" {
		return upper
	}
	return name
}
