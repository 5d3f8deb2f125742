package sectors

import (
	"sort"
	"strings"
)

// Sector is one node of the investable-sector taxonomy served to
// clients building discovery requests.
type Sector struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Subsectors  []string `json:"subsectors"`
}

var taxonomy = []Sector{
	{
		Name:        "Technology",
		Description: "Software, hardware, semiconductors and internet platforms",
		Subsectors: []string{
			"Software & Services", "Hardware & Equipment", "Semiconductors",
			"Internet Services", "Cloud Computing", "Artificial Intelligence",
			"Cybersecurity", "Consumer Electronics",
		},
	},
	{
		Name:        "Healthcare",
		Description: "Pharmaceuticals, biotechnology, medical devices and care providers",
		Subsectors: []string{
			"Pharmaceuticals", "Biotechnology", "Medical Devices",
			"Healthcare Services", "Health Insurance", "Digital Health",
			"Telemedicine", "Medical Equipment", "Drug Discovery", "Gene Therapy",
		},
	},
	{
		Name:        "Financial Services",
		Description: "Banks, insurers, asset managers and payment networks",
		Subsectors: []string{
			"Commercial Banking", "Investment Banking", "Insurance",
			"Asset Management", "Payment Processing", "Fintech",
			"Cryptocurrency", "Consumer Finance", "Wealth Management",
		},
	},
	{
		Name:        "Energy",
		Description: "Oil and gas, renewables and energy infrastructure",
		Subsectors: []string{
			"Oil & Gas", "Renewable Energy", "Energy Storage", "Nuclear Energy",
			"Energy Infrastructure", "Clean Technology", "Energy Trading",
			"Energy Services",
		},
	},
	{
		Name:        "Consumer Cyclical",
		Description: "Retail, automotive, travel and discretionary spending",
		Subsectors: []string{
			"Retail", "Automotive", "Electric Vehicles", "E-commerce",
			"Restaurants", "Travel & Leisure", "Luxury Goods",
			"Home Improvement", "Apparel & Accessories", "Online Retail",
		},
	},
	{
		Name:        "Consumer Defensive",
		Description: "Food, beverages and household staples",
		Subsectors:  []string{"Food & Beverages", "Consumer Goods"},
	},
	{
		Name:        "Communication Services",
		Description: "Media, entertainment and telecommunications",
		Subsectors: []string{
			"Media", "Entertainment", "Gaming & Entertainment", "Telecommunications",
		},
	},
	{
		Name:        "Industrials",
		Description: "Aerospace, defense, transportation and manufacturing",
		Subsectors: []string{
			"Aerospace & Defense", "Transportation", "Manufacturing",
		},
	},
	{
		Name:        "Utilities",
		Description: "Regulated electric, gas and water utilities",
		Subsectors:  []string{"Electric Utilities", "Gas Utilities", "Water Utilities"},
	},
	{
		Name:        "Real Estate",
		Description: "REITs and real estate operators",
		Subsectors:  []string{"Real Estate Investment"},
	},
	{
		Name:        "Basic Materials",
		Description: "Chemicals, metals and mining",
		Subsectors:  []string{"Chemicals", "Metals & Mining"},
	},
}

// All returns the full taxonomy, sorted by sector name. The slice is a
// copy; callers may mutate it freely.
func All() []Sector {
	out := make([]Sector, len(taxonomy))
	copy(out, taxonomy)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Find looks a sector up by case-insensitive name.
func Find(name string) (Sector, bool) {
	for _, s := range taxonomy {
		if strings.EqualFold(s.Name, name) {
			return s, true
		}
	}
	return Sector{}, false
}

// SubsectorParent returns the sector that owns a subsector name, for
// clients that only know the narrower term.
func SubsectorParent(subsector string) (Sector, bool) {
	for _, s := range taxonomy {
		for _, sub := range s.Subsectors {
			if strings.EqualFold(sub, subsector) {
				return s, true
			}
		}
	}
	return Sector{}, false
}
