// Package region maps French department codes to the regional banking
// portals that serve them. Some departments are served by more than one
// regional bank; Resolve returns all candidates in a fixed order and the
// caller decides what to do with the ambiguity.
package region

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Region is the slug of one regional portal, e.g. "toulouse31".
type Region string

// BaseURL returns the portal base URL for the region.
func (r Region) BaseURL() string {
	return fmt.Sprintf("https://www.%s.example-bank.fr", string(r))
}

// Name returns the region's display name, or the slug if unknown.
func (r Region) Name() string {
	if name, ok := regionNames[string(r)]; ok {
		return name
	}
	return string(r)
}

// ErrUnknownDepartment is returned when a department resolves to no region.
var ErrUnknownDepartment = errors.New("department maps to no known region")

// Resolve returns the candidate regions for a department code, in priority
// order. A value that is already a known region slug resolves to itself.
// Numeric codes are normalized ("07" and "7" are the same department).
func Resolve(department string) ([]Region, error) {
	department = strings.TrimSpace(department)
	if _, ok := regionNames[department]; ok {
		return []Region{Region(department)}, nil
	}

	normalized := department
	if n, err := strconv.Atoi(department); err == nil {
		normalized = strconv.Itoa(n)
	}

	for _, group := range departmentGroups {
		for _, d := range group.departments {
			if d == normalized {
				regions := make([]Region, len(group.regions))
				for i, slug := range group.regions {
					regions[i] = Region(slug)
				}
				return regions, nil
			}
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownDepartment, department)
}

var regionNames = map[string]string{
	"alpesprovence":      "Alpes Provence",
	"alsace-vosges":      "Alsace Vosges",
	"anjou-maine":        "Anjou Maine",
	"aquitaine":          "Aquitaine",
	"atlantique-vendee":  "Atlantique Vendee",
	"briepicardie":       "Brie Picardie",
	"cb":                 "Champagne Bourgogne",
	"centrest":           "Centre Est",
	"centrefrance":       "Centre France",
	"centreloire":        "Centre Loire",
	"centreouest":        "Centre Ouest",
	"charente-perigord":  "Charente Perigord",
	"cmds":               "Charente Maritime Deux-Sevres",
	"corse":              "Corse",
	"cotesdarmor":        "Cotes d'Armor",
	"des-savoie":         "Des Savoie",
	"finistere":          "Finistere",
	"franchecomte":       "Franche Comte",
	"guadeloupe":         "Guadeloupe",
	"illeetvilaine":      "Ille et Vilaine",
	"languedoc":          "Languedoc",
	"loirehauteloire":    "Loire Haute-Loire",
	"lorraine":           "Lorraine",
	"martinique":         "Martinique",
	"morbihan":           "Morbihan",
	"nmp":                "Nord Midi Pyrenees",
	"nord-est":           "Nord Est",
	"norddefrance":       "Nord de France",
	"normandie":          "Normandie",
	"normandie-seine":    "Normandie Seine",
	"paris":              "Paris",
	"pca":                "Provence Cote d'Azur",
	"pyrenees-gascogne":  "Pyrenees Gascogne",
	"reunion":            "Reunion",
	"sudmed":             "Sud Mediterranee",
	"sudrhonealpes":      "Sud Rhone Alpes",
	"toulouse31":         "Toulouse",
	"tourainepoitou":     "Touraine Poitou",
	"valdefrance":        "Val de France",
}

// departmentGroups lists, per group of departments, the regional banks that
// serve them. Where several regions overlap a department the order below is
// the priority order.
var departmentGroups = []struct {
	departments []string
	regions     []string
}{
	{[]string{"20", "2A", "2B"}, []string{"corse"}},
	{[]string{"1", "71"}, []string{"centrest"}},
	{[]string{"2", "8", "51"}, []string{"nord-est"}},
	{[]string{"4", "6", "83"}, []string{"pca"}},
	{[]string{"5", "13", "84"}, []string{"alpesprovence"}},
	{[]string{"10", "21", "52", "89"}, []string{"cb"}},
	{[]string{"11", "30", "34", "48"}, []string{"languedoc"}},
	{[]string{"12", "46", "81", "82"}, []string{"nmp"}},
	{[]string{"14", "50"}, []string{"normandie"}},
	{[]string{"53", "61"}, []string{"normandie", "anjou-maine"}},
	{[]string{"15", "23", "63", "3", "19"}, []string{"centrefrance"}},
	{[]string{"16", "24"}, []string{"charente-perigord"}},
	{[]string{"17", "79"}, []string{"cmds"}},
	{[]string{"18", "58"}, []string{"centreloire"}},
	{[]string{"56"}, []string{"morbihan"}},
	{[]string{"45"}, []string{"briepicardie", "centreloire"}},
	{[]string{"22"}, []string{"cotesdarmor"}},
	{[]string{"25", "39", "70", "90"}, []string{"franchecomte"}},
	{[]string{"26", "38", "69", "7"}, []string{"centrest", "sudrhonealpes"}},
	{[]string{"27", "76"}, []string{"normandie-seine"}},
	{[]string{"28", "41"}, []string{"valdefrance"}},
	{[]string{"29"}, []string{"finistere"}},
	{[]string{"31"}, []string{"toulouse31"}},
	{[]string{"32"}, []string{"aquitaine", "pyrenees-gascogne"}},
	{[]string{"33", "40", "47"}, []string{"aquitaine"}},
	{[]string{"35"}, []string{"illeetvilaine"}},
	{[]string{"36", "87"}, []string{"centreouest"}},
	{[]string{"37", "86"}, []string{"tourainepoitou"}},
	{[]string{"54", "55", "57"}, []string{"lorraine"}},
	{[]string{"67", "68", "88"}, []string{"alsace-vosges"}},
	{[]string{"42", "43"}, []string{"loirehauteloire"}},
	{[]string{"44", "85"}, []string{"atlantique-vendee"}},
	{[]string{"49", "72"}, []string{"anjou-maine"}},
	{[]string{"59", "62"}, []string{"norddefrance"}},
	{[]string{"64", "65"}, []string{"pyrenees-gascogne"}},
	{[]string{"66", "9"}, []string{"sudmed"}},
	{[]string{"73", "74"}, []string{"des-savoie"}},
	{[]string{"75", "91", "92", "93", "94", "95", "78"}, []string{"paris"}},
	{[]string{"60"}, []string{"briepicardie", "paris"}},
	{[]string{"80", "77"}, []string{"briepicardie"}},
	{[]string{"971"}, []string{"guadeloupe"}},
	{[]string{"972", "973"}, []string{"martinique"}},
	{[]string{"974"}, []string{"reunion"}},
}
