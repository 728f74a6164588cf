package metro

const (
	DallasFortWorth = "Dallas-Fort Worth Metroplex"
	GreaterHouston  = "Greater Houston Area"
	AustinMetro     = "Austin Metro Area"
	SanAntonioMetro = "San Antonio Metro Area"
	EastTexas       = "East Texas"
	CentralTexas    = "Central Texas"
)

// DefaultTables returns fresh copies of the built-in city and consolidation tables.
func DefaultTables() Tables {
	return Tables{
		Cities:        copyMap(defaultCities),
		Consolidation: copyMap(defaultConsolidation),
	}
}

var defaultCities = map[string]string{
	"Dallas":               DallasFortWorth,
	"Fort Worth":           DallasFortWorth,
	"Arlington":            DallasFortWorth,
	"Irving":               DallasFortWorth,
	"Garland":              DallasFortWorth,
	"Grand Prairie":        DallasFortWorth,
	"Plano":                DallasFortWorth,
	"Frisco":               DallasFortWorth,
	"McKinney":             DallasFortWorth,
	"Allen":                DallasFortWorth,
	"Richardson":           DallasFortWorth,
	"Mesquite":             DallasFortWorth,
	"Carrollton":           DallasFortWorth,
	"Euless":               DallasFortWorth,
	"Bedford":              DallasFortWorth,
	"Hurst":                DallasFortWorth,
	"Cedar Hill":           DallasFortWorth,
	"North Richland Hills": DallasFortWorth,
	"Grapevine":            DallasFortWorth,
	"Crowley":              DallasFortWorth,
	"Waxahachie":           DallasFortWorth,
	"Rockwall":             DallasFortWorth,
	"Hudson Oaks":          DallasFortWorth,

	"Houston":       GreaterHouston,
	"Sugar Land":    GreaterHouston,
	"The Woodlands": GreaterHouston,
	"Pearland":      GreaterHouston,
	"Pasadena":      GreaterHouston,
	"Baytown":       GreaterHouston,
	"League City":   GreaterHouston,
	"Missouri City": GreaterHouston,
	"Webster":       GreaterHouston,
	"Humble":        GreaterHouston,
	"Katy":          GreaterHouston,
	"Spring":        GreaterHouston,
	"Texas City":    GreaterHouston,

	"Austin":          AustinMetro,
	"Round Rock":      AustinMetro,
	"Cedar Park":      AustinMetro,
	"Pflugerville":    AustinMetro,
	"Georgetown":      AustinMetro,
	"Leander":         AustinMetro,
	"Bee Cave":        AustinMetro,
	"Lakeway":         AustinMetro,
	"West Lake Hills": AustinMetro,

	"San Antonio":    SanAntonioMetro,
	"New Braunfels":  SanAntonioMetro,
	"Schertz":        SanAntonioMetro,
	"Universal City": SanAntonioMetro,
	"Converse":       SanAntonioMetro,

	"Tyler":    EastTexas,
	"Longview": EastTexas,
	"Lufkin":   EastTexas,

	"Temple":  CentralTexas,
	"Waco":    CentralTexas,
	"Killeen": CentralTexas,

	"Bryan":          "Bryan-College Station Area",
	"McAllen":        "Rio Grande Valley",
	"Odessa":         "Midland-Odessa",
	"Corpus Christi": "South Texas",
	"Beaumont":       "South Texas",
	"El Paso":        "West Texas",
}

var defaultConsolidation = map[string]string{
	"North Richland Hills Area": DallasFortWorth,
	"Cedar Hill Area":           DallasFortWorth,
	"Rockwall Area":             DallasFortWorth,
	"Hudson Oaks Area":          DallasFortWorth,
	"Waxahachie Area":           DallasFortWorth,
	"Haltom City Area":          DallasFortWorth,
	"Grapevine Area":            DallasFortWorth,
	"Crowley Area":              DallasFortWorth,
	"Ennis Area":                DallasFortWorth,

	"Webster Area":    GreaterHouston,
	"Humble Area":     GreaterHouston,
	"Texas City Area": GreaterHouston,
	"Spring Area":     GreaterHouston,
	"Katy Area":       GreaterHouston,
	"Tomball Area":    GreaterHouston,
	"Cypress Area":    GreaterHouston,

	"Temple Area": CentralTexas,
	"Waco Area":   CentralTexas,

	"Tyler Area":           EastTexas,
	"Longview Area":        EastTexas,
	"Lufkin Area":          EastTexas,
	"Gladewater Area":      EastTexas,
	"Whitehouse Area":      EastTexas,
	"Kilgore Area":         EastTexas,
	"Hawkins Area":         EastTexas,
	"Henderson Area":       EastTexas,
	"Hughes Springs Area":  EastTexas,
	"Canton Area":          EastTexas,
	"Sulphur Springs Area": EastTexas,
	"Ore City Area":        EastTexas,

	"Bryan Area":  "Bryan-College Station Area",
	"Odessa Area": "Midland-Odessa",

	// Metros assigned by earlier collection runs.
	"Austin Metro":      AustinMetro,
	"San Antonio Metro": SanAntonioMetro,
}

func copyMap(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
