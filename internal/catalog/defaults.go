package catalog

// Term types produced by the parser.
const (
	TermHalfYear = "half_year"
	TermFinal    = "final"
)

// DefaultTermRules returns the built-in term vocabulary. Half-year comes first because
// "Halbjahreszeugnis" contains "jahreszeugnis".
func DefaultTermRules() []TermRule {
	return []TermRule{
		{Type: TermHalfYear, Keywords: []string{
			"halbjahr", "zwischenzeugnis", "semesterzeugnis", "mid-year", "midyear",
			"half-year", "half year", "first semester", "1. semester",
		}},
		{Type: TermFinal, Keywords: []string{
			"jahreszeugnis", "abschlusszeugnis", "endzeugnis", "schuljahresende",
			"end of year", "end-of-year", "final report", "annual report", "year-end",
		}},
	}
}

// Default returns the built-in German/English catalog.
func Default() *ScanConfig {
	return &ScanConfig{
		Categories: []Category{
			{ID: "languages", Name: "Sprachen"},
			{ID: "stem", Name: "MINT"},
			{ID: "social", Name: "Gesellschaftswissenschaften"},
			{ID: "arts", Name: "Musisch-künstlerisch"},
			{ID: "other", Name: "Sonstige"},
		},
		Subjects: []Subject{
			{ID: "german", Name: "Deutsch", Aliases: []string{"German"}, CategoryID: "languages", Core: true},
			{ID: "math", Name: "Mathematik", Aliases: []string{"Mathe", "Mathematics", "Maths", "Math"}, CategoryID: "stem", Core: true},
			{ID: "english", Name: "Englisch", Aliases: []string{"English"}, CategoryID: "languages", Core: true},
			{ID: "french", Name: "Französisch", Aliases: []string{"French"}, CategoryID: "languages"},
			{ID: "latin", Name: "Latein", Aliases: []string{"Latin"}, CategoryID: "languages"},
			{ID: "spanish", Name: "Spanisch", Aliases: []string{"Spanish"}, CategoryID: "languages"},
			{ID: "biology", Name: "Biologie", Aliases: []string{"Biology"}, CategoryID: "stem"},
			{ID: "chemistry", Name: "Chemie", Aliases: []string{"Chemistry"}, CategoryID: "stem"},
			{ID: "physics", Name: "Physik", Aliases: []string{"Physics"}, CategoryID: "stem"},
			{ID: "cs", Name: "Informatik", Aliases: []string{"Computer Science", "Computing"}, CategoryID: "stem"},
			{ID: "science", Name: "Sachunterricht", Aliases: []string{"Science", "Naturwissenschaften"}, CategoryID: "stem"},
			{ID: "history", Name: "Geschichte", Aliases: []string{"History"}, CategoryID: "social"},
			{ID: "geography", Name: "Erdkunde", Aliases: []string{"Geographie", "Geografie", "Geography"}, CategoryID: "social"},
			{ID: "politics", Name: "Politik", Aliases: []string{"Sozialkunde", "Politik und Wirtschaft", "Social Studies", "Civics"}, CategoryID: "social"},
			{ID: "economics", Name: "Wirtschaft", Aliases: []string{"Economics"}, CategoryID: "social"},
			{ID: "religion", Name: "Religion", Aliases: []string{"Religionslehre", "Evangelische Religion", "Katholische Religion", "Religious Education"}, CategoryID: "social"},
			{ID: "ethics", Name: "Ethik", Aliases: []string{"Ethics", "Werte und Normen"}, CategoryID: "social"},
			{ID: "music", Name: "Musik", Aliases: []string{"Music"}, CategoryID: "arts"},
			{ID: "art", Name: "Kunst", Aliases: []string{"Art", "Bildende Kunst"}, CategoryID: "arts"},
			{ID: "sport", Name: "Sport", Aliases: []string{"Physical Education", "Sports"}, CategoryID: "other"},
		},
		TermTypes: DefaultTermRules(),
		Locale:    LocaleHints{Locale: "de-DE", Country: "DE"},
	}
}
