package models

// URLCount is the advertised result count read from one start URL.
type URLCount struct {
	URL   string
	Count int
}

// CountReport is the outcome of a counter run.
type CountReport struct {
	PerURL []URLCount
	Total  int
}

// Verdict is the robots policy answer for one URL.
type Verdict struct {
	URL     string
	Allowed bool
}

// SeedResult summarises a seeding run.
type SeedResult struct {
	StartURLs    int
	SkippedEmpty int
	LinksWritten int
}

// ExtractResult summarises an extraction run.
type ExtractResult struct {
	Links   int
	Written int
	Dropped int
	Blocked bool
}
