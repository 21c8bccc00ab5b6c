package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// itemPlaceholder is replaced by the 1-based result position in ResultItemLink.
const itemPlaceholder = "{n}"

// PageSchema maps every piece of page structure the scraper depends on to an
// XPath expression. When the site markup changes, only this table changes.
type PageSchema struct {
	BlockMarker   string `yaml:"block_marker"`
	AppRoot       string `yaml:"app_root"`
	ConsentButton string `yaml:"consent_button"`

	CounterHeading         string `yaml:"counter_heading"`
	CounterHeadingFallback string `yaml:"counter_heading_fallback"`
	ResultItemLink         string `yaml:"result_item_link"`
	ResultLinkAttr         string `yaml:"result_link_attr"`

	Listing ListingSchema `yaml:"listing"`
}

// ListingSchema holds the selectors for a listing detail page.
type ListingSchema struct {
	Promoter          string `yaml:"promoter"`
	EnergyCertificate string `yaml:"energy_certificate"`
	Bedrooms          string `yaml:"bedrooms"`
	Area              string `yaml:"area"`
	Floor             string `yaml:"floor"`
	Image             string `yaml:"image"`
	ImageAttr         string `yaml:"image_attr"`
	Type              string `yaml:"type"`
	Price             string `yaml:"price"`
}

const (
	detailsBase  = `//*[@id="App"]/div[1]/main/div[3]/div[1]/div[1]/div/section[2]/div/div/div`
	featuresBase = detailsBase + `/div[1]`
)

// DefaultSchema returns the selectors matching the live site markup.
func DefaultSchema() PageSchema {
	return PageSchema{
		BlockMarker:   `//html/body/div/h1`,
		AppRoot:       `//*[@id="App"]`,
		ConsentButton: `//*[@id="didomi-notice-agree-button"]`,

		CounterHeading:         `//h2[@class="re-SearchPage-counterTitle"]`,
		CounterHeadingFallback: `//*[@id="App"]/div[1]/div[3]/div/main/div/div[2]/div/h2`,
		ResultItemLink:         `//section[@class="re-SearchResult"]/article[{n}]/a`,
		ResultLinkAttr:         "href",

		Listing: ListingSchema{
			Promoter:          `//*[@id="App"]/div[1]/main/div[3]/div[1]/div[2]/section[1]/div/div/div/div/div[2]/div[1]/h4`,
			EnergyCertificate: detailsBase + `/div[4]/div[1]/div/div/span[3]`,
			Bedrooms:          featuresBase + `/div[2]/div/div/span[2]`,
			Area:              featuresBase + `/div[4]/div/div/span[2]`,
			Floor:             featuresBase + `/div[5]/div/div/span[2]`,
			Image:             `//*[@id="App"]/div[1]/main/div[2]/section/figure[1]/img`,
			ImageAttr:         "src",
			Type:              featuresBase + `/div[1]/div/div/span[2]`,
			Price:             `//*[@id="App"]/div[1]/main/div[3]/div[1]/div[1]/div/section[1]/div/div[2]/div[1]/span`,
		},
	}
}

// ItemLink returns the selector for the result at 1-based position n.
func (s PageSchema) ItemLink(n int) string {
	return strings.ReplaceAll(s.ResultItemLink, itemPlaceholder, strconv.Itoa(n))
}

// LoadSchema reads a YAML file and overlays every non-empty field onto the
// defaults. An empty path returns the defaults.
func LoadSchema(path string) (PageSchema, error) {
	schema := DefaultSchema()
	if path == "" {
		return schema, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return schema, fmt.Errorf("schema: read %q: %w", path, err)
	}

	var override PageSchema
	if err := yaml.Unmarshal(data, &override); err != nil {
		return schema, fmt.Errorf("schema: parse %q: %w", path, err)
	}

	schema.merge(override)
	if !strings.Contains(schema.ResultItemLink, itemPlaceholder) {
		return schema, fmt.Errorf("schema: result_item_link must contain %s", itemPlaceholder)
	}
	return schema, nil
}

func (s *PageSchema) merge(o PageSchema) {
	set(&s.BlockMarker, o.BlockMarker)
	set(&s.AppRoot, o.AppRoot)
	set(&s.ConsentButton, o.ConsentButton)
	set(&s.CounterHeading, o.CounterHeading)
	set(&s.CounterHeadingFallback, o.CounterHeadingFallback)
	set(&s.ResultItemLink, o.ResultItemLink)
	set(&s.ResultLinkAttr, o.ResultLinkAttr)

	set(&s.Listing.Promoter, o.Listing.Promoter)
	set(&s.Listing.EnergyCertificate, o.Listing.EnergyCertificate)
	set(&s.Listing.Bedrooms, o.Listing.Bedrooms)
	set(&s.Listing.Area, o.Listing.Area)
	set(&s.Listing.Floor, o.Listing.Floor)
	set(&s.Listing.Image, o.Listing.Image)
	set(&s.Listing.ImageAttr, o.Listing.ImageAttr)
	set(&s.Listing.Type, o.Listing.Type)
	set(&s.Listing.Price, o.Listing.Price)
}

func set(dst *string, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*dst = v
	}
}
