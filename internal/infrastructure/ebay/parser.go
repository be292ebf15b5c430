package ebay

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/ryanzhouuu/Vintdex/internal/domain"
)

// Package-level compiled regex patterns for performance
var (
	priceCleanRegex   = regexp.MustCompile(`[^0-9.]`)
	lowResImageRegex  = regexp.MustCompile(`s-l\d+\.webp$`)
	soldPrefixRegex   = regexp.MustCompile(`(?i)^sold\s*`)
	whitespaceRegex   = regexp.MustCompile(`\s+`)
)

// Placeholder cards eBay injects into result pages; not real sales.
const placeholderTitle = "shop on ebay"

// soldDateLayouts are the date formats observed on result pages.
var soldDateLayouts = []string{
	"Jan 2, 2006",
	"Jan 02, 2006",
	"2 Jan 2006",
	"02 Jan 2006",
}

// parseSoldListings walks the result cards and keeps every one that
// parses cleanly. A failure on one card drops that card only; discovery
// degrades to fewer results rather than erroring.
func parseSoldListings(doc *goquery.Document) []domain.SoldListing {
	var listings []domain.SoldListing

	doc.Find("li.s-item").Each(func(_ int, sel *goquery.Selection) {
		if listing, ok := parseListingElement(sel); ok {
			listings = append(listings, listing)
		}
	})

	return listings
}

// parseListingElement extracts one SoldListing from a result card.
// Returns ok=false when price or sold date are missing, or when the card
// is a known non-item placeholder.
func parseListingElement(sel *goquery.Selection) (domain.SoldListing, bool) {
	title := cleanText(sel.Find(".s-item__title").First().Text())
	if title == "" || strings.Contains(strings.ToLower(title), placeholderTitle) {
		return domain.SoldListing{}, false
	}

	price, ok := extractPrice(sel.Find(".s-item__price").First().Text())
	if !ok {
		return domain.SoldListing{}, false
	}

	soldDate, ok := parseSoldDate(sel.Find(".s-item__caption .s-item__caption--signal span").First().Text())
	if !ok {
		return domain.SoldListing{}, false
	}

	imageURL := canonicalImageURL(sel.Find(".s-item__image-wrapper img").First().AttrOr("src", ""))
	listingURL := canonicalListingURL(sel.Find("a.s-item__link").First().AttrOr("href", ""))
	condition := cleanText(sel.Find(".s-item__subtitle .SECONDARY_INFO").First().Text())

	return domain.SoldListing{
		Title:      title,
		Price:      domain.Price{Amount: price, Currency: "USD"},
		ImageURL:   imageURL,
		ListingURL: listingURL,
		SoldDate:   soldDate,
		Condition:  condition,
	}, true
}

// extractPrice parses a display price, tolerating currency symbols,
// thousands separators and stray whitespace. Returns ok=false on
// non-numeric content so the caller can drop the listing.
func extractPrice(text string) (float64, bool) {
	// Ranged prices ("$12.00 to $15.00") keep the first value.
	if idx := strings.Index(strings.ToLower(text), " to "); idx > 0 {
		text = text[:idx]
	}

	clean := priceCleanRegex.ReplaceAllString(text, "")
	if clean == "" {
		return 0, false
	}

	price, err := strconv.ParseFloat(clean, 64)
	if err != nil || price <= 0 {
		return 0, false
	}
	return price, true
}

// parseSoldDate parses the "Sold Jan 2, 2026" caption.
func parseSoldDate(text string) (time.Time, bool) {
	clean := cleanText(soldPrefixRegex.ReplaceAllString(cleanText(text), ""))
	if clean == "" {
		return time.Time{}, false
	}

	for _, layout := range soldDateLayouts {
		if date, err := time.Parse(layout, clean); err == nil {
			return date, true
		}
	}
	return time.Time{}, false
}

// canonicalImageURL strips tracking parameters, forces https and rewrites
// known low-resolution image variants to their highest-resolution
// counterpart.
func canonicalImageURL(raw string) string {
	if raw == "" {
		return ""
	}

	clean := raw
	if idx := strings.Index(clean, "?"); idx >= 0 {
		clean = clean[:idx]
	}
	clean = strings.Replace(clean, "http:", "https:", 1)
	clean = lowResImageRegex.ReplaceAllString(clean, "s-l1000.jpeg")
	return clean
}

// canonicalListingURL reduces a listing link to its stable item form,
// dropping every tracking parameter.
func canonicalListingURL(raw string) string {
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return ""
	}

	segments := strings.Split(strings.Trim(parsed.Path, "/"), "/")
	if len(segments) < 2 || segments[0] != "itm" {
		return ""
	}
	return "https://www.ebay.com/itm/" + segments[1]
}

func cleanText(s string) string {
	return strings.TrimSpace(whitespaceRegex.ReplaceAllString(s, " "))
}
