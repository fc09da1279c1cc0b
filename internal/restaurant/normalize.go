package restaurant

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Business mirrors the subset of the upstream listing payload we read.
// The upstream envelope moves fields around between releases, so several
// of them are checked in more than one place.
type Business struct {
	ID           string   `json:"id"`
	Alias        string   `json:"alias"`
	Name         string   `json:"name"`
	Rating       float64  `json:"rating"`
	ReviewCount  int      `json:"review_count"`
	Price        string   `json:"price"`
	Distance     float64  `json:"distance"` // meters
	URL          string   `json:"url"`
	ImageURL     string   `json:"image_url"`
	Phone        string   `json:"phone"`
	DisplayPhone string   `json:"display_phone"`
	Photos       []string `json:"photos"`
	Transactions []string `json:"transactions"`
	Categories   []struct {
		Title string `json:"title"`
	} `json:"categories"`
	Location struct {
		Address1         string `json:"address1"`
		FormattedAddress string `json:"formatted_address"`
	} `json:"location"`
	Summaries struct {
		Short  string `json:"short"`
		Medium string `json:"medium"`
		Long   string `json:"long"`
	} `json:"summaries"`
	Attributes struct {
		BizSummary struct {
			Summary string `json:"summary"`
		} `json:"biz_summary"`
	} `json:"attributes"`
	ContextualInfo struct {
		Price          string `json:"price"`
		Summary        string `json:"summary"`
		ReviewSnippet  string `json:"review_snippet"`
		ReviewSnippets []struct {
			Comment string   `json:"comment"`
			Text    string   `json:"text"`
			Rating  *float64 `json:"rating"`
		} `json:"review_snippets"`
		Photos []struct {
			OriginalURL string `json:"original_url"`
			URL         string `json:"url"`
		} `json:"photos"`
	} `json:"contextual_info"`
}

const (
	metersPerMile   = 1609.34
	maxSnippets     = 5
	maxPhotos       = 6
	reservationTxn  = "restaurant_reservation"
	reservationBase = "https://www.yelp.com/reservations/"
)

// FromBusiness normalizes one upstream listing into a Restaurant.
func FromBusiness(b Business) Restaurant {
	id := b.ID
	if id == "" {
		id = fmt.Sprintf("restaurant-%09d", rand.Int31())
	}

	cuisine := "Restaurant"
	if len(b.Categories) > 0 && b.Categories[0].Title != "" {
		cuisine = b.Categories[0].Title
	}

	miles := 0.0
	distance := "N/A"
	if b.Distance > 0 {
		miles = b.Distance / metersPerMile
		distance = fmt.Sprintf("%.1f mi", miles)
	}

	priceLevel := b.Price
	if priceLevel == "" {
		priceLevel = b.ContextualInfo.Price
	}
	cost := EstimateCost(priceLevel)
	if priceLevel == "" {
		priceLevel = "$$"
	}

	address := b.Location.FormattedAddress
	if address == "" {
		address = b.Location.Address1
	}
	if address == "" {
		address = "Address not available"
	}

	imageURL := b.ImageURL
	if imageURL == "" && len(b.ContextualInfo.Photos) > 0 {
		imageURL = b.ContextualInfo.Photos[0].OriginalURL
	}
	if imageURL == "" {
		imageURL = fmt.Sprintf("https://picsum.photos/seed/%s/300/200", id)
	}

	pageURL := b.URL
	if pageURL == "" {
		pageURL = "#"
	}

	short := b.Summaries.Short
	if short == "" {
		short = b.Attributes.BizSummary.Summary
	}

	phone := b.Phone
	if phone == "" {
		phone = b.DisplayPhone
	}

	supportsReservation := false
	for _, t := range b.Transactions {
		if t == reservationTxn {
			supportsReservation = true
			break
		}
	}
	reservationURL := ""
	if supportsReservation {
		ref := b.Alias
		if ref == "" {
			ref = id
		}
		reservationURL = reservationBase + ref
	}

	return Restaurant{
		ID:            id,
		Name:          nonEmpty(b.Name, "Unknown Restaurant"),
		Cuisine:       cuisine,
		Rating:        b.Rating,
		ReviewCount:   b.ReviewCount,
		PriceLevel:    priceLevel,
		EstimatedCost: cost,
		Distance:      distance,
		DistanceMiles: miles,
		Address:       address,
		ImageURL:      imageURL,
		PageURL:       pageURL,
		Summaries: Summaries{
			Short:  SanitizeText(short),
			Medium: SanitizeText(b.Summaries.Medium),
			Long:   SanitizeText(b.Summaries.Long),
		},
		ReviewSnippets:      parseSnippets(b),
		ContextualSummary:   SanitizeText(b.ContextualInfo.Summary),
		Photos:              extractPhotos(b, id),
		Phone:               phone,
		SupportsReservation: supportsReservation,
		ReservationURL:      reservationURL,
	}
}

func nonEmpty(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

// parseSnippets flattens the single-snippet and snippet-list variants of
// contextual_info into one capped list, highlight markers removed.
func parseSnippets(b Business) []ReviewSnippet {
	var snippets []ReviewSnippet
	if s := b.ContextualInfo.ReviewSnippet; s != "" {
		snippets = append(snippets, ReviewSnippet{Text: stripHighlights(s)})
	}
	for _, s := range b.ContextualInfo.ReviewSnippets {
		text := s.Comment
		if text == "" {
			text = s.Text
		}
		text = stripHighlights(text)
		if text == "" {
			continue
		}
		snippets = append(snippets, ReviewSnippet{Text: text, Rating: s.Rating})
	}
	if len(snippets) > maxSnippets {
		snippets = snippets[:maxSnippets]
	}
	return snippets
}

func stripHighlights(s string) string {
	s = strings.ReplaceAll(s, "[[HIGHLIGHT]]", "")
	s = strings.ReplaceAll(s, "[[ENDHIGHLIGHT]]", "")
	return SanitizeText(s)
}

// extractPhotos merges every photo source, deduplicated and capped.
func extractPhotos(b Business, id string) []string {
	var photos []string
	seen := map[string]bool{}
	add := func(url string) {
		if url == "" || seen[url] || len(photos) >= maxPhotos {
			return
		}
		seen[url] = true
		photos = append(photos, url)
	}

	add(b.ImageURL)
	for _, p := range b.ContextualInfo.Photos {
		if p.OriginalURL != "" {
			add(p.OriginalURL)
		} else {
			add(p.URL)
		}
	}
	for _, p := range b.Photos {
		add(p)
	}
	return photos
}

// SanitizeText flattens HTML-bearing upstream text to plain text. Review
// excerpts and business summaries occasionally arrive with markup.
func SanitizeText(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return strings.TrimSpace(s)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return strings.TrimSpace(s)
	}
	doc.Find("script, style").Remove()
	return strings.TrimSpace(strings.Join(strings.Fields(doc.Text()), " "))
}
