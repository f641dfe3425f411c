package collector

import (
	"encoding/json"
	"strings"

	"golang.org/x/net/html"

	"github.com/croneb/leadscan/internal/model"
)

// fragmentKeys are the JSON fields checked, in order, for embedded markup.
// The directory's endpoint wraps its HTML in a "d" field; the others cover
// variants seen while the site's API evolved.
var fragmentKeys = []string{"d", "html", "content", "result", "data"}

// cardAncestors are the element names accepted as a card container when
// falling back from class-based card detection to the name-span heuristic.
var cardAncestors = map[string]bool{
	"div":     true,
	"article": true,
	"li":      true,
	"section": true,
}

// ExtractRecords pulls contact records out of one captured payload.
// The payload is a JSON object carrying an HTML fragment in one of its
// string fields; payloads without an HTML-looking field yield no records.
// Records without a name are dropped. Duplicates are not removed here;
// the caller deduplicates across payloads.
func ExtractRecords(payload []byte) []model.Record {
	var data map[string]any
	if err := json.Unmarshal(payload, &data); err != nil {
		return nil
	}

	fragment, ok := htmlFragment(data)
	if !ok {
		return nil
	}

	doc, err := html.Parse(strings.NewReader(fragment))
	if err != nil {
		return nil
	}

	var records []model.Record
	for _, card := range findCards(doc) {
		rec := recordFromCard(card)
		if rec.Name == "" {
			continue
		}
		records = append(records, rec)
	}
	return records
}

// htmlFragment locates the first string field that looks like markup.
func htmlFragment(data map[string]any) (string, bool) {
	for _, key := range fragmentKeys {
		if s, ok := data[key].(string); ok {
			if strings.Contains(s, "<") && strings.Contains(s, ">") {
				return s, true
			}
		}
	}
	return "", false
}

// findCards locates card elements in the fragment. Primary detection is
// class-based: any element whose class mentions "realtor" or "card".
// Name spans are excluded from primary detection even though their class
// mentions "realtor": the span carries only the name, so treating it as a
// card would drop the record. When primary detection finds nothing, fall
// back to locating name spans and treating their nearest block ancestor as
// the card. The fallback order is kept as-is; see the extraction tests
// before changing it.
func findCards(doc *html.Node) []*html.Node {
	var cards []*html.Node
	walk(doc, func(n *html.Node) {
		if n.Type != html.ElementNode || isNameSpan(n) {
			return
		}
		class := strings.ToLower(attrValue(n, "class"))
		if strings.Contains(class, "realtor") || strings.Contains(class, "card") {
			cards = append(cards, n)
		}
	})
	if len(cards) > 0 {
		return cards
	}

	seen := make(map[*html.Node]bool)
	walk(doc, func(n *html.Node) {
		if !isNameSpan(n) {
			return
		}
		for parent := n.Parent; parent != nil; parent = parent.Parent {
			if parent.Type == html.ElementNode && cardAncestors[parent.Data] {
				if !seen[parent] {
					seen[parent] = true
					cards = append(cards, parent)
				}
				break
			}
		}
	})
	return cards
}

// recordFromCard extracts one record from a card element. Each field has a
// primary selector and, for phone and email, an href-scheme fallback.
// Lookups search descendants only: a card matched via a nested element
// (say a website anchor whose class mentions "card") simply yields no name
// and is dropped, which keeps nested matches from duplicating records.
func recordFromCard(card *html.Node) model.Record {
	var rec model.Record

	if n := findDescendant(card, isNameSpan); n != nil {
		rec.Name = visibleText(n)
	}

	if n := findDescendant(card, func(n *html.Node) bool {
		return isElement(n, "span") && attrValue(n, "class") == "TelephoneNumber"
	}); n != nil {
		rec.Phone = visibleText(n)
	} else if n := findDescendant(card, func(n *html.Node) bool {
		return isElement(n, "a") && strings.HasPrefix(attrValue(n, "href"), "tel:")
	}); n != nil {
		rec.Phone = strings.TrimSpace(strings.TrimPrefix(attrValue(n, "href"), "tel:"))
	}
	rec.Phone = model.NormalizePhone(rec.Phone)

	if n := findDescendant(card, func(n *html.Node) bool {
		return isElement(n, "a") && attrValue(n, "class") == "realtorCardWebsite"
	}); n != nil {
		rec.Website = strings.TrimSpace(attrValue(n, "href"))
	}

	if n := findDescendant(card, func(n *html.Node) bool {
		return isElement(n, "a") && strings.HasPrefix(attrValue(n, "href"), "mailto:")
	}); n != nil {
		rec.Email = strings.TrimSpace(strings.TrimPrefix(attrValue(n, "href"), "mailto:"))
	}

	return rec
}

// walk visits every node under n in document order, including n itself.
func walk(n *html.Node, visit func(*html.Node)) {
	visit(n)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, visit)
	}
}

// findDescendant returns the first descendant of n (excluding n itself)
// matching the predicate, in document order.
func findDescendant(n *html.Node, match func(*html.Node) bool) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if match(c) {
			return c
		}
		if found := findDescendant(c, match); found != nil {
			return found
		}
	}
	return nil
}

// isElement reports whether n is an element with the given tag name.
func isElement(n *html.Node, name string) bool {
	return n.Type == html.ElementNode && n.Data == name
}

// isNameSpan reports whether n is a realtor name span.
func isNameSpan(n *html.Node) bool {
	return isElement(n, "span") && attrValue(n, "class") == "realtorCardName"
}

// attrValue returns the value of the named attribute, or "".
func attrValue(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// visibleText concatenates the trimmed text content of n's subtree.
func visibleText(n *html.Node) string {
	var b strings.Builder
	walk(n, func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(strings.TrimSpace(n.Data))
		}
	})
	return b.String()
}
