package extract

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/tidwall/gjson"

	"fuelprice/internal/aggregate"
)

// arrayPattern locates an embedded results literal. When balanced is set the
// capture only marks where the array starts; the decoder reads exactly one
// JSON value from there so trailing script is ignored.
type arrayPattern struct {
	re       *regexp.Regexp
	balanced bool
}

var arrayPatterns = []arrayPattern{
	{re: regexp.MustCompile(`(?is)var rezultate = JSON\.parse\('(.+?)'\);`)},
	{re: regexp.MustCompile(`(?is)rezultate = JSON\.parse\('(.+?)'\)`)},
	{re: regexp.MustCompile(`(?is)"rezultate":\s*(\[.+?\])`), balanced: true},
	{re: regexp.MustCompile(`(?is)var\s+data\s*=\s*JSON\.parse\('(.+?)'\)`)},
	{re: regexp.MustCompile(`(?is)var\s+results\s*=\s*(\[.+?\])`), balanced: true},
}

var unescaper = strings.NewReplacer(`\/`, `/`, `\"`, `"`, `\'`, `'`)

// Structured reads the JSON results array embedded in a script. Records are
// [network, lat, lon, address, details, price] tuples where price is a number
// or a string; objects with a pret or price key are accepted too. Only the
// first pattern that yields records is returned; see StructuredGroups.
func Structured(body string) []Candidate {
	if groups := StructuredGroups(body); len(groups) > 0 {
		return groups[0]
	}
	return nil
}

// StructuredGroups returns the records of every results literal in body, one
// group per matching pattern in pattern order. A pattern that yields no usable
// record contributes no group.
func StructuredGroups(body string) [][]Candidate {
	var groups [][]Candidate
	seen := make(map[int]bool, len(arrayPatterns))
	for _, p := range arrayPatterns {
		idx := p.re.FindStringSubmatchIndex(body)
		// the assignment patterns overlap; read each literal once
		if idx == nil || seen[idx[2]] {
			continue
		}
		seen[idx[2]] = true
		raw, ok := literal(p, body, idx)
		if !ok || strings.TrimSpace(raw) == "null" {
			continue
		}
		arr := gjson.Parse(raw)
		if !arr.IsArray() {
			continue
		}
		if out := records(arr); len(out) > 0 {
			groups = append(groups, out)
		}
	}
	return groups
}

func literal(p arrayPattern, body string, idx []int) (string, bool) {
	if p.balanced {
		var msg json.RawMessage
		if err := json.NewDecoder(strings.NewReader(body[idx[2]:])).Decode(&msg); err != nil {
			return "", false
		}
		return string(msg), true
	}
	raw := unescaper.Replace(body[idx[2]:idx[3]])
	return raw, gjson.Valid(raw)
}

func records(arr gjson.Result) []Candidate {
	var out []Candidate
	arr.ForEach(func(_, item gjson.Result) bool {
		switch {
		case item.IsArray():
			fields := item.Array()
			if len(fields) < 6 {
				return true
			}
			price := fields[5]
			if price.Type != gjson.String && price.Type != gjson.Number {
				return true
			}
			out = append(out, Candidate{
				Source:    aggregate.NormalizeNetwork(fields[0].String()),
				Address:   strings.TrimSpace(fields[3].String()),
				PriceText: price.String(),
			})
		case item.IsObject():
			price := item.Get("pret")
			if !price.Exists() {
				price = item.Get("price")
			}
			if !price.Exists() {
				return true
			}
			network := item.Get("retea")
			if !network.Exists() {
				network = item.Get("network")
			}
			address := item.Get("adresa")
			if !address.Exists() {
				address = item.Get("address")
			}
			out = append(out, Candidate{
				Source:    aggregate.NormalizeNetwork(network.String()),
				Address:   strings.TrimSpace(address.String()),
				PriceText: price.String(),
			})
		}
		return true
	})
	return out
}

var (
	scriptBlock = regexp.MustCompile(`(?is)<script[^>]*>(.*?)</script>`)
	moneyText   = regexp.MustCompile(`(?i)\b(\d+[,.]?\d*)\s*(?:RON|lei)\b`)
)

// ScriptText scans script blocks that mention prices for "7,45 lei" style
// amounts.
func ScriptText(body string) []Candidate {
	var out []Candidate
	for _, m := range scriptBlock.FindAllStringSubmatch(body, -1) {
		script := m[1]
		lower := strings.ToLower(script)
		if !strings.Contains(lower, "pret") && !strings.Contains(lower, "price") && !strings.Contains(lower, "rezultate") {
			continue
		}
		for _, mm := range moneyText.FindAllStringSubmatch(script, -1) {
			out = append(out, Candidate{Source: "script", PriceText: mm[1]})
		}
	}
	return out
}

// LegacyMarkup reads the older page layout: a strong price inside an
// h5.pret heading, or two-column price/address table rows.
func LegacyMarkup(body string) []Candidate {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil
	}
	var out []Candidate
	doc.Find("h5[class*='pret'] strong").Each(func(_ int, s *goquery.Selection) {
		out = append(out, Candidate{Source: "legacy", PriceText: strings.TrimSpace(s.Text())})
	})
	doc.Find("table tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.ChildrenFiltered("td")
		if cells.Length() < 2 {
			return
		}
		out = append(out, Candidate{
			Source:    strings.TrimSpace(cells.Eq(1).Text()),
			PriceText: strings.TrimSpace(cells.Eq(0).Text()),
		})
	})
	return out
}
