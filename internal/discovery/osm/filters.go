package osm

import "strings"

// Filters are the OSM tag values a keyword maps to. Values keep insertion
// order so generated queries are stable.
type Filters struct {
	Shop    []string
	Amenity []string
	Craft   []string
}

type filterRule struct {
	needle  string
	shop    []string
	amenity []string
	craft   []string
}

var keywordRules = []filterRule{
	{needle: "parke", shop: []string{"flooring", "doityourself", "hardware"}, craft: []string{"floorer"}},
	{needle: "zemin", shop: []string{"flooring", "doityourself"}, craft: []string{"floorer"}},
	{needle: "laminat", shop: []string{"flooring", "doityourself"}},
	{needle: "parkeci", shop: []string{"flooring"}, craft: []string{"floorer"}},
	{needle: "pvc", shop: []string{"flooring", "doityourself"}, craft: []string{"floorer"}},
	{needle: "epoksi", shop: []string{"flooring", "doityourself", "paint"}},
	{needle: "süpürgelik", shop: []string{"flooring", "hardware"}},
	{needle: "kuaför", shop: []string{"hairdresser"}, amenity: []string{"hairdresser"}},
	{needle: "berber", shop: []string{"hairdresser"}, amenity: []string{"hairdresser"}},
	{needle: "eczane", amenity: []string{"pharmacy"}},
	{needle: "restoran", amenity: []string{"restaurant"}},
	{needle: "kafe", amenity: []string{"cafe"}},
	{needle: "mobilya", shop: []string{"furniture"}},
	{needle: "tesisat", shop: []string{"hardware", "doityourself"}},
	{needle: "yapı", shop: []string{"hardware", "doityourself", "interior"}},
}

// genericAmenities are excluded from name-only matches when the keyword has
// category filters.
var genericAmenities = map[string]struct{}{
	"cafe": {}, "restaurant": {}, "fast_food": {}, "bar": {}, "pub": {}, "bank": {}, "atm": {},
}

// FiltersFor maps a keyword to category filters by substring match.
func FiltersFor(keyword string) Filters {
	kw := strings.ToLower(keyword)
	var f Filters
	for _, rule := range keywordRules {
		if !strings.Contains(kw, rule.needle) {
			continue
		}
		f.Shop = appendUnique(f.Shop, rule.shop...)
		f.Amenity = appendUnique(f.Amenity, rule.amenity...)
		f.Craft = appendUnique(f.Craft, rule.craft...)
	}
	return f
}

// Empty reports whether no category filter applies.
func (f Filters) Empty() bool {
	return len(f.Shop) == 0 && len(f.Amenity) == 0 && len(f.Craft) == 0
}

// Matches reports whether tags carry one of the filtered categories.
func (f Filters) Matches(tags map[string]string) bool {
	return containsFold(f.Shop, tags["shop"]) ||
		containsFold(f.Amenity, tags["amenity"]) ||
		containsFold(f.Craft, tags["craft"])
}

// accept applies the places acceptance rule to one element's tags.
func accept(f Filters, tags map[string]string, name, keyword string) bool {
	if f.Matches(tags) {
		return true
	}
	kw := strings.ToLower(keyword)
	nameMatch := strings.TrimSpace(name) != "" &&
		(strings.Contains(strings.ToLower(name), kw) || strings.Contains(strings.ToLower(tags["description"]), kw))
	if !nameMatch {
		return false
	}
	if f.Empty() {
		return true
	}
	_, generic := genericAmenities[tags["amenity"]]
	return !generic
}

func appendUnique(dst []string, values ...string) []string {
	for _, v := range values {
		if !containsFold(dst, v) {
			dst = append(dst, v)
		}
	}
	return dst
}

func containsFold(values []string, v string) bool {
	if v == "" {
		return false
	}
	for _, candidate := range values {
		if strings.EqualFold(candidate, v) {
			return true
		}
	}
	return false
}
