package osm

import "strconv"

// Geo is a geocoded bounding box plus an optional Overpass area id.
type Geo struct {
	South  float64 `json:"south"`
	West   float64 `json:"west"`
	North  float64 `json:"north"`
	East   float64 `json:"east"`
	AreaID *int64  `json:"area_id,omitempty"`
}

// Expand grows the box by ratio of its height and width on each side.
func (g Geo) Expand(ratio float64) Geo {
	dh := (g.North - g.South) * ratio
	dw := (g.East - g.West) * ratio
	return Geo{
		South:  g.South - dh,
		West:   g.West - dw,
		North:  g.North + dh,
		East:   g.East + dw,
		AreaID: g.AreaID,
	}
}

// bbox renders the Overpass (south,west,north,east) scope.
func (g Geo) bbox() string {
	return "(" + formatCoord(g.South) + "," + formatCoord(g.West) + "," +
		formatCoord(g.North) + "," + formatCoord(g.East) + ")"
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// areaID converts a Nominatim OSM object into an Overpass area id. Nodes have
// no area.
func areaID(osmType string, osmID int64) *int64 {
	var id int64
	switch osmType {
	case "relation":
		id = 3600000000 + osmID
	case "way":
		id = 2400000000 + osmID
	default:
		return nil
	}
	return &id
}
