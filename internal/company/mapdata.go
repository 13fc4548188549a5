package company

import (
	"sort"
	"strings"
)

// Map rendering defaults.
const (
	DefaultZoom   = 10
	PointRadius   = 500 // meters
	tooltipJoiner = ", "
)

// PointColor is the RGBA fill of map points (semi-transparent red).
var PointColor = [4]uint8{255, 0, 0, 140}

// CityPoint is one map point: the companies sharing a city and position.
type CityPoint struct {
	City      string  `json:"ville"`
	Lat       float64 `json:"lat"`
	Lon       float64 `json:"lon"`
	Companies string  `json:"entreprises"`
}

// MapView is the map dataset plus its initial view.
type MapView struct {
	Points    []CityPoint `json:"points"`
	CenterLat float64     `json:"center_lat"`
	CenterLon float64     `json:"center_lon"`
	Zoom      int         `json:"zoom"`
	Radius    int         `json:"radius"` // meters
	Color     [4]uint8    `json:"color"`  // RGBA
	Total     int         `json:"total"`  // companies searched, with or without coordinates
}

// Empty reports whether there is nothing to draw.
func (m MapView) Empty() bool {
	return len(m.Points) == 0
}

type cityKey struct {
	city     string
	lat, lon float64
}

// GroupByCity builds map points from search results. Records missing either
// coordinate are skipped. Names within a point keep input order; points are
// sorted by city, then latitude, then longitude.
func GroupByCity(companies []*Company) []CityPoint {
	names := make(map[cityKey][]string)
	var keys []cityKey

	for _, c := range companies {
		if !c.HasCoordinates() {
			continue
		}
		k := cityKey{city: c.City, lat: *c.Lat, lon: *c.Lon}
		if _, ok := names[k]; !ok {
			keys = append(keys, k)
		}
		names[k] = append(names[k], c.Name)
	}

	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.city != b.city {
			return a.city < b.city
		}
		if a.lat != b.lat {
			return a.lat < b.lat
		}
		return a.lon < b.lon
	})

	points := make([]CityPoint, 0, len(keys))
	for _, k := range keys {
		points = append(points, CityPoint{
			City:      k.city,
			Lat:       k.lat,
			Lon:       k.lon,
			Companies: strings.Join(names[k], tooltipJoiner),
		})
	}
	return points
}

// NewMapView centers the view on the mean position of points.
func NewMapView(points []CityPoint) MapView {
	view := MapView{Points: points, Zoom: DefaultZoom, Radius: PointRadius, Color: PointColor}
	if len(points) == 0 {
		view.Points = []CityPoint{}
		return view
	}

	var lat, lon float64
	for _, p := range points {
		lat += p.Lat
		lon += p.Lon
	}
	view.CenterLat = lat / float64(len(points))
	view.CenterLon = lon / float64(len(points))
	return view
}

// BuildMap groups companies and returns the resulting view.
func BuildMap(companies []*Company) MapView {
	view := NewMapView(GroupByCity(companies))
	view.Total = len(companies)
	return view
}
