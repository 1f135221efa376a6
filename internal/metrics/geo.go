package metrics

import (
	"ecommerce-dashboard/internal/dataset"

	"github.com/paulmach/orb"
)

type GeoSet struct {
	Points    orb.MultiPoint `json:"points"`
	Unmatched int            `json:"unmatched"`
}

type GeoDistribution struct {
	Customers GeoSet `json:"customers"`
	Sellers   GeoSet `json:"sellers"`
	// Bounds covers every matched point; it is nil when nothing matched.
	Bounds *orb.Bound `json:"bounds,omitempty"`
}

// Geo places customers and sellers on the map by zip code
// prefix. The geolocation table has many rows per prefix; the first one
// wins.
func Geo(customers []dataset.Customer, sellers []dataset.Seller, geo []dataset.Geolocation) GeoDistribution {
	byZip := make(map[string]orb.Point, len(geo))
	for _, g := range geo {
		if _, ok := byZip[g.ZipCodePrefix]; !ok {
			byZip[g.ZipCodePrefix] = orb.Point{g.Lng, g.Lat}
		}
	}

	locate := func(zip string, set *GeoSet) {
		if p, ok := byZip[zip]; ok {
			set.Points = append(set.Points, p)
		} else {
			set.Unmatched++
		}
	}

	var d GeoDistribution
	for _, c := range customers {
		locate(c.ZipCodePrefix, &d.Customers)
	}
	for _, s := range sellers {
		locate(s.ZipCodePrefix, &d.Sellers)
	}

	all := make(orb.MultiPoint, 0, len(d.Customers.Points)+len(d.Sellers.Points))
	all = append(all, d.Customers.Points...)
	all = append(all, d.Sellers.Points...)
	if len(all) > 0 {
		b := all.Bound()
		d.Bounds = &b
	}
	return d
}
