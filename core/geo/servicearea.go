package geo

// ServiceArea is a circular coverage zone around a city center.
type ServiceArea struct {
	Name         string
	Lat          float64
	Lng          float64
	RadiusMeters float64
}

// DefaultServiceAreas covers the launch markets.
var DefaultServiceAreas = []ServiceArea{
	{Name: "lagos", Lat: 6.5244, Lng: 3.3792, RadiusMeters: 45000},
	{Name: "abuja", Lat: 9.0765, Lng: 7.3986, RadiusMeters: 35000},
	{Name: "nairobi", Lat: -1.2921, Lng: 36.8219, RadiusMeters: 40000},
	{Name: "mombasa", Lat: -4.0435, Lng: 39.6682, RadiusMeters: 25000},
	{Name: "accra", Lat: 5.6037, Lng: -0.1870, RadiusMeters: 35000},
	{Name: "kumasi", Lat: 6.6885, Lng: -1.6244, RadiusMeters: 25000},
}

// IsInServiceArea returns the name of the first area covering the point,
// or false when the point lies outside every area.
func IsInServiceArea(lat, lng float64, areas []ServiceArea) (string, bool) {
	for _, a := range areas {
		if Distance(lat, lng, a.Lat, a.Lng) <= a.RadiusMeters {
			return a.Name, true
		}
	}
	return "", false
}
