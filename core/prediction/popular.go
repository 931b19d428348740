package prediction

// DefaultPopularPlaces seeds cold-start predictions for the launch markets.
var DefaultPopularPlaces = []PopularPlace{
	{Place: Place{PlaceID: "lagos-mmia", Label: "Murtala Muhammed Airport", Lat: 6.5774, Lng: 3.3211}, Popularity: 0.95},
	{Place: Place{PlaceID: "lagos-ikeja-mall", Label: "Ikeja City Mall", Lat: 6.6142, Lng: 3.3580}, Popularity: 0.85},
	{Place: Place{PlaceID: "lagos-landmark", Label: "Landmark Beach", Lat: 6.4238, Lng: 3.4450}, Popularity: 0.75},
	{Place: Place{PlaceID: "nairobi-jkia", Label: "Jomo Kenyatta Airport", Lat: -1.3192, Lng: 36.9278}, Popularity: 0.95},
	{Place: Place{PlaceID: "nairobi-cbd", Label: "Nairobi CBD", Lat: -1.2864, Lng: 36.8172}, Popularity: 0.90},
	{Place: Place{PlaceID: "accra-kotoka", Label: "Kotoka Airport", Lat: 5.6052, Lng: -0.1718}, Popularity: 0.95},
	{Place: Place{PlaceID: "accra-mall", Label: "Accra Mall", Lat: 5.6224, Lng: -0.1733}, Popularity: 0.80},
}
