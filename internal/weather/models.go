package weather

// MapLocation is the coordinate pair used by the map view.
type MapLocation struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// HourlyForecast is one hour of the short-range forecast.
type HourlyForecast struct {
	Time          string  `json:"time"`
	Temperature   float64 `json:"temperature"`
	Condition     string  `json:"condition"`
	Precipitation float64 `json:"precipitation"`
}

// DailyForecast is one day of the weekly forecast.
type DailyForecast struct {
	Day           string  `json:"day"`
	Date          string  `json:"date"`
	HighTemp      float64 `json:"highTemp"`
	LowTemp       float64 `json:"lowTemp"`
	Condition     string  `json:"condition"`
	Precipitation float64 `json:"precipitation"`
}

// WeatherData is the upstream Weather API payload, consumed as an opaque DTO.
// A location is identified by its display name; two places sharing a spelling
// are indistinguishable, a known limitation of the upstream contract.
type WeatherData struct {
	Location        string           `json:"location"`
	Temperature     float64          `json:"temperature"`
	Condition       string           `json:"condition"`
	FeelsLike       float64          `json:"feelsLike"`
	Humidity        float64          `json:"humidity"`
	WindSpeed       float64          `json:"windSpeed"`
	UVIndex         float64          `json:"uvIndex"`
	Pressure        float64          `json:"pressure"`
	Timezone        string           `json:"timezone"`
	LocalTime       string           `json:"localTime"`
	HourlyForecasts []HourlyForecast `json:"hourlyForecasts"`
	DailyForecasts  []DailyForecast  `json:"dailyForecasts"`
	MapLocation     MapLocation      `json:"mapLocation"`

	// IsFavorite is decorated locally before serving; the upstream API
	// knows nothing about this profile's favorites.
	IsFavorite bool `json:"isFavorite,omitempty"`
}
