package weather

import (
	"fmt"

	"github.com/go-viper/mapstructure/v2"
)

// Location describes the place a forecast applies to.
type Location struct {
	CoordLat   float64 `mapstructure:"coord_lat" json:"coord_lat"`
	CoordLon   float64 `mapstructure:"coord_lon" json:"coord_lon"`
	Timezone   int64   `mapstructure:"timezone" json:"timezone"`
	Name       string  `mapstructure:"name" json:"name"`
	SysCountry string  `mapstructure:"sys_country" json:"sys_country"`
	SysSunset  int64   `mapstructure:"sys_sunset" json:"sys_sunset"`
	SysSunrise int64   `mapstructure:"sys_sunrise" json:"sys_sunrise"`
}

// Variables is one current or hourly weather sample.
type Variables struct {
	Dt                 int64   `mapstructure:"dt" json:"dt"`
	WeatherMain        string  `mapstructure:"weather_main" json:"weather_main"`
	WeatherDescription string  `mapstructure:"weather_description" json:"weather_description"`
	WeatherIcon        string  `mapstructure:"weather_icon" json:"weather_icon"`
	MainTemp           float64 `mapstructure:"main_temp" json:"main_temp"`
	MainFeelsLike      float64 `mapstructure:"main_feels_like" json:"main_feels_like"`
	MainPressure       float64 `mapstructure:"main_pressure" json:"main_pressure"`
	MainHumidity       float64 `mapstructure:"main_humidity" json:"main_humidity"`
	MainSeaLevel       float64 `mapstructure:"main_sea_level" json:"main_sea_level"`
	MainGrndLevel      float64 `mapstructure:"main_grnd_level" json:"main_grnd_level"`
	Visibility         float64 `mapstructure:"visibility" json:"visibility"`
	WindSpeed          float64 `mapstructure:"wind_speed" json:"wind_speed"`
	WindDeg            float64 `mapstructure:"wind_deg" json:"wind_deg"`
	WindGust           float64 `mapstructure:"wind_gust" json:"wind_gust"`
	CloudsAll          float64 `mapstructure:"clouds_all" json:"clouds_all"`
	Rain1h             float64 `mapstructure:"rain_1h" json:"rain_1h"`
	Snow1h             float64 `mapstructure:"snow_1h" json:"snow_1h"`
	Pop                float64 `mapstructure:"pop" json:"pop"`
}

// DailyVariables is one day of the 16 day forecast.
type DailyVariables struct {
	Dt                 int64   `mapstructure:"dt" json:"dt"`
	Sunrise            int64   `mapstructure:"sunrise" json:"sunrise"`
	Sunset             int64   `mapstructure:"sunset" json:"sunset"`
	TempDay            float64 `mapstructure:"temp_day" json:"temp_day"`
	TempMin            float64 `mapstructure:"temp_min" json:"temp_min"`
	TempMax            float64 `mapstructure:"temp_max" json:"temp_max"`
	TempNight          float64 `mapstructure:"temp_night" json:"temp_night"`
	TempEve            float64 `mapstructure:"temp_eve" json:"temp_eve"`
	TempMorn           float64 `mapstructure:"temp_morn" json:"temp_morn"`
	FeelsLikeDay       float64 `mapstructure:"feels_like_day" json:"feels_like_day"`
	FeelsLikeNight     float64 `mapstructure:"feels_like_night" json:"feels_like_night"`
	Pressure           float64 `mapstructure:"pressure" json:"pressure"`
	Humidity           float64 `mapstructure:"humidity" json:"humidity"`
	WeatherMain        string  `mapstructure:"weather_main" json:"weather_main"`
	WeatherDescription string  `mapstructure:"weather_description" json:"weather_description"`
	WeatherIcon        string  `mapstructure:"weather_icon" json:"weather_icon"`
	Speed              float64 `mapstructure:"speed" json:"speed"`
	Deg                float64 `mapstructure:"deg" json:"deg"`
	Gust               float64 `mapstructure:"gust" json:"gust"`
	Clouds             float64 `mapstructure:"clouds" json:"clouds"`
	Pop                float64 `mapstructure:"pop" json:"pop"`
	Rain               float64 `mapstructure:"rain" json:"rain"`
	Snow               float64 `mapstructure:"snow" json:"snow"`
}

// Current is the projection of the current-weather endpoint.
type Current struct {
	Weather   Location  `json:"weather"`
	Variables Variables `json:"variables"`
}

// Hourly is the projection of the 24 hour forecast.
type Hourly struct {
	Weather   Location    `json:"weather"`
	Variables []Variables `json:"variables"`
}

// Daily is the projection of the 16 day forecast.
type Daily struct {
	Weather   Location         `json:"weather"`
	Variables []DailyVariables `json:"variables"`
}

// Tomorrow returns the second forecast day, if present.
func (d *Daily) Tomorrow() (DailyVariables, bool) {
	if d == nil || len(d.Variables) < 2 {
		return DailyVariables{}, false
	}
	return d.Variables[1], true
}

// project copies the known keys of flat into dst. Unknown keys are ignored and
// missing keys keep their zero value.
func project(flat map[string]interface{}, dst interface{}) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           dst,
		TagName:          "mapstructure",
	})
	if err != nil {
		return fmt.Errorf("weather: build decoder: %w", err)
	}
	if err := dec.Decode(flat); err != nil {
		return fmt.Errorf("weather: project response: %w", err)
	}
	return nil
}
