package model

import "time"

// TrainingRow is one observation fed to the forecaster.
type TrainingRow struct {
	DS time.Time `json:"ds"`
	Y  float64   `json:"y"`
}

// ForecastPoint is one predicted day. Weekly and Yearly are zero when the
// corresponding seasonality was not fitted.
type ForecastPoint struct {
	Date       time.Time `json:"ds"`
	Yhat       float64   `json:"yhat"`
	Lower      float64   `json:"yhat_lower"`
	Upper      float64   `json:"yhat_upper"`
	Trend      float64   `json:"trend"`
	Weekly     float64   `json:"weekly"`
	Yearly     float64   `json:"yearly"`
	Historical bool      `json:"historical"`
}

// ForecastResult covers every training date followed by each day of the horizon.
type ForecastResult struct {
	Points        []ForecastPoint `json:"points"`
	HorizonDays   int             `json:"horizon_days"`
	IntervalWidth float64         `json:"interval_width"`
	Weekly        bool            `json:"weekly_seasonality"`
	Yearly        bool            `json:"yearly_seasonality"`
}

// Last returns the final point, or false when the result is empty.
func (r *ForecastResult) Last() (ForecastPoint, bool) {
	if r == nil || len(r.Points) == 0 {
		return ForecastPoint{}, false
	}
	return r.Points[len(r.Points)-1], true
}

// Tail returns the last n points.
func (r *ForecastResult) Tail(n int) []ForecastPoint {
	if r == nil {
		return nil
	}
	if n >= len(r.Points) || n < 0 {
		return r.Points
	}
	return r.Points[len(r.Points)-n:]
}
