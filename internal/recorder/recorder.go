package recorder

import "time"

// RunEvent records one pipeline run.
type RunEvent struct {
	SessionID string    `json:"session_id"`
	Ticker    string    `json:"ticker"`
	Years     int       `json:"years"`
	Provider  string    `json:"provider"`
	Bars      int       `json:"bars"`      // filtered bars used for training
	Points    int       `json:"points"`    // forecast points produced
	LastDate  time.Time `json:"last_date"` // final forecast date
	LastYhat  float64   `json:"last_yhat"`
	Stage     string    `json:"stage,omitempty"` // failing stage, empty on success
	Error     string    `json:"error,omitempty"`
	FetchMs   int64     `json:"fetch_ms"`
	FitMs     int64     `json:"fit_ms"`
}

// TickerEvent records an add-ticker attempt.
type TickerEvent struct {
	SessionID string `json:"session_id"`
	Ticker    string `json:"ticker"`
	Outcome   string `json:"outcome"` // "added", "already_present", "invalid", "empty"
}

// RunRecord is a stored RunEvent.
type RunRecord struct {
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	RunEvent
}

// Recorder persists an audit trail of runs and ticker additions.
type Recorder interface {
	RecordRun(evt *RunEvent) error
	RecordTicker(evt *TickerEvent) error
	RecentRuns(limit int) ([]RunRecord, error)
	Close() error
}
