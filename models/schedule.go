package models

// DaySchedule is one weekday entry of a weekly schedule. Times are local
// wall-clock "HH:mm" strings; zero-padded so plain string comparison orders
// them correctly.
type DaySchedule struct {
	Day       string `json:"day"` // "Monday".."Sunday"
	IsOpen    bool   `json:"is_open"`
	OpenTime  string `json:"open_time"`
	CloseTime string `json:"close_time"`
}

// WeekSchedule holds up to seven DaySchedule entries, keyed by day name.
// Stored as JSONB on the restaurant row.
type WeekSchedule []DaySchedule
