package model

import "time"

// BloodPressure is one cardiovascular reading. The composite key is
// (patient_id, recorded_at): at most one reading per patient per instant.
// DoctorID is NULL for self-recorded readings.
type BloodPressure struct {
	PatientID  string    `db:"patient_id" json:"patient_id"`
	DoctorID   *string   `db:"doctor_id" json:"doctor_id,omitempty"`
	Systolic   int       `db:"systolic" json:"systolic"`
	Diastolic  int       `db:"diastolic" json:"diastolic"`
	HeartRate  int       `db:"heart_rate" json:"heart_rate"`
	RecordedAt time.Time `db:"recorded_at" json:"recorded_at"`
}

// BloodSugar is one glucose reading, same composite key as BloodPressure.
type BloodSugar struct {
	PatientID  string    `db:"patient_id" json:"patient_id"`
	DoctorID   *string   `db:"doctor_id" json:"doctor_id,omitempty"`
	Value      float64   `db:"value" json:"value"`
	RecordedAt time.Time `db:"recorded_at" json:"recorded_at"`
}

// AddBloodPressureRequest is the body of POST /blood_pressure.
type AddBloodPressureRequest struct {
	PatientID  string    `json:"patient_id" binding:"required"`
	Systolic   int       `json:"systolic" binding:"required,gt=0"`
	Diastolic  int       `json:"diastolic" binding:"required,gt=0"`
	HeartRate  int       `json:"heart_rate" binding:"omitempty,gt=0"`
	RecordedAt time.Time `json:"recorded_at" binding:"required"`
}

// AddBloodSugarRequest is the body of POST /blood_sugar.
type AddBloodSugarRequest struct {
	PatientID  string    `json:"patient_id" binding:"required"`
	Value      float64   `json:"value" binding:"required,gt=0"`
	RecordedAt time.Time `json:"recorded_at" binding:"required"`
}

// BloodPressurePatch merges into a stored reading; absent fields keep their
// stored values.
type BloodPressurePatch struct {
	Systolic  Field[int] `json:"systolic"`
	Diastolic Field[int] `json:"diastolic"`
	HeartRate Field[int] `json:"heart_rate"`
}

// BloodSugarPatch merges into a stored glucose reading.
type BloodSugarPatch struct {
	Value Field[float64] `json:"value"`
}

// Stats is one {minimum, maximum, mean} triple over a numeric field.
type Stats struct {
	Minimum float64 `json:"minimum"`
	Maximum float64 `json:"maximum"`
	Mean    float64 `json:"mean"`
}

// CardioReport carries the independent triples for each cardiovascular field.
type CardioReport struct {
	PatientID string `json:"patient_id"`
	Systolic  Stats  `json:"systolic"`
	Diastolic Stats  `json:"diastolic"`
	HeartRate Stats  `json:"heart_rate"`
}

// SugarReport carries the single triple for blood sugar.
type SugarReport struct {
	PatientID string `json:"patient_id"`
	Value     Stats  `json:"value"`
}

// Default warning thresholds; a reading meeting or exceeding any monitored
// threshold is flagged.
const (
	DefaultSystolicThreshold  = 120
	DefaultDiastolicThreshold = 80
	DefaultHeartRateThreshold = 100
	DefaultSugarThreshold     = 180.0
)

// CardioThresholds configures a cardiovascular warning scan.
type CardioThresholds struct {
	Systolic  int `form:"systolic"`
	Diastolic int `form:"diastolic"`
	HeartRate int `form:"heart_rate"`
}

// DefaultCardioThresholds returns the standard limits.
func DefaultCardioThresholds() CardioThresholds {
	return CardioThresholds{
		Systolic:  DefaultSystolicThreshold,
		Diastolic: DefaultDiastolicThreshold,
		HeartRate: DefaultHeartRateThreshold,
	}
}

// Window is the recency window of a warning scan, default one day.
type Window struct {
	Days  int `form:"days"`
	Hours int `form:"hours"`
}

// Duration converts the window to a time.Duration.
func (w Window) Duration() time.Duration {
	return time.Duration(w.Days)*24*time.Hour + time.Duration(w.Hours)*time.Hour
}

// DefaultWindow is one day, zero extra hours.
func DefaultWindow() Window {
	return Window{Days: 1}
}

// CardioWarning is one threshold-violating cardiovascular reading tagged with
// the owning patient's name.
type CardioWarning struct {
	PatientID  string    `json:"patient_id"`
	FirstName  string    `json:"first_name"`
	LastName   string    `json:"last_name,omitempty"`
	Systolic   int       `json:"systolic"`
	Diastolic  int       `json:"diastolic"`
	HeartRate  int       `json:"heart_rate"`
	RecordedAt time.Time `json:"recorded_at"`
}

// SugarWarning is one threshold-violating glucose reading.
type SugarWarning struct {
	PatientID  string    `json:"patient_id"`
	FirstName  string    `json:"first_name"`
	LastName   string    `json:"last_name,omitempty"`
	Value      float64   `json:"value"`
	RecordedAt time.Time `json:"recorded_at"`
}
