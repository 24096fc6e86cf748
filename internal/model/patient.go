package model

import (
	"fmt"
	"time"
)

// Gender values accepted for a patient record.
const (
	GenderMale   = "male"
	GenderFemale = "female"
)

// Schooling levels accepted for a patient record.
const (
	SchoolingPrimary         = "primary"
	SchoolingSecondary       = "secondary"
	SchoolingPreUniversity   = "pre_university"
	SchoolingUniversity      = "university"
	SchoolingMiddleTechnical = "middle_technical"
	SchoolingOther           = "other"
)

// Patient is a person whose vitals are tracked. The id is an externally
// assigned identifier such as a national health id; it is globally unique and
// a patient may be shared across several doctors' rosters.
type Patient struct {
	ID           string     `db:"id" json:"id"`
	FirstName    string     `db:"first_name" json:"first_name"`
	SecondName   string     `db:"second_name" json:"second_name,omitempty"`
	LastName     string     `db:"last_name" json:"last_name,omitempty"`
	BirthDate    *time.Time `db:"birth_date" json:"birth_date,omitempty"`
	Gender       string     `db:"gender" json:"gender,omitempty"`
	Height       int        `db:"height" json:"height,omitempty"`
	Weight       float64    `db:"weight" json:"weight,omitempty"`
	Schooling    string     `db:"schooling" json:"schooling,omitempty"`
	Employee     bool       `db:"employee" json:"employee"`
	Married      bool       `db:"married" json:"married"`
	AddressID    *int64     `db:"address_id" json:"-"`
	Address      string     `db:"-" json:"address,omitempty"`
	PasswordHash string     `db:"password_hash" json:"-"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// CreatePatientRequest is the body of POST /patients. When AsExisting is set
// via query parameter the body may carry only the id of the patient to attach.
type CreatePatientRequest struct {
	ID         string     `json:"id" binding:"required"`
	FirstName  string     `json:"first_name" binding:"required"`
	SecondName string     `json:"second_name"`
	LastName   string     `json:"last_name"`
	BirthDate  *time.Time `json:"birth_date"`
	Gender     string     `json:"gender" binding:"omitempty,oneof=male female"`
	Height     int        `json:"height" binding:"omitempty,gt=0"`
	Weight     float64    `json:"weight" binding:"omitempty,gt=0"`
	Schooling  string     `json:"schooling" binding:"omitempty,oneof=primary secondary pre_university university middle_technical other"`
	Employee   bool       `json:"employee"`
	Married    bool       `json:"married"`
	Address    string     `json:"address"`
}

// PatientPatch is the partial-update body for patient records. ID and
// FirstName may be replaced but an explicit null is rejected for them.
type PatientPatch struct {
	ID         Field[string]    `json:"id"`
	FirstName  Field[string]    `json:"first_name"`
	SecondName Field[string]    `json:"second_name"`
	LastName   Field[string]    `json:"last_name"`
	BirthDate  Field[time.Time] `json:"birth_date"`
	Gender     Field[string]    `json:"gender"`
	Height     Field[int]       `json:"height"`
	Weight     Field[float64]   `json:"weight"`
	Schooling  Field[string]    `json:"schooling"`
	Employee   Field[bool]      `json:"employee"`
	Married    Field[bool]      `json:"married"`
	Address    Field[string]    `json:"address"`
	Password   Field[string]    `json:"password"`
}

// PatientOut is the outward projection of a patient record.
type PatientOut struct {
	ID         string     `json:"id"`
	FirstName  string     `json:"first_name"`
	SecondName string     `json:"second_name,omitempty"`
	LastName   string     `json:"last_name,omitempty"`
	BirthDate  *time.Time `json:"birth_date,omitempty"`
	Gender     string     `json:"gender,omitempty"`
	Height     int        `json:"height,omitempty"`
	Weight     float64    `json:"weight,omitempty"`
	Schooling  string     `json:"schooling,omitempty"`
	Employee   bool       `json:"employee"`
	Married    bool       `json:"married"`
	Address    string     `json:"address,omitempty"`
}

// PatientOutOf projects a patient record for response assembly.
func PatientOutOf(p *Patient) *PatientOut {
	return &PatientOut{
		ID:         p.ID,
		FirstName:  p.FirstName,
		SecondName: p.SecondName,
		LastName:   p.LastName,
		BirthDate:  p.BirthDate,
		Gender:     p.Gender,
		Height:     p.Height,
		Weight:     p.Weight,
		Schooling:  p.Schooling,
		Employee:   p.Employee,
		Married:    p.Married,
		Address:    p.Address,
	}
}

// PatientList is the paginated response of a roster listing.
type PatientList struct {
	Total    int           `json:"total"`
	Patients []*PatientOut `json:"patients"`
}

// PatientField tags the columns a roster listing may filter or sort by.
type PatientField string

const (
	FieldFirstName PatientField = "first_name"
	FieldLastName  PatientField = "last_name"
	FieldBirthDate PatientField = "birth_date"
	FieldGender    PatientField = "gender"
	FieldHeight    PatientField = "height"
	FieldWeight    PatientField = "weight"
	FieldSchooling PatientField = "schooling"
	FieldEmployee  PatientField = "employee"
	FieldMarried   PatientField = "married"
)

// PatientFields enumerates every filterable/sortable field; the repository
// verifies at init that each has a column mapping.
var PatientFields = []PatientField{
	FieldFirstName, FieldLastName, FieldBirthDate, FieldGender, FieldHeight,
	FieldWeight, FieldSchooling, FieldEmployee, FieldMarried,
}

// ParsePatientField validates a filter/sort field tag from a query string.
func ParsePatientField(s string) (PatientField, error) {
	for _, f := range PatientFields {
		if string(f) == s {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown patient field %q", s)
}

// SortOrder of a roster listing.
type SortOrder string

const (
	OrderAsc  SortOrder = "asc"
	OrderDesc SortOrder = "desc"
)

// PatientQuery carries the filter/sort/paginate parameters of a roster
// listing. Value filtering wins over range filtering when both are present.
type PatientQuery struct {
	FilterBy PatientField
	Value    string
	RangeMin *float64
	RangeMax *float64
	DateMin  *time.Time
	DateMax  *time.Time
	OrderBy  PatientField
	Order    SortOrder
	Limit    int
	Offset   int
}
