package model

import "time"

// Doctor is a registered practitioner. The id is doctor-chosen and opaque
// (typically a professional registration number).
type Doctor struct {
	ID           string    `db:"id" json:"id"`
	FirstName    string    `db:"first_name" json:"first_name"`
	SecondName   string    `db:"second_name" json:"second_name,omitempty"`
	LastName     string    `db:"last_name" json:"last_name"`
	Specialty    string    `db:"specialty" json:"specialty"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Portrait     string    `db:"portrait" json:"portrait,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// EmailVerification is the one-to-one verification record for a doctor's
// email address. Issuing a new code replaces the previous one.
type EmailVerification struct {
	DoctorID  string    `db:"doctor_id" json:"doctor_id"`
	Address   string    `db:"address" json:"address"`
	Verified  bool      `db:"verified" json:"verified"`
	Code      int       `db:"code" json:"-"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// RegisterDoctorRequest is the body of POST /doctor.
type RegisterDoctorRequest struct {
	ID         string `json:"id" binding:"required"`
	FirstName  string `json:"first_name" binding:"required"`
	SecondName string `json:"second_name"`
	LastName   string `json:"last_name" binding:"required"`
	Specialty  string `json:"specialty"`
	Password   string `json:"password" binding:"required,min=8"`
	Email      string `json:"email" binding:"omitempty,email"`
}

// DoctorPatch is the partial-update body of PUT /doctor. Identity and
// password may be replaced but never cleared.
type DoctorPatch struct {
	FirstName  Field[string] `json:"first_name"`
	SecondName Field[string] `json:"second_name"`
	LastName   Field[string] `json:"last_name"`
	Specialty  Field[string] `json:"specialty"`
	Password   Field[string] `json:"password"`
	Email      Field[string] `json:"email"`
}

// DoctorOut is the outward projection of a doctor record.
type DoctorOut struct {
	ID            string `json:"id"`
	FirstName     string `json:"first_name"`
	SecondName    string `json:"second_name,omitempty"`
	LastName      string `json:"last_name"`
	Specialty     string `json:"specialty"`
	Portrait      string `json:"portrait,omitempty"`
	Email         string `json:"email,omitempty"`
	EmailVerified bool   `json:"email_verified"`
}
