package model

import (
	"strings"
	"time"
)

// Department is an organizational unit as returned by /departments/.
type Department struct {
	ID          string `json:"id"`
	OrgID       string `json:"org_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Code        string `json:"code"`
	IsActive    bool   `json:"is_active"`
	CreatedAt   string `json:"created_at,omitempty"`
	UpdatedAt   string `json:"updated_at,omitempty"`
}

// Input returns the editable fields of d.
func (d Department) Input() DepartmentInput {
	return DepartmentInput{
		OrgID:       d.OrgID,
		Name:        d.Name,
		Description: d.Description,
		Code:        d.Code,
		IsActive:    d.IsActive,
	}
}

// DepartmentInput is the create/update payload for a department.
type DepartmentInput struct {
	OrgID       string `json:"org_id" validate:"required"`
	Name        string `json:"name" validate:"required,min=3"`
	Description string `json:"description" validate:"required"`
	Code        string `json:"code" validate:"required,deptcode"`
	IsActive    bool   `json:"is_active"`
}

// DepartmentStatusPatch toggles is_active without touching other fields.
type DepartmentStatusPatch struct {
	IsActive bool `json:"is_active"`
}

// Patient is a patient record as returned by /patients/.
type Patient struct {
	ID          string `json:"id"`
	OrgID       string `json:"org_id"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	Gender      string `json:"gender"`
	DateOfBirth string `json:"date_of_birth"`
	BloodType   string `json:"blood_type"`
	Condition   string `json:"condition,omitempty"`
	Status      string `json:"status"` // active, recovered, inactive
	Insured     bool   `json:"insured"`
	LastVisit   string `json:"last_visit,omitempty"`
	CreatedAt   string `json:"created_at,omitempty"`
	UpdatedAt   string `json:"updated_at,omitempty"`
}

// FullName joins first and last name.
func (p Patient) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

// Age returns the age in whole years at now, or -1 when the birth date is unknown.
func (p Patient) Age(now time.Time) int {
	dob, err := time.Parse("2006-01-02", p.DateOfBirth)
	if err != nil {
		return -1
	}
	age := now.Year() - dob.Year()
	if now.YearDay() < dob.YearDay() {
		age--
	}
	return age
}

// Input returns the editable fields of p.
func (p Patient) Input() PatientInput {
	return PatientInput{
		OrgID:       p.OrgID,
		FirstName:   p.FirstName,
		LastName:    p.LastName,
		Email:       p.Email,
		Phone:       p.Phone,
		Gender:      p.Gender,
		DateOfBirth: p.DateOfBirth,
		BloodType:   p.BloodType,
		Condition:   p.Condition,
		Status:      p.Status,
		Insured:     p.Insured,
	}
}

// PatientInput is the create/update payload for a patient.
type PatientInput struct {
	OrgID       string `json:"org_id" validate:"required"`
	FirstName   string `json:"first_name" validate:"required"`
	LastName    string `json:"last_name" validate:"required"`
	Email       string `json:"email" validate:"omitempty,email"`
	Phone       string `json:"phone" validate:"omitempty,min=7"`
	Gender      string `json:"gender" validate:"required,oneof=male female other"`
	DateOfBirth string `json:"date_of_birth" validate:"required,datetime=2006-01-02"`
	BloodType   string `json:"blood_type" validate:"omitempty,oneof=A+ A- B+ B- AB+ AB- O+ O-"`
	Condition   string `json:"condition,omitempty"`
	Status      string `json:"status" validate:"required,oneof=active recovered inactive"`
	Insured     bool   `json:"insured"`
}

// PatientStatusPatch changes only the status field.
type PatientStatusPatch struct {
	Status string `json:"status"`
}

// User is the authenticated account.
type User struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	FullName      string `json:"full_name"`
	Role          string `json:"role"`
	OrgID         string `json:"org_id"`
	OrgName       string `json:"org_name"`
	IsActive      bool   `json:"is_active"`
	IsBlocked     bool   `json:"is_blocked"`
	EmailVerified bool   `json:"email_verified"`
	LastLogin     string `json:"last_login"`
}

// DisplayName prefers the full name, then first+last, then email.
func (u User) DisplayName() string {
	if u.FullName != "" {
		return u.FullName
	}
	if n := strings.TrimSpace(u.FirstName + " " + u.LastName); n != "" {
		return n
	}
	return u.Email
}

// LoginRequest is the /auth/login payload.
type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse is the unwrapped /auth/login response.
type LoginResponse struct {
	Success     bool   `json:"success"`
	Message     string `json:"message"`
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
	User        User   `json:"user"`
}
