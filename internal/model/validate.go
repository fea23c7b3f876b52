package model

import (
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var deptCodePattern = regexp.MustCompile(`^[A-Z0-9_-]+$`)

// Validate is the shared validator. Field errors are keyed by JSON name.
var Validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	// Registration only fails for an empty tag or nil func.
	_ = v.RegisterValidation("deptcode", func(fl validator.FieldLevel) bool {
		return deptCodePattern.MatchString(fl.Field().String())
	})
	return v
}

// FieldErrors maps a JSON field name to a user-facing message.
type FieldErrors map[string]string

var departmentMessages = map[string]string{
	"org_id.required":      "Organization ID is required",
	"name.required":        "Department name is required",
	"name.min":             "Name must be at least 3 characters",
	"code.required":        "Department code is required",
	"code.deptcode":        "Code must be uppercase letters, numbers, hyphens, or underscores",
	"description.required": "Description is required",
}

var patientMessages = map[string]string{
	"org_id.required":        "Organization ID is required",
	"first_name.required":    "First name is required",
	"last_name.required":     "Last name is required",
	"email.email":            "Email must be a valid address",
	"phone.min":              "Phone must be at least 7 characters",
	"gender.required":        "Gender is required",
	"gender.oneof":           "Gender must be male, female, or other",
	"date_of_birth.required": "Date of birth is required",
	"date_of_birth.datetime": "Date of birth must be YYYY-MM-DD",
	"blood_type.oneof":       "Unknown blood type",
	"status.required":        "Status is required",
	"status.oneof":           "Status must be active, recovered, or inactive",
}

var loginMessages = map[string]string{
	"email.required":    "Email is required",
	"password.required": "Password is required",
}

func collect(s any, messages map[string]string) (FieldErrors, bool) {
	errs := FieldErrors{}
	err := Validate.Struct(s)
	if err == nil {
		return errs, true
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		errs["_"] = err.Error()
		return errs, false
	}
	for _, fe := range verrs {
		msg, ok := messages[fe.Field()+"."+fe.Tag()]
		if !ok {
			msg = fe.Field() + " is invalid"
		}
		errs[fe.Field()] = msg
	}
	return errs, len(errs) == 0
}

// Normalize trims every text field and upper-cases the code.
func (in DepartmentInput) Normalize() DepartmentInput {
	in.OrgID = strings.TrimSpace(in.OrgID)
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	in.Code = strings.ToUpper(strings.TrimSpace(in.Code))
	return in
}

// Ok validates the normalized input.
func (in DepartmentInput) Ok() (FieldErrors, bool) {
	return collect(in.Normalize(), departmentMessages)
}

// Normalize trims text fields and lower-cases enumerations.
func (in PatientInput) Normalize() PatientInput {
	in.OrgID = strings.TrimSpace(in.OrgID)
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Email = strings.TrimSpace(in.Email)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Gender = strings.ToLower(strings.TrimSpace(in.Gender))
	in.DateOfBirth = strings.TrimSpace(in.DateOfBirth)
	in.BloodType = strings.ToUpper(strings.TrimSpace(in.BloodType))
	in.Condition = strings.TrimSpace(in.Condition)
	in.Status = strings.ToLower(strings.TrimSpace(in.Status))
	return in
}

// Ok validates the normalized input.
func (in PatientInput) Ok() (FieldErrors, bool) {
	return collect(in.Normalize(), patientMessages)
}

// Ok reports missing credentials. The email is trimmed, the password is not.
func (r LoginRequest) Ok() (FieldErrors, bool) {
	r.Email = strings.TrimSpace(r.Email)
	return collect(r, loginMessages)
}
