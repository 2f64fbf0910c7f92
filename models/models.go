package models

import (
	"encoding/json"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Roles assignable to a user account.
const (
	RoleAdmin  = "admin"
	RoleDoctor = "doctor"
	RoleStaff  = "staff"
)

// Patient statuses the dashboard cares about. Other values are allowed.
const (
	StatusActive   = "active"
	StatusCritical = "critical"
)

// ValidRole reports whether role is one of the assignable roles.
func ValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleDoctor, RoleStaff:
		return true
	}
	return false
}

// User is an identity record. The password hash never leaves the server.
type User struct {
	ID          primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	Email       string             `json:"email" bson:"email"`
	Name        string             `json:"name" bson:"name"`
	Password    string             `json:"-" bson:"password"`
	Role        string             `json:"role" bson:"role"`
	Active      bool               `json:"active" bson:"active"`
	CreatedAt   time.Time          `json:"createdAt" bson:"createdAt"`
	LastLoginAt *time.Time         `json:"lastLoginAt,omitempty" bson:"lastLoginAt,omitempty"`
}

// Patient keeps the known fields typed and folds anything else a client sends
// into Extra, so records created with ad-hoc attributes still round-trip.
type Patient struct {
	ID             primitive.ObjectID `json:"_id,omitempty" bson:"_id,omitempty"`
	FirstName      string             `json:"firstName,omitempty" bson:"firstName,omitempty"`
	LastName       string             `json:"lastName,omitempty" bson:"lastName,omitempty"`
	Email          string             `json:"email,omitempty" bson:"email,omitempty"`
	Phone          string             `json:"phone,omitempty" bson:"phone,omitempty"`
	DateOfBirth    *time.Time         `json:"dateOfBirth,omitempty" bson:"dateOfBirth,omitempty"`
	Gender         string             `json:"gender,omitempty" bson:"gender,omitempty"`
	Status         string             `json:"status,omitempty" bson:"status,omitempty"`
	Address        string             `json:"address,omitempty" bson:"address,omitempty"`
	MedicalHistory []string           `json:"medicalHistory,omitempty" bson:"medicalHistory,omitempty"`
	AssignedDoctor string             `json:"assignedDoctor,omitempty" bson:"assignedDoctor,omitempty"`
	CreatedAt      time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt      time.Time          `json:"updatedAt" bson:"updatedAt"`
	Extra          map[string]any     `json:"-" bson:",inline"`
}

// patientAlias avoids recursion in the custom JSON methods.
type patientAlias Patient

var patientKnownFields = []string{
	"_id", "firstName", "lastName", "email", "phone", "dateOfBirth",
	"gender", "status", "address", "medicalHistory", "assignedDoctor",
	"createdAt", "updatedAt",
}

// UnmarshalJSON decodes the typed fields and collects unrecognized attributes
// into Extra. dateOfBirth accepts RFC 3339 or a bare YYYY-MM-DD date.
func (p *Patient) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	var dob *time.Time
	if rawDOB, ok := raw["dateOfBirth"]; ok {
		var s string
		if err := json.Unmarshal(rawDOB, &s); err != nil {
			return fmt.Errorf("dateOfBirth: %w", err)
		}
		if s != "" {
			t, err := ParseDate(s)
			if err != nil {
				return err
			}
			dob = &t
		}
		delete(raw, "dateOfBirth")
	}

	rest, err := json.Marshal(raw)
	if err != nil {
		return err
	}
	var known patientAlias
	if err := json.Unmarshal(rest, &known); err != nil {
		return err
	}
	known.DateOfBirth = dob

	for _, field := range patientKnownFields {
		delete(raw, field)
	}
	if len(raw) > 0 {
		known.Extra = make(map[string]any, len(raw))
		for key, value := range raw {
			var v any
			if err := json.Unmarshal(value, &v); err != nil {
				return err
			}
			known.Extra[key] = v
		}
	}

	*p = Patient(known)
	return nil
}

// MarshalJSON inlines Extra next to the typed fields. Typed fields win on a
// key collision.
func (p Patient) MarshalJSON() ([]byte, error) {
	flat := p
	flat.Extra = nil

	base, err := json.Marshal(patientAlias(flat))
	if err != nil {
		return nil, err
	}
	if len(p.Extra) == 0 {
		return base, nil
	}

	var out map[string]any
	if err := json.Unmarshal(base, &out); err != nil {
		return nil, err
	}
	for key, value := range p.Extra {
		if _, exists := out[key]; !exists {
			out[key] = value
		}
	}
	return json.Marshal(out)
}

// ParseDate parses an ISO-8601 timestamp or bare date.
func ParseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected RFC 3339 or YYYY-MM-DD", s)
	}
	return t, nil
}

// AuditLog is an append-only record of a privileged action.
type AuditLog struct {
	ID        primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	Action    string             `json:"action" bson:"action"`
	UserID    string             `json:"userId" bson:"userId"`
	IP        string             `json:"ip" bson:"ip"`
	UserAgent string             `json:"userAgent" bson:"userAgent"`
	Detail    map[string]any     `json:"detail,omitempty" bson:"detail,omitempty"`
	CreatedAt time.Time          `json:"createdAt" bson:"createdAt"`
}

// PatientDocument links an uploaded file to a patient.
type PatientDocument struct {
	ID           primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	PatientID    primitive.ObjectID `json:"patientId" bson:"patientId"`
	UploadedBy   string             `json:"uploadedBy" bson:"uploadedBy"`
	FileName     string             `json:"filename" bson:"filename"`
	OriginalName string             `json:"originalName" bson:"originalName"`
	Size         int64              `json:"size" bson:"size"`
	FileType     string             `json:"fileType" bson:"fileType"`
	CreatedAt    time.Time          `json:"createdAt" bson:"createdAt"`
}

// Notification is a per-user message. Only the read flag ever changes.
type Notification struct {
	ID        primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	UserID    primitive.ObjectID `json:"userId" bson:"userId"`
	Message   string             `json:"message" bson:"message"`
	IsRead    bool               `json:"isRead" bson:"isRead"`
	CreatedAt time.Time          `json:"createdAt" bson:"createdAt"`
}
