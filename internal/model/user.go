package model

import (
	"github.com/google/uuid"
)

type Role string

const (
	RolePatient Role = "patient"
	RoleDoctor  Role = "doctor"
	RoleAdmin   Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RolePatient, RoleDoctor, RoleAdmin:
		return true
	}
	return false
}

// CanAssignTreatmentPlans: only doctors create plans for their patients.
func (r Role) CanAssignTreatmentPlans() bool {
	return r == RoleDoctor
}

// CanViewTreatmentPlans: admins are deliberately locked out of the
// treatment-plan subsystem, unlike everywhere else in the API.
func (r Role) CanViewTreatmentPlans() bool {
	return r == RolePatient || r == RoleDoctor
}

func (r Role) CanManageCatalog() bool {
	return r == RoleAdmin
}

func (r Role) CanUploadRecords() bool {
	return r == RoleDoctor || r == RoleAdmin
}

// Actor is the authenticated caller, resolved once by the auth middleware
// and passed explicitly into every service operation.
type Actor struct {
	ID             uuid.UUID `json:"id"`
	Role           Role      `json:"role"`
	OrganisationID uuid.UUID `json:"organisation_id"`
	Email          string    `json:"email,omitempty"`
	FullName       string    `json:"full_name,omitempty"`
}

// Profile is the identity-service view of a user.
type Profile struct {
	ID             uuid.UUID `db:"id" json:"id"`
	FullName       string    `db:"full_name" json:"full_name"`
	Email          string    `db:"email" json:"email"`
	Role           Role      `db:"role" json:"role"`
	OrganisationID uuid.UUID `db:"organisation_id" json:"organisation_id"`
}
