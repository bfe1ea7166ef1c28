package model

import "time"

// Prescription is the stored representation of a medication order.
// The identifier is assigned by the database on insert and immutable
// afterwards; all other fields are replaced wholesale on update.
type Prescription struct {
	ID         int64     `db:"id" json:"id"`
	PatientID  int64     `db:"patient_id" json:"patient_id"`
	DoctorName string    `db:"doctor_name" json:"doctor_name"`
	Medication string    `db:"medication" json:"medication"`
	Dosage     string    `db:"dosage" json:"dosage"`
	IssueDate  Date      `db:"issue_date" json:"issue_date"`
	ValidUntil Date      `db:"valid_until" json:"valid_until"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// PrescriptionRequest is the wire payload for create and update. Update
// replaces every mutable field from this payload; there is no partial
// patch.
type PrescriptionRequest struct {
	PatientID  int64  `json:"patientId" binding:"required,gt=0"`
	DoctorName string `json:"doctorName" binding:"required,notblank,max=100"`
	Medication string `json:"medication" binding:"required,notblank,max=200"`
	Dosage     string `json:"dosage" binding:"required,notblank,max=100"`
	IssueDate  Date   `json:"issueDate"`
	ValidUntil Date   `json:"validUntil"`
}

// PrescriptionResponse is the client-visible view of a prescription.
// Expired is derived from the evaluation date on every materialization
// and is never persisted.
type PrescriptionResponse struct {
	ID         int64  `json:"id"`
	PatientID  int64  `json:"patientId"`
	DoctorName string `json:"doctorName"`
	Medication string `json:"medication"`
	Dosage     string `json:"dosage"`
	IssueDate  Date   `json:"issueDate"`
	ValidUntil Date   `json:"validUntil"`
	Expired    bool   `json:"expired"`
}
