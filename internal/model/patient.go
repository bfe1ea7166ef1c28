package model

import "time"

// Patient is owned by the patient administration system. Prescriptions
// reference it by id only; this service never reads or writes its
// attributes beyond checking existence.
type Patient struct {
	ID        int64     `db:"id" json:"id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
