package domain

import (
	"shotlist/internal/docstore"
	"shotlist/internal/list"
	"shotlist/internal/sanitize"
)

// TaskItem is one entry of a shoot-day task checklist.
type TaskItem struct {
	list.BaseItem
	DueAt    docstore.Timestamp `json:"dueAt,omitempty"`
	Priority string             `json:"priority,omitempty" validate:"omitempty,oneof=low medium high"`
	Assignee string             `json:"assignee,omitempty"`
	Notes    string             `json:"notes,omitempty"`
}

// Sanitize extends the base sanitization with the task-specific fields.
func (t *TaskItem) Sanitize() {
	t.BaseItem.Sanitize()
	t.Priority = sanitize.String(t.Priority)
	t.Assignee = sanitize.String(t.Assignee)
	t.Notes = sanitize.String(t.Notes)
}

// KitItem is one entry of a camera-kit packing list.
type KitItem struct {
	list.BaseItem
	Quantity     int    `json:"quantity" validate:"min=0"`
	SerialNumber string `json:"serialNumber,omitempty"`
	Insured      bool   `json:"isInsured"`
}

// Sanitize extends the base sanitization with the kit-specific fields.
func (k *KitItem) Sanitize() {
	k.BaseItem.Sanitize()
	k.SerialNumber = sanitize.String(k.SerialNumber)
}

// VendorItem is one entry of an event's vendor contact list.
type VendorItem struct {
	list.BaseItem
	Company string `json:"company,omitempty"`
	Email   string `json:"email,omitempty" validate:"omitempty,email"`
	Phone   string `json:"phone,omitempty"`
	Website string `json:"website,omitempty" validate:"omitempty,url"`
}

// Sanitize extends the base sanitization with the vendor contact fields.
func (v *VendorItem) Sanitize() {
	v.BaseItem.Sanitize()
	v.Company = sanitize.String(v.Company)
	v.Email = sanitize.Email(v.Email)
	v.Phone = sanitize.Phone(v.Phone)
	v.Website = sanitize.URL(v.Website)
}
