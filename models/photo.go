package models

import "time"

// InboundPhotoSlot is one required evidence category of a receipt.
type InboundPhotoSlot struct {
	ID         string `json:"id" db:"id"`
	ReceiptID  string `json:"receipt_id" db:"receipt_id"`
	SlotKey    string `json:"slot_key" db:"slot_key"`
	Title      string `json:"title" db:"title"`
	IsRequired bool   `json:"is_required" db:"is_required"`
	MinPhotos  int    `json:"min_photos" db:"min_photos"`
	SortOrder  int    `json:"sort_order" db:"sort_order"`
}

// InboundPhoto is an uploaded evidence image bound to a slot.
type InboundPhoto struct {
	ID          string    `json:"id" db:"id"`
	ReceiptID   string    `json:"receipt_id" db:"receipt_id"`
	SlotID      string    `json:"slot_id" db:"slot_id"`
	StoragePath string    `json:"storage_path" db:"storage_path"`
	UploadedBy  string    `json:"uploaded_by" db:"uploaded_by"`
	UploadedAt  time.Time `json:"uploaded_at" db:"uploaded_at"`
}

// SlotProgress pairs a slot with the number of photos bound to it.
type SlotProgress struct {
	InboundPhotoSlot
	PhotoCount int `json:"photo_count"`
}

func (p SlotProgress) Satisfied() bool {
	return !p.IsRequired || p.PhotoCount >= p.MinPhotos
}

// SlotTemplate describes a catalog entry copied onto every new receipt.
type SlotTemplate struct {
	Key       string
	Title     string
	Required  bool
	MinPhotos int
}

// PhotoSlotCatalog is the fixed evidence catalog.
var PhotoSlotCatalog = []SlotTemplate{
	{Key: "vehicle_left", Title: "Vehicle (left side)", Required: true, MinPhotos: 1},
	{Key: "vehicle_right", Title: "Vehicle (right side)", Required: true, MinPhotos: 1},
	{Key: "product_overview", Title: "Product overview", Required: true, MinPhotos: 1},
	{Key: "box_exterior", Title: "Box exterior", Required: true, MinPhotos: 1},
	{Key: "label_closeup", Title: "Label close-up", Required: true, MinPhotos: 1},
	{Key: "post_unboxing", Title: "After unboxing", Required: true, MinPhotos: 1},
}
