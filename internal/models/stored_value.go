package models

// StoredValue is one durable session slot for a device. Value is sealed at rest.
type StoredValue struct {
	BaseModel
	Scope string `gorm:"uniqueIndex:idx_stored_values_scope_key;size:64" json:"scope"`
	Key   string `gorm:"uniqueIndex:idx_stored_values_scope_key;size:64" json:"key"`
	Value string `gorm:"type:text" json:"-"`
}
