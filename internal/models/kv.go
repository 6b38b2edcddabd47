package models

// KVEntry backs the durable key-value store. Scope separates short-lived
// state (upstream session credentials) from long-lived preferences.
type KVEntry struct {
	BaseModel
	Scope string `gorm:"uniqueIndex:idx_kv_scope_key" json:"scope"`
	Key   string `gorm:"uniqueIndex:idx_kv_scope_key" json:"key"`
	Value []byte `json:"value"`
}
