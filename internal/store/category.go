package store

// Category groups records for display purposes. Categories travel inside the
// vault document but are not part of the sync digest exchange.
type Category struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Icon      string `json:"icon"`
	Color     string `json:"color"`
	SortOrder uint32 `json:"sort_order"`
}
