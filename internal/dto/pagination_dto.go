package dto

// OffsetMeta describes a limit/offset slice of a larger collection.
type OffsetMeta struct {
	Limit    int `json:"limit"`
	Offset   int `json:"offset"`
	Returned int `json:"returned"`
	Total    int `json:"total"`
}

// OffsetPage is a page of items together with its slicing metadata.
type OffsetPage[T any] struct {
	Items []T        `json:"items"`
	Meta  OffsetMeta `json:"meta"`
}
