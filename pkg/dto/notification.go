package dto

type MarkAllReadResponse struct {
	Updated int64 `json:"updated"`
}
