package model

import "time"

// URLMapping associates a slug with its destination URL. Only UsageCount
// changes after creation; everything else is written once.
type URLMapping struct {
	Slug           string    `json:"slug"`
	URL            string    `json:"url"`
	CreatorAddress string    `json:"creator_address"`
	UsageCount     int64     `json:"usage_count"`
	CreatedAt      time.Time `json:"created_at"`
}
