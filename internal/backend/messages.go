package backend

import "tradepost/internal/models"

// SearchResponse is the reply to CmdSearch.
type SearchResponse struct {
	Items []models.Listing `json:"items"`
	Total int              `json:"total"`
	More  bool             `json:"more"`
}

// ListingsRequest pages through the account's own orders.
type ListingsRequest struct {
	Buy    bool `json:"buy"`
	Offset int  `json:"offset"`
	Count  int  `json:"count"`
}

// ListingsResponse is the reply to CmdCurrentListings and CmdListingHistory.
type ListingsResponse struct {
	Listings []models.Transaction `json:"listings"`
	Total    int                  `json:"total"`
	More     bool                 `json:"more"`
}
