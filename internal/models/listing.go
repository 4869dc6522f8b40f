package models

// Listing is the boundary view of a marketplace listing. Listing CRUD is
// owned elsewhere; chat only checks existence and displays a summary.
type Listing struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Price    int64  `json:"price"`
	Status   string `json:"status"`
	SellerID string `json:"sellerId"`
}

type ListingSummary struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Price  int64  `json:"price"`
	Status string `json:"status"`
}

func (l *Listing) Summary() ListingSummary {
	return ListingSummary{ID: l.ID, Title: l.Title, Price: l.Price, Status: l.Status}
}
