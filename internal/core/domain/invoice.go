package domain

import "time"

// InvoiceSummary is one record of a remote metadata search.
// The current result set is an ordered slice of these, addressed by position.
type InvoiceSummary struct {
	KSeFNumber      string  `json:"ksefNumber"`
	InvoiceNumber   string  `json:"invoiceNumber"`
	IssueDate       string  `json:"issueDate"`
	InvoicingDate   string  `json:"invoicingDate,omitempty"`
	SellerNIP       string  `json:"sellerNip"`
	SellerName      string  `json:"sellerName"`
	BuyerIdentifier string  `json:"buyerIdentifier,omitempty"`
	BuyerName       string  `json:"buyerName,omitempty"`
	NetAmount       float64 `json:"netAmount"`
	VATAmount       float64 `json:"vatAmount"`
	GrossAmount     float64 `json:"grossAmount"`
	Currency        string  `json:"currency"`
	InvoiceType     string  `json:"invoiceType,omitempty"`
}

// InvoicePage is one page of a paginated metadata query.
type InvoicePage struct {
	Items   []InvoiceSummary
	HasMore bool
}

// InvoiceDetails is the detail view of one position in the current result set.
type InvoiceDetails struct {
	Index   int            `json:"index"`
	Summary InvoiceSummary `json:"summary"`
	Content string         `json:"content"`
	Size    int            `json:"size"`
}

// CachedResults is the persisted result set of one identity.
// Query is nil when only background refreshes have ever been stored.
type CachedResults struct {
	IdentityKey string
	Query       *SearchQuery
	Items       []InvoiceSummary
	FetchedAt   time.Time
}

// MergeAppend merges a refreshed result list into current without moving
// existing positions: known records are updated in place and records not seen
// before are appended in the order they arrived.
func MergeAppend(current, fresh []InvoiceSummary) (merged []InvoiceSummary, added int) {
	merged = make([]InvoiceSummary, len(current), len(current)+len(fresh))
	copy(merged, current)

	pos := make(map[string]int, len(current))
	for i, item := range current {
		pos[item.KSeFNumber] = i
	}
	for _, item := range fresh {
		if i, ok := pos[item.KSeFNumber]; ok {
			merged[i] = item
			continue
		}
		pos[item.KSeFNumber] = len(merged)
		merged = append(merged, item)
		added++
	}
	return merged, added
}
