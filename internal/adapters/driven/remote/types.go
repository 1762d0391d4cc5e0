package remote

import (
	"time"

	"github.com/custodia-labs/ksef-desk/internal/core/domain"
)

// queryRequest is the body of a metadata query.
type queryRequest struct {
	SubjectType string    `json:"subjectType"`
	DateRange   dateRange `json:"dateRange"`
}

type dateRange struct {
	DateType string `json:"dateType"`
	From     string `json:"from"`
	To       string `json:"to,omitempty"`
}

func newQueryRequest(q domain.SearchQuery) queryRequest {
	req := queryRequest{
		SubjectType: string(q.SubjectRole),
		DateRange: dateRange{
			DateType: string(q.DateField),
			From:     q.From.Format(time.RFC3339),
		},
	}
	if q.To != nil {
		req.DateRange.To = q.To.Format(time.RFC3339)
	}
	return req
}

// queryResponse is one page of metadata.
type queryResponse struct {
	Invoices []invoiceMetadata `json:"invoices"`
	HasMore  bool              `json:"hasMore"`
}

type invoiceMetadata struct {
	KSeFNumber    string `json:"ksefNumber"`
	InvoiceNumber string `json:"invoiceNumber"`
	IssueDate     string `json:"issueDate"`
	InvoicingDate string `json:"invoicingDate"`
	Seller        struct {
		NIP  string `json:"nip"`
		Name string `json:"name"`
	} `json:"seller"`
	Buyer struct {
		Identifier struct {
			Type  string `json:"type"`
			Value string `json:"value"`
		} `json:"identifier"`
		Name string `json:"name"`
	} `json:"buyer"`
	NetAmount   float64 `json:"netAmount"`
	VATAmount   float64 `json:"vatAmount"`
	GrossAmount float64 `json:"grossAmount"`
	Currency    string  `json:"currency"`
	InvoiceType string  `json:"invoiceType"`
}

func (m invoiceMetadata) summary() domain.InvoiceSummary {
	return domain.InvoiceSummary{
		KSeFNumber:      m.KSeFNumber,
		InvoiceNumber:   m.InvoiceNumber,
		IssueDate:       m.IssueDate,
		InvoicingDate:   m.InvoicingDate,
		SellerNIP:       m.Seller.NIP,
		SellerName:      m.Seller.Name,
		BuyerIdentifier: m.Buyer.Identifier.Value,
		BuyerName:       m.Buyer.Name,
		NetAmount:       m.NetAmount,
		VATAmount:       m.VATAmount,
		GrossAmount:     m.GrossAmount,
		Currency:        m.Currency,
		InvoiceType:     m.InvoiceType,
	}
}

// apiError is the error body returned by the API.
type apiError struct {
	Exception struct {
		Details []struct {
			Code        int    `json:"exceptionCode"`
			Description string `json:"exceptionDescription"`
		} `json:"exceptionDetailList"`
	} `json:"exception"`
	Message string `json:"message"`
}

func (e apiError) String() string {
	if len(e.Exception.Details) > 0 {
		return e.Exception.Details[0].Description
	}
	return e.Message
}
