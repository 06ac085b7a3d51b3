package opssdk

import "context"

type QuoteStatus string

const (
	QuoteDraft     QuoteStatus = "DRAFT"
	QuoteSent      QuoteStatus = "SENT"
	QuoteAccepted  QuoteStatus = "ACCEPTED"
	QuoteRejected  QuoteStatus = "REJECTED"
	QuoteConverted QuoteStatus = "CONVERTED"
)

var quoteStatuses = []QuoteStatus{QuoteDraft, QuoteSent, QuoteAccepted, QuoteRejected, QuoteConverted}

type Quote struct {
	ID                 ID          `json:"id"`
	CompanyID          ID          `json:"companyId,omitempty"`
	QuoteNumber        string      `json:"quoteNumber,omitempty"`
	Client             string      `json:"client"`
	Amount             float64     `json:"amount"`
	Status             QuoteStatus `json:"status,omitempty"`
	ValidUntil         string      `json:"validUntil,omitempty"`
	Notes              string      `json:"notes,omitempty"`
	ConvertedToInvoice bool        `json:"convertedToInvoice,omitempty"`
}

func (q Quote) Validate() error {
	if err := requireEntity("quote", q.ID); err != nil {
		return err
	}
	return checkStatus("quote", q.Status, quoteStatuses...)
}

type QuoteInput struct {
	Client     string      `json:"client,omitempty"`
	Amount     float64     `json:"amount,omitempty"`
	Status     QuoteStatus `json:"status,omitempty"`
	ValidUntil string      `json:"validUntil,omitempty"`
	Notes      string      `json:"notes,omitempty"`
}

func (in QuoteInput) Validate() error {
	errs := fieldErrors{}
	errs.required("client", in.Client)
	errs.positive("amount", in.Amount)
	errs.date("validUntil", in.ValidUntil)
	errs.oneOf("status", string(in.Status), statusStrings(quoteStatuses)...)
	return errs.err()
}

type Quotes struct {
	*Resource[Quote, QuoteInput]
}

// Convert turns the quote into an invoice and returns the invoice.
func (r Quotes) Convert(ctx context.Context, id ID) (Invoice, error) {
	var out Invoice
	err := r.Action(ctx, id, "convert", nil, nil, &out)
	return out, err
}
