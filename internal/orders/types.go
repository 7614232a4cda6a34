// Package orders extracts structured phone orders from pasted chat
// transcripts. A transcript is split into blocks, each block is read by a
// rule-based extractor (optionally merged with a model-produced candidate),
// and every candidate is normalized into an Order.
package orders

import "time"

// StatusShipped is the status stamped on every extracted order.
const StatusShipped = "shipped"

// Field names reported in Order.MissingFields, in reporting order.
const (
	FieldName        = "name"
	FieldPhone       = "phone"
	FieldGovernorate = "governorate"
	FieldAddress     = "address"
	FieldModel       = "model"
	FieldColor       = "color"
	FieldPrice       = "price"
)

// RawFields is an unvalidated order candidate as produced by the rule
// extractor or by a language model. Scalars accept JSON strings or numbers,
// lists accept an array or a single string. Numeric fields are pointers so
// that an explicit "0" can be told apart from an absent value.
type RawFields struct {
	Name        FlexString `json:"name,omitempty"`
	Governorate FlexString `json:"governorate,omitempty"`
	Address     FlexString `json:"address,omitempty"`
	Phone       FlexString `json:"phone,omitempty"`
	Phones      FlexList   `json:"phones,omitempty"`
	Model       FlexString `json:"model,omitempty"`
	Models      FlexList   `json:"models,omitempty"`
	Color       FlexString `json:"color,omitempty"`
	Colors      FlexList   `json:"colors,omitempty"`
	Notes       FlexString `json:"notes,omitempty"`

	Count    *FlexString `json:"count,omitempty"`
	Price    *FlexString `json:"price,omitempty"`
	Discount *FlexString `json:"discount,omitempty"`
	Shipping *FlexString `json:"shipping,omitempty"`
	CODTotal *FlexString `json:"cod_total,omitempty"`
}

// Order is a normalized order ready to be shown to an operator.
//
// Phones is set only when more than one distinct number was found. Models
// and Colors are set only for multi-device orders; when present their
// length equals Count.
type Order struct {
	Name          string    `json:"name"`
	Governorate   string    `json:"governorate"`
	Phone         string    `json:"phone"`
	Phones        []string  `json:"phones,omitempty"`
	Address       string    `json:"address"`
	Model         string    `json:"model"`
	Models        []string  `json:"models,omitempty"`
	Color         string    `json:"color"`
	Colors        []string  `json:"colors,omitempty"`
	Count         int       `json:"count"`
	Price         int64     `json:"price,string"`
	Discount      int64     `json:"discount,string"`
	Shipping      int64     `json:"shipping,string"`
	CODTotal      int64     `json:"cod_total,string"`
	Notes         string    `json:"notes"`
	Confidence    float64   `json:"confidence"`
	MissingFields []string  `json:"missing_fields"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
}

// IsEmpty reports whether r carries no value at all.
func (r RawFields) IsEmpty() bool {
	return r.Name == "" && r.Governorate == "" && r.Address == "" &&
		r.Phone == "" && len(r.Phones) == 0 &&
		r.Model == "" && len(r.Models) == 0 &&
		r.Color == "" && len(r.Colors) == 0 && r.Notes == "" &&
		r.Count == nil && r.Price == nil && r.Discount == nil &&
		r.Shipping == nil && r.CODTotal == nil
}
