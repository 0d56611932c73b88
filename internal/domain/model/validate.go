package model

// Validate checks the fields candidate search depends on.
func (i *Invoice) Validate() error {
	if i.Date.IsZero() {
		return &ValidationError{Entity: "invoice", ID: i.ID, Field: "invoice_date"}
	}
	if !i.Amounts.Gross.IsPositive() {
		return &ValidationError{Entity: "invoice", ID: i.ID, Field: "gross amount"}
	}
	if !i.Direction.Valid() {
		return &ValidationError{Entity: "invoice", ID: i.ID, Field: "direction"}
	}
	return nil
}

// Validate checks the fields candidate search depends on.
func (t *Transaction) Validate() error {
	if t.Date.IsZero() {
		return &ValidationError{Entity: "transaction", ID: t.ID, Field: "date"}
	}
	if t.Amount.IsZero() {
		return &ValidationError{Entity: "transaction", ID: t.ID, Field: "amount"}
	}
	return nil
}
