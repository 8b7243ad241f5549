package dto

// ReportLine is one line of the newline-delimited JSON output file.
// Taxes are whole currency units, rounded half-up at the pipeline boundary.
type ReportLine struct {
	TaxpayerID string `json:"taxpayer_id"`
	FederalTax int64  `json:"federal_tax"`
	StateTax   int64  `json:"state_tax"`
}
