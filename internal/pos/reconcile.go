package pos

// Reconciliation is the outcome of matching a tendered payment against an
// order total.
type Reconciliation struct {
	Method PaymentMethod `json:"method"`
	Valid  bool          `json:"valid"`
	Total  float64       `json:"total"`
	// Amount is what gets sent to settlement: the tendered amount for cash
	// (so change can be recorded and verified), the exact total otherwise.
	Amount float64 `json:"amount"`
	Change float64 `json:"change"`
}

// Reconcile validates a payment against total. Cash requires tendered >=
// total and yields change; every other method settles for exactly the total
// and the tendered amount is ignored.
func Reconcile(method PaymentMethod, tendered, total float64) Reconciliation {
	rec := Reconciliation{Method: method, Total: total}

	if method != PaymentCash {
		rec.Valid = true
		rec.Amount = total
		return rec
	}

	rec.Amount = tendered
	if tendered >= total {
		rec.Valid = true
		rec.Change = tendered - total
	}
	return rec
}
