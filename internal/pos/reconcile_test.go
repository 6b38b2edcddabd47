package pos

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReconcileCashWithChange(t *testing.T) {
	rec := Reconcile(PaymentCash, 100, 75)

	assert.True(t, rec.Valid)
	assert.InDelta(t, 25, rec.Change, 1e-9)
	assert.InDelta(t, 100, rec.Amount, 1e-9)
}

func TestReconcileCashInsufficient(t *testing.T) {
	rec := Reconcile(PaymentCash, 50, 75)

	assert.False(t, rec.Valid)
	assert.InDelta(t, 0, rec.Change, 1e-9)
}

func TestReconcileCashExact(t *testing.T) {
	rec := Reconcile(PaymentCash, 75, 75)

	assert.True(t, rec.Valid)
	assert.InDelta(t, 0, rec.Change, 1e-9)
	assert.InDelta(t, 75, rec.Amount, 1e-9)
}

func TestReconcileNonCashSettlesForTotal(t *testing.T) {
	for _, method := range []PaymentMethod{PaymentCard, PaymentTransfer, PaymentVoucher, PaymentOther} {
		rec := Reconcile(method, 12345, 75)

		assert.True(t, rec.Valid, method)
		assert.InDelta(t, 75, rec.Amount, 1e-9, method)
		assert.InDelta(t, 0, rec.Change, 1e-9, method)
	}
}

func TestKnownMethod(t *testing.T) {
	assert.True(t, KnownMethod(PaymentCash))
	assert.False(t, KnownMethod(PaymentMethod("credit")))
}
