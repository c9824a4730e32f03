package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestOrderStatusRoundTrip(t *testing.T) {
	for _, local := range LocalOrderStatuses() {
		assert.Equal(t, local, LocalOrderStatus(RemoteOrderStatus(local)), "status %q must survive export and re-import", local)
	}
}

func TestPaymentMethodRoundTrip(t *testing.T) {
	for _, local := range LocalPaymentMethods() {
		assert.Equal(t, local, LocalPaymentMethod(RemotePaymentMethod(local)), "payment %q must survive export and re-import", local)
	}
}

func TestOrderStatusMappingIsTotal(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s := rapid.String().Draw(t, "status")
		assert.Contains(t, RemoteOrderStatuses(), RemoteOrderStatus(s))
		assert.Contains(t, LocalOrderStatuses(), LocalOrderStatus(s))
	})
}

func TestPaymentMappingIsTotal(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s := rapid.String().Draw(t, "method")
		assert.Contains(t, RemotePaymentMethods(), RemotePaymentMethod(s))
		assert.Contains(t, LocalPaymentMethods(), LocalPaymentMethod(s))
	})
}

func TestUnknownValuesFallBackToDefaults(t *testing.T) {
	assert.Equal(t, "pending", RemoteOrderStatus("draft"))
	assert.Equal(t, OrderStatusOpen, LocalOrderStatus("checkout-draft"))
	assert.Equal(t, "cod", RemotePaymentMethod("barter"))
	assert.Equal(t, PaymentCash, LocalPaymentMethod("paypal"))
}

func TestRemoteStatusesCoverEveryLocalTarget(t *testing.T) {
	// every remote status the store can report maps onto a status the
	// register knows how to display
	for _, remote := range RemoteOrderStatuses() {
		assert.Contains(t, LocalOrderStatuses(), LocalOrderStatus(remote))
	}
}
