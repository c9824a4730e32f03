package model

// Bidirectional enum tables between local and remote vocabularies.
// Lookups never fail: an unmapped value falls back to a defined
// default, so a new status appearing on either side degrades gracefully
// instead of breaking sync.

var orderStatusToRemote = map[string]string{
	OrderStatusOpen:      "pending",
	OrderStatusPaid:      "processing",
	OrderStatusCompleted: "completed",
	OrderStatusCanceled:  "cancelled",
	OrderStatusRefunded:  "refunded",
}

var orderStatusFromRemote = map[string]string{
	"pending":    OrderStatusOpen,
	"on-hold":    OrderStatusOpen,
	"processing": OrderStatusPaid,
	"completed":  OrderStatusCompleted,
	"cancelled":  OrderStatusCanceled,
	"failed":     OrderStatusCanceled,
	"refunded":   OrderStatusRefunded,
}

const (
	defaultRemoteOrderStatus = "pending"
	defaultLocalOrderStatus  = OrderStatusOpen
)

var paymentToRemote = map[string]string{
	PaymentCash:     "cod",
	PaymentCard:     "card",
	PaymentQRIS:     "ewallet",
	PaymentTransfer: "bacs",
}

var paymentFromRemote = map[string]string{
	"cod":     PaymentCash,
	"card":    PaymentCard,
	"ewallet": PaymentQRIS,
	"bacs":    PaymentTransfer,
}

const (
	defaultRemotePayment = "cod"
	defaultLocalPayment  = PaymentCash
)

func RemoteOrderStatus(local string) string {
	if s, ok := orderStatusToRemote[local]; ok {
		return s
	}
	return defaultRemoteOrderStatus
}

func LocalOrderStatus(remote string) string {
	if s, ok := orderStatusFromRemote[remote]; ok {
		return s
	}
	return defaultLocalOrderStatus
}

func RemotePaymentMethod(local string) string {
	if m, ok := paymentToRemote[local]; ok {
		return m
	}
	return defaultRemotePayment
}

func LocalPaymentMethod(remote string) string {
	if m, ok := paymentFromRemote[remote]; ok {
		return m
	}
	return defaultLocalPayment
}

// LocalOrderStatuses lists every status the register can write.
func LocalOrderStatuses() []string {
	return []string{OrderStatusOpen, OrderStatusPaid, OrderStatusCompleted, OrderStatusCanceled, OrderStatusRefunded}
}

// RemoteOrderStatuses lists every status the remote store can report.
func RemoteOrderStatuses() []string {
	out := make([]string, 0, len(orderStatusFromRemote))
	for s := range orderStatusFromRemote {
		out = append(out, s)
	}
	return out
}

func LocalPaymentMethods() []string {
	return []string{PaymentCash, PaymentCard, PaymentQRIS, PaymentTransfer}
}

func RemotePaymentMethods() []string {
	out := make([]string, 0, len(paymentFromRemote))
	for m := range paymentFromRemote {
		out = append(out, m)
	}
	return out
}
