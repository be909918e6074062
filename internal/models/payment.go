package models

import "time"

// PaymentStatus is the processing state of a payment
type PaymentStatus string

const (
	PaymentStatusPending    PaymentStatus = "pending"
	PaymentStatusProcessing PaymentStatus = "processing"
	PaymentStatusCompleted  PaymentStatus = "completed"
	PaymentStatusFailed     PaymentStatus = "failed"
	PaymentStatusRefunded   PaymentStatus = "refunded"
	PaymentStatusCancelled  PaymentStatus = "cancelled"
)

var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentStatusPending:    {PaymentStatusProcessing, PaymentStatusFailed, PaymentStatusCancelled},
	PaymentStatusProcessing: {PaymentStatusCompleted, PaymentStatusFailed},
	PaymentStatusCompleted:  {PaymentStatusRefunded},
	PaymentStatusFailed:     {},
	PaymentStatusRefunded:   {},
	PaymentStatusCancelled:  {},
}

// IsValid reports whether the status is one of the known payment states.
func (s PaymentStatus) IsValid() bool {
	_, ok := paymentTransitions[s]
	return ok
}

// CanTransitionTo reports whether moving from s to target is allowed.
func (s PaymentStatus) CanTransitionTo(target PaymentStatus) bool {
	for _, next := range paymentTransitions[s] {
		if next == target {
			return true
		}
	}
	return false
}

// PaymentMethod is the channel a payment is processed through
type PaymentMethod string

const (
	PaymentMethodCard         PaymentMethod = "CARD"
	PaymentMethodBkash        PaymentMethod = "BKASH"
	PaymentMethodNagad        PaymentMethod = "NAGAD"
	PaymentMethodRocket       PaymentMethod = "ROCKET"
	PaymentMethodUpay         PaymentMethod = "UPAY"
	PaymentMethodBankTransfer PaymentMethod = "BANK_TRANSFER"
	PaymentMethodCash         PaymentMethod = "CASH"
)

var validPaymentMethods = map[PaymentMethod]bool{
	PaymentMethodCard:         true,
	PaymentMethodBkash:        true,
	PaymentMethodNagad:        true,
	PaymentMethodRocket:       true,
	PaymentMethodUpay:         true,
	PaymentMethodBankTransfer: true,
	PaymentMethodCash:         true,
}

// IsValid reports whether the method is a supported payment channel.
func (m PaymentMethod) IsValid() bool {
	return validPaymentMethods[m]
}

// Payment represents a payment attempt against a booking. Amount is the
// pre-discount total; FinalAmount is what the gateway was asked to charge.
type Payment struct {
	ID             int           `json:"id" db:"id"`
	BookingID      int           `json:"booking_id" db:"booking_id"`
	UserID         int           `json:"user_id" db:"user_id"`
	Amount         float64       `json:"amount" db:"amount"`
	DiscountAmount float64       `json:"discount_amount" db:"discount_amount"`
	FinalAmount    float64       `json:"final_amount" db:"final_amount"`
	Method         PaymentMethod `json:"method" db:"method"`
	Status        PaymentStatus `json:"status" db:"status"`
	TransactionID *string       `json:"transaction_id,omitempty" db:"transaction_id"`
	CouponCode    *string       `json:"coupon_code,omitempty" db:"coupon_code"`
	RefundAmount  *float64      `json:"refund_amount,omitempty" db:"refund_amount"`
	RefundTxnID   *string       `json:"refund_txn_id,omitempty" db:"refund_txn_id"`
	FailureReason *string       `json:"failure_reason,omitempty" db:"failure_reason"`
	CreatedAt     time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at" db:"updated_at"`
}

// InitiatePaymentRequest is the payload for starting a payment. The details
// map carries method-specific fields (card number, wallet PIN) that the
// gateway validates before charging.
type InitiatePaymentRequest struct {
	BookingID      int               `json:"booking_id" binding:"required"`
	Method         PaymentMethod     `json:"method" binding:"required"`
	CouponCode     *string           `json:"coupon_code,omitempty"`
	PaymentDetails map[string]string `json:"payment_details,omitempty"`
}

// PaymentResult is the API view of a processed payment
type PaymentResult struct {
	PaymentID     int           `json:"payment_id"`
	BookingID     int           `json:"booking_id"`
	Status        PaymentStatus `json:"status"`
	Amount        float64       `json:"amount"`
	TransactionID string        `json:"transaction_id,omitempty"`
	PNR           string        `json:"pnr,omitempty"`
	FailureReason string        `json:"failure_reason,omitempty"`
}
