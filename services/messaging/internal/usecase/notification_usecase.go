package usecase

import (
	"context"
	"fmt"
	"time"

	"studyspot/pkg/events"
	"studyspot/pkg/logger"
	"studyspot/pkg/pricing"
	"studyspot/pkg/roles"
	"studyspot/services/messaging/internal/entity"
	"studyspot/services/messaging/internal/repo/cache"

	"github.com/google/uuid"
)

// OwnerLookup resolves who receives tenant-level notices.
type OwnerLookup interface {
	TenantOwner(ctx context.Context, tenantID string) (string, error)
}

type NotificationUseCase interface {
	List(ctx context.Context, actor roles.Actor, limit, offset int) ([]entity.Notification, int64, int64, error)
	MarkRead(ctx context.Context, actor roles.Actor) error
	Subscribe(ctx context.Context, userID string) (<-chan string, func(), error)

	NotifyBooking(ctx context.Context, routingKey string, booking events.Booking) error
	NotifyPayment(ctx context.Context, routingKey string, payment events.Payment) error
	NotifyCreditLow(ctx context.Context, alert events.CreditLowBalance) error
	NotifyInvoice(ctx context.Context, routingKey string, invoice events.Invoice) error
}

type notificationUseCase struct {
	store  cache.NotificationStore
	owners OwnerLookup
	logger *logger.Logger
	now    func() time.Time
}

func NewNotificationUseCase(store cache.NotificationStore, owners OwnerLookup, logger *logger.Logger) NotificationUseCase {
	return &notificationUseCase{
		store:  store,
		owners: owners,
		logger: logger,
		now:    time.Now,
	}
}

func (uc *notificationUseCase) List(ctx context.Context, actor roles.Actor, limit, offset int) ([]entity.Notification, int64, int64, error) {
	return uc.store.List(ctx, actor.UserID, limit, offset)
}

func (uc *notificationUseCase) MarkRead(ctx context.Context, actor roles.Actor) error {
	return uc.store.MarkRead(ctx, actor.UserID)
}

func (uc *notificationUseCase) Subscribe(ctx context.Context, userID string) (<-chan string, func(), error) {
	return uc.store.Subscribe(ctx, userID)
}

func (uc *notificationUseCase) NotifyBooking(ctx context.Context, routingKey string, booking events.Booking) error {
	seat := booking.SeatLabel
	if seat == "" {
		seat = "your seat"
	}
	when := booking.StartTime.Format("02 Jan 15:04")

	switch routingKey {
	case events.BookingConfirmed:
		return uc.send(ctx, booking.StudentID, "Booking confirmed",
			fmt.Sprintf("Seat %s is booked from %s.", seat, when),
			entity.NotificationBookingConfirmed, map[string]interface{}{"booking_id": booking.BookingID})
	case events.BookingCancelled:
		msg := fmt.Sprintf("Your booking for seat %s on %s was cancelled.", seat, when)
		if booking.Reason != "" {
			msg += " Reason: " + booking.Reason
		}
		return uc.send(ctx, booking.StudentID, "Booking cancelled", msg,
			entity.NotificationBookingCancelled, map[string]interface{}{"booking_id": booking.BookingID})
	}
	return nil
}

func (uc *notificationUseCase) NotifyPayment(ctx context.Context, routingKey string, payment events.Payment) error {
	data := map[string]interface{}{"payment_id": payment.PaymentID, "receipt_number": payment.ReceiptNumber}

	switch routingKey {
	case events.PaymentCompleted:
		return uc.send(ctx, payment.StudentID, "Payment received",
			fmt.Sprintf("We received %s. Receipt %s.", rupees(payment.Total), payment.ReceiptNumber),
			entity.NotificationPaymentReceived, data)
	case events.PaymentRefunded:
		return uc.send(ctx, payment.StudentID, "Payment refunded",
			fmt.Sprintf("%s was refunded against receipt %s.", rupees(payment.RefundedAmount), payment.ReceiptNumber),
			entity.NotificationPaymentRefunded, data)
	}
	return nil
}

func (uc *notificationUseCase) NotifyCreditLow(ctx context.Context, alert events.CreditLowBalance) error {
	owner, err := uc.ownerOf(ctx, alert.TenantID)
	if err != nil || owner == "" {
		return err
	}
	return uc.send(ctx, owner, "Credits running low",
		fmt.Sprintf("Only %d %s credits left (alert at %d). Top up to keep messages flowing.", alert.Balance, alert.CreditType, alert.Threshold),
		entity.NotificationCreditLow, map[string]interface{}{"credit_type": alert.CreditType, "balance": alert.Balance})
}

func (uc *notificationUseCase) NotifyInvoice(ctx context.Context, routingKey string, invoice events.Invoice) error {
	owner, err := uc.ownerOf(ctx, invoice.TenantID)
	if err != nil || owner == "" {
		return err
	}
	data := map[string]interface{}{"invoice_id": invoice.InvoiceID, "number": invoice.Number}

	switch routingKey {
	case events.SubscriptionInvoiceCreated:
		return uc.send(ctx, owner, "New invoice",
			fmt.Sprintf("Invoice %s for %s is due by %s.", invoice.Number, rupees(invoice.Total), invoice.GraceUntil.Format("02 Jan 2006")),
			entity.NotificationInvoiceCreated, data)
	case events.SubscriptionPastDue:
		return uc.send(ctx, owner, "Subscription past due",
			fmt.Sprintf("Invoice %s is overdue. Pay %s to restore your subscription.", invoice.Number, rupees(invoice.Total)),
			entity.NotificationPastDue, data)
	}
	return nil
}

func (uc *notificationUseCase) ownerOf(ctx context.Context, tenantID string) (string, error) {
	owner, err := uc.owners.TenantOwner(ctx, tenantID)
	if err != nil {
		return "", err
	}
	if owner == "" {
		uc.logger.Warn("Tenant %s has no owner, notification dropped", tenantID)
	}
	return owner, nil
}

func (uc *notificationUseCase) send(ctx context.Context, userID, title, message, kind string, data map[string]interface{}) error {
	if userID == "" {
		return nil
	}
	n := &entity.Notification{
		ID:        uuid.NewString(),
		UserID:    userID,
		Title:     title,
		Message:   message,
		Type:      kind,
		Data:      data,
		CreatedAt: uc.now().UTC(),
	}
	if err := uc.store.Push(ctx, n); err != nil {
		return err
	}
	uc.logger.Debug("Notification %s sent to user %s", kind, userID)
	return nil
}

func rupees(paise int64) string {
	return "₹" + pricing.FormatRupees(paise)
}
