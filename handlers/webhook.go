package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"

	"codegate.app/cloud/internal/license"
	"codegate.app/cloud/internal/logger"
	"codegate.app/cloud/models"
)

const (
	subscriptionValidity = 365 * 24 * time.Hour
	oneTimeValidity      = 30 * 24 * time.Hour
)

// Subscription and invoice payloads are decoded into these closed
// structs at the boundary. Anything the lifecycle does not consume is
// dropped here.
type subscriptionEvent struct {
	ID               string `json:"id"`
	Customer         string `json:"customer"`
	Status           string `json:"status"`
	CurrentPeriodEnd int64  `json:"current_period_end"`
}

type invoiceEvent struct {
	Customer         string `json:"customer"`
	CustomerEmail    string `json:"customer_email"`
	HostedInvoiceURL string `json:"hosted_invoice_url"`
}

// StripeWebhook drives the license lifecycle. The signature is
// verified against the raw body before anything is parsed; a forged
// or unsigned delivery never reaches the event handlers.
func (s *Server) StripeWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	const maxBodyBytes = int64(65536)
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		logger.Error("Failed to read webhook payload", map[string]interface{}{
			"error": err.Error(),
		})
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	event, err := webhook.ConstructEvent(payload, r.Header.Get("Stripe-Signature"), s.Config.StripeWebhookSecret)
	if err != nil {
		logger.Error("Webhook signature verification failed", map[string]interface{}{
			"error":       err.Error(),
			"remote_addr": r.RemoteAddr,
		})
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	logger.Info("Stripe event verified", map[string]interface{}{
		"event_type": event.Type,
		"event_id":   event.ID,
	})

	var handleErr error
	switch event.Type {
	case "checkout.session.completed":
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			logger.Error("Failed to unmarshal checkout session", map[string]interface{}{
				"error":    err.Error(),
				"event_id": event.ID,
			})
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		handleErr = s.handleCheckoutCompleted(ctx, &session)

	case "customer.subscription.deleted":
		var sub subscriptionEvent
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		handleErr = s.handleSubscriptionCancelled(ctx, &sub)

	case "customer.subscription.updated":
		var sub subscriptionEvent
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		handleErr = s.handleSubscriptionRenewed(ctx, &sub)

	case "invoice.payment_failed":
		var inv invoiceEvent
		if err := json.Unmarshal(event.Data.Raw, &inv); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		handleErr = s.handlePaymentFailed(ctx, &inv)

	default:
		logger.Info("Acknowledging unhandled webhook event type", map[string]interface{}{
			"event_type": event.Type,
			"event_id":   event.ID,
		})
	}

	if handleErr != nil {
		logger.Error("Failed to process webhook event", map[string]interface{}{
			"error":      handleErr.Error(),
			"event_type": event.Type,
			"event_id":   event.ID,
		})
		sentry.CaptureException(handleErr)
		// 5xx makes Stripe redeliver; the handlers are idempotent with
		// respect to final stored state.
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(map[string]string{"received": "true"}); err != nil {
		logger.Error("Failed to encode webhook response", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

func (s *Server) handleCheckoutCompleted(ctx context.Context, session *stripe.CheckoutSession) error {
	customerEmail := session.CustomerEmail
	if session.CustomerDetails != nil && session.CustomerDetails.Email != "" {
		customerEmail = session.CustomerDetails.Email
	}
	if customerEmail == "" {
		logger.Warn("Checkout session has no customer email, nothing to issue", map[string]interface{}{
			"session_id": session.ID,
		})
		return nil
	}

	customerID := ""
	if session.Customer != nil {
		customerID = session.Customer.ID
	}
	if customerID == "" {
		// Guest checkout: the email is the only stable identifier.
		logger.Warn("Checkout session has no customer object, keying record by email", map[string]interface{}{
			"session_id": session.ID,
		})
		customerID = customerEmail
	}

	tier := session.Metadata["tier"]
	if tier == "" {
		tier = license.TierPro
	}

	validity := oneTimeValidity
	if session.Mode == stripe.CheckoutSessionModeSubscription {
		validity = subscriptionValidity
	}

	key, payload, err := s.Signer.Sign(customerEmail, time.Now().UTC().Add(validity), nil)
	if err != nil {
		return fmt.Errorf("mint license for %s: %w", customerID, err)
	}

	subscriptionID := ""
	if session.Subscription != nil {
		subscriptionID = session.Subscription.ID
	}

	record := &models.LicenseRecord{
		LicenseKey:     key,
		CustomerID:     customerID,
		CustomerEmail:  customerEmail,
		Tier:           tier,
		Status:         models.StatusActive,
		IssuedAt:       payload.IssuedAt,
		ExpiresAt:      payload.ExpiresAt,
		SubscriptionID: subscriptionID,
	}

	if err := s.Storage.Put(ctx, record); err != nil {
		return fmt.Errorf("persist license record: %w", err)
	}

	logger.Info("License issued", map[string]interface{}{
		"customer_id": customerID,
		"tier":        tier,
		"expires_at":  record.ExpiresAt,
		"session_id":  session.ID,
	})

	body := fmt.Sprintf(`Hello,

Thank you for purchasing CodeGate! Your license is ready.

LICENSE DETAILS
License Key: %s
Tier: %s
Valid until: %s

GETTING STARTED
1. Run: codegate license activate
2. Paste your license key when prompted

NEED HELP?
Reply to this email or contact help@codegate.app

The CodeGate Team`,
		key,
		tier,
		record.ExpiresAt.Format("2 January 2006"))

	if err := s.Mailer.Send(customerEmail, "Your CodeGate license key", body); err != nil {
		// Redelivery re-sends the email; a duplicate notification is
		// the accepted tradeoff, a silently lost key is not.
		return fmt.Errorf("send license email: %w", err)
	}

	return nil
}

func (s *Server) handleSubscriptionCancelled(ctx context.Context, sub *subscriptionEvent) error {
	record, err := s.Storage.GetByCustomerID(ctx, sub.Customer)
	if err != nil {
		return fmt.Errorf("look up customer %s: %w", sub.Customer, err)
	}
	if record == nil {
		// Possibly a duplicate delivery for a customer we never issued
		// to. Not an error.
		logger.Info("No license record for cancelled subscription", map[string]interface{}{
			"customer_id": sub.Customer,
		})
		return nil
	}

	record.Status = models.StatusCancelled
	if err := s.Storage.Put(ctx, record); err != nil {
		return fmt.Errorf("persist cancellation: %w", err)
	}

	logger.Info("License cancelled", map[string]interface{}{
		"customer_id": record.CustomerID,
		"expires_at":  record.ExpiresAt,
	})

	body := fmt.Sprintf(`Hello,

Your CodeGate subscription has been cancelled.

Your license keeps working until %s. After that, renew any time at
https://codegate.app/pricing.

The CodeGate Team`,
		record.ExpiresAt.Format("2 January 2006"))

	if err := s.Mailer.Send(record.CustomerEmail, "Your CodeGate subscription was cancelled", body); err != nil {
		return fmt.Errorf("send cancellation email: %w", err)
	}

	return nil
}

func (s *Server) handleSubscriptionRenewed(ctx context.Context, sub *subscriptionEvent) error {
	if sub.Status != "active" {
		logger.Debug("Ignoring subscription update with non-active status", map[string]interface{}{
			"customer_id": sub.Customer,
			"status":      sub.Status,
		})
		return nil
	}

	record, err := s.Storage.GetByCustomerID(ctx, sub.Customer)
	if err != nil {
		return fmt.Errorf("look up customer %s: %w", sub.Customer, err)
	}
	if record == nil {
		logger.Info("No license record for renewed subscription", map[string]interface{}{
			"customer_id": sub.Customer,
		})
		return nil
	}

	expiresAt := time.Unix(sub.CurrentPeriodEnd, 0).UTC()
	if sub.CurrentPeriodEnd == 0 {
		logger.Warn("Renewal event carries no period end, using default validity", map[string]interface{}{
			"customer_id": sub.Customer,
		})
		expiresAt = time.Now().UTC().Add(subscriptionValidity)
	}

	record.ExpiresAt = expiresAt
	record.Status = models.StatusActive
	if err := s.Storage.Put(ctx, record); err != nil {
		return fmt.Errorf("persist renewal: %w", err)
	}

	logger.Info("License renewed", map[string]interface{}{
		"customer_id": record.CustomerID,
		"expires_at":  record.ExpiresAt,
	})

	return nil
}

func (s *Server) handlePaymentFailed(ctx context.Context, inv *invoiceEvent) error {
	record, err := s.Storage.GetByCustomerID(ctx, inv.Customer)
	if err != nil {
		return fmt.Errorf("look up customer %s: %w", inv.Customer, err)
	}
	if record == nil {
		return nil
	}

	body := fmt.Sprintf(`Hello,

We could not collect payment for your CodeGate subscription.

Please update your payment details here:
%s

Your license stays active until %s.

The CodeGate Team`,
		inv.HostedInvoiceURL,
		record.ExpiresAt.Format("2 January 2006"))

	if err := s.Mailer.Send(record.CustomerEmail, "CodeGate payment failed", body); err != nil {
		return fmt.Errorf("send payment failure email: %w", err)
	}

	return nil
}
