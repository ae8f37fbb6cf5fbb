package services

import (
	"errors"
	"net/http"
	"time"

	"falcontour/src/models"
	"falcontour/src/types"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// fundedEvent is 1000 total with 400 pending split two ways, joined by the
// host and one member.
func (s *ServicesSuite) fundedEvent() *models.Event {
	event, invite := s.approve(1000, 400, 2, 10)
	s.join(invite.Token, s.client.Email)
	s.join(invite.Token, "guest@example.com")
	return event
}

func (s *ServicesSuite) expectCheckout(sessionID string, cents int64, purpose types.PaymentPurpose) {
	s.gateway.On("CreateCheckoutSession", mock.MatchedBy(func(req types.CheckoutRequest) bool {
		return req.AmountMinor == cents && req.Metadata["purpose"] == string(purpose)
	})).Return(&types.CheckoutSession{ID: sessionID, URL: "https://checkout.stripe.test/" + sessionID}, nil).Once()
}

func (s *ServicesSuite) expectDetails(sessionID string, received int64) {
	s.gateway.On("PaymentDetails", sessionID).Return(&types.PaymentDetails{
		PaymentIntentID: "pi_" + sessionID,
		AmountReceived:  received,
		Currency:        "usd",
		CardBrand:       "visa",
	}, nil)
}

func (s *ServicesSuite) TestParticipantPaysShare() {
	event := s.fundedEvent()
	s.expectCheckout("cs_share", 20000, types.PURPOSE_PARTICIPANT_SHARE)

	session, err := s.app.Payments.InitiateParticipantPayment(ctx, event.Slug, "Guest@Example.com", nil, decimal.NewFromInt(200), 1)
	s.Require().NoError(err)
	s.Equal("cs_share", session.ID)

	pending, err := s.store.Transactions().FindByPaymentID(ctx, "cs_share")
	s.Require().NoError(err)
	s.Equal(types.PAYMENT_PENDING, pending.Status)
	s.Equal(int64(200), pending.AmountIntended)
	s.Equal(int64(20000), pending.AmountMinor)
	s.Equal("guest@example.com", pending.PayerEmail)
	s.Equal(event.Slug, pending.Metadata["event_slug"])

	s.expectDetails("cs_share", 20000)
	txn, applied, err := s.app.Payments.ReconcileCheckoutCompletion(ctx, "cs_share", types.PAYMENT_PAID)
	s.Require().NoError(err)
	s.True(applied)
	s.Equal(types.PAYMENT_PAID, txn.Status)
	s.Require().NotNil(txn.PaidAt)
	s.Equal("visa", *txn.PaymentMethod)

	guest := s.participant(event.ID, "guest@example.com")
	s.Equal(int64(200), guest.DepositedAmount)
	s.Equal(int64(200), guest.EquityAmount)
	s.Equal(uint(1), guest.HeadsCovered)
	s.Equal(types.PAYMENT_PAID, guest.PaymentStatus)

	stored := s.reload(event.ID)
	s.Equal(int64(200), stored.PendingAmount)
	s.Equal(int64(800), stored.DepositAmount)
	s.Equal(types.PAYMENT_PENDING, stored.PaymentStatus)
	s.assertBalanced(event.ID)
	s.Contains(s.titlesFor(s.client.ID), "Incoming Payment")

	_, applied, err = s.app.Payments.ReconcileCheckoutCompletion(ctx, "cs_share", types.PAYMENT_PAID)
	s.Require().NoError(err)
	s.False(applied)
	s.Equal(int64(200), s.reload(event.ID).PendingAmount)
	s.Equal(int64(200), s.participant(event.ID, "guest@example.com").DepositedAmount)
	s.gateway.AssertNumberOfCalls(s.T(), "PaymentDetails", 1)

	_, err = s.app.Payments.InitiateParticipantPayment(ctx, event.Slug, "guest@example.com", nil, decimal.NewFromInt(10), 1)
	s.Equal(KindConflict, s.kindOf(err))
	s.Equal("You have already paid your share", err.Error())
}

func (s *ServicesSuite) TestDiscrepancyIsFlaggedNotApplied() {
	event := s.fundedEvent()
	s.expectCheckout("cs_short", 20000, types.PURPOSE_PARTICIPANT_SHARE)
	_, err := s.app.Payments.InitiateParticipantPayment(ctx, event.Slug, "guest@example.com", nil, decimal.NewFromInt(200), 1)
	s.Require().NoError(err)

	s.expectDetails("cs_short", 15000)
	txn, applied, err := s.app.Payments.ReconcileCheckoutCompletion(ctx, "cs_short", types.PAYMENT_PAID)
	s.Require().NoError(err)
	s.True(applied)
	s.Equal(types.PAYMENT_DISCREPANCY, txn.Status)
	s.Nil(txn.PaidAt)
	s.Equal(int64(150), *txn.AmountReceived)

	stored := s.reload(event.ID)
	s.Equal(types.PAYMENT_DISCREPANCY, stored.PaymentStatus)
	s.Equal(int64(400), stored.PendingAmount)
	s.assertBalanced(event.ID)
	guest := s.participant(event.ID, "guest@example.com")
	s.Zero(guest.DepositedAmount)
	s.Equal(types.PAYMENT_PENDING, guest.PaymentStatus)

	s.Contains(s.titlesFor(s.admin.ID), "Payment Flagged")
	s.NotContains(s.titlesFor(s.client.ID), "Payment Flagged")
}

func (s *ServicesSuite) TestHostFinalPayment() {
	event := s.fundedEvent()

	_, err := s.app.Payments.InitiateHostFinalPayment(ctx, event.Slug, "guest@example.com", nil)
	s.Equal(KindForbidden, s.kindOf(err))

	s.expectCheckout("cs_final", 40000, types.PURPOSE_FINAL_REMAINING)
	_, err = s.app.Payments.InitiateHostFinalPayment(ctx, event.Slug, s.client.Email, &s.client.ID)
	s.Require().NoError(err)

	pending, err := s.store.Transactions().FindByPaymentID(ctx, "cs_final")
	s.Require().NoError(err)
	s.Equal(types.PAYER_HOST, pending.PayerRole)

	s.expectDetails("cs_final", 40000)
	_, applied, err := s.app.Payments.ReconcileCheckoutCompletion(ctx, "cs_final", types.PAYMENT_PAID)
	s.Require().NoError(err)
	s.True(applied)

	stored := s.reload(event.ID)
	s.Zero(stored.PendingAmount)
	s.Equal(int64(1000), stored.DepositAmount)
	s.Equal(types.PAYMENT_PAID, stored.PaymentStatus)
	s.assertBalanced(event.ID)
	s.Equal(int64(1000), s.participant(event.ID, s.client.Email).DepositedAmount)

	_, err = s.app.Payments.InitiateHostFinalPayment(ctx, event.Slug, s.client.Email, nil)
	s.Equal(KindConflict, s.kindOf(err))
	_, err = s.app.Payments.InitiateParticipantPayment(ctx, event.Slug, "guest@example.com", nil, decimal.NewFromInt(200), 1)
	s.Equal("Event Already Paid For!", err.Error())
}

func (s *ServicesSuite) TestHostFinalPaymentAfterShareSettlesIsFlagged() {
	event := s.fundedEvent()
	s.expectCheckout("cs_final", 40000, types.PURPOSE_FINAL_REMAINING)
	_, err := s.app.Payments.InitiateHostFinalPayment(ctx, event.Slug, s.client.Email, &s.client.ID)
	s.Require().NoError(err)

	s.expectCheckout("cs_share", 20000, types.PURPOSE_PARTICIPANT_SHARE)
	_, err = s.app.Payments.InitiateParticipantPayment(ctx, event.Slug, "guest@example.com", nil, decimal.NewFromInt(200), 1)
	s.Require().NoError(err)
	s.expectDetails("cs_share", 20000)
	_, _, err = s.app.Payments.ReconcileCheckoutCompletion(ctx, "cs_share", types.PAYMENT_PAID)
	s.Require().NoError(err)

	s.expectDetails("cs_final", 40000)
	txn, applied, err := s.app.Payments.ReconcileCheckoutCompletion(ctx, "cs_final", types.PAYMENT_PAID)
	s.Require().NoError(err)
	s.True(applied)
	s.Equal(types.PAYMENT_DISCREPANCY, txn.Status)
	s.Nil(txn.PaidAt)

	stored := s.reload(event.ID)
	s.Equal(types.PAYMENT_DISCREPANCY, stored.PaymentStatus)
	s.Equal(int64(200), stored.PendingAmount)
	s.assertBalanced(event.ID)
	s.Equal(int64(600), s.participant(event.ID, s.client.Email).DepositedAmount)
	s.Contains(s.titlesFor(s.admin.ID), "Payment Flagged")
}

func (s *ServicesSuite) TestDiscrepancySurvivesLaterSettlement() {
	event := s.fundedEvent()
	s.expectCheckout("cs_short", 20000, types.PURPOSE_PARTICIPANT_SHARE)
	_, err := s.app.Payments.InitiateParticipantPayment(ctx, event.Slug, "guest@example.com", nil, decimal.NewFromInt(200), 1)
	s.Require().NoError(err)
	s.expectDetails("cs_short", 15000)
	_, _, err = s.app.Payments.ReconcileCheckoutCompletion(ctx, "cs_short", types.PAYMENT_PAID)
	s.Require().NoError(err)
	s.Equal(types.PAYMENT_DISCREPANCY, s.reload(event.ID).PaymentStatus)

	s.expectCheckout("cs_final", 40000, types.PURPOSE_FINAL_REMAINING)
	_, err = s.app.Payments.InitiateHostFinalPayment(ctx, event.Slug, s.client.Email, &s.client.ID)
	s.Require().NoError(err)
	s.expectDetails("cs_final", 40000)
	txn, applied, err := s.app.Payments.ReconcileCheckoutCompletion(ctx, "cs_final", types.PAYMENT_PAID)
	s.Require().NoError(err)
	s.True(applied)
	s.Equal(types.PAYMENT_PAID, txn.Status)

	stored := s.reload(event.ID)
	s.Zero(stored.PendingAmount)
	s.Equal(int64(1000), stored.DepositAmount)
	s.Equal(types.PAYMENT_DISCREPANCY, stored.PaymentStatus)
	s.assertBalanced(event.ID)
}

func (s *ServicesSuite) TestCheckoutReconcilesExpiry() {
	event := s.fundedEvent()
	s.clock.now = s.clock.now.Add(97 * time.Hour)
	s.expectCheckout("cs_late", 10000, types.PURPOSE_PARTICIPANT_SHARE)

	_, err := s.app.Payments.InitiateParticipantPayment(ctx, event.Slug, "guest@example.com", nil, decimal.NewFromInt(100), 1)
	s.Require().NoError(err)
	s.Equal(types.EVENT_STARTED, s.reload(event.ID).EventStatus)
}

func (s *ServicesSuite) TestInitiateParticipantPaymentValidation() {
	event := s.fundedEvent()
	cases := []struct {
		amount string
		heads  uint
		kind   ErrorKind
	}{
		{"0", 1, KindValidation},
		{"-5", 1, KindValidation},
		{"0.49", 1, KindValidation},
		{"0.50", 1, KindValidation},
		{"150.50", 1, KindValidation},
		{"201", 1, KindValidation},
		{"450", 3, KindConflict},
	}
	for _, c := range cases {
		_, err := s.app.Payments.InitiateParticipantPayment(ctx, event.Slug, "guest@example.com", nil, decimal.RequireFromString(c.amount), c.heads)
		s.Equal(c.kind, s.kindOf(err), c.amount)
	}

	_, err := s.app.Payments.InitiateParticipantPayment(ctx, event.Slug, "stranger@example.com", nil, decimal.NewFromInt(10), 1)
	s.Equal(KindNotFound, s.kindOf(err))
	_, err = s.app.Payments.InitiateParticipantPayment(ctx, "missing", "guest@example.com", nil, decimal.NewFromInt(10), 1)
	s.Equal(KindNotFound, s.kindOf(err))
	s.gateway.AssertNotCalled(s.T(), "CreateCheckoutSession", mock.Anything)
}

func (s *ServicesSuite) TestGatewayFailureCreatesNoTransaction() {
	event := s.fundedEvent()
	s.gateway.On("CreateCheckoutSession", mock.Anything).Return(nil, errors.New("stripe down")).Once()

	_, err := s.app.Payments.InitiateParticipantPayment(ctx, event.Slug, "guest@example.com", nil, decimal.NewFromInt(100), 1)
	s.Equal(KindExternal, s.kindOf(err))

	txns, err := s.store.Transactions().ListByEvent(ctx, event.ID)
	s.Require().NoError(err)
	s.Empty(txns)
}

func (s *ServicesSuite) TestReconcileUnknownSession() {
	_, applied, err := s.app.Payments.ReconcileCheckoutCompletion(ctx, "cs_ghost", types.PAYMENT_PAID)
	s.False(applied)
	s.Equal(KindAnomaly, s.kindOf(err))
	s.Equal(http.StatusOK, err.(*Error).StatusCode())
}

func (s *ServicesSuite) TestReconcileFailedSession() {
	event := s.fundedEvent()
	s.expectCheckout("cs_expired", 10000, types.PURPOSE_PARTICIPANT_SHARE)
	_, err := s.app.Payments.InitiateParticipantPayment(ctx, event.Slug, "guest@example.com", nil, decimal.NewFromInt(100), 1)
	s.Require().NoError(err)

	txn, applied, err := s.app.Payments.ReconcileCheckoutCompletion(ctx, "cs_expired", types.PAYMENT_FAILED)
	s.Require().NoError(err)
	s.True(applied)
	s.Equal(types.PAYMENT_FAILED, txn.Status)
	s.Equal(int64(400), s.reload(event.ID).PendingAmount)
	s.gateway.AssertNotCalled(s.T(), "PaymentDetails", "cs_expired")

	_, applied, err = s.app.Payments.ReconcileCheckoutCompletion(ctx, "cs_expired", types.PAYMENT_PAID)
	s.Require().NoError(err)
	s.False(applied)
}

func (s *ServicesSuite) TestPaymentsByParticipant() {
	event := s.fundedEvent()
	s.expectCheckout("cs_a", 5000, types.PURPOSE_PARTICIPANT_SHARE)
	s.expectCheckout("cs_b", 6000, types.PURPOSE_PARTICIPANT_SHARE)
	s.expectCheckout("cs_c", 40000, types.PURPOSE_FINAL_REMAINING)
	_, err := s.app.Payments.InitiateParticipantPayment(ctx, event.Slug, "guest@example.com", nil, decimal.NewFromInt(50), 1)
	s.Require().NoError(err)
	_, err = s.app.Payments.InitiateParticipantPayment(ctx, event.Slug, "guest@example.com", nil, decimal.NewFromInt(60), 1)
	s.Require().NoError(err)
	_, err = s.app.Payments.InitiateHostFinalPayment(ctx, event.Slug, s.client.Email, nil)
	s.Require().NoError(err)

	s.expectDetails("cs_a", 5000)
	_, _, err = s.app.Payments.ReconcileCheckoutCompletion(ctx, "cs_a", types.PAYMENT_PAID)
	s.Require().NoError(err)

	grouped, err := s.app.Payments.PaymentsForEvent(ctx, event.Slug)
	s.Require().NoError(err)
	s.Require().Len(grouped, 2)
	byEmail := map[string]ParticipantPayments{}
	for _, g := range grouped {
		byEmail[g.Email] = g
	}
	s.Len(byEmail["guest@example.com"].Transactions, 2)
	s.Equal(int64(50), byEmail["guest@example.com"].TotalPaid)
	s.Len(byEmail[s.client.Email].Transactions, 1)
	s.Zero(byEmail[s.client.Email].TotalPaid)
}
