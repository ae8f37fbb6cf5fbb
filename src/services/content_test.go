package services

import (
	"strings"

	"falcontour/src/types"

	"github.com/shopspring/decimal"
)

func (s *ServicesSuite) guestViewer(slugToken string) Viewer {
	guest := s.createUser("guest@example.com", types.USER)
	s.join(slugToken, guest.Email)
	return Viewer{ID: guest.ID, Email: guest.Email, Role: guest.Role}
}

func (s *ServicesSuite) TestSubmitFeedback() {
	event, invite := s.approve(1000, 400, 2, 10)
	viewer := s.guestViewer(invite.Token)

	feedback, err := s.app.Content.SubmitFeedback(ctx, viewer, event.Slug, types.FeedbackBody{Q1: 5, Q2: 4, Q3: 3, Q4: 2, Q5: 3})
	s.Require().NoError(err)
	s.InDelta(3.4, feedback.Average, 0.0001)
	s.Contains(s.titlesFor(s.client.ID), "New Feedback")

	_, err = s.app.Content.SubmitFeedback(ctx, viewer, event.Slug, types.FeedbackBody{Q1: 6, Q2: 4, Q3: 3, Q4: 2, Q5: 3})
	s.Equal(KindValidation, s.kindOf(err))

	stranger := Viewer{ID: 999, Email: "stranger@example.com", Role: types.USER}
	_, err = s.app.Content.SubmitFeedback(ctx, stranger, event.Slug, types.FeedbackBody{Q1: 5, Q2: 5, Q3: 5, Q4: 5, Q5: 5})
	s.Equal(KindForbidden, s.kindOf(err))
}

func (s *ServicesSuite) TestUploadAndListMedia() {
	event, invite := s.approve(1000, 400, 2, 10)
	viewer := s.guestViewer(invite.Token)

	_, err := s.app.Content.UploadMedia(ctx, viewer, event.Slug, nil)
	s.Equal(KindValidation, s.kindOf(err))

	media, err := s.app.Content.UploadMedia(ctx, viewer, event.Slug, []Upload{
		{Name: "sunset.jpg", ContentType: "image/jpeg", Body: strings.NewReader("a")},
		{Name: "group.png", ContentType: "image/png", Body: strings.NewReader("b")},
	})
	s.Require().NoError(err)
	s.Len(media, 2)
	s.Require().Len(s.blobs.keys, 2)
	prefix := "events/" + event.Slug + "/guest@example.com/"
	s.True(strings.HasPrefix(s.blobs.keys[0], prefix))
	s.True(strings.HasSuffix(s.blobs.keys[0], ".jpg"))
	s.Equal("https://cdn.falcontour.test/"+s.blobs.keys[1], media[1].URL)

	_, total, err := s.app.Content.ListMedia(ctx, viewer, event.Slug, &viewer.ID, types.PageQuery{})
	s.Require().NoError(err)
	s.Equal(int64(2), total)
	other := s.admin.ID
	_, total, err = s.app.Content.ListMedia(ctx, viewer, event.Slug, &other, types.PageQuery{})
	s.Require().NoError(err)
	s.Zero(total)
}

func (s *ServicesSuite) TestPersonalMessages() {
	event, invite := s.approve(1000, 400, 2, 10)
	viewer := s.guestViewer(invite.Token)

	message, err := s.app.Content.AddPersonalMessage(ctx, viewer, event.Slug, "See you at the pickup!")
	s.Require().NoError(err)
	s.Equal("guest@example.com", message.Email)

	admin := Viewer{ID: s.admin.ID, Email: s.admin.Email, Role: s.admin.Role}
	messages, err := s.app.Content.ListMessages(ctx, admin, event.Slug)
	s.Require().NoError(err)
	s.Require().Len(messages, 1)
	s.Equal("See you at the pickup!", messages[0].Message)
}

func (s *ServicesSuite) TestInvoiceKeepsItsNumber() {
	event := s.fundedEvent()
	host := Viewer{ID: s.client.ID, Email: s.client.Email, Role: s.client.Role}

	first, err := s.app.Invoices.GetInvoice(ctx, host, event.Slug)
	s.Require().NoError(err)
	s.Equal("FalconTour", first.Brand)
	s.Equal(int64(1000), first.Total)
	s.Equal(int64(600), first.Paid)
	s.Equal(int64(400), first.Due)
	s.Len(first.Participants, 2)

	s.expectCheckout("cs_inv", 20000, types.PURPOSE_PARTICIPANT_SHARE)
	_, err = s.app.Payments.InitiateParticipantPayment(ctx, event.Slug, "guest@example.com", nil, decimal.NewFromInt(200), 1)
	s.Require().NoError(err)
	s.expectDetails("cs_inv", 20000)
	_, _, err = s.app.Payments.ReconcileCheckoutCompletion(ctx, "cs_inv", types.PAYMENT_PAID)
	s.Require().NoError(err)

	second, err := s.app.Invoices.GetInvoice(ctx, host, event.Slug)
	s.Require().NoError(err)
	s.Equal(first.Number, second.Number)
	s.Equal(int64(800), second.Paid)
	s.Equal(int64(200), second.Due)

	stored, err := s.store.Invoices().FindByEvent(ctx, event.ID)
	s.Require().NoError(err)
	s.Equal(first.Number, stored.Number)
	s.Equal(int64(200), stored.Due)

	_, err = s.app.Invoices.GetInvoice(ctx, Viewer{Email: "stranger@example.com", Role: types.USER}, event.Slug)
	s.Equal(KindForbidden, s.kindOf(err))
}

func (s *ServicesSuite) TestInviteQRCodeIsHostOnly() {
	event, _ := s.approve(1000, 400, 2, 10)

	img, err := s.app.Invites.QRCode(ctx, Viewer{ID: s.client.ID, Email: s.client.Email, Role: s.client.Role}, event.Slug)
	s.Require().NoError(err)
	s.NotEmpty(img)

	_, err = s.app.Invites.QRCode(ctx, Viewer{Email: "guest@example.com", Role: types.USER}, event.Slug)
	s.Equal(KindForbidden, s.kindOf(err))
}
