package services

import (
	"strings"
	"time"

	"falcontour/src/models"
	"falcontour/src/repository"
	"falcontour/src/types"
)

func (s *ServicesSuite) TestCreateRequestNormalizesCohosts() {
	body := types.CreateEventRequestBody{
		TripDetailsBody: s.trip(10),
		Cohosts:         []string{"  Cohost@Example.com ", "CLIENT@example.com", "cohost@example.com"},
	}
	cover := &Upload{Name: "cover.png", ContentType: "image/png", Body: strings.NewReader("png")}
	req, err := s.app.Lifecycle.CreateRequest(ctx, body, " Client@Example.com", cover)
	s.Require().NoError(err)

	s.Equal(types.REQUEST_PENDING, req.Status)
	s.Equal("client@example.com", req.Host)
	s.Equal([]string{"cohost@example.com"}, []string(req.Cohosts))
	s.Equal([]string{"client@example.com", "cohost@example.com"}, []string(req.Participants))
	s.True(strings.HasPrefix(req.Slug, "acme-corp-"))
	s.Require().NotNil(req.CoverImage)
	s.Equal("https://cdn.falcontour.test/requests/"+req.Slug+"/cover.png", *req.CoverImage)

	s.Contains(s.titlesFor(s.admin.ID), "New Event Request")
	s.NotContains(s.titlesFor(s.client.ID), "New Event Request")
}

func (s *ServicesSuite) TestCreateRequestValidation() {
	body := types.CreateEventRequestBody{TripDetailsBody: s.trip(10)}
	body.Vehicle = " "
	_, err := s.app.Lifecycle.CreateRequest(ctx, body, s.client.Email, nil)
	s.Equal(KindValidation, s.kindOf(err))
	s.Equal("vehicle is required", err.Error())

	body = types.CreateEventRequestBody{TripDetailsBody: s.trip(10)}
	body.PickupDate = "next tuesday"
	_, err = s.app.Lifecycle.CreateRequest(ctx, body, s.client.Email, nil)
	s.Equal(KindValidation, s.kindOf(err))

	_, err = s.app.Lifecycle.CreateRequest(ctx, types.CreateEventRequestBody{TripDetailsBody: s.trip(10)}, "nobody@example.com", nil)
	s.Equal(KindNotFound, s.kindOf(err))
}

func (s *ServicesSuite) TestApproveRequest() {
	req := s.request(10, "cohost@example.com")
	event, url, err := s.app.Lifecycle.ApproveRequest(ctx, req.Slug, types.PaymentTermsBody{
		TotalAmount: 1000, PendingAmount: 400, EquityDivision: 2,
	})
	s.Require().NoError(err)

	stored := s.reload(event.ID)
	s.Equal(types.EVENT_CREATED, stored.EventStatus)
	s.Equal(types.PAYMENT_PENDING, stored.PaymentStatus)
	s.Equal(int64(600), stored.DepositAmount)
	s.Equal(int64(400), stored.InitialEquity)
	s.Equal("client@example.com", stored.Host)
	s.Require().NotNil(stored.ExpiresAt)
	s.True(stored.ExpiresAt.Equal(stored.TripDetails.PickupDate.Add(6 * time.Hour)))
	s.assertBalanced(event.ID)

	invite, err := s.store.Invites().FindByEvent(ctx, event.ID)
	s.Require().NoError(err)
	s.Len(invite.Token, 10)
	s.Equal(s.cfg.ClientURL+"/"+invite.Token, url)
	s.Equal("client@example.com", invite.Email)
	s.True(invite.ExpiresAt.Equal(s.clock.now.Add(72 * time.Hour)))
	s.Zero(invite.Registered)

	cohost := s.participant(event.ID, "cohost@example.com")
	s.Equal(types.ROLE_COHOST, cohost.Role)
	s.Equal(int64(200), cohost.EquityAmount)
	s.Equal(types.PAYMENT_PENDING, cohost.PaymentStatus)

	_, err = s.store.Requests().FindBySlug(ctx, req.Slug)
	s.ErrorIs(err, repository.ErrNotFound)

	s.Require().Len(s.mailer.sent, 1)
	s.Equal("You're invited to host an event", s.mailer.sent[0].Subject)
	s.Equal([]string{"client@example.com"}, s.mailer.sent[0].To)
	s.Contains(s.mailer.sent[0].Body, url)
	s.Contains(s.titlesFor(s.client.ID), "New Event")
}

func (s *ServicesSuite) TestApproveRequestRejectsBadTerms() {
	req := s.request(10)
	cases := []types.PaymentTermsBody{
		{TotalAmount: 1000, PendingAmount: 400, EquityDivision: 0},
		{TotalAmount: -1, PendingAmount: 0, EquityDivision: 1},
		{TotalAmount: 1000, PendingAmount: -5, EquityDivision: 1},
		{TotalAmount: 100, PendingAmount: 400, EquityDivision: 2},
	}
	for _, terms := range cases {
		_, _, err := s.app.Lifecycle.ApproveRequest(ctx, req.Slug, terms)
		s.Equal(KindValidation, s.kindOf(err), "%+v", terms)
	}

	_, total, err := s.store.Events().List(ctx, repository.EventFilter{})
	s.Require().NoError(err)
	s.Zero(total)
	stored, err := s.store.Requests().FindBySlug(ctx, req.Slug)
	s.Require().NoError(err)
	s.Equal(types.REQUEST_PENDING, stored.Status)
	s.Empty(s.mailer.sent)
}

func (s *ServicesSuite) TestApproveRequestRollsBackOnConflict() {
	req := s.request(10, "cohost@example.com")
	clash := &models.Event{Slug: req.Slug, TripDetails: req.TripDetails, EquityDivision: 1}
	s.Require().NoError(s.store.Events().Create(ctx, clash))

	_, _, err := s.app.Lifecycle.ApproveRequest(ctx, req.Slug, types.PaymentTermsBody{TotalAmount: 10, PendingAmount: 10, EquityDivision: 1})
	s.ErrorIs(err, repository.ErrDuplicate)

	_, total, err := s.store.Events().List(ctx, repository.EventFilter{})
	s.Require().NoError(err)
	s.Equal(int64(1), total)
	_, err = s.store.Requests().FindBySlug(ctx, req.Slug)
	s.NoError(err)
	_, err = s.store.Invites().FindByEvent(ctx, clash.ID)
	s.ErrorIs(err, repository.ErrNotFound)
}

func (s *ServicesSuite) TestApproveRequestWithNothingPending() {
	event, _ := s.approve(500, 0, 4, 10, "cohost@example.com")
	s.Equal(types.PAYMENT_PAID, s.reload(event.ID).PaymentStatus)

	cohost := s.participant(event.ID, "cohost@example.com")
	s.Zero(cohost.EquityAmount)
	s.Equal(types.PAYMENT_PAID, cohost.PaymentStatus)
	s.assertBalanced(event.ID)
}

func (s *ServicesSuite) TestApproveUnknownRequest() {
	_, _, err := s.app.Lifecycle.ApproveRequest(ctx, "missing", types.PaymentTermsBody{EquityDivision: 1})
	s.Equal(KindNotFound, s.kindOf(err))
}

func (s *ServicesSuite) TestRedeemInviteSeedsHostAndMembers() {
	event, invite := s.approve(1000, 400, 2, 10)

	host := s.join(invite.Token, "Client@Example.com")
	s.Equal(types.ROLE_HOST, host.Role)
	s.Equal(int64(600), host.EquityAmount)
	s.Equal(int64(600), host.DepositedAmount)
	s.Equal(types.PAYMENT_PAID, host.PaymentStatus)

	member := s.join(invite.Token, "guest@example.com")
	s.Equal(types.ROLE_MEMBER, member.Role)
	s.Equal(int64(200), member.EquityAmount)
	s.Zero(member.DepositedAmount)
	s.Equal(types.PAYMENT_PENDING, member.PaymentStatus)

	s.Contains(s.titlesFor(s.client.ID), "New Participant")
	s.assertBalanced(event.ID)
}

func (s *ServicesSuite) TestRedeemInviteCapacity() {
	event, invite := s.approve(300, 300, 3, 3)

	s.join(invite.Token, "a@example.com")
	s.join(invite.Token, "b@example.com")
	s.join(invite.Token, "c@example.com")

	_, err := s.app.Invites.RedeemInvite(ctx, invite.Token, "d@example.com", nil)
	s.Equal(KindConflict, s.kindOf(err))
	s.Equal("Participant Limit Reached", err.Error())

	stored, err := s.store.Invites().FindByEvent(ctx, event.ID)
	s.Require().NoError(err)
	s.Equal(uint(3), stored.Registered)
	_, err = s.store.Participants().Find(ctx, event.ID, "d@example.com")
	s.ErrorIs(err, repository.ErrNotFound)
}

func (s *ServicesSuite) TestRedeemInviteTwiceConsumesSlot() {
	event, invite := s.approve(300, 300, 3, 5)
	userId := s.client.ID

	s.join(invite.Token, "guest@example.com")
	again, err := s.app.Invites.RedeemInvite(ctx, invite.Token, "guest@example.com", &userId)
	s.Require().NoError(err)
	s.Require().NotNil(again.UserID)
	s.Equal(userId, *again.UserID)

	stored, err := s.store.Invites().FindByEvent(ctx, event.ID)
	s.Require().NoError(err)
	s.Equal(uint(2), stored.Registered)
	participants, err := s.store.Participants().ListByEvent(ctx, event.ID)
	s.Require().NoError(err)
	s.Len(participants, 1)
}

func (s *ServicesSuite) TestRedeemInvalidOrExpiredInvite() {
	_, invite := s.approve(300, 300, 3, 5)

	_, err := s.app.Invites.RedeemInvite(ctx, "nope", "guest@example.com", nil)
	s.Equal(KindNotFound, s.kindOf(err))
	s.Equal("Invalid Invite", err.Error())

	s.clock.now = s.clock.now.Add(73 * time.Hour)
	_, err = s.app.Invites.RedeemInvite(ctx, invite.Token, "guest@example.com", nil)
	s.Equal(KindNotFound, s.kindOf(err))
	s.Equal("Invite has expired", err.Error())
}

func (s *ServicesSuite) TestRedeemAfterPickupWithoutRead() {
	s.cfg.InviteExpiry = 200 * time.Hour
	event, invite := s.approve(300, 300, 3, 5)
	s.join(invite.Token, "guest@example.com")
	s.clock.now = s.clock.now.Add(97 * time.Hour)

	_, err := s.app.Invites.RedeemInvite(ctx, invite.Token, "late@example.com", nil)
	s.Equal(KindConflict, s.kindOf(err))
	s.Equal("Cannot Join Event at this time!", err.Error())

	stored := s.reload(event.ID)
	s.Equal(types.EVENT_STARTED, stored.EventStatus)
	_, err = s.store.Participants().Find(ctx, event.ID, "late@example.com")
	s.ErrorIs(err, repository.ErrNotFound)
	tokens, err := s.store.Invites().FindByEvent(ctx, event.ID)
	s.Require().NoError(err)
	s.Equal(uint(1), tokens.Registered)
}

func (s *ServicesSuite) TestRedeemClosedEventReleasesSlot() {
	event, invite := s.approve(300, 300, 3, 5)
	changed, err := s.store.Events().TransitionStatus(ctx, event.ID, types.EVENT_CREATED, types.EVENT_STARTED)
	s.Require().NoError(err)
	s.Require().True(changed)

	_, err = s.app.Invites.RedeemInvite(ctx, invite.Token, "guest@example.com", nil)
	s.Equal(KindConflict, s.kindOf(err))
	s.Equal("Cannot Join Event at this time!", err.Error())

	stored, err := s.store.Invites().FindByEvent(ctx, event.ID)
	s.Require().NoError(err)
	s.Zero(stored.Registered)
}

func (s *ServicesSuite) TestEditEventLockedAfterPreLaunch() {
	event, _ := s.approve(1000, 400, 2, 10)
	s.clock.now = s.reload(event.ID).CreatedAt.Add(25 * time.Hour)

	body := types.UpdateEventBody{TripDetailsBody: s.trip(12)}
	_, err := s.app.Lifecycle.EditEvent(ctx, event.Slug, body)
	s.Equal(KindConflict, s.kindOf(err))
	s.Equal(lockedMessage, err.Error())
	s.Equal(uint(10), s.reload(event.ID).TripDetails.PassengerCount)
}

func (s *ServicesSuite) TestEditEventRecomputesPendingShares() {
	event, invite := s.approve(1000, 400, 2, 10, "cohost@example.com")
	s.join(invite.Token, s.client.Email)
	s.join(invite.Token, "guest@example.com")

	body := types.UpdateEventBody{
		TripDetailsBody: s.trip(12),
		Terms:           &types.PaymentTermsBody{TotalAmount: 1200, PendingAmount: 900, EquityDivision: 3},
	}
	updated, err := s.app.Lifecycle.EditEvent(ctx, event.Slug, body)
	s.Require().NoError(err)
	s.Equal(uint(12), updated.TripDetails.PassengerCount)

	stored := s.reload(event.ID)
	s.Equal(int64(900), stored.PendingAmount)
	s.Equal(int64(300), stored.DepositAmount)
	s.Equal(int64(900), stored.InitialEquity)
	s.Equal(types.PAYMENT_PENDING, stored.PaymentStatus)
	s.assertBalanced(event.ID)

	s.Equal(int64(300), s.participant(event.ID, "cohost@example.com").EquityAmount)
	s.Equal(int64(300), s.participant(event.ID, "guest@example.com").EquityAmount)
	host := s.participant(event.ID, s.client.Email)
	s.Equal(int64(600), host.EquityAmount)
	s.Equal(types.PAYMENT_PAID, host.PaymentStatus)

	s.Contains(s.titlesFor(s.client.ID), "Event Updated")
}

func (s *ServicesSuite) TestEditEventClearingPendingMarksPaid() {
	event, invite := s.approve(1000, 400, 2, 10)
	s.join(invite.Token, "guest@example.com")

	body := types.UpdateEventBody{
		TripDetailsBody: s.trip(10),
		Terms:           &types.PaymentTermsBody{TotalAmount: 1000, PendingAmount: 0, EquityDivision: 2},
	}
	_, err := s.app.Lifecycle.EditEvent(ctx, event.Slug, body)
	s.Require().NoError(err)

	s.Equal(types.PAYMENT_PAID, s.reload(event.ID).PaymentStatus)
	guest := s.participant(event.ID, "guest@example.com")
	s.Zero(guest.EquityAmount)
	s.Equal(types.PAYMENT_PAID, guest.PaymentStatus)
}

func (s *ServicesSuite) TestEditRequest() {
	req := s.request(10)
	body := types.EditEventRequestBody{
		TripDetailsBody: s.trip(4),
		Participants:    []string{"Client@example.com", "friend@example.com"},
	}
	owner := Viewer{ID: s.client.ID, Email: s.client.Email, Role: s.client.Role}
	updated, err := s.app.Lifecycle.EditRequest(ctx, owner, req.Slug, body)
	s.Require().NoError(err)
	s.Equal(uint(4), updated.TripDetails.PassengerCount)
	s.Equal([]string{"client@example.com", "friend@example.com"}, []string(updated.Participants))
	s.Contains(s.titlesFor(s.client.ID), "Request Updated")

	_, err = s.app.Lifecycle.EditRequest(ctx, owner, "missing", body)
	s.Equal(KindNotFound, s.kindOf(err))

	stranger := s.createUser("stranger@example.com", types.USER)
	_, err = s.app.Lifecycle.EditRequest(ctx, Viewer{ID: stranger.ID, Email: stranger.Email, Role: stranger.Role}, req.Slug, body)
	s.Equal(KindForbidden, s.kindOf(err))
}

func (s *ServicesSuite) TestExpiryPrefersStarted() {
	event, _ := s.approve(1000, 400, 2, 10)
	stored := s.reload(event.ID)
	s.clock.now = stored.ExpiresAt.Add(time.Hour)

	viewer := Viewer{ID: s.admin.ID, Email: s.admin.Email, Role: s.admin.Role}
	got, err := s.app.Lifecycle.GetEvent(ctx, viewer, event.Slug)
	s.Require().NoError(err)
	s.Equal(types.EVENT_STARTED, got.EventStatus)

	first := s.reload(event.ID)
	s.Equal(types.EVENT_STARTED, first.EventStatus)

	again, err := s.app.Lifecycle.SharedEvent(ctx, event.Slug)
	s.Require().NoError(err)
	s.Equal(types.EVENT_STARTED, again.EventStatus)
	s.True(first.UpdatedAt.Equal(s.reload(event.ID).UpdatedAt))
}

func (s *ServicesSuite) TestExpiryMarksExpired() {
	pickup := s.clock.now.Add(48 * time.Hour)
	expired := s.clock.now.Add(-time.Hour)
	event := &models.Event{
		Slug:           "stale-trip",
		TripDetails:    models.TripDetails{Name: "Stale", ClientName: "Acme", PickupDate: pickup, PassengerCount: 2, HoursReserved: 2},
		EquityDivision: 1,
		EventStatus:    types.EVENT_PENDING,
		ExpiresAt:      &expired,
	}
	s.Require().NoError(s.store.Events().Create(ctx, event))

	got, err := s.app.Lifecycle.SharedEvent(ctx, "stale-trip")
	s.Require().NoError(err)
	s.Equal(types.EVENT_EXPIRED, got.EventStatus)
	s.Equal(types.EVENT_EXPIRED, s.reload(event.ID).EventStatus)
}

func (s *ServicesSuite) TestSweepExpired() {
	due, _ := s.approve(1000, 400, 2, 10)
	body := types.CreateEventRequestBody{TripDetailsBody: s.trip(10)}
	body.PickupDate = s.clock.now.Add(30 * 24 * time.Hour).Format(time.RFC3339)
	far, err := s.app.Lifecycle.CreateRequest(ctx, body, s.client.Email, nil)
	s.Require().NoError(err)
	farEvent, _, err := s.app.Lifecycle.ApproveRequest(ctx, far.Slug, types.PaymentTermsBody{TotalAmount: 10, PendingAmount: 10, EquityDivision: 1})
	s.Require().NoError(err)

	s.clock.now = s.clock.now.Add(5 * 24 * time.Hour)
	moved, err := s.app.Lifecycle.SweepExpired(ctx)
	s.Require().NoError(err)
	s.Equal(1, moved)
	s.Equal(types.EVENT_STARTED, s.reload(due.ID).EventStatus)
	s.Equal(types.EVENT_CREATED, s.reload(farEvent.ID).EventStatus)

	moved, err = s.app.Lifecycle.SweepExpired(ctx)
	s.Require().NoError(err)
	s.Zero(moved)
}

func (s *ServicesSuite) TestDeleteEvent() {
	event, invite := s.approve(1000, 400, 2, 10)
	s.join(invite.Token, "guest@example.com")
	_, err := s.store.Events().TransitionStatus(ctx, event.ID, types.EVENT_CREATED, types.EVENT_STARTED)
	s.Require().NoError(err)

	err = s.app.Lifecycle.DeleteEvent(ctx, event.Slug)
	s.Equal(KindConflict, s.kindOf(err))
	s.participant(event.ID, "guest@example.com")
	_, err = s.store.Invites().FindByEvent(ctx, event.ID)
	s.NoError(err)

	other, otherInvite := s.approve(100, 100, 1, 10)
	s.join(otherInvite.Token, "guest@example.com")
	s.Require().NoError(s.app.Lifecycle.DeleteEvent(ctx, other.Slug))
	_, err = s.store.Events().FindByID(ctx, other.ID)
	s.ErrorIs(err, repository.ErrNotFound)
	participants, err := s.store.Participants().ListByEvent(ctx, other.ID)
	s.Require().NoError(err)
	s.Empty(participants)
	_, err = s.store.Invites().FindByEvent(ctx, other.ID)
	s.ErrorIs(err, repository.ErrNotFound)
}

func (s *ServicesSuite) TestDeleteEventAfterPickupWithoutRead() {
	event, invite := s.approve(1000, 400, 2, 10)
	s.join(invite.Token, "guest@example.com")
	s.clock.now = s.clock.now.Add(97 * time.Hour)
	s.Equal(types.EVENT_CREATED, s.reload(event.ID).EventStatus)

	err := s.app.Lifecycle.DeleteEvent(ctx, event.Slug)
	s.Equal(KindConflict, s.kindOf(err))
	s.Equal(types.EVENT_STARTED, s.reload(event.ID).EventStatus)
	s.participant(event.ID, "guest@example.com")
}

func (s *ServicesSuite) TestGetEventsReconcilesExpiry() {
	event, _ := s.approve(1000, 400, 2, 10)
	s.clock.now = s.clock.now.Add(97 * time.Hour)

	admin := Viewer{ID: s.admin.ID, Email: s.admin.Email, Role: s.admin.Role}
	events, total, err := s.app.Lifecycle.GetEvents(ctx, admin, types.EventQueryFilters{})
	s.Require().NoError(err)
	s.Equal(int64(1), total)
	s.Equal(types.EVENT_STARTED, events[0].EventStatus)
	s.Equal(types.EVENT_STARTED, s.reload(event.ID).EventStatus)
}

func (s *ServicesSuite) TestAddEvent() {
	admin := Viewer{ID: s.admin.ID, Email: s.admin.Email, Role: s.admin.Role}
	body := types.AddEventBody{
		TripDetailsBody: s.trip(10),
		Terms:           types.PaymentTermsBody{TotalAmount: 1000, PendingAmount: 400, EquityDivision: 2},
	}
	event, err := s.app.Lifecycle.AddEvent(ctx, admin, body)
	s.Require().NoError(err)
	s.True(strings.HasPrefix(event.Slug, "acme-corp-"))
	s.Nil(event.RequestID)

	stored := s.reload(event.ID)
	s.Equal(types.EVENT_PENDING, stored.EventStatus)
	s.Equal(types.PAYMENT_PENDING, stored.PaymentStatus)
	s.Equal(int64(400), stored.InitialEquity)
	s.Equal(int64(600), stored.DepositAmount)
	s.Equal(s.admin.ID, stored.CreatedBy)
	s.assertBalanced(event.ID)

	url, err := s.app.Lifecycle.CreateEvent(ctx, event.Slug, s.client.Email, []string{"cohost@example.com"})
	s.Require().NoError(err)
	s.True(strings.HasPrefix(url, s.cfg.ClientURL+"/"))
	s.Equal(types.EVENT_CREATED, s.reload(event.ID).EventStatus)
	s.Equal(int64(200), s.participant(event.ID, "cohost@example.com").EquityAmount)

	invite, err := s.store.Invites().FindByEvent(ctx, event.ID)
	s.Require().NoError(err)
	host := s.join(invite.Token, s.client.Email)
	s.Equal(types.ROLE_HOST, host.Role)
	s.Equal(types.PAYMENT_PAID, host.PaymentStatus)

	paid := types.AddEventBody{
		TripDetailsBody: s.trip(4),
		Terms:           types.PaymentTermsBody{TotalAmount: 500, PendingAmount: 0, EquityDivision: 1},
	}
	settled, err := s.app.Lifecycle.AddEvent(ctx, admin, paid)
	s.Require().NoError(err)
	s.Equal(types.PAYMENT_PAID, settled.PaymentStatus)

	invalid := []types.PaymentTermsBody{
		{TotalAmount: 100, PendingAmount: 200, EquityDivision: 1},
		{TotalAmount: 100, PendingAmount: 50, EquityDivision: 0},
		{TotalAmount: -1, PendingAmount: 0, EquityDivision: 1},
	}
	for _, terms := range invalid {
		_, err := s.app.Lifecycle.AddEvent(ctx, admin, types.AddEventBody{TripDetailsBody: s.trip(4), Terms: terms})
		s.Equal(KindValidation, s.kindOf(err))
	}
}

func (s *ServicesSuite) TestGetEventsScopesToParticipants() {
	first, invite := s.approve(1000, 400, 2, 10)
	s.approve(500, 100, 1, 10)
	guest := s.createUser("guest@example.com", types.USER)
	s.join(invite.Token, guest.Email)

	events, total, err := s.app.Lifecycle.GetEvents(ctx, Viewer{ID: guest.ID, Email: guest.Email, Role: guest.Role}, types.EventQueryFilters{})
	s.Require().NoError(err)
	s.Equal(int64(1), total)
	s.Equal(first.ID, events[0].ID)

	_, total, err = s.app.Lifecycle.GetEvents(ctx, Viewer{ID: s.admin.ID, Email: s.admin.Email, Role: s.admin.Role}, types.EventQueryFilters{})
	s.Require().NoError(err)
	s.Equal(int64(2), total)

	_, err = s.app.Lifecycle.GetEvent(ctx, Viewer{Email: "stranger@example.com", Role: types.USER}, first.Slug)
	s.Equal(KindForbidden, s.kindOf(err))

	got, err := s.app.Lifecycle.GetEvent(ctx, Viewer{ID: guest.ID, Email: guest.Email, Role: guest.Role}, first.Slug)
	s.Require().NoError(err)
	s.Len(got.Participants, 1)
}

func (s *ServicesSuite) TestGetRequestsScopesToCreator() {
	s.request(10)
	other := s.createUser("other@example.com", types.USER)
	_, err := s.app.Lifecycle.CreateRequest(ctx, types.CreateEventRequestBody{TripDetailsBody: s.trip(2)}, other.Email, nil)
	s.Require().NoError(err)

	_, total, err := s.app.Lifecycle.GetRequests(ctx, Viewer{ID: other.ID, Email: other.Email, Role: other.Role}, types.PageQuery{})
	s.Require().NoError(err)
	s.Equal(int64(1), total)

	_, total, err = s.app.Lifecycle.GetRequests(ctx, Viewer{ID: s.admin.ID, Role: s.admin.Role}, types.PageQuery{})
	s.Require().NoError(err)
	s.Equal(int64(2), total)
}
