package services

import (
	"errors"
	"regexp"
	"time"

	"falcontour/src/lib"
	"falcontour/src/repository"
	"falcontour/src/types"
)

var codePattern = regexp.MustCompile(`<b>(\d{6})</b>`)

func (s *ServicesSuite) lastCode() string {
	s.Require().NotEmpty(s.mailer.sent)
	match := codePattern.FindStringSubmatch(s.mailer.sent[len(s.mailer.sent)-1].Body)
	s.Require().Len(match, 2)
	return match[1]
}

func (s *ServicesSuite) TestRegisterRedeemsInvite() {
	event, invite := s.approve(1000, 400, 2, 10)

	_, err := s.app.Users.Register(ctx, "guest@example.com", "password123", "")
	s.Equal(KindValidation, s.kindOf(err))

	result, err := s.app.Users.Register(ctx, " Guest@Example.com", "password123", invite.Token)
	s.Require().NoError(err)
	s.Equal("guest@example.com", result.User.Email)

	claims, err := lib.ParseToken(s.cfg.JWTSecret, result.Token)
	s.Require().NoError(err)
	s.Equal("guest@example.com", claims.Email)
	s.Empty(claims.Purpose)

	guest := s.participant(event.ID, "guest@example.com")
	s.Require().NotNil(guest.UserID)
	s.Equal(result.User.ID, *guest.UserID)

	_, err = s.app.Users.Register(ctx, "guest@example.com", "password123", invite.Token)
	s.Equal(KindConflict, s.kindOf(err))
	s.Equal("User already exists!", err.Error())
}

func (s *ServicesSuite) TestRegisterWithBadInviteCreatesNoUser() {
	_, err := s.app.Users.Register(ctx, "guest@example.com", "password123", "not-a-token")
	s.Equal(KindNotFound, s.kindOf(err))

	_, err = s.store.Users().FindByEmail(ctx, "guest@example.com")
	s.ErrorIs(err, repository.ErrNotFound)
}

func (s *ServicesSuite) TestLogin() {
	event, invite := s.approve(1000, 400, 2, 10)
	_, err := s.app.Users.Register(ctx, "guest@example.com", "password123", invite.Token)
	s.Require().NoError(err)

	_, err = s.app.Users.Login(ctx, "guest@example.com", "wrong", nil)
	s.Equal(KindUnauthorized, s.kindOf(err))
	s.Equal("Incorrect Password", err.Error())

	_, err = s.app.Users.Login(ctx, "nobody@example.com", "password123", nil)
	s.Equal(KindNotFound, s.kindOf(err))

	_, err = s.app.Users.Login(ctx, s.client.Email, "anything", nil)
	s.Equal(KindUnauthorized, s.kindOf(err))

	other, otherInvite := s.approve(100, 100, 1, 10)
	result, err := s.app.Users.Login(ctx, "GUEST@example.com", "password123", &otherInvite.Token)
	s.Require().NoError(err)
	s.NotEmpty(result.Token)
	s.participant(other.ID, "guest@example.com")
	s.participant(event.ID, "guest@example.com")
}

func (s *ServicesSuite) TestOAuthLoginLinksExistingAccount() {
	s.verifier.On("Verify", "google-token").Return(&types.FederatedIdentity{
		Provider: "google.com", Subject: "g-123", Email: "Client@Example.com", Name: "Client",
	}, nil)

	result, err := s.app.Users.LoginWithOAuth(ctx, "google-token", nil)
	s.Require().NoError(err)
	s.Equal(s.client.ID, result.User.ID)

	linked, err := s.store.Users().FindByOAuth(ctx, "google.com", "g-123")
	s.Require().NoError(err)
	s.Equal(s.client.ID, linked.ID)

	again, err := s.app.Users.LoginWithOAuth(ctx, "google-token", nil)
	s.Require().NoError(err)
	s.Equal(s.client.ID, again.User.ID)
}

func (s *ServicesSuite) TestOAuthRegister() {
	event, invite := s.approve(1000, 400, 2, 10)
	s.verifier.On("Verify", "new-token").Return(&types.FederatedIdentity{
		Provider: "facebook.com", Subject: "fb-9", Email: "guest@example.com", Name: "Guest",
	}, nil)

	result, err := s.app.Users.RegisterWithOAuth(ctx, "new-token", invite.Token)
	s.Require().NoError(err)
	s.Equal("Guest", result.User.FullName)
	s.Equal("facebook.com", *result.User.OAuthProvider)
	s.participant(event.ID, "guest@example.com")

	_, err = s.app.Users.RegisterWithOAuth(ctx, "new-token", invite.Token)
	s.Equal(KindConflict, s.kindOf(err))
}

func (s *ServicesSuite) TestOAuthRejectsBadTokens() {
	s.verifier.On("Verify", "apple-token").Return(nil, lib.ErrUnsupportedProvider)
	s.verifier.On("Verify", "stale-token").Return(nil, errors.New("token expired"))

	_, err := s.app.Users.LoginWithOAuth(ctx, "apple-token", nil)
	s.Equal(KindValidation, s.kindOf(err))
	_, err = s.app.Users.LoginWithOAuth(ctx, "stale-token", nil)
	s.Equal(KindUnauthorized, s.kindOf(err))
}

func (s *ServicesSuite) TestAddUserDetails() {
	dob := "1990-04-12"
	user, err := s.app.Users.AddUserDetails(ctx, s.client.Email, types.UserDetailsBody{FullName: "Pat Client", PhoneNumber: "+15555550101", DateOfBirth: &dob})
	s.Require().NoError(err)
	s.Equal("Pat Client", user.FullName)
	s.Equal(1990, user.DateOfBirth.Year())

	bad := "12/04/1990"
	_, err = s.app.Users.AddUserDetails(ctx, s.client.Email, types.UserDetailsBody{FullName: "Pat", DateOfBirth: &bad})
	s.Equal(KindValidation, s.kindOf(err))
}

func (s *ServicesSuite) TestOTPResetFlow() {
	s.Require().NoError(s.app.OTPs.RequestOTP(ctx, "Client@Example.com"))
	s.Equal("Your FalconTour verification code", s.mailer.sent[0].Subject)
	code := s.lastCode()

	err := s.app.OTPs.RequestOTP(ctx, s.client.Email)
	s.Equal(KindConflict, s.kindOf(err))

	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}
	_, err = s.app.OTPs.VerifyOTP(ctx, s.client.Email, wrong)
	s.Equal(KindUnauthorized, s.kindOf(err))

	resetToken, err := s.app.OTPs.VerifyOTP(ctx, s.client.Email, code)
	s.Require().NoError(err)
	_, err = s.app.OTPs.VerifyOTP(ctx, s.client.Email, code)
	s.Equal(KindUnauthorized, s.kindOf(err))

	err = s.app.Users.ResetPassword(ctx, "someone@example.com", resetToken, "new-password")
	s.Equal(KindForbidden, s.kindOf(err))

	s.Require().NoError(s.app.Users.ResetPassword(ctx, "", resetToken, "new-password"))
	_, err = s.app.Users.Login(ctx, s.client.Email, "new-password", nil)
	s.NoError(err)
}

func (s *ServicesSuite) TestResetPasswordRejectsSessionTokens() {
	token, err := lib.IssueToken(s.cfg.ResetSecret, s.client.ID, s.client.Email, s.client.Role, "", time.Minute)
	s.Require().NoError(err)
	err = s.app.Users.ResetPassword(ctx, "", token, "new-password")
	s.Equal(KindUnauthorized, s.kindOf(err))
}

func (s *ServicesSuite) TestOTPRateLimit() {
	s.cfg.OTPRequestBuffer = 0
	s.clock.now = time.Now().Add(time.Second)
	for range 5 {
		s.Require().NoError(s.app.OTPs.RequestOTP(ctx, s.client.Email))
	}
	err := s.app.OTPs.RequestOTP(ctx, s.client.Email)
	s.Equal(KindConflict, s.kindOf(err))
	s.Equal("Too many requests. Try again later.", err.Error())
}

func (s *ServicesSuite) TestOTPSendFailureDiscardsCode() {
	s.mailer.fail = errors.New("smtp unavailable")
	err := s.app.OTPs.RequestOTP(ctx, s.client.Email)
	s.Equal(KindExternal, s.kindOf(err))

	count, err := s.store.OTPs().Count(ctx, s.client.ID)
	s.Require().NoError(err)
	s.Zero(count)
}

func (s *ServicesSuite) TestNotificationsMarkRead() {
	s.request(10)
	rows, total, err := s.app.Users.Notifications(ctx, s.admin.ID, types.PageQuery{Page: 1, Limit: 10})
	s.Require().NoError(err)
	s.Equal(int64(1), total)
	s.False(rows[0].Read)

	_, err = s.app.Users.MarkRead(ctx, s.admin.ID, []string{"not-a-uuid"})
	s.Equal(KindValidation, s.kindOf(err))

	n, err := s.app.Users.MarkRead(ctx, s.admin.ID, []string{rows[0].ID.String()})
	s.Require().NoError(err)
	s.Equal(int64(1), n)
	rows, _, err = s.app.Users.Notifications(ctx, s.admin.ID, types.PageQuery{})
	s.Require().NoError(err)
	s.True(rows[0].Read)
}

func (s *ServicesSuite) TestSeedAdminIsIdempotent() {
	s.Require().NoError(s.app.Users.SeedAdmin(ctx, "Root@FalconTour.test", "secret-pass"))
	s.Require().NoError(s.app.Users.SeedAdmin(ctx, "root@falcontour.test", "other-pass"))

	admins, err := s.store.Users().ListAdmins(ctx)
	s.Require().NoError(err)
	s.Len(admins, 2)
	_, err = s.app.Users.Login(ctx, "root@falcontour.test", "secret-pass", nil)
	s.NoError(err)
}
