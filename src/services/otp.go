package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"falcontour/src/config"
	"falcontour/src/lib"
	"falcontour/src/models"
	"falcontour/src/repository"
	"falcontour/src/types"
	"falcontour/src/utils"

	"golang.org/x/crypto/bcrypt"
)

const otpLength = 6

// OTPs issues one-time codes for password resets.
type OTPs struct {
	store   repository.Store
	mailer  Mailer
	limiter Limiter
	cfg     *config.Config
	clock   Clock
}

func NewOTPs(store repository.Store, mailer Mailer, limiter Limiter, cfg *config.Config, clock Clock) *OTPs {
	if clock == nil {
		clock = systemClock{}
	}
	return &OTPs{store: store, mailer: mailer, limiter: limiter, cfg: cfg, clock: clock}
}

func (s *OTPs) RequestOTP(ctx context.Context, email string) error {
	email = utils.NormalizeEmail(email)
	user, err := s.store.Users().FindByEmail(ctx, email)
	if err != nil {
		return notFound(err, "User")
	}
	now := s.clock.Now()

	if s.limiter != nil {
		ok, err := s.limiter.Allow(ctx, "otp:"+email, s.cfg.OTPRequestBuffer)
		if err != nil {
			log.Printf("[redis] OTP cooldown unavailable: %s\n", err.Error())
		} else if !ok {
			return conflict("Please wait before requesting another code")
		}
	}
	latest, err := s.store.OTPs().Latest(ctx, user.ID)
	if err == nil && now.Sub(latest.CreatedAt) < s.cfg.OTPRequestBuffer {
		return conflict("Please wait before requesting another code")
	} else if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return err
	}
	recent, err := s.store.OTPs().CountSince(ctx, user.ID, now.Add(-s.cfg.OTPResetBuffer))
	if err != nil {
		return err
	}
	if recent >= int64(s.cfg.OTPResetLimit) {
		return conflict("Too many requests. Try again later.")
	}
	total, err := s.store.OTPs().Count(ctx, user.ID)
	if err != nil {
		return err
	}
	if total >= int64(s.cfg.OTPHistoryLimit) {
		if err := s.store.OTPs().DeleteForUser(ctx, user.ID); err != nil {
			return err
		}
	}

	code := utils.RandomDigits(otpLength)
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	otp := &models.OTP{UserID: user.ID, CodeHash: string(hash), ExpiresAt: now.Add(s.cfg.OTPExpiry)}
	if err := s.store.OTPs().Create(ctx, otp); err != nil {
		return err
	}

	err = s.mailer.Send(ctx, types.Email{
		To:      []string{email},
		Subject: "Your FalconTour verification code",
		Body: fmt.Sprintf(`
			<p>Your verification code is <b>%s</b>.</p>
			<p>It expires in %d minutes. If you did not request it you can ignore this email.</p>
		`, code, int(s.cfg.OTPExpiry.Minutes())),
		Html: true,
	})
	if err != nil {
		log.Printf("Error sending OTP to %s: %s\n", email, err.Error())
		if err := s.store.OTPs().Delete(ctx, otp.ID); err != nil {
			log.Printf("Error removing unsent OTP [%d]: %s\n", otp.ID, err.Error())
		}
		return external("Could not send verification code", err)
	}
	return nil
}

// VerifyOTP consumes a matching code and returns a short-lived reset token.
func (s *OTPs) VerifyOTP(ctx context.Context, email, code string) (string, error) {
	email = utils.NormalizeEmail(email)
	user, err := s.store.Users().FindByEmail(ctx, email)
	if err != nil {
		return "", notFound(err, "User")
	}
	active, err := s.store.OTPs().FindActive(ctx, user.ID, s.clock.Now())
	if err != nil {
		return "", err
	}
	for _, otp := range active {
		if bcrypt.CompareHashAndPassword([]byte(otp.CodeHash), []byte(code)) != nil {
			continue
		}
		if err := s.store.OTPs().MarkUsed(ctx, otp.ID); err != nil {
			if errors.Is(err, repository.ErrStaleWrite) {
				break
			}
			return "", err
		}
		return lib.IssueToken(s.cfg.ResetSecret, user.ID, user.Email, user.Role, resetPurpose, s.cfg.ResetExpiry)
	}
	return "", unauthorized("Invalid or expired OTP")
}
