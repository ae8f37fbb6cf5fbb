package services

import (
	"context"
	"errors"
	"log"
	"time"

	"falcontour/src/config"
	"falcontour/src/lib"
	"falcontour/src/models"
	"falcontour/src/repository"
	"falcontour/src/types"
	"falcontour/src/utils"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const resetPurpose = "reset"

type AuthResult struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// Users handles accounts and admits them to events on sign-in.
type Users struct {
	store    repository.Store
	invites  *Invites
	verifier IdentityVerifier
	cfg      *config.Config
}

func NewUsers(store repository.Store, invites *Invites, verifier IdentityVerifier, cfg *config.Config) *Users {
	return &Users{store: store, invites: invites, verifier: verifier, cfg: cfg}
}

func (s *Users) issue(user *models.User) (*AuthResult, error) {
	token, err := lib.IssueToken(s.cfg.JWTSecret, user.ID, user.Email, user.Role, "", s.cfg.JWTExpiry)
	if err != nil {
		log.Printf("Error signing token for user [%d]: %s\n", user.ID, err.Error())
		return nil, err
	}
	return &AuthResult{Token: token, User: user}, nil
}

// createAndRedeem stores a new user and redeems the invite in one transaction.
func (s *Users) createAndRedeem(ctx context.Context, user *models.User, token string) error {
	var r *redemption
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		if err := tx.Users().Create(ctx, user); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return conflict("User already exists!")
			}
			return err
		}
		var err error
		r, err = s.invites.redeem(ctx, tx, token, user.Email, &user.ID)
		return err
	})
	if err != nil {
		s.invites.reconcileRejected(ctx, r)
		return err
	}
	s.invites.announce(ctx, r, &user.ID)
	return nil
}

func (s *Users) Register(ctx context.Context, email, password, token string) (*AuthResult, error) {
	if token == "" {
		return nil, validation("Invite token is required")
	}
	email = utils.NormalizeEmail(email)
	if _, err := s.store.Users().FindByEmail(ctx, email); err == nil {
		return nil, conflict("User already exists!")
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	user := &models.User{Email: email, Password: string(hash), Role: types.USER}
	if err := s.createAndRedeem(ctx, user, token); err != nil {
		return nil, err
	}
	return s.issue(user)
}

func (s *Users) Login(ctx context.Context, email, password string, token *string) (*AuthResult, error) {
	email = utils.NormalizeEmail(email)
	user, err := s.store.Users().FindByEmail(ctx, email)
	if err != nil {
		return nil, notFound(err, "User")
	}
	if user.Password == "" || bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
		return nil, unauthorized("Incorrect Password")
	}
	if token != nil && *token != "" {
		if _, err := s.invites.RedeemInvite(ctx, *token, email, &user.ID); err != nil {
			return nil, err
		}
	}
	return s.issue(user)
}

func (s *Users) verify(ctx context.Context, idToken string) (*types.FederatedIdentity, error) {
	identity, err := s.verifier.Verify(ctx, idToken)
	if errors.Is(err, lib.ErrUnsupportedProvider) {
		return nil, validation("%s", err.Error())
	}
	if err != nil {
		log.Printf("Error verifying id token: %s\n", err.Error())
		return nil, &Error{Kind: KindUnauthorized, Msg: "Invalid identity token", Err: err}
	}
	identity.Email = utils.NormalizeEmail(identity.Email)
	return identity, nil
}

func (s *Users) RegisterWithOAuth(ctx context.Context, idToken, token string) (*AuthResult, error) {
	if token == "" {
		return nil, validation("Invite token is required")
	}
	identity, err := s.verify(ctx, idToken)
	if err != nil {
		return nil, err
	}
	if _, err := s.store.Users().FindByOAuth(ctx, identity.Provider, identity.Subject); err == nil {
		return nil, conflict("User already exists!")
	}
	if _, err := s.store.Users().FindByEmail(ctx, identity.Email); err == nil {
		return nil, conflict("User already exists!")
	}
	user := &models.User{
		Email:         identity.Email,
		FullName:      identity.Name,
		Role:          types.USER,
		OAuthProvider: &identity.Provider,
		OAuthSubject:  &identity.Subject,
	}
	if err := s.createAndRedeem(ctx, user, token); err != nil {
		return nil, err
	}
	return s.issue(user)
}

// LoginWithOAuth matches the user by provider and subject, then by email.
// A match by email links the provider to the account.
func (s *Users) LoginWithOAuth(ctx context.Context, idToken string, token *string) (*AuthResult, error) {
	identity, err := s.verify(ctx, idToken)
	if err != nil {
		return nil, err
	}
	user, err := s.store.Users().FindByOAuth(ctx, identity.Provider, identity.Subject)
	if errors.Is(err, repository.ErrNotFound) {
		user, err = s.store.Users().FindByEmail(ctx, identity.Email)
		if err != nil {
			return nil, notFound(err, "User")
		}
		user.OAuthProvider = &identity.Provider
		user.OAuthSubject = &identity.Subject
		if err := s.store.Users().Update(ctx, user); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	}
	if token != nil && *token != "" {
		if _, err := s.invites.RedeemInvite(ctx, *token, user.Email, &user.ID); err != nil {
			return nil, err
		}
	}
	return s.issue(user)
}

func (s *Users) Me(ctx context.Context, userId uint) (*models.User, error) {
	user, err := s.store.Users().FindByID(ctx, userId)
	if err != nil {
		return nil, notFound(err, "User")
	}
	return user, nil
}

func (s *Users) AddUserDetails(ctx context.Context, email string, body types.UserDetailsBody) (*models.User, error) {
	user, err := s.store.Users().FindByEmail(ctx, utils.NormalizeEmail(email))
	if err != nil {
		return nil, notFound(err, "User")
	}
	user.FullName = body.FullName
	if body.PhoneNumber != "" {
		user.PhoneNumber = body.PhoneNumber
	}
	if body.DateOfBirth != nil {
		dob, err := time.Parse(time.DateOnly, *body.DateOfBirth)
		if err != nil {
			return nil, validation("Invalid date of birth: %s", *body.DateOfBirth)
		}
		user.DateOfBirth = &dob
	}
	if err := s.store.Users().Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// ResetPassword sets a new password from a reset token issued by VerifyOTP.
// A non-empty caller must match the subject of the token.
func (s *Users) ResetPassword(ctx context.Context, caller string, resetToken, password string) error {
	claims, err := lib.ParseToken(s.cfg.ResetSecret, resetToken)
	if err != nil || claims.Purpose != resetPurpose {
		return unauthorized("Invalid or expired reset token")
	}
	if caller != "" && utils.NormalizeEmail(caller) != claims.Email {
		return forbidden("Reset token does not belong to you")
	}
	user, err := s.store.Users().FindByEmail(ctx, claims.Email)
	if err != nil {
		return notFound(err, "User")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	user.Password = string(hash)
	return s.store.Users().Update(ctx, user)
}

func (s *Users) Notifications(ctx context.Context, userId uint, page types.PageQuery) ([]models.Notification, int64, error) {
	return s.store.Notifications().ListForUser(ctx, userId, repository.Page{Page: page.Page, Limit: page.Limit})
}

// MarkRead marks the listed notifications of the user as read, or all of
// them when ids is empty.
func (s *Users) MarkRead(ctx context.Context, userId uint, ids []string) (int64, error) {
	parsed := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		u, err := uuid.Parse(id)
		if err != nil {
			return 0, validation("Invalid notification id: %s", id)
		}
		parsed = append(parsed, u)
	}
	return s.store.Notifications().MarkRead(ctx, userId, parsed)
}

// SeedAdmin creates the configured admin account when it is missing.
func (s *Users) SeedAdmin(ctx context.Context, email, password string) error {
	email = utils.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil
	}
	if _, err := s.store.Users().FindByEmail(ctx, email); err == nil {
		return nil
	} else if !errors.Is(err, repository.ErrNotFound) {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	log.Printf("Seeding admin account %s\n", email)
	return s.store.Users().Create(ctx, &models.User{Email: email, Password: string(hash), Role: types.ADMIN, FullName: "Administrator"})
}
