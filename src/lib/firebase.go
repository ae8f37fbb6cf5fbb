package lib

import (
	"context"
	"errors"
	"falcontour/src/types"
	"fmt"
	"log"
	"os"
	"path"
	"slices"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"
)

var innerApp *firebase.App
var innerAuth *auth.Client

var SupportedProviders = []string{"google.com", "apple.com"}

var ErrUnsupportedProvider = errors.New("unsupported sign-in provider")

func getOpts() option.ClientOption {
	secretsPath := os.Getenv("SECRETS_DIR")
	return option.WithCredentialsFile(path.Join(secretsPath, "admin-sdk-credentials.json"))
}

func GetFirebaseAuth(ctx context.Context) (*auth.Client, error) {
	if innerAuth != nil {
		return innerAuth, nil
	}
	if innerApp == nil {
		app, err := firebase.NewApp(ctx, nil, getOpts())
		if err != nil {
			log.Printf("Error initializing app: %s\n", err.Error())
			return nil, err
		}
		innerApp = app
	}
	client, err := innerApp.Auth(ctx)
	if err != nil {
		log.Printf("Error initializing Firebase Auth: %s\n", err.Error())
		return nil, err
	}
	innerAuth = client
	return client, nil
}

func NewFirebaseApp(app *firebase.App) {
	innerApp = app
	innerAuth = nil
}

// FirebaseVerifier checks Firebase ID tokens minted by a federated sign-in.
type FirebaseVerifier struct{}

func (FirebaseVerifier) Verify(ctx context.Context, idToken string) (*types.FederatedIdentity, error) {
	client, err := GetFirebaseAuth(ctx)
	if err != nil {
		return nil, err
	}
	token, err := client.VerifyIDToken(ctx, idToken)
	if err != nil {
		log.Printf("Error verifying ID token: %s\n", err.Error())
		return nil, err
	}
	return IdentityFromToken(token)
}

// IdentityFromToken extracts the provider identity from a verified token.
func IdentityFromToken(token *auth.Token) (*types.FederatedIdentity, error) {
	provider := token.Firebase.SignInProvider
	if !slices.Contains(SupportedProviders, provider) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedProvider, provider)
	}
	identity := &types.FederatedIdentity{
		Provider: provider,
		Subject:  token.UID,
	}
	if ids, ok := token.Firebase.Identities[provider].([]any); ok && len(ids) > 0 {
		if sub, ok := ids[0].(string); ok {
			identity.Subject = sub
		}
	}
	if email, ok := token.Claims["email"].(string); ok {
		identity.Email = email
	}
	if name, ok := token.Claims["name"].(string); ok {
		identity.Name = name
	}
	return identity, nil
}
