// Package graphclient builds authenticated Microsoft Graph clients from an
// entradoc authentication session. The session stays the single source of
// the active token; this package only adapts it to the Graph SDK's
// credential and request-adapter plumbing.
package graphclient

import (
	"context"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	kiotaauth "github.com/microsoft/kiota-authentication-azure-go"
	msgraphsdk "github.com/microsoftgraph/msgraph-beta-sdk-go"

	"github.com/entradoc/entradoc/pkg/graphauth"
)

// SessionCredential exposes the session's active token as an
// azcore.TokenCredential. It never acquires: a request made before a
// successful connect surfaces the session's not-connected error.
type SessionCredential struct {
	session *graphauth.Session
}

// NewSessionCredential creates a credential backed by the session.
func NewSessionCredential(session *graphauth.Session) *SessionCredential {
	return &SessionCredential{session: session}
}

// GetToken implements azcore.TokenCredential.
func (c *SessionCredential) GetToken(ctx context.Context, options policy.TokenRequestOptions) (azcore.AccessToken, error) {
	token, err := c.session.ActiveToken()
	if err != nil {
		return azcore.AccessToken{}, err
	}
	return azcore.AccessToken{
		Token:     token.Value,
		ExpiresOn: token.ExpiresOn,
	}, nil
}

// New builds a Graph service client whose base URL is the session's
// sovereign-cloud Graph endpoint. The session must have an active cloud;
// requests additionally require an active token.
func New(session *graphauth.Session) (*msgraphsdk.GraphServiceClient, error) {
	base, err := session.GraphBaseURL()
	if err != nil {
		return nil, err
	}

	provider, err := kiotaauth.NewAzureIdentityAuthenticationProviderWithScopes(
		NewSessionCredential(session),
		[]string{base + "/.default"},
	)
	if err != nil {
		return nil, fmt.Errorf("create authentication provider: %w", err)
	}

	adapter, err := msgraphsdk.NewGraphRequestAdapter(provider)
	if err != nil {
		return nil, fmt.Errorf("create request adapter: %w", err)
	}
	adapter.SetBaseUrl(base + "/beta")

	return msgraphsdk.NewGraphServiceClient(adapter), nil
}
