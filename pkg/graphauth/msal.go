package graphauth

import (
	"context"
	"fmt"
	"sync"

	"github.com/AzureAD/microsoft-authentication-library-for-go/apps/confidential"
	"github.com/AzureAD/microsoft-authentication-library-for-go/apps/public"
)

// MSALIssuer issues tokens through the Microsoft Authentication Library.
// Confidential clients are kept per authority+client so the library's own
// token cache is available when a request opts out of force refresh.
type MSALIssuer struct {
	mu      sync.Mutex
	clients map[string]confidential.Client
}

// NewMSALIssuer creates an MSAL-backed token issuer.
func NewMSALIssuer() *MSALIssuer {
	return &MSALIssuer{clients: make(map[string]confidential.Client)}
}

// Issue implements TokenIssuer.
func (m *MSALIssuer) Issue(ctx context.Context, req IssueRequest) (*SessionToken, error) {
	if req.Interactive {
		return m.issueInteractive(ctx, req)
	}
	return m.issueByCredential(ctx, req)
}

// issueByCredential runs the confidential client flow. Without ForceRefresh
// the library cache is consulted first; the wire is only hit when the cache
// has nothing usable.
func (m *MSALIssuer) issueByCredential(ctx context.Context, req IssueRequest) (*SessionToken, error) {
	client, err := m.confidentialClient(req)
	if err != nil {
		return nil, err
	}

	if !req.ForceRefresh {
		if result, err := client.AcquireTokenSilent(ctx, req.Scopes); err == nil {
			return &SessionToken{Value: result.AccessToken, ExpiresOn: result.ExpiresOn}, nil
		}
	}

	result, err := client.AcquireTokenByCredential(ctx, req.Scopes)
	if err != nil {
		return nil, fmt.Errorf("acquire token by credential: %w", err)
	}
	return &SessionToken{Value: result.AccessToken, ExpiresOn: result.ExpiresOn}, nil
}

// issueInteractive runs the delegated flow: opens a browser against the
// authority and blocks until the user completes or abandons sign-in.
func (m *MSALIssuer) issueInteractive(ctx context.Context, req IssueRequest) (*SessionToken, error) {
	client, err := public.New(req.ClientID, public.WithAuthority(req.Authority))
	if err != nil {
		return nil, fmt.Errorf("create public client: %w", err)
	}

	result, err := client.AcquireTokenInteractive(ctx, req.Scopes, public.WithRedirectURI(req.RedirectURI))
	if err != nil {
		return nil, fmt.Errorf("acquire token interactively: %w", err)
	}
	return &SessionToken{Value: result.AccessToken, ExpiresOn: result.ExpiresOn}, nil
}

func (m *MSALIssuer) confidentialClient(req IssueRequest) (confidential.Client, error) {
	key := req.Authority + "|" + req.ClientID

	m.mu.Lock()
	defer m.mu.Unlock()

	if client, ok := m.clients[key]; ok {
		return client, nil
	}

	cred, err := confidential.NewCredFromSecret(req.ClientSecret)
	if err != nil {
		return confidential.Client{}, fmt.Errorf("build client credential: %w", err)
	}

	client, err := confidential.New(req.Authority, req.ClientID, cred)
	if err != nil {
		return confidential.Client{}, fmt.Errorf("create confidential client: %w", err)
	}

	m.clients[key] = client
	return client, nil
}
