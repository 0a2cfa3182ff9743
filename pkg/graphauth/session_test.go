package graphauth

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeIssuer struct {
	calls []IssueRequest
	token *SessionToken
	err   error
}

func (f *fakeIssuer) Issue(ctx context.Context, req IssueRequest) (*SessionToken, error) {
	f.calls = append(f.calls, req)
	if f.err != nil {
		return nil, f.err
	}
	return f.token, nil
}

func testSession(issuer TokenIssuer, now time.Time) *Session {
	return NewSession(
		WithIssuer(issuer),
		WithClock(func() time.Time { return now }),
	)
}

func TestConnect_ExternalTokenValid(t *testing.T) {
	now := time.Now()
	s := testSession(&fakeIssuer{}, now)

	external := &SessionToken{Value: "handed-in", ExpiresOn: now.Add(time.Hour)}
	result, err := s.Connect(context.Background(), CloudCommercial, &ExternalTokenSpec{Token: external}, ConnectOptions{})
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if result.Status != StatusConnected {
		t.Errorf("Status = %s, want connected", result.Status)
	}

	got, err := s.ActiveToken()
	if err != nil {
		t.Fatalf("ActiveToken() error = %v", err)
	}
	if got.Value != external.Value || !got.ExpiresOn.Equal(external.ExpiresOn) {
		t.Errorf("ActiveToken() = %+v, want value %q expiring %s", got, external.Value, external.ExpiresOn)
	}
	if got.AcquiredVia != MethodExternalToken {
		t.Errorf("AcquiredVia = %s, want external_token", got.AcquiredVia)
	}
}

func TestConnect_ExternalTokenExpired(t *testing.T) {
	now := time.Now()
	s := testSession(&fakeIssuer{}, now)

	seed := &SessionToken{Value: "still-good", ExpiresOn: now.Add(time.Hour)}
	if _, err := s.Connect(context.Background(), CloudCommercial, &ExternalTokenSpec{Token: seed}, ConnectOptions{}); err != nil {
		t.Fatalf("seed Connect() error = %v", err)
	}

	stale := &SessionToken{Value: "stale", ExpiresOn: now.Add(-time.Minute)}
	_, err := s.Connect(context.Background(), CloudCommercial, &ExternalTokenSpec{Token: stale}, ConnectOptions{})
	if err == nil {
		t.Fatal("Connect() expected error for expired external token")
	}
	if !IsCategory(err, ErrCategoryInvalidToken) {
		t.Errorf("Connect() error category = %v, want invalid_token", err)
	}

	// The previously valid token must survive the failed call.
	got, err := s.ActiveToken()
	if err != nil {
		t.Fatalf("ActiveToken() error = %v", err)
	}
	if got.Value != "still-good" {
		t.Errorf("ActiveToken() value = %q, want %q", got.Value, "still-good")
	}
}

func TestConnect_ExternalTokenNil(t *testing.T) {
	s := testSession(&fakeIssuer{}, time.Now())

	_, err := s.Connect(context.Background(), CloudCommercial, &ExternalTokenSpec{}, ConnectOptions{})
	if err == nil {
		t.Fatal("Connect() expected error for nil external token")
	}
	if !IsCategory(err, ErrCategoryInvalidToken) {
		t.Errorf("Connect() error category = %v, want invalid_token", err)
	}
}

func TestConnect_ExternalTokenBoundaryExpiry(t *testing.T) {
	now := time.Now()
	s := testSession(&fakeIssuer{}, now)

	edge := &SessionToken{Value: "edge", ExpiresOn: now}
	_, err := s.Connect(context.Background(), CloudCommercial, &ExternalTokenSpec{Token: edge}, ConnectOptions{})
	if err == nil {
		t.Fatal("Connect() expected error for token expiring exactly now")
	}
}

func TestConnect_InteractiveIdempotent(t *testing.T) {
	now := time.Now()
	issuer := &fakeIssuer{token: &SessionToken{Value: "fresh", ExpiresOn: now.Add(time.Hour)}}
	s := testSession(issuer, now)

	first, err := s.Connect(context.Background(), CloudCommercial, &DelegatedSpec{}, ConnectOptions{})
	if err != nil {
		t.Fatalf("first Connect() error = %v", err)
	}
	if first.Status != StatusConnected {
		t.Errorf("first Status = %s, want connected", first.Status)
	}

	second, err := s.Connect(context.Background(), CloudCommercial, &DelegatedSpec{}, ConnectOptions{})
	if err != nil {
		t.Fatalf("second Connect() error = %v", err)
	}
	if second.Status != StatusAlreadyConnected {
		t.Errorf("second Status = %s, want already_connected", second.Status)
	}
	if second.Token != first.Token {
		t.Error("second Connect() returned a different token than the first")
	}
	if len(issuer.calls) != 1 {
		t.Errorf("issuer calls = %d, want exactly 1", len(issuer.calls))
	}
}

func TestConnect_InteractiveForcedReconnect(t *testing.T) {
	now := time.Now()
	issuer := &fakeIssuer{token: &SessionToken{Value: "fresh", ExpiresOn: now.Add(time.Hour)}}
	s := testSession(issuer, now)

	if _, err := s.Connect(context.Background(), CloudCommercial, &DelegatedSpec{}, ConnectOptions{}); err != nil {
		t.Fatalf("first Connect() error = %v", err)
	}

	result, err := s.Connect(context.Background(), CloudCommercial, &DelegatedSpec{}, ConnectOptions{ForceReconnect: true})
	if err != nil {
		t.Fatalf("forced Connect() error = %v", err)
	}
	if result.Status != StatusReconnected {
		t.Errorf("Status = %s, want reconnected", result.Status)
	}
	if result.Token.AcquiredVia != MethodDelegated {
		t.Errorf("AcquiredVia = %s, want delegated", result.Token.AcquiredVia)
	}
	if len(issuer.calls) != 2 {
		t.Errorf("issuer calls = %d, want 2", len(issuer.calls))
	}
}

func TestConnect_InteractiveUsesCommonAuthority(t *testing.T) {
	now := time.Now()
	issuer := &fakeIssuer{token: &SessionToken{Value: "fresh", ExpiresOn: now.Add(time.Hour)}}
	s := testSession(issuer, now)

	if _, err := s.Connect(context.Background(), CloudGovernment, &DelegatedSpec{}, ConnectOptions{}); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	req := issuer.calls[0]
	if req.Authority != "https://login.microsoftonline.us/common" {
		t.Errorf("Authority = %q, want government common authority", req.Authority)
	}
	if req.ClientID != DefaultPublicClientID {
		t.Errorf("ClientID = %q, want default public client", req.ClientID)
	}
	if req.RedirectURI != DefaultRedirectURI {
		t.Errorf("RedirectURI = %q, want loopback default", req.RedirectURI)
	}
	if !req.Interactive {
		t.Error("Interactive = false, want true")
	}
}

func TestConnect_ClientSecretForceRefreshDefault(t *testing.T) {
	now := time.Now()
	issuer := &fakeIssuer{token: &SessionToken{Value: "fresh", ExpiresOn: now.Add(time.Hour)}}
	s := testSession(issuer, now)

	spec := &ClientSecretSpec{ClientID: "app", TenantID: "tenant", ClientSecret: "secret"}
	if _, err := s.Connect(context.Background(), CloudCommercial, spec, ConnectOptions{}); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	if !issuer.calls[0].ForceRefresh {
		t.Error("ForceRefresh = false, want true by default")
	}
	if issuer.calls[0].Authority != "https://login.microsoftonline.com/tenant" {
		t.Errorf("Authority = %q, want tenant-qualified", issuer.calls[0].Authority)
	}
}

func TestConnect_ClientSecretNeverRefresh(t *testing.T) {
	now := time.Now()
	issuer := &fakeIssuer{token: &SessionToken{Value: "fresh", ExpiresOn: now.Add(time.Hour)}}
	s := testSession(issuer, now)

	spec := &ClientSecretSpec{ClientID: "app", TenantID: "tenant", ClientSecret: "secret"}
	if _, err := s.Connect(context.Background(), CloudCommercial, spec, ConnectOptions{NeverRefreshToken: true}); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	if issuer.calls[0].ForceRefresh {
		t.Error("ForceRefresh = true, want false under never-refresh")
	}
}

func TestConnect_NeverRefreshReusesCachedToken(t *testing.T) {
	now := time.Now()
	issuer := &fakeIssuer{token: &SessionToken{Value: "fresh", ExpiresOn: now.Add(time.Hour)}}
	s := testSession(issuer, now)

	spec := &ClientSecretSpec{ClientID: "app", TenantID: "tenant", ClientSecret: "secret"}
	if _, err := s.Connect(context.Background(), CloudCommercial, spec, ConnectOptions{}); err != nil {
		t.Fatalf("first Connect() error = %v", err)
	}

	result, err := s.Connect(context.Background(), CloudCommercial, spec, ConnectOptions{NeverRefreshToken: true})
	if err != nil {
		t.Fatalf("second Connect() error = %v", err)
	}
	if result.Token.Value != "fresh" {
		t.Errorf("Token value = %q, want cached token", result.Token.Value)
	}
	if len(issuer.calls) != 1 {
		t.Errorf("issuer calls = %d, want 1 (cached token reused)", len(issuer.calls))
	}
}

func TestConnect_FailedAcquisitionPreservesToken(t *testing.T) {
	now := time.Now()
	s := testSession(&fakeIssuer{err: errors.New("identity service unavailable")}, now)

	seed := &SessionToken{Value: "still-good", ExpiresOn: now.Add(time.Hour)}
	if _, err := s.Connect(context.Background(), CloudCommercial, &ExternalTokenSpec{Token: seed}, ConnectOptions{}); err != nil {
		t.Fatalf("seed Connect() error = %v", err)
	}

	spec := &ClientSecretSpec{ClientID: "app", TenantID: "tenant", ClientSecret: "secret"}
	_, err := s.Connect(context.Background(), CloudCommercial, spec, ConnectOptions{})
	if err == nil {
		t.Fatal("Connect() expected error from failing issuer")
	}
	if !IsCategory(err, ErrCategoryAuthFailed) {
		t.Errorf("Connect() error category = %v, want auth_failed", err)
	}

	got, err := s.ActiveToken()
	if err != nil {
		t.Fatalf("ActiveToken() error = %v", err)
	}
	if got.Value != "still-good" {
		t.Errorf("ActiveToken() value = %q, want preserved token", got.Value)
	}
}

func TestConnect_UnknownCloud(t *testing.T) {
	s := testSession(&fakeIssuer{}, time.Now())

	_, err := s.Connect(context.Background(), Cloud("germany"), &DelegatedSpec{}, ConnectOptions{})
	if err == nil {
		t.Fatal("Connect() expected error for unknown cloud")
	}
	if !IsCategory(err, ErrCategoryUnknownCloud) {
		t.Errorf("Connect() error category = %v, want unknown_cloud", err)
	}
}

func TestConnect_CloudSetBeforeAcquisitionFails(t *testing.T) {
	now := time.Now()
	s := testSession(&fakeIssuer{err: errors.New("boom")}, now)

	spec := &ClientSecretSpec{ClientID: "app", TenantID: "tenant", ClientSecret: "secret"}
	if _, err := s.Connect(context.Background(), CloudGCCHigh, spec, ConnectOptions{}); err == nil {
		t.Fatal("Connect() expected error")
	}

	// Collaborators still see the selected cloud for error reporting.
	base, err := s.GraphBaseURL()
	if err != nil {
		t.Fatalf("GraphBaseURL() error = %v", err)
	}
	if base != "https://dod-graph.microsoft.us" {
		t.Errorf("GraphBaseURL() = %q, want gcchigh endpoint", base)
	}
}

func TestActiveToken_NotConnected(t *testing.T) {
	s := testSession(&fakeIssuer{}, time.Now())

	_, err := s.ActiveToken()
	if err == nil {
		t.Fatal("ActiveToken() expected error before any connect")
	}
	if !IsCategory(err, ErrCategoryNotConnected) {
		t.Errorf("ActiveToken() error category = %v, want not_connected", err)
	}
}

func TestGraphBaseURL_NotConnected(t *testing.T) {
	s := testSession(&fakeIssuer{}, time.Now())

	if _, err := s.GraphBaseURL(); err == nil {
		t.Fatal("GraphBaseURL() expected error before any connect")
	}
}

func TestConnect_SpecValidation(t *testing.T) {
	s := testSession(&fakeIssuer{}, time.Now())

	cases := []struct {
		name string
		spec AcquireSpec
	}{
		{"missing client id", &ClientSecretSpec{TenantID: "t", ClientSecret: "s"}},
		{"missing tenant", &ClientSecretSpec{ClientID: "c", ClientSecret: "s"}},
		{"missing secret", &ClientSecretSpec{ClientID: "c", TenantID: "t"}},
	}
	for _, c := range cases {
		_, err := s.Connect(context.Background(), CloudCommercial, c.spec, ConnectOptions{})
		if err == nil {
			t.Errorf("%s: Connect() expected validation error", c.name)
			continue
		}
		if !IsCategory(err, ErrCategoryValidation) {
			t.Errorf("%s: error category = %v, want validation", c.name, err)
		}
	}
}

func TestConnect_ExpiredCachedTokenReacquires(t *testing.T) {
	base := time.Now()
	current := base
	issuer := &fakeIssuer{token: &SessionToken{Value: "first", ExpiresOn: base.Add(time.Hour)}}
	s := NewSession(WithIssuer(issuer), WithClock(func() time.Time { return current }))

	if _, err := s.Connect(context.Background(), CloudCommercial, &DelegatedSpec{}, ConnectOptions{}); err != nil {
		t.Fatalf("first Connect() error = %v", err)
	}

	// Advance past expiry; even without force the interactive strategy
	// must re-acquire.
	current = base.Add(2 * time.Hour)
	issuer.token = &SessionToken{Value: "second", ExpiresOn: current.Add(time.Hour)}

	result, err := s.Connect(context.Background(), CloudCommercial, &DelegatedSpec{}, ConnectOptions{})
	if err != nil {
		t.Fatalf("second Connect() error = %v", err)
	}
	if result.Token.Value != "second" {
		t.Errorf("Token value = %q, want re-acquired token", result.Token.Value)
	}
	if len(issuer.calls) != 2 {
		t.Errorf("issuer calls = %d, want 2", len(issuer.calls))
	}
}
