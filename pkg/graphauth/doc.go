// Package graphauth manages the authentication session for Graph API
// access across sovereign clouds.
//
// # Overview
//
// graphauth owns the process's "current credential": it resolves the
// selected cloud to its endpoint set, runs one of three mutually exclusive
// token acquisition strategies, and decides per call whether to reuse,
// re-acquire, or reject a credential.
//
// # Core Concepts
//
// ## Clouds
//
// A Cloud names a sovereign environment (commercial, government,
// high-compliance government). The EndpointRegistry maps each cloud to its
// authority URL and Graph base URL; an unknown cloud fails loudly rather
// than falling back to commercial endpoints.
//
// ## Strategies
//
// An AcquireSpec is a tagged strategy variant carrying only the fields it
// needs:
//   - ExternalTokenSpec: a token the host process already holds
//   - ClientSecretSpec: silent confidential-client acquisition
//   - DelegatedSpec: interactive sign-in via the common authority
//
// ## Session
//
// The Session holds the active cloud and token for the process's lifetime.
// Collaborators read the token via ActiveToken and the API base URL via
// GraphBaseURL; a failed acquisition never destroys a still-valid token.
//
// # Usage
//
//	session := graphauth.NewSession()
//
//	result, err := session.Connect(ctx, graphauth.CloudCommercial,
//	    &graphauth.ClientSecretSpec{
//	        ClientID:     "...",
//	        TenantID:     "...",
//	        ClientSecret: os.Getenv("ENTRADOC_CLIENT_SECRET"),
//	    }, graphauth.ConnectOptions{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Printf("connected to %s, token valid until %s\n",
//	    result.Cloud.Cloud, result.Token.ExpiresOn)
//
// # Extension
//
// Additional clouds can be added via EndpointRegistry.Register, and tests
// swap the identity library for a fake via WithIssuer.
package graphauth
