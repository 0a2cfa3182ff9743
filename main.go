// Package main is the entry point for the entradoc CLI.
//
// The CLI connects to a Microsoft cloud (commercial, government, or
// GCC High), acquires a Graph session token, and documents the tenant's
// directory contents.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/pkg/browser"

	"github.com/entradoc/entradoc/pkg/appreg"
	"github.com/entradoc/entradoc/pkg/docgen"
	"github.com/entradoc/entradoc/pkg/graphauth"
	"github.com/entradoc/entradoc/pkg/graphclient"
)

const (
	exitError           = 1
	exitValidationError = 2
)

// clientSecretEnv lets callers keep the secret off argv.
const clientSecretEnv = "ENTRADOC_CLIENT_SECRET"

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if graphauth.IsCategory(err, graphauth.ErrCategoryValidation) {
			os.Exit(exitValidationError)
		}
		os.Exit(exitError)
	}
}

func run(args []string) error {
	if len(args) == 0 {
		printUsage()
		return nil
	}

	// Setup context with signal handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	cmd := args[0]
	cmdArgs := args[1:]

	switch cmd {
	case "connect":
		return cmdConnect(ctx, cmdArgs)
	case "status":
		return cmdStatus(ctx, cmdArgs)
	case "docs":
		return cmdDocs(ctx, cmdArgs)
	case "appreg":
		return cmdAppreg(ctx, cmdArgs)
	case "clouds":
		return cmdClouds(ctx, cmdArgs)
	case "version":
		return cmdVersion()
	case "help", "-h", "--help":
		printUsage()
		return nil
	default:
		return fmt.Errorf("unknown command: %s\nRun 'entradoc help' for usage", cmd)
	}
}

func printUsage() {
	fmt.Println(`entradoc - Microsoft Entra tenant documentation

Usage:
  entradoc <command> [options]

Commands:
  connect     Connect to a Microsoft cloud and acquire a Graph token
  status      Show the connection a set of credentials would produce
  docs        Generate tenant documentation
  appreg      Create an app registration for entradoc
  clouds      List supported cloud environments
  version     Show version information
  help        Show this help message

Connection Options (shared by connect, status, docs, and appreg):
  --cloud <name>            Cloud environment: commercial, government, gcchigh
                            (default: commercial)

  External token:
    --access-token <token>  Use a pre-acquired access token
    --expires-on <time>     Token expiry, RFC 3339 (required with --access-token)

  Client secret:
    --client-id <id>        Application (client) ID
    --tenant-id <id>        Directory (tenant) ID
    --client-secret <s>     Client secret (or set ` + clientSecretEnv + `)

  Interactive:
    --interactive           Sign in through the browser
    --redirect-uri <uri>    Loopback redirect URI (default: http://localhost)

  Modifiers:
    --scopes <s1,s2>        Override the default Graph scopes
    --force                 Reconnect even if already connected
    --never-refresh         Reuse cached tokens instead of forcing a refresh

Docs Options:
  --out <path>              Output file (default: entradoc-report.md)
  --open                    Open the report in the default browser

Appreg Options:
  --name <name>             Display name for the app registration
  --with-secret             Also generate a client secret

Examples:
  # Interactive sign-in against the commercial cloud
  entradoc connect --interactive

  # Connect to GCC High with a client secret
  export ` + clientSecretEnv + `=...
  entradoc connect --cloud gcchigh \
    --client-id xxxxxxxx-xxxx-xxxx-xxxx-xxxxxxxxxxxx \
    --tenant-id xxxxxxxx-xxxx-xxxx-xxxx-xxxxxxxxxxxx

  # Document a government tenant and open the report
  entradoc docs --cloud government --interactive --out tenant.md --open

  # Create an app registration entradoc can reuse later
  entradoc appreg --interactive --name entradoc --with-secret

For more information, visit: https://github.com/entradoc/entradoc`)
}

// connectOpts holds the connection flags shared by every command that
// needs a session.
type connectOpts struct {
	cloud string

	// External token
	accessToken string
	expiresOn   string

	// Client secret
	clientID     string
	tenantID     string
	clientSecret string

	// Interactive
	interactive bool
	redirectURI string

	// Modifiers
	scopes       string
	force        bool
	neverRefresh bool
}

// parseConnectFlag consumes a connection flag at position i. It returns
// the next position and whether the flag was recognized.
func (o *connectOpts) parseConnectFlag(args []string, i int) (int, bool, error) {
	needsValue := func(name string) (string, error) {
		if i+1 >= len(args) {
			return "", fmt.Errorf("%s requires an argument", name)
		}
		return args[i+1], nil
	}

	switch args[i] {
	case "--cloud":
		v, err := needsValue("--cloud")
		if err != nil {
			return i, true, err
		}
		o.cloud = v
		return i + 1, true, nil
	case "--access-token":
		v, err := needsValue("--access-token")
		if err != nil {
			return i, true, err
		}
		o.accessToken = v
		return i + 1, true, nil
	case "--expires-on":
		v, err := needsValue("--expires-on")
		if err != nil {
			return i, true, err
		}
		o.expiresOn = v
		return i + 1, true, nil
	case "--client-id":
		v, err := needsValue("--client-id")
		if err != nil {
			return i, true, err
		}
		o.clientID = v
		return i + 1, true, nil
	case "--tenant-id":
		v, err := needsValue("--tenant-id")
		if err != nil {
			return i, true, err
		}
		o.tenantID = v
		return i + 1, true, nil
	case "--client-secret":
		v, err := needsValue("--client-secret")
		if err != nil {
			return i, true, err
		}
		o.clientSecret = v
		return i + 1, true, nil
	case "--interactive":
		o.interactive = true
		return i, true, nil
	case "--redirect-uri":
		v, err := needsValue("--redirect-uri")
		if err != nil {
			return i, true, err
		}
		o.redirectURI = v
		return i + 1, true, nil
	case "--scopes":
		v, err := needsValue("--scopes")
		if err != nil {
			return i, true, err
		}
		o.scopes = v
		return i + 1, true, nil
	case "--force":
		o.force = true
		return i, true, nil
	case "--never-refresh":
		o.neverRefresh = true
		return i, true, nil
	}

	return i, false, nil
}

// hasStrategy reports whether any credential strategy flag was given.
func (o *connectOpts) hasStrategy() bool {
	return o.accessToken != "" || o.clientID != "" || o.tenantID != "" || o.interactive
}

func (o *connectOpts) scopeList() []string {
	if o.scopes == "" {
		return nil
	}
	parts := strings.Split(o.scopes, ",")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts
}

// buildSpec turns the connection flags into exactly one acquisition
// strategy. Mixing strategies is a validation error.
func buildSpec(opts *connectOpts) (graphauth.AcquireSpec, error) {
	external := opts.accessToken != ""
	confidential := opts.clientID != "" && !opts.interactive
	strategies := 0
	if external {
		strategies++
	}
	if confidential {
		strategies++
	}
	if opts.interactive {
		strategies++
	}

	switch {
	case strategies == 0:
		return nil, graphauth.ErrValidation("no credential strategy given: use --access-token, --client-id, or --interactive")
	case strategies > 1:
		return nil, graphauth.ErrValidation("credential strategies are mutually exclusive: give exactly one of --access-token, --client-id, or --interactive")
	}

	switch {
	case external:
		if opts.expiresOn == "" {
			return nil, graphauth.ErrValidation("--expires-on is required with --access-token")
		}
		expiry, err := time.Parse(time.RFC3339, opts.expiresOn)
		if err != nil {
			return nil, graphauth.ErrValidation("invalid --expires-on value").WithCause(err)
		}
		return &graphauth.ExternalTokenSpec{
			Token: &graphauth.SessionToken{Value: opts.accessToken, ExpiresOn: expiry},
		}, nil

	case opts.interactive:
		return &graphauth.DelegatedSpec{
			ClientID:    opts.clientID,
			RedirectURI: opts.redirectURI,
			Scopes:      opts.scopeList(),
		}, nil

	default:
		secret := opts.clientSecret
		if secret == "" {
			secret = os.Getenv(clientSecretEnv)
		}
		return &graphauth.ClientSecretSpec{
			ClientID:     opts.clientID,
			TenantID:     opts.tenantID,
			ClientSecret: secret,
			Scopes:       opts.scopeList(),
		}, nil
	}
}

// openSession connects a fresh session using the given flags.
func openSession(ctx context.Context, opts *connectOpts) (*graphauth.Session, *graphauth.ConnectResult, error) {
	spec, err := buildSpec(opts)
	if err != nil {
		return nil, nil, err
	}

	session := graphauth.NewSession()
	result, err := session.Connect(ctx, graphauth.ParseCloud(opts.cloud), spec, graphauth.ConnectOptions{
		ForceReconnect:    opts.force,
		NeverRefreshToken: opts.neverRefresh,
	})
	if err != nil {
		return nil, nil, err
	}
	return session, result, nil
}

func cmdConnect(ctx context.Context, args []string) error {
	opts := &connectOpts{}
	for i := 0; i < len(args); i++ {
		next, ok, err := opts.parseConnectFlag(args, i)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("unknown option: %s", args[i])
		}
		i = next
	}

	_, _, err := opts.connectAndReport(ctx)
	return err
}

// connectAndReport connects and prints the outcome, shared by connect
// and status.
func (o *connectOpts) connectAndReport(ctx context.Context) (*graphauth.Session, *graphauth.ConnectResult, error) {
	session, result, err := openSession(ctx, o)
	if err != nil {
		return nil, nil, err
	}

	switch result.Status {
	case graphauth.StatusAlreadyConnected:
		fmt.Printf("Already connected to %s\n", result.Cloud.Cloud)
	case graphauth.StatusReconnected:
		fmt.Printf("Reconnected to %s\n", result.Cloud.Cloud)
	default:
		fmt.Printf("Connected to %s\n", result.Cloud.Cloud)
	}
	fmt.Printf("  Authority: %s\n", result.Cloud.AuthorityURL)
	fmt.Printf("  Graph:     %s\n", result.Cloud.GraphBaseURL)
	fmt.Printf("  Acquired:  %s\n", result.Token.AcquiredVia)
	fmt.Printf("  Expires:   %s\n", result.Token.ExpiresOn.Format(time.RFC3339))

	return session, result, nil
}

func cmdStatus(ctx context.Context, args []string) error {
	opts := &connectOpts{}
	for i := 0; i < len(args); i++ {
		next, ok, err := opts.parseConnectFlag(args, i)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("unknown option: %s", args[i])
		}
		i = next
	}

	// Without credentials there is nothing to connect with; report the
	// default session's state instead.
	if !opts.hasStrategy() {
		if _, err := graphauth.ActiveToken(); err != nil {
			return err
		}
		return nil
	}

	_, _, err := opts.connectAndReport(ctx)
	return err
}

type docsOpts struct {
	connectOpts
	outPath string
	open    bool
}

func parseDocsOpts(args []string) (*docsOpts, error) {
	opts := &docsOpts{outPath: "entradoc-report.md"}

	for i := 0; i < len(args); i++ {
		next, ok, err := opts.parseConnectFlag(args, i)
		if err != nil {
			return nil, err
		}
		if ok {
			i = next
			continue
		}

		switch args[i] {
		case "--out", "-o":
			if i+1 >= len(args) {
				return nil, fmt.Errorf("--out requires a path argument")
			}
			opts.outPath = args[i+1]
			i++
		case "--open":
			opts.open = true
		default:
			return nil, fmt.Errorf("unknown option: %s", args[i])
		}
	}

	return opts, nil
}

func cmdDocs(ctx context.Context, args []string) error {
	opts, err := parseDocsOpts(args)
	if err != nil {
		return err
	}

	session, result, err := openSession(ctx, &opts.connectOpts)
	if err != nil {
		return err
	}
	fmt.Printf("Connected to %s\n", result.Cloud.Cloud)

	client, err := graphclient.New(session)
	if err != nil {
		return fmt.Errorf("failed to build Graph client: %w", err)
	}

	generator := docgen.NewGenerator(docgen.NewGraphSource(client), result.Cloud.Cloud)
	report, err := generator.Generate(ctx)
	if err != nil {
		return fmt.Errorf("documentation generation failed: %w", err)
	}

	if err := os.WriteFile(opts.outPath, []byte(report.Markdown()), 0o644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	fmt.Printf("Report written to %s\n", opts.outPath)

	if opts.open {
		if err := browser.OpenFile(opts.outPath); err != nil {
			fmt.Printf("warning: failed to open report: %v\n", err)
		}
	}

	return nil
}

type appregOpts struct {
	connectOpts
	name       string
	withSecret bool
}

func parseAppregOpts(args []string) (*appregOpts, error) {
	opts := &appregOpts{name: "entradoc"}

	for i := 0; i < len(args); i++ {
		next, ok, err := opts.parseConnectFlag(args, i)
		if err != nil {
			return nil, err
		}
		if ok {
			i = next
			continue
		}

		switch args[i] {
		case "--name":
			if i+1 >= len(args) {
				return nil, fmt.Errorf("--name requires an argument")
			}
			opts.name = args[i+1]
			i++
		case "--with-secret":
			opts.withSecret = true
		default:
			return nil, fmt.Errorf("unknown option: %s", args[i])
		}
	}

	return opts, nil
}

func cmdAppreg(ctx context.Context, args []string) error {
	opts, err := parseAppregOpts(args)
	if err != nil {
		return err
	}

	session, result, err := openSession(ctx, &opts.connectOpts)
	if err != nil {
		return err
	}
	fmt.Printf("Connected to %s\n", result.Cloud.Cloud)

	client, err := graphclient.New(session)
	if err != nil {
		return fmt.Errorf("failed to build Graph client: %w", err)
	}

	created, err := appreg.Create(ctx, appreg.NewGraphDirectory(client), appreg.Options{
		DisplayName: opts.name,
		WithSecret:  opts.withSecret,
	})
	if err != nil {
		return fmt.Errorf("app registration failed: %w", err)
	}

	fmt.Println("\n=== App Registration Created ===")
	fmt.Printf("Display name:      %s\n", created.Application.DisplayName)
	fmt.Printf("Application ID:    %s\n", created.Application.AppID)
	fmt.Printf("Object ID:         %s\n", created.Application.ID)
	fmt.Printf("Service principal: %s\n", created.ServicePrincipal.ID)

	if created.Secret != nil {
		fmt.Printf("Client secret:     %s\n", created.Secret.Text)
		if created.Secret.ExpiresOn != nil {
			fmt.Printf("Secret expires:    %s\n", created.Secret.ExpiresOn.Format(time.RFC3339))
		}
		fmt.Println("\nStore the secret now; it cannot be retrieved again.")
	}

	return nil
}

func cmdClouds(_ context.Context, _ []string) error {
	fmt.Println("=== Supported Clouds ===")
	fmt.Printf("%-12s %-42s %s\n", "NAME", "AUTHORITY", "GRAPH")
	for _, set := range graphauth.DefaultEndpoints.List() {
		fmt.Printf("%-12s %-42s %s\n", set.Cloud, set.AuthorityURL, set.GraphBaseURL)
	}
	return nil
}

func cmdVersion() error {
	fmt.Println("entradoc version 0.1.0")
	fmt.Println("  Clouds: commercial, government, gcchigh")
	return nil
}
