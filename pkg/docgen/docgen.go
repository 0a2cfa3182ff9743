// Package docgen renders tenant documentation from Microsoft Graph data.
// It only consumes a token via the session-backed Graph client; all
// credential decisions live in graphauth.
package docgen

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	msgraphsdk "github.com/microsoftgraph/msgraph-beta-sdk-go"

	"github.com/entradoc/entradoc/pkg/graphauth"
)

// TenantInfo describes the documented tenant.
type TenantInfo struct {
	ID          string
	DisplayName string
}

// AppInfo describes one application registration in the tenant.
type AppInfo struct {
	AppID          string
	DisplayName    string
	SignInAudience string
	CreatedAt      *time.Time
}

// Source provides the Graph data the generator documents.
type Source interface {
	// Organization returns the tenant's organization profile.
	Organization(ctx context.Context) (*TenantInfo, error)

	// Applications returns the tenant's application registrations.
	Applications(ctx context.Context) ([]AppInfo, error)
}

// GraphSource reads documentation data from the Microsoft Graph API.
type GraphSource struct {
	client *msgraphsdk.GraphServiceClient
}

// NewGraphSource creates a Source over a Graph service client.
func NewGraphSource(client *msgraphsdk.GraphServiceClient) *GraphSource {
	return &GraphSource{client: client}
}

// Organization implements Source.
func (s *GraphSource) Organization(ctx context.Context) (*TenantInfo, error) {
	resp, err := s.client.Organization().Get(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("get organization: %w", err)
	}

	orgs := resp.GetValue()
	if len(orgs) == 0 {
		return nil, fmt.Errorf("organization query returned no results")
	}

	info := &TenantInfo{}
	if id := orgs[0].GetId(); id != nil {
		info.ID = *id
	}
	if name := orgs[0].GetDisplayName(); name != nil {
		info.DisplayName = *name
	}
	return info, nil
}

// Applications implements Source.
func (s *GraphSource) Applications(ctx context.Context) ([]AppInfo, error) {
	resp, err := s.client.Applications().Get(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("list applications: %w", err)
	}

	var apps []AppInfo
	for _, app := range resp.GetValue() {
		info := AppInfo{CreatedAt: app.GetCreatedDateTime()}
		if id := app.GetAppId(); id != nil {
			info.AppID = *id
		}
		if name := app.GetDisplayName(); name != nil {
			info.DisplayName = *name
		}
		if aud := app.GetSignInAudience(); aud != nil {
			info.SignInAudience = *aud
		}
		apps = append(apps, info)
	}
	return apps, nil
}

// Report is one documentation run's output.
type Report struct {
	// RunID uniquely identifies this documentation run.
	RunID string

	// GeneratedAt is when the run completed.
	GeneratedAt time.Time

	// Cloud is the sovereign cloud the data came from.
	Cloud graphauth.Cloud

	// Tenant is the documented tenant.
	Tenant TenantInfo

	// Applications is the tenant's app inventory, sorted by display name.
	Applications []AppInfo
}

// Generator produces tenant documentation reports.
type Generator struct {
	source Source
	cloud  graphauth.Cloud
	now    func() time.Time
}

// GeneratorOption configures a Generator.
type GeneratorOption func(*Generator)

// WithGeneratorClock sets the time source (useful for testing).
func WithGeneratorClock(now func() time.Time) GeneratorOption {
	return func(g *Generator) {
		g.now = now
	}
}

// NewGenerator creates a generator reading from the given source.
func NewGenerator(source Source, cloud graphauth.Cloud, opts ...GeneratorOption) *Generator {
	g := &Generator{source: source, cloud: cloud, now: time.Now}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate runs one documentation pass.
func (g *Generator) Generate(ctx context.Context) (*Report, error) {
	tenant, err := g.source.Organization(ctx)
	if err != nil {
		return nil, err
	}

	apps, err := g.source.Applications(ctx)
	if err != nil {
		return nil, err
	}
	sort.Slice(apps, func(i, j int) bool { return apps[i].DisplayName < apps[j].DisplayName })

	return &Report{
		RunID:        uuid.New().String(),
		GeneratedAt:  g.now().UTC(),
		Cloud:        g.cloud,
		Tenant:       *tenant,
		Applications: apps,
	}, nil
}

// Markdown renders the report as a Markdown document.
func (r *Report) Markdown() string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Tenant documentation: %s\n\n", r.Tenant.DisplayName)
	fmt.Fprintf(&b, "- Tenant ID: `%s`\n", r.Tenant.ID)
	fmt.Fprintf(&b, "- Cloud: %s\n", r.Cloud)
	fmt.Fprintf(&b, "- Generated: %s\n", r.GeneratedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "- Run: %s\n\n", r.RunID)

	fmt.Fprintf(&b, "## Application registrations (%d)\n\n", len(r.Applications))
	if len(r.Applications) == 0 {
		b.WriteString("No application registrations found.\n")
		return b.String()
	}

	b.WriteString("| Display name | App ID | Sign-in audience | Created |\n")
	b.WriteString("|---|---|---|---|\n")
	for _, app := range r.Applications {
		created := ""
		if app.CreatedAt != nil {
			created = app.CreatedAt.Format("2006-01-02")
		}
		fmt.Fprintf(&b, "| %s | `%s` | %s | %s |\n",
			app.DisplayName, app.AppID, app.SignInAudience, created)
	}
	return b.String()
}
