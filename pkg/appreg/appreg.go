// Package appreg creates the app registration a tenant needs before
// entradoc can connect with a client secret.
package appreg

import (
	"context"
	"fmt"
	"time"

	msgraphsdk "github.com/microsoftgraph/msgraph-beta-sdk-go"
	graphapplications "github.com/microsoftgraph/msgraph-beta-sdk-go/applications"
	graphmodels "github.com/microsoftgraph/msgraph-beta-sdk-go/models"
)

// Application is a created app registration.
type Application struct {
	// ID is the directory object ID.
	ID string

	// AppID is the application (client) ID.
	AppID string

	// DisplayName is the registration's display name.
	DisplayName string
}

// ServicePrincipal is the service principal backing an application.
type ServicePrincipal struct {
	ID    string
	AppID string
}

// Secret is a generated client secret. The text is only available at
// creation time.
type Secret struct {
	Text      string
	ExpiresOn *time.Time
}

// Directory abstracts the Graph directory operations this package needs.
type Directory interface {
	CreateApplication(ctx context.Context, displayName string) (*Application, error)
	CreateServicePrincipal(ctx context.Context, appID string) (*ServicePrincipal, error)
	AddPassword(ctx context.Context, appObjectID, displayName string) (*Secret, error)
	DeleteApplication(ctx context.Context, appObjectID string) error
}

// Options configures Create.
type Options struct {
	// DisplayName is the app registration's display name.
	DisplayName string

	// WithSecret also generates a client secret.
	WithSecret bool
}

// Validate checks the options.
func (o Options) Validate() error {
	if o.DisplayName == "" {
		return fmt.Errorf("display name is required")
	}
	return nil
}

// Result is the outcome of a Create call.
type Result struct {
	Application      Application
	ServicePrincipal ServicePrincipal

	// Secret is set only when Options.WithSecret was requested.
	Secret *Secret
}

// Create registers an application, creates its service principal, and
// optionally generates a client secret. On partial failure the created
// application is deleted so the tenant is not left with a half-configured
// registration, and the original error is returned.
func Create(ctx context.Context, dir Directory, opts Options) (*Result, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	app, err := dir.CreateApplication(ctx, opts.DisplayName)
	if err != nil {
		return nil, fmt.Errorf("create application: %w", err)
	}

	sp, err := dir.CreateServicePrincipal(ctx, app.AppID)
	if err != nil {
		if delErr := dir.DeleteApplication(ctx, app.ID); delErr != nil {
			fmt.Printf("warning: failed to roll back application %s: %v\n", app.ID, delErr)
		}
		return nil, fmt.Errorf("create service principal: %w", err)
	}

	result := &Result{Application: *app, ServicePrincipal: *sp}

	if opts.WithSecret {
		secret, err := dir.AddPassword(ctx, app.ID, opts.DisplayName+" secret")
		if err != nil {
			if delErr := dir.DeleteApplication(ctx, app.ID); delErr != nil {
				fmt.Printf("warning: failed to roll back application %s: %v\n", app.ID, delErr)
			}
			return nil, fmt.Errorf("add client secret: %w", err)
		}
		result.Secret = secret
	}

	return result, nil
}

// GraphDirectory implements Directory over the Microsoft Graph API.
type GraphDirectory struct {
	client *msgraphsdk.GraphServiceClient
}

// NewGraphDirectory creates a Directory over a Graph service client.
func NewGraphDirectory(client *msgraphsdk.GraphServiceClient) *GraphDirectory {
	return &GraphDirectory{client: client}
}

// CreateApplication implements Directory.
func (d *GraphDirectory) CreateApplication(ctx context.Context, displayName string) (*Application, error) {
	audience := "AzureADMyOrg"
	body := graphmodels.NewApplication()
	body.SetDisplayName(&displayName)
	body.SetSignInAudience(&audience)

	created, err := d.client.Applications().Post(ctx, body, nil)
	if err != nil {
		return nil, err
	}

	app := &Application{DisplayName: displayName}
	if id := created.GetId(); id != nil {
		app.ID = *id
	}
	if appID := created.GetAppId(); appID != nil {
		app.AppID = *appID
	}
	return app, nil
}

// CreateServicePrincipal implements Directory.
func (d *GraphDirectory) CreateServicePrincipal(ctx context.Context, appID string) (*ServicePrincipal, error) {
	body := graphmodels.NewServicePrincipal()
	body.SetAppId(&appID)

	created, err := d.client.ServicePrincipals().Post(ctx, body, nil)
	if err != nil {
		return nil, err
	}

	sp := &ServicePrincipal{AppID: appID}
	if id := created.GetId(); id != nil {
		sp.ID = *id
	}
	return sp, nil
}

// AddPassword implements Directory.
func (d *GraphDirectory) AddPassword(ctx context.Context, appObjectID, displayName string) (*Secret, error) {
	cred := graphmodels.NewPasswordCredential()
	cred.SetDisplayName(&displayName)

	body := graphapplications.NewItemAddPasswordPostRequestBody()
	body.SetPasswordCredential(cred)

	created, err := d.client.Applications().ByApplicationId(appObjectID).AddPassword().Post(ctx, body, nil)
	if err != nil {
		return nil, err
	}

	secret := &Secret{ExpiresOn: created.GetEndDateTime()}
	if text := created.GetSecretText(); text != nil {
		secret.Text = *text
	}
	return secret, nil
}

// DeleteApplication implements Directory.
func (d *GraphDirectory) DeleteApplication(ctx context.Context, appObjectID string) error {
	return d.client.Applications().ByApplicationId(appObjectID).Delete(ctx, nil)
}
