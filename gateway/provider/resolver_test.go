package provider

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/like-mike/tenant-ai-gateway/shared/config"
	"github.com/like-mike/tenant-ai-gateway/shared/crypto"
	"github.com/like-mike/tenant-ai-gateway/shared/models"
)

func newTestResolver(t *testing.T, system config.SystemAIConfig) (*Resolver, *crypto.Box) {
	t.Helper()
	box, err := crypto.NewBox("test-settings-key")
	if err != nil {
		t.Fatalf("NewBox: %v", err)
	}
	return NewResolver(box, system), box
}

func encryptSettings(t *testing.T, box *crypto.Box, v interface{}) *string {
	t.Helper()
	raw, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal settings: %v", err)
	}
	enc, err := box.Encrypt(string(raw))
	if err != nil {
		t.Fatalf("encrypt settings: %v", err)
	}
	return &enc
}

func TestResolveSystemDefaultSkipsBlobs(t *testing.T) {
	r, _ := newTestResolver(t, config.SystemAIConfig{OpenAIAPIKey: "sk-system-key-0123456789", OpenAIModel: "gpt-4o"})

	// Blob is garbage; the system-default path must never touch it.
	garbage := "not-even-base64"
	tenant := &models.Tenant{
		ID:                "t1",
		UseSystemDefault:  true,
		AIProvider:        models.ProviderOpenAI,
		OpenAISettingsEnc: &garbage,
	}

	creds, err := r.Resolve(tenant)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if creds.APIKey != "sk-system-key-0123456789" {
		t.Errorf("wrong key: %s", creds.APIKey)
	}
	if creds.UseAzure {
		t.Error("expected non-azure system credentials")
	}
}

func TestResolveSystemDefaultPrefersAzure(t *testing.T) {
	r, _ := newTestResolver(t, config.SystemAIConfig{
		AzureEndpoint:   "https://sys.openai.azure.com",
		AzureAPIKey:     "azure-system-key",
		AzureDeployment: "gpt-4o-prod",
		AzureAPIVersion: "2024-02-01",
	})

	creds, err := r.Resolve(&models.Tenant{ID: "t1", UseSystemDefault: true})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !creds.UseAzure {
		t.Fatal("expected azure credentials")
	}
	if creds.Model != "gpt-4o-prod" {
		t.Errorf("wrong deployment: %s", creds.Model)
	}
}

func TestResolveNoSystemDefaultConfigured(t *testing.T) {
	r, _ := newTestResolver(t, config.SystemAIConfig{})

	_, err := r.Resolve(&models.Tenant{ID: "t1", UseSystemDefault: true})
	if !errors.Is(err, ErrConfiguration) {
		t.Fatalf("want ErrConfiguration, got %v", err)
	}
}

func TestResolveOpenAIRoundTrip(t *testing.T) {
	r, box := newTestResolver(t, config.SystemAIConfig{})

	enc := encryptSettings(t, box, models.OpenAISettings{APIKey: "sk-tenant-key-0123456789", Model: "gpt-4"})
	tenant := &models.Tenant{ID: "t1", AIProvider: models.ProviderOpenAI, OpenAISettingsEnc: enc}

	creds, err := r.Resolve(tenant)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if creds.APIKey != "sk-tenant-key-0123456789" || creds.Model != "gpt-4" {
		t.Errorf("unexpected credentials: %+v", creds)
	}
}

func TestResolveOpenAIRejectsBadKey(t *testing.T) {
	r, box := newTestResolver(t, config.SystemAIConfig{})

	enc := encryptSettings(t, box, models.OpenAISettings{APIKey: "pk-wrong-prefix-0123456789", Model: "gpt-4"})
	tenant := &models.Tenant{ID: "t1", AIProvider: models.ProviderOpenAI, OpenAISettingsEnc: enc}

	if _, err := r.Resolve(tenant); !errors.Is(err, ErrConfiguration) {
		t.Fatalf("want ErrConfiguration, got %v", err)
	}
}

func TestResolveOpenAIRejectsUnknownModel(t *testing.T) {
	r, box := newTestResolver(t, config.SystemAIConfig{})

	enc := encryptSettings(t, box, models.OpenAISettings{APIKey: "sk-tenant-key-0123456789", Model: "gpt-9000"})
	tenant := &models.Tenant{ID: "t1", AIProvider: models.ProviderOpenAI, OpenAISettingsEnc: enc}

	if _, err := r.Resolve(tenant); !errors.Is(err, ErrConfiguration) {
		t.Fatalf("want ErrConfiguration, got %v", err)
	}
}

func TestResolveAzureIncompleteSettings(t *testing.T) {
	r, box := newTestResolver(t, config.SystemAIConfig{})

	enc := encryptSettings(t, box, models.AzureOpenAISettings{Endpoint: "https://x.openai.azure.com", APIKey: "azure-key-123"})
	tenant := &models.Tenant{ID: "t1", AIProvider: models.ProviderAzureOpenAI, AzureSettingsEnc: enc}

	if _, err := r.Resolve(tenant); !errors.Is(err, ErrConfiguration) {
		t.Fatalf("want ErrConfiguration, got %v", err)
	}
}

func TestResolveMissingBlob(t *testing.T) {
	r, _ := newTestResolver(t, config.SystemAIConfig{})

	tenant := &models.Tenant{ID: "t1", AIProvider: models.ProviderAzureOpenAI}
	if _, err := r.Resolve(tenant); !errors.Is(err, ErrConfiguration) {
		t.Fatalf("want ErrConfiguration, got %v", err)
	}
}

func TestResolveCorruptBlob(t *testing.T) {
	r, _ := newTestResolver(t, config.SystemAIConfig{})

	bad := "AAAA"
	tenant := &models.Tenant{ID: "t1", AIProvider: models.ProviderOpenAI, OpenAISettingsEnc: &bad}
	if _, err := r.Resolve(tenant); !errors.Is(err, ErrConfiguration) {
		t.Fatalf("want ErrConfiguration, got %v", err)
	}
}

func TestValidateAzureSettings(t *testing.T) {
	valid := &models.AzureOpenAISettings{
		Endpoint:       "https://acme.openai.azure.com",
		APIKey:         "azure-key-123",
		APIVersion:     "2024-02-01",
		DeploymentName: "gpt-4o",
	}
	if err := ValidateAzureSettings(valid); err != nil {
		t.Errorf("valid settings rejected: %v", err)
	}

	httpOnly := *valid
	httpOnly.Endpoint = "http://acme.openai.azure.com"
	if err := ValidateAzureSettings(&httpOnly); err == nil {
		t.Error("http endpoint accepted")
	}

	wrongHost := *valid
	wrongHost.Endpoint = "https://example.com"
	if err := ValidateAzureSettings(&wrongHost); err == nil {
		t.Error("non-azure endpoint accepted")
	}

	noDeployment := *valid
	noDeployment.DeploymentName = ""
	if err := ValidateAzureSettings(&noDeployment); err == nil {
		t.Error("missing deployment accepted")
	}
}

func TestIsAllowedOpenAIModel(t *testing.T) {
	if !IsAllowedOpenAIModel("gpt-4o") {
		t.Error("gpt-4o should be allowed")
	}
	if IsAllowedOpenAIModel("davinci-002") {
		t.Error("davinci-002 should not be allowed")
	}
	if !IsAllowedOpenAIModel(" gpt-4 ") {
		t.Error("surrounding whitespace should be trimmed")
	}
}
