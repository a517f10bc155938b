package gateway

import (
	"testing"

	"github.com/like-mike/tenant-ai-gateway/shared/models"
)

func TestAvailableModelsSystemDefault(t *testing.T) {
	svc, _ := newServiceWith(t, &stubClient{})
	ident := testIdentity()

	list, err := svc.AvailableModels(ident)
	if err != nil {
		t.Fatalf("AvailableModels: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("got %d models, want tenant entry plus system default", len(list))
	}
	if list[0].Provider != models.ProviderOpenAI {
		t.Errorf("provider = %s", list[0].Provider)
	}
	if list[1].ID != "system-default" {
		t.Errorf("second entry = %s, want system-default", list[1].ID)
	}
}

func TestAvailableModelsGPT4Pricing(t *testing.T) {
	svc, _ := newServiceWith(t, &stubClient{})
	ident := testIdentity()

	list, err := svc.AvailableModels(ident)
	if err != nil {
		t.Fatalf("AvailableModels: %v", err)
	}
	// System default resolves to gpt-4o.
	if list[0].MaxTokens != 8192 {
		t.Errorf("max tokens = %d, want 8192 for a gpt-4 family model", list[0].MaxTokens)
	}
}

func TestAvailableModelsUnresolvedTenant(t *testing.T) {
	svc, _ := newServiceWith(t, &stubClient{})
	ident := testIdentity()
	ident.Tenant.UseSystemDefault = false
	ident.Tenant.AIProvider = models.ProviderAzureOpenAI

	if _, err := svc.AvailableModels(ident); err == nil {
		t.Fatal("unresolvable tenant should error")
	}
}
