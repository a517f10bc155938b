package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/like-mike/tenant-ai-gateway/shared/models"
)

// GetTenantByID retrieves a single tenant by ID.
func GetTenantByID(ctx context.Context, db *sql.DB, id string) (*models.Tenant, error) {
	query := `
		SELECT id, name, domain, plan, max_users, max_tokens_per_month,
		       ai_provider, use_system_default, azure_openai_settings, openai_settings,
		       is_active, trial_end_date, created_at, updated_at
		FROM tenants
		WHERE id = $1`

	var t models.Tenant
	err := db.QueryRowContext(ctx, query, id).Scan(
		&t.ID, &t.Name, &t.Domain, &t.Plan, &t.MaxUsers, &t.MaxTokensPerMonth,
		&t.AIProvider, &t.UseSystemDefault, &t.AzureSettingsEnc, &t.OpenAISettingsEnc,
		&t.IsActive, &t.TrialEndDate, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// GetIdentityByKeyHash resolves an API key hash to the owning user and
// tenant. Inactive keys are excluded here; inactive users and tenants are
// rejected by the auth middleware so the caller gets a distinct error.
func GetIdentityByKeyHash(ctx context.Context, db *sql.DB, keyHash string) (*models.Identity, error) {
	query := `
		SELECT
			u.id, u.tenant_id, u.username, u.email, u.is_admin, u.is_active,
			u.last_login, u.created_at, u.updated_at,
			t.id, t.name, t.domain, t.plan, t.max_users, t.max_tokens_per_month,
			t.ai_provider, t.use_system_default, t.azure_openai_settings, t.openai_settings,
			t.is_active, t.trial_end_date, t.created_at, t.updated_at
		FROM api_keys ak
		JOIN users u ON ak.user_id = u.id
		JOIN tenants t ON ak.tenant_id = t.id
		WHERE ak.key_hash = $1 AND ak.is_active = true`

	var ident models.Identity
	err := db.QueryRowContext(ctx, query, keyHash).Scan(
		&ident.User.ID, &ident.User.TenantID, &ident.User.Username, &ident.User.Email,
		&ident.User.IsAdmin, &ident.User.IsActive,
		&ident.User.LastLogin, &ident.User.CreatedAt, &ident.User.UpdatedAt,
		&ident.Tenant.ID, &ident.Tenant.Name, &ident.Tenant.Domain, &ident.Tenant.Plan,
		&ident.Tenant.MaxUsers, &ident.Tenant.MaxTokensPerMonth,
		&ident.Tenant.AIProvider, &ident.Tenant.UseSystemDefault,
		&ident.Tenant.AzureSettingsEnc, &ident.Tenant.OpenAISettingsEnc,
		&ident.Tenant.IsActive, &ident.Tenant.TrialEndDate,
		&ident.Tenant.CreatedAt, &ident.Tenant.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &ident, nil
}

// TouchAPIKey records last use of a key. Failures are non-fatal.
func TouchAPIKey(ctx context.Context, db *sql.DB, keyHash string) error {
	_, err := db.ExecContext(ctx,
		`UPDATE api_keys SET last_used = NOW(), updated_at = NOW() WHERE key_hash = $1`, keyHash)
	return err
}

// UpdateTenantAISettings rewrites a tenant's provider selection and the
// corresponding encrypted blob. Exactly one of the blob columns is set; the
// other is cleared so a stale blob can never be resolved by mistake.
func UpdateTenantAISettings(ctx context.Context, db *sql.DB, tenantID, provider string, encryptedBlob string) error {
	var query string
	switch provider {
	case models.ProviderAzureOpenAI:
		query = `
			UPDATE tenants
			SET ai_provider = $2, use_system_default = false,
			    azure_openai_settings = $3, openai_settings = NULL, updated_at = NOW()
			WHERE id = $1`
	case models.ProviderOpenAI:
		query = `
			UPDATE tenants
			SET ai_provider = $2, use_system_default = false,
			    openai_settings = $3, azure_openai_settings = NULL, updated_at = NOW()
			WHERE id = $1`
	default:
		return fmt.Errorf("unsupported provider: %s", provider)
	}

	res, err := db.ExecContext(ctx, query, tenantID, provider, encryptedBlob)
	if err != nil {
		return fmt.Errorf("failed to update tenant AI settings: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// SetTenantSystemDefault reverts a tenant to the process-wide provider and
// drops any stored credentials.
func SetTenantSystemDefault(ctx context.Context, db *sql.DB, tenantID string) error {
	res, err := db.ExecContext(ctx, `
		UPDATE tenants
		SET ai_provider = $2, use_system_default = true,
		    azure_openai_settings = NULL, openai_settings = NULL, updated_at = NOW()
		WHERE id = $1`, tenantID, models.ProviderSystemDefault)
	if err != nil {
		return fmt.Errorf("failed to reset tenant AI settings: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
