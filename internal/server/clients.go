package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/alfredjeanlab/ledgerdesk/internal/events"
	"github.com/alfredjeanlab/ledgerdesk/internal/idgen"
	"github.com/alfredjeanlab/ledgerdesk/internal/model"
	"github.com/alfredjeanlab/ledgerdesk/internal/store"
)

// createClientInput holds transport-agnostic parameters for creating a client.
type createClientInput struct {
	Name         string          `json:"name"`
	TradeName    string          `json:"trade_name"`
	CNPJ         string          `json:"cnpj"`
	CNAE         string          `json:"cnae"`
	TaxRegime    model.TaxRegime `json:"tax_regime"`
	Active       *bool           `json:"active"`
	Email        string          `json:"email"`
	MonthlyFee   int64           `json:"monthly_fee"`
	LastFilingAt *time.Time      `json:"last_filing_at"`
}

// updateClientInput holds optional fields; nil means "don't change". The CNPJ
// identifies the company and cannot change.
type updateClientInput struct {
	Name         *string          `json:"name"`
	TradeName    *string          `json:"trade_name"`
	CNAE         *string          `json:"cnae"`
	TaxRegime    *model.TaxRegime `json:"tax_regime"`
	Active       *bool            `json:"active"`
	Email        *string          `json:"email"`
	MonthlyFee   *int64           `json:"monthly_fee"`
	LastFilingAt *time.Time       `json:"last_filing_at"`
}

// normalize stores documents as digits and names without surrounding blanks.
func normalize(c *model.Client) {
	c.Name = strings.TrimSpace(c.Name)
	c.TradeName = strings.TrimSpace(c.TradeName)
	c.Email = strings.TrimSpace(c.Email)
	c.CNPJ = model.DigitsOnly(c.CNPJ)
	c.CNAE = model.DigitsOnly(c.CNAE)
}

// createClient validates input, persists a new client and publishes a
// ClientCreated event. Validation failures are returned as
// *model.ValidationError; a duplicate CNPJ as store.ErrConflict.
func (s *LedgerServer) createClient(ctx context.Context, tenantID, actor string, in createClientInput) (*model.Client, error) {
	id, err := idgen.NewClientID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate ID: %w", err)
	}

	now := time.Now().UTC()
	client := &model.Client{
		ID:           id,
		TenantID:     tenantID,
		Name:         in.Name,
		TradeName:    in.TradeName,
		CNPJ:         in.CNPJ,
		CNAE:         in.CNAE,
		TaxRegime:    in.TaxRegime,
		Active:       in.Active == nil || *in.Active,
		Email:        in.Email,
		MonthlyFee:   in.MonthlyFee,
		CreatedAt:    now,
		UpdatedAt:    now,
		LastFilingAt: in.LastFilingAt,
	}
	if err := model.ValidateClient(client); err != nil {
		return nil, err
	}
	normalize(client)

	if err := s.store.CreateClient(ctx, client); err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	s.recordAndPublish(ctx, tenantID, events.TopicClientCreated, client.ID, actor, events.ClientCreated{Client: client})
	return client, nil
}

// updateClient applies in to the stored client inside a transaction and
// publishes a ClientUpdated event listing the changed fields.
func (s *LedgerServer) updateClient(ctx context.Context, tenantID, id, actor string, in updateClientInput) (*model.Client, error) {
	var (
		client  *model.Client
		changes map[string]any
	)
	err := s.store.RunInTransaction(ctx, func(tx store.Store) error {
		existing, err := tx.GetClient(ctx, tenantID, id)
		if err != nil {
			return err
		}
		if existing == nil {
			return sql.ErrNoRows
		}

		updated := *existing
		changes = applyUpdate(&updated, in)
		if len(changes) == 0 {
			client = existing
			return nil
		}
		if err := model.ValidateClient(&updated); err != nil {
			return err
		}
		normalize(&updated)
		updated.UpdatedAt = time.Now().UTC()

		if err := tx.UpdateClient(ctx, &updated); err != nil {
			return fmt.Errorf("failed to update client: %w", err)
		}
		client = &updated
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(changes) > 0 {
		s.recordAndPublish(ctx, tenantID, events.TopicClientUpdated, client.ID, actor, events.ClientUpdated{Client: client, Changes: changes})
	}
	return client, nil
}

// applyUpdate copies the set fields of in onto c and returns what changed.
func applyUpdate(c *model.Client, in updateClientInput) map[string]any {
	changes := map[string]any{}
	if in.Name != nil && *in.Name != c.Name {
		c.Name = *in.Name
		changes[model.FieldName] = c.Name
	}
	if in.TradeName != nil && *in.TradeName != c.TradeName {
		c.TradeName = *in.TradeName
		changes[model.FieldTradeName] = c.TradeName
	}
	if in.CNAE != nil && model.DigitsOnly(*in.CNAE) != c.CNAE {
		c.CNAE = *in.CNAE
		changes[model.FieldCNAE] = model.DigitsOnly(c.CNAE)
	}
	if in.TaxRegime != nil && *in.TaxRegime != c.TaxRegime {
		c.TaxRegime = *in.TaxRegime
		changes[model.FieldTaxRegime] = c.TaxRegime
	}
	if in.Active != nil && *in.Active != c.Active {
		c.Active = *in.Active
		changes[model.FieldActive] = c.Active
	}
	if in.Email != nil && *in.Email != c.Email {
		c.Email = *in.Email
		changes[model.FieldEmail] = c.Email
	}
	if in.MonthlyFee != nil && *in.MonthlyFee != c.MonthlyFee {
		c.MonthlyFee = *in.MonthlyFee
		changes[model.FieldMonthlyFee] = c.MonthlyFee
	}
	if in.LastFilingAt != nil && (c.LastFilingAt == nil || !in.LastFilingAt.Equal(*c.LastFilingAt)) {
		t := in.LastFilingAt.UTC()
		c.LastFilingAt = &t
		changes[model.FieldLastFilingAt] = t
	}
	return changes
}

// deleteClient removes a client and publishes a ClientDeleted event.
func (s *LedgerServer) deleteClient(ctx context.Context, tenantID, id, actor string) error {
	if err := s.store.DeleteClient(ctx, tenantID, id); err != nil {
		return err
	}
	s.recordAndPublish(ctx, tenantID, events.TopicClientDeleted, id, actor, events.ClientDeleted{TenantID: tenantID, ClientID: id})
	return nil
}

// isNotFound reports whether err means the client does not exist.
func isNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
