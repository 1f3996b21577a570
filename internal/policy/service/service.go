package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"arbiter/internal/audit"
	"arbiter/internal/policy"
	"arbiter/pkg/domain"
	dErrors "arbiter/pkg/domain-errors"
	"arbiter/pkg/platform/sentinel"
)

// Store is the slice of policy storage the registry needs.
type Store interface {
	Save(ctx context.Context, p policy.Policy) error
	FindByID(ctx context.Context, id string) (policy.Policy, error)
	List(ctx context.Context) ([]policy.Policy, error)
}

// AuditRecorder appends to the audit trail. Satisfied by the audit service.
type AuditRecorder interface {
	Record(ctx context.Context, entry audit.Entry) (audit.Entry, error)
}

// Registry owns policy reads and mutations. Updates are read-merge-validate-
// write; the read and the write are separate critical sections, so two
// concurrent conflicting updates to the same policy race and the second
// write wins. Accepted limitation for this deployment shape.
type Registry struct {
	store   Store
	auditor AuditRecorder
	logger  *slog.Logger
}

func New(store Store, auditor AuditRecorder, logger *slog.Logger) *Registry {
	return &Registry{store: store, auditor: auditor, logger: logger}
}

func (r *Registry) Get(ctx context.Context, policyID string) (policy.Policy, error) {
	p, err := r.store.FindByID(ctx, policyID)
	if err != nil {
		return policy.Policy{}, wrapPolicyErr(err)
	}
	return p, nil
}

func (r *Registry) List(ctx context.Context) ([]policy.Policy, error) {
	policies, err := r.store.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list policies")
	}
	return policies, nil
}

// Update applies a partial update. Validation runs on the fully merged record
// so cross-field ordering can be checked; a rejected update writes nothing
// and emits no audit entry. An update that changes no field is a no-op.
func (r *Registry) Update(ctx context.Context, policyID string, update policy.Update) (policy.Policy, error) {
	current, err := r.store.FindByID(ctx, policyID)
	if err != nil {
		return policy.Policy{}, wrapPolicyErr(err)
	}

	merged, changes := update.Apply(current)
	if err := merged.Validate(); err != nil {
		return policy.Policy{}, err
	}
	if len(changes) == 0 {
		return current, nil
	}

	merged.UpdatedAt = time.Now().UTC()
	if err := r.store.Save(ctx, merged); err != nil {
		return policy.Policy{}, dErrors.Wrap(err, dErrors.CodeInternal, "save policy")
	}

	if _, err := r.auditor.Record(ctx, audit.Entry{
		ActionType: audit.ActionPolicyUpdated,
		Actor:      audit.ActorAdmin,
		Reason:     fmt.Sprintf("Policy %q updated", merged.Name),
		Metadata: domain.Metadata{
			"policy_id":   merged.ID,
			"policy_name": merged.Name,
			"changes":     changes,
		},
	}); err != nil {
		return policy.Policy{}, err
	}

	r.logger.InfoContext(ctx, "policy updated",
		"policy_id", merged.ID,
		"category", merged.Category,
		"changed_fields", len(changes),
	)
	return merged, nil
}

// Toggle flips the enabled flag. Always a real change, so always audited.
func (r *Registry) Toggle(ctx context.Context, policyID string) (policy.Policy, error) {
	current, err := r.store.FindByID(ctx, policyID)
	if err != nil {
		return policy.Policy{}, wrapPolicyErr(err)
	}

	oldEnabled := current.Enabled
	current.Enabled = !current.Enabled
	current.UpdatedAt = time.Now().UTC()
	if err := r.store.Save(ctx, current); err != nil {
		return policy.Policy{}, dErrors.Wrap(err, dErrors.CodeInternal, "save policy")
	}

	state := "disabled"
	if current.Enabled {
		state = "enabled"
	}
	if _, err := r.auditor.Record(ctx, audit.Entry{
		ActionType: audit.ActionPolicyUpdated,
		Actor:      audit.ActorAdmin,
		Reason:     fmt.Sprintf("Policy %q %s", current.Name, state),
		Metadata: domain.Metadata{
			"policy_id":   current.ID,
			"policy_name": current.Name,
			"old_enabled": oldEnabled,
			"new_enabled": current.Enabled,
		},
	}); err != nil {
		return policy.Policy{}, err
	}

	r.logger.InfoContext(ctx, "policy toggled",
		"policy_id", current.ID,
		"enabled", current.Enabled,
	)
	return current, nil
}

func wrapPolicyErr(err error) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "policy not found")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "policy lookup failed")
}
