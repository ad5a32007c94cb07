package forum

import (
	"context"
	"strconv"

	"go.opentelemetry.io/otel/attribute"

	"github.com/platinummonkey/forum/pkg/apperr"
	"github.com/platinummonkey/forum/pkg/audit"
	"github.com/platinummonkey/forum/pkg/auth"
)

// Settings holds runtime-adjustable configuration. prune.Pruner implements it.
type Settings interface {
	AutoDeleteDays() int
	SetAutoDeleteDays(days int) error
}

// SettingsView is the admin view of the runtime settings
type SettingsView struct {
	AutoDeleteDays    int  `json:"auto_delete_days"`
	AutoDeleteEnabled bool `json:"auto_delete_enabled"`
}

func viewSettings(settings Settings) *SettingsView {
	days := settings.AutoDeleteDays()
	return &SettingsView{AutoDeleteDays: days, AutoDeleteEnabled: days > 0}
}

// AutoDeleteInput changes the auto-prune age
type AutoDeleteInput struct {
	Days *int `json:"days" validate:"required,min=0,max=36500"`
}

// GetSettings returns the current settings to an admin
func (s *Service) GetSettings(ctx context.Context, actor *auth.Actor, settings Settings) (*SettingsView, error) {
	if err := s.authorize(ctx, s.authz.CanManageSettings(actor)); err != nil {
		return nil, err
	}
	return viewSettings(settings), nil
}

// SetAutoDeleteDays changes how old a topic must be before it is pruned.
// Zero disables pruning.
func (s *Service) SetAutoDeleteDays(ctx context.Context, actor *auth.Actor, settings Settings, in AutoDeleteInput) (_ *SettingsView, err error) {
	ctx, span := startSpan(ctx, "SetAutoDeleteDays")
	defer func() { endSpan(span, err) }()

	if err := s.authorize(ctx, s.authz.CanManageSettings(actor)); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(in); err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("days", *in.Days))

	before := settings.AutoDeleteDays()
	if err := settings.SetAutoDeleteDays(*in.Days); err != nil {
		return nil, apperr.Validation(err.Error())
	}

	s.moderation(ctx, audit.EventTypeSettingsChange, actor, audit.ResourceTypeSettings, 0,
		audit.Change("auto_delete_days", before, *in.Days), "auto delete days set to "+strconv.Itoa(*in.Days))
	return viewSettings(settings), nil
}

// SearchAudit lists audit entries, newest first. It returns NotFound when the
// configured audit logger cannot be searched.
func (s *Service) SearchAudit(ctx context.Context, actor *auth.Actor, filter audit.SearchFilter) ([]*audit.AuditEvent, error) {
	if err := s.authorize(ctx, s.authz.CanManageSettings(actor)); err != nil {
		return nil, err
	}
	searcher, ok := s.audit.(audit.Searcher)
	if !ok {
		return nil, apperr.NotFound("audit log")
	}
	events, err := searcher.Search(ctx, filter)
	if err != nil {
		return nil, apperr.Storage("search audit log", err)
	}
	return events, nil
}
