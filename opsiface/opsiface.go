// Package opsiface defines the operations interface the
// immediate-operations executor (package operations) drives for
// DISCOVERY/AUTO_REGISTRATION action matches (spec.md §4.3, §6).
package opsiface

import (
	"context"

	"github.com/eventaction/core/model"
)

// Operations is the external host/group/template mutation surface this
// module consumes but does not own the implementation of (spec.md §1
// names it an out-of-scope collaborator; the scope here is the caller
// contract, not the host-management backend behind it).
type Operations interface {
	HostAdd(ctx context.Context, event model.Event) error
	HostRemove(ctx context.Context, event model.Event) error
	HostEnable(ctx context.Context, event model.Event) error
	HostDisable(ctx context.Context, event model.Event) error
	HostInventoryMode(ctx context.Context, event model.Event, mode int) error

	// TemplateAdd/TemplateRemove and GroupsAdd/GroupsRemove receive
	// already sorted, deduplicated id lists (spec.md §4.3, §8 invariant).
	TemplateAdd(ctx context.Context, event model.Event, templateIDs []uint64) error
	TemplateRemove(ctx context.Context, event model.Event, templateIDs []uint64) error
	GroupsAdd(ctx context.Context, event model.Event, groupIDs []uint64) error
	GroupsRemove(ctx context.Context, event model.Event, groupIDs []uint64) error
}
