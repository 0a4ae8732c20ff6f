package events

import (
	"strconv"
	"strings"

	"wity/core/types"
)

// TypeModulePauseUpdated is emitted when the owner pauses or resumes a module.
const TypeModulePauseUpdated = "module.pauseUpdated"

type ModulePauseUpdated struct {
	Module string
	Owner  [20]byte
	Paused bool
}

func (ModulePauseUpdated) EventType() string { return TypeModulePauseUpdated }

func (e ModulePauseUpdated) Event() *types.Event {
	return &types.Event{
		Type: TypeModulePauseUpdated,
		Attributes: map[string]string{
			"module": strings.ToLower(strings.TrimSpace(e.Module)),
			"owner":  formatAddress(e.Owner),
			"paused": strconv.FormatBool(e.Paused),
		},
	}
}
