package bundler

import (
	"strings"

	"codebundle/internal/errors"
)

// Action names one of the three entry points
type Action string

const (
	ActionArchive  Action = "archive"
	ActionRestore  Action = "restore"
	ActionManifest Action = "manifest"
)

// Actions in menu order
var Actions = []Action{ActionArchive, ActionRestore, ActionManifest}

// ParseAction accepts a menu number or an action name
func ParseAction(selection string) (Action, error) {
	switch strings.ToLower(strings.TrimSpace(selection)) {
	case "1", string(ActionArchive):
		return ActionArchive, nil
	case "2", string(ActionRestore):
		return ActionRestore, nil
	case "3", string(ActionManifest), "list":
		return ActionManifest, nil
	default:
		return "", errors.InvalidSelection(selection)
	}
}
