// Package applets holds the built-in channel programs
package applets

import (
	"go-hemisphere/applet"
)

// Registry returns the table of selectable built-in programs. Index 0 is
// the empty program.
func Registry() *applet.Registry {
	reg, err := applet.NewRegistry(
		applet.Entry{ID: "empty", Name: "Empty", Factory: NewEmpty},
		applet.Entry{ID: "trigsh", Name: "Trig S&H", Factory: NewTrigSH},
	)
	if err != nil {
		panic(err)
	}
	return reg
}
