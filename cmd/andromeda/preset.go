package main

import (
	"encoding/json"
	"fmt"

	"github.com/cbegin/andromeda-go"
	intpreset "github.com/cbegin/andromeda-go/internal/preset"
)

// runPreset prints the default preset, or the named preset after filling in
// defaults, and optionally writes it out.
func runPreset(args []string) error {
	fs, verbose := newFlagSet("preset")
	var (
		from = fs.String("from", "", "preset to normalize (default: built-in defaults)")
		out  = fs.String("o", "", "write the preset to this path instead of stdout")
	)
	fs.Parse(args)
	logger := setupLogging(*verbose)

	st := andromeda.DefaultState()
	if *from != "" {
		loaded, err := intpreset.Load(*from)
		if err != nil {
			return err
		}
		st = loaded
	}
	if *out != "" {
		if err := intpreset.Save(*out, st); err != nil {
			return err
		}
		logger.Info("preset written", "path", *out)
		return nil
	}
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
