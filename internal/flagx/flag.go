// Package flagx helps several parsers share one command line.
package flagx

import (
	"flag"
	"io"
	"strings"
)

// FilterArgs returns the subset of args that belongs to the named flags,
// together with their values. Names are given without dashes; both "-name"
// and "--name" spellings match, as do "-name=value" and "-name value".
//
// Flags listed in boolNames never consume the following argument.
func FilterArgs(args []string, names []string, boolNames ...string) []string {
	allowed := make(map[string]bool, len(names)+len(boolNames))
	for _, n := range names {
		allowed[n] = false
	}
	for _, n := range boolNames {
		allowed[n] = true
	}

	filtered := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]
		name, hasValue, ok := flagName(arg)
		if !ok {
			continue
		}
		isBool, known := allowed[name]
		if !known {
			continue
		}
		filtered = append(filtered, arg)
		if hasValue || isBool {
			continue
		}
		if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
			filtered = append(filtered, args[i+1])
			i++
		}
	}
	return filtered
}

func flagName(arg string) (name string, hasValue bool, ok bool) {
	if !strings.HasPrefix(arg, "-") || arg == "-" || arg == "--" {
		return "", false, false
	}
	name = strings.TrimLeft(arg, "-")
	if before, _, found := strings.Cut(name, "="); found {
		return before, true, true
	}
	return name, false, true
}

// ConfigFile extracts the config file path given via -c or -config.
// It returns "" when neither is present.
func ConfigFile(args []string) string {
	var path string

	fs := flag.NewFlagSet("config", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&path, "config", "", "path to config file")
	fs.StringVar(&path, "c", "", "path to config file (short)")
	_ = fs.Parse(FilterArgs(args, []string{"c", "config"}))

	return path
}
