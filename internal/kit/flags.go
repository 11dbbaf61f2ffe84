package kit

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"strconv"
	"strings"
)

// ErrUnknownFlag is returned when a flag is not accepted by the kit command
// it is passed to.
var ErrUnknownFlag = errors.New("unknown flag")

// Flags are extra command-line flags for a kit command. Keys may be written
// in snake_case or kebab-case, with or without leading dashes:
//
//	Flags{"plain_http": true, "concurrency": 4}  =>  --concurrency 4 --plain-http
//
// true adds a bare flag, false and nil omit it, an ExplicitBool is attached
// with "=" (--tls-verify=false), slices repeat the flag once per element, and
// any other value is passed as its string form.
type Flags map[string]any

// ExplicitBool renders as --name=true or --name=false. Use it to turn off a
// flag whose default is on.
type ExplicitBool bool

// globalFlags are accepted by every kit command.
var globalFlags = []string{"config", "log-level", "progress", "verbose"}

// networkFlags are accepted by commands that talk to a registry.
var networkFlags = []string{"plain-http", "tls-verify", "cert", "key", "concurrency", "proxy"}

// commandFlags lists the extra flags accepted per command. Flags the client
// sets itself (--tag for pack, --dir for unpack, credentials for login) are
// not accepted.
var commandFlags = map[string][]string{
	"info":    {"remote"},
	"inspect": {"remote"},
	"list":    {},
	"login":   {"plain-http", "tls-verify", "cert", "key", "proxy"},
	"logout":  {},
	"pack":    {"file", "compression", "use-model-pack"},
	"pull":    networkFlags,
	"push":    networkFlags,
	"remove":  {"force", "all", "remote"},
	"unpack":  append([]string{"overwrite", "ignore-existing"}, networkFlags...),
	"version": {"show-update-notifications"},
}

// With returns a copy of f with key set to value. Existing keys naming the
// same flag, such as "plain_http" for "plain-http", are replaced.
func (f Flags) With(key string, value any) Flags {
	name := normalizeFlagName(key)
	out := make(Flags, len(f)+1)
	for k, v := range f {
		if normalizeFlagName(k) != name {
			out[k] = v
		}
	}
	out[name] = value
	return out
}

// normalizeFlagName turns "plain_http", "--plain-http" and "plain-http" into
// "plain-http".
func normalizeFlagName(name string) string {
	name = strings.TrimLeft(strings.TrimSpace(name), "-")
	return strings.ReplaceAll(name, "_", "-")
}

// Render returns the command-line form of the flags for command, in sorted
// flag-name order.
func (f Flags) Render(command string) ([]string, error) {
	allowed, ok := commandFlags[command]
	if !ok {
		return nil, fmt.Errorf("unknown kit command %q", command)
	}

	names := make([]string, 0, len(f))
	values := make(map[string]any, len(f))
	for key, value := range f {
		name := normalizeFlagName(key)
		if name == "" {
			return nil, fmt.Errorf("%w: empty flag name", ErrUnknownFlag)
		}
		if !slices.Contains(allowed, name) && !slices.Contains(globalFlags, name) {
			return nil, fmt.Errorf("%w %q for kit %s", ErrUnknownFlag, "--"+name, command)
		}
		if _, dup := values[name]; dup {
			return nil, fmt.Errorf("flag %q given more than once", "--"+name)
		}
		names = append(names, name)
		values[name] = value
	}
	sort.Strings(names)

	var args []string
	for _, name := range names {
		args = appendFlag(args, "--"+name, values[name])
	}
	return args, nil
}

func appendFlag(args []string, flag string, value any) []string {
	switch v := value.(type) {
	case nil:
		return args
	case bool:
		if v {
			args = append(args, flag)
		}
		return args
	case ExplicitBool:
		return append(args, flag+"="+strconv.FormatBool(bool(v)))
	case []string:
		for _, elem := range v {
			args = append(args, flag, elem)
		}
		return args
	case []any:
		for _, elem := range v {
			args = appendFlag(args, flag, elem)
		}
		return args
	default:
		return append(args, flag, fmt.Sprint(v))
	}
}

// repeated renders one flag per value, such as --filter for info and unpack.
func repeated(flag string, values []string) []string {
	args := make([]string, 0, 2*len(values))
	for _, v := range values {
		args = append(args, flag, v)
	}
	return args
}
