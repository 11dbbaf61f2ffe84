package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kitops-ml/kitops-go/internal/kit"
)

// addKitFlags registers the repeatable --flag option on cmd.
func addKitFlags(cmd *cobra.Command, raw *[]string) {
	cmd.Flags().StringArrayVar(raw, "flag", nil, "extra kit flag as key=value, or key for a bare flag (repeatable)")
}

// parseKitFlags turns --flag values into kit.Flags:
//
//	plain-http          => true
//	tls_verify=true     => true
//	tls_verify=false    => kit.ExplicitBool(false), rendered --tls-verify=false
//	concurrency=4       => "4"
//	cert=a.pem cert=b   => []any{"a.pem", "b"}
func parseKitFlags(raw []string) (kit.Flags, error) {
	flags := kit.Flags{}
	for _, item := range raw {
		key, value, hasValue := strings.Cut(item, "=")
		key = strings.TrimSpace(key)
		if strings.Trim(key, "-") == "" {
			return nil, fmt.Errorf("invalid --flag %q: missing name", item)
		}

		var v any = true
		if hasValue {
			switch value {
			case "true":
				v = true
			case "false":
				v = kit.ExplicitBool(false)
			default:
				v = value
			}
		}

		switch prev := flags[key].(type) {
		case nil:
			flags[key] = v
		case []any:
			flags[key] = append(prev, v)
		default:
			flags[key] = []any{prev, v}
		}
	}
	return flags, nil
}
