package kitfile

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
)

//go:embed kitfile.cue
var schemaSrc string

var (
	schemaOnce sync.Once
	schemaCtx  *cue.Context
	schemaDef  cue.Value
	schemaErr  error
)

// loadSchema compiles the embedded schema once. cue.Context is not safe for
// concurrent use, so checkSchema serializes access through schemaMu.
func loadSchema() (*cue.Context, cue.Value, error) {
	schemaOnce.Do(func() {
		schemaCtx = cuecontext.New()
		v := schemaCtx.CompileString(schemaSrc, cue.Filename("kitfile.cue"))
		if err := v.Err(); err != nil {
			schemaErr = fmt.Errorf("compile kitfile schema: %w", err)
			return
		}
		schemaDef = v.LookupPath(cue.ParsePath("#Kitfile"))
		if err := schemaDef.Err(); err != nil {
			schemaErr = fmt.Errorf("lookup #Kitfile: %w", err)
		}
	})
	return schemaCtx, schemaDef, schemaErr
}

var schemaMu sync.Mutex

// checkSchema validates a decoded, JSON-compatible document against the
// embedded CUE schema.
func checkSchema(doc map[string]any) error {
	schemaMu.Lock()
	defer schemaMu.Unlock()

	ctx, def, err := loadSchema()
	if err != nil {
		return err
	}

	data := ctx.Encode(doc)
	if err := data.Err(); err != nil {
		return ValidationErrors{{
			Field:   "kitfile",
			Message: err.Error(),
			Code:    ErrCodeSchema,
		}}
	}

	unified := def.Unify(data)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return schemaErrors(err)
	}
	return nil
}

// schemaErrors converts CUE errors into validation errors, one per distinct
// path and message.
func schemaErrors(err error) ValidationErrors {
	var errs ValidationErrors
	seen := make(map[string]bool)
	for _, e := range cueerrors.Errors(err) {
		path := e.Path()
		if len(path) > 0 && path[0] == "#Kitfile" {
			path = path[1:]
		}
		field := strings.Join(path, ".")
		if field == "" {
			field = "kitfile"
		}
		format, args := e.Msg()
		msg := fmt.Sprintf(format, args...)

		key := field + "\x00" + msg
		if seen[key] {
			continue
		}
		seen[key] = true

		errs = append(errs, ValidationError{
			Field:   field,
			Message: msg,
			Code:    ErrCodeSchema,
		})
	}
	if len(errs) == 0 {
		errs = append(errs, ValidationError{Field: "kitfile", Message: err.Error(), Code: ErrCodeSchema})
	}
	return errs
}
