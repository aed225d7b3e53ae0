package schema

import (
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"
)

// schemaDef constrains a schema document: every column under
// table.<name> must carry one of the registry type names.
const schemaDef = `
#Type: "integer" | "real" | "text" | "boolean" | "blob" | "timestamp" | "any"
table: [string]: [string]: #Type
`

// LoadError is a schema file failure with its CUE source position.
type LoadError struct {
	Message string
	Pos     token.Pos
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Message)
	}
	return e.Message
}

// LoadCUE builds a registry from a CUE schema file or a directory of CUE
// files forming one package:
//
//	table: users: {
//		id:   "integer"
//		name: "text"
//	}
//
// Tables and columns keep their declaration order.
func LoadCUE(path string) (*Registry, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("schema path: %w", err)
	}

	ctx := cuecontext.New()
	var v cue.Value
	if info.IsDir() {
		instances := load.Instances([]string{"."}, &load.Config{Dir: path})
		if len(instances) == 0 {
			return nil, &LoadError{Message: fmt.Sprintf("no CUE instances in %s", path)}
		}
		if instances[0].Err != nil {
			return nil, formatCUEError(instances[0].Err)
		}
		v = ctx.BuildInstance(instances[0])
	} else {
		src, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read schema file: %w", err)
		}
		v = ctx.CompileBytes(src, cue.Filename(path))
	}

	return fromValue(ctx, v)
}

// ParseCUE builds a registry from CUE source text.
func ParseCUE(src string) (*Registry, error) {
	ctx := cuecontext.New()
	return fromValue(ctx, ctx.CompileString(src, cue.Filename("schema.cue")))
}

func fromValue(ctx *cue.Context, v cue.Value) (*Registry, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	def := ctx.CompileString(schemaDef)
	unified := v.Unify(def)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}

	tablesVal := unified.LookupPath(cue.ParsePath("table"))
	if !tablesVal.Exists() {
		return nil, &LoadError{Message: "schema has no table definitions", Pos: v.Pos()}
	}

	tableIter, err := tablesVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	reg := NewRegistry()
	for tableIter.Next() {
		name := tableIter.Label()

		colIter, err := tableIter.Value().Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}

		var cols []Column
		for colIter.Next() {
			typ, err := colIter.Value().String()
			if err != nil {
				return nil, formatCUEError(err)
			}
			cols = append(cols, Column{Name: colIter.Label(), Type: typ})
		}

		if err := reg.Define(name, cols...); err != nil {
			return nil, &LoadError{Message: err.Error(), Pos: tableIter.Value().Pos()}
		}
	}

	return reg, nil
}

// formatCUEError keeps the position of the first CUE error.
func formatCUEError(err error) error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return err
	}
	first := errs[0]
	if positions := cueerrors.Positions(first); len(positions) > 0 {
		return &LoadError{Message: first.Error(), Pos: positions[0]}
	}
	return &LoadError{Message: first.Error()}
}
