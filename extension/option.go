package extension

import "github.com/mlgate/mlgate/model"

type Option func(*Types)

// WithImports scopes a type lookup to the given package imports.
func WithImports(imports model.Imports) Option {
	return func(t *Types) {
		t.imports = imports
	}
}
