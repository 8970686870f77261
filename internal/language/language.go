package language

import (
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/gqlerror"
	"github.com/vektah/gqlparser/v2/parser"
	"github.com/vektah/gqlparser/v2/validator"
)

// ParseQuery parses an executable GraphQL document without validating it
// against a schema.
func ParseQuery(source string) (*QueryDocument, error) {
	doc, err := parser.ParseQuery(&ast.Source{Input: source})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// Validate checks a parsed document against a schema and returns every
// validation issue found.
func Validate(schema *ast.Schema, doc *QueryDocument) gqlerror.List {
	return validator.Validate(schema, doc)
}
