package tool

import (
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// SchemaTool is implemented by tools that declare a JSON Schema for the
// structured parameters they read out of ToolContext.Shared once an
// upstream coordinated tool has populated it (spec 4.5's serial-group
// data threading). Declaring one is optional: most tools work directly
// off the free-form request string and CanHandle's own scoring.
type SchemaTool interface {
	Tool
	ParametersSchema() string
}

// compileSchema validates that a tool's declared parameter schema is
// well-formed JSON Schema at registration time. A malformed schema does
// not prevent registration — it only means the tool loses the
// registration-time contract check and is logged as a warning.
func compileSchema(raw string) (*jsonschema.Schema, error) {
	c := jsonschema.NewCompiler()
	if err := c.AddResource("tool-schema.json", strings.NewReader(raw)); err != nil {
		return nil, err
	}
	return c.Compile("tool-schema.json")
}
