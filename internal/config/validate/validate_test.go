package validate

import (
	"strings"
	"testing"
)

func TestValidateRecipeJSON(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr string
	}{
		{
			name: "minimal recipe",
			data: `{"name": "gringo", "version": "4.4.0.dev1", "readme": "README.rst",
				"data_files": [{"dir": "lib/python2.7/site-packages", "files": ["gringo.so"]}]}`,
		},
		{
			name: "keywords as list",
			data: `{"name": "gringo", "version": "4.4.0", "readme": "README.rst", "keywords": ["asp", "clingo"],
				"data_files": [{"dir": "lib", "files": ["gringo.so"]}]}`,
		},
		{
			name: "full build section",
			data: `{"name": "gringo", "version": "4.4.0", "readme": "README.rst",
				"build": {"source_dir": "clingo-{{version}}-source", "tool": "scons", "args": ["--build=release"],
					"target": "pyclingo", "jobs": 4, "outputs": ["build/release/python/gringo.so"],
					"version_probe": {"command": "python --version", "pattern": "(\\d+)"}},
				"data_files": [{"dir": "lib", "files": ["gringo.so"]}]}`,
		},
		{
			name:    "missing readme",
			data:    `{"name": "gringo", "version": "4.4.0", "data_files": [{"dir": "lib", "files": ["a"]}]}`,
			wantErr: "readme",
		},
		{
			name:    "bad version",
			data:    `{"name": "gringo", "version": "four", "readme": "R", "data_files": [{"dir": "lib", "files": ["a"]}]}`,
			wantErr: "version",
		},
		{
			name:    "empty data files",
			data:    `{"name": "gringo", "version": "4.4.0", "readme": "R", "data_files": []}`,
			wantErr: "data_files",
		},
		{
			name:    "unknown field",
			data:    `{"name": "gringo", "version": "4.4.0", "readme": "R", "distclass": "x", "data_files": [{"dir": "lib", "files": ["a"]}]}`,
			wantErr: "distclass",
		},
		{
			name:    "not an object",
			data:    `null`,
			wantErr: "schema validation",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRecipeJSON([]byte(tt.data))
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("expected valid recipe, got: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got: %v", tt.wantErr, err)
			}
		})
	}
}

func TestValidateConfigJSON(t *testing.T) {
	if err := ValidateConfigJSON([]byte(`{"work_dir": "build", "archive": {"format": "xztar"}, "upload": {"secure": false}}`)); err != nil {
		t.Errorf("expected valid config, got: %v", err)
	}
	if err := ValidateConfigJSON([]byte(`{"archive": {"format": "zip"}}`)); err == nil {
		t.Error("expected error for unsupported archive format")
	}
	if err := ValidateConfigJSON([]byte(`{"logging": {"level": "chatty"}}`)); err == nil {
		t.Error("expected error for unknown log level")
	}
}

func TestValidateAgainstSchemaInvalidJSON(t *testing.T) {
	err := ValidateAgainstSchema("config.schema.json", configSchema, []byte("{not json"), "")
	if err == nil || !strings.Contains(err.Error(), "invalid JSON") {
		t.Errorf("expected invalid JSON error, got: %v", err)
	}
}

func TestValidateAgainstSchemaRef(t *testing.T) {
	err := ValidateAgainstSchema("recipe.schema.json", recipeSchema,
		[]byte(`{"dir": "share/doc", "files": ["README"]}`), "#/definitions/dataFile")
	if err != nil {
		t.Errorf("expected data file to validate against sub-schema, got: %v", err)
	}
}
