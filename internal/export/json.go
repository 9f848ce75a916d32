package export

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/dusk-indust/simflow/internal/workflow"
)

//go:embed schema/workflow.schema.json
var schemaFS embed.FS

const schemaPath = "schema/workflow.schema.json"

var documentSchema = sync.OnceValue(func() *jsonschema.Schema {
	src, err := schemaFS.ReadFile(schemaPath)
	if err != nil {
		panic(err)
	}
	return jsonschema.MustCompileString(schemaPath, string(src))
})

// WriteJSON writes the workflow document with two-space indentation and a
// trailing newline. Shell metacharacters are written verbatim.
func WriteJSON(w io.Writer, wf *workflow.Workflow) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(wf); err != nil {
		return fmt.Errorf("encode workflow: %w", err)
	}
	return nil
}

// WriteJSONFile writes the workflow document to path.
func WriteJSONFile(path string, wf *workflow.Workflow) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteJSON(f, wf); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ValidateDocument checks raw JSON against the workflow document schema.
func ValidateDocument(data []byte) error {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("decode workflow: %w", err)
	}
	if err := documentSchema().Validate(doc); err != nil {
		return fmt.Errorf("workflow document: %w", err)
	}
	return nil
}

// ReadJSON loads a workflow document after checking it against the document
// schema. Stages read back carry their rendered command only.
func ReadJSON(r io.Reader) (*workflow.Workflow, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read workflow: %w", err)
	}
	if err := ValidateDocument(data); err != nil {
		return nil, err
	}

	var wf workflow.Workflow
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&wf); err != nil {
		return nil, fmt.Errorf("decode workflow: %w", err)
	}
	for _, s := range wf.Stages {
		if s.Needs == nil {
			s.Needs = []string{}
		}
		if s.Labels == nil {
			s.Labels = []string{}
		}
	}
	return &wf, nil
}

// ReadJSONFile loads the workflow document at path.
func ReadJSONFile(path string) (*workflow.Workflow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	wf, err := ReadJSON(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return wf, nil
}
