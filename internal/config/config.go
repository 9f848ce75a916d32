package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"gopkg.in/yaml.v3"

	"github.com/dusk-indust/simflow/internal/workflow"
)

// FileNames are the parameter files Load looks for, in order.
var FileNames = []string{"simflow.yml", "simflow.yaml", "simflow.hcl", "simflow.json"}

// Load attempts to read a parameter file from the given directory. Returns
// the default parameters (not an error) if no parameter file exists.
func Load(dir string) (workflow.Parameters, error) {
	for _, name := range FileNames {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		return LoadFile(path)
	}
	return workflow.DefaultParameters(), nil
}

// LoadFile reads parameters from path, YAML, HCL or JSON by extension.
// Settings absent from the file keep their defaults. Unlike Load, a missing
// file is an error.
func LoadFile(path string) (workflow.Parameters, error) {
	p := workflow.DefaultParameters()
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return p, fmt.Errorf("%w: parameter file %s does not exist", workflow.ErrConfig, path)
	}
	if err != nil {
		return p, fmt.Errorf("reading %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		p, err = ParseJSON(data)
	case ".hcl":
		err = decodeHCL(path, data, &p)
	case ".yml", ".yaml", "":
		err = decodeYAML(path, data, &p)
	default:
		err = fmt.Errorf("%s: unsupported parameter file type %q", path, filepath.Ext(path))
	}
	return p, err
}

// ParseJSON overlays a JSON parameter object onto the defaults. Unknown
// fields are configuration errors.
func ParseJSON(data []byte) (workflow.Parameters, error) {
	p := workflow.DefaultParameters()
	if len(bytes.TrimSpace(data)) == 0 {
		return p, nil
	}
	// encoding/json folds case when matching keys, so timeFrames would
	// silently set timeframes.
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return workflow.DefaultParameters(), fmt.Errorf("%w: %v", workflow.ErrConfig, err)
	}
	if unknown := unknownKeys(raw); len(unknown) > 0 {
		return workflow.DefaultParameters(), fmt.Errorf("%w: unknown parameter(s) %s", workflow.ErrConfig, strings.Join(unknown, ", "))
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&p); err != nil {
		return workflow.DefaultParameters(), fmt.Errorf("%w: %v", workflow.ErrConfig, err)
	}
	return p, nil
}

var jsonNames = sync.OnceValue(func() map[string]bool {
	names := make(map[string]bool)
	t := reflect.TypeOf(workflow.Parameters{})
	for i := range t.NumField() {
		name, _, _ := strings.Cut(t.Field(i).Tag.Get("json"), ",")
		if name != "" && name != "-" {
			names[name] = true
		}
	}
	return names
})

func unknownKeys(raw map[string]json.RawMessage) []string {
	known := jsonNames()
	var unknown []string
	for k := range raw {
		if !known[k] {
			unknown = append(unknown, fmt.Sprintf("%q", k))
		}
	}
	sort.Strings(unknown)
	return unknown
}

func decodeYAML(path string, data []byte, p *workflow.Parameters) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	err := dec.Decode(p)
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("decoding %s: %w: %v", path, workflow.ErrConfig, err)
	}
	return nil
}

func decodeHCL(path string, data []byte, p *workflow.Parameters) error {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(data, path)
	if diags.HasErrors() {
		return fmt.Errorf("failed to parse HCL file %s: %s", path, diags.Error())
	}
	diags = gohcl.DecodeBody(file.Body, evalContext(), p)
	if diags.HasErrors() {
		return fmt.Errorf("failed to decode HCL file %s: %s", path, diags.Error())
	}
	return nil
}

// evalContext exposes the process environment to HCL expressions as
// env.NAME, e.g. use_bkg_from = "${env.BKG_CACHE}/pp".
func evalContext() *hcl.EvalContext {
	vars := make(map[string]cty.Value)
	for _, kv := range os.Environ() {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			continue
		}
		vars[k] = cty.StringVal(v)
	}
	env := cty.EmptyObjectVal
	if len(vars) > 0 {
		env = cty.ObjectVal(vars)
	}
	return &hcl.EvalContext{Variables: map[string]cty.Value{"env": env}}
}
