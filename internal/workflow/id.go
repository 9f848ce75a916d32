package workflow

import (
	"encoding/json"

	"github.com/google/uuid"
)

// idNamespace scopes workflow ids generated by this package.
var idNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/dusk-indust/simflow/workflow"))

// ID derives a stable identifier for the workflow built from p. Parameters
// that do not change the graph, such as the output path, are ignored.
func ID(p Parameters) uuid.UUID {
	p.Output = ""
	// Parameters holds only scalar fields; encoding cannot fail.
	canonical, _ := json.Marshal(p)
	return uuid.NewSHA1(idNamespace, canonical)
}
