package registry

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// overlayEntry mirrors LaunchDescriptor for YAML decoding; LaunchShape and
// ToolServer are kept as plain strings on the wire for readability.
type overlayEntry struct {
	Executable  string   `yaml:"executable"`
	Args        []string `yaml:"args"`
	Shape       string   `yaml:"shape"`
	AdapterHint string   `yaml:"adapter_hint"`
	ToolServers []string `yaml:"tool_servers"`
}

// overlayFile is the top-level YAML document shape: a flat map from
// agent-type name to descriptor. Narrowed from blueprint.Blueprint's
// {Name, Description, Defaults, Agents, Workstations, Furniture} down to
// exactly the fields a launch descriptor needs — this repository has no
// multi-agent floor, no workstations, and no furniture to configure.
type overlayFile struct {
	Agents map[string]overlayEntry `yaml:"agents"`
}

// LoadOverlay reads a YAML overlay file and returns its entries converted
// to LaunchDescriptor values. A missing file is not an error: the overlay
// is optional.
func LoadOverlay(path string) (map[string]LaunchDescriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read overlay %s: %w", path, err)
	}

	var doc overlayFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse overlay %s: %w", path, err)
	}

	out := make(map[string]LaunchDescriptor, len(doc.Agents))
	for name, e := range doc.Agents {
		shape := LaunchShape(e.Shape)
		if shape == "" {
			shape = ShapeFlag
		}
		servers := make([]ToolServer, 0, len(e.ToolServers))
		for _, s := range e.ToolServers {
			servers = append(servers, ToolServer{Name: s})
		}
		out[name] = LaunchDescriptor{
			Executable:  e.Executable,
			Args:        e.Args,
			Shape:       shape,
			AdapterHint: e.AdapterHint,
			ToolServers: servers,
		}
	}
	return out, nil
}
