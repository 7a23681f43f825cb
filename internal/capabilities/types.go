package capabilities

import "gopkg.in/yaml.v3"

// Operation names used in the provider YAML files
const (
	OpListFolder   = "list_folder"
	OpCreateFolder = "create_folder"
	OpUpload       = "upload"
	OpRename       = "rename"
	OpDelete       = "delete"
	OpToggleStar   = "toggle_star"
	OpPreview      = "preview"
	OpBreadcrumbs  = "breadcrumbs"
	OpRecent       = "recent"
	OpQuota        = "quota"
)

// Revocation describes how disconnect invalidates a token
type Revocation string

const (
	RevocationRequired   Revocation = "required"
	RevocationBestEffort Revocation = "best_effort"
)

// OperationCapability describes one provider operation
type OperationCapability struct {
	Name      string `yaml:"-" json:"name"`
	Supported bool   `yaml:"supported" json:"supported"`
	// ChangesID is set when the operation assigns the item a new id (Dropbox rename)
	ChangesID bool `yaml:"changes_id" json:"changes_id,omitempty"`
	// Message is the user-visible reason shown for unsupported operations
	Message string `yaml:"message" json:"message,omitempty"`
}

// ProviderCapabilities describes a cloud provider's feature set
type ProviderCapabilities struct {
	Provider    string                `yaml:"provider" json:"provider"`
	DisplayName string                `yaml:"display_name" json:"display_name"`
	IDScheme    string                `yaml:"id_scheme" json:"id_scheme"`
	Pagination  string                `yaml:"pagination" json:"pagination"`
	Revocation  Revocation            `yaml:"revocation" json:"revocation"`
	Operations  []OperationCapability `yaml:"-" json:"operations"` // YAML order
}

// UnmarshalYAML keeps operations in file order
func (p *ProviderCapabilities) UnmarshalYAML(node *yaml.Node) error {
	type plain struct {
		Provider    string                         `yaml:"provider"`
		DisplayName string                         `yaml:"display_name"`
		IDScheme    string                         `yaml:"id_scheme"`
		Pagination  string                         `yaml:"pagination"`
		Revocation  Revocation                     `yaml:"revocation"`
		Operations  map[string]OperationCapability `yaml:"operations"`
	}
	var raw plain
	if err := node.Decode(&raw); err != nil {
		return err
	}

	p.Provider = raw.Provider
	p.DisplayName = raw.DisplayName
	p.IDScheme = raw.IDScheme
	p.Pagination = raw.Pagination
	p.Revocation = raw.Revocation

	// node.Content alternates key, value
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value != "operations" {
			continue
		}
		opsNode := node.Content[i+1]
		for j := 0; j+1 < len(opsNode.Content); j += 2 {
			name := opsNode.Content[j].Value
			if op, ok := raw.Operations[name]; ok {
				op.Name = name
				p.Operations = append(p.Operations, op)
			}
		}
		break
	}

	return nil
}

// Operation returns the named operation, or nil if the file omits it
func (p *ProviderCapabilities) Operation(name string) *OperationCapability {
	for i := range p.Operations {
		if p.Operations[i].Name == name {
			return &p.Operations[i]
		}
	}
	return nil
}
