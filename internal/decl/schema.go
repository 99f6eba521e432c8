package decl

import "github.com/hashicorp/hcl/v2"

// fileRoot decodes every top-level block of a file.
type fileRoot struct {
	Components []*componentBlock `hcl:"component,block"`
	Remain     hcl.Body          `hcl:",remain"`
}

type componentBlock struct {
	Name       string           `hcl:"name,label"`
	Extends    *string          `hcl:"extends,optional"`
	Children   []string         `hcl:"children,optional"`
	Properties []*propertyBlock `hcl:"property,block"`
	Elements   []*elementBlock  `hcl:"element,block"`
	Watches    []*watchBlock    `hcl:"watch,block"`
	DeclRange  hcl.Range        `hcl:",def_range"`

	// src holds the bytes of the declaring file, for expression sources.
	src []byte
}

type propertyBlock struct {
	Name  string         `hcl:"name,label"`
	Type  hcl.Expression `hcl:"type,optional"`
	Value hcl.Expression `hcl:"value,optional"`
}

type elementBlock struct {
	Name  string            `hcl:"name,label"`
	Tag   *string           `hcl:"tag,optional"`
	Attrs map[string]string `hcl:"attrs,optional"`
}

type watchBlock struct {
	Gets []*adapterBlock `hcl:"get,block"`
	Sets []*adapterBlock `hcl:"set,block"`
}

type adapterBlock struct {
	Kind      string         `hcl:"kind,label"`
	Name      string         `hcl:"name,label"`
	Target    *string        `hcl:"target,optional"`
	Match     hcl.Expression `hcl:"match,optional"`
	Value     hcl.Expression `hcl:"value,optional"`
	Delay     *string        `hcl:"delay,optional"`
	Static    *bool          `hcl:"static,optional"`
	DeclRange hcl.Range      `hcl:",def_range"`
}
