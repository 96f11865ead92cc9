package jsonapi

// ResourceBuilder provides a fluent API for building Resource objects.
type ResourceBuilder struct {
	resource Resource
}

// NewResource creates a new ResourceBuilder with the given type and ID.
func NewResource(resourceType, id string) *ResourceBuilder {
	return &ResourceBuilder{
		resource: Resource{
			Type:       resourceType,
			ID:         id,
			Attributes: make(map[string]any),
		},
	}
}

// Attr adds an attribute to the resource.
func (b *ResourceBuilder) Attr(key string, value any) *ResourceBuilder {
	b.resource.Attributes[key] = value
	return b
}

// BelongsTo adds a to-one relationship. Empty IDs are skipped.
func (b *ResourceBuilder) BelongsTo(name, relType, relID string) *ResourceBuilder {
	if relID == "" {
		return b
	}
	if b.resource.Relationships == nil {
		b.resource.Relationships = make(map[string]Relationship)
	}
	b.resource.Relationships[name] = Relationship{Data: ResourceIdentifier{Type: relType, ID: relID}}
	return b
}

// HasMany adds a to-many relationship. A nil ids slice renders as [].
func (b *ResourceBuilder) HasMany(name, relType string, ids []string) *ResourceBuilder {
	if b.resource.Relationships == nil {
		b.resource.Relationships = make(map[string]Relationship)
	}
	linkage := make([]ResourceIdentifier, 0, len(ids))
	for _, id := range ids {
		linkage = append(linkage, ResourceIdentifier{Type: relType, ID: id})
	}
	b.resource.Relationships[name] = Relationship{Data: linkage}
	return b
}

// Link sets the self link for the resource.
func (b *ResourceBuilder) Link(self string) *ResourceBuilder {
	b.resource.Links = &ResourceLinks{Self: self}
	return b
}

// Build returns the constructed Resource.
func (b *ResourceBuilder) Build() Resource {
	return b.resource
}

// NewSingleResourceDocument creates a document with a single resource.
func NewSingleResourceDocument(r Resource) Document {
	return Document{Data: r, JSONAPI: &JSONAPI{Version: Version}}
}

// NewCompoundDocument creates a single resource document with included resources.
func NewCompoundDocument(r Resource, included []Resource) Document {
	doc := NewSingleResourceDocument(r)
	doc.Included = included
	return doc
}

// NewCollectionDocument creates a document for a collection. A nil
// collection is rendered as an empty array.
func NewCollectionDocument(resources []Resource, p *Pagination) Document {
	if resources == nil {
		resources = []Resource{}
	}
	doc := Document{Data: resources, JSONAPI: &JSONAPI{Version: Version}}
	if p != nil {
		doc.Meta = p.Meta()
		doc.Links = p.Links()
	}
	return doc
}

// NewErrorDocument creates a document carrying errors only.
func NewErrorDocument(errs ...Error) Document {
	return Document{Errors: errs, JSONAPI: &JSONAPI{Version: Version}}
}
