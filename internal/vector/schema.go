package vector

import (
	"context"

	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate/entities/models"
)

// PassageClass holds one object per indexed chunk.
const PassageClass = "Passage"

// SchemaClient defines the interface for Weaviate schema operations
type SchemaClient interface {
	ClassExists(ctx context.Context, className string) (bool, error)
	CreateClass(ctx context.Context, class *models.Class) error
	GetClass(ctx context.Context, className string) (*models.Class, error)
	AddProperty(ctx context.Context, className string, property *models.Property) error
}

// PassageProperties lists the stored metadata of a chunk. documentId and
// recordId are exact-match strings so they can be filtered on.
func PassageProperties() []*models.Property {
	return []*models.Property{
		{Name: "recordId", DataType: []string{"string"}},
		{Name: "content", DataType: []string{"text"}},
		{Name: "documentId", DataType: []string{"string"}},
		{Name: "chunkIndex", DataType: []string{"int"}},
		{Name: "title", DataType: []string{"text"}},
		{Name: "source", DataType: []string{"string"}},
	}
}

// EnsureSchema creates the Passage class, or adds properties missing from an
// existing one. Vectors are supplied by the caller and compared by cosine
// distance.
func EnsureSchema(ctx context.Context, client SchemaClient) error {
	properties := PassageProperties()

	exists, err := client.ClassExists(ctx, PassageClass)
	if err != nil {
		return err
	}

	if !exists {
		class := &models.Class{
			Class:       PassageClass,
			Description: "A chunk of an ingested document",
			Vectorizer:  "none",
			VectorIndexConfig: map[string]interface{}{
				"distance": "cosine",
			},
			Properties: properties,
		}
		return client.CreateClass(ctx, class)
	}

	class, err := client.GetClass(ctx, PassageClass)
	if err != nil {
		return err
	}

	existingProps := make(map[string]bool)
	for _, p := range class.Properties {
		existingProps[p.Name] = true
	}

	for _, p := range properties {
		if !existingProps[p.Name] {
			if err := client.AddProperty(ctx, PassageClass, p); err != nil {
				return err
			}
		}
	}

	return nil
}

// ClientSchema implements SchemaClient on the Weaviate Go client.
type ClientSchema struct {
	Client *weaviate.Client
}

func NewClientSchema(client *weaviate.Client) *ClientSchema {
	return &ClientSchema{Client: client}
}

func (a *ClientSchema) ClassExists(ctx context.Context, className string) (bool, error) {
	return a.Client.Schema().ClassExistenceChecker().WithClassName(className).Do(ctx)
}

func (a *ClientSchema) CreateClass(ctx context.Context, class *models.Class) error {
	return a.Client.Schema().ClassCreator().WithClass(class).Do(ctx)
}

func (a *ClientSchema) GetClass(ctx context.Context, className string) (*models.Class, error) {
	return a.Client.Schema().ClassGetter().WithClassName(className).Do(ctx)
}

func (a *ClientSchema) AddProperty(ctx context.Context, className string, property *models.Property) error {
	return a.Client.Schema().PropertyCreator().WithClassName(className).WithProperty(property).Do(ctx)
}
