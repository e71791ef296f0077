package gliner2

import (
	"context"
	"fmt"
)

// NativeClient provides future support for go-gline-rs GLInER2
// This is a placeholder until go-gline-rs adds GLInER2 support
//
// When go-gline-rs adds GLInER2, this would enable:
// - Direct Go bindings to GLInER2 models
// - Zero HTTP overhead and maximum performance
// - Local model loading without Python dependency
//
// Expected go-gline-rs interface:
// type GLiNER2Model interface {
//     ExtractEntities(text string, schema []string) ([]Entity, error)
//     ExtractRelations(text string, schema map[string][2][]string) ([]Relation, error)
//     Close() error
// }
//
// func NewGliner2Model(modelPath string) (GLiNER2Model, error)

type NativeClient struct {
	// Future: GLInER2 model instance from go-gline-rs
	// model gline.Gliner2Model
}

func NewNativeClient(config interface{}) (*NativeClient, error) {
	// Placeholder until go-gline-rs supports GLInER2
	return &NativeClient{}, nil
}

func (c *NativeClient) Close() error {
	// Future: Close GLInER2 model
	return nil
}

func (c *NativeClient) Health(ctx context.Context) error {
	// Future: Health check for native model
	return nil
}

func (c *NativeClient) ExtractEntities(ctx context.Context, text string, schema interface{}, threshold float64) (*EntityResult, error) {
	// Future: Native GLInER2 entity extraction
	return nil, fmt.Errorf("native GLInER2 not yet supported - requires go-gline-rs GLInER2")
}

// ExtractEntitiesDirect provides direct access to entity extraction for Client
func (c *NativeClient) ExtractEntitiesDirect(ctx context.Context, text string, entityTypes []string) ([]Entity, error) {
	// Future: Native GLInER2 entity extraction
	return nil, fmt.Errorf("native GLInER2 not yet supported - requires go-gline-rs GLInER2")
}

func (c *NativeClient) ExtractRelations(ctx context.Context, text string, schema interface{}, threshold float64) (*RelationResult, error) {
	// Future: Native GLInER2 relation extraction
	return nil, fmt.Errorf("native GLInER2 not yet supported - requires go-gline-rs GLInER2")
}

// ExtractRelationsDirect provides direct access to relation extraction for Client
func (c *NativeClient) ExtractRelationsDirect(ctx context.Context, text string, relationTypes []string) (*RelationResult, error) {
	// Future: Native GLInER2 relation extraction
	return nil, fmt.Errorf("native GLInER2 not yet supported - requires go-gline-rs GLInER2")
}

func (c *NativeClient) ExtractFacts(ctx context.Context, text string, schema interface{}, threshold float64) ([]Fact, error) {
	// Future: Native GLInER2 fact extraction
	return nil, fmt.Errorf("native GLInER2 not yet supported - requires go-gline-rs GLInER2")
}

// ExtractFactsDirect provides direct access to fact extraction for Client
func (c *NativeClient) ExtractFactsDirect(ctx context.Context, text string, relationTypes []string) ([]Fact, error) {
	// Future: Native GLInER2 fact extraction
	return nil, fmt.Errorf("native GLInER2 not yet supported - requires go-gline-rs GLInER2")
}

func (c *NativeClient) ClassifyText(ctx context.Context, text string, schema interface{}, threshold float64) (*ClassificationResult, error) {
	// Future: Native GLInER2 text classification
	return nil, fmt.Errorf("native GLInER2 not yet supported - requires go-gline-rs GLInER2")
}

func (c *NativeClient) ExtractStructured(ctx context.Context, text string, schema interface{}, threshold float64) (*StructuredResult, error) {
	// Future: Native GLInER2 structured extraction
	return nil, fmt.Errorf("native GLInER2 not yet supported - requires go-gline-rs GLInER2")
}
