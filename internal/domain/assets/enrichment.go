package assets

// Enrichment is what one successful pipeline run produced. Nil pointers and
// nil vectors mean "not produced", so the corresponding columns keep their
// stored values.
type Enrichment struct {
	Caption        *string
	ContentText    *string
	Category       string
	SemanticVector []float32
	VisualVector   []float32
	// DropEmbedding removes a previously stored embedding row. Set when the
	// content no longer yields anything to embed.
	DropEmbedding bool
}

// HasVectors reports whether an embedding row needs to be written.
func (e *Enrichment) HasVectors() bool {
	return e != nil && (e.SemanticVector != nil || e.VisualVector != nil)
}
