package inference

type embeddingsRequest struct {
	Model  string   `json:"model,omitempty"`
	Inputs []string `json:"inputs"`
}

type embeddingsResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
}

type imageRequest struct {
	Model       string   `json:"model,omitempty"`
	ImageBase64 string   `json:"image_base64"`
	MimeType    string   `json:"mime_type,omitempty"`
	Instruction string   `json:"instruction,omitempty"`
	MaxTokens   int      `json:"max_tokens,omitempty"`
	Labels      []string `json:"labels,omitempty"`
}

type imageEmbeddingResponse struct {
	Embedding []float32 `json:"embedding"`
}

type captionResponse struct {
	Caption string `json:"caption"`
}

type classifyResponse struct {
	Label  string             `json:"label"`
	Scores map[string]float64 `json:"scores,omitempty"`
}

type textGenerateRequest struct {
	Model       string                `json:"model,omitempty"`
	Messages    []textGenerateMessage `json:"messages"`
	MaxTokens   int                   `json:"max_tokens,omitempty"`
	Temperature float64               `json:"temperature"`
	TopP        float64               `json:"top_p,omitempty"`
}

type textGenerateMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type textGenerateResponse struct {
	OutputText string `json:"output_text"`
}
