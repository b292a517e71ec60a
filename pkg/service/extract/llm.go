package extract

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem"
	"github.com/secmon-lab/medinotes/pkg/domain/model"
	"github.com/secmon-lab/medinotes/pkg/utils/logging"
)

// LLM asks a language model for the patient's name and age. Fields the model
// leaves empty are filled from the pattern extractor, and any model failure
// falls back to the patterns entirely.
type LLM struct {
	llmClient gollem.LLMClient
	fallback  *Regex
}

// LLMOption is a functional option for LLM
type LLMOption func(*LLM)

// NewLLM creates an LLM backed extractor
func NewLLM(llmClient gollem.LLMClient, opts ...LLMOption) (*LLM, error) {
	if llmClient == nil {
		return nil, goerr.New("LLM client is required")
	}

	x := &LLM{
		llmClient: llmClient,
		fallback:  NewRegex(),
	}
	for _, opt := range opts {
		opt(x)
	}
	return x, nil
}

type llmResponse struct {
	Name string `json:"name"`
	Age  string `json:"age"`
}

const systemPrompt = `You extract patient identity from clinical dictation.
Return the patient's full name and age in years exactly as stated in the text.
Use an empty string for any value that is not stated. Never guess.`

// Extract implements interfaces.PatientExtractor
func (x *LLM) Extract(ctx context.Context, text string) (*model.PatientIdentity, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	byPattern := extractByPattern(text)

	byModel, err := x.ask(ctx, text)
	if err != nil {
		logging.From(ctx).Warn("patient extraction by LLM failed, using patterns", "error", err)
		return byPattern, nil
	}

	merged := &model.PatientIdentity{}
	if byModel != nil {
		merged.Name = strings.TrimSpace(byModel.Name)
		merged.Age = digitsOnly(byModel.Age)
	}
	if byPattern != nil {
		if merged.Name == "" {
			merged.Name = byPattern.Name
		}
		if merged.Age == "" {
			merged.Age = byPattern.Age
		}
	}
	if merged.Name == "" && merged.Age == "" {
		return nil, nil
	}
	return merged, nil
}

func (x *LLM) ask(ctx context.Context, text string) (*llmResponse, error) {
	session, err := x.llmClient.NewSession(ctx,
		gollem.WithSessionContentType(gollem.ContentTypeJSON),
		gollem.WithSessionResponseSchema(responseSchema()),
		gollem.WithSessionSystemPrompt(systemPrompt),
	)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create LLM session")
	}

	resp, err := session.GenerateContent(ctx, gollem.Text("## Dictation:\n\n"+text))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to generate content from LLM")
	}
	if resp == nil || len(resp.Texts) == 0 {
		return nil, goerr.New("empty LLM response")
	}

	var out llmResponse
	if err := json.Unmarshal([]byte(resp.Texts[0]), &out); err != nil {
		return nil, goerr.Wrap(err, "failed to parse LLM response", goerr.V("response", resp.Texts[0]))
	}
	return &out, nil
}

func responseSchema() *gollem.Parameter {
	return &gollem.Parameter{
		Title:       "PatientIdentity",
		Description: "Name and age of the patient mentioned in the dictation",
		Type:        gollem.TypeObject,
		Properties: map[string]*gollem.Parameter{
			"name": {
				Type:        gollem.TypeString,
				Description: "Full name of the patient, empty when not stated",
				Required:    true,
			},
			"age": {
				Type:        gollem.TypeString,
				Description: "Age in years as digits, empty when not stated",
				Required:    true,
			},
		},
	}
}

func digitsOnly(s string) string {
	var sb strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			sb.WriteRune(r)
		}
	}
	if sb.Len() > 3 {
		return ""
	}
	return sb.String()
}
